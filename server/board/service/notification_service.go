package service

import (
	"context"
	"fmt"

	"bragboard/server/board/domain"
	commonlog "bragboard/server/common/log"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 100
)

type NotificationService struct {
	store  NotificationStore
	events eventSink
}

func NewNotificationService(store NotificationStore, notifier Notifier) *NotificationService {
	return &NotificationService{store: store, events: eventSink{notifier: notifier}}
}

func (s *NotificationService) List(ctx context.Context, userID int64, filter domain.NotificationFilter) ([]domain.Notification, error) {
	if filter.Skip < 0 {
		filter.Skip = 0
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultNotificationLimit
	}
	if filter.Limit > maxNotificationLimit {
		filter.Limit = maxNotificationLimit
	}
	return s.store.ListNotifications(ctx, userID, filter)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	return s.store.CountUnread(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id int64) error {
	if err := s.store.MarkRead(ctx, userID, id); err != nil {
		return err
	}
	s.events.notifyUser(userID, domain.Event{Type: "notification.read", Payload: map[string]int64{"id": id}})
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	updated, err := s.store.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	if updated > 0 {
		s.events.notifyUser(userID, domain.Event{Type: "notification.read_all"})
	}
	return updated, nil
}

// Notify stores n and pushes it to the recipient's open sockets. Self
// notifications are dropped. Failures are logged, never returned, so the
// action that caused the notification still succeeds.
func (s *NotificationService) Notify(ctx context.Context, n domain.Notification) {
	if n.Actor != nil && n.Actor.ID == n.UserID {
		return
	}
	created, err := s.store.CreateNotification(ctx, n)
	if err != nil {
		commonlog.Errorf("event=notification action=create status=failed user_id=%d type=%s error=%v", n.UserID, n.Type, err)
		return
	}
	s.events.notifyUser(created.UserID, domain.Event{Type: EventNotificationNew, Payload: created})
}

func notificationMessage(actor domain.UserSummary, format string, args ...any) string {
	return actor.Name + " " + fmt.Sprintf(format, args...)
}
