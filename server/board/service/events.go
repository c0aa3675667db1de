package service

import (
	"context"
	"time"

	"bragboard/server/board/domain"
	commonlog "bragboard/server/common/log"
)

const (
	EventShoutoutCreated = "shoutout.created"
	EventShoutoutUpdated = "shoutout.updated"
	EventShoutoutDeleted = "shoutout.deleted"
	EventReactionToggled = "reaction.toggled"
	EventCommentCreated  = "comment.created"
	EventCommentDeleted  = "comment.deleted"
	EventReportCreated   = "report.created"
	EventReportResolved  = "report.resolved"
	EventUserRoleChanged = "user.role_changed"
	EventUserDeleted     = "user.deleted"
	EventNotificationNew = "notification.created"
	publishTimeout       = 3 * time.Second
)

// eventSink fans board events out to the message broker and to connected
// sockets. Either side may be nil.
type eventSink struct {
	publisher EventPublisher
	notifier  Notifier
}

func (s eventSink) emit(ctx context.Context, ev domain.Event) {
	s.publish(ctx, ev)
	if s.notifier != nil {
		s.notifier.Broadcast(ev)
	}
}

// publish sends ev to the broker only. Moderation events stay off the sockets.
func (s eventSink) publish(ctx context.Context, ev domain.Event) {
	if s.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, ev.Type, ev); err != nil {
		commonlog.Warnf("event=board_event action=publish status=failed type=%s shoutout_id=%d error=%v", ev.Type, ev.ShoutoutID, err)
	}
}

func (s eventSink) notifyUser(userID int64, ev domain.Event) {
	if s.notifier != nil {
		s.notifier.NotifyUser(userID, ev)
	}
}
