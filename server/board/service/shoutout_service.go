package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bragboard/server/board/domain"
	commonlog "bragboard/server/common/log"
)

const (
	defaultFeedLimit   = 20
	maxFeedLimit       = 100
	maxMessageLength   = 2000
	maxTitleLength     = 200
	maxCommentLength   = 1000
	maxReportLength    = 500
	maxTags            = 10
	maxRecipients      = 50
	feedDateLayout     = "2006-01-02"
	shoutoutMediaScope = "shoutouts"
)

type ShoutoutService struct {
	store         ShoutoutStore
	users         UserStore
	media         MediaUploader
	notifications *NotificationService
	events        eventSink
}

func NewShoutoutService(store ShoutoutStore, users UserStore, media MediaUploader, notifications *NotificationService, publisher EventPublisher, notifier Notifier) *ShoutoutService {
	return &ShoutoutService{
		store:         store,
		users:         users,
		media:         media,
		notifications: notifications,
		events:        eventSink{publisher: publisher, notifier: notifier},
	}
}

type FeedQuery struct {
	Department string
	UserID     string
	DateFrom   string
	DateTo     string
	Limit      string
	Cursor     string
}

// ParseFeedQuery validates raw query values. date_to is inclusive of the
// whole day, so it becomes an exclusive bound at the next midnight UTC.
func ParseFeedQuery(q FeedQuery) (domain.FeedFilter, error) {
	filter := domain.FeedFilter{Department: strings.TrimSpace(q.Department), Limit: defaultFeedLimit}
	if raw := strings.TrimSpace(q.UserID); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return domain.FeedFilter{}, fmt.Errorf("%w: user_id must be a positive integer", ErrInvalidInput)
		}
		filter.UserID = id
	}
	if raw := strings.TrimSpace(q.DateFrom); raw != "" {
		from, err := time.ParseInLocation(feedDateLayout, raw, time.UTC)
		if err != nil {
			return domain.FeedFilter{}, fmt.Errorf("%w: date_from must be YYYY-MM-DD", ErrInvalidInput)
		}
		filter.DateFrom = &from
	}
	if raw := strings.TrimSpace(q.DateTo); raw != "" {
		to, err := time.ParseInLocation(feedDateLayout, raw, time.UTC)
		if err != nil {
			return domain.FeedFilter{}, fmt.Errorf("%w: date_to must be YYYY-MM-DD", ErrInvalidInput)
		}
		to = to.AddDate(0, 0, 1)
		filter.DateTo = &to
	}
	if filter.DateFrom != nil && filter.DateTo != nil && !filter.DateFrom.Before(*filter.DateTo) {
		return domain.FeedFilter{}, fmt.Errorf("%w: date_from is after date_to", ErrInvalidInput)
	}
	if raw := strings.TrimSpace(q.Limit); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return domain.FeedFilter{}, fmt.Errorf("%w: limit must be a positive integer", ErrInvalidInput)
		}
		filter.Limit = min(limit, maxFeedLimit)
	}
	cursor, err := DecodeCursor(q.Cursor)
	if err != nil {
		return domain.FeedFilter{}, err
	}
	filter.Cursor = cursor
	return filter, nil
}

// Feed returns one page and the cursor of the next page. The cursor is empty
// on the last page.
func (s *ShoutoutService) Feed(ctx context.Context, viewerID int64, filter domain.FeedFilter) ([]domain.Shoutout, string, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultFeedLimit
	}
	pageSize := filter.Limit
	filter.Limit = pageSize + 1
	items, err := s.store.ListShoutouts(ctx, filter)
	if err != nil {
		return nil, "", err
	}
	next := ""
	if len(items) > pageSize {
		items = items[:pageSize]
		last := items[len(items)-1]
		next = EncodeCursor(domain.FeedCursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	for i := range items {
		items[i].Decorate(viewerID)
	}
	return items, next, nil
}

func (s *ShoutoutService) Get(ctx context.Context, viewerID, id int64) (domain.Shoutout, error) {
	item, err := s.store.GetShoutout(ctx, id)
	if err != nil {
		return domain.Shoutout{}, err
	}
	item.Decorate(viewerID)
	return item, nil
}

type CreateShoutoutInput struct {
	Title        string      `json:"title"`
	Message      string      `json:"message"`
	Tags         []string    `json:"tags"`
	RecipientIDs []int64     `json:"recipient_ids"`
	Media        *MediaInput `json:"-"`
}

type UpdateShoutoutInput struct {
	Title   *string   `json:"title"`
	Message *string   `json:"message"`
	Tags    *[]string `json:"tags"`
}

func (s *ShoutoutService) Create(ctx context.Context, senderID int64, in CreateShoutoutInput) (domain.Shoutout, error) {
	title, message, err := validateShoutoutText(in.Title, in.Message)
	if err != nil {
		return domain.Shoutout{}, err
	}
	tags, err := normalizeTags(in.Tags)
	if err != nil {
		return domain.Shoutout{}, err
	}
	sender, err := s.users.GetUser(ctx, senderID)
	if err != nil {
		return domain.Shoutout{}, err
	}
	if sender.IsDeleted {
		return domain.Shoutout{}, fmt.Errorf("sender %d: %w", senderID, ErrForbidden)
	}
	recipients, err := s.resolveRecipients(ctx, senderID, in.RecipientIDs)
	if err != nil {
		return domain.Shoutout{}, err
	}

	draft := domain.Shoutout{Sender: sender.Summary(), Title: title, Message: message, Tags: tags}
	if in.Media != nil && len(in.Media.Data) > 0 {
		if s.media == nil {
			return domain.Shoutout{}, fmt.Errorf("%w: media storage is disabled", ErrInvalidInput)
		}
		stored, err := s.media.Upload(ctx, shoutoutMediaScope, in.Media.Filename, in.Media.ContentType, in.Media.Data)
		if err != nil {
			return domain.Shoutout{}, err
		}
		draft.ImageURL = stored.URL
		draft.ThumbnailURL = stored.ThumbnailURL
	}

	recipientIDs := make([]int64, 0, len(recipients))
	for _, r := range recipients {
		recipientIDs = append(recipientIDs, r.ID)
	}
	id, err := s.store.CreateShoutout(ctx, draft, recipientIDs)
	if err != nil {
		return domain.Shoutout{}, err
	}
	commonlog.Infof("event=shoutout action=create status=ok shoutout_id=%d sender_id=%d recipient_count=%d media=%t", id, senderID, len(recipientIDs), draft.ImageURL != "")

	refID := id
	actor := sender.Summary()
	for _, r := range recipients {
		s.notify(ctx, domain.Notification{
			UserID:      r.ID,
			Actor:       &actor,
			Type:        domain.NotificationShoutout,
			Message:     notificationMessage(actor, "gave you a shoutout"),
			ReferenceID: &refID,
		})
	}
	s.events.emit(ctx, domain.Event{Type: EventShoutoutCreated, ShoutoutID: id, ActorID: senderID})
	return s.Get(ctx, senderID, id)
}

func (s *ShoutoutService) resolveRecipients(ctx context.Context, senderID int64, ids []int64) ([]domain.User, error) {
	unique := make([]int64, 0, len(ids))
	seen := map[int64]struct{}{}
	for _, id := range ids {
		if id <= 0 || id == senderID {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return nil, fmt.Errorf("%w: at least one recipient other than the sender is required", ErrInvalidInput)
	}
	if len(unique) > maxRecipients {
		return nil, fmt.Errorf("%w: too many recipients", ErrInvalidInput)
	}
	users, err := s.users.ActiveUsersByIDs(ctx, unique)
	if err != nil {
		return nil, err
	}
	if len(users) != len(unique) {
		return nil, fmt.Errorf("%w: unknown or deleted recipient", ErrInvalidInput)
	}
	return users, nil
}

func (s *ShoutoutService) Update(ctx context.Context, actorID, id int64, in UpdateShoutoutInput) (domain.Shoutout, error) {
	current, err := s.store.GetShoutout(ctx, id)
	if err != nil {
		return domain.Shoutout{}, err
	}
	if current.Sender.ID != actorID {
		return domain.Shoutout{}, fmt.Errorf("edit shoutout %d: %w", id, ErrForbidden)
	}
	title, message, tags := current.Title, current.Message, current.Tags
	if in.Title != nil {
		title = *in.Title
	}
	if in.Message != nil {
		message = *in.Message
	}
	if title, message, err = validateShoutoutText(title, message); err != nil {
		return domain.Shoutout{}, err
	}
	if in.Tags != nil {
		if tags, err = normalizeTags(*in.Tags); err != nil {
			return domain.Shoutout{}, err
		}
	}
	if err := s.store.UpdateShoutout(ctx, id, title, message, tags); err != nil {
		return domain.Shoutout{}, err
	}
	s.events.emit(ctx, domain.Event{Type: EventShoutoutUpdated, ShoutoutID: id, ActorID: actorID})
	return s.Get(ctx, actorID, id)
}

func (s *ShoutoutService) Delete(ctx context.Context, actorID int64, role domain.UserRole, id int64) error {
	current, err := s.store.GetShoutout(ctx, id)
	if err != nil {
		return err
	}
	if current.Sender.ID != actorID && role != domain.UserRoleAdmin {
		return fmt.Errorf("delete shoutout %d: %w", id, ErrForbidden)
	}
	if err := s.store.DeleteShoutout(ctx, id); err != nil {
		return err
	}
	commonlog.Infof("event=shoutout action=delete status=ok shoutout_id=%d actor_id=%d", id, actorID)
	s.events.emit(ctx, domain.Event{Type: EventShoutoutDeleted, ShoutoutID: id, ActorID: actorID})
	return nil
}

// React toggles the reaction and returns the shoutout as the caller now sees it.
func (s *ShoutoutService) React(ctx context.Context, userID, id int64, reactionType domain.ReactionType) (domain.Shoutout, error) {
	if !reactionType.Valid() {
		return domain.Shoutout{}, fmt.Errorf("%w: reaction type must be like, clap or star", ErrInvalidInput)
	}
	current, err := s.store.GetShoutout(ctx, id)
	if err != nil {
		return domain.Shoutout{}, err
	}
	added, err := s.store.ToggleReaction(ctx, id, userID, reactionType)
	if err != nil {
		return domain.Shoutout{}, err
	}
	if added && current.Sender.ID != userID {
		if actor, err := s.users.GetUser(ctx, userID); err == nil {
			summary := actor.Summary()
			refID := id
			s.notify(ctx, domain.Notification{
				UserID:      current.Sender.ID,
				Actor:       &summary,
				Type:        domain.NotificationReaction,
				Message:     notificationMessage(summary, "reacted %s to your shoutout", reactionType),
				ReferenceID: &refID,
			})
		}
	}
	s.events.emit(ctx, domain.Event{Type: EventReactionToggled, ShoutoutID: id, ActorID: userID, Payload: map[string]any{"type": reactionType, "added": added}})
	return s.Get(ctx, userID, id)
}

type CommentInput struct {
	Content  string `json:"content"`
	ParentID *int64 `json:"parent_id"`
}

func (s *ShoutoutService) AddComment(ctx context.Context, userID, shoutoutID int64, in CommentInput) (domain.Comment, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return domain.Comment{}, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	if len([]rune(content)) > maxCommentLength {
		return domain.Comment{}, fmt.Errorf("%w: content is too long", ErrInvalidInput)
	}
	current, err := s.store.GetShoutout(ctx, shoutoutID)
	if err != nil {
		return domain.Comment{}, err
	}
	if in.ParentID != nil {
		parent, err := s.store.GetComment(ctx, *in.ParentID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return domain.Comment{}, fmt.Errorf("%w: parent comment not found", ErrInvalidInput)
			}
			return domain.Comment{}, err
		}
		if parent.ShoutoutID != shoutoutID {
			return domain.Comment{}, fmt.Errorf("%w: parent comment belongs to another shoutout", ErrInvalidInput)
		}
	}
	comment, err := s.store.AddComment(ctx, shoutoutID, userID, in.ParentID, content)
	if err != nil {
		return domain.Comment{}, err
	}
	if current.Sender.ID != userID {
		refID := shoutoutID
		actor := comment.User
		s.notify(ctx, domain.Notification{
			UserID:      current.Sender.ID,
			Actor:       &actor,
			Type:        domain.NotificationComment,
			Message:     notificationMessage(actor, "commented on your shoutout"),
			ReferenceID: &refID,
		})
	}
	s.events.emit(ctx, domain.Event{Type: EventCommentCreated, ShoutoutID: shoutoutID, ActorID: userID, Payload: comment})
	return comment, nil
}

// DeleteComment is allowed for the comment author, the shoutout sender and admins.
func (s *ShoutoutService) DeleteComment(ctx context.Context, actorID int64, role domain.UserRole, shoutoutID, commentID int64) error {
	comment, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	if shoutoutID > 0 && comment.ShoutoutID != shoutoutID {
		return fmt.Errorf("comment %d: %w", commentID, ErrNotFound)
	}
	if comment.User.ID != actorID && role != domain.UserRoleAdmin {
		current, err := s.store.GetShoutout(ctx, comment.ShoutoutID)
		if err != nil {
			return err
		}
		if current.Sender.ID != actorID {
			return fmt.Errorf("delete comment %d: %w", commentID, ErrForbidden)
		}
	}
	if err := s.store.DeleteComment(ctx, commentID); err != nil {
		return err
	}
	s.events.emit(ctx, domain.Event{Type: EventCommentDeleted, ShoutoutID: comment.ShoutoutID, ActorID: actorID, Payload: map[string]int64{"comment_id": commentID}})
	return nil
}

func (s *ShoutoutService) Report(ctx context.Context, userID, shoutoutID int64, reason string) (domain.Report, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.Report{}, fmt.Errorf("%w: reason is required", ErrInvalidInput)
	}
	if len([]rune(reason)) > maxReportLength {
		return domain.Report{}, fmt.Errorf("%w: reason is too long", ErrInvalidInput)
	}
	if _, err := s.store.GetShoutout(ctx, shoutoutID); err != nil {
		return domain.Report{}, err
	}
	report, err := s.store.CreateReport(ctx, shoutoutID, userID, reason)
	if err != nil {
		return domain.Report{}, err
	}
	commonlog.Infof("event=report action=create status=ok report_id=%d shoutout_id=%d reporter_id=%d", report.ID, shoutoutID, userID)
	s.events.publish(ctx, domain.Event{Type: EventReportCreated, ShoutoutID: shoutoutID, ActorID: userID})
	return report, nil
}

func (s *ShoutoutService) notify(ctx context.Context, n domain.Notification) {
	if s.notifications != nil {
		s.notifications.Notify(ctx, n)
	}
}

func validateShoutoutText(title, message string) (string, string, error) {
	title = strings.TrimSpace(title)
	message = strings.TrimSpace(message)
	if message == "" {
		return "", "", fmt.Errorf("%w: message is required", ErrInvalidInput)
	}
	if len([]rune(message)) > maxMessageLength {
		return "", "", fmt.Errorf("%w: message is too long", ErrInvalidInput)
	}
	if len([]rune(title)) > maxTitleLength {
		return "", "", fmt.Errorf("%w: title is too long", ErrInvalidInput)
	}
	return title, message, nil
}

func normalizeTags(raw []string) ([]string, error) {
	tags := make([]string, 0, len(raw))
	seen := map[string]struct{}{}
	for _, tag := range raw {
		tag = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	if len(tags) > maxTags {
		return nil, fmt.Errorf("%w: at most %d tags", ErrInvalidInput, maxTags)
	}
	return tags, nil
}
