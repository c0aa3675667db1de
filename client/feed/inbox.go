package feed

import (
	"context"
	"encoding/json"
	"sync"

	"bragboard/client/api"
	"bragboard/client/state"
	"bragboard/server/board/domain"
	commonlog "bragboard/server/common/log"
)

const defaultInboxLimit = 50

type Inbox struct {
	client *api.Client
	list   *state.List[domain.Notification]
	limit  int

	mu     sync.Mutex
	unread int64
}

func NewInbox(client *api.Client, limit int) *Inbox {
	if limit <= 0 {
		limit = defaultInboxLimit
	}
	return &Inbox{
		client: client,
		list:   state.NewList(func(n domain.Notification) int64 { return n.ID }),
		limit:  limit,
	}
}

func (i *Inbox) Snapshot() state.Snapshot[domain.Notification] {
	return i.list.Snapshot()
}

func (i *Inbox) Subscribe(fn func(state.Snapshot[domain.Notification])) func() {
	return i.list.Subscribe(fn)
}

func (i *Inbox) Unread() int64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.unread
}

// Refresh fetches the newest notifications and the unread counter. It is
// the function a Poller drives.
func (i *Inbox) Refresh(ctx context.Context) error {
	err := i.list.FetchPage(ctx, func(ctx context.Context) (state.Page[domain.Notification], error) {
		items, err := i.client.Notifications(ctx, api.NotificationFilter{Limit: i.limit})
		if err != nil {
			return state.Page[domain.Notification]{}, err
		}
		count, err := i.client.UnreadCount(ctx)
		if err != nil {
			return state.Page[domain.Notification]{}, err
		}
		return state.Page[domain.Notification]{Items: items, Commit: func() { i.setUnread(count) }}, nil
	})
	return ignoreSuperseded(err)
}

func (i *Inbox) MarkRead(ctx context.Context, id int64) error {
	if err := i.client.MarkRead(ctx, id); err != nil {
		return err
	}
	i.markLocalRead(id)
	i.afterMutation(ctx, "mark_read")
	return nil
}

func (i *Inbox) MarkAllRead(ctx context.Context) error {
	if _, err := i.client.MarkAllRead(ctx); err != nil {
		return err
	}
	items := i.list.Snapshot().Items
	for idx := range items {
		items[idx].IsRead = true
	}
	i.list.Apply(state.Replace(items))
	i.setUnread(0)
	i.afterMutation(ctx, "mark_all_read")
	return nil
}

// HandleEvent applies pushed notification changes without a round trip.
// A notification already loaded by a poll is not counted twice.
func (i *Inbox) HandleEvent(ctx context.Context, ev PushEvent) {
	switch ev.Type {
	case "notification.created":
		var n domain.Notification
		if err := json.Unmarshal(ev.Payload, &n); err != nil || n.ID == 0 {
			i.refreshLogged(ctx, ev.Type)
			return
		}
		i.list.Insert(n, func() {
			if !n.IsRead {
				i.mu.Lock()
				i.unread++
				i.mu.Unlock()
			}
		})
	case "notification.read":
		var ref struct {
			ID int64 `json:"id"`
		}
		if err := json.Unmarshal(ev.Payload, &ref); err != nil || ref.ID == 0 || !i.markLocalRead(ref.ID) {
			i.refreshLogged(ctx, ev.Type)
		}
	case "notification.read_all":
		i.refreshLogged(ctx, ev.Type)
	}
}

// markLocalRead flips id to read and decrements the counter once. It
// reports whether id is held locally.
func (i *Inbox) markLocalRead(id int64) bool {
	found := false
	i.list.Apply(state.Patch(id, func(n *domain.Notification) {
		found = true
		if n.IsRead {
			return
		}
		n.IsRead = true
		i.mu.Lock()
		if i.unread > 0 {
			i.unread--
		}
		i.mu.Unlock()
	}))
	return found
}

func (i *Inbox) setUnread(count int64) {
	i.mu.Lock()
	i.unread = count
	i.mu.Unlock()
}

func (i *Inbox) afterMutation(ctx context.Context, action string) {
	i.list.Bump()
	if err := i.Refresh(ctx); err != nil {
		commonlog.Warnf("event=inbox action=%s_refresh status=failed error=%v", action, err)
	}
}

func (i *Inbox) refreshLogged(ctx context.Context, reason string) {
	if err := i.Refresh(ctx); err != nil {
		commonlog.Warnf("event=inbox action=refresh status=failed reason=%s error=%v", reason, err)
	}
}
