// Package feed keeps the shoutout feed and the notification inbox of one
// signed-in user in sync with the board server.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"bragboard/client/api"
	"bragboard/client/state"
	"bragboard/server/board/domain"
	commonlog "bragboard/server/common/log"
)

type Feed struct {
	client *api.Client
	list   *state.List[domain.Shoutout]

	actions actionTracker

	mu     sync.Mutex
	filter api.ShoutoutFilter
	next   string
}

func NewFeed(client *api.Client, filter api.ShoutoutFilter) *Feed {
	return &Feed{
		client: client,
		list:   state.NewList(func(s domain.Shoutout) int64 { return s.ID }),
		filter: filter,
	}
}

func (f *Feed) Snapshot() state.Snapshot[domain.Shoutout] {
	return f.list.Snapshot()
}

func (f *Feed) Subscribe(fn func(state.Snapshot[domain.Shoutout])) func() {
	return f.list.Subscribe(fn)
}

func (f *Feed) Filter() api.ShoutoutFilter {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filter
}

// HasMore reports whether the last fetch left a next page.
func (f *Feed) HasMore() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.next != ""
}

// Refresh reloads the first page for the current filter. A superseded
// fetch is not an error for the caller.
func (f *Feed) Refresh(ctx context.Context) error {
	filter := f.Filter()
	filter.Cursor = ""
	err := f.list.FetchPage(ctx, func(ctx context.Context) (state.Page[domain.Shoutout], error) {
		page, err := f.client.Shoutouts(ctx, filter)
		if err != nil {
			return state.Page[domain.Shoutout]{}, err
		}
		return state.Page[domain.Shoutout]{Items: page.Items, Commit: f.commitCursor(page.NextCursor)}, nil
	})
	return ignoreSuperseded(err)
}

// SetFilter changes the tracked filter and refetches.
func (f *Feed) SetFilter(ctx context.Context, filter api.ShoutoutFilter) error {
	f.mu.Lock()
	f.filter = filter
	f.next = ""
	f.mu.Unlock()
	return f.Refresh(ctx)
}

// LoadMore appends the next page. It is a no-op on the last page.
func (f *Feed) LoadMore(ctx context.Context) error {
	f.mu.Lock()
	filter := f.filter
	filter.Cursor = f.next
	f.mu.Unlock()
	if filter.Cursor == "" {
		return nil
	}
	current := f.list.Snapshot().Items
	err := f.list.FetchPage(ctx, func(ctx context.Context) (state.Page[domain.Shoutout], error) {
		page, err := f.client.Shoutouts(ctx, filter)
		if err != nil {
			return state.Page[domain.Shoutout]{}, err
		}
		return state.Page[domain.Shoutout]{Items: append(current, page.Items...), Commit: f.commitCursor(page.NextCursor)}, nil
	})
	return ignoreSuperseded(err)
}

func (f *Feed) commitCursor(next string) func() {
	return func() {
		f.mu.Lock()
		f.next = next
		f.mu.Unlock()
	}
}

// Post creates a shoutout. A repeat of the same post while the first is
// still in flight shares its Idempotency-Key and returns the same record.
func (f *Feed) Post(ctx context.Context, in api.NewShoutout) (domain.Shoutout, error) {
	created, applied, err := runOnce(ctx, &f.actions, f.client, postOp(in), func(ctx context.Context) (domain.Shoutout, error) {
		return f.client.CreateShoutout(ctx, in)
	})
	if err != nil || !applied {
		return created, err
	}
	f.list.Apply(state.Prepend(created))
	f.afterMutation(ctx, "post")
	return created, nil
}

func (f *Feed) Edit(ctx context.Context, id int64, edit api.ShoutoutEdit) (domain.Shoutout, error) {
	raw, _ := json.Marshal(edit)
	op := fmt.Sprintf("edit:%d:%s", id, raw)
	updated, applied, err := runOnce(ctx, &f.actions, f.client, op, func(ctx context.Context) (domain.Shoutout, error) {
		return f.client.UpdateShoutout(ctx, id, edit)
	})
	if err != nil || !applied {
		return updated, err
	}
	f.list.Apply(state.Upsert(updated))
	f.afterMutation(ctx, "edit")
	return updated, nil
}

func (f *Feed) Delete(ctx context.Context, id int64) error {
	_, applied, err := runOnce(ctx, &f.actions, f.client, fmt.Sprintf("delete:%d", id), func(ctx context.Context) (struct{}, error) {
		return struct{}{}, f.client.DeleteShoutout(ctx, id)
	})
	if err != nil || !applied {
		return err
	}
	f.list.Apply(state.Remove[domain.Shoutout](id))
	f.afterMutation(ctx, "delete")
	return nil
}

// React toggles a reaction. When the server echoes the shoutout it is
// patched in directly; the refetch that follows covers servers that do not.
// A second click while the first toggle is in flight does not toggle back.
func (f *Feed) React(ctx context.Context, id int64, reaction domain.ReactionType) error {
	op := fmt.Sprintf("react:%d:%s", id, reaction)
	updated, applied, err := runOnce(ctx, &f.actions, f.client, op, func(ctx context.Context) (*domain.Shoutout, error) {
		return f.client.React(ctx, id, reaction)
	})
	if err != nil || !applied {
		return err
	}
	if updated != nil {
		f.list.Apply(state.Upsert(*updated))
	}
	f.afterMutation(ctx, "react")
	return nil
}

func (f *Feed) Comment(ctx context.Context, id int64, content string, parentID *int64) (domain.Comment, error) {
	op := fmt.Sprintf("comment:%d:%d:%s", id, derefID(parentID), content)
	comment, applied, err := runOnce(ctx, &f.actions, f.client, op, func(ctx context.Context) (domain.Comment, error) {
		return f.client.AddComment(ctx, id, content, parentID)
	})
	if err != nil || !applied {
		return comment, err
	}
	f.list.Apply(state.Patch(id, func(s *domain.Shoutout) {
		comments := make([]domain.Comment, 0, len(s.Comments)+1)
		comments = append(comments, s.Comments...)
		s.Comments = append(comments, comment)
	}))
	f.afterMutation(ctx, "comment")
	return comment, nil
}

func (f *Feed) DeleteComment(ctx context.Context, id, commentID int64) error {
	op := fmt.Sprintf("delete_comment:%d:%d", id, commentID)
	_, applied, err := runOnce(ctx, &f.actions, f.client, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, f.client.DeleteComment(ctx, id, commentID)
	})
	if err != nil || !applied {
		return err
	}
	f.list.Apply(state.Patch(id, func(s *domain.Shoutout) {
		comments := make([]domain.Comment, 0, len(s.Comments))
		for _, c := range s.Comments {
			if c.ID != commentID && (c.ParentID == nil || *c.ParentID != commentID) {
				comments = append(comments, c)
			}
		}
		s.Comments = comments
	}))
	f.afterMutation(ctx, "delete_comment")
	return nil
}

func postOp(in api.NewShoutout) string {
	media := ""
	if in.Media != nil {
		media = in.Media.Filename
	}
	return fmt.Sprintf("post:%q:%q:%q:%v:%q", in.Title, in.Message, in.Tags, in.RecipientIDs, media)
}

func derefID(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}

// HandleEvent refetches when a pushed board event touches shoutouts.
func (f *Feed) HandleEvent(ctx context.Context, ev PushEvent) {
	switch ev.Type {
	case "shoutout.created", "shoutout.updated", "shoutout.deleted", "reaction.toggled", "comment.created", "comment.deleted":
		if err := f.Refresh(ctx); err != nil {
			commonlog.Warnf("event=feed action=push_refresh status=failed type=%s error=%v", ev.Type, err)
		}
	}
}

// afterMutation bumps the refresh counter and refetches. A failed refetch
// stays in the list state; the mutation itself already succeeded.
func (f *Feed) afterMutation(ctx context.Context, action string) {
	f.list.Bump()
	if err := f.Refresh(ctx); err != nil {
		commonlog.Warnf("event=feed action=%s_refresh status=failed error=%v", action, err)
	}
}

func ignoreSuperseded(err error) error {
	if errors.Is(err, state.ErrSuperseded) {
		return nil
	}
	return err
}
