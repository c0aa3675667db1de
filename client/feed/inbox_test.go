package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bragboard/server/board/domain"
)

type inboxServer struct {
	mu    sync.Mutex
	items []domain.Notification
}

func (s *inboxServer) unread() int64 {
	var n int64
	for _, it := range s.items {
		if !it.IsRead {
			n++
		}
	}
	return n
}

func (s *inboxServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /notifications", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		writeJSON(w, http.StatusOK, s.items)
	})
	mux.HandleFunc("GET /notifications/unread-count", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]int64{"unread_count": s.unread()})
	})
	mux.HandleFunc("PUT /notifications/read-all", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		count := s.unread()
		for i := range s.items {
			s.items[i].IsRead = true
		}
		writeJSON(w, http.StatusOK, map[string]int64{"count": count})
	})
	mux.HandleFunc("PUT /notifications/{id}/read", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		s.mu.Lock()
		defer s.mu.Unlock()
		for i := range s.items {
			if s.items[i].ID == id {
				s.items[i].IsRead = true
				writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})
	return mux
}

func TestInboxMarkReadUpdatesCounter(t *testing.T) {
	srv := &inboxServer{items: []domain.Notification{
		{ID: 2, UserID: 2, Message: "Alice reacted like to your shoutout"},
		{ID: 1, UserID: 2, Message: "Alice gave you a shoutout"},
	}}
	inbox := NewInbox(newTestClient(t, srv.handler()), 0)
	ctx := context.Background()

	require.NoError(t, inbox.Refresh(ctx))
	assert.EqualValues(t, 2, inbox.Unread())

	require.NoError(t, inbox.MarkRead(ctx, 1))
	assert.EqualValues(t, 1, inbox.Unread())
	snap := inbox.Snapshot()
	require.Len(t, snap.Items, 2)
	assert.True(t, snap.Items[1].IsRead)
	assert.False(t, snap.Items[0].IsRead)

	require.NoError(t, inbox.MarkAllRead(ctx))
	assert.Zero(t, inbox.Unread())
	for _, n := range inbox.Snapshot().Items {
		assert.True(t, n.IsRead)
	}
}

func TestInboxPrependsPushedNotification(t *testing.T) {
	srv := &inboxServer{items: []domain.Notification{{ID: 1, UserID: 2, Message: "older"}}}
	inbox := NewInbox(newTestClient(t, srv.handler()), 10)
	ctx := context.Background()
	require.NoError(t, inbox.Refresh(ctx))

	payload, err := json.Marshal(domain.Notification{ID: 5, UserID: 2, Message: "Carol commented on your shoutout"})
	require.NoError(t, err)
	inbox.HandleEvent(ctx, PushEvent{Type: "notification.created", Payload: payload})

	snap := inbox.Snapshot()
	require.Len(t, snap.Items, 2)
	assert.EqualValues(t, 5, snap.Items[0].ID)
	assert.EqualValues(t, 2, inbox.Unread())
}

func TestInboxPushOfPolledNotificationCountsOnce(t *testing.T) {
	n := domain.Notification{ID: 7, UserID: 2, Message: "Alice gave you a shoutout"}
	srv := &inboxServer{items: []domain.Notification{n}}
	inbox := NewInbox(newTestClient(t, srv.handler()), 10)
	ctx := context.Background()
	require.NoError(t, inbox.Refresh(ctx))
	require.EqualValues(t, 1, inbox.Unread())

	payload, err := json.Marshal(n)
	require.NoError(t, err)
	inbox.HandleEvent(ctx, PushEvent{Type: "notification.created", Payload: payload})

	assert.Len(t, inbox.Snapshot().Items, 1)
	assert.EqualValues(t, 1, inbox.Unread())
}

func TestInboxAppliesReadFromAnotherSession(t *testing.T) {
	srv := &inboxServer{items: []domain.Notification{
		{ID: 2, UserID: 2, Message: "Carol commented on your shoutout"},
		{ID: 1, UserID: 2, Message: "Alice gave you a shoutout"},
	}}
	inbox := NewInbox(newTestClient(t, srv.handler()), 10)
	ctx := context.Background()
	require.NoError(t, inbox.Refresh(ctx))
	require.EqualValues(t, 2, inbox.Unread())

	inbox.HandleEvent(ctx, PushEvent{Type: "notification.read", Payload: json.RawMessage(`{"id":1}`)})
	inbox.HandleEvent(ctx, PushEvent{Type: "notification.read", Payload: json.RawMessage(`{"id":1}`)})

	assert.EqualValues(t, 1, inbox.Unread())
	snap := inbox.Snapshot()
	require.Len(t, snap.Items, 2)
	assert.False(t, snap.Items[0].IsRead)
	assert.True(t, snap.Items[1].IsRead)
}
