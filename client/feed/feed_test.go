package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bragboard/client/api"
	"bragboard/client/session"
	"bragboard/client/state"
	"bragboard/server/board/domain"
)

func newTestClient(t *testing.T, handler http.Handler) *api.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	sess := session.New()
	sess.Set("tok", domain.User{ID: 2, Name: "Bob"})
	return api.NewClient(srv.URL, sess, api.WithHTTPClient(srv.Client()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// salesBoard serves the bare-array feed shape and records likes. A replayed
// Idempotency-Key is answered with 409. With hold set, the first react waits
// until its replay has arrived, as a slow server would during a double click.
type salesBoard struct {
	mu       sync.Mutex
	likes    int
	keys     map[string]bool
	hold     bool
	replayed chan struct{}
	once     sync.Once
}

func (b *salesBoard) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /shoutouts", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("department") != "Sales" {
			writeJSON(w, http.StatusOK, []any{})
			return
		}
		b.mu.Lock()
		reactions := make([]map[string]any, 0, b.likes)
		for i := 0; i < b.likes; i++ {
			reactions = append(reactions, map[string]any{"id": i + 1, "user_id": 2, "type": "like"})
		}
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, []map[string]any{{"id": 1, "message": "Great job", "reactions": reactions}})
	})
	mux.HandleFunc("POST /shoutouts/{id}/react", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if r.PathValue("id") != "1" || body["type"] != "like" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad reaction"})
			return
		}
		key := r.Header.Get(api.IdempotencyHeader)
		b.mu.Lock()
		if b.keys == nil {
			b.keys = map[string]bool{}
		}
		if b.keys[key] {
			b.mu.Unlock()
			if b.replayed != nil {
				b.once.Do(func() { close(b.replayed) })
			}
			writeJSON(w, http.StatusConflict, map[string]string{"error": "duplicate request"})
			return
		}
		b.keys[key] = true
		b.likes++
		b.mu.Unlock()
		if b.hold {
			select {
			case <-b.replayed:
			case <-time.After(2 * time.Second):
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func TestSalesLikeVisibleWithoutManualReload(t *testing.T) {
	board := &salesBoard{}
	f := NewFeed(newTestClient(t, board.handler()), api.ShoutoutFilter{Department: "Sales"})
	ctx := context.Background()

	require.NoError(t, f.Refresh(ctx))
	snap := f.Snapshot()
	require.Len(t, snap.Items, 1)
	assert.Empty(t, snap.Items[0].Reactions)

	require.NoError(t, f.React(ctx, 1, domain.ReactionLike))

	snap = f.Snapshot()
	require.Len(t, snap.Items, 1)
	assert.Len(t, snap.Items[0].Reactions, 1)
	assert.Equal(t, state.StatusLoaded, snap.Status)
	assert.EqualValues(t, 1, snap.Refresh)
}

func TestDoubleReactTogglesOnce(t *testing.T) {
	board := &salesBoard{hold: true, replayed: make(chan struct{})}
	f := NewFeed(newTestClient(t, board.handler()), api.ShoutoutFilter{Department: "Sales"})
	ctx := context.Background()
	require.NoError(t, f.Refresh(ctx))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = f.React(ctx, 1, domain.ReactionLike)
		}()
	}
	wg.Wait()

	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	require.NoError(t, f.Refresh(ctx))
	assert.Len(t, f.Snapshot().Items[0].Reactions, 1)
	board.mu.Lock()
	assert.Equal(t, 1, board.likes)
	board.mu.Unlock()
}

func TestStaleFilterFetchKeepsCurrentCursor(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /shoutouts", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("department") {
		case "Sales":
			close(started)
			<-release
			writeJSON(w, http.StatusOK, map[string]any{"items": []map[string]any{{"id": 1, "message": "sales"}}, "next_cursor": "sales-2"})
		default:
			writeJSON(w, http.StatusOK, map[string]any{"items": []map[string]any{{"id": 2, "message": "engineering"}}})
		}
	})
	f := NewFeed(newTestClient(t, mux), api.ShoutoutFilter{})
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- f.SetFilter(ctx, api.ShoutoutFilter{Department: "Sales"}) }()
	<-started
	require.NoError(t, f.SetFilter(ctx, api.ShoutoutFilter{Department: "Engineering"}))
	close(release)
	require.NoError(t, <-done)

	snap := f.Snapshot()
	require.Len(t, snap.Items, 1)
	assert.EqualValues(t, 2, snap.Items[0].ID)
	assert.Equal(t, "Engineering", f.Filter().Department)
	assert.False(t, f.HasMore())
	require.NoError(t, f.LoadMore(ctx))
	assert.EqualValues(t, 2, f.Snapshot().Items[0].ID)
}

func TestFailedRefreshKeepsEngineeringItems(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /shoutouts", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Engineering", r.URL.Query().Get("department"))
		if calls.Add(1) == 1 {
			writeJSON(w, http.StatusOK, map[string]any{"items": []map[string]any{{"id": 3, "message": "Fixed the build"}}})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	})
	f := NewFeed(newTestClient(t, mux), api.ShoutoutFilter{Department: "Engineering"})
	ctx := context.Background()

	require.NoError(t, f.Refresh(ctx))
	err := f.Refresh(ctx)

	require.Error(t, err)
	assert.True(t, api.IsStatus(err, http.StatusInternalServerError))
	snap := f.Snapshot()
	assert.Equal(t, state.StatusError, snap.Status)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "Fixed the build", snap.Items[0].Message)
}

func TestPostAndDeleteReflectWithoutReload(t *testing.T) {
	var mu sync.Mutex
	items := []domain.Shoutout{{ID: 1, Message: "first"}}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /shoutouts", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	})
	mux.HandleFunc("POST /shoutouts", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		created := domain.Shoutout{ID: 2, Message: "second"}
		items = append([]domain.Shoutout{created}, items...)
		writeJSON(w, http.StatusCreated, created)
	})
	mux.HandleFunc("DELETE /shoutouts/{id}", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		items = items[1:]
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	f := NewFeed(newTestClient(t, mux), api.ShoutoutFilter{})
	ctx := context.Background()
	require.NoError(t, f.Refresh(ctx))

	_, err := f.Post(ctx, api.NewShoutout{Message: "second", RecipientIDs: []int64{1}})
	require.NoError(t, err)
	snap := f.Snapshot()
	require.Len(t, snap.Items, 2)
	assert.EqualValues(t, 2, snap.Items[0].ID)

	require.NoError(t, f.Delete(ctx, 2))
	snap = f.Snapshot()
	require.Len(t, snap.Items, 1)
	assert.EqualValues(t, 1, snap.Items[0].ID)
}

func TestFailedMutationLeavesStateAlone(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /shoutouts", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []domain.Shoutout{{ID: 1, Message: "keep"}})
	})
	mux.HandleFunc("DELETE /shoutouts/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	})
	f := NewFeed(newTestClient(t, mux), api.ShoutoutFilter{})
	ctx := context.Background()
	require.NoError(t, f.Refresh(ctx))

	err := f.Delete(ctx, 1)

	assert.True(t, api.IsStatus(err, http.StatusForbidden))
	assert.Len(t, f.Snapshot().Items, 1)
	assert.Zero(t, f.Snapshot().Refresh)
}
