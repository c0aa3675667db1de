package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bragboard/client/session"
	"bragboard/server/board/domain"
)

type recorded struct {
	method      string
	path        string
	auth        string
	idempotency string
}

type fakeServer struct {
	mu       sync.Mutex
	requests []recorded
	handler  http.HandlerFunc
}

func newFakeServer(t *testing.T, handler http.HandlerFunc) (*fakeServer, *httptest.Server) {
	t.Helper()
	fs := &fakeServer{handler: handler}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		fs.requests = append(fs.requests, recorded{
			method:      r.Method,
			path:        r.URL.Path,
			auth:        r.Header.Get("Authorization"),
			idempotency: r.Header.Get(IdempotencyHeader),
		})
		fs.mu.Unlock()
		fs.handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return fs, srv
}

func (fs *fakeServer) last() recorded {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.requests[len(fs.requests)-1]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func authedClient(url string) *Client {
	sess := session.New()
	sess.Set("tok-1", domain.User{ID: 1, Name: "Alice"})
	return NewClient(url, sess)
}

func TestLoginStoresTokenInSession(t *testing.T) {
	fs, srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "alice@example.com", body["email"])
		writeJSON(w, http.StatusOK, map[string]any{"access_token": "issued", "token_type": "bearer", "user": map[string]any{"id": 4, "name": "Alice"}})
	})
	c := NewClient(srv.URL+"/", session.New())

	user, err := c.Login(context.Background(), "alice@example.com", "secret123")
	require.NoError(t, err)

	assert.EqualValues(t, 4, user.ID)
	token, ok := c.Session().Token()
	assert.True(t, ok)
	assert.Equal(t, "issued", token)
	assert.Equal(t, "/login", fs.last().path)
	assert.Empty(t, fs.last().auth)
}

func TestMutationsCarryIdempotencyKeyAndBearer(t *testing.T) {
	fs, srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, []domain.Notification{})
		default:
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		}
	})
	c := authedClient(srv.URL)

	_, err := c.Notifications(context.Background(), NotificationFilter{UnreadOnly: true})
	require.NoError(t, err)
	get := fs.last()
	assert.Equal(t, "Bearer tok-1", get.auth)
	assert.Empty(t, get.idempotency)

	require.NoError(t, c.MarkRead(context.Background(), 9))
	first := fs.last()
	assert.Equal(t, "/notifications/9/read", first.path)
	assert.NotEmpty(t, first.idempotency)

	require.NoError(t, c.MarkRead(context.Background(), 9))
	assert.NotEqual(t, first.idempotency, fs.last().idempotency)
}

func TestContextKeyIsReusedAcrossCalls(t *testing.T) {
	fs, srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	c := authedClient(srv.URL)
	ctx := WithIdempotencyKey(context.Background(), "click-1")

	require.NoError(t, c.MarkRead(ctx, 9))
	require.NoError(t, c.MarkRead(ctx, 9))

	fs.mu.Lock()
	defer fs.mu.Unlock()
	require.Len(t, fs.requests, 2)
	assert.Equal(t, "click-1", fs.requests[0].idempotency)
	assert.Equal(t, "click-1", fs.requests[1].idempotency)
}

func TestUnauthorizedInvalidatesSession(t *testing.T) {
	_, srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
	})
	c := authedClient(srv.URL)
	var reasons []string
	c.Session().OnInvalidate(func(reason string) { reasons = append(reasons, reason) })

	_, err := c.Me(context.Background())

	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "invalid token", se.Message)
	assert.Equal(t, []string{session.ReasonUnauthorized}, reasons)
	_, ok := c.Session().Token()
	assert.False(t, ok)
}

func TestServerErrorKeepsSession(t *testing.T) {
	_, srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	c := authedClient(srv.URL)

	_, err := c.Shoutouts(context.Background(), ShoutoutFilter{Department: "Engineering"})

	assert.True(t, IsStatus(err, http.StatusInternalServerError))
	_, ok := c.Session().Token()
	assert.True(t, ok)
}

func TestShoutoutsAcceptsArrayAndEnvelope(t *testing.T) {
	var envelope atomic.Bool
	_, srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Sales", r.URL.Query().Get("department"))
		items := []map[string]any{{"id": 1, "message": "Great job", "reactions": []any{}}}
		if envelope.Load() {
			writeJSON(w, http.StatusOK, map[string]any{"items": items, "next_cursor": "abc"})
			return
		}
		writeJSON(w, http.StatusOK, items)
	})
	c := authedClient(srv.URL)

	page, err := c.Shoutouts(context.Background(), ShoutoutFilter{Department: "Sales"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Great job", page.Items[0].Message)
	assert.Empty(t, page.NextCursor)

	envelope.Store(true)
	page, err = c.Shoutouts(context.Background(), ShoutoutFilter{Department: "Sales"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "abc", page.NextCursor)
}

func TestCreateShoutoutWithMediaUsesMultipart(t *testing.T) {
	_, srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "Shipped", r.FormValue("message"))
		assert.Equal(t, "2,3", r.FormValue("recipient_ids"))
		assert.Equal(t, "launch,team", r.FormValue("tags"))
		f, fh, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "party.png", fh.Filename)
		assert.Equal(t, "png-bytes", string(data))
		writeJSON(w, http.StatusCreated, map[string]any{"id": 11, "message": "Shipped", "image_url": "http://media/x.png"})
	})
	c := authedClient(srv.URL)

	created, err := c.CreateShoutout(context.Background(), NewShoutout{
		Message:      "Shipped",
		Tags:         []string{"launch", "team"},
		RecipientIDs: []int64{2, 3},
		Media:        &Upload{Filename: "party.png", Content: strings.NewReader("png-bytes")},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 11, created.ID)
	assert.Equal(t, "http://media/x.png", created.ImageURL)
}

func TestReactToleratesEmptyBody(t *testing.T) {
	var withBody atomic.Bool
	_, srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		if withBody.Load() {
			writeJSON(w, http.StatusOK, map[string]any{"id": 1, "reactions": []map[string]any{{"id": 5, "type": "like"}}})
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	c := authedClient(srv.URL)

	item, err := c.React(context.Background(), 1, domain.ReactionLike)
	require.NoError(t, err)
	assert.Nil(t, item)

	withBody.Store(true)
	item, err = c.React(context.Background(), 1, domain.ReactionLike)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Len(t, item.Reactions, 1)
}

func TestExportCopiesCSV(t *testing.T) {
	fs, srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = io.WriteString(w, "id,name\n1,Alice\n")
	})
	c := authedClient(srv.URL)

	var buf bytes.Buffer
	n, err := c.Export(context.Background(), "users", &buf)
	require.NoError(t, err)
	assert.EqualValues(t, buf.Len(), n)
	assert.Equal(t, "id,name\n1,Alice\n", buf.String())
	assert.Equal(t, "/admin/reports/export/users", fs.last().path)
}

func TestWebSocketURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:8080/ws/notifications", NewClient("http://localhost:8080/", session.New()).WebSocketURL())
	assert.Equal(t, "wss://board.example.com/ws/notifications", NewClient("https://board.example.com", session.New()).WebSocketURL())
}
