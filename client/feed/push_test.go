package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bragboard/client/session"
	"bragboard/server/board/domain"
)

type pushServer struct {
	upgrader websocket.Upgrader
	accept   atomic.Bool
	conns    chan *websocket.Conn
}

func newPushServer(t *testing.T) (*pushServer, string) {
	t.Helper()
	ps := &pushServer{conns: make(chan *websocket.Conn, 4)}
	ps.accept.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		if !ps.accept.Load() {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		conn, err := ps.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ps.conns <- conn
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				_ = conn.Close()
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return ps, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func bearer(token string) func() http.Header {
	return func() http.Header {
		h := http.Header{}
		h.Set("Authorization", "Bearer "+token)
		return h
	}
}

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(_ context.Context, ev PushEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev.Type)
}

func (l *eventLog) types() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func TestPushListenerDeliversEventsAndFallsBack(t *testing.T) {
	ps, url := newPushServer(t)
	var polls atomic.Int32
	fallback := NewPoller("notifications", 5*time.Millisecond, nil, func(context.Context) error {
		polls.Add(1)
		return nil
	})
	log := &eventLog{}
	listener := NewPushListener(PushConfig{
		URL:            url,
		Header:         bearer("tok"),
		ReconnectDelay: 20 * time.Millisecond,
		Fallback:       fallback,
		OnEvent:        log.add,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- listener.Run(ctx) }()

	conn := <-ps.conns
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "hello", "payload": map[string]string{"session_id": "s1"}}))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "notification.created", "payload": map[string]any{"id": 9}}))
	require.Eventually(t, func() bool { return len(log.types()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"notification.created"}, log.types())
	assert.False(t, fallback.Running())

	ps.accept.Store(false)
	_ = conn.Close()
	require.Eventually(t, fallback.Running, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return polls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	ps.accept.Store(true)
	<-ps.conns
	require.Eventually(t, func() bool { return !fallback.Running() }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
	assert.False(t, fallback.Running())
}

func TestPushListenerStopsOnSessionInvalidation(t *testing.T) {
	ps, url := newPushServer(t)
	sess := session.New()
	sess.Set("tok", domain.User{ID: 2})
	listener := NewPushListener(PushConfig{URL: url, Header: bearer("tok"), Session: sess, ReconnectDelay: 10 * time.Millisecond})

	done := make(chan error, 1)
	go func() { done <- listener.Run(context.Background()) }()
	<-ps.conns

	sess.Invalidate(session.ReasonLogout)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestPushListenerUnauthorizedInvalidatesSession(t *testing.T) {
	_, url := newPushServer(t)
	sess := session.New()
	sess.Set("expired", domain.User{ID: 2})
	listener := NewPushListener(PushConfig{URL: url, Header: bearer("expired"), Session: sess, ReconnectDelay: 10 * time.Millisecond})

	done := make(chan error, 1)
	go func() { done <- listener.Run(context.Background()) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
	assert.Equal(t, session.ReasonUnauthorized, sess.Reason())
}
