package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"bragboard/client/session"
	commonlog "bragboard/server/common/log"
)

const DefaultReconnectDelay = 5 * time.Second

// PushEvent is one frame from the notification socket.
type PushEvent struct {
	Type       string          `json:"type"`
	ShoutoutID int64           `json:"shoutout_id,omitempty"`
	ActorID    int64           `json:"actor_id,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

type PushConfig struct {
	URL            string
	Header         func() http.Header
	Session        *session.Session
	ReconnectDelay time.Duration
	// Fallback runs while the socket is down.
	Fallback *Poller
	OnEvent  func(ctx context.Context, ev PushEvent)
	Dialer   *websocket.Dialer
}

// PushListener keeps a notification socket open. When the socket drops it
// starts the fallback poller, waits ReconnectDelay, and dials again.
type PushListener struct {
	cfg PushConfig
}

func NewPushListener(cfg PushConfig) *PushListener {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.Dialer == nil {
		cfg.Dialer = &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	}
	if cfg.Header == nil {
		cfg.Header = func() http.Header { return http.Header{} }
	}
	return &PushListener{cfg: cfg}
}

// Run blocks until ctx ends or the session is invalidated. The fallback
// poller is stopped before Run returns.
func (l *PushListener) Run(ctx context.Context) error {
	var invalidated <-chan struct{}
	if l.cfg.Session != nil {
		invalidated = l.cfg.Session.Done()
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-invalidated:
			cancel()
		case <-runCtx.Done():
		}
	}()
	defer l.stopFallback()

	for {
		err := l.serve(runCtx)
		if runCtx.Err() != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		}
		commonlog.Warnf("event=push action=disconnect status=failed url=%s error=%v", l.cfg.URL, err)
		l.startFallback(runCtx)

		timer := time.NewTimer(l.cfg.ReconnectDelay)
		select {
		case <-runCtx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}
}

func (l *PushListener) serve(ctx context.Context) error {
	conn, resp, err := l.cfg.Dialer.DialContext(ctx, l.cfg.URL, l.cfg.Header())
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized && l.cfg.Session != nil {
			l.cfg.Session.Invalidate(session.ReasonUnauthorized)
		}
		return err
	}
	defer conn.Close()
	l.stopFallback()
	commonlog.Infof("event=push action=connect status=ok url=%s", l.cfg.URL)

	closed := make(chan struct{})
	defer close(closed)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = conn.Close()
		case <-closed:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		var ev PushEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			commonlog.Debugf("event=push action=decode status=failed error=%v", err)
			continue
		}
		if ev.Type == "" || ev.Type == "hello" {
			continue
		}
		if l.cfg.OnEvent != nil {
			l.cfg.OnEvent(ctx, ev)
		}
	}
}

func (l *PushListener) startFallback(ctx context.Context) {
	if l.cfg.Fallback != nil && l.cfg.Fallback.Start(ctx) {
		commonlog.Infof("event=push action=fallback status=started interval=%s", l.cfg.Fallback.Interval())
	}
}

func (l *PushListener) stopFallback() {
	if l.cfg.Fallback != nil && l.cfg.Fallback.Running() {
		l.cfg.Fallback.Stop()
	}
}
