package feed

import (
	"context"
	"net/http"
	"sync"

	"bragboard/client/api"
	commonlog "bragboard/server/common/log"
)

// actionTracker hands every repeat of an in-flight user action the same
// Idempotency-Key, so a double click reaches the server as one request and
// one replay it rejects.
type actionTracker struct {
	mu      sync.Mutex
	pending map[string]*sharedAction
}

type sharedAction struct {
	key   string
	peers int
	done  chan struct{}
	ok    bool
	val   any
	err   error
}

func (t *actionTracker) join(op string, mint func() string) *sharedAction {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending == nil {
		t.pending = map[string]*sharedAction{}
	}
	a, ok := t.pending[op]
	if !ok {
		a = &sharedAction{key: mint(), done: make(chan struct{})}
		t.pending[op] = a
	}
	a.peers++
	return a
}

// leave records one peer's outcome. The first success resolves the action;
// when the last peer leaves without one, the action resolves with its error.
func (t *actionTracker) leave(op string, a *sharedAction, val any, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	a.peers--
	if err == nil && !a.ok {
		a.ok = true
		a.val = val
		close(a.done)
	}
	if a.peers > 0 {
		return
	}
	if t.pending[op] == a {
		delete(t.pending, op)
	}
	if !a.ok {
		a.err = err
		close(a.done)
	}
}

// runOnce sends call under the shared key for op. applied is true for a
// caller whose own request went through; a caller whose replay the server
// rejected waits for the peer that got through and returns its result.
func runOnce[T any](ctx context.Context, t *actionTracker, c *api.Client, op string, call func(ctx context.Context) (T, error)) (val T, applied bool, err error) {
	a := t.join(op, c.NewIdempotencyKey)
	val, err = call(api.WithIdempotencyKey(ctx, a.key))
	t.leave(op, a, val, err)
	if err == nil || !api.IsStatus(err, http.StatusConflict) {
		return val, err == nil, err
	}

	commonlog.Debugf("event=feed action=dedupe status=waiting op=%s", op)
	select {
	case <-a.done:
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	}
	if !a.ok {
		var zero T
		return zero, false, a.err
	}
	shared, _ := a.val.(T)
	return shared, false, nil
}
