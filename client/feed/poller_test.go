package feed

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bragboard/client/session"
	"bragboard/server/board/domain"
)

func TestPollerTicksAtIntervalAndStops(t *testing.T) {
	var ticks atomic.Int32
	p := NewPoller("notifications", 10*time.Millisecond, nil, func(context.Context) error {
		ticks.Add(1)
		return nil
	})

	require.True(t, p.Start(context.Background()))
	assert.False(t, p.Start(context.Background()))
	require.Eventually(t, func() bool { return ticks.Load() >= 3 }, time.Second, 5*time.Millisecond)

	p.Stop()
	assert.False(t, p.Running())
	after := ticks.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, ticks.Load())
}

func TestPollerDefaultsToThirtySeconds(t *testing.T) {
	p := NewPoller("notifications", 0, nil, func(context.Context) error { return nil })
	assert.Equal(t, 30*time.Second, p.Interval())
}

func TestPollerKeepsTickingAfterErrors(t *testing.T) {
	var ticks atomic.Int32
	p := NewPoller("notifications", 5*time.Millisecond, nil, func(context.Context) error {
		ticks.Add(1)
		return errors.New("status 500")
	})
	p.Start(context.Background())
	defer p.Stop()

	assert.Eventually(t, func() bool { return ticks.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestPollerStopsOnSessionInvalidation(t *testing.T) {
	sess := session.New()
	sess.Set("tok", domain.User{ID: 1})
	p := NewPoller("notifications", 5*time.Millisecond, sess, func(context.Context) error { return nil })
	p.Start(context.Background())

	sess.Invalidate(session.ReasonUnauthorized)

	assert.Eventually(t, func() bool { return !p.Running() }, time.Second, 5*time.Millisecond)
	p.Stop()
}

func TestPollerStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var ticks atomic.Int32
	p := NewPoller("notifications", 5*time.Millisecond, nil, func(context.Context) error {
		ticks.Add(1)
		return nil
	})
	p.Start(ctx)
	cancel()
	p.Stop()

	after := ticks.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, ticks.Load())
}

func TestPollerRestartsAfterContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPoller("feed", time.Hour, nil, func(context.Context) error { return nil })
	require.True(t, p.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool { return !p.Running() }, time.Second, 5*time.Millisecond)
	require.True(t, p.Start(context.Background()))
	assert.True(t, p.Running())
	p.Stop()
	assert.False(t, p.Running())
}
