package feed

import (
	"context"
	"sync"
	"time"

	"bragboard/client/session"
	commonlog "bragboard/server/common/log"
)

const DefaultPollInterval = 30 * time.Second

// Poller calls fn on a fixed interval until Stop, the Start context ends, or
// the session is invalidated. There is no backoff: a failed tick is logged
// and the next one runs on schedule.
type Poller struct {
	name     string
	interval time.Duration
	fn       func(ctx context.Context) error
	session  *session.Session

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

func NewPoller(name string, interval time.Duration, sess *session.Session, fn func(ctx context.Context) error) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{name: name, interval: interval, fn: fn, session: sess}
}

func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Start launches the loop. It returns false when the poller already runs.
func (p *Poller) Start(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return false
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.stopped = make(chan struct{})
	var invalidated <-chan struct{}
	if p.session != nil {
		invalidated = p.session.Done()
	}
	go p.loop(runCtx, invalidated, p.stopped)
	commonlog.Debugf("event=poller action=start status=ok name=%s interval=%s", p.name, p.interval)
	return true
}

// Stop cancels the loop and waits until it has returned, including any tick
// in progress.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, stopped := p.cancel, p.stopped
	p.cancel = nil
	p.stopped = nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-stopped
	commonlog.Debugf("event=poller action=stop status=ok name=%s", p.name)
}

func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Poller) loop(ctx context.Context, invalidated <-chan struct{}, stopped chan struct{}) {
	defer close(stopped)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.detach(stopped)
			return
		case <-invalidated:
			commonlog.Infof("event=poller action=stop status=ok name=%s reason=session_invalidated", p.name)
			p.detach(stopped)
			return
		case <-ticker.C:
			if err := p.fn(ctx); err != nil && ctx.Err() == nil {
				commonlog.Warnf("event=poller action=tick status=failed name=%s error=%v", p.name, err)
			}
		}
	}
}

// detach clears the running state when the loop ends on its own so a later
// Start can launch a fresh loop.
func (p *Poller) detach(stopped chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped == stopped {
		p.cancel()
		p.cancel = nil
		p.stopped = nil
	}
}
