// Package session holds the bearer token of a board client process and
// broadcasts its invalidation to every component that uses it.
package session

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"bragboard/server/board/domain"
	commonlog "bragboard/server/common/log"
)

const (
	ReasonLogout       = "logout"
	ReasonUnauthorized = "unauthorized"
)

type Session struct {
	mu          sync.RWMutex
	token       string
	user        domain.User
	done        chan struct{}
	invalidated bool
	reason      string
	nextSub     int
	subs        map[int]func(reason string)
	tokenFile   string
}

func New() *Session {
	return &Session{done: make(chan struct{}), subs: map[int]func(string){}}
}

// NewWithTokenFile restores a token saved by an earlier process. The file is
// rewritten on Set and removed on Invalidate.
func NewWithTokenFile(path string) (*Session, error) {
	s := New()
	s.tokenFile = strings.TrimSpace(path)
	if s.tokenFile == "" {
		return s, nil
	}
	raw, err := os.ReadFile(s.tokenFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, err
	}
	s.token = strings.TrimSpace(string(raw))
	return s, nil
}

// Set starts a new session lifecycle. A previously closed Done channel is
// replaced so listeners of the new lifecycle can wait again.
func (s *Session) Set(token string, user domain.User) {
	s.mu.Lock()
	s.token = token
	s.user = user
	if s.invalidated {
		s.done = make(chan struct{})
		s.invalidated = false
		s.reason = ""
	}
	path := s.tokenFile
	s.mu.Unlock()

	if path != "" {
		if err := writeTokenFile(path, token); err != nil {
			commonlog.Warnf("event=session action=persist status=failed path=%s error=%v", path, err)
		}
	}
}

func (s *Session) SetUser(user domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}

func (s *Session) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

func (s *Session) User() domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Done is closed when the current lifecycle is invalidated.
func (s *Session) Done() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.done
}

func (s *Session) Reason() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reason
}

// OnInvalidate registers fn for every future invalidation. The returned
// func removes it.
func (s *Session) OnInvalidate(fn func(reason string)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Invalidate drops the token and notifies subscribers. Only the first call
// per lifecycle has an effect; it reports whether this call was that one.
func (s *Session) Invalidate(reason string) bool {
	s.mu.Lock()
	if s.invalidated {
		s.mu.Unlock()
		return false
	}
	s.invalidated = true
	s.reason = reason
	s.token = ""
	s.user = domain.User{}
	close(s.done)
	subs := make([]func(string), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	path := s.tokenFile
	s.mu.Unlock()

	if path != "" {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			commonlog.Warnf("event=session action=forget status=failed path=%s error=%v", path, err)
		}
	}
	commonlog.Infof("event=session action=invalidate status=ok reason=%s subscriber_count=%d", reason, len(subs))
	for _, fn := range subs {
		fn(reason)
	}
	return true
}

func writeTokenFile(path, token string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(token+"\n"), 0o600)
}
