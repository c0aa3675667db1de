// Package state keeps client-side copies of server lists. A List moves
// Idle -> Loading -> Loaded|Error and back to Loading on every fetch.
package state

import (
	"context"
	"errors"
	"sync"
)

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusLoaded
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// ErrSuperseded is returned by Fetch when its result arrived after a newer
// fetch result or a local patch and was dropped.
var ErrSuperseded = errors.New("fetch superseded")

type FetchFunc[T any] func(ctx context.Context) ([]T, error)

// Page is a fetch result with metadata that belongs to it, such as a next
// cursor. Commit runs under the list lock only when the items are applied,
// so it must not call back into the List.
type Page[T any] struct {
	Items  []T
	Commit func()
}

type PageFunc[T any] func(ctx context.Context) (Page[T], error)

type Snapshot[T any] struct {
	Status  Status
	Items   []T
	Err     error
	Refresh uint64
	Version uint64
}

type List[T any] struct {
	mu      sync.Mutex
	key     func(T) int64
	status  Status
	items   []T
	err     error
	issued  uint64
	barrier uint64
	refresh uint64
	version uint64
	nextSub int
	subs    map[int]func(Snapshot[T])
}

// NewList identifies items by key for reducer actions.
func NewList[T any](key func(T) int64) *List[T] {
	return &List[T]{key: key, subs: map[int]func(Snapshot[T]){}}
}

func (l *List[T]) Snapshot() Snapshot[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *List[T]) snapshotLocked() Snapshot[T] {
	items := make([]T, len(l.items))
	copy(items, l.items)
	return Snapshot[T]{Status: l.status, Items: items, Err: l.err, Refresh: l.refresh, Version: l.version}
}

// Fetch runs fn and stores its result. Results are applied in issue order:
// a response older than one already applied, or older than the last local
// patch, is dropped with ErrSuperseded. A failed fetch keeps the previous
// items and records the error.
func (l *List[T]) Fetch(ctx context.Context, fn FetchFunc[T]) error {
	return l.FetchPage(ctx, func(ctx context.Context) (Page[T], error) {
		items, err := fn(ctx)
		return Page[T]{Items: items}, err
	})
}

// FetchPage is Fetch for results that carry metadata. A superseded or
// failed page is never committed.
func (l *List[T]) FetchPage(ctx context.Context, fn PageFunc[T]) error {
	l.mu.Lock()
	l.issued++
	seq := l.issued
	l.status = StatusLoading
	l.version++
	snap := l.snapshotLocked()
	subs := l.subscribersLocked()
	l.mu.Unlock()
	notify(subs, snap)

	page, err := fn(ctx)

	l.mu.Lock()
	if seq <= l.barrier {
		l.mu.Unlock()
		return ErrSuperseded
	}
	l.barrier = seq
	if err != nil {
		l.status = StatusError
		l.err = err
	} else {
		l.status = StatusLoaded
		l.err = nil
		l.items = append([]T(nil), page.Items...)
		if page.Commit != nil {
			page.Commit()
		}
	}
	l.version++
	snap = l.snapshotLocked()
	subs = l.subscribersLocked()
	l.mu.Unlock()
	notify(subs, snap)
	return err
}

// Apply runs a reducer action on the local copy. Every fetch already in
// flight is superseded so its older view cannot undo the patch.
func (l *List[T]) Apply(a Action[T]) bool {
	l.mu.Lock()
	next, changed := reduce(l.items, l.key, a)
	l.barrier = l.issued
	if changed {
		l.items = next
		if l.status == StatusIdle || l.status == StatusLoading {
			l.status = StatusLoaded
		}
		l.version++
	} else if l.status == StatusLoading {
		l.status = StatusLoaded
		l.version++
		changed = true
	}
	snap := l.snapshotLocked()
	subs := l.subscribersLocked()
	l.mu.Unlock()
	if changed {
		notify(subs, snap)
	}
	return changed
}

// Insert prepends item like a Prepend action. onNew runs under the list lock
// only when no item with the same key was held, so a counter kept beside the
// list moves together with it. Insert reports whether the item was new.
func (l *List[T]) Insert(item T, onNew func()) bool {
	l.mu.Lock()
	id := l.key(item)
	fresh := true
	for _, it := range l.items {
		if l.key(it) == id {
			fresh = false
			break
		}
	}
	l.items, _ = reduce(l.items, l.key, Prepend(item))
	l.barrier = l.issued
	if l.status == StatusIdle || l.status == StatusLoading {
		l.status = StatusLoaded
	}
	l.version++
	if fresh && onNew != nil {
		onNew()
	}
	snap := l.snapshotLocked()
	subs := l.subscribersLocked()
	l.mu.Unlock()
	notify(subs, snap)
	return fresh
}

// Bump increments the refresh counter that owners watch to refetch.
func (l *List[T]) Bump() uint64 {
	l.mu.Lock()
	l.refresh++
	l.version++
	refresh := l.refresh
	snap := l.snapshotLocked()
	subs := l.subscribersLocked()
	l.mu.Unlock()
	notify(subs, snap)
	return refresh
}

// Subscribe calls fn with a snapshot after every change. fn runs on the
// goroutine that made the change and must not block.
func (l *List[T]) Subscribe(fn func(Snapshot[T])) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.subs, id)
	}
}

func (l *List[T]) subscribersLocked() []func(Snapshot[T]) {
	out := make([]func(Snapshot[T]), 0, len(l.subs))
	for _, fn := range l.subs {
		out = append(out, fn)
	}
	return out
}

func notify[T any](subs []func(Snapshot[T]), snap Snapshot[T]) {
	for _, fn := range subs {
		fn(snap)
	}
}
