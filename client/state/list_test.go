package state

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID    int64
	Title string
}

func itemKey(it item) int64 { return it.ID }

func fixed(items ...item) FetchFunc[item] {
	return func(context.Context) ([]item, error) { return items, nil }
}

func failing(err error) FetchFunc[item] {
	return func(context.Context) ([]item, error) { return nil, err }
}

func TestFetchTransitions(t *testing.T) {
	l := NewList(itemKey)
	assert.Equal(t, StatusIdle, l.Snapshot().Status)

	var seen []Status
	l.Subscribe(func(s Snapshot[item]) { seen = append(seen, s.Status) })

	require.NoError(t, l.Fetch(context.Background(), fixed(item{ID: 1})))

	snap := l.Snapshot()
	assert.Equal(t, StatusLoaded, snap.Status)
	assert.Equal(t, []item{{ID: 1}}, snap.Items)
	assert.Equal(t, []Status{StatusLoading, StatusLoaded}, seen)
}

func TestFailedFetchKeepsPreviousItems(t *testing.T) {
	l := NewList(itemKey)
	require.NoError(t, l.Fetch(context.Background(), fixed(item{ID: 1, Title: "Engineering win"})))

	boom := errors.New("status 500")
	err := l.Fetch(context.Background(), failing(boom))

	require.ErrorIs(t, err, boom)
	snap := l.Snapshot()
	assert.Equal(t, StatusError, snap.Status)
	assert.Equal(t, boom, snap.Err)
	assert.Equal(t, []item{{ID: 1, Title: "Engineering win"}}, snap.Items)

	require.NoError(t, l.Fetch(context.Background(), fixed(item{ID: 2})))
	assert.NoError(t, l.Snapshot().Err)
}

func TestSlowStaleFetchIsDropped(t *testing.T) {
	l := NewList(itemKey)
	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- l.Fetch(context.Background(), func(context.Context) ([]item, error) {
			close(started)
			<-release
			return []item{{ID: 1, Title: "old"}}, nil
		})
	}()
	<-started

	require.NoError(t, l.Fetch(context.Background(), fixed(item{ID: 1, Title: "new"})))
	close(release)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.Equal(t, "new", l.Snapshot().Items[0].Title)
	assert.Equal(t, StatusLoaded, l.Snapshot().Status)
}

func TestPageCommitsOnlyWhenApplied(t *testing.T) {
	l := NewList(itemKey)
	cursor := ""
	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- l.FetchPage(context.Background(), func(context.Context) (Page[item], error) {
			close(started)
			<-release
			return Page[item]{Items: []item{{ID: 1, Title: "old"}}, Commit: func() { cursor = "old-next" }}, nil
		})
	}()
	<-started

	require.NoError(t, l.FetchPage(context.Background(), func(context.Context) (Page[item], error) {
		return Page[item]{Items: []item{{ID: 2, Title: "new"}}, Commit: func() { cursor = "" }}, nil
	}))
	close(release)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.Empty(t, cursor)

	committed := false
	err := l.FetchPage(context.Background(), func(context.Context) (Page[item], error) {
		return Page[item]{Commit: func() { committed = true }}, errors.New("boom")
	})
	require.Error(t, err)
	assert.False(t, committed)
	assert.Equal(t, "new", l.Snapshot().Items[0].Title)
}

func TestFetchIssuedBeforePatchIsDropped(t *testing.T) {
	l := NewList(itemKey)
	require.NoError(t, l.Fetch(context.Background(), fixed(item{ID: 1})))

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- l.Fetch(context.Background(), func(context.Context) ([]item, error) {
			close(started)
			<-release
			return []item{{ID: 1}}, nil
		})
	}()
	<-started

	assert.True(t, l.Apply(Prepend(item{ID: 2, Title: "posted"})))
	close(release)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	snap := l.Snapshot()
	assert.Equal(t, StatusLoaded, snap.Status)
	assert.Equal(t, []item{{ID: 2, Title: "posted"}, {ID: 1}}, snap.Items)
}

func TestInsertRunsHookOnlyForNewKeys(t *testing.T) {
	l := NewList(itemKey)
	require.NoError(t, l.Fetch(context.Background(), fixed(item{ID: 7, Title: "polled"})))

	hooks := 0
	assert.False(t, l.Insert(item{ID: 7, Title: "pushed"}, func() { hooks++ }))
	assert.True(t, l.Insert(item{ID: 8}, func() { hooks++ }))

	assert.Equal(t, 1, hooks)
	assert.Equal(t, []item{{ID: 8}, {ID: 7, Title: "pushed"}}, l.Snapshot().Items)
}

func TestBumpAndUnsubscribe(t *testing.T) {
	l := NewList(itemKey)
	calls := 0
	cancel := l.Subscribe(func(Snapshot[item]) { calls++ })

	assert.EqualValues(t, 1, l.Bump())
	cancel()
	assert.EqualValues(t, 2, l.Bump())

	assert.Equal(t, 1, calls)
	assert.EqualValues(t, 2, l.Snapshot().Refresh)
}

func TestReduce(t *testing.T) {
	base := []item{{ID: 1, Title: "a"}, {ID: 2, Title: "b"}}

	cases := []struct {
		name    string
		action  Action[item]
		want    []item
		changed bool
	}{
		{"upsert existing", Upsert(item{ID: 2, Title: "B"}), []item{{ID: 1, Title: "a"}, {ID: 2, Title: "B"}}, true},
		{"upsert new", Upsert(item{ID: 3, Title: "c"}), []item{{ID: 3, Title: "c"}, {ID: 1, Title: "a"}, {ID: 2, Title: "b"}}, true},
		{"prepend moves", Prepend(item{ID: 2, Title: "b2"}), []item{{ID: 2, Title: "b2"}, {ID: 1, Title: "a"}}, true},
		{"remove", Remove[item](1), []item{{ID: 2, Title: "b"}}, true},
		{"remove missing", Remove[item](9), base, false},
		{"patch", Patch(1, func(it *item) { it.Title = "patched" }), []item{{ID: 1, Title: "patched"}, {ID: 2, Title: "b"}}, true},
		{"patch missing", Patch(9, func(it *item) { it.Title = "x" }), base, false},
		{"replace", Replace([]item{{ID: 7}}), []item{{ID: 7}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, changed := reduce(base, itemKey, tc.action)
			assert.Equal(t, tc.changed, changed)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, []item{{ID: 1, Title: "a"}, {ID: 2, Title: "b"}}, base)
		})
	}
}
