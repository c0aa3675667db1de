package session

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bragboard/server/board/domain"
)

func TestInvalidateBroadcastsOnce(t *testing.T) {
	s := New()
	s.Set("tok", domain.User{ID: 7})

	var calls atomic.Int32
	s.OnInvalidate(func(reason string) {
		assert.Equal(t, ReasonUnauthorized, reason)
		calls.Add(1)
	})
	done := s.Done()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Invalidate(ReasonUnauthorized)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	select {
	case <-done:
	default:
		t.Fatal("done channel not closed")
	}
	_, ok := s.Token()
	assert.False(t, ok)
	assert.Equal(t, ReasonUnauthorized, s.Reason())
}

func TestSetAfterInvalidateStartsNewLifecycle(t *testing.T) {
	s := New()
	s.Set("first", domain.User{ID: 1})
	first := s.Done()
	require.True(t, s.Invalidate(ReasonLogout))

	s.Set("second", domain.User{ID: 1})
	second := s.Done()
	assert.NotEqual(t, first, second)
	select {
	case <-second:
		t.Fatal("new lifecycle already closed")
	default:
	}
	token, ok := s.Token()
	assert.True(t, ok)
	assert.Equal(t, "second", token)
	assert.True(t, s.Invalidate(ReasonLogout))
}

func TestUnsubscribeStopsCallbacks(t *testing.T) {
	s := New()
	called := false
	cancel := s.OnInvalidate(func(string) { called = true })
	cancel()
	s.Invalidate(ReasonLogout)
	assert.False(t, called)
}

func TestTokenFilePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")

	s, err := NewWithTokenFile(path)
	require.NoError(t, err)
	_, ok := s.Token()
	assert.False(t, ok)

	s.Set("persisted", domain.User{ID: 3})
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	restored, err := NewWithTokenFile(path)
	require.NoError(t, err)
	token, ok := restored.Token()
	assert.True(t, ok)
	assert.Equal(t, "persisted", token)

	restored.Invalidate(ReasonLogout)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
