// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package shareddata

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tochemey/shareddata/errors"
	"github.com/tochemey/shareddata/log"
	"github.com/tochemey/shareddata/observable"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type eventRecorder[K comparable, V any] struct {
	mu     sync.Mutex
	events []Event[K, V]
}

func (r *eventRecorder[K, V]) Handle(event Event[K, V]) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	return nil
}

func (r *eventRecorder[K, V]) snapshot() []Event[K, V] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event[K, V](nil), r.events...)
}

func (r *eventRecorder[K, V]) waitFor(t *testing.T, count int) []Event[K, V] {
	t.Helper()
	require.Eventually(t, func() bool { return len(r.snapshot()) >= count }, 2*time.Second, 5*time.Millisecond)
	return r.snapshot()
}

func (x *TTLMap[K, V]) hasTimer(key K) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	_, ok := x.timers[key]
	return ok
}

func (x *TTLMap[K, V]) timerGeneration(key K) uint64 {
	x.mu.Lock()
	defer x.mu.Unlock()
	if entry, ok := x.timers[key]; ok {
		return entry.generation
	}
	return 0
}

func newTestTTLMap(t *testing.T, opts ...TTLMapOption) (*TTLMap[string, string], *eventRecorder[string, string]) {
	t.Helper()
	opts = append([]TTLMapOption{WithMapLogger(log.DiscardLogger)}, opts...)
	m, err := NewTTLMap[string, string]("test", opts...)
	require.NoError(t, err)
	rec := new(eventRecorder[string, string])
	m.AddListener(rec)
	return m, rec
}

func TestResolveTTL(t *testing.T) {
	testCases := []struct {
		name       string
		ttl        time.Duration
		defaultTTL time.Duration
		expected   time.Duration
	}{
		{name: "zero never expires", ttl: 0, defaultTTL: time.Second, expected: 0},
		{name: "negative uses the default", ttl: -1, defaultTTL: time.Second, expected: time.Second},
		{name: "negative with zero default", ttl: -time.Hour, defaultTTL: 0, expected: 0},
		{name: "sub millisecond rounds up", ttl: time.Nanosecond, expected: time.Millisecond},
		{name: "whole milliseconds are kept", ttl: 50 * time.Millisecond, expected: 50 * time.Millisecond},
		{name: "fractions are truncated", ttl: 1500 * time.Microsecond, expected: time.Millisecond},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ResolveTTL(tc.ttl, tc.defaultTTL))
		})
	}
}

func TestNewTTLMap(t *testing.T) {
	t.Run("With negative default TTL", func(t *testing.T) {
		m, err := NewTTLMap[string, int]("test", WithDefaultTTL(-time.Second))
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrInvalidTTL)
		assert.Nil(t, m)
	})
	t.Run("With empty name", func(t *testing.T) {
		_, err := NewTTLMap[string, int]("")
		assert.ErrorIs(t, err, errors.ErrInvalidName)
	})
	t.Run("With SetDefaultTTL", func(t *testing.T) {
		m, _ := newTestTTLMap(t, WithDefaultTTL(time.Minute))
		defer m.Close()

		assert.Equal(t, time.Minute, m.DefaultTTL())
		err := m.SetDefaultTTL(-time.Millisecond)
		assert.ErrorIs(t, err, errors.ErrInvalidTTL)
		assert.Equal(t, time.Minute, m.DefaultTTL())

		require.NoError(t, m.SetDefaultTTL(0))
		assert.Zero(t, m.DefaultTTL())
	})
}

func TestTTLMapExpiry(t *testing.T) {
	t.Run("With entries added then expired", func(t *testing.T) {
		m, rec := newTestTTLMap(t)
		defer m.Close()

		m.Put("a", "1")
		assert.False(t, m.hasTimer("a"))

		m.PutWithTTL("b", "2", 50*time.Millisecond)
		assert.True(t, m.hasTimer("b"))

		require.Eventually(t, func() bool { return !m.ContainsKey("b") }, time.Second, 5*time.Millisecond)
		assert.True(t, m.ContainsKey("a"))

		events := rec.waitFor(t, 3)
		require.Len(t, events, 3)
		assert.Equal(t, NewEntryAdded("a", "1"), events[0])
		assert.Equal(t, NewEntryAdded("b", "2"), events[1])
		assert.Equal(t, NewEntryExpired("b", "2"), events[2])
		assert.False(t, m.hasTimer("b"))
	})
	t.Run("With infinite TTL overriding a finite one", func(t *testing.T) {
		m, _ := newTestTTLMap(t)
		defer m.Close()

		m.PutWithTTL("k", "v", 100*time.Millisecond)
		m.PutWithTTL("k", "v", 0)
		assert.False(t, m.hasTimer("k"))

		time.Sleep(200 * time.Millisecond)
		assert.True(t, m.ContainsKey("k"))
	})
	t.Run("With one nanosecond TTL", func(t *testing.T) {
		m, rec := newTestTTLMap(t)
		defer m.Close()

		m.PutWithTTL("k", "v", time.Nanosecond)
		events := rec.waitFor(t, 2)
		assert.Equal(t, NewEntryExpired("k", "v"), events[1])
		assert.False(t, m.ContainsKey("k"))
	})
	t.Run("With removal before expiry", func(t *testing.T) {
		m, rec := newTestTTLMap(t)
		defer m.Close()

		m.PutWithTTL("k", "v", 50*time.Millisecond)
		old, ok := m.Remove("k")
		require.True(t, ok)
		assert.Equal(t, "v", old)
		assert.False(t, m.hasTimer("k"))

		time.Sleep(120 * time.Millisecond)
		events := rec.waitFor(t, 2)
		require.Len(t, events, 2)
		assert.Equal(t, NewEntryRemoved("k", "v"), events[1])
	})
	t.Run("With default TTL", func(t *testing.T) {
		m, rec := newTestTTLMap(t, WithDefaultTTL(30*time.Millisecond))
		defer m.Close()

		m.Put("k", "v")
		events := rec.waitFor(t, 2)
		assert.Equal(t, Expired, events[1].Kind())
	})
	t.Run("With rescheduling on update", func(t *testing.T) {
		m, rec := newTestTTLMap(t)
		defer m.Close()

		m.PutWithTTL("k", "v1", 40*time.Millisecond)
		time.Sleep(20 * time.Millisecond)
		m.PutWithTTL("k", "v2", 200*time.Millisecond)
		time.Sleep(60 * time.Millisecond)

		value, ok := m.Get("k")
		require.True(t, ok)
		assert.Equal(t, "v2", value)

		events := rec.waitFor(t, 3)
		assert.Equal(t, NewEntryUpdated("k", "v1", "v2"), events[1])
		assert.Equal(t, NewEntryExpired("k", "v2"), events[2])
	})
	t.Run("With putIfAbsent keeping the existing timer", func(t *testing.T) {
		m, _ := newTestTTLMap(t)
		defer m.Close()

		m.PutWithTTL("k", "v", 0)
		current, loaded := m.PutIfAbsentWithTTL("k", "other", 10*time.Millisecond)
		require.True(t, loaded)
		assert.Equal(t, "v", current)
		assert.False(t, m.hasTimer("k"))

		_, loaded = m.PutIfAbsentWithTTL("n", "v", time.Minute)
		assert.False(t, loaded)
		assert.True(t, m.hasTimer("n"))
	})
	t.Run("With compound operations", func(t *testing.T) {
		m, _ := newTestTTLMap(t, WithDefaultTTL(time.Minute))
		defer m.Close()

		m.PutAll(map[string]string{"a": "1", "b": "2", "c": "3"})
		assert.True(t, m.hasTimer("a"))

		_, ok := m.Compute("a", func(string, string, bool) (string, bool) { return "", false })
		assert.False(t, ok)
		assert.False(t, m.hasTimer("a"))

		value, ok := m.Merge("b", "x", func(old, value string) (string, bool) { return old + value, true })
		require.True(t, ok)
		assert.Equal(t, "2x", value)
		assert.True(t, m.hasTimer("b"))

		m.Clear()
		assert.Zero(t, m.Len())
		assert.False(t, m.hasTimer("b"))
		assert.False(t, m.hasTimer("c"))
	})
	t.Run("With close stopping the timers", func(t *testing.T) {
		m, _ := newTestTTLMap(t)
		m.PutWithTTL("k", "v", 20*time.Millisecond)
		m.Close()

		time.Sleep(50 * time.Millisecond)
		assert.True(t, m.ContainsKey("k"))
	})
}

func TestTTLMapListeners(t *testing.T) {
	t.Run("With listener removed", func(t *testing.T) {
		m, err := NewTTLMap[string, int]("test", WithMapLogger(log.DiscardLogger))
		require.NoError(t, err)
		defer m.Close()

		rec := new(eventRecorder[string, int])
		id := m.AddListener(rec)
		m.Put("a", 1)
		rec.waitFor(t, 1)

		m.RemoveListener(id)
		m.RemoveListener("unknown")
		m.Put("b", 2)
		time.Sleep(20 * time.Millisecond)
		assert.Len(t, rec.snapshot(), 1)
	})
	t.Run("With failing listener", func(t *testing.T) {
		m, err := NewTTLMap[string, int]("test", WithMapLogger(log.DiscardLogger))
		require.NoError(t, err)
		defer m.Close()

		m.AddListener(EventHandlerFunc[string, int](func(Event[string, int]) error {
			return assert.AnError
		}))
		rec := new(eventRecorder[string, int])
		m.AddListener(rec)

		m.Put("a", 1)
		m.Put("a", 1)
		m.Put("a", 2)
		events := rec.waitFor(t, 2)
		require.Len(t, events, 2)
		assert.Equal(t, Updated, events[1].Kind())
	})
	t.Run("With close requested by a handler", func(t *testing.T) {
		m, err := NewTTLMap[string, int]("test", WithMapLogger(log.DiscardLogger))
		require.NoError(t, err)
		defer m.Close()

		closed := make(chan struct{})
		var once sync.Once
		m.AddListener(EventHandlerFunc[string, int](func(Event[string, int]) error {
			once.Do(func() {
				go func() {
					m.Close()
					close(closed)
				}()
			})
			return nil
		}))

		m.Put("a", 1)
		select {
		case <-closed:
		case <-time.After(2 * time.Second):
			require.Fail(t, "map not closed")
		}

		_, ok := m.Put("b", 2)
		assert.False(t, ok)
		assert.Equal(t, 2, m.Len())
	})
	t.Run("With expiry seen by observable listeners", func(t *testing.T) {
		m, err := NewTTLMap[string, int]("test", WithMapLogger(log.DiscardLogger))
		require.NoError(t, err)
		defer m.Close()

		var (
			mu      sync.Mutex
			evicted []bool
		)
		m.entries.AddListener(nil, observable.ListenerFunc[string, int](func(event observable.ListenEvent[string, int]) error {
			if _, ok := event.NewValue(); !ok {
				mu.Lock()
				evicted = append(evicted, event.Evicted())
				mu.Unlock()
			}
			return nil
		}))
		rec := new(eventRecorder[string, int])
		m.AddListener(rec)

		m.PutWithTTL("a", 1, 10*time.Millisecond)
		m.Put("b", 2)
		m.Remove("b")

		events := rec.waitFor(t, 4)
		kinds := make(map[string][]EventKind)
		for _, event := range events {
			kinds[event.Key()] = append(kinds[event.Key()], event.Kind())
		}
		assert.Equal(t, []EventKind{Added, Expired}, kinds["a"])
		assert.Equal(t, []EventKind{Added, Removed}, kinds["b"])

		require.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(evicted) == 2
		}, 2*time.Second, 5*time.Millisecond)
		mu.Lock()
		assert.ElementsMatch(t, []bool{true, false}, evicted)
		mu.Unlock()
	})
}

func TestTTLMapViews(t *testing.T) {
	m, rec := newTestTTLMap(t, WithDefaultTTL(time.Minute))
	defer m.Close()

	m.PutAll(map[string]string{"a": "1", "b": "2", "c": "3"})

	keys := m.KeySet()
	assert.Equal(t, 3, keys.Len())
	assert.True(t, keys.Remove("a"))
	assert.False(t, m.hasTimer("a"))

	values := m.ValueCollection()
	assert.True(t, values.Contains("2"))
	assert.True(t, values.Remove("2"))
	assert.False(t, m.hasTimer("b"))

	entries := m.Entries()
	assert.True(t, entries.Add(Entry[string, string]{Key: "d", Value: "4"}))
	assert.True(t, m.hasTimer("d"))

	it := entries.Iterator()
	for it.Next() {
		if it.Key() == "c" {
			_, ok := it.SetValue("30")
			assert.True(t, ok)
		}
	}
	value, _ := m.Get("c")
	assert.Equal(t, "30", value)

	remaining := m.Keys()
	sort.Strings(remaining)
	assert.Equal(t, []string{"c", "d"}, remaining)

	rec.waitFor(t, 7)
}

func TestTTLEntrySetAddAll(t *testing.T) {
	m, _ := newTestTTLMap(t, WithDefaultTTL(time.Minute))
	defer m.Close()

	m.Put("a", "1")
	generation := m.timerGeneration("a")
	require.NotZero(t, generation)

	entries := m.Entries()
	assert.True(t, entries.AddAll(
		Entry[string, string]{Key: "a", Value: "1"},
		Entry[string, string]{Key: "b", Value: "2"}))
	assert.Equal(t, generation, m.timerGeneration("a"))
	assert.True(t, m.hasTimer("b"))

	assert.False(t, entries.AddAll(Entry[string, string]{Key: "a", Value: "1"}))
	assert.False(t, entries.Add(Entry[string, string]{Key: "b", Value: "2"}))
	assert.Equal(t, generation, m.timerGeneration("a"))

	assert.True(t, entries.AddAll(Entry[string, string]{Key: "a", Value: "10"}))
	assert.Greater(t, m.timerGeneration("a"), generation)
}
