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

package observable

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/goleak"

	"github.com/tochemey/shareddata/log"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recorder collects the events delivered to one listener
type recorder[K comparable, V any] struct {
	mu     sync.Mutex
	events []ListenEvent[K, V]
}

func (r *recorder[K, V]) OnEvent(event ListenEvent[K, V]) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	return nil
}

func (r *recorder[K, V]) snapshot() []ListenEvent[K, V] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ListenEvent[K, V](nil), r.events...)
}

func (r *recorder[K, V]) waitFor(t *testing.T, count int) []ListenEvent[K, V] {
	t.Helper()
	require.Eventually(t, func() bool { return len(r.snapshot()) >= count }, 2*time.Second, 5*time.Millisecond)
	return r.snapshot()
}

func added[K comparable, V any](key K, value V) ListenEvent[K, V] {
	return ListenEvent[K, V]{key: key, newValue: value, hasNew: true}
}

func updated[K comparable, V any](key K, old, value V) ListenEvent[K, V] {
	return ListenEvent[K, V]{key: key, oldValue: old, hasOld: true, newValue: value, hasNew: true}
}

func removed[K comparable, V any](key K, old V) ListenEvent[K, V] {
	return ListenEvent[K, V]{key: key, oldValue: old, hasOld: true}
}

func newTestMap[K comparable, V any]() (*Map[K, V], *recorder[K, V]) {
	m := New[K, V](WithName("test"), WithLogger(log.DiscardLogger))
	rec := new(recorder[K, V])
	m.AddListener(nil, rec)
	return m, rec
}

func TestMapOperations(t *testing.T) {
	t.Run("With put get and remove", func(t *testing.T) {
		m, rec := newTestMap[string, int]()
		defer m.Close()

		_, existed := m.Put("a", 1)
		assert.False(t, existed)
		old, existed := m.Put("a", 2)
		assert.True(t, existed)
		assert.Equal(t, 1, old)

		value, ok := m.Get("a")
		require.True(t, ok)
		assert.Equal(t, 2, value)
		assert.True(t, m.ContainsKey("a"))
		assert.True(t, m.ContainsValue(2))
		assert.False(t, m.ContainsValue(1))
		assert.Equal(t, 1, m.Len())

		old, ok = m.Remove("a")
		assert.True(t, ok)
		assert.Equal(t, 2, old)
		_, ok = m.Remove("a")
		assert.False(t, ok)

		events := rec.waitFor(t, 3)
		assert.Equal(t, []ListenEvent[string, int]{
			added("a", 1),
			updated("a", 1, 2),
			removed("a", 2),
		}, events)
	})
	t.Run("With no-op changes suppressed", func(t *testing.T) {
		m, rec := newTestMap[string, []int]()
		defer m.Close()

		m.Put("a", []int{1, 2})
		m.Put("a", []int{1, 2})
		m.Replace("a", []int{1, 2})
		m.PutIfAbsent("a", []int{3})
		m.Compute("a", func(_ string, old []int, _ bool) ([]int, bool) { return old, true })
		m.PutAll(map[string][]int{"a": {1, 2}})
		m.ReplaceAll(func(_ string, v []int) []int { return v })
		m.Remove("missing")
		m.Put("b", []int{9})

		events := rec.waitFor(t, 2)
		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, []ListenEvent[string, []int]{
			added("a", []int{1, 2}),
			added("b", []int{9}),
		}, rec.snapshot())
		assert.Len(t, events, 2)
	})
	t.Run("With conditional operations", func(t *testing.T) {
		m, rec := newTestMap[string, string]()
		defer m.Close()

		_, loaded := m.PutIfAbsent("a", "1")
		assert.False(t, loaded)
		current, loaded := m.PutIfAbsent("a", "2")
		assert.True(t, loaded)
		assert.Equal(t, "1", current)

		_, ok := m.Replace("missing", "x")
		assert.False(t, ok)
		assert.False(t, m.ContainsKey("missing"))

		assert.False(t, m.CompareAndSwap("a", "0", "3"))
		assert.True(t, m.CompareAndSwap("a", "1", "3"))
		assert.False(t, m.CompareAndDelete("a", "1"))
		assert.True(t, m.CompareAndDelete("a", "3"))
		assert.False(t, m.CompareAndSwap("a", "3", "4"))

		events := rec.waitFor(t, 3)
		assert.Equal(t, []ListenEvent[string, string]{
			added("a", "1"),
			updated("a", "1", "3"),
			removed("a", "3"),
		}, events)
	})
	t.Run("With compute family", func(t *testing.T) {
		m, rec := newTestMap[string, int]()
		defer m.Close()

		value, ok := m.Compute("a", func(_ string, old int, loaded bool) (int, bool) {
			assert.False(t, loaded)
			return old + 1, true
		})
		assert.True(t, ok)
		assert.Equal(t, 1, value)

		value, ok = m.ComputeIfAbsent("a", func(string) (int, bool) { return 100, true })
		assert.True(t, ok)
		assert.Equal(t, 1, value)

		_, ok = m.ComputeIfAbsent("b", func(string) (int, bool) { return 0, false })
		assert.False(t, ok)
		assert.False(t, m.ContainsKey("b"))

		value, ok = m.ComputeIfPresent("a", func(_ string, old int) (int, bool) { return old * 10, true })
		assert.True(t, ok)
		assert.Equal(t, 10, value)

		_, ok = m.ComputeIfPresent("missing", func(string, int) (int, bool) { return 1, true })
		assert.False(t, ok)

		value, ok = m.Merge("a", 5, func(old, v int) (int, bool) { return old + v, true })
		assert.True(t, ok)
		assert.Equal(t, 15, value)
		value, ok = m.Merge("c", 7, func(old, v int) (int, bool) { return old + v, true })
		assert.True(t, ok)
		assert.Equal(t, 7, value)

		_, ok = m.Merge("c", 0, func(int, int) (int, bool) { return 0, false })
		assert.False(t, ok)
		_, ok = m.Compute("a", func(string, int, bool) (int, bool) { return 0, false })
		assert.False(t, ok)
		assert.Zero(t, m.Len())

		events := rec.waitFor(t, 6)
		assert.Equal(t, []ListenEvent[string, int]{
			added("a", 1),
			updated("a", 1, 10),
			updated("a", 10, 15),
			added("c", 7),
			removed("c", 7),
			removed("a", 15),
		}, events)
	})
	t.Run("With bulk operations", func(t *testing.T) {
		m, rec := newTestMap[string, int]()
		defer m.Close()

		m.PutAll(map[string]int{"a": 1, "b": 2, "c": 3})
		m.ReplaceAll(func(_ string, v int) int { return v * 2 })
		keys := m.Keys()
		sort.Strings(keys)
		assert.Equal(t, []string{"a", "b", "c"}, keys)
		assert.ElementsMatch(t, []int{2, 4, 6}, m.Values())
		assert.Equal(t, map[string]int{"a": 2, "b": 4, "c": 6}, m.Snapshot())

		m.Clear()
		assert.Zero(t, m.Len())

		events := rec.waitFor(t, 9)
		perKey := make(map[string][]ListenEvent[string, int])
		for _, event := range events {
			perKey[event.Key()] = append(perKey[event.Key()], event)
		}
		assert.Equal(t, []ListenEvent[string, int]{added("b", 2), updated("b", 2, 4), removed("b", 4)}, perKey["b"])
	})
	t.Run("With range calling back into the map", func(t *testing.T) {
		m, _ := newTestMap[string, int]()
		defer m.Close()

		m.PutAll(map[string]int{"a": 1, "b": 2, "c": 3})
		visited := 0
		m.Range(func(key string, _ int) bool {
			m.Remove(key)
			visited++
			return visited < 2
		})
		assert.Equal(t, 2, visited)
		assert.Equal(t, 1, m.Len())
	})
	t.Run("With evict flagged", func(t *testing.T) {
		m, rec := newTestMap[string, int]()
		defer m.Close()

		m.Put("a", 1)
		old, ok := m.Evict("a")
		require.True(t, ok)
		assert.Equal(t, 1, old)
		_, ok = m.Evict("a")
		assert.False(t, ok)

		events := rec.waitFor(t, 2)
		assert.True(t, events[1].Evicted())
		assert.False(t, events[0].Evicted())
		assert.Equal(t, "ListenEvent(key=a, old=1, new=<absent>, evicted=true)", events[1].String())
	})
}

type meterProvider struct {
	metric.MeterProvider
	names []string
}

func (p *meterProvider) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	p.names = append(p.names, name)
	return p.MeterProvider.Meter(name, opts...)
}

func TestMapMeterProvider(t *testing.T) {
	provider := &meterProvider{MeterProvider: noop.NewMeterProvider()}
	m := New[string, int](WithLogger(log.DiscardLogger), WithMeterProvider(provider))
	defer m.Close()
	require.Len(t, provider.names, 1)

	events := new(recorder[string, int])
	m.AddListener(nil, events)
	m.Put("a", 1)
	assert.Equal(t, []ListenEvent[string, int]{added("a", 1)}, events.waitFor(t, 1))
}

func TestMapListeners(t *testing.T) {
	t.Run("With key predicate", func(t *testing.T) {
		m := New[string, int](WithLogger(log.DiscardLogger))
		defer m.Close()

		users := new(recorder[string, int])
		m.AddListener(MatchRegexp(regexp.MustCompile(`^user\.`)), users)
		exact := new(recorder[string, int])
		m.AddListener(MatchKeys("config"), exact)
		require.Equal(t, 2, m.Listeners())

		m.Put("user.1", 1)
		m.Put("order.1", 1)
		m.Put("config", 1)
		m.Put("user.2", 2)

		assert.Equal(t, []ListenEvent[string, int]{added("user.1", 1), added("user.2", 2)}, users.waitFor(t, 2))
		assert.Equal(t, []ListenEvent[string, int]{added("config", 1)}, exact.waitFor(t, 1))
	})
	t.Run("With pattern", func(t *testing.T) {
		predicate, err := MatchPattern(`^a+$`)
		require.NoError(t, err)
		assert.True(t, predicate("aaa"))
		assert.False(t, predicate("ab"))

		_, err = MatchPattern(`(`)
		require.Error(t, err)
	})
	t.Run("With remove listener", func(t *testing.T) {
		m := New[string, int](WithLogger(log.DiscardLogger))
		defer m.Close()

		rec := new(recorder[string, int])
		id := m.AddListener(MatchAll[string](), rec)
		m.Put("a", 1)
		rec.waitFor(t, 1)

		m.RemoveListener(id)
		m.RemoveListener(id)
		m.RemoveListener("unknown")
		assert.Zero(t, m.Listeners())

		m.Put("a", 2)
		time.Sleep(20 * time.Millisecond)
		assert.Len(t, rec.snapshot(), 1)
	})
	t.Run("With failing listener isolated", func(t *testing.T) {
		m := New[string, int](WithLogger(log.DiscardLogger))
		defer m.Close()

		m.AddListener(nil, ListenerFunc[string, int](func(ListenEvent[string, int]) error {
			return errors.New("listener failure")
		}))
		m.AddListener(nil, ListenerFunc[string, int](func(ListenEvent[string, int]) error {
			panic("listener panic")
		}))
		healthy := new(recorder[string, int])
		m.AddListener(nil, healthy)

		for i := 0; i < 100; i++ {
			m.Put(fmt.Sprintf("k%d", i), i)
		}
		assert.Len(t, healthy.waitFor(t, 100), 100)
	})
	t.Run("With per key order under concurrent mutators", func(t *testing.T) {
		m := New[int, int](WithLogger(log.DiscardLogger))
		defer m.Close()

		rec := new(recorder[int, int])
		m.AddListener(nil, rec)

		const writers = 8
		const updates = 200
		var wg sync.WaitGroup
		for w := 0; w < writers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < updates; i++ {
					m.Merge(w%2, 1, func(old, v int) (int, bool) { return old + v, true })
				}
			}(w)
		}
		wg.Wait()

		events := rec.waitFor(t, writers*updates)
		last := map[int]int{0: 0, 1: 0}
		for _, event := range events {
			old, _ := event.OldValue()
			value, ok := event.NewValue()
			require.True(t, ok)
			// each event continues exactly where the previous one of the key stopped
			require.Equal(t, last[event.Key()], old)
			require.Equal(t, old+1, value)
			last[event.Key()] = value
		}
		assert.Equal(t, writers*updates/2, last[0])
		assert.Equal(t, writers*updates/2, last[1])
	})
	t.Run("With custom storage", func(t *testing.T) {
		storage := NewStorage[string, int]()
		m := NewWithStorage(storage, WithLogger(log.DiscardLogger))
		defer m.Close()

		m.Put("a", 1)
		value, ok := storage.Get("a")
		require.True(t, ok)
		assert.Equal(t, 1, value)
		assert.Equal(t, "observable", m.Name())
	})
	t.Run("With close", func(t *testing.T) {
		m := New[string, int](WithLogger(log.DiscardLogger))
		rec := new(recorder[string, int])
		m.AddListener(nil, rec)
		m.Close()

		m.Put("a", 1)
		value, ok := m.Get("a")
		require.True(t, ok)
		assert.Equal(t, 1, value)
		assert.Empty(t, rec.snapshot())
	})
}

type version struct {
	number int
	label  string
}

func (v version) Equal(other version) bool {
	return v.number == other.number
}

func TestMapEqualMethod(t *testing.T) {
	m, rec := newTestMap[string, version]()
	defer m.Close()

	m.Put("a", version{number: 1, label: "first"})
	m.Put("a", version{number: 1, label: "relabelled"})
	m.Put("a", version{number: 2})

	events := rec.waitFor(t, 2)
	time.Sleep(20 * time.Millisecond)
	require.Len(t, rec.snapshot(), 2)
	value, _ := events[1].NewValue()
	assert.Equal(t, 2, value.number)
}
