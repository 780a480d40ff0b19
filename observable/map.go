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
	"reflect"
	"sync"

	"github.com/tochemey/shareddata/internal/eventstream"
	"github.com/tochemey/shareddata/internal/locker"
	"github.com/tochemey/shareddata/internal/metric"
)

// Map is a thread-safe key/value map that notifies key-filtered listeners
// of every change.
//
// All mutations, including the ones made through views and iterators, are
// serialized by a single lock. A mutation applies its change to the
// storage and then emits one ListenEvent per key whose value actually
// changed; setting a key to an equal value emits nothing. Events are
// enqueued while the lock is held, so a listener sees the changes of a key
// in the order they happened, and are handled asynchronously by one worker
// per listener. Reads go straight to the storage.
//
// Values are compared with their Equal(V) bool method when they have one
// and with reflect.DeepEqual otherwise.
type Map[K comparable, V any] struct {
	_       locker.NoCopy
	mu      sync.Mutex
	name    string
	storage Storage[K, V]
	stream  *eventstream.Stream[ListenEvent[K, V]]
}

// New creates a Map on the default storage
func New[K comparable, V any](opts ...Option) *Map[K, V] {
	return NewWithStorage(NewStorage[K, V](), opts...)
}

// NewWithStorage creates a Map on the given storage. The Map owns the
// storage from now on: nothing else may mutate it.
func NewWithStorage[K comparable, V any](storage Storage[K, V], opts ...Option) *Map[K, V] {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return &Map[K, V]{
		name:    cfg.name,
		storage: storage,
		stream: eventstream.New[ListenEvent[K, V]](
			eventstream.WithName(cfg.name),
			eventstream.WithLogger(cfg.logger),
			eventstream.WithRecorder(metric.NewProviderRecorder(cfg.provider)),
		),
	}
}

// Name returns the map name
func (m *Map[K, V]) Name() string {
	return m.name
}

// AddListener registers listener for the future changes of the keys
// accepted by predicate and returns the registration id. A nil predicate
// accepts every key.
func (m *Map[K, V]) AddListener(predicate Predicate[K], listener Listener[K, V]) string {
	if predicate == nil {
		predicate = MatchAll[K]()
	}
	return m.stream.Subscribe(
		func(event ListenEvent[K, V]) bool { return predicate(event.key) },
		listener.OnEvent,
	)
}

// RemoveListener unregisters a listener. Unknown ids are ignored.
func (m *Map[K, V]) RemoveListener(id string) {
	m.stream.Unsubscribe(id)
}

// Listeners returns the number of registered listeners
func (m *Map[K, V]) Listeners() int {
	return m.stream.Len()
}

// Close stops every listener worker and waits for them to return. The map
// remains usable but no longer delivers events.
//
// Close must not be called from a listener: it would wait on the worker
// running that listener. A listener that needs to close the map must do
// so from another goroutine.
func (m *Map[K, V]) Close() {
	m.stream.Close()
}

// Get returns the value stored for key
func (m *Map[K, V]) Get(key K) (V, bool) {
	return m.storage.Get(key)
}

// ContainsKey reports whether key has a value
func (m *Map[K, V]) ContainsKey(key K) bool {
	_, ok := m.storage.Get(key)
	return ok
}

// ContainsValue reports whether at least one key holds value
func (m *Map[K, V]) ContainsValue(value V) bool {
	found := false
	m.storage.Range(func(_ K, v V) {
		if !found && m.equal(v, value) {
			found = true
		}
	})
	return found
}

// Len returns the number of keys
func (m *Map[K, V]) Len() int {
	return m.storage.Len()
}

// Put stores value for key and returns the previous value, if any
func (m *Map[K, V]) Put(key K, value V) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.set(key, value)
}

// PutIfAbsent stores value only when key has no value. It returns the
// existing value and true when key was present, the zero value and false
// otherwise.
func (m *Map[K, V]) PutIfAbsent(key K, value V) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.storage.Get(key); ok {
		return current, true
	}
	m.set(key, value)
	var zero V
	return zero, false
}

// Remove deletes key and returns the removed value, if any
func (m *Map[K, V]) Remove(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.delete(key, false)
}

// Evict deletes key like Remove does, but the emitted event reports
// Evicted() == true. It is the removal path of expiry: an expiring TTL map
// evicts the key, so listeners registered on the observable map itself
// see an expiry as a removal flagged as evicted, ordered with the other
// events of the key. TTL map handlers receive it as EntryExpired instead.
func (m *Map[K, V]) Evict(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.delete(key, true)
}

// CompareAndDelete deletes key only when it currently holds old
func (m *Map[K, V]) CompareAndDelete(key K, old V) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.storage.Get(key); !ok || !m.equal(current, old) {
		return false
	}
	m.delete(key, false)
	return true
}

// Replace stores value only when key already has a value, and returns the
// replaced value.
func (m *Map[K, V]) Replace(key K, value V) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.storage.Get(key); !ok {
		var zero V
		return zero, false
	}
	return m.set(key, value)
}

// CompareAndSwap stores value only when key currently holds old
func (m *Map[K, V]) CompareAndSwap(key K, old, value V) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.storage.Get(key); !ok || !m.equal(current, old) {
		return false
	}
	m.set(key, value)
	return true
}

// Compute calls fn with the current value of key (loaded reports whether
// there is one). When fn returns keep == true the returned value is stored,
// otherwise the key is deleted. Compute returns the value held afterwards.
// fn runs under the map lock and must not call back into the map.
func (m *Map[K, V]) Compute(key K, fn func(key K, old V, loaded bool) (value V, keep bool)) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, loaded := m.storage.Get(key)
	value, keep := fn(key, old, loaded)
	return m.apply(key, value, keep, loaded)
}

// ComputeIfAbsent calls fn only when key has no value and stores its result
// when ok is true. It returns the value held afterwards.
func (m *Map[K, V]) ComputeIfAbsent(key K, fn func(key K) (value V, ok bool)) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.storage.Get(key); ok {
		return current, true
	}
	value, ok := fn(key)
	return m.apply(key, value, ok, false)
}

// ComputeIfPresent calls fn only when key has a value. The result replaces
// the value when keep is true; otherwise the key is deleted.
func (m *Map[K, V]) ComputeIfPresent(key K, fn func(key K, old V) (value V, keep bool)) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.storage.Get(key)
	if !ok {
		var zero V
		return zero, false
	}
	value, keep := fn(key, old)
	return m.apply(key, value, keep, true)
}

// Merge stores value when key has no value; otherwise it stores
// fn(old, value), or deletes the key when fn returns keep == false.
func (m *Map[K, V]) Merge(key K, value V, fn func(old, value V) (merged V, keep bool)) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.storage.Get(key)
	if !ok {
		m.set(key, value)
		return value, true
	}
	merged, keep := fn(old, value)
	return m.apply(key, merged, keep, true)
}

// PutAll stores every entry atomically with respect to other mutations
func (m *Map[K, V]) PutAll(entries map[K]V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	events := make([]ListenEvent[K, V], 0, len(entries))
	for key, value := range entries {
		old, ok := m.storage.Get(key)
		m.storage.Set(key, value)
		events = append(events, ListenEvent[K, V]{key: key, oldValue: old, hasOld: ok, newValue: value, hasNew: true})
	}
	m.publish(events...)
}

// Clear deletes every key
func (m *Map[K, V]) Clear() {
	m.RemoveIf(func(K, V) bool { return true })
}

// RemoveIf deletes every entry accepted by fn and returns the removed keys.
// fn runs under the map lock and must not call back into the map.
func (m *Map[K, V]) RemoveIf(fn func(key K, value V) bool) []K {
	m.mu.Lock()
	defer m.mu.Unlock()

	events := make([]ListenEvent[K, V], 0)
	m.storage.Range(func(key K, value V) {
		if fn(key, value) {
			events = append(events, ListenEvent[K, V]{key: key, oldValue: value, hasOld: true})
		}
	})

	keys := make([]K, 0, len(events))
	for _, event := range events {
		m.storage.Delete(event.key)
		keys = append(keys, event.key)
	}
	m.publish(events...)
	return keys
}

// ReplaceAll replaces every value with fn(key, value).
// fn runs under the map lock and must not call back into the map.
func (m *Map[K, V]) ReplaceAll(fn func(key K, value V) V) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.entries()
	events := make([]ListenEvent[K, V], 0, len(snapshot))
	for _, entry := range snapshot {
		value := fn(entry.Key, entry.Value)
		m.storage.Set(entry.Key, value)
		events = append(events, ListenEvent[K, V]{key: entry.Key, oldValue: entry.Value, hasOld: true, newValue: value, hasNew: true})
	}
	m.publish(events...)
}

// Range calls fn for every entry of a snapshot until fn returns false.
// fn may call back into the map.
func (m *Map[K, V]) Range(fn func(key K, value V) bool) {
	for _, entry := range m.entries() {
		if !fn(entry.Key, entry.Value) {
			return
		}
	}
}

// Keys returns a snapshot of the keys
func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0, m.storage.Len())
	m.storage.Range(func(key K, _ V) {
		keys = append(keys, key)
	})
	return keys
}

// Values returns a snapshot of the values
func (m *Map[K, V]) Values() []V {
	values := make([]V, 0, m.storage.Len())
	m.storage.Range(func(_ K, value V) {
		values = append(values, value)
	})
	return values
}

// Snapshot returns a copy of the content
func (m *Map[K, V]) Snapshot() map[K]V {
	out := make(map[K]V, m.storage.Len())
	m.storage.Range(func(key K, value V) {
		out[key] = value
	})
	return out
}

func (m *Map[K, V]) entries() []Entry[K, V] {
	entries := make([]Entry[K, V], 0, m.storage.Len())
	m.storage.Range(func(key K, value V) {
		entries = append(entries, Entry[K, V]{Key: key, Value: value})
	})
	return entries
}

// set stores value and emits the change. The lock must be held.
func (m *Map[K, V]) set(key K, value V) (V, bool) {
	old, ok := m.storage.Get(key)
	m.storage.Set(key, value)
	m.publish(ListenEvent[K, V]{key: key, oldValue: old, hasOld: ok, newValue: value, hasNew: true})
	return old, ok
}

// delete removes key and emits the change. The lock must be held.
func (m *Map[K, V]) delete(key K, evicted bool) (V, bool) {
	old, ok := m.storage.Get(key)
	if !ok {
		return old, false
	}
	m.storage.Delete(key)
	m.publish(ListenEvent[K, V]{key: key, oldValue: old, hasOld: true, evicted: evicted})
	return old, true
}

// apply stores or deletes key after a compute function ran. The lock must be held.
func (m *Map[K, V]) apply(key K, value V, keep, loaded bool) (V, bool) {
	if keep {
		m.set(key, value)
		return value, true
	}
	if loaded {
		m.delete(key, false)
	}
	var zero V
	return zero, false
}

// publish hands the events that represent a real change to the listeners.
// The lock must be held so that events of a key keep their order.
func (m *Map[K, V]) publish(events ...ListenEvent[K, V]) {
	for _, event := range events {
		if event.hasOld == event.hasNew && (!event.hasOld || m.equal(event.oldValue, event.newValue)) {
			continue
		}
		m.stream.Publish(event)
	}
}

func (m *Map[K, V]) equal(a, b V) bool {
	if eq, ok := any(a).(interface{ Equal(V) bool }); ok {
		return eq.Equal(b)
	}
	return reflect.DeepEqual(a, b)
}
