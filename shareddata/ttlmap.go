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
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/tochemey/shareddata/internal/locker"
	"github.com/tochemey/shareddata/internal/metric"
	"github.com/tochemey/shareddata/internal/validation"
	"github.com/tochemey/shareddata/log"
	"github.com/tochemey/shareddata/observable"
)

// TTLMap is an in-memory observable map whose entries may expire.
//
// Each key has at most one expiry timer. Every write that sets a value
// reschedules the timer of its key and every removal cancels it. Timers
// fire under the same lock as the mutations and carry the generation they
// were scheduled with; a timer whose generation is no longer current is
// ignored. An expired key is evicted from the underlying observable map,
// which is reported to handlers as EntryExpired; every other removal is
// reported as EntryRemoved.
type TTLMap[K comparable, V any] struct {
	_    locker.NoCopy
	name string
	// mu serializes every mutation, timer scheduling and timer firing
	mu         sync.Mutex
	entries    *observable.Map[K, V]
	timers     map[K]*expiry
	generation uint64
	defaultTTL *atomic.Duration
	closed     bool
	logger     log.Logger
	recorder   *metric.Recorder
}

type expiry struct {
	timer      *time.Timer
	generation uint64
}

// NewTTLMap creates a TTLMap on the default storage
func NewTTLMap[K comparable, V any](name string, opts ...TTLMapOption) (*TTLMap[K, V], error) {
	return NewTTLMapWithStorage(name, observable.NewStorage[K, V](), opts...)
}

// NewTTLMapWithStorage creates a TTLMap on the given storage. It fails with
// ErrInvalidTTL when the default TTL is negative.
func NewTTLMapWithStorage[K comparable, V any](name string, storage observable.Storage[K, V], opts ...TTLMapOption) (*TTLMap[K, V], error) {
	cfg := defaultTTLConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if err := validation.New(validation.FailFast()).
		AddValidator(validation.NewNameValidator("map", name)).
		AddValidator(validation.NewTTLValidator(cfg.defaultTTL)).
		Validate(); err != nil {
		return nil, err
	}
	return newTTLMap(name, storage, cfg), nil
}

// newTTLMap builds a TTLMap from a validated configuration
func newTTLMap[K comparable, V any](name string, storage observable.Storage[K, V], cfg *ttlConfig) *TTLMap[K, V] {
	return &TTLMap[K, V]{
		name: name,
		entries: observable.NewWithStorage(storage,
			observable.WithName(name),
			observable.WithLogger(cfg.logger),
			observable.WithMeterProvider(cfg.provider)),
		timers:     make(map[K]*expiry),
		defaultTTL: atomic.NewDuration(cfg.defaultTTL),
		logger:     cfg.logger,
		recorder:   metric.NewProviderRecorder(cfg.provider),
	}
}

// Name returns the map name
func (x *TTLMap[K, V]) Name() string {
	return x.name
}

// DefaultTTL returns the default time-to-live
func (x *TTLMap[K, V]) DefaultTTL() time.Duration {
	return x.defaultTTL.Load()
}

// SetDefaultTTL changes the default time-to-live used by later writes.
// A negative value is rejected and leaves the default unchanged.
func (x *TTLMap[K, V]) SetDefaultTTL(ttl time.Duration) error {
	if err := validation.NewTTLValidator(ttl).Validate(); err != nil {
		return err
	}
	x.defaultTTL.Store(ttl)
	return nil
}

// AddListener registers handler for every future event and returns the
// registration id.
func (x *TTLMap[K, V]) AddListener(handler EventHandler[K, V]) string {
	return x.entries.AddListener(observable.MatchAll[K](),
		observable.ListenerFunc[K, V](func(event observable.ListenEvent[K, V]) error {
			return handler.Handle(toEvent(event))
		}))
}

// RemoveListener unregisters a handler. Unknown ids are ignored.
func (x *TTLMap[K, V]) RemoveListener(id string) {
	x.entries.RemoveListener(id)
}

// Get returns the value stored for key
func (x *TTLMap[K, V]) Get(key K) (V, bool) {
	return x.entries.Get(key)
}

// ContainsKey reports whether key has a value
func (x *TTLMap[K, V]) ContainsKey(key K) bool {
	return x.entries.ContainsKey(key)
}

// ContainsValue reports whether at least one key holds value
func (x *TTLMap[K, V]) ContainsValue(value V) bool {
	return x.entries.ContainsValue(value)
}

// Len returns the number of entries
func (x *TTLMap[K, V]) Len() int {
	return x.entries.Len()
}

// Keys returns a snapshot of the keys
func (x *TTLMap[K, V]) Keys() []K {
	return x.entries.Keys()
}

// Values returns a snapshot of the values
func (x *TTLMap[K, V]) Values() []V {
	return x.entries.Values()
}

// Range calls fn for every entry of a snapshot until fn returns false
func (x *TTLMap[K, V]) Range(fn func(key K, value V) bool) {
	x.entries.Range(fn)
}

// Put stores value with the default TTL and returns the previous value
func (x *TTLMap[K, V]) Put(key K, value V) (V, bool) {
	return x.PutWithTTL(key, value, -1)
}

// PutWithTTL stores value with the given TTL and returns the previous value
func (x *TTLMap[K, V]) PutWithTTL(key K, value V, ttl time.Duration) (V, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	old, ok := x.entries.Put(key, value)
	x.schedule(key, ttl)
	return old, ok
}

// PutIfAbsent stores value with the default TTL when key has no value.
// It returns the existing value and true when key was present.
func (x *TTLMap[K, V]) PutIfAbsent(key K, value V) (V, bool) {
	return x.PutIfAbsentWithTTL(key, value, -1)
}

// PutIfAbsentWithTTL is PutIfAbsent with an explicit TTL
func (x *TTLMap[K, V]) PutIfAbsentWithTTL(key K, value V, ttl time.Duration) (V, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	current, loaded := x.entries.PutIfAbsent(key, value)
	if !loaded {
		x.schedule(key, ttl)
	}
	return current, loaded
}

// PutAll stores every entry with the default TTL
func (x *TTLMap[K, V]) PutAll(entries map[K]V) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.entries.PutAll(entries)
	for key := range entries {
		x.schedule(key, -1)
	}
}

// Remove deletes key and returns the removed value
func (x *TTLMap[K, V]) Remove(key K) (V, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	old, ok := x.entries.Remove(key)
	x.cancel(key)
	return old, ok
}

// CompareAndDelete deletes key when it holds old
func (x *TTLMap[K, V]) CompareAndDelete(key K, old V) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	if !x.entries.CompareAndDelete(key, old) {
		return false
	}
	x.cancel(key)
	return true
}

// Replace stores value with the default TTL when key has a value
func (x *TTLMap[K, V]) Replace(key K, value V) (V, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	old, ok := x.entries.Replace(key, value)
	if ok {
		x.schedule(key, -1)
	}
	return old, ok
}

// CompareAndSwap stores value with the default TTL when key holds old
func (x *TTLMap[K, V]) CompareAndSwap(key K, old, value V) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	if !x.entries.CompareAndSwap(key, old, value) {
		return false
	}
	x.schedule(key, -1)
	return true
}

// Compute stores fn's result with the default TTL when keep is true and
// deletes key otherwise. fn must not call back into the map.
func (x *TTLMap[K, V]) Compute(key K, fn func(key K, old V, loaded bool) (V, bool)) (V, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	value, ok := x.entries.Compute(key, fn)
	x.reconcile(key, ok)
	return value, ok
}

// ComputeIfAbsent calls fn only when key has no value. The TTL is only
// scheduled when a value was created.
func (x *TTLMap[K, V]) ComputeIfAbsent(key K, fn func(key K) (V, bool)) (V, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	present := x.entries.ContainsKey(key)
	value, ok := x.entries.ComputeIfAbsent(key, fn)
	if !present && ok {
		x.schedule(key, -1)
	}
	return value, ok
}

// ComputeIfPresent calls fn only when key has a value
func (x *TTLMap[K, V]) ComputeIfPresent(key K, fn func(key K, old V) (V, bool)) (V, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if !x.entries.ContainsKey(key) {
		var zero V
		return zero, false
	}
	value, ok := x.entries.ComputeIfPresent(key, fn)
	x.reconcile(key, ok)
	return value, ok
}

// Merge stores value when key has no value and fn(old, value) otherwise
func (x *TTLMap[K, V]) Merge(key K, value V, fn func(old, value V) (V, bool)) (V, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	merged, ok := x.entries.Merge(key, value, fn)
	x.reconcile(key, ok)
	return merged, ok
}

// ReplaceAll replaces every value with fn(key, value) and reschedules
// every key with the default TTL
func (x *TTLMap[K, V]) ReplaceAll(fn func(key K, value V) V) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.entries.ReplaceAll(fn)
	for _, key := range x.entries.Keys() {
		x.schedule(key, -1)
	}
}

// RemoveIf deletes every entry accepted by fn and returns the removed keys
func (x *TTLMap[K, V]) RemoveIf(fn func(key K, value V) bool) []K {
	x.mu.Lock()
	defer x.mu.Unlock()
	keys := x.entries.RemoveIf(fn)
	for _, key := range keys {
		x.cancel(key)
	}
	return keys
}

// Clear deletes every key and cancels every timer
func (x *TTLMap[K, V]) Clear() {
	x.RemoveIf(func(K, V) bool { return true })
}

// Close cancels every timer and stops the listener workers. Entries stay
// readable and writable but no longer expire nor produce events.
//
// Close waits for the listener workers, so it must not be called from a
// handler; a handler that needs to close the map must do so from another
// goroutine.
func (x *TTLMap[K, V]) Close() {
	x.mu.Lock()
	x.closed = true
	for key, entry := range x.timers {
		entry.timer.Stop()
		delete(x.timers, key)
	}
	x.mu.Unlock()
	x.entries.Close()
}

// schedule replaces the expiry timer of key. The lock must be held.
func (x *TTLMap[K, V]) schedule(key K, ttl time.Duration) {
	x.cancel(key)
	if x.closed {
		return
	}

	effective := ResolveTTL(ttl, x.defaultTTL.Load())
	if effective == 0 {
		return
	}

	x.generation++
	generation := x.generation
	x.timers[key] = &expiry{
		generation: generation,
		timer: time.AfterFunc(effective, func() {
			x.expire(key, generation)
		}),
	}
}

// cancel stops and discards the expiry timer of key. The lock must be held.
func (x *TTLMap[K, V]) cancel(key K) {
	if entry, ok := x.timers[key]; ok {
		entry.timer.Stop()
		delete(x.timers, key)
	}
}

// reconcile schedules the default TTL of key when it still has a value
// and cancels its timer otherwise. The lock must be held.
func (x *TTLMap[K, V]) reconcile(key K, present bool) {
	if present {
		x.schedule(key, -1)
		return
	}
	x.cancel(key)
}

// sweep cancels the timers of the keys that no longer have a value. The
// lock must be held.
func (x *TTLMap[K, V]) sweep() {
	for key := range x.timers {
		if !x.entries.ContainsKey(key) {
			x.cancel(key)
		}
	}
}

func (x *TTLMap[K, V]) expire(key K, generation uint64) {
	x.mu.Lock()
	defer x.mu.Unlock()

	entry, ok := x.timers[key]
	if x.closed || !ok || entry.generation != generation {
		x.logger.Debugf("map=(%s) ignoring stale expiry of key=(%v)", x.name, key)
		return
	}

	delete(x.timers, key)
	if _, ok := x.entries.Evict(key); ok {
		x.recorder.EntryExpired(context.Background(), x.name)
	}
}

func toEvent[K comparable, V any](event observable.ListenEvent[K, V]) Event[K, V] {
	oldValue, hasOld := event.OldValue()
	newValue, hasNew := event.NewValue()
	switch {
	case !hasOld:
		return NewEntryAdded(event.Key(), newValue)
	case hasNew:
		return NewEntryUpdated(event.Key(), oldValue, newValue)
	case event.Evicted():
		return NewEntryExpired(event.Key(), oldValue)
	default:
		return NewEntryRemoved(event.Key(), oldValue)
	}
}
