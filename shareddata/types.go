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
	"time"
)

// Counter is a named 64-bit atomic counter. A new counter starts at zero.
type Counter interface {
	// Name returns the counter name
	Name() string
	// Get returns the current value
	Get(ctx context.Context) (int64, error)
	// CompareAndSet sets the value to update when it currently equals expect
	// and reports whether it did.
	CompareAndSet(ctx context.Context, expect, update int64) (bool, error)
	// GetAndIncrement increments the value by one and returns the value it
	// had before.
	GetAndIncrement(ctx context.Context) (int64, error)
}

// Lock is a named mutual exclusion lock. A lock is held by the process
// that acquired it, not by a goroutine, and it is not reentrant.
type Lock interface {
	// Name returns the lock name
	Name() string
	// Lock blocks until the lock is acquired or ctx is done
	Lock(ctx context.Context) error
	// TryLock waits at most wait for the lock and reports whether it was acquired
	TryLock(ctx context.Context, wait time.Duration) (bool, error)
	// Unlock releases the lock. It returns ErrLockNotHeld when the lock is not held.
	Unlock(ctx context.Context) error
}

// Map is a named key/value map with per-key time-to-live and change events.
//
// A TTL argument follows these rules: zero means the entry never expires,
// a negative value means the map default TTL, and a positive value is
// truncated to whole milliseconds with a floor of one millisecond.
// Operations without TTL argument that set a value use the default TTL.
type Map[K comparable, V any] interface {
	// Name returns the map name
	Name() string
	// Get returns the value stored for key
	Get(ctx context.Context, key K) (V, bool, error)
	// ContainsKey reports whether key has a value
	ContainsKey(ctx context.Context, key K) (bool, error)
	// Len returns the number of entries
	Len(ctx context.Context) (int, error)
	// Put stores value with the default TTL and returns the previous value
	Put(ctx context.Context, key K, value V) (V, bool, error)
	// PutWithTTL stores value with the given TTL and returns the previous value
	PutWithTTL(ctx context.Context, key K, value V, ttl time.Duration) (V, bool, error)
	// PutIfAbsent stores value with the default TTL when key has no value.
	// It returns the existing value and true when key was present.
	PutIfAbsent(ctx context.Context, key K, value V) (V, bool, error)
	// PutIfAbsentWithTTL is PutIfAbsent with an explicit TTL
	PutIfAbsentWithTTL(ctx context.Context, key K, value V, ttl time.Duration) (V, bool, error)
	// PutAll stores every entry with the default TTL
	PutAll(ctx context.Context, entries map[K]V) error
	// Remove deletes key and returns the removed value
	Remove(ctx context.Context, key K) (V, bool, error)
	// CompareAndDelete deletes key when it holds old
	CompareAndDelete(ctx context.Context, key K, old V) (bool, error)
	// Replace stores value only when key has a value and returns the replaced value
	Replace(ctx context.Context, key K, value V) (V, bool, error)
	// CompareAndSwap stores value when key holds old
	CompareAndSwap(ctx context.Context, key K, old, value V) (bool, error)
	// Compute stores fn's result when keep is true and deletes key otherwise.
	// It returns the value held afterwards.
	Compute(ctx context.Context, key K, fn func(key K, old V, loaded bool) (value V, keep bool)) (V, bool, error)
	// ComputeIfAbsent calls fn only when key has no value
	ComputeIfAbsent(ctx context.Context, key K, fn func(key K) (value V, ok bool)) (V, bool, error)
	// ComputeIfPresent calls fn only when key has a value
	ComputeIfPresent(ctx context.Context, key K, fn func(key K, old V) (value V, keep bool)) (V, bool, error)
	// Merge stores value when key has no value and fn(old, value) otherwise
	Merge(ctx context.Context, key K, value V, fn func(old, value V) (merged V, keep bool)) (V, bool, error)
	// ReplaceAll replaces every value with fn(key, value)
	ReplaceAll(ctx context.Context, fn func(key K, value V) V) error
	// Clear deletes every key
	Clear(ctx context.Context) error
	// Range calls fn for every entry of a snapshot until fn returns false
	Range(ctx context.Context, fn func(key K, value V) bool) error
	// Keys returns a snapshot of the keys
	Keys(ctx context.Context) ([]K, error)
	// DefaultTTL returns the default TTL
	DefaultTTL() time.Duration
	// SetDefaultTTL changes the default TTL. A negative value is rejected with ErrInvalidTTL.
	SetDefaultTTL(ttl time.Duration) error
	// AddListener registers handler and returns the registration id
	AddListener(ctx context.Context, handler EventHandler[K, V]) (string, error)
	// RemoveListener unregisters a handler. Unknown ids are ignored.
	RemoveListener(ctx context.Context, id string) error
}

// Backend produces the distributed instances of a Service. Every Service
// bound to the same backend identity shares the same named instances.
type Backend interface {
	// ID identifies the shared scope, e.g. the virtual cluster id
	ID() string
	// Counter returns the named counter, creating it on first use
	Counter(ctx context.Context, name string) (Counter, error)
	// Lock returns the named lock, creating it on first use
	Lock(ctx context.Context, name string) (Lock, error)
	// BinaryMap returns the named map of encoded keys and values, creating it on first use
	BinaryMap(ctx context.Context, name string) (Map[string, []byte], error)
}

// mapHost is implemented by backends able to share typed maps directly,
// without encoding keys and values.
type mapHost interface {
	typedMap(name string, create func() any) any
}
