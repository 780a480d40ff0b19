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

import "github.com/tochemey/shareddata/observable"

// Entry is a key/value pair of a TTLMap
type Entry[K comparable, V any] = observable.Entry[K, V]

// mutate runs fn under the map lock and then cancels the timers of the
// keys fn removed.
func (x *TTLMap[K, V]) mutate(fn func() bool) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	changed := fn()
	x.sweep()
	return changed
}

// TTLEntrySet is a live view over the entries of a TTLMap. Entries added
// through it use the default TTL; entries removed through it lose their
// timer.
type TTLEntrySet[K comparable, V any] struct {
	x    *TTLMap[K, V]
	view observable.EntrySet[K, V]
}

// Entries returns the live entry view
func (x *TTLMap[K, V]) Entries() TTLEntrySet[K, V] {
	return TTLEntrySet[K, V]{x: x, view: x.entries.Entries()}
}

// Len returns the number of entries
func (s TTLEntrySet[K, V]) Len() int { return s.view.Len() }

// Contains reports whether the map holds entry.Key with an equal value
func (s TTLEntrySet[K, V]) Contains(entry Entry[K, V]) bool { return s.view.Contains(entry) }

// Slice returns a snapshot of the entries
func (s TTLEntrySet[K, V]) Slice() []Entry[K, V] { return s.view.Slice() }

// Add stores the entry with the default TTL unless the map already holds
// an equal value
func (s TTLEntrySet[K, V]) Add(entry Entry[K, V]) bool {
	return s.AddAll(entry)
}

// AddAll stores every entry and reports whether the map changed. Only the
// entries that were absent or held another value get the default TTL; an
// entry already present with an equal value keeps its expiry.
func (s TTLEntrySet[K, V]) AddAll(entries ...Entry[K, V]) bool {
	s.x.mu.Lock()
	defer s.x.mu.Unlock()
	changed := false
	for _, entry := range entries {
		if s.view.Add(entry) {
			s.x.schedule(entry.Key, -1)
			changed = true
		}
	}
	return changed
}

// Remove deletes entry.Key when it holds an equal value
func (s TTLEntrySet[K, V]) Remove(entry Entry[K, V]) bool {
	return s.x.mutate(func() bool { return s.view.Remove(entry) })
}

// RemoveAll deletes every listed entry
func (s TTLEntrySet[K, V]) RemoveAll(entries ...Entry[K, V]) bool {
	return s.x.mutate(func() bool { return s.view.RemoveAll(entries...) })
}

// RetainAll deletes every entry that is not listed
func (s TTLEntrySet[K, V]) RetainAll(entries ...Entry[K, V]) bool {
	return s.x.mutate(func() bool { return s.view.RetainAll(entries...) })
}

// RemoveIf deletes every entry accepted by fn
func (s TTLEntrySet[K, V]) RemoveIf(fn func(entry Entry[K, V]) bool) bool {
	return s.x.mutate(func() bool { return s.view.RemoveIf(fn) })
}

// Clear deletes every entry
func (s TTLEntrySet[K, V]) Clear() { s.x.Clear() }

// Iterator returns an iterator over a snapshot of the keys
func (s TTLEntrySet[K, V]) Iterator() *TTLIterator[K, V] {
	return &TTLIterator[K, V]{x: s.x, it: s.view.Iterator()}
}

// TTLKeySet is a live view over the keys of a TTLMap
type TTLKeySet[K comparable, V any] struct {
	x    *TTLMap[K, V]
	view observable.KeySet[K, V]
}

// KeySet returns the live key view
func (x *TTLMap[K, V]) KeySet() TTLKeySet[K, V] {
	return TTLKeySet[K, V]{x: x, view: x.entries.KeySet()}
}

// Len returns the number of keys
func (s TTLKeySet[K, V]) Len() int { return s.view.Len() }

// Contains reports whether key has a value
func (s TTLKeySet[K, V]) Contains(key K) bool { return s.view.Contains(key) }

// Slice returns a snapshot of the keys
func (s TTLKeySet[K, V]) Slice() []K { return s.view.Slice() }

// Remove deletes key
func (s TTLKeySet[K, V]) Remove(key K) bool {
	return s.x.mutate(func() bool { return s.view.Remove(key) })
}

// RemoveAll deletes every listed key
func (s TTLKeySet[K, V]) RemoveAll(keys ...K) bool {
	return s.x.mutate(func() bool { return s.view.RemoveAll(keys...) })
}

// RetainAll deletes every key that is not listed
func (s TTLKeySet[K, V]) RetainAll(keys ...K) bool {
	return s.x.mutate(func() bool { return s.view.RetainAll(keys...) })
}

// RemoveIf deletes every key accepted by fn
func (s TTLKeySet[K, V]) RemoveIf(fn func(key K) bool) bool {
	return s.x.mutate(func() bool { return s.view.RemoveIf(fn) })
}

// Clear deletes every key
func (s TTLKeySet[K, V]) Clear() { s.x.Clear() }

// Iterator returns an iterator over a snapshot of the keys
func (s TTLKeySet[K, V]) Iterator() *TTLIterator[K, V] {
	return &TTLIterator[K, V]{x: s.x, it: s.view.Iterator()}
}

// TTLValues is a live view over the values of a TTLMap
type TTLValues[K comparable, V any] struct {
	x    *TTLMap[K, V]
	view observable.ValueCollection[K, V]
}

// ValueCollection returns the live value view
func (x *TTLMap[K, V]) ValueCollection() TTLValues[K, V] {
	return TTLValues[K, V]{x: x, view: x.entries.ValueCollection()}
}

// Len returns the number of values
func (s TTLValues[K, V]) Len() int { return s.view.Len() }

// Contains reports whether at least one key holds value
func (s TTLValues[K, V]) Contains(value V) bool { return s.view.Contains(value) }

// Slice returns a snapshot of the values
func (s TTLValues[K, V]) Slice() []V { return s.view.Slice() }

// Remove deletes one key holding value
func (s TTLValues[K, V]) Remove(value V) bool {
	return s.x.mutate(func() bool { return s.view.Remove(value) })
}

// RemoveAll deletes every key holding one of values
func (s TTLValues[K, V]) RemoveAll(values ...V) bool {
	return s.x.mutate(func() bool { return s.view.RemoveAll(values...) })
}

// RetainAll deletes every key whose value is not listed
func (s TTLValues[K, V]) RetainAll(values ...V) bool {
	return s.x.mutate(func() bool { return s.view.RetainAll(values...) })
}

// RemoveIf deletes every key whose value is accepted by fn
func (s TTLValues[K, V]) RemoveIf(fn func(value V) bool) bool {
	return s.x.mutate(func() bool { return s.view.RemoveIf(fn) })
}

// Clear deletes every key
func (s TTLValues[K, V]) Clear() { s.x.Clear() }

// Iterator returns an iterator over a snapshot of the keys
func (s TTLValues[K, V]) Iterator() *TTLIterator[K, V] {
	return &TTLIterator[K, V]{x: s.x, it: s.view.Iterator()}
}

// TTLIterator walks a snapshot of the keys of a TTLMap. Remove cancels the
// timer of the removed key; SetValue reschedules it with the default TTL.
type TTLIterator[K comparable, V any] struct {
	x  *TTLMap[K, V]
	it *observable.Iterator[K, V]
}

// Next advances to the next live entry
func (t *TTLIterator[K, V]) Next() bool { return t.it.Next() }

// Key returns the current key
func (t *TTLIterator[K, V]) Key() K { return t.it.Key() }

// Value returns the current value
func (t *TTLIterator[K, V]) Value() V { return t.it.Value() }

// Entry returns the current entry
func (t *TTLIterator[K, V]) Entry() Entry[K, V] { return t.it.Entry() }

// Remove deletes the current key
func (t *TTLIterator[K, V]) Remove() bool {
	t.x.mu.Lock()
	defer t.x.mu.Unlock()
	key := t.it.Key()
	if !t.it.Remove() {
		return false
	}
	t.x.cancel(key)
	return true
}

// SetValue replaces the value of the current key
func (t *TTLIterator[K, V]) SetValue(value V) (V, bool) {
	t.x.mu.Lock()
	defer t.x.mu.Unlock()
	old, ok := t.it.SetValue(value)
	if ok {
		t.x.schedule(t.it.Key(), -1)
	}
	return old, ok
}
