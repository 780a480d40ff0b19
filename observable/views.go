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
	mapset "github.com/deckarep/golang-set/v2"
)

// Entry is a key/value pair of a Map
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// EntrySet is a live view over the entries of a Map. It holds no data:
// every read goes to the map storage and every mutation goes through the
// map lock and emits the regular change events.
type EntrySet[K comparable, V any] struct {
	m *Map[K, V]
}

// Entries returns the live entry view
func (m *Map[K, V]) Entries() EntrySet[K, V] {
	return EntrySet[K, V]{m: m}
}

// Len returns the number of entries
func (s EntrySet[K, V]) Len() int {
	return s.m.Len()
}

// Contains reports whether the map holds entry.Key with an equal value
func (s EntrySet[K, V]) Contains(entry Entry[K, V]) bool {
	current, ok := s.m.Get(entry.Key)
	return ok && s.m.equal(current, entry.Value)
}

// Add stores the entry and reports whether the map changed
func (s EntrySet[K, V]) Add(entry Entry[K, V]) bool {
	old, ok := s.m.Put(entry.Key, entry.Value)
	return !ok || !s.m.equal(old, entry.Value)
}

// AddAll stores every entry and reports whether the map changed
func (s EntrySet[K, V]) AddAll(entries ...Entry[K, V]) bool {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	changed := false
	for _, entry := range entries {
		old, ok := s.m.set(entry.Key, entry.Value)
		changed = changed || !ok || !s.m.equal(old, entry.Value)
	}
	return changed
}

// Remove deletes entry.Key when it holds an equal value
func (s EntrySet[K, V]) Remove(entry Entry[K, V]) bool {
	return s.m.CompareAndDelete(entry.Key, entry.Value)
}

// RemoveAll deletes every listed entry present in the map
func (s EntrySet[K, V]) RemoveAll(entries ...Entry[K, V]) bool {
	return len(s.m.RemoveIf(func(key K, value V) bool {
		return s.listed(entries, key, value)
	})) > 0
}

// RetainAll deletes every entry that is not listed
func (s EntrySet[K, V]) RetainAll(entries ...Entry[K, V]) bool {
	return len(s.m.RemoveIf(func(key K, value V) bool {
		return !s.listed(entries, key, value)
	})) > 0
}

// RemoveIf deletes every entry accepted by fn
func (s EntrySet[K, V]) RemoveIf(fn func(entry Entry[K, V]) bool) bool {
	return len(s.m.RemoveIf(func(key K, value V) bool {
		return fn(Entry[K, V]{Key: key, Value: value})
	})) > 0
}

// Clear deletes every entry
func (s EntrySet[K, V]) Clear() {
	s.m.Clear()
}

// Slice returns a snapshot of the entries
func (s EntrySet[K, V]) Slice() []Entry[K, V] {
	return s.m.entries()
}

// Iterator returns an iterator over a snapshot of the keys
func (s EntrySet[K, V]) Iterator() *Iterator[K, V] {
	return newIterator(s.m)
}

func (s EntrySet[K, V]) listed(entries []Entry[K, V], key K, value V) bool {
	for _, entry := range entries {
		if entry.Key == key && s.m.equal(entry.Value, value) {
			return true
		}
	}
	return false
}

// KeySet is a live view over the keys of a Map
type KeySet[K comparable, V any] struct {
	m *Map[K, V]
}

// KeySet returns the live key view
func (m *Map[K, V]) KeySet() KeySet[K, V] {
	return KeySet[K, V]{m: m}
}

// Len returns the number of keys
func (s KeySet[K, V]) Len() int {
	return s.m.Len()
}

// Contains reports whether key has a value
func (s KeySet[K, V]) Contains(key K) bool {
	return s.m.ContainsKey(key)
}

// Remove deletes key and reports whether it was present
func (s KeySet[K, V]) Remove(key K) bool {
	_, ok := s.m.Remove(key)
	return ok
}

// RemoveAll deletes every listed key
func (s KeySet[K, V]) RemoveAll(keys ...K) bool {
	set := mapset.NewThreadUnsafeSet(keys...)
	return len(s.m.RemoveIf(func(key K, _ V) bool { return set.Contains(key) })) > 0
}

// RetainAll deletes every key that is not listed
func (s KeySet[K, V]) RetainAll(keys ...K) bool {
	set := mapset.NewThreadUnsafeSet(keys...)
	return len(s.m.RemoveIf(func(key K, _ V) bool { return !set.Contains(key) })) > 0
}

// RemoveIf deletes every key accepted by fn
func (s KeySet[K, V]) RemoveIf(fn func(key K) bool) bool {
	return len(s.m.RemoveIf(func(key K, _ V) bool { return fn(key) })) > 0
}

// Clear deletes every key
func (s KeySet[K, V]) Clear() {
	s.m.Clear()
}

// Slice returns a snapshot of the keys
func (s KeySet[K, V]) Slice() []K {
	return s.m.Keys()
}

// Iterator returns an iterator over a snapshot of the keys
func (s KeySet[K, V]) Iterator() *Iterator[K, V] {
	return newIterator(s.m)
}

// ValueCollection is a live view over the values of a Map
type ValueCollection[K comparable, V any] struct {
	m *Map[K, V]
}

// ValueCollection returns the live value view
func (m *Map[K, V]) ValueCollection() ValueCollection[K, V] {
	return ValueCollection[K, V]{m: m}
}

// Len returns the number of values
func (s ValueCollection[K, V]) Len() int {
	return s.m.Len()
}

// Contains reports whether at least one key holds value
func (s ValueCollection[K, V]) Contains(value V) bool {
	return s.m.ContainsValue(value)
}

// Remove deletes one key holding value
func (s ValueCollection[K, V]) Remove(value V) bool {
	removed := false
	return len(s.m.RemoveIf(func(_ K, v V) bool {
		if removed || !s.m.equal(v, value) {
			return false
		}
		removed = true
		return true
	})) > 0
}

// RemoveAll deletes every key holding one of values
func (s ValueCollection[K, V]) RemoveAll(values ...V) bool {
	return len(s.m.RemoveIf(func(_ K, v V) bool { return s.listed(values, v) })) > 0
}

// RetainAll deletes every key whose value is not listed
func (s ValueCollection[K, V]) RetainAll(values ...V) bool {
	return len(s.m.RemoveIf(func(_ K, v V) bool { return !s.listed(values, v) })) > 0
}

// RemoveIf deletes every key whose value is accepted by fn
func (s ValueCollection[K, V]) RemoveIf(fn func(value V) bool) bool {
	return len(s.m.RemoveIf(func(_ K, v V) bool { return fn(v) })) > 0
}

// Clear deletes every key
func (s ValueCollection[K, V]) Clear() {
	s.m.Clear()
}

// Slice returns a snapshot of the values
func (s ValueCollection[K, V]) Slice() []V {
	return s.m.Values()
}

// Iterator returns an iterator over a snapshot of the keys
func (s ValueCollection[K, V]) Iterator() *Iterator[K, V] {
	return newIterator(s.m)
}

func (s ValueCollection[K, V]) listed(values []V, value V) bool {
	for _, v := range values {
		if s.m.equal(v, value) {
			return true
		}
	}
	return false
}
