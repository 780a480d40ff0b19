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

// Iterator walks the keys a Map held when the iterator was created. Keys
// removed in the meantime are skipped and values are read when the
// iterator advances. Remove and SetValue write through the map.
//
// An Iterator must not be shared between goroutines.
type Iterator[K comparable, V any] struct {
	m       *Map[K, V]
	keys    []K
	next    int
	key     K
	value   V
	current bool
}

func newIterator[K comparable, V any](m *Map[K, V]) *Iterator[K, V] {
	return &Iterator[K, V]{
		m:    m,
		keys: m.Keys(),
	}
}

// Next advances to the next live entry and reports whether there is one
func (it *Iterator[K, V]) Next() bool {
	for it.next < len(it.keys) {
		key := it.keys[it.next]
		it.next++
		if value, ok := it.m.Get(key); ok {
			it.key, it.value, it.current = key, value, true
			return true
		}
	}
	it.current = false
	return false
}

// Key returns the current key
func (it *Iterator[K, V]) Key() K {
	return it.key
}

// Value returns the current value as read by Next or written by SetValue
func (it *Iterator[K, V]) Value() V {
	return it.value
}

// Entry returns the current entry
func (it *Iterator[K, V]) Entry() Entry[K, V] {
	return Entry[K, V]{Key: it.key, Value: it.value}
}

// Remove deletes the current key. It reports false when there is no
// current entry or the entry was already removed.
func (it *Iterator[K, V]) Remove() bool {
	if !it.current {
		return false
	}
	it.current = false
	_, ok := it.m.Remove(it.key)
	return ok
}

// SetValue replaces the value of the current key and returns the previous
// value. It reports false when there is no current entry or the key was
// removed in the meantime.
func (it *Iterator[K, V]) SetValue(value V) (V, bool) {
	var zero V
	if !it.current {
		return zero, false
	}
	old, ok := it.m.Replace(it.key, value)
	if !ok {
		it.current = false
		return zero, false
	}
	it.value = value
	return old, true
}
