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

import "fmt"

// ListenEvent describes one change of one key. An absent old value means
// the key had no value before the change; an absent new value means the
// key has no value after it.
type ListenEvent[K comparable, V any] struct {
	key      K
	oldValue V
	hasOld   bool
	newValue V
	hasNew   bool
	evicted  bool
}

// Key returns the changed key
func (e ListenEvent[K, V]) Key() K {
	return e.key
}

// OldValue returns the value held before the change
func (e ListenEvent[K, V]) OldValue() (V, bool) {
	return e.oldValue, e.hasOld
}

// NewValue returns the value held after the change
func (e ListenEvent[K, V]) NewValue() (V, bool) {
	return e.newValue, e.hasNew
}

// Evicted reports whether the key was removed through Evict rather than a
// regular map operation. Expiry of a TTL map entry is reported this way:
// the event is a removal whose Evicted returns true.
func (e ListenEvent[K, V]) Evicted() bool {
	return e.evicted
}

// String implements fmt.Stringer
func (e ListenEvent[K, V]) String() string {
	return fmt.Sprintf("ListenEvent(key=%v, old=%s, new=%s, evicted=%t)",
		e.key, optional(e.oldValue, e.hasOld), optional(e.newValue, e.hasNew), e.evicted)
}

func optional[V any](value V, ok bool) string {
	if !ok {
		return "<absent>"
	}
	return fmt.Sprintf("%v", value)
}
