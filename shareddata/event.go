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

import "fmt"

// EventKind tells the four map events apart
type EventKind int

const (
	// Added is reported when a key receives its first value
	Added EventKind = iota
	// Updated is reported when the value of a key changes
	Updated
	// Removed is reported when a key is removed by a map operation
	Removed
	// Expired is reported when a key is removed because its time-to-live elapsed
	Expired
)

// String implements fmt.Stringer
func (k EventKind) String() string {
	switch k {
	case Added:
		return "Added"
	case Updated:
		return "Updated"
	case Removed:
		return "Removed"
	case Expired:
		return "Expired"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is a change of a shared map. The concrete type is one of
// EntryAdded, EntryUpdated, EntryRemoved and EntryExpired.
type Event[K comparable, V any] interface {
	// Key returns the changed key
	Key() K
	// Kind returns the event kind
	Kind() EventKind
	isEvent()
}

// EntryAdded is emitted when a key receives a value
type EntryAdded[K comparable, V any] struct {
	key      K
	newValue V
}

// NewEntryAdded creates an EntryAdded event
func NewEntryAdded[K comparable, V any](key K, newValue V) EntryAdded[K, V] {
	return EntryAdded[K, V]{key: key, newValue: newValue}
}

func (e EntryAdded[K, V]) Key() K          { return e.key }
func (e EntryAdded[K, V]) Kind() EventKind { return Added }
func (e EntryAdded[K, V]) NewValue() V     { return e.newValue }
func (e EntryAdded[K, V]) isEvent()        {}

func (e EntryAdded[K, V]) String() string {
	return fmt.Sprintf("Added{%v, %v}", e.key, e.newValue)
}

// EntryUpdated is emitted when the value of a key changes
type EntryUpdated[K comparable, V any] struct {
	key      K
	oldValue V
	newValue V
}

// NewEntryUpdated creates an EntryUpdated event
func NewEntryUpdated[K comparable, V any](key K, oldValue, newValue V) EntryUpdated[K, V] {
	return EntryUpdated[K, V]{key: key, oldValue: oldValue, newValue: newValue}
}

func (e EntryUpdated[K, V]) Key() K          { return e.key }
func (e EntryUpdated[K, V]) Kind() EventKind { return Updated }
func (e EntryUpdated[K, V]) OldValue() V     { return e.oldValue }
func (e EntryUpdated[K, V]) NewValue() V     { return e.newValue }
func (e EntryUpdated[K, V]) isEvent()        {}

func (e EntryUpdated[K, V]) String() string {
	return fmt.Sprintf("Updated{%v, %v -> %v}", e.key, e.oldValue, e.newValue)
}

// EntryRemoved is emitted when a key is removed by a map operation
type EntryRemoved[K comparable, V any] struct {
	key      K
	oldValue V
}

// NewEntryRemoved creates an EntryRemoved event
func NewEntryRemoved[K comparable, V any](key K, oldValue V) EntryRemoved[K, V] {
	return EntryRemoved[K, V]{key: key, oldValue: oldValue}
}

func (e EntryRemoved[K, V]) Key() K          { return e.key }
func (e EntryRemoved[K, V]) Kind() EventKind { return Removed }
func (e EntryRemoved[K, V]) OldValue() V     { return e.oldValue }
func (e EntryRemoved[K, V]) isEvent()        {}

func (e EntryRemoved[K, V]) String() string {
	return fmt.Sprintf("Removed{%v, %v}", e.key, e.oldValue)
}

// EntryExpired is emitted when a key is removed by its expiry timer
type EntryExpired[K comparable, V any] struct {
	key      K
	oldValue V
}

// NewEntryExpired creates an EntryExpired event
func NewEntryExpired[K comparable, V any](key K, oldValue V) EntryExpired[K, V] {
	return EntryExpired[K, V]{key: key, oldValue: oldValue}
}

func (e EntryExpired[K, V]) Key() K          { return e.key }
func (e EntryExpired[K, V]) Kind() EventKind { return Expired }
func (e EntryExpired[K, V]) OldValue() V     { return e.oldValue }
func (e EntryExpired[K, V]) isEvent()        {}

func (e EntryExpired[K, V]) String() string {
	return fmt.Sprintf("Expired{%v, %v}", e.key, e.oldValue)
}

// EventHandler consumes the events of a shared map. Events of one key
// reach a handler in the order the changes happened. A returned error is
// logged and does not stop later deliveries.
type EventHandler[K comparable, V any] interface {
	Handle(event Event[K, V]) error
}

// EventHandlerFunc adapts an ordinary function to an EventHandler
type EventHandlerFunc[K comparable, V any] func(event Event[K, V]) error

// Handle calls f(event)
func (f EventHandlerFunc[K, V]) Handle(event Event[K, V]) error {
	return f(event)
}
