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
	"fmt"
	"regexp"
)

// Listener receives the change events of an observable Map.
// Events are delivered on a dedicated goroutine per listener, in the order
// the changes happened. A returned error is logged by the map.
type Listener[K comparable, V any] interface {
	OnEvent(event ListenEvent[K, V]) error
}

// ListenerFunc adapts an ordinary function to a Listener
type ListenerFunc[K comparable, V any] func(event ListenEvent[K, V]) error

// OnEvent calls f(event)
func (f ListenerFunc[K, V]) OnEvent(event ListenEvent[K, V]) error {
	return f(event)
}

// Predicate selects the keys a listener is interested in
type Predicate[K comparable] func(key K) bool

// MatchAll accepts every key
func MatchAll[K comparable]() Predicate[K] {
	return func(K) bool { return true }
}

// MatchKeys accepts the given keys only
func MatchKeys[K comparable](keys ...K) Predicate[K] {
	accepted := make(map[K]struct{}, len(keys))
	for _, key := range keys {
		accepted[key] = struct{}{}
	}
	return func(key K) bool {
		_, ok := accepted[key]
		return ok
	}
}

// MatchRegexp accepts the string keys matching re
func MatchRegexp(re *regexp.Regexp) Predicate[string] {
	return re.MatchString
}

// MatchPattern compiles pattern and accepts the string keys matching it
func MatchPattern(pattern string) (Predicate[string], error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid key pattern %q: %w", pattern, err)
	}
	return MatchRegexp(re), nil
}
