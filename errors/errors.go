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

package errors

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidTTL is returned when a default time-to-live is set to a negative value.
	ErrInvalidTTL = errors.New("default time-to-live value must be zero or greater")

	// ErrInvalidName is returned when a shared instance is requested with an empty name.
	ErrInvalidName = errors.New("name is required")

	// ErrTypeMismatch is returned when a named map already exists with different key or value types
	// than the ones requested.
	ErrTypeMismatch = errors.New("named map exists with a different type")

	// ErrBackendNotRunning is returned when the distributed backend is used before Start or after Stop.
	ErrBackendNotRunning = errors.New("distributed backend is not running")

	// ErrLockNotHeld is returned when Unlock is called on a lock that is not held.
	ErrLockNotHeld = errors.New("lock is not held")

	// ErrServiceClosed is returned when the shared-data service is used after Close.
	ErrServiceClosed = errors.New("shared-data service is closed")

	// ErrCodec wraps serialization failures at the distributed backend boundary.
	ErrCodec = errors.New("codec failure")
)

// NewErrInvalidTTL formats an ErrInvalidTTL with the rejected value.
func NewErrInvalidTTL(ttl time.Duration) error {
	return fmt.Errorf("ttl=(%s) %w", ttl, ErrInvalidTTL)
}

// NewErrTypeMismatch formats an ErrTypeMismatch for the given map name and types.
func NewErrTypeMismatch(name string, existing, requested any) error {
	return fmt.Errorf("map=(%s) existing=(%T) requested=(%T) %w", name, existing, requested, ErrTypeMismatch)
}

// NewErrCodec wraps a serialization error with ErrCodec.
func NewErrCodec(err error) error {
	return errors.Join(ErrCodec, err)
}
