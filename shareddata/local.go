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

	"go.uber.org/atomic"

	"github.com/tochemey/shareddata/errors"
)

// localCounter is an in-memory Counter
type localCounter struct {
	name  string
	value *atomic.Int64
}

var _ Counter = (*localCounter)(nil)

func newLocalCounter(name string) *localCounter {
	return &localCounter{name: name, value: atomic.NewInt64(0)}
}

func (c *localCounter) Name() string {
	return c.name
}

func (c *localCounter) Get(context.Context) (int64, error) {
	return c.value.Load(), nil
}

func (c *localCounter) CompareAndSet(_ context.Context, expect, update int64) (bool, error) {
	return c.value.CompareAndSwap(expect, update), nil
}

func (c *localCounter) GetAndIncrement(context.Context) (int64, error) {
	return c.value.Inc() - 1, nil
}

// localLock is an in-memory Lock built on a one-slot channel, which makes
// bounded and context-aware acquisition straightforward.
type localLock struct {
	name string
	slot chan struct{}
}

var _ Lock = (*localLock)(nil)

func newLocalLock(name string) *localLock {
	return &localLock{name: name, slot: make(chan struct{}, 1)}
}

func (l *localLock) Name() string {
	return l.name
}

func (l *localLock) Lock(ctx context.Context) error {
	select {
	case l.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *localLock) TryLock(ctx context.Context, wait time.Duration) (bool, error) {
	select {
	case l.slot <- struct{}{}:
		return true, nil
	default:
	}

	if wait <= 0 {
		return false, nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case l.slot <- struct{}{}:
		return true, nil
	case <-timer.C:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (l *localLock) Unlock(context.Context) error {
	select {
	case <-l.slot:
		return nil
	default:
		return errors.ErrLockNotHeld
	}
}
