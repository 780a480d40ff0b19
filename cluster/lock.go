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

package cluster

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tochemey/olric"

	sderrors "github.com/tochemey/shareddata/errors"
	"github.com/tochemey/shareddata/shareddata"
)

// lock is a distributed lock held by the node that acquired it
type lock struct {
	name    string
	key     string
	backend *Backend

	mu   sync.Mutex
	held olric.LockContext
}

var _ shareddata.Lock = (*lock)(nil)

func (l *lock) Name() string {
	return l.name
}

// Lock retries bounded acquisitions until one succeeds or ctx is done
func (l *lock) Lock(ctx context.Context) error {
	for {
		acquired, err := l.acquire(ctx, lockAttempt)
		if err != nil {
			return err
		}
		if acquired {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

func (l *lock) TryLock(ctx context.Context, wait time.Duration) (bool, error) {
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	return l.acquire(ctx, wait)
}

func (l *lock) Unlock(ctx context.Context) error {
	l.mu.Lock()
	held := l.held
	l.held = nil
	l.mu.Unlock()

	if held == nil {
		return sderrors.ErrLockNotHeld
	}

	ctx, cancel := l.backend.withTimeout(ctx)
	defer cancel()
	if err := held.Unlock(ctx); err != nil {
		if errors.Is(err, olric.ErrNoSuchLock) {
			return sderrors.ErrLockNotHeld
		}
		return err
	}
	return nil
}

func (l *lock) acquire(ctx context.Context, wait time.Duration) (bool, error) {
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < wait {
			wait = remaining
		}
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var (
		held olric.LockContext
		err  error
	)

	locks := l.backend.locks
	if l.backend.lockLease > 0 {
		held, err = locks.LockWithTimeout(ctx, l.key, l.backend.lockLease, wait)
	} else {
		held, err = locks.Lock(ctx, l.key, wait)
	}

	if err != nil {
		if errors.Is(err, olric.ErrLockNotAcquired) {
			return false, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		return false, err
	}

	l.mu.Lock()
	l.held = held
	l.mu.Unlock()
	return true, nil
}
