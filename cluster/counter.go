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

	"github.com/tochemey/olric"

	"github.com/tochemey/shareddata/shareddata"
)

// counter is a distributed counter. Writes hold the cluster-wide lock of
// the counter so that CompareAndSet observes every increment.
type counter struct {
	name    string
	backend *Backend
}

var _ shareddata.Counter = (*counter)(nil)

func (c *counter) Name() string {
	return c.name
}

func (c *counter) Get(ctx context.Context) (int64, error) {
	ctx, cancel := c.backend.withTimeout(ctx)
	defer cancel()
	return c.read(ctx)
}

func (c *counter) CompareAndSet(ctx context.Context, expect, update int64) (bool, error) {
	swapped := false
	err := c.backend.withKeyLock(ctx, c.lockKey(), func(ctx context.Context) error {
		current, err := c.read(ctx)
		if err != nil || current != expect {
			return err
		}

		if err := c.backend.counters.Put(ctx, c.name, int(update)); err != nil {
			return err
		}
		swapped = true
		return nil
	})
	return swapped, err
}

func (c *counter) GetAndIncrement(ctx context.Context) (int64, error) {
	var previous int64
	err := c.backend.withKeyLock(ctx, c.lockKey(), func(ctx context.Context) error {
		next, err := c.backend.counters.Incr(ctx, c.name, 1)
		if err != nil {
			return err
		}
		previous = int64(next) - 1
		return nil
	})
	return previous, err
}

func (c *counter) read(ctx context.Context) (int64, error) {
	resp, err := c.backend.counters.Get(ctx, c.name)
	if err != nil {
		if errors.Is(err, olric.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}

	value, err := resp.Int()
	if err != nil {
		return 0, err
	}
	return int64(value), nil
}

func (c *counter) lockKey() string {
	return "counter:" + c.name
}
