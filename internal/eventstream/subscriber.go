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

package eventstream

import (
	"context"
	"fmt"

	"go.uber.org/atomic"

	"github.com/tochemey/shareddata/internal/queue"
)

// subscriber owns an unbounded queue drained by exactly one worker
// goroutine, so the events it receives are handled in publish order.
type subscriber[T any] struct {
	id      string
	filter  Filter[T]
	handler Handler[T]
	events  *queue.Mpsc[T]
	signal  chan struct{}
	stop    chan struct{}
	active  *atomic.Bool
}

func newSubscriber[T any](id string, filter Filter[T], handler Handler[T]) *subscriber[T] {
	return &subscriber[T]{
		id:      id,
		filter:  filter,
		handler: handler,
		events:  queue.NewMpsc[T](),
		signal:  make(chan struct{}, 1),
		stop:    make(chan struct{}),
		active:  atomic.NewBool(true),
	}
}

// push enqueues the event and wakes the worker up
func (x *subscriber[T]) push(event T) {
	x.events.Push(event)
	select {
	case x.signal <- struct{}{}:
	default:
	}
}

// shutdown stops the worker. Events still queued are dropped.
func (x *subscriber[T]) shutdown() {
	if x.active.CompareAndSwap(true, false) {
		close(x.stop)
	}
}

func (x *subscriber[T]) run(stream *Stream[T]) {
	defer stream.wg.Done()
	for {
		for x.active.Load() {
			event, ok := x.events.Pop()
			if !ok {
				break
			}
			x.deliver(stream, event)
		}

		select {
		case <-x.signal:
		case <-x.stop:
			return
		}
	}
}

func (x *subscriber[T]) deliver(stream *Stream[T], event T) {
	ctx := context.Background()
	if err := x.invoke(event); err != nil {
		stream.recorder.ListenerFailed(ctx, stream.name)
		stream.logger.Errorf("listener=(%s) of (%s) failed: %v", x.id, stream.name, err)
		return
	}
	stream.recorder.EventDelivered(ctx, stream.name)
}

func (x *subscriber[T]) invoke(event T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()
	return x.handler(event)
}
