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
	"sync"

	"github.com/google/uuid"

	"github.com/tochemey/shareddata/internal/metric"
	"github.com/tochemey/shareddata/log"
)

// Handler consumes one event. A returned error or a panic is logged and
// does not stop later deliveries.
type Handler[T any] func(event T) error

// Filter selects the events a subscriber receives
type Filter[T any] func(event T) bool

// Stream fans events out to subscribers. Each subscriber has its own
// queue and worker: events reach one subscriber in publish order while
// subscribers progress independently. Publish never blocks on handlers.
type Stream[T any] struct {
	name        string
	mu          sync.RWMutex
	subscribers map[string]*subscriber[T]
	logger      log.Logger
	recorder    *metric.Recorder
	wg          sync.WaitGroup
	closed      bool
}

// Option configures a Stream
type Option func(*options)

type options struct {
	name     string
	logger   log.Logger
	recorder *metric.Recorder
}

// WithName sets the name reported in logs and metrics
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger sets the logger used to report failing handlers
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRecorder sets the metric recorder
func WithRecorder(recorder *metric.Recorder) Option {
	return func(o *options) {
		o.recorder = recorder
	}
}

// New creates a Stream
func New[T any](opts ...Option) *Stream[T] {
	config := &options{
		name:   "stream",
		logger: log.DefaultLogger,
	}
	for _, opt := range opts {
		opt(config)
	}

	return &Stream[T]{
		name:        config.name,
		subscribers: make(map[string]*subscriber[T]),
		logger:      config.logger,
		recorder:    config.recorder,
	}
}

// Subscribe registers handler for every future event accepted by filter
// and returns the subscription id. A nil filter accepts every event.
// Subscribing to a closed stream returns an id that never receives events.
func (s *Stream[T]) Subscribe(filter Filter[T], handler Handler[T]) string {
	if filter == nil {
		filter = func(T) bool { return true }
	}

	id := uuid.NewString()
	sub := newSubscriber(id, filter, handler)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return id
	}

	s.subscribers[id] = sub
	s.wg.Add(1)
	go sub.run(s)
	return id
}

// Unsubscribe removes the subscription. Unknown ids are ignored.
func (s *Stream[T]) Unsubscribe(id string) {
	s.mu.Lock()
	sub, ok := s.subscribers[id]
	delete(s.subscribers, id)
	s.mu.Unlock()

	if ok {
		sub.shutdown()
	}
}

// Publish enqueues event to every matching subscriber and returns how many
// received it.
func (s *Stream[T]) Publish(event T) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, sub := range s.subscribers {
		if sub.filter(event) {
			sub.push(event)
			count++
		}
	}
	return count
}

// Len returns the number of active subscriptions
func (s *Stream[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

// Close stops every subscriber and waits for their workers to return.
// It must not be called from a handler.
func (s *Stream[T]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	subscribers := s.subscribers
	s.subscribers = make(map[string]*subscriber[T])
	s.mu.Unlock()

	for _, sub := range subscribers {
		sub.shutdown()
	}
	s.wg.Wait()
}
