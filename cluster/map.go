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
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/tochemey/olric"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	sderrors "github.com/tochemey/shareddata/errors"
	"github.com/tochemey/shareddata/internal/validation"
	"github.com/tochemey/shareddata/internal/xsync"
	"github.com/tochemey/shareddata/shareddata"
)

// clearConcurrency bounds the parallel removals of Clear
const clearConcurrency = 8

// dmap is a distributed map of encoded entries.
//
// Every change of a key happens under the cluster-wide lock of that key
// and is published on the map channel. The node that writes an entry with
// a time-to-live owns its expiry: it keeps a local timer and, when the
// timer fires, removes the entry if it still holds the version written.
// The entry is also stored with a longer store-level expiry so that it
// does not outlive its writer for long.
type dmap struct {
	name       string
	channel    string
	storage    olric.DMap
	backend    *Backend
	defaultTTL *atomic.Duration

	timersMu sync.Mutex
	timers   map[string]*expiry

	listeners *xsync.Map[string, *subscription]
	closed    *atomic.Bool
}

type expiry struct {
	timer   *time.Timer
	version uuid.UUID
}

type subscription struct {
	pubsub *redis.PubSub
	done   chan struct{}
}

var _ shareddata.Map[string, []byte] = (*dmap)(nil)

func newDMap(name string, storage olric.DMap, backend *Backend) *dmap {
	return &dmap{
		name:       name,
		channel:    channelName(name),
		storage:    storage,
		backend:    backend,
		defaultTTL: atomic.NewDuration(0),
		timers:     make(map[string]*expiry),
		listeners:  xsync.NewMap[string, *subscription](),
		closed:     atomic.NewBool(false),
	}
}

func (m *dmap) Name() string {
	return m.name
}

func (m *dmap) DefaultTTL() time.Duration {
	return m.defaultTTL.Load()
}

// SetDefaultTTL changes the default TTL of this handle only
func (m *dmap) SetDefaultTTL(ttl time.Duration) error {
	if err := validation.NewTTLValidator(ttl).Validate(); err != nil {
		return err
	}
	m.defaultTTL.Store(ttl)
	return nil
}

func (m *dmap) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := m.ready(); err != nil {
		return nil, false, err
	}

	ctx, cancel := m.backend.withTimeout(ctx)
	defer cancel()

	entry, ok, err := m.read(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	return entry.payload, true, nil
}

func (m *dmap) ContainsKey(ctx context.Context, key string) (bool, error) {
	_, ok, err := m.Get(ctx, key)
	return ok, err
}

func (m *dmap) Len(ctx context.Context) (int, error) {
	keys, err := m.Keys(ctx)
	return len(keys), err
}

func (m *dmap) Put(ctx context.Context, key string, value []byte) ([]byte, bool, error) {
	return m.PutWithTTL(ctx, key, value, -1)
}

func (m *dmap) PutWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) ([]byte, bool, error) {
	result, err := m.change(ctx, key, ttl, func([]byte, bool) ([]byte, bool, bool) {
		return value, true, true
	})
	return result.old, result.loaded, err
}

func (m *dmap) PutIfAbsent(ctx context.Context, key string, value []byte) ([]byte, bool, error) {
	return m.PutIfAbsentWithTTL(ctx, key, value, -1)
}

func (m *dmap) PutIfAbsentWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) ([]byte, bool, error) {
	result, err := m.change(ctx, key, ttl, func(_ []byte, loaded bool) ([]byte, bool, bool) {
		return value, true, !loaded
	})
	return result.old, result.loaded, err
}

func (m *dmap) PutAll(ctx context.Context, entries map[string][]byte) error {
	for key, value := range entries {
		if _, _, err := m.Put(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}

func (m *dmap) Remove(ctx context.Context, key string) ([]byte, bool, error) {
	result, err := m.change(ctx, key, -1, func(_ []byte, loaded bool) ([]byte, bool, bool) {
		return nil, false, loaded
	})
	return result.old, result.loaded, err
}

func (m *dmap) CompareAndDelete(ctx context.Context, key string, old []byte) (bool, error) {
	result, err := m.change(ctx, key, -1, func(current []byte, loaded bool) ([]byte, bool, bool) {
		return nil, false, loaded && bytes.Equal(current, old)
	})
	return result.applied, err
}

func (m *dmap) Replace(ctx context.Context, key string, value []byte) ([]byte, bool, error) {
	result, err := m.change(ctx, key, -1, func(_ []byte, loaded bool) ([]byte, bool, bool) {
		return value, true, loaded
	})
	return result.old, result.loaded, err
}

func (m *dmap) CompareAndSwap(ctx context.Context, key string, old, value []byte) (bool, error) {
	result, err := m.change(ctx, key, -1, func(current []byte, loaded bool) ([]byte, bool, bool) {
		return value, true, loaded && bytes.Equal(current, old)
	})
	return result.applied, err
}

func (m *dmap) Compute(ctx context.Context, key string, fn func(string, []byte, bool) ([]byte, bool)) ([]byte, bool, error) {
	result, err := m.change(ctx, key, -1, func(current []byte, loaded bool) ([]byte, bool, bool) {
		value, keep := fn(key, current, loaded)
		return value, keep, keep || loaded
	})
	return result.current, result.present, err
}

func (m *dmap) ComputeIfAbsent(ctx context.Context, key string, fn func(string) ([]byte, bool)) ([]byte, bool, error) {
	result, err := m.change(ctx, key, -1, func(_ []byte, loaded bool) ([]byte, bool, bool) {
		if loaded {
			return nil, false, false
		}
		value, ok := fn(key)
		return value, ok, ok
	})
	return result.current, result.present, err
}

func (m *dmap) ComputeIfPresent(ctx context.Context, key string, fn func(string, []byte) ([]byte, bool)) ([]byte, bool, error) {
	result, err := m.change(ctx, key, -1, func(current []byte, loaded bool) ([]byte, bool, bool) {
		if !loaded {
			return nil, false, false
		}
		value, keep := fn(key, current)
		return value, keep, true
	})
	return result.current, result.present, err
}

func (m *dmap) Merge(ctx context.Context, key string, value []byte, fn func([]byte, []byte) ([]byte, bool)) ([]byte, bool, error) {
	result, err := m.change(ctx, key, -1, func(current []byte, loaded bool) ([]byte, bool, bool) {
		if !loaded {
			return value, true, true
		}
		merged, keep := fn(current, value)
		return merged, keep, true
	})
	return result.current, result.present, err
}

// ReplaceAll replaces the value of every key present when the call starts.
// Each key is replaced atomically; the map as a whole is not locked.
func (m *dmap) ReplaceAll(ctx context.Context, fn func(string, []byte) []byte) error {
	keys, err := m.Keys(ctx)
	if err != nil {
		return err
	}

	for _, key := range keys {
		if _, err := m.change(ctx, key, -1, func(current []byte, loaded bool) ([]byte, bool, bool) {
			if !loaded {
				return nil, false, false
			}
			return fn(key, current), true, true
		}); err != nil {
			return err
		}
	}
	return nil
}

// Clear removes every key present when the call starts
func (m *dmap) Clear(ctx context.Context) error {
	keys, err := m.Keys(ctx)
	if err != nil {
		return err
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(clearConcurrency)
	for _, key := range keys {
		eg.Go(func() error {
			_, _, err := m.Remove(ctx, key)
			return err
		})
	}
	return eg.Wait()
}

func (m *dmap) Range(ctx context.Context, fn func(string, []byte) bool) error {
	keys, err := m.Keys(ctx)
	if err != nil {
		return err
	}

	for _, key := range keys {
		value, ok, err := m.Get(ctx, key)
		if err != nil {
			return err
		}
		if ok && !fn(key, value) {
			return nil
		}
	}
	return nil
}

func (m *dmap) Keys(ctx context.Context) ([]string, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}

	ctx, cancel := m.backend.withTimeout(ctx)
	defer cancel()

	scanner, err := m.storage.Scan(ctx)
	if err != nil {
		return nil, err
	}
	defer scanner.Close()

	var keys []string
	for scanner.Next() {
		keys = append(keys, scanner.Key())
	}
	return keys, nil
}

// AddListener subscribes handler to the map channel. The subscription is
// confirmed before AddListener returns, so every later change is delivered.
func (m *dmap) AddListener(ctx context.Context, handler shareddata.EventHandler[string, []byte]) (string, error) {
	if err := m.ready(); err != nil {
		return "", err
	}

	pubsub := m.backend.pubsub.Subscribe(ctx, m.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		return "", errors.Join(fmt.Errorf("failed to subscribe to map=(%s) events: %w", m.name, err), pubsub.Close())
	}

	id := uuid.NewString()
	sub := &subscription{pubsub: pubsub, done: make(chan struct{})}
	m.listeners.Set(id, sub)
	go m.deliver(sub, handler)
	return id, nil
}

// RemoveListener closes the subscription. Unknown ids are ignored.
func (m *dmap) RemoveListener(_ context.Context, id string) error {
	sub, ok := m.listeners.Get(id)
	if !ok {
		return nil
	}
	m.listeners.Delete(id)
	return sub.close()
}

// deliver hands the messages of one subscription to handler in the order
// they were published
func (m *dmap) deliver(sub *subscription, handler shareddata.EventHandler[string, []byte]) {
	defer close(sub.done)
	logger := m.backend.logger
	recorder := m.backend.recorder
	ctx := context.Background()

	for msg := range sub.pubsub.Channel() {
		event, err := decodeMessage(msg.Payload)
		if err != nil {
			logger.Errorf("map=(%s) dropping undecodable event: %v", m.name, err)
			continue
		}

		if err := invoke(handler, event); err != nil {
			recorder.ListenerFailed(ctx, m.name)
			logger.Errorf("map=(%s) listener failed on event=(%s): %v", m.name, event.Kind(), err)
			continue
		}
		recorder.EventDelivered(ctx, m.name)
	}
}

// invoke runs handler and turns a panic into an error
func invoke(handler shareddata.EventHandler[string, []byte], event shareddata.Event[string, []byte]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()
	return handler.Handle(event)
}

func (s *subscription) close() error {
	err := s.pubsub.Close()
	<-s.done
	return err
}

// changeResult describes the outcome of a change
type changeResult struct {
	old     []byte
	loaded  bool
	current []byte
	present bool
	applied bool
}

// change applies decide to the current value of key while holding the key
// lock. decide returns the next value, whether key keeps a value and
// whether anything is written at all. Writing an unchanged value
// refreshes its time-to-live without publishing an event.
func (m *dmap) change(ctx context.Context, key string, ttl time.Duration, decide func(current []byte, loaded bool) (next []byte, keep, apply bool)) (changeResult, error) {
	var result changeResult
	if err := m.ready(); err != nil {
		return result, err
	}

	err := m.backend.withKeyLock(ctx, m.lockKey(key), func(ctx context.Context) error {
		entry, loaded, err := m.read(ctx, key)
		if err != nil {
			return err
		}

		result.old, result.loaded = entry.payload, loaded
		result.current, result.present = entry.payload, loaded

		next, keep, apply := decide(entry.payload, loaded)
		if !apply {
			return nil
		}
		result.applied = true

		if !keep {
			if !loaded {
				return nil
			}
			if _, err := m.storage.Delete(ctx, key); err != nil {
				return err
			}
			m.cancel(key)
			result.current, result.present = nil, false
			return m.publish(ctx, message{Kind: shareddata.Removed, Key: key, OldValue: entry.payload})
		}

		if err := m.write(ctx, key, next, ttl); err != nil {
			return err
		}
		result.current, result.present = next, true

		switch {
		case !loaded:
			return m.publish(ctx, message{Kind: shareddata.Added, Key: key, NewValue: next})
		case !bytes.Equal(entry.payload, next):
			return m.publish(ctx, message{Kind: shareddata.Updated, Key: key, OldValue: entry.payload, NewValue: next})
		default:
			return nil
		}
	})
	return result, err
}

func (m *dmap) read(ctx context.Context, key string) (envelope, bool, error) {
	resp, err := m.storage.Get(ctx, key)
	if err != nil {
		if errors.Is(err, olric.ErrKeyNotFound) {
			return envelope{}, false, nil
		}
		return envelope{}, false, err
	}

	data, err := resp.Byte()
	if err != nil {
		return envelope{}, false, err
	}

	entry, err := decodeEnvelope(data)
	if err != nil {
		return envelope{}, false, err
	}
	return entry, true, nil
}

// write stores value with a new version and schedules its expiry. The
// key lock must be held.
func (m *dmap) write(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := newEnvelope(value)
	effective := shareddata.ResolveTTL(ttl, m.defaultTTL.Load())

	var options []olric.PutOption
	if effective > 0 {
		options = append(options, olric.PX(effective+m.backend.expiryGrace))
	}

	if err := m.storage.Put(ctx, key, entry.bytes(), options...); err != nil {
		return err
	}

	m.cancel(key)
	if effective > 0 {
		m.schedule(key, entry.version, effective)
	}
	return nil
}

func (m *dmap) schedule(key string, version uuid.UUID, ttl time.Duration) {
	m.timersMu.Lock()
	defer m.timersMu.Unlock()
	if m.closed.Load() {
		return
	}
	m.timers[key] = &expiry{
		version: version,
		timer:   time.AfterFunc(ttl, func() { m.expire(key, version) }),
	}
}

func (m *dmap) cancel(key string) {
	m.timersMu.Lock()
	defer m.timersMu.Unlock()
	if entry, ok := m.timers[key]; ok {
		entry.timer.Stop()
		delete(m.timers, key)
	}
}

// expire removes key when it still holds the version the timer was
// scheduled for. Any other outcome is a stale firing and a no-op.
func (m *dmap) expire(key string, version uuid.UUID) {
	m.timersMu.Lock()
	if entry, ok := m.timers[key]; ok && entry.version == version {
		delete(m.timers, key)
	}
	m.timersMu.Unlock()

	if m.ready() != nil {
		return
	}

	logger := m.backend.logger
	err := m.backend.withKeyLock(context.Background(), m.lockKey(key), func(ctx context.Context) error {
		entry, loaded, err := m.read(ctx, key)
		if err != nil || !loaded || entry.version != version {
			return err
		}

		if _, err := m.storage.Delete(ctx, key); err != nil {
			return err
		}

		m.backend.recorder.EntryExpired(ctx, m.name)
		return m.publish(ctx, message{Kind: shareddata.Expired, Key: key, OldValue: entry.payload})
	})

	if err != nil {
		logger.Errorf("map=(%s) failed to expire key=(%s): %v", m.name, key, err)
	}
}

func (m *dmap) publish(ctx context.Context, msg message) error {
	payload, err := msg.encode()
	if err != nil {
		return sderrors.NewErrCodec(err)
	}
	if _, err := m.backend.pubsub.Publish(ctx, m.channel, payload); err != nil {
		return fmt.Errorf("failed to publish map=(%s) event: %w", m.name, err)
	}
	return nil
}

func (m *dmap) ready() error {
	if m.closed.Load() || !m.backend.IsRunning() {
		return sderrors.ErrBackendNotRunning
	}
	return nil
}

func (m *dmap) lockKey(key string) string {
	return "map:" + m.name + ":" + key
}

// close stops the expiry timers and the listeners of this node
func (m *dmap) close() {
	m.closed.Store(true)

	m.timersMu.Lock()
	for key, entry := range m.timers {
		entry.timer.Stop()
		delete(m.timers, key)
	}
	m.timersMu.Unlock()

	for _, sub := range m.listeners.Drain() {
		_ = sub.close()
	}
}
