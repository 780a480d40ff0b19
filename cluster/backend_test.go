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
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travisjeffery/go-dynaport"
	"go.opentelemetry.io/otel/metric/noop"

	sderrors "github.com/tochemey/shareddata/errors"
	"github.com/tochemey/shareddata/log"
	"github.com/tochemey/shareddata/shareddata"
)

type collector[K comparable, V any] struct {
	mu     sync.Mutex
	events []shareddata.Event[K, V]
}

func (c *collector[K, V]) Handle(event shareddata.Event[K, V]) error {
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()
	return nil
}

func (c *collector[K, V]) waitFor(t *testing.T, count int) []shareddata.Event[K, V] {
	t.Helper()
	var events []shareddata.Event[K, V]
	require.Eventually(t, func() bool {
		c.mu.Lock()
		events = append([]shareddata.Event[K, V](nil), c.events...)
		c.mu.Unlock()
		return len(events) >= count
	}, 5*time.Second, 10*time.Millisecond)
	return events
}

func startNode(t *testing.T, peers ...string) (*Backend, string) {
	t.Helper()
	ports := dynaport.Get(2)
	discoveryPort, peersPort := ports[0], ports[1]

	backend := New("test",
		WithHost("127.0.0.1"),
		WithPeersPort(peersPort),
		WithDiscoveryPort(discoveryPort),
		WithPeers(peers...),
		WithPartitionCount(7),
		WithExpiryGrace(time.Second),
		WithLogger(log.DiscardLogger))

	require.NoError(t, backend.Start(context.Background()))
	return backend, fmt.Sprintf("127.0.0.1:%d", discoveryPort)
}

func stopNode(t *testing.T, backend *Backend) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, backend.Stop(ctx))
}

func TestBackendLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("With missing ports", func(t *testing.T) {
		backend := New("test", WithLogger(log.DiscardLogger))
		require.Error(t, backend.Start(ctx))
		assert.False(t, backend.IsRunning())
	})
	t.Run("With invalid peer", func(t *testing.T) {
		ports := dynaport.Get(2)
		backend := New("test",
			WithPeersPort(ports[0]),
			WithDiscoveryPort(ports[1]),
			WithPeers("not-an-address"),
			WithLogger(log.DiscardLogger))
		require.Error(t, backend.Start(ctx))
	})
	t.Run("With instances before start", func(t *testing.T) {
		backend := New("test", WithLogger(log.DiscardLogger))
		_, err := backend.Counter(ctx, "c")
		assert.ErrorIs(t, err, sderrors.ErrBackendNotRunning)
		_, err = backend.Lock(ctx, "l")
		assert.ErrorIs(t, err, sderrors.ErrBackendNotRunning)
		_, err = backend.BinaryMap(ctx, "m")
		assert.ErrorIs(t, err, sderrors.ErrBackendNotRunning)
		assert.NoError(t, backend.Stop(ctx))
	})
	t.Run("With cancelled context", func(t *testing.T) {
		ports := dynaport.Get(2)
		backend := New("test",
			WithHost("127.0.0.1"),
			WithPeersPort(ports[0]),
			WithDiscoveryPort(ports[1]),
			WithLogger(log.DiscardLogger))

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		require.ErrorIs(t, backend.Start(cancelled), context.Canceled)
		assert.False(t, backend.IsRunning())
		_, err := backend.Counter(ctx, "c")
		assert.ErrorIs(t, err, sderrors.ErrBackendNotRunning)
	})
	t.Run("With start and stop", func(t *testing.T) {
		backend, _ := startNode(t)
		assert.True(t, backend.IsRunning())
		assert.Equal(t, "test", backend.ID())
		require.NoError(t, backend.Start(ctx))
		stopNode(t, backend)
		assert.False(t, backend.IsRunning())
	})
}

func TestBackendCounter(t *testing.T) {
	ctx := context.Background()
	backend, _ := startNode(t)
	defer stopNode(t, backend)

	counter, err := backend.Counter(ctx, "n")
	require.NoError(t, err)
	assert.Equal(t, "n", counter.Name())

	value, err := counter.Get(ctx)
	require.NoError(t, err)
	assert.Zero(t, value)

	previous, err := counter.GetAndIncrement(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, previous)
	previous, err = counter.GetAndIncrement(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, previous)

	swapped, err := counter.CompareAndSet(ctx, 2, 40)
	require.NoError(t, err)
	assert.True(t, swapped)
	swapped, err = counter.CompareAndSet(ctx, 2, 50)
	require.NoError(t, err)
	assert.False(t, swapped)

	value, err = counter.Get(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 40, value)
}

func TestBackendLock(t *testing.T) {
	ctx := context.Background()
	backend, _ := startNode(t)
	defer stopNode(t, backend)

	lock, err := backend.Lock(ctx, "guard")
	require.NoError(t, err)
	assert.ErrorIs(t, lock.Unlock(ctx), sderrors.ErrLockNotHeld)

	require.NoError(t, lock.Lock(ctx))
	acquired, err := lock.TryLock(ctx, 50*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, acquired)

	require.NoError(t, lock.Unlock(ctx))
	acquired, err = lock.TryLock(ctx, 50*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, acquired)
	require.NoError(t, lock.Unlock(ctx))
}

func TestBackendMap(t *testing.T) {
	ctx := context.Background()
	backend, _ := startNode(t)
	defer stopNode(t, backend)

	m, err := backend.BinaryMap(ctx, "sessions")
	require.NoError(t, err)
	assert.Equal(t, "sessions", m.Name())

	events := new(collector[string, []byte])
	id, err := m.AddListener(ctx, events)
	require.NoError(t, err)

	_, loaded, err := m.Put(ctx, "a", []byte("1"))
	require.NoError(t, err)
	assert.False(t, loaded)

	// same value: no event
	_, loaded, err = m.Put(ctx, "a", []byte("1"))
	require.NoError(t, err)
	assert.True(t, loaded)

	old, loaded, err := m.Put(ctx, "a", []byte("2"))
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Equal(t, []byte("1"), old)

	current, loaded, err := m.PutIfAbsent(ctx, "a", []byte("3"))
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Equal(t, []byte("2"), current)

	swapped, err := m.CompareAndSwap(ctx, "a", []byte("2"), []byte("4"))
	require.NoError(t, err)
	assert.True(t, swapped)

	_, _, err = m.PutWithTTL(ctx, "b", []byte("x"), 100*time.Millisecond)
	require.NoError(t, err)

	removed, ok, err := m.Remove(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("4"), removed)

	received := events.waitFor(t, 6)
	assert.Equal(t, shareddata.NewEntryAdded("a", []byte("1")), received[0])
	assert.Equal(t, shareddata.NewEntryUpdated("a", []byte("1"), []byte("2")), received[1])
	assert.Equal(t, shareddata.NewEntryUpdated("a", []byte("2"), []byte("4")), received[2])
	assert.Equal(t, shareddata.NewEntryAdded("b", []byte("x")), received[3])
	assert.Equal(t, shareddata.NewEntryRemoved("a", []byte("4")), received[4])
	assert.Equal(t, shareddata.NewEntryExpired("b", []byte("x")), received[5])

	size, err := m.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, size)

	require.NoError(t, m.PutAll(ctx, map[string][]byte{"c": []byte("1"), "d": []byte("2")}))
	require.NoError(t, m.ReplaceAll(ctx, func(_ string, value []byte) []byte { return append(value, '0') }))
	value, ok, err := m.Get(ctx, "d")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("20"), value)

	require.NoError(t, m.Clear(ctx))
	keys, err := m.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	require.NoError(t, m.RemoveListener(ctx, id))
	require.NoError(t, m.RemoveListener(ctx, "unknown"))
}

func TestBackendSharedAcrossNodes(t *testing.T) {
	ctx := context.Background()
	first, address := startNode(t)
	defer stopNode(t, first)
	second, _ := startNode(t, address)
	defer stopNode(t, second)

	s1 := shareddata.NewService(shareddata.WithBackend(first), shareddata.WithLogger(log.DiscardLogger))
	defer s1.Close()
	s2 := shareddata.NewService(shareddata.WithBackend(second), shareddata.WithLogger(log.DiscardLogger))
	defer s2.Close()

	c1, err := s1.DistributedCounter(ctx, "n")
	require.NoError(t, err)
	previous, err := c1.GetAndIncrement(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, previous)

	c2, err := s2.DistributedCounter(ctx, "n")
	require.NoError(t, err)
	previous, err = c2.GetAndIncrement(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, previous)

	type profile struct {
		Name string `json:"name"`
	}

	m1, err := shareddata.DistributedMap[string, profile](ctx, s1, "profiles")
	require.NoError(t, err)
	m2, err := shareddata.DistributedMap[string, profile](ctx, s2, "profiles")
	require.NoError(t, err)

	_, _, err = m1.Put(ctx, "u1", profile{Name: "ada"})
	require.NoError(t, err)

	value, ok, err := m2.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ada", value.Name)
}

func TestBackendMapListenerFailures(t *testing.T) {
	ctx := context.Background()
	backend, _ := startNode(t)
	defer stopNode(t, backend)

	m, err := backend.BinaryMap(ctx, "isolated")
	require.NoError(t, err)

	_, err = m.AddListener(ctx, shareddata.EventHandlerFunc[string, []byte](func(shareddata.Event[string, []byte]) error {
		return fmt.Errorf("rejected")
	}))
	require.NoError(t, err)
	_, err = m.AddListener(ctx, shareddata.EventHandlerFunc[string, []byte](func(shareddata.Event[string, []byte]) error {
		panic("listener failure")
	}))
	require.NoError(t, err)

	events := new(collector[string, []byte])
	_, err = m.AddListener(ctx, events)
	require.NoError(t, err)

	_, _, err = m.Put(ctx, "a", []byte("1"))
	require.NoError(t, err)
	_, _, err = m.Put(ctx, "a", []byte("2"))
	require.NoError(t, err)
	_, _, err = m.Remove(ctx, "a")
	require.NoError(t, err)

	received := events.waitFor(t, 3)
	require.Len(t, received, 3)
	assert.Equal(t, shareddata.NewEntryAdded("a", []byte("1")), received[0])
	assert.Equal(t, shareddata.NewEntryUpdated("a", []byte("1"), []byte("2")), received[1])
	assert.Equal(t, shareddata.NewEntryRemoved("a", []byte("2")), received[2])

	// the node keeps serving after the failures
	_, _, err = m.Put(ctx, "b", []byte("3"))
	require.NoError(t, err)
	received = events.waitFor(t, 4)
	assert.Equal(t, shareddata.NewEntryAdded("b", []byte("3")), received[3])
}

func TestBackendMeterProvider(t *testing.T) {
	backend := New("test", WithLogger(log.DiscardLogger))
	assert.Nil(t, backend.recorder)

	backend = New("test", WithLogger(log.DiscardLogger), WithMeterProvider(noop.NewMeterProvider()))
	assert.NotNil(t, backend.recorder)
}
