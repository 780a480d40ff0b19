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
	"fmt"
	"sync"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/tochemey/olric"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	sderrors "github.com/tochemey/shareddata/errors"
	"github.com/tochemey/shareddata/hash"
	"github.com/tochemey/shareddata/internal/metric"
	"github.com/tochemey/shareddata/internal/tcp"
	"github.com/tochemey/shareddata/internal/validation"
	"github.com/tochemey/shareddata/internal/xsync"
	"github.com/tochemey/shareddata/log"
	"github.com/tochemey/shareddata/shareddata"
)

const (
	defaultPartitionCount   = 271
	defaultReplicaCount     = 1
	defaultBootstrapTimeout = 10 * time.Second
	defaultOperationTimeout = 5 * time.Second
	defaultExpiryGrace      = 5 * time.Second
	// lockAttempt bounds a single wait on a distributed lock
	lockAttempt = time.Second
)

// Backend is a shareddata.Backend running an embedded olric node. Every
// Backend started with the same name and reachable peers serves the same
// counters, locks and maps.
type Backend struct {
	mu sync.Mutex

	name             string
	host             string
	advertiseIP      string
	peersPort        int
	discoveryPort    int
	peers            []string
	replicaCount     int
	partitionCount   uint64
	lockLease        time.Duration
	expiryGrace      time.Duration
	bootstrapTimeout time.Duration
	operationTimeout time.Duration
	hasher           hash.Hasher
	logger           log.Logger
	recorder         *metric.Recorder

	server   *olric.Olric
	client   olric.Client
	counters olric.DMap
	locks    olric.DMap
	pubsub   *olric.PubSub

	namedLocks *xsync.Map[string, *lock]
	maps       *xsync.Map[string, *dmap]
	running    *atomic.Bool
}

var _ shareddata.Backend = (*Backend)(nil)

// New creates a Backend. Start must be called before use.
func New(name string, opts ...Option) *Backend {
	backend := &Backend{
		name:             name,
		host:             "0.0.0.0",
		replicaCount:     defaultReplicaCount,
		partitionCount:   defaultPartitionCount,
		expiryGrace:      defaultExpiryGrace,
		bootstrapTimeout: defaultBootstrapTimeout,
		operationTimeout: defaultOperationTimeout,
		hasher:           hash.DefaultHasher(),
		logger:           log.DefaultLogger,
		namedLocks:       xsync.NewMap[string, *lock](),
		maps:             xsync.NewMap[string, *dmap](),
		running:          atomic.NewBool(false),
	}

	for _, opt := range opts {
		opt.Apply(backend)
	}
	return backend
}

// ID returns the name of the backend
func (x *Backend) ID() string {
	return x.name
}

// IsRunning reports whether the node is started
func (x *Backend) IsRunning() bool {
	return x.running.Load()
}

// Start starts the embedded node and joins the configured peers
func (x *Backend) Start(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.running.Load() {
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	chain := validation.New(validation.FailFast()).
		AddValidator(validation.NewNameValidator("backend", x.name)).
		AddAssertion(x.peersPort > 0, "peers port is required").
		AddAssertion(x.discoveryPort > 0, "discovery port is required").
		AddAssertion(x.replicaCount > 0, "replica count must be greater than zero")
	for _, peer := range x.peers {
		chain.AddValidator(validation.NewTCPAddressValidator(peer))
	}

	if err := chain.Validate(); err != nil {
		return err
	}

	logger := x.logger
	advertiseIP, err := tcp.AdvertiseIP(x.host)
	if err != nil {
		return err
	}
	x.advertiseIP = advertiseIP

	logger.Infof("starting shared-data backend=(%s) on node=(%s)...", x.name, tcp.JoinHostPort(advertiseIP, x.peersPort))

	conf, err := x.buildConfig()
	if err != nil {
		logger.Errorf("failed to build the shared-data backend configuration: %v", err)
		return err
	}

	// started is only closed by the node itself
	startCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	conf.Started = func() { cancel() }

	server, err := olric.New(conf)
	if err != nil {
		logger.Error(fmt.Errorf("failed to start the shared-data backend=(%s): %w", x.name, err))
		return err
	}

	x.server = server
	if err := x.startServer(startCtx, ctx); err != nil {
		logger.Error(fmt.Errorf("failed to start the shared-data backend=(%s): %w", x.name, err))
		return err
	}

	x.client = x.server.NewEmbeddedClient()
	if err := x.createMaps(ctx); err != nil {
		logger.Error(fmt.Errorf("failed to start the shared-data backend=(%s): %w", x.name, err))
		return errors.Join(err, x.shutdown(ctx))
	}

	x.running.Store(true)
	logger.Infof("shared-data backend=(%s) successfully started.", x.name)
	return nil
}

// Stop closes the distributed maps and leaves the cluster. Pending expiry
// timers of this node are dropped; the store expires those entries after
// the grace period.
func (x *Backend) Stop(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if !x.running.Load() {
		return nil
	}

	logger := x.logger
	logger.Infof("stopping shared-data backend=(%s)...", x.name)
	x.running.Store(false)

	eg, _ := errgroup.WithContext(ctx)
	for _, m := range x.maps.Drain() {
		eg.Go(func() error {
			m.close()
			return nil
		})
	}
	_ = eg.Wait()
	x.namedLocks.Drain()

	if err := x.server.Shutdown(ctx); err != nil {
		logger.Errorf("failed to stop the shared-data backend=(%s): %v", x.name, err)
		return err
	}

	logger.Infof("shared-data backend=(%s) successfully stopped.", x.name)
	return nil
}

// Counter returns the named distributed counter
func (x *Backend) Counter(_ context.Context, name string) (shareddata.Counter, error) {
	if err := x.check("counter", name); err != nil {
		return nil, err
	}
	return &counter{name: name, backend: x}, nil
}

// Lock returns the named distributed lock. The lock is held by this node
// once acquired, whatever handle acquired it.
func (x *Backend) Lock(_ context.Context, name string) (shareddata.Lock, error) {
	if err := x.check("lock", name); err != nil {
		return nil, err
	}
	l, _ := x.namedLocks.GetOrCompute(name, func() *lock {
		return &lock{name: name, key: "lock:" + name, backend: x}
	})
	return l, nil
}

// BinaryMap returns the named distributed map of encoded entries
func (x *Backend) BinaryMap(_ context.Context, name string) (shareddata.Map[string, []byte], error) {
	if err := x.check("map", name); err != nil {
		return nil, err
	}

	if m, ok := x.maps.Get(name); ok {
		return m, nil
	}

	storage, err := x.client.NewDMap(storageName(name))
	if err != nil {
		return nil, fmt.Errorf("failed to create map=(%s): %w", name, err)
	}

	m, _ := x.maps.GetOrCompute(name, func() *dmap {
		return newDMap(name, storage, x)
	})
	return m, nil
}

func (x *Backend) check(kind, name string) error {
	if !x.running.Load() {
		return sderrors.ErrBackendNotRunning
	}
	return validation.NewNameValidator(kind, name).Validate()
}

// withTimeout bounds ctx by the operation timeout. The operation is not
// cancelled with its caller once sent.
func (x *Backend) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), x.operationTimeout)
}

// withKeyLock runs fn while holding the cluster-wide lock of key
func (x *Backend) withKeyLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	ctx, cancel := x.withTimeout(ctx)
	defer cancel()

	held, err := x.locks.Lock(ctx, key, x.operationTimeout)
	if err != nil {
		return fmt.Errorf("failed to lock key=(%s): %w", key, err)
	}

	fnErr := fn(ctx)
	if err := held.Unlock(ctx); err != nil {
		return errors.Join(fnErr, fmt.Errorf("failed to unlock key=(%s): %w", key, err))
	}
	return fnErr
}

// startServer runs the node until it reports started. It fails when the
// node stops first or when ctx is done before that, in which case the
// node is shut down.
func (x *Backend) startServer(startCtx, ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		errCh <- x.server.Start()
	}()

	select {
	case <-startCtx.Done():
		return nil
	case err := <-errCh:
		if err == nil {
			err = fmt.Errorf("shared-data backend=(%s) stopped before it started", x.name)
		}
		return errors.Join(err, x.shutdown(ctx))
	case <-ctx.Done():
		return errors.Join(ctx.Err(), x.shutdown(ctx))
	}
}

// shutdown stops the node within the operation timeout, whatever the
// state of ctx
func (x *Backend) shutdown(ctx context.Context) error {
	ctx, cancel := x.withTimeout(ctx)
	defer cancel()
	return x.server.Shutdown(ctx)
}

// createMaps creates the shared storages and the events publisher. The node may still be settling
// its routing table right after start, hence the retries.
func (x *Backend) createMaps(ctx context.Context) error {
	retrier := retry.NewRetrier(5, 100*time.Millisecond, time.Second)
	return retrier.RunContext(ctx, func(context.Context) error {
		counters, err := x.client.NewDMap(countersMap)
		if err != nil {
			return err
		}

		locks, err := x.client.NewDMap(locksMap)
		if err != nil {
			return err
		}

		pubsub, err := x.client.NewPubSub(olric.ToAddress(tcp.JoinHostPort(x.advertiseIP, x.peersPort)))
		if err != nil {
			return err
		}

		x.counters = counters
		x.locks = locks
		x.pubsub = pubsub
		return nil
	})
}
