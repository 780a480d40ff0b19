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
	"time"

	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/tochemey/shareddata/hash"
	"github.com/tochemey/shareddata/internal/metric"
	"github.com/tochemey/shareddata/log"
)

// Option is the interface that applies a configuration option.
type Option interface {
	// Apply sets the Option value of a Backend.
	Apply(backend *Backend)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(backend *Backend)

// Apply applies the Backend option
func (f OptionFunc) Apply(backend *Backend) {
	f(backend)
}

// WithHost sets the address the node binds to. An unspecified address
// advertises a private interface address.
func WithHost(host string) Option {
	return OptionFunc(func(backend *Backend) {
		backend.host = host
	})
}

// WithPeersPort sets the port serving the data operations
func WithPeersPort(port int) Option {
	return OptionFunc(func(backend *Backend) {
		backend.peersPort = port
	})
}

// WithDiscoveryPort sets the port of the membership gossip
func WithDiscoveryPort(port int) Option {
	return OptionFunc(func(backend *Backend) {
		backend.discoveryPort = port
	})
}

// WithPeers sets the gossip addresses of the nodes to join on start
func WithPeers(peers ...string) Option {
	return OptionFunc(func(backend *Backend) {
		backend.peers = append(backend.peers, peers...)
	})
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(backend *Backend) {
		if logger != nil {
			backend.logger = logger
		}
	})
}

// WithMeterProvider enables the metrics of the distributed maps on
// provider. Without it they record nothing.
func WithMeterProvider(provider otelmetric.MeterProvider) Option {
	return OptionFunc(func(backend *Backend) {
		backend.recorder = metric.NewProviderRecorder(provider)
	})
}

// WithReplicaCount sets the number of copies of every entry
func WithReplicaCount(count int) Option {
	return OptionFunc(func(backend *Backend) {
		backend.replicaCount = count
	})
}

// WithPartitionCount sets the number of partitions of the key space
func WithPartitionCount(count uint64) Option {
	return OptionFunc(func(backend *Backend) {
		backend.partitionCount = count
	})
}

// WithLockLease bounds how long a distributed lock stays held when its
// holder does not release it. Zero keeps the lock until it is released.
func WithLockLease(lease time.Duration) Option {
	return OptionFunc(func(backend *Backend) {
		backend.lockLease = lease
	})
}

// WithExpiryGrace sets how long past its time-to-live an entry survives in
// the store when the node that wrote it is gone and cannot expire it.
func WithExpiryGrace(grace time.Duration) Option {
	return OptionFunc(func(backend *Backend) {
		backend.expiryGrace = grace
	})
}

// WithHasher sets the partition hasher
func WithHasher(hasher hash.Hasher) Option {
	return OptionFunc(func(backend *Backend) {
		if hasher != nil {
			backend.hasher = hasher
		}
	})
}

// WithBootstrapTimeout sets how long Start waits for the node to join
func WithBootstrapTimeout(timeout time.Duration) Option {
	return OptionFunc(func(backend *Backend) {
		backend.bootstrapTimeout = timeout
	})
}

// WithOperationTimeout bounds every operation sent to the cluster
func WithOperationTimeout(timeout time.Duration) Option {
	return OptionFunc(func(backend *Backend) {
		backend.operationTimeout = timeout
	})
}
