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

	"go.opentelemetry.io/otel/metric"

	"github.com/tochemey/shareddata/errors"
	"github.com/tochemey/shareddata/internal/locker"
	"github.com/tochemey/shareddata/internal/validation"
	"github.com/tochemey/shareddata/internal/xsync"
	"github.com/tochemey/shareddata/log"
	"github.com/tochemey/shareddata/observable"
)

// ClusterManager is the process-scoped table of virtual clusters. A
// virtual cluster is created on first reference to its id and lives until
// ClearAll. Services bound to the same virtual cluster share its counters,
// locks and maps without any networking.
type ClusterManager struct {
	_        locker.NoCopy
	clusters *xsync.Map[string, *VirtualCluster]
	logger   log.Logger
	provider metric.MeterProvider
}

// ClusterManagerOption configures a ClusterManager
type ClusterManagerOption func(*ClusterManager)

// WithClusterLogger sets the logger of the manager and of its virtual clusters
func WithClusterLogger(logger log.Logger) ClusterManagerOption {
	return func(m *ClusterManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClusterMeterProvider enables the metrics of the virtual cluster maps
// on provider. Without it they record nothing.
func WithClusterMeterProvider(provider metric.MeterProvider) ClusterManagerOption {
	return func(m *ClusterManager) {
		m.provider = provider
	}
}

// NewClusterManager creates an empty ClusterManager
func NewClusterManager(opts ...ClusterManagerOption) *ClusterManager {
	manager := &ClusterManager{
		clusters: xsync.NewMap[string, *VirtualCluster](),
		logger:   log.DefaultLogger,
	}
	for _, opt := range opts {
		opt(manager)
	}
	return manager
}

// Cluster returns the virtual cluster identified by id, creating it on
// first reference. Concurrent first references observe the same cluster.
func (m *ClusterManager) Cluster(id string) *VirtualCluster {
	cluster, loaded := m.clusters.GetOrCompute(id, func() *VirtualCluster {
		return newVirtualCluster(id, m.logger, m.provider)
	})
	if !loaded {
		m.logger.Debugf("virtual cluster=(%s) created", id)
	}
	return cluster
}

// Len returns the number of virtual clusters
func (m *ClusterManager) Len() int {
	return m.clusters.Len()
}

// ClearAll discards every virtual cluster and closes their maps. The state
// they held is lost; it is meant to reset tests.
func (m *ClusterManager) ClearAll() {
	for id, cluster := range m.clusters.Drain() {
		cluster.close()
		m.logger.Debugf("virtual cluster=(%s) cleared", id)
	}
}

// VirtualCluster is an in-process Backend. Its named instances are shared
// by every Service bound to it.
type VirtualCluster struct {
	_        locker.NoCopy
	id       string
	counters *xsync.Map[string, *localCounter]
	locks    *xsync.Map[string, *localLock]
	maps     *xsync.Map[string, any]
	logger   log.Logger
	provider metric.MeterProvider
}

var (
	_ Backend = (*VirtualCluster)(nil)
	_ mapHost = (*VirtualCluster)(nil)
)

func newVirtualCluster(id string, logger log.Logger, provider metric.MeterProvider) *VirtualCluster {
	return &VirtualCluster{
		id:       id,
		counters: xsync.NewMap[string, *localCounter](),
		locks:    xsync.NewMap[string, *localLock](),
		maps:     xsync.NewMap[string, any](),
		logger:   logger,
		provider: provider,
	}
}

// ID returns the virtual cluster id
func (c *VirtualCluster) ID() string {
	return c.id
}

// Counter returns the named counter, creating it on first use
func (c *VirtualCluster) Counter(_ context.Context, name string) (Counter, error) {
	if err := validation.NewNameValidator("counter", name).Validate(); err != nil {
		return nil, err
	}
	counter, _ := c.counters.GetOrCompute(name, func() *localCounter {
		return newLocalCounter(name)
	})
	return counter, nil
}

// Lock returns the named lock, creating it on first use
func (c *VirtualCluster) Lock(_ context.Context, name string) (Lock, error) {
	if err := validation.NewNameValidator("lock", name).Validate(); err != nil {
		return nil, err
	}
	lock, _ := c.locks.GetOrCompute(name, func() *localLock {
		return newLocalLock(name)
	})
	return lock, nil
}

// BinaryMap returns the named map of encoded entries. It fails with
// ErrTypeMismatch when the name is already used by a typed map.
func (c *VirtualCluster) BinaryMap(_ context.Context, name string) (Map[string, []byte], error) {
	if err := validation.NewNameValidator("map", name).Validate(); err != nil {
		return nil, err
	}

	instance := c.typedMap(name, func() any {
		return newTTLMap(name, observable.NewStorage[string, []byte](), &ttlConfig{
			logger:   c.logger,
			provider: c.provider,
		})
	})

	binary, ok := instance.(*TTLMap[string, []byte])
	if !ok {
		return nil, errors.NewErrTypeMismatch(name, instance, binary)
	}
	return binary.AsMap(), nil
}

func (c *VirtualCluster) typedMap(name string, create func() any) any {
	instance, _ := c.maps.GetOrCompute(name, create)
	return instance
}

func (c *VirtualCluster) close() {
	closeMaps(c.maps)
}

// closeMaps drains table and closes every map it held
func closeMaps(table *xsync.Map[string, any]) {
	for _, instance := range table.Drain() {
		if closer, ok := instance.(interface{ Close() }); ok {
			closer.Close()
		}
	}
}
