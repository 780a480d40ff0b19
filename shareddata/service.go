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
	"fmt"

	otelmetric "go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/tochemey/shareddata/codec"
	"github.com/tochemey/shareddata/errors"
	"github.com/tochemey/shareddata/internal/locker"
	"github.com/tochemey/shareddata/internal/metric"
	"github.com/tochemey/shareddata/internal/validation"
	"github.com/tochemey/shareddata/internal/xsync"
	"github.com/tochemey/shareddata/log"
	"github.com/tochemey/shareddata/observable"
)

const (
	localScope       = "local"
	distributedScope = "distributed"
)

// Service is the shared-data registry. It hands out named counters, locks
// and maps either scoped to the Service itself (local) or shared through
// its Backend (distributed). Instances are created on first lookup and the
// same name always yields the same instance within a scope.
type Service struct {
	_        locker.NoCopy
	counters *xsync.Map[string, *localCounter]
	locks    *xsync.Map[string, *localLock]
	maps     *xsync.Map[string, any]
	// adapters holds the typed views of the backend binary maps
	adapters *xsync.Map[string, any]
	backend  Backend
	owned    *VirtualCluster
	logger   log.Logger
	provider otelmetric.MeterProvider
	recorder *metric.Recorder
	closed   *atomic.Bool
}

var _ mapHost = (*Service)(nil)

// NewService creates a Service. Without WithBackend the distributed scope
// is served by a private virtual cluster.
func NewService(opts ...Option) *Service {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	service := &Service{
		counters: xsync.NewMap[string, *localCounter](),
		locks:    xsync.NewMap[string, *localLock](),
		maps:     xsync.NewMap[string, any](),
		adapters: xsync.NewMap[string, any](),
		backend:  cfg.backend,
		logger:   cfg.logger,
		provider: cfg.provider,
		recorder: metric.NewProviderRecorder(cfg.provider),
		closed:   atomic.NewBool(false),
	}

	if service.backend == nil {
		service.owned = newVirtualCluster("", cfg.logger, cfg.provider)
		service.backend = service.owned
	}
	return service
}

// Backend returns the backend of the distributed scope
func (s *Service) Backend() Backend {
	return s.backend
}

// Counter returns the named counter. A new counter starts at zero.
func (s *Service) Counter(ctx context.Context, name string, localOnly bool) (Counter, error) {
	if err := s.check("counter", name); err != nil {
		return nil, err
	}

	if !localOnly {
		return s.backend.Counter(ctx, name)
	}

	counter, loaded := s.counters.GetOrCompute(name, func() *localCounter {
		return newLocalCounter(name)
	})
	if !loaded {
		s.created(ctx, "counter", name, localScope)
	}
	return counter, nil
}

// Lock returns the named lock. A new lock is unlocked.
func (s *Service) Lock(ctx context.Context, name string, localOnly bool) (Lock, error) {
	if err := s.check("lock", name); err != nil {
		return nil, err
	}

	if !localOnly {
		return s.backend.Lock(ctx, name)
	}

	lock, loaded := s.locks.GetOrCompute(name, func() *localLock {
		return newLocalLock(name)
	})
	if !loaded {
		s.created(ctx, "lock", name, localScope)
	}
	return lock, nil
}

// LocalCounter returns the named counter of the local scope
func (s *Service) LocalCounter(ctx context.Context, name string) (Counter, error) {
	return s.Counter(ctx, name, true)
}

// DistributedCounter returns the named counter of the distributed scope
func (s *Service) DistributedCounter(ctx context.Context, name string) (Counter, error) {
	return s.Counter(ctx, name, false)
}

// LocalLock returns the named lock of the local scope
func (s *Service) LocalLock(ctx context.Context, name string) (Lock, error) {
	return s.Lock(ctx, name, true)
}

// DistributedLock returns the named lock of the distributed scope
func (s *Service) DistributedLock(ctx context.Context, name string) (Lock, error) {
	return s.Lock(ctx, name, false)
}

// Close closes the local maps and the private virtual cluster. Later
// lookups fail with ErrServiceClosed.
func (s *Service) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	closeMaps(s.maps)
	s.adapters.Drain()
	if s.owned != nil {
		s.owned.close()
	}
}

func (s *Service) typedMap(name string, create func() any) any {
	instance, _ := s.maps.GetOrCompute(name, create)
	return instance
}

func (s *Service) check(kind, name string) error {
	if s.closed.Load() {
		return errors.ErrServiceClosed
	}
	return validation.NewNameValidator(kind, name).Validate()
}

func (s *Service) created(ctx context.Context, kind, name, scope string) {
	s.recorder.InstanceCreated(ctx, kind, scope)
	s.logger.Debugf("%s %s=(%s) created", scope, kind, name)
}

// GetMap returns the named map of s. The same name within a scope always
// yields the same map; asking for it with other key or value types fails
// with ErrTypeMismatch.
//
// Local maps and the maps of a virtual cluster hold typed values. Other
// backends store bytes: keys and values then go through the codecs set
// with WithKeyCodec and WithValueCodec, which default to the string codec
// for strings and JSON otherwise.
func GetMap[K comparable, V any](ctx context.Context, s *Service, name string, localOnly bool, opts ...MapOption) (Map[K, V], error) {
	cfg := new(mapConfig)
	for _, opt := range opts {
		opt(cfg)
	}

	if err := s.check("map", name); err != nil {
		return nil, err
	}

	if err := validation.NewTTLValidator(cfg.defaultTTL).Validate(); err != nil {
		return nil, err
	}

	scope := localScope
	var host mapHost = s
	if !localOnly {
		scope = distributedScope
		backendHost, ok := s.backend.(mapHost)
		if !ok {
			return getCodecMap[K, V](ctx, s, name, cfg)
		}
		host = backendHost
	}

	created := false
	instance := host.typedMap(name, func() any {
		created = true
		return newTTLMap(name, observable.NewStorage[K, V](), &ttlConfig{
			defaultTTL: cfg.defaultTTL,
			logger:     s.logger,
			provider:   s.provider,
		})
	})

	typed, ok := instance.(*TTLMap[K, V])
	if !ok {
		return nil, errors.NewErrTypeMismatch(name, instance, typed)
	}

	if created {
		s.created(ctx, "map", name, scope)
	}
	return typed.AsMap(), nil
}

// LocalMap returns the named map of the local scope
func LocalMap[K comparable, V any](ctx context.Context, s *Service, name string, opts ...MapOption) (Map[K, V], error) {
	return GetMap[K, V](ctx, s, name, true, opts...)
}

// DistributedMap returns the named map of the distributed scope
func DistributedMap[K comparable, V any](ctx context.Context, s *Service, name string, opts ...MapOption) (Map[K, V], error) {
	return GetMap[K, V](ctx, s, name, false, opts...)
}

// getCodecMap returns the typed view of a backend binary map
func getCodecMap[K comparable, V any](ctx context.Context, s *Service, name string, cfg *mapConfig) (Map[K, V], error) {
	var (
		keys   codec.Codec[K]
		values codec.Codec[V]
		ok     bool
	)

	if cfg.keyCodec != nil {
		if keys, ok = cfg.keyCodec.(codec.Codec[K]); !ok {
			return nil, errors.NewErrCodec(fmt.Errorf("key codec %T does not encode %T", cfg.keyCodec, *new(K)))
		}
	}

	if cfg.valueCodec != nil {
		if values, ok = cfg.valueCodec.(codec.Codec[V]); !ok {
			return nil, errors.NewErrCodec(fmt.Errorf("value codec %T does not encode %T", cfg.valueCodec, *new(V)))
		}
	}

	binary, err := s.backend.BinaryMap(ctx, name)
	if err != nil {
		return nil, err
	}

	instance, loaded := s.adapters.GetOrCompute(name, func() any {
		return newCodecMap(binary, keys, values)
	})

	typed, ok := instance.(*codecMap[K, V])
	if !ok {
		return nil, errors.NewErrTypeMismatch(name, instance, typed)
	}

	if !loaded {
		if cfg.hasTTL {
			if err := binary.SetDefaultTTL(cfg.defaultTTL); err != nil {
				return nil, err
			}
		}
		s.created(ctx, "map", name, distributedScope)
	}
	return typed, nil
}

// WithLock runs fn while holding lock and always releases it afterwards
func WithLock(ctx context.Context, lock Lock, fn func(ctx context.Context) error) error {
	if err := lock.Lock(ctx); err != nil {
		return err
	}

	err := fn(ctx)
	// the caller context may be done by now; releasing must still happen
	if unlockErr := lock.Unlock(context.WithoutCancel(ctx)); unlockErr != nil {
		return multierr.Append(err, unlockErr)
	}
	return err
}
