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
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/tochemey/shareddata/codec"
	"github.com/tochemey/shareddata/log"
)

// TTLMapOption configures a TTLMap
type TTLMapOption func(*ttlConfig)

type ttlConfig struct {
	defaultTTL time.Duration
	logger     log.Logger
	provider   metric.MeterProvider
}

func defaultTTLConfig() *ttlConfig {
	return &ttlConfig{
		logger: log.DefaultLogger,
	}
}

// WithDefaultTTL sets the initial default time-to-live. Zero, the default,
// means entries never expire unless written with an explicit TTL.
func WithDefaultTTL(ttl time.Duration) TTLMapOption {
	return func(c *ttlConfig) {
		c.defaultTTL = ttl
	}
}

// WithMapLogger sets the logger of the map
func WithMapLogger(logger log.Logger) TTLMapOption {
	return func(c *ttlConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMapMeterProvider enables the map metrics on provider. Without it
// the map records nothing.
func WithMapMeterProvider(provider metric.MeterProvider) TTLMapOption {
	return func(c *ttlConfig) {
		c.provider = provider
	}
}

// Option configures a Service
type Option func(*config)

type config struct {
	backend  Backend
	logger   log.Logger
	provider metric.MeterProvider
}

func defaultConfig() *config {
	return &config{
		logger:   log.DefaultLogger,
		provider: otel.GetMeterProvider(),
	}
}

// WithBackend sets the backend serving the distributed instances. Without
// it the Service uses a private virtual cluster.
func WithBackend(backend Backend) Option {
	return func(c *config) {
		if backend != nil {
			c.backend = backend
		}
	}
}

// WithLogger sets the logger of the Service and of the maps it creates
func WithLogger(logger log.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMeterProvider sets the meter provider of the Service and of the
// maps it creates. It defaults to the global otel meter provider; a nil
// provider disables metrics.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(c *config) {
		c.provider = provider
	}
}

// MapOption configures GetMap
type MapOption func(*mapConfig)

type mapConfig struct {
	keyCodec   any
	valueCodec any
	defaultTTL time.Duration
	hasTTL     bool
}

// WithKeyCodec sets the codec encoding keys for backends that only store
// bytes. The codec must be a codec.Codec of the map key type.
func WithKeyCodec[K any](c codec.Codec[K]) MapOption {
	return func(cfg *mapConfig) {
		cfg.keyCodec = c
	}
}

// WithValueCodec sets the codec encoding values for backends that only
// store bytes. The codec must be a codec.Codec of the map value type.
func WithValueCodec[V any](c codec.Codec[V]) MapOption {
	return func(cfg *mapConfig) {
		cfg.valueCodec = c
	}
}

// WithInitialTTL sets the default TTL of a map created by GetMap. It does
// not change the default TTL of an existing map.
func WithInitialTTL(ttl time.Duration) MapOption {
	return func(cfg *mapConfig) {
		cfg.defaultTTL = ttl
		cfg.hasTTL = true
	}
}
