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

package metric

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	mapNameKey = "map.name"
	kindKey    = "kind"
	scopeKey   = "scope"
)

// Recorder records the shared-data instruments. A nil Recorder is valid
// and records nothing.
type Recorder struct {
	// Specifies the total number of events handed to listeners
	eventsCount metric.Int64Counter
	// Specifies the total number of failed listener invocations
	failuresCount metric.Int64Counter
	// Specifies the total number of entries removed by their expiry timer
	expiredCount metric.Int64Counter
	// Specifies the total number of named instances created
	instancesCount metric.Int64Counter
}

// NewRecorder creates the instruments on the given meter
func NewRecorder(meter metric.Meter) (*Recorder, error) {
	recorder := new(Recorder)
	var err error

	if recorder.eventsCount, err = meter.Int64Counter(
		"shareddata_events_total",
		metric.WithDescription("Total number of change events delivered to listeners"),
	); err != nil {
		return nil, fmt.Errorf("failed to create eventsCount instrument, %w", err)
	}

	if recorder.failuresCount, err = meter.Int64Counter(
		"shareddata_listener_failures_total",
		metric.WithDescription("Total number of listener invocations that failed"),
	); err != nil {
		return nil, fmt.Errorf("failed to create failuresCount instrument, %w", err)
	}

	if recorder.expiredCount, err = meter.Int64Counter(
		"shareddata_entries_expired_total",
		metric.WithDescription("Total number of entries removed on expiry"),
	); err != nil {
		return nil, fmt.Errorf("failed to create expiredCount instrument, %w", err)
	}

	if recorder.instancesCount, err = meter.Int64Counter(
		"shareddata_instances_created_total",
		metric.WithDescription("Total number of named counters, locks and maps created"),
	); err != nil {
		return nil, fmt.Errorf("failed to create instancesCount instrument, %w", err)
	}

	return recorder, nil
}

// NewProviderRecorder creates a Recorder on the given meter provider. It
// returns nil, which records nothing, when provider is nil or the
// instruments cannot be created.
func NewProviderRecorder(provider metric.MeterProvider) *Recorder {
	if provider == nil {
		return nil
	}
	recorder, err := NewRecorder(NewProvider(WithMeterProvider(provider)).Meter())
	if err != nil {
		return nil
	}
	return recorder
}

// EventDelivered records one event handed to a listener of the named map
func (x *Recorder) EventDelivered(ctx context.Context, name string) {
	if x == nil {
		return
	}
	x.eventsCount.Add(ctx, 1, metric.WithAttributes(attribute.String(mapNameKey, name)))
}

// ListenerFailed records one failed listener invocation
func (x *Recorder) ListenerFailed(ctx context.Context, name string) {
	if x == nil {
		return
	}
	x.failuresCount.Add(ctx, 1, metric.WithAttributes(attribute.String(mapNameKey, name)))
}

// EntryExpired records one expired entry
func (x *Recorder) EntryExpired(ctx context.Context, name string) {
	if x == nil {
		return
	}
	x.expiredCount.Add(ctx, 1, metric.WithAttributes(attribute.String(mapNameKey, name)))
}

// InstanceCreated records the creation of a named instance
func (x *Recorder) InstanceCreated(ctx context.Context, kind, scope string) {
	if x == nil {
		return
	}
	x.instancesCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String(kindKey, kind),
		attribute.String(scopeKey, scope)))
}
