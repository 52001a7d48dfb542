// Package rtotel provides OpenTelemetry integration for corerun runtime metrics.
//
// This package implements the corerun.MetricsCollector interface using
// OpenTelemetry, exposing lock contention, atom table growth, and hook
// install/remove activity as OTEL instruments with automatic percentile
// calculation (p50, p95, p99) and multi-backend support (Prometheus,
// Jaeger, DataDog, Grafana).
//
// # Features
//
//   - Automatic percentile calculation via OTEL Histograms for lock poll counts
//   - Acquired/timed-out counters per lock name
//   - Atom table size as a synchronous gauge
//   - Hook install/remove counters keyed by outcome
//   - Thread-safe, lock-free implementation
//   - Compatible with any OTEL backend (Prometheus, Jaeger, DataDog, etc.)
//   - Optional: separate module, no impact on core corerun performance
//
// # Usage
//
//	import (
//	    "github.com/agilira/corerun"
//	    corerunotel "github.com/agilira/corerun/rtotel"
//	    "go.opentelemetry.io/otel/exporters/prometheus"
//	    "go.opentelemetry.io/otel/sdk/metric"
//	)
//
//	// Setup OTEL with Prometheus exporter
//	exporter, _ := prometheus.New()
//	provider := metric.NewMeterProvider(metric.WithReader(exporter))
//
//	// Create collector
//	metricsCollector, _ := corerunotel.NewOTelMetricsCollector(provider)
//
//	// Configure corerun
//	cfg := corerun.DefaultConfig()
//	cfg.MetricsCollector = metricsCollector
//
// # Metrics Exposed
//
//   - corerun_lock_wait_polls: Histogram of polls spent acquiring a lock before it settled
//   - corerun_lock_acquired_total: Counter of successful lock acquisitions, by lock name
//   - corerun_lock_timeout_total: Counter of lock acquisitions that timed out, by lock name
//   - corerun_atom_table_size: Gauge of the atom manager's current name index size
//   - corerun_hook_installs_total: Counter of hook install/remove events, by outcome
//
// All metrics are automatically aggregated by the OTEL SDK and can be exported to
// any OTEL-compatible backend. Histograms automatically calculate percentiles (p50, p95, p99).
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package rtotel

import (
	"context"
	"errors"
	"fmt"

	"github.com/agilira/corerun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetricsCollector implements corerun.MetricsCollector using OpenTelemetry.
//
// This collector records runtime primitive activity to OpenTelemetry
// metrics, enabling observability of lock contention, atom table growth,
// and hook installation without corerun itself depending on OTEL.
//
// Thread-safety: Safe for concurrent use by multiple goroutines.
// The underlying OTEL instruments are thread-safe and lock-free.
//
// Performance: Minimal overhead (<100ns per operation). Each call builds
// its attribute options, and HookInstalled formats the target address.
type OTelMetricsCollector struct {
	lockWaitPolls metric.Int64Histogram // distribution of polls-to-settle per lock wait
	lockAcquired  metric.Int64Counter   // successful acquisitions, by lock name
	lockTimeout   metric.Int64Counter   // timed-out acquisitions, by lock name
	atomTableSize metric.Int64Gauge     // current atom manager name-index size
	hookInstalls  metric.Int64Counter   // hook install/remove events, by outcome
}

// Options configures an OTelMetricsCollector.
type Options struct {
	// MeterName is the name of the OpenTelemetry meter.
	// Default: "github.com/agilira/corerun"
	MeterName string
}

// Option is a functional option for configuring OTelMetricsCollector.
type Option func(*Options)

// WithMeterName sets a custom meter name.
// This is useful for distinguishing metrics from multiple corerun-using
// processes, or integrating with existing OTEL instrumentation.
func WithMeterName(name string) Option {
	return func(o *Options) {
		o.MeterName = name
	}
}

// NewOTelMetricsCollector creates a new OpenTelemetry metrics collector.
//
// Parameters:
//   - provider: OpenTelemetry MeterProvider. Must not be nil.
//   - opts: Optional configuration options (meter name, etc.)
//
// Returns:
//   - *OTelMetricsCollector: The collector instance
//   - error: an error if provider is nil, or if OTEL instrument creation fails
//
// The collector creates the following OTEL instruments:
//   - Int64Histogram for lock wait poll counts
//   - Int64Counter for lock acquisitions, lock timeouts, and hook installs
//   - Int64Gauge for atom table size
//
// All instruments are thread-safe and lock-free.
func NewOTelMetricsCollector(provider metric.MeterProvider, opts ...Option) (*OTelMetricsCollector, error) {
	if provider == nil {
		return nil, errors.New("meter provider cannot be nil")
	}

	options := Options{
		MeterName: "github.com/agilira/corerun",
	}
	for _, opt := range opts {
		opt(&options)
	}

	meter := provider.Meter(options.MeterName)
	collector := &OTelMetricsCollector{}

	var err error
	collector.lockWaitPolls, err = meter.Int64Histogram(
		"corerun_lock_wait_polls",
		metric.WithDescription("Number of polls a thread spent before a lock wait settled"),
		metric.WithUnit("{poll}"),
	)
	if err != nil {
		return nil, fmt.Errorf("rtotel: creating lock wait histogram: %w", err)
	}

	collector.lockAcquired, err = meter.Int64Counter(
		"corerun_lock_acquired_total",
		metric.WithDescription("Total number of successful lock acquisitions"),
	)
	if err != nil {
		return nil, fmt.Errorf("rtotel: creating lock acquired counter: %w", err)
	}

	collector.lockTimeout, err = meter.Int64Counter(
		"corerun_lock_timeout_total",
		metric.WithDescription("Total number of lock acquisitions that timed out"),
	)
	if err != nil {
		return nil, fmt.Errorf("rtotel: creating lock timeout counter: %w", err)
	}

	collector.atomTableSize, err = meter.Int64Gauge(
		"corerun_atom_table_size",
		metric.WithDescription("Current number of interned atoms in the atom manager's name index"),
		metric.WithUnit("{atom}"),
	)
	if err != nil {
		return nil, fmt.Errorf("rtotel: creating atom table size gauge: %w", err)
	}

	collector.hookInstalls, err = meter.Int64Counter(
		"corerun_hook_installs_total",
		metric.WithDescription("Total number of hook install/remove events"),
	)
	if err != nil {
		return nil, fmt.Errorf("rtotel: creating hook installs counter: %w", err)
	}

	return collector, nil
}

// LockWait records that a thread polled n times before acquiring (or
// timing out on) a ThreadLockable/RWLock.
//
// This method:
//   - Records the poll count to the lock wait histogram (used for percentile calculation)
//   - Increments either the acquired or timeout counter, tagged with the lock name
//
// Thread-safety: Safe for concurrent use.
func (c *OTelMetricsCollector) LockWait(name string, polls int, acquired bool) {
	ctx := context.Background()
	attrs := metric.WithAttributes(attribute.String("lock", name))

	c.lockWaitPolls.Record(ctx, int64(polls), attrs)
	if acquired {
		c.lockAcquired.Add(ctx, 1, attrs)
	} else {
		c.lockTimeout.Add(ctx, 1, attrs)
	}
}

// AtomTableSize records the current size of the atom manager's name index,
// after an insertion or removal.
//
// Thread-safety: Safe for concurrent use.
func (c *OTelMetricsCollector) AtomTableSize(n int) {
	c.atomTableSize.Record(context.Background(), int64(n))
}

// HookInstalled records a successful hook install/remove.
//
// Thread-safety: Safe for concurrent use.
func (c *OTelMetricsCollector) HookInstalled(target uintptr, installed bool) {
	c.hookInstalls.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("target", fmt.Sprintf("%#x", target)),
		attribute.Bool("installed", installed),
	))
}

// Compile-time interface check
var _ corerun.MetricsCollector = (*OTelMetricsCollector)(nil)
