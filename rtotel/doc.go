// Package rtotel provides OpenTelemetry integration for corerun runtime metrics.
//
// # Overview
//
// This package implements the corerun.MetricsCollector interface using
// OpenTelemetry, enabling observability of lock contention, atom table
// growth, and hook install/remove activity without the corerun core
// depending on OTEL.
//
// The package is a separate module to keep the corerun core lightweight.
// Applications that don't need metrics collection don't pay for the OTEL
// dependencies.
//
// # Features
//
//   - Automatic Percentiles: OTEL Histograms calculate p50, p95, p99 poll counts for lock waits
//   - Multi-Backend Support: Works with Prometheus, Jaeger, DataDog, any OTEL-compatible backend
//   - Lock Contention Tracking: Acquired vs. timed-out counters per lock name
//   - Atom Table Growth: Live gauge of the atom manager's interned-name count
//   - Hook Activity: Install/remove counters tagged by target address and outcome
//   - Thread-Safe: Lock-free, safe for concurrent use
//
// # Installation
//
//	go get github.com/agilira/corerun/rtotel
//
// # Quick Start
//
//	import (
//	    "github.com/agilira/corerun"
//	    corerunotel "github.com/agilira/corerun/rtotel"
//	    "go.opentelemetry.io/otel/exporters/prometheus"
//	    "go.opentelemetry.io/otel/sdk/metric"
//	)
//
//	exporter, err := prometheus.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	provider := metric.NewMeterProvider(metric.WithReader(exporter))
//	defer provider.Shutdown(context.Background())
//
//	collector, err := corerunotel.NewOTelMetricsCollector(provider)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cfg := corerun.DefaultConfig()
//	cfg.MetricsCollector = collector
//	mgr := corerun.NewAtomManager(cfg)
//
//	http.Handle("/metrics", promhttp.Handler())
//	log.Fatal(http.ListenAndServe(":2112", nil))
//
// # Metrics Exposed
//
// Histogram (with automatic percentiles):
//   - corerun_lock_wait_polls: polls spent before a lock wait settled
//
// Gauge:
//   - corerun_atom_table_size: current size of the atom manager's name index
//
// Counters:
//   - corerun_lock_acquired_total: successful lock acquisitions, by lock name
//   - corerun_lock_timeout_total: lock acquisitions that timed out, by lock name
//   - corerun_hook_installs_total: hook install/remove events, by target and outcome
//
// # Configuration
//
// Custom meter name (useful for multiple corerun-using components in one process):
//
//	collector, err := corerunotel.NewOTelMetricsCollector(
//	    provider,
//	    corerunotel.WithMeterName("myapp_runtime"),
//	)
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│     corerun (Core Module)           │
//	│  • No OTEL dependencies             │
//	│  • MetricsCollector interface       │
//	│  • NoOpMetricsCollector (default)   │
//	└──────────────┬──────────────────────┘
//	               │ implements
//	               ▼
//	┌─────────────────────────────────────┐
//	│    rtotel (This Package)            │
//	│  • OTelMetricsCollector             │
//	│  • OTEL SDK dependencies            │
//	│  • Histogram + Gauge + Counters     │
//	└──────────────┬──────────────────────┘
//	               │ exports to
//	               ▼
//	┌─────────────────────────────────────┐
//	│      OTEL MeterProvider             │
//	└──────────────┬──────────────────────┘
//	     ┌─────────┴──────┬────────┐
//	     ▼                ▼        ▼
//	Prometheus        Jaeger   DataDog
//
// This architecture keeps the core lightweight while enabling observability
// as an optional add-on.
//
// # Thread Safety
//
// All methods are thread-safe and use lock-free OTEL instruments:
//
//	collector, _ := corerunotel.NewOTelMetricsCollector(provider)
//
//	go func() { collector.LockWait("appstate.lock", 3, true) }()
//	go func() { collector.AtomTableSize(128) }()
//	go func() { collector.HookInstalled(0x401000, true) }()
//
// # Compatibility
//
//   - Go: 1.25+
//   - OpenTelemetry: v1.31.0+
//
// # License
//
// Same as corerun core (see LICENSE in the main repository).
package rtotel
