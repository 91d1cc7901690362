package internal

import (
	"context"
	"strconv"
	"sync"
)

// telemetry.go
// Hook layer for engine metrics. Service wiring may register an emitter
// (OpenTelemetry, Prometheus or a test stub) via RegisterTelemetryEmitter.
// The default emitter drops everything.

// TelemetryEmitter receives one measurement.
type TelemetryEmitter func(ctx context.Context, name string, labels map[string]string, value any)

const (
	MetricCompileDiagnostics = "attrschema_compile_diagnostics"
	MetricValidationFailures = "attrschema_validation_failures"
	MetricSetCacheLookup     = "attrschema_set_cache_lookup"
	MetricSetLoadLatency     = "attrschema_set_load_latency_ms"
)

var (
	teleMu   sync.Mutex
	teleImpl TelemetryEmitter = func(ctx context.Context, name string, labels map[string]string, value any) {}
)

// RegisterTelemetryEmitter installs fn. A nil fn restores the no-op emitter.
func RegisterTelemetryEmitter(fn TelemetryEmitter) {
	teleMu.Lock()
	defer teleMu.Unlock()
	if fn == nil {
		teleImpl = func(ctx context.Context, name string, labels map[string]string, value any) {}
		return
	}
	teleImpl = fn
}

func emit(ctx context.Context, name string, labels map[string]string, value any) {
	teleMu.Lock()
	fn := teleImpl
	teleMu.Unlock()
	fn(ctx, name, labels, value)
}

// EmitCompileDiagnostics records how many definition problems a compilation dropped.
func EmitCompileDiagnostics(ctx context.Context, setID int64, count int) {
	emit(ctx, MetricCompileDiagnostics, map[string]string{"attribute_set_id": strconv.FormatInt(setID, 10)}, int64(count))
}

// EmitValidationFailures records the field error count of one record validation.
// label outcome: "valid" | "invalid"
func EmitValidationFailures(ctx context.Context, setID int64, failures int) {
	outcome := "valid"
	if failures > 0 {
		outcome = "invalid"
	}
	emit(ctx, MetricValidationFailures, map[string]string{
		"attribute_set_id": strconv.FormatInt(setID, 10),
		"outcome":          outcome,
	}, int64(failures))
}

// EmitSetCacheLookup records a cache hit or miss.
func EmitSetCacheLookup(ctx context.Context, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	emit(ctx, MetricSetCacheLookup, map[string]string{"result": result}, int64(1))
}

// EmitSetLoadLatency records how long a store took to load a set.
func EmitSetLoadLatency(ctx context.Context, ms int64) {
	emit(ctx, MetricSetLoadLatency, nil, ms)
}
