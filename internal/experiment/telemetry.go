package experiment

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/elektrokombinacija/taxi-htn/internal/acting"
)

// HistogramTotals is the aggregate of one histogram over all attributes.
type HistogramTotals struct {
	Count uint64
	Sum   float64
}

// Mean returns Sum/Count, 0 when empty.
func (h HistogramTotals) Mean() float64 {
	if h.Count == 0 {
		return 0
	}
	return h.Sum / float64(h.Count)
}

// Snapshot is the collected state of the in-process instruments.
type Snapshot struct {
	Counters   map[string]int64
	Histograms map[string]HistogramTotals
	Spans      map[string]int
}

// Telemetry wires the strategies to in-process OpenTelemetry providers: a
// manual metric reader and a span processor that counts finished spans.
type Telemetry struct {
	reader *sdkmetric.ManualReader
	mp     *sdkmetric.MeterProvider
	tp     *sdktrace.TracerProvider
	spans  *spanCounter
}

// NewTelemetry creates the providers.
func NewTelemetry() *Telemetry {
	reader := sdkmetric.NewManualReader()
	spans := &spanCounter{counts: map[string]int{}}
	return &Telemetry{
		reader: reader,
		mp:     sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		tp:     sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans)),
		spans:  spans,
	}
}

// Options returns the acting options that enable instrumentation.
func (t *Telemetry) Options() []acting.Option {
	return []acting.Option{
		acting.WithTracer(t.tp.Tracer(acting.InstrumentationName)),
		acting.WithMeter(t.mp.Meter(acting.InstrumentationName)),
	}
}

// Snapshot collects the current instrument values.
func (t *Telemetry) Snapshot(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{
		Counters:   map[string]int64{},
		Histograms: map[string]HistogramTotals{},
		Spans:      t.spans.snapshot(),
	}

	var rm metricdata.ResourceMetrics
	if err := t.reader.Collect(ctx, &rm); err != nil {
		return snap, err
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					snap.Counters[m.Name] += dp.Value
				}
			case metricdata.Histogram[float64]:
				h := snap.Histograms[m.Name]
				for _, dp := range data.DataPoints {
					h.Count += dp.Count
					h.Sum += dp.Sum
				}
				snap.Histograms[m.Name] = h
			}
		}
	}
	return snap, nil
}

// Log writes a snapshot to logger at info level.
func (t *Telemetry) Log(ctx context.Context, logger *slog.Logger) error {
	snap, err := t.Snapshot(ctx)
	if err != nil {
		return err
	}
	var attrs []any
	for _, name := range sortedKeys(snap.Counters) {
		attrs = append(attrs, name, snap.Counters[name])
	}
	for _, name := range sortedKeys(snap.Histograms) {
		attrs = append(attrs, name+".mean", snap.Histograms[name].Mean())
	}
	for _, name := range sortedKeys(snap.Spans) {
		attrs = append(attrs, "spans."+name, snap.Spans[name])
	}
	logger.Info("telemetry", attrs...)
	return nil
}

// Shutdown stops both providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return errors.Join(t.mp.Shutdown(ctx), t.tp.Shutdown(ctx))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// spanCounter counts ended spans by name.
type spanCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *spanCounter) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (c *spanCounter) OnEnd(s sdktrace.ReadOnlySpan) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[s.Name()]++
}

func (c *spanCounter) Shutdown(context.Context) error   { return nil }
func (c *spanCounter) ForceFlush(context.Context) error { return nil }

func (c *spanCounter) snapshot() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}
