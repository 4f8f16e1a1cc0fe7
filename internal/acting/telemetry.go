package acting

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// InstrumentationName is the tracer and meter name used by the strategies.
const InstrumentationName = "github.com/elektrokombinacija/taxi-htn/internal/acting"

// telemetry holds the OpenTelemetry instruments shared by a strategy's
// episodes. They are created once per strategy.
type telemetry struct {
	tracer trace.Tracer

	episodes       metric.Int64Counter
	decompositions metric.Int64Counter
	steps          metric.Int64Counter
	noEffect       metric.Int64Counter
	failureReplans metric.Int64Counter
	planDuration   metric.Float64Histogram
	reward         metric.Float64Histogram
}

func newTelemetry(tracer trace.Tracer, meter metric.Meter) (*telemetry, error) {
	if tracer == nil {
		tracer = tracenoop.NewTracerProvider().Tracer(InstrumentationName)
	}
	if meter == nil {
		meter = metricnoop.NewMeterProvider().Meter(InstrumentationName)
	}

	t := &telemetry{tracer: tracer}
	var err error

	if t.episodes, err = meter.Int64Counter(
		"taxi.episodes",
		metric.WithDescription("Episodes run, by strategy and outcome"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("create episodes counter: %w", err)
	}
	if t.decompositions, err = meter.Int64Counter(
		"taxi.decompositions",
		metric.WithDescription("Planner calls"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("create decompositions counter: %w", err)
	}
	if t.steps, err = meter.Int64Counter(
		"taxi.steps",
		metric.WithDescription("Actions executed against the simulator"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("create steps counter: %w", err)
	}
	if t.noEffect, err = meter.Int64Counter(
		"taxi.no_effect_actions",
		metric.WithDescription("Actions that left the observation unchanged"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("create no-effect counter: %w", err)
	}
	if t.failureReplans, err = meter.Int64Counter(
		"taxi.failure_replans",
		metric.WithDescription("Plans discarded after consecutive no-effect actions"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("create failure replans counter: %w", err)
	}
	if t.planDuration, err = meter.Float64Histogram(
		"taxi.plan.duration",
		metric.WithDescription("Planner call latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("create plan duration histogram: %w", err)
	}
	if t.reward, err = meter.Float64Histogram(
		"taxi.episode.reward",
		metric.WithDescription("Cumulative episode reward"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("create reward histogram: %w", err)
	}

	return t, nil
}

func strategyAttr(name string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("strategy", name))
}

func (t *telemetry) recordEpisode(ctx context.Context, m Metrics) {
	opts := metric.WithAttributes(
		attribute.String("strategy", m.Strategy),
		attribute.String("outcome", string(m.Outcome)),
	)
	t.episodes.Add(ctx, 1, opts)
	t.reward.Record(ctx, m.TotalReward, strategyAttr(m.Strategy))
}
