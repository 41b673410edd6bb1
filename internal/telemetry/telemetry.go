// Package telemetry wires OpenTelemetry tracing and metrics. Everything is
// best-effort: a disabled or failing exporter never affects request
// handling.
package telemetry

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/memberwise-ai/memberwise/internal/redact"
)

// Config controls telemetry setup.
type Config struct {
	Enabled     bool
	Endpoint    string
	Protocol    string // grpc | http
	Insecure    bool
	SampleRatio float64
	Service     string
	Version     string
}

// Provider holds the tracer, the meter and the service instruments.
type Provider struct {
	Enabled bool
	tracer  trace.Tracer
	meter   metric.Meter

	requestsCounter   metric.Int64Counter
	rejectionsCounter metric.Int64Counter
	fallbacksCounter  metric.Int64Counter
	requestDuration   metric.Float64Histogram
	groundingScore    metric.Float64Histogram

	shutdownTraceProvider func(context.Context) error
	shutdownMeterProvider func(context.Context) error
}

// NewProvider configures OTLP exporters and providers. When disabled it
// returns no-op implementations so call sites never branch.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !cfg.Enabled {
		p := &Provider{
			Enabled: false,
			tracer:  trace.NewNoopTracerProvider().Tracer(""),
			meter:   noop.NewMeterProvider().Meter(""),
		}
		p.initInstruments()
		return p, nil
	}

	redact.Logf("telemetry enabled (OTLP %s) endpoint=%s", strings.ToLower(cfg.Protocol), cfg.Endpoint)

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			attribute.String("service.name", cfg.Service),
			attribute.String("service.version", cfg.Version),
		),
	)
	if err != nil {
		return nil, err
	}

	sampler := sdktrace.AlwaysSample()
	if cfg.SampleRatio > 0 && cfg.SampleRatio < 1 {
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRatio)
	}

	var traceExp sdktrace.SpanExporter
	var metricReader sdkmetric.Reader
	switch strings.ToLower(cfg.Protocol) {
	case "", "grpc":
		topts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		mopts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			topts = append(topts, otlptracegrpc.WithInsecure())
			mopts = append(mopts, otlpmetricgrpc.WithInsecure())
		}
		if traceExp, err = otlptracegrpc.New(ctx, topts...); err != nil {
			return nil, err
		}
		mexp, err := otlpmetricgrpc.New(ctx, mopts...)
		if err != nil {
			return nil, err
		}
		metricReader = sdkmetric.NewPeriodicReader(mexp)
	case "http":
		topts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		mopts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			topts = append(topts, otlptracehttp.WithInsecure())
			mopts = append(mopts, otlpmetrichttp.WithInsecure())
		}
		if traceExp, err = otlptracehttp.New(ctx, topts...); err != nil {
			return nil, err
		}
		mexp, err := otlpmetrichttp.New(ctx, mopts...)
		if err != nil {
			return nil, err
		}
		metricReader = sdkmetric.NewPeriodicReader(mexp)
	default:
		return nil, fmt.Errorf("unsupported telemetry protocol %q", cfg.Protocol)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sampler),
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(metricReader))
	otel.SetMeterProvider(mp)

	p := &Provider{
		Enabled:               true,
		tracer:                tp.Tracer("memberwise"),
		meter:                 mp.Meter("memberwise"),
		shutdownTraceProvider: tp.Shutdown,
		shutdownMeterProvider: mp.Shutdown,
	}
	p.initInstruments()
	return p, nil
}

func (p *Provider) initInstruments() {
	if p == nil {
		return
	}
	// Instrument creation errors are ignored; telemetry is best-effort.
	p.requestsCounter, _ = p.meter.Int64Counter("memberwise_requests_total")
	p.rejectionsCounter, _ = p.meter.Int64Counter("memberwise_guard_rejections_total")
	p.fallbacksCounter, _ = p.meter.Int64Counter("memberwise_fallbacks_total")
	p.requestDuration, _ = p.meter.Float64Histogram("memberwise_request_duration_ms")
	p.groundingScore, _ = p.meter.Float64Histogram("memberwise_grounding_score")
}

// Tracer returns the tracer.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil {
		return trace.NewNoopTracerProvider().Tracer("")
	}
	return p.tracer
}

// Meter returns the meter.
func (p *Provider) Meter() metric.Meter {
	if p == nil {
		return noop.NewMeterProvider().Meter("")
	}
	return p.meter
}

// Shutdown flushes both providers.
func (p *Provider) Shutdown(ctx context.Context) {
	if p == nil {
		return
	}
	if p.shutdownTraceProvider != nil {
		_ = p.shutdownTraceProvider(ctx)
	}
	if p.shutdownMeterProvider != nil {
		_ = p.shutdownMeterProvider(ctx)
	}
}

// RecordRequest counts one finished request with its decision label.
func (p *Provider) RecordRequest(decision, projectID, providerName string, durMs float64) {
	if p == nil {
		return
	}
	labels := metric.WithAttributes(
		attribute.String("memberwise.decision", decision),
		attribute.String("memberwise.project_id", projectID),
		attribute.String("memberwise.provider", providerName),
	)
	p.requestsCounter.Add(context.Background(), 1, labels)
	p.requestDuration.Record(context.Background(), durMs, labels)
}

// RecordRejection counts one guard rejection by stage.
func (p *Provider) RecordRejection(stage, projectID string) {
	if p == nil {
		return
	}
	p.rejectionsCounter.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("memberwise.stage", stage),
		attribute.String("memberwise.project_id", projectID),
	))
}

// RecordFallback counts one fallback answer by cause.
func (p *Provider) RecordFallback(cause, projectID string) {
	if p == nil {
		return
	}
	p.fallbacksCounter.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("memberwise.cause", cause),
		attribute.String("memberwise.project_id", projectID),
	))
}

// RecordGroundingScore observes one advisory grounding verdict.
func (p *Provider) RecordGroundingScore(projectID string, score float64, grounded bool) {
	if p == nil {
		return
	}
	p.groundingScore.Record(context.Background(), score, metric.WithAttributes(
		attribute.String("memberwise.project_id", projectID),
		attribute.Bool("memberwise.grounded", grounded),
	))
}
