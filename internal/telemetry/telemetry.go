package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/satriahrh/arunika-actor/domain/entities"
)

const instrumentationName = "github.com/satriahrh/arunika-actor"

// Config selects the trace exporter. OTLP wins over TraceFile; with neither
// spans are recorded but not exported.
type Config struct {
	ServiceName  string
	Environment  string
	OTLPEndpoint string
	OTLPInsecure bool
	TraceFile    string
}

// Telemetry owns the meter and tracer providers of the process and records
// the actor's measurements
type Telemetry struct {
	tracer trace.Tracer

	turns            metric.Int64Counter
	stageDuration    metric.Float64Histogram
	cacheLookups     metric.Int64Counter
	retries          metric.Int64Counter
	actuatorFailures metric.Int64Counter

	handler  http.Handler
	shutdown func(context.Context) error
	logger   *zap.Logger
}

// Setup builds the providers and instruments
func Setup(ctx context.Context, config Config, logger *zap.Logger) (*Telemetry, error) {
	serviceName := config.ServiceName
	if serviceName == "" {
		serviceName = "arunika-actor"
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			attribute.String("deployment.environment", config.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}

	traceProvider, traceClose, err := initTracer(ctx, config, res, logger)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	promExporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		traceProvider.Shutdown(ctx)
		traceClose()
		return nil, fmt.Errorf("prometheus exporter: %w", err)
	}
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(promExporter),
		sdkmetric.WithResource(res),
	)

	t := &Telemetry{
		tracer:  traceProvider.Tracer(instrumentationName),
		handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		logger:  logger,
		shutdown: func(ctx context.Context) error {
			var errs []error
			if err := meterProvider.Shutdown(ctx); err != nil {
				errs = append(errs, err)
			}
			if err := traceProvider.Shutdown(ctx); err != nil {
				errs = append(errs, err)
			}
			if err := traceClose(); err != nil {
				errs = append(errs, err)
			}
			return errors.Join(errs...)
		},
	}

	if err := t.initInstruments(meterProvider.Meter(instrumentationName)); err != nil {
		t.shutdown(ctx)
		return nil, err
	}
	return t, nil
}

func initTracer(ctx context.Context, config Config, res *resource.Resource, logger *zap.Logger) (*sdktrace.TracerProvider, func() error, error) {
	noClose := func() error { return nil }

	if endpoint := strings.TrimSpace(config.OTLPEndpoint); endpoint != "" {
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
		if config.OTLPInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err := otlptracegrpc.New(ctx, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("otlp exporter: %w", err)
		}
		logger.Info("Telemetry initialized", zap.String("exporter", "otlp"), zap.String("endpoint", endpoint))
		return sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter), sdktrace.WithResource(res)), noClose, nil
	}

	if path := strings.TrimSpace(config.TraceFile); path != "" {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open trace file: %w", err)
		}
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(file))
		if err != nil {
			file.Close()
			return nil, nil, fmt.Errorf("stdout exporter: %w", err)
		}
		logger.Info("Telemetry initialized", zap.String("exporter", "file"), zap.String("path", path))
		return sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter), sdktrace.WithResource(res)), file.Close, nil
	}

	logger.Debug("Telemetry initialized without trace exporter")
	return sdktrace.NewTracerProvider(sdktrace.WithResource(res)), noClose, nil
}

func (t *Telemetry) initInstruments(meter metric.Meter) error {
	var err error
	if t.turns, err = meter.Int64Counter("actor.turns",
		metric.WithDescription("Finished turns by outcome")); err != nil {
		return err
	}
	if t.stageDuration, err = meter.Float64Histogram("actor.stage.duration",
		metric.WithDescription("Duration of turn pipeline stages"),
		metric.WithUnit("s")); err != nil {
		return err
	}
	if t.cacheLookups, err = meter.Int64Counter("actor.cache.lookups",
		metric.WithDescription("Response cache lookups by result")); err != nil {
		return err
	}
	if t.retries, err = meter.Int64Counter("actor.retries",
		metric.WithDescription("Retried remote calls by operation")); err != nil {
		return err
	}
	if t.actuatorFailures, err = meter.Int64Counter("actor.actuator.write_failures",
		metric.WithDescription("Failed actuator writes")); err != nil {
		return err
	}
	return nil
}

// Handler serves the Prometheus scrape endpoint
func (t *Telemetry) Handler() http.Handler {
	return t.handler
}

// Tracer returns the actor's tracer
func (t *Telemetry) Tracer() trace.Tracer {
	return t.tracer
}

// Shutdown flushes and stops the providers
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return t.shutdown(ctx)
}

// StartStage opens a span for a pipeline stage and records its duration
// when the returned function is called
func (t *Telemetry) StartStage(ctx context.Context, stage entities.TurnState) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := t.tracer.Start(ctx, "turn."+string(stage))
	stageAttr := attribute.String("stage", string(stage))

	return ctx, func(err error) {
		result := "ok"
		if err != nil {
			result = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		t.stageDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(stageAttr, attribute.String("result", result)))
	}
}

// CacheLookup counts a response cache lookup
func (t *Telemetry) CacheLookup(ctx context.Context, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	t.cacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// TurnFinished counts a finished turn
func (t *Telemetry) TurnFinished(ctx context.Context, turn *entities.SessionTurn) {
	t.turns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", string(turn.Outcome)),
		attribute.Bool("cacheHit", turn.CacheHit),
	))
}

// RecordRetry counts a retried call. Its signature matches retry.Policy.OnRetry.
func (t *Telemetry) RecordRetry(op string, attempt int, delay time.Duration, err error) {
	t.retries.Add(context.Background(), 1, metric.WithAttributes(attribute.String("operation", op)))
}

// RecordActuatorFailure counts a failed actuator write
func (t *Telemetry) RecordActuatorFailure(err error) {
	t.actuatorFailures.Add(context.Background(), 1)
}
