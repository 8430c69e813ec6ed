package telemetry

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

var (
	// Global tracer for the application
	Tracer trace.Tracer

	// Global meter for custom metrics
	Meter metric.Meter

	// Custom metrics
	SessionsCreated  metric.Int64Counter
	AnalysesRun      metric.Int64Counter
	CalculatorRuns   metric.Int64Counter
	AgentDispatches  metric.Int64Counter
	DispatchLatency  metric.Float64Histogram
	DashboardLatency metric.Float64Histogram
)

// InitTelemetry initializes OpenTelemetry tracing and metrics
func InitTelemetry(ctx context.Context, serviceName, otelEndpoint string) (func(context.Context) error, error) {
	// Create resource with service information
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion("1.0.0"),
			attribute.String("environment", "development"),
		),
	)
	if err != nil {
		return nil, err
	}

	// Create OTLP trace exporter
	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(otelEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	// Create trace provider
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	// Set global trace provider and propagator
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	Tracer = otel.Tracer(serviceName)
	Meter = otel.Meter(serviceName)

	if err := initMetrics(); err != nil {
		return nil, err
	}

	log.Printf("[Telemetry] Initialized with endpoint %s", otelEndpoint)

	// Return shutdown function
	return func(ctx context.Context) error {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return traceProvider.Shutdown(shutdownCtx)
	}, nil
}

// RecordSessionCreated counts a new customer session.
func RecordSessionCreated(ctx context.Context) {
	if SessionsCreated != nil {
		SessionsCreated.Add(ctx, 1)
	}
}

// RecordAnalysisRun counts a completed ICP analysis.
func RecordAnalysisRun(ctx context.Context) {
	if AnalysesRun != nil {
		AnalysesRun.Add(ctx, 1)
	}
}

// RecordCalculatorRun counts a completed calculator run.
func RecordCalculatorRun(ctx context.Context) {
	if CalculatorRuns != nil {
		CalculatorRuns.Add(ctx, 1)
	}
}

// RecordDispatch counts an agent dispatch and its latency.
func RecordDispatch(ctx context.Context, durationMs float64) {
	if AgentDispatches != nil {
		AgentDispatches.Add(ctx, 1)
	}
	if DispatchLatency != nil {
		DispatchLatency.Record(ctx, durationMs)
	}
}

// RecordDashboardLatency records how long dashboard assembly took.
func RecordDashboardLatency(ctx context.Context, durationMs float64) {
	if DashboardLatency != nil {
		DashboardLatency.Record(ctx, durationMs)
	}
}

// initMetrics creates all custom metrics
func initMetrics() error {
	var err error

	SessionsCreated, err = Meter.Int64Counter(
		"revintel.sessions.created",
		metric.WithDescription("Number of customer sessions created"),
	)
	if err != nil {
		return err
	}

	AnalysesRun, err = Meter.Int64Counter(
		"revintel.icp.analyses",
		metric.WithDescription("Number of ICP analyses run"),
	)
	if err != nil {
		return err
	}

	CalculatorRuns, err = Meter.Int64Counter(
		"revintel.calculator.runs",
		metric.WithDescription("Number of cost calculator runs"),
	)
	if err != nil {
		return err
	}

	AgentDispatches, err = Meter.Int64Counter(
		"revintel.agents.dispatches",
		metric.WithDescription("Number of agent operations dispatched"),
	)
	if err != nil {
		return err
	}

	DispatchLatency, err = Meter.Float64Histogram(
		"revintel.agents.dispatch_latency",
		metric.WithDescription("Agent dispatch latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	DashboardLatency, err = Meter.Float64Histogram(
		"revintel.dashboard.latency",
		metric.WithDescription("Dashboard assembly latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	return nil
}
