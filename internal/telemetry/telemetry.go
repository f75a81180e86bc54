package telemetry

import (
	"context"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

var (
	// Logger is a no-op until InitTelemetry replaces it, so packages can log
	// unconditionally.
	Logger = zap.NewNop()

	tracerProvider *sdktrace.TracerProvider
	serviceName    string
)

// InitTelemetry configures the global zap logger and, when an OTLP endpoint
// is set, the OpenTelemetry tracer provider.
func InitTelemetry(service string) error {
	serviceName = service

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	Logger = logger

	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		// Tracing is optional in local and test environments.
		otel.SetTextMapPropagator(propagation.TraceContext{})
		return nil
	}

	exporter, err := otlptracehttp.New(context.Background(),
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return err
	}

	res, err := sdkresource.New(context.Background(),
		sdkresource.WithAttributes(semconv.ServiceName(service)),
	)
	if err != nil {
		return err
	}

	tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return nil
}

func Shutdown(ctx context.Context) {
	if tracerProvider != nil {
		if err := tracerProvider.Shutdown(ctx); err != nil && Logger != nil {
			Logger.Error("Failed to shut down tracer provider", zap.Error(err))
		}
	}
	if Logger != nil {
		Logger.Sync()
	}
}

// TracingMiddleware starts a span per request and propagates it through the
// request context.
func TracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tracer := otel.Tracer(serviceName)
		ctx, span := tracer.Start(c.Request.Context(), c.FullPath())
		span.SetAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", c.FullPath()),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		span.SetAttributes(attribute.Int("http.status_code", c.Writer.Status()))
	}
}
