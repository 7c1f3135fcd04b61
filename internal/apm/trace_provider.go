package apm

import (
	"context"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"

	"github.com/fd1az/arb-engine/internal/logger"
)

// Provider identifies a trace exporter backend.
type Provider string

const (
	OTLPGRPCProvider Provider = "OTLP_GRPC_PROVIDER"
	OTLPHTTPProvider Provider = "OTLP_HTTP_PROVIDER"
	ZipkinProvider   Provider = "ZIPKIN_PROVIDER"
	ConsoleProvider  Provider = "CONSOLE_PROVIDER"
	EmptyProvider    Provider = "EMPTY_PROVIDER"
)

// TraceProvider owns the lifecycle of the installed tracer provider.
type TraceProvider interface {
	Stop() error
}

type traceProvider struct {
	tp *sdktrace.TracerProvider
}

// TracerOptions accumulates exporter selection.
type TracerOptions struct {
	exporter     sdktrace.SpanExporter
	providerName string
	useEmpty     bool
}

// TracerOption configures the trace provider.
type TracerOption func(*TracerOptions) error

// WithProvider selects the exporter backend. Unknown providers fall
// back to the empty provider so tracing never blocks startup.
func WithProvider(provider Provider, endpoint string, log logger.LoggerInterface) TracerOption {
	switch provider {
	case OTLPGRPCProvider:
		return useOTLPGRPC(endpoint)
	case OTLPHTTPProvider:
		return useOTLPHTTP(endpoint)
	case ZipkinProvider:
		return useZipkin(endpoint)
	case ConsoleProvider:
		return useConsole()
	case EmptyProvider:
		return useEmpty()
	default:
		log.Warn(context.Background(), "unknown trace provider, tracing disabled", "provider", provider)
		return useEmpty()
	}
}

func useEmpty() TracerOption {
	return func(opts *TracerOptions) error {
		opts.useEmpty = true
		opts.providerName = string(EmptyProvider)
		return nil
	}
}

func useConsole() TracerOption {
	return func(opts *TracerOptions) error {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return err
		}
		opts.exporter = exp
		opts.providerName = string(ConsoleProvider)
		return nil
	}
}

func useZipkin(endpoint string) TracerOption {
	return func(opts *TracerOptions) error {
		exp, err := zipkin.New(endpoint)
		if err != nil {
			return err
		}
		opts.exporter = exp
		opts.providerName = string(ZipkinProvider)
		return nil
	}
}

func useOTLPGRPC(endpoint string) TracerOption {
	return func(opts *TracerOptions) error {
		exp, err := otlptracegrpc.New(
			context.Background(),
			otlptracegrpc.WithEndpointURL(endpoint),
		)
		if err != nil {
			return err
		}
		opts.exporter = exp
		opts.providerName = string(OTLPGRPCProvider)
		return nil
	}
}

func useOTLPHTTP(endpoint string) TracerOption {
	return func(opts *TracerOptions) error {
		exp, err := otlptracehttp.New(
			context.Background(),
			otlptracehttp.WithEndpointURL(endpoint),
		)
		if err != nil {
			return err
		}
		opts.exporter = exp
		opts.providerName = string(OTLPHTTPProvider)
		return nil
	}
}

// NewTraceProvider builds and installs the global tracer provider.
func NewTraceProvider(serviceName string, options ...TracerOption) (TraceProvider, error) {
	if serviceName == "" {
		serviceName = os.Getenv("OTEL_SERVICE_NAME")
	}

	if len(options) == 0 {
		options = []TracerOption{useEmpty()}
	}

	opts := &TracerOptions{}
	for _, opt := range options {
		if err := opt(opts); err != nil {
			return nil, err
		}
	}

	if opts.useEmpty {
		return NewEmptyTraceProvider(), nil
	}

	rsrc, _ := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
			attribute.String("otel.provider", opts.providerName),
		))

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(opts.exporter),
		sdktrace.WithResource(rsrc),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))

	return &traceProvider{tp: tp}, nil
}

func (o *traceProvider) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return o.tp.Shutdown(ctx)
}
