package apm

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ConsoleTraceProvider writes spans to stdout, or drops them when
// built without an exporter. Used in development and tests.
type ConsoleTraceProvider struct {
	tp *sdktrace.TracerProvider
}

// NewEmptyTraceProvider returns a no-op provider.
func NewEmptyTraceProvider() TraceProvider {
	return ConsoleTraceProvider{}
}

// NewConsoleTraceProvider installs a stdout span exporter.
func NewConsoleTraceProvider() TraceProvider {
	exporter, _ := stdouttrace.New(stdouttrace.WithPrettyPrint())
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return ConsoleTraceProvider{tp: tp}
}

func (ctp ConsoleTraceProvider) Stop() error {
	return nil
}
