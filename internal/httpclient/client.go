// Package httpclient provides an OTel-instrumented HTTP client.
package httpclient

import (
	"context"
	"net"
	"net/http"
	"net/http/httptrace"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultDialKeepAlive         = 10 * time.Second
	defaultRequestTimeout        = 10 * time.Second
	defaultMaxConnsPerHost       = 5
	defaultIdleConnTimeout       = 2 * time.Minute
	defaultExpectContinueTimeout = 100 * time.Millisecond

	metricRequestCounter = "http_client_requests_total"
)

// Client builds and executes instrumented HTTP requests.
type Client interface {
	NewRequest() Request
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// InstrumentedClient wraps http.Client with OTel tracing and metrics.
type InstrumentedClient struct {
	client         *http.Client
	requestCounter metric.Int64Counter
	providerName   string
	tracer         trace.Tracer
	baseURL        string
	defaultHeaders map[string]string
}

// ClientOptions holds client configuration.
type ClientOptions struct {
	providerName   string
	baseURL        string
	headers        map[string]string
	requestTimeout *time.Duration
	roundTripper   http.RoundTripper
}

// ClientOption configures the client.
type ClientOption func(*ClientOptions)

// WithProviderName labels metrics and spans with the upstream name.
func WithProviderName(name string) ClientOption {
	return func(o *ClientOptions) { o.providerName = name }
}

// WithBaseURL prefixes relative request URLs.
func WithBaseURL(url string) ClientOption {
	return func(o *ClientOptions) { o.baseURL = url }
}

// WithHeaders sets default headers for all requests.
func WithHeaders(headers map[string]string) ClientOption {
	return func(o *ClientOptions) { o.headers = headers }
}

// WithRequestTimeout overrides the default request timeout.
func WithRequestTimeout(timeout time.Duration) ClientOption {
	return func(o *ClientOptions) { o.requestTimeout = &timeout }
}

// WithRoundTripper sets a custom transport, mainly for tests.
func WithRoundTripper(rt http.RoundTripper) ClientOption {
	return func(o *ClientOptions) { o.roundTripper = rt }
}

// NewInstrumentedClient creates a new instrumented HTTP client.
func NewInstrumentedClient(opts ...ClientOption) (Client, error) {
	options := &ClientOptions{}
	for _, o := range opts {
		o(options)
	}

	httpClient := &http.Client{Timeout: defaultRequestTimeout}
	if options.requestTimeout != nil {
		httpClient.Timeout = *options.requestTimeout
	}

	transport := options.roundTripper
	if transport == nil {
		transport = &http.Transport{
			DialContext: (&net.Dialer{
				KeepAlive: defaultDialKeepAlive,
			}).DialContext,
			MaxConnsPerHost:       defaultMaxConnsPerHost,
			IdleConnTimeout:       defaultIdleConnTimeout,
			ExpectContinueTimeout: defaultExpectContinueTimeout,
		}
	}
	httpClient.Transport = otelhttp.NewTransport(
		transport,
		otelhttp.WithClientTrace(func(ctx context.Context) *httptrace.ClientTrace {
			return otelhttptrace.NewClientTrace(ctx)
		}),
	)

	providerName := options.providerName
	if providerName == "" {
		providerName = "default"
	}

	meter := otel.GetMeterProvider().Meter(
		"instrumented_http_client",
		metric.WithInstrumentationAttributes(attribute.String("provider", providerName)),
	)
	requestCounter, err := meter.Int64Counter(
		metricRequestCounter,
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedClient{
		client:         httpClient,
		requestCounter: requestCounter,
		providerName:   providerName,
		tracer:         otel.GetTracerProvider().Tracer("instrumented_http_client"),
		baseURL:        options.baseURL,
		defaultHeaders: options.headers,
	}, nil
}

// NewRequest creates a new request builder.
func (c *InstrumentedClient) NewRequest() Request {
	headers := make(map[string]string, len(c.defaultHeaders))
	for k, v := range c.defaultHeaders {
		headers[k] = v
	}
	return &requestBuilder{
		client:         c.client,
		requestCounter: c.requestCounter,
		providerName:   c.providerName,
		tracer:         c.tracer,
		baseURL:        c.baseURL,
		headers:        headers,
	}
}

// Do executes an http.Request directly.
func (c *InstrumentedClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.client.Do(req.WithContext(ctx))
}
