package metrics

// Exporter identifies a metric exporter backend.
type Exporter string

const (
	PrometheusExporter Exporter = "prometheus"
	OTLPExporter       Exporter = "otlp"
)

// ExporterCfg configures a single metric exporter.
type ExporterCfg struct {
	Exporter Exporter
	Endpoint string
	Headers  map[string]string
	Insecure bool
}

// NewPrometheusConfig returns a pull-based Prometheus exporter config.
func NewPrometheusConfig() ExporterCfg {
	return ExporterCfg{Exporter: PrometheusExporter}
}

// NewOTLPConfig returns a push-based OTLP/gRPC exporter config.
func NewOTLPConfig(endpoint string, headers map[string]string, insecure bool) ExporterCfg {
	return ExporterCfg{
		Exporter: OTLPExporter,
		Endpoint: endpoint,
		Headers:  headers,
		Insecure: insecure,
	}
}

// Config holds meter provider configuration.
type Config struct {
	ServiceName string
	Exporters   []ExporterCfg
}

// OptionFn configures the meter provider.
type OptionFn func(Config) Config

// WithServiceName sets the service.name resource attribute.
func WithServiceName(serviceName string) OptionFn {
	return func(cfg Config) Config {
		cfg.ServiceName = serviceName
		return cfg
	}
}

// WithExporterConfig appends an exporter to the provider.
func WithExporterConfig(exporter ExporterCfg) OptionFn {
	return func(cfg Config) Config {
		cfg.Exporters = append(cfg.Exporters, exporter)
		return cfg
	}
}

// PromServerConfig configures the Prometheus scrape endpoint.
type PromServerConfig struct {
	port string
}

// PromOptionFn configures the Prometheus scrape server.
type PromOptionFn func(PromServerConfig) PromServerConfig

// WithPort overrides the default scrape port.
func WithPort(port string) PromOptionFn {
	return func(cfg PromServerConfig) PromServerConfig {
		cfg.port = port
		return cfg
	}
}
