// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Ethereum  EthereumConfig  `mapstructure:"ethereum"`
	Pools     PoolsConfig     `mapstructure:"pools"`
	Arbitrage ArbitrageConfig `mapstructure:"arbitrage"`
	MEV       MEVConfig       `mapstructure:"mev"`
	Prices    PricesConfig    `mapstructure:"prices"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// EthereumConfig holds RPC endpoint configuration.
type EthereumConfig struct {
	WebSocketURL   string        `mapstructure:"websocket_url"`
	HTTPURL        string        `mapstructure:"http_url"`
	ChainID        uint64        `mapstructure:"chain_id"`
	RPCRateLimit   float64       `mapstructure:"rpc_rate_limit"` // calls per second
	RPCBurst       int           `mapstructure:"rpc_burst"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

// PoolsConfig holds the tracked pool set and snapshot settings.
type PoolsConfig struct {
	Addresses []string `mapstructure:"addresses"`
	// Protocols maps pool address to DEX protocol name.
	Protocols          map[string]string `mapstructure:"protocols"`
	SupportedProtocols []string          `mapstructure:"supported_protocols"`
	FetchConcurrency   int               `mapstructure:"fetch_concurrency"`
	StateCacheTTL      time.Duration     `mapstructure:"state_cache_ttl"`
}

// ArbitrageConfig holds search engine configuration.
type ArbitrageConfig struct {
	MinProfitBps    int     `mapstructure:"min_profit_bps"`
	MinLiquidityUSD float64 `mapstructure:"min_liquidity_usd"`
	InputAmount     float64 `mapstructure:"input_amount"`
	MaxHops         int     `mapstructure:"max_hops"`
	MaxStartTokens  int     `mapstructure:"max_start_tokens"`
	MaxRiskScore    float64 `mapstructure:"max_risk_score"`
	// ReportFile appends opportunity records as JSON lines when set.
	ReportFile string `mapstructure:"report_file"`
}

// MinLiquidityUSDDecimal returns the liquidity floor as a decimal.
func (c *ArbitrageConfig) MinLiquidityUSDDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinLiquidityUSD)
}

// MEVConfig holds risk model and profit calculator configuration.
type MEVConfig struct {
	BaseRisk              float64       `mapstructure:"base_risk"`
	ValueSensitivity      float64       `mapstructure:"value_sensitivity"`
	CongestionWeight      float64       `mapstructure:"congestion_weight"`
	SearcherDensityWeight float64       `mapstructure:"searcher_density_weight"`
	FlashLoanFeeBps       int64         `mapstructure:"flash_loan_fee_bps"`
	LeakFactor            float64       `mapstructure:"leak_factor"`
	MinProfitThreshold    float64       `mapstructure:"min_profit_threshold"`
	NativePriceUSD        float64       `mapstructure:"native_price_usd"`
	RouterAddresses       []string      `mapstructure:"router_addresses"`
	SensorWindowSize      int           `mapstructure:"sensor_window_size"`
	SensorCacheTTL        time.Duration `mapstructure:"sensor_cache_ttl"`
}

// LeakFactorDecimal returns the MEV leak factor as a decimal.
func (c *MEVConfig) LeakFactorDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.LeakFactor)
}

// MinProfitThresholdDecimal returns the profit threshold as a decimal.
func (c *MEVConfig) MinProfitThresholdDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinProfitThreshold)
}

// NativePriceUSDDecimal returns the native asset reference price as a decimal.
func (c *MEVConfig) NativePriceUSDDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.NativePriceUSD)
}

// PricesConfig holds the token price provider configuration.
type PricesConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("ARB")
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("app.name", "ARB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "ARB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "ARB_LOG_LEVEL", "LOG_LEVEL")

	v.BindEnv("ethereum.websocket_url", "ARB_ETH_WS_URL", "ETH_WS_URL")
	v.BindEnv("ethereum.http_url", "ARB_ETH_HTTP_URL", "ETH_HTTP_URL")
	v.BindEnv("ethereum.chain_id", "ARB_ETH_CHAIN_ID", "ETH_CHAIN_ID")

	v.BindEnv("pools.addresses", "ARB_POOL_ADDRESSES")

	v.BindEnv("arbitrage.min_profit_bps", "ARB_MIN_PROFIT_BPS")
	v.BindEnv("arbitrage.min_liquidity_usd", "ARB_MIN_LIQUIDITY_USD")
	v.BindEnv("arbitrage.max_hops", "ARB_MAX_HOPS")
	v.BindEnv("arbitrage.report_file", "ARB_REPORT_FILE")

	v.BindEnv("mev.native_price_usd", "ARB_NATIVE_PRICE_USD")
	v.BindEnv("mev.flash_loan_fee_bps", "ARB_FLASH_LOAN_FEE_BPS")

	v.BindEnv("prices.base_url", "ARB_PRICES_BASE_URL")

	v.BindEnv("telemetry.enabled", "ARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "ARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "ARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "arb-engine")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("ethereum.chain_id", 1)
	v.SetDefault("ethereum.rpc_rate_limit", 100)
	v.SetDefault("ethereum.rpc_burst", 10)
	v.SetDefault("ethereum.poll_interval", "12s")
	v.SetDefault("ethereum.initial_backoff", "1s")
	v.SetDefault("ethereum.max_backoff", "30s")

	v.SetDefault("pools.supported_protocols", []string{"uniswap_v2", "uniswap_v3", "sushiswap", "camelot"})
	v.SetDefault("pools.fetch_concurrency", 8)
	v.SetDefault("pools.state_cache_ttl", "3s")

	v.SetDefault("arbitrage.min_profit_bps", 50)
	v.SetDefault("arbitrage.min_liquidity_usd", 10000)
	v.SetDefault("arbitrage.input_amount", 1.0)
	v.SetDefault("arbitrage.max_hops", 3)
	v.SetDefault("arbitrage.max_start_tokens", 32)
	v.SetDefault("arbitrage.max_risk_score", 0.8)

	v.SetDefault("mev.base_risk", 0.001)
	v.SetDefault("mev.value_sensitivity", 0.15)
	v.SetDefault("mev.congestion_weight", 0.3)
	v.SetDefault("mev.searcher_density_weight", 0.25)
	v.SetDefault("mev.flash_loan_fee_bps", 9)
	v.SetDefault("mev.leak_factor", 0.10)
	v.SetDefault("mev.min_profit_threshold", 0.0)
	v.SetDefault("mev.native_price_usd", 2000)
	v.SetDefault("mev.sensor_window_size", 5)
	v.SetDefault("mev.sensor_cache_ttl", "12s")

	v.SetDefault("prices.cache_ttl", "60s")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "arb-engine")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Ethereum.HTTPURL == "" {
		return fmt.Errorf("ethereum.http_url is required")
	}
	for _, addr := range c.Pools.Addresses {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("invalid pool address: %s", addr)
		}
	}
	for _, addr := range c.MEV.RouterAddresses {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("invalid router address: %s", addr)
		}
	}
	if c.Arbitrage.MinProfitBps < 0 {
		return fmt.Errorf("arbitrage.min_profit_bps cannot be negative")
	}
	if c.Arbitrage.InputAmount <= 0 {
		return fmt.Errorf("arbitrage.input_amount must be positive")
	}
	if c.Arbitrage.MaxHops < 2 {
		return fmt.Errorf("arbitrage.max_hops must be at least 2")
	}
	return nil
}
