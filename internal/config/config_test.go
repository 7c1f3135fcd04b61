package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Ethereum: EthereumConfig{
			HTTPURL: "https://rpc.example.org",
			ChainID: 1,
		},
		Arbitrage: ArbitrageConfig{
			MinProfitBps:    50,
			MinLiquidityUSD: 10_000,
			InputAmount:     1.0,
			MaxHops:         3,
		},
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:    "missing http url",
			mutate:  func(c *Config) { c.Ethereum.HTTPURL = "" },
			wantErr: "ethereum.http_url",
		},
		{
			name:    "bad pool address",
			mutate:  func(c *Config) { c.Pools.Addresses = []string{"not-an-address"} },
			wantErr: "invalid pool address",
		},
		{
			name:    "bad router address",
			mutate:  func(c *Config) { c.MEV.RouterAddresses = []string{"0xzz"} },
			wantErr: "invalid router address",
		},
		{
			name:    "negative min profit",
			mutate:  func(c *Config) { c.Arbitrage.MinProfitBps = -1 },
			wantErr: "min_profit_bps",
		},
		{
			name:    "zero input amount",
			mutate:  func(c *Config) { c.Arbitrage.InputAmount = 0 },
			wantErr: "input_amount",
		},
		{
			name:    "negative input amount",
			mutate:  func(c *Config) { c.Arbitrage.InputAmount = -1.0 },
			wantErr: "input_amount",
		},
		{
			name:    "max hops too small",
			mutate:  func(c *Config) { c.Arbitrage.MaxHops = 1 },
			wantErr: "max_hops",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
