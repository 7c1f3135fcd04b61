// Package prices implements USD token pricing over a REST API with a
// CoinGecko-compatible contract price endpoint.
package prices

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/arb-engine/business/pools/app"
	"github.com/fd1az/arb-engine/internal/apperror"
	"github.com/fd1az/arb-engine/internal/cache"
	"github.com/fd1az/arb-engine/internal/circuitbreaker"
	"github.com/fd1az/arb-engine/internal/httpclient"
	"github.com/fd1az/arb-engine/internal/logger"
)

const tracerName = "pools.prices"

var _ app.PriceProvider = (*Provider)(nil)

// Provider fetches token USD prices with caching and a circuit breaker.
type Provider struct {
	client   httpclient.Client
	cache    *cache.Cache[common.Address, decimal.Decimal]
	cacheTTL time.Duration
	cb       *circuitbreaker.CircuitBreaker[decimal.Decimal]
	log      logger.LoggerInterface
	tracer   trace.Tracer
}

// Config configures the price provider.
type Config struct {
	BaseURL  string
	CacheTTL time.Duration
}

// NewProvider creates a price provider backed by a REST price API.
func NewProvider(cfg Config, log logger.LoggerInterface) (*Provider, error) {
	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("token-prices"),
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithRequestTimeout(10*time.Second),
	)
	if err != nil {
		return nil, err
	}

	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}

	return &Provider{
		client:   client,
		cache:    cache.New[common.Address, decimal.Decimal](time.Minute),
		cacheTTL: cacheTTL,
		cb:       circuitbreaker.New[decimal.Decimal](circuitbreaker.DefaultConfig("token-prices")),
		log:      log,
		tracer:   otel.Tracer(tracerName),
	}, nil
}

// TokenPriceUSD resolves the USD price of an ERC-20 token by address.
func (p *Provider) TokenPriceUSD(ctx context.Context, token common.Address) (decimal.Decimal, error) {
	ctx, span := p.tracer.Start(ctx, "prices.token_price",
		trace.WithAttributes(attribute.String("token", token.Hex())),
	)
	defer span.End()

	if price, ok := p.cache.Get(ctx, token); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return price, nil
	}

	price, err := p.cb.Execute(func() (decimal.Decimal, error) {
		return p.fetch(ctx, token)
	})
	if err != nil {
		span.RecordError(err)
		return decimal.Zero, apperror.Wrap(err, apperror.CodePriceFetchFailed, token.Hex())
	}

	p.cache.Set(ctx, token, price, p.cacheTTL)
	return price, nil
}

func (p *Provider) fetch(ctx context.Context, token common.Address) (decimal.Decimal, error) {
	var result map[string]map[string]float64

	resp, err := p.client.NewRequest().
		SetQueryParam("contract_addresses", strings.ToLower(token.Hex())).
		SetQueryParam("vs_currencies", "usd").
		SetResult(&result).
		Get(ctx, "/simple/token_price/ethereum")
	if err != nil {
		return decimal.Zero, err
	}
	if resp.IsError() {
		return decimal.Zero, fmt.Errorf("price api returned %s", resp.Status)
	}

	entry, ok := result[strings.ToLower(token.Hex())]
	if !ok {
		return decimal.Zero, fmt.Errorf("no price for token %s", token.Hex())
	}
	usd, ok := entry["usd"]
	if !ok || usd <= 0 {
		return decimal.Zero, fmt.Errorf("no usd quote for token %s", token.Hex())
	}

	return decimal.NewFromFloat(usd), nil
}

// Close releases the cache janitor.
func (p *Provider) Close() {
	p.cache.Close()
}
