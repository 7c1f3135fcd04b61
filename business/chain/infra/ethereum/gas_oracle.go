// Package ethereum provides chain infrastructure adapters.
package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"time"

	goethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/arb-engine/business/chain/app"
	"github.com/fd1az/arb-engine/business/chain/domain"
	"github.com/fd1az/arb-engine/internal/apperror"
	"github.com/fd1az/arb-engine/internal/cache"
	"github.com/fd1az/arb-engine/internal/circuitbreaker"
	"github.com/fd1az/arb-engine/internal/logger"
)

const (
	tracerName = "chain.ethereum"
	meterName  = "chain.ethereum"
)

var _ app.GasOracle = (*GasOracle)(nil)

// GasOracleConfig holds configuration for the gas oracle.
type GasOracleConfig struct {
	CacheTTL    time.Duration // how long to cache gas prices
	MaxGasPrice *big.Int      // clamp against fee spikes
	DefaultGas  uint64        // fallback gas limit
}

// DefaultGasOracleConfig returns sensible defaults.
func DefaultGasOracleConfig() GasOracleConfig {
	maxGas, _ := new(big.Int).SetString("500000000000", 10) // 500 gwei
	return GasOracleConfig{
		CacheTTL:    12 * time.Second, // ~1 block
		MaxGasPrice: maxGas,
		DefaultGas:  200_000,
	}
}

type gasOracleMetrics struct {
	priceFetches metric.Int64Counter
	priceGwei    metric.Float64Gauge
	estimates    metric.Int64Counter
	cacheHits    metric.Int64Counter
}

// GasOracle reads gas pricing from the shared RPC client with caching
// and a circuit breaker.
type GasOracle struct {
	config GasOracleConfig
	client *ethclient.Client
	log    logger.LoggerInterface

	priceCache *cache.Cache[string, *domain.GasPrice]
	cb         *circuitbreaker.CircuitBreaker[*big.Int]

	tracer  trace.Tracer
	metrics *gasOracleMetrics
}

// NewGasOracle creates a gas oracle on top of an existing client.
func NewGasOracle(client *ethclient.Client, cfg GasOracleConfig, log logger.LoggerInterface) (*GasOracle, error) {
	g := &GasOracle{
		config:     cfg,
		client:     client,
		log:        log,
		priceCache: cache.New[string, *domain.GasPrice](5 * time.Minute),
		cb:         circuitbreaker.New[*big.Int](circuitbreaker.DefaultConfig("gas-oracle")),
		tracer:     otel.Tracer(tracerName),
	}

	if err := g.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return g, nil
}

func (g *GasOracle) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	g.metrics = &gasOracleMetrics{}

	g.metrics.priceFetches, err = meter.Int64Counter(
		"gas_price_fetches_total",
		metric.WithDescription("Total gas price fetch attempts"),
	)
	if err != nil {
		return err
	}

	g.metrics.priceGwei, err = meter.Float64Gauge(
		"gas_price_gwei",
		metric.WithDescription("Current gas price in gwei"),
		metric.WithUnit("gwei"),
	)
	if err != nil {
		return err
	}

	g.metrics.estimates, err = meter.Int64Counter(
		"gas_estimate_total",
		metric.WithDescription("Total gas estimation calls"),
	)
	if err != nil {
		return err
	}

	g.metrics.cacheHits, err = meter.Int64Counter(
		"gas_cache_hits_total",
		metric.WithDescription("Gas price cache hits"),
	)
	return err
}

// GetGasPrice retrieves the current gas price with caching.
func (g *GasOracle) GetGasPrice(ctx context.Context) (*domain.GasPrice, error) {
	ctx, span := g.tracer.Start(ctx, "gas.get_price")
	defer span.End()

	if price, found := g.priceCache.Get(ctx, "current"); found {
		g.metrics.cacheHits.Add(ctx, 1)
		span.AddEvent("cache_hit")
		return price, nil
	}

	g.metrics.priceFetches.Add(ctx, 1)

	wei, err := g.cb.Execute(func() (*big.Int, error) {
		return g.client.SuggestGasPrice(ctx)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, apperror.Wrap(err, apperror.CodeRPCCallFailed, "suggest gas price")
	}

	if g.config.MaxGasPrice != nil && wei.Cmp(g.config.MaxGasPrice) > 0 {
		g.log.Warn(ctx, "gas price exceeds max, clamping", "wei", wei.String())
		wei = g.config.MaxGasPrice
	}

	price := domain.NewGasPrice(wei)
	g.priceCache.Set(ctx, "current", price, g.config.CacheTTL)
	g.metrics.priceGwei.Record(ctx, price.Gwei())
	span.SetAttributes(attribute.Float64("gwei", price.Gwei()))

	return price, nil
}

// GetGasTipCap retrieves the suggested EIP-1559 priority fee.
func (g *GasOracle) GetGasTipCap(ctx context.Context) (*big.Int, error) {
	ctx, span := g.tracer.Start(ctx, "gas.get_tip_cap")
	defer span.End()

	tipCap, err := g.cb.Execute(func() (*big.Int, error) {
		return g.client.SuggestGasTipCap(ctx)
	})
	if err != nil {
		span.RecordError(err)
		return nil, apperror.Wrap(err, apperror.CodeRPCCallFailed, "suggest gas tip cap")
	}
	return tipCap, nil
}

// EstimateGas estimates gas for a call and adds a 10% safety margin.
func (g *GasOracle) EstimateGas(ctx context.Context, data []byte, to common.Address) (uint64, error) {
	ctx, span := g.tracer.Start(ctx, "gas.estimate",
		trace.WithAttributes(
			attribute.String("to", to.Hex()),
			attribute.Int("data_len", len(data)),
		),
	)
	defer span.End()

	g.metrics.estimates.Add(ctx, 1)

	gas, err := g.client.EstimateGas(ctx, goethereum.CallMsg{To: &to, Data: data})
	if err != nil {
		span.RecordError(err)
		return 0, apperror.Wrap(err, apperror.CodeGasEstimationFailed, to.Hex())
	}

	gas += gas / 10

	span.SetAttributes(attribute.Int64("gas", int64(gas)))
	return gas, nil
}

// GetGasEstimate returns a full cost estimate, falling back to the
// default gas limit when estimation fails.
func (g *GasOracle) GetGasEstimate(ctx context.Context, data []byte, to common.Address) (*domain.GasEstimate, error) {
	ctx, span := g.tracer.Start(ctx, "gas.full_estimate")
	defer span.End()

	price, err := g.GetGasPrice(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	gasLimit, err := g.EstimateGas(ctx, data, to)
	if err != nil {
		gasLimit = g.config.DefaultGas
		span.AddEvent("using_default_gas",
			trace.WithAttributes(attribute.Int64("default", int64(gasLimit))))
	}

	return domain.NewGasEstimate(gasLimit, price), nil
}

// Close releases the oracle's cache janitor.
func (g *GasOracle) Close() error {
	g.priceCache.Close()
	return nil
}
