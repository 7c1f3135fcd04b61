// Package ethereum implements on-chain pool state access.
package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	goethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/arb-engine/business/pools/app"
	"github.com/fd1az/arb-engine/business/pools/domain"
	"github.com/fd1az/arb-engine/internal/apperror"
	"github.com/fd1az/arb-engine/internal/cache"
	"github.com/fd1az/arb-engine/internal/circuitbreaker"
	"github.com/fd1az/arb-engine/internal/logger"
)

const (
	tracerName = "pools.ethereum"
	meterName  = "pools.ethereum"
)

var _ app.PoolFetcher = (*Fetcher)(nil)

type fetcherMetrics struct {
	fetchesTotal metric.Int64Counter
	fetchLatency metric.Float64Histogram
	fetchErrors  metric.Int64Counter
	cacheHits    metric.Int64Counter
}

// Fetcher reads UniswapV2-style pair state over JSON-RPC. Results are
// cached for the configured TTL and calls go through a circuit breaker.
type Fetcher struct {
	client    *ethclient.Client
	pairABI   abi.ABI
	protocols map[common.Address]domain.Protocol
	feeBps    int

	cache    *cache.Cache[common.Address, domain.Pool]
	cacheTTL time.Duration
	cb       *circuitbreaker.CircuitBreaker[[]byte]
	log      logger.LoggerInterface

	tracer  trace.Tracer
	metrics *fetcherMetrics
}

// FetcherConfig configures the on-chain fetcher.
type FetcherConfig struct {
	// Protocols maps pool address to DEX protocol. Pools not listed
	// default to uniswap_v2.
	Protocols map[common.Address]domain.Protocol
	FeeBps    int
	CacheTTL  time.Duration
}

// NewFetcher creates an on-chain pool fetcher.
func NewFetcher(client *ethclient.Client, cfg FetcherConfig, log logger.LoggerInterface) (*Fetcher, error) {
	pairABI, err := abi.JSON(strings.NewReader(PairABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pair ABI: %w", err)
	}

	feeBps := cfg.FeeBps
	if feeBps <= 0 {
		feeBps = domain.DefaultFeeBps
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 3 * time.Second
	}

	f := &Fetcher{
		client:    client,
		pairABI:   pairABI,
		protocols: cfg.Protocols,
		feeBps:    feeBps,
		cache:     cache.New[common.Address, domain.Pool](time.Minute),
		cacheTTL:  cacheTTL,
		cb:        circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("pool-fetcher")),
		log:       log,
		tracer:    otel.Tracer(tracerName),
	}

	if err := f.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}
	return f, nil
}

func (f *Fetcher) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	f.metrics = &fetcherMetrics{}

	f.metrics.fetchesTotal, err = meter.Int64Counter(
		"pool_fetches_total",
		metric.WithDescription("Total pool state fetches"),
	)
	if err != nil {
		return err
	}

	f.metrics.fetchLatency, err = meter.Float64Histogram(
		"pool_fetch_latency_ms",
		metric.WithDescription("Pool fetch latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	f.metrics.fetchErrors, err = meter.Int64Counter(
		"pool_fetch_errors_total",
		metric.WithDescription("Total pool fetch errors"),
	)
	if err != nil {
		return err
	}

	f.metrics.cacheHits, err = meter.Int64Counter(
		"pool_fetch_cache_hits_total",
		metric.WithDescription("Pool fetches served from cache"),
	)
	return err
}

// FetchPool reads reserves and token addresses for one pair contract.
func (f *Fetcher) FetchPool(ctx context.Context, address common.Address) (domain.Pool, error) {
	ctx, span := f.tracer.Start(ctx, "pools.fetch",
		trace.WithAttributes(attribute.String("pool", address.Hex())),
	)
	defer span.End()

	if pool, ok := f.cache.Get(ctx, address); ok {
		f.metrics.cacheHits.Add(ctx, 1)
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return pool, nil
	}

	start := time.Now()
	f.metrics.fetchesTotal.Add(ctx, 1)

	token0, err := f.callAddress(ctx, address, "token0")
	if err != nil {
		return f.fail(ctx, span, address, err)
	}
	token1, err := f.callAddress(ctx, address, "token1")
	if err != nil {
		return f.fail(ctx, span, address, err)
	}
	reserve0, reserve1, err := f.callReserves(ctx, address)
	if err != nil {
		return f.fail(ctx, span, address, err)
	}

	protocol, ok := f.protocols[address]
	if !ok {
		protocol = domain.ProtocolUniswapV2
	}

	pool := domain.Pool{
		Address:  address,
		Token0:   token0,
		Token1:   token1,
		Reserve0: reserve0,
		Reserve1: reserve1,
		Protocol: protocol,
		FeeBps:   f.feeBps,
	}

	f.metrics.fetchLatency.Record(ctx, float64(time.Since(start).Milliseconds()))
	f.cache.Set(ctx, address, pool, f.cacheTTL)

	return pool, nil
}

func (f *Fetcher) fail(ctx context.Context, span trace.Span, address common.Address, err error) (domain.Pool, error) {
	f.metrics.fetchErrors.Add(ctx, 1)
	span.RecordError(err)
	return domain.Pool{}, apperror.Wrap(err, apperror.CodePoolFetchFailed, address.Hex())
}

func (f *Fetcher) call(ctx context.Context, address common.Address, method string, args ...any) ([]byte, error) {
	data, err := f.pairABI.Pack(method, args...)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeRPCCallFailed, method)
	}

	return f.cb.Execute(func() ([]byte, error) {
		return f.client.CallContract(ctx, goethereum.CallMsg{To: &address, Data: data}, nil)
	})
}

func (f *Fetcher) callAddress(ctx context.Context, address common.Address, method string) (common.Address, error) {
	raw, err := f.call(ctx, address, method)
	if err != nil {
		return common.Address{}, err
	}
	out, err := f.pairABI.Unpack(method, raw)
	if err != nil || len(out) != 1 {
		return common.Address{}, apperror.Wrap(err, apperror.CodeRPCCallFailed, method)
	}
	token, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, apperror.New(apperror.CodeRPCCallFailed, apperror.WithContext(method+" returned non-address"))
	}
	return token, nil
}

func (f *Fetcher) callReserves(ctx context.Context, address common.Address) (float64, float64, error) {
	raw, err := f.call(ctx, address, "getReserves")
	if err != nil {
		return 0, 0, err
	}
	out, err := f.pairABI.Unpack("getReserves", raw)
	if err != nil || len(out) < 2 {
		return 0, 0, apperror.Wrap(err, apperror.CodeRPCCallFailed, "getReserves")
	}

	reserve0, ok0 := out[0].(*big.Int)
	reserve1, ok1 := out[1].(*big.Int)
	if !ok0 || !ok1 {
		return 0, 0, apperror.New(apperror.CodeRPCCallFailed, apperror.WithContext("getReserves returned non-integers"))
	}

	r0, _ := new(big.Float).SetInt(reserve0).Float64()
	r1, _ := new(big.Float).SetInt(reserve1).Float64()
	return r0, r1, nil
}

// Close releases the fetcher's cache janitor.
func (f *Fetcher) Close() {
	f.cache.Close()
}
