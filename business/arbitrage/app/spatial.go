package app

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/arb-engine/business/arbitrage/domain"
	poolsapp "github.com/fd1az/arb-engine/business/pools/app"
	pooldomain "github.com/fd1az/arb-engine/business/pools/domain"
	"github.com/fd1az/arb-engine/internal/logger"
)

const spatialGasEstimate = 250_000

// SpatialConfig tunes the cross-pool search.
type SpatialConfig struct {
	MinProfitBips   int
	InputAmount     float64
	MinLiquidityUSD decimal.Decimal
}

// DefaultSpatialConfig returns the standard thresholds.
func DefaultSpatialConfig() SpatialConfig {
	return SpatialConfig{
		MinProfitBips:   50,
		InputAmount:     1.0,
		MinLiquidityUSD: decimal.NewFromInt(10_000),
	}
}

// SpatialEngine finds price discrepancies between pools that trade the
// same token pair: buy on the cheaper pool, sell on the richer one.
type SpatialEngine struct {
	config SpatialConfig
	prices poolsapp.PriceProvider
	log    logger.LoggerInterface
	tracer trace.Tracer
}

// NewSpatialEngine creates a spatial engine. The price provider is
// used only by the liquidity filter and may be nil in tests.
func NewSpatialEngine(config SpatialConfig, prices poolsapp.PriceProvider, log logger.LoggerInterface) *SpatialEngine {
	return &SpatialEngine{
		config: config,
		prices: prices,
		log:    log,
		tracer: otel.Tracer("arbitrage.spatial"),
	}
}

// Find scans the snapshot for two-leg arbitrage between pools sharing
// a token pair. Both trade directions of every pool pairing are tried.
func (e *SpatialEngine) Find(ctx context.Context, snapshot pooldomain.Snapshot) []*domain.Opportunity {
	ctx, span := e.tracer.Start(ctx, "arbitrage.spatial.find",
		trace.WithAttributes(attribute.Int("pools", len(snapshot.Pools))),
	)
	defer span.End()

	byPair := make(map[string][]pooldomain.Pool)
	for _, pool := range snapshot.Pools {
		if pool.Validate() != nil {
			continue
		}
		key := pool.PairKey()
		byPair[key] = append(byPair[key], pool)
	}

	var found []*domain.Opportunity
	for _, pools := range byPair {
		if len(pools) < 2 {
			continue
		}
		for i := 0; i < len(pools); i++ {
			for j := i + 1; j < len(pools); j++ {
				for direction := 0; direction < 2; direction++ {
					if o := e.tryPair(ctx, pools[i], pools[j], direction); o != nil {
						found = append(found, o)
					}
				}
			}
		}
	}

	stats := engineMeters()
	stats.poolsScanned.Add(ctx, int64(len(snapshot.Pools)), engineAttr("spatial"))
	stats.opportunitiesFound.Add(ctx, int64(len(found)), engineAttr("spatial"))

	span.SetAttributes(attribute.Int("opportunities", len(found)))
	return found
}

// tryPair quotes buying on poolBuy and unwinding on poolSell. The
// direction picks which side of the pair is the input token.
func (e *SpatialEngine) tryPair(ctx context.Context, poolBuy, poolSell pooldomain.Pool, direction int) *domain.Opportunity {
	tokenIn := poolBuy.Token0
	if direction == 1 {
		tokenIn = poolBuy.Token1
	}
	midToken := poolBuy.OtherToken(tokenIn)

	input := e.config.InputAmount
	buyOut, err := poolBuy.AmountOut(input, tokenIn)
	if err != nil {
		return nil
	}
	finalOut, err := poolSell.AmountOut(buyOut, midToken)
	if err != nil {
		return nil
	}

	grossProfit := finalOut - input
	profitBips := int((grossProfit / input) * 10000)
	if profitBips < e.config.MinProfitBips {
		return nil
	}

	path := domain.Path{
		{
			Step:           1,
			PoolAddress:    poolBuy.Address,
			Protocol:       poolBuy.Protocol,
			TokenIn:        tokenIn,
			TokenOut:       midToken,
			AmountIn:       input,
			ExpectedOutput: buyOut,
			FeeBps:         poolBuy.FeeBps,
		},
		{
			Step:           2,
			PoolAddress:    poolSell.Address,
			Protocol:       poolSell.Protocol,
			TokenIn:        midToken,
			TokenOut:       tokenIn,
			AmountIn:       buyOut,
			ExpectedOutput: finalOut,
			FeeBps:         poolSell.FeeBps,
		},
	}

	o := domain.New(domain.TypeSpatial, path, input)
	o.EstimatedGas = spatialGasEstimate

	buyPrice, _ := poolBuy.SpotPrice(tokenIn)
	sellPrice, _ := poolSell.SpotPrice(tokenIn)
	buyImpact, _ := poolBuy.PriceImpact(input, tokenIn)
	sellImpact, _ := poolSell.PriceImpact(buyOut, midToken)

	o.Metadata["buy_pool"] = poolBuy.Address.Hex()
	o.Metadata["sell_pool"] = poolSell.Address.Hex()
	o.Metadata["direction"] = direction
	o.Metadata["buy_price"] = buyPrice
	o.Metadata["sell_price"] = sellPrice
	o.Metadata["buy_price_impact"] = buyImpact
	o.Metadata["sell_price_impact"] = sellImpact

	e.log.Debug(ctx, "spatial opportunity found",
		"buy_pool", poolBuy.Address.Hex(),
		"sell_pool", poolSell.Address.Hex(),
		"profit_bips", profitBips,
	)
	return o
}

// FilterByLiquidity drops opportunities whose path legs move more
// notional than the pools can absorb. Each leg must clear twice its
// trade size in USD. A leg whose token has no known price scores zero
// liquidity and is dropped.
func (e *SpatialEngine) FilterByLiquidity(ctx context.Context, opportunities []*domain.Opportunity) []*domain.Opportunity {
	if e.prices == nil {
		return opportunities
	}

	filtered := make([]*domain.Opportunity, 0, len(opportunities))
	for _, o := range opportunities {
		if e.hasSufficientLiquidity(ctx, o) {
			filtered = append(filtered, o)
		}
	}
	return filtered
}

func (e *SpatialEngine) hasSufficientLiquidity(ctx context.Context, o *domain.Opportunity) bool {
	two := decimal.NewFromInt(2)
	for _, step := range o.Path {
		price, err := e.prices.TokenPriceUSD(ctx, step.TokenIn)
		if err != nil {
			e.log.Debug(ctx, "no price for liquidity check, treating leg as illiquid",
				"opportunity_id", o.ID,
				"token", step.TokenIn.Hex(),
				"error", err,
			)
			return false
		}
		notional := decimal.NewFromFloat(step.AmountIn).Mul(price).Mul(two)
		if notional.LessThan(e.config.MinLiquidityUSD) {
			e.log.Debug(ctx, "opportunity dropped by liquidity filter",
				"opportunity_id", o.ID,
				"step", step.Step,
				"notional_usd", notional.String(),
			)
			return false
		}
	}
	return true
}
