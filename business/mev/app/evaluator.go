package app

import (
	"context"
	"math/big"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	arbdomain "github.com/fd1az/arb-engine/business/arbitrage/domain"
	chaindomain "github.com/fd1az/arb-engine/business/chain/domain"
	"github.com/fd1az/arb-engine/internal/apperror"
	"github.com/fd1az/arb-engine/internal/logger"
)

// GasSource provides the chain data the evaluator prices gas with.
// *chain/app.ChainService satisfies it.
type GasSource interface {
	GetGasPrice(ctx context.Context) (*chaindomain.GasPrice, error)
	GetGasTipCap(ctx context.Context) (*big.Int, error)
	LatestBlock(ctx context.Context) (*chaindomain.Block, error)
}

// ProfitEvaluator charges execution economics against a detected
// opportunity: gas at current prices, flash loan fees and expected
// MEV leakage under live mempool conditions.
type ProfitEvaluator struct {
	chain      GasSource
	advanced   *AdvancedCalculator
	calculator *ProfitCalculator
	hub        *SensorHub
	log        logger.LoggerInterface
	tracer     trace.Tracer
}

// NewProfitEvaluator wires the evaluator.
func NewProfitEvaluator(
	chain GasSource,
	advanced *AdvancedCalculator,
	calculator *ProfitCalculator,
	hub *SensorHub,
	log logger.LoggerInterface,
) *ProfitEvaluator {
	return &ProfitEvaluator{
		chain:      chain,
		advanced:   advanced,
		calculator: calculator,
		hub:        hub,
		log:        log,
		tracer:     otel.Tracer("mev.evaluator"),
	}
}

// Evaluate updates the opportunity's net economics in place. EIP-1559
// pricing is used when the latest block carries a base fee, legacy
// pricing otherwise.
func (e *ProfitEvaluator) Evaluate(ctx context.Context, o *arbdomain.Opportunity) error {
	ctx, span := e.tracer.Start(ctx, "mev.evaluate",
		trace.WithAttributes(attribute.String("opportunity_id", o.ID)),
	)
	defer span.End()

	gasPrice, err := e.chain.GetGasPrice(ctx)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeRPCCallFailed, "gas price for evaluation")
	}
	gasPriceGwei := gasPrice.Gwei()

	gasCost := e.gasCostUSD(ctx, o.EstimatedGas, gasPriceGwei)
	gasCostUSD, _ := gasCost.Float64()
	o.ApplyGasCost(gasPriceGwei, gasCostUSD)

	readings := e.hub.Readings(ctx)
	e.calculator.SetSearcherDensity(readings.Density)

	grossProfit := o.GrossProfit
	if grossProfit < 0 {
		grossProfit = 0
	}
	result, err := e.calculator.Calculate(
		grossProfit, gasCostUSD, o.InputAmount,
		RiskKindFor(o.RequiresFlashLoan), readings.Congestion,
	)
	if err != nil {
		return err
	}

	netProfit := result.AdjustedProfit
	if o.RequiresFlashLoan {
		fee := e.advanced.FlashLoanFee(decimal.NewFromFloat(o.FlashLoanAmount))
		feeUSD, _ := fee.Float64()
		netProfit -= feeUSD

		repayable, reason := e.advanced.ValidateRepayability(
			decimal.NewFromFloat(o.ExpectedOutput),
			decimal.NewFromFloat(o.FlashLoanAmount),
			fee,
			gasCost,
		)
		o.Metadata["flash_loan_fee"] = feeUSD
		o.Metadata["loan_repayable"] = repayable
		o.Metadata["repayability"] = reason
	}

	o.NetProfit = netProfit
	o.NetProfitMargin = o.CalculateProfitMargin()
	o.Metadata["mev_risk"] = result.MEVRisk
	o.Metadata["risk_ratio"] = result.RiskRatio
	o.Metadata["congestion"] = readings.Congestion
	o.Metadata["searcher_density"] = readings.Density
	o.Metadata["composite_risk"] = readings.Composite

	span.SetAttributes(
		attribute.Float64("mev_risk", result.MEVRisk),
		attribute.Float64("net_profit", netProfit),
	)
	return nil
}

func (e *ProfitEvaluator) gasCostUSD(ctx context.Context, gasLimit uint64, gasPriceGwei float64) decimal.Decimal {
	block, blockErr := e.chain.LatestBlock(ctx)
	tip, tipErr := e.chain.GetGasTipCap(ctx)

	if blockErr == nil && tipErr == nil && block.BaseFee != nil {
		baseFeeGwei := decimal.NewFromBigInt(block.BaseFee, 0).Div(decimal.NewFromInt(1_000_000_000))
		tipGwei := decimal.NewFromBigInt(tip, 0).Div(decimal.NewFromInt(1_000_000_000))
		return e.advanced.EIP1559GasCostUSD(gasLimit, baseFeeGwei, tipGwei)
	}

	return e.advanced.LegacyGasCostUSD(gasLimit, decimal.NewFromFloat(gasPriceGwei))
}
