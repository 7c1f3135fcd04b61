package app

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fd1az/arb-engine/business/mev/domain"
	"github.com/fd1az/arb-engine/internal/apperror"
)

// EIP-1559 gas modeling parameters.
var (
	gasBufferMultiplier   = decimal.NewFromFloat(1.2) // 20% gas buffer
	priorityFeeMultiplier = decimal.NewFromFloat(1.5) // 50% priority fee boost
	gweiPerEth            = decimal.NewFromInt(1_000_000_000)
	bpsDivisor            = decimal.NewFromInt(10_000)
)

// AdvancedConfig tunes the execution-grade profit calculator.
type AdvancedConfig struct {
	FlashLoanFeeBps    int64           // flash loan fee, default 9 (0.09%)
	LeakFactor         decimal.Decimal // share of gross profit leaked to MEV
	MinProfitThreshold decimal.Decimal // minimum net profit in USD
	NativePriceUSD     decimal.Decimal // reference price of the gas asset
}

// DefaultAdvancedConfig returns the calibrated defaults.
func DefaultAdvancedConfig() AdvancedConfig {
	return AdvancedConfig{
		FlashLoanFeeBps:    9,
		LeakFactor:         decimal.NewFromFloat(0.10),
		MinProfitThreshold: decimal.Zero,
		NativePriceUSD:     decimal.NewFromInt(2000),
	}
}

// GasParams describes the gas pricing of a candidate transaction.
// When both EIP-1559 fields are set they take precedence over the
// legacy gas price.
type GasParams struct {
	GasLimit        uint64
	GasPriceGwei    decimal.Decimal
	BaseFeeGwei     *decimal.Decimal
	PriorityFeeGwei *decimal.Decimal
}

// AdvancedResult is the full execution economics breakdown, in USD.
type AdvancedResult struct {
	Revenue         decimal.Decimal
	FlashLoanAmount decimal.Decimal
	GrossProfit     decimal.Decimal
	FlashLoanFee    decimal.Decimal
	GasCostUSD      decimal.Decimal
	MEVRisk         decimal.Decimal
	NetProfit       decimal.Decimal
	ProfitMargin    decimal.Decimal
	IsProfitable    bool
	LoanRepayable   bool
}

// TokenAmount is one leg of a multi-asset revenue position.
type TokenAmount struct {
	Token    string
	Amount   decimal.Decimal
	PriceUSD decimal.Decimal
}

// AdvancedCalculator models execution economics with flash loan fees,
// MEV leakage and EIP-1559 gas costs, in exact decimal arithmetic.
type AdvancedCalculator struct {
	config AdvancedConfig
}

// NewAdvancedCalculator creates an advanced calculator.
func NewAdvancedCalculator(config AdvancedConfig) *AdvancedCalculator {
	if config.NativePriceUSD.IsZero() {
		config.NativePriceUSD = decimal.NewFromInt(2000)
	}
	return &AdvancedCalculator{config: config}
}

// Calculate computes the net profit of an arbitrage after flash loan
// fees, gas and expected MEV leakage.
func (c *AdvancedCalculator) Calculate(revenue, flashLoanAmount decimal.Decimal, gas GasParams) (AdvancedResult, error) {
	if revenue.IsNegative() || flashLoanAmount.IsNegative() {
		return AdvancedResult{}, apperror.Validation(apperror.CodeInvalidInput,
			"negative values not permitted")
	}

	flashLoanFee := c.FlashLoanFee(flashLoanAmount)

	var gasCostUSD decimal.Decimal
	if gas.BaseFeeGwei != nil && gas.PriorityFeeGwei != nil {
		gasCostUSD = c.EIP1559GasCostUSD(gas.GasLimit, *gas.BaseFeeGwei, *gas.PriorityFeeGwei)
	} else {
		gasCostUSD = c.LegacyGasCostUSD(gas.GasLimit, gas.GasPriceGwei)
	}

	return c.breakdown(revenue, flashLoanAmount, flashLoanFee, gasCostUSD), nil
}

// CalculateMultiToken harmonizes revenue across several tokens into
// USD and runs the standard breakdown against a known gas cost.
func (c *AdvancedCalculator) CalculateMultiToken(tokens []TokenAmount, flashLoanAmount, gasCostUSD decimal.Decimal) (AdvancedResult, error) {
	if flashLoanAmount.IsNegative() || gasCostUSD.IsNegative() {
		return AdvancedResult{}, apperror.Validation(apperror.CodeInvalidInput,
			"negative values not permitted")
	}

	revenue := decimal.Zero
	for _, t := range tokens {
		if t.Amount.IsNegative() || t.PriceUSD.IsNegative() {
			return AdvancedResult{}, apperror.Validation(apperror.CodeInvalidInput,
				"negative values not permitted")
		}
		revenue = revenue.Add(t.Amount.Mul(t.PriceUSD))
	}

	flashLoanFee := c.FlashLoanFee(flashLoanAmount)
	return c.breakdown(revenue, flashLoanAmount, flashLoanFee, gasCostUSD), nil
}

func (c *AdvancedCalculator) breakdown(revenue, flashLoanAmount, flashLoanFee, gasCostUSD decimal.Decimal) AdvancedResult {
	grossProfit := revenue.Sub(gasCostUSD)
	mevRisk := grossProfit.Mul(c.config.LeakFactor)
	netProfit := grossProfit.Sub(flashLoanFee).Sub(mevRisk)

	profitMargin := decimal.Zero
	if revenue.IsPositive() {
		profitMargin = netProfit.Div(revenue).Mul(decimal.NewFromInt(100))
	}

	obligation := flashLoanAmount.Add(flashLoanFee).Add(gasCostUSD)
	return AdvancedResult{
		Revenue:         revenue,
		FlashLoanAmount: flashLoanAmount,
		GrossProfit:     grossProfit,
		FlashLoanFee:    flashLoanFee,
		GasCostUSD:      gasCostUSD,
		MEVRisk:         mevRisk,
		NetProfit:       netProfit,
		ProfitMargin:    profitMargin,
		IsProfitable:    netProfit.GreaterThanOrEqual(c.config.MinProfitThreshold),
		LoanRepayable:   revenue.GreaterThanOrEqual(obligation),
	}
}

// FlashLoanFee returns the fee on a flash loan principal.
func (c *AdvancedCalculator) FlashLoanFee(loanAmount decimal.Decimal) decimal.Decimal {
	return loanAmount.Mul(decimal.NewFromInt(c.config.FlashLoanFeeBps)).Div(bpsDivisor)
}

// LegacyGasCostUSD prices a transaction under pre-EIP-1559 gas rules,
// with the standard 20% limit buffer applied.
func (c *AdvancedCalculator) LegacyGasCostUSD(gasLimit uint64, gasPriceGwei decimal.Decimal) decimal.Decimal {
	bufferedLimit := decimal.NewFromUint64(gasLimit).Mul(gasBufferMultiplier).Floor()
	totalGwei := gasPriceGwei.Mul(bufferedLimit)
	return totalGwei.Div(gweiPerEth).Mul(c.config.NativePriceUSD)
}

// EIP1559GasCostUSD prices a transaction under EIP-1559, boosting the
// priority fee for faster inclusion.
func (c *AdvancedCalculator) EIP1559GasCostUSD(gasLimit uint64, baseFeeGwei, priorityFeeGwei decimal.Decimal) decimal.Decimal {
	bufferedLimit := decimal.NewFromUint64(gasLimit).Mul(gasBufferMultiplier).Floor()
	boostedPriority := priorityFeeGwei.Mul(priorityFeeMultiplier)
	totalGwei := baseFeeGwei.Add(boostedPriority).Mul(bufferedLimit)
	return totalGwei.Div(gweiPerEth).Mul(c.config.NativePriceUSD)
}

// ValidateRepayability checks that revenue covers the flash loan
// principal, its fee and gas, and explains the margin or shortfall.
func (c *AdvancedCalculator) ValidateRepayability(revenue, flashLoanAmount, flashLoanFee, gasCost decimal.Decimal) (bool, string) {
	obligation := flashLoanAmount.Add(flashLoanFee).Add(gasCost)

	if revenue.GreaterThanOrEqual(obligation) {
		margin := revenue.Sub(obligation)
		return true, fmt.Sprintf("Repayable with %s USD margin", margin.StringFixed(2))
	}
	shortfall := obligation.Sub(revenue)
	return false, fmt.Sprintf("Shortfall of %s USD", shortfall.StringFixed(2))
}

// RiskKindFor maps an arbitrage shape to its transaction kind.
func RiskKindFor(requiresFlashLoan bool) domain.TxKind {
	if requiresFlashLoan {
		return domain.TxFlashLoan
	}
	return domain.TxArbitrage
}
