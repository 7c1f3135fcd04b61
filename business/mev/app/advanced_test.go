package app

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fd1az/arb-engine/internal/apperror"
)

func decEqual(t *testing.T, name string, got, want decimal.Decimal) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("%s = %s, want %s", name, got, want)
	}
}

func TestFlashLoanFee(t *testing.T) {
	calc := NewAdvancedCalculator(DefaultAdvancedConfig())

	// 9 bps on 10,000 is exactly 9.
	decEqual(t, "fee", calc.FlashLoanFee(decimal.NewFromInt(10_000)), decimal.NewFromInt(9))
	decEqual(t, "zero fee", calc.FlashLoanFee(decimal.Zero), decimal.Zero)
}

func TestLegacyGasCostUSD(t *testing.T) {
	calc := NewAdvancedCalculator(DefaultAdvancedConfig())

	// 200k limit buffered to 240k, at 50 gwei = 0.012 ETH = $24.
	got := calc.LegacyGasCostUSD(200_000, decimal.NewFromInt(50))
	decEqual(t, "legacy gas cost", got, decimal.NewFromInt(24))
}

func TestEIP1559GasCostUSD(t *testing.T) {
	calc := NewAdvancedCalculator(DefaultAdvancedConfig())

	// Base 40 gwei, priority 2 gwei boosted to 3, over 240k buffered
	// gas = 43 * 240000 gwei = 0.01032 ETH = $20.64.
	got := calc.EIP1559GasCostUSD(200_000, decimal.NewFromInt(40), decimal.NewFromInt(2))
	decEqual(t, "eip1559 gas cost", got, decimal.NewFromFloat(20.64))
}

func TestCalculateFullBreakdown(t *testing.T) {
	calc := NewAdvancedCalculator(DefaultAdvancedConfig())

	result, err := calc.Calculate(
		decimal.NewFromInt(10_050),
		decimal.NewFromInt(10_000),
		GasParams{GasLimit: 200_000, GasPriceGwei: decimal.NewFromInt(50)},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	decEqual(t, "gas cost", result.GasCostUSD, decimal.NewFromInt(24))
	decEqual(t, "flash loan fee", result.FlashLoanFee, decimal.NewFromInt(9))
	decEqual(t, "gross profit", result.GrossProfit, decimal.NewFromInt(10_026))
	decEqual(t, "mev risk", result.MEVRisk, decimal.NewFromFloat(1002.6))
	// net = 10026 - 9 - 1002.6
	decEqual(t, "net profit", result.NetProfit, decimal.NewFromFloat(9014.4))
	if !result.IsProfitable {
		t.Error("should be profitable")
	}
	// 10050 >= 10000 + 9 + 24
	if !result.LoanRepayable {
		t.Error("loan should be repayable")
	}
}

func TestCalculatePrefersEIP1559(t *testing.T) {
	calc := NewAdvancedCalculator(DefaultAdvancedConfig())

	base := decimal.NewFromInt(40)
	priority := decimal.NewFromInt(2)
	result, err := calc.Calculate(
		decimal.NewFromInt(1000),
		decimal.Zero,
		GasParams{
			GasLimit:        200_000,
			GasPriceGwei:    decimal.NewFromInt(500), // would be $240, must be ignored
			BaseFeeGwei:     &base,
			PriorityFeeGwei: &priority,
		},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decEqual(t, "gas cost", result.GasCostUSD, decimal.NewFromFloat(20.64))
}

func TestCalculateRejectsNegatives(t *testing.T) {
	calc := NewAdvancedCalculator(DefaultAdvancedConfig())

	_, err := calc.Calculate(decimal.NewFromInt(-1), decimal.Zero, GasParams{})
	if !apperror.IsCode(err, apperror.CodeInvalidInput) {
		t.Errorf("expected %s, got %v", apperror.CodeInvalidInput, err)
	}
	_, err = calc.Calculate(decimal.Zero, decimal.NewFromInt(-1), GasParams{})
	if !apperror.IsCode(err, apperror.CodeInvalidInput) {
		t.Errorf("expected %s, got %v", apperror.CodeInvalidInput, err)
	}
}

func TestCalculateMultiToken(t *testing.T) {
	calc := NewAdvancedCalculator(DefaultAdvancedConfig())

	result, err := calc.CalculateMultiToken(
		[]TokenAmount{
			{Token: "WETH", Amount: decimal.NewFromInt(2), PriceUSD: decimal.NewFromInt(1500)},
			{Token: "USDC", Amount: decimal.NewFromInt(1000), PriceUSD: decimal.NewFromInt(1)},
		},
		decimal.NewFromInt(3000),
		decimal.NewFromInt(10),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	decEqual(t, "revenue", result.Revenue, decimal.NewFromInt(4000))
	decEqual(t, "gas cost", result.GasCostUSD, decimal.NewFromInt(10))
	decEqual(t, "flash loan fee", result.FlashLoanFee, decimal.NewFromFloat(2.7))
	decEqual(t, "gross profit", result.GrossProfit, decimal.NewFromInt(3990))
	decEqual(t, "net profit", result.NetProfit, decimal.NewFromFloat(3588.3))
	if !result.LoanRepayable {
		t.Error("loan should be repayable")
	}
}

func TestValidateRepayability(t *testing.T) {
	calc := NewAdvancedCalculator(DefaultAdvancedConfig())

	t.Run("repayable", func(t *testing.T) {
		ok, reason := calc.ValidateRepayability(
			decimal.NewFromInt(10_050),
			decimal.NewFromInt(10_000),
			decimal.NewFromInt(9),
			decimal.NewFromInt(24),
		)
		if !ok {
			t.Error("should be repayable")
		}
		if reason != "Repayable with 17.00 USD margin" {
			t.Errorf("reason = %q", reason)
		}
	})

	t.Run("shortfall", func(t *testing.T) {
		ok, reason := calc.ValidateRepayability(
			decimal.NewFromInt(10_000),
			decimal.NewFromInt(10_000),
			decimal.NewFromInt(9),
			decimal.NewFromInt(24),
		)
		if ok {
			t.Error("should not be repayable")
		}
		if reason != "Shortfall of 33.00 USD" {
			t.Errorf("reason = %q", reason)
		}
	})
}

func TestMinProfitThresholdGatesProfitability(t *testing.T) {
	config := DefaultAdvancedConfig()
	config.MinProfitThreshold = decimal.NewFromInt(10_000)
	calc := NewAdvancedCalculator(config)

	result, err := calc.Calculate(
		decimal.NewFromInt(10_050),
		decimal.NewFromInt(10_000),
		GasParams{GasLimit: 200_000, GasPriceGwei: decimal.NewFromInt(50)},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsProfitable {
		t.Error("net profit below threshold should not count as profitable")
	}
}
