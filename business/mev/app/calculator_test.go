package app

import (
	"context"
	"io"
	"math"
	"testing"

	"github.com/fd1az/arb-engine/business/mev/domain"
	"github.com/fd1az/arb-engine/internal/apperror"
	"github.com/fd1az/arb-engine/internal/logger"
)

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelInfo, "test", nil)
}

func expectedRisk(params domain.RiskParams, value float64, kind domain.TxKind, congestion float64) float64 {
	valueFactor := params.ValueSensitivity * math.Log1p(value)
	competition := 1 + math.Tanh(params.SearcherDensity*3)
	risk := params.BaseRisk + (kind.ExploitProbability()*valueFactor*competition)/(1+params.CongestionWeight*congestion)
	if value == 0 {
		return risk
	}
	return math.Min(risk, value*0.95)
}

func TestCalculateBreakdown(t *testing.T) {
	params := domain.DefaultRiskParams()
	calc := NewProfitCalculator(params)

	revenue, gasCost, txValue, congestion := 1.1, 0.01, 1.0, 0.5
	result, err := calc.Calculate(revenue, gasCost, txValue, domain.TxArbitrage, congestion)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantRisk := expectedRisk(params, txValue, domain.TxArbitrage, congestion)
	wantGross := revenue - gasCost
	wantAdjusted := wantGross - wantRisk

	if math.Abs(result.MEVRisk-wantRisk) > 1e-12 {
		t.Errorf("mev risk = %v, want %v", result.MEVRisk, wantRisk)
	}
	if math.Abs(result.GrossProfit-wantGross) > 1e-12 {
		t.Errorf("gross profit = %v, want %v", result.GrossProfit, wantGross)
	}
	if math.Abs(result.AdjustedProfit-wantAdjusted) > 1e-12 {
		t.Errorf("adjusted profit = %v, want %v", result.AdjustedProfit, wantAdjusted)
	}
	if math.Abs(result.RiskRatio-wantRisk/(revenue+1e-9)) > 1e-12 {
		t.Errorf("risk ratio = %v", result.RiskRatio)
	}
	if math.Abs(result.NetProfitMargin-wantAdjusted/(revenue+1e-9)) > 1e-12 {
		t.Errorf("net margin = %v", result.NetProfitMargin)
	}
}

func TestCalculateIsIdempotent(t *testing.T) {
	calc := NewProfitCalculator(domain.DefaultRiskParams())

	first, err := calc.Calculate(2.0, 0.05, 1.5, domain.TxFlashLoan, 0.3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := calc.Calculate(2.0, 0.05, 1.5, domain.TxFlashLoan, 0.3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Errorf("repeated calculation diverged: %+v vs %+v", first, second)
	}
}

func TestCalculateRejectsNegativeInputs(t *testing.T) {
	calc := NewProfitCalculator(domain.DefaultRiskParams())

	tests := []struct {
		name                      string
		revenue, gasCost, txValue float64
	}{
		{"negative revenue", -1, 0.01, 1},
		{"negative gas", 1, -0.01, 1},
		{"negative value", 1, 0.01, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := calc.Calculate(tt.revenue, tt.gasCost, tt.txValue, domain.TxArbitrage, 0.5)
			if !apperror.IsCode(err, apperror.CodeInvalidInput) {
				t.Errorf("expected %s, got %v", apperror.CodeInvalidInput, err)
			}
		})
	}
}

func TestCalculateZeroRevenueSafe(t *testing.T) {
	calc := NewProfitCalculator(domain.DefaultRiskParams())

	result, err := calc.Calculate(0, 0, 0, domain.TxArbitrage, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.IsInf(result.RiskRatio, 0) || math.IsNaN(result.RiskRatio) {
		t.Errorf("risk ratio not finite: %v", result.RiskRatio)
	}
	if math.IsInf(result.NetProfitMargin, 0) || math.IsNaN(result.NetProfitMargin) {
		t.Errorf("net margin not finite: %v", result.NetProfitMargin)
	}
}

func TestSetSearcherDensityRaisesRisk(t *testing.T) {
	calc := NewProfitCalculator(domain.DefaultRiskParams())

	before, err := calc.Calculate(10, 0.1, 10, domain.TxArbitrage, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	calc.SetSearcherDensity(1.0)
	after, err := calc.Calculate(10, 0.1, 10, domain.TxArbitrage, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if after.MEVRisk <= before.MEVRisk {
		t.Errorf("risk after density bump %v should exceed %v", after.MEVRisk, before.MEVRisk)
	}
}

func TestSimulatorCoversGrid(t *testing.T) {
	calc := NewProfitCalculator(domain.DefaultRiskParams())
	sim := NewMempoolSimulator()

	rows, err := sim.Run(context.Background(), calc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 3 congestion levels x 5 values x 4 kinds.
	if len(rows) != 60 {
		t.Fatalf("rows = %d, want 60", len(rows))
	}

	// Values sweep from 0.1 to 100 inclusive.
	var sawMin, sawMax bool
	for _, row := range rows {
		if math.Abs(row.TxValue-0.1) < 1e-9 {
			sawMin = true
		}
		if math.Abs(row.TxValue-100) < 1e-9 {
			sawMax = true
		}
		if math.Abs(row.GrossProfit-(row.TxValue*1.1-0.01*row.TxValue)) > 1e-9 {
			t.Fatalf("row gross profit inconsistent: %+v", row)
		}
	}
	if !sawMin || !sawMax {
		t.Error("value sweep endpoints missing")
	}
}
