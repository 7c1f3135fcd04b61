package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	pooldomain "github.com/fd1az/arb-engine/business/pools/domain"
	"github.com/fd1az/arb-engine/internal/apperror"
)

var (
	tokenA = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	tokenB = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	tokenC = common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")
	pool1  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	pool2  = common.HexToAddress("0x2222222222222222222222222222222222222222")
	pool3  = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

func spatialPath() Path {
	return Path{
		{Step: 1, PoolAddress: pool1, Protocol: pooldomain.ProtocolUniswapV2, TokenIn: tokenA, TokenOut: tokenB, AmountIn: 1.0, ExpectedOutput: 1950.0, FeeBps: 30},
		{Step: 2, PoolAddress: pool2, Protocol: pooldomain.ProtocolUniswapV2, TokenIn: tokenB, TokenOut: tokenA, AmountIn: 1950.0, ExpectedOutput: 1.01, FeeBps: 30},
	}
}

func triangularPath() Path {
	return Path{
		{Step: 1, PoolAddress: pool1, Protocol: pooldomain.ProtocolUniswapV2, TokenIn: tokenA, TokenOut: tokenB, AmountIn: 1.0, ExpectedOutput: 10.0, FeeBps: 30},
		{Step: 2, PoolAddress: pool2, Protocol: pooldomain.ProtocolSushiswap, TokenIn: tokenB, TokenOut: tokenC, AmountIn: 10.0, ExpectedOutput: 100.0, FeeBps: 30},
		{Step: 3, PoolAddress: pool3, Protocol: pooldomain.ProtocolCamelot, TokenIn: tokenC, TokenOut: tokenA, AmountIn: 100.0, ExpectedOutput: 1.02, FeeBps: 30},
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestNewDerivesFinancials(t *testing.T) {
	o := New(TypeSpatial, spatialPath(), 1.0)

	if o.ID == "" {
		t.Fatal("expected generated id")
	}
	if o.Status != StatusIdentified {
		t.Errorf("status = %s, want identified", o.Status)
	}
	if !almostEqual(o.ExpectedOutput, 1.01) {
		t.Errorf("expected output = %v, want 1.01", o.ExpectedOutput)
	}
	if !almostEqual(o.GrossProfit, 0.01) {
		t.Errorf("gross profit = %v, want 0.01", o.GrossProfit)
	}
	if o.ProfitBips != 100 {
		t.Errorf("profit bips = %d, want 100", o.ProfitBips)
	}
	if !almostEqual(o.NetProfit, o.GrossProfit) {
		t.Errorf("net profit should start at gross profit")
	}
	wantTokens := []common.Address{tokenA, tokenB}
	if len(o.TokenAddresses) != len(wantTokens) {
		t.Fatalf("token addresses = %v, want %v", o.TokenAddresses, wantTokens)
	}
	for i := range wantTokens {
		if o.TokenAddresses[i] != wantTokens[i] {
			t.Errorf("token[%d] = %s, want %s", i, o.TokenAddresses[i], wantTokens[i])
		}
	}
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		allowed bool
	}{
		{"identified to simulated", StatusIdentified, StatusSimulated, true},
		{"identified to expired", StatusIdentified, StatusExpired, true},
		{"identified to failed", StatusIdentified, StatusFailed, true},
		{"identified skips to executing", StatusIdentified, StatusExecuting, false},
		{"simulated to pending", StatusSimulated, StatusPending, true},
		{"pending to executing", StatusPending, StatusExecuting, true},
		{"executing to executed", StatusExecuting, StatusExecuted, true},
		{"executing to expired", StatusExecuting, StatusExpired, false},
		{"executed is terminal", StatusExecuted, StatusFailed, false},
		{"failed is terminal", StatusFailed, StatusIdentified, false},
		{"expired is terminal", StatusExpired, StatusSimulated, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := New(TypeSpatial, spatialPath(), 1.0)
			o.Status = tt.from

			err := o.UpdateStatus(tt.to)
			if tt.allowed {
				if err != nil {
					t.Fatalf("transition %s -> %s rejected: %v", tt.from, tt.to, err)
				}
				if o.Status != tt.to {
					t.Errorf("status = %s, want %s", o.Status, tt.to)
				}
				return
			}
			if err == nil {
				t.Fatalf("transition %s -> %s should be rejected", tt.from, tt.to)
			}
			if !apperror.IsCode(err, apperror.CodeInvalidTransition) {
				t.Errorf("error code = %s, want %s", apperror.GetCode(err), apperror.CodeInvalidTransition)
			}
			if o.Status != tt.from {
				t.Errorf("rejected transition changed status to %s", o.Status)
			}
		})
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range []Status{StatusExecuted, StatusFailed, StatusExpired} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []Status{StatusIdentified, StatusSimulated, StatusPending, StatusExecuting} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestRiskScoreSpatial(t *testing.T) {
	o := New(TypeSpatial, spatialPath(), 1.0)

	// protocol 0.10*0.3 + complexity 0.10*0.2 + flash 0 + slippage 0.10*0.3
	if !almostEqual(o.RiskScore, 0.08) {
		t.Errorf("risk score = %v, want 0.08", o.RiskScore)
	}
}

func TestRiskScoreTriangularFlashLoan(t *testing.T) {
	o := New(TypeTriangular, triangularPath(), 1.0)
	o.RequiresFlashLoan = true
	o.ComputeRiskScore()

	// protocols avg (0.10+0.20+0.25)/3, complexity 0.15, flash 0.10, slippage 0.10
	want := (0.55/3)*0.3 + 0.15*0.2 + 0.1*0.2 + 0.1*0.3
	if !almostEqual(o.RiskScore, want) {
		t.Errorf("risk score = %v, want %v", o.RiskScore, want)
	}
}

func TestRiskScoreClamped(t *testing.T) {
	o := New(TypeTriangular, triangularPath(), 1.0)
	o.RequiresFlashLoan = true
	o.SlippageRisk = 50.0
	o.ComputeRiskScore()

	if o.RiskScore != 1.0 {
		t.Errorf("risk score = %v, want clamp at 1.0", o.RiskScore)
	}
}

func TestUpdateSimulationResults(t *testing.T) {
	t.Run("profitable simulation advances", func(t *testing.T) {
		o := New(TypeSpatial, spatialPath(), 1.0)
		if err := o.UpdateSimulationResults(0.009); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if o.Status != StatusSimulated {
			t.Errorf("status = %s, want simulated", o.Status)
		}
		if o.SimulationProfit == nil || !almostEqual(*o.SimulationProfit, 0.009) {
			t.Error("simulation profit not recorded")
		}
	})

	t.Run("unprofitable simulation fails", func(t *testing.T) {
		o := New(TypeSpatial, spatialPath(), 1.0)
		if err := o.UpdateSimulationResults(-0.002); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if o.Status != StatusFailed {
			t.Errorf("status = %s, want failed", o.Status)
		}
		if o.ErrorMessage == nil || *o.ErrorMessage != "Simulation showed no profit" {
			t.Errorf("error message = %v", o.ErrorMessage)
		}
	})
}

func TestUpdateExecutionResults(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		o := New(TypeSpatial, spatialPath(), 1.0)
		o.Status = StatusExecuting

		err := o.UpdateExecutionResults("0xabc", 0.008, 210_000, 1.4, true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if o.Status != StatusExecuted {
			t.Errorf("status = %s, want executed", o.Status)
		}
		if o.TxHash == nil || *o.TxHash != "0xabc" {
			t.Error("tx hash not recorded")
		}
		if o.GasUsed == nil || *o.GasUsed != 210_000 {
			t.Error("gas used not recorded")
		}
	})

	t.Run("revert", func(t *testing.T) {
		o := New(TypeSpatial, spatialPath(), 1.0)
		o.Status = StatusExecuting

		err := o.UpdateExecutionResults("0xdef", 0, 180_000, 2.1, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if o.Status != StatusFailed {
			t.Errorf("status = %s, want failed", o.Status)
		}
		if o.ErrorMessage == nil || *o.ErrorMessage != "Execution reverted" {
			t.Errorf("error message = %v", o.ErrorMessage)
		}
	})
}

func TestApplyGasCostAndMargin(t *testing.T) {
	o := New(TypeSpatial, spatialPath(), 1.0)
	o.ApplyGasCost(30.0, 0.004)

	if !almostEqual(o.NetProfit, 0.006) {
		t.Errorf("net profit = %v, want 0.006", o.NetProfit)
	}
	if !almostEqual(o.NetProfitMargin, 0.6) {
		t.Errorf("net margin = %v, want 0.6", o.NetProfitMargin)
	}
	if !o.IsProfitable() {
		t.Error("should still be profitable")
	}

	o.ApplyGasCost(200.0, 0.05)
	if o.IsProfitable() {
		t.Error("gas above gross profit should not be profitable")
	}
}

func TestRecordRoundTrip(t *testing.T) {
	o := New(TypeTriangular, triangularPath(), 1.0)
	o.RequiresFlashLoan = true
	o.FlashLoanAmount = 1.0
	o.FlashLoanToken = tokenA
	o.EstimatedGas = 450_000
	o.ApplyGasCost(25.0, 0.003)
	o.Metadata["buy_pool"] = pool1.Hex()
	if err := o.UpdateSimulationResults(0.015); err != nil {
		t.Fatalf("simulate: %v", err)
	}

	raw, err := json.Marshal(o.Record())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Record
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	restored, err := FromRecord(decoded)
	if err != nil {
		t.Fatalf("from record: %v", err)
	}

	if restored.ID != o.ID {
		t.Errorf("id = %s, want %s", restored.ID, o.ID)
	}
	if restored.Type != o.Type || restored.Status != o.Status {
		t.Errorf("type/status = %s/%s, want %s/%s", restored.Type, restored.Status, o.Type, o.Status)
	}
	if !restored.Timestamp.Equal(o.Timestamp) {
		t.Errorf("timestamp = %v, want %v", restored.Timestamp, o.Timestamp)
	}
	if len(restored.Path) != len(o.Path) {
		t.Fatalf("path length = %d, want %d", len(restored.Path), len(o.Path))
	}
	for i := range o.Path {
		if restored.Path[i] != o.Path[i] {
			t.Errorf("path[%d] = %+v, want %+v", i, restored.Path[i], o.Path[i])
		}
	}
	if restored.FlashLoanToken != tokenA {
		t.Error("flash loan token lost in round trip")
	}
	if restored.SimulationProfit == nil || !almostEqual(*restored.SimulationProfit, 0.015) {
		t.Error("simulation profit lost in round trip")
	}
	if !almostEqual(restored.NetProfit, o.NetProfit) || restored.ProfitBips != o.ProfitBips {
		t.Error("financials lost in round trip")
	}
}

func TestFromRecordRejectsBadStatus(t *testing.T) {
	r := New(TypeSpatial, spatialPath(), 1.0).Record()
	r.Status = "teleported"

	if _, err := FromRecord(r); !apperror.IsCode(err, apperror.CodeInvalidInput) {
		t.Errorf("expected %s, got %v", apperror.CodeInvalidInput, err)
	}
}
