package domain

import (
	"math/big"
	"testing"
)

func TestGasPriceGwei(t *testing.T) {
	tests := []struct {
		name string
		wei  *big.Int
		want float64
	}{
		{"one gwei", big.NewInt(1_000_000_000), 1},
		{"thirty gwei", big.NewInt(30_000_000_000), 30},
		{"sub gwei", big.NewInt(500_000_000), 0.5},
		{"zero", big.NewInt(0), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price := NewGasPrice(tt.wei)
			if got := price.Gwei(); got != tt.want {
				t.Errorf("Gwei() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewGasEstimate(t *testing.T) {
	price := NewGasPrice(big.NewInt(20_000_000_000)) // 20 gwei
	estimate := NewGasEstimate(250_000, price)

	wantWei := new(big.Int).Mul(big.NewInt(20_000_000_000), big.NewInt(250_000))
	if estimate.TotalWei.Cmp(wantWei) != 0 {
		t.Errorf("TotalWei = %s, want %s", estimate.TotalWei, wantWei)
	}
	if got := estimate.TotalGwei(); got != 20*250_000 {
		t.Errorf("TotalGwei() = %v, want %v", got, 20*250_000)
	}
}

func TestBlockGasUtilization(t *testing.T) {
	block := &Block{GasLimit: 30_000_000, GasUsed: 15_000_000}
	if got := block.GasUtilization(); got != 0.5 {
		t.Errorf("GasUtilization() = %v, want 0.5", got)
	}

	empty := &Block{}
	if got := empty.GasUtilization(); got != 0 {
		t.Errorf("GasUtilization() on empty block = %v, want 0", got)
	}
}
