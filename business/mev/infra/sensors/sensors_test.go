package sensors

import (
	"math"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSampleStdev(t *testing.T) {
	if got := sampleStdev([]float64{2, 4, 4, 4, 5, 5, 7, 9}); !almostEqual(got, 2.138089935299395) {
		t.Errorf("stdev = %v", got)
	}
	if got := sampleStdev([]float64{3, 3}); got != 0 {
		t.Errorf("stdev of equal values = %v, want 0", got)
	}
}

func TestGasDeviation(t *testing.T) {
	s := &CongestionSensor{config: DefaultCongestionConfig()}

	headers := []*types.Header{
		{GasUsed: 15_000_000, GasLimit: 30_000_000},
		{GasUsed: 15_000_000, GasLimit: 30_000_000},
		{GasUsed: 15_000_000, GasLimit: 30_000_000},
	}
	if got := s.gasDeviation(headers); got != 0 {
		t.Errorf("deviation of steady blocks = %v, want 0", got)
	}

	volatile := []*types.Header{
		{GasUsed: 30_000_000, GasLimit: 30_000_000},
		{GasUsed: 3_000_000, GasLimit: 30_000_000},
		{GasUsed: 30_000_000, GasLimit: 30_000_000},
	}
	if got := s.gasDeviation(volatile); got <= 0 {
		t.Errorf("deviation of volatile blocks = %v, want > 0", got)
	}

	if got := s.gasDeviation(headers[:1]); got != 0 {
		t.Errorf("deviation of single block = %v, want 0", got)
	}
}

func TestFeeVelocity(t *testing.T) {
	s := &CongestionSensor{config: DefaultCongestionConfig()}

	// Newest-first window: base fee doubled from 10 to 20 gwei.
	headers := []*types.Header{
		{BaseFee: big.NewInt(20_000_000_000)},
		{BaseFee: big.NewInt(15_000_000_000)},
		{BaseFee: big.NewInt(10_000_000_000)},
	}
	if got := s.feeVelocity(headers); !almostEqual(got, 1.0) {
		t.Errorf("velocity = %v, want 1.0", got)
	}

	falling := []*types.Header{
		{BaseFee: big.NewInt(5_000_000_000)},
		{BaseFee: big.NewInt(10_000_000_000)},
	}
	if got := s.feeVelocity(falling); !almostEqual(got, -0.5) {
		t.Errorf("velocity = %v, want -0.5", got)
	}

	if got := s.feeVelocity([]*types.Header{{BaseFee: big.NewInt(1)}}); got != 0 {
		t.Errorf("velocity of single sample = %v, want 0", got)
	}
}

func TestSandwichScore(t *testing.T) {
	uniform := []routerTx{
		{gasPriceGwei: 30}, {gasPriceGwei: 30}, {gasPriceGwei: 30},
	}
	if got := sandwichScore(uniform); got != 0 {
		t.Errorf("uniform gas score = %v, want 0", got)
	}

	spread := []routerTx{
		{gasPriceGwei: 10}, {gasPriceGwei: 300}, {gasPriceGwei: 20},
	}
	if got := sandwichScore(spread); got != 1.0 {
		t.Errorf("wild spread score = %v, want capped at 1.0", got)
	}

	if got := sandwichScore(spread[:1]); got != 0 {
		t.Errorf("single tx score = %v, want 0", got)
	}
}

func TestClusteringScore(t *testing.T) {
	s := &DensitySensor{config: DefaultDensityConfig(nil)}

	addr := func(b byte) common.Address {
		var a common.Address
		a[19] = b
		return a
	}

	// Nine addresses pay baseline gas, one pays far above it.
	txs := make([]routerTx, 0, 10)
	for i := byte(1); i <= 9; i++ {
		txs = append(txs, routerTx{from: addr(i), gasPriceGwei: 10})
	}
	txs = append(txs, routerTx{from: addr(10), gasPriceGwei: 600})

	got := s.clusteringScore(txs)
	// mean 69, threshold 345: only the outlier qualifies.
	// ratio 1/10 addresses, normalized count 1/50.
	want := (0.1 + 0.02) / 2
	if !almostEqual(got, want) {
		t.Errorf("clustering = %v, want %v", got, want)
	}

	if got := s.clusteringScore(nil); got != 0 {
		t.Errorf("empty clustering = %v, want 0", got)
	}
}
