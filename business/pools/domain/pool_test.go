package domain

import (
	"math"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/arb-engine/internal/apperror"
)

var (
	tokenA = common.HexToAddress("0xA000000000000000000000000000000000000001")
	tokenB = common.HexToAddress("0xB000000000000000000000000000000000000002")
	tokenC = common.HexToAddress("0xC000000000000000000000000000000000000003")
)

func testPool(reserve0, reserve1 float64, feeBps int) Pool {
	return Pool{
		Address:  common.HexToAddress("0x1000000000000000000000000000000000000001"),
		Token0:   tokenA,
		Token1:   tokenB,
		Reserve0: reserve0,
		Reserve1: reserve1,
		Protocol: ProtocolUniswapV2,
		FeeBps:   feeBps,
	}
}

func TestParseProtocol(t *testing.T) {
	tests := []struct {
		input string
		want  Protocol
	}{
		{"uniswap_v2", ProtocolUniswapV2},
		{"UNISWAP_V3", ProtocolUniswapV3},
		{" sushiswap ", ProtocolSushiswap},
		{"camelot", ProtocolCamelot},
		{"pancakeswap", ProtocolUnknown},
		{"", ProtocolUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseProtocol(tt.input); got != tt.want {
				t.Errorf("ParseProtocol(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestProtocolBaseRisk(t *testing.T) {
	tests := []struct {
		protocol Protocol
		want     float64
	}{
		{ProtocolUniswapV2, 0.10},
		{ProtocolUniswapV3, 0.15},
		{ProtocolSushiswap, 0.20},
		{ProtocolCamelot, 0.25},
		{ProtocolUnknown, 0.30},
		{Protocol("whatever"), 0.30},
	}

	for _, tt := range tests {
		t.Run(string(tt.protocol), func(t *testing.T) {
			if got := tt.protocol.BaseRisk(); got != tt.want {
				t.Errorf("BaseRisk() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPoolValidate(t *testing.T) {
	tests := []struct {
		name     string
		pool     Pool
		wantCode apperror.Code
	}{
		{"valid", testPool(100, 200, 30), ""},
		{"zero reserve0", testPool(0, 200, 30), apperror.CodePoolDegenerate},
		{"zero reserve1", testPool(100, 0, 30), apperror.CodePoolDegenerate},
		{"negative reserve", testPool(-5, 200, 30), apperror.CodePoolDegenerate},
		{"fee too high", testPool(100, 200, 10000), apperror.CodeInvalidInput},
		{"negative fee", testPool(100, 200, -1), apperror.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pool.Validate()
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !apperror.IsCode(err, tt.wantCode) {
				t.Errorf("Validate() error = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestPairKeyOrderIndependent(t *testing.T) {
	forward := testPool(100, 200, 30)
	reversed := forward
	reversed.Token0, reversed.Token1 = forward.Token1, forward.Token0

	if forward.PairKey() != reversed.PairKey() {
		t.Errorf("PairKey differs by token order: %s vs %s", forward.PairKey(), reversed.PairKey())
	}
}

func TestAmountOut(t *testing.T) {
	t.Run("symmetric pool no fee", func(t *testing.T) {
		pool := testPool(100, 100, 0)

		// out = 100 * 100 / (100 + 100) = 50 exactly
		out, err := pool.AmountOut(100, tokenA)
		if err != nil {
			t.Fatalf("AmountOut() error: %v", err)
		}
		if out != 50 {
			t.Errorf("AmountOut() = %v, want 50", out)
		}
	})

	t.Run("fee reduces output", func(t *testing.T) {
		noFee := testPool(1000, 2000, 0)
		withFee := testPool(1000, 2000, 30)

		outNoFee, err := noFee.AmountOut(10, tokenA)
		if err != nil {
			t.Fatalf("AmountOut() error: %v", err)
		}
		outWithFee, err := withFee.AmountOut(10, tokenA)
		if err != nil {
			t.Fatalf("AmountOut() error: %v", err)
		}
		if outWithFee >= outNoFee {
			t.Errorf("fee did not reduce output: %v >= %v", outWithFee, outNoFee)
		}
	})

	t.Run("direction matters", func(t *testing.T) {
		pool := testPool(1000, 2000, 30)

		outAB, err := pool.AmountOut(10, tokenA)
		if err != nil {
			t.Fatalf("AmountOut(tokenA) error: %v", err)
		}
		outBA, err := pool.AmountOut(10, tokenB)
		if err != nil {
			t.Fatalf("AmountOut(tokenB) error: %v", err)
		}
		if outAB <= outBA {
			t.Errorf("expected A->B output %v > B->A output %v", outAB, outBA)
		}
	})

	t.Run("never exceeds reserves", func(t *testing.T) {
		pool := testPool(100, 200, 30)

		out, err := pool.AmountOut(1e12, tokenA)
		if err != nil {
			t.Fatalf("AmountOut() error: %v", err)
		}
		if out >= pool.Reserve1 {
			t.Errorf("AmountOut() = %v, must stay below reserve %v", out, pool.Reserve1)
		}
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		pool := testPool(100, 200, 30)

		if _, err := pool.AmountOut(0, tokenA); !apperror.IsCode(err, apperror.CodeInvalidInput) {
			t.Errorf("zero amount: error = %v, want %s", err, apperror.CodeInvalidInput)
		}
		if _, err := pool.AmountOut(10, tokenC); !apperror.IsCode(err, apperror.CodeInvalidInput) {
			t.Errorf("foreign token: error = %v, want %s", err, apperror.CodeInvalidInput)
		}

		degenerate := testPool(0, 200, 30)
		if _, err := degenerate.AmountOut(10, tokenA); !apperror.IsCode(err, apperror.CodePoolDegenerate) {
			t.Errorf("degenerate pool: error = %v, want %s", err, apperror.CodePoolDegenerate)
		}
	})
}

func TestPriceImpactGrowsWithSize(t *testing.T) {
	pool := testPool(10000, 10000, 30)

	small, err := pool.PriceImpact(1, tokenA)
	if err != nil {
		t.Fatalf("PriceImpact() error: %v", err)
	}
	large, err := pool.PriceImpact(1000, tokenA)
	if err != nil {
		t.Fatalf("PriceImpact() error: %v", err)
	}

	if small <= 0 || large <= 0 {
		t.Fatalf("impacts must be positive: small=%v large=%v", small, large)
	}
	if large <= small {
		t.Errorf("impact should grow with trade size: %v <= %v", large, small)
	}
	if math.IsNaN(small) || math.IsNaN(large) {
		t.Error("impact must not be NaN")
	}
}

func TestSnapshotTokens(t *testing.T) {
	p1 := testPool(100, 200, 30)
	p2 := p1
	p2.Token0, p2.Token1 = tokenB, tokenC

	snapshot := Snapshot{Pools: []Pool{p1, p2}}
	tokens := snapshot.Tokens()

	if len(tokens) != 3 {
		t.Fatalf("Tokens() returned %d, want 3 distinct", len(tokens))
	}
}

// Benchmark for the quote hot path.
func BenchmarkPoolAmountOut(b *testing.B) {
	pool := testPool(1_000_000, 2_000_000, 30)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := pool.AmountOut(1.0, tokenA); err != nil {
			b.Fatal(err)
		}
	}
}
