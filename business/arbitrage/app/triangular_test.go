package app

import (
	"context"
	"testing"

	"github.com/fd1az/arb-engine/business/arbitrage/domain"
	pooldomain "github.com/fd1az/arb-engine/business/pools/domain"
)

// triSnapshot builds a profitable 3-cycle: A-B and B-C trade 1:1 while
// C-A pays 2 A per C. The cycle A->B->C->A nets 200/103 A on 1 A in.
func triSnapshot() pooldomain.Snapshot {
	return snapshotOf(
		makePool("0x2000000000000000000000000000000000000001", tokenA, tokenB, 100, 100),
		makePool("0x2000000000000000000000000000000000000002", tokenB, tokenC, 100, 100),
		makePool("0x2000000000000000000000000000000000000003", tokenC, tokenA, 100, 200),
	)
}

func TestTriangularFindsCycle(t *testing.T) {
	engine := NewTriangularEngine(DefaultTriangularConfig(), testLogger())
	found := engine.Find(context.Background(), triSnapshot(), tokenA)

	if len(found) != 1 {
		t.Fatalf("found %d cycles, want 1", len(found))
	}
	o := found[0]

	if o.Type != domain.TypeTriangular {
		t.Errorf("type = %s, want triangular", o.Type)
	}
	if len(o.Path) != 3 {
		t.Fatalf("path length = %d, want 3", len(o.Path))
	}
	if !closeTo(o.ExpectedOutput, 200.0/103.0) {
		t.Errorf("expected output = %v, want %v", o.ExpectedOutput, 200.0/103.0)
	}
	if o.ProfitBips != 9417 {
		t.Errorf("profit bips = %d, want 9417", o.ProfitBips)
	}
	if !o.RequiresFlashLoan {
		t.Error("cycles should require a flash loan")
	}
	if o.FlashLoanToken != tokenA {
		t.Errorf("flash loan token = %s, want %s", o.FlashLoanToken, tokenA)
	}
	if !closeTo(o.FlashLoanAmount, 1.0) {
		t.Errorf("flash loan amount = %v, want 1.0", o.FlashLoanAmount)
	}
	if o.EstimatedGas != 450_000 {
		t.Errorf("estimated gas = %d, want 450000", o.EstimatedGas)
	}

	// Path continuity: each leg consumes the previous leg's output.
	for i := 1; i < len(o.Path); i++ {
		if o.Path[i].TokenIn != o.Path[i-1].TokenOut {
			t.Errorf("leg %d input %s does not chain from %s",
				i+1, o.Path[i].TokenIn, o.Path[i-1].TokenOut)
		}
		if !closeTo(o.Path[i].AmountIn, o.Path[i-1].ExpectedOutput) {
			t.Errorf("leg %d amount does not chain", i+1)
		}
	}
	if o.Path[len(o.Path)-1].TokenOut != tokenA {
		t.Error("cycle does not return to the start token")
	}
}

func TestTriangularNoFirstHopClose(t *testing.T) {
	// Two pools on the same pair form a 2-leg loop. That is spatial
	// territory and must not surface as a cycle.
	snapshot := snapshotOf(
		makePool("0x2000000000000000000000000000000000000001", tokenA, tokenB, 100, 100),
		makePool("0x2000000000000000000000000000000000000002", tokenA, tokenB, 100, 400),
	)

	engine := NewTriangularEngine(DefaultTriangularConfig(), testLogger())
	found, err := engine.FindAll(context.Background(), snapshot)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("found %d two-leg cycles, want 0", len(found))
	}
}

func TestTriangularMaxHops(t *testing.T) {
	// Profitable 4-cycle, reachable only when MaxHops allows it.
	snapshot := snapshotOf(
		makePool("0x2000000000000000000000000000000000000001", tokenA, tokenB, 100, 100),
		makePool("0x2000000000000000000000000000000000000002", tokenB, tokenC, 100, 100),
		makePool("0x2000000000000000000000000000000000000004", tokenC, tokenD, 100, 100),
		makePool("0x2000000000000000000000000000000000000005", tokenD, tokenA, 100, 300),
	)

	config := DefaultTriangularConfig()
	config.MaxHops = 3
	engine := NewTriangularEngine(config, testLogger())
	found := engine.Find(context.Background(), snapshot, tokenA)
	if len(found) != 0 {
		t.Errorf("found %d cycles beyond the hop cap, want 0", len(found))
	}

	config.MaxHops = 4
	engine = NewTriangularEngine(config, testLogger())
	found = engine.Find(context.Background(), snapshot, tokenA)
	if len(found) != 1 {
		t.Fatalf("found %d four-hop cycles, want 1", len(found))
	}
	if len(found[0].Path) != 4 {
		t.Errorf("path length = %d, want 4", len(found[0].Path))
	}
	if found[0].EstimatedGas != 600_000 {
		t.Errorf("estimated gas = %d, want 600000", found[0].EstimatedGas)
	}
}

func TestTriangularMinProfitGate(t *testing.T) {
	config := DefaultTriangularConfig()
	config.MinProfitBips = 10_000 // above the 9417 bips the cycle yields
	engine := NewTriangularEngine(config, testLogger())

	if found := engine.Find(context.Background(), triSnapshot(), tokenA); len(found) != 0 {
		t.Errorf("found %d cycles below the profit gate, want 0", len(found))
	}
}

func TestTriangularUnprofitableCycleSkipped(t *testing.T) {
	// Balanced 1:1 pools round-trip at a loss from price impact.
	snapshot := snapshotOf(
		makePool("0x2000000000000000000000000000000000000001", tokenA, tokenB, 100, 100),
		makePool("0x2000000000000000000000000000000000000002", tokenB, tokenC, 100, 100),
		makePool("0x2000000000000000000000000000000000000003", tokenC, tokenA, 100, 100),
	)

	engine := NewTriangularEngine(DefaultTriangularConfig(), testLogger())
	found, err := engine.FindAll(context.Background(), snapshot)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("found %d unprofitable cycles, want 0", len(found))
	}
}

func TestTriangularFindAllDeduplicates(t *testing.T) {
	// The same cycle is reachable from A, B and C, but must only be
	// reported once.
	engine := NewTriangularEngine(DefaultTriangularConfig(), testLogger())
	found, err := engine.FindAll(context.Background(), triSnapshot())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(found) != 1 {
		t.Errorf("found %d cycles across all start tokens, want 1", len(found))
	}
}

func TestTriangularMaxStartTokensCap(t *testing.T) {
	config := DefaultTriangularConfig()
	config.MaxStartTokens = 1
	engine := NewTriangularEngine(config, testLogger())

	// Only the first snapshot token is searched, the cycle is still
	// reachable from it.
	found, err := engine.FindAll(context.Background(), triSnapshot())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(found) != 1 {
		t.Errorf("found %d cycles with a single start token, want 1", len(found))
	}
}

func BenchmarkTriangularFindAll(b *testing.B) {
	engine := NewTriangularEngine(DefaultTriangularConfig(), testLogger())
	snapshot := triSnapshot()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.FindAll(context.Background(), snapshot); err != nil {
			b.Fatal(err)
		}
	}
}
