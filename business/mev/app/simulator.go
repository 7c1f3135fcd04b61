package app

import (
	"context"

	"github.com/fd1az/arb-engine/business/mev/domain"
)

// SimulationRow is one stress-test scenario with its profit outcome.
type SimulationRow struct {
	ProfitResult
	Kind       domain.TxKind
	Congestion float64
	TxValue    float64
}

// MempoolSimulator sweeps the profit calculator across congestion
// levels, transaction values and kinds to stress test the risk model.
type MempoolSimulator struct {
	congestionLevels []float64
	txValues         []float64
	kinds            []domain.TxKind
}

// NewMempoolSimulator creates a simulator with the standard grid:
// low, medium and high congestion against five values from 0.1 to 100.
func NewMempoolSimulator() *MempoolSimulator {
	return &MempoolSimulator{
		congestionLevels: []float64{0.1, 0.5, 0.9},
		txValues:         linspace(0.1, 100, 5),
		kinds: []domain.TxKind{
			domain.TxArbitrage,
			domain.TxLiquidityProvision,
			domain.TxFlashLoan,
			domain.TxFrontRunnable,
		},
	}
}

// Run evaluates every scenario in the grid. Each trade is modeled
// with a 10% expected profit and gas at 1% of value.
func (s *MempoolSimulator) Run(ctx context.Context, calculator *ProfitCalculator) ([]SimulationRow, error) {
	rows := make([]SimulationRow, 0, len(s.congestionLevels)*len(s.txValues)*len(s.kinds))
	for _, congestion := range s.congestionLevels {
		for _, value := range s.txValues {
			for _, kind := range s.kinds {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				result, err := calculator.Calculate(value*1.1, 0.01*value, value, kind, congestion)
				if err != nil {
					return nil, err
				}
				rows = append(rows, SimulationRow{
					ProfitResult: result,
					Kind:         kind,
					Congestion:   congestion,
					TxValue:      value,
				})
			}
		}
	}
	return rows, nil
}

func linspace(start, stop float64, n int) []float64 {
	if n < 2 {
		return []float64{start}
	}
	step := (stop - start) / float64(n-1)
	values := make([]float64, n)
	for i := range values {
		values[i] = start + step*float64(i)
	}
	return values
}
