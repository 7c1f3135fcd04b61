// Package app implements MEV-aware profit calculation and the sensor
// hub feeding it live mempool readings.
package app

import (
	"sync"

	"github.com/fd1az/arb-engine/business/mev/domain"
	"github.com/fd1az/arb-engine/internal/apperror"
)

// ProfitResult is the breakdown of a risk-adjusted profit calculation.
type ProfitResult struct {
	GrossProfit     float64
	AdjustedProfit  float64
	MEVRisk         float64
	RiskRatio       float64
	NetProfitMargin float64
}

// ProfitCalculator charges expected MEV leakage against gross profit.
// Safe for concurrent use, the risk parameters can be recalibrated at
// runtime from the sensor hub.
type ProfitCalculator struct {
	mu     sync.RWMutex
	params domain.RiskParams
}

// NewProfitCalculator creates a calculator with the given risk model.
func NewProfitCalculator(params domain.RiskParams) *ProfitCalculator {
	return &ProfitCalculator{params: params}
}

// SetSearcherDensity feeds a live searcher density reading into the
// risk model.
func (c *ProfitCalculator) SetSearcherDensity(density float64) {
	c.mu.Lock()
	c.params.SearcherDensity = density
	c.mu.Unlock()
}

// Params returns the current risk parameters.
func (c *ProfitCalculator) Params() domain.RiskParams {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.params
}

// Calculate computes the risk-adjusted profit for a transaction. All
// monetary inputs share one unit. The calculation is pure: calling it
// twice with the same inputs yields the same result.
func (c *ProfitCalculator) Calculate(revenue, gasCost, txValue float64, kind domain.TxKind, congestion float64) (ProfitResult, error) {
	if revenue < 0 || gasCost < 0 || txValue < 0 {
		return ProfitResult{}, apperror.Validation(apperror.CodeInvalidInput,
			"negative values not permitted")
	}

	mevRisk := c.Params().AssessRisk(txValue, kind, congestion)

	grossProfit := revenue - gasCost
	adjustedProfit := grossProfit - mevRisk

	// The epsilon guards the zero-revenue division.
	const eps = 1e-9
	return ProfitResult{
		GrossProfit:     grossProfit,
		AdjustedProfit:  adjustedProfit,
		MEVRisk:         mevRisk,
		RiskRatio:       mevRisk / (revenue + eps),
		NetProfitMargin: adjustedProfit / (revenue + eps),
	}, nil
}
