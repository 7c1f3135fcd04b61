// Package domain holds the game-theoretic MEV risk model.
package domain

import "math"

// TxKind classifies a transaction by how attractive it is to searchers.
type TxKind string

const (
	TxArbitrage          TxKind = "arbitrage"
	TxLiquidityProvision TxKind = "liquidity_provision"
	TxFlashLoan          TxKind = "flash_loan"
	TxFrontRunnable      TxKind = "front_runnable"
)

// ExploitProbability returns the base probability that a transaction
// of this kind gets exploited by a competing searcher.
func (k TxKind) ExploitProbability() float64 {
	switch k {
	case TxArbitrage:
		return 0.7
	case TxLiquidityProvision:
		return 0.2
	case TxFlashLoan:
		return 0.8
	case TxFrontRunnable:
		return 0.9
	default:
		return 0.5
	}
}

// RiskParams are the calibratable parameters of the MEV leakage model.
// SearcherDensity is normally fed from the live density sensor.
type RiskParams struct {
	BaseRisk         float64
	ValueSensitivity float64
	CongestionWeight float64
	SearcherDensity  float64
}

// DefaultRiskParams returns the calibrated defaults.
func DefaultRiskParams() RiskParams {
	return RiskParams{
		BaseRisk:         0.001,
		ValueSensitivity: 0.15,
		CongestionWeight: 0.3,
		SearcherDensity:  0.25,
	}
}

// AssessRisk estimates the expected MEV leakage for a transaction of
// txValue under the given mempool congestion, in the same unit as
// txValue. Congestion dampens leakage: a crowded mempool makes precise
// targeting harder. The result is capped at 95% of the transaction
// value, except for zero-value transactions where only the base risk
// applies.
func (p RiskParams) AssessRisk(txValue float64, kind TxKind, congestion float64) float64 {
	pExploit := kind.ExploitProbability()

	valueFactor := p.ValueSensitivity * math.Log1p(txValue)
	congestionFactor := p.CongestionWeight * congestion
	competitionFactor := 1 + math.Tanh(p.SearcherDensity*3)

	risk := p.BaseRisk + (pExploit*valueFactor*competitionFactor)/(1+congestionFactor)

	if txValue == 0 {
		return risk
	}
	return math.Min(risk, txValue*0.95)
}
