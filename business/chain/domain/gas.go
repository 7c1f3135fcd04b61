package domain

import (
	"math/big"
	"time"
)

// GasPrice is a point-in-time gas price observation.
type GasPrice struct {
	Wei       *big.Int
	Timestamp time.Time
}

// NewGasPrice creates a GasPrice from wei.
func NewGasPrice(wei *big.Int) *GasPrice {
	return &GasPrice{Wei: wei, Timestamp: time.Now().UTC()}
}

// Gwei returns the price in gwei.
func (p *GasPrice) Gwei() float64 {
	if p.Wei == nil {
		return 0
	}
	gwei, _ := new(big.Float).Quo(new(big.Float).SetInt(p.Wei), big.NewFloat(1e9)).Float64()
	return gwei
}

// GasEstimate is the estimated gas cost of one transaction.
type GasEstimate struct {
	GasLimit uint64
	GasPrice *GasPrice
	TotalWei *big.Int
}

// NewGasEstimate computes the total cost for a gas limit at a price.
func NewGasEstimate(gasLimit uint64, price *GasPrice) *GasEstimate {
	return &GasEstimate{
		GasLimit: gasLimit,
		GasPrice: price,
		TotalWei: new(big.Int).Mul(price.Wei, new(big.Int).SetUint64(gasLimit)),
	}
}

// TotalGwei returns the total cost in gwei.
func (e *GasEstimate) TotalGwei() float64 {
	return e.GasPrice.Gwei() * float64(e.GasLimit)
}
