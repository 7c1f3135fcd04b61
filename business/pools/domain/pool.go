// Package domain holds the pool state model and constant-product math.
package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/arb-engine/internal/apperror"
)

// DefaultFeeBps is the fee assumed when a pool does not report one.
const DefaultFeeBps = 30

// Pool is an immutable snapshot of a constant-product liquidity pool.
type Pool struct {
	Address  common.Address
	Token0   common.Address
	Token1   common.Address
	Reserve0 float64
	Reserve1 float64
	Protocol Protocol
	FeeBps   int
}

// Validate rejects pools that cannot be quoted.
func (p Pool) Validate() error {
	if p.Reserve0 <= 0 || p.Reserve1 <= 0 {
		return apperror.New(apperror.CodePoolDegenerate,
			apperror.WithContext(fmt.Sprintf("pool %s reserves %.6f/%.6f", p.Address.Hex(), p.Reserve0, p.Reserve1)))
	}
	if p.FeeBps < 0 || p.FeeBps >= 10000 {
		return apperror.Validation(apperror.CodeInvalidInput,
			fmt.Sprintf("pool %s fee %d bps out of range", p.Address.Hex(), p.FeeBps))
	}
	if p.Token0 == p.Token1 {
		return apperror.Validation(apperror.CodeInvalidInput,
			fmt.Sprintf("pool %s has identical tokens", p.Address.Hex()))
	}
	return nil
}

// PairKey returns an order-independent key for the pool's token pair.
func (p Pool) PairKey() string {
	a, b := strings.ToLower(p.Token0.Hex()), strings.ToLower(p.Token1.Hex())
	if a > b {
		a, b = b, a
	}
	return a + "_" + b
}

// HasToken reports whether token is one side of the pool.
func (p Pool) HasToken(token common.Address) bool {
	return p.Token0 == token || p.Token1 == token
}

// OtherToken returns the opposite side of the pool for token.
func (p Pool) OtherToken(token common.Address) common.Address {
	if p.Token0 == token {
		return p.Token1
	}
	return p.Token0
}

// ReservesFor orients the reserves for a swap that sends tokenIn.
func (p Pool) ReservesFor(tokenIn common.Address) (reserveIn, reserveOut float64, err error) {
	switch tokenIn {
	case p.Token0:
		return p.Reserve0, p.Reserve1, nil
	case p.Token1:
		return p.Reserve1, p.Reserve0, nil
	default:
		return 0, 0, apperror.Validation(apperror.CodeInvalidInput,
			fmt.Sprintf("token %s not in pool %s", tokenIn.Hex(), p.Address.Hex()))
	}
}

// AmountOut quotes a swap of amountIn of tokenIn using the
// constant-product formula with the pool fee taken from the input.
func (p Pool) AmountOut(amountIn float64, tokenIn common.Address) (float64, error) {
	if amountIn <= 0 {
		return 0, apperror.Validation(apperror.CodeInvalidInput, "amount in must be positive")
	}
	if err := p.Validate(); err != nil {
		return 0, err
	}
	reserveIn, reserveOut, err := p.ReservesFor(tokenIn)
	if err != nil {
		return 0, err
	}

	amountInWithFee := amountIn * float64(10000-p.FeeBps) / 10000
	return amountInWithFee * reserveOut / (reserveIn + amountInWithFee), nil
}

// SpotPrice returns the marginal price of tokenIn in units of the
// other token, ignoring fees.
func (p Pool) SpotPrice(tokenIn common.Address) (float64, error) {
	reserveIn, reserveOut, err := p.ReservesFor(tokenIn)
	if err != nil {
		return 0, err
	}
	if reserveIn <= 0 {
		return 0, nil
	}
	return reserveOut / reserveIn, nil
}

// PriceImpact returns the relative deviation, in percent, between the
// spot price and the effective price of a trade of amountIn.
func (p Pool) PriceImpact(amountIn float64, tokenIn common.Address) (float64, error) {
	spot, err := p.SpotPrice(tokenIn)
	if err != nil {
		return 0, err
	}
	out, err := p.AmountOut(amountIn, tokenIn)
	if err != nil {
		return 0, err
	}
	if spot <= 0 {
		return 0, nil
	}
	effective := out / amountIn
	return math.Abs(effective-spot) / spot * 100, nil
}

// Snapshot is a consistent view of the tracked pool set.
type Snapshot struct {
	Pools   []Pool
	Block   uint64
	TakenAt time.Time
}

// Tokens returns the distinct token addresses across the snapshot.
func (s Snapshot) Tokens() []common.Address {
	seen := make(map[common.Address]struct{}, len(s.Pools)*2)
	tokens := make([]common.Address, 0, len(s.Pools)*2)
	for _, pool := range s.Pools {
		for _, t := range []common.Address{pool.Token0, pool.Token1} {
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				tokens = append(tokens, t)
			}
		}
	}
	return tokens
}
