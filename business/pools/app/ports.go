// Package app orchestrates pool state snapshots.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/arb-engine/business/pools/domain"
)

// PoolFetcher reads the on-chain state of a single pool.
type PoolFetcher interface {
	FetchPool(ctx context.Context, address common.Address) (domain.Pool, error)
}

// SwapEncoder produces router call data for a swap along a pool.
type SwapEncoder interface {
	EncodeSwap(ctx context.Context, params SwapParams) ([]byte, error)
}

// SwapParams describes one swap leg to encode.
type SwapParams struct {
	TokenIn      common.Address
	TokenOut     common.Address
	AmountIn     *big.Int
	AmountOutMin *big.Int
	Recipient    common.Address
	Deadline     *big.Int
}

// PriceProvider resolves token prices in USD for liquidity filtering.
type PriceProvider interface {
	TokenPriceUSD(ctx context.Context, token common.Address) (decimal.Decimal, error)
}
