// Package app contains application services and ports for the chain context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/arb-engine/business/chain/domain"
)

// HeadSubscriber streams new block headers.
type HeadSubscriber interface {
	// Subscribe starts listening for new heads and returns the channel.
	Subscribe(ctx context.Context) (<-chan *domain.Block, error)

	// LatestBlock retrieves the most recent block header.
	LatestBlock(ctx context.Context) (*domain.Block, error)

	// Status returns the current connection status.
	Status() domain.ConnectionStatus
}

// GasOracle provides gas pricing and estimation.
type GasOracle interface {
	// GetGasPrice retrieves the current legacy gas price.
	GetGasPrice(ctx context.Context) (*domain.GasPrice, error)

	// GetGasTipCap retrieves the suggested EIP-1559 priority fee.
	GetGasTipCap(ctx context.Context) (*big.Int, error)

	// EstimateGas estimates gas for a call with the given data.
	EstimateGas(ctx context.Context, data []byte, to common.Address) (uint64, error)
}
