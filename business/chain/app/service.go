package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/arb-engine/business/chain/domain"
)

// ChainService coordinates chain interactions for other contexts.
type ChainService struct {
	heads  HeadSubscriber
	oracle GasOracle
}

// NewChainService creates a new ChainService.
func NewChainService(heads HeadSubscriber, oracle GasOracle) *ChainService {
	return &ChainService{heads: heads, oracle: oracle}
}

// SubscribeHeads starts the head subscription and returns the channel.
func (s *ChainService) SubscribeHeads(ctx context.Context) (<-chan *domain.Block, error) {
	return s.heads.Subscribe(ctx)
}

// LatestBlock retrieves the most recent block header.
func (s *ChainService) LatestBlock(ctx context.Context) (*domain.Block, error) {
	return s.heads.LatestBlock(ctx)
}

// GetGasPrice retrieves the current gas price.
func (s *ChainService) GetGasPrice(ctx context.Context) (*domain.GasPrice, error) {
	return s.oracle.GetGasPrice(ctx)
}

// GetGasTipCap retrieves the suggested priority fee.
func (s *ChainService) GetGasTipCap(ctx context.Context) (*big.Int, error) {
	return s.oracle.GetGasTipCap(ctx)
}

// EstimateGas estimates gas for a call.
func (s *ChainService) EstimateGas(ctx context.Context, data []byte, to common.Address) (uint64, error) {
	return s.oracle.EstimateGas(ctx, data, to)
}

// ConnectionStatus returns the head feed connection status.
func (s *ChainService) ConnectionStatus() domain.ConnectionStatus {
	return s.heads.Status()
}
