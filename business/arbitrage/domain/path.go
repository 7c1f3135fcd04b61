package domain

import (
	"github.com/ethereum/go-ethereum/common"

	pooldomain "github.com/fd1az/arb-engine/business/pools/domain"
)

// Step is a single swap in an arbitrage path.
type Step struct {
	Step           int                 `json:"step"`
	PoolAddress    common.Address      `json:"pool_address"`
	Protocol       pooldomain.Protocol `json:"protocol"`
	TokenIn        common.Address      `json:"token_in"`
	TokenOut       common.Address      `json:"token_out"`
	AmountIn       float64             `json:"amount_in"`
	ExpectedOutput float64             `json:"expected_output"`
	FeeBps         int                 `json:"fee_bps"`
}

// Path is an ordered sequence of swaps.
type Path []Step

// PoolAddresses returns the pool of each step in order.
func (p Path) PoolAddresses() []common.Address {
	addrs := make([]common.Address, len(p))
	for i, s := range p {
		addrs[i] = s.PoolAddress
	}
	return addrs
}

// Protocols returns the protocol of each step in order.
func (p Path) Protocols() []pooldomain.Protocol {
	protos := make([]pooldomain.Protocol, len(p))
	for i, s := range p {
		protos[i] = s.Protocol
	}
	return protos
}

// TokenAddresses returns the unique input tokens in path order.
func (p Path) TokenAddresses() []common.Address {
	seen := make(map[common.Address]struct{}, len(p))
	tokens := make([]common.Address, 0, len(p))
	for _, s := range p {
		if _, ok := seen[s.TokenIn]; ok {
			continue
		}
		seen[s.TokenIn] = struct{}{}
		tokens = append(tokens, s.TokenIn)
	}
	return tokens
}
