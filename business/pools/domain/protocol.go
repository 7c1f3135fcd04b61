package domain

import "strings"

// Protocol identifies the DEX a pool belongs to.
type Protocol string

const (
	ProtocolUniswapV2 Protocol = "uniswap_v2"
	ProtocolUniswapV3 Protocol = "uniswap_v3"
	ProtocolSushiswap Protocol = "sushiswap"
	ProtocolCamelot   Protocol = "camelot"
	ProtocolUnknown   Protocol = "unknown"
)

// SupportedProtocols lists all protocols the engine knows how to quote.
func SupportedProtocols() []Protocol {
	return []Protocol{ProtocolUniswapV2, ProtocolUniswapV3, ProtocolSushiswap, ProtocolCamelot}
}

// ParseProtocol normalizes a protocol name. Unrecognized names map to
// ProtocolUnknown rather than failing, unknown protocols are simply
// scored as riskier.
func ParseProtocol(s string) Protocol {
	switch Protocol(strings.ToLower(strings.TrimSpace(s))) {
	case ProtocolUniswapV2:
		return ProtocolUniswapV2
	case ProtocolUniswapV3:
		return ProtocolUniswapV3
	case ProtocolSushiswap:
		return ProtocolSushiswap
	case ProtocolCamelot:
		return ProtocolCamelot
	default:
		return ProtocolUnknown
	}
}

// BaseRisk returns the protocol's base risk contribution for
// opportunity scoring.
func (p Protocol) BaseRisk() float64 {
	switch p {
	case ProtocolUniswapV2:
		return 0.10
	case ProtocolUniswapV3:
		return 0.15
	case ProtocolSushiswap:
		return 0.20
	case ProtocolCamelot:
		return 0.25
	default:
		return 0.30
	}
}

func (p Protocol) String() string {
	return string(p)
}
