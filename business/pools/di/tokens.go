// Package di contains dependency injection tokens for the pools context.
package di

import (
	"github.com/fd1az/arb-engine/business/pools/app"
	"github.com/fd1az/arb-engine/internal/di"
)

// Public service tokens - exposed to other modules
var (
	SnapshotService = di.NewToken[*app.SnapshotService]("pools.SnapshotService")
	PriceProvider   = di.NewToken[app.PriceProvider]("pools.PriceProvider")
	SwapEncoder     = di.NewToken[app.SwapEncoder]("pools.SwapEncoder")
)

// Private dependency tokens - internal to pools module
var (
	PoolFetcher = di.NewToken[app.PoolFetcher]("pools:poolFetcher")
)

// Helper functions for type-safe access
func GetSnapshotService(c di.ServiceRegistry) *app.SnapshotService {
	return di.GetToken(c, SnapshotService)
}

func GetPriceProvider(c di.ServiceRegistry) app.PriceProvider {
	return di.GetToken(c, PriceProvider)
}

func GetSwapEncoder(c di.ServiceRegistry) app.SwapEncoder {
	return di.GetToken(c, SwapEncoder)
}

func GetPoolFetcher(c di.ServiceRegistry) app.PoolFetcher {
	return di.GetToken(c, PoolFetcher)
}
