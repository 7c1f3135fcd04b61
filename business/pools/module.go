// Package pools implements the pool state bounded context.
package pools

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/arb-engine/business/pools/app"
	"github.com/fd1az/arb-engine/business/pools/domain"
	poolsDI "github.com/fd1az/arb-engine/business/pools/di"
	"github.com/fd1az/arb-engine/business/pools/infra/ethereum"
	"github.com/fd1az/arb-engine/business/pools/infra/prices"
	"github.com/fd1az/arb-engine/internal/config"
	"github.com/fd1az/arb-engine/internal/di"
	"github.com/fd1az/arb-engine/internal/logger"
	"github.com/fd1az/arb-engine/internal/monolith"
	"github.com/fd1az/arb-engine/internal/ratelimit"
)

// Module implements the pools bounded context.
type Module struct{}

// RegisterServices registers all pools services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register PoolFetcher (private - internal dependency)
	di.RegisterToken(c, poolsDI.PoolFetcher, func(sr di.ServiceRegistry) app.PoolFetcher {
		cfgAny, _ := sr.Get("config")
		cfg := cfgAny.(*config.Config)
		logAny, _ := sr.Get("logger")
		log := logAny.(logger.LoggerInterface)
		ethClientAny, _ := sr.Get("ethClient")
		ethClient := ethClientAny.(*ethclient.Client)

		protocols := make(map[common.Address]domain.Protocol, len(cfg.Pools.Protocols))
		for addr, name := range cfg.Pools.Protocols {
			protocols[common.HexToAddress(addr)] = domain.ParseProtocol(name)
		}

		fetcher, err := ethereum.NewFetcher(ethClient, ethereum.FetcherConfig{
			Protocols: protocols,
			CacheTTL:  cfg.Pools.StateCacheTTL,
		}, log)
		if err != nil {
			panic("failed to create pool fetcher: " + err.Error())
		}
		return fetcher
	})

	// Register SwapEncoder (public - exposed to other modules)
	di.RegisterToken(c, poolsDI.SwapEncoder, func(sr di.ServiceRegistry) app.SwapEncoder {
		encoder, err := ethereum.NewSwapEncoder()
		if err != nil {
			panic("failed to create swap encoder: " + err.Error())
		}
		return encoder
	})

	// Register PriceProvider (public - exposed to other modules)
	di.RegisterToken(c, poolsDI.PriceProvider, func(sr di.ServiceRegistry) app.PriceProvider {
		cfgAny, _ := sr.Get("config")
		cfg := cfgAny.(*config.Config)
		logAny, _ := sr.Get("logger")
		log := logAny.(logger.LoggerInterface)

		provider, err := prices.NewProvider(prices.Config{
			BaseURL:  cfg.Prices.BaseURL,
			CacheTTL: cfg.Prices.CacheTTL,
		}, log)
		if err != nil {
			panic("failed to create price provider: " + err.Error())
		}
		return provider
	})

	// Register SnapshotService (public - exposed to other modules)
	di.RegisterToken(c, poolsDI.SnapshotService, func(sr di.ServiceRegistry) *app.SnapshotService {
		cfgAny, _ := sr.Get("config")
		cfg := cfgAny.(*config.Config)
		logAny, _ := sr.Get("logger")
		log := logAny.(logger.LoggerInterface)

		addresses := make([]common.Address, 0, len(cfg.Pools.Addresses))
		for _, addr := range cfg.Pools.Addresses {
			addresses = append(addresses, common.HexToAddress(addr))
		}
		supported := make([]domain.Protocol, 0, len(cfg.Pools.SupportedProtocols))
		for _, p := range cfg.Pools.SupportedProtocols {
			supported = append(supported, domain.ParseProtocol(p))
		}

		limiter := ratelimit.New(cfg.Ethereum.RPCRateLimit, cfg.Ethereum.RPCBurst)
		fetcher := poolsDI.GetPoolFetcher(sr)

		return app.NewSnapshotService(fetcher, limiter, app.SnapshotConfig{
			Addresses:          addresses,
			SupportedProtocols: supported,
			Concurrency:        cfg.Pools.FetchConcurrency,
		}, log)
	})

	return nil
}

// Startup initializes the pools module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	// Resolve eagerly so wiring problems surface at startup.
	poolsDI.GetSnapshotService(mono.Services())
	poolsDI.GetSwapEncoder(mono.Services())

	log.Info(ctx, "pools module started",
		"tracked_pools", len(mono.Config().Pools.Addresses))
	return nil
}
