// Package chain implements the chain bounded context for Ethereum access.
package chain

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/arb-engine/business/chain/app"
	chainDI "github.com/fd1az/arb-engine/business/chain/di"
	"github.com/fd1az/arb-engine/business/chain/infra/ethereum"
	"github.com/fd1az/arb-engine/internal/config"
	"github.com/fd1az/arb-engine/internal/di"
	"github.com/fd1az/arb-engine/internal/logger"
	"github.com/fd1az/arb-engine/internal/monolith"
)

// Module implements the chain bounded context.
type Module struct{}

// RegisterServices registers all chain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register HeadSubscriber (private - internal dependency)
	di.RegisterToken(c, chainDI.HeadSubscriber, func(sr di.ServiceRegistry) app.HeadSubscriber {
		cfgAny, _ := sr.Get("config")
		cfg := cfgAny.(*config.Config)
		logAny, _ := sr.Get("logger")
		log := logAny.(logger.LoggerInterface)
		ethClientAny, _ := sr.Get("ethClient")
		ethClient := ethClientAny.(*ethclient.Client)

		feedCfg := ethereum.DefaultHeadFeedConfig(cfg.Ethereum.WebSocketURL)
		feedCfg.PollInterval = cfg.Ethereum.PollInterval
		feedCfg.InitialBackoff = cfg.Ethereum.InitialBackoff
		feedCfg.MaxBackoff = cfg.Ethereum.MaxBackoff

		feed, err := ethereum.NewHeadFeed(ethClient, feedCfg, log)
		if err != nil {
			panic("failed to create head feed: " + err.Error())
		}
		return feed
	})

	// Register GasOracle (private - internal dependency)
	di.RegisterToken(c, chainDI.GasOracle, func(sr di.ServiceRegistry) app.GasOracle {
		logAny, _ := sr.Get("logger")
		log := logAny.(logger.LoggerInterface)
		ethClientAny, _ := sr.Get("ethClient")
		ethClient := ethClientAny.(*ethclient.Client)

		oracle, err := ethereum.NewGasOracle(ethClient, ethereum.DefaultGasOracleConfig(), log)
		if err != nil {
			panic("failed to create gas oracle: " + err.Error())
		}
		return oracle
	})

	// Register ChainService (public - exposed to other modules)
	di.RegisterToken(c, chainDI.ChainService, func(sr di.ServiceRegistry) *app.ChainService {
		heads := chainDI.GetHeadSubscriber(sr)
		oracle := chainDI.GetGasOracle(sr)
		return app.NewChainService(heads, oracle)
	})

	return nil
}

// Startup initializes the chain module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	// Resolve eagerly so wiring problems surface at startup.
	chainDI.GetChainService(mono.Services())

	log.Info(ctx, "chain module started")
	return nil
}
