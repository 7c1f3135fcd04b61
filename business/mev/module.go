// Package mev implements the MEV risk bounded context.
package mev

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	chainDI "github.com/fd1az/arb-engine/business/chain/di"
	"github.com/fd1az/arb-engine/business/mev/app"
	mevDI "github.com/fd1az/arb-engine/business/mev/di"
	"github.com/fd1az/arb-engine/business/mev/domain"
	"github.com/fd1az/arb-engine/business/mev/infra/sensors"
	"github.com/fd1az/arb-engine/internal/config"
	"github.com/fd1az/arb-engine/internal/di"
	"github.com/fd1az/arb-engine/internal/logger"
	"github.com/fd1az/arb-engine/internal/monolith"
)

// Module implements the mev bounded context.
type Module struct{}

// RegisterServices registers all mev services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register CongestionSensor (private - internal dependency)
	di.RegisterToken(c, mevDI.CongestionSensor, func(sr di.ServiceRegistry) app.CongestionSensor {
		cfgAny, _ := sr.Get("config")
		cfg := cfgAny.(*config.Config)
		logAny, _ := sr.Get("logger")
		log := logAny.(logger.LoggerInterface)
		ethClientAny, _ := sr.Get("ethClient")
		ethClient := ethClientAny.(*ethclient.Client)

		sensorCfg := sensors.DefaultCongestionConfig()
		if cfg.MEV.SensorWindowSize > 0 {
			sensorCfg.WindowSize = cfg.MEV.SensorWindowSize
		}

		sensor, err := sensors.NewCongestionSensor(ethClient, sensorCfg, log)
		if err != nil {
			panic("failed to create congestion sensor: " + err.Error())
		}
		return sensor
	})

	// Register DensitySensor (private - internal dependency)
	di.RegisterToken(c, mevDI.DensitySensor, func(sr di.ServiceRegistry) app.DensitySensor {
		cfgAny, _ := sr.Get("config")
		cfg := cfgAny.(*config.Config)
		logAny, _ := sr.Get("logger")
		log := logAny.(logger.LoggerInterface)
		ethClientAny, _ := sr.Get("ethClient")
		ethClient := ethClientAny.(*ethclient.Client)

		routers := make([]common.Address, 0, len(cfg.MEV.RouterAddresses))
		for _, r := range cfg.MEV.RouterAddresses {
			routers = append(routers, common.HexToAddress(r))
		}
		sensorCfg := sensors.DefaultDensityConfig(routers)
		if cfg.MEV.SensorWindowSize > 0 {
			sensorCfg.WindowSize = cfg.MEV.SensorWindowSize
		}

		var chainID *big.Int
		if cfg.Ethereum.ChainID != 0 {
			chainID = new(big.Int).SetUint64(cfg.Ethereum.ChainID)
		}

		sensor, err := sensors.NewDensitySensor(ethClient, chainID, sensorCfg, log)
		if err != nil {
			panic("failed to create density sensor: " + err.Error())
		}
		return sensor
	})

	// Register SensorHub (public - exposed to other modules)
	di.RegisterToken(c, mevDI.SensorHub, func(sr di.ServiceRegistry) *app.SensorHub {
		cfgAny, _ := sr.Get("config")
		cfg := cfgAny.(*config.Config)
		logAny, _ := sr.Get("logger")
		log := logAny.(logger.LoggerInterface)

		return app.NewSensorHub(
			mevDI.GetCongestionSensor(sr),
			mevDI.GetDensitySensor(sr),
			cfg.MEV.SensorCacheTTL,
			log,
		)
	})

	// Register ProfitCalculator (private - internal dependency)
	di.RegisterToken(c, mevDI.ProfitCalculator, func(sr di.ServiceRegistry) *app.ProfitCalculator {
		cfgAny, _ := sr.Get("config")
		cfg := cfgAny.(*config.Config)

		params := domain.DefaultRiskParams()
		if cfg.MEV.BaseRisk > 0 {
			params.BaseRisk = cfg.MEV.BaseRisk
		}
		if cfg.MEV.ValueSensitivity > 0 {
			params.ValueSensitivity = cfg.MEV.ValueSensitivity
		}
		if cfg.MEV.CongestionWeight > 0 {
			params.CongestionWeight = cfg.MEV.CongestionWeight
		}
		if cfg.MEV.SearcherDensityWeight > 0 {
			params.SearcherDensity = cfg.MEV.SearcherDensityWeight
		}
		return app.NewProfitCalculator(params)
	})

	// Register AdvancedCalculator (private - internal dependency)
	di.RegisterToken(c, mevDI.AdvancedCalculator, func(sr di.ServiceRegistry) *app.AdvancedCalculator {
		cfgAny, _ := sr.Get("config")
		cfg := cfgAny.(*config.Config)

		advCfg := app.DefaultAdvancedConfig()
		if cfg.MEV.FlashLoanFeeBps > 0 {
			advCfg.FlashLoanFeeBps = cfg.MEV.FlashLoanFeeBps
		}
		if cfg.MEV.LeakFactor > 0 {
			advCfg.LeakFactor = cfg.MEV.LeakFactorDecimal()
		}
		advCfg.MinProfitThreshold = cfg.MEV.MinProfitThresholdDecimal()
		if cfg.MEV.NativePriceUSD > 0 {
			advCfg.NativePriceUSD = cfg.MEV.NativePriceUSDDecimal()
		}
		return app.NewAdvancedCalculator(advCfg)
	})

	// Register ProfitEvaluator (public - exposed to other modules)
	di.RegisterToken(c, mevDI.ProfitEvaluator, func(sr di.ServiceRegistry) *app.ProfitEvaluator {
		logAny, _ := sr.Get("logger")
		log := logAny.(logger.LoggerInterface)

		return app.NewProfitEvaluator(
			chainDI.GetChainService(sr),
			mevDI.GetAdvancedCalculator(sr),
			mevDI.GetProfitCalculator(sr),
			mevDI.GetSensorHub(sr),
			log,
		)
	})

	return nil
}

// Startup initializes the mev module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	// Resolve eagerly so wiring problems surface at startup.
	mevDI.GetProfitEvaluator(mono.Services())

	log.Info(ctx, "mev module started")
	return nil
}
