// Package arbitrage implements the arbitrage detection bounded context.
package arbitrage

import (
	"context"

	"github.com/fd1az/arb-engine/business/arbitrage/app"
	arbDI "github.com/fd1az/arb-engine/business/arbitrage/di"
	"github.com/fd1az/arb-engine/business/arbitrage/infra"
	mevDI "github.com/fd1az/arb-engine/business/mev/di"
	poolsDI "github.com/fd1az/arb-engine/business/pools/di"
	"github.com/fd1az/arb-engine/internal/config"
	"github.com/fd1az/arb-engine/internal/di"
	"github.com/fd1az/arb-engine/internal/logger"
	"github.com/fd1az/arb-engine/internal/monolith"
)

// Module implements the arbitrage bounded context.
type Module struct{}

// RegisterServices registers all arbitrage services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register SpatialEngine (private - internal dependency)
	di.RegisterToken(c, arbDI.SpatialEngine, func(sr di.ServiceRegistry) *app.SpatialEngine {
		cfgAny, _ := sr.Get("config")
		cfg := cfgAny.(*config.Config)
		logAny, _ := sr.Get("logger")
		log := logAny.(logger.LoggerInterface)

		spatialCfg := app.DefaultSpatialConfig()
		spatialCfg.MinProfitBips = cfg.Arbitrage.MinProfitBps
		spatialCfg.InputAmount = cfg.Arbitrage.InputAmount
		spatialCfg.MinLiquidityUSD = cfg.Arbitrage.MinLiquidityUSDDecimal()

		return app.NewSpatialEngine(spatialCfg, poolsDI.GetPriceProvider(sr), log)
	})

	// Register TriangularEngine (private - internal dependency)
	di.RegisterToken(c, arbDI.TriangularEngine, func(sr di.ServiceRegistry) *app.TriangularEngine {
		cfgAny, _ := sr.Get("config")
		cfg := cfgAny.(*config.Config)
		logAny, _ := sr.Get("logger")
		log := logAny.(logger.LoggerInterface)

		triCfg := app.DefaultTriangularConfig()
		triCfg.MinProfitBips = cfg.Arbitrage.MinProfitBps
		triCfg.InputAmount = cfg.Arbitrage.InputAmount
		triCfg.MaxHops = cfg.Arbitrage.MaxHops
		triCfg.MaxStartTokens = cfg.Arbitrage.MaxStartTokens

		return app.NewTriangularEngine(triCfg, log)
	})

	// Register Reporter (private - internal dependency)
	di.RegisterToken(c, arbDI.Reporter, func(sr di.ServiceRegistry) app.Reporter {
		cfgAny, _ := sr.Get("config")
		cfg := cfgAny.(*config.Config)

		console := infra.NewConsoleReporter()
		if cfg.Arbitrage.ReportFile == "" {
			return console
		}
		file, err := infra.NewFileReporter(cfg.Arbitrage.ReportFile)
		if err != nil {
			panic("failed to create report file reporter: " + err.Error())
		}
		return infra.NewMultiReporter(console, file)
	})

	// Register Detector (public - exposed to other modules)
	di.RegisterToken(c, arbDI.Detector, func(sr di.ServiceRegistry) *app.Detector {
		cfgAny, _ := sr.Get("config")
		cfg := cfgAny.(*config.Config)
		logAny, _ := sr.Get("logger")
		log := logAny.(logger.LoggerInterface)

		detectorCfg := app.DefaultDetectorConfig()
		if cfg.Arbitrage.MaxRiskScore > 0 {
			detectorCfg.MaxRiskScore = cfg.Arbitrage.MaxRiskScore
		}

		detector, err := app.NewDetector(
			detectorCfg,
			poolsDI.GetSnapshotService(sr),
			arbDI.GetSpatialEngine(sr),
			arbDI.GetTriangularEngine(sr),
			mevDI.GetProfitEvaluator(sr),
			arbDI.GetReporter(sr),
			log,
		)
		if err != nil {
			panic("failed to create detector: " + err.Error())
		}
		return detector
	})

	return nil
}

// Startup initializes the arbitrage module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	// Resolve eagerly so wiring problems surface at startup.
	arbDI.GetDetector(mono.Services())

	log.Info(ctx, "arbitrage module started")
	return nil
}
