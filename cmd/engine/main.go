// Package main is the entry point for the arbitrage engine.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/fd1az/arb-engine/business/arbitrage"
	arbitrageDI "github.com/fd1az/arb-engine/business/arbitrage/di"
	"github.com/fd1az/arb-engine/business/chain"
	chainDI "github.com/fd1az/arb-engine/business/chain/di"
	chaindomain "github.com/fd1az/arb-engine/business/chain/domain"
	"github.com/fd1az/arb-engine/business/mev"
	"github.com/fd1az/arb-engine/business/pools"
	"github.com/fd1az/arb-engine/internal/apm"
	"github.com/fd1az/arb-engine/internal/config"
	"github.com/fd1az/arb-engine/internal/health"
	"github.com/fd1az/arb-engine/internal/logger"
	"github.com/fd1az/arb-engine/internal/metrics"
	"github.com/fd1az/arb-engine/internal/monolith"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	healthPort := flag.Int("health-port", 8081, "Health check server port")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("arb-engine %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *healthPort); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, healthPort int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logLevel := logger.LevelInfo
	switch cfg.App.LogLevel {
	case "debug":
		logLevel = logger.LevelDebug
	case "warn":
		logLevel = logger.LevelWarn
	case "error":
		logLevel = logger.LevelError
	}
	log := logger.New(os.Stderr, logLevel, cfg.App.Name, nil)

	log.Info(ctx, "starting arbitrage engine",
		"version", version,
		"environment", cfg.App.Environment,
	)

	// Initialize observability if enabled
	var traceProvider apm.TraceProvider
	if cfg.Telemetry.Enabled {
		traceProvider, err = apm.NewTraceProvider(
			cfg.Telemetry.ServiceName,
			apm.WithProvider(apm.OTLPGRPCProvider, cfg.Telemetry.OTLPEndpoint, log),
		)
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		log.Info(ctx, "tracing initialized", "endpoint", cfg.Telemetry.OTLPEndpoint)

		if _, err := metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithExporterConfig(metrics.NewPrometheusConfig()),
		); err != nil {
			return fmt.Errorf("failed to initialize metrics: %w", err)
		}

		port := cfg.Telemetry.PrometheusPort
		if port == 0 {
			port = 9090
		}
		go func() {
			if err := metrics.ServePrometheusMetrics(metrics.WithPort(strconv.Itoa(port))); err != nil {
				log.Error(ctx, "metrics server stopped", "error", err)
			}
		}()
		log.Info(ctx, "prometheus metrics server started", "port", port)
	}
	defer func() {
		if traceProvider != nil {
			_ = traceProvider.Stop()
		}
	}()

	healthServer := health.NewServer(healthPort, version)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", healthPort)
	}
	defer healthServer.Stop(context.Background())

	mono, err := monolith.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	// Modules in dependency order: chain provides the head feed and gas
	// oracle, pools the state snapshots, mev the profit evaluator.
	modules := []monolith.Module{
		&chain.Module{},
		&pools.Module{},
		&mev.Module{},
		&arbitrage.Module{},
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}
	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	chainService := chainDI.GetChainService(mono.Services())
	heads, err := chainService.SubscribeHeads(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to heads: %w", err)
	}

	healthServer.RegisterCheck("chain", func(ctx context.Context) (bool, string) {
		status := chainService.ConnectionStatus()
		return status.State == chaindomain.StateConnected, string(status.State)
	})

	log.Info(ctx, "all modules started, scanning for opportunities")

	detector := arbitrageDI.GetDetector(mono.Services())
	if err := detector.Run(ctx, heads); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("detector stopped: %w", err)
	}

	log.Info(ctx, "shutting down")
	return nil
}
