package sensors

import (
	"context"
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/arb-engine/business/mev/app"
	"github.com/fd1az/arb-engine/internal/apperror"
	"github.com/fd1az/arb-engine/internal/logger"
)

var _ app.DensitySensor = (*DensitySensor)(nil)

// DensityConfig tunes the searcher density sensor.
type DensityConfig struct {
	Routers    []common.Address
	WindowSize int
	// Weights for MEV ratio, sandwich score and bot clustering.
	Weights [3]float64
	// HighGasThreshold flags addresses paying this multiple of the
	// average gas price as likely bots.
	HighGasThreshold float64
}

// DefaultDensityConfig returns the calibrated defaults.
func DefaultDensityConfig(routers []common.Address) DensityConfig {
	return DensityConfig{
		Routers:          routers,
		WindowSize:       10,
		Weights:          [3]float64{0.4, 0.4, 0.2},
		HighGasThreshold: 5.0,
	}
}

type densityMetrics struct {
	score      metric.Float64Gauge
	readErrors metric.Int64Counter
}

// routerTx is one observed transaction against a monitored router.
type routerTx struct {
	from         common.Address
	gasPriceGwei float64
}

// DensitySensor scores searcher competition from router traffic
// share, gas price dispersion and high-gas address concentration.
type DensitySensor struct {
	client    *ethclient.Client
	config    DensityConfig
	routerSet map[common.Address]struct{}
	signer    types.Signer
	log       logger.LoggerInterface
	tracer    trace.Tracer
	metrics   *densityMetrics
}

// NewDensitySensor creates a density sensor over the shared client.
// The chain ID is needed to recover transaction senders.
func NewDensitySensor(client *ethclient.Client, chainID *big.Int, config DensityConfig, log logger.LoggerInterface) (*DensitySensor, error) {
	if config.WindowSize <= 0 {
		config.WindowSize = 10
	}
	routerSet := make(map[common.Address]struct{}, len(config.Routers))
	for _, r := range config.Routers {
		routerSet[r] = struct{}{}
	}

	s := &DensitySensor{
		client:    client,
		config:    config,
		routerSet: routerSet,
		signer:    types.LatestSignerForChainID(chainID),
		log:       log,
		tracer:    otel.Tracer(tracerName),
	}
	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return s, nil
}

func (s *DensitySensor) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &densityMetrics{}

	s.metrics.score, err = meter.Float64Gauge(
		"mev_searcher_density_score",
		metric.WithDescription("Current searcher density score"),
	)
	if err != nil {
		return err
	}

	s.metrics.readErrors, err = meter.Int64Counter(
		"mev_density_read_errors_total",
		metric.WithDescription("Density sensor read failures"),
	)
	return err
}

// DensityScore computes the 0..1 searcher activity score over the
// recent block window.
func (s *DensitySensor) DensityScore(ctx context.Context) (float64, error) {
	ctx, span := s.tracer.Start(ctx, "mev.density_score")
	defer span.End()

	totalTxs, routerTxs, err := s.observeWindow(ctx)
	if err != nil {
		s.metrics.readErrors.Add(ctx, 1)
		return 0, err
	}

	mevRatio := 0.0
	if totalTxs > 0 {
		mevRatio = math.Min(float64(len(routerTxs))/float64(totalTxs), 1.0)
	}
	sandwichScore := sandwichScore(routerTxs)
	clusteringScore := s.clusteringScore(routerTxs)

	score := s.config.Weights[0]*mevRatio +
		s.config.Weights[1]*sandwichScore +
		s.config.Weights[2]*clusteringScore
	score = math.Min(score, 1.0)

	s.metrics.score.Record(ctx, score)
	s.log.Debug(ctx, "searcher density reading",
		"score", score,
		"mev_ratio", mevRatio,
		"sandwich_score", sandwichScore,
		"clustering_score", clusteringScore,
		"router_txs", len(routerTxs),
	)
	return score, nil
}

// observeWindow walks the recent blocks collecting router traffic.
func (s *DensitySensor) observeWindow(ctx context.Context) (int, []routerTx, error) {
	latest, err := s.client.BlockNumber(ctx)
	if err != nil {
		return 0, nil, apperror.Wrap(err, apperror.CodeSensorReadFailed, "latest block number")
	}

	totalTxs := 0
	var observed []routerTx
	fetched := 0
	for i := 0; i < s.config.WindowSize; i++ {
		if uint64(i) > latest {
			break
		}
		block, err := s.client.BlockByNumber(ctx, new(big.Int).SetUint64(latest-uint64(i)))
		if err != nil {
			continue
		}
		fetched++

		for _, tx := range block.Transactions() {
			totalTxs++
			to := tx.To()
			if to == nil {
				continue
			}
			if _, ok := s.routerSet[*to]; !ok {
				continue
			}
			from, err := types.Sender(s.signer, tx)
			if err != nil {
				continue
			}
			gasPriceGwei, _ := new(big.Float).Quo(
				new(big.Float).SetInt(tx.GasPrice()),
				big.NewFloat(1e9),
			).Float64()
			observed = append(observed, routerTx{from: from, gasPriceGwei: gasPriceGwei})
		}
	}

	if fetched == 0 {
		return 0, nil, apperror.New(apperror.CodeSensorReadFailed,
			apperror.WithMessage("no blocks in window"))
	}
	return totalTxs, observed, nil
}

// sandwichScore uses the coefficient of variation of router gas
// prices: tight clustering is organic flow, wild spread is bots
// bidding around victims.
func sandwichScore(txs []routerTx) float64 {
	if len(txs) < 2 {
		return 0
	}
	prices := make([]float64, len(txs))
	mean := 0.0
	for i, tx := range txs {
		prices[i] = tx.gasPriceGwei
		mean += tx.gasPriceGwei
	}
	mean /= float64(len(prices))
	if mean == 0 {
		return 0
	}
	return math.Min(sampleStdev(prices)/mean, 1.0)
}

// clusteringScore measures the concentration of addresses paying far
// above the average gas price.
func (s *DensitySensor) clusteringScore(txs []routerTx) float64 {
	if len(txs) == 0 {
		return 0
	}

	mean := 0.0
	for _, tx := range txs {
		mean += tx.gasPriceGwei
	}
	mean /= float64(len(txs))

	highGas := make(map[common.Address]struct{})
	all := make(map[common.Address]struct{})
	for _, tx := range txs {
		all[tx.from] = struct{}{}
		if tx.gasPriceGwei > mean*s.config.HighGasThreshold {
			highGas[tx.from] = struct{}{}
		}
	}
	if len(all) == 0 {
		return 0
	}

	ratio := float64(len(highGas)) / float64(len(all))
	// Cap the absolute count at 50 active bot addresses.
	normalized := math.Min(float64(len(highGas))/50.0, 1.0)
	return math.Min((ratio+normalized)/2, 1.0)
}
