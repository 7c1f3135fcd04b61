// Package sensors implements on-chain MEV risk sensors over the
// shared RPC client.
package sensors

import (
	"context"
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/arb-engine/business/mev/app"
	"github.com/fd1az/arb-engine/internal/apperror"
	"github.com/fd1az/arb-engine/internal/logger"
)

const (
	tracerName = "mev.sensors"
	meterName  = "mev.sensors"
)

var _ app.CongestionSensor = (*CongestionSensor)(nil)

// CongestionConfig tunes the congestion sensor.
type CongestionConfig struct {
	WindowSize int
	// Weights for pending ratio, gas deviation and fee velocity.
	Weights [3]float64
}

// DefaultCongestionConfig returns the calibrated defaults.
func DefaultCongestionConfig() CongestionConfig {
	return CongestionConfig{
		WindowSize: 5,
		Weights:    [3]float64{0.4, 0.3, 0.3},
	}
}

type congestionMetrics struct {
	score      metric.Float64Gauge
	readErrors metric.Int64Counter
}

// CongestionSensor scores mempool congestion from pending depth,
// block fullness variance and base fee velocity.
type CongestionSensor struct {
	client  *ethclient.Client
	config  CongestionConfig
	log     logger.LoggerInterface
	tracer  trace.Tracer
	metrics *congestionMetrics
}

// NewCongestionSensor creates a congestion sensor over the shared client.
func NewCongestionSensor(client *ethclient.Client, config CongestionConfig, log logger.LoggerInterface) (*CongestionSensor, error) {
	if config.WindowSize <= 0 {
		config.WindowSize = 5
	}
	s := &CongestionSensor{
		client: client,
		config: config,
		log:    log,
		tracer: otel.Tracer(tracerName),
	}
	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return s, nil
}

func (s *CongestionSensor) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &congestionMetrics{}

	s.metrics.score, err = meter.Float64Gauge(
		"mev_congestion_score",
		metric.WithDescription("Current mempool congestion score"),
	)
	if err != nil {
		return err
	}

	s.metrics.readErrors, err = meter.Int64Counter(
		"mev_congestion_read_errors_total",
		metric.WithDescription("Congestion sensor read failures"),
	)
	return err
}

// CongestionScore computes the 0..1 congestion score. Individual
// component failures degrade to zero contribution, a failure to read
// the recent block window fails the whole reading.
func (s *CongestionSensor) CongestionScore(ctx context.Context) (float64, error) {
	ctx, span := s.tracer.Start(ctx, "mev.congestion_score")
	defer span.End()

	headers, err := s.recentHeaders(ctx)
	if err != nil {
		s.metrics.readErrors.Add(ctx, 1)
		return 0, apperror.Wrap(err, apperror.CodeSensorReadFailed, "recent headers")
	}

	pendingRatio := s.pendingRatio(ctx)
	gasDeviation := s.gasDeviation(headers)
	feeVelocity := s.feeVelocity(headers)

	score := s.config.Weights[0]*pendingRatio +
		s.config.Weights[1]*math.Min(gasDeviation, 1.0) +
		s.config.Weights[2]*math.Min(math.Abs(feeVelocity), 1.0)
	score = math.Min(score, 1.0)

	s.metrics.score.Record(ctx, score)
	s.log.Debug(ctx, "congestion reading",
		"score", score,
		"pending_ratio", pendingRatio,
		"gas_deviation", gasDeviation,
		"fee_velocity", feeVelocity,
	)
	return score, nil
}

// pendingRatio compares mempool depth against ten blocks of capacity.
func (s *CongestionSensor) pendingRatio(ctx context.Context) float64 {
	pending, err := s.client.PendingTransactionCount(ctx)
	if err != nil {
		return 0
	}
	header, err := s.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0
	}
	perBlock, err := s.client.TransactionCount(ctx, header.Hash())
	if err != nil || perBlock == 0 {
		perBlock = 1
	}
	return math.Min(float64(pending)/math.Max(float64(perBlock)*10, 1), 1.0)
}

// gasDeviation measures block fullness variance over the window.
func (s *CongestionSensor) gasDeviation(headers []*types.Header) float64 {
	ratios := make([]float64, 0, len(headers))
	for _, h := range headers {
		if h.GasLimit > 0 {
			ratios = append(ratios, float64(h.GasUsed)/float64(h.GasLimit))
		}
	}
	if len(ratios) < 2 {
		return 0
	}
	return sampleStdev(ratios) * 2
}

// feeVelocity is the base fee rate of change, newest block relative
// to the oldest in the window.
func (s *CongestionSensor) feeVelocity(headers []*types.Header) float64 {
	fees := make([]*big.Int, 0, len(headers))
	for _, h := range headers {
		if h.BaseFee != nil {
			fees = append(fees, h.BaseFee)
		}
	}
	if len(fees) < 2 {
		return 0
	}
	oldest := fees[len(fees)-1]
	newest := fees[0]
	if oldest.Sign() > 0 {
		diff := new(big.Float).Sub(new(big.Float).SetInt(newest), new(big.Float).SetInt(oldest))
		velocity, _ := new(big.Float).Quo(diff, new(big.Float).SetInt(oldest)).Float64()
		return velocity
	}
	if newest.Sign() == 0 {
		return 0
	}
	return 1
}

// recentHeaders fetches the window newest-first.
func (s *CongestionSensor) recentHeaders(ctx context.Context) ([]*types.Header, error) {
	latest, err := s.client.BlockNumber(ctx)
	if err != nil {
		return nil, err
	}
	headers := make([]*types.Header, 0, s.config.WindowSize)
	for i := 0; i < s.config.WindowSize; i++ {
		if uint64(i) > latest {
			break
		}
		header, err := s.client.HeaderByNumber(ctx, new(big.Int).SetUint64(latest-uint64(i)))
		if err != nil {
			continue
		}
		headers = append(headers, header)
	}
	if len(headers) == 0 {
		return nil, apperror.New(apperror.CodeSensorReadFailed,
			apperror.WithMessage("no headers in window"))
	}
	return headers, nil
}

func sampleStdev(values []float64) float64 {
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values) - 1)
	return math.Sqrt(variance)
}
