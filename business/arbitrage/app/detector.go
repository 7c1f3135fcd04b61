package app

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/arb-engine/business/arbitrage/domain"
	chaindomain "github.com/fd1az/arb-engine/business/chain/domain"
	"github.com/fd1az/arb-engine/internal/logger"
)

// DetectorConfig tunes the detection loop.
type DetectorConfig struct {
	MaxRiskScore float64 // opportunities above this are discarded
}

// DefaultDetectorConfig returns the standard risk gate.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{MaxRiskScore: 0.8}
}

type detectorMetrics struct {
	scansTotal         metric.Int64Counter
	scanDuration       metric.Float64Histogram
	opportunitiesFound metric.Int64Counter
	riskRejections     metric.Int64Counter
}

// Detector drives one full arbitrage scan per new block head: take a
// pool snapshot, run both engines, gate on risk, evaluate economics,
// advance the lifecycle and publish. Consumers see opportunities as
// pending or failed, never as raw identifications.
type Detector struct {
	config     DetectorConfig
	snapshots  SnapshotSource
	spatial    *SpatialEngine
	triangular *TriangularEngine
	evaluator  Evaluator
	reporter   Reporter
	log        logger.LoggerInterface
	tracer     trace.Tracer
	metrics    *detectorMetrics
}

// NewDetector wires the detection loop. The evaluator may be nil, in
// which case opportunities are reported with gross economics only.
func NewDetector(
	config DetectorConfig,
	snapshots SnapshotSource,
	spatial *SpatialEngine,
	triangular *TriangularEngine,
	evaluator Evaluator,
	reporter Reporter,
	log logger.LoggerInterface,
) (*Detector, error) {
	d := &Detector{
		config:     config,
		snapshots:  snapshots,
		spatial:    spatial,
		triangular: triangular,
		evaluator:  evaluator,
		reporter:   reporter,
		log:        log,
		tracer:     otel.Tracer("arbitrage.detector"),
	}
	if err := d.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return d, nil
}

func (d *Detector) initMetrics() error {
	meter := otel.Meter("arbitrage.detector")
	var err error

	d.metrics = &detectorMetrics{}

	d.metrics.scansTotal, err = meter.Int64Counter(
		"arbitrage_scans_total",
		metric.WithDescription("Total block scans performed"),
	)
	if err != nil {
		return err
	}

	d.metrics.scanDuration, err = meter.Float64Histogram(
		"arbitrage_scan_duration_seconds",
		metric.WithDescription("Duration of a full arbitrage scan"),
	)
	if err != nil {
		return err
	}

	d.metrics.opportunitiesFound, err = meter.Int64Counter(
		"arbitrage_opportunities_total",
		metric.WithDescription("Opportunities that passed all gates"),
		metric.WithUnit("{opportunity}"),
	)
	if err != nil {
		return err
	}

	d.metrics.riskRejections, err = meter.Int64Counter(
		"arbitrage_risk_rejections_total",
		metric.WithDescription("Opportunities discarded by the risk gate"),
	)
	return err
}

// Run consumes block heads until the context is cancelled. One scan
// runs per head, a head arriving mid-scan waits for the next delivery.
func (d *Detector) Run(ctx context.Context, heads <-chan *chaindomain.Block) error {
	if err := d.reporter.Start(ctx); err != nil {
		return fmt.Errorf("start reporter: %w", err)
	}
	defer func() {
		if err := d.reporter.Stop(context.WithoutCancel(ctx)); err != nil {
			d.log.Warn(ctx, "reporter stop failed", "error", err)
		}
	}()

	d.log.Info(ctx, "arbitrage detector running", "max_risk_score", d.config.MaxRiskScore)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case head, ok := <-heads:
			if !ok {
				return nil
			}
			if err := d.Scan(ctx, head); err != nil {
				d.log.Warn(ctx, "scan failed", "block", head.Number, "error", err)
			}
		}
	}
}

// advance moves a surviving candidate through the lifecycle before it
// is published: the evaluated net profit stands in as the simulation
// result, profitable candidates queue as pending, the rest fail out.
func (d *Detector) advance(ctx context.Context, o *domain.Opportunity) {
	if o.Status == domain.StatusIdentified {
		if err := o.UpdateSimulationResults(o.NetProfit); err != nil {
			d.log.Warn(ctx, "simulation bookkeeping failed",
				"opportunity_id", o.ID, "error", err)
			return
		}
	}
	if o.Status == domain.StatusSimulated {
		if err := o.UpdateStatus(domain.StatusPending); err != nil {
			d.log.Warn(ctx, "could not queue opportunity",
				"opportunity_id", o.ID, "error", err)
		}
	}
}

// Scan performs one full detection pass against the given head.
func (d *Detector) Scan(ctx context.Context, head *chaindomain.Block) error {
	ctx, span := d.tracer.Start(ctx, "arbitrage.scan",
		trace.WithAttributes(attribute.Int64("block", int64(head.Number))),
	)
	defer span.End()

	started := time.Now()
	d.metrics.scansTotal.Add(ctx, 1)

	snapshot, err := d.snapshots.Take(ctx)
	if err != nil {
		return err
	}
	snapshot.Block = head.Number

	candidates := d.spatial.Find(ctx, snapshot)
	candidates = d.spatial.FilterByLiquidity(ctx, candidates)

	cycles, err := d.triangular.FindAll(ctx, snapshot)
	if err != nil {
		return err
	}
	candidates = append(candidates, cycles...)

	reported := 0
	for _, o := range candidates {
		if o.RiskScore > d.config.MaxRiskScore {
			d.metrics.riskRejections.Add(ctx, 1)
			d.log.Debug(ctx, "opportunity rejected by risk gate",
				"opportunity_id", o.ID, "risk_score", o.RiskScore)
			continue
		}
		if d.evaluator != nil {
			if err := d.evaluator.Evaluate(ctx, o); err != nil {
				d.log.Warn(ctx, "evaluation failed",
					"opportunity_id", o.ID, "error", err)
				_ = o.MarkFailed("Evaluation failed: " + err.Error())
			}
		}
		d.advance(ctx, o)
		if err := d.reporter.Report(ctx, o); err != nil {
			d.log.Warn(ctx, "report failed", "opportunity_id", o.ID, "error", err)
			continue
		}
		reported++
	}

	d.metrics.opportunitiesFound.Add(ctx, int64(reported))
	d.metrics.scanDuration.Record(ctx, time.Since(started).Seconds())
	span.SetAttributes(
		attribute.Int("candidates", len(candidates)),
		attribute.Int("reported", reported),
	)

	d.log.Info(ctx, "scan complete",
		"block", head.Number,
		"pools", len(snapshot.Pools),
		"candidates", len(candidates),
		"reported", reported,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return nil
}
