package app

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/arb-engine/business/pools/domain"
	"github.com/fd1az/arb-engine/internal/apperror"
	"github.com/fd1az/arb-engine/internal/logger"
	"github.com/fd1az/arb-engine/internal/ratelimit"
)

const tracerName = "pools"

// SnapshotConfig configures the snapshot service.
type SnapshotConfig struct {
	Addresses          []common.Address
	SupportedProtocols []domain.Protocol
	Concurrency        int
}

// SnapshotService fetches a consistent view of the tracked pool set.
// Degenerate pools are excluded with a warning instead of failing the
// whole snapshot.
type SnapshotService struct {
	fetcher   PoolFetcher
	limiter   *ratelimit.Limiter
	log       logger.LoggerInterface
	tracer    trace.Tracer
	addresses []common.Address
	supported map[domain.Protocol]bool
	workers   int
}

// NewSnapshotService creates a snapshot service.
func NewSnapshotService(
	fetcher PoolFetcher,
	limiter *ratelimit.Limiter,
	cfg SnapshotConfig,
	log logger.LoggerInterface,
) *SnapshotService {
	workers := cfg.Concurrency
	if workers < 1 {
		workers = 1
	}
	supported := make(map[domain.Protocol]bool, len(cfg.SupportedProtocols))
	for _, p := range cfg.SupportedProtocols {
		supported[p] = true
	}
	if len(supported) == 0 {
		for _, p := range domain.SupportedProtocols() {
			supported[p] = true
		}
	}
	return &SnapshotService{
		fetcher:   fetcher,
		limiter:   limiter,
		log:       log,
		tracer:    otel.Tracer(tracerName),
		addresses: cfg.Addresses,
		supported: supported,
		workers:   workers,
	}
}

// Take fetches all tracked pools concurrently and returns the usable
// subset. A pool fetch failure or a degenerate pool drops that pool
// only, an empty result is returned as an error.
func (s *SnapshotService) Take(ctx context.Context) (domain.Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "pools.snapshot",
		trace.WithAttributes(attribute.Int("pool_count", len(s.addresses))),
	)
	defer span.End()

	results := make([]*domain.Pool, len(s.addresses))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, addr := range s.addresses {
		g.Go(func() error {
			if err := s.limiter.Wait(gctx); err != nil {
				return err
			}

			pool, err := s.fetcher.FetchPool(gctx, addr)
			if err != nil {
				s.log.Warn(gctx, "pool fetch failed, excluding from snapshot",
					"pool", addr.Hex(), "error", err)
				return nil
			}
			if !s.supported[pool.Protocol] {
				s.log.Debug(gctx, "unsupported protocol, excluding from snapshot",
					"pool", addr.Hex(), "protocol", pool.Protocol)
				return nil
			}
			if err := pool.Validate(); err != nil {
				s.log.Warn(gctx, "degenerate pool excluded from snapshot",
					"pool", addr.Hex(), "error", err)
				return nil
			}

			mu.Lock()
			results[i] = &pool
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return domain.Snapshot{}, apperror.Wrap(err, apperror.CodePoolFetchFailed, "snapshot aborted")
	}

	pools := make([]domain.Pool, 0, len(results))
	for _, p := range results {
		if p != nil {
			pools = append(pools, *p)
		}
	}

	span.SetAttributes(attribute.Int("usable_pools", len(pools)))

	if len(pools) == 0 {
		return domain.Snapshot{}, apperror.New(apperror.CodePoolFetchFailed,
			apperror.WithContext("no usable pools in snapshot"))
	}

	return domain.Snapshot{Pools: pools, TakenAt: time.Now().UTC()}, nil
}
