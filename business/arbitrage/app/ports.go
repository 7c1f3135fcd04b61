// Package app implements the arbitrage search engines and the
// detection loop that drives them.
package app

import (
	"context"

	"github.com/fd1az/arb-engine/business/arbitrage/domain"
	pooldomain "github.com/fd1az/arb-engine/business/pools/domain"
)

// SnapshotSource provides a consistent view of the tracked pools.
type SnapshotSource interface {
	Take(ctx context.Context) (pooldomain.Snapshot, error)
}

// Evaluator enriches a detected opportunity with execution economics
// before it is reported. Implementations charge gas, flash loan fees
// and expected MEV leakage against the gross profit.
type Evaluator interface {
	Evaluate(ctx context.Context, o *domain.Opportunity) error
}

// Reporter publishes detected opportunities.
type Reporter interface {
	Start(ctx context.Context) error
	Report(ctx context.Context, o *domain.Opportunity) error
	Stop(ctx context.Context) error
}
