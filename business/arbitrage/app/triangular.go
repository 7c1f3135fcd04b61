package app

import (
	"context"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/arb-engine/business/arbitrage/domain"
	pooldomain "github.com/fd1az/arb-engine/business/pools/domain"
	"github.com/fd1az/arb-engine/internal/logger"
)

const triangularGasPerHop = 150_000

// TriangularConfig tunes the cyclic search.
type TriangularConfig struct {
	MinProfitBips  int
	InputAmount    float64
	MaxHops        int // cycle length cap, at most 4
	MaxStartTokens int // parallel search fan-out cap
}

// DefaultTriangularConfig returns the standard thresholds.
func DefaultTriangularConfig() TriangularConfig {
	return TriangularConfig{
		MinProfitBips:  50,
		InputAmount:    1.0,
		MaxHops:        3,
		MaxStartTokens: 32,
	}
}

// TriangularEngine searches for profitable cycles through three or
// more pools, returning to the start token with more than went in.
// Cycles are executed atomically behind a flash loan.
type TriangularEngine struct {
	config TriangularConfig
	log    logger.LoggerInterface
	tracer trace.Tracer
}

// NewTriangularEngine creates a triangular engine.
func NewTriangularEngine(config TriangularConfig, log logger.LoggerInterface) *TriangularEngine {
	if config.MaxHops > 4 {
		config.MaxHops = 4
	}
	if config.MaxHops < 2 {
		config.MaxHops = 2
	}
	return &TriangularEngine{
		config: config,
		log:    log,
		tracer: otel.Tracer("arbitrage.triangular"),
	}
}

// tokenIndex maps each token to the pools it can be swapped through.
// Rebuilt from scratch for every snapshot so a scan never sees pools
// from two different blocks.
type tokenIndex map[common.Address][]pooldomain.Pool

func buildTokenIndex(snapshot pooldomain.Snapshot) tokenIndex {
	index := make(tokenIndex, len(snapshot.Pools)*2)
	for _, pool := range snapshot.Pools {
		if pool.Validate() != nil {
			continue
		}
		index[pool.Token0] = append(index[pool.Token0], pool)
		index[pool.Token1] = append(index[pool.Token1], pool)
	}
	return index
}

// Find searches for cycles starting and ending at start.
func (e *TriangularEngine) Find(ctx context.Context, snapshot pooldomain.Snapshot, start common.Address) []*domain.Opportunity {
	ctx, span := e.tracer.Start(ctx, "arbitrage.triangular.find",
		trace.WithAttributes(attribute.String("start_token", start.Hex())),
	)
	defer span.End()

	index := buildTokenIndex(snapshot)
	found := e.search(ctx, index, start)

	span.SetAttributes(attribute.Int("opportunities", len(found)))
	return found
}

// FindAll runs the cycle search from every token in the snapshot,
// in parallel, and deduplicates cycles found from multiple starts.
func (e *TriangularEngine) FindAll(ctx context.Context, snapshot pooldomain.Snapshot) ([]*domain.Opportunity, error) {
	ctx, span := e.tracer.Start(ctx, "arbitrage.triangular.find_all",
		trace.WithAttributes(attribute.Int("pools", len(snapshot.Pools))),
	)
	defer span.End()

	index := buildTokenIndex(snapshot)
	tokens := snapshot.Tokens()
	if len(tokens) > e.config.MaxStartTokens {
		tokens = tokens[:e.config.MaxStartTokens]
	}

	results := make([][]*domain.Opportunity, len(tokens))
	g, gctx := errgroup.WithContext(ctx)
	for i, token := range tokens {
		g.Go(func() error {
			results[i] = e.search(gctx, index, token)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// The same cycle is reachable from each of its member tokens.
	seen := make(map[string]struct{})
	var merged []*domain.Opportunity
	for _, batch := range results {
		for _, o := range batch {
			sig := cycleSignature(o.PoolAddresses)
			if _, dup := seen[sig]; dup {
				continue
			}
			seen[sig] = struct{}{}
			merged = append(merged, o)
		}
	}

	stats := engineMeters()
	stats.poolsScanned.Add(ctx, int64(len(snapshot.Pools)), engineAttr("triangular"))
	stats.opportunitiesFound.Add(ctx, int64(len(merged)), engineAttr("triangular"))

	span.SetAttributes(attribute.Int("opportunities", len(merged)))
	return merged, nil
}

func cycleSignature(pools []common.Address) string {
	addrs := make([]string, len(pools))
	for i, a := range pools {
		addrs[i] = strings.ToLower(a.Hex())
	}
	sort.Strings(addrs)
	return strings.Join(addrs, "|")
}

// triWalk holds the mutable state of one depth-first search. The path
// buffer is shared across recursion levels, pushed and popped in place,
// and copied only when a cycle is recorded.
type triWalk struct {
	engine  *TriangularEngine
	index   tokenIndex
	start   common.Address
	path    domain.Path
	visited map[common.Address]struct{}
	inPath  map[common.Address]struct{} // pools already used in the current path
	found   []*domain.Opportunity
}

func (e *TriangularEngine) search(ctx context.Context, index tokenIndex, start common.Address) []*domain.Opportunity {
	if _, ok := index[start]; !ok {
		return nil
	}
	w := &triWalk{
		engine:  e,
		index:   index,
		start:   start,
		path:    make(domain.Path, 0, e.config.MaxHops),
		visited: map[common.Address]struct{}{start: {}},
		inPath:  make(map[common.Address]struct{}, e.config.MaxHops),
	}
	w.step(ctx, start, e.config.InputAmount)
	return w.found
}

func (w *triWalk) step(ctx context.Context, current common.Address, amount float64) {
	if ctx.Err() != nil {
		return
	}
	for _, pool := range w.index[current] {
		if _, used := w.inPath[pool.Address]; used {
			continue
		}
		next := pool.OtherToken(current)

		if next == w.start {
			if len(w.path) >= 2 {
				w.tryClose(ctx, pool, current, amount)
			}
			continue // never close on the first hop
		}
		if _, seen := w.visited[next]; seen {
			continue
		}
		if len(w.path)+1 >= w.engine.config.MaxHops {
			continue // extending would leave no room to return
		}

		out, err := pool.AmountOut(amount, current)
		if err != nil {
			continue
		}

		w.push(pool, current, next, amount, out)
		w.visited[next] = struct{}{}
		w.step(ctx, next, out)
		delete(w.visited, next)
		w.pop(pool)
	}
}

// tryClose quotes the final leg back to the start token and records
// the cycle if it beats the profit threshold.
func (w *triWalk) tryClose(ctx context.Context, pool pooldomain.Pool, current common.Address, amount float64) {
	finalOut, err := pool.AmountOut(amount, current)
	if err != nil {
		return
	}
	input := w.engine.config.InputAmount
	if finalOut <= input {
		return
	}
	profitBips := int(((finalOut - input) / input) * 10000)
	if profitBips < w.engine.config.MinProfitBips {
		return
	}

	w.push(pool, current, w.start, amount, finalOut)
	path := append(domain.Path(nil), w.path...)
	w.pop(pool)

	o := domain.New(domain.TypeTriangular, path, input)
	o.RequiresFlashLoan = true
	o.FlashLoanAmount = input
	o.FlashLoanToken = w.start
	o.EstimatedGas = uint64(triangularGasPerHop * len(path))
	o.ComputeRiskScore()

	w.engine.log.Debug(ctx, "triangular opportunity found",
		"start_token", w.start.Hex(),
		"hops", len(path),
		"profit_bips", profitBips,
	)
	w.found = append(w.found, o)
}

func (w *triWalk) push(pool pooldomain.Pool, tokenIn, tokenOut common.Address, amountIn, amountOut float64) {
	w.path = append(w.path, domain.Step{
		Step:           len(w.path) + 1,
		PoolAddress:    pool.Address,
		Protocol:       pool.Protocol,
		TokenIn:        tokenIn,
		TokenOut:       tokenOut,
		AmountIn:       amountIn,
		ExpectedOutput: amountOut,
		FeeBps:         pool.FeeBps,
	})
	w.inPath[pool.Address] = struct{}{}
}

func (w *triWalk) pop(pool pooldomain.Pool) {
	w.path = w.path[:len(w.path)-1]
	delete(w.inPath, pool.Address)
}
