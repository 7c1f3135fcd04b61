package ethereum

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/arb-engine/business/chain/app"
	"github.com/fd1az/arb-engine/business/chain/domain"
	"github.com/fd1az/arb-engine/internal/apperror"
	"github.com/fd1az/arb-engine/internal/circuitbreaker"
	"github.com/fd1az/arb-engine/internal/logger"
	"github.com/fd1az/arb-engine/internal/wsconn"
)

var _ app.HeadSubscriber = (*HeadFeed)(nil)

// HeadFeedConfig holds configuration for the head feed.
type HeadFeedConfig struct {
	WSURL          string        // WebSocket endpoint (primary)
	PollInterval   time.Duration // polling interval for the HTTP fallback
	BufferSize     int           // head channel buffer size
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultHeadFeedConfig returns sensible defaults.
func DefaultHeadFeedConfig(wsURL string) HeadFeedConfig {
	return HeadFeedConfig{
		WSURL:          wsURL,
		PollInterval:   12 * time.Second, // ~1 block time
		BufferSize:     16,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
	}
}

type headFeedMetrics struct {
	headsReceived   metric.Int64Counter
	subscribeErrors metric.Int64Counter
	httpFallbacks   metric.Int64Counter
}

// HeadFeed streams new block headers over WebSocket with an HTTP
// polling fallback through the shared RPC client.
type HeadFeed struct {
	config HeadFeedConfig
	log    logger.LoggerInterface

	httpClient *ethclient.Client
	ws         *wsconn.Client

	stateMu    sync.RWMutex
	state      domain.ConnectionState
	lastBlock  atomic.Uint64
	lastUpdate atomic.Int64
	reconnects atomic.Int32
	usingHTTP  atomic.Bool

	blocks  chan *domain.Block
	started atomic.Bool

	httpCB *circuitbreaker.CircuitBreaker[*types.Header]

	tracer  trace.Tracer
	metrics *headFeedMetrics
}

// NewHeadFeed creates a head feed. The HTTP client is shared with the
// rest of the application, the WebSocket connection is owned here.
func NewHeadFeed(httpClient *ethclient.Client, cfg HeadFeedConfig, log logger.LoggerInterface) (*HeadFeed, error) {
	f := &HeadFeed{
		config:     cfg,
		log:        log,
		httpClient: httpClient,
		state:      domain.StateDisconnected,
		blocks:     make(chan *domain.Block, cfg.BufferSize),
		httpCB:     circuitbreaker.New[*types.Header](circuitbreaker.DefaultConfig("head-poll")),
		tracer:     otel.Tracer(tracerName),
	}

	if err := f.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return f, nil
}

func (f *HeadFeed) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	f.metrics = &headFeedMetrics{}

	f.metrics.headsReceived, err = meter.Int64Counter(
		"chain_heads_received_total",
		metric.WithDescription("Total block headers received"),
	)
	if err != nil {
		return err
	}

	f.metrics.subscribeErrors, err = meter.Int64Counter(
		"chain_subscribe_errors_total",
		metric.WithDescription("Head subscription errors"),
	)
	if err != nil {
		return err
	}

	f.metrics.httpFallbacks, err = meter.Int64Counter(
		"chain_http_fallback_total",
		metric.WithDescription("Times the HTTP polling fallback engaged"),
	)
	return err
}

// Subscribe starts the feed and returns the head channel. The
// WebSocket path is preferred, HTTP polling engages when no WebSocket
// endpoint is configured or the initial dial fails.
func (f *HeadFeed) Subscribe(ctx context.Context) (<-chan *domain.Block, error) {
	ctx, span := f.tracer.Start(ctx, "chain.subscribe_heads",
		trace.WithAttributes(attribute.String("ws_url", f.config.WSURL)),
	)
	defer span.End()

	if !f.started.CompareAndSwap(false, true) {
		return nil, errors.New("head feed already started")
	}

	f.setState(domain.StateConnecting)

	if f.config.WSURL != "" {
		if err := f.connectWS(ctx); err == nil {
			go f.wsLoop(ctx)
			f.setState(domain.StateConnected)
			return f.blocks, nil
		} else {
			f.metrics.subscribeErrors.Add(ctx, 1)
			f.log.Warn(ctx, "websocket head feed unavailable, falling back to polling", "error", err)
		}
	}

	f.metrics.httpFallbacks.Add(ctx, 1)
	f.usingHTTP.Store(true)
	go f.pollLoop(ctx)
	f.setState(domain.StateConnected)
	return f.blocks, nil
}

func (f *HeadFeed) connectWS(ctx context.Context) error {
	wsCfg := wsconn.DefaultConfig(f.config.WSURL)
	wsCfg.InitialBackoff = f.config.InitialBackoff
	wsCfg.MaxBackoff = f.config.MaxBackoff

	f.ws = wsconn.New(wsCfg, f.log)
	f.ws.OnConnect(func(ctx context.Context, send func(context.Context, []byte) error) error {
		f.reconnects.Add(1)
		sub := `{"jsonrpc":"2.0","id":1,"method":"eth_subscribe","params":["newHeads"]}`
		return send(ctx, []byte(sub))
	})

	return f.ws.Connect(ctx)
}

// headNotification is the eth_subscription payload for newHeads.
type headNotification struct {
	Method string `json:"method"`
	Params struct {
		Result struct {
			Number     *hexutil.Big   `json:"number"`
			Hash       string         `json:"hash"`
			ParentHash string         `json:"parentHash"`
			Timestamp  *hexutil.Big   `json:"timestamp"`
			GasLimit   hexutil.Uint64 `json:"gasLimit"`
			GasUsed    hexutil.Uint64 `json:"gasUsed"`
			BaseFee    *hexutil.Big   `json:"baseFeePerGas"`
		} `json:"result"`
	} `json:"params"`
}

func (f *HeadFeed) wsLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-f.ws.Messages():
			if !ok {
				return
			}
			var note headNotification
			if err := json.Unmarshal(msg, &note); err != nil || note.Method != "eth_subscription" {
				continue // subscription confirmations and other replies
			}
			result := note.Params.Result
			if result.Number == nil {
				continue
			}

			block := &domain.Block{
				Number:     result.Number.ToInt().Uint64(),
				Hash:       common.HexToHash(result.Hash),
				ParentHash: common.HexToHash(result.ParentHash),
				GasLimit:   uint64(result.GasLimit),
				GasUsed:    uint64(result.GasUsed),
			}
			if result.Timestamp != nil {
				block.Timestamp = time.Unix(result.Timestamp.ToInt().Int64(), 0).UTC()
			}
			if result.BaseFee != nil {
				block.BaseFee = result.BaseFee.ToInt()
			}

			f.deliver(ctx, block)
		}
	}
}

func (f *HeadFeed) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(f.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			header, err := f.httpCB.Execute(func() (*types.Header, error) {
				return f.httpClient.HeaderByNumber(ctx, nil)
			})
			if err != nil {
				f.metrics.subscribeErrors.Add(ctx, 1)
				f.log.Warn(ctx, "head poll failed", "error", err)
				continue
			}
			if header.Number.Uint64() <= f.lastBlock.Load() {
				continue // no new block yet
			}
			f.deliver(ctx, headerToBlock(header))
		}
	}
}

func (f *HeadFeed) deliver(ctx context.Context, block *domain.Block) {
	f.lastBlock.Store(block.Number)
	f.lastUpdate.Store(time.Now().UnixNano())
	f.metrics.headsReceived.Add(ctx, 1)

	select {
	case f.blocks <- block:
	default:
		// Consumers fell behind, drop the oldest head.
		select {
		case <-f.blocks:
		default:
		}
		select {
		case f.blocks <- block:
		default:
		}
	}
}

// LatestBlock fetches the most recent header over HTTP.
func (f *HeadFeed) LatestBlock(ctx context.Context) (*domain.Block, error) {
	header, err := f.httpCB.Execute(func() (*types.Header, error) {
		return f.httpClient.HeaderByNumber(ctx, nil)
	})
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeRPCCallFailed, "latest header")
	}
	return headerToBlock(header), nil
}

// Status returns the current connection status.
func (f *HeadFeed) Status() domain.ConnectionStatus {
	f.stateMu.RLock()
	state := f.state
	f.stateMu.RUnlock()

	return domain.ConnectionStatus{
		State:      state,
		LastBlock:  f.lastBlock.Load(),
		LastUpdate: time.Unix(0, f.lastUpdate.Load()),
		Reconnects: int(f.reconnects.Load()),
		UsingHTTP:  f.usingHTTP.Load(),
	}
}

// Close stops the WebSocket connection.
func (f *HeadFeed) Close() error {
	f.setState(domain.StateDisconnected)
	if f.ws != nil {
		return f.ws.Close()
	}
	return nil
}

func (f *HeadFeed) setState(state domain.ConnectionState) {
	f.stateMu.Lock()
	f.state = state
	f.stateMu.Unlock()
}

func headerToBlock(header *types.Header) *domain.Block {
	block := &domain.Block{
		Number:     header.Number.Uint64(),
		Hash:       header.Hash(),
		ParentHash: header.ParentHash,
		Timestamp:  time.Unix(int64(header.Time), 0).UTC(),
		GasLimit:   header.GasLimit,
		GasUsed:    header.GasUsed,
	}
	if header.BaseFee != nil {
		block.BaseFee = header.BaseFee
	}
	return block
}
