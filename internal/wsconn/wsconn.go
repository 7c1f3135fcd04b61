// Package wsconn provides a WebSocket client with automatic
// reconnection and exponential backoff.
package wsconn

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/fd1az/arb-engine/internal/logger"
)

// State represents the connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateClosed       State = "closed"
)

// Config holds WebSocket client configuration.
type Config struct {
	URL            string
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxReconnects  int // 0 = infinite
	ReadLimit      int64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(url string) Config {
	return Config{
		URL:            url,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		MaxReconnects:  0,
		ReadLimit:      1 << 20,
	}
}

// OnConnectFunc runs after every successful (re)connection, before the
// read loop starts. Used to replay subscriptions.
type OnConnectFunc func(ctx context.Context, send func(ctx context.Context, msg []byte) error) error

// Client is a reconnecting WebSocket client.
type Client struct {
	config    Config
	log       logger.LoggerInterface
	onConnect OnConnectFunc

	mu    sync.RWMutex
	state State
	conn  *websocket.Conn

	messages chan []byte
	done     chan struct{}
	closed   sync.Once
}

// New creates a new WebSocket client.
func New(config Config, log logger.LoggerInterface) *Client {
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = time.Second
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = 30 * time.Second
	}
	return &Client{
		config:   config,
		log:      log,
		state:    StateDisconnected,
		messages: make(chan []byte, 256),
		done:     make(chan struct{}),
	}
}

// OnConnect registers the reconnection hook. Must be called before Connect.
func (c *Client) OnConnect(fn OnConnectFunc) {
	c.onConnect = fn
}

// Connect establishes the connection and starts the read loop. The
// read loop reconnects on failure until ctx is cancelled or Close is
// called.
func (c *Client) Connect(ctx context.Context) error {
	c.setState(StateConnecting)

	if err := c.dial(ctx); err != nil {
		c.setState(StateDisconnected)
		return err
	}

	go c.readLoop(ctx)
	return nil
}

func (c *Client) dial(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, c.config.URL, nil)
	if err != nil {
		return fmt.Errorf("websocket dial %s: %w", c.config.URL, err)
	}
	conn.SetReadLimit(c.config.ReadLimit)

	c.mu.Lock()
	c.conn = conn
	c.state = StateConnected
	c.mu.Unlock()

	if c.onConnect != nil {
		if err := c.onConnect(ctx, c.Send); err != nil {
			conn.Close(websocket.StatusInternalError, "on-connect hook failed")
			return err
		}
	}
	return nil
}

func (c *Client) readLoop(ctx context.Context) {
	reconnects := 0
	for {
		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		_, data, err := conn.Read(ctx)
		if err == nil {
			reconnects = 0
			select {
			case c.messages <- data:
			case <-ctx.Done():
				return
			case <-c.done:
				return
			}
			continue
		}

		if ctx.Err() != nil || c.isDone() {
			return
		}

		c.log.Warn(ctx, "websocket read failed, reconnecting", "error", err)
		c.setState(StateReconnecting)

		reconnects++
		if c.config.MaxReconnects > 0 && reconnects > c.config.MaxReconnects {
			c.log.Error(ctx, "websocket reconnect limit reached", "attempts", reconnects-1)
			c.Close()
			return
		}

		if !c.waitBackoff(ctx, reconnects) {
			return
		}
		if err := c.dial(ctx); err != nil {
			c.log.Warn(ctx, "websocket reconnect failed", "attempt", reconnects, "error", err)
		}
	}
}

// waitBackoff sleeps for the backoff of the given attempt with jitter.
// It returns false when the context is cancelled or the client closed.
func (c *Client) waitBackoff(ctx context.Context, attempt int) bool {
	backoff := c.config.InitialBackoff
	for i := 1; i < attempt && backoff < c.config.MaxBackoff; i++ {
		backoff *= 2
	}
	if backoff > c.config.MaxBackoff {
		backoff = c.config.MaxBackoff
	}
	backoff += time.Duration(rand.Int63n(int64(backoff) / 4))

	timer := time.NewTimer(backoff)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	case <-c.done:
		return false
	}
}

// Send writes a text message to the connection.
func (c *Client) Send(ctx context.Context, msg []byte) error {
	c.mu.RLock()
	conn := c.conn
	state := c.state
	c.mu.RUnlock()

	if conn == nil || state != StateConnected {
		return errors.New("websocket not connected")
	}
	return conn.Write(ctx, websocket.MessageText, msg)
}

// Messages returns the channel delivering inbound messages.
func (c *Client) Messages() <-chan []byte {
	return c.messages
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Close shuts the connection down for good. No reconnects afterwards.
func (c *Client) Close() error {
	var err error
	c.closed.Do(func() {
		close(c.done)
		c.mu.Lock()
		if c.conn != nil {
			err = c.conn.Close(websocket.StatusNormalClosure, "client closed")
		}
		c.state = StateClosed
		c.mu.Unlock()
	})
	return err
}

func (c *Client) setState(state State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

func (c *Client) isDone() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
