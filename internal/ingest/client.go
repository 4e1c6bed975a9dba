package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// MessageHandler is a callback for processing incoming feed messages.
// The handler receives the WebSocket message type and payload. Return an
// error to force a disconnect and reconnect cycle.
type MessageHandler func(messageType int, payload []byte) error

// Client is a resilient WebSocket client for the profile change feed.
// It automatically reconnects with exponential backoff and jitter, and
// resumes from the stored cursor on each connection.
type Client struct {
	config  Config
	handler MessageHandler
	cursor  CursorSource
	logger  *slog.Logger

	mu          sync.Mutex
	rng         *rand.Rand // protected by mu
	conn        *websocket.Conn
	isConnected bool

	// reconnectCount tracks consecutive reconnection attempts (atomic)
	reconnectCount int64
}

// CursorSource supplies the resume position to request when connecting.
// A nil CursorSource always connects live.
type CursorSource interface {
	GetCursor(ctx context.Context, consumer string) (int64, bool, error)
}

// NewClient creates a profile feed WebSocket client with the given
// configuration. The handler is called for each incoming message.
func NewClient(config Config, handler MessageHandler, cursor CursorSource, logger *slog.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		config:  config,
		handler: handler,
		cursor:  cursor,
		logger:  logger,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Run starts the WebSocket client and blocks until the context is
// cancelled. It automatically reconnects with exponential backoff on
// connection failures.
func (c *Client) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("profile feed client stopping due to context cancellation")
			c.close()
			return ctx.Err()
		default:
		}

		if err := c.connect(ctx); err != nil {
			attempt := atomic.LoadInt64(&c.reconnectCount) + 1
			c.logger.Warn("profile feed connection failed",
				slog.String("error", err.Error()),
				slog.Int64("attempt", attempt))

			delay := c.computeBackoff()
			atomic.AddInt64(&c.reconnectCount, 1)

			if c.config.MaxRetryAttempts > 0 && attempt >= c.config.MaxRetryAttempts {
				c.logger.Error("profile feed reconnect attempts exhausted, continuing to retry",
					slog.Int64("attempts", attempt))
			}

			c.logger.Info("scheduling reconnect",
				slog.Duration("delay", delay),
				slog.Int64("attempt", atomic.LoadInt64(&c.reconnectCount)))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				continue
			}
		}

		// Reset reconnect count on successful connection
		atomic.StoreInt64(&c.reconnectCount, 0)

		// Read messages until connection closes
		c.readLoop(ctx)
	}
}

// connect establishes a WebSocket connection to the feed endpoint,
// appending the resume cursor when one is stored.
func (c *Client) connect(ctx context.Context) error {
	url := c.config.URL
	if c.cursor != nil {
		position, ok, err := c.cursor.GetCursor(ctx, ConsumerName)
		if err != nil {
			c.logger.Warn("failed to load resume cursor, connecting live",
				slog.String("error", err.Error()))
		} else if ok {
			url = fmt.Sprintf("%s?cursor=%d", url, position)
		}
	}

	c.logger.Info("connecting to profile feed", slog.String("url", url))

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.isConnected = true
	c.mu.Unlock()

	c.logger.Info("connected to profile feed")
	return nil
}

// readLoop reads messages from the WebSocket connection until it closes.
func (c *Client) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// Get connection under lock to prevent race with close()
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		if conn == nil {
			return
		}

		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			c.logger.Warn("profile feed connection closed",
				slog.String("error", err.Error()))
			c.close()
			return
		}

		if c.handler != nil {
			if err := c.handler(messageType, payload); err != nil {
				c.logger.Error("message handler error",
					slog.String("error", err.Error()))
				c.close()
				return
			}
		}
	}
}

// close cleanly closes the WebSocket connection.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.isConnected = false
}

// computeBackoff calculates the next reconnection delay with exponential
// backoff and jitter.
func (c *Client) computeBackoff() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Exponential backoff: baseDelay * 2^attempts, shift capped at 30 to
	// prevent overflow.
	reconnectCount := atomic.LoadInt64(&c.reconnectCount)
	shift := uint(reconnectCount)
	if shift > 30 {
		shift = 30
	}
	backoff := float64(c.config.BaseDelay) * float64(uint64(1)<<shift)

	if backoff > float64(c.config.MaxDelay) {
		backoff = float64(c.config.MaxDelay)
	}

	// Jitter spreads reconnect storms: [delay*(1-j/2), delay*(1+j/2)].
	if c.config.JitterFactor > 0 {
		jitter := (c.rng.Float64() - 0.5) * c.config.JitterFactor
		backoff = backoff * (1 + jitter)
	}

	return time.Duration(backoff)
}

// IsConnected returns whether the client is currently connected.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isConnected
}
