package livefeed

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client follows a dashboard's live websocket feed and routes each message to
// a handler, reconnecting whenever the connection drops.
type Client struct {
	url     string
	handler func([]byte)
	retry   time.Duration
	logger  *zap.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWSClient creates a client for the given ws:// or wss:// URL.
func NewWSClient(url string, logger *zap.Logger) *Client {
	return &Client{
		url:    url,
		retry:  3 * time.Second,
		logger: logger,
	}
}

// SetMessageHandler sets the function to handle incoming messages.
func (c *Client) SetMessageHandler(h func([]byte)) {
	c.handler = h
}

// SetRetryDelay changes the wait between reconnect attempts.
func (c *Client) SetRetryDelay(d time.Duration) {
	c.retry = d
}

// Connect establishes the connection. It does not start the listener.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.logger.Error("Failed to connect to live feed", zap.String("url", c.url), zap.Error(err))
		return err
	}
	c.setConn(conn)
	c.logger.Info("Live feed connected", zap.String("url", c.url))
	return nil
}

// Listen reads until ctx is cancelled. A read error triggers reconnect
// attempts every retry delay.
func (c *Client) Listen(ctx context.Context) {
	stop := context.AfterFunc(ctx, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
	defer stop()

	for {
		conn := c.currentConn()
		if conn == nil {
			if !c.reconnect(ctx) {
				return
			}
			continue
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("Live feed read error", zap.Error(err))
			if !c.reconnect(ctx) {
				return
			}
			continue
		}

		if c.handler != nil {
			c.handler(msg)
		}
	}
}

// reconnect retries until it succeeds or ctx is done. It reports whether a
// new connection is in place.
func (c *Client) reconnect(ctx context.Context) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(c.retry):
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
		if err != nil {
			c.logger.Warn("Retrying reconnect...", zap.Error(err))
			continue
		}

		if old := c.setConn(conn); old != nil {
			_ = old.Close()
		}
		c.logger.Info("Reconnected successfully")
		return true
	}
}

// Close closes the current connection, if any.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) setConn(conn *websocket.Conn) *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	old := c.conn
	c.conn = conn
	return old
}

func (c *Client) currentConn() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}
