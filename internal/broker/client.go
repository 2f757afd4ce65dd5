// Package broker adapts NATS to the two delivery semantics of spec §4.F:
// durable work queues (BlockImporter, BlockEvent) backed by JetStream,
// and ordinary fan-out pub/sub per subject. Every subject is namespaced
// (spec §4.F: "every subject is prefixed by a configurable namespace").
// Grounded on pkg/nats/client.go's connection lifecycle (reconnect
// options, event handlers, metrics hooks) and extended with the
// JetStream surface the teacher's price-feed relay never needed.
package broker

import (
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/chainstream/streams/internal/config"
)

// Client wraps a NATS connection plus its JetStream context, namespacing
// every subject it touches.
type Client struct {
	conn      *nats.Conn
	js        nats.JetStreamContext
	namespace string
	logger    zerolog.Logger

	subsMutex sync.RWMutex
	subs      []Subscription
}

// Subscription is the handle Subscribe/SubscribeWorkQueue return,
// satisfied by *nats.Subscription and by the in-process fake broker
// internal/executor and internal/stream tests substitute in place of a
// live NATS connection.
type Subscription interface {
	Unsubscribe() error
}

// NewClient dials NATS with the teacher's reconnect posture (bounded
// reconnect attempts, jittered backoff, keepalive pings) and opens a
// JetStream context for the work-queue side of §4.F.
func NewClient(cfg config.Broker, logger zerolog.Logger) (*Client, error) {
	c := &Client{
		namespace: cfg.Namespace,
		logger:    logger,
	}

	opts := []nats.Option{
		nats.Name("chainstream"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(cfg.ReconnectJitter, cfg.ReconnectJitter),
		nats.MaxPingsOutstanding(cfg.MaxPingsOut),
		nats.PingInterval(cfg.PingInterval),
		nats.ConnectHandler(c.onConnect),
		nats.DisconnectErrHandler(c.onDisconnect),
		nats.ReconnectHandler(c.onReconnect),
		nats.ErrorHandler(c.onError),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("broker: connect: %w", err)
	}
	c.conn = conn

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("broker: open jetstream context: %w", err)
	}
	c.js = js

	return c, nil
}

func (c *Client) onConnect(conn *nats.Conn) {
	c.logger.Info().Str("url", conn.ConnectedUrl()).Msg("broker connected")
}

func (c *Client) onDisconnect(conn *nats.Conn, err error) {
	if err != nil {
		c.logger.Warn().Err(err).Msg("broker disconnected")
		return
	}
	c.logger.Info().Msg("broker disconnected")
}

func (c *Client) onReconnect(conn *nats.Conn) {
	c.logger.Info().Str("url", conn.ConnectedUrl()).Msg("broker reconnected")
}

func (c *Client) onError(conn *nats.Conn, sub *nats.Subscription, err error) {
	c.logger.Error().Err(err).Msg("broker error")
}

// ns prefixes subject with the configured namespace (spec §4.F).
func (c *Client) ns(subject string) string {
	if c.namespace == "" {
		return subject
	}
	return c.namespace + "." + subject
}

// IsConnected reports whether the underlying connection is live.
func (c *Client) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

// Close unsubscribes everything and closes the connection.
func (c *Client) Close() error {
	c.subsMutex.Lock()
	defer c.subsMutex.Unlock()
	for _, sub := range c.subs {
		if err := sub.Unsubscribe(); err != nil {
			c.logger.Warn().Err(err).Msg("broker unsubscribe failed on close")
		}
	}
	c.subs = nil
	if c.conn != nil {
		c.conn.Close()
	}
	return nil
}

// defaultAckWait is the ack-wait interval of spec §4.F ("default 30s,
// configurable").
const defaultAckWait = 30 * time.Second
