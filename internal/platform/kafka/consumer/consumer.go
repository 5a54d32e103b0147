// Package consumer runs a Kafka consumer group and hands each record to a
// Handler, committing offsets only after the handler returns.
package consumer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	slogctx "github.com/veqryn/slog-context"
)

// Header is one record header.
type Header struct {
	Key   string
	Value []byte
}

// Message is a consumed Kafka record.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   []Header
	Timestamp time.Time
}

// Handler processes one message. Returning an error leaves the offset
// uncommitted so the record is redelivered after a rebalance or restart.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg *Message) error

func (f HandlerFunc) Handle(ctx context.Context, msg *Message) error { return f(ctx, msg) }

// Config selects the brokers, group and topics to consume. A nil TLS keeps
// the broker connections in plaintext.
type Config struct {
	Brokers  []string
	ClientID string
	Group    string
	Topics   []string
	TLS      *tls.Config
}

// Consumer polls a consumer group and dispatches records in partition order.
type Consumer struct {
	client  *kgo.Client
	handler Handler
	logger  *slog.Logger
}

// Option configures a Consumer.
type Option func(*Consumer)

// WithLogger sets the consumer logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Consumer) {
		c.logger = logger
	}
}

// New creates a consumer. Auto-commit is disabled; offsets are committed
// after each polled batch has been handled.
func New(cfg Config, handler Handler, opts ...Option) (*Consumer, error) {
	if handler == nil {
		return nil, errors.New("handler is required")
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if cfg.Group == "" {
		return nil, errors.New("consumer group is required")
	}
	if len(cfg.Topics) == 0 {
		return nil, errors.New("at least one topic is required")
	}

	c := &Consumer{
		handler: handler,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	kopts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.ConsumerGroup(cfg.Group),
		kgo.ConsumeTopics(cfg.Topics...),
		kgo.DisableAutoCommit(),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	}
	if cfg.TLS != nil {
		kopts = append(kopts, kgo.DialTLSConfig(cfg.TLS))
	}
	client, err := kgo.NewClient(kopts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	c.client = client
	return c, nil
}

// Run polls until ctx is cancelled. A handler error stops the batch at the
// failing record; the records before it are committed.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return ctx.Err()
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.ErrorContext(ctx, "fetch failed",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		var handled []*kgo.Record
		var failed error
		fetches.EachRecord(func(r *kgo.Record) {
			if failed != nil {
				return
			}
			msg := fromRecord(r)
			rctx := slogctx.Append(ctx,
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
			)
			if err := c.handler.Handle(rctx, msg); err != nil {
				c.logger.ErrorContext(rctx, "handler failed, stopping batch", "error", err)
				failed = err
				return
			}
			handled = append(handled, r)
		})

		if len(handled) > 0 {
			if err := c.client.CommitRecords(ctx, handled...); err != nil {
				c.logger.ErrorContext(ctx, "commit failed", "error", err)
			}
		}
		if failed != nil {
			return fmt.Errorf("handle record: %w", failed)
		}
	}
}

// Close leaves the group and closes the client.
func (c *Consumer) Close() {
	c.client.Close()
}

func fromRecord(r *kgo.Record) *Message {
	headers := make([]Header, len(r.Headers))
	for i, h := range r.Headers {
		headers[i] = Header{Key: h.Key, Value: h.Value}
	}
	return &Message{
		Topic:     r.Topic,
		Partition: r.Partition,
		Offset:    r.Offset,
		Key:       r.Key,
		Value:     r.Value,
		Headers:   headers,
		Timestamp: r.Timestamp,
	}
}
