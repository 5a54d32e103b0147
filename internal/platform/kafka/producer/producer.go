// Package producer publishes records synchronously to Kafka.
package producer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Header is one record header.
type Header struct {
	Key   string
	Value []byte
}

// Record is an outbound Kafka record.
type Record struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers []Header
}

// Producer wraps a franz-go client for synchronous produce.
type Producer struct {
	client *kgo.Client
}

// Option configures the underlying client.
type Option func(*[]kgo.Opt)

// WithTLS dials the brokers over TLS. A nil config is ignored.
func WithTLS(cfg *tls.Config) Option {
	return func(opts *[]kgo.Opt) {
		if cfg != nil {
			*opts = append(*opts, kgo.DialTLSConfig(cfg))
		}
	}
}

// New creates a producer for the given brokers.
func New(brokers []string, clientID string, opts ...Option) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	kopts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(clientID),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	}
	for _, opt := range opts {
		opt(&kopts)
	}
	client, err := kgo.NewClient(kopts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return &Producer{client: client}, nil
}

// Publish writes records and waits until every one is acknowledged.
func (p *Producer) Publish(ctx context.Context, records ...Record) error {
	out := make([]*kgo.Record, len(records))
	for i, r := range records {
		headers := make([]kgo.RecordHeader, len(r.Headers))
		for j, h := range r.Headers {
			headers[j] = kgo.RecordHeader{Key: h.Key, Value: h.Value}
		}
		out[i] = &kgo.Record{Topic: r.Topic, Key: r.Key, Value: r.Value, Headers: headers}
	}
	if err := p.client.ProduceSync(ctx, out...).FirstErr(); err != nil {
		return fmt.Errorf("produce: %w", err)
	}
	return nil
}

// Client exposes the underlying client for admin operations.
func (p *Producer) Client() *kgo.Client {
	return p.client
}

// Close flushes and closes the client.
func (p *Producer) Close() {
	p.client.Close()
}
