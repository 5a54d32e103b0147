// Package app assembles the components shared by the binaries.
package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"wires/internal/messaging/confluent"
	"wires/internal/messaging/deserializer"
	msgmetrics "wires/internal/messaging/metrics"
	"wires/internal/messaging/schemaregistry"
	"wires/internal/messaging/typeregistry"
	"wires/internal/platform/config"
	"wires/internal/wire/models"
	"wires/pkg/platform/circuit"
)

// Messaging is the deserialization stack.
type Messaging struct {
	Registry     *schemaregistry.Client
	Types        *typeregistry.Registry
	Deserializer *deserializer.Deserializer
	Metrics      *msgmetrics.Metrics
}

// NewMessaging wires the schema registry client, the type registry with the
// wire message types, and the deserializer. reg may be nil.
func NewMessaging(cfg config.SchemaRegistryConfig, reg prometheus.Registerer, logger *slog.Logger, typeOpts ...typeregistry.Option) (*Messaging, error) {
	var m *msgmetrics.Metrics
	if reg != nil {
		m = msgmetrics.New(reg)
	}

	tlsConfig, err := cfg.TLS.Build()
	if err != nil {
		return nil, fmt.Errorf("schema registry tls: %w", err)
	}
	httpClient := &http.Client{Timeout: cfg.Timeout}
	if tlsConfig != nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = tlsConfig
		httpClient.Transport = transport
	}

	client, err := schemaregistry.NewClient(cfg.URL,
		schemaregistry.WithHTTPClient(httpClient),
		schemaregistry.WithTimeout(cfg.Timeout),
		schemaregistry.WithBasicAuth(cfg.Username, cfg.Password),
		schemaregistry.WithBreaker(circuit.New("schema-registry")),
		schemaregistry.WithMetrics(m),
		schemaregistry.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	types := typeregistry.New(typeOpts...)
	if err := models.RegisterMessages(types); err != nil {
		return nil, err
	}

	deser, err := deserializer.New(confluent.NewDecoder(client), types,
		deserializer.WithLogger(logger),
		deserializer.WithMetrics(m),
	)
	if err != nil {
		return nil, err
	}
	return &Messaging{Registry: client, Types: types, Deserializer: deser, Metrics: m}, nil
}
