package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for record deserialization.
type Metrics struct {
	// Deserialize outcomes by CloudEvent type and outcome
	Outcomes *prometheus.CounterVec

	// Fields dropped during translation by target type and reason
	FieldsDropped *prometheus.CounterVec

	DeserializeLatency prometheus.Histogram

	// Schema registry lookups by result: hit, miss, error
	SchemaLookups *prometheus.CounterVec

	SchemaFetchLatency prometheus.Histogram
}

// New registers the deserializer metrics with reg. A nil reg uses the default
// Prometheus registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wires_deserializer_outcomes_total",
			Help: "Deserialize calls by event type and outcome",
		}, []string{"type", "outcome"}), // outcome: "ok", "skipped", "decode_error", "unknown_type", "error"

		FieldsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wires_deserializer_fields_dropped_total",
			Help: "Fields left unassigned during translation by target type and reason",
		}, []string{"type", "reason"}),

		DeserializeLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "wires_deserializer_duration_seconds",
			Help:    "Duration of a full envelope to object deserialization",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),

		SchemaLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wires_schema_registry_lookups_total",
			Help: "Schema lookups by result",
		}, []string{"result"}),

		SchemaFetchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "wires_schema_registry_fetch_duration_seconds",
			Help:    "Duration of schema fetches from the registry",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// IncrementOutcome records a deserialize outcome.
func (m *Metrics) IncrementOutcome(eventType, outcome string) {
	if m != nil {
		m.Outcomes.WithLabelValues(eventType, outcome).Inc()
	}
}

// IncrementDropped records a field dropped from a target type.
func (m *Metrics) IncrementDropped(targetType, reason string) {
	if m != nil {
		m.FieldsDropped.WithLabelValues(targetType, reason).Inc()
	}
}

// ObserveDeserialize records a deserialize duration.
func (m *Metrics) ObserveDeserialize(d time.Duration) {
	if m != nil {
		m.DeserializeLatency.Observe(d.Seconds())
	}
}

// IncrementSchemaLookup records a schema lookup result.
func (m *Metrics) IncrementSchemaLookup(result string) {
	if m != nil {
		m.SchemaLookups.WithLabelValues(result).Inc()
	}
}

// ObserveSchemaFetch records a registry round trip.
func (m *Metrics) ObserveSchemaFetch(d time.Duration) {
	if m != nil {
		m.SchemaFetchLatency.Observe(d.Seconds())
	}
}
