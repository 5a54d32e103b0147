package config

import (
	"os"
	"strconv"
	"time"

	platformstrings "wires/pkg/platform/strings"
)

// Config is the full service configuration.
type Config struct {
	Server         Server
	Kafka          KafkaConfig
	SchemaRegistry SchemaRegistryConfig
	Postgres       PostgresConfig
	Redis          RedisConfig
	DoddFrank      DoddFrankConfig
	Log            LogConfig
}

// Server captures the metrics and health endpoint configuration.
type Server struct {
	Addr string
}

// KafkaConfig names the brokers, consumer group and topics.
type KafkaConfig struct {
	Brokers           []string
	ClientID          string
	ConsumerGroup     string
	Topics            Topics
	Partitions        int32
	ReplicationFactor int16
	TLS               TLSConfig
}

// Topics lists every topic the service provisions. Only payment status and
// signatures are consumed; payment requests are produced.
type Topics struct {
	Entitlements     string
	RoleEntitlements string
	Accounts         string
	Users            string
	Customers        string
	PaymentStatus    string
	Signatures       string
	PaymentRequests  string
}

// All returns every configured topic name.
func (t Topics) All() []string {
	return []string{
		t.Entitlements,
		t.RoleEntitlements,
		t.Accounts,
		t.Users,
		t.Customers,
		t.PaymentStatus,
		t.Signatures,
		t.PaymentRequests,
	}
}

// SchemaRegistryConfig locates the Avro schema registry.
type SchemaRegistryConfig struct {
	URL      string
	Username string
	Password string
	Timeout  time.Duration
	TLS      TLSConfig
}

// PostgresConfig locates the wire store. An empty URL selects the in-memory
// store.
type PostgresConfig struct {
	URL string
}

// RedisConfig configures the lock client. An empty URL disables locking.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DoddFrankConfig schedules the cancellation window job.
type DoddFrankConfig struct {
	Enabled  bool
	Schedule string
	Zone     string
	LockTTL  time.Duration
}

// LogConfig selects the log level and output format ("json" or "text").
type LogConfig struct {
	Level  string
	Format string
}

// FromEnv builds the configuration from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr: getEnv("WIRES_ADDR", ":9090"),
		},
		Kafka: KafkaConfig{
			Brokers:       platformstrings.SplitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			ClientID:      getEnv("KAFKA_CLIENT_ID", "wires"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "wires-status"),
			Topics: Topics{
				Entitlements:     getEnv("TOPIC_ENTITLEMENTS", "entitlements"),
				RoleEntitlements: getEnv("TOPIC_ROLE_ENTITLEMENTS", "role-entitlements"),
				Accounts:         getEnv("TOPIC_ACCOUNTS", "accounts"),
				Users:            getEnv("TOPIC_USERS", "users"),
				Customers:        getEnv("TOPIC_CUSTOMERS", "customers"),
				PaymentStatus:    getEnv("TOPIC_PAYMENT_STATUS", "payment-status"),
				Signatures:       getEnv("TOPIC_SIGNATURES", "signature-status"),
				PaymentRequests:  getEnv("TOPIC_PAYMENT_REQUESTS", "payment-requests"),
			},
			Partitions:        int32(getInt("KAFKA_TOPIC_PARTITIONS", 1)),
			ReplicationFactor: int16(getInt("KAFKA_TOPIC_REPLICATION", 1)),
			TLS:               tlsFromEnv("KAFKA"),
		},
		SchemaRegistry: SchemaRegistryConfig{
			URL:      getEnv("SCHEMA_REGISTRY_URL", "http://localhost:8081"),
			Username: os.Getenv("SCHEMA_REGISTRY_USERNAME"),
			Password: os.Getenv("SCHEMA_REGISTRY_PASSWORD"),
			Timeout:  getDuration("SCHEMA_REGISTRY_TIMEOUT", 10*time.Second),
			TLS:      tlsFromEnv("SCHEMA_REGISTRY"),
		},
		Postgres: PostgresConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		DoddFrank: DoddFrankConfig{
			Enabled:  getEnv("DODD_FRANK_ENABLED", "true") == "true",
			Schedule: getEnv("DODD_FRANK_SCHEDULE", "*/15 * * * *"),
			Zone:     getEnv("DODD_FRANK_ZONE", "America/New_York"),
			LockTTL:  getDuration("DODD_FRANK_LOCK_TTL", 5*time.Minute),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
