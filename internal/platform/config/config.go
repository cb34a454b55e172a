// Package config builds process configuration from the environment so main
// stays lean. Every value has a development default; production deployments
// override via env vars.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates per-concern sections. Sections with an empty
// URL/DSN/broker list mean the corresponding backend is not configured and
// the gateway degrades to its in-memory implementation.
type Config struct {
	Server   Server
	Session  Session
	Store    ShipmentStore
	Explorer Explorer
	Wallet   Wallet
	Redis    Redis
	Postgres Postgres
	Kafka    Kafka
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	JWTSigningKey   string
	ShutdownTimeout time.Duration
}

// Session governs gateway session lifetime and the expiry reaper.
type Session struct {
	TTL           time.Duration
	ReapInterval  time.Duration
	DeviceBinding bool
}

// ShipmentStore points at the remote read-only shipment store.
type ShipmentStore struct {
	BaseURL string
	Timeout time.Duration
}

// Explorer configures the token-explorer link template. The contract
// address identifies the custody token contract.
type Explorer struct {
	BaseURL         string
	ContractAddress string
}

// Wallet configures the JSON-RPC wallet provider. An empty URL means no
// wallet provider is injected into the environment.
type Wallet struct {
	RPCURL  string
	Timeout time.Duration
}

// Redis configures the optional Redis session backend.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Postgres configures the optional Postgres backend for the audit outbox
// and resolution receipts.
type Postgres struct {
	DSN string
}

// Kafka configures the audit outbox publisher and the materializing
// consumer group.
type Kafka struct {
	Brokers    []string
	AuditTopic string
	Group      string
}

// Configured reports whether a Kafka cluster was provided.
func (k Kafka) Configured() bool {
	return len(k.Brokers) > 0
}

// FromEnv builds the full configuration from environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:            envString("BLOCKSHIP_ADDR", ":8080"),
			JWTSigningKey:   envString("BLOCKSHIP_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			ShutdownTimeout: envDuration("BLOCKSHIP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Session: Session{
			TTL:           envDuration("BLOCKSHIP_SESSION_TTL", 30*time.Minute),
			ReapInterval:  envDuration("BLOCKSHIP_SESSION_REAP_INTERVAL", time.Minute),
			DeviceBinding: envBool("BLOCKSHIP_SESSION_DEVICE_BINDING", true),
		},
		Store: ShipmentStore{
			BaseURL: envString("BLOCKSHIP_SHIPMENT_STORE_URL", "http://localhost:9090"),
			Timeout: envDuration("BLOCKSHIP_SHIPMENT_STORE_TIMEOUT", 10*time.Second),
		},
		Explorer: Explorer{
			BaseURL:         envString("BLOCKSHIP_EXPLORER_URL", "https://explorer.example"),
			ContractAddress: envString("BLOCKSHIP_CONTRACT_ADDRESS", "0x8Ba1f109551bD432803012645Ac136ddd64DBA72"),
		},
		Wallet: Wallet{
			RPCURL:  os.Getenv("BLOCKSHIP_WALLET_RPC_URL"),
			Timeout: envDuration("BLOCKSHIP_WALLET_TIMEOUT", 30*time.Second),
		},
		Redis: Redis{
			URL:          os.Getenv("BLOCKSHIP_REDIS_URL"),
			PoolSize:     envInt("BLOCKSHIP_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("BLOCKSHIP_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("BLOCKSHIP_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("BLOCKSHIP_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("BLOCKSHIP_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: Postgres{
			DSN: os.Getenv("BLOCKSHIP_POSTGRES_DSN"),
		},
		Kafka: Kafka{
			Brokers:    envList("BLOCKSHIP_KAFKA_BROKERS"),
			AuditTopic: envString("BLOCKSHIP_KAFKA_AUDIT_TOPIC", "blockship.audit.events"),
			Group:      envString("BLOCKSHIP_KAFKA_GROUP", "blockship-gateway"),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
