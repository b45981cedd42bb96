package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	DatabaseURL   string
	Redis         RedisConfig
	Lloyds        LloydsConfig
	KafkaBrokers  []string
	KafkaTopic    string
	TickInterval  time.Duration
}

// RedisConfig holds connection settings for the adapter cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// LloydsConfig holds credentials for the Lloyd's Register cargo tracking
// service. When either credential is absent the adapter runs in mock mode.
type LloydsConfig struct {
	BaseURL      string
	APIKey       string
	ClientID     string
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
}

// MockMode reports whether the adapter should serve deterministic fake data.
func (c LloydsConfig) MockMode() bool {
	return c.APIKey == "" || c.ClientID == ""
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := getenv("SEACERT_ADDR", ":8080")

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:          addr,
		JWTSigningKey: jwtSigningKey,
		DatabaseURL:   os.Getenv("SEACERT_DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("SEACERT_REDIS_URL"),
			PoolSize:     getenvInt("SEACERT_REDIS_POOL_SIZE", 10),
			MinIdleConns: getenvInt("SEACERT_REDIS_MIN_IDLE", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Lloyds: LloydsConfig{
			BaseURL:      getenv("LR_BASE_URL", "https://cargo-tracking.lr.org/api/v2"),
			APIKey:       os.Getenv("LR_API_KEY"),
			ClientID:     os.Getenv("LR_CLIENT_ID"),
			WriteTimeout: 30 * time.Second,
			ReadTimeout:  15 * time.Second,
		},
		KafkaBrokers: splitNonEmpty(os.Getenv("SEACERT_KAFKA_BROKERS")),
		KafkaTopic:   getenv("SEACERT_KAFKA_TOPIC", "seacert.shipment-events"),
		TickInterval: getenvDuration("SEACERT_TICK_INTERVAL", 5*time.Minute),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitNonEmpty(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(raw); i++ {
		if i == len(raw) || raw[i] == ',' {
			if part := raw[start:i]; part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	return out
}
