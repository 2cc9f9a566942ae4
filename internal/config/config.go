package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Primary  PostgresConfig
	Replica  PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	PubSub   PubSubConfig
	Identity IdentityConfig
	Billing  BillingConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	Timezone              string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values for one connection pool.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines bearer token validation parameters.
type AuthConfig struct {
	JWTSecret       string
	TokenTTLMinutes int
}

// PubSubConfig configures change event publication.
type PubSubConfig struct {
	ProjectID            string
	TopicID              string
	NotificationsTopicID string
	CredentialsFile      string
	// Disabled turns publishing into a no-op. It is never inferred from
	// missing credentials.
	Disabled bool
}

// IdentityConfig points at the client/agent verification service.
type IdentityConfig struct {
	BaseURL         string
	TimeoutSeconds  int
	CacheTTLSeconds int
}

// BillingConfig points at the billing registration service.
type BillingConfig struct {
	URL            string
	TimeoutSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	primary := postgresFromEnv("POSTGRES_PRIMARY")
	if primary.DSN == "" {
		primary.DSN = os.Getenv("POSTGRES_DSN")
	}
	replica := postgresFromEnv("POSTGRES_REPLICA")
	replica.RunMigrations = primary.RunMigrations

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "incident-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			Timezone:              getEnv("APP_TIMEZONE", "Local"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Primary: primary,
		Replica: replica,
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:       getEnv("AUTH_JWT_SECRET", "secret"),
			TokenTTLMinutes: getEnvAsInt("AUTH_TOKEN_TTL_MINUTES", 60),
		},
		PubSub: PubSubConfig{
			ProjectID:            os.Getenv("GCP_PROJECT_ID"),
			TopicID:              getEnv("GCP_TOPIC_ID", "incidentes-db-sync"),
			NotificationsTopicID: os.Getenv("GCP_NOTIFICATIONS_TOPIC_ID"),
			CredentialsFile:      os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
			Disabled:             getEnvAsBool("PUBSUB_DISABLED", false) || getEnvAsBool("TESTING", false),
		},
		Identity: IdentityConfig{
			BaseURL:         strings.TrimRight(getEnv("IDENTITY_SERVICE_URL", "http://localhost:8000"), "/"),
			TimeoutSeconds:  getEnvAsInt("OUTBOUND_TIMEOUT_SECONDS", 10),
			CacheTTLSeconds: getEnvAsInt("IDENTITY_CACHE_TTL_SECONDS", 0),
		},
		Billing: BillingConfig{
			URL:            os.Getenv("BILLING_URL"),
			TimeoutSeconds: getEnvAsInt("OUTBOUND_TIMEOUT_SECONDS", 10),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that cannot be defaulted.
func (c *Config) Validate() error {
	if c.Primary.DSN == "" {
		return fmt.Errorf("POSTGRES_PRIMARY_DSN is required")
	}
	if !c.PubSub.Disabled {
		if c.PubSub.ProjectID == "" {
			return fmt.Errorf("GCP_PROJECT_ID is required unless PUBSUB_DISABLED=true")
		}
		if c.PubSub.TopicID == "" {
			return fmt.Errorf("GCP_TOPIC_ID is required unless PUBSUB_DISABLED=true")
		}
	}
	if _, err := c.App.Location(); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE: %w", err)
	}
	return nil
}

// Topics returns the configured publish targets, primary topic first.
func (p PubSubConfig) Topics() []string {
	topics := []string{p.TopicID}
	if p.NotificationsTopicID != "" {
		topics = append(topics, p.NotificationsTopicID)
	}
	return topics
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Location resolves the time zone used for incident dates.
func (a AppConfig) Location() (*time.Location, error) {
	if a.Timezone == "" || a.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(a.Timezone)
}

// Timeout returns the outbound request timeout.
func (i IdentityConfig) Timeout() time.Duration {
	return secondsOrDefault(i.TimeoutSeconds, 10*time.Second)
}

// CacheTTL returns how long verified identities are memoized; zero disables it.
func (i IdentityConfig) CacheTTL() time.Duration {
	if i.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(i.CacheTTLSeconds) * time.Second
}

// Timeout returns the outbound request timeout.
func (b BillingConfig) Timeout() time.Duration {
	return secondsOrDefault(b.TimeoutSeconds, 10*time.Second)
}

func postgresFromEnv(prefix string) PostgresConfig {
	return PostgresConfig{
		DSN:            os.Getenv(prefix + "_DSN"),
		MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
		MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
		RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
		ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
		ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
	}
}

func secondsOrDefault(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
