package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the triage agent and the
// status service.
type Config struct {
	App      AppConfig
	RT       RTConfig
	Alma     AlmaConfig
	Sweep    SweepConfig
	Routing  RoutingConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
}

// AppConfig controls the status service.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	StatusQueues          []string
}

// RTConfig holds Request Tracker connection values.
type RTConfig struct {
	BaseURL        string
	User           string
	Password       string
	TimeoutSeconds int
}

// AlmaConfig holds catalog service connection values.
type AlmaConfig struct {
	BaseURL             string
	APIKey              string
	LSMBaseURL          string
	TimeoutSeconds      int
	ItemCacheTTLMinutes int
}

// SweepConfig controls the dispatch loop's pacing and retry policy.
type SweepConfig struct {
	TicketDelayMillis int
	RetryBaseSeconds  int
	RetryMaxSeconds   int
	RetryMaxAttempts  int
	CommentBcc        string
}

// RoutingConfig points at the optional routing-table override file.
type RoutingConfig struct {
	TablesPath string
}

// PostgresConfig holds ledger DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values for the catalog lookup cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// Load reads configuration from environment variables, applying defaults
// where possible. Credentials for the two external services have no
// defaults; they are validated where the clients are constructed.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "rt-triage"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			StatusQueues:          splitList(getEnv("STATUS_QUEUES", "ub-brukerhenvendelser")),
		},
		RT: RTConfig{
			BaseURL:        getEnv("RT_URL", "https://rt.uio.no/REST/1.0/"),
			User:           os.Getenv("RT_USER"),
			Password:       os.Getenv("RT_PASSWORD"),
			TimeoutSeconds: getEnvAsInt("RT_TIMEOUT_SECONDS", 30),
		},
		Alma: AlmaConfig{
			BaseURL:             getEnv("ALMA_URL", "https://api-eu.hosted.exlibrisgroup.com/almaws/v1"),
			APIKey:              os.Getenv("ALMA_KEY"),
			LSMBaseURL:          getEnv("LSM_URL", "https://ub-lsm.uio.no/alma"),
			TimeoutSeconds:      getEnvAsInt("ALMA_TIMEOUT_SECONDS", 30),
			ItemCacheTTLMinutes: getEnvAsInt("ALMA_ITEM_CACHE_TTL_MINUTES", 1440),
		},
		Sweep: SweepConfig{
			TicketDelayMillis: getEnvAsInt("SWEEP_TICKET_DELAY_MILLIS", 1000),
			RetryBaseSeconds:  getEnvAsInt("SWEEP_RETRY_BASE_SECONDS", 2),
			RetryMaxSeconds:   getEnvAsInt("SWEEP_RETRY_MAX_SECONDS", 30),
			RetryMaxAttempts:  getEnvAsInt("SWEEP_RETRY_MAX_ATTEMPTS", 5),
			CommentBcc:        getEnv("SWEEP_COMMENT_BCC", ""),
		},
		Routing: RoutingConfig{
			TablesPath: getEnv("ROUTING_TABLES_PATH", ""),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address for the status service.
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

// Timeout returns the RT client timeout duration.
func (r RTConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// Timeout returns the Alma client timeout duration.
func (a AlmaConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// ItemCacheTTL returns the barcode lookup cache TTL.
func (a AlmaConfig) ItemCacheTTL() time.Duration {
	return time.Duration(a.ItemCacheTTLMinutes) * time.Minute
}

// TicketDelay returns the inter-ticket throttle delay.
func (s SweepConfig) TicketDelay() time.Duration {
	return time.Duration(s.TicketDelayMillis) * time.Millisecond
}

// RetryBase returns the initial backoff delay.
func (s SweepConfig) RetryBase() time.Duration {
	return time.Duration(s.RetryBaseSeconds) * time.Second
}

// RetryMax returns the backoff delay ceiling.
func (s SweepConfig) RetryMax() time.Duration {
	return time.Duration(s.RetryMaxSeconds) * time.Second
}

func splitList(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
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
