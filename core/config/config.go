package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"taskforge.dev/engine/core/db"
)

// Config holds all application configuration.
type Config struct {
	// Env is the environment name (development, staging, production)
	Env string

	// Port is the HTTP server port
	Port string

	// DB holds database configuration
	DB db.Config

	// LLM backs the Gateway and Executor's tool-calling client.
	LLM LLMConfig

	// Redis holds the run-queue connection and stream names.
	Redis RedisConfig

	// Sandbox bounds the Executor's bash/file tools.
	Sandbox SandboxConfig

	// OTel configures trace/log export.
	OTel OTelConfig

	// WorkOS gates the HTTP API's mutating routes.
	WorkOS WorkOSConfig

	// ArangoDB backs the codegraph tool, if configured.
	ArangoDB ArangoDBConfig

	// Typesense backs the docsearch tool, if configured.
	Typesense TypesenseConfig

	// GitLab backs the optional ticket-source adapter.
	GitLab GitLabConfig

	// PlannerMaxReflection bounds the outer reflection loop.
	PlannerMaxReflection int

	// PlanModifyBudget is loaded from PLAN_MODIFY_BUDGET. The planner does
	// not read it: planner.New always starts from its own budget of 3.
	PlanModifyBudget int

	// AsyncRuns selects whether POST /v1/runs enqueues (true) or runs the
	// orchestrator synchronously in the request goroutine (false).
	AsyncRuns bool

	// DashboardURL is informational only; no route or log line reads it.
	DashboardURL string
}

type LLMConfig struct {
	// Provider selects which AgentClient backend the Gateway constructs:
	// "openai" or "anthropic".
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
}

type RedisConfig struct {
	Addr         string
	Stream       string
	DLQStream    string
	Group        string
	Consumer     string
	BatchSize    int64
	Block        time.Duration
	MaxAttempts  int
	RequeueDelay time.Duration
}

type SandboxConfig struct {
	TimeoutSeconds int
	MaxOutputBytes int
	WorkspaceRoot  string
}

type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string // OTLP HTTP base endpoint; empty disables export
	Headers        string // comma-separated key=value pairs
}

// Enabled reports whether an OTLP endpoint was configured.
func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

// WorkOSConfig mirrors the teacher's config.WorkOSConfig shape.
type WorkOSConfig struct {
	APIKey      string
	ClientID    string
	RedirectURI string
}

type ArangoDBConfig struct {
	Endpoint string
	Database string
	Username string
	Password string
}

type TypesenseConfig struct {
	ServerURL  string
	APIKey     string
	Collection string
	QueryBy    string
}

type GitLabConfig struct {
	BaseURL string
	Token   string
}

// Load loads configuration from environment variables, falling back to a
// local .env file for development if present.
// It provides sensible defaults for development.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Env:  getEnv("ENGINE_ENV", "development"),
		Port: getEnv("PORT", "8080"),
		DB: db.Config{
			DSN:      buildDSN(),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 10)),
			MinConns: int32(getEnvInt("DB_MIN_CONNS", 2)),
		},
		LLM: LLMConfig{
			Provider: getEnv("LLM_PROVIDER", "openai"),
			APIKey:   getEnv("LLM_API_KEY", ""),
			BaseURL:  getEnv("LLM_BASE_URL", ""),
			Model:    getEnv("LLM_MODEL", ""),
		},
		Redis: RedisConfig{
			Addr:         getEnv("REDIS_ADDR", "localhost:6379"),
			Stream:       getEnv("REDIS_RUN_STREAM", "engine-runs"),
			DLQStream:    getEnv("REDIS_RUN_DLQ_STREAM", "engine-runs-dlq"),
			Group:        getEnv("REDIS_RUN_GROUP", "engine-workers"),
			Consumer:     getEnv("REDIS_RUN_CONSUMER", hostnameOr("worker-1")),
			BatchSize:    int64(getEnvInt("REDIS_RUN_BATCH_SIZE", 10)),
			Block:        time.Duration(getEnvInt("REDIS_RUN_BLOCK_MS", 5000)) * time.Millisecond,
			MaxAttempts:  getEnvInt("REDIS_RUN_MAX_ATTEMPTS", 3),
			RequeueDelay: time.Duration(getEnvInt("REDIS_RUN_REQUEUE_DELAY_MS", 0)) * time.Millisecond,
		},
		Sandbox: SandboxConfig{
			TimeoutSeconds: getEnvInt("SANDBOX_TIMEOUT_SECONDS", 10),
			MaxOutputBytes: getEnvInt("SANDBOX_MAX_OUTPUT_BYTES", 10000),
			WorkspaceRoot:  getEnv("SANDBOX_WORKSPACE_ROOT", "/tmp/engine-runs"),
		},
		OTel: OTelConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "taskforge-engine"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "0.1.0"),
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
		},
		WorkOS: WorkOSConfig{
			APIKey:      getEnv("WORKOS_API_KEY", ""),
			ClientID:    getEnv("WORKOS_CLIENT_ID", ""),
			RedirectURI: getEnv("WORKOS_REDIRECT_URI", ""),
		},
		ArangoDB: ArangoDBConfig{
			Endpoint: getEnv("ARANGODB_ENDPOINT", ""),
			Database: getEnv("ARANGODB_DATABASE", "codegraph"),
			Username: getEnv("ARANGODB_USERNAME", "root"),
			Password: getEnv("ARANGODB_PASSWORD", ""),
		},
		Typesense: TypesenseConfig{
			ServerURL:  getEnv("TYPESENSE_URL", ""),
			APIKey:     getEnv("TYPESENSE_API_KEY", ""),
			Collection: getEnv("TYPESENSE_COLLECTION", "docs"),
			QueryBy:    getEnv("TYPESENSE_QUERY_BY", "title,body"),
		},
		GitLab: GitLabConfig{
			BaseURL: getEnv("GITLAB_BASE_URL", "https://gitlab.com"),
			Token:   getEnv("GITLAB_TOKEN", ""),
		},
		PlannerMaxReflection: getEnvInt("PLANNER_MAX_REFLECTION", 1),
		PlanModifyBudget:     getEnvInt("PLAN_MODIFY_BUDGET", 3),
		AsyncRuns:            getEnvBool("ASYNC_RUNS", true),
		DashboardURL:         getEnv("DASHBOARD_URL", ""),
	}
}

// buildDSN constructs the database connection string from individual env vars.
func buildDSN() string {
	host := getEnv("DATABASE_HOST", "localhost")
	port := getEnv("DATABASE_PORT", "5432")
	user := getEnv("DATABASE_USER", "postgres")
	password := getEnv("DATABASE_PASSWORD", "postgres")
	name := getEnv("DATABASE_NAME", "taskforge")
	sslMode := getEnv("DATABASE_SSLMODE", "disable")

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		user, password, host, port, name, sslMode,
	)
}

// IsProduction returns true if running in production environment.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// IsDevelopment returns true if running in development environment.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func hostnameOr(fallback string) string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return fallback
}
