// Package config loads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendMySQL    = "mysql"
	BackendBigQuery = "bigquery"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	// HTTPPort is the port the API server listens on.
	HTTPPort int `koanf:"HTTP_PORT"`

	// ShutdownTimeout bounds graceful shutdown of the server and workers.
	ShutdownTimeout time.Duration `koanf:"SHUTDOWN_TIMEOUT"`

	// StoreBackend is one of memory, postgres, mysql or bigquery.
	StoreBackend string `koanf:"STORE_BACKEND"`

	PostgresHost     string `koanf:"POSTGRES_HOST"`
	PostgresPort     int    `koanf:"POSTGRES_PORT"`
	PostgresDB       string `koanf:"POSTGRES_DB"`
	PostgresUser     string `koanf:"POSTGRES_USER"`
	PostgresPassword string `koanf:"POSTGRES_PASSWORD"`
	PostgresSSLMode  string `koanf:"POSTGRES_SSLMODE"`

	MySQLDSN string `koanf:"MYSQL_DSN"`

	BigQueryProject string `koanf:"BIGQUERY_PROJECT"`
	BigQueryDataset string `koanf:"BIGQUERY_DATASET"`

	// GCSBucket enables archival of raw uploads when set.
	GCSBucket string `koanf:"GCS_BUCKET"`

	// GeminiAPIKey enables the classifier for inferred mode when set.
	GeminiAPIKey string `koanf:"GEMINI_API_KEY"`
	GeminiModel  string `koanf:"GEMINI_MODEL"`

	ClassifyTimeout time.Duration `koanf:"CLASSIFY_TIMEOUT"`

	// FallbackCategories is a comma separated list of catch-all category
	// names, tried in order.
	FallbackCategories []string `koanf:"FALLBACK_CATEGORIES"`

	// APITokens maps bearer tokens to user ids: "token:user,token2:user2".
	APITokens string `koanf:"API_TOKENS"`

	JobWorkers   int `koanf:"JOB_WORKERS"`
	JobQueueSize int `koanf:"JOB_QUEUE_SIZE"`

	LogLevel  string `koanf:"LOG_LEVEL"`
	LogFormat string `koanf:"LOG_FORMAT"`
}

// Load reads envFiles (default ".env") into the process environment, skipping
// files that do not exist, and then decodes the environment into a Config
// with defaults applied. Variables already set win over file values.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("config.Load: reading %s: %w", f, err)
		}
	}

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", nil), nil); err != nil {
		return nil, fmt.Errorf("config.Load: loading environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return nil, fmt.Errorf("config.Load: decoding: %w", err)
	}
	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTPPort == 0 {
		c.HTTPPort = 8080
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
	c.StoreBackend = strings.ToLower(strings.TrimSpace(c.StoreBackend))
	if c.StoreBackend == "" {
		c.StoreBackend = BackendMemory
	}
	if c.BigQueryDataset == "" {
		c.BigQueryDataset = "budget"
	}
	if c.ClassifyTimeout == 0 {
		c.ClassifyTimeout = 10 * time.Second
	}
	if c.JobWorkers == 0 {
		c.JobWorkers = 2
	}
	if c.JobQueueSize == 0 {
		c.JobQueueSize = 100
	}

	c.FallbackCategories = splitList(c.FallbackCategories)
}

// splitList flattens comma separated entries and drops blanks. The env
// provider hands a list variable over as one string, which the decoder wraps
// in a single-element slice.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, n := range strings.Split(v, ",") {
			if n = strings.TrimSpace(n); n != "" {
				out = append(out, n)
			}
		}
	}
	return out
}

// Validate checks that the selected backend has what it needs.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("config: HTTP_PORT %d out of range", c.HTTPPort)
	}
	if c.ClassifyTimeout < 0 {
		return fmt.Errorf("config: CLASSIFY_TIMEOUT must not be negative")
	}

	switch c.StoreBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.PostgresHost == "" || c.PostgresDB == "" || c.PostgresUser == "" {
			return fmt.Errorf("config: postgres backend needs POSTGRES_HOST, POSTGRES_DB and POSTGRES_USER")
		}
	case BackendMySQL:
		if c.MySQLDSN == "" {
			return fmt.Errorf("config: mysql backend needs MYSQL_DSN")
		}
	case BackendBigQuery:
		if c.BigQueryProject == "" {
			return fmt.Errorf("config: bigquery backend needs BIGQUERY_PROJECT")
		}
	default:
		return fmt.Errorf("config: unknown STORE_BACKEND %q", c.StoreBackend)
	}

	if _, err := ParseTokens(c.APITokens); err != nil {
		return err
	}
	return nil
}

// Tokens returns the parsed API_TOKENS map.
func (c *Config) Tokens() (map[string]string, error) {
	return ParseTokens(c.APITokens)
}

// ParseTokens parses "token:user,token2:user2". Blank entries are ignored.
func ParseTokens(s string) (map[string]string, error) {
	tokens := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		token, user, ok := strings.Cut(pair, ":")
		token, user = strings.TrimSpace(token), strings.TrimSpace(user)
		if !ok || token == "" || user == "" {
			return nil, fmt.Errorf("config: malformed API_TOKENS entry %q, want token:user", pair)
		}
		if _, dup := tokens[token]; dup {
			return nil, fmt.Errorf("config: duplicate token in API_TOKENS")
		}
		tokens[token] = user
	}
	return tokens, nil
}
