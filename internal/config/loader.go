// Package config loads service configuration from an optional YAML file, an
// optional .env file and the process environment, in that order of
// precedence (environment wins).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config captures the runtime configuration of the service.
type Config struct {
	HTTPPort         int
	SQLiteDSN        string
	SessionDir       string
	SessionTTL       time.Duration
	PruneSchedule    string
	ExtractorURL     string
	ExtractorAPIKey  string
	ExtractorTimeout time.Duration
	CORSOrigins      []string
}

type fileConfig struct {
	HTTPPort         int      `yaml:"http_port"`
	SQLiteDSN        string   `yaml:"sqlite_dsn"`
	SessionDir       string   `yaml:"session_dir"`
	SessionTTL       string   `yaml:"session_ttl"`
	PruneSchedule    string   `yaml:"prune_schedule"`
	ExtractorURL     string   `yaml:"extractor_url"`
	ExtractorAPIKey  string   `yaml:"extractor_api_key"`
	ExtractorTimeout string   `yaml:"extractor_timeout"`
	CORSOrigins      []string `yaml:"cors_origins"`
}

// Load builds the configuration. A YAML file named by SLOTSYNC_CONFIG (or
// ./slotsync.yaml when present) supplies base values; a .env file in the
// working directory and real environment variables override it.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:         8080,
		SQLiteDSN:        "file:slotsync.db",
		SessionTTL:       72 * time.Hour,
		PruneSchedule:    "0 * * * *",
		ExtractorTimeout: 20 * time.Second,
	}

	// Missing .env is fine; explicit settings come from the environment.
	_ = godotenv.Load()

	if err := applyFile(&cfg); err != nil {
		return Config{}, err
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("SLOTSYNC_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "SLOTSYNC_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("SLOTSYNC_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if dir := strings.TrimSpace(os.Getenv("SLOTSYNC_SESSION_DIR")); dir != "" {
		cfg.SessionDir = dir
	}

	if ttlValue := strings.TrimSpace(os.Getenv("SLOTSYNC_SESSION_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "SLOTSYNC_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if schedule := strings.TrimSpace(os.Getenv("SLOTSYNC_PRUNE_SCHEDULE")); schedule != "" {
		cfg.PruneSchedule = schedule
	}

	if url := strings.TrimSpace(os.Getenv("SLOTSYNC_EXTRACTOR_URL")); url != "" {
		cfg.ExtractorURL = url
	}
	if key := strings.TrimSpace(os.Getenv("SLOTSYNC_EXTRACTOR_API_KEY")); key != "" {
		cfg.ExtractorAPIKey = key
	}
	if timeoutValue := strings.TrimSpace(os.Getenv("SLOTSYNC_EXTRACTOR_TIMEOUT")); timeoutValue != "" {
		timeout, err := time.ParseDuration(timeoutValue)
		if err != nil || timeout <= 0 {
			invalid = append(invalid, "SLOTSYNC_EXTRACTOR_TIMEOUT")
		} else {
			cfg.ExtractorTimeout = timeout
		}
	}

	if origins := strings.TrimSpace(os.Getenv("SLOTSYNC_CORS_ORIGINS")); origins != "" {
		cfg.CORSOrigins = splitOrigins(origins)
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment values: %s", strings.Join(invalid, ", "))
	}
	return cfg, nil
}

func applyFile(cfg *Config) error {
	path := strings.TrimSpace(os.Getenv("SLOTSYNC_CONFIG"))
	if path == "" {
		if _, err := os.Stat("slotsync.yaml"); err == nil {
			path = "slotsync.yaml"
		} else {
			return nil
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if file.HTTPPort > 0 {
		cfg.HTTPPort = file.HTTPPort
	}
	if file.SQLiteDSN != "" {
		cfg.SQLiteDSN = file.SQLiteDSN
	}
	if file.SessionDir != "" {
		cfg.SessionDir = file.SessionDir
	}
	if file.SessionTTL != "" {
		ttl, err := time.ParseDuration(file.SessionTTL)
		if err != nil || ttl <= 0 {
			return fmt.Errorf("invalid session_ttl in %s", path)
		}
		cfg.SessionTTL = ttl
	}
	if file.PruneSchedule != "" {
		cfg.PruneSchedule = file.PruneSchedule
	}
	if file.ExtractorURL != "" {
		cfg.ExtractorURL = file.ExtractorURL
	}
	if file.ExtractorAPIKey != "" {
		cfg.ExtractorAPIKey = file.ExtractorAPIKey
	}
	if file.ExtractorTimeout != "" {
		timeout, err := time.ParseDuration(file.ExtractorTimeout)
		if err != nil || timeout <= 0 {
			return fmt.Errorf("invalid extractor_timeout in %s", path)
		}
		cfg.ExtractorTimeout = timeout
	}
	if len(file.CORSOrigins) > 0 {
		cfg.CORSOrigins = append([]string(nil), file.CORSOrigins...)
	}
	return nil
}

func splitOrigins(value string) []string {
	parts := strings.Split(value, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if origin := strings.TrimSpace(part); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
