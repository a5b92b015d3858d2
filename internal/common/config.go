package common

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Server      ServerConfig     `toml:"server"`
	Storage     StorageConfig    `toml:"storage"`
	Logging     LoggingConfig    `toml:"logging"`
	Provider    ProviderConfig   `toml:"provider"`
	Scheduler   SchedulerConfig  `toml:"scheduler"`
	Similarity  SimilarityConfig `toml:"similarity"`
	Export      ExportConfig     `toml:"export"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gte=0,lte=65535"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	SQLite SQLiteConfig `toml:"sqlite"`
}

// SQLiteConfig represents SQLite-specific configuration
type SQLiteConfig struct {
	Path          string `toml:"path" validate:"required"`
	WALMode       bool   `toml:"wal_mode"`
	BusyTimeoutMS int    `toml:"busy_timeout_ms" validate:"gte=0"`
}

type LoggingConfig struct {
	Level  string   `toml:"level" validate:"oneof=debug info warn error"`
	Output []string `toml:"output"` // "stdout", "file"
}

// ProviderConfig contains the market data provider API settings
type ProviderConfig struct {
	BaseURL   string `toml:"base_url" validate:"required"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit" validate:"gte=1"` // requests per second
	Timeout   string `toml:"timeout"`                     // e.g. "30s"
	Exchange  string `toml:"exchange"`                    // exchange code for calendar and symbol lists
}

// SchedulerConfig contains cron schedules for the background jobs.
// Empty schedule disables the job.
type SchedulerConfig struct {
	Enabled     bool   `toml:"enabled"`
	DailyUpdate string `toml:"daily_update"` // cron expression
	Similarity  string `toml:"similarity"`   // cron expression
	HotRank     string `toml:"hot_rank"`     // cron expression
}

// SimilarityConfig controls the similarity batch orchestrator
type SimilarityConfig struct {
	Years       []int `toml:"years"`
	Concurrency int   `toml:"concurrency" validate:"gte=0"` // 0 = auto (CPUs minus margin, floor 1)
	YearsBack   int   `toml:"years_back" validate:"gte=0"`  // used when years is empty
}

// ExportConfig controls CSV data export
type ExportConfig struct {
	Dir string `toml:"dir"`
}

// NewDefaultConfig returns the built-in defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Storage: StorageConfig{
			SQLite: SQLiteConfig{
				Path:          "./data/similis.db",
				WALMode:       true,
				BusyTimeoutMS: 5000,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Provider: ProviderConfig{
			BaseURL:   "https://eodhd.com/api",
			RateLimit: 10,
			Timeout:   "30s",
			Exchange:  "SHG",
		},
		Scheduler: SchedulerConfig{
			Enabled:     true,
			DailyUpdate: "0 18 * * 1-5", // weekdays after market close
			Similarity:  "30 18 * * 1-5",
			HotRank:     "0 19 * * 1-5",
		},
		Similarity: SimilarityConfig{
			Concurrency: 0,
			YearsBack:   5,
		},
		Export: ExportConfig{
			Dir: "./export",
		},
	}
}

// LoadFromFiles loads configuration with priority:
// defaults -> file1 -> file2 -> ... -> env -> CLI flags.
// Later config files override earlier ones.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies SIMILIS_* environment variable overrides
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("SIMILIS_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("SIMILIS_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("SIMILIS_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if path := os.Getenv("SIMILIS_SQLITE_PATH"); path != "" {
		config.Storage.SQLite.Path = path
	}

	if level := os.Getenv("SIMILIS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("SIMILIS_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	if baseURL := os.Getenv("SIMILIS_PROVIDER_BASE_URL"); baseURL != "" {
		config.Provider.BaseURL = baseURL
	}
	if apiKey := os.Getenv("SIMILIS_PROVIDER_API_KEY"); apiKey != "" {
		config.Provider.APIKey = apiKey
	}
	if rateLimit := os.Getenv("SIMILIS_PROVIDER_RATE_LIMIT"); rateLimit != "" {
		if rl, err := strconv.Atoi(rateLimit); err == nil {
			config.Provider.RateLimit = rl
		}
	}

	if concurrency := os.Getenv("SIMILIS_SIMILARITY_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Similarity.Concurrency = c
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest
// priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks structural validity plus the cron expressions
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	for name, expr := range map[string]string{
		"daily_update": c.Scheduler.DailyUpdate,
		"similarity":   c.Scheduler.Similarity,
		"hot_rank":     c.Scheduler.HotRank,
	} {
		if expr == "" {
			continue
		}
		if _, err := cron.ParseStandard(expr); err != nil {
			return fmt.Errorf("invalid %s schedule %q: %w", name, expr, err)
		}
	}

	return nil
}

// IsProduction returns true when running in production mode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// SimilarityWorkers resolves the configured concurrency: explicit
// values pass through, zero means CPUs minus a reserved margin, and
// the result never drops below one worker.
func (c *Config) SimilarityWorkers() int {
	workers := c.Similarity.Concurrency
	if workers == 0 {
		workers = runtime.NumCPU() - 1
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}

// SimilarityYears resolves the configured year set: an explicit list
// passes through, otherwise the last YearsBack years ending at
// currentYear.
func (c *Config) SimilarityYears(currentYear int) []int {
	if len(c.Similarity.Years) > 0 {
		return c.Similarity.Years
	}

	back := c.Similarity.YearsBack
	if back <= 0 {
		back = 5
	}
	years := make([]int, 0, back)
	for y := currentYear - back + 1; y <= currentYear; y++ {
		years = append(years, y)
	}
	return years
}
