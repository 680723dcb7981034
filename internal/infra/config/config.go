package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DriverPostgres selects the pgx-backed review store.
	DriverPostgres = "postgres"
	// DriverMemory selects the in-process review store.
	DriverMemory = "memory"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	Environment string         `yaml:"environment"`
	HTTP        HTTPConfig     `yaml:"http"`
	Database    DatabaseConfig `yaml:"database"`
	LLM         LLMConfig      `yaml:"llm"`
	Summary     SummaryConfig  `yaml:"summary"`
	Cache       CacheConfig    `yaml:"cache"`
	Metrics     MetricsConfig  `yaml:"metrics"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string        `yaml:"address"`
	ReadTimeout    time.Duration `yaml:"readTimeout"`
	WriteTimeout   time.Duration `yaml:"writeTimeout"`
	AllowedOrigins []string      `yaml:"allowedOrigins"`
}

// DatabaseConfig selects and configures the review store.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
	Migrate  bool   `yaml:"migrate"`
}

// LLMConfig contains settings for the OpenAI-compatible chat backend.
type LLMConfig struct {
	APIKey      string        `yaml:"apiKey"`
	BaseURL     string        `yaml:"baseUrl"`
	Model       string        `yaml:"model"`
	Temperature float32       `yaml:"temperature"`
	MaxTokens   int           `yaml:"maxTokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

// SummaryConfig drives summary generation and caching.
type SummaryConfig struct {
	Prompt      string        `yaml:"prompt"`
	ReviewLimit int           `yaml:"reviewLimit"`
	TTL         time.Duration `yaml:"ttl"`
	Coalesce    bool          `yaml:"coalesce"`
}

// CacheConfig contains connection information for the Valkey summary cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Prefix  string `yaml:"prefix"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.Environment = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.HTTP.Address = ":" + strings.TrimPrefix(v, ":")
	}
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("DATABASE_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Database.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("DATABASE_MIGRATE"); v != "" {
		cfg.Database.Migrate = parseBool(v)
	}
	if v := os.Getenv("HUGGINGFACE_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(parsed)
		}
	}
	if v := os.Getenv("LLM_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.LLM.Timeout = parsed
		}
	}
	if v := os.Getenv("SUMMARY_PROMPT"); v != "" {
		cfg.Summary.Prompt = v
	}
	if v := os.Getenv("SUMMARY_REVIEW_LIMIT"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Summary.ReviewLimit = parsed
		}
	}
	if v := os.Getenv("SUMMARY_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Summary.TTL = parsed
		}
	}
	if v := os.Getenv("SUMMARY_COALESCE"); v != "" {
		cfg.Summary.Coalesce = parseBool(v)
	}
	if v := os.Getenv("CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = parseBool(v)
	}
	if v := os.Getenv("CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
}

func defaultConfig() *Config {
	return &Config{
		Environment: "development",
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 90 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:   DriverPostgres,
			MaxConns: 4,
		},
		LLM: LLMConfig{
			Model:       "meta-llama/Llama-3.1-8B-Instruct",
			Temperature: 0.3,
			MaxTokens:   300,
			Timeout:     60 * time.Second,
		},
		Summary: SummaryConfig{
			Prompt:      "You are a helpful assistant that summarizes customer product reviews. Write a short, balanced paragraph covering what customers like, what they dislike, and the overall sentiment.",
			ReviewLimit: 10,
			TTL:         7 * 24 * time.Hour,
		},
		Cache: CacheConfig{
			Prefix: "reviews",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	switch c.Database.Driver {
	case DriverPostgres:
		if strings.TrimSpace(c.Database.DSN) == "" {
			return errors.New("database.dsn is required when database.driver=postgres")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverPostgres, DriverMemory, c.Database.Driver)
	}
	if c.Database.MaxConns < 0 || c.Database.MinConns < 0 {
		return errors.New("database connection limits cannot be negative")
	}
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return errors.New("llm.apiKey is required")
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return errors.New("llm.model cannot be empty")
	}
	if strings.TrimSpace(c.Summary.Prompt) == "" {
		return errors.New("summary.prompt cannot be empty")
	}
	if c.Summary.ReviewLimit <= 0 {
		return errors.New("summary.reviewLimit must be positive")
	}
	if c.Summary.TTL <= 0 {
		return errors.New("summary.ttl must be positive")
	}
	if c.Cache.Enabled && strings.TrimSpace(c.Cache.Addr) == "" {
		return errors.New("cache.addr cannot be empty when the summary cache is enabled")
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return errors.New("metrics.path must start with /")
	}
	return nil
}

func parseBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
