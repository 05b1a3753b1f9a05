// Package config loads the orchestrator configuration from YAML with
// environment overrides. The loaded value is passed explicitly into each
// stage at construction; nothing reads it ambiently.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/viper"
)

// ResearchConfig bounds the pipeline's fan-out and the workers' loops.
type ResearchConfig struct {
	MinSubagents         int `mapstructure:"min_subagents"`
	MaxSubagents         int `mapstructure:"max_subagents"`
	MaxIterations        int `mapstructure:"max_iterations"`
	MaxConcurrentWorkers int `mapstructure:"max_concurrent_workers"`
}

// SearchConfig carries the web-search tool call parameters.
type SearchConfig struct {
	MaxResults        int    `mapstructure:"max_results"`
	MaxCharsPerResult int    `mapstructure:"max_chars_per_result"`
	Processor         string `mapstructure:"processor"`
}

// ModelConfig carries the generation call parameters.
type ModelConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// ServicesConfig points at the external collaborators.
type ServicesConfig struct {
	LLMBaseURL    string `mapstructure:"llm_base_url"`
	SearchBaseURL string `mapstructure:"search_base_url"`
	SearchAPIKey  string `mapstructure:"search_api_key"`
}

// TemporalConfig locates the workflow engine.
type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	TaskQueue string `mapstructure:"task_queue"`
}

// PostgresConfig locates the result store. Persistence is optional; an empty
// host disables it.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig locates the progress-event mirror. Optional; an empty addr
// disables it.
type RedisConfig struct {
	Addr string `mapstructure:"addr"`
}

// ObservabilityConfig carries metrics and progress-stream knobs.
type ObservabilityConfig struct {
	MetricsPort  int `mapstructure:"metrics_port"`
	RingCapacity int `mapstructure:"ring_capacity"`
}

// Config is the full orchestrator configuration.
type Config struct {
	Research      ResearchConfig      `mapstructure:"research"`
	Search        SearchConfig        `mapstructure:"search"`
	Model         ModelConfig         `mapstructure:"model"`
	Services      ServicesConfig      `mapstructure:"services"`
	Temporal      TemporalConfig      `mapstructure:"temporal"`
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Research: ResearchConfig{
			MinSubagents:         3,
			MaxSubagents:         5,
			MaxIterations:        10,
			MaxConcurrentWorkers: 5,
		},
		Search: SearchConfig{
			MaxResults:        10,
			MaxCharsPerResult: 6000,
			Processor:         "base",
		},
		Model: ModelConfig{
			Temperature: 0.7,
			MaxTokens:   4096,
		},
		Services: ServicesConfig{
			LLMBaseURL:    "http://llm-service:8000",
			SearchBaseURL: "http://search-service:8100",
		},
		Temporal: TemporalConfig{
			HostPort:  "temporal:7233",
			TaskQueue: "fathom-research",
		},
		Postgres: PostgresConfig{
			Port:    5432,
			SSLMode: "disable",
		},
		Observability: ObservabilityConfig{
			MetricsPort:  2112,
			RingCapacity: 256,
		},
	}
}

// Load reads the YAML config from CONFIG_PATH (default ./config/fathom.yaml)
// and applies environment overrides. A missing file is not an error; defaults
// and environment still apply.
func Load() (*Config, error) {
	cfg := Default()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/fathom.yaml"
	}

	if _, err := os.Stat(cfgPath); err == nil {
		v := viper.New()
		v.SetConfigFile(cfgPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Research.MaxSubagents < 1 {
		return fmt.Errorf("config: max_subagents must be >= 1, got %d", c.Research.MaxSubagents)
	}
	if c.Research.MinSubagents < 1 || c.Research.MinSubagents > c.Research.MaxSubagents {
		return fmt.Errorf("config: min_subagents must be in [1, %d], got %d",
			c.Research.MaxSubagents, c.Research.MinSubagents)
	}
	if c.Research.MaxIterations < 1 {
		return fmt.Errorf("config: max_iterations must be >= 1, got %d", c.Research.MaxIterations)
	}
	if c.Research.MaxConcurrentWorkers < 1 {
		return fmt.Errorf("config: max_concurrent_workers must be >= 1, got %d", c.Research.MaxConcurrentWorkers)
	}
	return nil
}

func applyEnvOverrides(c *Config) {
	if v := os.Getenv("LLM_SERVICE_URL"); v != "" {
		c.Services.LLMBaseURL = v
	}
	if v := os.Getenv("SEARCH_SERVICE_URL"); v != "" {
		c.Services.SearchBaseURL = v
	}
	if v := os.Getenv("SEARCH_API_KEY"); v != "" {
		c.Services.SearchAPIKey = v
	}
	if v := os.Getenv("TEMPORAL_HOST"); v != "" {
		c.Temporal.HostPort = v
	}
	if v := os.Getenv("TEMPORAL_TASK_QUEUE"); v != "" {
		c.Temporal.TaskQueue = v
	}
	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		c.Postgres.Host = v
	}
	if v := os.Getenv("POSTGRES_USER"); v != "" {
		c.Postgres.User = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		c.Postgres.Password = v
	}
	if v := os.Getenv("POSTGRES_DB"); v != "" {
		c.Postgres.Database = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if n := envInt("POSTGRES_PORT"); n > 0 {
		c.Postgres.Port = n
	}
	if n := envInt("METRICS_PORT"); n > 0 {
		c.Observability.MetricsPort = n
	}
	if n := envInt("STREAMING_RING_CAPACITY"); n > 0 {
		c.Observability.RingCapacity = n
	}
	if n := envInt("MAX_SUBAGENTS"); n > 0 {
		c.Research.MaxSubagents = n
	}
	if n := envInt("MIN_SUBAGENTS"); n > 0 {
		c.Research.MinSubagents = n
	}
	if n := envInt("MAX_CONCURRENT_WORKERS"); n > 0 {
		c.Research.MaxConcurrentWorkers = n
	}
}

func envInt(key string) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}
