package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/Vvil1568/lct-hackathone/pkg/apperrors"
)

// DefaultPath is the configuration file read when no path is given.
const DefaultPath = "config.yaml"

// Config holds all configuration for lakeadvisor.
// Configuration can come from a YAML file or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (API keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8000"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// TLS configuration (optional - if both provided, server uses HTTPS)
	TLSCertPath string `yaml:"tls_cert_path" env:"TLS_CERT_PATH" env-default:""`
	TLSKeyPath  string `yaml:"tls_key_path" env:"TLS_KEY_PATH" env-default:""`

	Logging  LoggingConfig  `yaml:"logging"`
	Engine   EngineConfig   `yaml:"engine"`
	LLM      LLMConfig      `yaml:"llm"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Queue    QueueConfig    `yaml:"queue"`
}

// LoggingConfig selects the log level. The encoder follows Env.
type LoggingConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

// EngineConfig holds query-engine session settings.
type EngineConfig struct {
	// PlanTimeout bounds each EXPLAIN and statistics request.
	PlanTimeout time.Duration `yaml:"plan_timeout" env:"ENGINE_PLAN_TIMEOUT" env-default:"60s"`
	// ProfileConcurrency is how many queries of one batch are planned at once.
	ProfileConcurrency int `yaml:"profile_concurrency" env:"ENGINE_PROFILE_CONCURRENCY" env-default:"4"`
	// ResolveDockerHost rewrites localhost engine and LLM hosts to host.docker.internal inside containers.
	// Disable it through the environment: a false in YAML is replaced by the default.
	ResolveDockerHost bool `yaml:"resolve_docker_host" env:"ENGINE_RESOLVE_DOCKER_HOST" env-default:"true"`
}

// LLMConfig holds the oracle endpoint.
type LLMConfig struct {
	Provider         string        `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`
	BaseURL          string        `yaml:"base_url" env:"LLM_BASE_URL" env-default:""`
	Model            string        `yaml:"model" env:"LLM_MODEL" env-default:""`
	APIKey           string        `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML
	Temperature      float64       `yaml:"temperature" env:"LLM_TEMPERATURE" env-default:"0.2"`
	MaxTokens        int           `yaml:"max_tokens" env:"LLM_MAX_TOKENS" env-default:"8192"`
	RequestTimeout   time.Duration `yaml:"request_timeout" env:"LLM_REQUEST_TIMEOUT" env-default:"5m"`
	RateLimitDelay   time.Duration `yaml:"rate_limit_delay" env:"LLM_RATE_LIMIT_DELAY" env-default:"5s"`
	RateLimitRetries int           `yaml:"rate_limit_retries" env:"LLM_RATE_LIMIT_RETRIES" env-default:"3"`
}

// AnalysisConfig holds the analysis and correction-loop tunables.
type AnalysisConfig struct {
	TopN              int           `yaml:"top_n" env:"ANALYSIS_TOP_N" env-default:"5"`
	MaxCorrections    int           `yaml:"max_corrections" env:"ANALYSIS_MAX_CORRECTIONS" env-default:"2"`
	AttemptBackoff    time.Duration `yaml:"attempt_backoff" env:"ANALYSIS_ATTEMPT_BACKOFF" env-default:"2s"`
	WideTableColumns  int           `yaml:"wide_table_columns" env:"ANALYSIS_WIDE_TABLE_COLUMNS" env-default:"20"`
	SolutionsPath     string        `yaml:"solutions_path" env:"ANALYSIS_SOLUTIONS_PATH" env-default:"configs/solutions.json"`
	IncludeTableStats bool          `yaml:"include_table_stats" env:"ANALYSIS_INCLUDE_TABLE_STATS" env-default:"false"`
	OptimizedSchema   string        `yaml:"optimized_schema" env:"ANALYSIS_OPTIMIZED_SCHEMA" env-default:"optimized"`
	MaxPlanChars      int           `yaml:"max_plan_chars" env:"ANALYSIS_MAX_PLAN_CHARS" env-default:"6000"`
}

// QueueConfig holds background job settings.
type QueueConfig struct {
	// Workers is how many batches run at once.
	Workers int `yaml:"workers" env:"QUEUE_WORKERS" env-default:"2"`
	// MaxRetained is how many finished jobs are kept for status queries.
	MaxRetained int `yaml:"max_retained" env:"QUEUE_MAX_RETAINED" env-default:"1000"`
}

// Load reads configuration from path with environment variable overrides.
// An empty path means config.yaml; if that default file is absent,
// configuration comes from the environment alone.
// The version parameter is injected at build time and set on the returned Config.
func Load(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	_, statErr := os.Stat(path)
	switch {
	case statErr == nil:
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("%w: failed to read %s: %v", apperrors.ErrConfiguration, path, err)
		}
	case explicit || !errors.Is(statErr, os.ErrNotExist):
		return nil, fmt.Errorf("%w: config file %s: %v", apperrors.ErrConfiguration, path, statErr)
	default:
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("%w: failed to read environment: %v", apperrors.ErrConfiguration, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and combinations. Errors wrap apperrors.ErrConfiguration.
func (c *Config) Validate() error {
	if err := c.validateTLS(); err != nil {
		return fmt.Errorf("%w: invalid TLS configuration: %v", apperrors.ErrConfiguration, err)
	}

	var problems []string
	switch strings.ToLower(c.LLM.Provider) {
	case "openai", "vllm", "anthropic":
	default:
		problems = append(problems, fmt.Sprintf("llm.provider %q is not one of openai, vllm, anthropic", c.LLM.Provider))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		problems = append(problems, "llm.temperature must be between 0 and 2")
	}
	if c.LLM.RateLimitRetries < 0 {
		problems = append(problems, "llm.rate_limit_retries must not be negative")
	}
	if c.Analysis.TopN < 1 {
		problems = append(problems, "analysis.top_n must be at least 1")
	}
	if c.Analysis.MaxCorrections < 0 {
		problems = append(problems, "analysis.max_corrections must not be negative")
	}
	if c.Analysis.WideTableColumns < 1 {
		problems = append(problems, "analysis.wide_table_columns must be at least 1")
	}
	if strings.TrimSpace(c.Analysis.OptimizedSchema) == "" {
		problems = append(problems, "analysis.optimized_schema must not be empty")
	}
	if c.Engine.ProfileConcurrency < 1 {
		problems = append(problems, "engine.profile_concurrency must be at least 1")
	}
	if c.Queue.Workers < 1 {
		problems = append(problems, "queue.workers must be at least 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

// validateTLS ensures TLS configuration is valid if provided.
// Both cert and key must be provided together, and files must exist.
func (c *Config) validateTLS() error {
	certSet := c.TLSCertPath != ""
	keySet := c.TLSKeyPath != ""

	if certSet != keySet {
		return fmt.Errorf("both tls_cert_path and tls_key_path must be provided together")
	}

	if certSet {
		if _, err := os.Stat(c.TLSCertPath); err != nil {
			return fmt.Errorf("TLS cert file does not exist: %w", err)
		}
		if _, err := os.Stat(c.TLSKeyPath); err != nil {
			return fmt.Errorf("TLS key file does not exist: %w", err)
		}
	}

	return nil
}

// ListenAddr is the address the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.BindAddr, c.Port)
}

// TLSEnabled reports whether the server should serve HTTPS.
func (c *Config) TLSEnabled() bool {
	return c.TLSCertPath != "" && c.TLSKeyPath != ""
}
