package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	errs "xscraper/pkg/errors"
)

// maxEnvAccounts bounds the AUTH{n}/CT0{n} env var scan.
const maxEnvAccounts = 16

// Config holds all configuration for the scraper.
type Config struct {
	Accounts  []AccountConfig `yaml:"accounts" json:"accounts"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Fetch     FetchConfig     `yaml:"fetch" json:"fetch"`
	Output    OutputConfig    `yaml:"output" json:"output"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// AccountConfig is one credentialed identity as configured.
type AccountConfig struct {
	Name      string `yaml:"name" json:"name"`
	AuthToken string `yaml:"auth_token" json:"auth_token"`
	CSRFToken string `yaml:"csrf_token" json:"csrf_token"`
	Proxy     string `yaml:"proxy,omitempty" json:"proxy,omitempty"`
}

// RateLimitConfig controls the global request governor.
type RateLimitConfig struct {
	QPS        float64       `yaml:"qps" json:"qps"`
	JitterLow  time.Duration `yaml:"jitter_low" json:"jitter_low"`
	JitterHigh time.Duration `yaml:"jitter_high" json:"jitter_high"`
}

// FetchConfig controls per-request behavior.
type FetchConfig struct {
	PerIdentityConcurrency int           `yaml:"per_identity_concurrency" json:"per_identity_concurrency"`
	RequestTimeout         time.Duration `yaml:"request_timeout" json:"request_timeout"`
	MaxRetryAttempts       int           `yaml:"max_retry_attempts" json:"max_retry_attempts"`
	UserAgents             []string      `yaml:"user_agents" json:"user_agents"`
}

// OutputConfig controls where fetched batches are written.
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		RateLimit: RateLimitConfig{
			QPS:        1.0,
			JitterLow:  200 * time.Millisecond,
			JitterHigh: 1 * time.Second,
		},
		Fetch: FetchConfig{
			PerIdentityConcurrency: 2,
			RequestTimeout:         15 * time.Second,
			MaxRetryAttempts:       3,
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118 Safari/537.36",
				"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_4) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16 Safari/605.1.15",
			},
		},
		Output: OutputConfig{
			BaseDirectory: "./data",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv overrides configuration from environment variables.
// Accounts are recognized as AUTH1/CT01, AUTH2/CT02, ... with optional
// PROXY1, PROXY2, ... egress routes.
func (c *Config) LoadFromEnv() {
	if qps := os.Getenv("XSCRAPER_QPS"); qps != "" {
		if val, err := strconv.ParseFloat(qps, 64); err == nil {
			c.RateLimit.QPS = val
		}
	}
	if conc := os.Getenv("XSCRAPER_IDENTITY_CONCURRENCY"); conc != "" {
		if val, err := strconv.Atoi(conc); err == nil && val > 0 {
			c.Fetch.PerIdentityConcurrency = val
		}
	}
	if timeout := os.Getenv("XSCRAPER_REQUEST_TIMEOUT"); timeout != "" {
		if val, err := strconv.Atoi(timeout); err == nil && val > 0 {
			c.Fetch.RequestTimeout = time.Duration(val) * time.Second
		}
	}
	if retries := os.Getenv("XSCRAPER_MAX_RETRIES"); retries != "" {
		if val, err := strconv.Atoi(retries); err == nil && val > 0 {
			c.Fetch.MaxRetryAttempts = val
		}
	}
	if outputDir := os.Getenv("XSCRAPER_OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if logLevel := os.Getenv("XSCRAPER_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	if envAccounts := accountsFromEnv(); len(envAccounts) > 0 {
		c.Accounts = envAccounts
	}
}

// accountsFromEnv scans AUTH{n}/CT0{n} pairs the way the platform
// credentials are usually exported.
func accountsFromEnv() []AccountConfig {
	var accounts []AccountConfig
	for i := 1; i <= maxEnvAccounts; i++ {
		auth := os.Getenv(fmt.Sprintf("AUTH%d", i))
		ct0 := os.Getenv(fmt.Sprintf("CT0%d", i))
		if auth == "" || ct0 == "" {
			continue
		}
		accounts = append(accounts, AccountConfig{
			Name:      fmt.Sprintf("acc%d", i),
			AuthToken: auth,
			CSRFToken: ct0,
			Proxy:     os.Getenv(fmt.Sprintf("PROXY%d", i)),
		})
	}
	return accounts
}

// LoadFromFile loads configuration from a YAML file. An empty path
// searches the standard locations and is not an error when none exist.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func findConfigFile() string {
	locations := []string{
		".xscraper.yaml",
		".xscraper.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "xscraper", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".xscraper.yaml"),
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// Validate checks the configuration and clamps recoverable values.
// A non-positive QPS is clamped to 1.0 rather than rejected.
func (c *Config) Validate() error {
	if c.RateLimit.QPS <= 0 {
		c.RateLimit.QPS = 1.0
	}
	if c.RateLimit.JitterLow < 0 || c.RateLimit.JitterHigh < c.RateLimit.JitterLow {
		return errs.New(errs.ErrorTypeConfig, "jitter window must satisfy 0 <= low <= high", 0)
	}
	if c.Fetch.PerIdentityConcurrency <= 0 {
		return errs.New(errs.ErrorTypeConfig, "per-identity concurrency must be positive", 0)
	}
	if c.Fetch.RequestTimeout <= 0 {
		return errs.New(errs.ErrorTypeConfig, "request timeout must be positive", 0)
	}
	if c.Fetch.MaxRetryAttempts <= 0 {
		return errs.New(errs.ErrorTypeConfig, "max retry attempts must be positive", 0)
	}
	if len(c.Fetch.UserAgents) == 0 {
		return errs.New(errs.ErrorTypeConfig, "at least one user agent is required", 0)
	}
	if c.Output.BaseDirectory == "" {
		return errs.New(errs.ErrorTypeConfig, "output directory is required", 0)
	}
	return nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Load builds the final configuration. Precedence, lowest to highest:
// defaults, config file, .env file, environment variables.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".xscraper.env"))

	cfg := DefaultConfig()
	if err := cfg.LoadFromFile(configPath); err != nil {
		return nil, err
	}
	cfg.LoadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
