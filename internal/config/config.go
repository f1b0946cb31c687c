package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Universe UniverseConfig `yaml:"universe" envconfig:"UNIVERSE"`
	Fetch    FetchConfig    `yaml:"fetch" envconfig:"FETCH"`
	Merge    MergeConfig    `yaml:"merge" envconfig:"MERGE"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
}

// UniverseConfig controls how the ticker universe is resolved
type UniverseConfig struct {
	IndexURL      string `yaml:"index_url" envconfig:"INDEX_URL" default:"https://en.wikipedia.org/wiki/List_of_S%26P_500_companies" validate:"required,url"`
	ExpectedCount int    `yaml:"expected_count" envconfig:"EXPECTED_COUNT" default:"505" validate:"gt=0"`
}

// FetchConfig controls the per-ticker acquisition loop
type FetchConfig struct {
	From         string        `yaml:"from" envconfig:"FROM" default:"2000-01-01"`
	To           string        `yaml:"to" envconfig:"TO" default:"2017-01-01"`
	MaxRetries   int           `yaml:"max_retries" envconfig:"MAX_RETRIES" default:"50" validate:"gt=0"`
	BackoffDelay time.Duration `yaml:"backoff_delay" envconfig:"BACKOFF_DELAY" default:"2s" validate:"gt=0"`
	// BackoffMultiplier of 1.0 keeps the delay constant between attempts.
	BackoffMultiplier float64       `yaml:"backoff_multiplier" envconfig:"BACKOFF_MULTIPLIER" default:"1.0" validate:"gte=1"`
	Workers           int           `yaml:"workers" envconfig:"WORKERS" default:"1" validate:"gt=0"`
	RatePerSecond     float64       `yaml:"rate_per_second" envconfig:"RATE_PER_SECOND" default:"2" validate:"gt=0"`
	HTTPTimeout       time.Duration `yaml:"http_timeout" envconfig:"HTTP_TIMEOUT" default:"30s" validate:"gt=0"`
}

// MergeConfig controls the merge stage
type MergeConfig struct {
	Overwrite bool `yaml:"overwrite" envconfig:"OVERWRITE" default:"false"`
	Workbook  bool `yaml:"workbook" envconfig:"WORKBOOK" default:"false"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/snpcli.log"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	LogsDir string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	var cfg Config

	// Load from environment variables first
	if err := envconfig.Process("SNP", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// Load from config file if exists
	configFile := getConfigFilePath()
	if configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges file config with env config (env takes precedence)
func mergeConfigs(fileConfig, envConfig Config) Config {
	if envConfig.Universe.IndexURL == "" {
		envConfig.Universe.IndexURL = fileConfig.Universe.IndexURL
	}
	if envConfig.Universe.ExpectedCount == 0 {
		envConfig.Universe.ExpectedCount = fileConfig.Universe.ExpectedCount
	}
	if envConfig.Fetch.From == "" {
		envConfig.Fetch.From = fileConfig.Fetch.From
	}
	if envConfig.Fetch.To == "" {
		envConfig.Fetch.To = fileConfig.Fetch.To
	}
	if envConfig.Fetch.MaxRetries == 0 {
		envConfig.Fetch.MaxRetries = fileConfig.Fetch.MaxRetries
	}
	if envConfig.Fetch.BackoffDelay == 0 {
		envConfig.Fetch.BackoffDelay = fileConfig.Fetch.BackoffDelay
	}
	if envConfig.Fetch.Workers == 0 {
		envConfig.Fetch.Workers = fileConfig.Fetch.Workers
	}
	if envConfig.Logging.FilePath == "" {
		envConfig.Logging.FilePath = fileConfig.Logging.FilePath
	}
	if envConfig.Paths.DataDir == "" {
		envConfig.Paths.DataDir = fileConfig.Paths.DataDir
	}
	if envConfig.Paths.LogsDir == "" {
		envConfig.Paths.LogsDir = fileConfig.Paths.LogsDir
	}

	return envConfig
}

// validate validates the configuration
func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	from, err := time.Parse("2006-01-02", c.Fetch.From)
	if err != nil {
		return fmt.Errorf("invalid fetch.from date %q: %w", c.Fetch.From, err)
	}
	to, err := time.Parse("2006-01-02", c.Fetch.To)
	if err != nil {
		return fmt.Errorf("invalid fetch.to date %q: %w", c.Fetch.To, err)
	}
	if !from.Before(to) {
		return fmt.Errorf("fetch.from %s must precede fetch.to %s", c.Fetch.From, c.Fetch.To)
	}

	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output != "both" && c.Logging.Output != "file" && c.Logging.Output != "console" {
		c.Logging.Output = "both"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/snpcli.log"
	}

	return nil
}

// DateRange returns the configured acquisition date range as parsed times
func (c *Config) DateRange() (from, to time.Time, err error) {
	from, err = time.Parse("2006-01-02", c.Fetch.From)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err = time.Parse("2006-01-02", c.Fetch.To)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Universe: UniverseConfig{
			IndexURL:      "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies",
			ExpectedCount: 505,
		},
		Fetch: FetchConfig{
			From:              "2000-01-01",
			To:                "2017-01-01",
			MaxRetries:        50,
			BackoffDelay:      2 * time.Second,
			BackoffMultiplier: 1.0,
			Workers:           1,
			RatePerSecond:     2,
			HTTPTimeout:       30 * time.Second,
		},
		Merge: MergeConfig{
			Overwrite: false,
			Workbook:  false,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "both",
			FilePath: "logs/snpcli.log",
		},
		Paths: PathsConfig{
			DataDir: "data",
			LogsDir: "logs",
		},
	}
}
