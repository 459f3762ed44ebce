package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/tabot/internal/domain"
)

// Config is the full application configuration.
type Config struct {
	Run       RunConfig       `yaml:"run"`
	Clock     ClockConfig     `yaml:"clock"`
	Library   LibraryConfig   `yaml:"library"`
	Data      DataConfig      `yaml:"data"`
	Broker    BrokerConfig    `yaml:"broker"`
	Weather   WeatherConfig   `yaml:"weather"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Log       LogConfig       `yaml:"log"`
}

// RunConfig selects how the orchestrator is driven.
type RunConfig struct {
	Type string `yaml:"type"` // backtest | paper | real
}

// ClockConfig sets the tick size and the indicator warm-up window.
type ClockConfig struct {
	IntervalSeconds  int `yaml:"interval_seconds"`
	PaddingIntervals int `yaml:"padding_intervals"`
}

// LibraryConfig points at the play library file.
type LibraryConfig struct {
	Path string `yaml:"path"` // .yaml, .yml or .toml
}

// DataConfig locates historical bars, one <SYMBOL>.csv per symbol.
type DataConfig struct {
	BarsDir string `yaml:"bars_dir"`
}

// BrokerConfig throttles calls to the broker.
type BrokerConfig struct {
	RatePerSec float64 `yaml:"rate_per_sec"` // 0 = unlimited
	Burst      int     `yaml:"burst"`
}

// WeatherConfig selects the market condition source.
type WeatherConfig struct {
	Source       string            `yaml:"source"` // static | schedule | redis
	Static       map[string]string `yaml:"static"`
	ScheduleFile string            `yaml:"schedule_file"`
	RedisAddr    string            `yaml:"redis_addr"`
	RedisDB      int               `yaml:"redis_db"`
	RedisKey     string            `yaml:"redis_key"`
	RedisPass    string            `yaml:"-"` // only from env
}

// TelemetryConfig controls where run results are stored.
type TelemetryConfig struct {
	Driver    string `yaml:"driver"` // sqlite | postgres
	DSN       string `yaml:"dsn"`    // SQLite path or Postgres URL
	BatchSize int    `yaml:"batch_size"`
	MaxConns  int    `yaml:"max_conns"`
}

// LogConfig controls log format and level.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load reads the YAML file and the .env file if present. Environment values
// override the YAML for the keys they cover.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// Validate checks the enumerated fields.
func (c *Config) Validate() error {
	if _, err := domain.ParseRunType(c.Run.Type); err != nil {
		return err
	}
	switch c.Weather.Source {
	case "static", "schedule", "redis":
	default:
		return fmt.Errorf("unknown weather source %q", c.Weather.Source)
	}
	switch c.Telemetry.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown telemetry driver %q", c.Telemetry.Driver)
	}
	return nil
}

// RunType is the parsed run type.
func (c *Config) RunType() domain.RunType {
	return domain.RunType(c.Run.Type)
}

// Interval returns the clock tick as a time.Duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Clock.IntervalSeconds) * time.Second
}

// applyEnvOverrides overrides values with TABOT_* environment variables.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("TABOT_RUN_TYPE"); v != "" {
		cfg.Run.Type = v
	}
	if v := os.Getenv("TABOT_LIBRARY_PATH"); v != "" {
		cfg.Library.Path = v
	}
	if v := os.Getenv("TABOT_BARS_DIR"); v != "" {
		cfg.Data.BarsDir = v
	}
	if v := os.Getenv("TABOT_WEATHER_SOURCE"); v != "" {
		cfg.Weather.Source = v
	}
	if v := os.Getenv("TABOT_REDIS_ADDR"); v != "" {
		cfg.Weather.RedisAddr = v
	}
	if v := os.Getenv("TABOT_REDIS_PASSWORD"); v != "" {
		cfg.Weather.RedisPass = v
	}
	if v := os.Getenv("TABOT_TELEMETRY_DRIVER"); v != "" {
		cfg.Telemetry.Driver = v
	}
	if v := os.Getenv("TABOT_TELEMETRY_DSN"); v != "" {
		cfg.Telemetry.DSN = v
	}
	if v := os.Getenv("TABOT_INTERVAL_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TABOT_INTERVAL_SECONDS: %w", err)
		}
		cfg.Clock.IntervalSeconds = n
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	return nil
}

// setDefaults fills the values left empty.
func setDefaults(cfg *Config) {
	if cfg.Run.Type == "" {
		cfg.Run.Type = string(domain.RunBacktest)
	}
	if cfg.Clock.IntervalSeconds <= 0 {
		cfg.Clock.IntervalSeconds = 300
	}
	if cfg.Clock.PaddingIntervals <= 0 {
		cfg.Clock.PaddingIntervals = 100
	}
	if cfg.Library.Path == "" {
		cfg.Library.Path = "config/plays.yaml"
	}
	if cfg.Data.BarsDir == "" {
		cfg.Data.BarsDir = "data/bars"
	}
	if cfg.Weather.Source == "" {
		cfg.Weather.Source = "static"
	}
	if cfg.Weather.RedisAddr == "" {
		cfg.Weather.RedisAddr = "localhost:6379"
	}
	if cfg.Weather.RedisKey == "" {
		cfg.Weather.RedisKey = "tabot:weather"
	}
	if cfg.Telemetry.Driver == "" {
		cfg.Telemetry.Driver = "sqlite"
	}
	if cfg.Telemetry.DSN == "" && cfg.Telemetry.Driver == "sqlite" {
		cfg.Telemetry.DSN = "tabot.db"
	}
	if cfg.Telemetry.BatchSize <= 0 {
		cfg.Telemetry.BatchSize = 50
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
