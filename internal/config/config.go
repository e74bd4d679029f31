package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the engagement engine.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Push       PushConfig       `yaml:"push"`
	Telephony  TelephonyConfig  `yaml:"telephony"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Jobs       JobsConfig       `yaml:"jobs"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`

	// PublicBaseURL is the externally reachable base URL the telephony
	// provider uses to fetch call scripts and deliver status callbacks.
	PublicBaseURL string `yaml:"public_base_url"`
}

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds the optional Redis settings used for job locks.
// When disabled, locks fall back to Postgres advisory locks.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// PushConfig holds the push transport settings. An empty ServiceKey means
// the transport is not configured; sends then return a clean failure.
type PushConfig struct {
	ServiceKey     string `yaml:"service_key"`
	TTLSeconds     int    `yaml:"ttl_seconds"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration.
func (c PushConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// TelephonyConfig holds the voice provider settings. An empty AccountSID
// means the transport is not configured.
type TelephonyConfig struct {
	AccountSID     string `yaml:"account_sid"`
	AuthToken      string `yaml:"auth_token"`
	FromNumber     string `yaml:"from_number"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration.
func (c TelephonyConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DispatcherConfig holds the tick loop settings.
type DispatcherConfig struct {
	TickSeconds int `yaml:"tick_seconds"`
	BatchSize   int `yaml:"batch_size"`
}

// Tick returns the tick interval as a duration.
func (c DispatcherConfig) Tick() time.Duration {
	return time.Duration(c.TickSeconds) * time.Second
}

// JobsConfig holds cron expressions for the named campaign jobs and the
// inactivity threshold. Micro-lesson scheduling runs before the inactivity
// sweep so a user is not double-touched on the same morning.
type JobsConfig struct {
	MicroLessonsCron        string `yaml:"micro_lessons_cron"`
	InactivitySweepCron     string `yaml:"inactivity_sweep_cron"`
	GoalSweepCron           string `yaml:"goal_sweep_cron"`
	InactivityThresholdDays int    `yaml:"inactivity_threshold_days"`
}

// Load reads and parses the configuration file, applying defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.PublicBaseURL == "" {
		cfg.Server.PublicBaseURL = "http://localhost:8080"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 20
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Push.TTLSeconds == 0 {
		cfg.Push.TTLSeconds = 86400
	}
	if cfg.Push.TimeoutSeconds == 0 {
		cfg.Push.TimeoutSeconds = 15
	}
	if cfg.Telephony.BaseURL == "" {
		cfg.Telephony.BaseURL = "https://api.twilio.com"
	}
	if cfg.Telephony.TimeoutSeconds == 0 {
		cfg.Telephony.TimeoutSeconds = 30
	}
	if cfg.Dispatcher.TickSeconds == 0 {
		cfg.Dispatcher.TickSeconds = 300
	}
	if cfg.Dispatcher.BatchSize == 0 {
		cfg.Dispatcher.BatchSize = 50
	}
	if cfg.Jobs.MicroLessonsCron == "" {
		cfg.Jobs.MicroLessonsCron = "0 8 * * *"
	}
	if cfg.Jobs.InactivitySweepCron == "" {
		cfg.Jobs.InactivitySweepCron = "30 8 * * *"
	}
	if cfg.Jobs.GoalSweepCron == "" {
		cfg.Jobs.GoalSweepCron = "0 19 * * *"
	}
	if cfg.Jobs.InactivityThresholdDays == 0 {
		cfg.Jobs.InactivityThresholdDays = 2
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// A .env file (if present) is loaded first, so secrets can live in .env
// locally and in real env vars in deployment.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if os.IsNotExist(err) {
		// No config file is fine; defaults plus env vars carry a dev setup.
		cfg = &Config{}
		applyDefaults(cfg)
	} else if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("PUSH_SERVICE_KEY"); v != "" {
		cfg.Push.ServiceKey = v
	}
	if v := os.Getenv("TELEPHONY_ACCOUNT_SID"); v != "" {
		cfg.Telephony.AccountSID = v
	}
	if v := os.Getenv("TELEPHONY_AUTH_TOKEN"); v != "" {
		cfg.Telephony.AuthToken = v
	}
	if v := os.Getenv("TELEPHONY_FROM_NUMBER"); v != "" {
		cfg.Telephony.FromNumber = v
	}
	if v := os.Getenv("PUBLIC_BASE_URL"); v != "" {
		cfg.Server.PublicBaseURL = v
	}

	return cfg, nil
}
