package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
	Redis    RedisConfig    `yaml:"redis" envPrefix:"REDIS_"`
	Postgres PostgresConfig `yaml:"postgres" envPrefix:"POSTGRES_"`
	Quiz     QuizConfig     `yaml:"quiz" envPrefix:"QUIZ_"`
}

type ServerConfig struct {
	Port           string   `yaml:"port" env:"PORT"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
	TTL      string `yaml:"ttl" env:"TTL"`
}

type PostgresConfig struct {
	URL string `yaml:"url" env:"URL"`
}

// QuizConfig holds engine timings; durations are Go duration strings.
type QuizConfig struct {
	PoolTTL            string `yaml:"pool_ttl" env:"POOL_TTL"`
	DefaultDelay       string `yaml:"default_delay" env:"DEFAULT_DELAY"`
	RoundPause         string `yaml:"round_pause" env:"ROUND_PAUSE"`
	SendFailureBackoff string `yaml:"send_failure_backoff" env:"SEND_FAILURE_BACKOFF"`
	RetryFailedRound   bool   `yaml:"retry_failed_round" env:"RETRY_FAILED_ROUND"`
	WaitFullDelayMulti bool   `yaml:"wait_full_delay_multi" env:"WAIT_FULL_DELAY_MULTI"`
}

// Load reads YAML config from path and applies environment overrides. A
// missing file leaves the environment as the only source.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overlays variables such as REDIS_ADDR or QUIZ_ROUND_PAUSE on cfg.
// Unset variables keep the YAML value.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
