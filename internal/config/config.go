package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config holds the process level settings. Everything comes from the
// environment, optionally seeded from a .env file in the working directory.
type Config struct {
	ListenAddr      string        `env:"LISTEN_ADDR" envDefault:":8501"`
	Debug           bool          `env:"DEBUG"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	Model     string `env:"DESCRIBER_MODEL" envDefault:"claude-3-haiku-20240307"`
	MaxTokens int64  `env:"DESCRIBER_MAX_TOKENS" envDefault:"600"`
	BaseURL   string `env:"ANTHROPIC_BASE_URL"`

	// SecretsFile is the managed secrets store consulted before the
	// environment when resolving the API key.
	SecretsFile string `env:"SECRETS_FILE" envDefault:".describer/secrets.yaml"`

	SessionSecret string        `env:"SESSION_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"12h"`
	SecureCookies bool          `env:"SECURE_COOKIES"`
	RedisAddr     string        `env:"REDIS_ADDR"` // empty keeps sessions in memory

	HeroImagePath string `env:"HERO_IMAGE_PATH"`
}

// Load reads .env (if present) and parses the environment into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("LISTEN_ADDR must not be empty")
	}
	if c.Model == "" {
		return fmt.Errorf("DESCRIBER_MODEL must not be empty")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("DESCRIBER_MAX_TOKENS must be positive, got %d", c.MaxTokens)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	return nil
}
