package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

const (
	RevocationNone   = "none"
	RevocationMemory = "memory"
	RevocationRedis  = "redis"

	minSessionSecretLen = 32
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort      string `env:"HTTP_PORT" envDefault:"8080"`
	AppEnv        string `env:"APP_ENV" envDefault:"development"`
	DatabaseURL   string `env:"DATABASE_URL,required,notEmpty"`
	JWTSecret     string `env:"JWT_SECRET,required,notEmpty"`
	SessionSecret string `env:"SESSION_SECRET,required,notEmpty"`
	// AuthCookieSecure queda en false para paridad con desarrollo local; en produccion debe ser true.
	AuthCookieSecure   bool          `env:"AUTH_COOKIE_SECURE" envDefault:"false"`
	RedisAddr          string        `env:"REDIS_ADDR"`
	RedisPassword      string        `env:"REDIS_PASSWORD"`
	RedisDB            int           `env:"REDIS_DB" envDefault:"0"`
	TokenRevocation    string        `env:"TOKEN_REVOCATION" envDefault:"none"`
	LoginMaxAttempts   int           `env:"LOGIN_MAX_ATTEMPTS" envDefault:"10"`
	LoginAttemptWindow time.Duration `env:"LOGIN_ATTEMPT_WINDOW" envDefault:"15m"`
	MetricsEnabled     bool          `env:"METRICS_ENABLED" envDefault:"true"`
	MigrateOnStart     bool          `env:"MIGRATE_ON_START" envDefault:"false"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate revisa combinaciones que env no puede expresar con tags.
func (c *Config) Validate() error {
	if len(c.SessionSecret) < minSessionSecretLen {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters", minSessionSecretLen)
	}
	c.TokenRevocation = strings.ToLower(strings.TrimSpace(c.TokenRevocation))
	switch c.TokenRevocation {
	case "", RevocationNone:
		c.TokenRevocation = RevocationNone
	case RevocationMemory:
	case RevocationRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("TOKEN_REVOCATION=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unknown TOKEN_REVOCATION %q", c.TokenRevocation)
	}
	return nil
}

// IsProduction indica si el proceso corre con APP_ENV=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}
