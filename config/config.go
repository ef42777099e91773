// Package config reads the service settings from the environment.
package config

import (
	"errors"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// ServiceName is the name the service registers under in Consul, and the
// name its discovery clients look up.
const ServiceName = "todosvc"

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	DatabaseURL      string   `env:"DATABASE_URL"`
	AuthSecret       string   `env:"BETTER_AUTH_SECRET" env-required:"true"`
	JWTAlgorithm     string   `env:"JWT_ALGORITHM" env-default:"HS256"`
	JWTExpireMinutes int      `env:"JWT_EXPIRE_MINUTES" env-default:"60"`
	CORSOrigins      []string `env:"CORS_ORIGINS" env-default:"http://localhost:3000" env-separator:","`
	Environment      string   `env:"ENVIRONMENT" env-default:"development"`
	HTTPAddr         string   `env:"HTTP_ADDR" env-default:":8000"`
	ConsulAddr       string   `env:"CONSUL_ADDR"`
	BcryptCost       int      `env:"BCRYPT_COST" env-default:"10"`
}

// Load reads Config from the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.AuthSecret == "" {
		return Config{}, errors.New("BETTER_AUTH_SECRET must not be empty")
	}
	return cfg, nil
}

func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.JWTExpireMinutes) * time.Minute
}

func (c Config) IsProduction() bool {
	return c.Environment == EnvProduction
}
