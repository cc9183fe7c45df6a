package config

import "time"

type Config struct {
	SecretKey string        `env:"AUTH_SECRET_KEY" envDefault:"allset-dev-secret"`
	TokenTTL  time.Duration `env:"AUTH_TOKEN_TTL" envDefault:"24h"`
}
