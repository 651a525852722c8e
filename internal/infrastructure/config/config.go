package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	JWT   JWTConfig
	Mongo MongoConfig
}

// JWTConfig holds token signing settings. Secret has no default: issuing
// unsigned tokens is never acceptable, so startup fails without it.
type JWTConfig struct {
	Secret   string   `env:"JWT_SECRET"`
	Issuer   string   `env:"JWT_ISSUER,   default=identity-api"`
	Audience []string `env:"JWT_AUDIENCE, default=identity-clients"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=identity_api"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
