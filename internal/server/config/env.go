package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces the environment variables, e.g. HERDSYNC_HTTP_ADDR.
const EnvPrefix = "herdsync"

// parseEnv overlays cfg with HERDSYNC_* variables. A .env file in the
// working directory is loaded first when present; variables already set in
// the environment take precedence over it. Unset variables keep the current
// value. Malformed values panic.
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		panic(err)
	}
}
