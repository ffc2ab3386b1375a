package cli

import (
	"github.com/caarlos0/env/v11"
)

// Config holds CLI configuration. Flags override the RPS_* environment.
type Config struct {
	ServerURL string `env:"SERVER" envDefault:"http://localhost:8080"`
	Output    string `env:"OUTPUT" envDefault:"text"`
	Secret    string `env:"SECRET"`
}

// DefaultConfig reads the environment. A malformed environment is not
// fatal here; the defaults stand and flags can still set everything.
func DefaultConfig() *Config {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "RPS_"}); err != nil {
		return &Config{ServerURL: "http://localhost:8080", Output: "text"}
	}
	return cfg
}
