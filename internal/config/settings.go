package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every settings variable.
const EnvPrefix = "ESPCFG_"

// Settings are the runtime knobs read from the environment. Command line
// flags override them.
type Settings struct {
	Host     string        `env:"HOST"`
	Username string        `env:"USERNAME" envDefault:"admin"`
	Password string        `env:"PASSWORD"`
	LogLevel string        `env:"LOG_LEVEL"`
	Settle   time.Duration `env:"SETTLE" envDefault:"2s"` // how long scripted commands wait for device replies
}

// LoadSettings reads ESPCFG_* variables from the process environment.
func LoadSettings() (*Settings, error) {
	return loadSettings(nil)
}

// loadSettings reads from environ, or the process environment when nil.
func loadSettings(environ map[string]string) (*Settings, error) {
	var s Settings
	opts := env.Options{Prefix: EnvPrefix, Environment: environ}
	if err := env.ParseWithOptions(&s, opts); err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	if s.Settle <= 0 {
		return nil, fmt.Errorf("%sSETTLE must be positive, got %s", EnvPrefix, s.Settle)
	}
	return &s, nil
}
