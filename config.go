package spiderweb

import (
	"errors"
	"fmt"

	"github.com/joeshaw/envdecode"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the settings of a service.  Defaults can be loaded via envdecode.
type Config struct {
	// MaxMemory bounds the in-memory part of multipart bodies. ENV: SPIDERWEB_MAX_MEMORY
	MaxMemory int64 `env:"SPIDERWEB_MAX_MEMORY,default=33554432" validate:"gt=0"`
	// LogLevel for loggers built by NewLogger. ENV: SPIDERWEB_LOG_LEVEL
	LogLevel string `env:"SPIDERWEB_LOG_LEVEL,default=info" validate:"oneof=debug info warn error"`
	// Development selects zap's development encoder. ENV: SPIDERWEB_DEVELOPMENT
	Development bool `env:"SPIDERWEB_DEVELOPMENT,default=false"`
}

// DefaultConfig returns the settings used when the environment sets none.
func DefaultConfig() Config {
	return Config{
		MaxMemory: DefaultMaxMemory,
		LogLevel:  "info",
	}
}

// ConfigFromEnv decodes a Config from the environment and validates it.
// A variable that is set but does not parse is an error.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := envdecode.StrictDecode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the config's validate tags.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", validationError(err))
	}
	return nil
}

// NewLogger builds the zap logger described by the config.
func (c Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
