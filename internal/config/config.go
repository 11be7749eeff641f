// Package config loads runtime settings for the rowsync server and CLI
// from a .env file and environment variables.
package config

import (
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/rowsync/rowsync/internal/model"
)

type Config struct {
	App  AppConfig
	Sync SyncConfig
	CORS CORSConfig
}

type AppConfig struct {
	Name  string
	Env   string
	Port  string
	Debug bool
}

// SyncConfig tunes the propagation engine.
type SyncConfig struct {
	TaxMode  model.TaxMode
	MaxDepth int
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Load reads .env if present, falls back to environment variables, and
// applies defaults for everything unset.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		slog.Debug(".env not found, using environment variables", "err", err)
	}

	viper.SetDefault("APP_NAME", "rowsync")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_DEBUG", false)
	viper.SetDefault("SYNC_TAX_MODE", string(model.TaxPercentage))
	viper.SetDefault("SYNC_MAX_DEPTH", 16)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"})
	viper.SetDefault("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept"})

	taxMode, ok := model.ParseTaxMode(viper.GetString("SYNC_TAX_MODE"))
	if !ok {
		return nil, fmt.Errorf("SYNC_TAX_MODE: unknown mode %q", viper.GetString("SYNC_TAX_MODE"))
	}
	maxDepth := viper.GetInt("SYNC_MAX_DEPTH")
	if maxDepth < 1 {
		return nil, fmt.Errorf("SYNC_MAX_DEPTH must be at least 1, got %d", maxDepth)
	}

	return &Config{
		App: AppConfig{
			Name:  viper.GetString("APP_NAME"),
			Env:   viper.GetString("APP_ENV"),
			Port:  viper.GetString("APP_PORT"),
			Debug: viper.GetBool("APP_DEBUG"),
		},
		Sync: SyncConfig{
			TaxMode:  taxMode,
			MaxDepth: maxDepth,
		},
		CORS: CORSConfig{
			AllowedOrigins: viper.GetStringSlice("CORS_ALLOWED_ORIGINS"),
			AllowedMethods: viper.GetStringSlice("CORS_ALLOWED_METHODS"),
			AllowedHeaders: viper.GetStringSlice("CORS_ALLOWED_HEADERS"),
		},
	}, nil
}

// Addr is the listen address derived from the configured port.
func (c *AppConfig) Addr() string {
	return ":" + c.Port
}
