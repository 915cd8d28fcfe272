package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds settings read once at startup from app.env and the environment.
// Environment variables win over the file.
type Config struct {
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	ServerPort  string `mapstructure:"SERVER_PORT"`

	JWTSecret    string        `mapstructure:"JWT_SECRET"`
	TokenTTL     time.Duration `mapstructure:"TOKEN_TTL"`
	ClientOrigin string        `mapstructure:"CLIENT_ORIGIN"`

	LogLevel string `mapstructure:"LOG_LEVEL"`

	// StrictRequestTransitions turns on source-status checks for request actions.
	StrictRequestTransitions bool `mapstructure:"STRICT_REQUEST_TRANSITIONS"`

	// Route status notifications. Both emails must be set for mail to go out.
	AWSRegion       string `mapstructure:"AWS_REGION"`
	NotifyFromEmail string `mapstructure:"NOTIFY_FROM_EMAIL"`
	DispatcherEmail string `mapstructure:"DISPATCHER_EMAIL"`
}

var defaults = map[string]interface{}{
	"DATABASE_URL":               "",
	"SERVER_PORT":                "8080",
	"JWT_SECRET":                 "",
	"TOKEN_TTL":                  "24h",
	"CLIENT_ORIGIN":              "http://localhost:5173",
	"LOG_LEVEL":                  "info",
	"STRICT_REQUEST_TRANSITIONS": false,
	"AWS_REGION":                 "us-east-1",
	"NOTIFY_FROM_EMAIL":          "",
	"DISPATCHER_EMAIL":           "",
}

// LoadConfig reads app.env from path if present, then overlays environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AutomaticEnv()

	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config.LoadConfig: read app.env: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config.LoadConfig: decode: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("config.LoadConfig: DATABASE_URL is not set")
	}
	return cfg, nil
}

// NotificationsEnabled reports whether route status emails should be sent.
func (c *Config) NotificationsEnabled() bool {
	return c.NotifyFromEmail != "" && c.DispatcherEmail != ""
}
