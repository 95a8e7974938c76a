package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix           = "STAGEMATCH"
	defaultHTTPAddress  = "0.0.0.0:8080"
	defaultDatabasePath = "stagematch.db"
	defaultLogLevel     = "info"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress    string
	DatabasePath   string
	LogLevel       string
	AuthJWKSURL    string
	AuthAudience   string
	AuthIssuer     string
	StorageBucket  string
	StorageAPIHost string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("storage.api_host", "https://storage.googleapis.com")
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:    configViper.GetString("http.address"),
		DatabasePath:   configViper.GetString("database.path"),
		LogLevel:       configViper.GetString("log.level"),
		AuthJWKSURL:    configViper.GetString("auth.jwks_url"),
		AuthAudience:   configViper.GetString("auth.audience"),
		AuthIssuer:     configViper.GetString("auth.issuer"),
		StorageBucket:  configViper.GetString("storage.bucket"),
		StorageAPIHost: configViper.GetString("storage.api_host"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.AuthJWKSURL) == "" {
		return fmt.Errorf("auth.jwks_url is required")
	}
	if strings.TrimSpace(c.AuthAudience) == "" {
		return fmt.Errorf("auth.audience is required")
	}
	if strings.TrimSpace(c.AuthIssuer) == "" {
		return fmt.Errorf("auth.issuer is required")
	}
	if strings.TrimSpace(c.StorageBucket) == "" {
		return fmt.Errorf("storage.bucket is required")
	}
	return nil
}
