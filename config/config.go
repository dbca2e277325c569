// Package config loads lpcore's ambient configuration: the credentials
// file, driver pool defaults, and the sync remote client's base URL and
// retry policy. Values come from defaults, an optional config file, and
// LPCORE_-prefixed environment variables, in that precedence order,
// following xataio-pgroll's viper wiring.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// PoolConfig mirrors driver.PoolConfig's fields so callers can build one
// without importing driver directly from config.
type PoolConfig struct {
	Max            int
	ConnectTimeout time.Duration
	IdleTimeout    time.Duration
}

// RemoteConfig mirrors sync.RemoteConfig's non-HTTPClient fields.
type RemoteConfig struct {
	BaseURL   string
	ProjectID string
	Retries   int
	CacheTTL  time.Duration
}

// Config is lpcore's resolved ambient configuration.
type Config struct {
	CredentialsPath string
	Pool            PoolConfig
	Remote          RemoteConfig
}

// Load builds a Config from defaults, an optional file at configFile
// (if non-empty), and LPCORE_-prefixed environment variables. Environment
// variables take precedence over the file, which takes precedence over
// defaults.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LPCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("credentials_path", DefaultCredentialsPath)
	v.SetDefault("pool.max", 10)
	v.SetDefault("pool.connect_timeout", 5*time.Second)
	v.SetDefault("pool.idle_timeout", 5*time.Minute)
	v.SetDefault("remote.base_url", "")
	v.SetDefault("remote.project_id", "")
	v.SetDefault("remote.retries", 3)
	v.SetDefault("remote.cache_ttl", 30*time.Second)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %q: %w", configFile, err)
		}
	}

	return &Config{
		CredentialsPath: v.GetString("credentials_path"),
		Pool: PoolConfig{
			Max:            v.GetInt("pool.max"),
			ConnectTimeout: v.GetDuration("pool.connect_timeout"),
			IdleTimeout:    v.GetDuration("pool.idle_timeout"),
		},
		Remote: RemoteConfig{
			BaseURL:   v.GetString("remote.base_url"),
			ProjectID: v.GetString("remote.project_id"),
			Retries:   v.GetInt("remote.retries"),
			CacheTTL:  v.GetDuration("remote.cache_ttl"),
		},
	}, nil
}
