// Package config loads CLI and server settings from flags, the environment
// (REDIRECTLY_ prefix), an optional .env file and an optional redirectly.yaml.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/binSaed/flutter-redirectly/internal/client"
)

// Flag names bound onto configuration keys when present on the flag set.
var flagKeys = map[string]string{
	"api-key":   "api_key",
	"base-url":  "base_url",
	"debug":     "debug",
	"log-level": "log.level",
}

type Config struct {
	APIKey  string
	BaseURL string
	Debug   bool
	// Domain is the production link domain shared by the classifier, the
	// bridge and the dev server.
	Domain string
	Log     struct {
		Level  string
		Pretty bool
	}
	Bridge struct {
		Addr        string
		Concurrency int
	}
	DevServer struct {
		Addr        string
		Concurrency int
	}
	DB struct {
		Driver string
		DSN    string
	}
	OTel struct {
		Endpoint    string
		ServiceName string
	}
}

// Load reads configuration. Flags that were set win over the environment,
// which wins over redirectly.yaml and the defaults. flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load(".env") // optional; never overrides the real environment

	v := viper.New()
	v.SetEnvPrefix("REDIRECTLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigName("redirectly")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read redirectly.yaml: %w", err)
		}
	}

	v.SetDefault("domain", "redirectly.app")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
	v.SetDefault("bridge.addr", ":8787")
	v.SetDefault("bridge.concurrency", 8)
	v.SetDefault("devserver.addr", ":3000")
	v.SetDefault("devserver.concurrency", 64)
	v.SetDefault("db.driver", "sqlite3")
	v.SetDefault("db.dsn", "file:redirectly-dev.db")
	v.SetDefault("otel.service_name", "redirectly")

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag --%s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{}
	cfg.APIKey = v.GetString("api_key")
	cfg.BaseURL = v.GetString("base_url")
	cfg.Debug = v.GetBool("debug")
	cfg.Domain = strings.ToLower(strings.TrimSpace(v.GetString("domain")))
	cfg.Log.Level = v.GetString("log.level")
	cfg.Log.Pretty = v.GetBool("log.pretty")
	cfg.Bridge.Addr = v.GetString("bridge.addr")
	cfg.Bridge.Concurrency = v.GetInt("bridge.concurrency")
	cfg.DevServer.Addr = v.GetString("devserver.addr")
	cfg.DevServer.Concurrency = v.GetInt("devserver.concurrency")
	cfg.DB.Driver = v.GetString("db.driver")
	cfg.DB.DSN = v.GetString("db.dsn")
	cfg.OTel.Endpoint = v.GetString("otel.endpoint")
	cfg.OTel.ServiceName = v.GetString("otel.service_name")

	if cfg.Debug {
		cfg.Log.Level = "debug"
	}

	switch cfg.DB.Driver {
	case "sqlite3", "mysql", "postgres":
	default:
		return nil, fmt.Errorf("REDIRECTLY_DB_DRIVER must be sqlite3, mysql, or postgres, got %q", cfg.DB.Driver)
	}
	if cfg.Domain == "" {
		return nil, fmt.Errorf("REDIRECTLY_DOMAIN must not be empty")
	}
	if cfg.Bridge.Concurrency < 1 {
		return nil, fmt.Errorf("REDIRECTLY_BRIDGE_CONCURRENCY must be at least 1")
	}
	return cfg, nil
}

// ClientConfig returns the API client session settings.
func (c *Config) ClientConfig() client.Config {
	return client.Config{APIKey: c.APIKey, BaseURL: c.BaseURL, DebugLogging: c.Debug}
}

// RequireClient reports which client settings are missing.
func (c *Config) RequireClient() error {
	if c.APIKey == "" {
		return fmt.Errorf("REDIRECTLY_API_KEY (or --api-key) is required")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("REDIRECTLY_BASE_URL (or --base-url) is required")
	}
	return nil
}
