// Package config loads gateway configuration from a YAML file with
// environment variable overrides, so main stays lean.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the root configuration for the hub gateway.
type Config struct {
	Server      Server       `koanf:"server"`
	Hub         Hub          `koanf:"hub"`
	Gateway     Gateway      `koanf:"gateway"`
	Access      Access       `koanf:"access"`
	Models      []Model      `koanf:"models"`
	Deployments []Deployment `koanf:"deployments"`
	Tenants     []Tenant     `koanf:"tenants"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `koanf:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Hub identifies the hub that owns shared capacity. Subscription and
// resource group form the stable seed for tenant name allocation.
type Hub struct {
	Subscription  string `koanf:"subscription"`
	ResourceGroup string `koanf:"resource_group"`
	Environment   string `koanf:"environment"`
}

// Gateway holds hot-path policy defaults.
type Gateway struct {
	// Fixed-window quota applied per connection.
	RateLimitCalls  int           `koanf:"rate_limit_calls"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	// Injected when the caller omits the backend's versioning parameter.
	DefaultAPIVersion string `koanf:"default_api_version"`

	DispatchTimeout time.Duration `koanf:"dispatch_timeout"`
}

// Access configures the policy enforcer's ledger and backend token minting.
type Access struct {
	LedgerPath      string        `koanf:"ledger_path"` // sqlite file; empty means in-memory
	TokenSigningKey string        `koanf:"token_signing_key"`
	TokenTTL        time.Duration `koanf:"token_ttl"`
}

// Model declares a logical model served by the hub.
type Model struct {
	Name           string   `koanf:"name"`
	Format         string   `koanf:"format"`
	Version        string   `koanf:"version"`
	AllowedRegions []string `koanf:"allowed_regions"`
}

// Deployment declares a physical backend serving one logical model.
type Deployment struct {
	BackendID     string `koanf:"backend_id"`
	Model         string `koanf:"model"`
	Region        string `koanf:"region"`
	CapacityUnits int    `koanf:"capacity_units"`
	EndpointURL   string `koanf:"endpoint_url"`
}

// Tenant declares a spoke to onboard at startup.
type Tenant struct {
	DisplayName string   `koanf:"display_name"`
	Models      []string `koanf:"models"`
}

// Load reads configuration from the given YAML file (missing file is fine)
// and applies HUBGATE_-prefixed environment overrides on top.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	// Environment variables override file config, e.g.
	// HUBGATE_SERVER__ADDR=:9090 -> server.addr
	if err := k.Load(env.Provider("HUBGATE_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "HUBGATE_")), "__", ".")
	}), nil); err != nil {
		return nil, err
	}

	applyDefaults(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(k *koanf.Koanf) {
	defaults := map[string]any{
		"server.addr":                 ":8080",
		"server.shutdown_timeout":     "10s",
		"hub.environment":             "dev",
		"gateway.rate_limit_calls":    100,
		"gateway.rate_limit_window":   "60s",
		"gateway.default_api_version": "2024-10-21",
		"gateway.dispatch_timeout":    "30s",
		"access.token_ttl":            "15m",
	}
	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}
}
