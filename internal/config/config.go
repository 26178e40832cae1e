// Package config loads huntbook settings from an optional YAML file
// with environment overrides. The client secret is deliberately not a
// file field: it comes from the environment only, is read once at
// startup, and must never be logged or serialized.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Auth mode names accepted in configuration.
const (
	AuthDeviceCode   = "device-code"
	AuthClientSecret = "client-secret"
	AuthCertificate  = "certificate"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "huntbook.yaml"

// Config holds backend connection and output settings.
type Config struct {
	APIURL   string `yaml:"api_url"`
	AuthURL  string `yaml:"auth_url"`
	TenantID string `yaml:"tenant_id"`
	ClientID string `yaml:"client_id"`
	AuthMode string `yaml:"auth_mode"` // device-code, client-secret or certificate

	CertificatePath string `yaml:"certificate_path"`

	CatalogDir string `yaml:"catalog_dir"`
	ReportDir  string `yaml:"report_dir"`
	DBPath     string `yaml:"db_path"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// ClientSecret is env-only (HUNTBOOK_CLIENT_SECRET); never persisted.
	ClientSecret string `yaml:"-"`
}

// Load reads the config file at path and applies environment
// overrides. An empty path falls back to DefaultPath; a missing file is
// not an error (defaults plus environment apply), a malformed one is.
func Load(path string) (*Config, error) {
	cfg := &Config{
		AuthMode:   AuthDeviceCode,
		CatalogDir: ".",
		ReportDir:  "Reports",
		DBPath:     ".huntbook/history.db",
		LogLevel:   "info",
		LogFormat:  "text",
	}

	explicit := path != ""
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// No config file: defaults plus environment.
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setFromEnv(&c.APIURL, "HUNTBOOK_API_URL")
	setFromEnv(&c.AuthURL, "HUNTBOOK_AUTH_URL")
	setFromEnv(&c.TenantID, "HUNTBOOK_TENANT_ID")
	setFromEnv(&c.ClientID, "HUNTBOOK_CLIENT_ID")
	setFromEnv(&c.AuthMode, "HUNTBOOK_AUTH_MODE")
	setFromEnv(&c.ClientSecret, "HUNTBOOK_CLIENT_SECRET")
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
