package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for all environment overrides.
const EnvPrefix = "ANYBANK_E2E_"

// Load builds a Config from defaults, an optional YAML file, and the
// environment. A missing file at the default path is not an error; an
// explicitly passed path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault is Load with the conventional file path, tolerating absence.
func LoadDefault() (*Config, error) {
	const conventional = "anybank-e2e.yaml"
	if _, err := os.Stat(conventional); err == nil {
		return Load(conventional)
	}
	return Load("")
}

func (c *Config) applyEnv() {
	envStr(&c.KeycloakURL, "KEYCLOAK_URL")
	envStr(&c.KeycloakRealm, "KEYCLOAK_REALM")
	envStr(&c.KeycloakClientID, "KEYCLOAK_CLIENT_ID")
	envStr(&c.BackendURL, "BACKEND_URL")
	envStr(&c.FrontendURL, "FRONTEND_URL")
	envStr(&c.Email, "EMAIL")
	envStr(&c.Password, "PASSWORD")
	envStr(&c.ConsumerTenantID, "CONSUMER_TENANT_ID")
	envStr(&c.BusinessTenantID, "BUSINESS_TENANT_ID")
	envStr(&c.ScreenshotDir, "SCREENSHOT_DIR")
	envStr(&c.HistoryPath, "HISTORY_PATH")
	envStr(&c.LogLevel, "LOG_LEVEL")
	envDuration(&c.HTTPTimeout, "HTTP_TIMEOUT")
	envDuration(&c.TokenTimeout, "TOKEN_TIMEOUT")
	envInt(&c.BurstCount, "BURST_COUNT")
	envBool(&c.Headless, "HEADLESS")
}

func envStr(dst *string, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(dst *bool, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func envDuration(dst *time.Duration, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*dst = d
		}
	}
}
