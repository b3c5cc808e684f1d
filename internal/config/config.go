// Package config holds the harness configuration for a target AnyBank
// deployment. Precedence: defaults < YAML file < ANYBANK_E2E_* env.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config describes the deployment under test and run-level knobs.
type Config struct {
	KeycloakURL      string `yaml:"keycloak_url"`
	KeycloakRealm    string `yaml:"keycloak_realm"`
	KeycloakClientID string `yaml:"keycloak_client_id"`
	BackendURL       string `yaml:"backend_url"`
	FrontendURL      string `yaml:"frontend_url"`

	// Test user credentials (demo deployment defaults).
	Email    string `yaml:"email"`
	Password string `yaml:"password"`

	// Tenant identifiers used by the tenant-swap scenarios.
	ConsumerTenantID string `yaml:"consumer_tenant_id"`
	BusinessTenantID string `yaml:"business_tenant_id"`

	// HTTPTimeout bounds ordinary API calls; TokenTimeout bounds the
	// identity provider's token endpoint, which is slower under load.
	HTTPTimeout  time.Duration `yaml:"http_timeout"`
	TokenTimeout time.Duration `yaml:"token_timeout"`

	// BurstCount is the number of back-to-back authenticated GETs issued
	// by the request-loop regression check.
	BurstCount int `yaml:"burst_count"`

	Headless      bool   `yaml:"headless"`
	ScreenshotDir string `yaml:"screenshot_dir"`
	HistoryPath   string `yaml:"history_path"`
	LogLevel      string `yaml:"log_level"`
}

// Default returns the configuration matching the docker-compose demo stack.
func Default() Config {
	return Config{
		KeycloakURL:      "http://localhost:8080",
		KeycloakRealm:    "anybank",
		KeycloakClientID: "anybank-web",
		BackendURL:       "http://localhost:8000",
		FrontendURL:      "http://localhost:3000",
		Email:            "jdoe@example.com",
		Password:         "demo123",
		ConsumerTenantID: "tenant-001",
		BusinessTenantID: "tenant-003",
		HTTPTimeout:      5 * time.Second,
		TokenTimeout:     10 * time.Second,
		BurstCount:       25,
		Headless:         true,
		ScreenshotDir:    "/tmp/anybank-e2e",
		HistoryPath:      ".anybank-e2e/history.db",
		LogLevel:         "info",
	}
}

// Validate rejects configurations the runner cannot act on.
func (c *Config) Validate() error {
	for name, v := range map[string]string{
		"keycloak_url":       c.KeycloakURL,
		"keycloak_realm":     c.KeycloakRealm,
		"keycloak_client_id": c.KeycloakClientID,
		"backend_url":        c.BackendURL,
		"frontend_url":       c.FrontendURL,
		"email":              c.Email,
		"password":           c.Password,
	} {
		if v == "" {
			return fmt.Errorf("config: %s must not be empty", name)
		}
	}
	if c.HTTPTimeout <= 0 || c.TokenTimeout <= 0 {
		return fmt.Errorf("config: timeouts must be positive")
	}
	if c.BurstCount <= 0 {
		return fmt.Errorf("config: burst_count must be positive")
	}
	return nil
}

// RealmURL returns the realm root used for the IdP reachability probe.
func (c *Config) RealmURL() string {
	return fmt.Sprintf("%s/realms/%s", strings.TrimRight(c.KeycloakURL, "/"), c.KeycloakRealm)
}

// TokenURL returns the OpenID Connect token endpoint.
func (c *Config) TokenURL() string {
	return c.RealmURL() + "/protocol/openid-connect/token"
}

// DebugUIURL returns the debug control plane UI root.
func (c *Config) DebugUIURL() string {
	return strings.TrimRight(c.FrontendURL, "/") + "/debug"
}

// DebugAPIURL returns the nginx-proxied debug API root.
func (c *Config) DebugAPIURL() string {
	return c.DebugUIURL() + "/api"
}

// DebugSSEURL returns the nginx-proxied event stream endpoint.
func (c *Config) DebugSSEURL() string {
	return c.DebugUIURL() + "/events/stream"
}

// BackendSSEURL returns the event stream endpoint directly on the backend,
// bypassing the nginx proxy.
func (c *Config) BackendSSEURL() string {
	return strings.TrimRight(c.BackendURL, "/") + "/debug/events/stream"
}
