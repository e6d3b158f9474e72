package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Addr() != ":8080" {
		t.Errorf("unexpected addr %s", cfg.Addr())
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Env != "local" || cfg.IsProduction() {
		t.Errorf("expected local env, got %s", cfg.Env)
	}
	if cfg.Session.CookieName != defaultSessionCookie {
		t.Errorf("unexpected cookie name %s", cfg.Session.CookieName)
	}
	if cfg.Locale.Default != "es" || len(cfg.Locale.Supported) != 2 {
		t.Errorf("unexpected locale config %+v", cfg.Locale)
	}
	if cfg.Catalog.Currency != "COP" {
		t.Errorf("unexpected currency %s", cfg.Catalog.Currency)
	}
	if cfg.Cart.IdleTTL != 24*time.Hour || cfg.Cart.KeyPrefix != defaultCartKeyPrefix {
		t.Errorf("unexpected cart config %+v", cfg.Cart)
	}
	if cfg.Menu.APIURL != "" || cfg.Contact.Endpoint != "" {
		t.Errorf("expected upstreams to be unset by default")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("unexpected log level %s", cfg.LogLevel)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	env := map[string]string{
		"STOREFRONT_PORT":                   "9090",
		"STOREFRONT_ENV":                    "Production",
		"STOREFRONT_SESSION_HASH_KEY":       "hash-key",
		"STOREFRONT_SESSION_BLOCK_KEY":      "0123456789abcdef",
		"STOREFRONT_LOCALE_DEFAULT":         "EN",
		"STOREFRONT_LOCALE_SUPPORTED":       "en, es ,",
		"STOREFRONT_CURRENCY":               "usd",
		"STOREFRONT_MENU_API_URL":           "https://api.example.com/",
		"STOREFRONT_CONTACT_PUBSUB_PROJECT": "bright",
		"STOREFRONT_CONTACT_PUBSUB_TOPIC":   "contact",
		"STOREFRONT_CART_IDLE_TTL":          "2h",
		"STOREFRONT_CART_REDIS_URL":         "redis://localhost:6379/0",
		"STOREFRONT_DEV":                    "yes",
		"STOREFRONT_SERVER_READ_TIMEOUT":    "not-a-duration",
	}
	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port override, got %s", cfg.Server.Port)
	}
	if !cfg.IsProduction() || !cfg.Session.Secure {
		t.Errorf("expected production hardening, got env=%s secure=%v", cfg.Env, cfg.Session.Secure)
	}
	if cfg.Locale.Default != "en" || len(cfg.Locale.Supported) != 2 || cfg.Locale.Supported[1] != "es" {
		t.Errorf("unexpected locale config %+v", cfg.Locale)
	}
	if cfg.Catalog.Currency != "USD" {
		t.Errorf("expected upper-cased currency, got %s", cfg.Catalog.Currency)
	}
	if cfg.Cart.IdleTTL != 2*time.Hour {
		t.Errorf("unexpected cart ttl %s", cfg.Cart.IdleTTL)
	}
	if !cfg.DevMode {
		t.Errorf("expected dev mode")
	}
	if cfg.Server.ReadTimeout != defaultReadTimeout {
		t.Errorf("invalid duration should fall back to default, got %s", cfg.Server.ReadTimeout)
	}
}

func TestLoadHonoursPlatformPort(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(map[string]string{"PORT": "7070"}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("expected platform port, got %s", cfg.Server.Port)
	}
}

func TestLoadDotEnvFallback(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	content := "STOREFRONT_PORT=6060\nSTOREFRONT_LOG_LEVEL=DEBUG\n"
	if err := os.WriteFile(envPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(context.Background(),
		WithEnvFile(envPath),
		WithEnvMap(map[string]string{"STOREFRONT_PORT": "5050"}),
		WithoutSystemEnv(),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "5050" {
		t.Errorf("explicit map should win over .env, got %s", cfg.Server.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level from .env, got %s", cfg.LogLevel)
	}
}

func TestLoadMissingEnvFileIsIgnored(t *testing.T) {
	_, err := Load(context.Background(), WithEnvFile(filepath.Join(t.TempDir(), "missing.env")), WithoutSystemEnv())
	if err != nil {
		t.Fatalf("expected missing .env to be ignored, got %v", err)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	env := map[string]string{
		"STOREFRONT_PORT":                 "99999",
		"STOREFRONT_ENV":                  "prod",
		"STOREFRONT_LOCALE_DEFAULT":       "fr",
		"STOREFRONT_CONTACT_PUBSUB_TOPIC": "contact",
		"STOREFRONT_SESSION_BLOCK_KEY":    "short",
	}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatalf("expected validation error")
	}
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	want := map[string]bool{
		"Server.Port":           true,
		"Locale.Default":        true,
		"Contact.PubSubProject": true,
		"Session.HashKey":       true,
		"Session.BlockKey":      true,
	}
	fields := vErr.Fields()
	if len(fields) != len(want) {
		t.Fatalf("unexpected fields %v", fields)
	}
	for _, f := range fields {
		if !want[f] {
			t.Errorf("unexpected field %s", f)
		}
	}
}
