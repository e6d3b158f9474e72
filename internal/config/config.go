package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	envPrefix              = "STOREFRONT_"
	defaultEnvFile         = ".env"
	defaultPort            = "8080"
	defaultReadTimeout     = 15 * time.Second
	defaultReadHeader      = 10 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultRequestTimeout  = 30 * time.Second
	defaultEnvironment     = "local"
	defaultSessionCookie   = "BRIGHT_SESSION"
	defaultLocale          = "es"
	defaultCurrency        = "COP"
	defaultCartIdleTTL     = 24 * time.Hour
	defaultCartKeyPrefix   = "storefront:cart:"
	defaultLogLevel        = "info"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server    ServerConfig
	Env       string
	DevMode   bool
	LogLevel  string
	Templates string
	Session   SessionConfig
	Locale    LocaleConfig
	Catalog   CatalogConfig
	Content   ContentConfig
	Menu      MenuConfig
	Contact   ContactConfig
	Cart      CartConfig
	Analytics AnalyticsConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	RequestTimeout    time.Duration
}

// SessionConfig controls the signed session cookie.
type SessionConfig struct {
	CookieName string
	HashKey    string
	BlockKey   string
	Secure     bool
}

// LocaleConfig lists the languages the storefront serves.
type LocaleConfig struct {
	Default   string
	Supported []string
}

// CatalogConfig points at an optional catalog file overriding the embedded one.
type CatalogConfig struct {
	File     string
	Currency string
}

// ContentConfig points at an optional markdown directory overriding the embedded pages.
type ContentConfig struct {
	Dir string
}

// MenuConfig configures the header menu source.
type MenuConfig struct {
	APIURL string
	File   string
}

// ContactConfig configures where contact submissions go.
type ContactConfig struct {
	Endpoint      string
	PubSubProject string
	PubSubTopic   string
}

// CartConfig configures cart session lifetime and optional Redis persistence.
type CartConfig struct {
	RedisURL  string
	IdleTTL   time.Duration
	KeyPrefix string
}

// AnalyticsConfig holds client instrumentation identifiers surfaced to templates.
type AnalyticsConfig struct {
	GA4MeasurementID string
	GTMContainerID   string
	Debug            bool
}

// IsProduction reports whether the storefront runs with production hardening.
func (c Config) IsProduction() bool {
	return c.Env == "prod" || c.Env == "production"
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Server.Port
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides. An empty path disables it.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles configuration from defaults, the .env file, the process
// environment and an explicit map, later sources winning.
func Load(_ context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		key = envPrefix + key
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if value, ok := dotEnvValues[key]; ok {
			return value, true
		}
		return "", false
	}

	env := strings.ToLower(stringWithDefault(lookup, "ENV", defaultEnvironment))
	cfg := Config{
		Server: ServerConfig{
			Port:              stringWithDefault(lookup, "PORT", portFromPlatform(options)),
			ReadTimeout:       durationWithDefault(lookup, "SERVER_READ_TIMEOUT", defaultReadTimeout),
			ReadHeaderTimeout: durationWithDefault(lookup, "SERVER_READ_HEADER_TIMEOUT", defaultReadHeader),
			WriteTimeout:      durationWithDefault(lookup, "SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:       durationWithDefault(lookup, "SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			ShutdownTimeout:   durationWithDefault(lookup, "SERVER_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
			RequestTimeout:    durationWithDefault(lookup, "SERVER_REQUEST_TIMEOUT", defaultRequestTimeout),
		},
		Env:       env,
		DevMode:   boolWithDefault(lookup, "DEV", false),
		LogLevel:  strings.ToLower(stringWithDefault(lookup, "LOG_LEVEL", defaultLogLevel)),
		Templates: stringWithDefault(lookup, "TEMPLATES_DIR", ""),
		Session: SessionConfig{
			CookieName: stringWithDefault(lookup, "SESSION_COOKIE", defaultSessionCookie),
			HashKey:    stringWithDefault(lookup, "SESSION_HASH_KEY", ""),
			BlockKey:   stringWithDefault(lookup, "SESSION_BLOCK_KEY", ""),
			Secure:     boolWithDefault(lookup, "SESSION_SECURE", env == "prod" || env == "production"),
		},
		Locale: LocaleConfig{
			Default:   strings.ToLower(stringWithDefault(lookup, "LOCALE_DEFAULT", defaultLocale)),
			Supported: csvWithDefault(lookup, "LOCALE_SUPPORTED"),
		},
		Catalog: CatalogConfig{
			File:     stringWithDefault(lookup, "CATALOG_FILE", ""),
			Currency: strings.ToUpper(stringWithDefault(lookup, "CURRENCY", defaultCurrency)),
		},
		Content: ContentConfig{
			Dir: stringWithDefault(lookup, "CONTENT_DIR", ""),
		},
		Menu: MenuConfig{
			APIURL: stringWithDefault(lookup, "MENU_API_URL", ""),
			File:   stringWithDefault(lookup, "MENU_FILE", ""),
		},
		Contact: ContactConfig{
			Endpoint:      stringWithDefault(lookup, "CONTACT_ENDPOINT", ""),
			PubSubProject: stringWithDefault(lookup, "CONTACT_PUBSUB_PROJECT", ""),
			PubSubTopic:   stringWithDefault(lookup, "CONTACT_PUBSUB_TOPIC", ""),
		},
		Cart: CartConfig{
			RedisURL:  stringWithDefault(lookup, "CART_REDIS_URL", ""),
			IdleTTL:   durationWithDefault(lookup, "CART_IDLE_TTL", defaultCartIdleTTL),
			KeyPrefix: stringWithDefault(lookup, "CART_KEY_PREFIX", defaultCartKeyPrefix),
		},
		Analytics: AnalyticsConfig{
			GA4MeasurementID: stringWithDefault(lookup, "GA_MEASUREMENT_ID", ""),
			GTMContainerID:   stringWithDefault(lookup, "GTM_CONTAINER_ID", ""),
			Debug:            boolWithDefault(lookup, "ANALYTICS_DEBUG", false),
		},
	}

	if len(cfg.Locale.Supported) == 0 {
		cfg.Locale.Supported = []string{"es", "en"}
	}
	for i, l := range cfg.Locale.Supported {
		cfg.Locale.Supported[i] = strings.ToLower(l)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// portFromPlatform honours the PORT variable injected by container platforms.
func portFromPlatform(options loaderOptions) string {
	if options.envMap != nil {
		if v := strings.TrimSpace(options.envMap["PORT"]); v != "" {
			return v
		}
	}
	if options.useSystemEnv {
		if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
			return v
		}
	}
	return defaultPort
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	} else if n, err := strconv.Atoi(cfg.Server.Port); err != nil || n <= 0 || n > 65535 {
		missing = append(missing, "Server.Port")
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		missing = append(missing, "Server.ShutdownTimeout")
	}
	if !contains(cfg.Locale.Supported, cfg.Locale.Default) {
		missing = append(missing, "Locale.Default")
	}
	if cfg.Cart.IdleTTL <= 0 {
		missing = append(missing, "Cart.IdleTTL")
	}
	if cfg.Contact.PubSubTopic != "" && cfg.Contact.PubSubProject == "" {
		missing = append(missing, "Contact.PubSubProject")
	}
	if cfg.IsProduction() && cfg.Session.HashKey == "" {
		missing = append(missing, "Session.HashKey")
	}
	if n := len(cfg.Session.BlockKey); n != 0 && n != 16 && n != 24 && n != 32 {
		missing = append(missing, "Session.BlockKey")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	values, err := godotenv.Read(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string) []string {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
