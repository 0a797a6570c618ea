package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultBaseURL is the production API host used when nothing else is
// configured.
const DefaultBaseURL = "https://api.joltcab.com/api"

// realtimePath is appended to the API origin when no explicit WebSocket
// URL is configured.
const realtimePath = "/api/realtime"

// Storage backends for the session token.
const (
	BackendKeyring = "keyring"
	BackendSQLite  = "sqlite"
	BackendMemory  = "memory"
)

// APIConfig holds settings for the HTTP request executor.
type APIConfig struct {
	// BaseURL is prepended to every request path.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec bounds a single HTTP round trip.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`

	// RateLimitRPS enables a client-side limiter when positive.
	RateLimitRPS float64 `mapstructure:"rate_limit_rps" yaml:"rate_limit_rps"`

	// RateBurst is the limiter burst size.
	RateBurst int `mapstructure:"rate_burst" yaml:"rate_burst"`
}

// RealtimeConfig holds settings for the WebSocket connection manager.
type RealtimeConfig struct {
	// URL overrides the derived WebSocket endpoint.
	URL string `mapstructure:"url" yaml:"url"`

	// Disabled keeps the realtime manager idle.
	Disabled bool `mapstructure:"disabled" yaml:"disabled"`

	// MaxReconnectAttempts is the backoff ceiling.
	MaxReconnectAttempts int `mapstructure:"max_reconnect_attempts" yaml:"max_reconnect_attempts"`

	// PollIntervalSec is used by the REST fallback poller.
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`

	// DesktopNotifications mirrors incoming notifications to the desktop
	// through the terminal.
	DesktopNotifications bool `mapstructure:"desktop_notifications" yaml:"desktop_notifications"`

	// LocalHost is resolved at load time; true when the API host is a
	// local development host.
	LocalHost bool `mapstructure:"-" yaml:"-"`
}

// AuthConfig holds OAuth redirect settings.
type AuthConfig struct {
	RedirectURI string `mapstructure:"redirect_uri" yaml:"redirect_uri"`
	DefaultRole string `mapstructure:"default_role" yaml:"default_role"`
}

// StorageConfig selects the durable token backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

// Config is the top-level application configuration. It is resolved once
// by Load and passed down by value.
type Config struct {
	API      APIConfig      `mapstructure:"api" yaml:"api"`
	Realtime RealtimeConfig `mapstructure:"realtime" yaml:"realtime"`
	Auth     AuthConfig     `mapstructure:"auth" yaml:"auth"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

// Dir returns the configuration directory, ~/.config/joltcab.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "joltcab")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/joltcab/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns a configuration with every default applied.
func Default() Config {
	cfg := Config{
		API: APIConfig{
			BaseURL:    DefaultBaseURL,
			TimeoutSec: 30,
			RateBurst:  1,
		},
		Realtime: RealtimeConfig{
			MaxReconnectAttempts: 5,
			PollIntervalSec:      30,
		},
		Auth: AuthConfig{
			RedirectURI: "http://localhost:8765/auth/callback",
			DefaultRole: "passenger",
		},
		Storage: StorageConfig{
			Backend: BackendKeyring,
			Path:    filepath.Join(Dir(), "joltcab.db"),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
	cfg.resolve()
	return cfg
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout_sec", d.API.TimeoutSec)
	v.SetDefault("api.rate_limit_rps", d.API.RateLimitRPS)
	v.SetDefault("api.rate_burst", d.API.RateBurst)
	v.SetDefault("realtime.url", "")
	v.SetDefault("realtime.disabled", false)
	v.SetDefault("realtime.max_reconnect_attempts", d.Realtime.MaxReconnectAttempts)
	v.SetDefault("realtime.poll_interval_sec", d.Realtime.PollIntervalSec)
	v.SetDefault("realtime.desktop_notifications", false)
	v.SetDefault("auth.redirect_uri", d.Auth.RedirectURI)
	v.SetDefault("auth.default_role", d.Auth.DefaultRole)
	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", "")
}

// envBindings maps config keys to the environment variables that
// override them. Anything else is reachable as JOLTCAB_<SECTION>_<KEY>.
var envBindings = map[string]string{
	"api.base_url":                   "JOLTCAB_API_URL",
	"realtime.url":                   "JOLTCAB_REALTIME_URL",
	"realtime.disabled":              "JOLTCAB_DISABLE_REALTIME",
	"realtime.desktop_notifications": "JOLTCAB_DESKTOP_NOTIFICATIONS",
	"storage.backend":                "JOLTCAB_TOKEN_BACKEND",
	"log.level":                      "JOLTCAB_LOG_LEVEL",
	"log.format":                     "JOLTCAB_LOG_FORMAT",
}

// Load reads configuration from the given YAML file path using Viper,
// after loading a .env file from the working directory if one exists.
// A missing file is not an error; defaults and environment overrides
// still apply.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("JOLTCAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	cfg.resolve()

	return cfg, nil
}

// Validate checks the fields that cannot be defaulted.
func (c Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid api.base_url %q", c.API.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api.base_url must be http or https, got %q", u.Scheme)
	}
	switch c.Storage.Backend {
	case BackendKeyring, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}
	if c.Realtime.MaxReconnectAttempts < 0 {
		return fmt.Errorf("realtime.max_reconnect_attempts must not be negative")
	}
	return nil
}

// resolve fills derived fields: trims the base URL, synthesizes the
// WebSocket URL and flags local development hosts.
func (c *Config) resolve() {
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	if c.Realtime.URL == "" {
		c.Realtime.URL = deriveRealtimeURL(c.API.BaseURL)
	}
	if u, err := url.Parse(c.API.BaseURL); err == nil {
		c.Realtime.LocalHost = IsLocalHost(u.Hostname())
	}
	if c.Realtime.PollIntervalSec <= 0 {
		c.Realtime.PollIntervalSec = 30
	}
}

// deriveRealtimeURL upgrades the API origin scheme to ws/wss and swaps
// the path for the realtime endpoint.
func deriveRealtimeURL(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return ""
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{Scheme: scheme, Host: u.Host, Path: realtimePath}).String()
}

// IsLocalHost reports whether host names a local development machine.
func IsLocalHost(host string) bool {
	host = strings.ToLower(host)
	if host == "localhost" || host == "0.0.0.0" || strings.HasSuffix(host, ".local") ||
		strings.HasSuffix(host, ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && (ip.IsLoopback() || ip.IsUnspecified())
}

// Save writes the given configuration to a YAML file at path, creating
// parent directories if needed.
func Save(path string, cfg Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// A derived WebSocket URL is not persisted so that it follows later
	// base URL changes.
	wsURL := cfg.Realtime.URL
	if wsURL == deriveRealtimeURL(cfg.API.BaseURL) {
		wsURL = ""
	}

	v.Set("api", cfg.API)
	v.Set("realtime", map[string]interface{}{
		"url":                    wsURL,
		"disabled":               cfg.Realtime.Disabled,
		"max_reconnect_attempts": cfg.Realtime.MaxReconnectAttempts,
		"poll_interval_sec":      cfg.Realtime.PollIntervalSec,
		"desktop_notifications":  cfg.Realtime.DesktopNotifications,
	})
	v.Set("auth", cfg.Auth)
	v.Set("storage", cfg.Storage)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
