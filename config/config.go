// Package config provides YAML configuration parsing for storewatch.
//
// This package enables running storewatch as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	title: Orders DB
//	port: 9999
//	poll_interval: 500ms
//	debounce_window: 5m
//
//	store:
//	  driver: postgres
//	  dsn: ${DATABASE_URL}
//
//	notifiers:
//	  - type: log
//	  - type: webhook
//	    url: https://hooks.example.com/storewatch
//	  - type: telegram
//	    token: ${TELEGRAM_TOKEN}
//	    chat_id: 123456789
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// minPollInterval keeps a misconfigured monitor from hammering the store.
	minPollInterval = 100 * time.Millisecond

	// minDebounceWindow is the smallest accepted spacing of failure alerts.
	minDebounceWindow = time.Second

	defaultPort           = 9999
	defaultPollInterval   = 500 * time.Millisecond
	defaultDebounceWindow = 5 * time.Minute
	defaultProbeTimeout   = 2 * time.Second
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverHTTP     = "http"
)

// Notifier types.
const (
	NotifierLog      = "log"
	NotifierWebhook  = "webhook"
	NotifierTelegram = "telegram"
)

// Config is the root configuration structure for storewatch.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the dashboard title. Defaults to "storewatch" if not set.
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 9999.
	Port int `yaml:"port"`

	// PollInterval is the time between connectivity checks.
	// Accepts duration strings like "500ms", "1s". Defaults to 500ms.
	PollInterval Duration `yaml:"poll_interval"`

	// DebounceWindow is the minimum time between failure notifications.
	// Defaults to 5m.
	DebounceWindow Duration `yaml:"debounce_window"`

	// ProbeTimeout bounds a single connectivity check. Defaults to 2s.
	ProbeTimeout Duration `yaml:"probe_timeout"`

	// StartupCheck fails startup when the store is unreachable. Defaults to true.
	StartupCheck *bool `yaml:"startup_check"`

	// Store describes the monitored data store.
	Store StoreConfig `yaml:"store"`

	// Notifiers lists the notification sinks. Defaults to a single log sink.
	Notifiers []NotifierConfig `yaml:"notifiers"`
}

// StoreConfig selects and configures the connectivity probe.
type StoreConfig struct {
	// Driver is "postgres", "redis" or "http".
	Driver string `yaml:"driver"`

	// DSN is the PostgreSQL connection string (driver: postgres).
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	DSN string `yaml:"dsn"`

	// URL is the Redis URL (driver: redis) or health endpoint (driver: http).
	// Supports environment variable substitution.
	URL string `yaml:"url"`

	// Method is the HTTP method for driver http (GET, HEAD, POST). Defaults to GET.
	Method string `yaml:"method"`

	// Headers are custom HTTP headers for driver http.
	// Values support environment variable substitution.
	Headers map[string]string `yaml:"headers"`

	// Classifier determines how an HTTP health response is judged.
	// Can be shorthand ("json:ok", "contains:PONG") or structured.
	Classifier ClassifierConfig `yaml:"classifier"`
}

// NotifierConfig configures one notification sink.
type NotifierConfig struct {
	// Type is "log", "webhook" or "telegram".
	Type string `yaml:"type"`

	// URL is the webhook endpoint (type: webhook).
	URL string `yaml:"url"`

	// Headers are sent with each webhook request. Values support
	// environment variable substitution.
	Headers map[string]string `yaml:"headers"`

	// Token is the Telegram bot token (type: telegram).
	Token string `yaml:"token"`

	// ChatID is the Telegram chat to post to (type: telegram).
	ChatID int64 `yaml:"chat_id"`
}

// ClassifierConfig specifies how to judge an HTTP health response.
//
// It supports two formats in YAML:
//
// Shorthand string:
//
//	classifier: json:ok
//	classifier: json:data.health.status
//	classifier: contains:PONG
//	classifier: http
//
// Structured object:
//
//	classifier:
//	  type: json
//	  path: data.health.status
type ClassifierConfig struct {
	// Type is the classifier type: "default", "http", "json", "contains".
	Type string

	// Path is the JSON field path (for type: json).
	Path string

	// Text is the substring to search for (for type: contains).
	Text string
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML implements yaml.Unmarshaler for ClassifierConfig.
func (c *ClassifierConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		return c.parseShorthand(s)
	}

	if node.Kind == yaml.MappingNode {
		// temporary struct to avoid infinite recursion
		var raw struct {
			Type string `yaml:"type"`
			Path string `yaml:"path"`
			Text string `yaml:"text"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		c.Type = raw.Type
		c.Path = raw.Path
		c.Text = raw.Text
		return nil
	}

	return fmt.Errorf("classifier must be a string or object, got %v", node.Kind)
}

// parseShorthand parses classifier shorthand syntax.
//
// Supported formats:
//   - "default" or "http" → any 2xx status is healthy
//   - "json:path" → healthy when the JSON field holds a healthy value
//   - "contains:text" → healthy when a 2xx body contains text
func (c *ClassifierConfig) parseShorthand(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if idx := strings.Index(s, ":"); idx != -1 {
		c.Type = s[:idx]
		value := s[idx+1:]

		switch c.Type {
		case "json":
			c.Path = value
		case "contains":
			c.Text = value
		default:
			return fmt.Errorf("unknown classifier type %q", c.Type)
		}
		return nil
	}

	switch s {
	case "default", "http":
		c.Type = s
	default:
		return fmt.Errorf("unknown classifier %q (expected 'default', 'http', 'json:path', or 'contains:text')", s)
	}
	return nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// already have an error, skip processing
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in the store DSN, URLs, header values
// and notifier tokens. Defaults are applied for Port (9999), PollInterval
// (500ms), DebounceWindow (5m) and ProbeTimeout (2s).
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// StartupCheckEnabled reports whether the startup connectivity check is on.
func (c *Config) StartupCheckEnabled() bool {
	return c.StartupCheck == nil || *c.StartupCheck
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.PollInterval == 0 {
		c.PollInterval = Duration(defaultPollInterval)
	}
	if c.DebounceWindow == 0 {
		c.DebounceWindow = Duration(defaultDebounceWindow)
	}
	if c.ProbeTimeout == 0 {
		c.ProbeTimeout = Duration(defaultProbeTimeout)
	}
	if len(c.Notifiers) == 0 {
		c.Notifiers = []NotifierConfig{{Type: NotifierLog}}
	}
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.PollInterval.Duration() < minPollInterval {
		return fmt.Errorf("poll_interval must be at least %s, got %s", minPollInterval, c.PollInterval.Duration())
	}
	if c.DebounceWindow.Duration() < minDebounceWindow {
		return fmt.Errorf("debounce_window must be at least %s, got %s", minDebounceWindow, c.DebounceWindow.Duration())
	}
	if c.ProbeTimeout.Duration() <= 0 {
		return fmt.Errorf("probe_timeout must be positive, got %s", c.ProbeTimeout.Duration())
	}

	if err := c.Store.expandAndValidate(); err != nil {
		return err
	}

	for i := range c.Notifiers {
		if err := c.Notifiers[i].expandAndValidate(i); err != nil {
			return err
		}
	}

	return nil
}

func (s *StoreConfig) expandAndValidate() error {
	var err error

	switch s.Driver {
	case "":
		return errors.New("store: driver is required (postgres, redis or http)")

	case DriverPostgres:
		if s.DSN == "" {
			return errors.New("store (postgres): dsn is required")
		}
		if s.DSN, err = expandEnvVars(s.DSN); err != nil {
			return fmt.Errorf("store (postgres): dsn: %w", err)
		}

	case DriverRedis:
		if s.URL == "" {
			return errors.New("store (redis): url is required")
		}
		if s.URL, err = expandEnvVars(s.URL); err != nil {
			return fmt.Errorf("store (redis): url: %w", err)
		}
		if err := requireScheme(s.URL, "redis", "rediss"); err != nil {
			return fmt.Errorf("store (redis): %w", err)
		}

	case DriverHTTP:
		if s.URL == "" {
			return errors.New("store (http): url is required")
		}
		if s.URL, err = expandEnvVars(s.URL); err != nil {
			return fmt.Errorf("store (http): url: %w", err)
		}
		if err := requireScheme(s.URL, "http", "https"); err != nil {
			return fmt.Errorf("store (http): %w", err)
		}
		if s.Method != "" && s.Method != "GET" && s.Method != "HEAD" && s.Method != "POST" {
			return errors.New("store (http): method must be GET, HEAD, or POST")
		}
		if err := expandHeaders(s.Headers); err != nil {
			return fmt.Errorf("store (http): %w", err)
		}
		if err := validateClassifier(&s.Classifier, "store (http)"); err != nil {
			return err
		}

	default:
		return fmt.Errorf("store: unknown driver %q (expected postgres, redis or http)", s.Driver)
	}

	return nil
}

func (n *NotifierConfig) expandAndValidate(i int) error {
	var err error

	switch n.Type {
	case NotifierLog:
		// no settings

	case NotifierWebhook:
		if n.URL == "" {
			return fmt.Errorf("notifiers[%d] (webhook): url is required", i)
		}
		if n.URL, err = expandEnvVars(n.URL); err != nil {
			return fmt.Errorf("notifiers[%d] (webhook): url: %w", i, err)
		}
		if err := requireScheme(n.URL, "http", "https"); err != nil {
			return fmt.Errorf("notifiers[%d] (webhook): %w", i, err)
		}
		if err := expandHeaders(n.Headers); err != nil {
			return fmt.Errorf("notifiers[%d] (webhook): %w", i, err)
		}

	case NotifierTelegram:
		if n.Token, err = expandEnvVars(n.Token); err != nil {
			return fmt.Errorf("notifiers[%d] (telegram): token: %w", i, err)
		}
		if n.Token == "" {
			return fmt.Errorf("notifiers[%d] (telegram): token is required", i)
		}
		if n.ChatID == 0 {
			return fmt.Errorf("notifiers[%d] (telegram): chat_id is required", i)
		}

	case "":
		return fmt.Errorf("notifiers[%d]: type is required", i)

	default:
		return fmt.Errorf("notifiers[%d]: unknown type %q (expected log, webhook or telegram)", i, n.Type)
	}

	return nil
}

// requireScheme checks that raw parses as a URL with one of schemes.
func requireScheme(raw string, schemes ...string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme == "" {
		return fmt.Errorf("url must have a scheme (%s://)", schemes[0])
	}
	for _, s := range schemes {
		if parsed.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("url scheme must be %s, got %q", strings.Join(schemes, " or "), parsed.Scheme)
}

// expandHeaders expands environment variables in header values in place.
func expandHeaders(headers map[string]string) error {
	for k, v := range headers {
		expanded, err := expandEnvVars(v)
		if err != nil {
			return fmt.Errorf("headers[%s]: %w", k, err)
		}
		headers[k] = expanded
	}
	return nil
}

// validateClassifier validates a classifier configuration.
func validateClassifier(c *ClassifierConfig, context string) error {
	if c.Type == "" {
		return nil // empty means default, which is valid
	}

	switch c.Type {
	case "default", "http":
		// no additional validation needed
	case "json":
		if c.Path == "" {
			return fmt.Errorf("%s: classifier type 'json' requires a path", context)
		}
	case "contains":
		if c.Text == "" {
			return fmt.Errorf("%s: classifier type 'contains' requires text", context)
		}
	default:
		return fmt.Errorf("%s: unknown classifier type %q", context, c.Type)
	}

	return nil
}
