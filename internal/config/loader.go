package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// envOverrides maps environment variables onto config fields. They win
// over the YAML file.
var envOverrides = []struct {
	name  string
	apply func(*Config, string)
}{
	{"DATABASE_URL", func(c *Config, v string) { c.Database.URL = v }},
	{"WEBHOOK_SECRET", func(c *Config, v string) { c.Webhook.Secret = v }},
	{"LOG_LEVEL", func(c *Config, v string) { c.Service.LogLevel = v }},
	{"LISTEN_ADDR", func(c *Config, v string) { c.API.Listen = v }},
	{"SIGNATURE_HEADER", func(c *Config, v string) { c.Webhook.SignatureHeader = v }},
	{"MAX_BODY_SIZE", func(c *Config, v string) { c.Webhook.MaxBodySize = v }},
}

var knownLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}

// Load builds the configuration from defaults, an optional YAML file and
// the environment, in that order. An empty configPath skips the file.
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	if configPath != "" {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
		}
		data, err := os.ReadFile(absPath)
		if err != nil {
			return nil, fmt.Errorf("config file not found: %s\n"+
				"Hint: Check the path or run with --config flag", absPath)
		}
		if err := yaml.Unmarshal([]byte(interpolateEnv(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", absPath, err)
		}
	}

	for _, o := range envOverrides {
		if v, ok := os.LookupEnv(o.name); ok && v != "" {
			o.apply(cfg, v)
		}
	}

	if !knownLogLevels[strings.ToLower(strings.TrimSpace(cfg.Service.LogLevel))] {
		slog.Warn("unknown log level, falling back to INFO", "log_level", cfg.Service.LogLevel)
		cfg.Service.LogLevel = "INFO"
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// interpolateEnv replaces ${VAR} with the variable's value. Unset
// variables are left in place so validate can name them.
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}

// validate performs basic validation on the configuration.
func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Database.URL) == "" {
		return fmt.Errorf("database.url is required")
	}
	if strings.TrimSpace(cfg.API.Listen) == "" {
		return fmt.Errorf("api.listen is required")
	}
	if strings.TrimSpace(cfg.Webhook.SignatureHeader) == "" {
		return fmt.Errorf("webhook.signature_header is required")
	}
	if _, err := ParseSize(cfg.Webhook.MaxBodySize); err != nil {
		return fmt.Errorf("webhook.max_body_size %q: %w", cfg.Webhook.MaxBodySize, err)
	}

	for field, value := range map[string]string{
		"database.url":   cfg.Database.URL,
		"webhook.secret": cfg.Webhook.Secret,
	} {
		if m := envVarPattern.FindStringSubmatch(value); len(m) > 1 {
			return fmt.Errorf("%s: environment variable ${%s} is not set", field, m[1])
		}
	}
	return nil
}

// ParseSize parses size strings like "1MB", "512KB" or "2048576" to bytes.
// Returns DefaultMaxBodySize if empty.
func ParseSize(size string) (int64, error) {
	if size == "" {
		return DefaultMaxBodySize, nil
	}

	upper := strings.ToUpper(strings.TrimSpace(size))
	multiplier := int64(1)

	switch {
	case strings.HasSuffix(upper, "KB"):
		multiplier = 1024
		upper = strings.TrimSuffix(upper, "KB")
	case strings.HasSuffix(upper, "MB"):
		multiplier = 1024 * 1024
		upper = strings.TrimSuffix(upper, "MB")
	case strings.HasSuffix(upper, "GB"):
		multiplier = 1024 * 1024 * 1024
		upper = strings.TrimSuffix(upper, "GB")
	}

	value, err := strconv.ParseInt(strings.TrimSpace(upper), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value: %w", err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("size must be positive")
	}

	result := value * multiplier
	if result/multiplier != value {
		return 0, fmt.Errorf("size too large")
	}
	return result, nil
}
