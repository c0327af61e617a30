package config

// Config represents the complete msgwebhook configuration.
type Config struct {
	Service  ServiceConfig  `yaml:"service" json:"service"`
	Database DatabaseConfig `yaml:"database" json:"database"`
	Webhook  WebhookConfig  `yaml:"webhook" json:"webhook"`
	API      APIConfig      `yaml:"api" json:"api"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name     string `yaml:"name" json:"name"`
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// DatabaseConfig names the message store, e.g. "sqlite:///./data/app.db"
// or "memory://".
type DatabaseConfig struct {
	URL string `yaml:"url" json:"url"`
}

// WebhookConfig defines the inbound webhook endpoint.
type WebhookConfig struct {
	// Secret is the shared HMAC key. Optional at load time; readiness
	// reports 503 while it is unset.
	Secret          string `yaml:"secret" json:"secret"`
	SignatureHeader string `yaml:"signature_header" json:"signature_header"`
	// MaxBodySize accepts plain bytes or KB/MB/GB suffixes.
	MaxBodySize string `yaml:"max_body_size" json:"max_body_size"`
}

// APIConfig defines HTTP server settings.
type APIConfig struct {
	Listen string `yaml:"listen" json:"listen"`
}

const (
	DefaultDatabaseURL     = "sqlite:///./data/app.db"
	DefaultSignatureHeader = "X-Signature"
	DefaultMaxBodySize     = int64(1 << 20)
)

// Defaults returns a Config with the values used when nothing overrides them.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:     "msgwebhook",
			LogLevel: "INFO",
		},
		Database: DatabaseConfig{
			URL: DefaultDatabaseURL,
		},
		Webhook: WebhookConfig{
			SignatureHeader: DefaultSignatureHeader,
			MaxBodySize:     "1MB",
		},
		API: APIConfig{
			Listen: "0.0.0.0:8000",
		},
	}
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.Webhook.Secret != "" {
		c.Webhook.Secret = "********"
	}
	return c
}

// MaxBodyBytes is Webhook.MaxBodySize in bytes. Load has already
// validated it, so the error path only falls back to the default.
func (c *Config) MaxBodyBytes() int64 {
	n, err := ParseSize(c.Webhook.MaxBodySize)
	if err != nil {
		return DefaultMaxBodySize
	}
	return n
}
