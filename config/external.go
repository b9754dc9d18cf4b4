package config

import (
	"strings"
	"time"
)

// RecordStoreConfig configures the HTTP client for the external
// work-management system of record.
type RecordStoreConfig struct {
	// BaseURL is the root of the remote API.
	BaseURL string `env:"BASE_URL"`

	// Token is a static bearer token. Used when OAuth is not configured.
	Token string `env:"TOKEN"`

	// OAuth client-credentials settings. When TokenURL is set the client
	// authenticates via OAuth2 instead of the static token.
	OAuthClientID     string `env:"OAUTH_CLIENT_ID"`
	OAuthClientSecret string `env:"OAUTH_CLIENT_SECRET"`
	OAuthTokenURL     string `env:"OAUTH_TOKEN_URL"`

	// Timeout bounds each HTTP call to the remote.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"15s"`

	// MaxAttempts is the retry budget for transient failures, including the
	// first attempt.
	MaxAttempts int `env:"MAX_ATTEMPTS" envDefault:"3"`

	// BaseDelay is the initial backoff delay; each retry doubles it.
	BaseDelay time.Duration `env:"BASE_DELAY" envDefault:"1s"`
}

// Sanitize applies guardrails to record store configuration values.
func (r *RecordStoreConfig) Sanitize() {
	r.BaseURL = strings.TrimRight(strings.TrimSpace(r.BaseURL), "/")
	r.Token = strings.TrimSpace(r.Token)
	r.OAuthTokenURL = strings.TrimSpace(r.OAuthTokenURL)
	if r.Timeout <= 0 {
		r.Timeout = 15 * time.Second
	}
	if r.MaxAttempts < 1 {
		r.MaxAttempts = 1
	}
	if r.BaseDelay <= 0 {
		r.BaseDelay = time.Second
	}
}

// UseOAuth reports whether the client should use OAuth2 client credentials.
func (r *RecordStoreConfig) UseOAuth() bool {
	return r.OAuthTokenURL != "" && r.OAuthClientID != ""
}

// MailerConfig configures the transactional mail API client.
type MailerConfig struct {
	// Enabled disables outbound mail entirely when false (sends are logged
	// and dropped).
	Enabled bool `env:"ENABLED" envDefault:"true"`

	// BaseURL is the root of the mail API.
	BaseURL string `env:"BASE_URL"`

	// APIKey authenticates against the mail API.
	APIKey string `env:"API_KEY"`

	// From is the sender address on outbound messages.
	From string `env:"FROM" envDefault:"no-reply@stagehand.app"`

	// Timeout bounds each send call.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to mailer configuration values.
func (m *MailerConfig) Sanitize() {
	m.BaseURL = strings.TrimRight(strings.TrimSpace(m.BaseURL), "/")
	m.APIKey = strings.TrimSpace(m.APIKey)
	m.From = strings.TrimSpace(m.From)
	if m.Timeout <= 0 {
		m.Timeout = 10 * time.Second
	}
	if m.BaseURL == "" {
		m.Enabled = false
	}
}

// RedisConfig configures the Redis connection backing rate-limit counters
// and single-flight claims. When disabled, an in-process TTL cache is used
// instead.
type RedisConfig struct {
	Enabled  bool   `env:"ENABLED" envDefault:"false"`
	Addr     string `env:"ADDR" envDefault:"127.0.0.1:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

// Sanitize applies guardrails to Redis configuration values.
func (r *RedisConfig) Sanitize() {
	r.Addr = strings.TrimSpace(r.Addr)
	if r.Addr == "" {
		r.Enabled = false
	}
	if r.DB < 0 {
		r.DB = 0
	}
}
