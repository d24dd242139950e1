package config

import "github.com/voxhollow/switchboard/internal/domain"

// Config is the root configuration for Switchboard.
type Config struct {
	Server    ServerConfig    `yaml:"server,omitempty"`
	Limits    LimitsConfig    `yaml:"limits,omitempty"`
	Billing   BillingConfig   `yaml:"billing,omitempty"`
	Store     StoreConfig     `yaml:"store,omitempty"`
	Providers ProvidersConfig `yaml:"providers,omitempty"`
	Mailbox   MailboxConfig   `yaml:"mailbox,omitempty"`
	Intake    IntakeConfig    `yaml:"intake,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
}

// ServerConfig controls the gateway HTTP server.
type ServerConfig struct {
	Port           int       `yaml:"port,omitempty"`
	Mode           string    `yaml:"mode,omitempty"` // "demo" | "live"
	Bind           string    `yaml:"bind,omitempty"` // "auto" | "lan" | "loopback" | "custom"
	CustomBindHost string    `yaml:"customBindHost,omitempty"`
	AdminToken     string    `yaml:"adminToken,omitempty"` // sentinel for provisioning routes; fixed to "demo-admin" in demo mode
	AllowedOrigins []string  `yaml:"allowedOrigins,omitempty"`
	TLS            ServerTLS `yaml:"tls,omitempty"`
}

// ServerTLS configures TLS for the gateway.
type ServerTLS struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	CertPath string `yaml:"certPath,omitempty"`
	KeyPath  string `yaml:"keyPath,omitempty"`
}

// LimitsConfig sets the system-wide admission defaults. Agents may override
// their own limits via the agent-limits operation.
type LimitsConfig struct {
	MaxActionsPerMinute int `yaml:"maxActionsPerMinute,omitempty"`
	MaxActionsPerHour   int `yaml:"maxActionsPerHour,omitempty"`
}

// RateLimits converts to the domain representation.
func (l LimitsConfig) RateLimits() domain.RateLimits {
	return domain.RateLimits{
		MaxActionsPerMinute: l.MaxActionsPerMinute,
		MaxActionsPerHour:   l.MaxActionsPerHour,
	}
}

// BillingConfig sets billing defaults for newly provisioned agents.
type BillingConfig struct {
	DefaultTier string `yaml:"defaultTier,omitempty"` // "free" | "starter" | "pro" | "enterprise"
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend string `yaml:"backend,omitempty"` // "memory" | "sqlite"
	Path    string `yaml:"path,omitempty"`    // sqlite file; defaults under the data dir
}

// ProvidersConfig selects and configures channel provider backends.
type ProvidersConfig struct {
	TimeoutSeconds int          `yaml:"timeoutSeconds,omitempty"`
	SMS            string       `yaml:"sms,omitempty"`   // "demo" | "twilio"
	Voice          string       `yaml:"voice,omitempty"` // "demo" | "twilio"
	Email          string       `yaml:"email,omitempty"` // "demo" | "smtp" | "gmail"
	Twilio         TwilioConfig `yaml:"twilio,omitempty"`
	SMTP           SMTPConfig   `yaml:"smtp,omitempty"`
	Gmail          GmailConfig  `yaml:"gmail,omitempty"`
}

// TwilioConfig configures the carrier REST provider.
type TwilioConfig struct {
	AccountSID string `yaml:"accountSid,omitempty"`
	AuthToken  string `yaml:"authToken,omitempty"`
	FromNumber string `yaml:"fromNumber,omitempty"`
	BaseURL    string `yaml:"baseUrl,omitempty"` // override for testing
}

// SMTPConfig configures outbound email over SMTP.
type SMTPConfig struct {
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	From     string `yaml:"from,omitempty"`
}

// GmailConfig configures outbound email via the Gmail API.
type GmailConfig struct {
	CredentialsFile string `yaml:"credentialsFile,omitempty"`
	TokenFile       string `yaml:"tokenFile,omitempty"`
	From            string `yaml:"from,omitempty"`
}

// MailboxConfig bounds the per-agent inbound queue.
type MailboxConfig struct {
	MaxPerAgent int `yaml:"maxPerAgent,omitempty"`
}

// IntakeConfig configures inbound message sources.
type IntakeConfig struct {
	IMAP *IMAPConfig `yaml:"imap,omitempty"`
}

// IMAPConfig polls a mailbox and delivers unseen mail to one agent's queue.
type IMAPConfig struct {
	Enabled     bool   `yaml:"enabled,omitempty"`
	Server      string `yaml:"server,omitempty"` // host:port, TLS
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	AgentID     string `yaml:"agentId,omitempty"`
	PollSeconds int    `yaml:"pollSeconds,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File         string `yaml:"file,omitempty"`
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "json"
}

// Demo reports whether the gateway runs with demo providers and the
// demo admin sentinel.
func (c *Config) Demo() bool { return c.Server.Mode != "live" }
