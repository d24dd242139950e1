package config

import "fmt"

// DemoAdminToken is the fixed administrative sentinel in demo mode.
const DemoAdminToken = "demo-admin"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 3100,
			Mode: "demo",
			Bind: "loopback",
		},
		Limits: LimitsConfig{
			MaxActionsPerMinute: 60,
			MaxActionsPerHour:   600,
		},
		Billing: BillingConfig{
			DefaultTier: "free",
		},
		Store: StoreConfig{
			Backend: "memory",
		},
		Providers: ProvidersConfig{
			TimeoutSeconds: 15,
			SMS:            "demo",
			Voice:          "demo",
			Email:          "demo",
		},
		Mailbox: MailboxConfig{
			MaxPerAgent: 100,
		},
		Logging: LoggingConfig{
			Level:        "info",
			ConsoleStyle: "pretty",
		},
	}
}

// AdminToken resolves the administrative sentinel for the configured mode.
// Demo mode always uses DemoAdminToken; live mode requires a configured value.
func (c *Config) AdminToken() string {
	if c.Demo() {
		return DemoAdminToken
	}
	return c.Server.AdminToken
}
