package config

import (
	"fmt"
	"slices"

	"github.com/voxhollow/switchboard/internal/domain"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	// Server validation
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "server.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Server.Port),
		})
	}

	validModes := []string{"demo", "live"}
	if cfg.Server.Mode != "" && !slices.Contains(validModes, cfg.Server.Mode) {
		issues = append(issues, ValidationIssue{
			Path:    "server.mode",
			Message: fmt.Sprintf("must be one of %v, got %q", validModes, cfg.Server.Mode),
		})
	}

	validBinds := []string{"auto", "lan", "loopback", "custom"}
	if cfg.Server.Bind != "" && !slices.Contains(validBinds, cfg.Server.Bind) {
		issues = append(issues, ValidationIssue{
			Path:    "server.bind",
			Message: fmt.Sprintf("must be one of %v, got %q", validBinds, cfg.Server.Bind),
		})
	}

	if cfg.Server.Mode == "live" && cfg.Server.AdminToken == "" {
		issues = append(issues, ValidationIssue{
			Path:    "server.adminToken",
			Message: "required in live mode (set directly or via SWITCHBOARD_ADMIN_TOKEN)",
		})
	}

	if cfg.Server.TLS.Enabled {
		if cfg.Server.TLS.CertPath == "" {
			issues = append(issues, ValidationIssue{
				Path:    "server.tls.certPath",
				Message: "required when TLS is enabled",
			})
		}
		if cfg.Server.TLS.KeyPath == "" {
			issues = append(issues, ValidationIssue{
				Path:    "server.tls.keyPath",
				Message: "required when TLS is enabled",
			})
		}
	}

	// Limits validation
	if cfg.Limits.MaxActionsPerMinute < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "limits.maxActionsPerMinute",
			Message: "must be non-negative",
		})
	}
	if cfg.Limits.MaxActionsPerHour < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "limits.maxActionsPerHour",
			Message: "must be non-negative",
		})
	}

	// Billing validation
	if cfg.Billing.DefaultTier != "" && !domain.KnownTier(cfg.Billing.DefaultTier) {
		issues = append(issues, ValidationIssue{
			Path:    "billing.defaultTier",
			Message: fmt.Sprintf("must be one of %v, got %q", domain.Tiers(), cfg.Billing.DefaultTier),
		})
	}

	// Store validation
	validBackends := []string{"memory", "sqlite"}
	if cfg.Store.Backend != "" && !slices.Contains(validBackends, cfg.Store.Backend) {
		issues = append(issues, ValidationIssue{
			Path:    "store.backend",
			Message: fmt.Sprintf("must be one of %v, got %q", validBackends, cfg.Store.Backend),
		})
	}

	// Provider validation
	if cfg.Providers.TimeoutSeconds < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "providers.timeoutSeconds",
			Message: "must be non-negative",
		})
	}

	validSMS := []string{"demo", "twilio"}
	if cfg.Providers.SMS != "" && !slices.Contains(validSMS, cfg.Providers.SMS) {
		issues = append(issues, ValidationIssue{
			Path:    "providers.sms",
			Message: fmt.Sprintf("must be one of %v, got %q", validSMS, cfg.Providers.SMS),
		})
	}
	if cfg.Providers.Voice != "" && !slices.Contains(validSMS, cfg.Providers.Voice) {
		issues = append(issues, ValidationIssue{
			Path:    "providers.voice",
			Message: fmt.Sprintf("must be one of %v, got %q", validSMS, cfg.Providers.Voice),
		})
	}

	validEmail := []string{"demo", "smtp", "gmail"}
	if cfg.Providers.Email != "" && !slices.Contains(validEmail, cfg.Providers.Email) {
		issues = append(issues, ValidationIssue{
			Path:    "providers.email",
			Message: fmt.Sprintf("must be one of %v, got %q", validEmail, cfg.Providers.Email),
		})
	}

	if cfg.Providers.SMS == "twilio" || cfg.Providers.Voice == "twilio" {
		if cfg.Providers.Twilio.AccountSID == "" {
			issues = append(issues, ValidationIssue{
				Path:    "providers.twilio.accountSid",
				Message: "required when a twilio provider is selected",
			})
		}
		if cfg.Providers.Twilio.AuthToken == "" {
			issues = append(issues, ValidationIssue{
				Path:    "providers.twilio.authToken",
				Message: "required when a twilio provider is selected",
			})
		}
		if cfg.Providers.Twilio.FromNumber == "" {
			issues = append(issues, ValidationIssue{
				Path:    "providers.twilio.fromNumber",
				Message: "required when a twilio provider is selected",
			})
		}
	}

	if cfg.Providers.Email == "smtp" {
		if cfg.Providers.SMTP.Host == "" {
			issues = append(issues, ValidationIssue{
				Path:    "providers.smtp.host",
				Message: "required when the smtp provider is selected",
			})
		}
		if cfg.Providers.SMTP.From == "" {
			issues = append(issues, ValidationIssue{
				Path:    "providers.smtp.from",
				Message: "required when the smtp provider is selected",
			})
		}
	}

	if cfg.Providers.Email == "gmail" {
		if cfg.Providers.Gmail.CredentialsFile == "" {
			issues = append(issues, ValidationIssue{
				Path:    "providers.gmail.credentialsFile",
				Message: "required when the gmail provider is selected",
			})
		}
		if cfg.Providers.Gmail.From == "" {
			issues = append(issues, ValidationIssue{
				Path:    "providers.gmail.from",
				Message: "required when the gmail provider is selected",
			})
		}
	}

	// Mailbox validation
	if cfg.Mailbox.MaxPerAgent < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "mailbox.maxPerAgent",
			Message: "must be non-negative",
		})
	}

	// Intake validation (only if configured)
	if cfg.Intake.IMAP != nil && cfg.Intake.IMAP.Enabled {
		imap := cfg.Intake.IMAP
		if imap.Server == "" {
			issues = append(issues, ValidationIssue{
				Path:    "intake.imap.server",
				Message: "server is required",
			})
		}
		if imap.Username == "" {
			issues = append(issues, ValidationIssue{
				Path:    "intake.imap.username",
				Message: "username is required",
			})
		}
		if imap.AgentID == "" {
			issues = append(issues, ValidationIssue{
				Path:    "intake.imap.agentId",
				Message: "agentId is required to route inbound mail",
			})
		}
		if imap.PollSeconds < 0 {
			issues = append(issues, ValidationIssue{
				Path:    "intake.imap.pollSeconds",
				Message: "must be non-negative",
			})
		}
	}

	// Logging validation
	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	validConsoleStyles := []string{"pretty", "json"}
	if cfg.Logging.ConsoleStyle != "" && !slices.Contains(validConsoleStyles, cfg.Logging.ConsoleStyle) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.consoleStyle",
			Message: fmt.Sprintf("must be one of %v, got %q", validConsoleStyles, cfg.Logging.ConsoleStyle),
		})
	}

	return issues
}
