package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so secrets can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.Server.AdminToken = expandEnvVars(cfg.Server.AdminToken)
	cfg.Providers.Twilio.AuthToken = expandEnvVars(cfg.Providers.Twilio.AuthToken)
	cfg.Providers.SMTP.Password = expandEnvVars(cfg.Providers.SMTP.Password)
	if cfg.Intake.IMAP != nil {
		cfg.Intake.IMAP.Password = expandEnvVars(cfg.Intake.IMAP.Password)
	}
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	return raw, nil
}

// SaveRaw writes a generic map back to a YAML config file.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3100
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "demo"
	}
	if cfg.Server.Bind == "" {
		cfg.Server.Bind = "loopback"
	}
	if cfg.Limits.MaxActionsPerMinute == 0 {
		cfg.Limits.MaxActionsPerMinute = 60
	}
	if cfg.Limits.MaxActionsPerHour == 0 {
		cfg.Limits.MaxActionsPerHour = 600
	}
	if cfg.Billing.DefaultTier == "" {
		cfg.Billing.DefaultTier = "free"
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "memory"
	}
	if cfg.Providers.TimeoutSeconds == 0 {
		cfg.Providers.TimeoutSeconds = 15
	}
	if cfg.Providers.SMS == "" {
		cfg.Providers.SMS = "demo"
	}
	if cfg.Providers.Voice == "" {
		cfg.Providers.Voice = "demo"
	}
	if cfg.Providers.Email == "" {
		cfg.Providers.Email = "demo"
	}
	if cfg.Mailbox.MaxPerAgent == 0 {
		cfg.Mailbox.MaxPerAgent = 100
	}
	if cfg.Intake.IMAP != nil && cfg.Intake.IMAP.PollSeconds == 0 {
		cfg.Intake.IMAP.PollSeconds = 60
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.ConsoleStyle == "" {
		cfg.Logging.ConsoleStyle = "pretty"
	}
}

// applyEnvOverrides reads SWITCHBOARD_* environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SWITCHBOARD_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SWITCHBOARD_MODE"); v != "" {
		cfg.Server.Mode = strings.ToLower(v)
	}
	if v := os.Getenv("SWITCHBOARD_BIND"); v != "" {
		cfg.Server.Bind = v
	}
	if v := os.Getenv("SWITCHBOARD_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("SWITCHBOARD_STORE"); v != "" {
		cfg.Store.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("SWITCHBOARD_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("SWITCHBOARD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
}
