package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func issuePaths(issues []ValidationIssue) []string {
	var paths []string
	for _, i := range issues {
		paths = append(paths, i.Path)
	}
	return paths
}

func TestValidate_ValidDefaults(t *testing.T) {
	cfg := Defaults()
	issues := Validate(&cfg)
	assert.Empty(t, issues)
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := Defaults()

	cfg.Server.Port = -1
	issues := Validate(&cfg)
	assert.NotEmpty(t, issues)
	assert.Contains(t, issues[0].Path, "server.port")

	cfg.Server.Port = 70000
	issues = Validate(&cfg)
	assert.NotEmpty(t, issues)
}

func TestValidate_InvalidMode(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Mode = "staging"
	issues := Validate(&cfg)
	assert.NotEmpty(t, issues)
	assert.Contains(t, issues[0].Path, "server.mode")
}

func TestValidate_ValidModes(t *testing.T) {
	for _, mode := range []string{"demo", ""} {
		cfg := Defaults()
		cfg.Server.Mode = mode
		assert.Empty(t, Validate(&cfg), "mode %q should be valid", mode)
	}
}

func TestValidate_LiveRequiresAdminToken(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Mode = "live"
	issues := Validate(&cfg)
	assert.Contains(t, issuePaths(issues), "server.adminToken")

	cfg.Server.AdminToken = "op-secret"
	assert.Empty(t, Validate(&cfg))
}

func TestValidate_InvalidBind(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Bind = "tailnet"
	issues := Validate(&cfg)
	assert.NotEmpty(t, issues)
	assert.Contains(t, issues[0].Path, "server.bind")
}

func TestValidate_TLSRequiresPaths(t *testing.T) {
	cfg := Defaults()
	cfg.Server.TLS.Enabled = true
	issues := Validate(&cfg)
	paths := issuePaths(issues)
	assert.Contains(t, paths, "server.tls.certPath")
	assert.Contains(t, paths, "server.tls.keyPath")
}

func TestValidate_NegativeLimits(t *testing.T) {
	cfg := Defaults()
	cfg.Limits.MaxActionsPerMinute = -1
	cfg.Limits.MaxActionsPerHour = -1
	issues := Validate(&cfg)
	paths := issuePaths(issues)
	assert.Contains(t, paths, "limits.maxActionsPerMinute")
	assert.Contains(t, paths, "limits.maxActionsPerHour")
}

func TestValidate_UnknownTier(t *testing.T) {
	cfg := Defaults()
	cfg.Billing.DefaultTier = "platinum"
	issues := Validate(&cfg)
	assert.NotEmpty(t, issues)
	assert.Contains(t, issues[0].Path, "billing.defaultTier")
}

func TestValidate_KnownTiers(t *testing.T) {
	for _, tier := range []string{"free", "starter", "pro", "enterprise", ""} {
		cfg := Defaults()
		cfg.Billing.DefaultTier = tier
		assert.Empty(t, Validate(&cfg), "tier %q should be valid", tier)
	}
}

func TestValidate_InvalidStoreBackend(t *testing.T) {
	cfg := Defaults()
	cfg.Store.Backend = "postgres"
	issues := Validate(&cfg)
	assert.NotEmpty(t, issues)
	assert.Contains(t, issues[0].Path, "store.backend")
}

func TestValidate_InvalidProviders(t *testing.T) {
	cfg := Defaults()
	cfg.Providers.SMS = "carrier-pigeon"
	cfg.Providers.Email = "fax"
	issues := Validate(&cfg)
	paths := issuePaths(issues)
	assert.Contains(t, paths, "providers.sms")
	assert.Contains(t, paths, "providers.email")
}

func TestValidate_TwilioRequiresCredentials(t *testing.T) {
	cfg := Defaults()
	cfg.Providers.SMS = "twilio"
	issues := Validate(&cfg)
	paths := issuePaths(issues)
	assert.Contains(t, paths, "providers.twilio.accountSid")
	assert.Contains(t, paths, "providers.twilio.authToken")
	assert.Contains(t, paths, "providers.twilio.fromNumber")

	cfg.Providers.Twilio = TwilioConfig{
		AccountSID: "AC1",
		AuthToken:  "tok",
		FromNumber: "+1555",
	}
	assert.Empty(t, Validate(&cfg))
}

func TestValidate_SMTPRequiresHostAndFrom(t *testing.T) {
	cfg := Defaults()
	cfg.Providers.Email = "smtp"
	issues := Validate(&cfg)
	paths := issuePaths(issues)
	assert.Contains(t, paths, "providers.smtp.host")
	assert.Contains(t, paths, "providers.smtp.from")
}

func TestValidate_GmailRequiresCredentialsAndFrom(t *testing.T) {
	cfg := Defaults()
	cfg.Providers.Email = "gmail"
	issues := Validate(&cfg)
	paths := issuePaths(issues)
	assert.Contains(t, paths, "providers.gmail.credentialsFile")
	assert.Contains(t, paths, "providers.gmail.from")
}

func TestValidate_IMAPEnabled(t *testing.T) {
	cfg := Defaults()
	cfg.Intake.IMAP = &IMAPConfig{Enabled: true}
	issues := Validate(&cfg)
	paths := issuePaths(issues)
	assert.Contains(t, paths, "intake.imap.server")
	assert.Contains(t, paths, "intake.imap.username")
	assert.Contains(t, paths, "intake.imap.agentId")
}

func TestValidate_IMAPDisabledSkipsChecks(t *testing.T) {
	cfg := Defaults()
	cfg.Intake.IMAP = &IMAPConfig{Enabled: false}
	assert.Empty(t, Validate(&cfg))
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := Defaults()
	cfg.Logging.Level = "loud"
	issues := Validate(&cfg)
	assert.NotEmpty(t, issues)
	assert.Contains(t, issues[0].Path, "logging.level")
}

func TestValidationIssueString(t *testing.T) {
	issue := ValidationIssue{Path: "server.port", Message: "bad"}
	assert.Equal(t, "server.port: bad", issue.String())
}
