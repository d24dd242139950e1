package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/voxhollow/switchboard/internal/config"
	"github.com/voxhollow/switchboard/internal/version"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show Switchboard status and configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("Switchboard %s (commit %s)\n\n", version.Version, version.Commit)

			// Show paths
			fmt.Printf("Config:  %s\n", paths.Config)
			fmt.Printf("Data:    %s\n", paths.Data)
			fmt.Printf("Logs:    %s\n", paths.Logs)
			fmt.Println()

			// Load config
			cfg, err := config.Load(paths.Config)
			if err != nil {
				if os.IsNotExist(err) {
					fmt.Println("Config:  not found (using defaults)")
					cfg = config.Defaults()
				} else {
					fmt.Printf("Config:  error loading: %v\n", err)
					return nil
				}
			}

			// Server config
			port := cfg.Server.Port
			if port == 0 {
				port = 3100
			}
			bind := cfg.Server.Bind
			if bind == "" {
				bind = "loopback"
			}
			modeLabel := cfg.Server.Mode
			if modeLabel == "" {
				modeLabel = "demo"
			}
			fmt.Printf("Server:  port=%d bind=%s mode=%s tls=%v\n",
				port, bind, modeLabel, cfg.Server.TLS.Enabled)

			// Store backend
			backend := cfg.Store.Backend
			if backend == "" {
				backend = "memory"
			}
			if backend == "sqlite" {
				fmt.Printf("Store:   backend=sqlite path=%s\n", paths.StorePath(&cfg))
			} else {
				fmt.Printf("Store:   backend=%s\n", backend)
			}

			// Channel providers
			fmt.Printf("SMS:     %s\n", backendLabel(cfg.Providers.SMS))
			fmt.Printf("Voice:   %s\n", backendLabel(cfg.Providers.Voice))
			fmt.Printf("Email:   %s\n", backendLabel(cfg.Providers.Email))

			// Admission limits and billing defaults
			fmt.Printf("Limits:  %d/minute %d/hour\n",
				cfg.Limits.MaxActionsPerMinute, cfg.Limits.MaxActionsPerHour)
			fmt.Printf("Billing: defaultTier=%s\n", cfg.Billing.DefaultTier)
			fmt.Printf("Mailbox: maxPerAgent=%d\n", cfg.Mailbox.MaxPerAgent)

			// Intake sources
			if im := cfg.Intake.IMAP; im != nil && im.Enabled {
				fmt.Printf("IMAP:    server=%s agent=%s poll=%ds\n",
					im.Server, im.AgentID, im.PollSeconds)
			} else {
				fmt.Println("IMAP:    (not configured)")
			}

			// Probe a running gateway
			fmt.Println()
			probeGateway(&cfg, port)

			// Validation
			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Printf("\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Printf("  - %s: %s\n", issue.Path, issue.Message)
				}
			}

			return nil
		},
	}

	return cmd
}

// backendLabel names a channel backend, treating empty as the demo default.
func backendLabel(name string) string {
	if name == "" {
		return "demo"
	}
	return name
}

// probeGateway checks whether a gateway is answering on the configured
// port and prints what it reports.
func probeGateway(cfg *config.Config, port int) {
	scheme := "http"
	if cfg.Server.TLS.Enabled {
		scheme = "https"
	}
	url := fmt.Sprintf("%s://127.0.0.1:%d/api/v1/health", scheme, port)

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		fmt.Println("Gateway: not running")
		return
	}
	defer resp.Body.Close()

	var health struct {
		Status  string `json:"status"`
		Mode    string `json:"mode"`
		Version string `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil || health.Status != "ok" {
		fmt.Printf("Gateway: unexpected response on port %d\n", port)
		return
	}
	fmt.Printf("Gateway: running version=%s mode=%s\n", health.Version, health.Mode)
}
