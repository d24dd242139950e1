package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// agentView mirrors the agent record the gateway returns.
type agentView struct {
	AgentID      string          `json:"agentId"`
	DisplayName  string          `json:"displayName"`
	Capabilities map[string]bool `json:"capabilities"`
	Status       string          `json:"status"`
	Tier         string          `json:"tier"`
	Limits       struct {
		MaxActionsPerMinute int `json:"maxActionsPerMinute"`
		MaxActionsPerHour   int `json:"maxActionsPerHour"`
	} `json:"limits"`
	CreatedAt string `json:"createdAt"`
}

type tokenListView struct {
	AgentID string `json:"agentId"`
	Tokens  []struct {
		Token     string  `json:"token"`
		IssuedAt  string  `json:"issuedAt"`
		RevokedAt *string `json:"revokedAt"`
		Live      bool    `json:"live"`
	} `json:"tokens"`
	Count int `json:"count"`
}

func newAgentCmd() *cobra.Command {
	var (
		server string
		token  string
	)

	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Manage agents on a running gateway",
	}

	cmd.PersistentFlags().StringVar(&server, "server", "", "gateway base URL (default http://127.0.0.1:<configured port>)")
	cmd.PersistentFlags().StringVar(&token, "token", "", "credential to authenticate with (default: configured admin token)")

	cmd.AddCommand(newAgentProvisionCmd(&server, &token))
	cmd.AddCommand(newAgentListCmd(&server, &token))
	cmd.AddCommand(newAgentInfoCmd(&server, &token))
	cmd.AddCommand(newAgentDeprovisionCmd(&server, &token))
	cmd.AddCommand(newAgentRegenerateTokenCmd(&server, &token))
	cmd.AddCommand(newAgentTokensCmd(&server, &token))

	return cmd
}

func newAgentProvisionCmd(server, token *string) *cobra.Command {
	var capabilities []string

	cmd := &cobra.Command{
		Use:   "provision <display-name>",
		Short: "Provision a new agent and print its security token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := adminClient(*server, *token)
			if err != nil {
				return err
			}

			// capabilities is a required field; an empty set is valid.
			caps := make(map[string]bool, len(capabilities))
			for _, c := range capabilities {
				caps[c] = true
			}
			body := map[string]any{
				"displayName":  args[0],
				"capabilities": caps,
			}

			var out struct {
				AgentID       string `json:"agentId"`
				SecurityToken string `json:"securityToken"`
				Tier          string `json:"tier"`
			}
			if err := client.post("/provision", body, &out); err != nil {
				return err
			}

			fmt.Printf("Agent ID:       %s\n", out.AgentID)
			fmt.Printf("Security token: %s\n", out.SecurityToken)
			fmt.Printf("Tier:           %s\n", out.Tier)
			fmt.Println("\nStore the token now; the gateway only returns it in full once.")
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&capabilities, "capabilities", nil, "capabilities to grant (e.g. phone,voiceAi,email)")
	return cmd
}

func newAgentListCmd(server, token *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List provisioned agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := adminClient(*server, *token)
			if err != nil {
				return err
			}

			var out struct {
				Agents []agentView `json:"agents"`
				Count  int         `json:"count"`
			}
			if err := client.get("/agents", &out); err != nil {
				return err
			}

			if out.Count == 0 {
				fmt.Println("No agents provisioned.")
				return nil
			}
			for _, a := range out.Agents {
				fmt.Printf("  %-38s %-20s %-14s tier=%s\n", a.AgentID, a.DisplayName, a.Status, a.Tier)
			}
			return nil
		},
	}
}

func newAgentInfoCmd(server, token *string) *cobra.Command {
	return &cobra.Command{
		Use:   "info <agent-id>",
		Short: "Show details about an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := adminClient(*server, *token)
			if err != nil {
				return err
			}

			var out struct {
				Agents []agentView `json:"agents"`
			}
			if err := client.get("/agents", &out); err != nil {
				return err
			}

			for _, a := range out.Agents {
				if a.AgentID != args[0] {
					continue
				}
				fmt.Printf("Agent: %s (%s)\n", a.AgentID, a.DisplayName)
				fmt.Printf("  Status:  %s\n", a.Status)
				fmt.Printf("  Tier:    %s\n", a.Tier)
				fmt.Printf("  Limits:  %d/minute %d/hour\n",
					a.Limits.MaxActionsPerMinute, a.Limits.MaxActionsPerHour)
				fmt.Printf("  Created: %s\n", a.CreatedAt)
				if len(a.Capabilities) > 0 {
					fmt.Printf("  Capabilities: %s\n", capabilityList(a.Capabilities))
				}
				return nil
			}

			return fmt.Errorf("agent not found: %s", args[0])
		},
	}
}

func newAgentDeprovisionCmd(server, token *string) *cobra.Command {
	return &cobra.Command{
		Use:   "deprovision <agent-id>",
		Short: "Deprovision an agent and revoke its token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := adminClient(*server, *token)
			if err != nil {
				return err
			}

			var out struct {
				AgentID string `json:"agentId"`
				Status  string `json:"status"`
			}
			if err := client.post("/deprovision", map[string]any{"agentId": args[0]}, &out); err != nil {
				return err
			}

			fmt.Printf("Agent %s is now %s.\n", out.AgentID, out.Status)
			return nil
		},
	}
}

func newAgentRegenerateTokenCmd(server, token *string) *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate-token <agent-id>",
		Short: "Rotate an agent's security token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := adminClient(*server, *token)
			if err != nil {
				return err
			}

			var out struct {
				AgentID  string `json:"agentId"`
				Token    string `json:"token"`
				IssuedAt string `json:"issuedAt"`
			}
			path := fmt.Sprintf("/agents/%s/regenerate-token", args[0])
			if err := client.post(path, nil, &out); err != nil {
				return err
			}

			fmt.Printf("New token for %s: %s\n", out.AgentID, out.Token)
			fmt.Println("The previous token is revoked. Store the new one now.")
			return nil
		},
	}
}

func newAgentTokensCmd(server, token *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tokens <agent-id>",
		Short: "List an agent's token history (redacted)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := adminClient(*server, *token)
			if err != nil {
				return err
			}

			var out tokenListView
			if err := client.get(fmt.Sprintf("/agents/%s/tokens", args[0]), &out); err != nil {
				return err
			}

			for _, t := range out.Tokens {
				state := "revoked"
				if t.Live {
					state = "live"
				}
				fmt.Printf("  %-14s %-8s issued %s\n", t.Token, state, t.IssuedAt)
			}
			fmt.Printf("%d token(s)\n", out.Count)
			return nil
		},
	}
}

func capabilityList(caps map[string]bool) string {
	names := make([]string, 0, len(caps))
	for name, enabled := range caps {
		if enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
