package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newMessageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "message",
		Short: "Send and inspect messages through a running gateway",
	}

	cmd.AddCommand(newMessageSendCmd())
	cmd.AddCommand(newMessageInboxCmd())
	return cmd
}

func newMessageSendCmd() *cobra.Command {
	var (
		server  string
		token   string
		to      string
		channel string
		subject string
	)

	cmd := &cobra.Command{
		Use:   "send [body]",
		Short: "Send an outbound message as an agent",
		Long: "Sends a message through the gateway's send-message route. The channel is\n" +
			"inferred from the recipient unless --channel forces one. Without --token the\n" +
			"request is unauthenticated, which demo mode maps to the standing demo agent.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if to == "" {
				return fmt.Errorf("--to is required")
			}

			client, err := agentClient(server, token)
			if err != nil {
				return err
			}

			body := map[string]any{
				"to":   to,
				"body": strings.Join(args, " "),
			}
			if channel != "" {
				body["channel"] = channel
			}
			if subject != "" {
				body["subject"] = subject
			}

			var out struct {
				Channel    string `json:"channel"`
				Provider   string `json:"provider"`
				MessageSid string `json:"messageSid"`
			}
			if err := client.post("/send-message", body, &out); err != nil {
				return err
			}

			fmt.Printf("Sent via %s (%s provider), ref %s\n", out.Channel, out.Provider, out.MessageSid)
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "gateway base URL (default http://127.0.0.1:<configured port>)")
	cmd.Flags().StringVar(&token, "token", "", "agent security token")
	cmd.Flags().StringVar(&to, "to", "", "recipient phone number or email address")
	cmd.Flags().StringVar(&channel, "channel", "", "force the channel (sms, email)")
	cmd.Flags().StringVar(&subject, "subject", "", "subject line for email")

	return cmd
}

func newMessageInboxCmd() *cobra.Command {
	var (
		server string
		token  string
	)

	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "List an agent's waiting messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := agentClient(server, token)
			if err != nil {
				return err
			}

			var out struct {
				AgentID  string `json:"agentId"`
				Messages []struct {
					ID         string `json:"id"`
					Channel    string `json:"channel"`
					From       string `json:"from"`
					Subject    string `json:"subject"`
					Body       string `json:"body"`
					ReceivedAt string `json:"receivedAt"`
				} `json:"messages"`
				Count int `json:"count"`
			}
			if err := client.get("/waiting-messages", &out); err != nil {
				return err
			}

			if out.Count == 0 {
				fmt.Println("No waiting messages.")
				return nil
			}
			for _, m := range out.Messages {
				line := m.Body
				if m.Subject != "" {
					line = m.Subject + ": " + line
				}
				fmt.Printf("  [%s] %s %s — %s\n", m.Channel, m.ReceivedAt, m.From, line)
			}
			fmt.Printf("%d message(s) waiting for %s\n", out.Count, out.AgentID)
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "gateway base URL (default http://127.0.0.1:<configured port>)")
	cmd.Flags().StringVar(&token, "token", "", "agent security token")

	return cmd
}
