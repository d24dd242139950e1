package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/voxhollow/switchboard/internal/config"
	"github.com/voxhollow/switchboard/internal/dispatch"
	"github.com/voxhollow/switchboard/internal/domain"
	"github.com/voxhollow/switchboard/internal/gateway"
	"github.com/voxhollow/switchboard/internal/hooks"
	"github.com/voxhollow/switchboard/internal/intake"
	"github.com/voxhollow/switchboard/internal/ledger"
	"github.com/voxhollow/switchboard/internal/logging"
	"github.com/voxhollow/switchboard/internal/mailbox"
	"github.com/voxhollow/switchboard/internal/provider"
	"github.com/voxhollow/switchboard/internal/ratelimit"
	"github.com/voxhollow/switchboard/internal/registry"
	"github.com/voxhollow/switchboard/internal/store"
)

// demoAgentName identifies the standing agent that backs unauthenticated
// requests in demo mode.
const demoAgentName = "Demo Agent"

func newServeCmd() *cobra.Command {
	var (
		port int
		bind string
		mode string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}

			if port != 0 {
				cfg.Server.Port = port
			}
			if bind != "" {
				cfg.Server.Bind = bind
			}
			if mode != "" {
				cfg.Server.Mode = mode
			}

			// The logging section applies unless --log-level pinned a level.
			level := logLevel
			if level == "" {
				level = cfg.Logging.Level
			}
			serveLog, err := logging.NewFromSettings(level, cfg.Logging.File, cfg.Logging.ConsoleStyle)
			if err != nil {
				return fmt.Errorf("opening log file: %w", err)
			}
			log = serveLog

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			if err := paths.EnsureDirs(); err != nil {
				return fmt.Errorf("creating data directories: %w", err)
			}

			hookMgr := hooks.NewManager(log)

			// Pick the persistence backend (SQLite or in-memory).
			var (
				agentStore   registry.Store
				ledgerStore  ledger.Store
				mailboxStore mailbox.Store
			)
			if cfg.Store.Backend == "sqlite" {
				dbPath := paths.StorePath(&cfg)
				db, err := store.Open(dbPath, log)
				if err != nil {
					return fmt.Errorf("opening database: %w", err)
				}
				defer db.Close()
				agentStore = store.NewSQLiteAgentStore(db)
				ledgerStore = store.NewSQLiteLedgerStore(db)
				mailboxStore = store.NewSQLiteMailboxStore(db)
				log.Info().Str("path", dbPath).Msg("using SQLite store")
			} else {
				agentStore = registry.NewMemoryStore()
				ledgerStore = ledger.NewMemoryStore()
				mailboxStore = mailbox.NewMemoryStore()
				log.Info().Msg("using in-memory store — state is lost on restart")
			}

			agents := registry.New(agentStore, log, registry.Defaults{
				Limits: cfg.Limits.RateLimits(),
				Tier:   domain.Tier(cfg.Billing.DefaultTier),
			})
			led := ledger.New(ledgerStore, log)
			mb := mailbox.New(mailboxStore, log, cfg.Mailbox.MaxPerAgent)

			providers, err := provider.NewRegistryFromConfig(cfg.Providers, log)
			if err != nil {
				return fmt.Errorf("configuring providers: %w", err)
			}
			log.Info().Strs("providers", providers.List()).Msg("channel providers ready")

			gate := ratelimit.New(log)
			timeout := time.Duration(cfg.Providers.TimeoutSeconds) * time.Second
			dispatcher := dispatch.New(gate, led, providers, hookMgr, timeout, log)

			opts := []gateway.ServerOption{gateway.WithHooks(hookMgr)}

			if cfg.Demo() {
				demo, err := demoAgent(agents)
				if err != nil {
					return fmt.Errorf("provisioning demo agent: %w", err)
				}
				opts = append(opts, gateway.WithDemoAgent(demo.ID))
				log.Info().Str("agentId", demo.ID).Msg("demo agent ready")
			}

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Inbound intake sources feed agent mailboxes.
			sources := intake.NewRegistry(log)
			if im := cfg.Intake.IMAP; im != nil && im.Enabled {
				sources.Register(intake.NewIMAP(*im, mb, hookMgr, log))
			}
			if sources.Count() > 0 {
				if err := sources.StartAll(ctx); err != nil {
					return fmt.Errorf("starting intake sources: %w", err)
				}
				defer sources.StopAll(context.Background())
			}

			srv := gateway.New(cfg, log, gateway.Deps{
				Registry:   agents,
				Dispatcher: dispatcher,
				Ledger:     led,
				Mailbox:    mb,
				Providers:  providers,
			}, opts...)

			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override listen port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (auto, lan, loopback, custom)")
	cmd.Flags().StringVar(&mode, "mode", "", "override server mode (demo, live)")

	return cmd
}

// demoAgent returns the standing demo agent, provisioning one on first
// start. On a persistent store the previous demo agent is reused so its
// ledger and mailbox survive restarts.
func demoAgent(agents *registry.Service) (*domain.Agent, error) {
	existing, err := agents.List()
	if err != nil {
		return nil, err
	}
	for _, a := range existing {
		if a.DisplayName == demoAgentName && a.Active() {
			return a, nil
		}
	}
	caps := map[string]bool{"phone": true, "voiceAi": true, "email": true}
	agent, _, err := agents.Provision(demoAgentName, caps)
	return agent, err
}
