// Package cli provides the analyticsctl commands.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/analytics-console/internal/app"
	"github.com/samvad-hq/analytics-console/internal/config"
	"github.com/samvad-hq/analytics-console/internal/logger"
)

// globals holds flag values and the runtime built before each command.
type globals struct {
	apiURL   string
	output   string
	logLevel string

	console *app.Console
}

// NewRootCommand assembles the command tree.
func NewRootCommand() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   "analyticsctl",
		Short: "Talk to the manufacturing analytics backend",
		Long: `analyticsctl is a command-line client for the analytics backend.

It sends chat questions to the agent team, checks backend health, lists the
registered agents and manages chat sessions. The backend address comes from
API_URL (default http://localhost:8000) or --api-url.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&g.apiURL, "api-url", "", "Backend base URL (overrides API_URL)")
	root.PersistentFlags().StringVarP(&g.output, "output", "o", "", "Output format: text, json or yaml")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		newChatCommand(g),
		newHealthCommand(g),
		newAgentsCommand(g),
		newSessionCommand(g),
	)
	return root
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// withConsole builds the runtime before fn and always tears it down after.
func (g *globals) withConsole(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		if err := g.setup(cmd); err != nil {
			return err
		}
		defer func() {
			err = errors.Join(err, g.teardown())
		}()
		return fn(cmd, args)
	}
}

func (g *globals) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("api-url") {
		cfg.APIURL = g.apiURL
	}
	if flags.Changed("output") {
		cfg.OutputFormat = g.output
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = g.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	console, err := app.NewConsole(cfg, log, cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("init console: %w", err)
	}

	g.console = console
	return nil
}

func (g *globals) teardown() error {
	var errs []error
	if g.console != nil {
		if err := g.console.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close console: %w", err))
		}
		g.console = nil
	}
	// Sync on stderr fails with EINVAL on some platforms; nothing useful to report.
	_ = logger.Close()
	return errors.Join(errs...)
}
