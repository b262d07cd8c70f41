package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/analytics-console/internal/app"
)

func newChatCommand(g *globals) *cobra.Command {
	var (
		sessionID  string
		newSession bool
	)
	cmd := &cobra.Command{
		Use:   "chat MESSAGE...",
		Short: "Ask the agent team a question",
		Long: `Send a chat message to the backend and print the reply.

The session returned by the backend is remembered locally, so the next chat
continues the same conversation. Use --new to start over or --session to
pick a specific one.`,
		Args: cobra.MinimumNArgs(1),
		RunE: g.withConsole(func(cmd *cobra.Command, args []string) error {
			return g.console.Chat(cmd.Context(), app.ChatOptions{
				Message:    strings.Join(args, " "),
				SessionID:  sessionID,
				NewSession: newSession,
			})
		}),
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Continue this session id")
	cmd.Flags().BoolVar(&newSession, "new", false, "Start a new session instead of continuing the remembered one")
	cmd.MarkFlagsMutuallyExclusive("session", "new")
	return cmd
}

func newHealthCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check backend health",
		Args:  cobra.NoArgs,
		RunE: g.withConsole(func(cmd *cobra.Command, args []string) error {
			return g.console.Health(cmd.Context())
		}),
	}
}

func newAgentsCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List registered agents",
		Args:  cobra.NoArgs,
		RunE: g.withConsole(func(cmd *cobra.Command, args []string) error {
			return g.console.Agents(cmd.Context())
		}),
	}
}

func newSessionCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage chat sessions",
	}

	deleteCmd := &cobra.Command{
		Use:   "delete [SESSION_ID]",
		Short: "Delete a session on the backend",
		Long: `Delete a chat session on the backend and forget it locally.

Without an argument the remembered session is deleted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: g.withConsole(func(cmd *cobra.Command, args []string) error {
			var id string
			if len(args) == 1 {
				id = args[0]
			}
			return g.console.DeleteSession(cmd.Context(), id)
		}),
	}

	currentCmd := &cobra.Command{
		Use:   "current",
		Short: "Print the remembered session id",
		Args:  cobra.NoArgs,
		RunE: g.withConsole(func(cmd *cobra.Command, args []string) error {
			return g.console.CurrentSession()
		}),
	}

	cmd.AddCommand(deleteCmd, currentCmd)
	return cmd
}
