// Package cli implements the ellictl operator commands.
package cli

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand returns the ellictl root command.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ellictl",
		Short: "Operator tools for the Elli screening study",
		Long: `ellictl runs the Elli mental-health check-in from a terminal and
exports collected data.

The chat command drives the same interview state machine the server uses,
writing rows into a local CSV sheet. The export command prints collected
rows or the turn log.`,
		Version:      Version,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewChatCommand())
	cmd.AddCommand(NewExportCommand())

	return cmd
}
