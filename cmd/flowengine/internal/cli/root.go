// Package cli implements the flowengine command-line harness, grounded on
// the pack's spf13/cobra root/subcommand idiom (roach88-nysm).
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCommand builds the flowengine root command and its subcommands.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flowengine",
		Short: "Run and validate flow-engine flow documents",
	}

	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newValidateCommand())

	return cmd
}
