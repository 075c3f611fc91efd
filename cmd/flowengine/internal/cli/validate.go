package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowcore/flowengine/engine"
)

func newValidateCommand() *cobra.Command {
	var flowPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Parse a flow document and report ConfigErrors without running it",
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := os.ReadFile(flowPath)
			if err != nil {
				return fmt.Errorf("read flow %s: %w", flowPath, err)
			}
			flow, err := engine.DecodeFlow(blob)
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "invalid:", err)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "valid: %d nodes\n", len(flow.Nodes))
			return nil
		},
	}

	cmd.Flags().StringVar(&flowPath, "flow", "", "path to the flow JSON document (required)")
	_ = cmd.MarkFlagRequired("flow")

	return cmd
}
