package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd constructs the root command.
func NewRootCmd() *cobra.Command {
	version := os.Getenv("ANYBANK_E2E_VERSION")
	if version == "" {
		version = "0.0.0-dev"
	}

	cmd := &cobra.Command{
		Use:           "anybank-e2e",
		Short:         "Black-box integration harness for the AnyBank platform",
		Long:          "anybank-e2e runs ordered check suites against a live AnyBank deployment:\nthe core banking flow, the debug control plane, and the debug UI in a real browser.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("config", "c", "", "path to config file (default: anybank-e2e.yaml if present)")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "anybank-e2e version %s\n", version)
		},
	})

	cmd.AddCommand(GetRunCmd())

	return cmd
}
