package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/digijoe7/mezo-relayer/cmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mezo-relayer",
		Short: "Gas-sponsoring transaction relayer for Mezo",
		Long: `Transaction relayer for smart wallet contracts on Mezo.

The relayer accepts game moves over HTTP and submits them as signed
relayMove transactions from a single funded relayer account, so end
users need neither gas funds nor signing capability. Before every
submission it verifies the target wallet authorizes this relayer,
prices the transaction against live fee data and checks its own
balance covers the worst case cost.`,
	}

	rootCmd.AddCommand(cmd.ServeCmd())
	rootCmd.AddCommand(cmd.CheckCmd())
	rootCmd.AddCommand(cmd.VersionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
