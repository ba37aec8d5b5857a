package main

import (
	"fmt"
	"os"

	"github.com/alerteye/internal/cli/commands"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "alerteye",
		Short: "AlertEye command line interface",
		Long:  "Manage alerts, rules and notifications from the command line.",
	}

	rootCmd.AddCommand(commands.NewAlertCommand())
	rootCmd.AddCommand(commands.NewSummaryCommand())
	rootCmd.AddCommand(commands.NewStatsCommand())
	rootCmd.AddCommand(commands.NewNotifyCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
