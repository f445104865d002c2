// Package cmd implements the CLI of the application.
//
// serve   - The main bot service entry point
// migrate - Initiate a database migration manually
// warn    - Manage a user's warnings from the shell
// history - Show a user's moderation action log
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:   "gwarden",
	Short: "Chat moderation bot with automod rules and durable moderation records",
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	setupCLI()

	if errExecute := rootCmd.Execute(); errExecute != nil {
		os.Exit(1)
	}
}

func setupCLI() {
	if BuildVersion == "" {
		BuildVersion = "master"
	}

	rootCmd.Version = BuildVersion
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(warnCmd())
	rootCmd.AddCommand(historyCmd())
}
