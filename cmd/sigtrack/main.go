package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:           "sigtrack",
	Short:         "sigtrack - live signal activity timeline",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the engine with the HTTP API or an MCP stdio session",
	RunE:  runServe,
}

var replayCmd = &cobra.Command{
	Use:   "replay <file>",
	Short: "Feed a recorded event file through a fresh engine and print the result",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config (default $SIGTRACK_CONFIG_PATH)")
	replayCmd.Flags().BoolVar(&replayExport, "export", false, "Print the full export instead of stats")
	replayCmd.Flags().BoolVar(&replayArchive, "archive", false, "Persist the export and annotations to the configured database")
	replayCmd.Flags().StringVar(&replayWindow, "window", "", "Time window to report on")
	rootCmd.AddCommand(serveCmd, replayCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
