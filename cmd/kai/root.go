package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "kai",
	Short: "Autonomous software-delivery agents",
	Long: `KAI plans requests across specialised agents (planner, code writer,
reviewer, fixer, tester, researcher), verifies what they produce, and drives
development tasks from analysis to deployment.

Core capabilities:
- Splits a request into dependent steps and runs independent steps in parallel
- Verifies generated code by compiling it, scanning for secrets and judging it
- Breaks projects into epics, features and tasks
- Moves tasks through a validated lifecycle with branches and pull requests`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ~/.config/kai/config.yaml and .kai.yaml)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(executeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveMetricsCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(decideCmd)
	rootCmd.AddCommand(versionCmd)
}
