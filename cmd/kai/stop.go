package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/kai/internal/notify"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Ask a running 'kai execute' to stop after its current task",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ws, err := notify.Open(cfg.SCM.RepoPath, nil)
		if err != nil {
			return err
		}
		defer ws.Close()

		if err := ws.RequestStop(); err != nil {
			return fmt.Errorf("write stop signal: %w", err)
		}
		printStatus(cmd.OutOrStdout(), "✓", "Stop requested", color.FgGreen)
		return nil
	},
}
