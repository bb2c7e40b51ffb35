package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/kai/internal/notify"
)

var decideSection string

var decideCmd = &cobra.Command{
	Use:   "decide <decision>",
	Short: "Record a project decision for the agents",
	Long: `Append a decision to .kai/decisions.md.

Every agent sees the decisions file in its system prompt, so this is the
place for conventions the agents should follow ("use sqlite only",
"wrap errors with %w").`,
	Args: cobra.MinimumNArgs(1),
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

		if err := ws.AppendDecision(decideSection, strings.Join(args, " ")); err != nil {
			return fmt.Errorf("record decision: %w", err)
		}
		printStatus(cmd.OutOrStdout(), "✓", fmt.Sprintf("Recorded under %q in %s", decideSection, ws.Dir()), color.FgGreen)
		return nil
	},
}

func init() {
	decideCmd.Flags().StringVarP(&decideSection, "section", "s", "Constraints", "Heading to record the decision under")
}
