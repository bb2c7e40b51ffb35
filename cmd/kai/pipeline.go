package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var executeAnalyze bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <project-id>",
	Short: "Break a project into epics, features and tasks",
	Long: `Ask the model to break a project down into epics, features and tasks,
and store them. New tasks start in CREATED. Dependencies are matched by
task title; unknown titles and dependency cycles are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		a, err := newApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		sink, wait := a.stream(out, false)
		result, err := a.pipeline.AnalyzeProject(ctx, id, sink)
		wait()
		if err != nil {
			return err
		}
		printStatus(out, "✓", fmt.Sprintf("Analysis complete: %d epics", len(result.Epics)), color.FgGreen)
		return nil
	},
}

var executeCmd = &cobra.Command{
	Use:   "execute <project-id>",
	Short: "Run the next batch of ready tasks",
	Long: `Plan every CREATED task, promote tasks whose dependencies are deployed,
and take each one through code generation, pull request, review and
deployment. Tasks run one at a time; 'kai stop' ends the batch after the
current task.

With --analyze the project is analyzed first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		a, err := newApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.Close()
		if a.workspace != nil {
			if err := a.workspace.ClearStop(); err != nil {
				a.logger.Warn("clear stop signal", zap.Error(err))
			}
		}

		out := cmd.OutOrStdout()
		sink, wait := a.stream(out, false)
		if executeAnalyze {
			_, _, err = a.pipeline.AnalyzeAndExecute(ctx, id, sink)
		} else {
			_, err = a.pipeline.ExecuteNextTasks(ctx, id, sink)
		}
		wait()
		if err != nil {
			return err
		}

		report, err := a.pipeline.GetProjectStatus(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintln(out)
		renderStatus(out, report)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <project-id>",
	Short: "Show a project's breakdown and task states",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.pipeline.GetProjectStatus(cmd.Context(), id)
		if err != nil {
			return err
		}
		renderStatus(cmd.OutOrStdout(), report)
		return nil
	},
}

func init() {
	executeCmd.Flags().BoolVar(&executeAnalyze, "analyze", false, "Analyze the project before executing")
}
