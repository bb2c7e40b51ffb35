package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/kai/internal/pipeline"
	"github.com/ShayCichocki/kai/pkg/models"
)

var transitionReason string

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Inspect and move individual tasks",
}

var taskTransitionCmd = &cobra.Command{
	Use:   "transition <task-id> <STATUS>",
	Short: "Move a task to another status",
	Long: `Move a task to another status. Only lifecycle transitions are accepted;
anything else is rejected and lists the statuses reachable from the
current one.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		to := models.TaskStatus(strings.ToUpper(args[1]))
		if !to.Valid() {
			return fmt.Errorf("unknown status %q", args[1])
		}

		a, err := newApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		task, err := a.pipeline.TransitionTask(cmd.Context(), id, to, transitionReason)
		if err != nil {
			return err
		}
		printStatus(cmd.OutOrStdout(), "✓", fmt.Sprintf("Task %d is now %s", task.ID, task.Status), statusColor(task.Status))
		if next := pipeline.AllowedTransitions(task.Status); len(next) > 0 {
			names := make([]string, len(next))
			for i, s := range next {
				names[i] = string(s)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  next: %s\n", strings.Join(names, ", "))
		}
		return nil
	},
}

var taskHistoryCmd = &cobra.Command{
	Use:   "history <task-id>",
	Short: "Show a task's transitions",
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

		task, history, err := a.pipeline.TaskHistory(cmd.Context(), id)
		if err != nil {
			return err
		}
		renderHistory(cmd.OutOrStdout(), task, history)
		return nil
	},
}

func init() {
	taskTransitionCmd.Flags().StringVarP(&transitionReason, "reason", "r", "", "Why the task moves")
	taskCmd.AddCommand(taskTransitionCmd)
	taskCmd.AddCommand(taskHistoryCmd)
}
