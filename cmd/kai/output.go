package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"

	"github.com/ShayCichocki/kai/internal/events"
	"github.com/ShayCichocki/kai/pkg/models"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
)

// printStatus prints a status line with color
func printStatus(w io.Writer, symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Fprintf(w, "%s %s\n", c.Sprint(symbol), message)
}

// statusColor groups task statuses for display.
func statusColor(s models.TaskStatus) color.Attribute {
	switch s {
	case models.TaskDeployed, models.TaskTestPassed, models.TaskApproved, models.TaskMerged:
		return color.FgGreen
	case models.TaskChangesRequested, models.TaskTestFailed, models.TaskBugCreated:
		return color.FgRed
	case models.TaskInProgress, models.TaskPROpened, models.TaskReviewing, models.TaskTesting:
		return color.FgYellow
	default:
		return color.FgWhite
	}
}

// formatEvent renders one stream event as a single line. Events with
// nothing worth showing return "".
func formatEvent(e models.StreamEvent) string {
	switch e.Type {
	case models.EventThinking:
		return "… " + models.Truncate(e.Thought, 200)
	case models.EventToolCall:
		return "→ " + e.Tool
	case models.EventToolResult:
		mark := "✓"
		if e.Success != nil && !*e.Success {
			mark = "✗"
		}
		return fmt.Sprintf("  %s %s", mark, e.Tool)
	case models.EventPlanUpdate:
		line := fmt.Sprintf("[%s] %s", e.StepID, e.Status)
		if e.Description != "" {
			line += " " + models.Truncate(e.Description, 80)
		}
		return line
	case models.EventDelegation:
		return fmt.Sprintf("↪ %s -> %s: %s", e.From, e.To, e.Reason)
	case models.EventCodeGenerated:
		if e.Artifact == nil {
			return ""
		}
		return "✎ " + e.Artifact.Filename
	case models.EventPipelineUpdate:
		return fmt.Sprintf("[task %d] %s", e.TaskID, e.Message)
	case models.EventTaskCreated:
		return fmt.Sprintf("+ task %d %s (%s)", e.TaskID, e.Title, e.Category)
	case models.EventError:
		return "⚠ " + e.Message
	default:
		return ""
	}
}

// printer writes formatted events to w.
func printer(w io.Writer) events.Sink {
	return events.Func(func(e models.StreamEvent) {
		if line := formatEvent(e); line != "" {
			fmt.Fprintln(w, line)
		}
	})
}

// renderTable draws rows under headers with lipgloss.
func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Render()
}

func projectRows(projects []models.Project) [][]string {
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		rows = append(rows, []string{
			strconv.FormatInt(p.ID, 10),
			p.Name,
			string(p.Status),
			models.Truncate(p.Description, 50),
		})
	}
	return rows
}

func taskRows(tasks []models.DevTask) [][]string {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		deps := make([]string, len(t.DependsOn))
		for i, d := range t.DependsOn {
			deps[i] = strconv.FormatInt(d, 10)
		}
		rows = append(rows, []string{
			strconv.FormatInt(t.ID, 10),
			models.Truncate(t.Title, 40),
			string(t.Category),
			string(t.Priority),
			color.New(statusColor(t.Status)).Sprint(string(t.Status)),
			strings.Join(deps, ","),
		})
	}
	return rows
}

// renderStatus prints a project report.
func renderStatus(w io.Writer, r *models.ProjectStatusReport) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s (#%d)", r.Project.Name, r.Project.ID)))
	if r.Project.Description != "" {
		fmt.Fprintln(w, r.Project.Description)
	}
	fmt.Fprintf(w, "\nEpics: %d  Features: %d  Tasks: %d\n", len(r.Epics), len(r.Features), r.TotalTasks)

	var statuses []string
	for _, s := range models.AllTaskStatuses {
		if n := r.TasksByStatus[s]; n > 0 {
			statuses = append(statuses, fmt.Sprintf("%s=%d", s, n))
		}
	}
	sort.Strings(statuses)
	if len(statuses) > 0 {
		fmt.Fprintln(w, strings.Join(statuses, "  "))
	}

	if len(r.Tasks) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, renderTable([]string{"ID", "Title", "Category", "Priority", "Status", "Depends on"}, taskRows(r.Tasks)))
	}
}

// renderHistory prints a task and its transitions.
func renderHistory(w io.Writer, t *models.DevTask, history []models.TaskTransition) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Task %d: %s", t.ID, t.Title)))
	fmt.Fprintf(w, "Status: %s\n", color.New(statusColor(t.Status)).Sprint(string(t.Status)))
	if t.BranchName != "" {
		fmt.Fprintf(w, "Branch: %s\n", t.BranchName)
	}
	if t.PRURL != "" {
		fmt.Fprintf(w, "PR:     %s\n", t.PRURL)
	}
	if len(history) == 0 {
		fmt.Fprintln(w, "\nNo transitions yet.")
		return
	}
	rows := make([][]string, 0, len(history))
	for _, h := range history {
		rows = append(rows, []string{
			h.CreatedAt.Format("2006-01-02 15:04:05"),
			string(h.FromStatus),
			string(h.ToStatus),
			h.TriggeredBy,
			models.Truncate(h.Reason, 60),
		})
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, renderTable([]string{"When", "From", "To", "By", "Reason"}, rows))
}
