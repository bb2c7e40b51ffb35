package models

import (
	"strings"
	"time"
)

// TaskStatus is the lifecycle state of a development task.
type TaskStatus string

const (
	// TaskCreated is the initial state after analysis.
	TaskCreated TaskStatus = "CREATED"
	// TaskPlanned means the task is scheduled and waits on dependencies.
	TaskPlanned TaskStatus = "PLANNED"
	// TaskReady means all dependencies are deployed.
	TaskReady TaskStatus = "READY"
	// TaskInProgress means code is being generated.
	TaskInProgress TaskStatus = "IN_PROGRESS"
	// TaskPROpened means a pull request exists.
	TaskPROpened TaskStatus = "PR_OPENED"
	// TaskReviewing means the change is under review.
	TaskReviewing TaskStatus = "REVIEWING"
	// TaskChangesRequested means review asked for changes.
	TaskChangesRequested TaskStatus = "CHANGES_REQUESTED"
	// TaskApproved means review passed.
	TaskApproved TaskStatus = "APPROVED"
	// TaskMerged means the change is merged.
	TaskMerged TaskStatus = "MERGED"
	// TaskTesting means tests are running.
	TaskTesting TaskStatus = "TESTING"
	// TaskTestPassed means tests passed.
	TaskTestPassed TaskStatus = "TEST_PASSED"
	// TaskTestFailed means tests failed.
	TaskTestFailed TaskStatus = "TEST_FAILED"
	// TaskDeployed is terminal.
	TaskDeployed TaskStatus = "DEPLOYED"
	// TaskBugCreated means a failure was filed and the task restarts.
	TaskBugCreated TaskStatus = "BUG_CREATED"
)

// AllTaskStatuses lists every status in lifecycle order.
var AllTaskStatuses = []TaskStatus{
	TaskCreated, TaskPlanned, TaskReady, TaskInProgress, TaskPROpened, TaskReviewing,
	TaskChangesRequested, TaskApproved, TaskMerged, TaskTesting, TaskTestPassed,
	TaskTestFailed, TaskDeployed, TaskBugCreated,
}

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	for _, known := range AllTaskStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// TaskCategory is the kind of work a task represents.
type TaskCategory string

const (
	CategoryDesign        TaskCategory = "DESIGN"
	CategoryBackend       TaskCategory = "BACKEND"
	CategoryFrontend      TaskCategory = "FRONTEND"
	CategoryDevOps        TaskCategory = "DEVOPS"
	CategoryTesting       TaskCategory = "TESTING"
	CategoryDocumentation TaskCategory = "DOCUMENTATION"
)

// ParseCategory parses a category, defaulting to BACKEND.
func ParseCategory(s string) TaskCategory {
	switch c := TaskCategory(strings.ToUpper(strings.TrimSpace(s))); c {
	case CategoryDesign, CategoryBackend, CategoryFrontend, CategoryDevOps, CategoryTesting, CategoryDocumentation:
		return c
	default:
		return CategoryBackend
	}
}

// TaskPriority orders tasks by urgency.
type TaskPriority string

const (
	PriorityCritical TaskPriority = "CRITICAL"
	PriorityHigh     TaskPriority = "HIGH"
	PriorityMedium   TaskPriority = "MEDIUM"
	PriorityLow      TaskPriority = "LOW"
)

// ParsePriority parses a priority, defaulting to MEDIUM.
func ParsePriority(s string) TaskPriority {
	switch p := TaskPriority(strings.ToUpper(strings.TrimSpace(s))); p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return p
	default:
		return PriorityMedium
	}
}

// ProjectStatus is the state of a tracked project.
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "ACTIVE"
	ProjectPaused    ProjectStatus = "PAUSED"
	ProjectCompleted ProjectStatus = "COMPLETED"
	ProjectArchived  ProjectStatus = "ARCHIVED"
)

// Output types saved against a task.
const (
	OutputCodeGeneration = "CODE_GENERATION"
	OutputReview         = "REVIEW"
)

// Project is a tracked software project.
type Project struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	RepoURL     string        `json:"repo_url,omitempty"`
	Status      ProjectStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Epic groups features of a project.
type Epic struct {
	ID          int64  `json:"id"`
	ProjectID   int64  `json:"project_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	// Order is the position of the epic within its project.
	Order int `json:"order"`
}

// Feature groups tasks of an epic.
type Feature struct {
	ID                 int64  `json:"id"`
	EpicID             int64  `json:"epic_id"`
	Title              string `json:"title"`
	Description        string `json:"description"`
	AcceptanceCriteria string `json:"acceptance_criteria,omitempty"`
}

// DevTask is a schedulable unit of development work.
type DevTask struct {
	ID            int64        `json:"id"`
	FeatureID     int64        `json:"feature_id"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	Category      TaskCategory `json:"category"`
	Priority      TaskPriority `json:"priority"`
	Status        TaskStatus   `json:"status"`
	AssignedAgent string       `json:"assigned_agent,omitempty"`
	BranchName    string       `json:"branch_name,omitempty"`
	PRURL         string       `json:"pr_url,omitempty"`
	// DependsOn lists task IDs that must be DEPLOYED first.
	DependsOn []int64 `json:"depends_on,omitempty"`
	// EstimatedComplexity is in the range 1-5.
	EstimatedComplexity int       `json:"estimated_complexity"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// ClampComplexity limits c to the range 1-5.
func ClampComplexity(c int) int {
	if c < 1 {
		return 1
	}
	if c > 5 {
		return 5
	}
	return c
}

// TaskTransition is an immutable record of a status change.
type TaskTransition struct {
	ID          int64      `json:"id"`
	TaskID      int64      `json:"task_id"`
	FromStatus  TaskStatus `json:"from_status"`
	ToStatus    TaskStatus `json:"to_status"`
	Reason      string     `json:"reason,omitempty"`
	TriggeredBy string     `json:"triggered_by"`
	CreatedAt   time.Time  `json:"created_at"`
}

// TaskOutput is an artifact recorded while processing a task.
type TaskOutput struct {
	ID         int64     `json:"id"`
	TaskID     int64     `json:"task_id"`
	OutputType string    `json:"output_type"`
	Content    string    `json:"content"`
	Agent      string    `json:"agent"`
	CreatedAt  time.Time `json:"created_at"`
}

// ProjectStatusReport aggregates the state of a project.
type ProjectStatusReport struct {
	Project       Project            `json:"project"`
	TotalTasks    int                `json:"total_tasks"`
	TasksByStatus map[TaskStatus]int `json:"tasks_by_status"`
	Epics         []Epic             `json:"epics"`
	Features      []Feature          `json:"features"`
	Tasks         []DevTask          `json:"tasks"`
}

// AnalysisResult is the decomposition returned by project analysis.
type AnalysisResult struct {
	Epics []EpicPlan `json:"epics"`
}

// EpicPlan is an epic proposed by analysis.
type EpicPlan struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Features    []FeaturePlan `json:"features"`
}

// FeaturePlan is a feature proposed by analysis.
type FeaturePlan struct {
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	AcceptanceCriteria string     `json:"acceptanceCriteria"`
	Tasks              []TaskPlan `json:"tasks"`
}

// TaskPlan is a task proposed by analysis.
type TaskPlan struct {
	Title               string   `json:"title"`
	Description         string   `json:"description"`
	Category            string   `json:"category"`
	Priority            string   `json:"priority"`
	EstimatedComplexity int      `json:"estimatedComplexity"`
	DependsOnTitles     []string `json:"dependsOnTitles"`
}
