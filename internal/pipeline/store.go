package pipeline

import (
	"context"

	"github.com/ShayCichocki/kai/internal/events"
	"github.com/ShayCichocki/kai/internal/memory"
	"github.com/ShayCichocki/kai/internal/scm"
	"github.com/ShayCichocki/kai/pkg/models"
)

// Store is the persistence the pipeline needs. state.DB and state.Memory
// implement it.
type Store interface {
	GetProject(ctx context.Context, id int64) (*models.Project, error)
	CreateEpic(ctx context.Context, e *models.Epic) error
	ListEpics(ctx context.Context, projectID int64) ([]models.Epic, error)
	CreateFeature(ctx context.Context, f *models.Feature) error
	ListFeaturesByProject(ctx context.Context, projectID int64) ([]models.Feature, error)
	CreateTask(ctx context.Context, t *models.DevTask) error
	GetTask(ctx context.Context, id int64) (*models.DevTask, error)
	ListTasks(ctx context.Context, projectID int64, status models.TaskStatus) ([]models.DevTask, error)
	UpdateTask(ctx context.Context, t *models.DevTask) error
	AddDependency(ctx context.Context, taskID, dependsOn int64) error
	TransitionTask(ctx context.Context, taskID int64, to models.TaskStatus, reason, triggeredBy string,
		check func(from, to models.TaskStatus) error) (*models.DevTask, error)
	TaskHistory(ctx context.Context, taskID int64) ([]models.TaskTransition, error)
	SaveTaskOutput(ctx context.Context, o *models.TaskOutput) error
}

// Analyzer answers the project analysis prompt. llm.Reasoner satisfies it.
type Analyzer interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

// Processor runs a request through the agents. *controller.Controller
// satisfies it.
type Processor interface {
	Process(ctx context.Context, request, sessionID string, sink events.Sink) (*models.AgentResponse, error)
}

// SourceControl creates branches and pull requests. scm.Client satisfies it.
type SourceControl = scm.SourceControl

// GraphUpdater records facts about the breakdown so agents can recall
// how tasks relate. memory.Layer satisfies it.
type GraphUpdater interface {
	UpdateGraph(ctx context.Context, facts []memory.Fact) error
}

// StopSignal reports whether a stop was requested. notify.Workspace
// satisfies it.
type StopSignal interface {
	ShouldStop() bool
}
