package state

import (
	"context"
	"io"

	"github.com/ShayCichocki/kai/internal/memory"
	"github.com/ShayCichocki/kai/pkg/models"
)

// ProjectStore handles projects and their epic and feature breakdown.
type ProjectStore interface {
	CreateProject(ctx context.Context, p *models.Project) error
	GetProject(ctx context.Context, id int64) (*models.Project, error)
	ListProjects(ctx context.Context) ([]models.Project, error)
	DeleteProject(ctx context.Context, id int64) error
	CreateEpic(ctx context.Context, e *models.Epic) error
	ListEpics(ctx context.Context, projectID int64) ([]models.Epic, error)
	CreateFeature(ctx context.Context, f *models.Feature) error
	ListFeaturesByEpic(ctx context.Context, epicID int64) ([]models.Feature, error)
	ListFeaturesByProject(ctx context.Context, projectID int64) ([]models.Feature, error)
}

// TaskStore handles development tasks and their lifecycle.
type TaskStore interface {
	CreateTask(ctx context.Context, t *models.DevTask) error
	GetTask(ctx context.Context, id int64) (*models.DevTask, error)
	ListTasks(ctx context.Context, projectID int64, status models.TaskStatus) ([]models.DevTask, error)
	ListTasksByStatus(ctx context.Context, status models.TaskStatus) ([]models.DevTask, error)
	UpdateTask(ctx context.Context, t *models.DevTask) error
	AddDependency(ctx context.Context, taskID, dependsOn int64) error
	TransitionTask(ctx context.Context, taskID int64, to models.TaskStatus, reason, triggeredBy string,
		check func(from, to models.TaskStatus) error) (*models.DevTask, error)
	TaskHistory(ctx context.Context, taskID int64) ([]models.TaskTransition, error)
	SaveTaskOutput(ctx context.Context, o *models.TaskOutput) error
	TaskOutputs(ctx context.Context, taskID int64) ([]models.TaskOutput, error)
}

// Migrator handles database schema migrations.
type Migrator interface {
	Migrate() error
}

// Store is everything KAI persists. Both DB and Memory implement it.
type Store interface {
	io.Closer
	Migrator
	ProjectStore
	TaskStore
	memory.FactStore
}

// Compile-time verification that both backends implement all interfaces.
var (
	_ Store = (*DB)(nil)
	_ Store = (*Memory)(nil)
)
