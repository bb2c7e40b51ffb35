// Package memory gives agents recall of past episodes, a fact graph and
// per-session context. Every backend failure degrades to an empty result.
package memory

import (
	"context"
	"time"

	"github.com/ShayCichocki/kai/pkg/models"
)

// Episode is a stored record of a completed agent run.
type Episode struct {
	ID                string    `json:"id"`
	TaskDescription   string    `json:"task_description"`
	TrajectorySummary string    `json:"trajectory_summary"`
	OutcomeScore      float64   `json:"outcome_score"`
	Artifacts         []string  `json:"artifacts,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// ScoredEpisode is an episode returned by similarity search.
type ScoredEpisode struct {
	Episode
	// Similarity is in [0, 1], higher is closer.
	Similarity float32 `json:"similarity"`
}

// Fact is a subject-relation-object triple.
type Fact struct {
	Subject  string `json:"subject"`
	Relation string `json:"relation"`
	Object   string `json:"object"`
}

// String renders the fact as "subject --[relation]--> object".
func (f Fact) String() string {
	return f.Subject + " --[" + f.Relation + "]--> " + f.Object
}

// GraphContext is the result of a graph query.
type GraphContext struct {
	Facts    []Fact   `json:"facts"`
	Entities []string `json:"entities"`
}

// Layer is the memory interface agents use.
type Layer interface {
	RecallSimilar(ctx context.Context, query string, limit int) []ScoredEpisode
	QueryGraph(ctx context.Context, entities []string) GraphContext
	StoreEpisode(ctx context.Context, task models.AgentTask, trajectory []models.Step, answer models.Answer) error
	UpdateGraph(ctx context.Context, facts []Fact) error
	SessionContext(ctx context.Context, sessionID string) string
	SetSessionContext(ctx context.Context, sessionID, text string)
}

// EpisodeStore persists episodes and searches them by similarity.
type EpisodeStore interface {
	AddEpisode(ctx context.Context, ep Episode) error
	SearchEpisodes(ctx context.Context, query string, limit int) ([]ScoredEpisode, error)
}

// FactStore persists graph facts.
type FactStore interface {
	AddFacts(ctx context.Context, facts []Fact) error
	FactsAbout(ctx context.Context, entities []string, limit int) ([]Fact, error)
}

// Nop is a Layer that remembers nothing.
type Nop struct{}

func (Nop) RecallSimilar(context.Context, string, int) []ScoredEpisode { return nil }

func (Nop) QueryGraph(_ context.Context, entities []string) GraphContext {
	return GraphContext{Entities: entities}
}

func (Nop) StoreEpisode(context.Context, models.AgentTask, []models.Step, models.Answer) error {
	return nil
}

func (Nop) UpdateGraph(context.Context, []Fact) error { return nil }

func (Nop) SessionContext(context.Context, string) string { return "" }

func (Nop) SetSessionContext(context.Context, string, string) {}

var _ Layer = Nop{}
