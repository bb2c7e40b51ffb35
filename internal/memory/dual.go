package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ShayCichocki/kai/pkg/models"
)

// maxGraphFacts bounds the facts returned for one query.
const maxGraphFacts = 20

// Dual combines an episodic store and a fact graph with an in-process
// session map. Either store may be nil.
type Dual struct {
	episodes EpisodeStore
	facts    FactStore
	logger   *zap.Logger

	mu       sync.RWMutex
	sessions map[string]string
}

// NewDual creates a Dual memory layer.
func NewDual(episodes EpisodeStore, facts FactStore, logger *zap.Logger) *Dual {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dual{
		episodes: episodes,
		facts:    facts,
		logger:   logger.Named("memory"),
		sessions: make(map[string]string),
	}
}

// RecallSimilar returns up to limit episodes similar to query.
func (d *Dual) RecallSimilar(ctx context.Context, query string, limit int) []ScoredEpisode {
	if d.episodes == nil || query == "" || limit <= 0 {
		return nil
	}
	eps, err := d.episodes.SearchEpisodes(ctx, query, limit)
	if err != nil {
		d.logger.Warn("episode recall failed", zap.Error(err))
		return nil
	}
	return eps
}

// QueryGraph returns facts mentioning any of the entities.
func (d *Dual) QueryGraph(ctx context.Context, entities []string) GraphContext {
	gc := GraphContext{Entities: entities}
	if d.facts == nil || len(entities) == 0 {
		return gc
	}
	facts, err := d.facts.FactsAbout(ctx, entities, maxGraphFacts)
	if err != nil {
		d.logger.Warn("graph query failed", zap.Error(err))
		return gc
	}
	gc.Facts = facts
	return gc
}

// StoreEpisode summarises and scores a run and stores it.
func (d *Dual) StoreEpisode(ctx context.Context, task models.AgentTask, trajectory []models.Step, answer models.Answer) error {
	if d.episodes == nil {
		return nil
	}
	ep := Episode{
		ID:                uuid.NewString(),
		TaskDescription:   task.Description,
		TrajectorySummary: SummarizeTrajectory(trajectory),
		OutcomeScore:      ScoreOutcome(trajectory, answer),
		CreatedAt:         time.Now().UTC(),
	}
	for _, a := range answer.Artifacts {
		ep.Artifacts = append(ep.Artifacts, a.Filename)
	}
	if err := d.episodes.AddEpisode(ctx, ep); err != nil {
		return fmt.Errorf("store episode: %w", err)
	}
	return nil
}

// UpdateGraph adds facts to the graph.
func (d *Dual) UpdateGraph(ctx context.Context, facts []Fact) error {
	if d.facts == nil || len(facts) == 0 {
		return nil
	}
	if err := d.facts.AddFacts(ctx, facts); err != nil {
		return fmt.Errorf("update graph: %w", err)
	}
	return nil
}

// SessionContext returns the stored context for a session.
func (d *Dual) SessionContext(_ context.Context, sessionID string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.sessions[sessionID]
}

// SetSessionContext replaces the stored context for a session.
func (d *Dual) SetSessionContext(_ context.Context, sessionID, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sessions[sessionID] = text
}

var _ Layer = (*Dual)(nil)
