package memory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/philippgille/chromem-go"
)

const episodeCollection = "kai_episodes"

// ChromemEpisodes stores episodes in an embedded chromem-go database.
type ChromemEpisodes struct {
	collection *chromem.Collection
}

// NewChromemEpisodes opens a persistent store at path, or an in-memory
// store when path is empty.
func NewChromemEpisodes(path string, embedder Embedder) (*ChromemEpisodes, error) {
	var db *chromem.DB
	if path == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(path, true)
		if err != nil {
			return nil, fmt.Errorf("open chromem db %s: %w", path, err)
		}
	}

	embed := func(ctx context.Context, text string) ([]float32, error) {
		return embedder.Embed(ctx, text)
	}
	coll, err := db.GetOrCreateCollection(episodeCollection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("open collection %s: %w", episodeCollection, err)
	}
	return &ChromemEpisodes{collection: coll}, nil
}

// AddEpisode embeds the task description and stores the episode.
func (c *ChromemEpisodes) AddEpisode(ctx context.Context, ep Episode) error {
	doc := chromem.Document{
		ID:      ep.ID,
		Content: ep.TaskDescription,
		Metadata: map[string]string{
			"summary":    ep.TrajectorySummary,
			"score":      strconv.FormatFloat(ep.OutcomeScore, 'f', 3, 64),
			"artifacts":  strings.Join(ep.Artifacts, ","),
			"created_at": ep.CreatedAt.Format(time.RFC3339),
		},
	}
	if err := c.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add episode: %w", err)
	}
	return nil
}

// SearchEpisodes returns up to limit episodes closest to query.
func (c *ChromemEpisodes) SearchEpisodes(ctx context.Context, query string, limit int) ([]ScoredEpisode, error) {
	// chromem requires nResults <= document count.
	count := c.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	results, err := c.collection.Query(ctx, query, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query episodes: %w", err)
	}

	out := make([]ScoredEpisode, 0, len(results))
	for _, r := range results {
		score, _ := strconv.ParseFloat(r.Metadata["score"], 64)
		created, _ := time.Parse(time.RFC3339, r.Metadata["created_at"])
		var artifacts []string
		if a := r.Metadata["artifacts"]; a != "" {
			artifacts = strings.Split(a, ",")
		}
		out = append(out, ScoredEpisode{
			Episode: Episode{
				ID:                r.ID,
				TaskDescription:   r.Content,
				TrajectorySummary: r.Metadata["summary"],
				OutcomeScore:      score,
				Artifacts:         artifacts,
				CreatedAt:         created,
			},
			Similarity: r.Similarity,
		})
	}
	return out, nil
}

var _ EpisodeStore = (*ChromemEpisodes)(nil)
