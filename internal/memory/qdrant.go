package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig selects a Qdrant server and collection.
type QdrantConfig struct {
	Host       string
	Port       int
	UseTLS     bool
	APIKey     string
	Collection string
}

// QdrantEpisodes stores episodes in a Qdrant collection.
type QdrantEpisodes struct {
	client     *qdrant.Client
	collection string
	embedder   Embedder
}

// NewQdrantEpisodes connects to Qdrant and creates the collection if needed.
func NewQdrantEpisodes(ctx context.Context, cfg QdrantConfig, embedder Embedder) (*QdrantEpisodes, error) {
	if cfg.Collection == "" {
		cfg.Collection = episodeCollection
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		UseTLS: cfg.UseTLS,
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("connect qdrant: %w", err)
	}

	exists, err := client.CollectionExists(ctx, cfg.Collection)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("check collection %s: %w", cfg.Collection, err)
	}
	if !exists {
		err = client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: cfg.Collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(embedder.Dimensions()),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("create collection %s: %w", cfg.Collection, err)
		}
	}
	return &QdrantEpisodes{client: client, collection: cfg.Collection, embedder: embedder}, nil
}

// Close releases the gRPC connection.
func (q *QdrantEpisodes) Close() error {
	return q.client.Close()
}

func stringValue(s string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
}

// AddEpisode embeds the task description and upserts the episode.
func (q *QdrantEpisodes) AddEpisode(ctx context.Context, ep Episode) error {
	vec, err := q.embedder.Embed(ctx, ep.TaskDescription)
	if err != nil {
		return err
	}
	id := ep.ID
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	_, err = q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDUUID(id),
			Vectors: qdrant.NewVectors(vec...),
			Payload: map[string]*qdrant.Value{
				"task":       stringValue(ep.TaskDescription),
				"summary":    stringValue(ep.TrajectorySummary),
				"artifacts":  stringValue(strings.Join(ep.Artifacts, ",")),
				"created_at": stringValue(ep.CreatedAt.Format(time.RFC3339)),
				"score":      {Kind: &qdrant.Value_DoubleValue{DoubleValue: ep.OutcomeScore}},
			},
		}},
	})
	if err != nil {
		return fmt.Errorf("upsert episode: %w", err)
	}
	return nil
}

// SearchEpisodes returns up to limit episodes closest to query.
func (q *QdrantEpisodes) SearchEpisodes(ctx context.Context, query string, limit int) ([]ScoredEpisode, error) {
	vec, err := q.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(vec...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query episodes: %w", err)
	}

	out := make([]ScoredEpisode, 0, len(points))
	for _, p := range points {
		ep := ScoredEpisode{Similarity: p.Score}
		for k, v := range p.Payload {
			switch val := v.Kind.(type) {
			case *qdrant.Value_StringValue:
				switch k {
				case "task":
					ep.TaskDescription = val.StringValue
				case "summary":
					ep.TrajectorySummary = val.StringValue
				case "artifacts":
					if val.StringValue != "" {
						ep.Artifacts = strings.Split(val.StringValue, ",")
					}
				case "created_at":
					ep.CreatedAt, _ = time.Parse(time.RFC3339, val.StringValue)
				}
			case *qdrant.Value_DoubleValue:
				if k == "score" {
					ep.OutcomeScore = val.DoubleValue
				}
			}
		}
		if p.Id != nil {
			ep.ID = p.Id.GetUuid()
		}
		out = append(out, ep)
	}
	return out, nil
}

var _ EpisodeStore = (*QdrantEpisodes)(nil)
