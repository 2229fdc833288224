package services

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"sort"
	"strconv"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"alfredoptarigan/resumeiq/internal/models"
)

const (
	profileDocType  = "reference_profile"
	embeddingSize   = 768 // text-embedding-004
	maxExcerptRunes = 240
)

// ProfileIndex ranks stored reference profiles by similarity to a resume.
type ProfileIndex interface {
	Enabled() bool
	IndexProfile(ctx context.Context, profile models.ReferenceProfile) error
	RemoveProfile(ctx context.Context, profileID string) error
	Clear(ctx context.Context) error
	Search(ctx context.Context, text string, limit int) ([]models.SimilarProfile, error)
}

// VectorPoint is one embedded profile chunk.
type VectorPoint struct {
	ID        string
	ProfileID string
	Name      string
	Text      string
	Vector    []float32
}

type VectorHit struct {
	ProfileID string
	Name      string
	Text      string
	Score     float32
}

// VectorStore is the subset of a vector database the profile index needs.
type VectorStore interface {
	EnsureCollection(ctx context.Context) error
	Upsert(ctx context.Context, points []VectorPoint) error
	DeleteByProfile(ctx context.Context, profileID string) error
	DeleteAll(ctx context.Context) error
	Query(ctx context.Context, vector []float32, limit int) ([]VectorHit, error)
}

type qdrantStore struct {
	client         *qdrant.Client
	collectionName string
	vectorSize     uint64
}

func NewQdrantStore(urlStr, apiKey, collectionName string) (VectorStore, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsed.Hostname()
	useTLS := parsed.Scheme == "https"

	// gRPC port
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &qdrantStore{
		client:         client,
		collectionName: collectionName,
		vectorSize:     embeddingSize,
	}, nil
}

func (q *qdrantStore) EnsureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		log.Printf("✅ Qdrant collection '%s' already exists\n", q.collectionName)
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	log.Printf("✅ Qdrant collection '%s' created successfully\n", q.collectionName)
	return nil
}

func (q *qdrantStore) Upsert(ctx context.Context, points []VectorPoint) error {
	if len(points) == 0 {
		return nil
	}

	structs := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		structs = append(structs, &qdrant.PointStruct{
			Id:      qdrant.NewID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"profile_id": p.ProfileID,
				"name":       p.Name,
				"doc_type":   profileDocType,
				"text":       p.Text,
			}),
		})
	}

	if _, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Points:         structs,
	}); err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

func (q *qdrantStore) DeleteByProfile(ctx context.Context, profileID string) error {
	return q.deleteWhere(ctx, qdrant.NewMatch("profile_id", profileID))
}

func (q *qdrantStore) DeleteAll(ctx context.Context) error {
	return q.deleteWhere(ctx, qdrant.NewMatch("doc_type", profileDocType))
}

func (q *qdrantStore) deleteWhere(ctx context.Context, cond *qdrant.Condition) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collectionName,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{Must: []*qdrant.Condition{cond}},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete points: %w", err)
	}
	return nil
}

func (q *qdrantStore) Query(ctx context.Context, vector []float32, limit int) ([]VectorHit, error) {
	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collectionName,
		Query:          qdrant.NewQuery(vector...),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("doc_type", profileDocType)},
		},
		Limit:       qdrant.PtrOf(uint64(limit)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	hits := make([]VectorHit, 0, len(points))
	for _, point := range points {
		hits = append(hits, VectorHit{
			ProfileID: payloadString(point.Payload, "profile_id"),
			Name:      payloadString(point.Payload, "name"),
			Text:      payloadString(point.Payload, "text"),
			Score:     point.Score,
		})
	}
	return hits, nil
}

func payloadString(payload map[string]*qdrant.Value, key string) string {
	if v, ok := payload[key]; ok {
		if s, ok := v.GetKind().(*qdrant.Value_StringValue); ok {
			return s.StringValue
		}
	}
	return ""
}

type vectorProfileIndex struct {
	store    VectorStore
	embedder Embedder
	chunker  TextChunker
}

// NewProfileIndex chunks and embeds profiles into store.
func NewProfileIndex(store VectorStore, embedder Embedder, chunker TextChunker) ProfileIndex {
	return &vectorProfileIndex{store: store, embedder: embedder, chunker: chunker}
}

func (v *vectorProfileIndex) Enabled() bool { return true }

func (v *vectorProfileIndex) IndexProfile(ctx context.Context, profile models.ReferenceProfile) error {
	chunks := v.chunker.ChunkText(profile.Content, defaultChunkSize, defaultChunkOverlap)

	points := make([]VectorPoint, 0, len(chunks))
	for _, chunk := range chunks {
		embedding, err := v.embedder.GenerateEmbedding(ctx, chunk)
		if err != nil {
			return fmt.Errorf("failed to embed profile %s: %w", profile.ID, err)
		}
		points = append(points, VectorPoint{
			ID:        uuid.NewString(),
			ProfileID: profile.ID,
			Name:      profile.Name,
			Text:      chunk,
			Vector:    embedding,
		})
	}
	return v.store.Upsert(ctx, points)
}

func (v *vectorProfileIndex) RemoveProfile(ctx context.Context, profileID string) error {
	return v.store.DeleteByProfile(ctx, profileID)
}

func (v *vectorProfileIndex) Clear(ctx context.Context) error {
	return v.store.DeleteAll(ctx)
}

// Search scores each profile by its best matching chunk.
func (v *vectorProfileIndex) Search(ctx context.Context, text string, limit int) ([]models.SimilarProfile, error) {
	embedding, err := v.embedder.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	// Several chunks can belong to one profile, so over-fetch before grouping.
	hits, err := v.store.Query(ctx, embedding, limit*4)
	if err != nil {
		return nil, err
	}

	best := make(map[string]models.SimilarProfile)
	for _, hit := range hits {
		if hit.ProfileID == "" {
			continue
		}
		if cur, ok := best[hit.ProfileID]; ok && cur.Score >= hit.Score {
			continue
		}
		best[hit.ProfileID] = models.SimilarProfile{
			ProfileID: hit.ProfileID,
			Name:      hit.Name,
			Score:     hit.Score,
			Excerpt:   excerpt(hit.Text),
		}
	}

	results := make([]models.SimilarProfile, 0, len(best))
	for _, p := range best {
		results = append(results, p)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ProfileID < results[j].ProfileID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func excerpt(text string) string {
	if utf8.RuneCountInString(text) <= maxExcerptRunes {
		return text
	}
	return string([]rune(text)[:maxExcerptRunes]) + "..."
}

// nopProfileIndex is used when no vector store or embedder is configured.
type nopProfileIndex struct{}

func NewNopProfileIndex() ProfileIndex { return nopProfileIndex{} }

func (nopProfileIndex) Enabled() bool { return false }

func (nopProfileIndex) IndexProfile(context.Context, models.ReferenceProfile) error { return nil }

func (nopProfileIndex) RemoveProfile(context.Context, string) error { return nil }

func (nopProfileIndex) Clear(context.Context) error { return nil }

func (nopProfileIndex) Search(context.Context, string, int) ([]models.SimilarProfile, error) {
	return nil, &models.ConfigurationError{
		Backend: "profile index",
		Message: "set QDRANT_URL and GEMINI_API_KEY to enable profile similarity search",
	}
}
