package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/brand-agent/backend/pkg/logger"
	"github.com/brand-agent/backend/pkg/utils"
)

// Document is one retrieved piece of brand knowledge (policy text,
// product facts, approved messaging).
type Document struct {
	ID         string
	Title      string
	Content    string
	Source     string
	Category   string
	Confidence float64
}

type Entry struct {
	ID        string
	BrandID   string
	Title     string
	Content   string
	Source    string
	Category  string
	Embedding []float32
	Timestamp time.Time
}

type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingCache stores query embeddings keyed by content hash so
// repeated retrievals skip the embedding call.
type EmbeddingCache interface {
	GetEmbedding(ctx context.Context, textHash string) ([]float32, bool, error)
	SetEmbedding(ctx context.Context, textHash string, embedding []float32, ttl time.Duration) error
}

const embeddingCacheTTL = 24 * time.Hour

// Store retrieves brand knowledge by vector similarity from Milvus.
type Store struct {
	client         client.Client
	embedder       Embedder
	cache          EmbeddingCache
	collectionName string
	vectorDim      int
}

func NewStore(endpoint, apiKey, collectionName string, vectorDim int, embedder Embedder) (*Store, error) {
	c, err := client.NewGrpcClient(context.Background(), endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	logger.Info("Knowledge store initialized",
		zap.String("endpoint", endpoint),
		zap.String("collection", collectionName),
	)

	return &Store{
		client:         c,
		embedder:       embedder,
		collectionName: collectionName,
		vectorDim:      vectorDim,
	}, nil
}

// SetEmbeddingCache attaches an optional embedding cache.
func (s *Store) SetEmbeddingCache(cache EmbeddingCache) {
	s.cache = cache
}

func (s *Store) Close() error {
	return s.client.Close()
}

// embedQuery resolves the query embedding through the cache when one
// is attached. Cache failures degrade to a fresh embedding call.
func (s *Store) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if s.cache == nil {
		return s.embedder.GenerateEmbedding(ctx, query)
	}

	key := utils.HashString(query)
	if embedding, ok, err := s.cache.GetEmbedding(ctx, key); err == nil && ok {
		return embedding, nil
	}

	embedding, err := s.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetEmbedding(ctx, key, embedding, embeddingCacheTTL); err != nil {
		logger.Warn("Failed to cache query embedding", zap.Error(err))
	}
	return embedding, nil
}

func (s *Store) EnsureCollection(ctx context.Context) error {
	has, err := s.client.HasCollection(ctx, s.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if has {
		return nil
	}

	schema := &entity.Schema{
		CollectionName: s.collectionName,
		Description:    "Brand knowledge embeddings",
		Fields: []*entity.Field{
			{
				Name:       "entry_id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", s.vectorDim),
				},
			},
			{
				Name:     "brand_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "title",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "256",
				},
			},
			{
				Name:     "content",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "4096",
				},
			},
			{
				Name:     "source",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "256",
				},
			},
			{
				Name:     "category",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "timestamp",
				DataType: entity.FieldTypeInt64,
			},
		},
	}

	if err := s.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexIvfFlat(entity.L2, 1024)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if err := s.client.CreateIndex(ctx, s.collectionName, "embedding", idx, false); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	if err := s.client.LoadCollection(ctx, s.collectionName, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	logger.Info("Knowledge collection created", zap.String("collection", s.collectionName))
	return nil
}

func (s *Store) Insert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	ids := make([]string, len(entries))
	embeddings := make([][]float32, len(entries))
	brandIDs := make([]string, len(entries))
	titles := make([]string, len(entries))
	contents := make([]string, len(entries))
	sources := make([]string, len(entries))
	categories := make([]string, len(entries))
	timestamps := make([]int64, len(entries))

	for i, e := range entries {
		ids[i] = e.ID
		embeddings[i] = e.Embedding
		brandIDs[i] = e.BrandID
		titles[i] = e.Title
		contents[i] = e.Content
		sources[i] = e.Source
		categories[i] = e.Category
		timestamps[i] = e.Timestamp.Unix()
	}

	_, err := s.client.Insert(
		ctx,
		s.collectionName,
		"",
		entity.NewColumnVarChar("entry_id", ids),
		entity.NewColumnFloatVector("embedding", s.vectorDim, embeddings),
		entity.NewColumnVarChar("brand_id", brandIDs),
		entity.NewColumnVarChar("title", titles),
		entity.NewColumnVarChar("content", contents),
		entity.NewColumnVarChar("source", sources),
		entity.NewColumnVarChar("category", categories),
		entity.NewColumnInt64("timestamp", timestamps),
	)
	if err != nil {
		return fmt.Errorf("failed to insert entries: %w", err)
	}

	if err := s.client.Flush(ctx, s.collectionName, false); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	logger.Info("Knowledge entries inserted", zap.Int("count", len(entries)))
	return nil
}

// Retrieve embeds the query and returns the closest documents,
// optionally filtered by brand and category.
func (s *Store) Retrieve(ctx context.Context, query string, filters map[string]string, topK int) ([]Document, error) {
	embedding, err := s.embedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	expr := ""
	if brandID, ok := filters["brand_id"]; ok && brandID != "" {
		expr = fmt.Sprintf(`brand_id == "%s"`, brandID)
	}
	if category, ok := filters["category"]; ok && category != "" {
		if expr != "" {
			expr += " && "
		}
		expr += fmt.Sprintf(`category == "%s"`, category)
	}

	sp, _ := entity.NewIndexIvfFlatSearchParam(16)

	searchResult, err := s.client.Search(
		ctx,
		s.collectionName,
		[]string{},
		expr,
		[]string{"entry_id", "title", "content", "source", "category"},
		[]entity.Vector{entity.FloatVector(embedding)},
		"embedding",
		entity.L2,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	documents := make([]Document, 0)
	for _, sr := range searchResult {
		for i := 0; i < sr.ResultCount; i++ {
			idCol := sr.Fields.GetColumn("entry_id")
			titleCol := sr.Fields.GetColumn("title")
			contentCol := sr.Fields.GetColumn("content")
			sourceCol := sr.Fields.GetColumn("source")
			categoryCol := sr.Fields.GetColumn("category")

			id, _ := idCol.Get(i)
			title, _ := titleCol.Get(i)
			content, _ := contentCol.Get(i)
			source, _ := sourceCol.Get(i)
			category, _ := categoryCol.Get(i)

			documents = append(documents, Document{
				ID:         id.(string),
				Title:      title.(string),
				Content:    content.(string),
				Source:     source.(string),
				Category:   category.(string),
				Confidence: scoreToConfidence(sr.Scores[i]),
			})
		}
	}

	logger.Info("Knowledge retrieval completed",
		zap.Int("topK", topK),
		zap.Int("results", len(documents)),
		zap.String("filters", expr),
	)
	return documents, nil
}

// scoreToConfidence maps an L2 distance into a (0,1] confidence where
// smaller distances score higher.
func scoreToConfidence(distance float32) float64 {
	return 1.0 / (1.0 + float64(distance))
}
