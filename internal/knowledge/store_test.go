package knowledge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls int
}

func (e *countingEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	e.calls++
	return []float32{float32(len(text)), 1, 2}, nil
}

type mapEmbeddingCache struct {
	entries map[string][]float32
}

func newMapEmbeddingCache() *mapEmbeddingCache {
	return &mapEmbeddingCache{entries: make(map[string][]float32)}
}

func (c *mapEmbeddingCache) GetEmbedding(_ context.Context, textHash string) ([]float32, bool, error) {
	embedding, ok := c.entries[textHash]
	return embedding, ok, nil
}

func (c *mapEmbeddingCache) SetEmbedding(_ context.Context, textHash string, embedding []float32, _ time.Duration) error {
	c.entries[textHash] = embedding
	return nil
}

func TestEmbedQueryUsesCacheOnRepeat(t *testing.T) {
	embedder := &countingEmbedder{}
	store := &Store{embedder: embedder, cache: newMapEmbeddingCache()}

	first, err := store.embedQuery(context.Background(), "return policy")
	require.NoError(t, err)
	second, err := store.embedQuery(context.Background(), "return policy")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, embedder.calls)
}

func TestEmbedQueryWithoutCache(t *testing.T) {
	embedder := &countingEmbedder{}
	store := &Store{embedder: embedder}

	_, err := store.embedQuery(context.Background(), "return policy")
	require.NoError(t, err)
	_, err = store.embedQuery(context.Background(), "return policy")
	require.NoError(t, err)

	assert.Equal(t, 2, embedder.calls)
}
