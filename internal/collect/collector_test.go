package collect

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brand-agent/backend/internal/storage/models"
)

type fakeFetcher struct {
	platform string
	mentions []models.Mention
	err      error
}

func (f *fakeFetcher) Platform() string { return f.platform }
func (f *fakeFetcher) Fetch(ctx context.Context, keywords []string, maxResults, windowDays int) ([]models.Mention, error) {
	return f.mentions, f.err
}

func TestCollectIsolatesPlatformFailures(t *testing.T) {
	good := &fakeFetcher{
		platform: models.PlatformTwitter,
		mentions: []models.Mention{
			{ID: "t1", Platform: models.PlatformTwitter, Content: "works great", PostedAt: time.Now()},
		},
	}
	bad := &fakeFetcher{platform: models.PlatformReddit, err: errors.New("rate limited")}

	collector := NewCollector(time.Second, good, bad)
	result := collector.Collect(context.Background(), "acme",
		[]string{models.PlatformTwitter, models.PlatformReddit}, []string{"acme"}, 50, 1)

	require.Len(t, result.Mentions, 1)
	assert.Equal(t, "acme", result.Mentions[0].BrandID)
	assert.Contains(t, result.Errors[models.PlatformReddit], "rate limited")
	assert.NotContains(t, result.Errors, models.PlatformTwitter)
}

func TestCollectDeduplicatesByID(t *testing.T) {
	posted := time.Now()
	a := &fakeFetcher{
		platform: models.PlatformTwitter,
		mentions: []models.Mention{
			{ID: "dup", Platform: models.PlatformTwitter, Content: "same", PostedAt: posted},
			{ID: "dup", Platform: models.PlatformTwitter, Content: "same", PostedAt: posted},
			{Platform: models.PlatformTwitter, Author: "u", Content: "no id", PostedAt: posted},
		},
	}

	collector := NewCollector(time.Second, a)
	result := collector.Collect(context.Background(), "acme",
		[]string{models.PlatformTwitter}, []string{"acme"}, 50, 1)

	require.Len(t, result.Mentions, 2)
	for _, m := range result.Mentions {
		assert.NotEmpty(t, m.ID)
	}
}

func TestCollectUnknownPlatformRecorded(t *testing.T) {
	collector := NewCollector(time.Second)
	result := collector.Collect(context.Background(), "acme", []string{"myspace"}, []string{"acme"}, 50, 1)

	assert.Empty(t, result.Mentions)
	assert.Equal(t, "no fetcher registered", result.Errors["myspace"])
}

func TestSampleFetcherDeterministicWithinDay(t *testing.T) {
	fixed := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)
	f := NewSampleFetcher(models.PlatformInstagram)
	f.now = func() time.Time { return fixed }

	first, err := f.Fetch(context.Background(), []string{"acme"}, 50, 1)
	require.NoError(t, err)
	second, err := f.Fetch(context.Background(), []string{"acme"}, 50, 1)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Content, second[i].Content)
		assert.Equal(t, first[i].Author, second[i].Author)
	}
	assert.NotEmpty(t, first)
	for _, m := range first {
		assert.Equal(t, models.PlatformInstagram, m.Platform)
		assert.Contains(t, m.Content, "acme")
	}
}

func TestSampleFetcherRespectsMaxResults(t *testing.T) {
	f := NewSampleFetcher(models.PlatformFacebook)
	mentions, err := f.Fetch(context.Background(), []string{"acme"}, 3, 1)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(mentions), 3)
}

func TestMetaFetcherFallsBackWithoutCredentials(t *testing.T) {
	f := NewMetaFetcher(models.PlatformFacebook, "", time.Second)

	mentions, err := f.Fetch(context.Background(), []string{"acme"}, 10, 1)
	require.NoError(t, err)
	require.NotEmpty(t, mentions)
	for _, m := range mentions {
		assert.Equal(t, models.PlatformFacebook, m.Platform)
	}
}
