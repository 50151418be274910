package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brand-agent/backend/internal/agents"
	"github.com/brand-agent/backend/internal/collect"
	"github.com/brand-agent/backend/internal/storage/models"
)

type staticFetcher struct {
	platform string
	mentions []models.Mention
}

func (f *staticFetcher) Platform() string { return f.platform }

func (f *staticFetcher) Fetch(ctx context.Context, keywords []string, maxResults, windowDays int) ([]models.Mention, error) {
	return f.mentions, nil
}

type fakeDeduper struct {
	seen map[string]bool
	err  error
}

func (d *fakeDeduper) FilterUnseenMentions(_ context.Context, _ string, mentions []models.Mention, _ time.Duration) ([]models.Mention, error) {
	if d.err != nil {
		return nil, d.err
	}
	unseen := make([]models.Mention, 0, len(mentions))
	for _, m := range mentions {
		if !d.seen[m.ID] {
			unseen = append(unseen, m)
		}
	}
	return unseen, nil
}

func collectTask() *agents.Task {
	return &agents.Task{
		ID:                   "t1",
		RequiredCapabilities: []agents.Capability{agents.CapabilityDataCollection},
		Payload: map[string]interface{}{
			keyBrand:     testBrand(),
			keyPlatforms: []string{models.PlatformTwitter},
			keyKeywords:  []string{"acme"},
		},
		CreatedAt: time.Now(),
	}
}

func TestCollectorWorkerFiltersSeenMentions(t *testing.T) {
	fetcher := &staticFetcher{
		platform: models.PlatformTwitter,
		mentions: []models.Mention{
			testMention("old", models.PlatformTwitter, "seen before"),
			testMention("new", models.PlatformTwitter, "fresh complaint"),
		},
	}
	worker := NewCollectorWorker(
		collect.NewCollector(time.Second, fetcher),
		&fakeDeduper{seen: map[string]bool{"old": true}},
	)

	output, err := worker.Execute(context.Background(), collectTask(), nil)
	require.NoError(t, err)

	mentions, ok := output[keyMentions].([]models.Mention)
	require.True(t, ok)
	require.Len(t, mentions, 1)
	assert.Equal(t, "new", mentions[0].ID)
}

func TestCollectorWorkerKeepsBatchWhenDedupeFails(t *testing.T) {
	fetcher := &staticFetcher{
		platform: models.PlatformTwitter,
		mentions: []models.Mention{
			testMention("m1", models.PlatformTwitter, "hello"),
			testMention("m2", models.PlatformTwitter, "world"),
		},
	}
	worker := NewCollectorWorker(
		collect.NewCollector(time.Second, fetcher),
		&fakeDeduper{err: errors.New("redis down")},
	)

	output, err := worker.Execute(context.Background(), collectTask(), nil)
	require.NoError(t, err)

	mentions, ok := output[keyMentions].([]models.Mention)
	require.True(t, ok)
	assert.Len(t, mentions, 2)
}

func TestCollectorWorkerWithoutDeduper(t *testing.T) {
	fetcher := &staticFetcher{
		platform: models.PlatformTwitter,
		mentions: []models.Mention{testMention("m1", models.PlatformTwitter, "hello")},
	}
	worker := NewCollectorWorker(collect.NewCollector(time.Second, fetcher), nil)

	output, err := worker.Execute(context.Background(), collectTask(), nil)
	require.NoError(t, err)

	mentions, ok := output[keyMentions].([]models.Mention)
	require.True(t, ok)
	assert.Len(t, mentions, 1)
}
