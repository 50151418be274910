package collect

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/brand-agent/backend/internal/metrics"
	"github.com/brand-agent/backend/internal/storage/models"
	"github.com/brand-agent/backend/pkg/logger"
	"github.com/brand-agent/backend/pkg/utils"
)

// Fetcher retrieves raw mentions for one platform.
type Fetcher interface {
	Platform() string
	Fetch(ctx context.Context, keywords []string, maxResults, windowDays int) ([]models.Mention, error)
}

// Collector fans a collection request out to the registered platform
// fetchers. Platform failures are isolated: a failing fetcher
// contributes zero mentions plus an error record, never aborts the
// other platforms.
type Collector struct {
	fetchers map[string]Fetcher
	timeout  time.Duration
}

type Result struct {
	Mentions []models.Mention
	Errors   map[string]string
}

func NewCollector(timeout time.Duration, fetchers ...Fetcher) *Collector {
	byPlatform := make(map[string]Fetcher, len(fetchers))
	for _, f := range fetchers {
		byPlatform[f.Platform()] = f
	}
	return &Collector{fetchers: byPlatform, timeout: timeout}
}

func (c *Collector) Platforms() []string {
	platforms := make([]string, 0, len(c.fetchers))
	for p := range c.fetchers {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)
	return platforms
}

func (c *Collector) Collect(ctx context.Context, brandID string, platforms, keywords []string, maxResults, windowDays int) Result {
	result := Result{Errors: make(map[string]string)}

	type platformOutcome struct {
		platform string
		mentions []models.Mention
		err      error
	}

	outcomes := make(chan platformOutcome, len(platforms))
	var wg sync.WaitGroup

	for _, platform := range platforms {
		fetcher, ok := c.fetchers[platform]
		if !ok {
			result.Errors[platform] = "no fetcher registered"
			continue
		}

		wg.Add(1)
		go func(platform string, fetcher Fetcher) {
			defer wg.Done()

			fetchCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			mentions, err := fetcher.Fetch(fetchCtx, keywords, maxResults, windowDays)
			outcomes <- platformOutcome{platform: platform, mentions: mentions, err: err}
		}(platform, fetcher)
	}

	wg.Wait()
	close(outcomes)

	seen := make(map[string]struct{})
	for outcome := range outcomes {
		if outcome.err != nil {
			logger.Warn("Platform fetch failed",
				zap.String("platform", outcome.platform), zap.Error(outcome.err))
			result.Errors[outcome.platform] = outcome.err.Error()
			continue
		}
		metrics.MentionsCollected.WithLabelValues(outcome.platform).Add(float64(len(outcome.mentions)))
		for _, m := range outcome.mentions {
			m.BrandID = brandID
			if m.ID == "" {
				m.ID = utils.HashFields(m.Platform, m.Author, m.Content, fmt.Sprintf("%d", m.PostedAt.Unix()))
			}
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
			result.Mentions = append(result.Mentions, m)
		}
	}

	sort.Slice(result.Mentions, func(i, j int) bool {
		return result.Mentions[i].PostedAt.After(result.Mentions[j].PostedAt)
	})

	logger.Info("Collection cycle finished",
		zap.String("brand", brandID),
		zap.Int("mentions", len(result.Mentions)),
		zap.Int("platform_errors", len(result.Errors)),
	)
	return result
}
