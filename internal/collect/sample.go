package collect

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"
	"time"

	"github.com/brand-agent/backend/internal/storage/models"
)

// SampleFetcher is the documented fallback data path for platforms
// without configured credentials. It produces a deterministic batch of
// plausible mentions so the rest of the pipeline stays exercisable.
type SampleFetcher struct {
	platform string
	now      func() time.Time
}

func NewSampleFetcher(platform string) *SampleFetcher {
	return &SampleFetcher{platform: platform, now: time.Now}
}

func (f *SampleFetcher) Platform() string {
	return f.platform
}

var sampleTemplates = []struct {
	text      string
	sentiment string
}{
	{"Just tried %s and it exceeded my expectations, great job!", "positive"},
	{"Does anyone know how to reach %s support? Been waiting two days.", "negative"},
	{"%s shipped my order a day early. Impressed.", "positive"},
	{"Is the %s outage affecting anyone else right now?", "negative"},
	{"Thinking about switching to %s, any opinions?", "neutral"},
	{"The new %s update broke my workflow, please fix this.", "negative"},
	{"%s customer service resolved my issue in minutes.", "positive"},
	{"Saw %s trending today, curious what happened.", "neutral"},
}

func (f *SampleFetcher) Fetch(ctx context.Context, keywords []string, maxResults, windowDays int) ([]models.Mention, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	subject := f.platform
	if len(keywords) > 0 {
		subject = keywords[0]
	}

	now := f.now()
	seed := fnv.New64a()
	fmt.Fprintf(seed, "%s|%s|%s", f.platform, strings.Join(keywords, ","), now.Format("2006-01-02"))
	rng := rand.New(rand.NewSource(int64(seed.Sum64())))

	count := 5 + rng.Intn(8)
	if count > maxResults {
		count = maxResults
	}

	window := time.Duration(windowDays) * 24 * time.Hour
	mentions := make([]models.Mention, 0, count)
	for i := 0; i < count; i++ {
		template := sampleTemplates[rng.Intn(len(sampleTemplates))]
		mentions = append(mentions, models.Mention{
			ID:        fmt.Sprintf("sample_%s_%d_%d", f.platform, now.Unix(), i),
			Platform:  f.platform,
			Author:    fmt.Sprintf("user_%04d", rng.Intn(10000)),
			Content:   fmt.Sprintf(template.text, subject),
			Likes:     rng.Intn(200),
			Shares:    rng.Intn(50),
			Comments:  rng.Intn(30),
			Followers: rng.Intn(50000),
			PostedAt:  now.Add(-time.Duration(rng.Int63n(int64(window)))),
			FetchedAt: now,
		})
	}
	return mentions, nil
}
