package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brand-agent/backend/internal/storage/models"
)

type RedditFetcher struct {
	httpClient *http.Client
}

func NewRedditFetcher(timeout time.Duration) *RedditFetcher {
	return &RedditFetcher{httpClient: &http.Client{Timeout: timeout}}
}

func (f *RedditFetcher) Platform() string {
	return models.PlatformReddit
}

func (f *RedditFetcher) Fetch(ctx context.Context, keywords []string, maxResults, windowDays int) ([]models.Mention, error) {
	params := url.Values{}
	params.Set("q", strings.Join(keywords, " OR "))
	params.Set("limit", fmt.Sprintf("%d", maxResults))
	params.Set("sort", "new")
	params.Set("t", redditTimeframe(windowDays))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		"https://www.reddit.com/search.json?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "brand-agent/1.0")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search reddit: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reddit search returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var payload struct {
		Data struct {
			Children []struct {
				Data struct {
					ID          string  `json:"id"`
					Title       string  `json:"title"`
					Selftext    string  `json:"selftext"`
					Author      string  `json:"author"`
					Permalink   string  `json:"permalink"`
					Ups         int     `json:"ups"`
					NumComments int     `json:"num_comments"`
					CreatedUTC  float64 `json:"created_utc"`
				} `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	mentions := make([]models.Mention, 0, len(payload.Data.Children))
	for _, child := range payload.Data.Children {
		post := child.Data
		content := post.Title
		if post.Selftext != "" {
			content = post.Title + "\n" + post.Selftext
		}
		mentions = append(mentions, models.Mention{
			ID:        "rd_" + post.ID,
			Platform:  models.PlatformReddit,
			Author:    post.Author,
			Content:   content,
			URL:       "https://www.reddit.com" + post.Permalink,
			Likes:     post.Ups,
			Comments:  post.NumComments,
			PostedAt:  time.Unix(int64(post.CreatedUTC), 0),
			FetchedAt: time.Now(),
		})
	}
	return mentions, nil
}

func redditTimeframe(windowDays int) string {
	switch {
	case windowDays <= 1:
		return "day"
	case windowDays <= 7:
		return "week"
	case windowDays <= 31:
		return "month"
	default:
		return "year"
	}
}
