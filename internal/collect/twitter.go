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
	"github.com/brand-agent/backend/pkg/logger"
)

type TwitterFetcher struct {
	bearerToken string
	httpClient  *http.Client
	fallback    *SampleFetcher
}

func NewTwitterFetcher(bearerToken string, timeout time.Duration) *TwitterFetcher {
	return &TwitterFetcher{
		bearerToken: bearerToken,
		httpClient:  &http.Client{Timeout: timeout},
		fallback:    NewSampleFetcher(models.PlatformTwitter),
	}
}

func (f *TwitterFetcher) Platform() string {
	return models.PlatformTwitter
}

func (f *TwitterFetcher) Fetch(ctx context.Context, keywords []string, maxResults, windowDays int) ([]models.Mention, error) {
	if f.bearerToken == "" {
		logger.Debug("Twitter credentials missing, using sample fallback")
		return f.fallback.Fetch(ctx, keywords, maxResults, windowDays)
	}

	query := strings.Join(keywords, " OR ")
	params := url.Values{}
	params.Set("query", query)
	params.Set("max_results", fmt.Sprintf("%d", clampTwitterPageSize(maxResults)))
	params.Set("tweet.fields", "created_at,public_metrics,author_id")
	params.Set("expansions", "author_id")
	params.Set("user.fields", "username,public_metrics,verified")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		"https://api.twitter.com/2/tweets/search/recent?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+f.bearerToken)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tweets: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("twitter search returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var payload struct {
		Data []struct {
			ID            string    `json:"id"`
			Text          string    `json:"text"`
			AuthorID      string    `json:"author_id"`
			CreatedAt     time.Time `json:"created_at"`
			PublicMetrics struct {
				LikeCount    int `json:"like_count"`
				RetweetCount int `json:"retweet_count"`
				ReplyCount   int `json:"reply_count"`
			} `json:"public_metrics"`
		} `json:"data"`
		Includes struct {
			Users []struct {
				ID            string `json:"id"`
				Username      string `json:"username"`
				Verified      bool   `json:"verified"`
				PublicMetrics struct {
					FollowersCount int `json:"followers_count"`
				} `json:"public_metrics"`
			} `json:"users"`
		} `json:"includes"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	type userInfo struct {
		username  string
		verified  bool
		followers int
	}
	users := make(map[string]userInfo, len(payload.Includes.Users))
	for _, u := range payload.Includes.Users {
		users[u.ID] = userInfo{username: u.Username, verified: u.Verified, followers: u.PublicMetrics.FollowersCount}
	}

	mentions := make([]models.Mention, 0, len(payload.Data))
	for _, tweet := range payload.Data {
		user := users[tweet.AuthorID]
		mentions = append(mentions, models.Mention{
			ID:        "tw_" + tweet.ID,
			Platform:  models.PlatformTwitter,
			Author:    user.username,
			Content:   tweet.Text,
			URL:       fmt.Sprintf("https://twitter.com/%s/status/%s", user.username, tweet.ID),
			Likes:     tweet.PublicMetrics.LikeCount,
			Shares:    tweet.PublicMetrics.RetweetCount,
			Comments:  tweet.PublicMetrics.ReplyCount,
			Followers: user.followers,
			Verified:  user.verified,
			PostedAt:  tweet.CreatedAt,
			FetchedAt: time.Now(),
		})
	}
	return mentions, nil
}

func clampTwitterPageSize(maxResults int) int {
	// The recent-search endpoint accepts 10..100.
	if maxResults < 10 {
		return 10
	}
	if maxResults > 100 {
		return 100
	}
	return maxResults
}
