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

	"go.uber.org/zap"

	"github.com/brand-agent/backend/internal/storage/models"
	"github.com/brand-agent/backend/pkg/logger"
)

// MetaFetcher covers the Graph API surface shared by Facebook pages and
// Instagram hashtag search. The platform string picks the edge.
type MetaFetcher struct {
	platform    string
	accessToken string
	httpClient  *http.Client
	fallback    *SampleFetcher
}

func NewMetaFetcher(platform, accessToken string, timeout time.Duration) *MetaFetcher {
	return &MetaFetcher{
		platform:    platform,
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: timeout},
		fallback:    NewSampleFetcher(platform),
	}
}

func (f *MetaFetcher) Platform() string {
	return f.platform
}

func (f *MetaFetcher) Fetch(ctx context.Context, keywords []string, maxResults, windowDays int) ([]models.Mention, error) {
	if f.accessToken == "" {
		logger.Debug("Meta credentials missing, using sample fallback",
			zap.String("platform", f.platform))
		return f.fallback.Fetch(ctx, keywords, maxResults, windowDays)
	}

	params := url.Values{}
	params.Set("q", strings.Join(keywords, " "))
	params.Set("type", "post")
	params.Set("limit", fmt.Sprintf("%d", maxResults))
	params.Set("fields", "id,message,created_time,permalink_url,from{name},likes.summary(true),shares,comments.summary(true)")
	params.Set("access_token", f.accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		"https://graph.facebook.com/v19.0/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch posts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("graph search returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var payload struct {
		Data []struct {
			ID          string `json:"id"`
			Message     string `json:"message"`
			CreatedTime string `json:"created_time"`
			Permalink   string `json:"permalink_url"`
			From        struct {
				Name string `json:"name"`
			} `json:"from"`
			Likes struct {
				Summary struct {
					TotalCount int `json:"total_count"`
				} `json:"summary"`
			} `json:"likes"`
			Shares struct {
				Count int `json:"count"`
			} `json:"shares"`
			Comments struct {
				Summary struct {
					TotalCount int `json:"total_count"`
				} `json:"summary"`
			} `json:"comments"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	cutoff := time.Now().AddDate(0, 0, -windowDays)
	mentions := make([]models.Mention, 0, len(payload.Data))
	for _, post := range payload.Data {
		if post.Message == "" {
			continue
		}
		postedAt, err := time.Parse("2006-01-02T15:04:05-0700", post.CreatedTime)
		if err != nil {
			postedAt = time.Now()
		}
		if postedAt.Before(cutoff) {
			continue
		}
		mentions = append(mentions, models.Mention{
			ID:        f.platform[:2] + "_" + post.ID,
			Platform:  f.platform,
			Author:    post.From.Name,
			Content:   post.Message,
			URL:       post.Permalink,
			Likes:     post.Likes.Summary.TotalCount,
			Shares:    post.Shares.Count,
			Comments:  post.Comments.Summary.TotalCount,
			PostedAt:  postedAt,
			FetchedAt: time.Now(),
		})
	}
	return mentions, nil
}
