package collect

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/brand-agent/backend/internal/storage/models"
	"github.com/brand-agent/backend/pkg/logger"
)

type NewsFetcher struct {
	httpClient *http.Client
}

func NewNewsFetcher(timeout time.Duration) *NewsFetcher {
	return &NewsFetcher{httpClient: &http.Client{Timeout: timeout}}
}

func (f *NewsFetcher) Platform() string {
	return models.PlatformNews
}

func (f *NewsFetcher) Fetch(ctx context.Context, keywords []string, maxResults, windowDays int) ([]models.Mention, error) {
	query := url.QueryEscape(strings.Join(keywords, " "))
	searchURL := fmt.Sprintf("https://www.google.com/search?q=%s&tbm=nws&num=%d", query, maxResults)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search news: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news search returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	now := time.Now()
	mentions := make([]models.Mention, 0, maxResults)
	doc.Find("div.SoaBEf, div.g").Each(func(i int, s *goquery.Selection) {
		if len(mentions) >= maxResults {
			return
		}

		title := s.Find("div.n0jPhd, h3").First().Text()
		link, _ := s.Find("a").First().Attr("href")
		snippet := s.Find("div.GI74Re, div.VwiC3b").First().Text()
		source := s.Find("div.MgUUmf span, cite").First().Text()

		if title == "" || link == "" {
			return
		}

		content := strings.TrimSpace(title + ". " + snippet)
		if article, err := f.scrapeArticle(ctx, link); err == nil && article != "" {
			content = article
		}

		mentions = append(mentions, models.Mention{
			Platform:  models.PlatformNews,
			Author:    strings.TrimSpace(source),
			Content:   content,
			URL:       link,
			PostedAt:  now,
			FetchedAt: now,
		})
	})

	logger.Debug("News fetch completed", zap.Int("articles", len(mentions)))
	return mentions, nil
}

func (f *NewsFetcher) scrapeArticle(ctx context.Context, articleURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}

	doc.Find("script, style, nav, footer, header").Remove()
	text := strings.TrimSpace(doc.Find("article").Text())
	if text == "" {
		text = strings.TrimSpace(doc.Find("body").Text())
	}

	if len(text) > 5000 {
		text = text[:5000]
	}
	return text, nil
}
