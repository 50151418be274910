package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/brand-agent/backend/internal/metrics"
	"github.com/brand-agent/backend/internal/storage/models"
	"github.com/brand-agent/backend/pkg/logger"
)

type Client struct {
	client *redis.Client
}

func NewClient(host string, port int, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) SetReport(ctx context.Context, brandID string, report *models.WorkflowReport, ttl time.Duration) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	err = c.client.Set(ctx, fmt.Sprintf("report:%s", brandID), data, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set report cache: %w", err)
	}

	logger.Debug("Report cached", zap.String("brand_id", brandID), zap.Duration("ttl", ttl))
	return nil
}

func (c *Client) GetReport(ctx context.Context, brandID string) (*models.WorkflowReport, bool, error) {
	data, err := c.client.Get(ctx, fmt.Sprintf("report:%s", brandID)).Bytes()
	if err == redis.Nil {
		metrics.CacheMisses.WithLabelValues("report").Inc()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get report cache: %w", err)
	}

	var report models.WorkflowReport
	err = json.Unmarshal(data, &report)
	if err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal report: %w", err)
	}

	metrics.CacheHits.WithLabelValues("report").Inc()
	logger.Debug("Report cache hit", zap.String("brand_id", brandID))
	return &report, true, nil
}

// FilterUnseenMentions returns only the mentions this brand has not
// been shown before, marking everything it returns as seen for the
// given TTL. Used to keep repeated collection cycles from reanalyzing
// the same posts.
func (c *Client) FilterUnseenMentions(ctx context.Context, brandID string, mentions []models.Mention, ttl time.Duration) ([]models.Mention, error) {
	unseen := make([]models.Mention, 0, len(mentions))
	for _, m := range mentions {
		key := fmt.Sprintf("seen:%s:%s", brandID, m.ID)
		set, err := c.client.SetNX(ctx, key, 1, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to mark mention seen: %w", err)
		}
		if set {
			unseen = append(unseen, m)
		}
	}

	logger.Debug("Mentions deduplicated",
		zap.String("brand_id", brandID),
		zap.Int("total", len(mentions)),
		zap.Int("unseen", len(unseen)))
	return unseen, nil
}

func (c *Client) SetEmbedding(ctx context.Context, textHash string, embedding []float32, ttl time.Duration) error {
	data, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}

	err = c.client.Set(ctx, fmt.Sprintf("embedding:%s", textHash), data, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set embedding cache: %w", err)
	}

	logger.Debug("Embedding cached", zap.String("text_hash", textHash))
	return nil
}

func (c *Client) GetEmbedding(ctx context.Context, textHash string) ([]float32, bool, error) {
	data, err := c.client.Get(ctx, fmt.Sprintf("embedding:%s", textHash)).Bytes()
	if err == redis.Nil {
		metrics.CacheMisses.WithLabelValues("embedding").Inc()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get embedding cache: %w", err)
	}

	var embedding []float32
	err = json.Unmarshal(data, &embedding)
	if err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal embedding: %w", err)
	}

	metrics.CacheHits.WithLabelValues("embedding").Inc()
	logger.Debug("Embedding cache hit", zap.String("text_hash", textHash))
	return embedding, true, nil
}

func (c *Client) InvalidateBrandCache(ctx context.Context, brandID string) error {
	patterns := []string{
		fmt.Sprintf("report:%s", brandID),
		fmt.Sprintf("seen:%s:*", brandID),
	}
	for _, pattern := range patterns {
		iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
		for iter.Next(ctx) {
			err := c.client.Del(ctx, iter.Val()).Err()
			if err != nil {
				logger.Warn("Failed to delete cache key", zap.Error(err))
			}
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("failed to iterate cache keys: %w", err)
		}
	}

	logger.Info("Brand cache invalidated", zap.String("brand_id", brandID))
	return nil
}

func (c *Client) IncrementCounter(ctx context.Context, name string) error {
	return c.client.Incr(ctx, fmt.Sprintf("counter:%s", name)).Err()
}

func (c *Client) GetCounter(ctx context.Context, name string) (int64, error) {
	val, err := c.client.Get(ctx, fmt.Sprintf("counter:%s", name)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}
