package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/brand-agent/backend/internal/metrics"
	"github.com/brand-agent/backend/pkg/circuitbreaker"
	"github.com/brand-agent/backend/pkg/logger"
	"github.com/brand-agent/backend/pkg/retry"
)

type Client struct {
	client         *openai.Client
	model          string
	embeddingModel string
	temperature    float32
	maxTokens      int
	timeout        time.Duration
	cb             *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	MaxTokens    int
}

type CompletionResponse struct {
	Content string
	Usage   Usage
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

func NewClient(apiKey, model, embeddingModel string, temperature float32, maxTokens int, timeout time.Duration) *Client {
	client := openai.NewClient(apiKey)

	cb := circuitbreaker.NewCircuitBreaker("llm", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	logger.Info("LLM client initialized",
		zap.String("model", model),
		zap.Duration("timeout", timeout),
	)

	return &Client{
		client:         client,
		model:          model,
		embeddingModel: embeddingModel,
		temperature:    temperature,
		maxTokens:      maxTokens,
		timeout:        timeout,
		cb:             cb,
		retryConfig:    retryConfig,
	}
}

func (c *Client) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.temperature
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: req.UserPrompt,
		},
	}

	var result *CompletionResponse

	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			resp, err := c.client.CreateChatCompletion(
				ctx,
				openai.ChatCompletionRequest{
					Model:       c.model,
					Messages:    messages,
					Temperature: temperature,
					MaxTokens:   maxTokens,
				},
			)

			if err != nil {
				return fmt.Errorf("failed to create completion: %w", err)
			}

			logger.Debug("LLM completion generated",
				zap.Int("prompt_tokens", resp.Usage.PromptTokens),
				zap.Int("completion_tokens", resp.Usage.CompletionTokens),
			)

			metrics.LLMTokensUsed.WithLabelValues(c.model, "prompt").Add(float64(resp.Usage.PromptTokens))
			metrics.LLMTokensUsed.WithLabelValues(c.model, "completion").Add(float64(resp.Usage.CompletionTokens))

			result = &CompletionResponse{
				Content: resp.Choices[0].Message.Content,
				Usage: Usage{
					PromptTokens:     resp.Usage.PromptTokens,
					CompletionTokens: resp.Usage.CompletionTokens,
					TotalTokens:      resp.Usage.TotalTokens,
				},
			}

			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	return result, nil
}

func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var embedding []float32

	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			resp, err := c.client.CreateEmbeddings(
				ctx,
				openai.EmbeddingRequest{
					Input: []string{text},
					Model: openai.EmbeddingModel(c.embeddingModel),
				},
			)

			if err != nil {
				return fmt.Errorf("failed to generate embedding: %w", err)
			}

			embedding = make([]float32, len(resp.Data[0].Embedding))
			for i, v := range resp.Data[0].Embedding {
				embedding[i] = v
			}

			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	return embedding, nil
}

type SentimentResult struct {
	Label          string   `json:"sentiment"`
	Confidence     float64  `json:"confidence"`
	Emotion        string   `json:"emotion"`
	CrisisKeywords []string `json:"crisis_keywords"`
}

func (c *Client) AnalyzeSentiment(ctx context.Context, content string) (*SentimentResult, error) {
	systemPrompt := `You are a brand reputation analyst. Classify the sentiment of social media content about a brand.

Return JSON only:
{"sentiment": "positive|negative|neutral", "confidence": 0.0-1.0, "emotion": "anger|joy|fear|sadness|surprise|none", "crisis_keywords": ["keyword", ...]}

crisis_keywords lists any terms signalling reputational crisis (lawsuit, recall, boycott, scandal, data breach, injury). Empty list if none.`

	resp, err := c.Complete(ctx, CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   fmt.Sprintf("Classify this content:\n\n%s", content),
		Temperature:  0.1,
		MaxTokens:    200,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to analyze sentiment: %w", err)
	}

	result := parseSentimentResult(resp.Content)
	return result, nil
}

func (c *Client) GenerateBrandResponse(ctx context.Context, brandName, mentionContent, sentiment, knowledgeContext string) (string, error) {
	systemPrompt := fmt.Sprintf(`You are the social media voice of %s. Draft a reply to a customer mention.

Your reply must:
1. Be professional, empathetic and on-brand
2. Stay under 280 characters
3. Never make guarantees, legal statements or medical claims
4. Offer a concrete next step when the customer has a problem
5. Use only the provided brand knowledge for factual claims`, brandName)

	userPrompt := fmt.Sprintf(`Customer mention (%s sentiment):
%s

Brand knowledge:
%s

Write the reply text only, no quotes or preamble.`, sentiment, mentionContent, knowledgeContext)

	resp, err := c.Complete(ctx, CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Temperature:  0.5,
		MaxTokens:    300,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate response: %w", err)
	}

	logger.Info("Brand response generated",
		zap.String("brand", brandName),
		zap.Int("response_length", len(resp.Content)),
	)

	return strings.TrimSpace(resp.Content), nil
}

// parseSentimentResult extracts the structured classification from the
// model output. Free-text parsing is best effort: garbage input yields
// a neutral low-confidence default rather than an error.
func parseSentimentResult(content string) *SentimentResult {
	payload := extractJSONObject(content)

	var result SentimentResult
	if payload == "" || json.Unmarshal([]byte(payload), &result) != nil {
		logger.Warn("Unparseable sentiment output, using neutral default")
		return &SentimentResult{Label: "neutral", Confidence: 0.3}
	}

	switch result.Label {
	case "positive", "negative", "neutral":
	default:
		result.Label = "neutral"
		result.Confidence = 0.3
	}
	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1 {
		result.Confidence = 1
	}
	return &result
}

func extractJSONObject(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}
