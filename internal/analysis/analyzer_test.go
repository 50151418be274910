package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brand-agent/backend/internal/llm"
	"github.com/brand-agent/backend/internal/storage/models"
)

type stubClient struct {
	results map[string]*llm.SentimentResult
	err     error
}

func (c *stubClient) AnalyzeSentiment(ctx context.Context, content string) (*llm.SentimentResult, error) {
	if c.err != nil {
		return nil, c.err
	}
	if r, ok := c.results[content]; ok {
		return r, nil
	}
	return &llm.SentimentResult{Label: "neutral", Confidence: 0.5}, nil
}

func TestAnalyzeUsesModelResult(t *testing.T) {
	client := &stubClient{results: map[string]*llm.SentimentResult{
		"this is awful": {Label: "negative", Confidence: 0.9, Emotion: "anger"},
	}}
	analyzer := NewAnalyzer(client)

	analyzed, failures := analyzer.Analyze(context.Background(), []models.Mention{
		{ID: "m1", Content: "this is awful"},
	})

	require.Empty(t, failures)
	require.Len(t, analyzed, 1)
	assert.Equal(t, models.SentimentNegative, analyzed[0].Sentiment.Label)
	assert.Equal(t, "anger", analyzed[0].Sentiment.Emotion)
	assert.True(t, analyzed[0].NeedsResponse)
}

func TestAnalyzeFallsBackToLexicalOnModelError(t *testing.T) {
	analyzer := NewAnalyzer(&stubClient{err: errors.New("model unavailable")})

	analyzed, failures := analyzer.Analyze(context.Background(), []models.Mention{
		{ID: "m1", Content: "This product is terrible and broken, worst purchase ever"},
		{ID: "m2", Content: "Absolutely love it, great quality and fast shipping"},
	})

	require.Empty(t, failures)
	require.Len(t, analyzed, 2)
	assert.Equal(t, models.SentimentNegative, analyzed[0].Sentiment.Label)
	assert.Equal(t, models.SentimentPositive, analyzed[1].Sentiment.Label)
}

func TestAnalyzeWithoutClientUsesLexical(t *testing.T) {
	analyzer := NewAnalyzer(nil)

	analyzed, failures := analyzer.Analyze(context.Background(), []models.Mention{
		{ID: "m1", Content: "no strong opinion about the weather today"},
	})

	require.Empty(t, failures)
	require.Len(t, analyzed, 1)
	assert.Equal(t, models.SentimentNeutral, analyzed[0].Sentiment.Label)
}

func TestCrisisIndicatorDetection(t *testing.T) {
	indicators := detectCrisisIndicators("They are preparing a lawsuit after the data breach", nil)
	require.NotNil(t, indicators)
	assert.True(t, indicators.HasIndicators)
	assert.Equal(t, models.SeverityCritical, indicators.RiskLevel)
	assert.Contains(t, indicators.Keywords, "lawsuit")
	assert.Contains(t, indicators.Keywords, "data breach")

	assert.Nil(t, detectCrisisIndicators("lovely day at the park", nil))
}

func TestCrisisIndicatorMergesModelKeywords(t *testing.T) {
	indicators := detectCrisisIndicators("something felt off", []string{"Recall", "weird vibes"})
	require.NotNil(t, indicators)
	assert.Equal(t, models.SeverityCritical, indicators.RiskLevel)
	assert.Contains(t, indicators.Keywords, "recall")
	assert.Contains(t, indicators.Keywords, "weird vibes")
}

func TestNeedsResponseHeuristic(t *testing.T) {
	assert.True(t, needsResponse("where is my order?", models.SentimentNeutral))
	assert.True(t, needsResponse("I need help with setup", models.SentimentNeutral))
	assert.True(t, needsResponse("contacted Support yesterday", models.SentimentNeutral))
	assert.True(t, needsResponse("whatever", models.SentimentNegative))
	assert.False(t, needsResponse("great product", models.SentimentPositive))
}

func TestLexicalNegationFlipsPolarity(t *testing.T) {
	lexical := NewLexicalAnalyzer()
	sentiment, err := lexical.Analyze("this is not great at all")
	require.NoError(t, err)
	assert.Equal(t, models.SentimentNegative, sentiment.Label)
}
