package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSentimentResult(t *testing.T) {
	result := parseSentimentResult(`Here is the classification:
{"sentiment": "negative", "confidence": 0.92, "emotion": "anger", "crisis_keywords": ["recall"]}`)

	assert.Equal(t, "negative", result.Label)
	assert.InDelta(t, 0.92, result.Confidence, 1e-9)
	assert.Equal(t, "anger", result.Emotion)
	assert.Equal(t, []string{"recall"}, result.CrisisKeywords)
}

func TestParseSentimentResultGarbageFallsBackToNeutral(t *testing.T) {
	for _, garbage := range []string{
		"",
		"I cannot classify this content.",
		`{"sentiment": "furious", "confidence": 5}`,
		"{broken json",
	} {
		result := parseSentimentResult(garbage)
		assert.Equal(t, "neutral", result.Label, "input: %q", garbage)
		assert.LessOrEqual(t, result.Confidence, 0.3)
	}
}

func TestParseSentimentResultClampsConfidence(t *testing.T) {
	result := parseSentimentResult(`{"sentiment": "positive", "confidence": 1.7}`)
	assert.Equal(t, 1.0, result.Confidence)
}
