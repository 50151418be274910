package response

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/brand-agent/backend/internal/knowledge"
	"github.com/brand-agent/backend/internal/storage/models"
)

type stubResponseClient struct {
	text string
	err  error
}

func (c *stubResponseClient) GenerateBrandResponse(ctx context.Context, brandName, mentionContent, sentiment, knowledgeContext string) (string, error) {
	return c.text, c.err
}

type stubRetriever struct {
	docs []knowledge.Document
	err  error
}

func (r *stubRetriever) Retrieve(ctx context.Context, query string, filters map[string]string, topK int) ([]knowledge.Document, error) {
	return r.docs, r.err
}

var brand = models.Brand{ID: "acme", Name: "Acme"}

func negativeItem() models.AnalyzedMention {
	return models.AnalyzedMention{
		Mention:   models.Mention{ID: "m1", Content: "my order never arrived"},
		Sentiment: models.Sentiment{Label: models.SentimentNegative, Confidence: 0.85},
	}
}

func TestGenerateUsesModelOutput(t *testing.T) {
	client := &stubResponseClient{text: "We're sorry about the delay! Please DM the Acme team your order number and we'll sort it out."}
	g := NewGenerator(client, nil)

	resp := g.Generate(context.Background(), brand, negativeItem())

	assert.Equal(t, client.text, resp.Text)
	assert.Equal(t, "m1", resp.MentionID)
	assert.Greater(t, resp.QualityScore, 0.5)
}

func TestGenerateFallsBackToTemplateOnModelError(t *testing.T) {
	g := NewGenerator(&stubResponseClient{err: errors.New("model down")}, nil)

	resp := g.Generate(context.Background(), brand, negativeItem())

	assert.Contains(t, resp.Text, "Acme")
	assert.Greater(t, resp.QualityScore, 0.0)
}

func TestGenerateSurvivesRetrieverFailure(t *testing.T) {
	client := &stubResponseClient{text: "Thanks for reaching out, the Acme team will follow up shortly."}
	g := NewGenerator(client, &stubRetriever{err: errors.New("vector store offline")})

	resp := g.Generate(context.Background(), brand, negativeItem())
	assert.Equal(t, client.text, resp.Text)
}

func TestQualityScoreChecks(t *testing.T) {
	e := NewQualityEvaluator()

	perfect := "Thank you for flagging this! The Acme team is sorry about the trouble - please DM us so we can fix it."
	score, checks := e.Score(perfect, "Acme")
	assert.InDelta(t, 1.0, score, 1e-9)
	assert.Len(t, checks, 5)

	short, _ := e.Score("ok", "Acme")
	assert.Less(t, short, 0.5)

	shouting, checks := e.Score("THIS IS FINE", "Acme")
	assert.NotContains(t, checks, "professional_register")
	assert.Less(t, shouting, 0.5)
}

func TestTemplateResponsesBySentiment(t *testing.T) {
	assert.Contains(t, templateResponse("Acme", models.SentimentNegative), "sorry")
	assert.Contains(t, templateResponse("Acme", models.SentimentPositive), "Thank you")
	assert.Contains(t, templateResponse("Acme", models.SentimentNeutral), "Acme")
}
