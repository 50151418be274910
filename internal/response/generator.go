package response

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/brand-agent/backend/internal/knowledge"
	"github.com/brand-agent/backend/internal/storage/models"
	"github.com/brand-agent/backend/pkg/logger"
)

type Retriever interface {
	Retrieve(ctx context.Context, query string, filters map[string]string, topK int) ([]knowledge.Document, error)
}

type ResponseClient interface {
	GenerateBrandResponse(ctx context.Context, brandName, mentionContent, sentiment, knowledgeContext string) (string, error)
}

// Generator drafts candidate replies to mentions, grounding them in
// retrieved brand knowledge when a store is configured. Template
// replies are the degraded path when model inference is unavailable.
type Generator struct {
	client    ResponseClient
	retriever Retriever
	quality   *QualityEvaluator
}

func NewGenerator(client ResponseClient, retriever Retriever) *Generator {
	return &Generator{
		client:    client,
		retriever: retriever,
		quality:   NewQualityEvaluator(),
	}
}

func (g *Generator) Generate(ctx context.Context, brand models.Brand, item models.AnalyzedMention) models.GeneratedResponse {
	knowledgeContext := g.retrieveContext(ctx, brand.ID, item.Mention.Content)

	var text string
	if g.client != nil {
		generated, err := g.client.GenerateBrandResponse(ctx,
			brand.Name, item.Mention.Content, item.Sentiment.Label, knowledgeContext)
		if err != nil {
			logger.Warn("Model response generation failed, using template",
				zap.String("mention", item.Mention.ID), zap.Error(err))
		} else {
			text = generated
		}
	}
	if text == "" {
		text = templateResponse(brand.Name, item.Sentiment.Label)
	}

	score, checks := g.quality.Score(text, brand.Name)
	logger.Debug("Response drafted",
		zap.String("mention", item.Mention.ID),
		zap.Float64("quality", score),
		zap.Strings("checks", checks),
	)

	return models.GeneratedResponse{
		MentionID:    item.Mention.ID,
		Text:         text,
		QualityScore: score,
	}
}

func (g *Generator) retrieveContext(ctx context.Context, brandID, query string) string {
	if g.retriever == nil {
		return ""
	}

	documents, err := g.retriever.Retrieve(ctx, query, map[string]string{"brand_id": brandID}, 3)
	if err != nil {
		logger.Warn("Knowledge retrieval failed", zap.Error(err))
		return ""
	}

	var sb strings.Builder
	for _, doc := range documents {
		fmt.Fprintf(&sb, "- %s: %s\n", doc.Title, doc.Content)
	}
	return sb.String()
}

func templateResponse(brandName, sentiment string) string {
	switch sentiment {
	case models.SentimentNegative:
		return fmt.Sprintf("We're sorry to hear about your experience. The %s team wants to make this right - please DM us your details so we can help.", brandName)
	case models.SentimentPositive:
		return fmt.Sprintf("Thank you for the kind words! The whole %s team appreciates your support.", brandName)
	default:
		return fmt.Sprintf("Thanks for mentioning %s! Let us know if there's anything we can help with.", brandName)
	}
}
