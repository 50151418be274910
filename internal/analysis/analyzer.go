package analysis

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/brand-agent/backend/internal/llm"
	"github.com/brand-agent/backend/internal/metrics"
	"github.com/brand-agent/backend/internal/storage/models"
	"github.com/brand-agent/backend/pkg/logger"
)

// SentimentClient is the model-inference collaborator.
type SentimentClient interface {
	AnalyzeSentiment(ctx context.Context, content string) (*llm.SentimentResult, error)
}

type ItemError struct {
	MentionID string `json:"mentionId"`
	Reason    string `json:"reason"`
}

// Analyzer classifies mentions. The model path is preferred; when it
// fails for an item the lexical fallback takes over so a single bad
// item or a model outage never fails the whole batch.
type Analyzer struct {
	client  SentimentClient
	lexical *LexicalAnalyzer
}

func NewAnalyzer(client SentimentClient) *Analyzer {
	return &Analyzer{client: client, lexical: NewLexicalAnalyzer()}
}

func (a *Analyzer) Analyze(ctx context.Context, mentions []models.Mention) ([]models.AnalyzedMention, []ItemError) {
	analyzed := make([]models.AnalyzedMention, 0, len(mentions))
	var failures []ItemError

	for _, mention := range mentions {
		item, err := a.analyzeOne(ctx, mention)
		if err != nil {
			failures = append(failures, ItemError{MentionID: mention.ID, Reason: err.Error()})
			continue
		}
		analyzed = append(analyzed, item)
	}

	logger.Info("Batch analyzed",
		zap.Int("mentions", len(mentions)),
		zap.Int("failures", len(failures)),
	)
	return analyzed, failures
}

func (a *Analyzer) analyzeOne(ctx context.Context, mention models.Mention) (models.AnalyzedMention, error) {
	var sentiment models.Sentiment
	var modelKeywords []string

	source := "lexical"
	if a.client != nil {
		if result, err := a.client.AnalyzeSentiment(ctx, mention.Content); err == nil {
			sentiment = models.Sentiment{
				Label:      result.Label,
				Confidence: result.Confidence,
				Emotion:    result.Emotion,
			}
			modelKeywords = result.CrisisKeywords
			source = "model"
		} else {
			logger.Warn("Model sentiment failed, using lexical fallback",
				zap.String("mention", mention.ID), zap.Error(err))
		}
	}

	if sentiment.Label == "" {
		lexical, err := a.lexical.Analyze(mention.Content)
		if err != nil {
			return models.AnalyzedMention{}, err
		}
		sentiment = lexical
	}

	metrics.SentimentAnalyzed.WithLabelValues(sentiment.Label, source).Inc()

	return models.AnalyzedMention{
		Mention:          mention,
		Sentiment:        sentiment,
		CrisisIndicators: detectCrisisIndicators(mention.Content, modelKeywords),
		NeedsResponse:    needsResponse(mention.Content, sentiment.Label),
		AnalyzedAt:       time.Now(),
	}, nil
}

// needsResponse flags content a brand should reply to: direct
// questions, support requests, or anything negative.
func needsResponse(content, sentiment string) bool {
	if sentiment == models.SentimentNegative {
		return true
	}
	if strings.Contains(content, "?") {
		return true
	}
	lowered := strings.ToLower(content)
	return strings.Contains(lowered, "help") || strings.Contains(lowered, "support")
}
