package risk

import (
	"strings"

	"github.com/brand-agent/backend/internal/storage/models"
)

// Fixed component weights. They sum to 1.0 exactly.
const (
	weightQuality   = 0.30
	weightSentiment = 0.25
	weightVirality  = 0.20
	weightContent   = 0.15
	weightCrisis    = 0.10
)

var sentimentBase = map[string]float64{
	models.SentimentNegative: 0.2,
	models.SentimentNeutral:  0.1,
	models.SentimentPositive: 0.05,
}

var topicVocabulary = map[string][]string{
	"legal_content_risk":          {"lawsuit", "sue", "legal action", "attorney", "lawyer", "liability", "settlement", "court"},
	"medical_content_risk":        {"medical", "health", "treatment", "diagnosis", "cure", "side effect", "prescription", "fda"},
	"financial_content_risk":      {"investment", "stock", "refund", "compensation", "earnings", "bankruptcy", "fraud", "sec"},
	"discriminatory_content_risk": {"discrimination", "racist", "sexist", "harassment", "offensive"},
}

var commitmentPhrases = []string{"guarantee", "promise", "we will always", "never again", "100%", "assure you"}

type EngagementThresholds struct {
	Likes    int
	Shares   int
	Comments int
}

func DefaultEngagementThresholds() EngagementThresholds {
	return EngagementThresholds{Likes: 100, Shares: 50, Comments: 30}
}

// Scorer combines five independent signal categories into one bounded
// risk score with attributable factors. The model is a transparent
// linear combination: determinism and explainability over prediction.
type Scorer struct {
	thresholds EngagementThresholds
}

func NewScorer() *Scorer {
	return &Scorer{thresholds: DefaultEngagementThresholds()}
}

func NewScorerWithThresholds(thresholds EngagementThresholds) *Scorer {
	return &Scorer{thresholds: thresholds}
}

func (s *Scorer) Assess(response string, source models.AnalyzedMention, qualityScore float64) models.RiskAssessment {
	components := make(map[string]float64)
	var factors []string

	quality := clamp01(1-qualityScore) * weightQuality
	components["quality"] = quality
	if qualityScore < 0.5 {
		factors = append(factors, "low_response_quality")
	}

	base, ok := sentimentBase[source.Sentiment.Label]
	if !ok {
		base = sentimentBase[models.SentimentNeutral]
	}
	components["sentiment"] = base * weightSentiment
	if source.Sentiment.Label == models.SentimentNegative {
		factors = append(factors, "negative_customer_sentiment")
	}

	virality := 0.1
	if s.highEngagement(source.Mention) {
		virality = 0.3
		factors = append(factors, "high_visibility_mention")
	}
	components["virality"] = virality * weightVirality

	contentScore, contentFactors := s.contentRisk(response, source.Mention.Content)
	components["content"] = clamp01(contentScore) * weightContent
	factors = append(factors, contentFactors...)

	crisis := 0.05
	if source.CrisisIndicators != nil && source.CrisisIndicators.HasIndicators {
		crisis = 0.4
		factors = append(factors, "crisis_situation_detected")
	}
	components["crisis"] = crisis * weightCrisis

	total := clamp01(components["quality"] + components["sentiment"] + components["virality"] +
		components["content"] + components["crisis"])

	return models.RiskAssessment{
		OverallRiskScore: total,
		RiskFactors:      factors,
		ComponentRisks:   components,
		RiskCategory:     Categorize(total),
	}
}

func (s *Scorer) highEngagement(m models.Mention) bool {
	return m.Likes > s.thresholds.Likes || m.Shares > s.thresholds.Shares || m.Comments > s.thresholds.Comments
}

func (s *Scorer) contentRisk(response, sourceContent string) (float64, []string) {
	var score float64
	var factors []string

	combined := strings.ToLower(response + " " + sourceContent)
	for tag, terms := range topicVocabulary {
		matched := false
		for _, term := range terms {
			if strings.Contains(combined, term) {
				score += 0.1
				matched = true
			}
		}
		if matched {
			factors = append(factors, tag)
		}
	}

	lowered := strings.ToLower(response)
	for _, phrase := range commitmentPhrases {
		if strings.Contains(lowered, phrase) {
			score += 0.05
			factors = append(factors, "strong_commitment_language")
		}
	}

	if len(response) < 20 {
		score += 0.1
		factors = append(factors, "response_too_short")
	} else if len(response) > 500 {
		score += 0.05
		factors = append(factors, "response_too_long")
	}

	return score, factors
}

func Categorize(score float64) string {
	switch {
	case score > 0.7:
		return models.RiskCategoryHigh
	case score >= 0.3:
		return models.RiskCategoryMedium
	default:
		return models.RiskCategoryLow
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
