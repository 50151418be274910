package risk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brand-agent/backend/internal/storage/models"
)

func mention(sentiment string, likes, shares int) models.AnalyzedMention {
	return models.AnalyzedMention{
		Mention: models.Mention{
			Content: "the product stopped working after a week",
			Likes:   likes,
			Shares:  shares,
		},
		Sentiment: models.Sentiment{Label: sentiment, Confidence: 0.9},
	}
}

func TestScoreIsWeightedSumOfComponents(t *testing.T) {
	scorer := NewScorer()

	cases := []struct {
		name     string
		response string
		source   models.AnalyzedMention
		quality  float64
	}{
		{"calm positive", "Thanks for the kind words! We appreciate you.", mention(models.SentimentPositive, 3, 0), 0.9},
		{"angry viral", "We are sorry to hear this, please contact support.", mention(models.SentimentNegative, 500, 200), 0.4},
		{"short reply", "Sorry!", mention(models.SentimentNeutral, 0, 0), 0.6},
		{"legal topic", "Our attorney will review the lawsuit details.", mention(models.SentimentNegative, 10, 2), 0.7},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assessment := scorer.Assess(tc.response, tc.source, tc.quality)

			assert.GreaterOrEqual(t, assessment.OverallRiskScore, 0.0)
			assert.LessOrEqual(t, assessment.OverallRiskScore, 1.0)

			var sum float64
			for _, contribution := range assessment.ComponentRisks {
				sum += contribution
			}
			if sum > 1 {
				sum = 1
			}
			assert.InDelta(t, sum, assessment.OverallRiskScore, 1e-9)
			require.Len(t, assessment.ComponentRisks, 5)
		})
	}
}

func TestCrisisIndicatorsRaiseCrisisComponent(t *testing.T) {
	scorer := NewScorer()
	source := mention(models.SentimentNegative, 0, 0)
	baseline := scorer.Assess("We hear you and are looking into it.", source, 0.8)

	source.CrisisIndicators = &models.CrisisIndicators{HasIndicators: true, RiskLevel: models.SeverityHigh}
	elevated := scorer.Assess("We hear you and are looking into it.", source, 0.8)

	assert.Greater(t, elevated.ComponentRisks["crisis"], baseline.ComponentRisks["crisis"])
	assert.Contains(t, elevated.RiskFactors, "crisis_situation_detected")
	assert.InDelta(t, 0.4*0.10, elevated.ComponentRisks["crisis"], 1e-9)
	assert.InDelta(t, 0.05*0.10, baseline.ComponentRisks["crisis"], 1e-9)
}

func TestHighEngagementFlagsVisibility(t *testing.T) {
	scorer := NewScorer()

	quiet := scorer.Assess("Thanks for reaching out, we can help.", mention(models.SentimentNeutral, 5, 1), 0.8)
	viral := scorer.Assess("Thanks for reaching out, we can help.", mention(models.SentimentNeutral, 5000, 900), 0.8)

	assert.NotContains(t, quiet.RiskFactors, "high_visibility_mention")
	assert.Contains(t, viral.RiskFactors, "high_visibility_mention")
	assert.InDelta(t, 0.1*0.20, quiet.ComponentRisks["virality"], 1e-9)
	assert.InDelta(t, 0.3*0.20, viral.ComponentRisks["virality"], 1e-9)
}

func TestContentRiskAccumulatesAndCaps(t *testing.T) {
	scorer := NewScorer()

	risky := "Our attorney says the lawsuit over the prescription side effect and the stock fraud is harassment. " +
		"We guarantee and promise this will never again happen, 100% assure you. " +
		strings.Repeat("More detail. ", 40)
	assessment := scorer.Assess(risky, mention(models.SentimentNegative, 0, 0), 0.5)

	// Hit score saturates at 1.0 before weighting.
	assert.InDelta(t, weightContent, assessment.ComponentRisks["content"], 1e-9)
	assert.Contains(t, assessment.RiskFactors, "legal_content_risk")
	assert.Contains(t, assessment.RiskFactors, "strong_commitment_language")
	assert.Contains(t, assessment.RiskFactors, "response_too_long")
}

func TestShortResponseFlagged(t *testing.T) {
	scorer := NewScorer()
	assessment := scorer.Assess("Ok.", mention(models.SentimentNeutral, 0, 0), 0.9)
	assert.Contains(t, assessment.RiskFactors, "response_too_short")
}

func TestCategorizeBands(t *testing.T) {
	assert.Equal(t, models.RiskCategoryLow, Categorize(0.29))
	assert.Equal(t, models.RiskCategoryMedium, Categorize(0.3))
	assert.Equal(t, models.RiskCategoryMedium, Categorize(0.7))
	assert.Equal(t, models.RiskCategoryHigh, Categorize(0.71))
}
