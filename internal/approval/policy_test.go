package approval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brand-agent/backend/internal/storage/models"
)

func assessment(score float64, factors ...string) models.RiskAssessment {
	return models.RiskAssessment{
		OverallRiskScore: score,
		RiskFactors:      factors,
		ComponentRisks:   map[string]float64{"quality": score},
	}
}

// Tuesday 2026-03-03, 11:00 UTC: inside business hours.
var businessHoursClock = time.Date(2026, 3, 3, 11, 0, 0, 0, time.UTC)

// Tuesday 2026-03-03, 22:00 UTC: off-hours.
var offHoursClock = time.Date(2026, 3, 3, 22, 0, 0, 0, time.UTC)

func fixedPolicy(clock time.Time) *Policy {
	p := NewPolicy(0.3, 0.7)
	p.now = func() time.Time { return clock }
	return p
}

func TestLowRiskAutoApproves(t *testing.T) {
	p := fixedPolicy(businessHoursClock)
	decision := p.Decide(assessment(0.1), Context{})

	assert.Equal(t, models.StatusApprovedAuto, decision.Status)
	assert.False(t, decision.RequiresHumanReview)
}

func TestHighRiskRequiresHumanReview(t *testing.T) {
	p := fixedPolicy(businessHoursClock)
	decision := p.Decide(assessment(0.9, "crisis_situation_detected"), Context{})

	assert.Equal(t, models.StatusPendingApproval, decision.Status)
	assert.True(t, decision.RequiresHumanReview)
	assert.Equal(t, []string{"crisis_manager", "brand_director", "ceo"}, decision.SuggestedReviewers)
}

func TestBoundaryValues(t *testing.T) {
	p := fixedPolicy(offHoursClock)

	// Exactly at the auto-approve threshold falls into the middle band.
	atAuto := p.Decide(assessment(0.3), Context{})
	assert.NotEqual(t, models.StatusApprovedAuto, atAuto.Status)

	// Exactly at the human-review threshold also stays in the middle band.
	atHuman := p.Decide(assessment(0.7), Context{})
	assert.NotEqual(t, models.StatusApprovedAuto, atHuman.Status)

	justAbove := p.Decide(assessment(0.7000001), Context{})
	assert.Equal(t, models.StatusPendingApproval, justAbove.Status)
	assert.True(t, justAbove.RequiresHumanReview)

	justBelow := p.Decide(assessment(0.2999999), Context{})
	assert.Equal(t, models.StatusApprovedAuto, justBelow.Status)
}

func TestContextualAdjustments(t *testing.T) {
	// Off-hours twitter: 0.3 + 0.1 (twitter) + 0.1 (off-hours) = 0.5.
	p := fixedPolicy(offHoursClock)
	decision := p.Decide(assessment(0.45), Context{Platform: models.PlatformTwitter})
	assert.Equal(t, models.StatusApprovedContextual, decision.Status)
	assert.InDelta(t, 0.5, decision.AdjustedThreshold, 1e-9)

	// Business-hours linkedin: 0.3 - 0.1 - 0.05 = 0.15; risk 0.45 exceeds it.
	p = fixedPolicy(businessHoursClock)
	decision = p.Decide(assessment(0.45), Context{Platform: "linkedin"})
	assert.Equal(t, models.StatusPendingApproval, decision.Status)
	assert.True(t, decision.RequiresHumanReview)
	assert.InDelta(t, 0.15, decision.AdjustedThreshold, 1e-9)
}

func TestCrisisModeTightensThreshold(t *testing.T) {
	// Off-hours, no platform bias: adjusted = 0.3 + 0.1 = 0.4;
	// crisis mode pulls it down to 0.2.
	p := fixedPolicy(offHoursClock)

	relaxed := p.Decide(assessment(0.3), Context{})
	assert.Equal(t, models.StatusApprovedContextual, relaxed.Status)

	strict := p.Decide(assessment(0.3), Context{CrisisMode: true})
	assert.Equal(t, models.StatusPendingApproval, strict.Status)
}

func TestAdjustedThresholdClampedAtZero(t *testing.T) {
	// Business-hours linkedin in crisis mode: 0.3 - 0.1 - 0.05 - 0.2 < 0.
	p := fixedPolicy(businessHoursClock)
	decision := p.Decide(assessment(0.35), Context{Platform: "linkedin", CrisisMode: true})

	assert.Equal(t, 0.0, decision.AdjustedThreshold)
	assert.Equal(t, models.StatusPendingApproval, decision.Status)
}

func TestFailClosedOnInternalPanic(t *testing.T) {
	scores := []float64{0.05, 0.5, 0.95}
	for _, score := range scores {
		p := NewPolicy(0.3, 0.7)
		p.now = func() time.Time { panic("clock failure") }

		decision := p.Decide(assessment(score), Context{})
		require.Equal(t, models.StatusPendingApproval, decision.Status, "score %.2f must fail closed", score)
		assert.True(t, decision.RequiresHumanReview)
		assert.Equal(t, "low", decision.Confidence)
		assert.Contains(t, decision.Reasoning, "internal policy error")
	}
}

func TestReviewerSuggestionDeduplicates(t *testing.T) {
	reviewers := suggestReviewers([]string{
		"legal_content_risk",
		"crisis_situation_detected",
		"medical_content_risk",
		"health_concern",
		"high_visibility_mention",
	})

	seen := make(map[string]int)
	for _, r := range reviewers {
		seen[r]++
	}
	for name, count := range seen {
		assert.Equal(t, 1, count, "reviewer %s appears more than once", name)
	}
	assert.Contains(t, reviewers, "legal_team")
	assert.Contains(t, reviewers, "crisis_manager")
	assert.Contains(t, reviewers, "medical_affairs")
	assert.Contains(t, reviewers, "social_media_manager")
}

func TestReviewerSuggestionDefault(t *testing.T) {
	reviewers := suggestReviewers(nil)
	assert.Equal(t, []string{"social_media_manager", "customer_service_manager"}, reviewers)
}
