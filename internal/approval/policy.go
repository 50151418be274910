package approval

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/brand-agent/backend/internal/storage/models"
	"github.com/brand-agent/backend/pkg/logger"
)

// Context carries the signals used for the medium-band contextual
// decision.
type Context struct {
	Platform   string
	CrisisMode bool
}

// Policy classifies a risk assessment into one of three bands. Internal
// failures never fail open: any panic during classification yields
// pending_approval with human review required.
type Policy struct {
	autoApproveThreshold float64
	humanReviewThreshold float64
	now                  func() time.Time
}

func NewPolicy(autoApproveThreshold, humanReviewThreshold float64) *Policy {
	return &Policy{
		autoApproveThreshold: autoApproveThreshold,
		humanReviewThreshold: humanReviewThreshold,
		now:                  time.Now,
	}
}

func (p *Policy) Decide(assessment models.RiskAssessment, ctx Context) (decision models.ApprovalDecision) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Approval policy failed, failing closed", zap.Any("panic", r))
			decision = models.ApprovalDecision{
				Status:              models.StatusPendingApproval,
				RequiresHumanReview: true,
				Confidence:          "low",
				Reasoning:           fmt.Sprintf("internal policy error (%v); defaulting to human review", r),
				RiskAnalysis:        assessment,
				DecisionTimestamp:   time.Now(),
			}
		}
	}()
	return p.decide(assessment, ctx)
}

func (p *Policy) decide(assessment models.RiskAssessment, ctx Context) models.ApprovalDecision {
	risk := assessment.OverallRiskScore
	now := p.now()

	switch {
	case risk < p.autoApproveThreshold:
		return models.ApprovalDecision{
			Status:              models.StatusApprovedAuto,
			RequiresHumanReview: false,
			Confidence:          "high",
			Reasoning:           fmt.Sprintf("risk %.2f below auto-approve threshold %.2f", risk, p.autoApproveThreshold),
			RiskAnalysis:        assessment,
			DecisionTimestamp:   now,
		}

	case risk > p.humanReviewThreshold:
		return models.ApprovalDecision{
			Status:              models.StatusPendingApproval,
			RequiresHumanReview: true,
			Confidence:          "high",
			Reasoning:           fmt.Sprintf("risk %.2f above human-review threshold %.2f", risk, p.humanReviewThreshold),
			SuggestedReviewers:  suggestReviewers(assessment.RiskFactors),
			RiskAnalysis:        assessment,
			DecisionTimestamp:   now,
		}

	default:
		adjusted := p.adjustedThreshold(ctx, now)
		if risk <= adjusted {
			return models.ApprovalDecision{
				Status:              models.StatusApprovedContextual,
				RequiresHumanReview: false,
				Confidence:          "medium",
				Reasoning:           fmt.Sprintf("risk %.2f within contextually adjusted threshold %.2f", risk, adjusted),
				AdjustedThreshold:   adjusted,
				RiskAnalysis:        assessment,
				DecisionTimestamp:   now,
			}
		}
		return models.ApprovalDecision{
			Status:              models.StatusPendingApproval,
			RequiresHumanReview: true,
			Confidence:          "medium",
			Reasoning:           fmt.Sprintf("risk %.2f exceeds contextually adjusted threshold %.2f", risk, adjusted),
			SuggestedReviewers:  suggestReviewers(assessment.RiskFactors),
			AdjustedThreshold:   adjusted,
			RiskAnalysis:        assessment,
			DecisionTimestamp:   now,
		}
	}
}

// adjustedThreshold applies additive platform, time-of-day and crisis
// biases to the auto-approve threshold, clamped to [0,1].
func (p *Policy) adjustedThreshold(ctx Context, now time.Time) float64 {
	adjusted := p.autoApproveThreshold

	switch ctx.Platform {
	case models.PlatformTwitter:
		adjusted += 0.1
	case "linkedin":
		adjusted -= 0.1
	}

	if businessHours(now) {
		adjusted -= 0.05
	} else {
		adjusted += 0.1
	}

	if ctx.CrisisMode {
		adjusted -= 0.2
	}

	if adjusted < 0 {
		return 0
	}
	if adjusted > 1 {
		return 1
	}
	return adjusted
}

func businessHours(t time.Time) bool {
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	return t.Hour() >= 9 && t.Hour() < 17
}

var reviewerRoles = []struct {
	match     string
	reviewers []string
}{
	{"crisis", []string{"crisis_manager", "brand_director", "ceo"}},
	{"legal", []string{"legal_team", "compliance_officer"}},
	{"medical", []string{"medical_affairs", "regulatory_team"}},
	{"health", []string{"medical_affairs", "regulatory_team"}},
	{"financial", []string{"investor_relations", "cfo"}},
	{"high_visibility", []string{"social_media_manager", "pr_manager"}},
}

func suggestReviewers(factors []string) []string {
	seen := make(map[string]struct{})
	var reviewers []string
	add := func(names []string) {
		for _, name := range names {
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				reviewers = append(reviewers, name)
			}
		}
	}

	for _, role := range reviewerRoles {
		for _, factor := range factors {
			if strings.Contains(factor, role.match) {
				add(role.reviewers)
				break
			}
		}
	}
	if len(reviewers) == 0 {
		add([]string{"social_media_manager", "customer_service_manager"})
	}
	return reviewers
}
