package publish

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/brand-agent/backend/internal/storage/models"
)

func approvedResponse() models.GeneratedResponse {
	return models.GeneratedResponse{
		MentionID: "m1",
		Text:      "Thanks for reaching out, we can help.",
		Approval:  &models.ApprovalDecision{Status: models.StatusApprovedAuto},
	}
}

func TestPublishRejectsUnapproved(t *testing.T) {
	p := NewPublisher(true)

	cases := []*models.ApprovalDecision{
		nil,
		{Status: models.StatusPendingApproval, RequiresHumanReview: true},
		{Status: models.StatusApprovedAuto, RequiresHumanReview: true},
	}
	for _, approval := range cases {
		resp := approvedResponse()
		resp.Approval = approval
		result := p.Publish(context.Background(), models.PlatformTwitter, resp)
		assert.False(t, result.Success)
		assert.Error(t, result.Err)
	}
}

func TestPublishDryRun(t *testing.T) {
	p := NewPublisher(true)
	result := p.Publish(context.Background(), models.PlatformTwitter, approvedResponse())

	assert.True(t, result.Success)
	assert.Contains(t, result.Output, "DRY RUN")
}

func TestPublishContextualApprovalAccepted(t *testing.T) {
	p := NewPublisher(false)
	resp := approvedResponse()
	resp.Approval.Status = models.StatusApprovedContextual

	result := p.Publish(context.Background(), models.PlatformReddit, resp)
	assert.True(t, result.Success)
}

func TestPublishUnsupportedPlatform(t *testing.T) {
	p := NewPublisher(false)
	result := p.Publish(context.Background(), "myspace", approvedResponse())

	assert.False(t, result.Success)
	assert.Error(t, result.Err)
}
