package sqlite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brand-agent/backend/internal/storage/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(":memory:")
	require.NoError(t, err)
	require.NoError(t, client.InitSchema())
	t.Cleanup(func() { client.Close() })
	return client
}

func TestBrandRoundTrip(t *testing.T) {
	client := newTestClient(t)

	brand := &models.Brand{
		ID:       "b1",
		Name:     "Acme",
		Keywords: []string{"acme", "acme corp"},
		Industry: "manufacturing",
	}
	require.NoError(t, client.InsertBrand(brand))

	got, err := client.GetBrand("b1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Name)
	assert.Equal(t, []string{"acme", "acme corp"}, got.Keywords)
	assert.Equal(t, "manufacturing", got.Industry)
	assert.False(t, got.CrisisMode)

	brand.CrisisMode = true
	require.NoError(t, client.InsertBrand(brand))
	got, err = client.GetBrand("b1")
	require.NoError(t, err)
	assert.True(t, got.CrisisMode)

	brands, err := client.ListBrands()
	require.NoError(t, err)
	assert.Len(t, brands, 1)
}

func TestMentionUpsert(t *testing.T) {
	client := newTestClient(t)
	require.NoError(t, client.InsertBrand(&models.Brand{ID: "b1", Name: "Acme"}))

	item := &models.AnalyzedMention{
		Mention: models.Mention{
			ID:        "m1",
			BrandID:   "b1",
			Platform:  models.PlatformTwitter,
			Author:    "user1",
			Content:   "Acme broke again",
			Likes:     3,
			PostedAt:  time.Now().Add(-time.Hour),
			FetchedAt: time.Now(),
		},
		Sentiment: models.Sentiment{Label: models.SentimentNegative, Confidence: 0.8},
		CrisisIndicators: &models.CrisisIndicators{
			HasIndicators: true,
			Keywords:      []string{"broken"},
		},
		NeedsResponse: true,
	}
	require.NoError(t, client.InsertAnalyzedMention(item))

	// Same mention refetched with fresher engagement numbers.
	item.Mention.Likes = 42
	require.NoError(t, client.InsertAnalyzedMention(item))

	items, err := client.GetMentions("b1", models.PlatformTwitter, time.Now().Add(-24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 42, items[0].Mention.Likes)
	assert.True(t, items[0].NeedsResponse)
	require.NotNil(t, items[0].CrisisIndicators)
	assert.Equal(t, []string{"broken"}, items[0].CrisisIndicators.Keywords)
}

func TestAlertLifecycle(t *testing.T) {
	client := newTestClient(t)
	require.NoError(t, client.InsertBrand(&models.Brand{ID: "b1", Name: "Acme"}))

	alert := &models.Alert{
		ID:          "b1_volume_spike_1700000000",
		BrandID:     "b1",
		Platform:    models.PlatformTwitter,
		Type:        models.AlertTypeVolumeSpike,
		Severity:    models.SeverityHigh,
		Description: "volume spiked",
		Metrics:     map[string]float64{"spikeFactor": 4.2},
		CreatedAt:   time.Now(),
	}
	require.NoError(t, client.InsertAlert(alert))
	require.NoError(t, client.AcknowledgeAlert(alert.ID, "oncall"))
	require.NoError(t, client.ResolveAlert(alert.ID, "oncall", "traffic from product launch"))

	assert.Error(t, client.AcknowledgeAlert("missing", "oncall"))

	alerts, err := client.GetAlerts("b1", 10)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.SeverityHigh, alerts[0].Severity)
	assert.InDelta(t, 4.2, alerts[0].Metrics["spikeFactor"], 0.001)
}

func TestWorkflowRunRoundTrip(t *testing.T) {
	client := newTestClient(t)
	require.NoError(t, client.InsertBrand(&models.Brand{ID: "b1", Name: "Acme"}))

	report := &models.WorkflowReport{
		WorkflowID:    "wf-1",
		BrandID:       "b1",
		Goal:          "autonomous brand monitoring",
		Success:       true,
		Status:        models.WorkflowStatusCompleted,
		MentionsTotal: 12,
		Crisis:        models.CrisisAssessment{Score: 0.2, Level: "low"},
		StartedAt:     time.Now().Add(-time.Minute),
		CompletedAt:   time.Now(),
		DurationMS:    60000,
	}
	require.NoError(t, client.InsertWorkflowRun(report))

	runs, err := client.GetWorkflowRuns("b1", 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "wf-1", runs[0].WorkflowID)
	assert.Equal(t, 12, runs[0].MentionsTotal)
	assert.Equal(t, "low", runs[0].Crisis.Level)
}

func TestApprovalDecisionRequiresApproval(t *testing.T) {
	client := newTestClient(t)

	response := &models.GeneratedResponse{MentionID: "m1", Text: "hello"}
	assert.Error(t, client.InsertApprovalDecision("wf-1", response))

	response.Approval = &models.ApprovalDecision{
		Status:       models.StatusPendingApproval,
		RiskAnalysis: models.RiskAssessment{OverallRiskScore: 0.8, RiskCategory: models.RiskCategoryHigh},
	}
	require.NoError(t, client.InsertApprovalDecision("wf-1", response))

	count, err := client.CountPendingApprovals("wf-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
