package workflow

import (
	"time"

	"github.com/google/uuid"

	"github.com/brand-agent/backend/internal/analysis"
	"github.com/brand-agent/backend/internal/publish"
	"github.com/brand-agent/backend/internal/storage/models"
)

// State is the mutable record threaded through one orchestration run.
// It is exclusively owned by that run: no two nodes of the same
// workflow execute concurrently and the state is never shared across
// workflows.
type State struct {
	WorkflowID string
	Goal       string
	Brand      models.Brand
	Platforms  []string
	Keywords   []string

	CompletedSteps []string
	FailedSteps    []string
	AgentResults   map[string]interface{}

	CollectedData    []models.Mention
	CollectionErrors map[string]string
	Analyzed         []models.AnalyzedMention
	AnalysisFailures []analysis.ItemError

	GeneratedResponses []models.GeneratedResponse
	QualityScores      map[string]float64
	RiskAssessments    []models.RiskAssessment
	PublishResults     []publish.Result

	Alerts []models.Alert
	Crisis models.CrisisAssessment

	FinalResults    map[string]interface{}
	Recommendations []string
	NextActions     []string

	CollectRetries int
	Regenerated    bool
	Escalated      bool
	Aborted        bool

	StartedAt time.Time
}

func newState(goal string, brand models.Brand, platforms, keywords []string) *State {
	return &State{
		WorkflowID:       uuid.NewString(),
		Goal:             goal,
		Brand:            brand,
		Platforms:        platforms,
		Keywords:         keywords,
		AgentResults:     make(map[string]interface{}),
		CollectionErrors: make(map[string]string),
		QualityScores:    make(map[string]float64),
		FinalResults:     make(map[string]interface{}),
		StartedAt:        time.Now(),
	}
}

func (s *State) complete(step string) {
	s.CompletedSteps = append(s.CompletedSteps, step)
}

func (s *State) fail(step string) {
	s.FailedSteps = append(s.FailedSteps, step)
}

func (s *State) stepFailed(step string) bool {
	for i := len(s.FailedSteps) - 1; i >= 0; i-- {
		if s.FailedSteps[i] == step {
			return true
		}
	}
	return false
}

func (s *State) lastCollectFailed() bool {
	completed := 0
	for _, step := range s.CompletedSteps {
		if step == stepCollectData {
			completed++
		}
	}
	failed := 0
	for _, step := range s.FailedSteps {
		if step == stepCollectData {
			failed++
		}
	}
	return failed > completed
}

func (s *State) averageQuality() float64 {
	if avg, ok := s.QualityScores["average"]; ok {
		return avg
	}
	if len(s.GeneratedResponses) == 0 {
		return 0
	}
	var sum float64
	for _, r := range s.GeneratedResponses {
		sum += r.QualityScore
	}
	return sum / float64(len(s.GeneratedResponses))
}

func (s *State) countByApproval() (approved, pending int) {
	for _, r := range s.GeneratedResponses {
		if r.Approval == nil {
			continue
		}
		switch r.Approval.Status {
		case models.StatusApprovedAuto, models.StatusApprovedContextual:
			approved++
		case models.StatusPendingApproval:
			pending++
		}
	}
	return approved, pending
}

func (s *State) sentimentCounts() map[string]int {
	counts := map[string]int{
		models.SentimentPositive: 0,
		models.SentimentNeutral:  0,
		models.SentimentNegative: 0,
	}
	for _, item := range s.Analyzed {
		counts[item.Sentiment.Label]++
	}
	return counts
}
