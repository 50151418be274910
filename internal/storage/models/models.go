package models

import "time"

type Brand struct {
	ID         string
	Name       string
	Keywords   []string
	Industry   string
	CrisisMode bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Mention struct {
	ID        string    `json:"id"`
	BrandID   string    `json:"brandId"`
	Platform  string    `json:"platform"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	URL       string    `json:"url,omitempty"`
	Likes     int       `json:"likes"`
	Shares    int       `json:"shares"`
	Comments  int       `json:"comments"`
	Followers int       `json:"followers"`
	Verified  bool      `json:"verified"`
	PostedAt  time.Time `json:"postedAt"`
	FetchedAt time.Time `json:"fetchedAt"`
}

const (
	PlatformTwitter   = "twitter"
	PlatformReddit    = "reddit"
	PlatformNews      = "news"
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"
)

type Sentiment struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Emotion    string  `json:"emotion,omitempty"`
}

const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

type CrisisIndicators struct {
	HasIndicators bool     `json:"hasIndicators"`
	RiskLevel     Severity `json:"riskLevel"`
	Keywords      []string `json:"keywords,omitempty"`
}

type AnalyzedMention struct {
	Mention          Mention           `json:"mention"`
	Sentiment        Sentiment         `json:"sentiment"`
	CrisisIndicators *CrisisIndicators `json:"crisisIndicators,omitempty"`
	NeedsResponse    bool              `json:"needsResponse"`
	AnalyzedAt       time.Time         `json:"analyzedAt"`
}

type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "critical"
	case SeverityHigh:
		return "high"
	case SeverityMedium:
		return "medium"
	default:
		return "low"
	}
}

func ParseSeverity(s string) Severity {
	switch s {
	case "critical":
		return SeverityCritical
	case "high":
		return SeverityHigh
	case "medium":
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

const (
	AlertTypeNegativeSentimentSpike = "negative_sentiment_spike"
	AlertTypeCrisisKeywords         = "crisis_keywords_detected"
	AlertTypeVolumeSpike            = "volume_spike"
	AlertTypeSentimentDeterioration = "sentiment_deterioration"
)

type Alert struct {
	ID                         string             `json:"alertId"`
	BrandID                    string             `json:"brandId"`
	Platform                   string             `json:"platform"`
	Type                       string             `json:"type"`
	Severity                   Severity           `json:"severity"`
	Description                string             `json:"description"`
	Metrics                    map[string]float64 `json:"metrics,omitempty"`
	Keywords                   []string           `json:"keywords,omitempty"`
	RiskDistribution           map[string]int     `json:"riskDistribution,omitempty"`
	RequiresImmediateAttention bool               `json:"requiresImmediateAttention,omitempty"`
	CreatedAt                  time.Time          `json:"createdAt"`
	AcknowledgedBy             string             `json:"acknowledgedBy,omitempty"`
	AcknowledgedAt             *time.Time         `json:"acknowledgedAt,omitempty"`
}

type ResolvedAlert struct {
	Alert      Alert     `json:"alert"`
	ResolvedBy string    `json:"resolvedBy"`
	Resolution string    `json:"resolution"`
	ResolvedAt time.Time `json:"resolvedAt"`
}

type RiskAssessment struct {
	OverallRiskScore float64            `json:"overallRiskScore"`
	RiskFactors      []string           `json:"riskFactors"`
	ComponentRisks   map[string]float64 `json:"componentRisks"`
	RiskCategory     string             `json:"riskCategory"`
}

const (
	RiskCategoryLow    = "low"
	RiskCategoryMedium = "medium"
	RiskCategoryHigh   = "high"
)

const (
	StatusApprovedAuto       = "approved_auto"
	StatusApprovedContextual = "approved_contextual"
	StatusPendingApproval    = "pending_approval"
)

type ApprovalDecision struct {
	Status              string         `json:"status"`
	RequiresHumanReview bool           `json:"requiresHumanReview"`
	Reasoning           string         `json:"reasoning"`
	Confidence          string         `json:"confidence"`
	SuggestedReviewers  []string       `json:"suggestedReviewers,omitempty"`
	AdjustedThreshold   float64        `json:"adjustedThreshold,omitempty"`
	RiskAnalysis        RiskAssessment `json:"riskAnalysis"`
	DecisionTimestamp   time.Time      `json:"decisionTimestamp"`
}

type GeneratedResponse struct {
	MentionID    string            `json:"mentionId"`
	Text         string            `json:"text"`
	QualityScore float64           `json:"qualityScore"`
	Approval     *ApprovalDecision `json:"approval,omitempty"`
	Published    bool              `json:"published"`
}

type CrisisAssessment struct {
	Score      float64  `json:"score"`
	Level      string   `json:"level"`
	Indicators []string `json:"indicators,omitempty"`
	Actions    []string `json:"actions,omitempty"`
}

type WorkflowReport struct {
	WorkflowID      string              `json:"workflowId"`
	BrandID         string              `json:"brandId"`
	Goal            string              `json:"goal"`
	Success         bool                `json:"success"`
	Status          string              `json:"status"`
	CompletedSteps  []string            `json:"completedSteps"`
	FailedSteps     []string            `json:"failedSteps"`
	MentionsTotal   int                 `json:"mentionsTotal"`
	SentimentCounts map[string]int      `json:"sentimentCounts"`
	Crisis          CrisisAssessment    `json:"crisis"`
	Responses       []GeneratedResponse `json:"responses"`
	Alerts          []Alert             `json:"alerts,omitempty"`
	Recommendations []string            `json:"recommendations"`
	NextActions     []string            `json:"nextActions"`
	Errors          []string            `json:"errors,omitempty"`
	StartedAt       time.Time           `json:"startedAt"`
	CompletedAt     time.Time           `json:"completedAt"`
	DurationMS      int64               `json:"durationMs"`
}

const (
	WorkflowStatusCompleted = "completed"
	WorkflowStatusEscalated = "escalated"
	WorkflowStatusAborted   = "aborted"
)
