package workflow

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/brand-agent/backend/internal/agents"
	"github.com/brand-agent/backend/internal/alerts"
	"github.com/brand-agent/backend/internal/analysis"
	"github.com/brand-agent/backend/internal/approval"
	"github.com/brand-agent/backend/internal/publish"
	"github.com/brand-agent/backend/internal/risk"
	"github.com/brand-agent/backend/internal/storage/models"
	"github.com/brand-agent/backend/pkg/logger"
)

const (
	stepInitialize        = "initialize_workflow"
	stepCollectData       = "collect_data"
	stepAnalyzeSentiment  = "analyze_sentiment"
	stepAssessCrisis      = "assess_crisis"
	stepGenerateResponses = "generate_responses"
	stepQualityAssessment = "quality_assessment"
	stepApprovalDecision  = "approval_decision"
	stepAutoPublish       = "auto_publish"
	stepHumanReview       = "human_review"
	stepCrisisEscalation  = "crisis_escalation"
	stepFinalize          = "finalize_workflow"
)

const (
	maxCollectRetries    = 2
	crisisEscalateScore  = 0.8
	crisisElevatedScore  = 0.6
	regenerateQualityBar = 0.5
)

// Orchestrator drives one monitoring workflow from collection through
// publication, routing between nodes on the state accumulated so far.
// Node failures are recorded and routed around; only dispatch resource
// exhaustion aborts the run with an error.
type Orchestrator struct {
	dispatcher  *agents.Dispatcher
	alertEngine *alerts.Engine
	scorer      *risk.Scorer
	policy      *approval.Policy
	publisher   *publish.Publisher

	maxResults int
	windowDays int
}

func NewOrchestrator(dispatcher *agents.Dispatcher, alertEngine *alerts.Engine, scorer *risk.Scorer, policy *approval.Policy, publisher *publish.Publisher) *Orchestrator {
	return &Orchestrator{
		dispatcher:  dispatcher,
		alertEngine: alertEngine,
		scorer:      scorer,
		policy:      policy,
		publisher:   publisher,
		maxResults:  100,
		windowDays:  1,
	}
}

// Run executes a full workflow for one brand and returns its report.
func (o *Orchestrator) Run(ctx context.Context, goal string, brand models.Brand, platforms, keywords []string) (*models.WorkflowReport, error) {
	state := newState(goal, brand, platforms, keywords)
	logger.Info("Workflow started",
		zap.String("workflowId", state.WorkflowID),
		zap.String("brandId", brand.ID),
		zap.Strings("platforms", platforms))

	o.runNode(ctx, state, stepInitialize, o.initializeWorkflow)

	for {
		if err := o.runNode(ctx, state, stepCollectData, o.collectData); err != nil {
			state.Aborted = true
			return o.buildReport(state), err
		}
		next := o.routeAfterCollect(state)
		if next == stepCollectData {
			state.CollectRetries++
			continue
		}
		if next == stepFinalize {
			state.Aborted = true
			o.runNode(ctx, state, stepFinalize, o.finalizeWorkflow)
			return o.buildReport(state), nil
		}
		break
	}

	if err := o.runNode(ctx, state, stepAnalyzeSentiment, o.analyzeSentiment); err != nil {
		state.Aborted = true
		return o.buildReport(state), err
	}
	o.runNode(ctx, state, stepAssessCrisis, o.assessCrisis)

	if o.routeAfterCrisis(state) == stepCrisisEscalation {
		o.runNode(ctx, state, stepCrisisEscalation, o.escalateCrisis)
		o.runNode(ctx, state, stepFinalize, o.finalizeWorkflow)
		return o.buildReport(state), nil
	}

	if len(o.itemsNeedingResponse(state)) > 0 {
		for {
			if err := o.runNode(ctx, state, stepGenerateResponses, o.generateResponses); err != nil {
				state.Aborted = true
				return o.buildReport(state), err
			}
			o.runNode(ctx, state, stepQualityAssessment, o.assessQuality)
			if o.routeAfterQuality(state) != stepGenerateResponses {
				break
			}
			state.Regenerated = true
			state.GeneratedResponses = nil
		}

		o.runNode(ctx, state, stepApprovalDecision, o.decideApprovals)
		approved, pending := state.countByApproval()
		if o.routeAfterApproval(state) == stepAutoPublish || approved > 0 {
			o.runNode(ctx, state, stepAutoPublish, o.autoPublish)
		}
		if pending > 0 {
			o.runNode(ctx, state, stepHumanReview, o.queueHumanReview)
		}
	}

	o.runNode(ctx, state, stepFinalize, o.finalizeWorkflow)
	return o.buildReport(state), nil
}

// runNode executes one node, recording completion or failure on the
// state. A panicking node is contained and counted as a failed step.
// Only dispatch resource errors propagate to the caller.
func (o *Orchestrator) runNode(ctx context.Context, state *State, step string, fn func(context.Context, *State) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Workflow node panicked",
				zap.String("workflowId", state.WorkflowID),
				zap.String("step", step),
				zap.Any("panic", r))
			state.fail(step)
			err = nil
		}
	}()

	if err = fn(ctx, state); err != nil {
		state.fail(step)
		if errors.Is(err, agents.ErrNoWorkersAvailable) || errors.Is(err, agents.ErrMailboxFull) {
			return err
		}
		logger.Warn("Workflow step failed",
			zap.String("workflowId", state.WorkflowID),
			zap.String("step", step),
			zap.Error(err))
		return nil
	}
	state.complete(step)
	return nil
}

func (o *Orchestrator) initializeWorkflow(_ context.Context, state *State) error {
	if state.Brand.ID == "" {
		return fmt.Errorf("workflow requires a brand")
	}
	if len(state.Platforms) == 0 {
		return fmt.Errorf("workflow requires at least one platform")
	}
	if len(state.Keywords) == 0 {
		state.Keywords = append([]string{state.Brand.Name}, state.Brand.Keywords...)
	}
	return nil
}

func (o *Orchestrator) collectData(ctx context.Context, state *State) error {
	task := &agents.Task{
		ID:                   fmt.Sprintf("%s-collect-%d", state.WorkflowID, state.CollectRetries),
		Description:          "collect brand mentions",
		RequiredCapabilities: []agents.Capability{agents.CapabilityDataCollection},
		Priority:             agents.PriorityHigh,
		Payload: map[string]interface{}{
			keyBrand:     state.Brand,
			keyPlatforms: state.Platforms,
			keyKeywords:  state.Keywords,
			keyMaxItems:  o.maxResults,
			keyWindow:    o.windowDays,
		},
		CreatedAt: time.Now(),
	}
	if err := o.dispatcher.Execute(ctx, task, agents.StrategySingle); err != nil {
		return err
	}
	output, err := firstOutput(task)
	if err != nil {
		return fmt.Errorf("failed to collect mentions: %w", err)
	}

	if mentions, ok := output[keyMentions].([]models.Mention); ok {
		state.CollectedData = mentions
	}
	if collErrs, ok := output[keyErrors].(map[string]string); ok {
		for platform, reason := range collErrs {
			state.CollectionErrors[platform] = reason
		}
	}
	state.AgentResults[stepCollectData] = len(state.CollectedData)
	return nil
}

func (o *Orchestrator) routeAfterCollect(state *State) string {
	if !state.lastCollectFailed() {
		// A clean collection that produced nothing leaves the rest of
		// the pipeline with no work; end the run instead of reporting
		// an empty batch as a success.
		if len(state.CollectedData) == 0 {
			return stepFinalize
		}
		return stepAnalyzeSentiment
	}
	if state.CollectRetries < maxCollectRetries {
		return stepCollectData
	}
	return stepFinalize
}

func (o *Orchestrator) analyzeSentiment(ctx context.Context, state *State) error {
	if len(state.CollectedData) == 0 {
		return nil
	}
	task := &agents.Task{
		ID:                   state.WorkflowID + "-analyze",
		Description:          "analyze mention sentiment",
		RequiredCapabilities: []agents.Capability{agents.CapabilitySentimentAnalysis},
		Priority:             agents.PriorityHigh,
		Payload:              map[string]interface{}{keyMentions: state.CollectedData},
		CreatedAt:            time.Now(),
	}
	if err := o.dispatcher.Execute(ctx, task, agents.StrategySingle); err != nil {
		return err
	}
	output, err := firstOutput(task)
	if err != nil {
		return fmt.Errorf("failed to analyze mentions: %w", err)
	}

	if analyzed, ok := output[keyAnalyzed].([]models.AnalyzedMention); ok {
		state.Analyzed = analyzed
	}
	if failures, ok := output[keyFailures].([]analysis.ItemError); ok {
		state.AnalysisFailures = failures
	}
	state.AgentResults[stepAnalyzeSentiment] = len(state.Analyzed)
	return nil
}

// assessCrisis scores the batch, evaluates the alert rules per
// platform, and records the combined picture on the state.
func (o *Orchestrator) assessCrisis(_ context.Context, state *State) error {
	negatives := 0
	keywordCount := 0
	highEngagementNegatives := 0
	indicatorSet := make(map[string]struct{})
	thresholds := risk.DefaultEngagementThresholds()

	for _, item := range state.Analyzed {
		if item.CrisisIndicators != nil {
			keywordCount += len(item.CrisisIndicators.Keywords)
			for _, kw := range item.CrisisIndicators.Keywords {
				indicatorSet[kw] = struct{}{}
			}
		}
		if item.Sentiment.Label != models.SentimentNegative {
			continue
		}
		negatives++
		if item.Mention.Likes > thresholds.Likes || item.Mention.Shares > thresholds.Shares || item.Mention.Comments > thresholds.Comments {
			highEngagementNegatives++
		}
	}

	var negRatio float64
	if len(state.Analyzed) > 0 {
		negRatio = float64(negatives) / float64(len(state.Analyzed))
	}
	score := 0.4*negRatio +
		0.4*math.Min(1, float64(keywordCount)/5) +
		0.2*math.Min(1, float64(highEngagementNegatives)/3)

	state.Crisis = models.CrisisAssessment{
		Score:      score,
		Level:      crisisLevel(score),
		Indicators: sortedKeys(indicatorSet),
	}
	if score > crisisElevatedScore && score <= crisisEscalateScore {
		state.Crisis.Actions = []string{
			"notify_pr_team",
			"increase_monitoring_frequency",
			"prepare_response_templates",
		}
	}

	for platform, batch := range groupByPlatform(state.Analyzed) {
		state.Alerts = append(state.Alerts, o.alertEngine.Evaluate(state.Brand.ID, platform, batch)...)
	}
	return nil
}

func (o *Orchestrator) routeAfterCrisis(state *State) string {
	if state.Crisis.Score > crisisEscalateScore {
		return stepCrisisEscalation
	}
	return stepGenerateResponses
}

func (o *Orchestrator) escalateCrisis(_ context.Context, state *State) error {
	state.Escalated = true
	state.Crisis.Actions = []string{
		"notify_ceo_immediately",
		"activate_crisis_team",
		"prepare_press_statement",
		"monitor_social_sentiment_hourly",
	}
	state.FinalResults["escalation"] = state.Crisis
	logger.Warn("Crisis escalation triggered",
		zap.String("workflowId", state.WorkflowID),
		zap.String("brandId", state.Brand.ID),
		zap.Float64("score", state.Crisis.Score))
	return nil
}

func (o *Orchestrator) itemsNeedingResponse(state *State) []models.AnalyzedMention {
	items := make([]models.AnalyzedMention, 0, len(state.Analyzed))
	for _, item := range state.Analyzed {
		if item.NeedsResponse {
			items = append(items, item)
		}
	}
	return items
}

func (o *Orchestrator) generateResponses(ctx context.Context, state *State) error {
	items := o.itemsNeedingResponse(state)
	task := &agents.Task{
		ID:                   state.WorkflowID + "-respond",
		Description:          "generate brand responses",
		RequiredCapabilities: []agents.Capability{agents.CapabilityResponseGeneration},
		Priority:             agents.PriorityNormal,
		Payload: map[string]interface{}{
			keyBrand: state.Brand,
			keyItems: items,
		},
		CreatedAt: time.Now(),
	}
	if err := o.dispatcher.Execute(ctx, task, agents.StrategySingle); err != nil {
		return err
	}
	output, err := firstOutput(task)
	if err != nil {
		return fmt.Errorf("failed to generate responses: %w", err)
	}

	if responses, ok := output[keyResponses].([]models.GeneratedResponse); ok {
		state.GeneratedResponses = responses
	}
	state.AgentResults[stepGenerateResponses] = len(state.GeneratedResponses)
	return nil
}

func (o *Orchestrator) assessQuality(_ context.Context, state *State) error {
	if len(state.GeneratedResponses) == 0 {
		state.QualityScores["average"] = 0
		return nil
	}
	var sum float64
	for _, r := range state.GeneratedResponses {
		state.QualityScores[r.MentionID] = r.QualityScore
		sum += r.QualityScore
	}
	state.QualityScores["average"] = sum / float64(len(state.GeneratedResponses))
	return nil
}

func (o *Orchestrator) routeAfterQuality(state *State) string {
	if len(state.GeneratedResponses) > 0 &&
		state.averageQuality() < regenerateQualityBar &&
		!state.Regenerated {
		return stepGenerateResponses
	}
	return stepApprovalDecision
}

func (o *Orchestrator) decideApprovals(_ context.Context, state *State) error {
	byID := make(map[string]models.AnalyzedMention, len(state.Analyzed))
	for _, item := range state.Analyzed {
		byID[item.Mention.ID] = item
	}
	crisisMode := state.Crisis.Score > crisisElevatedScore

	for i := range state.GeneratedResponses {
		resp := &state.GeneratedResponses[i]
		item, ok := byID[resp.MentionID]
		if !ok {
			continue
		}
		assessment := o.scorer.Assess(resp.Text, item, resp.QualityScore)
		decision := o.policy.Decide(assessment, approval.Context{
			Platform:   item.Mention.Platform,
			CrisisMode: crisisMode,
		})
		resp.Approval = &decision
		state.RiskAssessments = append(state.RiskAssessments, assessment)
	}
	return nil
}

func (o *Orchestrator) routeAfterApproval(state *State) string {
	approved, pending := state.countByApproval()
	if approved > 0 {
		return stepAutoPublish
	}
	if pending > 0 {
		return stepHumanReview
	}
	return stepAutoPublish
}

func (o *Orchestrator) autoPublish(ctx context.Context, state *State) error {
	byID := make(map[string]models.AnalyzedMention, len(state.Analyzed))
	for _, item := range state.Analyzed {
		byID[item.Mention.ID] = item
	}

	for i := range state.GeneratedResponses {
		resp := &state.GeneratedResponses[i]
		if resp.Approval == nil {
			continue
		}
		switch resp.Approval.Status {
		case models.StatusApprovedAuto, models.StatusApprovedContextual:
		default:
			continue
		}
		item, ok := byID[resp.MentionID]
		if !ok {
			continue
		}
		result := o.publisher.Publish(ctx, item.Mention.Platform, *resp)
		state.PublishResults = append(state.PublishResults, result)
		if result.Success {
			resp.Published = true
		}
	}
	state.AgentResults[stepAutoPublish] = len(state.PublishResults)
	return nil
}

func (o *Orchestrator) queueHumanReview(_ context.Context, state *State) error {
	pending := make([]models.GeneratedResponse, 0)
	for _, r := range state.GeneratedResponses {
		if r.Approval != nil && r.Approval.Status == models.StatusPendingApproval {
			pending = append(pending, r)
		}
	}
	state.FinalResults["pendingReview"] = pending
	logger.Info("Responses queued for human review",
		zap.String("workflowId", state.WorkflowID),
		zap.Int("count", len(pending)))
	return nil
}

func (o *Orchestrator) finalizeWorkflow(_ context.Context, state *State) error {
	approved, pending := state.countByApproval()
	total := len(state.GeneratedResponses)

	if total > 0 && float64(approved)/float64(total) < 0.5 {
		state.Recommendations = append(state.Recommendations,
			"Review approval thresholds: less than half of generated responses were auto-approved")
	}
	if total > 0 && state.averageQuality() < 0.6 {
		state.Recommendations = append(state.Recommendations,
			"Refresh the brand knowledge base: response quality is trending low")
	}
	if state.Crisis.Score > crisisElevatedScore {
		state.Recommendations = append(state.Recommendations,
			"Maintain heightened monitoring until the crisis score recedes")
	}

	if pending > 0 {
		state.NextActions = append(state.NextActions,
			"Review pending responses in the approval dashboard")
	}
	if state.Crisis.Score > crisisElevatedScore {
		state.NextActions = append(state.NextActions,
			"Monitor sentiment hourly for the next 24 hours")
	}

	state.FinalResults["mentionsCollected"] = len(state.CollectedData)
	state.FinalResults["mentionsAnalyzed"] = len(state.Analyzed)
	state.FinalResults["responsesGenerated"] = total
	state.FinalResults["responsesApproved"] = approved
	state.FinalResults["alertsTriggered"] = len(state.Alerts)
	return nil
}

func (o *Orchestrator) buildReport(state *State) *models.WorkflowReport {
	completedAt := time.Now()
	status := models.WorkflowStatusCompleted
	switch {
	case state.Aborted:
		status = models.WorkflowStatusAborted
	case state.Escalated:
		status = models.WorkflowStatusEscalated
	}

	var reportErrors []string
	for platform, reason := range state.CollectionErrors {
		reportErrors = append(reportErrors, fmt.Sprintf("collect %s: %s", platform, reason))
	}
	for _, failure := range state.AnalysisFailures {
		reportErrors = append(reportErrors, fmt.Sprintf("analyze %s: %s", failure.MentionID, failure.Reason))
	}

	report := &models.WorkflowReport{
		WorkflowID:      state.WorkflowID,
		BrandID:         state.Brand.ID,
		Goal:            state.Goal,
		Success:         status == models.WorkflowStatusCompleted,
		Status:          status,
		CompletedSteps:  state.CompletedSteps,
		FailedSteps:     state.FailedSteps,
		MentionsTotal:   len(state.Analyzed),
		SentimentCounts: state.sentimentCounts(),
		Crisis:          state.Crisis,
		Responses:       state.GeneratedResponses,
		Alerts:          state.Alerts,
		Recommendations: state.Recommendations,
		NextActions:     state.NextActions,
		Errors:          reportErrors,
		StartedAt:       state.StartedAt,
		CompletedAt:     completedAt,
		DurationMS:      completedAt.Sub(state.StartedAt).Milliseconds(),
	}
	logger.Info("Workflow finished",
		zap.String("workflowId", report.WorkflowID),
		zap.String("status", report.Status),
		zap.Int("mentions", report.MentionsTotal),
		zap.Int("alerts", len(report.Alerts)))
	return report
}

func crisisLevel(score float64) string {
	switch {
	case score > crisisEscalateScore:
		return "critical"
	case score > crisisElevatedScore:
		return "high"
	case score > 0.3:
		return "medium"
	default:
		return "low"
	}
}

func firstOutput(task *agents.Task) (map[string]interface{}, error) {
	for _, result := range task.Results {
		if result.Err == nil {
			return result.Output, nil
		}
	}
	if len(task.Results) > 0 {
		return nil, task.Results[0].Err
	}
	return nil, fmt.Errorf("task %s produced no results", task.ID)
}

func groupByPlatform(items []models.AnalyzedMention) map[string][]models.AnalyzedMention {
	grouped := make(map[string][]models.AnalyzedMention)
	for _, item := range items {
		grouped[item.Mention.Platform] = append(grouped[item.Mention.Platform], item)
	}
	return grouped
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
