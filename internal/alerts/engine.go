package alerts

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/brand-agent/backend/internal/storage/models"
	"github.com/brand-agent/backend/pkg/logger"
)

const (
	volumeRetention    = 7 * 24 * time.Hour
	sentimentRetention = 24 * time.Hour

	minVolumeSamples    = 10
	minSentimentSamples = 5
)

type Config struct {
	SentimentConfidenceThreshold float64
	VolumeThreshold              int
	VolumeSpikeMultiplier        float64
	DeteriorationDelta           float64
}

func DefaultConfig() Config {
	return Config{
		SentimentConfidenceThreshold: 0.7,
		VolumeThreshold:              10,
		VolumeSpikeMultiplier:        3.0,
		DeteriorationDelta:           0.3,
	}
}

// Engine evaluates batches of analyzed mentions against the alert rules
// and owns the active-alert map plus the per-brand resolution history.
type Engine struct {
	mu               sync.Mutex
	config           Config
	volumeWindows    map[string]*window
	sentimentWindows map[string]*window
	active           map[string]models.Alert
	history          map[string][]models.ResolvedAlert
	now              func() time.Time
}

func NewEngine(config Config) *Engine {
	return &Engine{
		config:           config,
		volumeWindows:    make(map[string]*window),
		sentimentWindows: make(map[string]*window),
		active:           make(map[string]models.Alert),
		history:          make(map[string][]models.ResolvedAlert),
		now:              time.Now,
	}
}

// Evaluate runs every rule against the batch. Rules are isolated: a rule
// that panics contributes zero alerts for this cycle and the remaining
// rules still run. Returned alerts are sorted by severity, then recency,
// and upserted into the active map keyed by derived alert id.
func (e *Engine) Evaluate(brandID, platform string, batch []models.AnalyzedMention) []models.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	var alerts []models.Alert

	rules := []struct {
		name string
		fn   func() *models.Alert
	}{
		{"negative_sentiment_spike", func() *models.Alert { return e.checkNegativeSentimentSpike(batch) }},
		{"crisis_keywords", func() *models.Alert { return e.checkCrisisKeywords(batch) }},
		{"volume_spike", func() *models.Alert { return e.checkVolumeSpike(brandID, platform, now, len(batch)) }},
		{"sentiment_deterioration", func() *models.Alert { return e.checkSentimentDeterioration(brandID, platform, now, batch) }},
	}

	for _, rule := range rules {
		if alert := runRule(rule.name, rule.fn); alert != nil {
			alert.BrandID = brandID
			alert.Platform = platform
			alert.CreatedAt = now
			alert.ID = fmt.Sprintf("%s_%s_%d", brandID, alert.Type, now.Unix())
			alerts = append(alerts, *alert)
		}
	}

	sortAlerts(alerts)

	for _, alert := range alerts {
		e.active[alert.ID] = alert
	}

	return alerts
}

func runRule(name string, fn func() *models.Alert) (alert *models.Alert) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Alert rule failed", zap.String("rule", name), zap.Any("panic", r))
			alert = nil
		}
	}()
	return fn()
}

func sortAlerts(alerts []models.Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].Severity != alerts[j].Severity {
			return alerts[i].Severity > alerts[j].Severity
		}
		return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
	})
}

func (e *Engine) checkNegativeSentimentSpike(batch []models.AnalyzedMention) *models.Alert {
	var count int
	var confidenceSum float64
	for _, item := range batch {
		if item.Sentiment.Label == models.SentimentNegative && item.Sentiment.Confidence > e.config.SentimentConfidenceThreshold {
			count++
			confidenceSum += item.Sentiment.Confidence
		}
	}
	if count < e.config.VolumeThreshold {
		return nil
	}

	meanConfidence := confidenceSum / float64(count)
	severity := models.SeverityHigh
	if meanConfidence > 0.8 {
		severity = models.SeverityCritical
	}

	return &models.Alert{
		Type:     models.AlertTypeNegativeSentimentSpike,
		Severity: severity,
		Description: fmt.Sprintf("%d high-confidence negative mentions detected (mean confidence %.2f)",
			count, meanConfidence),
		Metrics: map[string]float64{
			"negativeCount":  float64(count),
			"meanConfidence": meanConfidence,
		},
	}
}

func (e *Engine) checkCrisisKeywords(batch []models.AnalyzedMention) *models.Alert {
	distribution := make(map[string]int)
	keywordSet := make(map[string]struct{})
	maxRisk := models.SeverityLow
	var count int

	for _, item := range batch {
		ind := item.CrisisIndicators
		if ind == nil || !ind.HasIndicators {
			continue
		}
		count++
		distribution[ind.RiskLevel.String()]++
		if ind.RiskLevel > maxRisk {
			maxRisk = ind.RiskLevel
		}
		for _, kw := range ind.Keywords {
			keywordSet[kw] = struct{}{}
		}
	}
	if count == 0 {
		return nil
	}

	keywords := make([]string, 0, len(keywordSet))
	for kw := range keywordSet {
		keywords = append(keywords, kw)
	}
	sort.Strings(keywords)

	return &models.Alert{
		Type:                       models.AlertTypeCrisisKeywords,
		Severity:                   maxRisk,
		Description:                fmt.Sprintf("Crisis indicators present in %d mentions", count),
		Keywords:                   keywords,
		RiskDistribution:           distribution,
		RequiresImmediateAttention: maxRisk >= models.SeverityHigh,
		Metrics: map[string]float64{
			"mentionCount": float64(count),
		},
	}
}

func (e *Engine) checkVolumeSpike(brandID, platform string, now time.Time, volume int) *models.Alert {
	key := brandID + "|" + platform
	w, ok := e.volumeWindows[key]
	if !ok {
		w = newWindow(volumeRetention)
		e.volumeWindows[key] = w
	}
	w.append(now, float64(volume))

	if w.len() < minVolumeSamples {
		return nil
	}

	mean := w.mean()
	if mean <= 0 || float64(volume) <= mean*e.config.VolumeSpikeMultiplier {
		return nil
	}

	factor := float64(volume) / mean
	severity := models.SeverityMedium
	switch {
	case factor > 5:
		severity = models.SeverityCritical
	case factor > 3:
		severity = models.SeverityHigh
	}

	return &models.Alert{
		Type:        models.AlertTypeVolumeSpike,
		Severity:    severity,
		Description: fmt.Sprintf("Mention volume %d is %.1fx the rolling baseline %.1f", volume, factor, mean),
		Metrics: map[string]float64{
			"currentVolume": float64(volume),
			"baseline":      mean,
			"spikeFactor":   factor,
		},
	}
}

func (e *Engine) checkSentimentDeterioration(brandID, platform string, now time.Time, batch []models.AnalyzedMention) *models.Alert {
	if len(batch) == 0 {
		return nil
	}

	var negatives int
	for _, item := range batch {
		if item.Sentiment.Label == models.SentimentNegative {
			negatives++
		}
	}
	current := float64(negatives) / float64(len(batch))

	key := brandID + "|" + platform
	w, ok := e.sentimentWindows[key]
	if !ok {
		w = newWindow(sentimentRetention)
		e.sentimentWindows[key] = w
	}
	w.append(now, current)

	if w.len() < minSentimentSamples {
		return nil
	}

	baseline := w.meanExcludingLast()
	delta := current - baseline
	if delta <= e.config.DeteriorationDelta {
		return nil
	}

	severity := models.SeverityMedium
	if delta > 0.5 {
		severity = models.SeverityHigh
	}

	return &models.Alert{
		Type:     models.AlertTypeSentimentDeterioration,
		Severity: severity,
		Description: fmt.Sprintf("Negative sentiment ratio %.2f is %.2f above the 24h baseline %.2f",
			current, delta, baseline),
		Metrics: map[string]float64{
			"currentRatio": current,
			"baseline":     baseline,
			"delta":        delta,
		},
	}
}

// Active returns the active alerts, optionally filtered by brand, sorted
// by severity then recency.
func (e *Engine) Active(brandID string) []models.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	alerts := make([]models.Alert, 0, len(e.active))
	for _, alert := range e.active {
		if brandID != "" && alert.BrandID != brandID {
			continue
		}
		alerts = append(alerts, alert)
	}
	sortAlerts(alerts)
	return alerts
}

func (e *Engine) Acknowledge(alertID, acknowledgedBy string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	alert, ok := e.active[alertID]
	if !ok {
		return fmt.Errorf("alert not found: %s", alertID)
	}

	now := e.now()
	alert.AcknowledgedBy = acknowledgedBy
	alert.AcknowledgedAt = &now
	e.active[alertID] = alert
	return nil
}

// Resolve removes the alert from the active map and archives it in the
// brand history. Resolution never discards the alert record.
func (e *Engine) Resolve(alertID, resolvedBy, resolution string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	alert, ok := e.active[alertID]
	if !ok {
		return fmt.Errorf("alert not found: %s", alertID)
	}

	delete(e.active, alertID)
	e.history[alert.BrandID] = append(e.history[alert.BrandID], models.ResolvedAlert{
		Alert:      alert,
		ResolvedBy: resolvedBy,
		Resolution: resolution,
		ResolvedAt: e.now(),
	})
	return nil
}

func (e *Engine) History(brandID string) []models.ResolvedAlert {
	e.mu.Lock()
	defer e.mu.Unlock()

	archived := e.history[brandID]
	out := make([]models.ResolvedAlert, len(archived))
	copy(out, archived)
	return out
}

type Stats struct {
	Active     int            `json:"active"`
	Resolved   int            `json:"resolved"`
	BySeverity map[string]int `json:"bySeverity"`
	ByType     map[string]int `json:"byType"`
}

func (e *Engine) Statistics() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats := Stats{
		BySeverity: make(map[string]int),
		ByType:     make(map[string]int),
	}
	stats.Active = len(e.active)
	for _, alert := range e.active {
		stats.BySeverity[alert.Severity.String()]++
		stats.ByType[alert.Type]++
	}
	for _, archived := range e.history {
		stats.Resolved += len(archived)
	}
	return stats
}
