package workflow

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/brand-agent/backend/internal/agents"
	"github.com/brand-agent/backend/internal/analysis"
	"github.com/brand-agent/backend/internal/collect"
	"github.com/brand-agent/backend/internal/response"
	"github.com/brand-agent/backend/internal/storage/models"
	"github.com/brand-agent/backend/pkg/logger"
)

// Payload and output keys for the worker adapters.
const (
	keyBrand     = "brand"
	keyPlatforms = "platforms"
	keyKeywords  = "keywords"
	keyMentions  = "mentions"
	keyAnalyzed  = "analyzed"
	keyFailures  = "failures"
	keyErrors    = "errors"
	keyItems     = "items"
	keyResponses = "responses"
	keyMaxItems  = "maxItems"
	keyWindow    = "windowDays"
)

// Deduper filters out mentions a brand has already been shown,
// marking what it returns as seen.
type Deduper interface {
	FilterUnseenMentions(ctx context.Context, brandID string, mentions []models.Mention, ttl time.Duration) ([]models.Mention, error)
}

const seenMentionTTL = 7 * 24 * time.Hour

// CollectorWorker bridges the platform collector into the dispatch
// layer. With a deduper attached, repeated cycles only surface
// mentions the brand has not seen before.
type CollectorWorker struct {
	collector *collect.Collector
	deduper   Deduper
}

func NewCollectorWorker(collector *collect.Collector, deduper Deduper) *CollectorWorker {
	return &CollectorWorker{collector: collector, deduper: deduper}
}

func (w *CollectorWorker) ID() string { return "collector" }

func (w *CollectorWorker) Capabilities() []agents.Capability {
	return []agents.Capability{agents.CapabilityDataCollection}
}

func (w *CollectorWorker) Execute(ctx context.Context, task *agents.Task, shared map[string]interface{}) (map[string]interface{}, error) {
	brand, ok := task.Payload[keyBrand].(models.Brand)
	if !ok {
		return nil, fmt.Errorf("collect task missing brand payload")
	}
	platforms, _ := task.Payload[keyPlatforms].([]string)
	keywords, _ := task.Payload[keyKeywords].([]string)
	maxItems, _ := task.Payload[keyMaxItems].(int)
	windowDays, _ := task.Payload[keyWindow].(int)
	if maxItems <= 0 {
		maxItems = 100
	}
	if windowDays <= 0 {
		windowDays = 1
	}

	result := w.collector.Collect(ctx, brand.ID, platforms, keywords, maxItems, windowDays)
	if len(result.Mentions) == 0 && len(result.Errors) == len(platforms) && len(platforms) > 0 {
		return nil, fmt.Errorf("all %d platforms failed to collect", len(platforms))
	}

	mentions := result.Mentions
	if w.deduper != nil {
		unseen, err := w.deduper.FilterUnseenMentions(ctx, brand.ID, mentions, seenMentionTTL)
		if err != nil {
			logger.Warn("Mention dedupe failed, keeping full batch",
				zap.String("brand", brand.ID), zap.Error(err))
		} else {
			mentions = unseen
		}
	}

	return map[string]interface{}{
		keyMentions: mentions,
		keyErrors:   result.Errors,
	}, nil
}

// AnalyzerWorker runs sentiment analysis over a collected batch.
type AnalyzerWorker struct {
	analyzer *analysis.Analyzer
}

func NewAnalyzerWorker(analyzer *analysis.Analyzer) *AnalyzerWorker {
	return &AnalyzerWorker{analyzer: analyzer}
}

func (w *AnalyzerWorker) ID() string { return "analyzer" }

func (w *AnalyzerWorker) Capabilities() []agents.Capability {
	return []agents.Capability{agents.CapabilitySentimentAnalysis, agents.CapabilityCrisisAssessment}
}

func (w *AnalyzerWorker) Execute(ctx context.Context, task *agents.Task, shared map[string]interface{}) (map[string]interface{}, error) {
	mentions, ok := task.Payload[keyMentions].([]models.Mention)
	if !ok {
		return nil, fmt.Errorf("analyze task missing mentions payload")
	}

	analyzed, failures := w.analyzer.Analyze(ctx, mentions)
	return map[string]interface{}{
		keyAnalyzed: analyzed,
		keyFailures: failures,
	}, nil
}

// ResponderWorker drafts replies for the items that need one.
type ResponderWorker struct {
	generator *response.Generator
}

func NewResponderWorker(generator *response.Generator) *ResponderWorker {
	return &ResponderWorker{generator: generator}
}

func (w *ResponderWorker) ID() string { return "responder" }

func (w *ResponderWorker) Capabilities() []agents.Capability {
	return []agents.Capability{agents.CapabilityResponseGeneration, agents.CapabilityQualityEvaluation}
}

func (w *ResponderWorker) Execute(ctx context.Context, task *agents.Task, shared map[string]interface{}) (map[string]interface{}, error) {
	brand, ok := task.Payload[keyBrand].(models.Brand)
	if !ok {
		return nil, fmt.Errorf("respond task missing brand payload")
	}
	items, ok := task.Payload[keyItems].([]models.AnalyzedMention)
	if !ok {
		return nil, fmt.Errorf("respond task missing items payload")
	}

	responses := make([]models.GeneratedResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, w.generator.Generate(ctx, brand, item))
	}
	return map[string]interface{}{keyResponses: responses}, nil
}
