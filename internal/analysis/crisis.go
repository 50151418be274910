package analysis

import (
	"sort"
	"strings"

	"github.com/brand-agent/backend/internal/storage/models"
)

var crisisVocabulary = map[string]models.Severity{
	"lawsuit":        models.SeverityCritical,
	"data breach":    models.SeverityCritical,
	"recall":         models.SeverityCritical,
	"fraud":          models.SeverityCritical,
	"boycott":        models.SeverityCritical,
	"injury":         models.SeverityHigh,
	"scandal":        models.SeverityHigh,
	"unsafe":         models.SeverityHigh,
	"outage":         models.SeverityHigh,
	"discrimination": models.SeverityHigh,
	"fire":           models.SeverityMedium,
	"broken":         models.SeverityMedium,
	"refund":         models.SeverityMedium,
	"complaint":      models.SeverityMedium,
	"disappointed":   models.SeverityLow,
}

// detectCrisisIndicators scans content for crisis vocabulary and merges
// in any keywords the model flagged, taking the highest risk level.
func detectCrisisIndicators(content string, modelKeywords []string) *models.CrisisIndicators {
	lowered := strings.ToLower(content)

	matched := make(map[string]struct{})
	maxRisk := models.SeverityLow
	found := false

	for term, risk := range crisisVocabulary {
		if strings.Contains(lowered, term) {
			matched[term] = struct{}{}
			found = true
			if risk > maxRisk {
				maxRisk = risk
			}
		}
	}
	for _, kw := range modelKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		matched[kw] = struct{}{}
		found = true
		if risk, ok := crisisVocabulary[kw]; ok && risk > maxRisk {
			maxRisk = risk
		} else if !ok && models.SeverityMedium > maxRisk {
			maxRisk = models.SeverityMedium
		}
	}

	if !found {
		return nil
	}

	keywords := make([]string, 0, len(matched))
	for kw := range matched {
		keywords = append(keywords, kw)
	}
	sort.Strings(keywords)

	return &models.CrisisIndicators{
		HasIndicators: true,
		RiskLevel:     maxRisk,
		Keywords:      keywords,
	}
}
