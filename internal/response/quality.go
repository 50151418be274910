package response

import (
	"strings"
)

var toneMarkers = []string{"thank", "sorry", "appreciate", "glad", "happy to", "we hear you", "understand"}

var actionMarkers = []string{"contact", "reach out", "dm", "direct message", "let us know", "visit", "email", "we'll follow up"}

var unprofessionalMarkers = []string{"lol", "wtf", "omg", "stupid", "idiot", "whatever", "!!!"}

// QualityEvaluator scores a candidate reply with additive heuristic
// checks. The score is in [0,1]; each check contributes its fixed
// weight when satisfied.
type QualityEvaluator struct{}

func NewQualityEvaluator() *QualityEvaluator {
	return &QualityEvaluator{}
}

func (e *QualityEvaluator) Score(text, brandName string) (float64, []string) {
	var score float64
	var passed []string
	lowered := strings.ToLower(text)

	if len(text) >= 10 && len(text) <= 280 {
		score += 0.2
		passed = append(passed, "appropriate_length")
	}

	for _, marker := range toneMarkers {
		if strings.Contains(lowered, marker) {
			score += 0.3
			passed = append(passed, "empathetic_tone")
			break
		}
	}

	professional := true
	for _, marker := range unprofessionalMarkers {
		if strings.Contains(lowered, marker) {
			professional = false
			break
		}
	}
	if professional && text != strings.ToUpper(text) {
		score += 0.2
		passed = append(passed, "professional_register")
	}

	if brandName != "" && strings.Contains(lowered, strings.ToLower(brandName)) {
		score += 0.1
		passed = append(passed, "brand_mention")
	}

	for _, marker := range actionMarkers {
		if strings.Contains(lowered, marker) {
			score += 0.2
			passed = append(passed, "call_to_action")
			break
		}
	}

	return score, passed
}
