package analysis

import (
	"fmt"
	"strings"

	"github.com/jdkato/prose/v2"

	"github.com/brand-agent/backend/internal/storage/models"
)

var positiveLexicon = map[string]struct{}{
	"great": {}, "love": {}, "excellent": {}, "amazing": {}, "impressed": {},
	"awesome": {}, "fantastic": {}, "helpful": {}, "recommend": {}, "best": {},
	"happy": {}, "perfect": {}, "thanks": {}, "thank": {}, "resolved": {},
	"fast": {}, "early": {}, "exceeded": {},
}

var negativeLexicon = map[string]struct{}{
	"terrible": {}, "awful": {}, "hate": {}, "worst": {}, "broken": {},
	"disappointed": {}, "disappointing": {}, "scam": {}, "refund": {}, "waiting": {},
	"slow": {}, "outage": {}, "failed": {}, "useless": {}, "angry": {},
	"horrible": {}, "unacceptable": {}, "fix": {}, "broke": {}, "bug": {},
}

var negators = map[string]struct{}{
	"not": {}, "never": {}, "no": {}, "hardly": {}, "isnt": {}, "wasnt": {},
	"dont": {}, "doesnt": {}, "didnt": {}, "cant": {}, "wont": {},
}

// LexicalAnalyzer scores sentiment from token polarity counts. It is
// the degraded path when model inference is unavailable; coarse but
// deterministic and dependency-free at runtime.
type LexicalAnalyzer struct{}

func NewLexicalAnalyzer() *LexicalAnalyzer {
	return &LexicalAnalyzer{}
}

func (a *LexicalAnalyzer) Analyze(content string) (models.Sentiment, error) {
	doc, err := prose.NewDocument(content,
		prose.WithExtraction(false),
		prose.WithTagging(false),
	)
	if err != nil {
		return models.Sentiment{}, fmt.Errorf("failed to tokenize content: %w", err)
	}

	var positives, negatives float64
	negated := false
	for _, tok := range doc.Tokens() {
		word := normalizeToken(tok.Text)
		if word == "" {
			continue
		}
		if _, ok := negators[word]; ok {
			negated = true
			continue
		}

		_, pos := positiveLexicon[word]
		_, neg := negativeLexicon[word]
		if negated && (pos || neg) {
			pos, neg = neg, pos
		}
		if pos {
			positives++
		}
		if neg {
			negatives++
		}
		negated = false
	}

	total := positives + negatives
	if total == 0 {
		return models.Sentiment{Label: models.SentimentNeutral, Confidence: 0.5}, nil
	}

	// Confidence grows with the polarity margin but stays below the
	// model path's ceiling.
	margin := (positives - negatives) / total
	confidence := 0.5 + 0.3*abs(margin)

	label := models.SentimentNeutral
	switch {
	case margin > 0.2:
		label = models.SentimentPositive
	case margin < -0.2:
		label = models.SentimentNegative
	}
	return models.Sentiment{Label: label, Confidence: confidence}, nil
}

func normalizeToken(text string) string {
	return strings.Trim(strings.ToLower(strings.ReplaceAll(text, "'", "")), ".,!?:;\"()")
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
