package agents

// Capability is a closed enum of worker skills. Matching is done on
// typed values rather than free-form strings so a misspelled capability
// cannot silently match nothing.
type Capability int

const (
	CapabilityDataCollection Capability = iota
	CapabilitySentimentAnalysis
	CapabilityCrisisAssessment
	CapabilityResponseGeneration
	CapabilityQualityEvaluation
	CapabilityKnowledgeRetrieval
	CapabilityPublishing
	CapabilityAlerting
)

func (c Capability) String() string {
	switch c {
	case CapabilityDataCollection:
		return "data_collection"
	case CapabilitySentimentAnalysis:
		return "sentiment_analysis"
	case CapabilityCrisisAssessment:
		return "crisis_assessment"
	case CapabilityResponseGeneration:
		return "response_generation"
	case CapabilityQualityEvaluation:
		return "quality_evaluation"
	case CapabilityKnowledgeRetrieval:
		return "knowledge_retrieval"
	case CapabilityPublishing:
		return "publishing"
	case CapabilityAlerting:
		return "alerting"
	default:
		return "unknown"
	}
}
