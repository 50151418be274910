package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	WorkflowDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "brand_agent_workflow_duration_seconds",
			Help:    "Monitoring workflow duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"status"},
	)

	WorkflowTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brand_agent_workflow_total",
			Help: "Total monitoring workflows executed",
		},
		[]string{"status"},
	)

	MentionsCollected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brand_agent_mentions_collected_total",
			Help: "Total mentions collected per platform",
		},
		[]string{"platform"},
	)

	SentimentAnalyzed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brand_agent_sentiment_analyzed_total",
			Help: "Total mentions analyzed by sentiment label",
		},
		[]string{"label", "source"},
	)

	CrisisScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "brand_agent_crisis_score",
			Help: "Latest crisis score per brand",
		},
		[]string{"brand_id"},
	)

	RiskScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "brand_agent_risk_score",
			Help:    "Risk scores of generated responses",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	ApprovalDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brand_agent_approval_decisions_total",
			Help: "Approval decisions by status",
		},
		[]string{"status"},
	)

	ResponsesPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brand_agent_responses_published_total",
			Help: "Responses published per platform",
		},
		[]string{"platform", "status"},
	)

	AlertsTriggered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brand_agent_alerts_triggered_total",
			Help: "Alerts triggered by type and severity",
		},
		[]string{"type", "severity"},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brand_agent_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"model", "type"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brand_agent_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brand_agent_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	MonitoredBrands = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "brand_agent_monitored_brands",
			Help: "Number of brands with an active monitoring loop",
		},
	)

	WorkerTasksExecuted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brand_agent_worker_tasks_executed_total",
			Help: "Tasks executed per worker",
		},
		[]string{"worker", "status"},
	)

	MailboxRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brand_agent_mailbox_rejections_total",
			Help: "Tasks rejected because a worker mailbox was full",
		},
		[]string{"worker"},
	)
)

func Init() {
	prometheus.MustRegister(WorkflowDuration)
	prometheus.MustRegister(WorkflowTotal)
	prometheus.MustRegister(MentionsCollected)
	prometheus.MustRegister(SentimentAnalyzed)
	prometheus.MustRegister(CrisisScore)
	prometheus.MustRegister(RiskScore)
	prometheus.MustRegister(ApprovalDecisions)
	prometheus.MustRegister(ResponsesPublished)
	prometheus.MustRegister(AlertsTriggered)
	prometheus.MustRegister(LLMTokensUsed)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(MonitoredBrands)
	prometheus.MustRegister(WorkerTasksExecuted)
	prometheus.MustRegister(MailboxRejections)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
