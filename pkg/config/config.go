package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	SQLite     SQLiteConfig
	Redis      RedisConfig
	Knowledge  KnowledgeConfig
	LLM        LLMConfig
	Approval   ApprovalConfig
	Alerts     AlertsConfig
	Monitoring MonitoringConfig
	Sources    SourcesConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type KnowledgeConfig struct {
	Enabled        bool
	Endpoint       string
	APIKey         string
	CollectionName string
	VectorDim      int
}

type LLMConfig struct {
	Provider       string
	Model          string
	EmbeddingModel string
	APIKey         string
	Temperature    float32
	MaxTokens      int
	TimeoutSec     int
}

type ApprovalConfig struct {
	AutoApproveThreshold float64
	HumanReviewThreshold float64
}

type AlertsConfig struct {
	NegativeSentimentThreshold  float64
	CrisisMentionThreshold      int
	VolumeSpikeMultiplier       float64
	SentimentDeteriorationDelta float64
}

type MonitoringConfig struct {
	CheckIntervalSec  int
	AutonomousEnabled bool
	MaxMentionsPerRun int
}

type SourcesConfig struct {
	TwitterBearerToken  string
	RedditClientID      string
	RedditClientSecret  string
	FacebookAccessToken string
	InstagramToken      string
	NewsAPIKey          string
	FetchTimeoutSec     int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/brand-agent")

	viper.SetEnvPrefix("BRAND_AGENT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Bare env names recognized for operator compatibility.
	viper.BindEnv("approval.autoApproveThreshold", "AUTO_RESPONSE_RISK_THRESHOLD")
	viper.BindEnv("approval.humanReviewThreshold", "HUMAN_REVIEW_RISK_THRESHOLD")
	viper.BindEnv("monitoring.checkIntervalSec", "AUTONOMOUS_CHECK_INTERVAL")
	viper.BindEnv("alerts.negativeSentimentThreshold", "NEGATIVE_SENTIMENT_THRESHOLD")
	viper.BindEnv("alerts.crisisMentionThreshold", "CRISIS_MENTION_THRESHOLD")
	viper.BindEnv("alerts.volumeSpikeMultiplier", "VOLUME_SPIKE_MULTIPLIER")
	viper.BindEnv("alerts.sentimentDeteriorationDelta", "SENTIMENT_DETERIORATION_DELTA")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Approval.AutoApproveThreshold >= config.Approval.HumanReviewThreshold {
		return nil, fmt.Errorf("invalid approval thresholds: auto-approve (%.2f) must be below human-review (%.2f)",
			config.Approval.AutoApproveThreshold, config.Approval.HumanReviewThreshold)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 10485760)

	viper.SetDefault("sqlite.path", "./data/brandagent.db")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("knowledge.enabled", false)
	viper.SetDefault("knowledge.endpoint", "localhost:19530")
	viper.SetDefault("knowledge.collectionName", "brand_knowledge")
	viper.SetDefault("knowledge.vectorDim", 1536)

	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.model", "gpt-4")
	viper.SetDefault("llm.embeddingModel", "text-embedding-3-small")
	viper.SetDefault("llm.temperature", 0.4)
	viper.SetDefault("llm.maxTokens", 1024)
	viper.SetDefault("llm.timeoutSec", 30)

	viper.SetDefault("approval.autoApproveThreshold", 0.3)
	viper.SetDefault("approval.humanReviewThreshold", 0.7)

	viper.SetDefault("alerts.negativeSentimentThreshold", 0.7)
	viper.SetDefault("alerts.crisisMentionThreshold", 10)
	viper.SetDefault("alerts.volumeSpikeMultiplier", 3.0)
	viper.SetDefault("alerts.sentimentDeteriorationDelta", 0.3)

	viper.SetDefault("monitoring.checkIntervalSec", 300)
	viper.SetDefault("monitoring.autonomousEnabled", true)
	viper.SetDefault("monitoring.maxMentionsPerRun", 100)

	viper.SetDefault("sources.fetchTimeoutSec", 10)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
