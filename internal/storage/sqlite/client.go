package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/brand-agent/backend/internal/storage/models"
	"github.com/brand-agent/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS brands (
		id TEXT PRIMARY KEY,
		name TEXT UNIQUE NOT NULL,
		keywords TEXT,
		industry TEXT,
		crisis_mode INTEGER DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_brands_name ON brands(name);

	CREATE TABLE IF NOT EXISTS mentions (
		id TEXT PRIMARY KEY,
		brand_id TEXT NOT NULL,
		platform TEXT NOT NULL,
		author TEXT,
		content TEXT NOT NULL,
		url TEXT,
		likes INTEGER DEFAULT 0,
		shares INTEGER DEFAULT 0,
		comments INTEGER DEFAULT 0,
		followers INTEGER DEFAULT 0,
		verified INTEGER DEFAULT 0,
		sentiment_label TEXT,
		sentiment_confidence REAL,
		crisis_keywords TEXT,
		needs_response INTEGER DEFAULT 0,
		posted_at INTEGER NOT NULL,
		fetched_at INTEGER NOT NULL,
		FOREIGN KEY (brand_id) REFERENCES brands(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_mentions_brand ON mentions(brand_id);
	CREATE INDEX IF NOT EXISTS idx_mentions_platform ON mentions(brand_id, platform);
	CREATE INDEX IF NOT EXISTS idx_mentions_posted ON mentions(posted_at);

	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		brand_id TEXT NOT NULL,
		platform TEXT,
		alert_type TEXT NOT NULL,
		severity TEXT NOT NULL,
		description TEXT,
		metrics TEXT,
		keywords TEXT,
		acknowledged_by TEXT,
		acknowledged_at INTEGER,
		resolved_by TEXT,
		resolved_at INTEGER,
		resolution TEXT,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (brand_id) REFERENCES brands(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_alerts_brand ON alerts(brand_id);
	CREATE INDEX IF NOT EXISTS idx_alerts_created ON alerts(created_at);

	CREATE TABLE IF NOT EXISTS workflow_runs (
		id TEXT PRIMARY KEY,
		brand_id TEXT NOT NULL,
		goal TEXT,
		status TEXT NOT NULL,
		success INTEGER DEFAULT 0,
		mentions_total INTEGER DEFAULT 0,
		crisis_score REAL DEFAULT 0,
		crisis_level TEXT,
		report TEXT,
		started_at INTEGER NOT NULL,
		completed_at INTEGER NOT NULL,
		duration_ms INTEGER,
		FOREIGN KEY (brand_id) REFERENCES brands(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_runs_brand ON workflow_runs(brand_id);
	CREATE INDEX IF NOT EXISTS idx_runs_completed ON workflow_runs(completed_at);

	CREATE TABLE IF NOT EXISTS approval_decisions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		workflow_id TEXT NOT NULL,
		mention_id TEXT NOT NULL,
		status TEXT NOT NULL,
		risk_score REAL,
		risk_category TEXT,
		requires_human_review INTEGER DEFAULT 0,
		reasoning TEXT,
		suggested_reviewers TEXT,
		response_text TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_decisions_workflow ON approval_decisions(workflow_id);
	CREATE INDEX IF NOT EXISTS idx_decisions_status ON approval_decisions(status);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertBrand(brand *models.Brand) error {
	keywordsJSON, _ := json.Marshal(brand.Keywords)

	query := `
		INSERT INTO brands (id, name, keywords, industry, crisis_mode, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			keywords = excluded.keywords,
			industry = excluded.industry,
			crisis_mode = excluded.crisis_mode,
			updated_at = excluded.updated_at
	`

	now := time.Now().Unix()
	_, err := c.db.Exec(
		query,
		brand.ID,
		brand.Name,
		string(keywordsJSON),
		brand.Industry,
		boolToInt(brand.CrisisMode),
		now,
		now,
	)

	if err != nil {
		return fmt.Errorf("failed to insert brand: %w", err)
	}

	logger.Debug("Brand inserted", zap.String("brand_id", brand.ID), zap.String("name", brand.Name))
	return nil
}

func (c *Client) GetBrand(id string) (*models.Brand, error) {
	query := `SELECT id, name, keywords, industry, crisis_mode, created_at, updated_at FROM brands WHERE id = ?`

	var brand models.Brand
	var keywordsJSON string
	var crisisMode int
	var createdAt, updatedAt int64

	err := c.db.QueryRow(query, id).Scan(
		&brand.ID,
		&brand.Name,
		&keywordsJSON,
		&brand.Industry,
		&crisisMode,
		&createdAt,
		&updatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to get brand: %w", err)
	}

	json.Unmarshal([]byte(keywordsJSON), &brand.Keywords)
	brand.CrisisMode = crisisMode == 1
	brand.CreatedAt = time.Unix(createdAt, 0)
	brand.UpdatedAt = time.Unix(updatedAt, 0)

	return &brand, nil
}

func (c *Client) ListBrands() ([]models.Brand, error) {
	query := `SELECT id, name, keywords, industry, crisis_mode FROM brands ORDER BY name`

	rows, err := c.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list brands: %w", err)
	}
	defer rows.Close()

	var brands []models.Brand
	for rows.Next() {
		var b models.Brand
		var keywordsJSON string
		var crisisMode int

		err := rows.Scan(&b.ID, &b.Name, &keywordsJSON, &b.Industry, &crisisMode)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		json.Unmarshal([]byte(keywordsJSON), &b.Keywords)
		b.CrisisMode = crisisMode == 1
		brands = append(brands, b)
	}

	return brands, nil
}

func (c *Client) DeleteBrand(id string) error {
	_, err := c.db.Exec(`DELETE FROM brands WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete brand: %w", err)
	}
	return nil
}

func (c *Client) InsertAnalyzedMention(item *models.AnalyzedMention) error {
	var keywords []string
	if item.CrisisIndicators != nil {
		keywords = item.CrisisIndicators.Keywords
	}
	keywordsJSON, _ := json.Marshal(keywords)

	query := `
		INSERT INTO mentions (id, brand_id, platform, author, content, url, likes, shares, comments,
			followers, verified, sentiment_label, sentiment_confidence, crisis_keywords, needs_response,
			posted_at, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			likes = excluded.likes,
			shares = excluded.shares,
			comments = excluded.comments,
			sentiment_label = excluded.sentiment_label,
			sentiment_confidence = excluded.sentiment_confidence,
			crisis_keywords = excluded.crisis_keywords,
			needs_response = excluded.needs_response
	`

	m := item.Mention
	_, err := c.db.Exec(
		query,
		m.ID,
		m.BrandID,
		m.Platform,
		m.Author,
		m.Content,
		m.URL,
		m.Likes,
		m.Shares,
		m.Comments,
		m.Followers,
		boolToInt(m.Verified),
		item.Sentiment.Label,
		item.Sentiment.Confidence,
		string(keywordsJSON),
		boolToInt(item.NeedsResponse),
		m.PostedAt.Unix(),
		m.FetchedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert mention: %w", err)
	}

	return nil
}

func (c *Client) GetMentions(brandID, platform string, since time.Time, limit int) ([]models.AnalyzedMention, error) {
	query := `
		SELECT id, brand_id, platform, author, content, url, likes, shares, comments, followers,
			verified, sentiment_label, sentiment_confidence, crisis_keywords, needs_response,
			posted_at, fetched_at
		FROM mentions
		WHERE brand_id = ? AND posted_at >= ?
	`
	args := []interface{}{brandID, since.Unix()}
	if platform != "" {
		query += ` AND platform = ?`
		args = append(args, platform)
	}
	query += ` ORDER BY posted_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get mentions: %w", err)
	}
	defer rows.Close()

	var items []models.AnalyzedMention
	for rows.Next() {
		var item models.AnalyzedMention
		var verified, needsResponse int
		var keywordsJSON string
		var postedAt, fetchedAt int64

		err := rows.Scan(
			&item.Mention.ID,
			&item.Mention.BrandID,
			&item.Mention.Platform,
			&item.Mention.Author,
			&item.Mention.Content,
			&item.Mention.URL,
			&item.Mention.Likes,
			&item.Mention.Shares,
			&item.Mention.Comments,
			&item.Mention.Followers,
			&verified,
			&item.Sentiment.Label,
			&item.Sentiment.Confidence,
			&keywordsJSON,
			&needsResponse,
			&postedAt,
			&fetchedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		item.Mention.Verified = verified == 1
		item.NeedsResponse = needsResponse == 1
		item.Mention.PostedAt = time.Unix(postedAt, 0)
		item.Mention.FetchedAt = time.Unix(fetchedAt, 0)

		var keywords []string
		json.Unmarshal([]byte(keywordsJSON), &keywords)
		if len(keywords) > 0 {
			item.CrisisIndicators = &models.CrisisIndicators{
				HasIndicators: true,
				Keywords:      keywords,
			}
		}
		items = append(items, item)
	}

	return items, nil
}

func (c *Client) InsertAlert(alert *models.Alert) error {
	metricsJSON, _ := json.Marshal(alert.Metrics)
	keywordsJSON, _ := json.Marshal(alert.Keywords)

	query := `
		INSERT INTO alerts (id, brand_id, platform, alert_type, severity, description, metrics, keywords, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			severity = excluded.severity,
			description = excluded.description,
			metrics = excluded.metrics,
			keywords = excluded.keywords
	`

	_, err := c.db.Exec(
		query,
		alert.ID,
		alert.BrandID,
		alert.Platform,
		alert.Type,
		alert.Severity.String(),
		alert.Description,
		string(metricsJSON),
		string(keywordsJSON),
		alert.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}

	logger.Debug("Alert persisted",
		zap.String("alert_id", alert.ID),
		zap.String("type", alert.Type),
		zap.String("severity", alert.Severity.String()),
	)
	return nil
}

func (c *Client) AcknowledgeAlert(alertID, acknowledgedBy string) error {
	query := `UPDATE alerts SET acknowledged_by = ?, acknowledged_at = ? WHERE id = ?`

	result, err := c.db.Exec(query, acknowledgedBy, time.Now().Unix(), alertID)
	if err != nil {
		return fmt.Errorf("failed to acknowledge alert: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("alert not found: %s", alertID)
	}
	return nil
}

func (c *Client) ResolveAlert(alertID, resolvedBy, resolution string) error {
	query := `UPDATE alerts SET resolved_by = ?, resolved_at = ?, resolution = ? WHERE id = ?`

	result, err := c.db.Exec(query, resolvedBy, time.Now().Unix(), resolution, alertID)
	if err != nil {
		return fmt.Errorf("failed to resolve alert: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("alert not found: %s", alertID)
	}
	return nil
}

func (c *Client) GetAlerts(brandID string, limit int) ([]models.Alert, error) {
	query := `
		SELECT id, brand_id, platform, alert_type, severity, description, metrics, keywords, created_at
		FROM alerts
		WHERE brand_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, brandID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var a models.Alert
		var severity, metricsJSON, keywordsJSON string
		var createdAt int64

		err := rows.Scan(&a.ID, &a.BrandID, &a.Platform, &a.Type, &severity, &a.Description,
			&metricsJSON, &keywordsJSON, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		a.Severity = models.ParseSeverity(severity)
		a.CreatedAt = time.Unix(createdAt, 0)
		json.Unmarshal([]byte(metricsJSON), &a.Metrics)
		json.Unmarshal([]byte(keywordsJSON), &a.Keywords)
		alerts = append(alerts, a)
	}

	return alerts, nil
}

func (c *Client) InsertWorkflowRun(report *models.WorkflowReport) error {
	reportJSON, _ := json.Marshal(report)

	query := `
		INSERT INTO workflow_runs (id, brand_id, goal, status, success, mentions_total,
			crisis_score, crisis_level, report, started_at, completed_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		report.WorkflowID,
		report.BrandID,
		report.Goal,
		report.Status,
		boolToInt(report.Success),
		report.MentionsTotal,
		report.Crisis.Score,
		report.Crisis.Level,
		string(reportJSON),
		report.StartedAt.Unix(),
		report.CompletedAt.Unix(),
		report.DurationMS,
	)

	if err != nil {
		return fmt.Errorf("failed to insert workflow run: %w", err)
	}

	logger.Info("Workflow run recorded",
		zap.String("workflow_id", report.WorkflowID),
		zap.String("brand_id", report.BrandID),
		zap.String("status", report.Status),
	)

	return nil
}

func (c *Client) GetWorkflowRuns(brandID string, limit int) ([]models.WorkflowReport, error) {
	query := `
		SELECT report
		FROM workflow_runs
		WHERE brand_id = ?
		ORDER BY completed_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, brandID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow runs: %w", err)
	}
	defer rows.Close()

	var reports []models.WorkflowReport
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		var report models.WorkflowReport
		if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
			return nil, fmt.Errorf("failed to decode report: %w", err)
		}
		reports = append(reports, report)
	}

	return reports, nil
}

func (c *Client) InsertApprovalDecision(workflowID string, response *models.GeneratedResponse) error {
	if response.Approval == nil {
		return fmt.Errorf("response has no approval decision")
	}
	reviewersJSON, _ := json.Marshal(response.Approval.SuggestedReviewers)

	query := `
		INSERT INTO approval_decisions (workflow_id, mention_id, status, risk_score, risk_category,
			requires_human_review, reasoning, suggested_reviewers, response_text, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		workflowID,
		response.MentionID,
		response.Approval.Status,
		response.Approval.RiskAnalysis.OverallRiskScore,
		response.Approval.RiskAnalysis.RiskCategory,
		boolToInt(response.Approval.RequiresHumanReview),
		response.Approval.Reasoning,
		string(reviewersJSON),
		response.Text,
		time.Now().Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert approval decision: %w", err)
	}

	return nil
}

func (c *Client) CountPendingApprovals(workflowID string) (int, error) {
	query := `SELECT COUNT(*) FROM approval_decisions WHERE workflow_id = ? AND status = ?`

	var count int
	err := c.db.QueryRow(query, workflowID, models.StatusPendingApproval).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending approvals: %w", err)
	}
	return count, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
