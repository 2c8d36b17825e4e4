package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/abk1969/ai-act-assistant-sub000/internal/domain"
	"github.com/abk1969/ai-act-assistant-sub000/internal/ports"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS insight_summaries (
	insight_id         TEXT PRIMARY KEY,
	org_id             TEXT NOT NULL DEFAULT '',
	document_url       TEXT NOT NULL,
	title              TEXT NOT NULL DEFAULT '',
	source             TEXT NOT NULL DEFAULT '',
	update_type        TEXT NOT NULL DEFAULT '',
	impact_level       TEXT NOT NULL DEFAULT '',
	urgency_level      TEXT NOT NULL DEFAULT '',
	relevance_score    REAL NOT NULL DEFAULT 0,
	estimated_impact   REAL NOT NULL DEFAULT 0,
	risk_amplification REAL NOT NULL DEFAULT 1,
	action_count       INTEGER NOT NULL DEFAULT 0,
	impacted_systems   TEXT NOT NULL DEFAULT '[]',
	executive_summary  TEXT NOT NULL DEFAULT '',
	payload            BLOB,
	created_at         TEXT NOT NULL,
	updated_at         TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS insight_summaries_org_created ON insight_summaries (org_id, created_at);
`

// sqliteTimeLayout keeps a fixed width so text ordering matches time ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore persists insight summaries in a local SQLite file.
type SQLiteStore struct {
	db  *sqlx.DB
	now func() time.Time
}

var (
	_ ports.InsightStore  = (*SQLiteStore)(nil)
	_ ports.InsightReader = (*SQLiteStore)(nil)
	_ ports.HealthChecker = (*SQLiteStore)(nil)
)

type sqliteRow struct {
	InsightID         string  `db:"insight_id"`
	OrgID             string  `db:"org_id"`
	DocumentURL       string  `db:"document_url"`
	Title             string  `db:"title"`
	Source            string  `db:"source"`
	UpdateType        string  `db:"update_type"`
	ImpactLevel       string  `db:"impact_level"`
	UrgencyLevel      string  `db:"urgency_level"`
	RelevanceScore    float64 `db:"relevance_score"`
	EstimatedImpact   float64 `db:"estimated_impact"`
	RiskAmplification float64 `db:"risk_amplification"`
	ActionCount       int     `db:"action_count"`
	ImpactedSystems   string  `db:"impacted_systems"`
	ExecutiveSummary  string  `db:"executive_summary"`
	Payload           []byte  `db:"payload"`
	CreatedAt         string  `db:"created_at"`
}

// NewSQLiteStore opens (creating if needed) the database at path and applies the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	db, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Persist upserts the summary keyed by insight id.
func (s *SQLiteStore) Persist(ctx context.Context, summary domain.InsightSummary) error {
	systems, err := json.Marshal(nonNil(summary.ImpactedSystems))
	if err != nil {
		return fmt.Errorf("marshal impacted systems: %w", err)
	}

	query, args, err := sq.Insert(summaryTable).
		Columns(append(append([]string{}, summaryColumns...), "updated_at")...).
		Values(
			summary.InsightID, summary.OrgID, summary.DocumentURL, summary.Title, summary.Source,
			string(summary.UpdateType), string(summary.ImpactLevel), string(summary.UrgencyLevel),
			summary.RelevanceScore, summary.EstimatedImpact, summary.RiskAmplification, summary.ActionCount,
			string(systems), summary.ExecutiveSummary, summary.Payload,
			summary.CreatedAt.UTC().Format(sqliteTimeLayout), s.now().UTC().Format(sqliteTimeLayout),
		).
		Suffix(`ON CONFLICT (insight_id) DO UPDATE
              SET relevance_score = excluded.relevance_score,
                  estimated_impact = excluded.estimated_impact,
                  risk_amplification = excluded.risk_amplification,
                  urgency_level = excluded.urgency_level,
                  action_count = excluded.action_count,
                  impacted_systems = excluded.impacted_systems,
                  executive_summary = excluded.executive_summary,
                  payload = excluded.payload,
                  updated_at = excluded.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert insight %s: %w", summary.InsightID, err)
	}
	return nil
}

// Recent returns the newest summaries; an empty orgID lists every organization.
func (s *SQLiteStore) Recent(ctx context.Context, orgID string, limit int) ([]domain.InsightSummary, error) {
	query, args, err := recentQuery(orgID, limit).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recent query: %w", err)
	}

	var rows []sqliteRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}

	result := make([]domain.InsightSummary, 0, len(rows))
	for _, row := range rows {
		summary, err := row.summary()
		if err != nil {
			return nil, fmt.Errorf("decode insight %s: %w", row.InsightID, err)
		}
		result = append(result, summary)
	}
	return result, nil
}

func (r sqliteRow) summary() (domain.InsightSummary, error) {
	var systems []string
	if err := json.Unmarshal([]byte(r.ImpactedSystems), &systems); err != nil {
		return domain.InsightSummary{}, fmt.Errorf("impacted systems: %w", err)
	}
	created, err := time.Parse(sqliteTimeLayout, r.CreatedAt)
	if err != nil {
		return domain.InsightSummary{}, fmt.Errorf("created_at: %w", err)
	}
	return domain.InsightSummary{
		InsightID:         r.InsightID,
		OrgID:             r.OrgID,
		DocumentURL:       r.DocumentURL,
		Title:             r.Title,
		Source:            r.Source,
		UpdateType:        domain.UpdateType(r.UpdateType),
		ImpactLevel:       domain.ImpactLevel(r.ImpactLevel),
		UrgencyLevel:      domain.UrgencyLevel(r.UrgencyLevel),
		RelevanceScore:    r.RelevanceScore,
		EstimatedImpact:   r.EstimatedImpact,
		RiskAmplification: r.RiskAmplification,
		ActionCount:       r.ActionCount,
		ImpactedSystems:   systems,
		ExecutiveSummary:  r.ExecutiveSummary,
		Payload:           r.Payload,
		CreatedAt:         created,
	}, nil
}

// Ping checks the database handle.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
