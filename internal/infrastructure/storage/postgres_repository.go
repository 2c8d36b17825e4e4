package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/abk1969/ai-act-assistant-sub000/internal/domain"
	"github.com/abk1969/ai-act-assistant-sub000/internal/ports"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS insight_summaries (
	insight_id         TEXT PRIMARY KEY,
	org_id             TEXT NOT NULL DEFAULT '',
	document_url       TEXT NOT NULL,
	title              TEXT NOT NULL DEFAULT '',
	source             TEXT NOT NULL DEFAULT '',
	update_type        TEXT NOT NULL DEFAULT '',
	impact_level       TEXT NOT NULL DEFAULT '',
	urgency_level      TEXT NOT NULL DEFAULT '',
	relevance_score    DOUBLE PRECISION NOT NULL DEFAULT 0,
	estimated_impact   DOUBLE PRECISION NOT NULL DEFAULT 0,
	risk_amplification DOUBLE PRECISION NOT NULL DEFAULT 1,
	action_count       INTEGER NOT NULL DEFAULT 0,
	impacted_systems   TEXT[] NOT NULL DEFAULT '{}',
	executive_summary  TEXT NOT NULL DEFAULT '',
	payload            JSONB,
	created_at         TIMESTAMPTZ NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS insight_summaries_org_created ON insight_summaries (org_id, created_at DESC);
`

var errNoDB = errors.New("database is not configured")

// PostgresRepository persists insight summaries into Postgres.
type PostgresRepository struct {
	db *sql.DB
}

var (
	_ ports.InsightStore  = (*PostgresRepository)(nil)
	_ ports.InsightReader = (*PostgresRepository)(nil)
	_ ports.HealthChecker = (*PostgresRepository)(nil)
)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// OpenPostgres opens a lib/pq connection pool.
func OpenPostgres(dsn string) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewPostgresRepository(db), nil
}

// Migrate creates the summaries table when missing.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if r.db == nil {
		return errNoDB
	}
	if _, err := r.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate postgres: %w", err)
	}
	return nil
}

// Persist upserts the summary keyed by insight id.
func (r *PostgresRepository) Persist(ctx context.Context, s domain.InsightSummary) error {
	if r.db == nil {
		return errNoDB
	}

	query, args, err := sq.Insert(summaryTable).
		Columns(summaryColumns...).
		Values(
			s.InsightID, s.OrgID, s.DocumentURL, s.Title, s.Source,
			s.UpdateType, s.ImpactLevel, s.UrgencyLevel,
			s.RelevanceScore, s.EstimatedImpact, s.RiskAmplification, s.ActionCount,
			pq.Array(nonNil(s.ImpactedSystems)), s.ExecutiveSummary, s.Payload, s.CreatedAt,
		).
		Suffix(`ON CONFLICT (insight_id) DO UPDATE
              SET relevance_score = EXCLUDED.relevance_score,
                  estimated_impact = EXCLUDED.estimated_impact,
                  risk_amplification = EXCLUDED.risk_amplification,
                  urgency_level = EXCLUDED.urgency_level,
                  action_count = EXCLUDED.action_count,
                  impacted_systems = EXCLUDED.impacted_systems,
                  executive_summary = EXCLUDED.executive_summary,
                  payload = EXCLUDED.payload,
                  updated_at = NOW()`).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert insight %s: %w", s.InsightID, err)
	}
	return nil
}

// Recent returns the newest summaries; an empty orgID lists every organization.
func (r *PostgresRepository) Recent(ctx context.Context, orgID string, limit int) ([]domain.InsightSummary, error) {
	if r.db == nil {
		return nil, errNoDB
	}

	query, args, err := recentQuery(orgID, limit).PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recent query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}

	var result []domain.InsightSummary
	for rows.Next() {
		var s domain.InsightSummary
		if err := rows.Scan(
			&s.InsightID, &s.OrgID, &s.DocumentURL, &s.Title, &s.Source,
			&s.UpdateType, &s.ImpactLevel, &s.UrgencyLevel,
			&s.RelevanceScore, &s.EstimatedImpact, &s.RiskAmplification, &s.ActionCount,
			pq.Array(&s.ImpactedSystems), &s.ExecutiveSummary, &s.Payload, &s.CreatedAt,
		); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		result = append(result, s)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return result, nil
}

// Ping checks database connectivity.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	if r.db == nil {
		return errNoDB
	}
	return r.db.PingContext(ctx)
}

// Close releases the pool.
func (r *PostgresRepository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}
