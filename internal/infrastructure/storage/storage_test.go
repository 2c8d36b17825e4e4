package storage

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abk1969/ai-act-assistant-sub000/internal/domain"
)

func sampleSummary(id, org string, created time.Time) domain.InsightSummary {
	return domain.InsightSummary{
		InsightID:         id,
		OrgID:             org,
		DocumentURL:       "https://example.org/" + id,
		Title:             "Guidelines " + id,
		Source:            "ai-office/news",
		UpdateType:        domain.UpdateGuidance,
		ImpactLevel:       domain.ImpactHigh,
		UrgencyLevel:      domain.UrgencyLevelHigh,
		RelevanceScore:    79,
		EstimatedImpact:   85.56,
		RiskAmplification: 1.7,
		ActionCount:       4,
		ImpactedSystems:   []string{"S1", "S2"},
		ExecutiveSummary:  "New guidance for providers.",
		Payload:           []byte(`{"id":"` + id + `"}`),
		CreatedAt:         created,
	}
}

func TestPostgresRepositoryPersist(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRepository(db)
	s := sampleSummary("ins-1", "org-1", time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO insight_summaries (insight_id,org_id,document_url")).
		WithArgs("ins-1", "org-1", s.DocumentURL, s.Title, s.Source,
			domain.UpdateGuidance, domain.ImpactHigh, domain.UrgencyLevelHigh,
			79.0, 85.56, 1.7, 4, sqlmock.AnyArg(), s.ExecutiveSummary, s.Payload, s.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	assert.NoError(t, repo.Persist(context.Background(), s))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryPersistWrapsErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("connection reset")
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (insight_id) DO UPDATE")).WillReturnError(boom)

	err = NewPostgresRepository(db).Persist(context.Background(), sampleSummary("ins-1", "", time.Now()))
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2025, time.June, 2, 8, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(summaryColumns).
		AddRow("ins-2", "org-1", "https://example.org/2", "T", "src", "guidance", "high", "high",
			79.0, 85.56, 1.7, 4, "{S1}", "summary", []byte(`{}`), created)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT insight_id, org_id, document_url, title, source, update_type, impact_level, urgency_level, relevance_score, estimated_impact, risk_amplification, action_count, impacted_systems, executive_summary, payload, created_at FROM insight_summaries WHERE org_id = $1 ORDER BY created_at DESC, insight_id LIMIT 5")).
		WithArgs("org-1").
		WillReturnRows(rows)

	got, err := NewPostgresRepository(db).Recent(context.Background(), "org-1", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ins-2", got[0].InsightID)
	assert.Equal(t, domain.UpdateGuidance, got[0].UpdateType)
	assert.Equal(t, []string{"S1"}, got[0].ImpactedSystems)
	assert.True(t, got[0].CreatedAt.Equal(created))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryWithoutDB(t *testing.T) {
	repo := NewPostgresRepository(nil)
	assert.Error(t, repo.Persist(context.Background(), domain.InsightSummary{}))
	assert.Error(t, repo.Ping(context.Background()))
	_, err := repo.Recent(context.Background(), "", 0)
	assert.Error(t, err)
}

func TestRecentQueryDefaults(t *testing.T) {
	query, args, err := recentQuery("", 0).ToSql()
	require.NoError(t, err)
	assert.Empty(t, args)
	assert.Contains(t, query, "LIMIT 20")
	assert.NotContains(t, query, "WHERE")
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "insights.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Ping(ctx))

	base := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Persist(ctx, sampleSummary("ins-1", "org-1", base)))
	require.NoError(t, store.Persist(ctx, sampleSummary("ins-2", "org-1", base.Add(time.Hour))))
	require.NoError(t, store.Persist(ctx, sampleSummary("ins-3", "org-2", base.Add(2*time.Hour))))

	updated := sampleSummary("ins-1", "org-1", base)
	updated.RelevanceScore = 91
	updated.ImpactedSystems = nil
	require.NoError(t, store.Persist(ctx, updated))

	got, err := store.Recent(ctx, "org-1", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "ins-2", got[0].InsightID)
	assert.Equal(t, "ins-1", got[1].InsightID)
	assert.Equal(t, 91.0, got[1].RelevanceScore)
	assert.Empty(t, got[1].ImpactedSystems)
	assert.Equal(t, []string{"S1", "S2"}, got[0].ImpactedSystems)
	assert.Equal(t, domain.UrgencyLevelHigh, got[0].UrgencyLevel)
	assert.True(t, got[0].CreatedAt.Equal(base.Add(time.Hour)))
	assert.JSONEq(t, `{"id":"ins-2"}`, string(got[0].Payload))

	all, err := store.Recent(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "ins-3", all[0].InsightID)
}
