package storage

import (
	sq "github.com/Masterminds/squirrel"
)

const (
	summaryTable = "insight_summaries"
	defaultLimit = 20
)

var summaryColumns = []string{
	"insight_id", "org_id", "document_url", "title", "source",
	"update_type", "impact_level", "urgency_level",
	"relevance_score", "estimated_impact", "risk_amplification", "action_count",
	"impacted_systems", "executive_summary", "payload", "created_at",
}

func recentQuery(orgID string, limit int) sq.SelectBuilder {
	if limit <= 0 {
		limit = defaultLimit
	}
	q := sq.Select(summaryColumns...).From(summaryTable)
	if orgID != "" {
		q = q.Where(sq.Eq{"org_id": orgID})
	}
	return q.OrderBy("created_at DESC", "insight_id").Limit(uint64(limit))
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
