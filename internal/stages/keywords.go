package stages

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

// Keyword rules for the deterministic analysis path. Terms are matched as
// lower-case substrings of the document title and body.
var (
	regulationTerms = []string{
		"ai act",
		"artificial intelligence act",
		"2024/1689",
		"ai office",
		"general-purpose ai",
	}

	highPriorityTerms = []string{
		"amendment",
		"sanction",
		"prohibition",
		"penalty",
		"enforcement",
		"deadline",
	}

	stakeholderTerms = []struct {
		term        string
		stakeholder string
	}{
		{"provider", "providers"},
		{"deployer", "deployers"},
		{"importer", "importers"},
		{"distributor", "distributors"},
		{"notified bod", "notified_bodies"},
		{"authorised representative", "authorised_representatives"},
		{"authorized representative", "authorised_representatives"},
		{"market surveillance", "authorities"},
	}

	criticalTerms = []string{
		"sanction", "prohibition", "prohibited", "penalty", "penalties",
		"immediate obligation", "immediately applicable", "with immediate effect",
	}
	highImpactTerms   = []string{"obligation", "compliance", "high-risk", "high risk", "mandatory"}
	mediumImpactTerms = []string{"recommendation", "guidance", "guideline", "best practice"}

	topicTerms = []struct {
		topic string
		terms []string
	}{
		{"risk management", []string{"risk management"}},
		{"data governance", []string{"data governance", "training data"}},
		{"transparency", []string{"transparency"}},
		{"human oversight", []string{"human oversight"}},
		{"general-purpose AI", []string{"general-purpose", "gpai"}},
		{"conformity assessment", []string{"conformity assessment", "notified bod"}},
		{"biometrics", []string{"biometric"}},
		{"governance", []string{"governance", "ai office", "ai board"}},
		{"technical documentation", []string{"technical documentation", "record-keeping"}},
		{"penalties", []string{"penalt", "sanction"}},
		{"AI literacy", []string{"ai literacy"}},
		{"standardisation", []string{"harmonised standard", "standardisation", "standardization"}},
	}

	isoDateExpr  = regexp.MustCompile(`\b(20\d{2}-\d{2}-\d{2})\b`)
	longDateExpr = regexp.MustCompile(`\b(\d{1,2} (?:January|February|March|April|May|June|July|August|September|October|November|December) 20\d{2})\b`)
	articleExpr  = regexp.MustCompile(`(?i)\b(?:article|art\.)\s*(\d+[a-z]?)\b`)
	digitsExpr   = regexp.MustCompile(`\d+[a-z]?`)
)

func keywordRelevance(text string) (score float64, regulation bool) {
	for _, term := range regulationTerms {
		if strings.Contains(text, term) {
			score += 30
			regulation = true
		}
	}
	for _, term := range highPriorityTerms {
		if strings.Contains(text, term) {
			score += 15
		}
	}
	for _, st := range stakeholderTerms {
		if strings.Contains(text, st.term) {
			score += 10
		}
	}
	if score > 100 {
		score = 100
	}
	return score, regulation
}

func keywordImpact(text string) string {
	switch {
	case containsAny(text, criticalTerms...):
		return "critical"
	case containsAny(text, highImpactTerms...):
		return "high"
	case containsAny(text, mediumImpactTerms...):
		return "medium"
	}
	return "low"
}

func keywordStakeholders(text string) []string {
	var out []string
	for _, st := range stakeholderTerms {
		if strings.Contains(text, st.term) {
			out = appendUnique(out, st.stakeholder)
		}
	}
	if len(out) == 0 {
		return []string{"all"}
	}
	return out
}

func keywordTopics(text string) []string {
	var out []string
	for _, t := range topicTerms {
		if containsAny(text, t.terms...) {
			out = append(out, t.topic)
		}
	}
	return out
}

// extractDeadlines finds ISO and long-form English dates in text, sorted and unique.
func extractDeadlines(text string) []time.Time {
	seen := map[time.Time]bool{}
	var out []time.Time
	add := func(t time.Time) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, m := range isoDateExpr.FindAllString(text, -1) {
		if t, err := time.Parse("2006-01-02", m); err == nil {
			add(t)
		}
	}
	for _, m := range longDateExpr.FindAllString(text, -1) {
		if t, err := time.Parse("2 January 2006", m); err == nil {
			add(t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// extractArticles returns normalized "Article N" references in order of appearance.
func extractArticles(text string) []string {
	var out []string
	for _, m := range articleExpr.FindAllStringSubmatch(text, -1) {
		out = appendUnique(out, "Article "+strings.ToLower(m[1]))
	}
	return out
}

// normalizeArticle maps "Art. 9", "9" or "article 9" onto "Article 9".
func normalizeArticle(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if m := articleExpr.FindStringSubmatch(ref); m != nil {
		return "Article " + strings.ToLower(m[1])
	}
	if d := digitsExpr.FindString(strings.ToLower(ref)); d != "" && len(d) == len(strings.TrimSpace(ref)) {
		return "Article " + d
	}
	return ref
}
