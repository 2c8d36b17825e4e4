// Package report renders actionable insights as Markdown and HTML.
package report

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/abk1969/ai-act-assistant-sub000/internal/domain"
)

// Markdown builds the run report. Insights keep their given order.
func Markdown(title string, insights []domain.ActionableInsight, generatedAt time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "_Generated %s. %d update(s)._\n\n", generatedAt.UTC().Format("2006-01-02 15:04 MST"), len(insights))

	if len(insights) == 0 {
		b.WriteString("No relevant regulatory updates in this window.\n")
		return b.String()
	}

	b.WriteString("| # | Update | Type | Urgency | Relevance | Impact | Actions |\n")
	b.WriteString("|---|---|---|---|---|---|---|\n")
	for i, ins := range insights {
		fmt.Fprintf(&b, "| %d | [%s](%s) | %s | %s | %.0f | %.0f | %d |\n",
			i+1, escapeCell(ins.Document.Title), ins.Document.URL,
			ins.Classification.UpdateType, ins.UserContext.UrgencyLevel,
			ins.UserContext.RelevanceScore, ins.UserContext.EstimatedImpact,
			len(ins.ActionPlan.AllActions(systemIDs(ins))))
	}
	b.WriteString("\n")

	for i, ins := range insights {
		writeInsight(&b, i+1, ins)
	}
	return b.String()
}

func writeInsight(b *strings.Builder, n int, ins domain.ActionableInsight) {
	fmt.Fprintf(b, "## %d. %s\n\n", n, ins.Document.Title)
	fmt.Fprintf(b, "Source: %s. Published %s.\n\n", ins.Document.Source, ins.Document.PublishedDate.Format("2006-01-02"))
	if ins.Synthesis.ExecutiveSummary != "" {
		fmt.Fprintf(b, "%s\n\n", ins.Synthesis.ExecutiveSummary)
	}

	writeList(b, "Key points", ins.Synthesis.KeyPoints)
	if len(ins.UserContext.ImpactedSystems) > 0 {
		names := make([]string, 0, len(ins.UserContext.ImpactedSystems))
		for _, sys := range ins.UserContext.ImpactedSystems {
			names = append(names, fmt.Sprintf("%s (%s, %s risk)", sys.Name, sys.ID, sys.RiskTier))
		}
		writeList(b, "Impacted systems", names)
	}
	writeList(b, "Compliance gaps", ins.UserContext.ComplianceGaps)
	writeList(b, "Maturity gaps", ins.UserContext.MaturityGaps)

	actions := ins.ActionPlan.AllActions(systemIDs(ins))
	if len(actions) > 0 {
		b.WriteString("### Actions\n\n")
		for _, a := range actions {
			line := fmt.Sprintf("**%s** %s", a.Priority, a.Title)
			if a.Deadline != nil {
				line += " (due " + a.Deadline.Format("2006-01-02") + ")"
			}
			if a.SystemID != "" {
				line += " [" + a.SystemID + "]"
			}
			fmt.Fprintf(b, "- %s\n", line)
		}
		b.WriteString("\n")
	}

	if len(ins.ActionPlan.ComplianceChecklist) > 0 {
		b.WriteString("### Checklist\n\n")
		for _, item := range ins.ActionPlan.ComplianceChecklist {
			mark := " "
			if item.Completed {
				mark = "x"
			}
			fmt.Fprintf(b, "- [%s] %s\n", mark, item.Task)
		}
		b.WriteString("\n")
	}

	effort, budget := ins.ActionPlan.EstimatedEffort, ins.ActionPlan.BudgetImpact
	fmt.Fprintf(b, "Effort: %.0f h (%s). Budget: %.0f %s (%s).\n\n", effort.TotalHours, effort.Band, budget.EstimatedCost, budget.Currency, budget.Band)
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "### %s\n\n", heading)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

func systemIDs(ins domain.ActionableInsight) []string {
	ids := make([]string, 0, len(ins.UserContext.ImpactedSystems))
	for _, sys := range ins.UserContext.ImpactedSystems {
		ids = append(ids, sys.ID)
	}
	return ids
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// HTML converts Markdown into a standalone HTML page.
func HTML(title, markdown string) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>")
	page.WriteString(html.EscapeString(title))
	page.WriteString("</title></head><body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body></html>\n")
	return page.Bytes(), nil
}

// Write renders insights to path: HTML for .html/.htm, Markdown otherwise.
func Write(path, title string, insights []domain.ActionableInsight, generatedAt time.Time) error {
	md := Markdown(title, insights, generatedAt)
	out := []byte(md)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		rendered, err := HTML(title, md)
		if err != nil {
			return err
		}
		out = rendered
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
