package directory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/abk1969/ai-act-assistant-sub000/internal/domain"
)

const orgsYAML = `
organizations:
  - orgId: clinic
    name: Health Clinic
    riskTolerance: low
    maturityProfile:
      level: developing
      domains:
        documentation: initial
    sectorProfile:
      primary: healthcare
      secondary: [insurance]
    aiSystems:
      - id: S1
        name: Diagnosis AI
        description: Triage support for radiology
        sector: healthcare
        riskTier: high
        complianceScore: 40
    complianceRecords:
      - systemId: S1
        article: Article 9
        status: partial
  - orgId: retail
    riskTolerance: high
    maturityProfile:
      level: managed
`

func TestParse(t *testing.T) {
	t.Parallel()

	dir, err := Parse([]byte(orgsYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if ids := dir.IDs(); len(ids) != 2 || ids[0] != "clinic" || ids[1] != "retail" {
		t.Fatalf("unexpected ids: %v", ids)
	}

	org, err := dir.Organization(context.Background(), "clinic")
	if err != nil {
		t.Fatalf("Organization: %v", err)
	}
	if org.MaturityProfile.Level != domain.MaturityDeveloping || org.MaturityProfile.Domains["documentation"] != domain.MaturityInitial {
		t.Fatalf("unexpected maturity: %+v", org.MaturityProfile)
	}
	if len(org.AISystems) != 1 || org.AISystems[0].RiskTier != domain.RiskHigh || org.AISystems[0].ComplianceScore != 40 {
		t.Fatalf("unexpected systems: %+v", org.AISystems)
	}
	if rec, ok := org.Record("S1", "Article 9"); !ok || rec.Status != domain.CompliancePartial {
		t.Fatalf("unexpected record: %+v %v", rec, ok)
	}
	if got := org.SectorProfile.Sectors(); len(got) != 2 || got[1] != "insurance" {
		t.Fatalf("unexpected sectors: %v", got)
	}
	if err := org.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if _, err := dir.Organization(context.Background(), "missing"); !errors.Is(err, domain.ErrOrganizationNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestParseRejectsBadDocuments(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"missing id": "organizations:\n  - name: x\n",
		"duplicate":  "organizations:\n  - orgId: a\n  - orgId: a\n",
		"not yaml":   "organizations: [",
	}
	for name, raw := range cases {
		if _, err := Parse([]byte(raw)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil || len(dir.IDs()) != 0 {
		t.Fatalf("missing file should give empty directory: %v", err)
	}

	path := filepath.Join(t.TempDir(), "orgs.yaml")
	if err := os.WriteFile(path, []byte(orgsYAML), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	dir, err = Load(path)
	if err != nil || len(dir.IDs()) != 2 {
		t.Fatalf("unexpected load result: %v", err)
	}
}
