package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrOrganizationNotFound is returned by directories that do not know an org id.
var ErrOrganizationNotFound = errors.New("organization not found")

// RiskTier is the statutory risk class of an AI system.
type RiskTier string

const (
	RiskMinimal      RiskTier = "minimal"
	RiskLimited      RiskTier = "limited"
	RiskHigh         RiskTier = "high"
	RiskUnacceptable RiskTier = "unacceptable"
)

// Valid reports whether t is a known tier.
func (t RiskTier) Valid() bool {
	switch t {
	case RiskMinimal, RiskLimited, RiskHigh, RiskUnacceptable:
		return true
	}
	return false
}

// Elevated is true for high and unacceptable tiers.
func (t RiskTier) Elevated() bool {
	return t == RiskHigh || t == RiskUnacceptable
}

// MaturityLevel is the organization's AI governance maturity.
type MaturityLevel string

const (
	MaturityInitial    MaturityLevel = "initial"
	MaturityDeveloping MaturityLevel = "developing"
	MaturityDefined    MaturityLevel = "defined"
	MaturityManaged    MaturityLevel = "managed"
	MaturityOptimizing MaturityLevel = "optimizing"
)

// Valid reports whether m is a known level.
func (m MaturityLevel) Valid() bool {
	switch m {
	case MaturityInitial, MaturityDeveloping, MaturityDefined, MaturityManaged, MaturityOptimizing:
		return true
	}
	return false
}

// Immature is true for initial and developing organizations.
func (m MaturityLevel) Immature() bool {
	return m == MaturityInitial || m == MaturityDeveloping
}

// RiskTolerance is the organization's declared appetite for regulatory risk.
type RiskTolerance string

const (
	ToleranceLow    RiskTolerance = "low"
	ToleranceMedium RiskTolerance = "medium"
	ToleranceHigh   RiskTolerance = "high"
)

// Valid reports whether r is a known tolerance.
func (r RiskTolerance) Valid() bool {
	switch r {
	case ToleranceLow, ToleranceMedium, ToleranceHigh:
		return true
	}
	return false
}

// AISystem is one entry of an organization's AI inventory.
type AISystem struct {
	ID              string   `json:"id" yaml:"id"`
	Name            string   `json:"name" yaml:"name"`
	Description     string   `json:"description" yaml:"description"`
	Sector          string   `json:"sector" yaml:"sector"`
	RiskTier        RiskTier `json:"riskTier" yaml:"riskTier"`
	ComplianceScore float64  `json:"complianceScore" yaml:"complianceScore"`
}

// MaturityProfile describes governance maturity.
type MaturityProfile struct {
	Level   MaturityLevel            `json:"level" yaml:"level"`
	Domains map[string]MaturityLevel `json:"domains,omitempty" yaml:"domains"`
}

// ComplianceStatus of a single article for a single system.
type ComplianceStatus string

const (
	ComplianceMet     ComplianceStatus = "compliant"
	CompliancePartial ComplianceStatus = "partial"
	ComplianceFailed  ComplianceStatus = "non_compliant"
	CompliancePending ComplianceStatus = "pending"
)

// ComplianceRecord tracks conformity of one system with one article.
type ComplianceRecord struct {
	SystemID string           `json:"systemId" yaml:"systemId"`
	Article  string           `json:"article" yaml:"article"`
	Status   ComplianceStatus `json:"status" yaml:"status"`
}

// SectorProfile lists the sectors the organization operates in.
type SectorProfile struct {
	Primary   string   `json:"primary" yaml:"primary"`
	Secondary []string `json:"secondary,omitempty" yaml:"secondary"`
}

// Sectors returns primary and secondary sectors, primary first.
func (s SectorProfile) Sectors() []string {
	out := make([]string, 0, 1+len(s.Secondary))
	if s.Primary != "" {
		out = append(out, s.Primary)
	}
	return append(out, s.Secondary...)
}

// OrganizationContext is the read-only view of an organization used for personalization.
type OrganizationContext struct {
	OrgID             string             `json:"orgId" yaml:"orgId"`
	Name              string             `json:"name,omitempty" yaml:"name"`
	AISystems         []AISystem         `json:"aiSystems" yaml:"aiSystems"`
	MaturityProfile   MaturityProfile    `json:"maturityProfile" yaml:"maturityProfile"`
	ComplianceRecords []ComplianceRecord `json:"complianceRecords" yaml:"complianceRecords"`
	RiskTolerance     RiskTolerance      `json:"riskTolerance" yaml:"riskTolerance"`
	SectorProfile     SectorProfile      `json:"sectorProfile" yaml:"sectorProfile"`
}

// Validate checks enumerated fields and that system ids are present and unique.
func (o OrganizationContext) Validate() error {
	if !o.MaturityProfile.Level.Valid() {
		return fmt.Errorf("org %s: unknown maturity level %q", o.OrgID, o.MaturityProfile.Level)
	}
	if !o.RiskTolerance.Valid() {
		return fmt.Errorf("org %s: unknown risk tolerance %q", o.OrgID, o.RiskTolerance)
	}
	seen := make(map[string]bool, len(o.AISystems))
	for i, sys := range o.AISystems {
		if strings.TrimSpace(sys.ID) == "" {
			return fmt.Errorf("org %s: system #%d (%s) has no id", o.OrgID, i+1, sys.Name)
		}
		if seen[sys.ID] {
			return fmt.Errorf("org %s: duplicate system id %q", o.OrgID, sys.ID)
		}
		seen[sys.ID] = true
		if !sys.RiskTier.Valid() {
			return fmt.Errorf("org %s: system %s: unknown risk tier %q", o.OrgID, sys.ID, sys.RiskTier)
		}
	}
	return nil
}

// Record returns the compliance record for a system/article pair.
func (o OrganizationContext) Record(systemID, article string) (ComplianceRecord, bool) {
	for _, rec := range o.ComplianceRecords {
		if rec.SystemID == systemID && rec.Article == article {
			return rec, true
		}
	}
	return ComplianceRecord{}, false
}
