// Package directory serves organization contexts from a YAML file.
package directory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/abk1969/ai-act-assistant-sub000/internal/domain"
	"github.com/abk1969/ai-act-assistant-sub000/internal/ports"
)

type document struct {
	Organizations []domain.OrganizationContext `yaml:"organizations"`
}

// YAMLDirectory is an in-memory directory loaded once from YAML.
type YAMLDirectory struct {
	orgs map[string]domain.OrganizationContext
}

var _ ports.OrganizationDirectory = (*YAMLDirectory)(nil)

// Load reads path. A missing file yields an empty directory.
func Load(path string) (*YAMLDirectory, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &YAMLDirectory{orgs: map[string]domain.OrganizationContext{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read organizations %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes an organizations document. Duplicate ids are rejected;
// enumerated fields are validated later, when the context is used.
func Parse(raw []byte) (*YAMLDirectory, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse organizations: %w", err)
	}

	orgs := make(map[string]domain.OrganizationContext, len(doc.Organizations))
	for i, org := range doc.Organizations {
		id := strings.TrimSpace(org.OrgID)
		if id == "" {
			return nil, fmt.Errorf("organization #%d has no orgId", i+1)
		}
		if _, dup := orgs[id]; dup {
			return nil, fmt.Errorf("organization %s is defined twice", id)
		}
		org.OrgID = id
		orgs[id] = org
	}
	return &YAMLDirectory{orgs: orgs}, nil
}

// Organization returns a copy of the organization context.
func (d *YAMLDirectory) Organization(_ context.Context, orgID string) (domain.OrganizationContext, error) {
	org, ok := d.orgs[orgID]
	if !ok {
		return domain.OrganizationContext{}, fmt.Errorf("%s: %w", orgID, domain.ErrOrganizationNotFound)
	}
	return org, nil
}

// IDs lists known organization ids in sorted order.
func (d *YAMLDirectory) IDs() []string {
	ids := make([]string, 0, len(d.orgs))
	for id := range d.orgs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
