// Package memory serves the portfolio dataset from an embedded YAML fixture.
package memory

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"vantage/internal/domain"
	"vantage/internal/ports"
)

//go:embed fixtures.yaml
var fixtureYAML []byte

// Snapshot is the full dataset in its fixture shape. The postgres adapter
// seeds itself from one.
type Snapshot struct {
	Organizations      []domain.Organization         `json:"organizations"`
	Companies          []domain.Company              `json:"companies"`
	AcquisitionTargets map[string][]domain.CompanyID `json:"acquisitionTargets"`
	Synergies          []SynergyFixture              `json:"synergies"`
}

// SynergyFixture is the part of a synergy record not already on the company.
type SynergyFixture struct {
	TargetCompanyID  domain.CompanyID         `json:"targetCompanyId"`
	Synergies        []domain.SynergyDetail   `json:"synergies"`
	FinancialMetrics *domain.FinancialMetrics `json:"financialMetrics"`
	Risks            []string                 `json:"risks"`
}

// Record joins the fixture onto its target company.
func (f SynergyFixture) Record(target domain.Company) domain.SynergyRecord {
	return domain.SynergyRecord{
		Company:          target,
		CompanyName:      target.Name,
		Synergies:        f.Synergies,
		FinancialMetrics: f.FinancialMetrics,
		Risks:            f.Risks,
	}.Clone()
}

// Decode parses a YAML fixture. YAML is first decoded generically and then
// re-encoded as JSON so the domain types' JSON decoding (legacy id and string
// forms included) applies unchanged.
func Decode(src []byte) (Snapshot, error) {
	var raw any
	if err := yaml.Unmarshal(src, &raw); err != nil {
		return Snapshot{}, fmt.Errorf("fixture yaml: %w", err)
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return Snapshot{}, fmt.Errorf("fixture yaml: %w", err)
	}
	var snap Snapshot
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("fixture: %w", err)
	}
	for i := range snap.Companies {
		snap.Companies[i].Normalize()
	}
	return snap, nil
}

// DefaultSnapshot is the embedded fixture.
func DefaultSnapshot() (Snapshot, error) { return Decode(fixtureYAML) }

// Dataset is an immutable in-memory ports.Dataset.
type Dataset struct {
	snap       Snapshot
	byID       map[domain.CompanyID]int
	byExternal map[string]int
	targets    map[domain.CompanyID][]domain.CompanyID
	synergies  map[domain.CompanyID]SynergyFixture
}

var _ ports.Dataset = (*Dataset)(nil)

// Default builds a Dataset over the embedded fixture.
func Default() (*Dataset, error) {
	snap, err := DefaultSnapshot()
	if err != nil {
		return nil, err
	}
	return New(snap)
}

// New indexes and validates snap.
func New(snap Snapshot) (*Dataset, error) {
	d := &Dataset{
		snap:       snap,
		byID:       make(map[domain.CompanyID]int, len(snap.Companies)),
		byExternal: make(map[string]int, len(snap.Companies)),
		targets:    make(map[domain.CompanyID][]domain.CompanyID, len(snap.AcquisitionTargets)),
		synergies:  make(map[domain.CompanyID]SynergyFixture, len(snap.Synergies)),
	}
	for i, c := range snap.Companies {
		if c.ID.IsZero() {
			return nil, fmt.Errorf("company %q: missing companyId", c.Name)
		}
		if c.Employees < 0 {
			return nil, fmt.Errorf("company %s: negative employee count %d", c.ID, c.Employees)
		}
		if _, dup := d.byID[c.ID]; dup {
			return nil, fmt.Errorf("company %s: duplicate id", c.ID)
		}
		d.byID[c.ID] = i
		if c.ExternalID != "" {
			if _, dup := d.byExternal[c.ExternalID]; dup {
				return nil, fmt.Errorf("company %s: duplicate external id %q", c.ID, c.ExternalID)
			}
			d.byExternal[c.ExternalID] = i
		}
	}
	for _, c := range snap.Companies {
		for _, p := range append(append([]domain.Pair(nil), c.BuyerPairs...), c.TargetPairs...) {
			if _, ok := d.index(p.BuyerCompanyID); !ok {
				return nil, fmt.Errorf("company %s: pair references unknown buyer %s", c.ID, p.BuyerCompanyID)
			}
			if _, ok := d.index(p.TargetCompanyID); !ok {
				return nil, fmt.Errorf("company %s: pair references unknown target %s", c.ID, p.TargetCompanyID)
			}
		}
	}
	for key, ids := range snap.AcquisitionTargets {
		buyer, ok := d.index(domain.ParseCompanyID(key))
		if !ok {
			return nil, fmt.Errorf("acquisitionTargets: unknown buyer %q", key)
		}
		buyerID := snap.Companies[buyer].ID
		for _, id := range ids {
			t, ok := d.index(id)
			if !ok {
				return nil, fmt.Errorf("acquisitionTargets[%s]: unknown target %s", key, id)
			}
			d.targets[buyerID] = append(d.targets[buyerID], snap.Companies[t].ID)
		}
	}
	for _, s := range snap.Synergies {
		t, ok := d.index(s.TargetCompanyID)
		if !ok {
			return nil, fmt.Errorf("synergies: unknown target %s", s.TargetCompanyID)
		}
		d.synergies[snap.Companies[t].ID] = s
	}
	return d, nil
}

// Snapshot returns the validated fixture the dataset was built from.
func (d *Dataset) Snapshot() Snapshot { return d.snap }

// index resolves a company id or an external token such as "T1".
func (d *Dataset) index(id domain.CompanyID) (int, bool) {
	if i, ok := d.byID[id]; ok {
		return i, true
	}
	if id.Kind() == domain.IDToken {
		i, ok := d.byExternal[id.String()]
		return i, ok
	}
	return 0, false
}

func (d *Dataset) Organizations(context.Context) ([]domain.Organization, error) {
	return append([]domain.Organization(nil), d.snap.Organizations...), nil
}

func (d *Dataset) PortfolioCompanies(_ context.Context, orgID int64) ([]domain.Company, error) {
	var out []domain.Company
	for _, c := range d.snap.Companies {
		if c.Portfolio && c.OrganizationID == orgID {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

func (d *Dataset) Company(_ context.Context, id domain.CompanyID) (domain.Company, bool, error) {
	i, ok := d.index(id)
	if !ok {
		return domain.Company{}, false, nil
	}
	return d.snap.Companies[i].Clone(), true, nil
}

func (d *Dataset) Targets(_ context.Context, buyerID domain.CompanyID) ([]domain.Company, error) {
	i, ok := d.index(buyerID)
	if !ok {
		return nil, nil
	}
	ids := d.targets[d.snap.Companies[i].ID]
	out := make([]domain.Company, 0, len(ids))
	for _, id := range ids {
		out = append(out, d.snap.Companies[d.byID[id]].Clone())
	}
	return out, nil
}

func (d *Dataset) Buyers(_ context.Context, targetID domain.CompanyID) ([]domain.Company, error) {
	i, ok := d.index(targetID)
	if !ok {
		return nil, nil
	}
	target := d.snap.Companies[i].ID
	var out []domain.Company
	// iterate companies, not the map, to keep a stable order
	for _, c := range d.snap.Companies {
		for _, id := range d.targets[c.ID] {
			if id == target {
				out = append(out, c.Clone())
				break
			}
		}
	}
	return out, nil
}

func (d *Dataset) Synergy(_ context.Context, targetID domain.CompanyID) (domain.SynergyRecord, bool, error) {
	i, ok := d.index(targetID)
	if !ok {
		return domain.SynergyRecord{}, false, nil
	}
	target := d.snap.Companies[i]
	s, ok := d.synergies[target.ID]
	if !ok {
		return domain.SynergyRecord{}, false, nil
	}
	return s.Record(target), true, nil
}
