package domain

import (
	"encoding/json"
	"slices"
	"strings"
	"time"
)

// Core domain models shared by the backend contract, the loaders and the views.
// JSON names follow the portfolio API wire format.

type Organization struct {
	ID           int64  `json:"organizationId"`
	ExternalID   string `json:"orgExternalId"`
	Name         string `json:"name"`
	Country      string `json:"country"`
	Headquarters string `json:"headquarters"`
	Industry     string `json:"industry"`
}

// Company is used both as a portfolio company and as an acquisition target;
// the role is decided by the context it appears in.
type Company struct {
	ID                CompanyID      `json:"companyId"`
	LegacyID          *CompanyID     `json:"id,omitempty"`
	ExternalID        string         `json:"companyExternalId,omitempty"`
	OrganizationID    int64          `json:"organizationId,omitempty"`
	Name              string         `json:"name"`
	Icon              string         `json:"icon,omitempty"`
	Industry          string         `json:"industry,omitempty"`
	Sector            string         `json:"sector,omitempty"`
	SubSector         string         `json:"subSector,omitempty"`
	Description       string         `json:"description,omitempty"`
	Revenue           string         `json:"revenue,omitempty"`
	Ebitda            string         `json:"ebitda,omitempty"`
	Employees         int            `json:"employees"`
	Headquarters      string         `json:"headquarters,omitempty"`
	Country           string         `json:"country,omitempty"`
	Website           string         `json:"website,omitempty"`
	Logo              string         `json:"logo,omitempty"`
	Sponsor           string         `json:"sponsor,omitempty"`
	PortfolioDuration string         `json:"portfolioDuration,omitempty"`
	FounderLed        bool           `json:"founderLed,omitempty"`
	VCBacked          bool           `json:"vcBacked,omitempty"`
	Portfolio         bool           `json:"portfolio,omitempty"`
	SynergyScore      float64        `json:"synergyScore"`
	SynergyScale      ScoreScale     `json:"synergyScale,omitempty"`
	KeyProducts       []KeyProduct   `json:"keyProducts,omitempty"`
	AddonHistory      []AddonHistory `json:"addonHistory,omitempty"`
	BuyerPairs        []Pair         `json:"buyerPairs,omitempty"`
	TargetPairs       []Pair         `json:"targetPairs,omitempty"`
}

// Normalize folds the legacy "id" field into ID.
func (c *Company) Normalize() {
	if c.ID.IsZero() && c.LegacyID != nil {
		c.ID = *c.LegacyID
	}
	c.LegacyID = nil
}

// Clone returns a copy that shares no slices with c.
func (c Company) Clone() Company {
	out := c
	if c.LegacyID != nil {
		id := *c.LegacyID
		out.LegacyID = &id
	}
	out.KeyProducts = slices.Clone(c.KeyProducts)
	out.AddonHistory = slices.Clone(c.AddonHistory)
	out.BuyerPairs = clonePairs(c.BuyerPairs)
	out.TargetPairs = clonePairs(c.TargetPairs)
	return out
}

func CloneCompanies(in []Company) []Company {
	if in == nil {
		return nil
	}
	out := make([]Company, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}

type KeyProduct struct {
	ProductID   int64  `json:"productId,omitempty"`
	CompanyID   int64  `json:"companyId,omitempty"`
	ProductName string `json:"productName"`
	Description string `json:"description,omitempty"`
}

// UnmarshalJSON also accepts the legacy plain-string form.
func (k *KeyProduct) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		*k = KeyProduct{ProductName: name}
		return nil
	}
	type plain KeyProduct
	return json.Unmarshal(b, (*plain)(k))
}

// AddonHistory is an append-only history entry.
type AddonHistory struct {
	AddonID   int64  `json:"addonId,omitempty"`
	CompanyID int64  `json:"companyId,omitempty"`
	AddonName string `json:"addonName,omitempty"`
	Details   string `json:"details"`
}

// UnmarshalJSON also accepts the legacy "2023: Launched cloud platform" strings.
func (a *AddonHistory) UnmarshalJSON(b []byte) error {
	var line string
	if err := json.Unmarshal(b, &line); err == nil {
		*a = AddonHistory{Details: line}
		if head, _, ok := strings.Cut(line, ":"); ok {
			a.AddonName = strings.TrimSpace(head)
		}
		return nil
	}
	type plain AddonHistory
	return json.Unmarshal(b, (*plain)(a))
}

// Pair is a scored buyer/target relationship between two companies.
type Pair struct {
	CompanyPairID    int64      `json:"companyPairId,omitempty"`
	ExternalPairID   string     `json:"externalPairId,omitempty"`
	BuyerCompanyID   CompanyID  `json:"buyerCompanyId"`
	TargetCompanyID  CompanyID  `json:"targetCompanyId"`
	SynergyScore     float64    `json:"synergyScore"`
	SynergyScale     ScoreScale `json:"synergyScale,omitempty"`
	SynergyRationale string     `json:"synergyRationale"`
	BuyerAppetite    *float64   `json:"buyerAppetite,omitempty"`
	TargetReadiness  *float64   `json:"targetReadiness,omitempty"`
	SectorOverlap    string     `json:"sectorOverlap,omitempty"`
	RunID            string     `json:"runId,omitempty"`
	Geo              []GeoInfo  `json:"geo,omitempty"`
	Evidence         []Evidence `json:"evidence,omitempty"`
}

func (p Pair) Clone() Pair {
	out := p
	if p.BuyerAppetite != nil {
		v := *p.BuyerAppetite
		out.BuyerAppetite = &v
	}
	if p.TargetReadiness != nil {
		v := *p.TargetReadiness
		out.TargetReadiness = &v
	}
	out.Geo = slices.Clone(p.Geo)
	if p.Evidence != nil {
		out.Evidence = make([]Evidence, len(p.Evidence))
		for i, e := range p.Evidence {
			out.Evidence[i] = e.Clone()
		}
	}
	return out
}

func clonePairs(in []Pair) []Pair {
	if in == nil {
		return nil
	}
	out := make([]Pair, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}

// GeoInfo is a geography overlap tag.
type GeoInfo struct {
	CountryCode string `json:"countryCode"`
}

type Evidence struct {
	EvidenceID int64   `json:"evidenceId,omitempty"`
	Source     string  `json:"source"`
	Details    string  `json:"details"`
	CreatedUTC *string `json:"createdUtc"`
}

func (e Evidence) Clone() Evidence {
	if e.CreatedUTC != nil {
		v := *e.CreatedUTC
		e.CreatedUTC = &v
	}
	return e
}

var evidenceLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

// Created parses the creation timestamp. Producers disagree on the layout;
// an unparseable value is reported as absent.
func (e Evidence) Created() (time.Time, bool) {
	if e.CreatedUTC == nil {
		return time.Time{}, false
	}
	for _, layout := range evidenceLayouts {
		if t, err := time.Parse(layout, *e.CreatedUTC); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

type SynergyDetail struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Impact      Impact `json:"impact"`
	Timeline    string `json:"timeline"`
	Value       string `json:"value"`
}

// FinancialMetrics holds display-formatted strings, not parsed numerics.
type FinancialMetrics struct {
	Valuation    string `json:"valuation"`
	Multiple     string `json:"multiple"`
	GrowthRate   string `json:"growthRate"`
	ProfitMargin string `json:"profitMargin"`
}

// SynergyRecord is the detailed synergy report for one target as seen by one buyer.
type SynergyRecord struct {
	Company
	CompanyName      string            `json:"companyName,omitempty"`
	Synergies        []SynergyDetail   `json:"synergies,omitempty"`
	FinancialMetrics *FinancialMetrics `json:"financialMetrics,omitempty"`
	Risks            []string          `json:"risks,omitempty"`
}

func (r SynergyRecord) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.CompanyName
}

func (r SynergyRecord) Clone() SynergyRecord {
	out := r
	out.Company = r.Company.Clone()
	out.Synergies = slices.Clone(r.Synergies)
	out.Risks = slices.Clone(r.Risks)
	if r.FinancialMetrics != nil {
		fm := *r.FinancialMetrics
		out.FinancialMetrics = &fm
	}
	return out
}
