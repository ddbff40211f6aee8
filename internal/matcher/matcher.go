// Package matcher joins companies with their buyer/target pairs and produces
// display-ready copies carrying the pair's synergy score and rationale.
package matcher

import (
	"cmp"
	"slices"

	"vantage/internal/domain"
)

// Role is the role the company plays in the relationship being displayed.
type Role int

const (
	// AsBuyer scans BuyerPairs and compares TargetCompanyID.
	AsBuyer Role = iota
	// AsTarget scans TargetPairs and compares BuyerCompanyID.
	AsTarget
)

func (r Role) String() string {
	if r == AsTarget {
		return "target"
	}
	return "buyer"
}

// Match returns the first pair linking company to counterpart in the given
// role. Later duplicates are ignored.
func Match(company domain.Company, role Role, counterpart domain.CompanyID) (domain.Pair, bool) {
	if counterpart.IsZero() {
		return domain.Pair{}, false
	}
	pairs, opposite := company.BuyerPairs, func(p domain.Pair) domain.CompanyID { return p.TargetCompanyID }
	if role == AsTarget {
		pairs, opposite = company.TargetPairs, func(p domain.Pair) domain.CompanyID { return p.BuyerCompanyID }
	}
	for _, p := range pairs {
		if opposite(p).Equal(counterpart) {
			return p, true
		}
	}
	return domain.Pair{}, false
}

// Overlay returns a copy of company whose score, scale and description come
// from the matching pair. Without a match the copy keeps the company's own
// values. company itself is never modified.
func Overlay(company domain.Company, role Role, counterpart domain.CompanyID) domain.Company {
	out := company.Clone()
	if p, ok := Match(company, role, counterpart); ok {
		apply(&out, p)
	}
	return out
}

func apply(c *domain.Company, p domain.Pair) {
	c.SynergyScore = p.SynergyScore
	c.SynergyScale = p.SynergyScale
	if p.SynergyRationale != "" {
		c.Description = p.SynergyRationale
	}
}

// OverlayTargets overlays every target with the buyer's pair for it.
func OverlayTargets(buyer domain.Company, targets []domain.Company) []domain.Company {
	out := make([]domain.Company, len(targets))
	for i, t := range targets {
		out[i] = t.Clone()
		if p, ok := Match(buyer, AsBuyer, t.ID); ok {
			apply(&out[i], p)
		}
	}
	return out
}

// Rank orders companies by synergy score, highest first. Equal scores keep
// their input order. The input slice is left alone.
func Rank(companies []domain.Company) []domain.Company {
	out := slices.Clone(companies)
	slices.SortStableFunc(out, func(a, b domain.Company) int {
		return cmp.Compare(b.SynergyScore, a.SynergyScore)
	})
	return out
}
