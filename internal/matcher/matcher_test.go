package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vantage/internal/domain"
)

func targetWithDuplicatePairs() domain.Company {
	return domain.Company{
		ID:           domain.NumericID(1),
		Name:         "OptiCore Solutions",
		Description:  "own description",
		SynergyScore: 6.0,
		SynergyScale: domain.ScaleTen,
		TargetPairs: []domain.Pair{
			{BuyerCompanyID: domain.NumericID(1), TargetCompanyID: domain.NumericID(7), SynergyScore: 8.1, SynergyRationale: "first"},
			{BuyerCompanyID: domain.NumericID(1), TargetCompanyID: domain.NumericID(7), SynergyScore: 5.0, SynergyRationale: "second"},
		},
		BuyerPairs: []domain.Pair{
			{BuyerCompanyID: domain.NumericID(1), TargetCompanyID: domain.NumericID(7), SynergyScore: 8.1, SynergyScale: domain.ScaleTen, SynergyRationale: "first"},
			{BuyerCompanyID: domain.NumericID(1), TargetCompanyID: domain.NumericID(7), SynergyScore: 5.0, SynergyScale: domain.ScaleTen, SynergyRationale: "second"},
		},
	}
}

func TestMatchFirstWins(t *testing.T) {
	c := targetWithDuplicatePairs()
	for i := 0; i < 10; i++ {
		p, ok := Match(c, AsBuyer, domain.NumericID(7))
		require.True(t, ok)
		assert.Equal(t, 8.1, p.SynergyScore)
		assert.Equal(t, "first", p.SynergyRationale)
	}
}

func TestMatchUsesOppositeRole(t *testing.T) {
	c := targetWithDuplicatePairs()
	// as a target the counterpart is the buyer id
	p, ok := Match(c, AsTarget, domain.NumericID(1))
	require.True(t, ok)
	assert.Equal(t, 8.1, p.SynergyScore)

	_, ok = Match(c, AsTarget, domain.NumericID(7))
	assert.False(t, ok)
}

func TestMatchNormalisesIDTypes(t *testing.T) {
	c := targetWithDuplicatePairs()
	_, ok := Match(c, AsBuyer, domain.ParseCompanyID("7"))
	assert.True(t, ok, "string route segment must match numeric pair id")

	_, ok = Match(c, AsBuyer, domain.TokenID("T7"))
	assert.False(t, ok)

	_, ok = Match(c, AsBuyer, domain.CompanyID{})
	assert.False(t, ok)
}

func TestOverlay(t *testing.T) {
	c := targetWithDuplicatePairs()

	got := Overlay(c, AsBuyer, domain.NumericID(7))
	assert.Equal(t, 8.1, got.SynergyScore)
	assert.Equal(t, "first", got.Description)
	assert.Equal(t, domain.ScaleTen, got.SynergyScale)

	// source untouched
	assert.Equal(t, 6.0, c.SynergyScore)
	assert.Equal(t, "own description", c.Description)
}

func TestOverlayNoMatchFallsBack(t *testing.T) {
	c := targetWithDuplicatePairs()
	got := Overlay(c, AsBuyer, domain.NumericID(99))
	assert.Equal(t, 6.0, got.SynergyScore)
	assert.Equal(t, "own description", got.Description)
	assert.Equal(t, domain.ScaleTen, got.SynergyScale)
}

func TestOverlayKeepsDescriptionWhenRationaleEmpty(t *testing.T) {
	c := domain.Company{
		ID:          domain.NumericID(2),
		Description: "kept",
		BuyerPairs:  []domain.Pair{{TargetCompanyID: domain.NumericID(3), SynergyScore: 4}},
	}
	got := Overlay(c, AsBuyer, domain.NumericID(3))
	assert.Equal(t, 4.0, got.SynergyScore)
	assert.Equal(t, "kept", got.Description)
}

func TestOverlayTargetsAndRank(t *testing.T) {
	buyer := domain.Company{
		ID: domain.NumericID(1),
		BuyerPairs: []domain.Pair{
			{TargetCompanyID: domain.NumericID(102), SynergyScore: 9.5, SynergyRationale: "best fit"},
			{TargetCompanyID: domain.NumericID(101), SynergyScore: 7.0},
		},
	}
	targets := []domain.Company{
		{ID: domain.NumericID(101), Name: "A", SynergyScore: 1},
		{ID: domain.NumericID(102), Name: "B", SynergyScore: 1},
		{ID: domain.NumericID(103), Name: "C", SynergyScore: 7.0},
	}

	ranked := Rank(OverlayTargets(buyer, targets))
	require.Len(t, ranked, 3)
	assert.Equal(t, []string{"B", "A", "C"}, []string{ranked[0].Name, ranked[1].Name, ranked[2].Name})
	assert.Equal(t, "best fit", ranked[0].Description)

	assert.Equal(t, 1.0, targets[0].SynergyScore, "inputs are not modified")
	assert.Equal(t, "A", targets[0].Name)
}
