package views

import (
	"context"

	"go.uber.org/zap"

	api "vantage/internal/api"
	"vantage/internal/carrier"
	"vantage/internal/domain"
	"vantage/internal/loader"
	"vantage/internal/matcher"
	"vantage/internal/ports"
)

// DetailView is a synergy detail with its impact resolved.
type DetailView struct {
	domain.SynergyDetail
	// ImpactDerived is set when the impact came from the score rather than the record.
	ImpactDerived bool `json:"impactDerived,omitempty"`
}

// CompanyState is one target's synergy report as seen by one buyer.
type CompanyState struct {
	Status  loader.Status         `json:"status"`
	Message string                `json:"message,omitempty"`
	Source  string                `json:"source,omitempty"`
	BuyerID domain.CompanyID      `json:"buyerCompanyId"`
	Target  *domain.SynergyRecord `json:"target,omitempty"`
	Details []DetailView          `json:"details,omitempty"`
	// Domain is the registrable domain of the target's website.
	Domain       string `json:"domain,omitempty"`
	Unauthorized bool   `json:"-"`
}

type CompanyAnalysis struct {
	owner  string
	deps   Deps
	detail *loader.Loader[PairKey, api.TargetSynergy]
}

func NewCompanyAnalysis(owner string, deps Deps) *CompanyAnalysis {
	return &CompanyAnalysis{
		owner: owner,
		deps:  deps,
		detail: loader.New(loader.Config[PairKey, api.TargetSynergy]{
			View:            ViewCompanyAnalysis,
			Fetch:           fetchTargetSynergy(deps.Backend),
			Adopt:           adoptTargetSynergy,
			Validate:        validTargetSynergy,
			Timeout:         deps.Timeout,
			NotFoundMessage: NoCompanyDataMessage,
			OnUnauthorized:  deps.unauthorized(owner),
			Logger:          deps.logger(),
			Metrics:         deps.Metrics,
		}),
	}
}

// fetchTargetSynergy answers a request lacking either id without calling the
// backend.
func fetchTargetSynergy(backend ports.Portfolio) loader.Fetch[PairKey, api.TargetSynergy] {
	return func(ctx context.Context, k PairKey) (api.Response[api.TargetSynergy], error) {
		if k.Buyer.IsZero() || k.Target.IsZero() {
			return api.Fail[api.TargetSynergy](NoCompanyDataMessage), nil
		}
		return backend.TargetSynergy(ctx, k.Buyer, k.Target)
	}
}

func adoptTargetSynergy(p carrier.Payload) (api.TargetSynergy, bool) {
	if p.Synergy == nil || p.Synergy.ID.IsZero() || p.BuyerID.IsZero() {
		return api.TargetSynergy{}, false
	}
	target := p.TargetID
	if target.IsZero() {
		target = p.Synergy.ID
	}
	return api.TargetSynergy{
		TargetCompany:   p.Synergy.Clone(),
		BuyerCompanyID:  p.BuyerID,
		TargetCompanyID: target,
	}, true
}

func validTargetSynergy(ts api.TargetSynergy) bool {
	return !ts.TargetCompany.ID.IsZero() && !ts.TargetCompanyID.IsZero()
}

// Open shows target as seen by buyer. A carried payload supplies the buyer
// when the query did not and is ignored when it names a different buyer.
func (v *CompanyAnalysis) Open(ctx context.Context, target, buyer domain.CompanyID, t string) (CompanyState, error) {
	carried := take(v.deps.Carrier, v.owner, ViewCompanyAnalysis, target, t)
	if carried != nil && !buyer.IsZero() && carried.BuyerID != buyer {
		carried = nil
	}
	if carried != nil {
		if buyer.IsZero() {
			buyer = carried.BuyerID
		}
		v.deps.logger().Debug("opening from transition",
			zap.String("buyer", carried.BuyerName), zap.String("target", carried.TargetName))
	}
	res, err := settle(ctx, v.detail, PairKey{Buyer: buyer, Target: target}, carried)
	return companyState(res), err
}

func companyState(res loader.Result[api.TargetSynergy]) CompanyState {
	st := CompanyState{Status: res.Status, Message: res.Message, Source: res.Source, Unauthorized: res.Unauthorized}
	if res.Status != loader.StatusLoaded {
		return st
	}
	rec := res.Data.TargetCompany.Clone()
	rec.Company = matcher.Overlay(rec.Company, matcher.AsTarget, res.Data.BuyerCompanyID)
	st.BuyerID = res.Data.BuyerCompanyID
	st.Target = &rec
	st.Domain = domain.RegistrableDomain(rec.Website)
	fallback, known := domain.ImpactFromScore(rec.SynergyScore, rec.SynergyScale)
	for _, d := range rec.Synergies {
		dv := DetailView{SynergyDetail: d}
		if !d.Impact.Valid() && known {
			dv.Impact, dv.ImpactDerived = fallback, true
		}
		st.Details = append(st.Details, dv)
	}
	return st
}

func (v *CompanyAnalysis) Close() { v.detail.Close() }
