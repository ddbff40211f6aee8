package views

import (
	"context"
	"net/url"

	"go.uber.org/zap"

	api "vantage/internal/api"
	"vantage/internal/carrier"
	"vantage/internal/domain"
	"vantage/internal/loader"
	"vantage/internal/matcher"
)

// SynergyState is a portfolio company with its acquisition targets, each
// overlaid with the company's pair for it and ranked by score.
type SynergyState struct {
	Status       loader.Status    `json:"status"`
	Message      string           `json:"message,omitempty"`
	Source       string           `json:"source,omitempty"`
	Company      *domain.Company  `json:"company,omitempty"`
	Targets      []domain.Company `json:"targets"`
	Unauthorized bool             `json:"-"`
}

// PairKey identifies one buyer/target relationship.
type PairKey struct {
	Buyer  domain.CompanyID
	Target domain.CompanyID
}

type SynergyAnalysis struct {
	owner     string
	deps      Deps
	company   *loader.Loader[CompanyKey, api.CompanyTargets]
	selection *loader.Loader[PairKey, api.TargetSynergy]
}

func NewSynergyAnalysis(owner string, deps Deps) *SynergyAnalysis {
	backend := deps.Backend
	return &SynergyAnalysis{
		owner: owner,
		deps:  deps,
		company: loader.New(loader.Config[CompanyKey, api.CompanyTargets]{
			View: ViewSynergyAnalysis,
			Fetch: func(ctx context.Context, k CompanyKey) (api.Response[api.CompanyTargets], error) {
				return backend.CompanyWithTargets(ctx, k.ID, k.Name)
			},
			Adopt:          adoptCompanyTargets,
			Validate:       validCompanyTargets,
			Timeout:        deps.Timeout,
			OnUnauthorized: deps.unauthorized(owner),
			Logger:         deps.logger(),
			Metrics:        deps.Metrics,
		}),
		selection: loader.New(loader.Config[PairKey, api.TargetSynergy]{
			View:           ViewSynergyAnalysis + "/select",
			Fetch:          fetchTargetSynergy(backend),
			Validate:       validTargetSynergy,
			Timeout:        deps.Timeout,
			OnUnauthorized: deps.unauthorized(owner),
			Logger:         deps.logger(),
			Metrics:        deps.Metrics,
		}),
	}
}

func adoptCompanyTargets(p carrier.Payload) (api.CompanyTargets, bool) {
	if p.Company == nil || p.Company.ID.IsZero() || p.Counterparts == nil {
		return api.CompanyTargets{}, false
	}
	return api.CompanyTargets{
		PortfolioCompany:   p.Company.Clone(),
		AcquisitionTargets: domain.CloneCompanies(p.Counterparts),
	}, true
}

// Open shows company id. t names the transition that led here; when it
// carries the company and its targets nothing is fetched.
func (v *SynergyAnalysis) Open(ctx context.Context, id domain.CompanyID, companyName, t string) (SynergyState, error) {
	carried := take(v.deps.Carrier, v.owner, ViewSynergyAnalysis, id, t)
	res, err := settle(ctx, v.company, CompanyKey{ID: id, Name: companyName}, carried)
	return v.state(res), err
}

func (v *SynergyAnalysis) state(res loader.Result[api.CompanyTargets]) SynergyState {
	st := SynergyState{Status: res.Status, Message: res.Message, Source: res.Source, Unauthorized: res.Unauthorized}
	if res.Status != loader.StatusLoaded {
		return st
	}
	company := res.Data.PortfolioCompany.Clone()
	st.Company = &company
	targets := make([]domain.Company, 0, len(res.Data.AcquisitionTargets))
	for _, t := range res.Data.AcquisitionTargets {
		if t.ID.IsZero() {
			v.deps.logger().Warn("dropping target without id", zap.String("name", t.Name))
			continue
		}
		targets = append(targets, t)
	}
	st.Targets = matcher.Rank(matcher.OverlayTargets(company, targets))
	return st
}

// SelectTarget fetches the synergy detail of target as seen by buyer and
// attaches it to the transition into the company analysis. The buyer id is
// always part of the destination so the page can reload on its own.
func (v *SynergyAnalysis) SelectTarget(ctx context.Context, buyer, target domain.CompanyID) (Transition, error) {
	tr := Transition{View: ViewCompanyAnalysis, ID: target, Query: url.Values{}}
	tr.Query.Set(ParamBuyerCompany, buyer.String())

	res, err := settle(ctx, v.selection, PairKey{Buyer: buyer, Target: target}, nil)
	if err != nil {
		return tr, err
	}
	if res.Status != loader.StatusLoaded {
		tr.Message, tr.Unauthorized = res.Message, res.Unauthorized
		return tr, nil
	}
	rec := res.Data.TargetCompany
	tr.ID = res.Data.TargetCompanyID
	p := carrier.Payload{
		Synergy:    &rec,
		BuyerID:    res.Data.BuyerCompanyID,
		TargetID:   res.Data.TargetCompanyID,
		TargetName: rec.DisplayName(),
	}
	if cur := v.company.Result(); cur.Status == loader.StatusLoaded && cur.Data.PortfolioCompany.ID == p.BuyerID {
		p.BuyerName = cur.Data.PortfolioCompany.Name
	}
	tr.Query.Set(ParamTransition, v.deps.Carrier.Attach(v.owner, carrier.Route(ViewCompanyAnalysis, tr.ID), p))
	tr.Carried = true
	return tr, nil
}

func (v *SynergyAnalysis) Close() {
	v.company.Close()
	v.selection.Close()
}
