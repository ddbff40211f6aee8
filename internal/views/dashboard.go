package views

import (
	"context"
	"net/url"

	"go.uber.org/zap"

	api "vantage/internal/api"
	"vantage/internal/carrier"
	"vantage/internal/domain"
	"vantage/internal/loader"
)

type DashboardState struct {
	Status        loader.Status         `json:"status"`
	Message       string                `json:"message,omitempty"`
	Organizations []domain.Organization `json:"organizations"`
	Organization  *domain.Organization  `json:"organization,omitempty"`
	Portfolio     []api.PortfolioEntry  `json:"portfolio"`
	Unauthorized  bool                  `json:"-"`
}

// CompanyKey identifies a company request. Name is a display hint only.
type CompanyKey struct {
	ID   domain.CompanyID
	Name string
}

type Dashboard struct {
	owner     string
	deps      Deps
	orgs      *loader.Loader[struct{}, []domain.Organization]
	portfolio *loader.Loader[int64, []api.PortfolioEntry]
	selection *loader.Loader[CompanyKey, api.CompanyTargets]
}

func NewDashboard(owner string, deps Deps) *Dashboard {
	backend := deps.Backend
	return &Dashboard{
		owner: owner,
		deps:  deps,
		orgs: loader.New(loader.Config[struct{}, []domain.Organization]{
			View: ViewDashboard + "/organizations",
			Fetch: func(ctx context.Context, _ struct{}) (api.Response[[]domain.Organization], error) {
				return backend.Organizations(ctx)
			},
			Timeout:        deps.Timeout,
			OnUnauthorized: deps.unauthorized(owner),
			Logger:         deps.logger(),
			Metrics:        deps.Metrics,
		}),
		portfolio: loader.New(loader.Config[int64, []api.PortfolioEntry]{
			View:           ViewDashboard,
			Fetch:          backend.PortfolioByOrg,
			Timeout:        deps.Timeout,
			OnUnauthorized: deps.unauthorized(owner),
			Logger:         deps.logger(),
			Metrics:        deps.Metrics,
		}),
		selection: loader.New(loader.Config[CompanyKey, api.CompanyTargets]{
			View: ViewDashboard + "/select",
			Fetch: func(ctx context.Context, k CompanyKey) (api.Response[api.CompanyTargets], error) {
				return backend.CompanyWithTargets(ctx, k.ID, k.Name)
			},
			Validate:       validCompanyTargets,
			Timeout:        deps.Timeout,
			OnUnauthorized: deps.unauthorized(owner),
			Logger:         deps.logger(),
			Metrics:        deps.Metrics,
		}),
	}
}

// Open loads the organizations and the portfolio of orgID, or of the first
// organization when orgID is zero or unknown.
func (d *Dashboard) Open(ctx context.Context, orgID int64) (DashboardState, error) {
	orgs, err := settle(ctx, d.orgs, struct{}{}, nil)
	if err != nil {
		return DashboardState{Status: orgs.Status}, err
	}
	if orgs.Status != loader.StatusLoaded {
		return DashboardState{Status: orgs.Status, Message: orgs.Message, Unauthorized: orgs.Unauthorized}, nil
	}
	state := DashboardState{Organizations: orgs.Data}
	if len(orgs.Data) == 0 {
		state.Status = loader.StatusLoaded
		return state, nil
	}
	selected := orgs.Data[0]
	for _, o := range orgs.Data {
		if o.ID == orgID {
			selected = o
			break
		}
	}
	state.Organization = &selected

	res, err := settle(ctx, d.portfolio, selected.ID, nil)
	state.Status, state.Message, state.Unauthorized = res.Status, res.Message, res.Unauthorized
	if res.Status == loader.StatusLoaded {
		state.Portfolio = res.Data
	}
	return state, err
}

// Select fetches the company with its targets and attaches them to the
// transition into its synergy analysis. A failed fetch still navigates, with
// nothing attached, so the destination loads on its own.
func (d *Dashboard) Select(ctx context.Context, id domain.CompanyID, companyName string) (Transition, error) {
	tr := Transition{View: ViewSynergyAnalysis, ID: id, Query: url.Values{}}
	if companyName != "" {
		tr.Query.Set(ParamCompanyName, companyName)
	}
	res, err := settle(ctx, d.selection, CompanyKey{ID: id, Name: companyName}, nil)
	if err != nil {
		return tr, err
	}
	if res.Status != loader.StatusLoaded {
		tr.Message, tr.Unauthorized = res.Message, res.Unauthorized
		return tr, nil
	}
	company := res.Data.PortfolioCompany
	tr.ID = company.ID
	t := d.deps.Carrier.Attach(d.owner, carrier.Route(ViewSynergyAnalysis, company.ID), carrier.Payload{
		Company:      &company,
		Counterparts: nonNilCompanies(res.Data.AcquisitionTargets),
	})
	tr.Query.Set(ParamTransition, t)
	tr.Carried = true
	d.deps.logger().Debug("company selected", zap.Stringer("companyId", company.ID), zap.Int("targets", len(res.Data.AcquisitionTargets)))
	return tr, nil
}

func (d *Dashboard) Close() {
	d.orgs.Close()
	d.portfolio.Close()
	d.selection.Close()
}

func validCompanyTargets(ct api.CompanyTargets) bool {
	return !ct.PortfolioCompany.ID.IsZero()
}

func nonNilCompanies(in []domain.Company) []domain.Company {
	if in == nil {
		return []domain.Company{}
	}
	return in
}
