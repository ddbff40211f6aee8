// Package views holds the three drill-down screens: the dashboard, the
// synergy analysis of one portfolio company, and the company analysis of one
// buyer/target pair. Each screen loads through a loader.Loader and hands its
// already-fetched data to the next screen through the carrier.
package views

import (
	"context"
	"net/url"
	"time"

	"go.uber.org/zap"

	"vantage/internal/carrier"
	"vantage/internal/domain"
	"vantage/internal/loader"
	"vantage/internal/metrics"
	"vantage/internal/ports"
)

const (
	ViewDashboard       = "dashboard"
	ViewSynergyAnalysis = "synergy-analysis"
	ViewCompanyAnalysis = "company-analysis"
)

// Query parameters understood by the drill-down routes.
const (
	ParamCompanyName  = "companyName"
	ParamBuyerCompany = "buyerCompanyId"
	ParamTransition   = "t"
)

// NoCompanyDataMessage is shown when the company analysis is opened without
// enough identifiers to fetch anything.
const NoCompanyDataMessage = "No company data available. Please navigate from the dashboard."

// Transition is the navigation produced by a selection. When Carried is set
// the destination can adopt the attached payload; otherwise it fetches.
type Transition struct {
	View    string
	ID      domain.CompanyID
	Query   url.Values
	Carried bool
	// Message explains a fallback navigation.
	Message      string
	Unauthorized bool
}

// Location is the destination path with its query.
func (t Transition) Location() string {
	u := url.URL{Path: "/" + t.View + "/" + t.ID.String(), RawQuery: t.Query.Encode()}
	return u.String()
}

// Deps are the collaborators shared by every view of a workspace.
type Deps struct {
	Backend ports.Portfolio
	Carrier *carrier.Carrier
	Timeout time.Duration
	Logger  *zap.Logger
	Metrics *metrics.Recorder
	// OnUnauthorized is called with the workspace owner when the backend
	// rejects the session.
	OnUnauthorized func(owner string)
}

func (d Deps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

func (d Deps) unauthorized(owner string) func() {
	if d.OnUnauthorized == nil {
		return nil
	}
	return func() { d.OnUnauthorized(owner) }
}

// settle navigates l and waits for the outcome of that navigation. It returns
// loader.ErrSuperseded when a concurrent request for another key on the same
// view took over.
func settle[K comparable, T any](ctx context.Context, l *loader.Loader[K, T], key K, carried *carrier.Payload) (loader.Result[T], error) {
	res := l.Navigate(key, carried)
	if res.Status != loader.StatusLoading {
		return res, nil
	}
	return l.WaitFor(ctx, key, res.Gen)
}

// take claims the payload attached for view/id under transition t, if any.
func take(c *carrier.Carrier, owner, view string, id domain.CompanyID, t string) *carrier.Payload {
	if c == nil || t == "" || id.IsZero() {
		return nil
	}
	p, ok := c.Take(owner, carrier.Route(view, id), t)
	if !ok {
		return nil
	}
	return &p
}
