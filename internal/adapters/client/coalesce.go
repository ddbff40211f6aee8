package client

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	api "vantage/internal/api"
	"vantage/internal/domain"
	"vantage/internal/ports"
)

// Coalescing shares one backend call between identical concurrent fetches.
// Nothing is cached: once a call returns, the next fetch goes to the backend.
type Coalescing struct {
	next    ports.Portfolio
	timeout time.Duration
	group   singleflight.Group
}

var _ ports.Portfolio = (*Coalescing)(nil)

// Coalesce wraps next. The shared call is detached from any single caller's
// cancellation and bounded by timeout instead.
func Coalesce(next ports.Portfolio, timeout time.Duration) *Coalescing {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Coalescing{next: next, timeout: timeout}
}

func shared[T any](ctx context.Context, c *Coalescing, key string, call func(context.Context) (api.Response[T], error), clone func(T) T) (api.Response[T], error) {
	ch := c.group.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return call(callCtx)
	})
	select {
	case <-ctx.Done():
		return api.Response[T]{}, ctx.Err()
	case r := <-ch:
		resp, _ := r.Val.(api.Response[T])
		if r.Err != nil {
			return api.Response[T]{}, r.Err
		}
		resp.Data = clone(resp.Data)
		return resp, nil
	}
}

func (c *Coalescing) Organizations(ctx context.Context) (api.Response[[]domain.Organization], error) {
	return shared(ctx, c, "organizations", c.next.Organizations, func(in []domain.Organization) []domain.Organization {
		return append([]domain.Organization(nil), in...)
	})
}

func (c *Coalescing) PortfolioByOrg(ctx context.Context, orgID int64) (api.Response[[]api.PortfolioEntry], error) {
	key := "portfolio/org/" + strconv.FormatInt(orgID, 10)
	return shared(ctx, c, key, func(ctx context.Context) (api.Response[[]api.PortfolioEntry], error) {
		return c.next.PortfolioByOrg(ctx, orgID)
	}, func(in []api.PortfolioEntry) []api.PortfolioEntry {
		if in == nil {
			return nil
		}
		out := make([]api.PortfolioEntry, len(in))
		for i, e := range in {
			out[i] = api.PortfolioEntry{
				PortfolioCompany:   e.PortfolioCompany.Clone(),
				AcquisitionTargets: domain.CloneCompanies(e.AcquisitionTargets),
				Buyers:             domain.CloneCompanies(e.Buyers),
			}
		}
		return out
	})
}

// The name hint is part of the key since it is part of the request.
func (c *Coalescing) CompanyWithTargets(ctx context.Context, companyID domain.CompanyID, companyName string) (api.Response[api.CompanyTargets], error) {
	key := "portfolio/company/" + companyID.String() + "?" + companyName
	return shared(ctx, c, key, func(ctx context.Context) (api.Response[api.CompanyTargets], error) {
		return c.next.CompanyWithTargets(ctx, companyID, companyName)
	}, func(in api.CompanyTargets) api.CompanyTargets {
		return api.CompanyTargets{
			PortfolioCompany:   in.PortfolioCompany.Clone(),
			AcquisitionTargets: domain.CloneCompanies(in.AcquisitionTargets),
		}
	})
}

func (c *Coalescing) TargetSynergy(ctx context.Context, buyerID, targetID domain.CompanyID) (api.Response[api.TargetSynergy], error) {
	key := "portfolio/target/" + buyerID.String() + "/" + targetID.String()
	return shared(ctx, c, key, func(ctx context.Context) (api.Response[api.TargetSynergy], error) {
		return c.next.TargetSynergy(ctx, buyerID, targetID)
	}, func(in api.TargetSynergy) api.TargetSynergy {
		in.TargetCompany = in.TargetCompany.Clone()
		return in
	})
}
