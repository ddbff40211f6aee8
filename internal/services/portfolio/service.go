// Package portfolio is the fixture backend: it answers the portfolio fetch
// contract from a Dataset, with simulated latency.
package portfolio

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	api "vantage/internal/api"
	"vantage/internal/domain"
	"vantage/internal/matcher"
	"vantage/internal/ports"
)

const (
	MsgOrganizations = "Organizations retrieved successfully"
	MsgPortfolio     = "Portfolio companies retrieved successfully"
	MsgCompany       = "Portfolio company and acquisition targets retrieved successfully"
	MsgTarget        = "Target company synergy details retrieved successfully"
)

type Service struct {
	data  ports.Dataset
	delay time.Duration
	log   *zap.Logger
}

var _ ports.Portfolio = (*Service)(nil)

func NewService(data ports.Dataset, delay time.Duration, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{data: data, delay: delay, log: log}
}

// wait simulates backend latency. A cancelled ctx ends the wait early with its error.
func (s *Service) wait(ctx context.Context) error {
	if s.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Service) Organizations(ctx context.Context) (api.Response[[]domain.Organization], error) {
	if err := s.wait(ctx); err != nil {
		return api.Response[[]domain.Organization]{}, err
	}
	orgs, err := s.data.Organizations(ctx)
	if err != nil {
		return api.Response[[]domain.Organization]{}, fmt.Errorf("organizations: %w", err)
	}
	return api.OK(orgs, MsgOrganizations), nil
}

func (s *Service) PortfolioByOrg(ctx context.Context, orgID int64) (api.Response[[]api.PortfolioEntry], error) {
	if err := s.wait(ctx); err != nil {
		return api.Response[[]api.PortfolioEntry]{}, err
	}
	companies, err := s.data.PortfolioCompanies(ctx, orgID)
	if err != nil {
		return api.Response[[]api.PortfolioEntry]{}, fmt.Errorf("portfolio %d: %w", orgID, err)
	}
	if len(companies) == 0 {
		return api.Fail[[]api.PortfolioEntry](fmt.Sprintf("No portfolio companies found for organization %d", orgID)), nil
	}
	entries := make([]api.PortfolioEntry, 0, len(companies))
	for _, c := range companies {
		targets, err := s.data.Targets(ctx, c.ID)
		if err != nil {
			return api.Response[[]api.PortfolioEntry]{}, fmt.Errorf("targets of %s: %w", c.ID, err)
		}
		buyers, err := s.data.Buyers(ctx, c.ID)
		if err != nil {
			return api.Response[[]api.PortfolioEntry]{}, fmt.Errorf("buyers of %s: %w", c.ID, err)
		}
		entries = append(entries, api.PortfolioEntry{
			PortfolioCompany:   c,
			AcquisitionTargets: nonNil(targets),
			Buyers:             nonNil(buyers),
		})
	}
	return api.OK(entries, MsgPortfolio), nil
}

// CompanyWithTargets looks the company up by id. companyName is a display
// hint carried in the URL and never used for lookup.
func (s *Service) CompanyWithTargets(ctx context.Context, companyID domain.CompanyID, companyName string) (api.Response[api.CompanyTargets], error) {
	if err := s.wait(ctx); err != nil {
		return api.Response[api.CompanyTargets]{}, err
	}
	if companyID.IsZero() {
		return api.Fail[api.CompanyTargets]("Company id is required"), nil
	}
	company, ok, err := s.data.Company(ctx, companyID)
	if err != nil {
		return api.Response[api.CompanyTargets]{}, fmt.Errorf("company %s: %w", companyID, err)
	}
	if !ok {
		s.log.Debug("company not found", zap.Stringer("companyId", companyID), zap.String("companyName", companyName))
		return api.Fail[api.CompanyTargets](fmt.Sprintf("Company %s not found", companyID)), nil
	}
	targets, err := s.data.Targets(ctx, company.ID)
	if err != nil {
		return api.Response[api.CompanyTargets]{}, fmt.Errorf("targets of %s: %w", company.ID, err)
	}
	return api.OK(api.CompanyTargets{
		PortfolioCompany:   company,
		AcquisitionTargets: nonNil(targets),
	}, MsgCompany), nil
}

// TargetSynergy returns the target's synergy record as seen by buyerID. The
// target must be listed for that buyer; the buyer's pair, when present,
// supplies the score and rationale.
func (s *Service) TargetSynergy(ctx context.Context, buyerID, targetID domain.CompanyID) (api.Response[api.TargetSynergy], error) {
	if err := s.wait(ctx); err != nil {
		return api.Response[api.TargetSynergy]{}, err
	}
	if buyerID.IsZero() || targetID.IsZero() {
		return api.Fail[api.TargetSynergy]("Buyer and target company ids are required"), nil
	}
	buyer, ok, err := s.data.Company(ctx, buyerID)
	if err != nil {
		return api.Response[api.TargetSynergy]{}, fmt.Errorf("company %s: %w", buyerID, err)
	}
	if !ok {
		return api.Fail[api.TargetSynergy](fmt.Sprintf("Buyer company %s not found", buyerID)), nil
	}
	targets, err := s.data.Targets(ctx, buyer.ID)
	if err != nil {
		return api.Response[api.TargetSynergy]{}, fmt.Errorf("targets of %s: %w", buyer.ID, err)
	}
	var listed *domain.Company
	for i := range targets {
		if targets[i].ID == targetID || (targetID.Kind() == domain.IDToken && targets[i].ExternalID == targetID.String()) {
			listed = &targets[i]
			break
		}
	}
	if listed == nil {
		return api.Fail[api.TargetSynergy](fmt.Sprintf("Target company %s not found for buyer %s", targetID, buyer.ID)), nil
	}
	rec, ok, err := s.data.Synergy(ctx, listed.ID)
	if err != nil {
		return api.Response[api.TargetSynergy]{}, fmt.Errorf("synergy of %s: %w", listed.ID, err)
	}
	if !ok {
		return api.Fail[api.TargetSynergy](fmt.Sprintf("No synergy details for target %s", listed.ID)), nil
	}
	rec.Company = matcher.Overlay(rec.Company, matcher.AsTarget, buyer.ID)
	return api.OK(api.TargetSynergy{
		TargetCompany:   rec,
		BuyerCompanyID:  buyer.ID,
		TargetCompanyID: listed.ID,
	}, MsgTarget), nil
}

func nonNil(in []domain.Company) []domain.Company {
	if in == nil {
		return []domain.Company{}
	}
	return in
}
