package ports

import (
	"context"

	api "vantage/internal/api"
	"vantage/internal/domain"
)

// Portfolio is the backend fetch contract. The fixture service and the HTTP
// client both satisfy it. A non-nil error is a transport failure; a response
// with Success=false is a well-formed "not found / empty" answer.
type Portfolio interface {
	Organizations(ctx context.Context) (api.Response[[]domain.Organization], error)
	PortfolioByOrg(ctx context.Context, orgID int64) (api.Response[[]api.PortfolioEntry], error)
	CompanyWithTargets(ctx context.Context, companyID domain.CompanyID, companyName string) (api.Response[api.CompanyTargets], error)
	TargetSynergy(ctx context.Context, buyerID, targetID domain.CompanyID) (api.Response[api.TargetSynergy], error)
}

// Dataset is the store behind the fixture backend.
type Dataset interface {
	Organizations(ctx context.Context) ([]domain.Organization, error)
	PortfolioCompanies(ctx context.Context, orgID int64) ([]domain.Company, error)
	Company(ctx context.Context, id domain.CompanyID) (company domain.Company, found bool, err error)
	// Targets returns the acquisition targets listed for a buyer, in rank order.
	Targets(ctx context.Context, buyerID domain.CompanyID) ([]domain.Company, error)
	// Buyers returns the companies that list the given company as a target.
	Buyers(ctx context.Context, targetID domain.CompanyID) ([]domain.Company, error)
	Synergy(ctx context.Context, targetID domain.CompanyID) (record domain.SynergyRecord, found bool, err error)
}
