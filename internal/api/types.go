// Package api holds the wire types of the portfolio backend contract. Both the
// fixture backend and the HTTP client speak these shapes.
package api

import (
	"errors"

	"vantage/internal/domain"
)

// Response is the {success, data, message} envelope every endpoint returns.
type Response[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message"`
}

func OK[T any](data T, message string) Response[T] {
	return Response[T]{Success: true, Data: data, Message: message}
}

func Fail[T any](message string) Response[T] {
	return Response[T]{Message: message}
}

// PortfolioEntry is one row of GET /portfolio?orgId=.
type PortfolioEntry struct {
	PortfolioCompany   domain.Company   `json:"portfolioCompany"`
	AcquisitionTargets []domain.Company `json:"acquisitionTargets"`
	Buyers             []domain.Company `json:"buyers"`
}

// CompanyTargets is GET /portfolio?companyId=&companyName=.
type CompanyTargets struct {
	PortfolioCompany   domain.Company   `json:"portfolioCompany"`
	AcquisitionTargets []domain.Company `json:"acquisitionTargets"`
}

// Normalize folds legacy id fields on every company in the payload.
func (c *CompanyTargets) Normalize() {
	c.PortfolioCompany.Normalize()
	for i := range c.AcquisitionTargets {
		c.AcquisitionTargets[i].Normalize()
	}
}

// TargetSynergy is GET /portfolio/target?buyerCompanyId=&targetCompanyId=.
type TargetSynergy struct {
	TargetCompany   domain.SynergyRecord `json:"targetCompany"`
	BuyerCompanyID  domain.CompanyID     `json:"buyerCompanyId"`
	TargetCompanyID domain.CompanyID     `json:"targetCompanyId"`
}

func (t *TargetSynergy) Normalize() {
	t.TargetCompany.Normalize()
	if t.TargetCompanyID.IsZero() {
		t.TargetCompanyID = t.TargetCompany.ID
	}
}

// Errors a backend client reports for authorization failures. Any other
// client error is a transport failure.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)
