package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"vantage/internal/adapters/memory"
	"vantage/internal/domain"
	"vantage/internal/ports"
)

var _ ports.Dataset = (*DB)(nil)

// lookupArgs matches a company by id, or by external id for token ids.
func lookupArgs(id domain.CompanyID) (string, bool) {
	return id.String(), id.Kind() == domain.IDToken
}

const companyByID = `
	SELECT id, doc FROM companies
	WHERE id = $1 OR ($2 AND external_id = $1)
	ORDER BY (id = $1) DESC
	LIMIT 1`

func decodeCompany(doc []byte) (domain.Company, error) {
	var c domain.Company
	if err := json.Unmarshal(doc, &c); err != nil {
		return c, fmt.Errorf("company doc: %w", err)
	}
	c.Normalize()
	return c, nil
}

func collectCompanies(rows pgx.Rows) ([]domain.Company, error) {
	defer rows.Close()
	var out []domain.Company
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		c, err := decodeCompany(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (db *DB) Organizations(ctx context.Context) ([]domain.Organization, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, COALESCE(external_id, ''), name, country, headquarters, industry
		FROM organizations ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Organization
	for rows.Next() {
		var o domain.Organization
		if err := rows.Scan(&o.ID, &o.ExternalID, &o.Name, &o.Country, &o.Headquarters, &o.Industry); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (db *DB) PortfolioCompanies(ctx context.Context, orgID int64) ([]domain.Company, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT doc FROM companies
		WHERE portfolio AND organization_id = $1
		ORDER BY position
	`, orgID)
	if err != nil {
		return nil, err
	}
	return collectCompanies(rows)
}

func (db *DB) Company(ctx context.Context, id domain.CompanyID) (domain.Company, bool, error) {
	key, token := lookupArgs(id)
	var stored string
	var doc []byte
	err := db.Pool.QueryRow(ctx, companyByID, key, token).Scan(&stored, &doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Company{}, false, nil
	}
	if err != nil {
		return domain.Company{}, false, err
	}
	c, err := decodeCompany(doc)
	return c, err == nil, err
}

// resolve maps an id or external token onto the stored company id.
func (db *DB) resolve(ctx context.Context, id domain.CompanyID) (string, bool, error) {
	key, token := lookupArgs(id)
	var stored string
	var doc []byte
	err := db.Pool.QueryRow(ctx, companyByID, key, token).Scan(&stored, &doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	return stored, err == nil, err
}

func (db *DB) Targets(ctx context.Context, buyerID domain.CompanyID) ([]domain.Company, error) {
	buyer, ok, err := db.resolve(ctx, buyerID)
	if err != nil || !ok {
		return nil, err
	}
	rows, err := db.Pool.Query(ctx, `
		SELECT c.doc FROM acquisition_targets t
		JOIN companies c ON c.id = t.target_id
		WHERE t.buyer_id = $1
		ORDER BY t.rank
	`, buyer)
	if err != nil {
		return nil, err
	}
	return collectCompanies(rows)
}

func (db *DB) Buyers(ctx context.Context, targetID domain.CompanyID) ([]domain.Company, error) {
	target, ok, err := db.resolve(ctx, targetID)
	if err != nil || !ok {
		return nil, err
	}
	rows, err := db.Pool.Query(ctx, `
		SELECT c.doc FROM acquisition_targets t
		JOIN companies c ON c.id = t.buyer_id
		WHERE t.target_id = $1
		ORDER BY c.position
	`, target)
	if err != nil {
		return nil, err
	}
	return collectCompanies(rows)
}

func (db *DB) Synergy(ctx context.Context, targetID domain.CompanyID) (domain.SynergyRecord, bool, error) {
	key, token := lookupArgs(targetID)
	var companyDoc, synergyDoc []byte
	err := db.Pool.QueryRow(ctx, `
		SELECT c.doc, s.doc FROM companies c
		JOIN synergy_records s ON s.target_id = c.id
		WHERE c.id = $1 OR ($2 AND c.external_id = $1)
		ORDER BY (c.id = $1) DESC
		LIMIT 1
	`, key, token).Scan(&companyDoc, &synergyDoc)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SynergyRecord{}, false, nil
	}
	if err != nil {
		return domain.SynergyRecord{}, false, err
	}
	target, err := decodeCompany(companyDoc)
	if err != nil {
		return domain.SynergyRecord{}, false, err
	}
	var fx memory.SynergyFixture
	if err := json.Unmarshal(synergyDoc, &fx); err != nil {
		return domain.SynergyRecord{}, false, fmt.Errorf("synergy doc: %w", err)
	}
	return fx.Record(target), true, nil
}
