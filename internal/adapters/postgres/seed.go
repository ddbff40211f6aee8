package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"vantage/internal/adapters/memory"
	"vantage/internal/domain"
)

// Seed loads snap into empty tables in one transaction. A database that
// already holds organizations is left untouched and Seed reports false.
func (db *DB) Seed(ctx context.Context, snap memory.Snapshot) (seeded bool, err error) {
	// validates ids and references before anything is written
	if _, err := memory.New(snap); err != nil {
		return false, err
	}
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	var exists bool
	if err = tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM organizations)`).Scan(&exists); err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	batch := &pgx.Batch{}
	for _, o := range snap.Organizations {
		batch.Queue(`
			INSERT INTO organizations (id, external_id, name, country, headquarters, industry)
			VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6)
		`, o.ID, o.ExternalID, o.Name, o.Country, o.Headquarters, o.Industry)
	}
	for i, c := range snap.Companies {
		doc, err := json.Marshal(c)
		if err != nil {
			return false, fmt.Errorf("company %s: %w", c.ID, err)
		}
		var org *int64
		if c.OrganizationID != 0 {
			org = &c.OrganizationID
		}
		batch.Queue(`
			INSERT INTO companies (id, external_id, organization_id, portfolio, position, doc)
			VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6)
		`, c.ID.String(), c.ExternalID, org, c.Portfolio, i, doc)
	}
	for buyer, targets := range snap.AcquisitionTargets {
		buyerID := storedID(snap, domain.ParseCompanyID(buyer))
		for rank, t := range targets {
			batch.Queue(`
				INSERT INTO acquisition_targets (buyer_id, target_id, rank) VALUES ($1, $2, $3)
			`, buyerID, storedID(snap, t), rank)
		}
	}
	for _, s := range snap.Synergies {
		doc, err := json.Marshal(s)
		if err != nil {
			return false, fmt.Errorf("synergy %s: %w", s.TargetCompanyID, err)
		}
		batch.Queue(`INSERT INTO synergy_records (target_id, doc) VALUES ($1, $2)`, storedID(snap, s.TargetCompanyID), doc)
	}
	if err = tx.SendBatch(ctx, batch).Close(); err != nil {
		return false, err
	}
	return true, nil
}

// storedID resolves a fixture reference, which may be an external token,
// to the primary key it is stored under.
func storedID(snap memory.Snapshot, id domain.CompanyID) string {
	for _, c := range snap.Companies {
		if c.ID == id {
			return c.ID.String()
		}
	}
	if id.Kind() == domain.IDToken {
		for _, c := range snap.Companies {
			if c.ExternalID == id.String() {
				return c.ID.String()
			}
		}
	}
	return id.String()
}
