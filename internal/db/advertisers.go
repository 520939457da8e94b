package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/patrickwarner/promoserve/internal/models"
)

// UpsertAdvertisers inserts or replaces the given advertisers in one
// atomic transaction, keyed by ID.
func (p *Postgres) UpsertAdvertisers(ctx context.Context, advertisers []models.Advertiser) error {
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert advertisers: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i := range advertisers {
		a := &advertisers[i]
		_, err := tx.ExecContext(ctx, `INSERT INTO advertisers (id, name)
            VALUES ($1,$2)
            ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`,
			a.ID, a.Name)
		if err != nil {
			if isUniqueViolation(err) || isCardinalityViolation(err) {
				return ErrConflict
			}
			return fmt.Errorf("upsert advertiser %s: %w", a.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert advertisers: %w", err)
	}
	return nil
}

// GetAdvertiser returns the advertiser with the given ID, or models.ErrNotFound.
func (p *Postgres) GetAdvertiser(ctx context.Context, id uuid.UUID) (*models.Advertiser, error) {
	var a models.Advertiser
	err := p.DB.QueryRowContext(ctx,
		`SELECT id, name FROM advertisers WHERE id = $1`, id).
		Scan(&a.ID, &a.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get advertiser: %w", err)
	}
	return &a, nil
}
