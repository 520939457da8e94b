package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/patrickwarner/promoserve/internal/models"
)

// UpsertClients inserts or replaces the given clients in one
// transaction, keyed by ID. The batch is atomic: any failure rolls the
// whole set back. Re-sending the same payload is a no-op on state.
func (p *Postgres) UpsertClients(ctx context.Context, clients []models.Client) error {
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert clients: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i := range clients {
		c := &clients[i]
		_, err := tx.ExecContext(ctx, `INSERT INTO clients (id, login, age, location, gender)
            VALUES ($1,$2,$3,$4,$5)
            ON CONFLICT (id) DO UPDATE SET login = EXCLUDED.login, age = EXCLUDED.age,
                location = EXCLUDED.location, gender = EXCLUDED.gender`,
			c.ID, c.Login, c.Age, c.Location, c.Gender)
		if err != nil {
			if isUniqueViolation(err) || isCardinalityViolation(err) {
				return ErrConflict
			}
			return fmt.Errorf("upsert client %s: %w", c.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert clients: %w", err)
	}
	return nil
}

// GetClient returns the client with the given ID, or models.ErrNotFound.
func (p *Postgres) GetClient(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	var c models.Client
	var age sql.NullInt64
	var location sql.NullString
	err := p.DB.QueryRowContext(ctx,
		`SELECT id, login, age, location, gender FROM clients WHERE id = $1`, id).
		Scan(&c.ID, &c.Login, &age, &location, &c.Gender)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	if age.Valid {
		c.Age = int(age.Int64)
	}
	if location.Valid {
		c.Location = location.String
	}
	return &c, nil
}
