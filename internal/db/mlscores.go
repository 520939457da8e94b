package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/patrickwarner/promoserve/internal/models"
)

// UpsertMLScore creates or replaces the affinity score for a
// (client, advertiser) pair. Returns models.ErrNotFound when either
// side of the pair does not exist.
func (p *Postgres) UpsertMLScore(ctx context.Context, s models.MLScore) error {
	_, err := p.DB.ExecContext(ctx, `INSERT INTO ml_scores (client_id, advertiser_id, score)
        VALUES ($1,$2,$3)
        ON CONFLICT (client_id, advertiser_id) DO UPDATE SET score = EXCLUDED.score`,
		s.ClientID, s.AdvertiserID, s.Score)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.ErrNotFound
		}
		return fmt.Errorf("upsert ml score: %w", err)
	}
	return nil
}

// MLScoresForClient returns the client's affinity score per advertiser.
// Advertisers without a score are simply absent from the map.
func (p *Postgres) MLScoresForClient(ctx context.Context, clientID uuid.UUID) (map[uuid.UUID]int, error) {
	rows, err := p.DB.QueryContext(ctx,
		`SELECT advertiser_id, score FROM ml_scores WHERE client_id = $1`, clientID)
	if err != nil {
		return nil, fmt.Errorf("query ml scores: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	scores := make(map[uuid.UUID]int)
	for rows.Next() {
		var advertiserID uuid.UUID
		var score int
		if err := rows.Scan(&advertiserID, &score); err != nil {
			return nil, fmt.Errorf("scan ml score: %w", err)
		}
		scores[advertiserID] = score
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return scores, nil
}
