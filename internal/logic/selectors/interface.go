package selectors

import (
	"context"

	"github.com/google/uuid"

	"github.com/patrickwarner/promoserve/internal/db"
	"github.com/patrickwarner/promoserve/internal/models"
)

// CandidateStore supplies the catalog snapshot a selection runs over.
// *db.Postgres implements it; tests substitute fixtures.
type CandidateStore interface {
	GetClient(ctx context.Context, id uuid.UUID) (*models.Client, error)
	CurrentDay(ctx context.Context) (int, error)
	ValidCampaigns(ctx context.Context, day int) ([]models.Campaign, error)
	UniqueEventCounts(ctx context.Context, campaignIDs []uuid.UUID) (map[uuid.UUID]db.EventCounts, error)
	ClientEventFlags(ctx context.Context, clientID uuid.UUID, campaignIDs []uuid.UUID) (map[uuid.UUID]db.ClientFlags, error)
	MLScoresForClient(ctx context.Context, clientID uuid.UUID) (map[uuid.UUID]int, error)
}

// ImpressionRecorder writes the winner's impression before the ad is
// returned. A false result means the last budget slot was taken by a
// concurrent request.
type ImpressionRecorder interface {
	RecordImpression(ctx context.Context, campaignID, clientID uuid.UUID) (bool, error)
}

// Selector defines a pluggable interface for ad selection.
type Selector interface {
	SelectAd(ctx context.Context, clientID uuid.UUID) (*models.AdResponse, error)
}
