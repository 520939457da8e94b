package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/patrickwarner/promoserve/internal/models"
	"github.com/patrickwarner/promoserve/internal/observability"
)

// Recorder is the only writer of the event log. Every insert runs as a
// serializable transaction that takes a row lock on the target campaign,
// so the budget count and the insert cannot interleave with another
// writer on the same campaign. A false return means the write was
// refused and nothing changed; a true return means an equivalent event
// is durably recorded, whether this call inserted it or it already
// existed.
type Recorder struct {
	pg      *Postgres
	metrics observability.MetricsRegistry
	logger  *zap.Logger
}

// Refusal reasons reported to metrics. They never reach the caller;
// the recorder's contract is the bare boolean.
const (
	refusalMissing      = "missing"
	refusalDeleted      = "deleted"
	refusalWindow       = "window"
	refusalCap          = "cap"
	refusalNoImpression = "no_impression"
)

// NewRecorder builds a Recorder over the given Postgres store.
func NewRecorder(pg *Postgres, metrics observability.MetricsRegistry, logger *zap.Logger) *Recorder {
	return &Recorder{pg: pg, metrics: metrics, logger: logger}
}

// RecordImpression registers that the client saw the campaign's ad.
func (r *Recorder) RecordImpression(ctx context.Context, campaignID, clientID uuid.UUID) (bool, error) {
	return r.record(ctx, models.EventImpression, campaignID, clientID)
}

// RecordClick registers that the client clicked the campaign's ad. The
// client must already have an impression on the campaign.
func (r *Recorder) RecordClick(ctx context.Context, campaignID, clientID uuid.UUID) (bool, error) {
	return r.record(ctx, models.EventClick, campaignID, clientID)
}

func (r *Recorder) record(ctx context.Context, eventType string, campaignID, clientID uuid.UUID) (ok bool, err error) {
	tx, err := r.pg.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return false, fmt.Errorf("begin record %s: %w", eventType, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Lock the campaign row. The budget stays frozen until commit.
	var isDeleted bool
	var startDate, endDate, impressionsLimit, clicksLimit int
	err = tx.QueryRowContext(ctx, `SELECT is_deleted, start_date, end_date,
            impressions_limit, clicks_limit
        FROM campaigns WHERE id = $1 FOR UPDATE`, campaignID).
		Scan(&isDeleted, &startDate, &endDate, &impressionsLimit, &clicksLimit)
	if errors.Is(err, sql.ErrNoRows) {
		return r.refuse(eventType, refusalMissing)
	}
	if err != nil {
		return false, fmt.Errorf("lock campaign: %w", err)
	}
	if isDeleted {
		return r.refuse(eventType, refusalDeleted)
	}

	day, err := currentDayTx(ctx, tx)
	if err != nil {
		return false, err
	}
	if day < startDate || day > endDate {
		return r.refuse(eventType, refusalWindow)
	}

	if eventType == models.EventClick {
		var hasImpression bool
		err = tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM ad_events
            WHERE campaign_id = $1 AND client_id = $2 AND event_type = $3)`,
			campaignID, clientID, models.EventImpression).Scan(&hasImpression)
		if err != nil {
			return false, fmt.Errorf("check impression exists: %w", err)
		}
		if !hasImpression {
			return r.refuse(eventType, refusalNoImpression)
		}
	}

	limit := impressionsLimit
	if eventType == models.EventClick {
		limit = clicksLimit
	}
	var uniqueViewers int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(DISTINCT client_id) FROM ad_events
        WHERE campaign_id = $1 AND event_type = $2`, campaignID, eventType).
		Scan(&uniqueViewers)
	if err != nil {
		return false, fmt.Errorf("count unique viewers: %w", err)
	}
	if uniqueViewers >= limit {
		return r.refuse(eventType, refusalCap)
	}

	var exists bool
	err = tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM ad_events
        WHERE campaign_id = $1 AND client_id = $2 AND event_type = $3)`,
		campaignID, clientID, eventType).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check event exists: %w", err)
	}
	if exists {
		// Idempotent no-op: the requested state already holds.
		if err := tx.Commit(); err != nil {
			return false, fmt.Errorf("commit record %s: %w", eventType, err)
		}
		return true, nil
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO ad_events
        (id, campaign_id, client_id, event_type, event_day)
        VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), campaignID, clientID, eventType, day)
	if err != nil {
		// The row lock serializes writers per campaign, so a unique
		// violation here can only mean the same (campaign, client,
		// type) pair was inserted by an earlier transaction; fold it
		// into the idempotent-true case.
		if isUniqueViolation(err) {
			return true, nil
		}
		return false, fmt.Errorf("insert %s event: %w", eventType, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit record %s: %w", eventType, err)
	}

	r.metrics.IncrementEvent(eventType)
	return true, nil
}

func (r *Recorder) refuse(eventType, reason string) (bool, error) {
	r.metrics.IncrementRecorderRefusal(reason)
	if r.logger != nil {
		r.logger.Debug("event refused",
			zap.String("event_type", eventType),
			zap.String("reason", reason))
	}
	return false, nil
}
