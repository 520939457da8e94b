package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/patrickwarner/promoserve/internal/models"
)

// campaignColumns is the column list every campaign read selects, in
// the order scanCampaign consumes them.
const campaignColumns = `id, advertiser_id, impressions_limit, clicks_limit,
    cost_per_impression, cost_per_click, ad_title, ad_text, ad_photo_url,
    start_date, end_date, target_gender, target_age_from, target_age_to,
    target_location, is_deleted, create_date`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (*models.Campaign, error) {
	var c models.Campaign
	var photoURL, gender, location sql.NullString
	var ageFrom, ageTo sql.NullInt64
	err := row.Scan(&c.ID, &c.AdvertiserID, &c.ImpressionsLimit, &c.ClicksLimit,
		&c.CostPerImpression, &c.CostPerClick, &c.AdTitle, &c.AdText, &photoURL,
		&c.StartDate, &c.EndDate, &gender, &ageFrom, &ageTo,
		&location, &c.IsDeleted, &c.CreateDate)
	if err != nil {
		return nil, err
	}
	if photoURL.Valid {
		c.AdPhotoURL = &photoURL.String
	}
	if gender.Valid {
		c.Targeting.Gender = &gender.String
	}
	if ageFrom.Valid {
		v := int(ageFrom.Int64)
		c.Targeting.AgeFrom = &v
	}
	if ageTo.Valid {
		v := int(ageTo.Int64)
		c.Targeting.AgeTo = &v
	}
	if location.Valid {
		c.Targeting.Location = &location.String
	}
	return &c, nil
}

// InsertCampaign stores a new campaign and fills in its create date.
// Returns models.ErrNotFound when the advertiser does not exist and
// ErrConflict on an ID collision.
func (p *Postgres) InsertCampaign(ctx context.Context, c *models.Campaign) error {
	err := p.DB.QueryRowContext(ctx, `INSERT INTO campaigns (
        id, advertiser_id, impressions_limit, clicks_limit,
        cost_per_impression, cost_per_click, ad_title, ad_text, ad_photo_url,
        start_date, end_date, target_gender, target_age_from, target_age_to,
        target_location, is_deleted)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,FALSE)
        RETURNING create_date`,
		c.ID, c.AdvertiserID, c.ImpressionsLimit, c.ClicksLimit,
		c.CostPerImpression, c.CostPerClick, c.AdTitle, c.AdText, c.AdPhotoURL,
		c.StartDate, c.EndDate, c.Targeting.Gender, c.Targeting.AgeFrom,
		c.Targeting.AgeTo, c.Targeting.Location).Scan(&c.CreateDate)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.ErrNotFound
		}
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

// GetCampaign returns the campaign when it exists, belongs to the given
// advertiser and is not soft-deleted; models.ErrNotFound otherwise.
func (p *Postgres) GetCampaign(ctx context.Context, advertiserID, campaignID uuid.UUID) (*models.Campaign, error) {
	row := p.DB.QueryRowContext(ctx, `SELECT `+campaignColumns+`
        FROM campaigns WHERE id = $1 AND advertiser_id = $2 AND NOT is_deleted`,
		campaignID, advertiserID)
	c, err := scanCampaign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

// GetCampaignByID returns a live campaign regardless of advertiser.
// Used by the click and stats paths where only the campaign ID is known.
func (p *Postgres) GetCampaignByID(ctx context.Context, campaignID uuid.UUID) (*models.Campaign, error) {
	row := p.DB.QueryRowContext(ctx, `SELECT `+campaignColumns+`
        FROM campaigns WHERE id = $1 AND NOT is_deleted`, campaignID)
	c, err := scanCampaign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign by id: %w", err)
	}
	return c, nil
}

// ListCampaigns returns one page of the advertiser's live campaigns,
// newest first. Pages are 1-based; ties on create date break on ID so
// the order is stable across calls.
func (p *Postgres) ListCampaigns(ctx context.Context, advertiserID uuid.UUID, page, size int) ([]models.Campaign, error) {
	offset := (page - 1) * size
	rows, err := p.DB.QueryContext(ctx, `SELECT `+campaignColumns+`
        FROM campaigns WHERE advertiser_id = $1 AND NOT is_deleted
        ORDER BY create_date DESC, id LIMIT $2 OFFSET $3`,
		advertiserID, size, offset)
	if err != nil {
		return nil, fmt.Errorf("query campaigns: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var cs []models.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		cs = append(cs, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return cs, nil
}

// UpdateCampaign persists the merged campaign row. The row must still
// exist, belong to the same advertiser and be live, or models.ErrNotFound
// is returned.
func (p *Postgres) UpdateCampaign(ctx context.Context, c *models.Campaign) error {
	res, err := p.DB.ExecContext(ctx, `UPDATE campaigns SET
        impressions_limit = $1, clicks_limit = $2,
        cost_per_impression = $3, cost_per_click = $4,
        ad_title = $5, ad_text = $6, ad_photo_url = $7,
        start_date = $8, end_date = $9,
        target_gender = $10, target_age_from = $11, target_age_to = $12,
        target_location = $13
        WHERE id = $14 AND advertiser_id = $15 AND NOT is_deleted`,
		c.ImpressionsLimit, c.ClicksLimit,
		c.CostPerImpression, c.CostPerClick,
		c.AdTitle, c.AdText, c.AdPhotoURL,
		c.StartDate, c.EndDate,
		c.Targeting.Gender, c.Targeting.AgeFrom, c.Targeting.AgeTo,
		c.Targeting.Location,
		c.ID, c.AdvertiserID)
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update campaign rows: %w", err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeleteCampaign flips the campaign's tombstone. Deleting a missing or
// already-deleted campaign returns models.ErrNotFound; the event history
// stays in the log either way.
func (p *Postgres) DeleteCampaign(ctx context.Context, advertiserID, campaignID uuid.UUID) error {
	res, err := p.DB.ExecContext(ctx, `UPDATE campaigns SET is_deleted = TRUE
        WHERE id = $1 AND advertiser_id = $2 AND NOT is_deleted`,
		campaignID, advertiserID)
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete campaign rows: %w", err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ValidCampaigns returns every live campaign whose validity window
// contains the given virtual day. This is the serve path's candidate
// prefilter; the in-memory eligibility filters re-check the window on
// the snapshot they receive.
func (p *Postgres) ValidCampaigns(ctx context.Context, day int) ([]models.Campaign, error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT `+campaignColumns+`
        FROM campaigns WHERE NOT is_deleted AND start_date <= $1 AND end_date >= $1`,
		day)
	if err != nil {
		return nil, fmt.Errorf("query valid campaigns: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var cs []models.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan valid campaign: %w", err)
		}
		cs = append(cs, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return cs, nil
}

// CampaignsByAdvertiser returns all of an advertiser's campaigns,
// soft-deleted ones included. Advertiser-level reporting aggregates
// over the full set because tombstoned campaigns keep their recorded
// events.
func (p *Postgres) CampaignsByAdvertiser(ctx context.Context, advertiserID uuid.UUID) ([]models.Campaign, error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT `+campaignColumns+`
        FROM campaigns WHERE advertiser_id = $1`, advertiserID)
	if err != nil {
		return nil, fmt.Errorf("query advertiser campaigns: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var cs []models.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan advertiser campaign: %w", err)
		}
		cs = append(cs, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return cs, nil
}
