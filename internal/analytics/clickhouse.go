package analytics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	_ "github.com/ClickHouse/clickhouse-go/v2"

	"github.com/patrickwarner/promoserve/internal/logic"
	"github.com/patrickwarner/promoserve/internal/models"
	"github.com/patrickwarner/promoserve/internal/observability"
)

// The analytics mirror is a non-authoritative copy of the event log
// enriched with request context. Postgres remains the system of record;
// nothing in selection, recording or reporting reads ClickHouse. A
// failed mirror write is logged and dropped.

// AnalyticsService defines the interface for mirroring events.
// Implementations should handle cases where underlying storage is
// unavailable by returning ErrUnavailable.
type AnalyticsService interface {
	// RecordImpression mirrors an impression event.
	RecordImpression(ctx context.Context, campaign models.Campaign, clientID string, day int, ec logic.EventContext) error
	// RecordClick mirrors a click event.
	RecordClick(ctx context.Context, campaign models.Campaign, clientID string, day int, ec logic.EventContext) error
}

// ErrUnavailable is returned when the analytics DB is not configured.
var ErrUnavailable = errors.New("analytics unavailable")

// Analytics wraps a ClickHouse DB connection.
type Analytics struct {
	DB      *sql.DB
	Metrics observability.MetricsRegistry
}

// EventRecord mirrors a row in the events table.
type EventRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	EventType    string    `json:"event_type"`
	CampaignID   string    `json:"campaign_id"`
	AdvertiserID string    `json:"advertiser_id"`
	ClientID     string    `json:"client_id"`
	EventDay     int32     `json:"event_day"`
	Cost         float64   `json:"cost"`
	DeviceType   *string   `json:"device_type"`
	Country      *string   `json:"country"`
}

// InitClickHouse connects to ClickHouse and ensures the events table exists.
func InitClickHouse(dsn string, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration, metrics observability.MetricsRegistry) (*Analytics, error) {
	db, err := sql.Open("clickhouse", dsn)
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)
	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	create := `CREATE TABLE IF NOT EXISTS events (
       timestamp     DateTime,
       event_type    String,
       campaign_id   String,
       advertiser_id String,
       client_id     String,
       event_day     Int32,
       cost          Float64,
       device_type   Nullable(String),
       country       Nullable(String)
   ) ENGINE=MergeTree() ORDER BY (event_type, event_day, campaign_id)`
	if _, err := db.ExecContext(context.Background(), create); err != nil {
		return nil, fmt.Errorf("clickhouse create table: %w", err)
	}

	zap.L().Info("Connected to ClickHouse")
	return &Analytics{DB: db, Metrics: metrics}, nil
}

// RecordImpression mirrors an impression priced at the campaign's
// impression rate.
func (a *Analytics) RecordImpression(ctx context.Context, campaign models.Campaign, clientID string, day int, ec logic.EventContext) error {
	return a.recordEvent(ctx, models.EventImpression, campaign, clientID, day, campaign.CostPerImpression, ec)
}

// RecordClick mirrors a click priced at the campaign's click rate.
func (a *Analytics) RecordClick(ctx context.Context, campaign models.Campaign, clientID string, day int, ec logic.EventContext) error {
	return a.recordEvent(ctx, models.EventClick, campaign, clientID, day, campaign.CostPerClick, ec)
}

func (a *Analytics) recordEvent(ctx context.Context, eventType string, campaign models.Campaign, clientID string, day int, cost float64, ec logic.EventContext) error {
	if a == nil || a.DB == nil {
		return ErrUnavailable
	}

	var dt sql.NullString
	if ec.DeviceType != "" {
		dt.String = ec.DeviceType
		dt.Valid = true
	}
	var co sql.NullString
	if ec.Country != "" {
		co.String = ec.Country
		co.Valid = true
	}

	stmt := `INSERT INTO events (timestamp, event_type, campaign_id, advertiser_id, client_id, event_day, cost, device_type, country) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := a.DB.ExecContext(ctx, stmt, time.Now(), eventType,
		campaign.ID.String(), campaign.AdvertiserID.String(), clientID,
		int32(day), cost, dt, co); err != nil {
		zap.L().Error("clickhouse insert failed", zap.Error(err), zap.String("event_type", eventType))
		a.Metrics.IncrementAnalyticsExportErrors()
		return fmt.Errorf("insert %s event: %w", eventType, err)
	}
	return nil
}

// EventsByCampaign returns all mirrored events for a campaign ordered
// by day then timestamp. Used by operator tooling, never by the core.
func (a *Analytics) EventsByCampaign(ctx context.Context, campaignID string) ([]EventRecord, error) {
	if a == nil || a.DB == nil {
		return nil, ErrUnavailable
	}
	query := `SELECT timestamp, event_type, campaign_id, advertiser_id, client_id, event_day, cost, device_type, country FROM events WHERE campaign_id=? ORDER BY event_day, timestamp`
	rows, err := a.DB.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			zap.L().Warn("rows close", zap.Error(err))
		}
	}()

	var events []EventRecord
	for rows.Next() {
		var ev EventRecord
		if err := rows.Scan(&ev.Timestamp, &ev.EventType, &ev.CampaignID, &ev.AdvertiserID, &ev.ClientID, &ev.EventDay, &ev.Cost, &ev.DeviceType, &ev.Country); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return events, nil
}

// Close terminates the ClickHouse connection.
func (a *Analytics) Close() {
	if a != nil && a.DB != nil {
		if err := a.DB.Close(); err != nil {
			zap.L().Error("clickhouse close", zap.Error(err))
		}
	}
}
