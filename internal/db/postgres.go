package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Postgres wraps a postgres DB connection. It is the system of record:
// every catalog read, every event write and the virtual clock go through
// it, and all cross-request ordering is enforced by its transactions.
type Postgres struct {
	DB *sql.DB
}

// ErrConflict is returned when a write collides with a concurrent insert
// on the same fresh primary key, or when one batch names the same key
// twice. The transport maps it to HTTP 409.
var ErrConflict = errors.New("duplicate key conflict")

// schemaSQL sets up the necessary tables if they don't exist.
const schemaSQL = `CREATE TABLE IF NOT EXISTS clients (
    id UUID PRIMARY KEY,
    login TEXT NOT NULL,
    age INT,
    location TEXT,
    gender TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS advertisers (
    id UUID PRIMARY KEY,
    name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS ml_scores (
    client_id UUID NOT NULL REFERENCES clients(id),
    advertiser_id UUID NOT NULL REFERENCES advertisers(id),
    score INT NOT NULL,
    PRIMARY KEY (client_id, advertiser_id)
);

CREATE TABLE IF NOT EXISTS campaigns (
    id UUID PRIMARY KEY,
    advertiser_id UUID NOT NULL REFERENCES advertisers(id),
    impressions_limit INT NOT NULL,
    clicks_limit INT NOT NULL,
    cost_per_impression DOUBLE PRECISION NOT NULL,
    cost_per_click DOUBLE PRECISION NOT NULL,
    ad_title TEXT NOT NULL,
    ad_text TEXT NOT NULL,
    ad_photo_url TEXT,
    start_date INT NOT NULL,
    end_date INT NOT NULL,
    target_gender TEXT,
    target_age_from INT,
    target_age_to INT,
    target_location TEXT,
    is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
    create_date TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS ad_events (
    id UUID PRIMARY KEY,
    campaign_id UUID NOT NULL REFERENCES campaigns(id),
    client_id UUID NOT NULL REFERENCES clients(id),
    event_type TEXT NOT NULL CHECK (event_type IN ('impression', 'click')),
    event_day INT NOT NULL,
    event_timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS system_time (
    id INT PRIMARY KEY CHECK (id = 1),
    current_day INT NOT NULL DEFAULT 0
);

-- Event log invariant: at most one event per (campaign, client, type)
CREATE UNIQUE INDEX IF NOT EXISTS idx_ad_events_dedupe ON ad_events (campaign_id, client_id, event_type);

-- Performance indexes for serving and reporting
CREATE INDEX IF NOT EXISTS idx_ad_events_unique_viewers ON ad_events (campaign_id, event_type, client_id);
CREATE INDEX IF NOT EXISTS idx_ad_events_daily ON ad_events (campaign_id, event_type, event_day);
CREATE INDEX IF NOT EXISTS idx_campaigns_advertiser ON campaigns (advertiser_id, is_deleted);
CREATE INDEX IF NOT EXISTS idx_campaigns_window ON campaigns (start_date, end_date) WHERE NOT is_deleted;
`

// InitPostgres connects to Postgres with connection pooling configuration.
func InitPostgres(dsn string, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (*Postgres, error) {
	// Register the otelsql wrapper for postgres
	driverName, err := otelsql.Register("postgres",
		otelsql.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.connection_string", dsn),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("register otelsql: %w", err)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}

	// Configure connection pooling for production use
	db.SetMaxOpenConns(maxOpenConns)       // Maximum number of open connections
	db.SetMaxIdleConns(maxIdleConns)       // Maximum number of idle connections
	db.SetConnMaxLifetime(connMaxLifetime) // Maximum lifetime of a connection
	db.SetConnMaxIdleTime(connMaxIdleTime) // Maximum idle time before closing connection

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	p := &Postgres{DB: db}
	if err := p.ensureSchema(); err != nil {
		return nil, err
	}
	zap.L().Info("Connected to Postgres with connection pooling",
		zap.Int("max_open_conns", maxOpenConns),
		zap.Int("max_idle_conns", maxIdleConns),
		zap.Duration("conn_max_lifetime", connMaxLifetime))
	return p, nil
}

// Close terminates the Postgres connection.
func (p *Postgres) Close() {
	if p != nil && p.DB != nil {
		if err := p.DB.Close(); err != nil {
			zap.L().Error("postgres close", zap.Error(err))
		}
	}
}

// ensureSchema creates the required tables if they do not exist.
func (p *Postgres) ensureSchema() error {
	ctx := context.Background()
	if _, err := p.DB.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// isForeignKeyViolation reports whether err is a Postgres foreign key
// violation (SQLSTATE 23503).
func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}

// isCardinalityViolation reports whether err is a Postgres cardinality
// violation (SQLSTATE 21000), raised when an upsert batch touches the
// same row twice in one statement set.
func isCardinalityViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "21000"
}
