package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// The virtual clock is a single row. Every validity check in the
// system measures against this day, and the recorder stamps it onto
// each event it writes. Nothing advances it except an operator call.

// SetCurrentDay overwrites the virtual day. There is no history and no
// monotonicity guard; the operator owns the timeline.
func (p *Postgres) SetCurrentDay(ctx context.Context, day int) error {
	_, err := p.DB.ExecContext(ctx, `INSERT INTO system_time (id, current_day)
        VALUES (1, $1)
        ON CONFLICT (id) DO UPDATE SET current_day = EXCLUDED.current_day`, day)
	if err != nil {
		return fmt.Errorf("set current day: %w", err)
	}
	return nil
}

// CurrentDay returns the virtual day, or 0 when it was never set.
func (p *Postgres) CurrentDay(ctx context.Context) (int, error) {
	return currentDay(ctx, p.DB)
}

// currentDayTx reads the virtual day inside an open transaction so the
// recorder's validity check and its insert see the same day.
func currentDayTx(ctx context.Context, tx *sql.Tx) (int, error) {
	return currentDay(ctx, tx)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func currentDay(ctx context.Context, q queryRower) (int, error) {
	var day int
	err := q.QueryRowContext(ctx, `SELECT current_day FROM system_time WHERE id = 1`).Scan(&day)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get current day: %w", err)
	}
	return day, nil
}
