package db

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/patrickwarner/promoserve/internal/models"
	"github.com/patrickwarner/promoserve/internal/observability"
)

func newMockRecorder(t *testing.T) (*Recorder, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })
	pg := &Postgres{DB: mockDB}
	return NewRecorder(pg, observability.NewNoOpRegistry(), zap.NewNop()), mock
}

func expectCampaignLock(mock sqlmock.Sqlmock, campaignID uuid.UUID, deleted bool, start, end, implimit, clicklimit int) {
	mock.ExpectQuery("SELECT is_deleted, start_date, end_date").
		WithArgs(campaignID).
		WillReturnRows(sqlmock.NewRows([]string{"is_deleted", "start_date", "end_date", "impressions_limit", "clicks_limit"}).
			AddRow(deleted, start, end, implimit, clicklimit))
}

func expectCurrentDay(mock sqlmock.Sqlmock, day int) {
	mock.ExpectQuery("SELECT current_day FROM system_time").
		WillReturnRows(sqlmock.NewRows([]string{"current_day"}).AddRow(day))
}

func TestRecordImpressionInsertsFreshEvent(t *testing.T) {
	r, mock := newMockRecorder(t)
	campaignID := uuid.New()
	clientID := uuid.New()

	mock.ExpectBegin()
	expectCampaignLock(mock, campaignID, false, 0, 10, 100, 50)
	expectCurrentDay(mock, 5)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(campaignID, models.EventImpression).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(campaignID, clientID, models.EventImpression).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO ad_events").
		WithArgs(sqlmock.AnyArg(), campaignID, clientID, models.EventImpression, 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ok, err := r.RecordImpression(context.Background(), campaignID, clientID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordImpressionMissingCampaign(t *testing.T) {
	r, mock := newMockRecorder(t)
	campaignID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT is_deleted, start_date, end_date").
		WithArgs(campaignID).
		WillReturnRows(sqlmock.NewRows([]string{"is_deleted", "start_date", "end_date", "impressions_limit", "clicks_limit"}))
	mock.ExpectRollback()

	ok, err := r.RecordImpression(context.Background(), campaignID, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordImpressionDeletedCampaign(t *testing.T) {
	r, mock := newMockRecorder(t)
	campaignID := uuid.New()

	mock.ExpectBegin()
	expectCampaignLock(mock, campaignID, true, 0, 10, 100, 50)
	mock.ExpectRollback()

	ok, err := r.RecordImpression(context.Background(), campaignID, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecordImpressionOutsideWindow(t *testing.T) {
	r, mock := newMockRecorder(t)
	campaignID := uuid.New()

	mock.ExpectBegin()
	expectCampaignLock(mock, campaignID, false, 3, 7, 100, 50)
	expectCurrentDay(mock, 8)
	mock.ExpectRollback()

	ok, err := r.RecordImpression(context.Background(), campaignID, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecordImpressionCapReached(t *testing.T) {
	r, mock := newMockRecorder(t)
	campaignID := uuid.New()

	mock.ExpectBegin()
	expectCampaignLock(mock, campaignID, false, 0, 10, 3, 50)
	expectCurrentDay(mock, 5)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(campaignID, models.EventImpression).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectRollback()

	ok, err := r.RecordImpression(context.Background(), campaignID, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordImpressionIdempotent(t *testing.T) {
	r, mock := newMockRecorder(t)
	campaignID := uuid.New()
	clientID := uuid.New()

	mock.ExpectBegin()
	expectCampaignLock(mock, campaignID, false, 0, 10, 100, 50)
	expectCurrentDay(mock, 5)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(campaignID, models.EventImpression).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(99))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(campaignID, clientID, models.EventImpression).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectCommit()

	ok, err := r.RecordImpression(context.Background(), campaignID, clientID)
	require.NoError(t, err)
	assert.True(t, ok, "repeat of an existing event must report success")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordClickRequiresImpression(t *testing.T) {
	r, mock := newMockRecorder(t)
	campaignID := uuid.New()
	clientID := uuid.New()

	mock.ExpectBegin()
	expectCampaignLock(mock, campaignID, false, 0, 10, 100, 50)
	expectCurrentDay(mock, 5)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(campaignID, clientID, models.EventImpression).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	ok, err := r.RecordClick(context.Background(), campaignID, clientID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordClickInsertsAfterImpression(t *testing.T) {
	r, mock := newMockRecorder(t)
	campaignID := uuid.New()
	clientID := uuid.New()

	mock.ExpectBegin()
	expectCampaignLock(mock, campaignID, false, 0, 10, 100, 50)
	expectCurrentDay(mock, 5)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(campaignID, clientID, models.EventImpression).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(campaignID, models.EventClick).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(10))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(campaignID, clientID, models.EventClick).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO ad_events").
		WithArgs(sqlmock.AnyArg(), campaignID, clientID, models.EventClick, 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ok, err := r.RecordClick(context.Background(), campaignID, clientID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordClickCapCheckedBeforeDuplicate(t *testing.T) {
	// A client who already clicked still gets refused once the click
	// cap is full; the cap gate runs before the duplicate check.
	r, mock := newMockRecorder(t)
	campaignID := uuid.New()
	clientID := uuid.New()

	mock.ExpectBegin()
	expectCampaignLock(mock, campaignID, false, 0, 10, 100, 10)
	expectCurrentDay(mock, 5)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(campaignID, clientID, models.EventImpression).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(campaignID, models.EventClick).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(10))
	mock.ExpectRollback()

	ok, err := r.RecordClick(context.Background(), campaignID, clientID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
