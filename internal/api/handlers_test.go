package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/patrickwarner/promoserve/internal/analytics"
	"github.com/patrickwarner/promoserve/internal/db"
	"github.com/patrickwarner/promoserve/internal/logic"
	"github.com/patrickwarner/promoserve/internal/models"
	"github.com/patrickwarner/promoserve/internal/observability"
	"github.com/patrickwarner/promoserve/internal/reporting"
)

type stubSelector struct {
	ad  *models.AdResponse
	err error
}

func (s *stubSelector) SelectAd(context.Context, uuid.UUID) (*models.AdResponse, error) {
	return s.ad, s.err
}

type stubRecorder struct {
	impressionOK bool
	clickOK      bool
	clicks       []uuid.UUID
}

func (s *stubRecorder) RecordImpression(_ context.Context, campaignID, _ uuid.UUID) (bool, error) {
	return s.impressionOK, nil
}

func (s *stubRecorder) RecordClick(_ context.Context, campaignID, _ uuid.UUID) (bool, error) {
	s.clicks = append(s.clicks, campaignID)
	return s.clickOK, nil
}

func newTestServer(t *testing.T) (*Server, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	return &Server{
		Logger:  zap.NewNop(),
		PG:      &db.Postgres{DB: mockDB},
		Metrics: observability.NewNoOpRegistry(),
	}, mock
}

var campaignCols = []string{"id", "advertiser_id", "impressions_limit", "clicks_limit",
	"cost_per_impression", "cost_per_click", "ad_title", "ad_text", "ad_photo_url",
	"start_date", "end_date", "target_gender", "target_age_from", "target_age_to",
	"target_location", "is_deleted", "create_date"}

func campaignRow(campaignID, advertiserID uuid.UUID) *sqlmock.Rows {
	return sqlmock.NewRows(campaignCols).
		AddRow(campaignID, advertiserID, 100, 50, 1.0, 2.0, "title", "text", nil,
			0, 30, nil, nil, nil, nil, false, time.Now())
}

func doRequest(srv *Server, method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)
	return rec
}

func TestGetAdHandlerServesWinner(t *testing.T) {
	srv, _ := newTestServer(t)
	clientID := uuid.New()
	campaignID := uuid.New()
	srv.Selector = &stubSelector{ad: &models.AdResponse{
		AdID:         campaignID,
		AdTitle:      "title",
		AdText:       "text",
		AdvertiserID: uuid.New(),
	}}

	rec := doRequest(srv, http.MethodGet, "/ads?client_id="+clientID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var ad models.AdResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ad))
	assert.Equal(t, campaignID, ad.AdID)
	assert.Equal(t, "title", ad.AdTitle)
}

func TestGetAdHandlerMirrorsFreshImpression(t *testing.T) {
	srv, mock := newTestServer(t)
	clientID := uuid.New()
	campaignID := uuid.New()
	mockAnalytics := analytics.NewMockAnalytics()
	srv.Analytics = mockAnalytics
	srv.Selector = &stubSelector{ad: &models.AdResponse{
		AdID:               campaignID,
		AdvertiserID:       uuid.New(),
		ImpressionRecorded: true,
	}}

	mock.ExpectQuery("SELECT (.+) FROM campaigns WHERE id =").
		WillReturnRows(campaignRow(campaignID, uuid.New()))
	mock.ExpectQuery("SELECT current_day FROM system_time").
		WillReturnRows(sqlmock.NewRows([]string{"current_day"}).AddRow(4))

	rec := doRequest(srv, http.MethodGet, "/ads?client_id="+clientID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	events := mockAnalytics.Recorded()
	require.Len(t, events, 1)
	assert.Equal(t, models.EventImpression, events[0].EventType)
	assert.Equal(t, campaignID.String(), events[0].CampaignID)
	assert.Equal(t, clientID.String(), events[0].ClientID)
	assert.Equal(t, 4, events[0].Day)
}

func TestGetAdHandlerStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"unknown client", logic.ErrUnknownClient, http.StatusNotFound},
		{"no eligible campaign", logic.ErrNoEligibleCampaign, http.StatusNotFound},
		{"store failure", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := newTestServer(t)
			srv.Selector = &stubSelector{err: tc.err}
			rec := doRequest(srv, http.MethodGet, "/ads?client_id="+uuid.NewString(), nil)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestGetAdHandlerRejectsBadClientID(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.Selector = &stubSelector{}
	rec := doRequest(srv, http.MethodGet, "/ads?client_id=not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func expectClientLookup(mock sqlmock.Sqlmock, clientID uuid.UUID) {
	mock.ExpectQuery("SELECT id, login, age, location, gender FROM clients").
		WithArgs(clientID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "login", "age", "location", "gender"}).
			AddRow(clientID, "user", 30, "Moscow", models.GenderMale))
}

func TestClickHandlerAccepted(t *testing.T) {
	srv, mock := newTestServer(t)
	recorder := &stubRecorder{clickOK: true}
	srv.Recorder = recorder

	campaignID := uuid.New()
	clientID := uuid.New()
	expectClientLookup(mock, clientID)
	mock.ExpectQuery("SELECT (.+) FROM campaigns WHERE id =").
		WillReturnRows(campaignRow(campaignID, uuid.New()))

	rec := doRequest(srv, http.MethodPost,
		"/ads/"+campaignID.String()+"/click", models.ClickRequest{ClientID: clientID})

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []uuid.UUID{campaignID}, recorder.clicks)
}

func TestClickHandlerRefusalIsConflict(t *testing.T) {
	srv, mock := newTestServer(t)
	srv.Recorder = &stubRecorder{clickOK: false}

	campaignID := uuid.New()
	clientID := uuid.New()
	expectClientLookup(mock, clientID)
	mock.ExpectQuery("SELECT (.+) FROM campaigns WHERE id =").
		WillReturnRows(campaignRow(campaignID, uuid.New()))

	rec := doRequest(srv, http.MethodPost,
		"/ads/"+campaignID.String()+"/click", models.ClickRequest{ClientID: clientID})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestClickHandlerUnknownClient(t *testing.T) {
	srv, mock := newTestServer(t)
	srv.Recorder = &stubRecorder{clickOK: true}

	clientID := uuid.New()
	mock.ExpectQuery("SELECT id, login, age, location, gender FROM clients").
		WithArgs(clientID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "login", "age", "location", "gender"}))

	rec := doRequest(srv, http.MethodPost,
		"/ads/"+uuid.NewString()+"/click", models.ClickRequest{ClientID: clientID})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClickHandlerRejectsMissingBody(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.Recorder = &stubRecorder{clickOK: true}

	rec := doRequest(srv, http.MethodPost, "/ads/"+uuid.NewString()+"/click", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdvanceTimeHandler(t *testing.T) {
	srv, mock := newTestServer(t)
	mock.ExpectExec("INSERT INTO system_time").
		WithArgs(12).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := doRequest(srv, http.MethodPost, "/time/advance", map[string]int{"current_date": 12})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 12, resp["current_date"])
}

func TestAdvanceTimeHandlerRejectsNegativeDay(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(srv, http.MethodPost, "/time/advance", map[string]int{"current_date": -1})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCampaignStatsDeletedCampaignIs404(t *testing.T) {
	srv, mock := newTestServer(t)
	srv.Reporter = reporting.NewReporter(srv.PG, nil, time.Minute, srv.Metrics, srv.Logger)

	campaignID := uuid.New()
	// Tombstoned campaigns are filtered by the query, so the read
	// comes back empty.
	mock.ExpectQuery("SELECT (.+) FROM campaigns WHERE id =").
		WillReturnRows(sqlmock.NewRows(campaignCols))

	rec := doRequest(srv, http.MethodGet, "/stats/campaigns/"+campaignID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateCampaignValidationFailure(t *testing.T) {
	srv, _ := newTestServer(t)

	body := map[string]any{
		"impressions_limit":   0, // must be positive
		"clicks_limit":        10,
		"cost_per_impression": 1.0,
		"cost_per_click":      1.0,
		"ad_title":            "t",
		"ad_text":             "t",
		"start_date":          0,
		"end_date":            5,
	}
	rec := doRequest(srv, http.MethodPost, "/advertisers/"+uuid.NewString()+"/campaigns", body)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCreateCampaignAssignsServerSideID(t *testing.T) {
	srv, mock := newTestServer(t)
	advertiserID := uuid.New()

	mock.ExpectQuery("INSERT INTO campaigns").
		WillReturnRows(sqlmock.NewRows([]string{"create_date"}).AddRow(time.Now()))

	body := map[string]any{
		"campaign_id":         uuid.NewString(), // ignored
		"impressions_limit":   10,
		"clicks_limit":        5,
		"cost_per_impression": 1.0,
		"cost_per_click":      2.0,
		"ad_title":            "Spring Sale",
		"ad_text":             "Big discounts",
		"start_date":          0,
		"end_date":            5,
	}
	rec := doRequest(srv, http.MethodPost, "/advertisers/"+advertiserID.String()+"/campaigns", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Campaign
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEqual(t, body["campaign_id"], created.ID.String())
	assert.Equal(t, advertiserID, created.AdvertiserID)
}

func TestUpsertMLScoreReturnsCreated(t *testing.T) {
	srv, mock := newTestServer(t)
	score := models.MLScore{ClientID: uuid.New(), AdvertiserID: uuid.New(), Score: 7000}

	mock.ExpectExec("INSERT INTO ml_scores").
		WithArgs(score.ClientID, score.AdvertiserID, score.Score).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := doRequest(srv, http.MethodPost, "/ml-scores", score)
	require.Equal(t, http.StatusCreated, rec.Code)

	var echoed models.MLScore
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &echoed))
	assert.Equal(t, score, echoed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthHandlerReportsPostgresDown(t *testing.T) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	srv := &Server{
		Logger:  zap.NewNop(),
		PG:      &db.Postgres{DB: mockDB},
		Metrics: observability.NewNoOpRegistry(),
	}
	mock.ExpectPing().WillReturnError(fmt.Errorf("connection refused"))

	rec := doRequest(srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthHandlerOK(t *testing.T) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	srv := &Server{
		Logger:  zap.NewNop(),
		PG:      &db.Postgres{DB: mockDB},
		Metrics: observability.NewNoOpRegistry(),
	}
	mock.ExpectPing()

	rec := doRequest(srv, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var h map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	assert.Equal(t, "ok", h["postgres"])
	assert.Equal(t, "disabled", h["redis"])
}
