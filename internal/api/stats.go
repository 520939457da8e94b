package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/patrickwarner/promoserve/internal/middleware"
)

// CampaignStats handles GET /stats/campaigns/{campaignId}: lifetime
// unique counts and spend for one live campaign. Soft-deleted
// campaigns are 404 here, unlike the advertiser rollups below.
func (s *Server) CampaignStats(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)

	start := time.Now()
	const endpoint = "stats_campaign"
	const method = "GET"

	campaignID, err := pathUUID(r, "campaignId")
	if err != nil {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "campaign id must be a UUID", http.StatusBadRequest)
		return
	}

	stats, err := s.Reporter.CampaignTotals(r.Context(), campaignID)
	if err != nil {
		s.statsError(w, logger, err, endpoint, method, start)
		return
	}

	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
	writeJSON(w, http.StatusOK, stats)
}

// CampaignDailyStats handles GET /stats/campaigns/{campaignId}/daily.
func (s *Server) CampaignDailyStats(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)

	start := time.Now()
	const endpoint = "stats_campaign_daily"
	const method = "GET"

	campaignID, err := pathUUID(r, "campaignId")
	if err != nil {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "campaign id must be a UUID", http.StatusBadRequest)
		return
	}

	daily, err := s.Reporter.CampaignDaily(r.Context(), campaignID)
	if err != nil {
		s.statsError(w, logger, err, endpoint, method, start)
		return
	}

	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
	writeJSON(w, http.StatusOK, daily)
}

// AdvertiserStats handles GET /stats/advertisers/{advertiserId}/campaigns:
// totals over every campaign the advertiser ever ran, tombstoned ones
// included.
func (s *Server) AdvertiserStats(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)

	start := time.Now()
	const endpoint = "stats_advertiser"
	const method = "GET"

	advertiserID, err := pathUUID(r, "advertiserId")
	if err != nil {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "advertiser id must be a UUID", http.StatusBadRequest)
		return
	}

	stats, err := s.Reporter.AdvertiserTotals(r.Context(), advertiserID)
	if err != nil {
		s.statsError(w, logger, err, endpoint, method, start)
		return
	}

	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
	writeJSON(w, http.StatusOK, stats)
}

// AdvertiserDailyStats handles GET /stats/advertisers/{advertiserId}/campaigns/daily.
func (s *Server) AdvertiserDailyStats(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)

	start := time.Now()
	const endpoint = "stats_advertiser_daily"
	const method = "GET"

	advertiserID, err := pathUUID(r, "advertiserId")
	if err != nil {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "advertiser id must be a UUID", http.StatusBadRequest)
		return
	}

	daily, err := s.Reporter.AdvertiserDaily(r.Context(), advertiserID)
	if err != nil {
		s.statsError(w, logger, err, endpoint, method, start)
		return
	}

	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
	writeJSON(w, http.StatusOK, daily)
}

func (s *Server) statsError(w http.ResponseWriter, logger *zap.Logger, err error, endpoint, method string, start time.Time) {
	status := "500"
	defer func() {
		s.Metrics.IncrementRequests(endpoint, method, status)
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
	}()
	if isNotFound(err) {
		status = "404"
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	logger.Error("compute stats", zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}
