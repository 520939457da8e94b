package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/patrickwarner/promoserve/internal/middleware"
	"github.com/patrickwarner/promoserve/internal/models"
)

// ClickHandler handles POST /ads/{adId}/click: it attributes a click by
// the client named in the body to the campaign named in the path. The
// recorder does the real gatekeeping (impression-before-click, caps,
// window); this handler validates the identifiers and maps refusals to
// status codes.
func (s *Server) ClickHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "ClickHandler",
		trace.WithAttributes(
			attribute.String("http.method", "POST"),
			attribute.String("http.route", "/ads/{adId}/click"),
		))
	defer span.End()

	logger := middleware.LoggerFromRequest(r, s.Logger)

	start := time.Now()
	const endpoint = "click"
	const method = "POST"

	campaignID, err := uuid.Parse(mux.Vars(r)["adId"])
	if err != nil {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "ad id must be a UUID", http.StatusBadRequest)
		return
	}

	var req models.ClickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ClientID == uuid.Nil {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "body must carry a client_id UUID", http.StatusBadRequest)
		return
	}
	span.SetAttributes(
		attribute.String("campaign_id", campaignID.String()),
		attribute.String("client_id", req.ClientID.String()),
	)

	// Unknown clients and unknown campaigns are 404s before the
	// recorder runs, so a refusal always means an eligibility problem.
	if _, err := s.PG.GetClient(ctx, req.ClientID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.Metrics.IncrementRequests(endpoint, method, "404")
			s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
			http.Error(w, "unknown client", http.StatusNotFound)
			return
		}
		logger.Error("load client", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if _, err := s.PG.GetCampaignByID(ctx, campaignID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.Metrics.IncrementRequests(endpoint, method, "404")
			s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
			http.Error(w, "unknown ad", http.StatusNotFound)
			return
		}
		logger.Error("load campaign", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	ok, err := s.Recorder.RecordClick(ctx, campaignID, req.ClientID)
	if err != nil {
		logger.Error("record click", zap.Error(err),
			zap.String("campaign_id", campaignID.String()),
			zap.String("client_id", req.ClientID.String()))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !ok {
		span.SetAttributes(attribute.String("click.result", "refused"))
		s.Metrics.IncrementRequests(endpoint, method, "409")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "click not accepted", http.StatusConflict)
		return
	}

	span.SetAttributes(attribute.String("click.result", "recorded"))
	s.bumpStatsVersion(ctx, campaignID)
	s.mirrorEvent(ctx, r, logger, models.EventClick, campaignID, req.ClientID)

	logger.Info("click recorded",
		zap.String("campaign_id", campaignID.String()),
		zap.String("client_id", req.ClientID.String()))
	s.Metrics.IncrementEvent(models.EventClick)
	s.Metrics.IncrementRequests(endpoint, method, "204")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
	w.WriteHeader(http.StatusNoContent)
}
