package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/patrickwarner/promoserve/internal/logic"
	"github.com/patrickwarner/promoserve/internal/middleware"
	"github.com/patrickwarner/promoserve/internal/models"
)

var tracer = otel.Tracer("promoserve")

// GetAdHandler handles GET /ads?client_id= requests: it runs the
// selection engine for the client and returns the winning ad. The
// winner's impression is recorded atomically inside selection; this
// handler only mirrors it to analytics afterwards.
func (s *Server) GetAdHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "GetAdHandler",
		trace.WithAttributes(
			attribute.String("http.method", "GET"),
			attribute.String("http.route", "/ads"),
		))
	defer span.End()

	logger := middleware.LoggerFromRequest(r, s.Logger)

	start := time.Now()
	const endpoint = "ads"
	const method = "GET"

	clientID, err := uuid.Parse(r.URL.Query().Get("client_id"))
	if err != nil {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "client_id must be a UUID", http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("client_id", clientID.String()))

	ad, err := s.Selector.SelectAd(ctx, clientID)
	if err != nil {
		switch {
		case errors.Is(err, logic.ErrUnknownClient):
			span.SetAttributes(attribute.String("ad.result", "unknown_client"))
			s.Metrics.IncrementServeDecision("unknown_client")
			s.Metrics.IncrementRequests(endpoint, method, "404")
			s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
			http.Error(w, "unknown client", http.StatusNotFound)
		case errors.Is(err, logic.ErrNoEligibleCampaign):
			span.SetAttributes(attribute.String("ad.result", "no_ad"))
			s.Metrics.IncrementServeDecision("no_ad")
			s.Metrics.IncrementRequests(endpoint, method, "404")
			s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
			http.Error(w, "no ad available", http.StatusNotFound)
		default:
			logger.Error("select ad", zap.Error(err), zap.String("client_id", clientID.String()))
			s.Metrics.IncrementServeDecision("error")
			s.Metrics.IncrementRequests(endpoint, method, "500")
			s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	span.SetAttributes(
		attribute.String("ad.result", "served"),
		attribute.String("ad.campaign_id", ad.AdID.String()),
		attribute.Bool("ad.impression_recorded", ad.ImpressionRecorded),
	)

	if ad.ImpressionRecorded {
		s.Metrics.IncrementEvent(models.EventImpression)
		s.bumpStatsVersion(ctx, ad.AdID)
		s.mirrorEvent(ctx, r, logger, models.EventImpression, ad.AdID, clientID)
	}

	logger.Info("ad served",
		zap.String("client_id", clientID.String()),
		zap.String("campaign_id", ad.AdID.String()),
		zap.Bool("impression_recorded", ad.ImpressionRecorded))
	s.Metrics.IncrementServeDecision("served")
	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))

	writeJSON(w, http.StatusOK, ad)
}

// mirrorEvent forwards a freshly recorded event to the analytics
// mirror, enriched with device type and country resolved from the
// request. The mirror is fire-and-forget: failures are logged and the
// response is unaffected.
func (s *Server) mirrorEvent(ctx context.Context, r *http.Request, logger *zap.Logger, eventType string, campaignID, clientID uuid.UUID) {
	if s.Analytics == nil {
		return
	}

	campaign, err := s.PG.GetCampaignByID(ctx, campaignID)
	if err != nil {
		logger.Warn("analytics mirror skipped: load campaign",
			zap.Error(err), zap.String("campaign_id", campaignID.String()))
		return
	}
	day, err := s.PG.CurrentDay(ctx)
	if err != nil {
		logger.Warn("analytics mirror skipped: load current day", zap.Error(err))
		return
	}

	ec := logic.ResolveEventContext(r, s.GeoIP)

	if eventType == models.EventClick {
		err = s.Analytics.RecordClick(ctx, *campaign, clientID.String(), day, ec)
	} else {
		err = s.Analytics.RecordImpression(ctx, *campaign, clientID.String(), day, ec)
	}
	if err != nil {
		logger.Warn("analytics mirror failed",
			zap.Error(err),
			zap.String("event_type", eventType),
			zap.String("campaign_id", campaignID.String()))
	}
}
