package api

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/patrickwarner/promoserve/internal/analytics"
	"github.com/patrickwarner/promoserve/internal/config"
	"github.com/patrickwarner/promoserve/internal/db"
	"github.com/patrickwarner/promoserve/internal/geoip"
	"github.com/patrickwarner/promoserve/internal/logic/selectors"
	"github.com/patrickwarner/promoserve/internal/middleware"
	"github.com/patrickwarner/promoserve/internal/observability"
	"github.com/patrickwarner/promoserve/internal/reporting"
)

// EventRecorder is the transactional writer behind the serve and click
// paths. *db.Recorder implements it.
type EventRecorder interface {
	RecordImpression(ctx context.Context, campaignID, clientID uuid.UUID) (bool, error)
	RecordClick(ctx context.Context, campaignID, clientID uuid.UUID) (bool, error)
}

// Server groups dependencies for HTTP handlers.
type Server struct {
	Logger    *zap.Logger
	PG        *db.Postgres
	Store     *db.RedisStore
	Recorder  EventRecorder
	Selector  selectors.Selector
	Reporter  *reporting.Reporter
	Analytics analytics.AnalyticsService
	GeoIP     *geoip.GeoIP
	Metrics   observability.MetricsRegistry
	Config    config.Config
}

// NewServer constructs a Server. Redis, analytics and GeoIP may be nil;
// the affected features degrade instead of failing.
func NewServer(logger *zap.Logger, pg *db.Postgres, store *db.RedisStore, recorder EventRecorder, selector selectors.Selector, reporter *reporting.Reporter, analyticsSvc analytics.AnalyticsService, geo *geoip.GeoIP, metrics observability.MetricsRegistry, cfg config.Config) *Server {
	return &Server{
		Logger:    logger,
		PG:        pg,
		Store:     store,
		Recorder:  recorder,
		Selector:  selector,
		Reporter:  reporter,
		Analytics: analyticsSvc,
		GeoIP:     geo,
		Metrics:   metrics,
		Config:    cfg,
	}
}

// DataUpdateChannel is the Redis pub/sub channel mirroring catalog
// mutations to interested subscribers.
const DataUpdateChannel = "promo-data-updates"

type UpdateMessage struct {
	Entity string `json:"entity"`
	Action string `json:"action"`
	ID     any    `json:"id"`
}

func (s *Server) notifyUpdate(entity string, action string, id any) {
	if s.Store == nil || s.Store.Client == nil {
		return
	}
	msg := UpdateMessage{Entity: entity, Action: action, ID: id}
	payload, err := json.Marshal(msg)
	if err != nil {
		s.Logger.Error("failed to marshal update message", zap.Error(err))
		return
	}

	ctx := context.Background()
	if err := s.Store.Client.Publish(ctx, DataUpdateChannel, payload).Err(); err != nil {
		s.Logger.Error("failed to publish update message", zap.Error(err))
	}
}

// bumpStatsVersion orphans the campaign's cached statistics after an
// event insert or a catalog mutation.
func (s *Server) bumpStatsVersion(ctx context.Context, campaignID uuid.UUID) {
	if s.Store == nil || s.Store.Client == nil {
		return
	}
	if err := s.Store.BumpCampaignStatsVersion(ctx, campaignID.String()); err != nil {
		s.Logger.Warn("bump stats version", zap.Error(err),
			zap.String("campaign_id", campaignID.String()))
	}
}

// Routes mounts every handler on a fresh router. Middleware order:
// recovery outermost, then the trace-aware request logger.
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.WithRecovery(s.Logger))
	r.Use(middleware.WithTraceLogger(s.Logger))

	r.HandleFunc("/clients/bulk", s.BulkUpsertClients).Methods("POST")
	r.HandleFunc("/clients/{clientId}", s.GetClient).Methods("GET")

	r.HandleFunc("/advertisers/bulk", s.BulkUpsertAdvertisers).Methods("POST")
	r.HandleFunc("/advertisers/{advertiserId}", s.GetAdvertiser).Methods("GET")
	r.HandleFunc("/ml-scores", s.UpsertMLScore).Methods("POST")

	r.HandleFunc("/advertisers/{advertiserId}/campaigns", s.CreateCampaign).Methods("POST")
	r.HandleFunc("/advertisers/{advertiserId}/campaigns", s.ListCampaigns).Methods("GET")
	r.HandleFunc("/advertisers/{advertiserId}/campaigns/{campaignId}", s.GetCampaign).Methods("GET")
	r.HandleFunc("/advertisers/{advertiserId}/campaigns/{campaignId}", s.UpdateCampaign).Methods("PUT")
	r.HandleFunc("/advertisers/{advertiserId}/campaigns/{campaignId}", s.DeleteCampaign).Methods("DELETE")

	r.HandleFunc("/ads", s.GetAdHandler).Methods("GET")
	r.HandleFunc("/ads/{adId}/click", s.ClickHandler).Methods("POST")

	r.HandleFunc("/stats/campaigns/{campaignId}", s.CampaignStats).Methods("GET")
	r.HandleFunc("/stats/campaigns/{campaignId}/daily", s.CampaignDailyStats).Methods("GET")
	r.HandleFunc("/stats/advertisers/{advertiserId}/campaigns", s.AdvertiserStats).Methods("GET")
	r.HandleFunc("/stats/advertisers/{advertiserId}/campaigns/daily", s.AdvertiserDailyStats).Methods("GET")

	r.HandleFunc("/time/advance", s.AdvanceTimeHandler).Methods("POST")

	r.HandleFunc("/healthz", s.HealthHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler())

	return r
}
