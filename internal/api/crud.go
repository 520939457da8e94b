package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/patrickwarner/promoserve/internal/db"
	"github.com/patrickwarner/promoserve/internal/middleware"
	"github.com/patrickwarner/promoserve/internal/models"
)

// writeJSON writes v as the JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// catalogError maps store and validation errors from the catalog paths
// to status codes: invalid payloads are 422, missing rows 404, ID
// collisions 409, anything else 500.
func catalogError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		http.Error(w, ve.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, models.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, db.ErrConflict):
		http.Error(w, "already exists", http.StatusConflict)
	default:
		logger.Error("catalog operation", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(mux.Vars(r)[name])
}

func isNotFound(err error) bool {
	return errors.Is(err, models.ErrNotFound)
}

// ===== Clients =====

// BulkUpsertClients handles POST /clients/bulk: the whole batch is
// validated first and written atomically, so one bad record rejects
// the entire payload.
func (s *Server) BulkUpsertClients(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)

	var clients []models.Client
	if err := json.NewDecoder(r.Body).Decode(&clients); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	for i := range clients {
		if err := clients[i].Validate(); err != nil {
			catalogError(w, logger, err)
			return
		}
	}

	if err := s.PG.UpsertClients(r.Context(), clients); err != nil {
		catalogError(w, logger, err)
		return
	}

	for _, c := range clients {
		s.notifyUpdate("client", "upsert", c.ID)
	}
	writeJSON(w, http.StatusCreated, clients)
}

// GetClient handles GET /clients/{clientId}.
func (s *Server) GetClient(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)

	id, err := pathUUID(r, "clientId")
	if err != nil {
		http.Error(w, "client id must be a UUID", http.StatusBadRequest)
		return
	}
	client, err := s.PG.GetClient(r.Context(), id)
	if err != nil {
		catalogError(w, logger, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

// ===== Advertisers =====

// BulkUpsertAdvertisers handles POST /advertisers/bulk with the same
// all-or-nothing semantics as the client bulk endpoint.
func (s *Server) BulkUpsertAdvertisers(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)

	var advertisers []models.Advertiser
	if err := json.NewDecoder(r.Body).Decode(&advertisers); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	for i := range advertisers {
		if err := advertisers[i].Validate(); err != nil {
			catalogError(w, logger, err)
			return
		}
	}

	if err := s.PG.UpsertAdvertisers(r.Context(), advertisers); err != nil {
		catalogError(w, logger, err)
		return
	}

	for _, a := range advertisers {
		s.notifyUpdate("advertiser", "upsert", a.ID)
	}
	writeJSON(w, http.StatusCreated, advertisers)
}

// GetAdvertiser handles GET /advertisers/{advertiserId}.
func (s *Server) GetAdvertiser(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)

	id, err := pathUUID(r, "advertiserId")
	if err != nil {
		http.Error(w, "advertiser id must be a UUID", http.StatusBadRequest)
		return
	}
	adv, err := s.PG.GetAdvertiser(r.Context(), id)
	if err != nil {
		catalogError(w, logger, err)
		return
	}
	writeJSON(w, http.StatusOK, adv)
}

// UpsertMLScore handles POST /ml-scores. The referenced client and
// advertiser must already exist; the store reports a missing side as
// models.ErrNotFound via the foreign keys.
func (s *Server) UpsertMLScore(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)

	var score models.MLScore
	if err := json.NewDecoder(r.Body).Decode(&score); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := score.Validate(); err != nil {
		catalogError(w, logger, err)
		return
	}

	if err := s.PG.UpsertMLScore(r.Context(), score); err != nil {
		catalogError(w, logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, score)
}

// ===== Campaigns =====

// CreateCampaign handles POST /advertisers/{advertiserId}/campaigns.
// The server assigns the campaign ID; a client-supplied campaign_id in
// the body is ignored.
func (s *Server) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)

	advertiserID, err := pathUUID(r, "advertiserId")
	if err != nil {
		http.Error(w, "advertiser id must be a UUID", http.StatusBadRequest)
		return
	}

	var c models.Campaign
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	c.ID = uuid.New()
	c.AdvertiserID = advertiserID
	c.IsDeleted = false
	if err := c.Validate(); err != nil {
		catalogError(w, logger, err)
		return
	}

	if err := s.PG.InsertCampaign(r.Context(), &c); err != nil {
		catalogError(w, logger, err)
		return
	}

	s.notifyUpdate("campaign", "create", c.ID)
	writeJSON(w, http.StatusCreated, c)
}

// ListCampaigns handles GET /advertisers/{advertiserId}/campaigns with
// 1-based `page` and `size` query parameters.
func (s *Server) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)

	advertiserID, err := pathUUID(r, "advertiserId")
	if err != nil {
		http.Error(w, "advertiser id must be a UUID", http.StatusBadRequest)
		return
	}

	page, err := queryInt(r, "page", 1)
	if err != nil || page < 1 {
		http.Error(w, "page must be a positive integer", http.StatusBadRequest)
		return
	}
	size, err := queryInt(r, "size", 10)
	if err != nil || size < 1 {
		http.Error(w, "size must be a positive integer", http.StatusBadRequest)
		return
	}

	campaigns, err := s.PG.ListCampaigns(r.Context(), advertiserID, page, size)
	if err != nil {
		catalogError(w, logger, err)
		return
	}
	if campaigns == nil {
		campaigns = []models.Campaign{}
	}
	writeJSON(w, http.StatusOK, campaigns)
}

// GetCampaign handles GET /advertisers/{advertiserId}/campaigns/{campaignId}.
func (s *Server) GetCampaign(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)

	advertiserID, campaignID, ok := campaignPath(w, r)
	if !ok {
		return
	}
	c, err := s.PG.GetCampaign(r.Context(), advertiserID, campaignID)
	if err != nil {
		catalogError(w, logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// UpdateCampaign handles PUT /advertisers/{advertiserId}/campaigns/{campaignId}.
// The body is a partial edit; omitted fields keep their stored values
// and the merged campaign is re-validated as a whole.
func (s *Server) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)

	advertiserID, campaignID, ok := campaignPath(w, r)
	if !ok {
		return
	}

	var upd models.CampaignUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	c, err := s.PG.GetCampaign(r.Context(), advertiserID, campaignID)
	if err != nil {
		catalogError(w, logger, err)
		return
	}
	upd.Apply(c)
	if err := c.Validate(); err != nil {
		catalogError(w, logger, err)
		return
	}

	if err := s.PG.UpdateCampaign(r.Context(), c); err != nil {
		catalogError(w, logger, err)
		return
	}

	// Prices may have changed; cached stats computed with the old
	// prices are stale.
	s.bumpStatsVersion(r.Context(), campaignID)
	s.notifyUpdate("campaign", "update", campaignID)
	writeJSON(w, http.StatusOK, c)
}

// DeleteCampaign handles DELETE /advertisers/{advertiserId}/campaigns/{campaignId}.
// The campaign is tombstoned, not erased: its event history keeps
// counting toward advertiser-level statistics.
func (s *Server) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)

	advertiserID, campaignID, ok := campaignPath(w, r)
	if !ok {
		return
	}
	if err := s.PG.DeleteCampaign(r.Context(), advertiserID, campaignID); err != nil {
		catalogError(w, logger, err)
		return
	}

	s.bumpStatsVersion(r.Context(), campaignID)
	s.notifyUpdate("campaign", "delete", campaignID)
	w.WriteHeader(http.StatusNoContent)
}

// campaignPath parses the advertiser and campaign IDs from the path,
// writing a 400 itself when either is malformed.
func campaignPath(w http.ResponseWriter, r *http.Request) (advertiserID, campaignID uuid.UUID, ok bool) {
	advertiserID, err := pathUUID(r, "advertiserId")
	if err != nil {
		http.Error(w, "advertiser id must be a UUID", http.StatusBadRequest)
		return uuid.Nil, uuid.Nil, false
	}
	campaignID, err = pathUUID(r, "campaignId")
	if err != nil {
		http.Error(w, "campaign id must be a UUID", http.StatusBadRequest)
		return uuid.Nil, uuid.Nil, false
	}
	return advertiserID, campaignID, true
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
