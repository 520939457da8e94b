package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/patrickwarner/promoserve/internal/middleware"
)

type advanceTimeRequest struct {
	CurrentDate int `json:"current_date"`
}

// AdvanceTimeHandler handles POST /time/advance: it sets the platform's
// virtual day. The clock may move backward; validity windows and the
// recorder re-evaluate against whatever day is current.
func (s *Server) AdvanceTimeHandler(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)

	var req advanceTimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.CurrentDate < 0 {
		http.Error(w, "current_date must be non-negative", http.StatusUnprocessableEntity)
		return
	}

	if err := s.PG.SetCurrentDay(r.Context(), req.CurrentDate); err != nil {
		logger.Error("set current day", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	logger.Info("virtual day set", zap.Int("current_date", req.CurrentDate))
	s.notifyUpdate("time", "advance", req.CurrentDate)
	writeJSON(w, http.StatusOK, advanceTimeRequest{CurrentDate: req.CurrentDate})
}
