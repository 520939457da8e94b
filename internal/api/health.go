package api

import (
	"net/http"
	"strconv"
	"time"
)

type healthStatus struct {
	Status     string `json:"status"`
	Postgres   string `json:"postgres"`
	Redis      string `json:"redis"`
	ClickHouse string `json:"clickhouse"`
	GeoIP      string `json:"geoip"`
}

// HealthHandler reports dependency status. Postgres is the system of
// record, so the endpoint goes unhealthy with it; Redis, ClickHouse
// and GeoIP only degrade features and are reported informationally.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "health"
	const method = "GET"

	h := healthStatus{
		Status:     "ok",
		Postgres:   "ok",
		Redis:      "disabled",
		ClickHouse: "disabled",
		GeoIP:      "disabled",
	}

	if s.PG == nil || s.PG.DB.PingContext(r.Context()) != nil {
		h.Status = "unavailable"
		h.Postgres = "unavailable"
	}
	if s.Store != nil && s.Store.Client != nil {
		h.Redis = "ok"
		if err := s.Store.Client.Ping(r.Context()).Err(); err != nil {
			h.Redis = "unavailable"
		}
	}
	if s.Analytics != nil {
		h.ClickHouse = "ok"
	}
	if s.GeoIP != nil {
		h.GeoIP = "ok"
	}

	code := http.StatusOK
	if h.Status != "ok" {
		code = http.StatusServiceUnavailable
	}

	s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(code))
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
	writeJSON(w, code, h)
}
