package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/couchcryptid/pulse-feed-service/internal/adapter/feeds"
	"github.com/couchcryptid/pulse-feed-service/internal/aggregator"
	"github.com/couchcryptid/pulse-feed-service/internal/domain"
	"github.com/couchcryptid/pulse-feed-service/internal/reports"
)

// Report endpoint defaults.
const (
	DefaultNearRadiusKm = 10.0
	DefaultNearLimit    = 20

	maxReportBody = 1 << 20
)

func (s *Server) handleLocalUpdates(w http.ResponseWriter, r *http.Request) {
	q, err := localQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.deps.Updates.Local(r.Context(), q)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGlobalUpdates(w http.ResponseWriter, r *http.Request) {
	q, err := globalQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.deps.Updates.Global(r.Context(), q)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) writeQueryError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, aggregator.ErrInvalidQuery) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Error("update query failed", "path", r.URL.Path, "request_id", RequestIDFrom(r.Context()), "error", err)
	writeError(w, http.StatusInternalServerError, "report store unavailable")
}

// handleFeed passes one upstream collection through unmodified.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	source := r.PathValue("source")
	f, ok := s.feeds[source]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown feed: "+source)
		return
	}

	fc, err := f.Fetch(r.Context())
	if err != nil {
		status, msg := http.StatusBadGateway, source+" upstream error"
		if feeds.IsUnavailable(err) {
			status, msg = http.StatusGatewayTimeout, source+" upstream unavailable"
		}
		s.logger.Warn("feed passthrough failed", "source", source, "status", status, "error", err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": fc})
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	all, err := s.deps.Reports.All(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.NewFeatureCollection(all))
}

func (s *Server) handleNearReports(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	lat, lon, err := coordinateParams(params)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	radius, err := positiveFloatParam(params, "radius_km", DefaultNearRadiusKm)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := limitParam(params, DefaultNearLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	found, err := s.deps.Reports.FindNear(r.Context(), domain.NearQuery{Lat: lat, Lon: lon, RadiusKm: radius, Limit: limit})
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if found == nil {
		found = []domain.Feature{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"count":   len(found),
		"results": found,
	})
}

type reportRequest struct {
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
	Text     string   `json:"text"`
	PhotoURL string   `json:"photo_url"`
}

func (s *Server) handleSubmitReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxReportBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "body must be a JSON object")
		return
	}
	if req.Lat == nil || req.Lon == nil {
		writeError(w, http.StatusBadRequest, "lat and lon are required")
		return
	}

	feature, err := s.deps.Submitter.Submit(r.Context(), reports.Submission{
		Lat:      *req.Lat,
		Lon:      *req.Lon,
		Text:     req.Text,
		PhotoURL: req.PhotoURL,
	})
	if err != nil {
		if errors.Is(err, reports.ErrInvalidReport) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "feature": feature})
}

func (s *Server) handleClearReports(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Reports.Clear(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.logger.Info("reports cleared", "request_id", RequestIDFrom(r.Context()))
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("report store request failed", "path", r.URL.Path, "request_id", RequestIDFrom(r.Context()), "error", err)
	writeError(w, http.StatusInternalServerError, "report store unavailable")
}
