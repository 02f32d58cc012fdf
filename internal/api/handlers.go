package api

import (
	"net/http"
	"time"

	"prediction-history/internal/storage"
)

// OverviewResponse contains summary statistics for a window.
type OverviewResponse struct {
	Window  string           `json:"window"`
	Summary storage.Overview `json:"summary"`
}

// handleOverview returns summary statistics.
// GET /history/api/v1/overview?window=1h|24h|7d
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusServiceUnavailable, "storage not available")
		return
	}

	window := parseWindow(r)
	cacheKey := window.String()

	s.overviewCacheMu.RLock()
	if cached, ok := s.overviewCache[cacheKey]; ok && time.Now().Before(cached.expiresAt) {
		s.overviewCacheMu.RUnlock()
		s.writeJSON(w, cached.data)
		return
	}
	s.overviewCacheMu.RUnlock()

	// Concurrent misses for the same window share one query.
	v, err, _ := s.overviewGroup.Do(cacheKey, func() (any, error) {
		return s.store.Overview(window)
	})
	if err != nil {
		s.logger.Error("failed to get overview", "err", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get overview")
		return
	}

	resp := &OverviewResponse{Window: window.String(), Summary: *v.(*storage.Overview)}

	s.overviewCacheMu.Lock()
	s.overviewCache[cacheKey] = &cachedOverview{
		data:      resp,
		expiresAt: time.Now().Add(overviewCacheDuration),
	}
	s.overviewCacheMu.Unlock()

	s.writeJSON(w, resp)
}

// LoadListResponse contains a page of loads.
type LoadListResponse struct {
	Loads  []storage.Load `json:"loads"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// handleListLoads returns a paginated list of loads.
// GET /history/api/v1/loads?limit=50&offset=0&status=&reason=&window=24h
func (s *Server) handleListLoads(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusServiceUnavailable, "storage not available")
		return
	}

	q := r.URL.Query()
	limit := parseInt(q.Get("limit"), 50)
	if limit > 500 {
		limit = 500
	}
	offset := parseInt(q.Get("offset"), 0)

	opts := storage.ListOptions{
		Limit:  limit,
		Offset: offset,
		Window: parseWindow(r),
	}
	if v := q.Get("status"); v != "" {
		st := storage.Status(v)
		opts.Status = &st
	}
	if v := q.Get("reason"); v != "" {
		rs := storage.Reason(v)
		opts.Reason = &rs
	}

	loads, err := s.store.List(opts)
	if err != nil {
		s.logger.Error("failed to list loads", "err", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list loads")
		return
	}
	if loads == nil {
		loads = []storage.Load{}
	}

	s.writeJSON(w, LoadListResponse{Loads: loads, Limit: limit, Offset: offset})
}

// handleGetLoad returns a single load.
// GET /history/api/v1/loads/{id}
func (s *Server) handleGetLoad(w http.ResponseWriter, r *http.Request, id string) {
	if s.store == nil {
		s.writeError(w, http.StatusServiceUnavailable, "storage not available")
		return
	}

	l, err := s.store.GetByID(id)
	if err != nil {
		s.logger.Error("failed to get load", "err", err, "id", id)
		s.writeError(w, http.StatusInternalServerError, "failed to get load")
		return
	}
	if l == nil {
		s.writeError(w, http.StatusNotFound, "load not found")
		return
	}
	s.writeJSON(w, l)
}

// ConfigResponse is the non-secret runtime configuration.
type ConfigResponse struct {
	APIURL         string `json:"api_url"`
	LoginURL       string `json:"login_url"`
	TokenCookie    string `json:"token_cookie"`
	RequestTimeout string `json:"request_timeout"`
	ViewTTL        string `json:"view_ttl"`
	Storage        string `json:"storage"`
	StorageMaxRows int    `json:"storage_max_rows"`
	MetricsEnabled bool   `json:"metrics_enabled"`
}

// handleConfig returns the runtime configuration.
// GET /history/api/v1/config
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, ConfigResponse{
		APIURL:         s.cfg.APIURL,
		LoginURL:       s.cfg.LoginURL,
		TokenCookie:    s.cfg.TokenCookie,
		RequestTimeout: s.cfg.RequestTimeout.String(),
		ViewTTL:        s.cfg.ViewTTL.String(),
		Storage:        string(s.cfg.Storage),
		StorageMaxRows: s.cfg.StorageMaxRows,
		MetricsEnabled: s.cfg.MetricsEnabled,
	})
}
