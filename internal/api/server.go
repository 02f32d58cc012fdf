// Package api provides the versioned REST API for load telemetry.
// All endpoints are under /history/api/v1/.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"prediction-history/internal/config"
	"prediction-history/internal/storage"
)

const (
	// APIPrefix is the base path for all API endpoints.
	APIPrefix = "/history/api/v1"

	// Cache duration for overview responses (prevents refresh storms).
	overviewCacheDuration = 2 * time.Second
)

// Server handles API requests for telemetry data.
type Server struct {
	store  storage.Store
	cfg    config.Config
	logger *slog.Logger

	overviewCache   map[string]*cachedOverview
	overviewCacheMu sync.RWMutex
	overviewGroup   singleflight.Group
}

type cachedOverview struct {
	data      *OverviewResponse
	expiresAt time.Time
}

// NewServer creates a new API server. store may be nil when storage is off.
func NewServer(store storage.Store, cfg config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:         store,
		cfg:           cfg,
		logger:        logger,
		overviewCache: make(map[string]*cachedOverview),
	}
}

// ServeHTTP handles API requests.
// It expects paths starting with /history/api/v1/.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, APIPrefix)
	if path == r.URL.Path {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	switch {
	case path == "/overview":
		s.handleOverview(w, r)
	case path == "/loads":
		s.handleListLoads(w, r)
	case strings.HasPrefix(path, "/loads/"):
		s.handleGetLoad(w, r, strings.TrimPrefix(path, "/loads/"))
	case path == "/config":
		s.handleConfig(w, r)
	default:
		s.writeError(w, http.StatusNotFound, "not found")
	}
}

// Handles reports whether path belongs to the API.
func (s *Server) Handles(path string) bool {
	return path == APIPrefix || strings.HasPrefix(path, APIPrefix+"/")
}

func (s *Server) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func parseWindow(r *http.Request) time.Duration {
	w := r.URL.Query().Get("window")
	switch w {
	case "1h":
		return time.Hour
	case "7d":
		return 7 * 24 * time.Hour
	case "24h", "":
		return 24 * time.Hour
	default:
		if d, err := time.ParseDuration(w); err == nil && d > 0 {
			return d
		}
		return 24 * time.Hour
	}
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}
