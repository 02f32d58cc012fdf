// Package server serves the history page, its actions, and the operational endpoints.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"prediction-history/internal/api"
	"prediction-history/internal/auth"
	"prediction-history/internal/config"
	"prediction-history/internal/events"
	"prediction-history/internal/health"
	"prediction-history/internal/history"
	"prediction-history/internal/metrics"
	"prediction-history/internal/storage"
	"prediction-history/internal/views"
	"prediction-history/web"
)

const historyPath = "/history"

// Handler is the root http.Handler of the service.
type Handler struct {
	cfg           config.Config
	logger        *slog.Logger
	views         *views.Registry
	store         storage.Store
	apiServer     *api.Server
	eventBus      *events.Bus
	metrics       *metrics.Metrics
	healthChecker *health.Checker
	pages         *renderer
	static        http.Handler
}

// NewHandler constructs the handler. Every collaborator after registry may be nil.
func NewHandler(
	cfg config.Config,
	registry *views.Registry,
	store storage.Store,
	apiServer *api.Server,
	eventBus *events.Bus,
	m *metrics.Metrics,
	healthChecker *health.Checker,
	logger *slog.Logger,
) (*Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}

	templates, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	pages, err := newRenderer(templates)
	if err != nil {
		return nil, err
	}

	var static http.Handler
	if assets, err := web.Assets(); err != nil {
		logger.Warn("failed to load static assets", "err", err)
	} else {
		static = http.StripPrefix("/static", http.FileServerFS(assets))
	}

	return &Handler{
		cfg:           cfg,
		logger:        logger,
		views:         registry,
		store:         store,
		apiServer:     apiServer,
		eventBus:      eventBus,
		metrics:       m,
		healthChecker: healthChecker,
		pages:         pages,
		static:        static,
	}, nil
}

// ServeHTTP routes requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	// Telemetry API
	if h.apiServer != nil && h.apiServer.Handles(path) {
		h.apiServer.ServeHTTP(w, r)
		return
	}

	switch {
	case path == "/metrics" && r.Method == http.MethodGet:
		h.handleMetrics(w, r)
	case path == "/events" && r.Method == http.MethodGet:
		h.handleSSEEvents(w, r)
	case path == "/healthz":
		h.handleHealthz(w, r)
	case path == "/healthz/api":
		h.handleHealthzAPI(w, r)
	case strings.HasPrefix(path, "/static/") && r.Method == http.MethodGet:
		h.handleStatic(w, r)
	case path == "/" && r.Method == http.MethodGet:
		http.Redirect(w, r, historyPath, http.StatusSeeOther)
	case path == historyPath || path == historyPath+"/":
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.handleMount(w, r)
	case strings.HasPrefix(path, historyPath+"/"):
		h.handleView(w, r, strings.TrimPrefix(path, historyPath+"/"))
	default:
		http.NotFound(w, r)
	}
}

// handleMount mounts a new view, loads it once and renders it.
// GET /history
func (h *Handler) handleMount(w http.ResponseWriter, r *http.Request) {
	tokens := auth.RequestToken{Request: r, Cookie: h.cfg.TokenCookie}
	expiry := &auth.LoginRedirect{W: w, Cookie: h.cfg.TokenCookie, LoginURL: h.cfg.LoginURL}
	token := tokens.Token()

	v := h.views.Mount(auth.Fingerprint(token))
	h.eventBus.Publish(events.Event{Type: events.TypeMounted, ViewID: v.ID})

	subject := auth.Subject(token)
	loadID := h.beginLoad(v.ID, subject)
	res := v.Load(r.Context(), tokens, expiry)
	h.finishLoad(loadID, v.ID, subject, res)

	if expiry.Redirect(w, r) {
		h.views.Unmount(v.ID, auth.Fingerprint(token))
		return
	}
	h.renderView(w, v)
}

// handleView dispatches /history/{id}[/{action}].
func (h *Handler) handleView(w http.ResponseWriter, r *http.Request, rest string) {
	id, action, _ := strings.Cut(rest, "/")
	if _, err := uuid.Parse(id); err != nil {
		http.NotFound(w, r)
		return
	}
	// Views answer only to the token that mounted them.
	owner := h.owner(r)

	if action == "unmount" {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if h.views.Unmount(id, owner) {
			h.logger.Debug("view unmounted", "view", id)
			h.eventBus.Publish(events.Event{Type: events.TypeUnmounted, ViewID: id})
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	v, ok := h.views.Get(id, owner)
	if !ok {
		// Gone or not ours: start over with a fresh mount.
		http.Redirect(w, r, historyPath, http.StatusSeeOther)
		return
	}

	switch action {
	case "":
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.renderView(w, v)
	case "select":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.handleSelect(w, r, v)
	case "close":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		v.CloseDetail()
		http.Redirect(w, r, viewPath(v.ID), http.StatusSeeOther)
	default:
		http.NotFound(w, r)
	}
}

// handleSelect opens the detail modal for the posted row index.
// POST /history/{id}/select
func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request, v *history.View) {
	index, err := strconv.Atoi(r.FormValue("index"))
	if err != nil {
		http.Error(w, "invalid index", http.StatusBadRequest)
		return
	}
	if err := v.Select(index); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.Redirect(w, r, viewPath(v.ID), http.StatusSeeOther)
}

func (h *Handler) owner(r *http.Request) string {
	return auth.Fingerprint(auth.RequestToken{Request: r, Cookie: h.cfg.TokenCookie}.Token())
}

func (h *Handler) renderView(w http.ResponseWriter, v *history.View) {
	if err := h.pages.render(w, v.Page()); err != nil {
		h.logger.Error("failed to render history page", "view", v.ID, "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// beginLoad records the start of a load attempt and returns its telemetry ID.
func (h *Handler) beginLoad(viewID, subject string) string {
	id := uuid.NewString()
	if h.store == nil {
		return id
	}
	err := h.store.Insert(&storage.Load{
		ID:      id,
		ViewID:  viewID,
		TSStart: time.Now().UnixMilli(),
		Status:  storage.StatusInFlight,
		Subject: subject,
	})
	if err != nil {
		h.logger.Warn("failed to record load start", "err", err, "view", viewID)
	}
	return id
}

// finishLoad completes the telemetry of a load attempt.
func (h *Handler) finishLoad(loadID, viewID, subject string, res history.LoadResult) {
	requested := res.Outcome != history.OutcomeNoToken && res.Outcome != history.OutcomeAlreadyLoaded
	h.metrics.RecordLoad(string(res.Outcome), res.Duration, requested)
	if res.Outcome == history.OutcomeUnauthorized {
		h.metrics.RecordSessionExpired()
	}

	if res.Outcome == history.OutcomeSuccess {
		h.logger.Info("history loaded",
			"view", viewID,
			"subject", subject,
			"records", res.Records,
			"duration_ms", res.Duration.Milliseconds(),
		)
	}

	h.eventBus.Publish(loadEvent(loadID, viewID, res))

	if h.store == nil {
		return
	}

	now := time.Now().UnixMilli()
	status, reason := loadStatus(res.Outcome)
	durationMs := int(res.Duration.Milliseconds())
	upd := storage.LoadUpdate{
		TSEnd:       &now,
		Status:      &status,
		Reason:      &reason,
		HTTPStatus:  &res.HTTPStatus,
		RecordCount: &res.Records,
		DurationMs:  &durationMs,
	}
	if res.Err != nil {
		msg := res.Err.Error()
		upd.Error = &msg
	}
	if err := h.store.Update(loadID, upd); err != nil {
		h.logger.Warn("failed to record load result", "err", err, "view", viewID)
	}
}

// loadStatus maps a load outcome to its stored status and reason.
func loadStatus(o history.Outcome) (storage.Status, storage.Reason) {
	switch o {
	case history.OutcomeSuccess:
		return storage.StatusSuccess, storage.ReasonNone
	case history.OutcomeNoToken:
		return storage.StatusSkipped, storage.ReasonNoToken
	case history.OutcomeAlreadyLoaded:
		return storage.StatusSkipped, storage.ReasonNone
	case history.OutcomeDiscarded:
		return storage.StatusCanceled, storage.ReasonDiscarded
	case history.OutcomeUnauthorized:
		return storage.StatusError, storage.ReasonUnauthorized
	case history.OutcomeHTTPError:
		return storage.StatusError, storage.ReasonHTTPError
	case history.OutcomeDecodeError:
		return storage.StatusError, storage.ReasonDecodeError
	default:
		return storage.StatusError, storage.ReasonNetworkError
	}
}

func loadEvent(loadID, viewID string, res history.LoadResult) events.Event {
	ev := events.Event{
		Type:       events.TypeLoadFailed,
		ViewID:     viewID,
		LoadID:     loadID,
		Outcome:    string(res.Outcome),
		HTTPStatus: res.HTTPStatus,
		Records:    res.Records,
		DurationMs: res.Duration.Milliseconds(),
	}
	switch res.Outcome {
	case history.OutcomeSuccess:
		ev.Type = events.TypeLoaded
	case history.OutcomeUnauthorized:
		ev.Type = events.TypeSessionExpired
	}
	return ev
}

func viewPath(id string) string {
	return historyPath + "/" + id
}

func (h *Handler) handleStatic(w http.ResponseWriter, r *http.Request) {
	if h.static == nil {
		http.Error(w, "static assets not available", http.StatusServiceUnavailable)
		return
	}
	h.static.ServeHTTP(w, r)
}

// handleSSEEvents streams view lifecycle events.
// GET /events
func (h *Handler) handleSSEEvents(w http.ResponseWriter, r *http.Request) {
	if h.eventBus == nil {
		http.Error(w, "event bus not available", http.StatusServiceUnavailable)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := h.eventBus.Subscribe()
	defer h.eventBus.Unsubscribe(ch)

	_, _ = w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			data, err := events.FormatSSE(ev)
			if err != nil {
				continue
			}
			if _, err := w.Write([]byte(data)); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if h.metrics == nil {
		http.Error(w, "metrics not enabled", http.StatusServiceUnavailable)
		return
	}
	promhttp.Handler().ServeHTTP(w, r)
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if h.healthChecker != nil && !h.healthChecker.Healthy() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("api unhealthy"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) handleHealthzAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if h.healthChecker == nil {
		json.NewEncoder(w).Encode(map[string]any{
			"healthy":    true,
			"last_check": time.Now().Format(time.RFC3339),
		})
		return
	}

	st := h.healthChecker.Status()
	if st.Healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	response := map[string]any{
		"healthy": st.Healthy,
		"api_url": h.cfg.APIURL,
	}
	if !st.LastCheck.IsZero() {
		response["last_check"] = st.LastCheck.Format(time.RFC3339)
	}
	if st.LastError != "" {
		response["last_error"] = st.LastError
	}
	json.NewEncoder(w).Encode(response)
}
