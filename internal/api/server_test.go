package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"prediction-history/internal/config"
	"prediction-history/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore(100)
	now := time.Now().UnixMilli()
	store.Insert(&storage.Load{ID: "a", ViewID: "v1", Subject: "ana@example.com", TSStart: now, Status: storage.StatusSuccess, RecordCount: 2})
	store.Insert(&storage.Load{ID: "b", ViewID: "v2", TSStart: now + 1, Status: storage.StatusError, Reason: storage.ReasonUnauthorized, HTTPStatus: 401})
	cfg := config.Config{APIURL: "http://api", Storage: config.StorageMemory, ViewTTL: time.Minute}
	return NewServer(store, cfg, nil), store
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHandles(t *testing.T) {
	s, _ := newTestServer(t)
	tests := map[string]bool{
		"/history/api/v1/loads": true,
		"/history/api/v1":       true,
		"/history/api/v10":      false,
		"/history/abc":          false,
		"/metrics":              false,
	}
	for path, want := range tests {
		if got := s.Handles(path); got != want {
			t.Errorf("Handles(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestListLoads(t *testing.T) {
	s, _ := newTestServer(t)

	w := get(t, s, "/history/api/v1/loads")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp LoadListResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Loads) != 2 || resp.Loads[0].ID != "b" {
		t.Errorf("loads = %+v", resp.Loads)
	}

	w = get(t, s, "/history/api/v1/loads?reason=unauthorized")
	resp = LoadListResponse{}
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Loads) != 1 || resp.Loads[0].HTTPStatus != 401 {
		t.Errorf("filtered loads = %+v", resp.Loads)
	}

	w = get(t, s, "/history/api/v1/loads?status=canceled")
	resp = LoadListResponse{}
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Loads == nil || len(resp.Loads) != 0 {
		t.Errorf("empty result should encode as [], got %+v", resp.Loads)
	}
}

func TestGetLoad(t *testing.T) {
	s, _ := newTestServer(t)

	w := get(t, s, "/history/api/v1/loads/a")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	var l storage.Load
	json.Unmarshal([]byte(body), &l)
	if l.ID != "a" || l.RecordCount != 2 {
		t.Errorf("load = %+v", l)
	}
	for _, secret := range []string{"v1", "ana@example.com", "view_id", "subject"} {
		if strings.Contains(body, secret) {
			t.Errorf("load JSON leaks %q: %s", secret, body)
		}
	}

	if w := get(t, s, "/history/api/v1/loads/missing"); w.Code != http.StatusNotFound {
		t.Errorf("missing load status = %d, want 404", w.Code)
	}
}

func TestOverview(t *testing.T) {
	s, _ := newTestServer(t)

	w := get(t, s, "/history/api/v1/overview?window=1h")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp OverviewResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Summary.TotalLoads != 2 || resp.Summary.Unauthorized != 1 {
		t.Errorf("summary = %+v", resp.Summary)
	}
	if resp.Window != "1h0m0s" {
		t.Errorf("window = %q", resp.Window)
	}
}

func TestStorageOff(t *testing.T) {
	s := NewServer(nil, config.Config{}, nil)
	for _, p := range []string{"/history/api/v1/loads", "/history/api/v1/loads/x", "/history/api/v1/overview"} {
		if w := get(t, s, p); w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s status = %d, want 503", p, w.Code)
		}
	}
	if w := get(t, s, "/history/api/v1/config"); w.Code != http.StatusOK {
		t.Errorf("config status = %d, want 200", w.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/history/api/v1/loads", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}

func TestParseHelpers(t *testing.T) {
	if parseInt("", 5) != 5 || parseInt("x", 5) != 5 || parseInt("-1", 5) != 5 || parseInt("12", 5) != 12 {
		t.Error("parseInt mismatch")
	}
	r := httptest.NewRequest(http.MethodGet, "/?window=7d", nil)
	if parseWindow(r) != 7*24*time.Hour {
		t.Error("7d window")
	}
	r = httptest.NewRequest(http.MethodGet, "/?window=90m", nil)
	if parseWindow(r) != 90*time.Minute {
		t.Error("duration window")
	}
	r = httptest.NewRequest(http.MethodGet, "/?window=bogus", nil)
	if parseWindow(r) != 24*time.Hour {
		t.Error("fallback window")
	}
}
