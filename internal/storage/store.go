// Package storage persists telemetry about history loads.
// It stores metadata only - never prediction record content.
package storage

import (
	"time"
)

// Status represents the final status of a load attempt.
type Status string

const (
	StatusInFlight Status = "in_flight"
	StatusSuccess  Status = "success"
	StatusError    Status = "error"
	StatusSkipped  Status = "skipped"
	StatusCanceled Status = "canceled"
)

// Reason provides more detail about a non-success status.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonNoToken      Reason = "no_token"
	ReasonUnauthorized Reason = "unauthorized"
	ReasonHTTPError    Reason = "http_error"
	ReasonNetworkError Reason = "network_error"
	ReasonDecodeError  Reason = "decode_error"
	ReasonDiscarded    Reason = "discarded"
)

// Load is the telemetry of one history load. ViewID and Subject are kept for
// operators with access to the store and never leave it as JSON.
type Load struct {
	ID          string `json:"id"`
	ViewID      string `json:"-"`
	TSStart     int64  `json:"ts_start"` // unix ms
	TSEnd       *int64 `json:"ts_end"`   // nullable until complete
	Status      Status `json:"status"`
	Reason      Reason `json:"reason,omitempty"`
	Subject     string `json:"-"`
	HTTPStatus  int    `json:"http_status"`
	RecordCount int    `json:"record_count"`
	DurationMs  int    `json:"duration_ms"`
	Error       string `json:"error,omitempty"`
}

// LoadUpdate contains fields that can be updated after insert.
type LoadUpdate struct {
	TSEnd       *int64
	Status      *Status
	Reason      *Reason
	HTTPStatus  *int
	RecordCount *int
	DurationMs  *int
	Error       *string
}

// ListOptions filters for listing loads.
type ListOptions struct {
	Limit  int
	Offset int
	Status *Status
	Reason *Reason
	Window time.Duration // only loads within this window
}

// Overview contains summary statistics for a time window.
type Overview struct {
	TotalLoads    int     `json:"total_loads"`
	SuccessCount  int     `json:"success_count"`
	ErrorCount    int     `json:"error_count"`
	SkippedCount  int     `json:"skipped_count"`
	Unauthorized  int     `json:"unauthorized"`
	SuccessRate   float64 `json:"success_rate"`
	AvgDurationMs int     `json:"avg_duration_ms"`
	P95DurationMs int     `json:"p95_duration_ms"`
	TotalRecords  int     `json:"total_records"`
}

// Store is the interface for load telemetry storage.
type Store interface {
	// Insert creates a new load record (at load start).
	Insert(l *Load) error

	// Update modifies an existing load (at completion).
	Update(id string, upd LoadUpdate) error

	// GetByID retrieves a single load by ID; nil if absent.
	GetByID(id string) (*Load, error)

	// List retrieves loads newest first with filtering and pagination.
	List(opts ListOptions) ([]Load, error)

	// Overview returns aggregate statistics for a time window.
	Overview(window time.Duration) (*Overview, error)

	// Close releases resources.
	Close() error
}

// p95 returns the 95th percentile of durations sorted descending.
func p95(desc []int) int {
	if len(desc) == 0 {
		return 0
	}
	idx := int(float64(len(desc)) * 0.05)
	if idx >= len(desc) {
		idx = len(desc) - 1
	}
	return desc[idx]
}
