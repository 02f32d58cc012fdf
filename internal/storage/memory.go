package storage

import (
	"sort"
	"sync"
	"time"
)

// MemoryStore implements Store using an in-memory ring buffer.
// This is used when STORAGE=memory or as a fallback.
type MemoryStore struct {
	mu      sync.RWMutex
	loads   []Load
	byID    map[string]int // ID -> index in loads
	maxRows int
	head    int // next write position
	count   int // actual count (may be less than len(loads) initially)
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore(maxRows int) *MemoryStore {
	return &MemoryStore{
		loads:   make([]Load, maxRows),
		byID:    make(map[string]int),
		maxRows: maxRows,
	}
}

// Insert adds a new load to the store.
func (s *MemoryStore) Insert(l *Load) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// If we're overwriting, remove old ID from map
	if s.count == s.maxRows {
		delete(s.byID, s.loads[s.head].ID)
	}

	s.loads[s.head] = *l
	s.byID[l.ID] = s.head

	s.head = (s.head + 1) % s.maxRows
	if s.count < s.maxRows {
		s.count++
	}
	return nil
}

// Update modifies an existing load.
func (s *MemoryStore) Update(id string, upd LoadUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byID[id]
	if !ok {
		return nil // not found is not an error
	}
	l := &s.loads[idx]

	if upd.TSEnd != nil {
		l.TSEnd = upd.TSEnd
	}
	if upd.Status != nil {
		l.Status = *upd.Status
	}
	if upd.Reason != nil {
		l.Reason = *upd.Reason
	}
	if upd.HTTPStatus != nil {
		l.HTTPStatus = *upd.HTTPStatus
	}
	if upd.RecordCount != nil {
		l.RecordCount = *upd.RecordCount
	}
	if upd.DurationMs != nil {
		l.DurationMs = *upd.DurationMs
	}
	if upd.Error != nil {
		l.Error = *upd.Error
	}
	return nil
}

// GetByID retrieves a single load.
func (s *MemoryStore) GetByID(id string) (*Load, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	l := s.loads[idx]
	return &l, nil
}

// List returns loads matching the filter options.
func (s *MemoryStore) List(opts ListOptions) ([]Load, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := int64(0)
	if opts.Window > 0 {
		cutoff = time.Now().UnixMilli() - opts.Window.Milliseconds()
	}

	var filtered []Load
	for _, l := range s.collectOrdered() {
		if opts.Status != nil && l.Status != *opts.Status {
			continue
		}
		if opts.Reason != nil && l.Reason != *opts.Reason {
			continue
		}
		if cutoff > 0 && l.TSStart < cutoff {
			continue
		}
		filtered = append(filtered, l)
	}

	// Apply pagination
	if opts.Offset >= len(filtered) {
		return nil, nil
	}
	filtered = filtered[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(filtered) {
		filtered = filtered[:opts.Limit]
	}
	return filtered, nil
}

// Overview returns aggregate statistics.
func (s *MemoryStore) Overview(window time.Duration) (*Overview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().UnixMilli() - window.Milliseconds()

	var o Overview
	var durations []int
	var totalDur int

	for _, l := range s.collectOrdered() {
		if l.TSStart < cutoff {
			continue
		}
		o.TotalLoads++
		o.TotalRecords += l.RecordCount
		switch l.Status {
		case StatusSuccess:
			o.SuccessCount++
		case StatusError, StatusCanceled:
			o.ErrorCount++
		case StatusSkipped:
			o.SkippedCount++
		}
		if l.Reason == ReasonUnauthorized {
			o.Unauthorized++
		}
		if l.Status != StatusInFlight && l.Status != StatusSkipped {
			durations = append(durations, l.DurationMs)
			totalDur += l.DurationMs
		}
	}

	if o.TotalLoads > 0 {
		o.SuccessRate = float64(o.SuccessCount) / float64(o.TotalLoads)
	}
	if len(durations) > 0 {
		o.AvgDurationMs = totalDur / len(durations)
		sort.Sort(sort.Reverse(sort.IntSlice(durations)))
		o.P95DurationMs = p95(durations)
	}
	return &o, nil
}

// Close is a no-op for memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// collectOrdered returns all loads newest first.
func (s *MemoryStore) collectOrdered() []Load {
	if s.count == 0 {
		return nil
	}

	result := make([]Load, 0, s.count)
	for i := 0; i < s.count; i++ {
		// Start from head-1 (most recent) and go backward
		idx := (s.head - 1 - i + s.maxRows) % s.maxRows
		result = append(result, s.loads[idx])
	}
	return result
}
