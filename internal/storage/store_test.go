package storage

import (
	"fmt"
	"testing"
	"time"
)

func TestP95(t *testing.T) {
	tests := []struct {
		name string
		desc []int
		want int
	}{
		{"empty", nil, 0},
		{"single", []int{7}, 7},
		{"twenty", []int{200, 190, 180, 170, 160, 150, 140, 130, 120, 110, 100, 90, 80, 70, 60, 50, 40, 30, 20, 10}, 190},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p95(tt.desc); got != tt.want {
				t.Errorf("p95() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMemoryStore_InsertUpdateGet(t *testing.T) {
	s := NewMemoryStore(100)

	if err := s.Insert(&Load{ID: "l1", ViewID: "v1", TSStart: time.Now().UnixMilli(), Status: StatusInFlight}); err != nil {
		t.Fatal(err)
	}

	status := StatusSuccess
	count := 3
	dur := 42
	if err := s.Update("l1", LoadUpdate{Status: &status, RecordCount: &count, DurationMs: &dur}); err != nil {
		t.Fatal(err)
	}
	// Unknown IDs are ignored.
	if err := s.Update("missing", LoadUpdate{Status: &status}); err != nil {
		t.Errorf("Update(missing) error = %v", err)
	}

	got, err := s.GetByID("l1")
	if err != nil || got == nil {
		t.Fatalf("GetByID = %v, %v", got, err)
	}
	if got.Status != StatusSuccess || got.RecordCount != 3 || got.DurationMs != 42 {
		t.Errorf("got %+v", got)
	}

	if got, _ := s.GetByID("missing"); got != nil {
		t.Errorf("GetByID(missing) = %+v, want nil", got)
	}
}

func TestMemoryStore_RingBufferEvictsOldest(t *testing.T) {
	s := NewMemoryStore(3)
	base := time.Now().UnixMilli()
	for i := 0; i < 5; i++ {
		s.Insert(&Load{ID: fmt.Sprintf("l%d", i), TSStart: base + int64(i), Status: StatusSuccess})
	}

	list, _ := s.List(ListOptions{})
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	if list[0].ID != "l4" || list[2].ID != "l2" {
		t.Errorf("order = %s..%s, want l4..l2", list[0].ID, list[2].ID)
	}
	if got, _ := s.GetByID("l0"); got != nil {
		t.Error("evicted load should be gone")
	}
}

func TestMemoryStore_ListFilters(t *testing.T) {
	s := NewMemoryStore(100)
	now := time.Now()
	s.Insert(&Load{ID: "old", TSStart: now.Add(-2 * time.Hour).UnixMilli(), Status: StatusSuccess})
	s.Insert(&Load{ID: "ok", TSStart: now.UnixMilli(), Status: StatusSuccess})
	s.Insert(&Load{ID: "401", TSStart: now.UnixMilli(), Status: StatusError, Reason: ReasonUnauthorized})

	errStatus := StatusError
	list, _ := s.List(ListOptions{Status: &errStatus})
	if len(list) != 1 || list[0].ID != "401" {
		t.Errorf("status filter = %+v", list)
	}

	list, _ = s.List(ListOptions{Window: time.Hour})
	if len(list) != 2 {
		t.Errorf("window filter len = %d, want 2", len(list))
	}

	list, _ = s.List(ListOptions{Limit: 1, Offset: 1})
	if len(list) != 1 || list[0].ID != "ok" {
		t.Errorf("pagination = %+v", list)
	}

	list, _ = s.List(ListOptions{Offset: 10})
	if list != nil {
		t.Errorf("offset past end = %+v, want nil", list)
	}
}

func TestMemoryStore_Overview(t *testing.T) {
	s := NewMemoryStore(100)
	now := time.Now().UnixMilli()
	s.Insert(&Load{ID: "a", TSStart: now, Status: StatusSuccess, DurationMs: 100, RecordCount: 4})
	s.Insert(&Load{ID: "b", TSStart: now, Status: StatusError, Reason: ReasonUnauthorized, DurationMs: 300})
	s.Insert(&Load{ID: "c", TSStart: now, Status: StatusSkipped, Reason: ReasonNoToken})

	o, err := s.Overview(time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if o.TotalLoads != 3 || o.SuccessCount != 1 || o.ErrorCount != 1 || o.SkippedCount != 1 {
		t.Errorf("counts = %+v", o)
	}
	if o.Unauthorized != 1 {
		t.Errorf("Unauthorized = %d, want 1", o.Unauthorized)
	}
	if o.AvgDurationMs != 200 {
		t.Errorf("AvgDurationMs = %d, want 200", o.AvgDurationMs)
	}
	if o.P95DurationMs != 300 {
		t.Errorf("P95DurationMs = %d, want 300", o.P95DurationMs)
	}
	if o.TotalRecords != 4 {
		t.Errorf("TotalRecords = %d, want 4", o.TotalRecords)
	}
}
