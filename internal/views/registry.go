// Package views keeps the mounted history views of live pages.
package views

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"prediction-history/internal/history"
)

// DefaultMaxPerOwner bounds how many views a single owner keeps mounted.
const DefaultMaxPerOwner = 4

// Registry holds mounted views keyed by ID and unmounts idle ones.
//
// Every view is bound to the owner that mounted it; lookups from any other
// owner behave as if the view did not exist.
type Registry struct {
	fetcher history.Fetcher
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time

	// MaxPerOwner caps the views one owner may hold. Mounting past the cap
	// unmounts that owner's oldest view. Zero or less disables the cap.
	MaxPerOwner int

	// OnChange, if set, receives the active view count after every change.
	OnChange func(active int)

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	view    *history.View
	owner   string
	mounted time.Time
	expires time.Time
}

// NewRegistry creates a registry whose views fetch through fetcher and
// expire after ttl without activity.
func NewRegistry(fetcher history.Fetcher, ttl time.Duration, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		fetcher:     fetcher,
		ttl:         ttl,
		logger:      logger,
		now:         time.Now,
		MaxPerOwner: DefaultMaxPerOwner,
		entries:     make(map[string]*entry),
	}
}

// Mount creates a new view in the loading state owned by owner.
func (r *Registry) Mount(owner string) *history.View {
	now := r.now()
	v := history.NewView(uuid.NewString(), r.fetcher, r.logger)

	r.mu.Lock()
	r.sweepLocked(now)
	evicted := r.evictLocked(owner)
	r.entries[v.ID] = &entry{view: v, owner: owner, mounted: now, expires: now.Add(r.ttl)}
	n := len(r.entries)
	r.mu.Unlock()

	if evicted > 0 {
		r.logger.Debug("evicted views over owner cap", "count", evicted)
	}
	r.notify(n)
	return v
}

// Get returns a view mounted by owner and extends its idle deadline.
func (r *Registry) Get(id, owner string) (*history.View, bool) {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()

	ent, ok := r.entries[id]
	if !ok || ent.owner != owner {
		return nil, false
	}
	if !now.Before(ent.expires) {
		return nil, false
	}
	ent.expires = now.Add(r.ttl)
	return ent.view, true
}

// Unmount tears down a view mounted by owner. Unknown IDs and views of
// other owners are ignored.
func (r *Registry) Unmount(id, owner string) bool {
	r.mu.Lock()
	ent, ok := r.entries[id]
	if ok && ent.owner != owner {
		ok = false
	}
	if ok {
		delete(r.entries, id)
	}
	n := len(r.entries)
	r.mu.Unlock()

	if !ok {
		return false
	}
	ent.view.Unmount()
	r.notify(n)
	return true
}

// Sweep unmounts every view idle past its deadline and returns how many it removed.
func (r *Registry) Sweep() int {
	now := r.now()
	r.mu.Lock()
	removed := r.sweepLocked(now)
	n := len(r.entries)
	r.mu.Unlock()

	if removed > 0 {
		r.notify(n)
	}
	return removed
}

// Len returns the number of mounted views.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) sweepLocked(now time.Time) int {
	removed := 0
	for id, ent := range r.entries {
		if !now.Before(ent.expires) {
			ent.view.Unmount()
			delete(r.entries, id)
			removed++
		}
	}
	if removed > 0 {
		r.logger.Debug("unmounted idle views", "count", removed)
	}
	return removed
}

// evictLocked makes room for one more view of owner.
func (r *Registry) evictLocked(owner string) int {
	if r.MaxPerOwner <= 0 {
		return 0
	}
	evicted := 0
	for {
		count := 0
		var oldestID string
		var oldest *entry
		for id, ent := range r.entries {
			if ent.owner != owner {
				continue
			}
			count++
			if oldest == nil || ent.mounted.Before(oldest.mounted) {
				oldestID, oldest = id, ent
			}
		}
		if count < r.MaxPerOwner {
			return evicted
		}
		oldest.view.Unmount()
		delete(r.entries, oldestID)
		evicted++
	}
}

func (r *Registry) notify(active int) {
	if r.OnChange != nil {
		r.OnChange(active)
	}
}
