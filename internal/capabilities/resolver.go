package capabilities

import (
	"context"
	"sync"
	"time"

	"ats-backend/internal/shared/telemetry"
)

const matrixTTL = 5 * time.Minute

// Resolver resolves a role into a capability Set. The matrix is loaded once
// and cached, so views perform typed checks instead of repeated lookups.
type Resolver struct {
	store Store

	mu       sync.RWMutex
	matrix   map[string]Set
	loadedAt time.Time
	now      func() time.Time
}

// NewResolver constructs a Resolver backed by the given store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store, now: time.Now}
}

// Resolve returns the capability set for a role. Unknown roles resolve to an
// empty set. A stale or failed matrix load falls back to the default matrix
// so permission checks never hard-fail on storage errors.
func (r *Resolver) Resolve(ctx context.Context, role string) Set {
	matrix := r.cached()
	if matrix == nil {
		loaded, err := r.load(ctx)
		if err != nil {
			telemetry.Warn("capabilities.matrix_load_failed", map[string]any{"error": err.Error()})
			loaded = buildSets(DefaultMatrix())
		}
		matrix = loaded
	}
	set, ok := matrix[role]
	if !ok {
		return Set{}
	}
	return set
}

func (r *Resolver) cached() map[string]Set {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.matrix == nil || r.now().Sub(r.loadedAt) > matrixTTL {
		return nil
	}
	return r.matrix
}

func (r *Resolver) load(ctx context.Context) (map[string]Set, error) {
	raw, err := r.store.Matrix(ctx)
	if err != nil {
		return nil, err
	}
	sets := buildSets(raw)
	r.mu.Lock()
	r.matrix = sets
	r.loadedAt = r.now()
	r.mu.Unlock()
	return sets, nil
}

func buildSets(raw map[string][]Capability) map[string]Set {
	sets := make(map[string]Set, len(raw))
	for role, caps := range raw {
		set := make(Set, len(caps))
		for _, cap := range caps {
			set[cap] = struct{}{}
		}
		sets[role] = set
	}
	return sets
}
