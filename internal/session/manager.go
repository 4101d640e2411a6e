package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/smart-distancing/dashboard/internal/dashboard"
	"github.com/smart-distancing/dashboard/internal/logger"
)

// MaxViews limits how many camera views are kept in memory.
const MaxViews = 64

// ViewMaxAge is how long an untouched view survives cleanup.
const ViewMaxAge = 30 * time.Minute

// Factory builds the chart view of a camera.
type Factory func(cameraID string) *dashboard.Charts

// Manager keeps one chart view per camera, created on first use.
type Manager struct {
	views   map[string]*ViewState
	mu      sync.RWMutex
	factory Factory
	limit   int
	now     func() time.Time
	log     zerolog.Logger
}

// ViewState holds a view and its last access time.
type ViewState struct {
	Charts       *dashboard.Charts
	CreatedAt    time.Time
	LastAccessed time.Time
}

// NewManager creates a manager that builds views with factory.
func NewManager(factory Factory) *Manager {
	return &Manager{
		views:   make(map[string]*ViewState),
		factory: factory,
		limit:   MaxViews,
		now:     time.Now,
		log:     logger.For("session"),
	}
}

// View returns the view of cameraID, creating it if needed, and marks it as
// accessed.
func (m *Manager) View(cameraID string) *dashboard.Charts {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if state, ok := m.views[cameraID]; ok {
		state.LastAccessed = now
		return state.Charts
	}

	if len(m.views) >= m.limit {
		m.evictOldestLocked()
	}

	state := &ViewState{
		Charts:       m.factory(cameraID),
		CreatedAt:    now,
		LastAccessed: now,
	}
	m.views[cameraID] = state
	m.log.Debug().Str("camera_id", cameraID).Int("views", len(m.views)).Msg("view created")
	return state.Charts
}

// Lookup returns an existing view without creating one.
func (m *Manager) Lookup(cameraID string) (*dashboard.Charts, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.views[cameraID]
	if !ok {
		return nil, false
	}
	return state.Charts, true
}

// Touch updates the access time of a view. It reports false for unknown
// cameras.
func (m *Manager) Touch(cameraID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.views[cameraID]
	if !ok {
		return false
	}
	state.LastAccessed = m.now()
	return true
}

// Len returns the number of live views.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.views)
}

// CameraIDs returns the cameras with a live view, sorted.
func (m *Manager) CameraIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.views))
	for id := range m.views {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CleanupIdle closes and removes views not accessed within maxAge.
func (m *Manager) CleanupIdle(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxAge)
	removed := 0
	for id, state := range m.views {
		if state.LastAccessed.Before(cutoff) {
			state.Charts.Close()
			delete(m.views, id)
			removed++
			m.log.Info().Str("camera_id", id).
				Dur("idle", m.now().Sub(state.LastAccessed).Round(time.Second)).
				Msg("idle view removed")
		}
	}
	return removed
}

// StartCleanup runs CleanupIdle every interval until ctx ends.
func (m *Manager) StartCleanup(ctx context.Context, interval, maxAge time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.CleanupIdle(maxAge)
			}
		}
	}()
}

// Close closes every view.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, state := range m.views {
		state.Charts.Close()
		delete(m.views, id)
	}
}

func (m *Manager) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, state := range m.views {
		if oldestID == "" || state.LastAccessed.Before(oldest) {
			oldestID = id
			oldest = state.LastAccessed
		}
	}
	if oldestID == "" {
		return
	}
	m.views[oldestID].Charts.Close()
	delete(m.views, oldestID)
	m.log.Info().Str("camera_id", oldestID).Msg("view evicted to stay under limit")
}
