// mock_source.go - Mock log and camera sources for testing
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/smart-distancing/dashboard/internal/models"
	"github.com/smart-distancing/dashboard/internal/storage"
)

// ErrMockNotFound is returned for camera days that were never set. It is
// the storage not-found error so handlers map it the same way.
var ErrMockNotFound = storage.ErrNotFound

// MockLogSource serves objects logs from memory. Each camera/day can be
// given a body, an error, or a gate that holds the response until released.
type MockLogSource struct {
	mu     sync.Mutex
	logs   map[string][]byte
	errs   map[string]error
	gates  map[string]chan struct{}
	calls  map[string]int
	notify chan string
}

// NewMockLogSource creates an empty source.
func NewMockLogSource() *MockLogSource {
	return &MockLogSource{
		logs:  make(map[string][]byte),
		errs:  make(map[string]error),
		gates: make(map[string]chan struct{}),
		calls: make(map[string]int),
	}
}

func key(cameraID, day string) string {
	return cameraID + "/" + day
}

// SetLog stores a body and clears any injected error.
func (m *MockLogSource) SetLog(cameraID, day, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs[key(cameraID, day)] = []byte(body)
	delete(m.errs, key(cameraID, day))
}

// SetError makes the next fetches of cameraID/day fail.
func (m *MockLogSource) SetError(cameraID, day string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[key(cameraID, day)] = err
}

// Hold blocks fetches of cameraID/day until the returned func is called
// or the request context ends.
func (m *MockLogSource) Hold(cameraID, day string) (release func()) {
	gate := make(chan struct{})
	m.mu.Lock()
	m.gates[key(cameraID, day)] = gate
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			if m.gates[key(cameraID, day)] == gate {
				delete(m.gates, key(cameraID, day))
			}
			m.mu.Unlock()
			close(gate)
		})
	}
}

// Started returns a channel that receives "camera/day" whenever a fetch
// begins. It must be called before the fetches it should observe.
func (m *MockLogSource) Started() <-chan string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.notify == nil {
		m.notify = make(chan string, 64)
	}
	return m.notify
}

// Calls returns how many fetches were made for cameraID/day.
func (m *MockLogSource) Calls(cameraID, day string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[key(cameraID, day)]
}

// FetchLog implements the log source contract.
func (m *MockLogSource) FetchLog(ctx context.Context, cameraID, day string) ([]byte, error) {
	k := key(cameraID, day)

	m.mu.Lock()
	m.calls[k]++
	gate := m.gates[k]
	notify := m.notify
	m.mu.Unlock()

	if notify != nil {
		select {
		case notify <- k:
		default:
		}
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errs[k]; err != nil {
		return nil, err
	}
	body, ok := m.logs[k]
	if !ok {
		return nil, fmt.Errorf("log %s: %w", k, ErrMockNotFound)
	}
	return append([]byte(nil), body...), nil
}

// MockCameraLister returns a fixed camera list or an injected error.
type MockCameraLister struct {
	mu    sync.Mutex
	list  []models.CameraRef
	err   error
	calls int
}

// NewMockCameraLister creates a lister for cams.
func NewMockCameraLister(cams ...models.CameraRef) *MockCameraLister {
	return &MockCameraLister{list: cams}
}

// SetError makes Cameras fail with err until cleared with nil.
func (m *MockCameraLister) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetCameras replaces the camera list.
func (m *MockCameraLister) SetCameras(cams ...models.CameraRef) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.list = cams
}

// Calls returns how many times Cameras was called.
func (m *MockCameraLister) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Cameras implements the camera lister contract.
func (m *MockCameraLister) Cameras(ctx context.Context) ([]models.CameraRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return append([]models.CameraRef(nil), m.list...), nil
}
