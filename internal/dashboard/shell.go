package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/smart-distancing/dashboard/internal/logger"
	"github.com/smart-distancing/dashboard/internal/models"
)

// ErrNoCameras is returned by Mount when the camera list is empty.
var ErrNoCameras = errors.New("no cameras configured")

// Mode gates the non-live tabs.
type Mode string

const (
	ModeProduction  Mode = "production"
	ModeDevelopment Mode = "development"
)

// ParseMode maps config values to a Mode. Anything unknown is production.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dev", "development":
		return ModeDevelopment
	default:
		return ModeProduction
	}
}

// Tab is one entry of the navigation bar.
type Tab struct {
	Label string `json:"label"`
	Path  string `json:"path"`
}

var (
	liveTab = Tab{Label: "Live", Path: "/live"}
	devTabs = []Tab{
		{Label: "Offline", Path: "/offline"},
		{Label: "Reports", Path: "/reports"},
		{Label: "Settings", Path: "/settings"},
	}
)

// CameraLister returns the configured cameras.
type CameraLister interface {
	Cameras(ctx context.Context) ([]models.CameraRef, error)
}

// ViewProvider hands out the chart view of a camera.
type ViewProvider interface {
	View(cameraID string) *Charts
}

// VideoBinding is the video element source. The query token is fixed at
// mount so the browser does not reuse a cached stream from an earlier page.
type VideoBinding struct {
	Src  string `json:"src"`
	Type string `json:"type"`
}

// ShellState is what one page load renders.
type ShellState struct {
	Mode       Mode               `json:"mode"`
	Mounted    bool               `json:"mounted"`
	Cameras    []models.CameraRef `json:"cameras"`
	Active     *models.CameraRef  `json:"active,omitempty"`
	Video      *VideoBinding      `json:"video,omitempty"`
	Tabs       []Tab              `json:"tabs"`
	MountToken string             `json:"mountToken,omitempty"`
}

// Shell composes pages: the camera list, the active camera, the video
// binding and the tabs. Every Mount builds a fresh ShellState; only the
// chart views behind ViewProvider are shared between page loads.
type Shell struct {
	cameras CameraLister
	views   ViewProvider
	mode    Mode
	now     func() time.Time
	log     zerolog.Logger
}

// NewShell creates a shell.
func NewShell(cameras CameraLister, views ViewProvider, mode Mode) *Shell {
	return &Shell{
		cameras: cameras,
		views:   views,
		mode:    mode,
		now:     time.Now,
		log:     logger.For("shell"),
	}
}

// SetClock overrides the clock used for the mount token.
func (s *Shell) SetClock(now func() time.Time) {
	s.now = now
}

// Mount fetches the camera list, selects the first camera, binds its video
// source with a token taken now, and refreshes that camera's charts.
//
// The returned state always carries the mode and tabs. On a camera list
// failure it has no cameras and the error is returned. A failing refresh
// does not fail the mount; the charts stay as they were.
func (s *Shell) Mount(ctx context.Context) (ShellState, error) {
	st := ShellState{Mode: s.mode, Tabs: s.Tabs()}

	cams, err := s.cameras.Cameras(ctx)
	if err != nil {
		return st, fmt.Errorf("list cameras: %w", err)
	}
	if len(cams) == 0 {
		return st, ErrNoCameras
	}

	active := cams[0]
	st.Mounted = true
	st.Cameras = cams
	st.Active = &active
	st.MountToken = strconv.FormatInt(s.now().UnixMilli(), 10)
	st.Video = bindVideo(active, st.MountToken)

	s.log.Debug().Str("camera_id", active.ID).Int("cameras", len(cams)).Str("token", st.MountToken).Msg("shell mounted")

	if s.views == nil {
		return st, nil
	}
	if _, err := s.views.View(active.ID).Refresh(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
		s.log.Warn().Err(err).Str("camera_id", active.ID).Msg("refresh on mount failed")
	}
	return st, nil
}

func bindVideo(cam models.CameraRef, token string) *VideoBinding {
	stream, ok := cam.PrimaryStream()
	if !ok || stream.Src == "" {
		return nil
	}
	sep := "?"
	if strings.Contains(stream.Src, "?") {
		sep = "&"
	}
	return &VideoBinding{Src: stream.Src + sep + token, Type: stream.Type}
}

// Tabs returns the navigation tabs for the configured mode.
func (s *Shell) Tabs() []Tab {
	tabs := []Tab{liveTab}
	if s.mode == ModeDevelopment {
		tabs = append(tabs, devTabs...)
	}
	return tabs
}

// TabAllowed reports whether path is reachable in the configured mode.
func (s *Shell) TabAllowed(path string) bool {
	for _, t := range s.Tabs() {
		if t.Path == path {
			return true
		}
	}
	return false
}
