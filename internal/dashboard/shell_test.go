package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smart-distancing/dashboard/internal/models"
	"github.com/smart-distancing/dashboard/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type viewMap struct {
	mu    sync.Mutex
	src   LogSource
	views map[string]*Charts
}

func newViewMap(src LogSource) *viewMap {
	return &viewMap{src: src, views: make(map[string]*Charts)}
}

func (v *viewMap) View(cameraID string) *Charts {
	v.mu.Lock()
	defer v.mu.Unlock()
	c, ok := v.views[cameraID]
	if !ok {
		c = NewCharts(cameraID, v.src, WithClock(fixedClock))
		v.views[cameraID] = c
	}
	return c
}

func testCameras() []models.CameraRef {
	return []models.CameraRef{
		{ID: testCamera, Name: "Entrance", Streams: []models.StreamSource{{Src: "/static/gstreamer/default.m3u8", Type: "application/x-mpegURL"}}},
		{ID: "cam-2", Streams: []models.StreamSource{{Src: "/static/gstreamer/cam2.m3u8", Type: "application/x-mpegURL"}}},
	}
}

func TestShell_MountSelectsFirstCamera(t *testing.T) {
	src := testutil.NewMockLogSource()
	src.SetLog(testCamera, testDay, testutil.SampleObjectsLog)
	views := newViewMap(src)
	lister := testutil.NewMockCameraLister(testCameras()...)

	s := NewShell(lister, views, ModeProduction)
	s.SetClock(func() time.Time { return time.UnixMilli(1588327200000) })

	st, err := s.Mount(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Mounted)

	require.NotNil(t, st.Active)
	assert.Equal(t, testCamera, st.Active.ID)
	require.NotNil(t, st.Video)
	assert.Equal(t, "/static/gstreamer/default.m3u8?1588327200000", st.Video.Src)
	assert.Equal(t, "application/x-mpegURL", st.Video.Type)
	assert.Equal(t, "1588327200000", st.MountToken)
	assert.Len(t, st.Cameras, 2)

	assert.Equal(t, 1, src.Calls(testCamera, testDay), "mount triggers a refresh")
	_, published := views.View(testCamera).Snapshot()
	assert.True(t, published)
}

func TestShell_EachMountIsFresh(t *testing.T) {
	src := testutil.NewMockLogSource()
	src.SetLog(testCamera, testDay, testutil.SampleObjectsLog)
	views := newViewMap(src)
	lister := testutil.NewMockCameraLister(testCameras()...)
	s := NewShell(lister, views, ModeProduction)

	now := time.UnixMilli(1000)
	s.SetClock(func() time.Time {
		now = now.Add(250 * time.Millisecond)
		return now
	})

	first, err := s.Mount(context.Background())
	require.NoError(t, err)
	second, err := s.Mount(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.MountToken, second.MountToken)
	assert.NotEqual(t, first.Video.Src, second.Video.Src, "a reload must not reuse the cached stream")
	assert.Equal(t, 2, lister.Calls(), "the camera list is fetched on every mount")
	assert.Equal(t, 2, src.Calls(testCamera, testDay))
	assert.Same(t, views.View(testCamera), views.View(testCamera), "chart views are shared")
}

func TestShell_MountSeesCameraListChanges(t *testing.T) {
	lister := testutil.NewMockCameraLister(testCameras()...)
	s := NewShell(lister, nil, ModeProduction)

	st, err := s.Mount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testCamera, st.Active.ID)

	lister.SetCameras(models.CameraRef{ID: "cam-9"})
	st, err = s.Mount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cam-9", st.Active.ID)
	assert.Len(t, st.Cameras, 1)
}

func TestShell_CameraFailureReturnsEmptyState(t *testing.T) {
	lister := testutil.NewMockCameraLister(testCameras()...)
	lister.SetError(errors.New("connection refused"))
	src := testutil.NewMockLogSource()
	src.SetLog(testCamera, testDay, testutil.SampleObjectsLog)
	s := NewShell(lister, newViewMap(src), ModeDevelopment)

	st, err := s.Mount(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.False(t, st.Mounted)
	assert.Nil(t, st.Active)
	assert.Nil(t, st.Video)
	assert.Len(t, st.Tabs, 4, "tabs render even without cameras")
	assert.Equal(t, 0, src.Calls(testCamera, testDay))

	lister.SetError(nil)
	st, err = s.Mount(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Mounted)
}

func TestShell_NoCameras(t *testing.T) {
	s := NewShell(testutil.NewMockCameraLister(), nil, ModeProduction)
	st, err := s.Mount(context.Background())
	assert.ErrorIs(t, err, ErrNoCameras)
	assert.False(t, st.Mounted)
}

func TestShell_RefreshFailureStillMounts(t *testing.T) {
	src := testutil.NewMockLogSource()
	views := newViewMap(src)
	s := NewShell(testutil.NewMockCameraLister(testCameras()...), views, ModeProduction)

	st, err := s.Mount(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Mounted)
	_, published := views.View(testCamera).Snapshot()
	assert.False(t, published)
	assert.Error(t, views.View(testCamera).LastError())
}

func TestShell_VideoWithoutStream(t *testing.T) {
	cams := []models.CameraRef{{ID: testCamera, Streams: []models.StreamSource{}}}
	s := NewShell(testutil.NewMockCameraLister(cams...), nil, ModeProduction)

	st, err := s.Mount(context.Background())
	require.NoError(t, err)
	assert.Nil(t, st.Video)
}

func TestShell_VideoSourceWithQuery(t *testing.T) {
	cams := []models.CameraRef{{ID: testCamera, Streams: []models.StreamSource{{Src: "http://cam/live.m3u8?q=1", Type: "application/x-mpegURL"}}}}
	s := NewShell(testutil.NewMockCameraLister(cams...), nil, ModeProduction)
	s.SetClock(func() time.Time { return time.UnixMilli(42) })

	st, err := s.Mount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "http://cam/live.m3u8?q=1&42", st.Video.Src)
}

func TestShell_Tabs(t *testing.T) {
	t.Run("production shows live only", func(t *testing.T) {
		s := NewShell(testutil.NewMockCameraLister(), nil, ModeProduction)
		tabs := s.Tabs()
		require.Len(t, tabs, 1)
		assert.Equal(t, "/live", tabs[0].Path)
		assert.True(t, s.TabAllowed("/live"))
		assert.False(t, s.TabAllowed("/offline"))
	})

	t.Run("development shows every tab", func(t *testing.T) {
		s := NewShell(testutil.NewMockCameraLister(), nil, ModeDevelopment)
		var paths []string
		for _, tab := range s.Tabs() {
			paths = append(paths, tab.Path)
		}
		assert.Equal(t, []string{"/live", "/offline", "/reports", "/settings"}, paths)
		assert.True(t, s.TabAllowed("/settings"))
	})
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeDevelopment, ParseMode("dev"))
	assert.Equal(t, ModeDevelopment, ParseMode(" Development "))
	assert.Equal(t, ModeProduction, ParseMode("production"))
	assert.Equal(t, ModeProduction, ParseMode(""))
	assert.Equal(t, ModeProduction, ParseMode("staging"))
}
