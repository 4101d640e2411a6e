package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLog = "Timestamp,DetectedObjects,ViolatingObjects,EnvironmentScore\n2024-01-01 00:00:00,1,0,1\n"

func TestLogURL(t *testing.T) {
	assert.Equal(t,
		"http://backend:8000/static/data/objects_log/default/2024-01-01.csv",
		LogURL("http://backend:8000/", "default", "2024-01-01"))
	assert.Equal(t,
		"/static/data/objects_log/cam%201/2024-01-01.csv",
		LogURL("", "cam 1", "2024-01-01"))
}

func TestHTTPFetcher_FetchLog(t *testing.T) {
	var gotPath, gotCache, gotPragma string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotCache = r.Header.Get("Cache-Control")
		gotPragma = r.Header.Get("Pragma")
		switch r.URL.Path {
		case "/static/data/objects_log/cam/2024-01-01.csv":
			w.Write([]byte(testLog))
		case "/static/data/objects_log/cam/2024-01-02.csv":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL, time.Second)
	ctx := context.Background()

	data, err := f.FetchLog(ctx, "cam", "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, testLog, string(data))
	assert.Equal(t, "/static/data/objects_log/cam/2024-01-01.csv", gotPath)
	assert.Equal(t, "no-store", gotCache)
	assert.Equal(t, "no-cache", gotPragma)

	_, err = f.FetchLog(ctx, "cam", "2024-01-02")
	assert.ErrorIs(t, err, ErrUpstreamStatus)

	_, err = f.FetchLog(ctx, "cam", "2023-01-01")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHTTPFetcher_RejectsOversizedLog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testLog))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL, time.Second)

	f.maxLogBytes = int64(len(testLog))
	data, err := f.FetchLog(context.Background(), "cam", "2024-01-01")
	require.NoError(t, err, "a log of exactly the limit is read whole")
	assert.Equal(t, testLog, string(data))

	f.maxLogBytes = int64(len(testLog)) - 1
	_, err = f.FetchLog(context.Background(), "cam", "2024-01-01")
	assert.ErrorIs(t, err, ErrLogTooLarge)
}

func TestHTTPFetcher_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	f := NewHTTPFetcher(srv.URL, 50*time.Millisecond)
	_, err := f.FetchLog(context.Background(), "cam", "2024-01-01")
	assert.Error(t, err)
}

func TestHTTPFetcher_ContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := NewHTTPFetcher(srv.URL, 0).FetchLog(ctx, "cam", "2024-01-01")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPFetcher_Cameras(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/cameras", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"default","streams":[{"src":"/video_feed","type":"video/mp4"}]}]`))
	}))
	defer srv.Close()

	cams, err := NewHTTPFetcher(srv.URL, time.Second).Cameras(context.Background())
	require.NoError(t, err)
	require.Len(t, cams, 1)
	assert.Equal(t, "default", cams[0].ID)
	assert.Equal(t, "/video_feed", cams[0].Streams[0].Src)
}

func TestHTTPFetcher_CamerasErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(srv.URL, time.Second).Cameras(context.Background())
	assert.Error(t, err)

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()
	_, err = NewHTTPFetcher(down.URL, time.Second).Cameras(context.Background())
	assert.ErrorIs(t, err, ErrUpstreamStatus)
}
