// Package fetch talks to the analytics backend over HTTP: the camera list and
// the per-camera daily objects logs.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/smart-distancing/dashboard/internal/logger"
	"github.com/smart-distancing/dashboard/internal/models"
)

var (
	// ErrUpstreamStatus is returned for non-2xx upstream responses.
	ErrUpstreamStatus = errors.New("unexpected upstream status")
	// ErrNotFound is returned when the upstream has no log for the day.
	ErrNotFound = errors.New("log not found upstream")
	// ErrLogTooLarge is returned when a log exceeds the read limit.
	ErrLogTooLarge = errors.New("upstream log too large")
)

// DefaultMaxLogBytes caps how much of a daily log is read into memory.
const DefaultMaxLogBytes = 64 << 20

// LogURL builds the address of a camera's objects log for one day.
func LogURL(base, cameraID, day string) string {
	return strings.TrimRight(base, "/") + "/static/data/objects_log/" +
		url.PathEscape(cameraID) + "/" + url.PathEscape(day) + ".csv"
}

// HTTPFetcher fetches logs and cameras from an upstream base URL.
type HTTPFetcher struct {
	baseURL     string
	client      *http.Client
	maxLogBytes int64
	log         zerolog.Logger
}

// NewHTTPFetcher creates a fetcher. A zero timeout means no client timeout.
func NewHTTPFetcher(baseURL string, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		baseURL:     strings.TrimRight(baseURL, "/"),
		client:      &http.Client{Timeout: timeout},
		maxLogBytes: DefaultMaxLogBytes,
		log:         logger.For("fetch"),
	}
}

// BaseURL returns the upstream base URL.
func (f *HTTPFetcher) BaseURL() string {
	return f.baseURL
}

// FetchLog GETs today's (or any day's) objects log with caching disabled.
// There is no retry; callers decide what a failure means for their view.
func (f *HTTPFetcher) FetchLog(ctx context.Context, cameraID, day string) ([]byte, error) {
	u := LogURL(f.baseURL, cameraID, day)

	resp, err := f.get(ctx, u, "text/csv")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, cameraID, day)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %d", ErrUpstreamStatus, u, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxLogBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading log body: %w", err)
	}
	if int64(len(data)) > f.maxLogBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrLogTooLarge, u, f.maxLogBytes)
	}

	f.log.Debug().
		Str("camera_id", cameraID).
		Str("day", day).
		Int("bytes", len(data)).
		Msg("log fetched")
	return data, nil
}

// Cameras GETs the upstream camera list.
func (f *HTTPFetcher) Cameras(ctx context.Context) ([]models.CameraRef, error) {
	u := f.baseURL + "/api/cameras"

	resp, err := f.get(ctx, u, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %d", ErrUpstreamStatus, u, resp.StatusCode)
	}

	var cameras []models.CameraRef
	if err := json.NewDecoder(resp.Body).Decode(&cameras); err != nil {
		return nil, fmt.Errorf("decoding cameras: %w", err)
	}
	if cameras == nil {
		cameras = []models.CameraRef{}
	}
	return cameras, nil
}

func (f *HTTPFetcher) get(ctx context.Context, u, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Accept", accept)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", u, err)
	}
	return resp, nil
}
