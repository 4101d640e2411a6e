// Package dashboard owns the live view state: the per-camera chart pipeline
// (fetch, parse, build, resize) and the page shell that picks the camera.
package dashboard

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/smart-distancing/dashboard/internal/chart"
	"github.com/smart-distancing/dashboard/internal/logger"
	"github.com/smart-distancing/dashboard/internal/models"
	"github.com/smart-distancing/dashboard/internal/parser"
)

// ErrSuperseded is returned by a refresh that lost to a newer one.
var ErrSuperseded = errors.New("refresh superseded by a newer request")

// Refresh outcomes reported to an Observer.
const (
	OutcomeOK         = "ok"
	OutcomeError      = "error"
	OutcomeSuperseded = "superseded"
)

// LogSource supplies raw daily objects logs.
type LogSource interface {
	FetchLog(ctx context.Context, cameraID, day string) ([]byte, error)
}

// Recorder receives the records of every successful refresh.
type Recorder interface {
	Ingest(ctx context.Context, cameraID, day string, records []models.LogRecord) error
}

// Observer is told how each refresh ended.
type Observer interface {
	RefreshCompleted(cameraID, outcome string, elapsed time.Duration)
}

// Update is delivered to subscribers after a successful refresh.
type Update struct {
	CameraID string          `json:"cameraId"`
	Day      string          `json:"day"`
	Charts   models.ChartSet `json:"charts"`
	At       time.Time       `json:"at"`
}

// Option configures a Charts view.
type Option func(*Charts)

// DefaultRefreshTimeout bounds a refresh when no timeout is configured.
const DefaultRefreshTimeout = 30 * time.Second

// WithClock overrides the clock used to pick "today".
func WithClock(now func() time.Time) Option {
	return func(c *Charts) { c.now = now }
}

// WithRecorder stores every successfully fetched day.
func WithRecorder(r Recorder) Option {
	return func(c *Charts) { c.recorder = r }
}

// WithObserver reports refresh outcomes.
func WithObserver(o Observer) Option {
	return func(c *Charts) { c.observer = o }
}

// WithTimeout bounds how long one refresh may take.
func WithTimeout(d time.Duration) Option {
	return func(c *Charts) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// Charts is the chart view-model of one camera, shared by every client
// watching it. Refresh is the only writer of the published state. Width is
// not part of it: each client resizes its own copy with chart.Resize.
type Charts struct {
	cameraID string
	source   LogSource
	recorder Recorder
	observer Observer
	now      func() time.Time
	timeout  time.Duration
	log      zerolog.Logger

	mu          sync.Mutex
	inflight    *refresh
	records     []models.LogRecord
	charts      *models.ChartSet
	day         string
	lastRefresh time.Time
	lastErr     error
	subs        map[int]func(Update)
	nextSub     int
}

// refresh is one fetch-parse-build run. set and err are written before
// done is closed.
type refresh struct {
	token  string
	cancel context.CancelFunc
	done   chan struct{}
	set    models.ChartSet
	err    error
}

func (r *refresh) wait(ctx context.Context) (models.ChartSet, error) {
	select {
	case <-r.done:
		return r.set, r.err
	case <-ctx.Done():
		return models.ChartSet{}, ctx.Err()
	}
}

// NewCharts creates the chart view for a camera. Nothing is fetched until
// the first Refresh.
func NewCharts(cameraID string, source LogSource, opts ...Option) *Charts {
	c := &Charts{
		cameraID: cameraID,
		source:   source,
		now:      time.Now,
		timeout:  DefaultRefreshTimeout,
		subs:     make(map[int]func(Update)),
		log:      logger.For("charts").With().Str("camera_id", cameraID).Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CameraID returns the camera this view belongs to.
func (c *Charts) CameraID() string {
	return c.cameraID
}

// Refresh fetches today's log, parses it, and publishes new charts.
//
// A newer Refresh cancels an in-flight one and the older call returns
// ErrSuperseded without touching state. A failed fetch or parse leaves the
// published charts exactly as they were.
//
// The fetch belongs to the view, not to the caller: cancelling ctx only
// stops this call from waiting. The run itself is bounded by the view
// timeout.
func (c *Charts) Refresh(ctx context.Context) (models.ChartSet, error) {
	c.mu.Lock()
	r := c.startLocked(ctx)
	c.mu.Unlock()
	return r.wait(ctx)
}

// startLocked cancels the in-flight run, if any, and starts a new one.
// c.mu must be held.
func (c *Charts) startLocked(ctx context.Context) *refresh {
	if c.inflight != nil {
		c.inflight.cancel()
	}
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	r := &refresh{
		token:  uuid.NewString(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	c.inflight = r
	go c.run(fctx, r, c.now().Format(models.DayLayout))
	return r
}

func (c *Charts) run(ctx context.Context, r *refresh, day string) {
	start := time.Now()
	defer close(r.done)
	defer r.cancel()

	var records []models.LogRecord
	data, err := c.source.FetchLog(ctx, c.cameraID, day)
	if err == nil {
		records, err = parser.ParseObjectsLog(bytes.NewReader(data))
	}

	c.mu.Lock()
	if c.inflight != r {
		c.mu.Unlock()
		r.err = ErrSuperseded
		c.observe(OutcomeSuperseded, start)
		c.log.Debug().Str("day", day).Str("token", r.token).Msg("stale refresh discarded")
		return
	}
	c.inflight = nil
	if err != nil {
		c.lastErr = err
		c.mu.Unlock()
		r.err = err
		c.observe(OutcomeError, start)
		c.log.Warn().Err(err).Str("day", day).Msg("refresh failed, keeping previous charts")
		return
	}

	set := chart.Build(records)
	c.records = records
	c.charts = &set
	c.day = day
	c.lastRefresh = c.now()
	c.lastErr = nil
	update := Update{CameraID: c.cameraID, Day: day, Charts: set, At: c.lastRefresh}
	subs := make([]func(Update), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	r.set = set
	c.observe(OutcomeOK, start)
	c.log.Debug().Str("day", day).Int("records", len(records)).Msg("charts refreshed")

	if c.recorder != nil {
		if err := c.recorder.Ingest(ctx, c.cameraID, day, records); err != nil {
			c.log.Warn().Err(err).Str("day", day).Msg("history ingest failed")
		}
	}
	for _, fn := range subs {
		fn(update)
	}
}

// Load returns the published charts, refreshing first when nothing has been
// published yet. A refresh already in flight is awaited instead of replaced,
// so concurrent first requests share one fetch and each caller only sees
// its own cancellation.
func (c *Charts) Load(ctx context.Context) (models.ChartSet, error) {
	for {
		c.mu.Lock()
		if c.charts != nil {
			set := *c.charts
			c.mu.Unlock()
			return set, nil
		}
		r := c.inflight
		if r == nil {
			r = c.startLocked(ctx)
		}
		c.mu.Unlock()

		set, err := r.wait(ctx)
		if errors.Is(err, ErrSuperseded) {
			continue
		}
		return set, err
	}
}

// Snapshot returns the published charts, or false before the first success.
func (c *Charts) Snapshot() (models.ChartSet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.charts == nil {
		return models.ChartSet{}, false
	}
	return *c.charts, true
}

// Records returns the records behind the published charts. The slice is
// shared and must not be modified.
func (c *Charts) Records() []models.LogRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.records
}

// LastError returns the error of the latest completed refresh, nil after a
// success.
func (c *Charts) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Status summarizes the latest published records for the status panel.
func (c *Charts) Status() models.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := models.Status{
		CameraID: c.cameraID,
		Time:     c.now(),
		Records:  len(c.records),
	}
	if !c.lastRefresh.IsZero() {
		t := c.lastRefresh
		st.LastRefresh = &t
	}
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
	}
	if n := len(c.records); n > 0 {
		last := c.records[n-1]
		st.LastSample = last.Timestamp
		st.EnvironmentScore = last.EnvironmentScore
	}
	return st
}

// Subscribe registers fn for future updates. fn runs on the refreshing
// goroutine and must not block. The returned func removes the subscription.
func (c *Charts) Subscribe(fn func(Update)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Close cancels any in-flight refresh.
func (c *Charts) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight != nil {
		c.inflight.cancel()
		c.inflight = nil
	}
}

func (c *Charts) observe(outcome string, start time.Time) {
	if c.observer != nil {
		c.observer.RefreshCompleted(c.cameraID, outcome, time.Since(start))
	}
}
