package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/smart-distancing/dashboard/internal/api"
	"github.com/smart-distancing/dashboard/internal/chart"
	"github.com/smart-distancing/dashboard/internal/config"
	"github.com/smart-distancing/dashboard/internal/dashboard"
	"github.com/smart-distancing/dashboard/internal/fetch"
	"github.com/smart-distancing/dashboard/internal/history"
	"github.com/smart-distancing/dashboard/internal/logger"
	"github.com/smart-distancing/dashboard/internal/metrics"
	"github.com/smart-distancing/dashboard/internal/session"
	"github.com/smart-distancing/dashboard/internal/storage"
	"github.com/smart-distancing/dashboard/internal/web"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}
	exeDir := filepath.Dir(exePath)

	for _, envFile := range []string{".env", filepath.Join(exeDir, ".env")} {
		if err := config.LoadDotEnv(envFile); err != nil {
			fmt.Printf("Warning: %v\n", err)
		}
	}

	configPath := os.Getenv("DASHBOARD_CONFIG")
	if configPath == "" {
		configPath = filepath.Join(exeDir, "dashboard.config.xml")
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Advanced.LogLevel, cfg.Advanced.PrettyLogs, os.Stdout)
	log := logger.For("server")

	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatal().Err(err).Msg("failed to create directories")
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid timezone")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Local log directory: offline uploads, static serving, local mode source
	store, err := storage.NewLocalStore(cfg.Storage.ObjectsLogDirectory)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize storage")
	}

	var logs dashboard.LogSource = store
	var cameras dashboard.CameraLister = storage.NewCameraCatalog(cfg.Storage.CamerasFile, store)
	source := "local: " + cfg.Storage.ObjectsLogDirectory
	if cfg.UsesUpstream() {
		fetcher := fetch.NewHTTPFetcher(cfg.Upstream.BaseURL, cfg.UpstreamTimeout())
		logs = fetcher
		cameras = fetcher
		source = "upstream: " + fetcher.BaseURL()
	}

	var historyStore api.HistoryStore
	var hist *history.Store
	if cfg.Storage.EnableHistory {
		hist, err = history.Open(cfg.Storage.HistoryDatabase, history.Options{
			MemoryLimit: cfg.Advanced.DuckDBMemoryLimit,
			Threads:     cfg.Advanced.DuckDBThreads,
		})
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.Storage.HistoryDatabase).Msg("history disabled")
		} else {
			historyStore = hist
			defer hist.Close()
		}
	}

	hub := api.NewHub(int64(cfg.Advanced.WebSocketMaxMessageSize) * 1024)

	var views *session.Manager
	appMetrics := metrics.New(func() int { return views.Len() })
	hub.OnClientCount(func(n int) { appMetrics.WebsocketClients.Store(int64(n)) })

	clock := func() time.Time { return time.Now().In(loc) }
	views = session.NewManager(func(cameraID string) *dashboard.Charts {
		opts := []dashboard.Option{
			dashboard.WithClock(clock),
			dashboard.WithObserver(appMetrics),
			dashboard.WithTimeout(cfg.UpstreamTimeout()),
		}
		if hist != nil {
			opts = append(opts, dashboard.WithRecorder(hist))
		}
		charts := dashboard.NewCharts(cameraID, logs, opts...)
		charts.Subscribe(hub.BroadcastChartsUpdated)
		return charts
	})
	defer views.Close()

	go hub.Run(ctx)

	// Background view cleanup
	views.StartCleanup(ctx,
		time.Duration(cfg.Dashboard.CleanupIntervalMinutes)*time.Minute,
		time.Duration(cfg.Dashboard.ViewTimeoutMinutes)*time.Minute)

	if cfg.Dashboard.AutoRefreshSeconds > 0 {
		go autoRefresh(ctx, views, time.Duration(cfg.Dashboard.AutoRefreshSeconds)*time.Second, log)
	}

	mode := dashboard.ParseMode(cfg.Dashboard.Mode)
	shell := dashboard.NewShell(cameras, views, mode)

	handlers := api.NewHandlers(&api.Dependencies{
		Cameras:  cameras,
		Views:    views,
		Logs:     logs,
		Store:    store,
		History:  historyStore,
		Renderer: chart.NewRenderer(loc),
		Recorder: appMetrics,
		Hub:      hub,
		Metrics:  appMetrics.Handler(),
		Location: loc,
		Mode:     string(mode),
		Version:  Version,
	})

	pages, err := web.NewHandler(shell, Version, []web.Setting{
		{Name: "Log source", Value: source},
		{Name: "Upstream timeout", Value: cfg.UpstreamTimeout().String()},
		{Name: "History", Value: strconv.FormatBool(historyStore != nil)},
		{Name: "Timezone", Value: loc.String()},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load page templates")
	}

	e := echo.New()
	e.HideBanner = true
	api.SetupMiddleware(e, mode == dashboard.ModeDevelopment)

	// Configure middleware
	httpLog := logger.For("http")
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return strings.HasSuffix(path, "/status") ||
				strings.HasPrefix(path, "/assets/") ||
				path == "/api/health" ||
				path == "/metrics"
		},
		LogURI:     true,
		LogMethod:  true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := httpLog.Info()
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				event = httpLog.Warn().Err(v.Error)
			}
			event.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/api/ws"
		},
		ErrorMessage: "Request timeout",
	}))

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return path == "/api/ws" || strings.Contains(path, "/charts/") && !strings.HasSuffix(path, "/msgpack")
		},
	}))

	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	if cfg.Server.EnableCORS {
		origins := strings.Split(cfg.Server.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 1 && origins[0] == "" {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderCacheControl},
		}))
	}

	api.RegisterRoutes(e, handlers)
	if err := pages.RegisterRoutes(e); err != nil {
		log.Fatal().Err(err).Msg("failed to register pages")
	}

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:        cfg.GetServerAddr(),
		ReadTimeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		IdleTimeout: time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}
	if cfg.Server.WriteTimeout > 0 {
		s.WriteTimeout = time.Duration(cfg.Server.WriteTimeout) * time.Second
	}

	// Print startup banner
	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Smart Distancing Dashboard                      ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Mode:       %-45s║\n", mode)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Logs:      %-46s║\n", source)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	go func() {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}

// autoRefresh periodically refreshes every live view; connected clients
// learn about new charts over the websocket.
func autoRefresh(ctx context.Context, views *session.Manager, interval time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, id := range views.CameraIDs() {
				view, ok := views.Lookup(id)
				if !ok {
					continue
				}
				if _, err := view.Refresh(ctx); err != nil && !errors.Is(err, dashboard.ErrSuperseded) {
					log.Debug().Err(err).Str("camera_id", id).Msg("auto refresh failed")
				}
			}
		}
	}
}
