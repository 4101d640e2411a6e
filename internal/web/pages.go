package web

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/smart-distancing/dashboard/internal/dashboard"
	"github.com/smart-distancing/dashboard/internal/logger"
)

// Setting is one row of the settings page.
type Setting struct {
	Name  string
	Value string
}

// pageData is passed to the page template.
type pageData struct {
	Title    string
	Page     string
	Path     string
	Version  string
	Error    string
	State    dashboard.ShellState
	Settings []Setting
}

var pageTitles = map[string]string{
	"live":     "Live",
	"offline":  "Offline",
	"reports":  "Reports",
	"settings": "Settings",
}

// Handler renders the shell pages.
type Handler struct {
	shell    *dashboard.Shell
	tmpl     *template.Template
	version  string
	settings []Setting
	log      zerolog.Logger
}

// NewHandler parses the embedded templates.
func NewHandler(shell *dashboard.Shell, version string, settings []Setting) (*Handler, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	return &Handler{
		shell:    shell,
		tmpl:     tmpl,
		version:  version,
		settings: settings,
		log:      logger.For("web"),
	}, nil
}

// RegisterRoutes registers the pages and the asset route. API routes must
// be registered separately.
func (h *Handler) RegisterRoutes(e *echo.Echo) error {
	assets, err := GetFileSystem()
	if err != nil {
		return err
	}
	e.StaticFS("/assets", assets)

	e.GET("/", h.HandleRoot)
	for page := range pageTitles {
		e.GET("/"+page, h.HandlePage(page))
	}
	return nil
}

// HandleRoot redirects to the live view.
func (h *Handler) HandleRoot(c echo.Context) error {
	return c.Redirect(http.StatusFound, "/live")
}

// HandlePage renders one tab. Tabs hidden in the current mode redirect to
// the live view. Every page load mounts the shell afresh.
func (h *Handler) HandlePage(page string) echo.HandlerFunc {
	path := "/" + page
	return func(c echo.Context) error {
		if !h.shell.TabAllowed(path) {
			return c.Redirect(http.StatusFound, "/live")
		}

		data := pageData{
			Title:    pageTitles[page],
			Page:     page,
			Path:     path,
			Version:  h.version,
			Settings: h.settings,
		}
		state, err := h.shell.Mount(c.Request().Context())
		if err != nil {
			h.log.Warn().Err(err).Msg("shell mount failed")
			data.Error = "Cameras are unavailable: " + err.Error()
		}
		data.State = state

		var buf bytes.Buffer
		if err := h.tmpl.ExecuteTemplate(&buf, "page", data); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to render page")
		}
		c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
		return c.HTMLBlob(http.StatusOK, buf.Bytes())
	}
}
