// Package config provides XML-based configuration for the dashboard server.
package config

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"SmartDistancingDashboard"`

	Server    ServerConfig    `xml:"Server"`
	Storage   StorageConfig   `xml:"Storage"`
	Upstream  UpstreamConfig  `xml:"Upstream"`
	Dashboard DashboardConfig `xml:"Dashboard"`
	Advanced  AdvancedConfig  `xml:"Advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `xml:"Port"`
	BindAddress  string `xml:"BindAddress"`
	EnableCORS   bool   `xml:"EnableCORS"`
	AllowOrigins string `xml:"AllowOrigins"`
	ReadTimeout  int    `xml:"ReadTimeoutSeconds"`
	WriteTimeout int    `xml:"WriteTimeoutSeconds"`
	IdleTimeout  int    `xml:"IdleTimeoutSeconds"`
	BodyLimit    string `xml:"BodyLimit"`
}

// StorageConfig contains local file locations
type StorageConfig struct {
	DataDirectory       string `xml:"DataDirectory"`
	ObjectsLogDirectory string `xml:"ObjectsLogDirectory"`
	HistoryDatabase     string `xml:"HistoryDatabase"`
	CamerasFile         string `xml:"CamerasFile"`
	EnableHistory       bool   `xml:"EnableHistory"`
}

// UpstreamConfig points at a remote analytics processor. An empty BaseURL
// serves logs and cameras from local storage.
type UpstreamConfig struct {
	BaseURL        string `xml:"BaseURL"`
	TimeoutSeconds int    `xml:"TimeoutSeconds"`
}

// DashboardConfig contains view settings
type DashboardConfig struct {
	Mode                   string `xml:"Mode"`
	Timezone               string `xml:"Timezone"`
	ViewTimeoutMinutes     int    `xml:"ViewTimeoutMinutes"`
	CleanupIntervalMinutes int    `xml:"CleanupIntervalMinutes"`
	AutoRefreshSeconds     int    `xml:"AutoRefreshSeconds"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel                string `xml:"LogLevel"`
	PrettyLogs              bool   `xml:"PrettyLogs"`
	EnableRequestLogging    bool   `xml:"EnableRequestLogging"`
	DuckDBThreads           int    `xml:"DuckDBThreads"`
	DuckDBMemoryLimit       string `xml:"DuckDBMemoryLimit"`
	WebSocketMaxMessageSize int    `xml:"WebSocketMaxMessageSizeKB"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8000,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
			BodyLimit:    "64M",
		},
		Storage: StorageConfig{
			DataDirectory:       "./data",
			ObjectsLogDirectory: "./data/objects_log",
			HistoryDatabase:     "./data/history.duckdb",
			CamerasFile:         "./cameras.yaml",
			EnableHistory:       true,
		},
		Upstream: UpstreamConfig{
			BaseURL:        "",
			TimeoutSeconds: 10,
		},
		Dashboard: DashboardConfig{
			Mode:                   "production",
			Timezone:               "Local",
			ViewTimeoutMinutes:     30,
			CleanupIntervalMinutes: 5,
			AutoRefreshSeconds:     0,
		},
		Advanced: AdvancedConfig{
			LogLevel:                "info",
			PrettyLogs:              false,
			EnableRequestLogging:    true,
			DuckDBThreads:           2,
			DuckDBMemoryLimit:       "256MB",
			WebSocketMaxMessageSize: 64,
		},
	}
}

// LoadDotEnv loads variables from a .env file without overriding the
// process environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// LoadConfig loads configuration from XML file, creating it with defaults
// on first run. Environment variables override file values.
func LoadConfig(configPath string) (*AppConfig, error) {
	config := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := xml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	config.applyEnvironmentOverrides()
	config.resolvePaths(filepath.Dir(configPath))

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save saves the configuration to XML file
func (c *AppConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- Smart Distancing Dashboard Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate rejects settings the server cannot start with.
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Upstream.TimeoutSeconds <= 0 {
		return fmt.Errorf("upstream timeout must be positive, got %d", c.Upstream.TimeoutSeconds)
	}
	if c.Dashboard.CleanupIntervalMinutes <= 0 || c.Dashboard.ViewTimeoutMinutes <= 0 {
		return fmt.Errorf("view cleanup interval and timeout must be positive")
	}
	if c.Dashboard.AutoRefreshSeconds < 0 {
		return fmt.Errorf("auto refresh interval must not be negative, got %d", c.Dashboard.AutoRefreshSeconds)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	// DATA_DIR moves every derived location with it
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
		c.Storage.ObjectsLogDirectory = filepath.Join(dataDir, "objects_log")
		c.Storage.HistoryDatabase = filepath.Join(dataDir, "history.duckdb")
	}

	if upstream := os.Getenv("UPSTREAM_URL"); upstream != "" {
		c.Upstream.BaseURL = strings.TrimRight(upstream, "/")
	}

	if mode := os.Getenv("DASHBOARD_MODE"); mode != "" {
		c.Dashboard.Mode = mode
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Advanced.LogLevel = level
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	for _, p := range []*string{
		&c.Storage.DataDirectory,
		&c.Storage.ObjectsLogDirectory,
		&c.Storage.HistoryDatabase,
		&c.Storage.CamerasFile,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(configDir, *p)
		}
	}
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// UpstreamTimeout returns the log fetch timeout.
func (c *AppConfig) UpstreamTimeout() time.Duration {
	return time.Duration(c.Upstream.TimeoutSeconds) * time.Second
}

// UsesUpstream reports whether logs come from a remote processor.
func (c *AppConfig) UsesUpstream() bool {
	return c.Upstream.BaseURL != ""
}

// Location returns the timezone used to pick "today" and to read log
// timestamps.
func (c *AppConfig) Location() (*time.Location, error) {
	switch c.Dashboard.Timezone {
	case "", "Local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Dashboard.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Dashboard.Timezone, err)
	}
	return loc, nil
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDirectory,
		c.Storage.ObjectsLogDirectory,
		filepath.Dir(c.Storage.HistoryDatabase),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
