package models

import "time"

// Status is the content of the dashboard status panel.
type Status struct {
	CameraID         string     `json:"cameraId"`
	Time             time.Time  `json:"time"`
	LastSample       string     `json:"lastSample,omitempty"`
	EnvironmentScore *float64   `json:"environmentScore"`
	Records          int        `json:"records"`
	LastRefresh      *time.Time `json:"lastRefresh,omitempty"`
	LastError        string     `json:"lastError,omitempty"`
}

// DailySummary aggregates one camera day for the reports view.
type DailySummary struct {
	CameraID            string  `json:"cameraId"`
	Day                 string  `json:"day"`
	Samples             int     `json:"samples"`
	AvgDetected         float64 `json:"avgDetected"`
	MaxDetected         float64 `json:"maxDetected"`
	AvgViolating        float64 `json:"avgViolating"`
	MaxViolating        float64 `json:"maxViolating"`
	AvgEnvironmentScore float64 `json:"avgEnvironmentScore"`
	ScoredSamples       int     `json:"scoredSamples"`
}

// DayLayout is the date format used in objects log file names.
const DayLayout = "2006-01-02"
