package models

import "time"

// LogFileInfo describes one stored daily objects log.
type LogFileInfo struct {
	CameraID   string    `json:"cameraId"`
	Day        string    `json:"day"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modifiedAt"`
}
