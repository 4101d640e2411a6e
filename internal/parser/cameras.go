package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/smart-distancing/dashboard/internal/models"
	"gopkg.in/yaml.v3"
)

// camerasFile is the layout of cameras.yaml.
type camerasFile struct {
	Cameras []models.CameraRef `yaml:"cameras"`
}

// ParseCameras parses a YAML camera list from a file.
func ParseCameras(filePath string) ([]models.CameraRef, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParseCamerasFromReader(file)
}

// ParseCamerasFromReader parses a YAML camera list. Camera IDs must be unique
// and non-empty; a camera without streams is kept (it still has charts).
func ParseCamerasFromReader(r io.Reader) ([]models.CameraRef, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var f camerasFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(f.Cameras))
	for i, cam := range f.Cameras {
		id := strings.TrimSpace(cam.ID)
		if id == "" {
			return nil, fmt.Errorf("camera %d: id is required", i)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("duplicate camera id %q", id)
		}
		seen[id] = struct{}{}
		f.Cameras[i].ID = id
		if f.Cameras[i].Streams == nil {
			f.Cameras[i].Streams = []models.StreamSource{}
		}
	}

	if f.Cameras == nil {
		return []models.CameraRef{}, nil
	}
	return f.Cameras, nil
}
