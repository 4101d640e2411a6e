package storage

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/smart-distancing/dashboard/internal/models"
	"github.com/smart-distancing/dashboard/internal/parser"
)

// CameraCatalog lists locally served cameras. A cameras file wins when it
// exists; otherwise every camera directory under the log store is listed
// without streams.
type CameraCatalog struct {
	file  string
	store *LocalStore
}

// NewCameraCatalog creates a catalog over a YAML cameras file and a store.
// Either may be empty/nil.
func NewCameraCatalog(file string, store *LocalStore) *CameraCatalog {
	return &CameraCatalog{file: file, store: store}
}

// Cameras returns the configured cameras.
func (c *CameraCatalog) Cameras(ctx context.Context) ([]models.CameraRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if c.file != "" {
		cams, err := parser.ParseCameras(c.file)
		if err == nil {
			return cams, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading cameras file: %w", err)
		}
	}

	if c.store == nil {
		return []models.CameraRef{}, nil
	}
	ids, err := c.store.Cameras()
	if err != nil {
		return nil, err
	}
	cams := make([]models.CameraRef, 0, len(ids))
	for _, id := range ids {
		cams = append(cams, models.CameraRef{ID: id, Streams: []models.StreamSource{}})
	}
	return cams, nil
}
