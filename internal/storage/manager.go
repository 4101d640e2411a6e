// Package storage reads and writes daily objects logs laid out as
// {dir}/{cameraID}/{YYYY-MM-DD}.csv.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smart-distancing/dashboard/internal/models"
)

var (
	// ErrNotFound is returned when no log exists for a camera day.
	ErrNotFound = errors.New("log not found")
	// ErrInvalidName is returned for camera IDs or days that cannot name a file.
	ErrInvalidName = errors.New("invalid camera id or day")
)

var cameraIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Store defines the interface for objects log storage.
type Store interface {
	FetchLog(ctx context.Context, cameraID, day string) ([]byte, error)
	Save(cameraID, day string, r io.Reader) (*models.LogFileInfo, error)
	Get(cameraID, day string) (*models.LogFileInfo, error)
	Days(cameraID string) ([]string, error)
	Cameras() ([]string, error)
	GetFilePath(cameraID, day string) (string, error)
}

// LocalStore implements Store using the local filesystem.
type LocalStore struct {
	mu  sync.RWMutex
	dir string
}

// NewLocalStore creates a new LocalStore rooted at dir.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating objects log directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Dir returns the root directory.
func (s *LocalStore) Dir() string {
	return s.dir
}

// ValidateCameraID reports whether id is usable as a directory name.
func ValidateCameraID(id string) error {
	if !cameraIDPattern.MatchString(id) || strings.Contains(id, "..") {
		return fmt.Errorf("%w: camera %q", ErrInvalidName, id)
	}
	return nil
}

// ValidateDay reports whether day is a YYYY-MM-DD date.
func ValidateDay(day string) error {
	if _, err := time.Parse(models.DayLayout, day); err != nil {
		return fmt.Errorf("%w: day %q", ErrInvalidName, day)
	}
	return nil
}

// GetFilePath returns the path of a camera day log, whether or not it exists.
func (s *LocalStore) GetFilePath(cameraID, day string) (string, error) {
	if err := ValidateCameraID(cameraID); err != nil {
		return "", err
	}
	if err := ValidateDay(day); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, cameraID, day+".csv"), nil
}

// FetchLog reads a whole camera day log.
func (s *LocalStore) FetchLog(ctx context.Context, cameraID, day string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.GetFilePath(cameraID, day)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, cameraID, day)
	}
	if err != nil {
		return nil, fmt.Errorf("reading log: %w", err)
	}
	return data, nil
}

// Save stores r as the log of a camera day, replacing any existing file.
// The write goes to a temp file first so readers never see a partial log.
func (s *LocalStore) Save(cameraID, day string, r io.Reader) (*models.LogFileInfo, error) {
	path, err := s.GetFilePath(cameraID, day)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating camera directory: %w", err)
	}

	tmp := filepath.Join(filepath.Dir(path), ".upload-"+uuid.New().String())
	f, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}

	size, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("writing file: %w", err)
	}

	s.mu.Lock()
	err = os.Rename(tmp, path)
	s.mu.Unlock()
	if err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("replacing log: %w", err)
	}

	return &models.LogFileInfo{
		CameraID:   cameraID,
		Day:        day,
		Size:       size,
		ModifiedAt: time.Now(),
	}, nil
}

// Get returns metadata for a camera day log.
func (s *LocalStore) Get(cameraID, day string) (*models.LogFileInfo, error) {
	path, err := s.GetFilePath(cameraID, day)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	st, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, cameraID, day)
	}
	if err != nil {
		return nil, err
	}
	return &models.LogFileInfo{CameraID: cameraID, Day: day, Size: st.Size(), ModifiedAt: st.ModTime()}, nil
}

// Days lists the days that have a log for the camera, newest first.
func (s *LocalStore) Days(cameraID string) ([]string, error) {
	if err := ValidateCameraID(cameraID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	entries, err := os.ReadDir(filepath.Join(s.dir, cameraID))
	s.mu.RUnlock()
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing logs: %w", err)
	}

	days := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		day := strings.TrimSuffix(e.Name(), ".csv")
		if ValidateDay(day) != nil {
			continue
		}
		days = append(days, day)
	}

	// YYYY-MM-DD sorts lexically
	sort.Sort(sort.Reverse(sort.StringSlice(days)))
	return days, nil
}

// Cameras lists camera directories that contain logs.
func (s *LocalStore) Cameras() ([]string, error) {
	s.mu.RLock()
	entries, err := os.ReadDir(s.dir)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("listing cameras: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && ValidateCameraID(e.Name()) == nil {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}
