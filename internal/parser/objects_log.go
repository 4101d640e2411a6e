package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/smart-distancing/dashboard/internal/models"
)

// ObjectsLogHeader is the header row written by the analytics logger.
var ObjectsLogHeader = []string{
	models.ColumnTimestamp,
	models.ColumnDetectedObjects,
	models.ColumnViolatingObjects,
	models.ColumnEnvironmentScore,
}

// columnIndex maps the columns we care about to their position in the file.
// -1 means the column is absent.
type columnIndex struct {
	timestamp int
	detected  int
	violating int
	score     int
}

func indexColumns(header []string) columnIndex {
	idx := columnIndex{timestamp: -1, detected: -1, violating: -1, score: -1}
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		switch name {
		case models.ColumnTimestamp:
			idx.timestamp = i
		case models.ColumnDetectedObjects:
			idx.detected = i
		case models.ColumnViolatingObjects:
			idx.violating = i
		case models.ColumnEnvironmentScore:
			idx.score = i
		}
	}
	return idx
}

// ParseObjectsLog reads a daily objects log. Columns are addressed by header
// name, so their order does not matter. Missing columns and non-numeric cells
// become empty values instead of errors; records keep file order.
func ParseObjectsLog(r io.Reader) ([]models.LogRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []models.LogRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	idx := indexColumns(header)

	records := make([]models.LogRecord, 0, 256)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", len(records)+1, err)
		}
		if isBlankRow(row) {
			continue
		}

		records = append(records, models.LogRecord{
			Timestamp:        cell(row, idx.timestamp),
			DetectedObjects:  number(cell(row, idx.detected)),
			ViolatingObjects: number(cell(row, idx.violating)),
			EnvironmentScore: number(cell(row, idx.score)),
		})
	}

	return records, nil
}

// ParseObjectsLogString is a convenience wrapper for in-memory logs.
func ParseObjectsLogString(s string) ([]models.LogRecord, error) {
	return ParseObjectsLog(strings.NewReader(s))
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func number(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func isBlankRow(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
