// Package models contains domain types for the smart distancing dashboard.
package models

// Objects log column names. Order in the file is not significant.
const (
	ColumnTimestamp        = "Timestamp"
	ColumnDetectedObjects  = "DetectedObjects"
	ColumnViolatingObjects = "ViolatingObjects"
	ColumnEnvironmentScore = "EnvironmentScore"
)

// LogRecord is one row of a camera's daily objects log.
// A nil metric means the column was missing or the cell was not a number.
type LogRecord struct {
	Timestamp        string   `json:"timestamp" msgpack:"timestamp"`
	DetectedObjects  *float64 `json:"detectedObjects" msgpack:"detectedObjects"`
	ViolatingObjects *float64 `json:"violatingObjects" msgpack:"violatingObjects"`
	EnvironmentScore *float64 `json:"environmentScore" msgpack:"environmentScore"`
}

// Float returns a pointer to v, for building records and series in code.
func Float(v float64) *float64 {
	return &v
}

// Floats converts plain values into series values.
func Floats(vs ...float64) []*float64 {
	out := make([]*float64, len(vs))
	for i, v := range vs {
		out[i] = Float(v)
	}
	return out
}
