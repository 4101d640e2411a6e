package models

// StreamSource is one media source a camera can be played from.
type StreamSource struct {
	Src  string `json:"src" yaml:"src"`
	Type string `json:"type" yaml:"type"`
}

// CameraRef identifies a camera and its live streams.
type CameraRef struct {
	ID      string         `json:"id" yaml:"id"`
	Name    string         `json:"name,omitempty" yaml:"name,omitempty"`
	Streams []StreamSource `json:"streams" yaml:"streams"`
}

// PrimaryStream returns the first stream descriptor, if any.
func (c CameraRef) PrimaryStream() (StreamSource, bool) {
	if len(c.Streams) == 0 {
		return StreamSource{}, false
	}
	return c.Streams[0], true
}
