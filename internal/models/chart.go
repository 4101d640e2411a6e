package models

// Series is one named, index-aligned (x, y) sequence.
// Y[i] is nil where the source record had no value for the metric.
type Series struct {
	Label string     `json:"label" msgpack:"label"`
	X     []string   `json:"x" msgpack:"x"`
	Y     []*float64 `json:"y" msgpack:"y"`
}

// Len returns the number of samples in the series.
func (s Series) Len() int {
	return len(s.X)
}

// ChartSpec is everything a renderer needs to draw one chart.
type ChartSpec struct {
	Title  string   `json:"title" msgpack:"title"`
	Series []Series `json:"series" msgpack:"series"`
	Width  int      `json:"width" msgpack:"width"`
	Height int      `json:"height" msgpack:"height"`
}

// WithWidth returns a copy of the spec with only the width changed.
// Series slices are shared, not copied; specs are never mutated in place.
func (c ChartSpec) WithWidth(width int) ChartSpec {
	c.Width = width
	return c
}

// ChartSet holds the two charts derived from one fetch.
type ChartSet struct {
	Pedestrians      ChartSpec `json:"pedestrians" msgpack:"pedestrians"`
	EnvironmentScore ChartSpec `json:"environmentScore" msgpack:"environmentScore"`
}

// WithWidth resizes both charts.
func (s ChartSet) WithWidth(width int) ChartSet {
	return ChartSet{
		Pedestrians:      s.Pedestrians.WithWidth(width),
		EnvironmentScore: s.EnvironmentScore.WithWidth(width),
	}
}
