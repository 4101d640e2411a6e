// Package chart turns objects log records into chart specs and draws them.
package chart

import "github.com/smart-distancing/dashboard/internal/models"

// Series labels and chart titles shown on the dashboard.
const (
	LabelDetected         = "Detected Pedestrians"
	LabelViolating        = "Detected Pedestrians In Unsafe Area"
	LabelEnvironmentScore = "Environment Score"

	TitlePedestrians      = "Plotting log data Physical Distancing"
	TitleEnvironmentScore = "Plotting log data Physical Distancing - Environment Score"
)

// Chart geometry in pixels.
const (
	DefaultWidth     = 800
	DefaultHeight    = 300
	MinWidth         = 120
	ContainerPadding = 20
)

// Build groups records into the pedestrian and environment score charts.
// Every series shares one X slice, index aligned with records.
func Build(records []models.LogRecord) models.ChartSet {
	n := len(records)
	x := make([]string, n)
	detected := make([]*float64, n)
	violating := make([]*float64, n)
	score := make([]*float64, n)

	for i, r := range records {
		x[i] = r.Timestamp
		detected[i] = r.DetectedObjects
		violating[i] = r.ViolatingObjects
		score[i] = r.EnvironmentScore
	}

	return models.ChartSet{
		Pedestrians: models.ChartSpec{
			Title: TitlePedestrians,
			Series: []models.Series{
				{Label: LabelDetected, X: x, Y: detected},
				{Label: LabelViolating, X: x, Y: violating},
			},
			Width:  DefaultWidth,
			Height: DefaultHeight,
		},
		EnvironmentScore: models.ChartSpec{
			Title: TitleEnvironmentScore,
			Series: []models.Series{
				{Label: LabelEnvironmentScore, X: x, Y: score},
			},
			Width:  DefaultWidth,
			Height: DefaultHeight,
		},
	}
}

// WidthForContainer converts an available container width into a chart
// width, leaving room for the card padding.
func WidthForContainer(containerWidth int) int {
	w := containerWidth - ContainerPadding
	if w < MinWidth {
		return MinWidth
	}
	return w
}

// Resize fits a chart set to a rendering container. Only the width changes;
// the series are shared with set.
func Resize(set models.ChartSet, containerWidth int) models.ChartSet {
	return set.WithWidth(WidthForContainer(containerWidth))
}
