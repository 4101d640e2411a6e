package chart

import (
	"errors"
	"fmt"
	"html"
	"io"
	"math"
	"strings"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/smart-distancing/dashboard/internal/models"
	"github.com/smart-distancing/dashboard/internal/parser"
)

// Format is an output image format.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// ErrUnknownFormat is returned for formats other than png and svg.
var ErrUnknownFormat = errors.New("unknown chart format")

// ParseFormat maps a query value to a Format; empty means PNG.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return FormatPNG, nil
	case "svg":
		return FormatSVG, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

var palette = []drawing.Color{
	drawing.ColorFromHex("1f77b4"),
	drawing.ColorFromHex("ff7f0e"),
	drawing.ColorFromHex("2ca02c"),
}

// Renderer draws chart specs with go-chart.
type Renderer struct {
	// Location is used for timestamps without a zone.
	Location *time.Location
}

// NewRenderer creates a renderer reading zoneless timestamps in loc.
func NewRenderer(loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.Local
	}
	return &Renderer{Location: loc}
}

// Render writes spec to w. Specs without any drawable sample produce a
// titled blank canvas rather than an error.
func (r *Renderer) Render(w io.Writer, spec models.ChartSpec, format Format) error {
	width, height := spec.Width, spec.Height
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}

	series, xr, yr := r.plotSeries(spec.Series)
	if len(series) == 0 {
		return renderBlank(w, spec.Title, width, height, format)
	}

	ch := gochart.Chart{
		Title:      spec.Title,
		Width:      width,
		Height:     height,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      gochart.XAxis{Range: xr},
		YAxis:      gochart.YAxis{Range: yr},
		Series:     series,
	}
	if _, ok := series[0].(gochart.TimeSeries); ok {
		ch.XAxis.ValueFormatter = gochart.TimeMinuteValueFormatter
	}
	ch.Elements = []gochart.Renderable{gochart.Legend(&ch)}

	var provider gochart.RendererProvider = gochart.PNG
	if format == FormatSVG {
		provider = gochart.SVG
	}
	if err := ch.Render(provider, w); err != nil {
		return fmt.Errorf("rendering %q: %w", spec.Title, err)
	}
	return nil
}

// plotSeries converts spec series into go-chart series, dropping empty values.
// Explicit ranges are returned when the data would give go-chart a zero delta.
func (r *Renderer) plotSeries(in []models.Series) ([]gochart.Series, gochart.Range, gochart.Range) {
	var (
		out                    []gochart.Series
		minX, maxX, minY, maxY = math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)
	)

	for i, s := range in {
		style := gochart.Style{
			StrokeColor: palette[i%len(palette)],
			StrokeWidth: 2,
			FillColor:   palette[i%len(palette)].WithAlpha(48),
		}

		times, isTime := parser.ParseTimestamps(s.X, r.Location)
		var (
			xsT []time.Time
			xsF []float64
			ys  []float64
		)
		for j := 0; j < len(s.X) && j < len(s.Y); j++ {
			if s.Y[j] == nil {
				continue
			}
			y := *s.Y[j]
			var x float64
			if isTime {
				xsT = append(xsT, times[j])
				x = gochart.TimeToFloat64(times[j])
			} else {
				x = float64(j)
				xsF = append(xsF, x)
			}
			ys = append(ys, y)
			minX, maxX = math.Min(minX, x), math.Max(maxX, x)
			minY, maxY = math.Min(minY, y), math.Max(maxY, y)
		}
		if len(ys) == 0 {
			continue
		}

		if isTime {
			out = append(out, gochart.TimeSeries{Name: s.Label, XValues: xsT, YValues: ys, Style: style})
		} else {
			out = append(out, gochart.ContinuousSeries{Name: s.Label, XValues: xsF, YValues: ys, Style: style})
		}
	}

	if len(out) == 0 {
		return nil, nil, nil
	}

	var xr, yr gochart.Range
	if minX == maxX {
		pad := 1.0
		if _, ok := out[0].(gochart.TimeSeries); ok {
			pad = float64(time.Minute)
		}
		xr = &gochart.ContinuousRange{Min: minX - pad, Max: maxX + pad}
	}
	if minY == maxY {
		yr = &gochart.ContinuousRange{Min: minY - 1, Max: maxY + 1}
	}
	return out, xr, yr
}

// renderBlank draws a titled empty canvas so the dashboard keeps its layout
// when a day has no samples yet.
func renderBlank(w io.Writer, title string, width, height int, format Format) error {
	var provider gochart.RendererProvider = gochart.PNG
	if format == FormatSVG {
		provider = gochart.SVG
		// the svg renderer writes text verbatim
		title = html.EscapeString(title)
	}
	r, err := provider(width, height)
	if err != nil {
		return fmt.Errorf("blank canvas: %w", err)
	}
	font, err := gochart.GetDefaultFont()
	if err != nil {
		return fmt.Errorf("loading chart font: %w", err)
	}

	r.SetFillColor(drawing.ColorWhite)
	r.SetStrokeColor(drawing.ColorWhite)
	r.SetStrokeWidth(0)
	r.MoveTo(0, 0)
	r.LineTo(width, 0)
	r.LineTo(width, height)
	r.LineTo(0, height)
	r.Close()
	r.FillStroke()

	r.SetFont(font)
	centerText(r, title, 14, drawing.ColorBlack, width, 24)
	centerText(r, "No data", 12, blankHintColor, width, height/2)
	return r.Save(w)
}

var blankHintColor = drawing.ColorFromHex("888888")

func centerText(r gochart.Renderer, text string, size float64, color drawing.Color, width, y int) {
	if text == "" {
		return
	}
	r.SetFontSize(size)
	r.SetFontColor(color)
	box := r.MeasureText(text)
	x := (width - box.Width()) / 2
	if x < 0 {
		x = 0
	}
	r.Text(text, x, y)
}
