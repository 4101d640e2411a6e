package chart

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"github.com/smart-distancing/dashboard/internal/models"
	"github.com/smart-distancing/dashboard/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderPNG(t *testing.T, spec models.ChartSpec) (int, int) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, NewRenderer(time.UTC).Render(&buf, spec, FormatPNG))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	b := img.Bounds()
	return b.Dx(), b.Dy()
}

func TestRenderer_Render(t *testing.T) {
	records, err := parser.ParseObjectsLogString(exampleLog)
	require.NoError(t, err)
	set := Build(records).WithWidth(640)

	w, h := renderPNG(t, set.Pedestrians)
	assert.Equal(t, 640, w)
	assert.Equal(t, DefaultHeight, h)

	w, _ = renderPNG(t, set.EnvironmentScore)
	assert.Equal(t, 640, w)
}

func TestRenderer_SVG(t *testing.T) {
	records, err := parser.ParseObjectsLogString(exampleLog)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewRenderer(time.UTC).Render(&buf, Build(records).Pedestrians, FormatSVG))
	assert.Contains(t, buf.String(), "<svg")
}

func TestRenderer_EmptyAndDegenerateData(t *testing.T) {
	tests := []struct {
		name string
		log  string
	}{
		{"header only", "Timestamp,DetectedObjects,ViolatingObjects,EnvironmentScore\n"},
		{"empty body", ""},
		{"single sample", "Timestamp,DetectedObjects,ViolatingObjects,EnvironmentScore\n2024-01-01 00:00:00,1,0,0.9\n"},
		{"constant values", "Timestamp,DetectedObjects,ViolatingObjects,EnvironmentScore\n2024-01-01 00:00:00,0,0,1\n2024-01-01 00:00:01,0,0,1\n"},
		{"all values missing", "Timestamp\n2024-01-01 00:00:00\n"},
		{"unparseable timestamps", "Timestamp,DetectedObjects,ViolatingObjects,EnvironmentScore\nfirst,1,0,1\nsecond,2,1,0.5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := parser.ParseObjectsLogString(tt.log)
			require.NoError(t, err)
			set := Build(records)

			for _, format := range []Format{FormatPNG, FormatSVG} {
				var buf bytes.Buffer
				assert.NoError(t, NewRenderer(time.UTC).Render(&buf, set.Pedestrians, format))
				assert.NoError(t, NewRenderer(time.UTC).Render(&buf, set.EnvironmentScore, format))
				assert.NotZero(t, buf.Len())
			}
		})
	}
}

func TestRenderer_BlankKeepsGeometry(t *testing.T) {
	spec := Build(nil).WithWidth(333)
	w, h := renderPNG(t, spec.Pedestrians)
	assert.Equal(t, 333, w)
	assert.Equal(t, DefaultHeight, h)
}

func TestRenderer_BlankCarriesTitle(t *testing.T) {
	spec := Build(nil).Pedestrians

	var buf bytes.Buffer
	require.NoError(t, NewRenderer(time.UTC).Render(&buf, spec, FormatPNG))
	img, err := png.Decode(&buf)
	require.NoError(t, err)

	// the title band holds dark text pixels, the rest of the top row is white
	dark := 0
	b := img.Bounds()
	for y := 0; y < 40; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			if r < 0x8000 && g < 0x8000 && bl < 0x8000 {
				dark++
			}
		}
	}
	assert.Greater(t, dark, 0, "blank png has a visible title")

	buf.Reset()
	require.NoError(t, NewRenderer(time.UTC).Render(&buf, spec, FormatSVG))
	assert.Contains(t, buf.String(), "<svg")
	assert.Contains(t, buf.String(), TitlePedestrians)
	assert.Contains(t, buf.String(), "No data")
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, f)

	f, err = ParseFormat("SVG")
	require.NoError(t, err)
	assert.Equal(t, FormatSVG, f)
	assert.Equal(t, "image/svg+xml", f.ContentType())
	assert.Equal(t, "image/png", FormatPNG.ContentType())

	_, err = ParseFormat("gif")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
