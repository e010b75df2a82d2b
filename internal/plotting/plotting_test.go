package plotting

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/parking.report/internal/envelope"
	"github.com/banshee-data/parking.report/internal/fsutil"
)

func testChart(t *testing.T) Chart {
	t.Helper()
	points, err := envelope.Map([]uint16{10, 40, 900, 120, 30}, 0.12, 0.60)
	require.NoError(t, err)
	return Chart{Title: "Sensor 1 calibration", Subtitle: "mean 15.0", Points: points, Threshold: 800}
}

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func TestWritePNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, testChart(t)))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, testChart(t)))
	html := buf.String()
	assert.Contains(t, html, "Sensor 1 calibration")
	assert.Contains(t, html, "threshold")
	assert.Contains(t, html, "0.216")
}

func TestNoData(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, WritePNG(&buf, Chart{}), ErrNoData)
	assert.ErrorIs(t, WriteHTML(&buf, Chart{}), ErrNoData)
}

func TestRender(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	c := testChart(t)

	require.NoError(t, Render(fsys, "out/sweep.png", c))
	data, err := fsys.ReadFile("out/sweep.png")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic))

	require.NoError(t, Render(fsys, "sweep.HTML", c))
	data, err = fsys.ReadFile("sweep.HTML")
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "<html"))
}

func TestRenderUnsupported(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	err := Render(fsys, "sweep.svg", testChart(t))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Empty(t, fsys.Files())
}

func TestRenderEmptyChartCreatesNothing(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	assert.ErrorIs(t, Render(fsys, "sweep.png", Chart{}), ErrNoData)
	assert.Empty(t, fsys.Files())
}
