package xltag

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// testdataDir returns a scratch directory for generated templates and outputs.
func testdataDir(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}

// quietLogger discards everything.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// bufferLogger writes text logs into buf at debug level.
func bufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// newSheet builds a worksheet from a grid of strings. Empty strings leave the
// cell untouched.
func newSheet(rows ...[]string) *Worksheet {
	ws := NewWorksheet("Sheet1")
	for r, row := range rows {
		ws.ensureRow(r + 1)
		for c, v := range row {
			if v != "" {
				ws.SetValue(r+1, c+1, v)
			}
		}
	}
	return ws
}

// cellValue returns the value at (row, col) without creating the cell.
func cellValue(ws *Worksheet, row, col int) string {
	if c := ws.lookup(row, col); c != nil {
		return c.Value
	}
	return ""
}

// renderSheet renders ws with a quiet logger and fails the test on error.
func renderSheet(t *testing.T, ws *Worksheet, data any, opts ...Option) {
	t.Helper()
	allOpts := append([]Option{WithLogger(quietLogger())}, opts...)
	require.NoError(t, Render(context.Background(), ws, data, allOpts...))
}

// staticFetcher returns img for every URL and records the URLs asked for.
func staticFetcher(img []byte, urls *[]string) ImageFetcher {
	return ImageFetcherFunc(func(_ context.Context, url string) ([]byte, error) {
		if urls != nil {
			*urls = append(*urls, url)
		}
		return img, nil
	})
}

// tinyPNG encodes a w x h opaque PNG.
func tinyPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 30, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// writeTemplate builds an xlsx file with build and saves it under a scratch dir.
func writeTemplate(t *testing.T, name string, build func(f *excelize.File)) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	build(f)
	path := filepath.Join(testdataDir(t), name)
	require.NoError(t, f.SaveAs(path))
	return path
}

// openOutput opens rendered xlsx bytes.
func openOutput(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}
