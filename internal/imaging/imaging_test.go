package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incident-insights-go/internal/types"
)

func solidPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestThumbnailKeepsAspect(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1600, 900))
	out := Thumbnail(img, 800)
	assert.Equal(t, 800, out.Bounds().Dx())
	assert.Equal(t, 450, out.Bounds().Dy())

	small := image.NewRGBA(image.Rect(0, 0, 100, 50))
	assert.Same(t, small, Thumbnail(small, 800))
}

func TestShrinkLeavesSmallImagesAlone(t *testing.T) {
	data := solidPNG(t, 64, 32)
	out, mime, err := Shrink(data, 800)
	require.NoError(t, err)
	assert.Equal(t, data, out)
	assert.Empty(t, mime)

	big := solidPNG(t, 1000, 200)
	out, mime, err = Shrink(big, 500)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mime)
	img, err := Decode(out)
	require.NoError(t, err)
	assert.Equal(t, 500, img.Bounds().Dx())
}

func TestLabelPaintsBanner(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	out := Label(img, types.Classification{Category: "arson", Confidence: 0.9})
	r, g, b, _ := out.At(199, 5).RGBA()
	assert.Zero(t, r+g+b, "banner should be black at the right edge")
	r, g, b, _ = out.At(100, 80).RGBA()
	assert.Zero(t, r+g+b, "body untouched")
}

func TestAnnotatorWritesFile(t *testing.T) {
	dir := t.TempDir()
	a, err := NewFrameAnnotator(dir, 800)
	require.NoError(t, err)

	path, err := a.Annotate(types.AnalysisUnit{Index: 48, Session: "s1", Payload: solidPNG(t, 120, 90)},
		types.Classification{Category: "normal", Confidence: 0.7})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "s1_48.jpg"), path)
	_, err = os.Stat(path)
	require.NoError(t, err)

	_, err = a.Annotate(types.AnalysisUnit{Payload: []byte("nope")}, types.Classification{})
	require.Error(t, err)
	saved, dropped := a.Stats()
	assert.Equal(t, uint64(1), saved)
	assert.Equal(t, uint64(1), dropped)
}
