package imaging

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"incident-insights-go/internal/types"
)

const bannerHeight = 40

var (
	labelNormal = color.RGBA{G: 0xc0, A: 0xff}
	labelAlert  = color.RGBA{R: 0xff, A: 0xff}
)

// FrameAnnotator writes "CATEGORY - 0.85" banner copies of classified frames.
// Safe for concurrent use by dispatcher workers.
type FrameAnnotator struct {
	outputDir    string
	maxDimension int
	saved        atomic.Uint64
	dropped      atomic.Uint64
}

func NewFrameAnnotator(outputDir string, maxDimension int) (*FrameAnnotator, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create annotation directory: %w", err)
	}
	return &FrameAnnotator{outputDir: outputDir, maxDimension: maxDimension}, nil
}

// Annotate returns the path of the written JPEG. Filename: {session}_{index}.jpg
func (a *FrameAnnotator) Annotate(unit types.AnalysisUnit, c types.Classification) (string, error) {
	src, err := Decode(unit.Payload)
	if err != nil {
		a.dropped.Add(1)
		return "", err
	}
	img := Label(Thumbnail(src, a.maxDimension), c)
	data, err := EncodeJPEG(img, 90)
	if err != nil {
		a.dropped.Add(1)
		return "", err
	}
	session := unit.Session
	if session == "" {
		session = "frame"
	}
	path := filepath.Join(a.outputDir, fmt.Sprintf("%s_%d.jpg", session, unit.Index))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		a.dropped.Add(1)
		return "", fmt.Errorf("write annotated frame: %w", err)
	}
	a.saved.Add(1)
	return path, nil
}

// Stats reports saved and dropped counts.
func (a *FrameAnnotator) Stats() (saved, dropped uint64) {
	return a.saved.Load(), a.dropped.Load()
}

// Label draws a black banner across the top with the category and confidence.
func Label(src image.Image, c types.Classification) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)

	banner := image.Rect(0, 0, b.Dx(), min(bannerHeight, b.Dy()))
	draw.Draw(dst, banner, image.NewUniform(color.Black), image.Point{}, draw.Src)

	fg := labelAlert
	if c.Category == types.CategoryNormal {
		fg = labelNormal
	}
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(fg),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(10, 25),
	}
	d.DrawString(fmt.Sprintf("%s - %.2f", strings.ToUpper(c.Category), c.Confidence))
	return dst
}
