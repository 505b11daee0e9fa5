package compositor

import (
	"math"
	"strings"
)

// Watermark is stamped bottom-right on every composed image.
const Watermark = "© WALL JOURNEY"

// Layout holds the proportional constants that position the headline, its
// backdrop and the watermark. Fractions are relative to the canvas width unless
// the name says otherwise.
type Layout struct {
	PaddingFraction         float64 // horizontal padding, applied on both sides
	FontSizeFraction        float64 // headline font size
	LineHeightMultiplier    float64 // line advance as a multiple of font size
	StartYFraction          float64 // first baseline, fraction of canvas height
	WatermarkMarginFraction float64 // watermark inset from the bottom-right corner
	WatermarkScale          float64 // watermark size relative to the headline
	BackdropOpacity         float64
	WatermarkOpacity        float64
	ShadowOpacity           float64
	ShadowBlur              float64 // canvas-style blur; the Gaussian sigma is half of it
}

// DefaultLayout returns the story layout used for every download.
func DefaultLayout() Layout {
	return Layout{
		PaddingFraction:         0.08,
		FontSizeFraction:        0.055,
		LineHeightMultiplier:    1.25,
		StartYFraction:          0.15,
		WatermarkMarginFraction: 0.05,
		WatermarkScale:          0.5,
		BackdropOpacity:         0.75,
		WatermarkOpacity:        0.5,
		ShadowOpacity:           0.5,
		ShadowBlur:              10,
	}
}

// Rect is an axis-aligned rectangle in canvas pixels.
type Rect struct {
	X, Y, W, H float64
}

// Geometry is the layout resolved against a concrete canvas size.
type Geometry struct {
	Width, Height int

	Padding      float64
	MaxTextWidth float64
	FontSize     float64
	LineHeight   float64
	StartY       float64

	WatermarkSize float64
	WatermarkX    float64
	WatermarkY    float64
}

// Geometry resolves l for a canvas of w×h pixels.
func (l Layout) Geometry(w, h int) Geometry {
	width := float64(w)
	height := float64(h)

	padding := width * l.PaddingFraction
	fontSize := math.Max(1, math.Floor(width*l.FontSizeFraction))
	margin := width * l.WatermarkMarginFraction

	return Geometry{
		Width:         w,
		Height:        h,
		Padding:       padding,
		MaxTextWidth:  width - 2*padding,
		FontSize:      fontSize,
		LineHeight:    fontSize * l.LineHeightMultiplier,
		StartY:        height * l.StartYFraction,
		WatermarkSize: fontSize * l.WatermarkScale,
		WatermarkX:    width - margin,
		WatermarkY:    height - margin,
	}
}

// Backdrop returns the readability box behind n headline lines. It starts one
// font size plus a quarter padding above the first baseline so the ascenders of
// the first line are covered.
func (g Geometry) Backdrop(n int) Rect {
	return Rect{
		X: g.Padding / 2,
		Y: g.StartY - g.FontSize - g.Padding/4,
		W: float64(g.Width) - g.Padding,
		H: float64(n)*g.LineHeight + g.Padding,
	}
}

// Baselines returns the y coordinate of each of n headline lines.
func (g Geometry) Baselines(n int) []float64 {
	ys := make([]float64, n)
	for i := range ys {
		ys[i] = g.StartY + float64(i)*g.LineHeight
	}
	return ys
}

// Measurer reports the rendered size of a string in the current font.
// *gg.Context satisfies it.
type Measurer interface {
	MeasureString(s string) (w, h float64)
}

// Wrap greedily packs the whitespace-separated words of text into lines no
// wider than maxWidth. A word that is wider than maxWidth on its own is never
// split; it gets a line to itself and overflows. Empty text yields a single
// empty line.
func Wrap(text string, maxWidth float64, m Measurer) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	line := words[0]
	for _, word := range words[1:] {
		candidate := line + " " + word
		if w, _ := m.MeasureString(candidate); w > maxWidth {
			lines = append(lines, line)
			line = word
			continue
		}
		line = candidate
	}
	return append(lines, line)
}
