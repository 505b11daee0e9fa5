package compositor

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// monoMeasurer gives every rune the same advance.
type monoMeasurer float64

func (m monoMeasurer) MeasureString(s string) (float64, float64) {
	return float64(utf8.RuneCountInString(s)) * float64(m), float64(m)
}

func TestGeometry(t *testing.T) {
	g := DefaultLayout().Geometry(1080, 1920)

	assert.InDelta(t, 86.4, g.Padding, 1e-9)
	assert.InDelta(t, 907.2, g.MaxTextWidth, 1e-9)
	assert.Equal(t, 59.0, g.FontSize, "font size is floored")
	assert.InDelta(t, 73.75, g.LineHeight, 1e-9)
	assert.InDelta(t, 288.0, g.StartY, 1e-9)
	assert.InDelta(t, 29.5, g.WatermarkSize, 1e-9)
	assert.InDelta(t, 1026.0, g.WatermarkX, 1e-9)
	assert.InDelta(t, 1866.0, g.WatermarkY, 1e-9)

	box := g.Backdrop(2)
	assert.InDelta(t, 43.2, box.X, 1e-9)
	assert.InDelta(t, 207.4, box.Y, 1e-9)
	assert.InDelta(t, 993.6, box.W, 1e-9)
	assert.InDelta(t, 233.9, box.H, 1e-9)
}

func TestGeometryTinyCanvasKeepsUsableFont(t *testing.T) {
	g := DefaultLayout().Geometry(10, 10)
	assert.Equal(t, 1.0, g.FontSize)
}

func TestBackdropCoversEveryLine(t *testing.T) {
	g := DefaultLayout().Geometry(1080, 1920)
	for n := 1; n <= 8; n++ {
		box := g.Backdrop(n)
		ys := g.Baselines(n)
		require.Len(t, ys, n)

		assert.LessOrEqual(t, box.Y, ys[0]-g.FontSize, "top of first line, %d lines", n)
		assert.GreaterOrEqual(t, box.Y+box.H, ys[n-1], "last baseline, %d lines", n)
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxWidth float64
		want     []string
	}{
		{"fits on one line", "CUT LOSSES EARLY", 100, []string{"CUT LOSSES EARLY"}},
		{"wraps greedily", "aa bb cc dd", 10, []string{"aa bb cc", "dd"}},
		{"exact fit is kept", "aaaa bbbbb", 10, []string{"aaaa bbbbb"}},
		{"long word overflows alone", "a supercalifragilistic b", 5, []string{"a", "supercalifragilistic", "b"}},
		{"long first word", "supercalifragilistic a", 5, []string{"supercalifragilistic", "a"}},
		{"collapses whitespace", "  cut\tlosses \n early ", 100, []string{"cut losses early"}},
		{"empty", "", 100, []string{""}},
		{"whitespace only", " \t ", 100, []string{""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Wrap(tt.text, tt.maxWidth, monoMeasurer(1)))
		})
	}
}

func TestWrapPreservesWordsAndWidth(t *testing.T) {
	texts := []string{
		"the market rewards patience and punishes traders who chase every single move",
		"plan the trade trade the plan",
		"risk management is the only holy grail you will ever find in these markets",
		"x",
		"antidisestablishmentarianism is long but so is overconfidence",
	}
	m := monoMeasurer(7)
	for _, text := range texts {
		for _, maxWidth := range []float64{35, 70, 140, 400} {
			lines := Wrap(text, maxWidth, m)

			assert.Equal(t, strings.Fields(text), strings.Fields(strings.Join(lines, " ")), "words of %q at %v", text, maxWidth)
			for _, line := range lines {
				w, _ := m.MeasureString(line)
				if w > maxWidth {
					assert.Len(t, strings.Fields(line), 1, "only a single word may overflow: %q", line)
				}
			}
		}
	}
}
