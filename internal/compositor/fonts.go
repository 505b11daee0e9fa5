package compositor

import (
	"fmt"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
)

// Fonts holds the parsed typeface used for the headline and the watermark.
// The parsed font is read-only and may be shared; faces are not, so every
// compose call asks for its own.
type Fonts struct {
	bold *opentype.Font
}

// DefaultFonts uses the embedded Go Bold typeface.
func DefaultFonts() (*Fonts, error) {
	f, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse embedded font: %w", err)
	}
	return &Fonts{bold: f}, nil
}

// LoadFonts reads a TTF/OTF file, typically a black-weight face.
func LoadFonts(path string) (*Fonts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", path, err)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}
	return &Fonts{bold: f}, nil
}

// Face returns a new face at size pixels. The caller closes it.
func (f *Fonts) Face(size float64) (font.Face, error) {
	face, err := opentype.NewFace(f.bold, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create %.0fpx face: %w", size, err)
	}
	return face, nil
}
