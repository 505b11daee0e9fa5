// Package compositor turns a generated story image and its key takeaway into a
// downloadable PNG: the takeaway is wrapped into a centered headline over a
// translucent backdrop and the brand watermark is stamped bottom-right.
//
// Every call owns its canvas, faces and line buffer, so a Compositor can be
// used from many goroutines at once.
package compositor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrDecode means the source could not be fetched or decoded in time.
	ErrDecode = errors.New("source image could not be decoded")

	// ErrEncode means the composed canvas could not be serialized.
	ErrEncode = errors.New("composed image could not be encoded")
)

// Result is a composed image ready to be saved.
type Result struct {
	PNG      []byte
	Filename string
	Width    int
	Height   int
	Lines    []string
}

// Compositor draws headlines and watermarks onto source images.
type Compositor struct {
	layout Layout
	fonts  *Fonts
	loader *Loader
	now    func() time.Time
}

// Option configures a Compositor.
type Option func(*Compositor)

// WithLayout overrides DefaultLayout.
func WithLayout(l Layout) Option {
	return func(c *Compositor) { c.layout = l }
}

// WithFonts overrides the embedded typeface.
func WithFonts(f *Fonts) Option {
	return func(c *Compositor) { c.fonts = f }
}

// WithLoader overrides the source loader.
func WithLoader(l *Loader) Option {
	return func(c *Compositor) { c.loader = l }
}

// WithClock sets the time source used for download filenames.
func WithClock(now func() time.Time) Option {
	return func(c *Compositor) { c.now = now }
}

// New returns a Compositor with the default layout, the embedded font and a
// loader that only accepts data URIs and http(s) URLs.
func New(opts ...Option) (*Compositor, error) {
	c := &Compositor{
		layout: DefaultLayout(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.fonts == nil {
		f, err := DefaultFonts()
		if err != nil {
			return nil, err
		}
		c.fonts = f
	}
	if c.loader == nil {
		c.loader = NewLoader(0, false)
	}
	return c, nil
}

// Filename returns a unique download name for t.
func Filename(t time.Time) string {
	return fmt.Sprintf("WallJourney-%d.png", t.UnixMilli())
}

// Compose loads source and overlays text on it.
func (c *Compositor) Compose(ctx context.Context, source, text string) (*Result, error) {
	img, err := c.loader.Load(ctx, source)
	if err != nil {
		return nil, err
	}
	return c.ComposeImage(img, text)
}

// ComposeImage overlays text on an already decoded image.
func (c *Compositor) ComposeImage(img image.Image, text string) (*Result, error) {
	src := imaging.Clone(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("%w: image has no pixels", ErrDecode)
	}

	g := c.layout.Geometry(w, h)

	headline, err := c.fonts.Face(g.FontSize)
	if err != nil {
		return nil, err
	}
	defer headline.Close()

	watermark, err := c.fonts.Face(g.WatermarkSize)
	if err != nil {
		return nil, err
	}
	defer watermark.Close()

	dc := gg.NewContext(w, h)
	dc.DrawImage(src, 0, 0)

	dc.SetFontFace(headline)
	lines := Wrap(strings.ToUpper(text), g.MaxTextWidth, dc)

	box := g.Backdrop(len(lines))
	dc.SetRGBA(0, 0, 0, c.layout.BackdropOpacity)
	dc.DrawRectangle(box.X, box.Y, box.W, box.H)
	dc.Fill()

	if c.layout.ShadowBlur > 0 {
		dc.DrawImage(c.shadow(headline, g, lines), 0, 0)
	}

	dc.SetRGB(1, 1, 1)
	for i, y := range g.Baselines(len(lines)) {
		dc.DrawStringAnchored(lines[i], float64(w)/2, y, 0.5, 0)
	}

	dc.SetFontFace(watermark)
	dc.SetRGBA(1, 1, 1, c.layout.WatermarkOpacity)
	dc.DrawStringAnchored(Watermark, g.WatermarkX, g.WatermarkY, 1, 0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, dc.Image(), imaging.PNG); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}

	return &Result{
		PNG:      buf.Bytes(),
		Filename: Filename(c.now()),
		Width:    w,
		Height:   h,
		Lines:    lines,
	}, nil
}

// shadow renders the headline in the shadow color on a transparent layer and
// blurs it.
func (c *Compositor) shadow(face font.Face, g Geometry, lines []string) image.Image {
	layer := gg.NewContext(g.Width, g.Height)
	layer.SetFontFace(face)
	layer.SetRGBA(0, 0, 0, c.layout.ShadowOpacity)
	for i, y := range g.Baselines(len(lines)) {
		layer.DrawStringAnchored(lines[i], float64(g.Width)/2, y, 0.5, 0)
	}
	return imaging.Blur(layer.Image(), c.layout.ShadowBlur/2)
}

// Job is one source/text pair for ComposeAll.
type Job struct {
	Source string
	Text   string
}

// ComposeAll composes jobs concurrently, at most limit at a time (unbounded
// when limit <= 0). Results keep the order of jobs. The first failure cancels
// the jobs that have not started loading yet.
func (c *Compositor) ComposeAll(ctx context.Context, jobs []Job, limit int) ([]*Result, error) {
	results := make([]*Result, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, job := range jobs {
		g.Go(func() error {
			res, err := c.Compose(ctx, job.Source, job.Text)
			if err != nil {
				return fmt.Errorf("job %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
