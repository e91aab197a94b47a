package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"time"

	"github.com/fogleman/gg"
	"go.uber.org/zap"

	"github.com/lcdhud/lcdhud/internal/frame"
	"github.com/lcdhud/lcdhud/internal/metrics"
	"github.com/lcdhud/lcdhud/pkg/theme"
)

// Generator produces fully composed, rotated output frames for one
// display configuration. It owns the background state and the text
// renderer; a config reload builds a fresh Generator and discards the
// old one.
type Generator struct {
	cfg      *theme.Config
	frames   *frame.Manager
	renderer *Renderer
	fg       image.Image
	log      *zap.Logger
}

func NewGenerator(cfg *theme.Config, registry *metrics.Registry, ffmpegPath string, log *zap.Logger) *Generator {
	g := &Generator{
		cfg:      cfg,
		frames:   frame.NewManager(cfg, registry, ffmpegPath, log),
		renderer: NewRenderer(cfg.FontPath, log),
		log:      log,
	}
	if f := cfg.Foreground; f != nil {
		img, err := loadOverlay(f.Path)
		if err != nil {
			log.Error("foreground load failed, skipping overlay",
				zap.String("path", f.Path), zap.Error(err))
		} else {
			g.fg = img
		}
	}
	return g
}

// Next returns the frame for now and how long it remains current.
func (g *Generator) Next(now time.Time) (*image.RGBA, time.Duration) {
	bg, d := g.frames.CurrentFrame(now)
	samples := g.frames.SampleMetrics()
	return g.Compose(bg, samples, now), d
}

// Cursor exposes the background frame index, for tests and diagnostics.
func (g *Generator) Cursor() int { return g.frames.Cursor() }

// Compose layers the background, the foreground overlay and every
// widget, then applies the configured rotation. It is a pure function
// of its arguments: identical inputs yield byte-identical frames. The
// result is always exactly the configured output size.
func (g *Generator) Compose(bg image.Image, samples map[metrics.Kind]metrics.Sample, now time.Time) *image.RGBA {
	canvas := image.NewRGBA(g.cfg.Bounds())

	if op := g.cfg.Background.Opacity; op < 1 {
		// dimmed backgrounds fade toward the configured background color
		draw.Draw(canvas, canvas.Bounds(), image.NewUniform(g.cfg.Background.Color), image.Point{}, draw.Src)
		a := uint8(op*255 + 0.5)
		draw.DrawMask(canvas, canvas.Bounds(), bg, bg.Bounds().Min,
			&image.Uniform{color.Alpha{A: a}}, image.Point{}, draw.Over)
	} else {
		draw.Draw(canvas, canvas.Bounds(), bg, bg.Bounds().Min, draw.Src)
	}

	if g.fg != nil {
		f := g.cfg.Foreground
		fb := g.fg.Bounds()
		r := image.Rectangle{Min: f.Offset, Max: f.Offset.Add(fb.Size())}
		if f.Opacity < 1 {
			a := uint8(f.Opacity*255 + 0.5)
			draw.DrawMask(canvas, r, g.fg, fb.Min,
				&image.Uniform{color.Alpha{A: a}}, image.Point{}, draw.Over)
		} else {
			draw.Draw(canvas, r, g.fg, fb.Min, draw.Over)
		}
	}

	dc := gg.NewContextForRGBA(canvas)
	if w := g.cfg.Date; w != nil {
		g.renderer.drawDate(dc, w, now)
	}
	if w := g.cfg.Time; w != nil {
		g.renderer.drawTime(dc, w, now)
	}
	for i := range g.cfg.Metrics {
		w := &g.cfg.Metrics[i]
		g.renderer.drawMetric(dc, w, sampleFor(samples, w.Kind))
	}
	for i := range g.cfg.Bars {
		w := &g.cfg.Bars[i]
		g.renderer.drawBar(dc, w, sampleFor(samples, w.Kind))
	}
	for i := range g.cfg.Texts {
		w := &g.cfg.Texts[i]
		g.renderer.DrawText(dc, w.Text, w.Position, w.Style)
	}

	return rotate(canvas, g.cfg.Rotation)
}

func sampleFor(samples map[metrics.Kind]metrics.Sample, kind string) metrics.Sample {
	s, ok := samples[metrics.Kind(kind)]
	if !ok {
		return metrics.Sample{Kind: metrics.Kind(kind), Unavailable: true}
	}
	return s
}

func loadOverlay(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open overlay: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode overlay %s: %w", path, err)
	}
	return img, nil
}
