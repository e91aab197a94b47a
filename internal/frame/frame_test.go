package frame

import (
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/lcdhud/lcdhud/internal/metrics"
	"github.com/lcdhud/lcdhud/pkg/theme"
)

func writePNG(t *testing.T, path string, c color.NRGBA, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		switch i % 4 {
		case 0:
			img.Pix[i] = c.R
		case 1:
			img.Pix[i] = c.G
		case 2:
			img.Pix[i] = c.B
		case 3:
			img.Pix[i] = c.A
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

func writeGIF(t *testing.T, path string, frames int, delayCentisec int) {
	t.Helper()
	g := &gif.GIF{}
	palette := color.Palette{color.Black, color.White}
	for i := 0; i < frames; i++ {
		img := image.NewPaletted(image.Rect(0, 0, 8, 8), palette)
		g.Image = append(g.Image, img)
		g.Delay = append(g.Delay, delayCentisec)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := gif.EncodeAll(f, g); err != nil {
		t.Fatal(err)
	}
}

func colorConfig(c color.NRGBA) *theme.Config {
	return &theme.Config{
		OutputWidth:     320,
		OutputHeight:    240,
		RefreshInterval: time.Second,
		Background:      theme.Background{Kind: theme.BackgroundColor, Color: c},
	}
}

func TestFrameSizePerKind(t *testing.T) {
	dir := t.TempDir()
	log := zap.NewNop()
	reg := metrics.NewRegistry(log)

	bgPNG := filepath.Join(dir, "bg.png")
	writePNG(t, bgPNG, color.NRGBA{10, 20, 30, 255}, 64, 48)

	bgGIF := filepath.Join(dir, "bg.gif")
	writeGIF(t, bgGIF, 3, 10)

	collDir := filepath.Join(dir, "coll")
	if err := os.Mkdir(collDir, 0755); err != nil {
		t.Fatal(err)
	}
	writePNG(t, filepath.Join(collDir, "a.png"), color.NRGBA{255, 0, 0, 255}, 10, 10)
	writePNG(t, filepath.Join(collDir, "b.png"), color.NRGBA{0, 0, 255, 255}, 500, 500)

	cases := []struct {
		name string
		bg   theme.Background
	}{
		{"color", theme.Background{Kind: theme.BackgroundColor, Color: color.NRGBA{A: 255}}},
		{"image", theme.Background{Kind: theme.BackgroundImage, Path: bgPNG}},
		{"gif", theme.Background{Kind: theme.BackgroundGIF, Path: bgGIF}},
		{"collection", theme.Background{Kind: theme.BackgroundCollection, Path: collDir}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := colorConfig(color.NRGBA{A: 255})
			cfg.Background = tc.bg
			m := NewManager(cfg, reg, "ffmpeg", log)

			img, d := m.CurrentFrame(time.Now())
			b := img.Bounds()
			if b.Dx() != 320 || b.Dy() != 240 {
				t.Errorf("got frame %dx%d, want 320x240", b.Dx(), b.Dy())
			}
			if d <= 0 {
				t.Errorf("got non-positive duration %v", d)
			}
		})
	}
}

func TestVideoFallsBackToStillDecode(t *testing.T) {
	// the "video" is a decodable still and the decoder binary does not
	// exist, the degrade path the video kind takes on hosts without it
	path := filepath.Join(t.TempDir(), "clip.mp4")
	writePNG(t, path, color.NRGBA{0, 200, 0, 255}, 64, 48)

	cfg := colorConfig(color.NRGBA{A: 255})
	cfg.Background = theme.Background{Kind: theme.BackgroundVideo, Path: path, ScaleMode: theme.ScaleStretch}
	m := NewManager(cfg, metrics.NewRegistry(zap.NewNop()), "/nonexistent/ffmpeg", zap.NewNop())

	img, d := m.CurrentFrame(time.Now())
	b := img.Bounds()
	if b.Dx() != 320 || b.Dy() != 240 {
		t.Fatalf("got frame %dx%d, want 320x240", b.Dx(), b.Dy())
	}
	if d != time.Second {
		t.Errorf("got duration %v, want refresh interval", d)
	}
	r, g, bl, _ := img.At(160, 120).RGBA()
	if r>>8 > 40 || g>>8 < 150 || bl>>8 > 40 {
		t.Errorf("center pixel (%d,%d,%d), want the still's green, not the fallback frame",
			r>>8, g>>8, bl>>8)
	}
}

func TestMissingMediaFallsBackToBlack(t *testing.T) {
	cfg := colorConfig(color.NRGBA{A: 255})
	cfg.Background = theme.Background{Kind: theme.BackgroundImage, Path: "/nonexistent/bg.png"}
	m := NewManager(cfg, metrics.NewRegistry(zap.NewNop()), "ffmpeg", zap.NewNop())

	img, d := m.CurrentFrame(time.Now())
	b := img.Bounds()
	if b.Dx() != 320 || b.Dy() != 240 {
		t.Fatalf("got fallback %dx%d, want 320x240", b.Dx(), b.Dy())
	}
	if d != time.Second {
		t.Errorf("got duration %v, want refresh interval", d)
	}
	r, g, bl, a := img.At(160, 120).RGBA()
	if r != 0 || g != 0 || bl != 0 || a != 0xffff {
		t.Errorf("fallback pixel not opaque black: %d %d %d %d", r, g, bl, a)
	}
}

func TestCollectionSkipsUndecodableItems(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), color.NRGBA{255, 0, 0, 255}, 10, 10)
	if err := os.WriteFile(filepath.Join(dir, "b.png"), []byte("not a png"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := colorConfig(color.NRGBA{A: 255})
	cfg.Background = theme.Background{Kind: theme.BackgroundCollection, Path: dir}
	m := NewManager(cfg, metrics.NewRegistry(zap.NewNop()), "ffmpeg", zap.NewNop())

	if got := len(m.bg.frames); got != 1 {
		t.Errorf("got %d frames, want 1 (bad item skipped)", got)
	}
}

func TestCursorAdvancesModuloN(t *testing.T) {
	const n = 4
	d := 100 * time.Millisecond

	bg := &Background{kind: theme.BackgroundCollection}
	for i := 0; i < n; i++ {
		bg.push(image.NewRGBA(image.Rect(0, 0, 8, 8)), d)
	}

	start := time.Now()
	bg.Advance(start)

	for _, k := range []int{1, 2, 3, 4, 5, 9, 17} {
		// elapsed = k*d + eps with 0 < eps < d
		now := start.Add(time.Duration(k)*d + d/4)
		bg.Advance(now)
		if got, want := bg.Cursor(), k%n; got != want {
			t.Errorf("after %d periods: cursor = %d, want %d", k, got, want)
		}
	}
}

func TestAdvanceReturnsRemaining(t *testing.T) {
	d := 200 * time.Millisecond
	bg := &Background{kind: theme.BackgroundGIF}
	bg.push(image.NewRGBA(image.Rect(0, 0, 8, 8)), d)
	bg.push(image.NewRGBA(image.Rect(0, 0, 8, 8)), d)

	start := time.Now()
	bg.Advance(start)

	_, remaining := bg.Advance(start.Add(50 * time.Millisecond))
	if remaining != 150*time.Millisecond {
		t.Errorf("got remaining %v, want 150ms", remaining)
	}
}

func TestStaticImageNeverAdvances(t *testing.T) {
	bg := &Background{kind: theme.BackgroundImage}
	bg.push(image.NewRGBA(image.Rect(0, 0, 8, 8)), time.Second)

	start := time.Now()
	bg.Advance(start)
	bg.Advance(start.Add(time.Hour))
	if bg.Cursor() != 0 {
		t.Errorf("static cursor moved to %d", bg.Cursor())
	}
}

func TestGIFDurationFloor(t *testing.T) {
	if got := gifFrameDuration([]int{1}, 0); got != minGIFFrameDuration {
		t.Errorf("got %v, want floor %v", got, minGIFFrameDuration)
	}
	if got := gifFrameDuration([]int{0}, 0); got != defaultGIFFrameDuration {
		t.Errorf("got %v, want default %v", got, defaultGIFFrameDuration)
	}
	if got := gifFrameDuration([]int{50}, 0); got != 500*time.Millisecond {
		t.Errorf("got %v, want 500ms", got)
	}
}

func TestScaleModesProduceExactSize(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 37, 91))
	for _, mode := range []theme.ScaleMode{
		theme.ScaleStretch, theme.ScaleFit, theme.ScaleFill,
		theme.ScaleCentered, theme.ScaleTiled,
	} {
		got := scaleToCanvas(src, 320, 240, mode)
		if got.Bounds().Dx() != 320 || got.Bounds().Dy() != 240 {
			t.Errorf("mode %s: got %v", mode, got.Bounds())
		}
	}
}
