package frame

import (
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"go.uber.org/zap"

	"github.com/lcdhud/lcdhud/pkg/theme"
)

// MediaError reports a missing or undecodable asset. It degrades to a
// fallback frame rather than aborting the loop.
type MediaError struct {
	Path string
	Err  error
}

func (e *MediaError) Error() string {
	return fmt.Sprintf("media %s: %v", e.Path, e.Err)
}

func (e *MediaError) Unwrap() error { return e.Err }

const (
	// minGIFFrameDuration caps animation rate at roughly 15 fps.
	minGIFFrameDuration = 67 * time.Millisecond
	// defaultGIFFrameDuration applies when frame metadata carries no delay.
	defaultGIFFrameDuration = 100 * time.Millisecond
	// maxVideoFrames bounds decoded video memory.
	maxVideoFrames = 1800
)

var collectionExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".bmp": true, ".webp": true,
}

// Background is the tagged-union state machine over the five content
// kinds. All kinds reduce to an ordered (frame, duration) sequence with
// a cursor; static kinds hold a single entry that never advances.
type Background struct {
	kind      theme.BackgroundKind
	frames    []image.Image
	durations []time.Duration
	cursor    int
	started   time.Time // when the current frame became current
}

// newBackground loads the configured content. It returns an empty state
// (plus the error) when every item failed; the manager substitutes the
// fallback frame in that case.
func newBackground(cfg *theme.Config, ffmpegPath string, log *zap.Logger) (*Background, error) {
	b := &Background{kind: cfg.Background.Kind}
	width, height := cfg.Canvas()
	mode := cfg.Background.ScaleMode

	switch cfg.Background.Kind {
	case theme.BackgroundColor:
		img := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.Draw(img, img.Bounds(), image.NewUniform(cfg.Background.Color), image.Point{}, draw.Src)
		b.push(img, cfg.RefreshInterval)

	case theme.BackgroundImage:
		img, err := loadStill(cfg.Background.Path, width, height, mode)
		if err != nil {
			return b, err
		}
		b.push(img, cfg.RefreshInterval)

	case theme.BackgroundGIF:
		if err := b.loadGIF(cfg.Background.Path, width, height, mode); err != nil {
			return b, err
		}

	case theme.BackgroundVideo:
		if err := b.loadVideo(cfg.Background.Path, width, height, mode, ffmpegPath, log); err != nil {
			// ffmpeg missing or codec unsupported: try the path as a still
			log.Warn("video background unavailable, falling back to still decode",
				zap.String("path", cfg.Background.Path), zap.Error(err))
			img, stillErr := loadStill(cfg.Background.Path, width, height, mode)
			if stillErr != nil {
				return b, err
			}
			b.push(img, cfg.RefreshInterval)
		}

	case theme.BackgroundCollection:
		if err := b.loadCollection(cfg, log); err != nil {
			return b, err
		}

	default:
		return b, fmt.Errorf("unknown background kind %q", cfg.Background.Kind)
	}
	return b, nil
}

func (b *Background) push(img image.Image, d time.Duration) {
	b.frames = append(b.frames, img)
	b.durations = append(b.durations, d)
}

func (b *Background) empty() bool { return len(b.frames) == 0 }

// Advance returns the frame current at now and the time remaining before
// the next one is due. The cursor catches up when the caller is behind
// schedule, skipping intermediate frames, and wraps at the end.
func (b *Background) Advance(now time.Time) (image.Image, time.Duration) {
	if b.empty() {
		return nil, 0
	}
	if b.started.IsZero() {
		b.started = now
	}
	if len(b.frames) == 1 {
		return b.frames[0], b.durations[0]
	}

	elapsed := now.Sub(b.started)
	for elapsed >= b.durations[b.cursor] {
		elapsed -= b.durations[b.cursor]
		b.started = now.Add(-elapsed)
		b.cursor = (b.cursor + 1) % len(b.frames)
	}
	return b.frames[b.cursor], b.durations[b.cursor] - elapsed
}

// Cursor returns the current frame index.
func (b *Background) Cursor() int { return b.cursor }

func loadStill(path string, width, height int, mode theme.ScaleMode) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &MediaError{Path: path, Err: err}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &MediaError{Path: path, Err: err}
	}
	return scaleToCanvas(img, width, height, mode), nil
}

// loadGIF decodes all frames, coalescing partial frames over the
// previous canvas the way players present them.
func (b *Background) loadGIF(path string, width, height int, mode theme.ScaleMode) error {
	f, err := os.Open(path)
	if err != nil {
		return &MediaError{Path: path, Err: err}
	}
	defer f.Close()

	g, err := gif.DecodeAll(f)
	if err != nil {
		return &MediaError{Path: path, Err: err}
	}
	if len(g.Image) == 0 {
		return &MediaError{Path: path, Err: fmt.Errorf("gif has no frames")}
	}

	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() {
		bounds = g.Image[0].Bounds()
	}
	canvas := image.NewRGBA(bounds)

	for i, frame := range g.Image {
		draw.Draw(canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)

		snapshot := image.NewRGBA(bounds)
		copy(snapshot.Pix, canvas.Pix)
		b.push(scaleToCanvas(snapshot, width, height, mode), gifFrameDuration(g.Delay, i))

		if i < len(g.Disposal) && g.Disposal[i] == gif.DisposalBackground {
			draw.Draw(canvas, frame.Bounds(), image.Transparent, image.Point{}, draw.Src)
		}
	}
	return nil
}

func gifFrameDuration(delays []int, i int) time.Duration {
	if i >= len(delays) || delays[i] <= 0 {
		return defaultGIFFrameDuration
	}
	d := time.Duration(delays[i]) * 10 * time.Millisecond
	if d < minGIFFrameDuration {
		return minGIFFrameDuration
	}
	return d
}

// loadCollection loads the ordered still images of a directory (or the
// explicit path list), applying the config default duration per item. A
// single undecodable item is skipped; the error returns only when every
// item failed.
func (b *Background) loadCollection(cfg *theme.Config, log *zap.Logger) error {
	paths := cfg.Background.Paths
	if len(paths) == 0 {
		entries, err := os.ReadDir(cfg.Background.Path)
		if err != nil {
			return &MediaError{Path: cfg.Background.Path, Err: err}
		}
		for _, e := range entries {
			if e.IsDir() || !collectionExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
				continue
			}
			paths = append(paths, filepath.Join(cfg.Background.Path, e.Name()))
		}
		sort.Strings(paths)
	}
	if len(paths) == 0 {
		return &MediaError{Path: cfg.Background.Path, Err: fmt.Errorf("no images in collection")}
	}

	w, h := cfg.Canvas()
	var lastErr error
	for _, p := range paths {
		img, err := loadStill(p, w, h, cfg.Background.ScaleMode)
		if err != nil {
			lastErr = err
			log.Warn("skipping undecodable collection item", zap.String("path", p), zap.Error(err))
			continue
		}
		b.push(img, cfg.RefreshInterval)
	}
	if b.empty() {
		return lastErr
	}
	return nil
}
