package frame

import (
	"image"
	"image/draw"
	"time"

	"go.uber.org/zap"

	"github.com/lcdhud/lcdhud/internal/metrics"
	"github.com/lcdhud/lcdhud/pkg/theme"
)

// Manager owns the background content state and the telemetry snapshot
// for one display configuration. It is rebuilt whenever the config
// reloads and discarded with it.
type Manager struct {
	cfg      *theme.Config
	bg       *Background
	registry *metrics.Registry
	kinds    []metrics.Kind
	fallback *image.RGBA
	log      *zap.Logger
}

// NewManager loads the configured background. Media failures degrade to
// the solid black fallback frame rather than failing construction.
func NewManager(cfg *theme.Config, registry *metrics.Registry, ffmpegPath string, log *zap.Logger) *Manager {
	m := &Manager{
		cfg:      cfg,
		registry: registry,
		log:      log,
	}

	m.fallback = image.NewRGBA(cfg.Bounds())
	draw.Draw(m.fallback, m.fallback.Bounds(), image.Black, image.Point{}, draw.Src)

	bg, err := newBackground(cfg, ffmpegPath, log)
	if err != nil {
		log.Error("background load failed, using fallback frame",
			zap.String("kind", string(cfg.Background.Kind)),
			zap.String("path", cfg.Background.Path),
			zap.Error(err))
	}
	m.bg = bg

	for _, name := range cfg.MetricKinds() {
		ks, err := metrics.ParseKinds([]string{name})
		if err != nil {
			log.Warn("ignoring unknown metric kind", zap.String("kind", name))
			continue
		}
		m.kinds = append(m.kinds, ks[0])
	}

	log.Info("frame manager ready",
		zap.String("background", string(cfg.Background.Kind)),
		zap.Int("frames", len(m.bg.frames)),
		zap.Int("metric_kinds", len(m.kinds)))
	return m
}

// CurrentFrame returns the background frame current at now and how long
// it remains current. The frame is always exactly output-sized.
func (m *Manager) CurrentFrame(now time.Time) (image.Image, time.Duration) {
	img, d := m.bg.Advance(now)
	if img == nil {
		return m.fallback, m.cfg.RefreshInterval
	}
	if d <= 0 {
		d = m.cfg.RefreshInterval
	}
	return img, d
}

// SampleMetrics collects every metric kind the config references, each
// at most once. Failed kinds come back marked unavailable.
func (m *Manager) SampleMetrics() map[metrics.Kind]metrics.Sample {
	if len(m.kinds) == 0 {
		return nil
	}
	return m.registry.Collect(m.kinds)
}

// Cursor exposes the background frame index, for tests and diagnostics.
func (m *Manager) Cursor() int { return m.bg.Cursor() }
