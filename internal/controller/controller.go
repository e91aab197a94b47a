package controller

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/lcdhud/lcdhud/internal/config"
	"github.com/lcdhud/lcdhud/internal/device"
	"github.com/lcdhud/lcdhud/internal/metrics"
	"github.com/lcdhud/lcdhud/internal/render"
	"github.com/lcdhud/lcdhud/pkg/theme"
)

// Controller drives one panel: generate a frame, transmit it, sleep for
// the frame's duration, check for a configuration change, repeat. All
// state lives on the loop goroutine; nothing here needs locking.
type Controller struct {
	appCfg   *config.Config
	dev      device.Device
	registry *metrics.Registry
	log      *zap.Logger

	configPath string
	modTime    time.Time
	gen        *render.Generator
}

// New resolves and loads the panel's configuration file. The initial
// load must succeed; later reloads degrade to the active configuration
// instead.
func New(appCfg *config.Config, dev device.Device, registry *metrics.Registry, log *zap.Logger) (*Controller, error) {
	desc := dev.Descriptor()
	c := &Controller{
		appCfg:     appCfg,
		dev:        dev,
		registry:   registry,
		log:        log,
		configPath: filepath.Join(appCfg.ConfigDir, theme.ConfigFileName(desc.Width, desc.Height)),
	}
	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Controller) load() error {
	desc := c.dev.Descriptor()
	info, err := os.Stat(c.configPath)
	if err != nil {
		return &theme.ConfigError{Path: c.configPath, Err: err}
	}
	cfg, err := theme.Load(c.configPath, desc.Width, desc.Height)
	if err != nil {
		return err
	}
	c.gen = render.NewGenerator(cfg, c.registry, c.appCfg.FFmpeg, c.log)
	c.modTime = info.ModTime()
	c.log.Info("configuration loaded",
		zap.String("path", c.configPath),
		zap.String("background", string(cfg.Background.Kind)))
	return nil
}

// Run streams frames until the context is cancelled or transmission
// fails too many times in a row. An in-flight frame always completes
// before cancellation is honored, so the panel never shows a torn image.
func (c *Controller) Run(ctx context.Context) error {
	failures := 0
	for {
		frame, d := c.gen.Next(time.Now())
		if err := c.sendFrame(frame); err != nil {
			failures++
			c.log.Error("frame transmit failed",
				zap.Int("consecutive", failures), zap.Error(err))
			if failures >= c.appCfg.Loop.MaxSendFailures {
				return fmt.Errorf("giving up after %d consecutive transmit failures: %w", failures, err)
			}
		} else {
			failures = 0
		}

		wait := d
		if wait < c.appCfg.Loop.MinTickInterval {
			wait = c.appCfg.Loop.MinTickInterval
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		c.maybeReload()
	}
}

func (c *Controller) sendFrame(img *image.RGBA) error {
	payload := c.dev.EncodeImage(img)
	header := c.dev.Header(len(payload))
	for _, p := range c.dev.PreparePackets(header, payload) {
		if err := c.dev.SendPacket(p); err != nil {
			return err
		}
	}
	return c.dev.FrameEnd()
}

// maybeReload swaps in a new generator when the configuration file's
// mtime moved. A file that fails to load leaves the active generator
// serving; its mtime is still recorded so the error logs once, not
// every tick.
func (c *Controller) maybeReload() {
	info, err := os.Stat(c.configPath)
	if err != nil {
		c.log.Warn("configuration stat failed", zap.String("path", c.configPath), zap.Error(err))
		return
	}
	if info.ModTime().Equal(c.modTime) {
		return
	}
	desc := c.dev.Descriptor()
	cfg, err := theme.Load(c.configPath, desc.Width, desc.Height)
	if err != nil {
		c.modTime = info.ModTime()
		c.log.Error("configuration reload failed, keeping active configuration", zap.Error(err))
		return
	}
	c.gen = render.NewGenerator(cfg, c.registry, c.appCfg.FFmpeg, c.log)
	c.modTime = info.ModTime()
	c.log.Info("configuration reloaded", zap.String("path", c.configPath))
}

// Discover retries panel discovery with a fixed backoff, for panels that
// enumerate a moment after the daemon starts.
func Discover(ctx context.Context, attempts int, backoff time.Duration, log *zap.Logger) (device.Device, error) {
	var lastErr error
	for i := 1; i <= attempts; i++ {
		dev, err := device.Discover(log)
		if err == nil {
			return dev, nil
		}
		if !errors.Is(err, device.ErrNotFound) {
			// a panel that is attached but unclaimable will not fix
			// itself by waiting
			return nil, err
		}
		lastErr = err
		log.Info("no supported panel attached",
			zap.Int("attempt", i), zap.Int("attempts", attempts), zap.Error(err))
		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, lastErr
}
