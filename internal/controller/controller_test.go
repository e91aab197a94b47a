package controller

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/lcdhud/lcdhud/internal/config"
	"github.com/lcdhud/lcdhud/internal/device"
	"github.com/lcdhud/lcdhud/internal/metrics"
	"github.com/lcdhud/lcdhud/pkg/theme"
)

// fakeDevice records the top-left pixel of every transmitted frame.
type fakeDevice struct {
	desc device.Descriptor

	mu      sync.Mutex
	frames  [][3]uint8
	sendErr error
	closed  bool
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		desc: device.Descriptor{Width: 8, Height: 8, ChunkSize: 64, Name: "fake"},
	}
}

func (d *fakeDevice) Descriptor() device.Descriptor { return d.desc }

func (d *fakeDevice) EncodeImage(img image.Image) []byte {
	r, g, b, _ := img.At(img.Bounds().Min.X, img.Bounds().Min.Y).RGBA()
	return []byte{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)}
}

func (d *fakeDevice) Header(int) []byte { return nil }

func (d *fakeDevice) PreparePackets(header, payload []byte) [][]byte {
	return [][]byte{append(append([]byte{}, header...), payload...)}
}

func (d *fakeDevice) SendPacket(p []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sendErr != nil {
		return d.sendErr
	}
	d.frames = append(d.frames, [3]uint8{p[0], p[1], p[2]})
	return nil
}

func (d *fakeDevice) FrameEnd() error { return nil }

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *fakeDevice) failWith(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sendErr = err
}

func (d *fakeDevice) lastFrame() ([3]uint8, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.frames) == 0 {
		return [3]uint8{}, false
	}
	return d.frames[len(d.frames)-1], true
}

const colorConfig = `display:
  output_width: 8
  output_height: 8
  refresh_interval: 0.001
  background:
    type: color
    color: {r: %d, g: %d, b: %d}
`

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, theme.ConfigFileName(8, 8))
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testAppConfig(dir string) *config.Config {
	return &config.Config{
		ConfigDir: dir,
		Loop: config.LoopConfig{
			MinTickInterval: time.Millisecond,
			MaxSendFailures: 3,
		},
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func startController(t *testing.T, c *Controller) (<-chan error, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx); close(done) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("controller did not stop")
		}
	})
	return done, cancel
}

func TestRunStreamsConfiguredColor(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, colorString(0, 255, 0))

	dev := newFakeDevice()
	c, err := New(testAppConfig(dir), dev, metrics.NewRegistry(zap.NewNop()), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	startController(t, c)

	waitFor(t, "green frame", func() bool {
		f, ok := dev.lastFrame()
		return ok && f == [3]uint8{0, 255, 0}
	})
}

func TestReloadWithinOneTick(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, colorString(0, 255, 0))

	dev := newFakeDevice()
	c, err := New(testAppConfig(dir), dev, metrics.NewRegistry(zap.NewNop()), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	startController(t, c)

	waitFor(t, "initial green frame", func() bool {
		f, ok := dev.lastFrame()
		return ok && f == [3]uint8{0, 255, 0}
	})

	writeConfig(t, dir, colorString(255, 0, 0))
	bumpMtime(t, path)

	waitFor(t, "red frame after reload", func() bool {
		f, ok := dev.lastFrame()
		return ok && f == [3]uint8{255, 0, 0}
	})
}

func TestBrokenReloadKeepsActiveConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, colorString(0, 255, 0))

	dev := newFakeDevice()
	c, err := New(testAppConfig(dir), dev, metrics.NewRegistry(zap.NewNop()), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	startController(t, c)

	waitFor(t, "initial green frame", func() bool {
		f, ok := dev.lastFrame()
		return ok && f == [3]uint8{0, 255, 0}
	})

	writeConfig(t, dir, "display: [not valid\n")
	bumpMtime(t, path)

	// the broken file must not take effect; frames keep coming in the
	// old color
	time.Sleep(50 * time.Millisecond)
	f, ok := dev.lastFrame()
	if !ok || f != [3]uint8{0, 255, 0} {
		t.Errorf("frame after broken reload = %v, want green", f)
	}

	// a later fix still applies
	writeConfig(t, dir, colorString(0, 0, 255))
	bumpMtime(t, path)
	waitFor(t, "blue frame after fixed reload", func() bool {
		f, ok := dev.lastFrame()
		return ok && f == [3]uint8{0, 0, 255}
	})
}

func TestRunAbortsAfterRepeatedSendFailures(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, colorString(0, 255, 0))

	dev := newFakeDevice()
	dev.failWith(errors.New("pipe stalled"))
	c, err := New(testAppConfig(dir), dev, metrics.NewRegistry(zap.NewNop()), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	done, _ := startController(t, c)

	select {
	case err := <-done:
		if err == nil || errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v, want transmit failure", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not abort on repeated failures")
	}
}

func TestNewFailsWithoutConfig(t *testing.T) {
	dev := newFakeDevice()
	_, err := New(testAppConfig(t.TempDir()), dev, metrics.NewRegistry(zap.NewNop()), zap.NewNop())
	var cerr *theme.ConfigError
	if !errors.As(err, &cerr) {
		t.Errorf("New returned %v, want ConfigError", err)
	}
}

func colorString(r, g, b int) string {
	return fmt.Sprintf(colorConfig, r, g, b)
}

var mtimeBumps atomic.Int64

// bumpMtime moves the file's mtime forward so the reload check sees a
// change even on filesystems with coarse timestamps.
func bumpMtime(t *testing.T, path string) {
	t.Helper()
	future := time.Now().Add(time.Duration(mtimeBumps.Add(1)) * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}
}
