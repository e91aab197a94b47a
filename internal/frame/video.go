package frame

import (
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/lcdhud/lcdhud/pkg/theme"
)

// videoFrameRate is the rate video backgrounds are resampled to. It
// matches the animation cap used for GIFs.
const videoFrameRate = 15

// videoFilter builds the ffmpeg filter chain fitting the stream to the
// output canvas under the configured scale mode.
func videoFilter(width, height int, mode theme.ScaleMode) string {
	fps := fmt.Sprintf("fps=%d", videoFrameRate)
	switch mode {
	case theme.ScaleFit:
		return fmt.Sprintf("%s,scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:-1:-1:color=black",
			fps, width, height, width, height)
	case theme.ScaleFill:
		return fmt.Sprintf("%s,scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d",
			fps, width, height, width, height)
	case theme.ScaleCentered:
		return fmt.Sprintf("%s,crop='min(iw,%d)':'min(ih,%d)',pad=%d:%d:-1:-1:color=black",
			fps, width, height, width, height)
	default: // stretch; tiling is not meaningful for video
		return fmt.Sprintf("%s,scale=%d:%d", fps, width, height)
	}
}

// loadVideo decodes a video into raw frames through an ffmpeg rawvideo
// pipe, resampled to a fixed rate and fitted to the output size.
func (b *Background) loadVideo(path string, width, height int, mode theme.ScaleMode, ffmpegPath string, log *zap.Logger) error {
	if _, err := os.Stat(path); err != nil {
		return &MediaError{Path: path, Err: err}
	}

	cmd := exec.Command(ffmpegPath,
		"-i", path,
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-vf", videoFilter(width, height, mode),
		"-v", "error",
		"-")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &MediaError{Path: path, Err: err}
	}
	if err := cmd.Start(); err != nil {
		return &MediaError{Path: path, Err: fmt.Errorf("start %s: %w", ffmpegPath, err)}
	}

	frameDuration := time.Second / videoFrameRate
	frameBytes := width * height * 4
	buf := make([]byte, frameBytes)
	count := 0
	for count < maxVideoFrames {
		if _, err := io.ReadFull(stdout, buf); err != nil {
			break
		}
		img := image.NewRGBA(image.Rect(0, 0, width, height))
		copy(img.Pix, buf)
		b.push(img, frameDuration)
		count++
	}
	if count == maxVideoFrames {
		// ffmpeg is still writing; kill it or Wait blocks on the pipe
		_ = cmd.Process.Kill()
		log.Warn("video truncated", zap.String("path", path), zap.Int("frames", count))
	}
	_ = cmd.Wait()

	if b.empty() {
		return &MediaError{Path: path, Err: fmt.Errorf("no decodable video frames")}
	}
	log.Info("video loaded", zap.String("path", path),
		zap.Int("frames", count), zap.Duration("frame_duration", frameDuration))
	return nil
}
