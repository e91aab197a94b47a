package render

import (
	"os"
	"sync"

	"github.com/golang/freetype/truetype"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// fontSource parses a TTF once and hands out cached faces per size.
// An unreadable or unparsable font file degrades to the embedded
// Go Regular face.
type fontSource struct {
	font *truetype.Font

	mu    sync.Mutex
	faces map[float64]font.Face
}

func newFontSource(path string, log *zap.Logger) *fontSource {
	fs := &fontSource{faces: make(map[float64]font.Face)}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn("font file unreadable, using builtin face",
				zap.String("path", path), zap.Error(err))
		} else if f, perr := truetype.Parse(data); perr != nil {
			log.Warn("font file unparsable, using builtin face",
				zap.String("path", path), zap.Error(perr))
		} else {
			fs.font = f
		}
	}
	if fs.font == nil {
		f, err := truetype.Parse(goregular.TTF)
		if err != nil {
			// the embedded font always parses
			panic(err)
		}
		fs.font = f
	}
	return fs
}

func (fs *fontSource) face(size float64) font.Face {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if f, ok := fs.faces[size]; ok {
		return f
	}
	f := truetype.NewFace(fs.font, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	fs.faces[size] = f
	return f
}
