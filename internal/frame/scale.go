package frame

import (
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/lcdhud/lcdhud/pkg/theme"
)

// scaleToCanvas fits src onto a canvas of the target size using the
// configured scale mode. The result is always exactly width x height.
func scaleToCanvas(src image.Image, width, height int, mode theme.ScaleMode) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	sb := src.Bounds()
	if sb.Dx() == 0 || sb.Dy() == 0 {
		return dst
	}

	switch mode {
	case theme.ScaleFit:
		scale := fmin(float64(width)/float64(sb.Dx()), float64(height)/float64(sb.Dy()))
		w := int(float64(sb.Dx()) * scale)
		h := int(float64(sb.Dy()) * scale)
		x := (width - w) / 2
		y := (height - h) / 2
		xdraw.CatmullRom.Scale(dst, image.Rect(x, y, x+w, y+h), src, sb, xdraw.Over, nil)

	case theme.ScaleFill:
		scale := fmax(float64(width)/float64(sb.Dx()), float64(height)/float64(sb.Dy()))
		w := int(float64(sb.Dx()) * scale)
		h := int(float64(sb.Dy()) * scale)
		x := (width - w) / 2
		y := (height - h) / 2
		xdraw.CatmullRom.Scale(dst, image.Rect(x, y, x+w, y+h), src, sb, xdraw.Over, nil)

	case theme.ScaleCentered:
		x := (width - sb.Dx()) / 2
		y := (height - sb.Dy()) / 2
		r := image.Rect(x, y, x+sb.Dx(), y+sb.Dy())
		xdraw.Draw(dst, r, src, sb.Min, xdraw.Over)

	case theme.ScaleTiled:
		for y := 0; y < height; y += sb.Dy() {
			for x := 0; x < width; x += sb.Dx() {
				r := image.Rect(x, y, x+sb.Dx(), y+sb.Dy())
				xdraw.Draw(dst, r, src, sb.Min, xdraw.Over)
			}
		}

	default: // stretch
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, xdraw.Over, nil)
	}
	return dst
}

func fmin(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func fmax(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
