package render

import "image"

// rotate returns src turned clockwise by the given number of degrees.
// Anything other than 90, 180 or 270 returns src unchanged.
func rotate(src *image.RGBA, degrees int) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	switch degrees {
	case 90:
		dst := image.NewRGBA(image.Rect(0, 0, h, w))
		for y := 0; y < w; y++ {
			for x := 0; x < h; x++ {
				dst.SetRGBA(x, y, src.RGBAAt(y, h-1-x))
			}
		}
		return dst
	case 180:
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				dst.SetRGBA(x, y, src.RGBAAt(w-1-x, h-1-y))
			}
		}
		return dst
	case 270:
		dst := image.NewRGBA(image.Rect(0, 0, h, w))
		for y := 0; y < w; y++ {
			for x := 0; x < h; x++ {
				dst.SetRGBA(x, y, src.RGBAAt(w-1-y, x))
			}
		}
		return dst
	default:
		return src
	}
}
