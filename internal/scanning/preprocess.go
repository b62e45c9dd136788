package scanning

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

const (
	// minShortSide is the shorter-dimension size below which images are upscaled.
	minShortSide = 1200
	// minUpscale is the smallest upscale factor applied to small images.
	minUpscale = 1.8
	// contrastBoost is the imaging percentage equivalent of a 1.5x contrast multiplier.
	contrastBoost = 50
	sharpenSigma  = 1.0
	// binaryCutoff is the luminance above which a pixel becomes white.
	binaryCutoff = 180
)

// Enhance produces the grayscale, contrast-stretched, sharpened and upscaled variant.
func Enhance(img image.Image) *image.NRGBA {
	g := imaging.Grayscale(img)
	g = autoContrast(g)
	g = imaging.AdjustContrast(g, contrastBoost)
	g = imaging.Sharpen(g, sharpenSigma)
	return upscale(g)
}

// Binarize thresholds an enhanced image to black and white.
func Binarize(img *image.NRGBA) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		v := uint8(0)
		if c.R > binaryCutoff {
			v = 255
		}
		return color.NRGBA{R: v, G: v, B: v, A: c.A}
	})
}

// autoContrast stretches the darkest and lightest present levels to 0 and 255.
func autoContrast(img *image.NRGBA) *image.NRGBA {
	hist := imaging.Histogram(img)
	lo, hi := 0, 255
	for lo < 255 && hist[lo] == 0 {
		lo++
	}
	for hi > 0 && hist[hi] == 0 {
		hi--
	}
	if hi <= lo {
		return img
	}

	scale := 255.0 / float64(hi-lo)
	var lut [256]uint8
	for i := range lut {
		v := (float64(i) - float64(lo)) * scale
		switch {
		case v < 0:
			lut[i] = 0
		case v > 255:
			lut[i] = 255
		default:
			lut[i] = uint8(v + 0.5)
		}
	}
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: lut[c.R], G: lut[c.G], B: lut[c.B], A: c.A}
	})
}

// upscale enlarges images whose shorter side is under minShortSide.
func upscale(img *image.NRGBA) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	short := min(w, h)
	if short == 0 || short >= minShortSide {
		return img
	}
	factor := max(minUpscale, float64(minShortSide)/float64(short))
	return imaging.Resize(img, int(float64(w)*factor), int(float64(h)*factor), imaging.Lanczos)
}
