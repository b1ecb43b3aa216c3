package ocr

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// BoxConfidence is the minimum word confidence drawn by DrawBoxes.
const BoxConfidence = 60

var boxColor = color.NRGBA{R: 255, A: 255}

// DrawBoxes returns a copy of img with a 2px red outline around every word
// whose confidence is above minConfidence.
func DrawBoxes(img image.Image, words []WordBox, minConfidence float64) *image.NRGBA {
	out := imaging.Clone(img)
	bounds := out.Bounds()
	for _, w := range words {
		if w.Confidence <= minConfidence {
			continue
		}
		r := w.Box.Intersect(bounds)
		if r.Empty() {
			continue
		}
		for t := 0; t < 2; t++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				out.SetNRGBA(x, r.Min.Y+t, boxColor)
				out.SetNRGBA(x, r.Max.Y-1-t, boxColor)
			}
			for y := r.Min.Y; y < r.Max.Y; y++ {
				out.SetNRGBA(r.Min.X+t, y, boxColor)
				out.SetNRGBA(r.Max.X-1-t, y, boxColor)
			}
		}
	}
	return out
}
