package ocr

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Preprocess prepares a scan for OCR: grayscale, a light blur to suppress
// speckle noise, then binarisation at the Otsu threshold.
func Preprocess(img image.Image) image.Image {
	gray := imaging.Grayscale(img)
	gray = imaging.Blur(gray, 0.5)

	threshold := otsuThreshold(gray)
	return imaging.AdjustFunc(gray, func(c color.NRGBA) color.NRGBA {
		if c.R > threshold {
			return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
		}
		return color.NRGBA{A: 255}
	})
}

// otsuThreshold picks the gray level that maximises between-class variance.
// The image is expected to be grayscale, so only the red channel is read.
func otsuThreshold(img *image.NRGBA) uint8 {
	var hist [256]int
	total := 0
	for i := 0; i+3 < len(img.Pix); i += 4 {
		hist[img.Pix[i]]++
		total++
	}
	if total == 0 {
		return 127
	}

	var sum float64
	for level, count := range hist {
		sum += float64(level * count)
	}

	var (
		sumBackground float64
		weightBack    int
		best          float64
		threshold     uint8
	)
	for level, count := range hist {
		weightBack += count
		if weightBack == 0 {
			continue
		}
		weightFore := total - weightBack
		if weightFore == 0 {
			break
		}

		sumBackground += float64(level * count)
		meanBack := sumBackground / float64(weightBack)
		meanFore := (sum - sumBackground) / float64(weightFore)
		between := float64(weightBack) * float64(weightFore) * (meanBack - meanFore) * (meanBack - meanFore)
		if between > best {
			best = between
			threshold = uint8(level)
		}
	}
	return threshold
}
