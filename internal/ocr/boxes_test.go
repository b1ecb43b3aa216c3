package ocr

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDrawBoxesSkipsLowConfidence(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 40, 40))
	for i := range img.Pix {
		img.Pix[i] = 255
	}

	out := DrawBoxes(img, []WordBox{
		{Word: "HKD", Box: image.Rect(5, 5, 15, 15), Confidence: 91},
		{Word: "??", Box: image.Rect(25, 25, 35, 35), Confidence: 40},
	}, BoxConfidence)

	assert.Equal(t, boxColor, out.NRGBAAt(5, 5))
	assert.Equal(t, boxColor, out.NRGBAAt(14, 10))
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, out.NRGBAAt(10, 10))
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, out.NRGBAAt(25, 25))
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, img.NRGBAAt(5, 5), "source must not change")
}
