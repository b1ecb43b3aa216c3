// Package ocr turns payment advice images and PDFs into plain text.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Engine recognises the text of a single image.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img image.Image) (string, error)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
