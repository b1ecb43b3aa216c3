package ocr

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// RasterizePDF renders every page of the PDF at path into an image at dpi.
func RasterizePDF(path string, dpi float64) ([]image.Image, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	pages := make([]image.Image, 0, doc.NumPage())
	for n := 0; n < doc.NumPage(); n++ {
		img, err := doc.ImageDPI(n, dpi)
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", n+1, err)
		}
		pages = append(pages, img)
	}
	return pages, nil
}
