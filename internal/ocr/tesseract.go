package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// WordBox is a recognised word with its bounding box and confidence (0-100).
type WordBox struct {
	Word       string
	Box        image.Rectangle
	Confidence float64
}

// TesseractEngine runs a local Tesseract treating each image as one block of text.
type TesseractEngine struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

// NewTesseractEngine creates an engine for the given languages, "eng" by default.
func NewTesseractEngine(languages ...string) *TesseractEngine {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &TesseractEngine{languages: languages, clientFactory: gosseract.NewClient}
}

func (e *TesseractEngine) Name() string { return "tesseract" }

func (e *TesseractEngine) Recognize(ctx context.Context, img image.Image) (string, error) {
	c, err := e.prepare(ctx, img)
	if err != nil {
		return "", err
	}
	defer c.Close()

	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// Words returns the word-level boxes Tesseract found in img.
func (e *TesseractEngine) Words(ctx context.Context, img image.Image) ([]WordBox, error) {
	c, err := e.prepare(ctx, img)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("bounding boxes: %w", err)
	}
	words := make([]WordBox, 0, len(boxes))
	for _, b := range boxes {
		words = append(words, WordBox{Word: b.Word, Box: b.Box, Confidence: b.Confidence})
	}
	return words, nil
}

func (e *TesseractEngine) prepare(ctx context.Context, img image.Image) (*gosseract.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := encodePNG(img)
	if err != nil {
		return nil, err
	}

	c := e.clientFactory()
	if err := c.SetLanguage(e.languages...); err != nil {
		c.Close()
		return nil, fmt.Errorf("set languages: %w", err)
	}
	if err := c.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		c.Close()
		return nil, fmt.Errorf("set page segmentation: %w", err)
	}
	if err := c.SetImageFromBytes(data); err != nil {
		c.Close()
		return nil, fmt.Errorf("set image: %w", err)
	}
	return c, nil
}

var _ Engine = (*TesseractEngine)(nil)
