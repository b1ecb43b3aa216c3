package ocr

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"time"

	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"
)

const visionTimeout = 30 * time.Second

// ErrInvalidResponse is returned when Vision answers without any result.
var ErrInvalidResponse = errors.New("invalid vision response")

// VisionEngine calls Google Cloud Vision TEXT_DETECTION.
type VisionEngine struct {
	svc *vision.Service
}

// NewVisionEngine builds a Vision client authenticated with an API key.
// Extra options are appended, which lets tests point it at a fake endpoint.
func NewVisionEngine(ctx context.Context, apiKey string, opts ...option.ClientOption) (*VisionEngine, error) {
	if apiKey == "" {
		return nil, errors.New("GOOGLE_API_KEY must be set for the vision engine")
	}
	all := append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := vision.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create vision service: %w", err)
	}
	return &VisionEngine{svc: svc}, nil
}

func (e *VisionEngine) Name() string { return "vision" }

// Recognize returns the full text annotation of img, or "" when Vision found
// no text.
func (e *VisionEngine) Recognize(ctx context.Context, img image.Image) (string, error) {
	data, err := encodePNG(img)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, visionTimeout)
	defer cancel()

	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image:    &vision.Image{Content: base64.StdEncoding.EncodeToString(data)},
			Features: []*vision.Feature{{Type: "TEXT_DETECTION", MaxResults: 1}},
		}},
	}
	resp, err := e.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("vision annotate: %w", err)
	}
	if len(resp.Responses) == 0 {
		return "", ErrInvalidResponse
	}

	result := resp.Responses[0]
	if result.Error != nil && result.Error.Message != "" {
		return "", fmt.Errorf("vision api error: %s", result.Error.Message)
	}
	if result.FullTextAnnotation == nil {
		return "", nil
	}
	return result.FullTextAnnotation.Text, nil
}

var _ Engine = (*VisionEngine)(nil)
