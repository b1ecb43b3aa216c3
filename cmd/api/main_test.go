package main

import (
	"context"
	"image/color"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/octobees/payadvice/internal/config"
)

func TestNewOCREngine_Tesseract(t *testing.T) {
	engine, err := newOCREngine(config.OCRConfig{Engine: "tesseract", Language: "eng"})
	require.NoError(t, err)
	assert.Equal(t, "tesseract", engine.Name())
}

func TestNewOCREngine_VisionRequiresKey(t *testing.T) {
	_, err := newOCREngine(config.OCRConfig{Engine: "vision"})
	assert.Error(t, err)
}

// The engine is built once at startup and must keep working for every later
// upload, long after startup has finished.
func TestNewOCREngine_VisionOutlivesStartup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"responses":[{"fullTextAnnotation":{"text":"HKD 13,000.00"}}]}`))
	}))
	defer srv.Close()

	engine, err := newOCREngine(config.OCRConfig{Engine: "vision", GoogleAPIKey: "test-key"},
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		text, err := engine.Recognize(context.Background(), imaging.New(8, 8, color.White))
		require.NoError(t, err)
		assert.Equal(t, "HKD 13,000.00", text)
	}
}
