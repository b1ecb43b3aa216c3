package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/octobees/payadvice/internal/entity"
)

// PageSeparator divides the per-page sections of a multi-page document.
const PageSeparator = "\n------\n"

// Result is the text recognised in a file.
type Result struct {
	Text  string
	Pages int
}

// Reader extracts text from an uploaded image or PDF with an Engine.
type Reader struct {
	engine      Engine
	dpi         float64
	concurrency int
	log         *zap.Logger

	rasterize func(path string, dpi float64) ([]image.Image, error)
	openImage func(path string) (image.Image, error)
}

// NewReader wires a Reader. Pages of a PDF are recognised concurrently, at
// most concurrency at a time.
func NewReader(engine Engine, dpi float64, concurrency int, log *zap.Logger) *Reader {
	if dpi <= 0 {
		dpi = 300
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Reader{
		engine:      engine,
		dpi:         dpi,
		concurrency: concurrency,
		log:         log,
		rasterize:   RasterizePDF,
		openImage: func(path string) (image.Image, error) {
			return imaging.Open(path, imaging.AutoOrientation(true))
		},
	}
}

// ExtractFile recognises the text of the file at path. PDF pages are
// labelled "PAGE n:" and joined with PageSeparator; a page that fails is
// logged and left empty.
func (r *Reader) ExtractFile(ctx context.Context, path string) (Result, error) {
	if !entity.IsPDFName(path) {
		img, err := r.openImage(path)
		if err != nil {
			return Result{}, fmt.Errorf("open image: %w", err)
		}
		text, err := r.engine.Recognize(ctx, Preprocess(img))
		if err != nil {
			return Result{}, fmt.Errorf("%s ocr: %w", r.engine.Name(), err)
		}
		return Result{Text: strings.TrimSpace(text), Pages: 1}, nil
	}

	pages, err := r.rasterize(path, r.dpi)
	if err != nil {
		return Result{}, err
	}
	r.log.Info("pdf rasterized", zap.String("file", path), zap.Int("pages", len(pages)), zap.String("engine", r.engine.Name()))

	texts := make([]string, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, page := range pages {
		g.Go(func() error {
			text, err := r.engine.Recognize(gctx, Preprocess(page))
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				r.log.Warn("page ocr failed", zap.Int("page", i+1), zap.Error(err))
				return nil
			}
			texts[i] = strings.TrimSpace(text)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	return Result{Text: JoinPages(texts), Pages: len(pages)}, nil
}

// JoinPages labels each page text and joins them with PageSeparator.
func JoinPages(texts []string) string {
	sections := make([]string, len(texts))
	for i, text := range texts {
		sections[i] = fmt.Sprintf("PAGE %d:\n%s", i+1, text)
	}
	return strings.Join(sections, PageSeparator)
}

// HasText reports whether any page produced text beyond its label.
func (res Result) HasText() bool {
	for _, section := range strings.Split(res.Text, PageSeparator) {
		if _, body, ok := strings.Cut(section, ":\n"); ok && strings.HasPrefix(section, "PAGE ") {
			section = body
		}
		if strings.TrimSpace(section) != "" {
			return true
		}
	}
	return false
}
