package annotate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"go.uber.org/zap"

	"github.com/octobees/payadvice/internal/entity"
	"github.com/octobees/payadvice/internal/storage"
)

// ErrNoPages is returned when the source document has no pages.
var ErrNoPages = errors.New("document has no pages")

// Request describes one annotation run.
type Request struct {
	// Source is the stored name of the uploaded advice.
	Source string
	// DisplayName is used to derive the output name; defaults to Source.
	DisplayName string
	Pages       []entity.PageInfo
	Records     []entity.Record
}

// Annotator stamps CRM results onto uploaded advices.
type Annotator struct {
	store *storage.Local
	conf  *model.Configuration
	log   *zap.Logger
}

// New builds an Annotator writing into store.
func New(store *storage.Local, log *zap.Logger) *Annotator {
	if log == nil {
		log = zap.NewNop()
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Annotator{store: store, conf: conf, log: log}
}

// Annotate writes a copy of the source PDF with one stamp per page and returns
// the stored name of the result. Image sources are converted to a single page
// PDF first.
func (a *Annotator) Annotate(ctx context.Context, req Request) (string, error) {
	srcPath, err := a.store.Path(req.Source)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(srcPath); err != nil {
		return "", fmt.Errorf("%w: %s", storage.ErrNotFound, req.Source)
	}

	display := req.DisplayName
	if display == "" {
		display = req.Source
	}
	outName := storage.NewName("annotated", pdfName(display))
	outPath, err := a.store.Path(outName)
	if err != nil {
		return "", err
	}

	pdfPath := srcPath
	if !entity.IsPDFName(req.Source) {
		tmp, err := os.CreateTemp(a.store.Dir(), "convert_*.pdf")
		if err != nil {
			return "", fmt.Errorf("create temp pdf: %w", err)
		}
		tmp.Close()
		// ImportImagesFile appends to an existing file and rejects an empty one.
		os.Remove(tmp.Name())
		defer os.Remove(tmp.Name())

		if err := api.ImportImagesFile([]string{srcPath}, tmp.Name(), pdfcpu.DefaultImportConfig(), a.conf); err != nil {
			return "", fmt.Errorf("convert image to pdf: %w", err)
		}
		pdfPath = tmp.Name()
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	dims, err := api.PageDimsFile(pdfPath)
	if err != nil {
		return "", fmt.Errorf("read page sizes: %w", err)
	}
	if len(dims) == 0 {
		return "", ErrNoPages
	}

	grouped := groupByPage(len(dims), req.Pages, req.Records)
	stamps := make(map[int]*model.Watermark, len(dims))
	for i, dim := range dims {
		var page entity.PageInfo
		if i < len(req.Pages) {
			page = req.Pages[i]
		}
		lines := PageLines(page, grouped[i])
		placement := Layout(dim.Width, dim.Height, lines)

		wm, err := api.TextWatermark(strings.Join(placement.Lines, "\n"), description(placement), true, false, types.POINTS)
		if err != nil {
			return "", fmt.Errorf("build stamp for page %d: %w", i+1, err)
		}
		stamps[i+1] = wm
	}

	if err := api.AddWatermarksMapFile(pdfPath, outPath, stamps, a.conf); err != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("stamp pdf: %w", err)
	}

	a.log.Info("annotated pdf written",
		zap.String("source", req.Source),
		zap.String("output", outName),
		zap.Int("pages", len(dims)),
		zap.Int("records", len(req.Records)),
	)
	return outName, nil
}

func description(p Placement) string {
	return fmt.Sprintf(
		"fontname:Helvetica, points:%d, position:bl, offset:%.0f %.0f, scalefactor:1 abs, rotation:0, aligntext:l, fillcolor:#000000, backgroundcolor:#FFFFE0, opacity:1",
		p.FontSize, p.OffsetX, p.OffsetY,
	)
}

func pdfName(name string) string {
	base := storage.OriginalName(filepath.Base(name))
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".pdf"
}
