package handler

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/octobees/payadvice/internal/dto"
	"github.com/octobees/payadvice/internal/entity"
	"github.com/octobees/payadvice/internal/export"
	middlewarepkg "github.com/octobees/payadvice/internal/middleware"
	"github.com/octobees/payadvice/internal/repository"
	"github.com/octobees/payadvice/internal/service"
	"github.com/octobees/payadvice/internal/storage"
	"github.com/octobees/payadvice/internal/web"
)

const recentJobsLimit = 20

// Pipeline runs and looks up upload jobs.
type Pipeline interface {
	Process(ctx context.Context, up service.Upload) (*service.Outcome, error)
	Job(ctx context.Context, id string) (*entity.Job, error)
	RecentJobs(ctx context.Context, limit int) ([]entity.Job, error)
}

// Annotations produces annotated PDFs.
type Annotations interface {
	Annotate(ctx context.Context, req dto.AnnotateRequest) (string, error)
}

type pageData struct {
	Title    string
	Flashes  []web.Flash
	Username string
}

type indexPage struct {
	pageData
	Jobs        []dto.JobSummary
	MaxUploadMB int
}

type resultsPage struct {
	pageData
	Job     *entity.Job
	Headers []string
	Rows    [][]string
}

// WebHandler serves the upload form, results pages and file downloads.
type WebHandler struct {
	pipeline    Pipeline
	annotations Annotations
	store       *storage.Local
	flashes     *web.Flashes
	maxUploadMB int
	log         *zap.Logger
}

// NewWebHandler wires a WebHandler.
func NewWebHandler(pipeline Pipeline, annotations Annotations, store *storage.Local, flashes *web.Flashes, maxUploadMB int, log *zap.Logger) *WebHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WebHandler{
		pipeline:    pipeline,
		annotations: annotations,
		store:       store,
		flashes:     flashes,
		maxUploadMB: maxUploadMB,
		log:         log,
	}
}

func (h *WebHandler) page(c echo.Context, title string) pageData {
	username, _ := c.Get(middlewarepkg.ContextKeyUsername).(string)
	return pageData{Title: title, Flashes: h.flashes.Pop(c), Username: username}
}

// Index handles GET / requests.
func (h *WebHandler) Index(c echo.Context) error {
	data := indexPage{pageData: h.page(c, "Upload"), MaxUploadMB: h.maxUploadMB}

	jobs, err := h.pipeline.RecentJobs(c.Request().Context(), recentJobsLimit)
	if err != nil {
		h.log.Warn("listing recent jobs failed", zap.Error(err))
	}
	for _, job := range jobs {
		data.Jobs = append(data.Jobs, dto.SummarizeJob(job))
	}

	return c.Render(http.StatusOK, "index.html", data)
}

// Upload handles POST / requests: the file is processed synchronously and the
// browser is redirected to its results.
func (h *WebHandler) Upload(c echo.Context) error {
	if h.maxUploadMB > 0 {
		c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, int64(h.maxUploadMB)<<20)
	}

	form, err := c.MultipartForm()
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return h.redirectWithFlash(c, "/", web.Flash{Category: service.FlashDanger, Message: fmt.Sprintf("File is larger than %d MB.", h.maxUploadMB)})
		}
		return h.redirectWithFlash(c, "/", web.Flash{Category: service.FlashWarning, Message: "No file part"})
	}

	files := form.File["file"]
	if len(files) == 0 {
		if _, present := form.Value["file"]; present {
			return h.redirectWithFlash(c, "/", web.Flash{Category: service.FlashWarning, Message: "No selected file"})
		}
		return h.redirectWithFlash(c, "/", web.Flash{Category: service.FlashWarning, Message: "No file part"})
	}
	header := files[0]
	if header.Filename == "" {
		return h.redirectWithFlash(c, "/", web.Flash{Category: service.FlashWarning, Message: "No selected file"})
	}
	if !entity.AllowedFile(header.Filename) {
		return h.redirectWithFlash(c, "/", notAllowed())
	}

	outcome, err := h.process(c, header)
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedFile) {
			return h.redirectWithFlash(c, "/", notAllowed())
		}
		h.log.Error("processing upload failed", zap.String("file", header.Filename), zap.Error(err))
		return h.redirectWithFlash(c, "/", web.Flash{Category: service.FlashDanger, Message: "Processing failed: " + err.Error()})
	}

	flashes := make([]web.Flash, 0, len(outcome.Flashes))
	for _, f := range outcome.Flashes {
		flashes = append(flashes, web.Flash{Category: f.Category, Message: f.Message})
	}
	return h.redirectWithFlash(c, "/results/"+outcome.Job.ID.String(), flashes...)
}

func (h *WebHandler) process(c echo.Context, header *multipart.FileHeader) (*service.Outcome, error) {
	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	return h.pipeline.Process(c.Request().Context(), service.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get(echo.HeaderContentType),
		Body:        file,
	})
}

func notAllowed() web.Flash {
	return web.Flash{Category: service.FlashDanger, Message: "File type not allowed. Please upload an image or PDF."}
}

func (h *WebHandler) redirectWithFlash(c echo.Context, to string, flashes ...web.Flash) error {
	if err := h.flashes.Add(c, flashes...); err != nil {
		h.log.Warn("saving flash messages failed", zap.Error(err))
	}
	return c.Redirect(http.StatusSeeOther, to)
}

// Results handles GET /results/:id requests.
func (h *WebHandler) Results(c echo.Context) error {
	job, err := h.pipeline.Job(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "job not found")
		}
		return err
	}

	data := resultsPage{pageData: h.page(c, "Results"), Job: job}
	if len(job.Records) > 0 {
		data.Headers = export.RecordHeaders(job.Records)
		data.Rows = export.RecordRows(job.Records)
	}
	return c.Render(http.StatusOK, "results.html", data)
}

// ExportXLSX handles GET /results/:id/export.xlsx requests.
func (h *WebHandler) ExportXLSX(c echo.Context) error {
	job, err := h.pipeline.Job(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "job not found")
		}
		return err
	}

	name := storage.SanitizeFilename(storage.OriginalName(job.StoredFilename)) + ".xlsx"
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	res.WriteHeader(http.StatusOK)
	return export.WriteRecordsXLSX(res, job.Records, job.Pages)
}

// ServePDF handles GET /serve_pdf/:filename requests for stored uploads and
// generated PDFs.
func (h *WebHandler) ServePDF(c echo.Context) error {
	name := c.Param("filename")
	path, err := h.store.Path(name)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid file name")
	}
	if _, err := os.Stat(path); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "file not found")
	}
	return c.Inline(path, storage.OriginalName(name))
}

// GenerateAnnotatedPDF handles POST /generate_annotated_pdf requests.
func (h *WebHandler) GenerateAnnotatedPDF(c echo.Context) error {
	var req dto.AnnotateRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}

	name, err := h.annotations.Annotate(c.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingSource), errors.Is(err, storage.ErrInvalidName):
			return Error(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, repository.ErrJobNotFound), errors.Is(err, storage.ErrNotFound):
			return Error(c, http.StatusNotFound, err.Error())
		default:
			h.log.Error("annotation failed", zap.Error(err))
			return Error(c, http.StatusInternalServerError, "failed to generate annotated pdf")
		}
	}

	return Success(c, http.StatusOK, "annotated pdf generated", dto.AnnotateResponse{
		Filename: name,
		URL:      "/serve_pdf/" + name,
	})
}
