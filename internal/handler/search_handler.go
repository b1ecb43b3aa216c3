package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/octobees/payadvice/internal/crm"
	"github.com/octobees/payadvice/internal/dto"
	"github.com/octobees/payadvice/internal/entity"
	middlewarepkg "github.com/octobees/payadvice/internal/middleware"
)

// SearchHandler runs CRM searches on behalf of the api service.
type SearchHandler struct {
	searcher crm.FeeSearcher
	log      *zap.Logger
}

// NewSearchHandler constructs a SearchHandler.
func NewSearchHandler(searcher crm.FeeSearcher, log *zap.Logger) *SearchHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &SearchHandler{searcher: searcher, log: log}
}

// Search handles POST /search requests. A request with only a fee runs a
// single fee search.
func (h *SearchHandler) Search(c echo.Context) error {
	var req dto.SearchRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}

	req.Fee = strings.TrimSpace(req.Fee)
	for i := range req.Invoices {
		req.Invoices[i] = strings.TrimSpace(req.Invoices[i])
	}
	if len(req.Invoices) == 0 {
		if req.Fee == "" {
			return Error(c, http.StatusBadRequest, "invoices or fee is required")
		}
		req.Invoices = []string{""}
	}

	h.log.Info("crm search requested",
		zap.String("request_id", middlewarepkg.RequestIDFromContext(c)),
		zap.Strings("invoices", req.Invoices),
		zap.String("fee", req.Fee),
	)

	records, err := h.searcher.SearchWithFee(c.Request().Context(), req.Invoices, req.Fee)
	if err != nil {
		if errors.Is(err, crm.ErrLoginFailed) {
			return Error(c, http.StatusBadGateway, "crm login failed")
		}
		return Error(c, http.StatusBadGateway, err.Error())
	}
	if records == nil {
		records = []entity.Record{}
	}

	return Success(c, http.StatusOK, "search completed", dto.SearchResponse{
		Success: true,
		Records: records,
		Count:   len(records),
	})
}
