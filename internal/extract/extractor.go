package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/octobees/payadvice/internal/entity"
)

// ErrNoText is returned when there is nothing to send to the model.
var ErrNoText = errors.New("no text to extract from")

// Extractor turns OCR text into per-page fields with one chat completion.
type Extractor struct {
	completer Completer
	log       *zap.Logger
}

// NewExtractor wires an Extractor.
func NewExtractor(completer Completer, log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{completer: completer, log: log}
}

// Extract returns the fields of every page found in text.
func (e *Extractor) Extract(ctx context.Context, text string) ([]entity.PageInfo, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoText
	}

	multi := IsMultiPage(text)
	reply, err := e.completer.Complete(ctx, SystemPrompt, BuildPrompt(text))
	if err != nil {
		return nil, fmt.Errorf("extract fields: %w", err)
	}

	pages, err := ParsePages(reply)
	if err != nil {
		e.log.Warn("could not parse extraction reply", zap.Error(err), zap.String("reply", truncate(reply, 500)))
		return nil, err
	}

	for i := range pages {
		if pages[i].PageNumber == 0 {
			pages[i].PageNumber = i + 1
		}
	}
	e.log.Info("fields extracted",
		zap.Bool("multi_page", multi),
		zap.Int("pages", len(pages)),
		zap.Strings("invoices", Invoices(pages)),
	)
	return pages, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
