package crm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/octobees/payadvice/internal/entity"
)

// Searcher looks up CRM records for a list of invoice numbers. Blank entries
// are searched by fee.
type Searcher interface {
	Search(ctx context.Context, invoices []string) ([]entity.Record, error)
}

// DriverFactory launches a fresh browser for one search run.
type DriverFactory func(ctx context.Context) (Driver, error)

// ChromeFactory returns a DriverFactory backed by a local Chrome.
func ChromeFactory(opts ChromeOptions, log *zap.Logger) DriverFactory {
	return func(ctx context.Context) (Driver, error) {
		return NewChromeDriver(ctx, opts, log)
	}
}

// LocalSearcher runs searches in-process. The CRM tolerates a single
// interactive session, so runs are serialised.
type LocalSearcher struct {
	newDriver DriverFactory
	opts      Options
	log       *zap.Logger
	sem       chan struct{}
}

// NewLocalSearcher wires a searcher around a driver factory.
func NewLocalSearcher(factory DriverFactory, opts Options, log *zap.Logger) *LocalSearcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &LocalSearcher{newDriver: factory, opts: opts, log: log, sem: make(chan struct{}, 1)}
}

// FeeSearcher can override the fee used for blank invoices per call.
type FeeSearcher interface {
	Searcher
	SearchWithFee(ctx context.Context, invoices []string, fee string) ([]entity.Record, error)
}

// Search launches a browser, runs the session and always closes the browser.
func (s *LocalSearcher) Search(ctx context.Context, invoices []string) ([]entity.Record, error) {
	return s.SearchWithFee(ctx, invoices, s.opts.Fee)
}

// SearchWithFee is Search with fee used for blank invoices.
func (s *LocalSearcher) SearchWithFee(ctx context.Context, invoices []string, fee string) ([]entity.Record, error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-s.sem }()

	driver, err := s.newDriver(ctx)
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	opts := s.opts
	opts.Fee = fee
	session := NewSession(driver, opts, s.log)
	defer func() {
		if err := session.Close(); err != nil {
			s.log.Warn("closing browser failed", zap.Error(err))
		}
	}()

	return session.Run(ctx, invoices)
}

var _ FeeSearcher = (*LocalSearcher)(nil)
