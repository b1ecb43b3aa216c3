package crm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/octobees/payadvice/internal/config"
	"github.com/octobees/payadvice/internal/entity"
)

var (
	// ErrLoginFailed is returned once every login attempt has been used up.
	ErrLoginFailed = errors.New("crm login failed")
	// ErrElementNotFound indicates an expected control never appeared.
	ErrElementNotFound = errors.New("crm element not found")
	// ErrOptionNotFound indicates the Opportunities menu entry is missing.
	ErrOptionNotFound = errors.New("crm menu option not found")
)

const elementPollInterval = 250 * time.Millisecond

// Options configures a Session.
type Options struct {
	URL             string
	Username        string
	Password        string
	MaxLoginRetries int
	Timing          config.CRMTiming

	// Fee is searched for invoices that are blank.
	Fee string
}

// OptionsFromConfig maps the CRM configuration onto session options.
func OptionsFromConfig(cfg config.CRMConfig) Options {
	return Options{
		URL:             cfg.URL,
		Username:        cfg.Username,
		Password:        cfg.Password,
		MaxLoginRetries: cfg.MaxLoginRetries,
		Timing:          cfg.Timing,
	}
}

// Session walks the CRM UI: login, open the Opportunities search and run
// invoice or fee searches, scraping the result grid after each one.
type Session struct {
	driver Driver
	opts   Options
	log    *zap.Logger
}

// NewSession wraps an already launched driver.
func NewSession(driver Driver, opts Options, log *zap.Logger) *Session {
	if opts.MaxLoginRetries <= 0 {
		opts.MaxLoginRetries = 3
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{driver: driver, opts: opts, log: log}
}

// Open loads the CRM entry page.
func (s *Session) Open(ctx context.Context) error {
	if err := s.driver.Navigate(ctx, s.opts.URL); err != nil {
		return fmt.Errorf("open crm: %w", err)
	}
	return nil
}

// Login signs in and lands on the Opportunities search form. A failed attempt
// reloads the page and starts over.
func (s *Session) Login(ctx context.Context) error {
	attempts := s.opts.MaxLoginRetries
	attempt := 0
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(positive(s.opts.Timing.PageLoad)))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := s.loginOnce(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}

		s.log.Warn("crm login attempt failed", zap.Int("attempt", attempt), zap.Int("max_attempts", attempts), zap.Error(err))
		if attempt < attempts {
			if rerr := s.driver.Reload(ctx); rerr != nil {
				s.log.Warn("crm reload failed", zap.Error(rerr))
			}
		}
		return retry.RetryableError(err)
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w after %d attempt(s): %v", ErrLoginFailed, attempt, err)
	}

	s.log.Info("crm login succeeded", zap.Int("attempt", attempt))
	return nil
}

func (s *Session) loginOnce(ctx context.Context) error {
	if err := sleep(ctx, s.opts.Timing.PageLoad); err != nil {
		return err
	}

	n, err := s.driver.Count(ctx, "", selLogonButton)
	if err != nil {
		return err
	}
	if n == 0 {
		s.log.Info("no login form found, assuming an existing session")
		return s.openOpportunities(ctx)
	}

	if err := s.driver.SetValue(ctx, "", selUserID, s.opts.Username); err != nil {
		return err
	}
	if err := s.driver.SetValue(ctx, "", selPassword, s.opts.Password); err != nil {
		return err
	}
	if err := s.driver.Click(ctx, "", selLogonButton, 0, false); err != nil {
		return err
	}

	found := false
	for poll := 0; poll < loginPollCount; poll++ {
		if err := sleep(ctx, s.opts.Timing.PollBase+time.Duration(poll)*s.opts.Timing.PollStep); err != nil {
			return err
		}
		n, err = s.driver.Count(ctx, "", selLogonButton)
		if err != nil {
			return err
		}
		s.log.Debug("waiting for navigation tiles", zap.Int("poll", poll+1), zap.Int("buttons", n))
		if n >= minLogonTiles {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: expected %d %s elements, saw %d", ErrElementNotFound, minLogonTiles, selLogonButton, n)
	}

	if err := s.driver.Click(ctx, "", selLogonButton, navTileIndex, true); err != nil {
		return err
	}
	if err := sleep(ctx, s.opts.Timing.AfterLogin); err != nil {
		return err
	}
	return s.openOpportunities(ctx)
}

// openOpportunities clicks Find in the menu frame and picks Opportunities
// from the top frame's menu select.
func (s *Session) openOpportunities(ctx context.Context) error {
	if err := s.waitFor(ctx, FrameMenu, selFind); err != nil {
		return err
	}
	if err := s.driver.Click(ctx, FrameMenu, selFind, 0, false); err != nil {
		return err
	}
	if err := s.waitFor(ctx, FrameTop, selMenuOption); err != nil {
		return err
	}

	ok, err := s.driver.SelectOption(ctx, FrameTop, selMenuOption, opportunitiesOption)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %q", ErrOptionNotFound, opportunitiesOption)
	}
	return sleep(ctx, s.opts.Timing.AfterNavigate)
}

// waitFor polls until selector is present in frame or the element wait expires.
func (s *Session) waitFor(ctx context.Context, frame, selector string) error {
	timeout := s.opts.Timing.ElementWait
	interval := elementPollInterval
	if timeout < interval {
		interval = positive(timeout)
	}

	err := retry.Do(ctx, retry.WithMaxDuration(timeout, retry.NewConstant(interval)), func(ctx context.Context) error {
		n, err := s.driver.Count(ctx, frame, selector)
		if err != nil {
			return err
		}
		if n == 0 {
			return retry.RetryableError(fmt.Errorf("%w: %s in %q", ErrElementNotFound, selector, frame))
		}
		return nil
	})
	return err
}

// SearchInvoice searches Opportunities by invoice number. A blank invoice
// falls back to a general fee search.
func (s *Session) SearchInvoice(ctx context.Context, invoice string) ([]entity.Record, error) {
	invoice = strings.TrimSpace(invoice)
	if invoice == "" {
		return s.SearchByFee(ctx, s.opts.Fee)
	}

	records, err := s.search(ctx, selInvoiceField, invoice)
	if err != nil {
		return nil, fmt.Errorf("search invoice %s: %w", invoice, err)
	}
	for i := range records {
		records[i].SourceInvoice = invoice
	}
	s.log.Info("invoice search finished", zap.String("invoice", invoice), zap.Int("records", len(records)))
	return records, nil
}

// SearchByFee searches Opportunities by net licence fee. An empty fee submits
// the form with the field cleared.
func (s *Session) SearchByFee(ctx context.Context, fee string) ([]entity.Record, error) {
	fee = strings.TrimSpace(fee)
	source := "fee_search_general"
	if fee != "" {
		source = "fee_search_" + fee
	}

	records, err := s.search(ctx, selFeeField, fee)
	if err != nil {
		return nil, fmt.Errorf("search by fee: %w", err)
	}
	for i := range records {
		records[i].SourceInvoice = source
	}
	s.log.Info("fee search finished", zap.String("fee", fee), zap.Int("records", len(records)))
	return records, nil
}

func (s *Session) search(ctx context.Context, field, value string) ([]entity.Record, error) {
	if err := s.waitFor(ctx, FrameMid, field); err != nil {
		return nil, err
	}
	if err := s.driver.SetValue(ctx, FrameMid, field, value); err != nil {
		return nil, err
	}
	if err := sleep(ctx, s.opts.Timing.AfterFill); err != nil {
		return nil, err
	}

	clicked := false
	for _, sel := range searchButtons {
		n, err := s.driver.Count(ctx, FrameMid, sel)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			continue
		}
		if err := s.driver.Click(ctx, FrameMid, sel, 0, false); err != nil {
			return nil, err
		}
		clicked = true
		break
	}
	if !clicked {
		s.log.Warn("search button not found", zap.String("field", field))
		return nil, nil
	}

	if err := sleep(ctx, s.opts.Timing.AfterSearch); err != nil {
		return nil, err
	}
	page, err := s.driver.HTML(ctx, FrameMid)
	if err != nil {
		return nil, err
	}
	return ParseResults(page), nil
}

// Run opens the CRM, logs in and searches every invoice in order. Records are
// tagged with the 1-based position of their invoice. A failing search is
// logged and contributes no records.
func (s *Session) Run(ctx context.Context, invoices []string) ([]entity.Record, error) {
	if err := s.Open(ctx); err != nil {
		return nil, err
	}
	if err := s.Login(ctx); err != nil {
		return nil, err
	}

	var all []entity.Record
	for i, invoice := range invoices {
		if i > 0 {
			if err := sleep(ctx, s.opts.Timing.BetweenSearch); err != nil {
				return all, err
			}
		}

		records, err := s.SearchInvoice(ctx, invoice)
		if err != nil {
			if ctx.Err() != nil {
				return all, ctx.Err()
			}
			s.log.Warn("crm search failed", zap.Int("index", i+1), zap.String("invoice", invoice), zap.Error(err))
			continue
		}
		for j := range records {
			records[j].Index = i + 1
		}
		all = append(all, records...)
	}
	return all, nil
}

// Close releases the browser.
func (s *Session) Close() error {
	return s.driver.Close()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// positive clamps d to the smallest duration go-retry accepts.
func positive(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Millisecond
	}
	return d
}
