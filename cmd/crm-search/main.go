// Command crm-search logs into the CRM, searches invoices or a fee and prints
// the scraped records.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"github.com/octobees/payadvice/internal/config"
	"github.com/octobees/payadvice/internal/crm"
	"github.com/octobees/payadvice/internal/dto"
	"github.com/octobees/payadvice/internal/entity"
	"github.com/octobees/payadvice/internal/export"
	"github.com/octobees/payadvice/internal/extract"
	"github.com/octobees/payadvice/internal/logger"
	"github.com/octobees/payadvice/internal/ocr"
)

type options struct {
	headless      bool
	invoice       string
	invoices      string
	image         string
	fee           string
	asJSON        bool
	asCSV         bool
	noInteractive bool
	webOutput     bool
}

func main() {
	var opts options
	flag.BoolVar(&opts.headless, "headless", false, "run the browser without a window")
	flag.StringVar(&opts.invoice, "invoice", "", "single invoice number to search")
	flag.StringVar(&opts.invoices, "invoices", "", "comma separated invoice numbers to search")
	flag.StringVar(&opts.image, "image", "", "payment advice image or PDF to read invoice numbers from")
	flag.StringVar(&opts.fee, "fee", "", "fee type searched for blank invoices (default general)")
	flag.BoolVar(&opts.asJSON, "json", false, "print records as JSON")
	flag.BoolVar(&opts.asCSV, "csv", false, "print records as CSV")
	flag.BoolVar(&opts.noInteractive, "no-interactive", false, "close the browser as soon as searches finish")
	flag.BoolVar(&opts.webOutput, "web-output", false, "print only the search response envelope for programmatic callers")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	applyFlags(cfg, opts)

	level := cfg.LogLevel
	if opts.webOutput || opts.asJSON || opts.asCSV {
		level = "warn"
	}
	zlog, err := logger.New(level, cfg.Env)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, zlog); err != nil {
		if opts.webOutput {
			_ = json.NewEncoder(os.Stdout).Encode(map[string]any{"success": false, "error": err.Error()})
		}
		zlog.Error("crm search failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, zlog *zap.Logger) error {
	if err := cfg.RequireCRMCredentials(); err != nil {
		return err
	}

	invoices, err := collectInvoices(ctx, cfg, opts, zlog)
	if err != nil {
		return err
	}
	invoices = searchList(invoices, opts.fee)

	driver, err := crm.NewChromeDriver(ctx, crm.ChromeOptions{Headless: cfg.CRM.Headless}, zlog)
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}

	sessionOpts := crm.OptionsFromConfig(cfg.CRM)
	sessionOpts.Fee = opts.fee
	session := crm.NewSession(driver, sessionOpts, zlog)
	defer func() {
		if err := session.Close(); err != nil {
			zlog.Warn("closing browser failed", zap.Error(err))
		}
	}()

	records, err := session.Run(ctx, invoices)
	if err != nil {
		return err
	}
	if len(invoices) > 0 {
		if err := printRecords(os.Stdout, records, opts); err != nil {
			return err
		}
	} else {
		zlog.Info("logged in, no searches requested")
	}

	if keepBrowserOpen(opts) {
		waitForEnter(ctx, os.Stdin, os.Stdout)
	}
	return nil
}

// collectInvoices merges --invoice, --invoices and the invoice numbers read
// from --image.
func collectInvoices(ctx context.Context, cfg *config.Config, opts options, zlog *zap.Logger) ([]string, error) {
	var fromImage []string
	if opts.image != "" {
		var err error
		if fromImage, err = invoicesFromFile(ctx, cfg, opts.image, zlog); err != nil {
			return nil, err
		}
	}
	return mergeInvoices([]string{opts.invoice}, strings.Split(opts.invoices, ","), fromImage), nil
}

// mergeInvoices flattens lists in order, trimming values and dropping blanks
// and duplicates.
func mergeInvoices(lists ...[]string) []string {
	var out []string
	seen := map[string]bool{}
	for _, list := range lists {
		for _, v := range list {
			v = strings.TrimSpace(v)
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// searchList turns a bare --fee into a single blank-invoice search, which
// the session runs against the fee type.
func searchList(invoices []string, fee string) []string {
	if len(invoices) == 0 && strings.TrimSpace(fee) != "" {
		return []string{""}
	}
	return invoices
}

// applyFlags overrides config with command line choices. The CLI is run by
// a person watching the browser, so only --headless decides; CRM_HEADLESS
// applies to the server and worker.
func applyFlags(cfg *config.Config, opts options) {
	cfg.CRM.Headless = opts.headless
}

func keepBrowserOpen(opts options) bool {
	return !opts.headless && !opts.noInteractive && !opts.webOutput
}

func invoicesFromFile(ctx context.Context, cfg *config.Config, path string, zlog *zap.Logger) ([]string, error) {
	var engine ocr.Engine
	if cfg.OCR.Engine == "vision" {
		vision, err := ocr.NewVisionEngine(ctx, cfg.OCR.GoogleAPIKey)
		if err != nil {
			return nil, err
		}
		engine = vision
	} else {
		engine = ocr.NewTesseractEngine(cfg.OCR.Language)
	}

	res, err := ocr.NewReader(engine, cfg.OCR.DPI, cfg.OCR.Concurrency, zlog).ExtractFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if !res.HasText() {
		return nil, fmt.Errorf("no text recognised in %s", path)
	}

	completer, err := extract.NewCompleter(ctx, cfg.LLM)
	if err != nil {
		zlog.Warn("llm unavailable, falling back to pattern parsing", zap.Error(err))
		return extract.Invoices([]entity.PageInfo{extract.ParseBankText(res.Text)}), nil
	}
	pages, err := extract.NewExtractor(completer, zlog).Extract(ctx, res.Text)
	if err != nil {
		return nil, err
	}
	return extract.Invoices(pages), nil
}

func printRecords(w io.Writer, records []entity.Record, opts options) error {
	if records == nil {
		records = []entity.Record{}
	}
	switch {
	case opts.webOutput:
		return json.NewEncoder(w).Encode(dto.SearchResponse{Success: true, Records: records, Count: len(records)})
	case opts.asJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case opts.asCSV:
		return export.WriteRecordsCSV(w, records)
	}

	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No CRM records found.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(export.RecordHeaders(records), "\t"))
	for _, row := range export.RecordRows(records) {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	fmt.Fprintf(tw, "\n%d record(s)\n", len(records))
	return tw.Flush()
}

// waitForEnter keeps the browser open until the user presses Enter or the
// process is interrupted.
func waitForEnter(ctx context.Context, in io.Reader, out io.Writer) {
	fmt.Fprintln(out, "Browser left open. Press Enter to close it...")
	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(in).ReadString('\n')
		done <- err
	}()
	select {
	case <-ctx.Done():
	case err := <-done:
		if err != nil && !errors.Is(err, io.EOF) {
			fmt.Fprintf(os.Stderr, "reading stdin: %v\n", err)
		}
	}
}
