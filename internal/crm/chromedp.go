package crm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ChromeOptions configures the local Chrome instance.
type ChromeOptions struct {
	Headless bool
	// ExecPath overrides the Chrome binary lookup.
	ExecPath string
}

// ChromeDriver drives a local Chrome through the DevTools protocol.
type ChromeDriver struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
}

// NewChromeDriver launches Chrome and returns a driver bound to its first tab.
// The browser lives until Close is called, independently of ctx.
func NewChromeDriver(ctx context.Context, opts ChromeOptions, log *zap.Logger) (*ChromeDriver, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", opts.Headless),
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	sugar := log.Sugar()
	tabCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Warnf),
	)

	d := &ChromeDriver{ctx: tabCtx, cancel: cancel, allocCancel: allocCancel}
	if err := d.run(ctx); err != nil {
		d.Close()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	return d, nil
}

// run executes actions on the tab while honouring cancellation of the caller's ctx.
func (d *ChromeDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(d.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (d *ChromeDriver) eval(ctx context.Context, frame, body string, out any, args ...any) error {
	encoded := make([]any, 0, len(args)+1)
	encoded = append(encoded, frame)
	encoded = append(encoded, args...)
	payload, err := json.Marshal(encoded)
	if err != nil {
		return fmt.Errorf("encode script args: %w", err)
	}
	script := fmt.Sprintf(frameScript, string(payload), body)
	return d.run(ctx, chromedp.Evaluate(script, out))
}

// frameScript resolves the named frame (searching nested framesets) into doc
// and runs body with the remaining arguments in args.
const frameScript = `(function(all){
  var frame = all[0], args = all.slice(1);
  function find(win, name) {
    try { if (win.frames[name]) { return win.frames[name]; } } catch (e) {}
    for (var i = 0; i < win.frames.length; i++) {
      try { var f = find(win.frames[i], name); if (f) { return f; } } catch (e) {}
    }
    return null;
  }
  var win = frame ? find(window, frame) : window;
  var doc = null;
  try { doc = win ? win.document : null; } catch (e) {}
  %[2]s
})(%[1]s)`

func (d *ChromeDriver) Navigate(ctx context.Context, url string) error {
	return d.run(ctx, chromedp.Navigate(url))
}

func (d *ChromeDriver) Reload(ctx context.Context) error {
	return d.run(ctx, chromedp.Reload())
}

func (d *ChromeDriver) Count(ctx context.Context, frame, selector string) (int, error) {
	var n int
	err := d.eval(ctx, frame, `
  if (!doc) { return 0; }
  return doc.querySelectorAll(args[0]).length;`, &n, selector)
	if err != nil {
		return 0, fmt.Errorf("count %s in %q: %w", selector, frame, err)
	}
	return n, nil
}

func (d *ChromeDriver) SetValue(ctx context.Context, frame, selector, value string) error {
	var ok bool
	err := d.eval(ctx, frame, `
  if (!doc) { return false; }
  var el = doc.querySelector(args[0]);
  if (!el) { return false; }
  el.focus();
  el.value = args[1];
  el.dispatchEvent(new Event('input', {bubbles: true}));
  el.dispatchEvent(new Event('change', {bubbles: true}));
  return true;`, &ok, selector, value)
	if err != nil {
		return fmt.Errorf("set %s in %q: %w", selector, frame, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s in %q", ErrElementNotFound, selector, frame)
	}
	return nil
}

func (d *ChromeDriver) Click(ctx context.Context, frame, selector string, index int, preferLink bool) error {
	var ok bool
	err := d.eval(ctx, frame, `
  if (!doc) { return false; }
  var el = doc.querySelectorAll(args[0])[args[1]];
  if (!el) { return false; }
  if (args[2]) { var link = el.querySelector('a'); if (link) { el = link; } }
  el.click();
  return true;`, &ok, selector, index, preferLink)
	if err != nil {
		return fmt.Errorf("click %s[%d] in %q: %w", selector, index, frame, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s[%d] in %q", ErrElementNotFound, selector, index, frame)
	}
	return nil
}

func (d *ChromeDriver) SelectOption(ctx context.Context, frame, selector, text string) (bool, error) {
	var ok bool
	err := d.eval(ctx, frame, `
  if (!doc) { return false; }
  var sel = doc.querySelector(args[0]);
  if (!sel) { return false; }
  var want = String(args[1]).trim().toLowerCase();
  for (var i = 0; i < sel.options.length; i++) {
    if (sel.options[i].text.trim().toLowerCase() === want) {
      sel.selectedIndex = i;
      sel.dispatchEvent(new Event('change', {bubbles: true}));
      return true;
    }
  }
  return false;`, &ok, selector, text)
	if err != nil {
		return false, fmt.Errorf("select %q in %s: %w", text, selector, err)
	}
	return ok, nil
}

func (d *ChromeDriver) HTML(ctx context.Context, frame string) (string, error) {
	var page string
	err := d.eval(ctx, frame, `
  if (!doc || !doc.documentElement) { return ""; }
  return doc.documentElement.outerHTML;`, &page)
	if err != nil {
		return "", fmt.Errorf("read html of %q: %w", frame, err)
	}
	return page, nil
}

// Close shuts the browser down, falling back to killing the allocator when a
// graceful close fails.
func (d *ChromeDriver) Close() error {
	err := chromedp.Cancel(d.ctx)
	d.cancel()
	d.allocCancel()
	if err != nil {
		return fmt.Errorf("close chrome: %w", err)
	}
	return nil
}

var _ Driver = (*ChromeDriver)(nil)
