// Package pwengine exposes Playwright-driven Chromium pages through the
// query.Page capability.
package pwengine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/domq/api/schemas"
	"github.com/xkilldash9x/domq/internal/browser/stealth"
	"github.com/xkilldash9x/domq/internal/config"
	"github.com/xkilldash9x/domq/pkg/query"
)

const defaultLaunchTimeout = 60 * time.Second

// ErrBrowserClosed is returned by NewPage after Close.
var ErrBrowserClosed = errors.New("playwright browser is closed")

// Browser owns the Playwright driver and one Chromium instance.
type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	logger  *zap.Logger
	cfg     config.BrowserConfig

	mu     sync.Mutex
	closed bool
}

// Launch starts the Playwright driver and a Chromium instance. The driver
// must already be installed.
func Launch(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Browser, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := &Browser{logger: logger.Named("playwright"), cfg: cfg}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright driver: %w", err)
	}
	browser, err := pw.Chromium.Launch(launchOptions(ctx, cfg))
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser instance: %w", err)
	}
	b.pw, b.browser = pw, browser

	b.logger.Info("Browser launched successfully.", zap.String("browser_version", browser.Version()))
	return b, nil
}

func launchOptions(ctx context.Context, cfg config.BrowserConfig) playwright.BrowserTypeLaunchOptions {
	fallback := cfg.LaunchTimeout
	if fallback <= 0 {
		fallback = defaultLaunchTimeout
	}
	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
		Args:     append([]string{"--disable-blink-features=AutomationControlled"}, cfg.Args...),
		Timeout:  playwright.Float(timeoutMillis(ctx, fallback)),
	}
	if cfg.ExecPath != "" {
		opts.ExecutablePath = playwright.String(cfg.ExecPath)
	}
	return opts
}

func contextOptions(cfg config.BrowserConfig) playwright.BrowserNewContextOptions {
	opts := playwright.BrowserNewContextOptions{
		IgnoreHttpsErrors: playwright.Bool(cfg.IgnoreTLSErrors),
	}
	if !cfg.Stealth {
		return opts
	}
	p := cfg.Persona
	if p.UserAgent != "" {
		opts.UserAgent = playwright.String(p.UserAgent)
	}
	if p.Locale != "" {
		opts.Locale = playwright.String(p.Locale)
	}
	if p.Timezone != "" {
		opts.TimezoneId = playwright.String(p.Timezone)
	}
	if p.Width > 0 && p.Height > 0 {
		opts.Viewport = &playwright.Size{Width: int(p.Width), Height: int(p.Height)}
	}
	if lang := p.AcceptLanguage(); lang != "" {
		opts.ExtraHttpHeaders = map[string]string{"Accept-Language": lang}
	}
	return opts
}

// timeoutMillis converts the time left on ctx to Playwright milliseconds.
func timeoutMillis(ctx context.Context, fallback time.Duration) float64 {
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left > 0 {
			return float64(left.Milliseconds())
		}
		return 1
	}
	return float64(fallback.Milliseconds())
}

// NewPage opens an isolated browser context with a single page.
func (b *Browser) NewPage(ctx context.Context) (*Page, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, ErrBrowserClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bctx, err := b.browser.NewContext(contextOptions(b.cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	if b.cfg.Stealth {
		script, err := stealth.Script(b.cfg.Persona)
		if err != nil {
			_ = bctx.Close()
			return nil, err
		}
		if err := bctx.AddInitScript(playwright.Script{Content: playwright.String(script)}); err != nil {
			_ = bctx.Close()
			return nil, fmt.Errorf("failed to inject evasions script: %w", err)
		}
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	p := &Page{id: uuid.NewString(), bctx: bctx, page: page}
	p.logger = b.logger.With(zap.String("page_id", p.id))
	p.logger.Debug("Page opened.")
	return p, nil
}

// Close stops the browser and the driver.
func (b *Browser) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	var closeErr error
	if err := b.browser.Close(); err != nil {
		closeErr = fmt.Errorf("failed to close browser: %w", err)
	}
	if err := b.pw.Stop(); err != nil && closeErr == nil {
		closeErr = fmt.Errorf("failed to stop playwright driver: %w", err)
	}
	return closeErr
}

// Page is one Playwright page. It implements query.Page.
type Page struct {
	id     string
	bctx   playwright.BrowserContext
	page   playwright.Page
	logger *zap.Logger
}

var _ query.Page = (*Page)(nil)

// ID returns the page's identifier used in logs.
func (p *Page) ID() string { return p.id }

// Query returns the query helpers bound to this page.
func (p *Page) Query(opts ...query.Option) *query.Helpers {
	return query.New(p, append([]query.Option{query.WithLogger(p.logger)}, opts...)...)
}

// Navigate loads url and waits for the load event.
func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.logger.Debug("Navigating.", zap.String("url", url))
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwright.Float(timeoutMillis(ctx, defaultLaunchTimeout)),
	})
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// QuerySelector returns the first element matching selector, or nil.
func (p *Page) QuerySelector(ctx context.Context, selector string) (query.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h, err := p.page.QuerySelector(selector)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, nil
	}
	return &element{h: h}, nil
}

// QuerySelectorAll returns every element matching selector in document order.
func (p *Page) QuerySelectorAll(ctx context.Context, selector string) ([]query.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	handles, err := p.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, err
	}
	out := make([]query.Element, len(handles))
	for i, h := range handles {
		out[i] = &element{h: h}
	}
	return out, nil
}

// Close closes the page and its browser context.
func (p *Page) Close() error {
	if err := p.bctx.Close(); err != nil {
		return fmt.Errorf("failed to close browser context: %w", err)
	}
	return nil
}

type element struct {
	h playwright.ElementHandle
}

var _ query.Element = (*element)(nil)

// BoundingBox returns nil when the element is not visible.
func (e *element) BoundingBox(ctx context.Context) (*schemas.BoundingBox, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := e.h.BoundingBox()
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, nil
	}
	return &schemas.BoundingBox{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}, nil
}

// Evaluate calls fn with the element and args. Playwright reports both null
// and undefined as nil, so either comes back as query.Null.
func (e *element) Evaluate(ctx context.Context, fn string, args ...any) (query.Value, error) {
	if err := ctx.Err(); err != nil {
		return query.Value{}, err
	}
	if args == nil {
		args = []any{}
	}
	res, err := e.h.Evaluate(fmt.Sprintf("(el, args) => (%s)(el, ...args)", fn), args)
	if err != nil {
		return query.Value{}, fmt.Errorf("evaluation failed: %w", err)
	}
	return query.ValueOf(res)
}
