// internal/browser/manager.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/domq/internal/browser/stealth"
	"github.com/xkilldash9x/domq/internal/config"
)

const defaultLaunchTimeout = 30 * time.Second

// ErrManagerClosed is returned by NewTab after Shutdown.
var ErrManagerClosed = errors.New("browser manager is shut down")

// Manager owns one Chrome process and the tabs opened in it.
type Manager struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	// allocCtx manages the browser process. browserCtx is the first target;
	// every tab is derived from it.
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu     sync.Mutex
	tabs   map[string]*Tab
	closed bool

	// wg tracks open tabs for a graceful shutdown.
	wg sync.WaitGroup
}

// NewManager launches Chrome and waits until it answers, bounded by
// cfg.LaunchTimeout.
func NewManager(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		logger: logger.Named("browser_manager"),
		cfg:    cfg,
		tabs:   make(map[string]*Tab),
	}
	if err := m.launchBrowser(ctx); err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return m, nil
}

func (m *Manager) launchBrowser(ctx context.Context) error {
	m.logger.Debug("Initializing browser allocator...", zap.Bool("headless", m.cfg.Headless))

	m.allocCtx, m.allocCancel = chromedp.NewExecAllocator(ctx, DefaultAllocatorOptions(m.cfg)...)
	sugar := m.logger.Sugar()
	m.browserCtx, m.browserCancel = chromedp.NewContext(m.allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Debugf),
	)

	timeout := m.cfg.LaunchTimeout
	if timeout <= 0 {
		timeout = defaultLaunchTimeout
	}
	// The first Run binds the process to the context it is given, so it runs
	// on browserCtx itself and the deadline is enforced from outside.
	if err := runFirst(ctx, timeout, m.browserCtx, m.browserCancel); err != nil {
		m.allocCancel()
		return fmt.Errorf("browser failed to start or respond: %w", err)
	}

	m.logger.Info("Browser launched successfully and is responsive.")
	return nil
}

// runFirst performs the initial Run on target and cancels it if ctx ends or
// timeout passes first.
func runFirst(ctx context.Context, timeout time.Duration, target context.Context, cancel context.CancelFunc, actions ...chromedp.Action) error {
	errc := make(chan error, 1)
	go func() { errc <- chromedp.Run(target, actions...) }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-errc:
		return err
	case <-timer.C:
		cancel()
		<-errc
		return fmt.Errorf("timed out after %s", timeout)
	case <-ctx.Done():
		cancel()
		<-errc
		return ctx.Err()
	}
}

// NewTab opens a new tab with the configured persona applied.
func (m *Manager) NewTab(ctx context.Context) (*Tab, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	m.wg.Add(1)
	m.mu.Unlock()

	tabCtx, tabCancel := chromedp.NewContext(m.browserCtx)
	t := &Tab{
		id:     uuid.NewString(),
		ctx:    tabCtx,
		cancel: tabCancel,
	}
	t.logger = m.logger.Named("tab").With(zap.String("tab_id", t.id))
	t.onClose = func() {
		m.mu.Lock()
		delete(m.tabs, t.id)
		m.mu.Unlock()
		m.wg.Done()
	}

	var setup chromedp.Tasks
	if m.cfg.Stealth {
		tasks, err := stealth.Apply(m.cfg.Persona, t.logger)
		if err != nil {
			_ = t.Close()
			return nil, err
		}
		setup = tasks
	}

	timeout := m.cfg.LaunchTimeout
	if timeout <= 0 {
		timeout = defaultLaunchTimeout
	}
	if err := runFirst(ctx, timeout, tabCtx, tabCancel, setup...); err != nil {
		_ = t.Close()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}

	m.mu.Lock()
	m.tabs[t.id] = t
	m.mu.Unlock()

	t.logger.Debug("Tab opened.", zap.Bool("stealth", m.cfg.Stealth))
	return t, nil
}

// Shutdown closes every tab and terminates the browser. Tabs get until ctx
// ends to close before the process is killed.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	open := make([]*Tab, 0, len(m.tabs))
	for _, t := range m.tabs {
		open = append(open, t)
	}
	m.mu.Unlock()

	m.logger.Debug("Browser manager shutdown initiated.", zap.Int("open_tabs", len(open)))
	for _, t := range open {
		go func(t *Tab) {
			if err := t.Close(); err != nil {
				m.logger.Debug("Error closing tab during shutdown.", zap.String("tab_id", t.ID()), zap.Error(err))
			}
		}(t)
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("Shutdown deadline exceeded. Forcing browser termination.", zap.Error(ctx.Err()))
	}

	var shutdownErr error
	if err := chromedp.Cancel(m.browserCtx); err != nil && !errors.Is(err, context.Canceled) {
		shutdownErr = fmt.Errorf("failed to close browser: %w", err)
	}
	m.browserCancel()
	m.allocCancel()
	<-m.allocCtx.Done()
	return shutdownErr
}
