// internal/browser/manager.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/panelkeeper/internal/browser/session"
	"github.com/xkilldash9x/panelkeeper/internal/browser/stealth"
	"github.com/xkilldash9x/panelkeeper/internal/config"
	"github.com/xkilldash9x/panelkeeper/internal/login"
)

// ErrClosed is returned by AcquirePage once the manager has been shut down.
var ErrClosed = errors.New("browser manager is closed")

// Manager owns the single browser process and hands out one tab per login attempt.
type Manager struct {
	logger  *zap.Logger
	cfg     config.BrowserConfig
	persona stealth.Persona

	// Initialization state management
	initOnce      sync.Once
	initErr       error
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu     sync.Mutex
	pages  map[string]*session.Session
	closed bool

	closeOnce sync.Once
	closeErr  error
}

// NewManager creates a browser manager. The browser is launched on the first AcquirePage.
func NewManager(logger *zap.Logger, cfg config.BrowserConfig) *Manager {
	m := &Manager{
		logger:  logger.Named("browser_manager"),
		cfg:     cfg,
		persona: stealth.FromConfig(cfg.Persona),
		pages:   make(map[string]*session.Session),
	}
	m.logger.Debug("Browser manager created (initialization deferred).")
	return m
}

// launchFlags returns the command line switches for the browser process. Extra args of
// the form --name=value or --name override the defaults.
func launchFlags(cfg config.BrowserConfig) map[string]any {
	flags := map[string]any{
		"headless":                 cfg.Headless,
		"no-sandbox":               true,
		"disable-setuid-sandbox":   true,
		"disable-dev-shm-usage":    true,
		"disable-gpu":              true,
		"no-first-run":             true,
		"no-default-browser-check": true,
		"disable-blink-features":   "AutomationControlled",
	}
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		flags["window-size"] = fmt.Sprintf("%d,%d", cfg.WindowWidth, cfg.WindowHeight)
	}
	for _, arg := range cfg.Args {
		name := strings.TrimLeft(strings.TrimSpace(arg), "-")
		if name == "" {
			continue
		}
		if k, v, ok := strings.Cut(name, "="); ok {
			flags[k] = v
		} else {
			flags[name] = true
		}
	}
	return flags
}

// DefaultAllocatorOptions builds the exec allocator options for cfg.
func DefaultAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	for k, v := range launchFlags(cfg) {
		opts = append(opts, chromedp.Flag(k, v))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.Persona.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.Persona.UserAgent))
	}
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight))
	}
	return opts
}

// initialize launches the browser process. The process is detached from ctx's
// cancellation and lives until Close.
func (m *Manager) initialize(ctx context.Context) error {
	m.initOnce.Do(func() {
		m.logger.Info("Launching browser...", zap.Bool("headless", m.cfg.Headless))

		allocCtx, allocCancel := chromedp.NewExecAllocator(session.Detach(ctx), DefaultAllocatorOptions(m.cfg)...)
		browserCtx, browserCancel := chromedp.NewContext(allocCtx,
			chromedp.WithLogf(m.logger.Sugar().Debugf),
			chromedp.WithErrorf(m.logger.Sugar().Warnf),
		)

		// The first Run on a fresh context starts the process.
		if err := chromedp.Run(browserCtx); err != nil {
			browserCancel()
			allocCancel()
			m.initErr = fmt.Errorf("failed to launch browser instance: %w", err)
			return
		}

		m.allocCancel = allocCancel
		m.browserCtx = browserCtx
		m.browserCancel = browserCancel
		m.logger.Info("Browser launched.")
	})
	return m.initErr
}

// AcquirePage opens a fresh tab with the stealth persona applied.
func (m *Manager) AcquirePage(ctx context.Context) (login.Page, error) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.initialize(ctx); err != nil {
		return nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(m.browserCtx)
	s := session.New(tabCtx, tabCancel, m.logger)

	if err := s.RunActions(ctx, stealth.Apply(m.persona, m.logger)); err != nil {
		if cerr := s.Close(session.Detach(ctx)); cerr != nil {
			m.logger.Debug("Failed to close tab after setup error.", zap.Error(cerr))
		}
		return nil, fmt.Errorf("failed to prepare tab: %w", err)
	}

	m.mu.Lock()
	m.pages[s.ID()] = s
	open := len(m.pages)
	m.mu.Unlock()

	m.logger.Debug("Tab opened.", zap.String("session_id", s.ID()), zap.Int("open_tabs", open))
	return s, nil
}

// ReleasePage closes a tab obtained from AcquirePage.
func (m *Manager) ReleasePage(ctx context.Context, p login.Page) error {
	s, ok := p.(*session.Session)
	if !ok {
		return fmt.Errorf("page of type %T was not issued by this manager", p)
	}
	m.mu.Lock()
	_, owned := m.pages[s.ID()]
	delete(m.pages, s.ID())
	m.mu.Unlock()
	if !owned {
		return fmt.Errorf("page %s was not issued by this manager", s.ID())
	}
	return s.Close(ctx)
}

// OpenPages reports how many tabs are currently checked out.
func (m *Manager) OpenPages() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pages)
}

// Close shuts down any open tabs and the browser process. Safe to call more than once.
func (m *Manager) Close(ctx context.Context) error {
	m.closeOnce.Do(func() {
		// Waits for an in-flight launch and prevents any later one.
		m.initOnce.Do(func() { m.initErr = ErrClosed })

		m.mu.Lock()
		m.closed = true
		remaining := make([]*session.Session, 0, len(m.pages))
		for id, s := range m.pages {
			remaining = append(remaining, s)
			delete(m.pages, id)
		}
		m.mu.Unlock()

		var errs []error
		for _, s := range remaining {
			if err := s.Close(ctx); err != nil {
				m.logger.Warn("Error closing tab during shutdown.", zap.String("session_id", s.ID()), zap.Error(err))
				errs = append(errs, err)
			}
		}

		if m.browserCtx == nil {
			m.logger.Debug("Browser never launched, nothing to shut down.")
			m.closeErr = errors.Join(errs...)
			return
		}

		if err := chromedp.Cancel(m.browserCtx); err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Error("Failed to close browser instance.", zap.Error(err))
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
		m.browserCancel()
		m.allocCancel()
		m.logger.Info("Browser shut down.")
		m.closeErr = errors.Join(errs...)
	})
	return m.closeErr
}
