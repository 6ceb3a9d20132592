// File: cmd/components.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/xkilldash9x/panelkeeper/internal/browser"
	"github.com/xkilldash9x/panelkeeper/internal/browser/humanoid"
	"github.com/xkilldash9x/panelkeeper/internal/browser/session"
	"github.com/xkilldash9x/panelkeeper/internal/config"
	"github.com/xkilldash9x/panelkeeper/internal/login"
	"github.com/xkilldash9x/panelkeeper/internal/notify"
	"github.com/xkilldash9x/panelkeeper/internal/orchestrator"
	"github.com/xkilldash9x/panelkeeper/internal/report"
	"github.com/xkilldash9x/panelkeeper/internal/store"
)

const componentShutdownTimeout = 20 * time.Second

// runComponents holds the long lived pieces of one run.
type runComponents struct {
	logger       *zap.Logger
	Browser      *browser.Manager
	Recorder     store.Recorder
	Notifier     notify.Notifier
	Orchestrator *orchestrator.Orchestrator
}

// initializeRunComponents wires the browser, login engine, notifier and history store
// into an orchestrator. On error the partially built components are returned so the
// caller can shut them down.
func initializeRunComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*runComponents, error) {
	c := &runComponents{logger: logger}

	screenshotDir, err := homedir.Expand(cfg.Run.ScreenshotDir)
	if err != nil {
		return c, fmt.Errorf("failed to expand screenshot directory: %w", err)
	}
	if err := os.MkdirAll(screenshotDir, 0o755); err != nil {
		return c, fmt.Errorf("failed to create screenshot directory: %w", err)
	}

	recorder, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		return c, fmt.Errorf("failed to open run history: %w", err)
	}
	c.Recorder = recorder
	c.Notifier = notify.New(logger, cfg.Notify.Telegram)
	c.Browser = browser.NewManager(logger, cfg.Browser)

	vocab := login.MergeVocabularies()
	engine := login.NewEngine(
		logger,
		cfg.Login,
		login.DefaultCatalog(vocab),
		vocab,
		humanoid.NewKeyboard(cfg.Browser.Typing, nil),
		login.NewCapturer(logger, screenshotDir),
	)

	loc, err := report.LoadLocation(cfg.Run.ReportTimezone)
	if err != nil {
		return c, fmt.Errorf("failed to resolve report timezone: %w", err)
	}
	orch, err := orchestrator.New(logger, c.Browser, engine, c.Notifier, c.Recorder, orchestrator.Options{
		MinDelay:    cfg.Run.MinDelay,
		MaxDelay:    cfg.Run.MaxDelay,
		Location:    loc,
		SummaryFile: cfg.Run.SummaryFile,
	})
	if err != nil {
		return c, fmt.Errorf("failed to create orchestrator: %w", err)
	}
	c.Orchestrator = orch
	return c, nil
}

// Shutdown closes the browser and the history store. It is safe to call more than once
// and on partially initialized components.
func (c *runComponents) Shutdown(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(session.Detach(ctx), componentShutdownTimeout)
	defer cancel()

	if c.Browser != nil {
		if err := c.Browser.Close(shutdownCtx); err != nil {
			c.logger.Warn("Failed to shut down browser.", zap.Error(err))
		}
	}
	if c.Recorder != nil {
		if err := c.Recorder.Close(); err != nil {
			c.logger.Warn("Failed to close run history.", zap.Error(err))
		}
		c.Recorder = nil
	}
}
