// File: internal/orchestrator/orchestrator.go
// Description: Drives one keep-alive run. Accounts are attempted one at a time on a
// shared browser, results are reported, recorded and sent to the operator.

package orchestrator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/panelkeeper/internal/accounts"
	"github.com/xkilldash9x/panelkeeper/internal/browser/session"
	"github.com/xkilldash9x/panelkeeper/internal/login"
	"github.com/xkilldash9x/panelkeeper/internal/notify"
	"github.com/xkilldash9x/panelkeeper/internal/report"
	"github.com/xkilldash9x/panelkeeper/internal/store"
)

const (
	releaseTimeout  = 10 * time.Second
	shutdownTimeout = 15 * time.Second
)

// Browser hands out one page per account and is closed once at the end of a run.
type Browser interface {
	AcquirePage(ctx context.Context) (login.Page, error)
	ReleasePage(ctx context.Context, p login.Page) error
	Close(ctx context.Context) error
}

// Authenticator performs a single login attempt on an open page.
type Authenticator interface {
	Login(ctx context.Context, p login.Page, acc accounts.Account) login.Outcome
}

// Options tunes a run.
type Options struct {
	// MinDelay and MaxDelay bound the random pause between consecutive accounts.
	MinDelay time.Duration
	MaxDelay time.Duration
	// Location renders report timestamps.
	Location *time.Location
	// SummaryFile, when set, receives a Markdown summary of the run.
	SummaryFile string
}

// Orchestrator runs accounts strictly sequentially against a shared browser.
type Orchestrator struct {
	logger   *zap.Logger
	browser  Browser
	auth     Authenticator
	notifier notify.Notifier
	recorder store.Recorder
	opts     Options

	now   func() time.Time
	pause func(ctx context.Context, d time.Duration) error
	delay func() time.Duration
}

// New creates an Orchestrator. recorder may be nil when history is disabled.
func New(
	logger *zap.Logger,
	browser Browser,
	auth Authenticator,
	notifier notify.Notifier,
	recorder store.Recorder,
	opts Options,
) (*Orchestrator, error) {
	if logger == nil || browser == nil || auth == nil || notifier == nil {
		return nil, fmt.Errorf("cannot initialize orchestrator with nil dependencies")
	}
	if opts.MaxDelay < opts.MinDelay {
		return nil, fmt.Errorf("max delay %v is less than min delay %v", opts.MaxDelay, opts.MinDelay)
	}
	if recorder == nil {
		recorder = store.Nop{}
	}
	if opts.Location == nil {
		loc, err := report.LoadLocation("")
		if err != nil {
			return nil, err
		}
		opts.Location = loc
	}
	o := &Orchestrator{
		logger:   logger.Named("orchestrator"),
		browser:  browser,
		auth:     auth,
		notifier: notifier,
		recorder: recorder,
		opts:     opts,
		now:      time.Now,
		pause:    sleep,
	}
	o.delay = o.randomDelay
	return o, nil
}

// Run attempts every account in order and dispatches the final report. The browser is
// closed exactly once before Run returns. When ctx is cancelled Run stops before the next
// account, sends no report, and returns the partial report with ctx's error.
func (o *Orchestrator) Run(ctx context.Context, accts []accounts.Account) (*report.Report, error) {
	runID := uuid.NewString()
	logger := o.logger.With(zap.String("run_id", runID))
	rep := report.New(runID, o.now(), o.opts.Location)

	defer o.closeBrowser(ctx, logger)

	logger.Info("Starting run.", zap.Int("accounts", len(accts)))
	for i, acc := range accts {
		if err := ctx.Err(); err != nil {
			logger.Warn("Run interrupted.", zap.Int("processed", i), zap.Error(err))
			return rep, err
		}

		entry := o.process(ctx, acc, logger.With(zap.Int("index", i+1)))
		if err := ctx.Err(); err != nil {
			// The attempt was cut short; its verdict says nothing about the account.
			logger.Warn("Run interrupted.", zap.Int("processed", i), zap.Error(err))
			return rep, err
		}
		rep.Add(entry)
		o.record(ctx, runID, entry, logger)
		o.sendScreenshot(ctx, entry, logger)

		if i < len(accts)-1 {
			if err := o.pause(ctx, o.delay()); err != nil {
				logger.Warn("Run interrupted.", zap.Int("processed", i+1), zap.Error(err))
				return rep, err
			}
		}
	}
	rep.Finished = o.now()

	if err := o.notifier.SendReport(ctx, rep.Format()); err != nil {
		logger.Warn("Failed to deliver report.", zap.Error(err))
	}
	if o.opts.SummaryFile != "" {
		if err := report.WriteMarkdownFile(o.opts.SummaryFile, rep); err != nil {
			logger.Warn("Failed to write run summary.", zap.Error(err))
		}
	}

	logger.Info("Run complete.",
		zap.Int("succeeded", rep.Succeeded()),
		zap.Int("failed", rep.Failed()),
		zap.Duration("duration", rep.Finished.Sub(rep.Started)))
	return rep, nil
}

// process runs one account on its own page and always releases the page.
func (o *Orchestrator) process(ctx context.Context, acc accounts.Account, logger *zap.Logger) report.Entry {
	logger = logger.With(zap.String("service", acc.Service()), zap.String("username", acc.Username))
	logger.Info("Processing account.", zap.String("host", acc.PanelHost))

	entry := report.Entry{Service: acc.Service(), Username: acc.Username, Host: acc.PanelHost}

	p, err := o.browser.AcquirePage(ctx)
	if err != nil {
		logger.Error("Failed to open page.", zap.Error(err))
		entry.At = o.now()
		entry.Reason = login.KindUnexpected
		return entry
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(session.Detach(ctx), releaseTimeout)
		defer cancel()
		if err := o.browser.ReleasePage(releaseCtx, p); err != nil {
			logger.Warn("Failed to close page.", zap.Error(err))
		}
	}()

	out := o.login(ctx, p, acc, logger)
	for _, adv := range out.Advisories {
		logger.Debug("Advisory action failed.", zap.String("op", adv.Op), zap.String("path", adv.Path), zap.Error(adv.Err))
	}

	entry.At = o.now()
	entry.Authenticated = out.Authenticated
	entry.Reason = out.Reason
	if out.DiagnosticPath != "" {
		// Only reference a screenshot that actually made it to disk.
		if _, err := os.Stat(out.DiagnosticPath); err == nil {
			entry.Diagnostic = out.DiagnosticPath
		} else {
			logger.Debug("No screenshot kept.", zap.String("path", out.DiagnosticPath), zap.Error(err))
		}
	}
	return entry
}

// login shields the run from a panicking authenticator.
func (o *Orchestrator) login(ctx context.Context, p login.Page, acc accounts.Account, logger *zap.Logger) (out login.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic during login.", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			out = login.Outcome{Reason: login.KindUnexpected, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return o.auth.Login(ctx, p, acc)
}

func (o *Orchestrator) record(ctx context.Context, runID string, e report.Entry, logger *zap.Logger) {
	err := o.recorder.SaveOutcome(ctx, store.Record{
		RunID:         runID,
		Service:       e.Service,
		Username:      e.Username,
		Host:          e.Host,
		Authenticated: e.Authenticated,
		Reason:        string(e.Reason),
		Diagnostic:    e.Diagnostic,
		At:            e.At,
	})
	if err != nil {
		logger.Warn("Failed to record login attempt.", zap.Error(err))
	}
}

// sendScreenshot delivers the failure screenshot if one was written.
func (o *Orchestrator) sendScreenshot(ctx context.Context, e report.Entry, logger *zap.Logger) {
	if e.Authenticated || e.Diagnostic == "" {
		return
	}
	if err := o.notifier.SendPhoto(ctx, e.Diagnostic, report.Caption(e.Username)); err != nil {
		logger.Warn("Failed to deliver screenshot.", zap.String("path", e.Diagnostic), zap.Error(err))
	}
}

func (o *Orchestrator) closeBrowser(ctx context.Context, logger *zap.Logger) {
	closeCtx, cancel := context.WithTimeout(session.Detach(ctx), shutdownTimeout)
	defer cancel()
	if err := o.browser.Close(closeCtx); err != nil {
		logger.Error("Failed to shut down browser.", zap.Error(err))
	}
}

// randomDelay picks a pause uniformly from [MinDelay, MaxDelay].
func (o *Orchestrator) randomDelay() time.Duration {
	span := o.opts.MaxDelay - o.opts.MinDelay
	if span <= 0 {
		return o.opts.MinDelay
	}
	return o.opts.MinDelay + rand.N(span+1)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
