// File: internal/login/engine.go
package login

import (
	"context"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/xkilldash9x/panelkeeper/internal/accounts"
	"github.com/xkilldash9x/panelkeeper/internal/config"
)

// State is how far an account's attempt progressed.
type State int

const (
	StateIdle State = iota
	StatePageOpened
	StateFormLocated
	StateCredentialsInjected
	StateSubmitted
	StateClassified
	StateClosed
)

var stateNames = [...]string{"idle", "page_opened", "form_located", "credentials_injected", "submitted", "classified", "closed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Outcome is the result of one account's attempt. DiagnosticPath is set exactly when
// Authenticated is false.
type Outcome struct {
	Authenticated  bool
	Reason         Kind
	Err            error
	DiagnosticPath string
	State          State
	Advisories     []Advisory
}

// Engine runs the locate, fill, submit and classify pipeline on one page.
type Engine struct {
	logger     *zap.Logger
	cfg        config.LoginConfig
	catalog    Catalog
	injector   *Injector
	submitter  *Submitter
	classifier *Classifier
	capturer   *Capturer
}

// NewEngine wires the stages around catalog and vocab.
func NewEngine(logger *zap.Logger, cfg config.LoginConfig, catalog Catalog, vocab Vocabulary, pacer Pacer, capturer *Capturer) *Engine {
	logger = logger.Named("login")
	return &Engine{
		logger:     logger,
		cfg:        cfg,
		catalog:    catalog,
		injector:   NewInjector(logger, pacer, cfg.FieldTimeout),
		submitter:  NewSubmitter(logger, cfg, catalog.Submit),
		classifier: NewClassifier(logger, vocab, catalog.Logout, cfg.NavigationTimeout),
		capturer:   capturer,
	}
}

// LoginURL returns the form URL for a panel host.
func (e *Engine) LoginURL(host string) string {
	return e.cfg.Scheme + "://" + host + e.cfg.LoginPath
}

// ProtectedURL returns the authenticated-only URL for a panel host.
func (e *Engine) ProtectedURL(host string) string {
	return e.cfg.Scheme + "://" + host + e.cfg.ProtectedPath
}

// Login performs one attempt for acc on an already opened page and settles the diagnostic
// screenshot. It never panics and never returns an error; failures are in the Outcome.
func (e *Engine) Login(ctx context.Context, p Page, acc accounts.Account) Outcome {
	out := Outcome{State: StatePageOpened}
	path := e.capturer.Path(acc.Service(), acc.Username)
	logger := e.logger.With(zap.String("service", acc.Service()), zap.String("username", acc.Username))

	err := e.attempt(ctx, p, acc, &out.State, logger)
	if err == nil {
		out.Authenticated = true
		if adv := e.capturer.Clear(path); adv != nil {
			out.Advisories = append(out.Advisories, *adv)
		}
		logger.Info("Login verified.")
		return out
	}

	out.Reason = KindOf(err)
	out.Err = err
	out.DiagnosticPath = path
	out.Advisories = append(out.Advisories, e.capturer.Capture(ctx, p, path)...)
	logger.Warn("Login failed.",
		zap.String("reason", string(out.Reason)),
		zap.Stringer("state", out.State),
		zap.Error(err))
	return out
}

func (e *Engine) attempt(ctx context.Context, p Page, acc accounts.Account, state *State, logger *zap.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic during login attempt.", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			err = newError(KindUnexpected, "attempt", fmt.Errorf("panic: %v", r))
		}
	}()

	navCtx, cancel := context.WithTimeout(ctx, e.cfg.NavigationTimeout)
	err = p.Navigate(navCtx, e.LoginURL(acc.PanelHost))
	cancel()
	if err != nil {
		return newError(KindUnexpected, "open login page", err)
	}

	form, err := LocateForm(ctx, p, e.catalog, e.cfg.FieldTimeout)
	if err != nil {
		return err
	}
	*state = StateFormLocated
	logger.Debug("Form located.", zap.String("username_field", form.Username.Selector), zap.String("password_field", form.Password.Selector))

	if err := e.injector.Fill(ctx, p, "username", form.Username, acc.Username); err != nil {
		return err
	}
	if err := e.injector.Fill(ctx, p, "password", form.Password, acc.Password); err != nil {
		return err
	}
	*state = StateCredentialsInjected

	if err := e.submitter.Submit(ctx, p); err != nil {
		return err
	}
	*state = StateSubmitted

	err = e.classifier.Classify(ctx, p, e.ProtectedURL(acc.PanelHost))
	*state = StateClassified
	return err
}
