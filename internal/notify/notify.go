// internal/notify/notify.go
package notify

import (
	"context"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/xkilldash9x/panelkeeper/internal/config"
)

// Notifier delivers run results to the operator. Implementations never retry; a
// returned error is informational and must not abort a run.
type Notifier interface {
	// SendPhoto delivers the image at path with a short caption.
	SendPhoto(ctx context.Context, path, caption string) error
	// SendReport delivers the rendered report, splitting it as the channel requires.
	SendReport(ctx context.Context, text string) error
}

// New returns a Telegram notifier when a token and recipients are configured, and a
// logging notifier otherwise.
func New(logger *zap.Logger, cfg config.TelegramConfig) Notifier {
	if !cfg.Enabled() {
		logger.Info("Telegram is not configured, reports will only be logged.")
		return NewLogNotifier(logger)
	}
	return NewTelegram(logger, cfg)
}

// LogNotifier writes notifications to the log.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.Named("notify.log")}
}

func (n *LogNotifier) SendPhoto(_ context.Context, path, caption string) error {
	n.logger.Info("Failure screenshot.", zap.String("path", path), zap.String("caption", caption))
	return nil
}

func (n *LogNotifier) SendReport(_ context.Context, text string) error {
	n.logger.Info("Run report.", zap.Int("runes", utf8.RuneCountInString(text)))
	n.logger.Info(text)
	return nil
}
