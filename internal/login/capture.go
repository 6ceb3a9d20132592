// File: internal/login/capture.go
package login

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Advisory records a best-effort side action that failed. Advisories are logged and
// reported but never change an outcome.
type Advisory struct {
	Op   string
	Path string
	Err  error
}

func (a Advisory) String() string {
	return fmt.Sprintf("%s %s: %v", a.Op, a.Path, a.Err)
}

// captureTimeout bounds a screenshot taken after the attempt's own context has ended.
const captureTimeout = 10 * time.Second

// Capturer owns the diagnostic screenshot of each account.
type Capturer struct {
	logger *zap.Logger
	dir    string
}

// NewCapturer stores screenshots under dir.
func NewCapturer(logger *zap.Logger, dir string) *Capturer {
	if dir == "" {
		dir = "."
	}
	return &Capturer{logger: logger, dir: dir}
}

var unsafeName = strings.NewReplacer("/", "_", `\`, "_")

// Path returns the deterministic screenshot path for a service and username.
func (c *Capturer) Path(service, username string) string {
	return filepath.Join(c.dir, fmt.Sprintf("screenshot_%s_%s.png", service, unsafeName.Replace(username)))
}

// Capture writes a full-page screenshot to path. The capture runs even if ctx is already
// cancelled, bounded by its own timeout. When capture fails any older file at path is
// removed so it cannot be mistaken for this attempt's evidence.
func (c *Capturer) Capture(ctx context.Context, p Page, path string) []Advisory {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), captureTimeout)
	defer cancel()

	png, err := p.Screenshot(cctx)
	if err == nil {
		err = c.write(path, png)
	}
	if err == nil {
		c.logger.Debug("Diagnostic screenshot saved.", zap.String("path", path))
		return nil
	}

	advisories := []Advisory{{Op: "capture", Path: path, Err: err}}
	c.logger.Warn("Could not save diagnostic screenshot.", zap.String("path", path), zap.Error(err))
	if adv := c.Clear(path); adv != nil {
		advisories = append(advisories, *adv)
	}
	return advisories
}

func (c *Capturer) write(path string, png []byte) error {
	if len(png) == 0 {
		return errors.New("empty screenshot")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, png, 0o644)
}

// Clear removes any screenshot at path. A missing file is not an error.
func (c *Capturer) Clear(path string) *Advisory {
	err := os.Remove(path)
	if err == nil {
		c.logger.Debug("Removed stale screenshot.", zap.String("path", path))
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	c.logger.Warn("Could not remove stale screenshot.", zap.String("path", path), zap.Error(err))
	return &Advisory{Op: "remove", Path: path, Err: err}
}
