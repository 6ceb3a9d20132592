// internal/browser/manager_test.go
package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/panelkeeper/internal/config"
	"github.com/xkilldash9x/panelkeeper/internal/mocks"
)

func TestLaunchFlags(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		flags := launchFlags(config.BrowserConfig{Headless: true, WindowWidth: 1366, WindowHeight: 900})
		assert.Equal(t, true, flags["headless"])
		assert.Equal(t, true, flags["no-sandbox"])
		assert.Equal(t, true, flags["disable-dev-shm-usage"])
		assert.Equal(t, "1366,900", flags["window-size"])
	})

	t.Run("HeadlessDisabled", func(t *testing.T) {
		flags := launchFlags(config.BrowserConfig{Headless: false})
		assert.Equal(t, false, flags["headless"])
		assert.NotContains(t, flags, "window-size")
	})

	t.Run("ExtraArgsOverride", func(t *testing.T) {
		flags := launchFlags(config.BrowserConfig{
			Args: []string{"--proxy-server=socks5://127.0.0.1:1080", "--disable-gpu=false", "--mute-audio", " ", "--"},
		})
		assert.Equal(t, "socks5://127.0.0.1:1080", flags["proxy-server"])
		assert.Equal(t, "false", flags["disable-gpu"])
		assert.Equal(t, true, flags["mute-audio"])
		assert.NotContains(t, flags, "")
	})
}

func TestDefaultAllocatorOptions(t *testing.T) {
	base := len(DefaultAllocatorOptions(config.BrowserConfig{}))
	withExtras := DefaultAllocatorOptions(config.BrowserConfig{
		ExecPath:     "/usr/bin/chromium",
		WindowWidth:  800,
		WindowHeight: 600,
		Persona:      config.PersonaConfig{UserAgent: "ua"},
	})
	// window-size flag, exec path, user agent and window size options.
	assert.Equal(t, base+4, len(withExtras))
}

func TestManagerLifecycleWithoutLaunch(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t), config.BrowserConfig{Headless: true})

	t.Run("ReleaseForeignPage", func(t *testing.T) {
		err := m.ReleasePage(context.Background(), mocks.NewFakePage(nil))
		assert.ErrorContains(t, err, "was not issued by this manager")
	})

	t.Run("CancelledContext", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := m.AcquirePage(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("CloseWithoutLaunch", func(t *testing.T) {
		require.NoError(t, m.Close(context.Background()))
		assert.NoError(t, m.Close(context.Background()))
		_, err := m.AcquirePage(context.Background())
		assert.ErrorIs(t, err, ErrClosed)
	})
}

func TestManagerAgainstChrome(t *testing.T) {
	if testing.Short() {
		t.Skip("browser tests skipped in short mode")
	}
	if _, err := exec.LookPath("google-chrome"); err != nil {
		if _, err := exec.LookPath("chromium"); err != nil {
			t.Skip("no Chrome binary available")
		}
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body><p id="ua">%s</p></body></html>`, r.Header.Get("Accept-Language"))
	}))
	defer srv.Close()

	cfg := config.NewDefaultConfig().Browser
	m := NewManager(zaptest.NewLogger(t), cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	first, err := m.AcquirePage(ctx)
	require.NoError(t, err)
	second, err := m.AcquirePage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, m.OpenPages())

	require.NoError(t, first.Navigate(ctx, srv.URL))
	text, err := first.VisibleText(ctx)
	require.NoError(t, err)
	assert.Contains(t, text, "en-US")

	require.NoError(t, m.ReleasePage(ctx, first))
	assert.Equal(t, 1, m.OpenPages())
	assert.Error(t, m.ReleasePage(ctx, first))

	// Close reaps tabs that were never released.
	require.NoError(t, m.Close(ctx))
	assert.Equal(t, 0, m.OpenPages())
	_ = second
}
