// internal/browser/session/session_test.go
package session

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestJSCall(t *testing.T) {
	expr, err := jsCall(jsAssign, `input[name="u"]`, `p"w'd\`)
	require.NoError(t, err)
	assert.Contains(t, expr, `("input[name=\"u\"]", "p\"w'd\\")`)
	assert.Equal(t, "("+jsHasElement+")(\"#x\")", mustCall(t, jsHasElement, "#x"))

	expr, err = jsCall(jsMarkByText, "button", []string{"login", "登录"}, "data-x")
	require.NoError(t, err)
	assert.Contains(t, expr, `["login","登录"]`)

	_, err = jsCall(jsClick, make(chan int))
	assert.Error(t, err)
}

func mustCall(t *testing.T, fn string, args ...any) string {
	t.Helper()
	expr, err := jsCall(fn, args...)
	require.NoError(t, err)
	return expr
}

const testLoginPage = `<!doctype html><html><body>
<form action="/done" method="get">
  <input id="id_username" name="username" type="text">
  <input id="id_password" name="password" type="password">
  <button type="submit">Sign in</button>
</form>
<script>window.__secret = 'not visible';</script>
</body></html>`

func newChromeSession(t *testing.T) *Session {
	t.Helper()
	if testing.Short() {
		t.Skip("browser tests skipped in short mode")
	}
	if _, err := exec.LookPath("google-chrome"); err != nil {
		if _, err := exec.LookPath("chromium"); err != nil {
			t.Skip("no Chrome binary available")
		}
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(),
		append(chromedp.DefaultExecAllocatorOptions[:], chromedp.NoSandbox)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	s := New(tabCtx, tabCancel, zaptest.NewLogger(t))
	t.Cleanup(func() {
		_ = s.Close(context.Background())
		allocCancel()
	})
	return s
}

func TestSessionAgainstChrome(t *testing.T) {
	s := newChromeSession(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/login/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, testLoginPage)
	})
	mux.HandleFunc("/done", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><a href="/logout/">Logout</a> Dashboard</body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, s.Navigate(ctx, srv.URL+"/login/"))
	require.NoError(t, s.WaitVisible(ctx, "#id_username"))

	require.NoError(t, s.TypeText(ctx, "#id_username", "alice"))
	v, err := s.Value(ctx, "#id_username")
	require.NoError(t, err)
	assert.Equal(t, "alice", v)

	require.NoError(t, s.ClearValue(ctx, "#id_username"))
	require.NoError(t, s.AssignValue(ctx, "#id_password", "s3cret"))
	v, err = s.Value(ctx, "#id_password")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", v)

	assert.ErrorIs(t, s.ClickScripted(ctx, "#missing"), ErrNoElement)

	found, err := s.MarkByText(ctx, "button", []string{"sign in"}, "data-mark")
	require.NoError(t, err)
	assert.True(t, found)
	present, err := s.HasElement(ctx, `[data-mark="1"]`)
	require.NoError(t, err)
	assert.True(t, present)

	text, err := s.VisibleText(ctx)
	require.NoError(t, err)
	assert.NotContains(t, text, "not visible")

	wait := s.ExpectNavigation(ctx)
	require.NoError(t, s.Click(ctx, `[data-mark="1"]`))
	require.NoError(t, wait(ctx))

	present, err = s.HasElement(ctx, `a[href="/logout/"]`)
	require.NoError(t, err)
	assert.True(t, present)

	markup, err := s.Content(ctx)
	require.NoError(t, err)
	assert.Contains(t, markup, "Dashboard")

	png, err := s.Screenshot(ctx)
	require.NoError(t, err)
	assert.Greater(t, len(png), 8)

	require.NoError(t, s.Close(ctx))
	assert.NoError(t, s.Close(ctx))
}

func TestRunBackgroundActionsOutlivesCancellation(t *testing.T) {
	// A plain context is not a chromedp target, so actions that get to run fail with
	// ErrInvalidContext rather than with the caller's context error.
	s := New(context.Background(), func() {}, zaptest.NewLogger(t))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.RunActions(cancelled, chromedp.Sleep(0)), context.Canceled)
	assert.ErrorIs(t, s.RunBackgroundActions(cancelled, chromedp.Sleep(0)), chromedp.ErrInvalidContext)

	_, err := s.Screenshot(cancelled)
	assert.ErrorIs(t, err, chromedp.ErrInvalidContext, "capture is attempted after an interrupt")

	expired, cancelExpired := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancelExpired()
	assert.ErrorIs(t, s.RunBackgroundActions(expired, chromedp.Sleep(0)), context.DeadlineExceeded)
}
