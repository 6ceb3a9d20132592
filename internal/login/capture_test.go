// File: internal/login/capture_test.go
package login_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/panelkeeper/internal/login"
	"github.com/xkilldash9x/panelkeeper/internal/mocks"
)

func TestCapturer_Path(t *testing.T) {
	c := login.NewCapturer(zaptest.NewLogger(t), "/shots")
	assert.Equal(t, "/shots/screenshot_CT8_alice.png", c.Path("CT8", "alice"))
	assert.Equal(t, "/shots/screenshot_Serv00_team_alice_x.png", c.Path("Serv00", `team/alice\x`))
	assert.Equal(t, "screenshot_CT8_bob.png", login.NewCapturer(zaptest.NewLogger(t), "").Path("CT8", "bob"))
}

func TestCapturer_Capture(t *testing.T) {
	dir := t.TempDir()
	c := login.NewCapturer(zaptest.NewLogger(t), filepath.Join(dir, "nested"))
	path := c.Path("CT8", "alice")
	page := mocks.NewFakePage(nil)

	assert.Empty(t, c.Capture(context.Background(), page, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, page.PNG, data)
}

func TestCapturer_CaptureAfterCancel(t *testing.T) {
	c := login.NewCapturer(zaptest.NewLogger(t), t.TempDir())
	path := c.Path("CT8", "alice")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The fake honors ctx, so success here proves the capture detached from it.
	assert.Empty(t, c.Capture(ctx, mocks.NewFakePage(nil), path))
	assert.FileExists(t, path)
}

func TestCapturer_FailedCaptureRemovesStaleFile(t *testing.T) {
	c := login.NewCapturer(zaptest.NewLogger(t), t.TempDir())
	path := c.Path("Serv00", "bob")
	require.NoError(t, os.WriteFile(path, []byte("old evidence"), 0o644))

	page := mocks.NewFakePage(nil)
	page.ScreenshotErr = errors.New("target closed")

	advisories := c.Capture(context.Background(), page, path)
	require.Len(t, advisories, 1)
	assert.Equal(t, "capture", advisories[0].Op)
	assert.ErrorContains(t, advisories[0].Err, "target closed")
	assert.NoFileExists(t, path)
}

func TestCapturer_Clear(t *testing.T) {
	c := login.NewCapturer(zaptest.NewLogger(t), t.TempDir())
	path := c.Path("CT8", "carol")

	assert.Nil(t, c.Clear(path), "missing file is fine")

	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	assert.Nil(t, c.Clear(path))
	assert.NoFileExists(t, path)
}
