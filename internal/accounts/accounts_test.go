// File: internal/accounts/accounts_test.go
package accounts

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestServiceLabel(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"panel.ct8.pl", "CT8"},
		{"PANEL.CT8.PL", "CT8"},
		{"panel5.serv00.com", "Serv00"},
		{"example.org", DefaultServiceLabel},
		{"", DefaultServiceLabel},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.want, ServiceLabel(tt.host))
		})
	}
}

func TestNormalizeHost(t *testing.T) {
	assert.Equal(t, "panel.ct8.pl", NormalizeHost(" https://Panel.CT8.pl/login/ "))
	assert.Equal(t, "panel5.serv00.com", NormalizeHost("panel5.serv00.com/"))
	assert.Equal(t, "panel5.serv00.com", NormalizeHost("panel5.serv00.com"))
}

func TestLoader_LoadJSON(t *testing.T) {
	path := writeFile(t, "accounts.json", `[
		{"username": "alice", "password": "pw1", "panel": "panel.ct8.pl"},
		{"username": "bob", "password": "", "panel": "panel5.serv00.com"},
		{"username": "carol", "password": "pw3", "panel": "https://panel5.serv00.com/"},
		"not-an-object",
		{"username": "alice", "password": "again", "panel": "panel.ct8.pl"}
	]`)

	core, logs := observer.New(zap.WarnLevel)
	got, err := NewLoader(zap.New(core), path).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []Account{
		{Username: "alice", Password: "pw1", PanelHost: "panel.ct8.pl"},
		{Username: "carol", Password: "pw3", PanelHost: "panel5.serv00.com"},
	}, got)
	assert.Equal(t, 2, logs.FilterMessage("Skipping incomplete account record.").Len())
	assert.Equal(t, 1, logs.FilterMessage("Skipping duplicate account record.").Len())
}

func TestLoader_LoadYAML(t *testing.T) {
	path := writeFile(t, "accounts.yaml", `
- username: dave
  password: secret
  panel: panel.ct8.pl
- username: erin
  panel: panel5.serv00.com
`)
	got, err := NewLoader(zap.NewNop(), path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "dave", got[0].Username)
	assert.Equal(t, "CT8", got[0].Service())
}

func TestLoader_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := NewLoader(zap.NewNop(), filepath.Join(t.TempDir(), "none.json")).Load(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read accounts file")
	})

	t.Run("malformed file", func(t *testing.T) {
		path := writeFile(t, "accounts.json", `{"username": "x"`)
		_, err := NewLoader(zap.NewNop(), path).Load(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse accounts file")
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewLoader(zap.NewNop(), "accounts.json").Load(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestAccountString(t *testing.T) {
	acc := Account{Username: "alice", Password: "hunter2", PanelHost: "panel.ct8.pl"}
	assert.NotContains(t, acc.String(), "hunter2")
	assert.Equal(t, "panel.ct8.pl/alice", acc.ID())
}
