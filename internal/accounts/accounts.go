// File: internal/accounts/accounts.go
package accounts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Account is one panel login. It is never modified after loading.
type Account struct {
	Username  string
	Password  string
	PanelHost string
}

// ID identifies an account across runs.
func (a Account) ID() string {
	return a.PanelHost + "/" + a.Username
}

// Service returns the display label of the backend the account belongs to.
func (a Account) Service() string {
	return ServiceLabel(a.PanelHost)
}

// String never includes the password.
func (a Account) String() string {
	return fmt.Sprintf("%s@%s", a.Username, a.PanelHost)
}

// record is the on-disk shape. Every field is optional so incomplete entries can be
// detected and skipped instead of failing the whole file.
type record struct {
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	Panel    string `json:"panel" yaml:"panel"`
}

// labels are matched in order against the lowercased host.
var labels = []struct {
	needle string
	label  string
}{
	{"ct8", "CT8"},
	{"serv00", "Serv00"},
}

// DefaultServiceLabel is used for hosts that match no known backend.
const DefaultServiceLabel = "Serv00"

// ServiceLabel classifies a panel host by substring match.
func ServiceLabel(host string) string {
	h := strings.ToLower(host)
	for _, l := range labels {
		if strings.Contains(h, l.needle) {
			return l.label
		}
	}
	return DefaultServiceLabel
}

// NormalizeHost strips a scheme, any path and surrounding whitespace from a panel host.
func NormalizeHost(raw string) string {
	h := strings.TrimSpace(raw)
	if i := strings.Index(h, "://"); i >= 0 {
		h = h[i+3:]
	}
	if i := strings.IndexByte(h, '/'); i >= 0 {
		h = h[:i]
	}
	return strings.ToLower(h)
}

// Loader reads account lists from a file.
type Loader struct {
	logger *zap.Logger
	path   string
}

// NewLoader creates a loader for the given path. A leading ~ is expanded.
func NewLoader(logger *zap.Logger, path string) *Loader {
	return &Loader{logger: logger.Named("accounts"), path: path}
}

// Load reads and parses the account file. Records missing a username, password or panel
// are skipped with a warning.
func (l *Loader) Load(ctx context.Context) ([]Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := homedir.Expand(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand accounts path %q: %w", l.path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read accounts file: %w", err)
	}
	records, err := decode(path, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse accounts file %s: %w", path, err)
	}

	out := make([]Account, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for i, r := range records {
		acc := Account{
			Username:  strings.TrimSpace(r.Username),
			Password:  r.Password,
			PanelHost: NormalizeHost(r.Panel),
		}
		if acc.Username == "" || acc.Password == "" || acc.PanelHost == "" {
			l.logger.Warn("Skipping incomplete account record.",
				zap.Int("index", i),
				zap.String("username", acc.Username),
				zap.String("panel", acc.PanelHost))
			continue
		}
		if _, dup := seen[acc.ID()]; dup {
			l.logger.Warn("Skipping duplicate account record.", zap.Int("index", i), zap.String("account", acc.String()))
			continue
		}
		seen[acc.ID()] = struct{}{}
		out = append(out, acc)
	}
	l.logger.Info("Accounts loaded.", zap.Int("count", len(out)), zap.Int("skipped", len(records)-len(out)))
	return out, nil
}

// decode parses a list of records. Non-object entries decode as empty records so they are
// skipped with the other incomplete ones.
func decode(path string, data []byte) ([]record, error) {
	var raw []any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	}

	records := make([]record, len(raw))
	for i, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		records[i] = record{
			Username: stringField(m, "username"),
			Password: stringField(m, "password"),
			Panel:    stringField(m, "panel"),
		}
	}
	return records, nil
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
