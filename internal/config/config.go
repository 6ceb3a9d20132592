// File: internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Login   LoginConfig   `mapstructure:"login" yaml:"login"`
	Run     RunConfig     `mapstructure:"run" yaml:"run"`
	Notify  NotifyConfig  `mapstructure:"notify" yaml:"notify"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the shared headless browser.
type BrowserConfig struct {
	Headless     bool          `mapstructure:"headless" yaml:"headless"`
	ExecPath     string        `mapstructure:"exec_path" yaml:"exec_path"`
	Args         []string      `mapstructure:"args" yaml:"args"`
	WindowWidth  int           `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight int           `mapstructure:"window_height" yaml:"window_height"`
	Persona      PersonaConfig `mapstructure:"persona" yaml:"persona"`
	Typing       TypingConfig  `mapstructure:"typing" yaml:"typing"`
}

// PersonaConfig describes the browser identity applied to every tab.
type PersonaConfig struct {
	UserAgent string   `mapstructure:"user_agent" yaml:"user_agent"`
	Platform  string   `mapstructure:"platform" yaml:"platform"`
	Languages []string `mapstructure:"languages" yaml:"languages"`
	Timezone  string   `mapstructure:"timezone" yaml:"timezone"`
	Locale    string   `mapstructure:"locale" yaml:"locale"`
}

// TypingConfig tunes per-character keystroke timing.
type TypingConfig struct {
	KeyDelay  time.Duration `mapstructure:"key_delay" yaml:"key_delay"`
	KeyJitter time.Duration `mapstructure:"key_jitter" yaml:"key_jitter"`
}

// LoginConfig tunes the login verification engine.
type LoginConfig struct {
	Scheme            string        `mapstructure:"scheme" yaml:"scheme"`
	LoginPath         string        `mapstructure:"login_path" yaml:"login_path"`
	ProtectedPath     string        `mapstructure:"protected_path" yaml:"protected_path"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	FieldTimeout      time.Duration `mapstructure:"field_timeout" yaml:"field_timeout"`
	SubmitTimeout     time.Duration `mapstructure:"submit_timeout" yaml:"submit_timeout"`
	PostSubmitTimeout time.Duration `mapstructure:"post_submit_timeout" yaml:"post_submit_timeout"`
	SettleDelay       time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
	SPAGrace          time.Duration `mapstructure:"spa_grace" yaml:"spa_grace"`
}

// RunConfig holds settings for a single keep-alive run.
type RunConfig struct {
	AccountsFile   string        `mapstructure:"accounts_file" yaml:"accounts_file"`
	ScreenshotDir  string        `mapstructure:"screenshot_dir" yaml:"screenshot_dir"`
	MinDelay       time.Duration `mapstructure:"min_delay" yaml:"min_delay"`
	MaxDelay       time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
	ReportTimezone string        `mapstructure:"report_timezone" yaml:"report_timezone"`
	SummaryFile    string        `mapstructure:"summary_file" yaml:"summary_file"`
}

// NotifyConfig groups the operator notification channels.
type NotifyConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram" yaml:"telegram"`
}

// TelegramConfig configures the Telegram bot notifier.
type TelegramConfig struct {
	Token            string        `mapstructure:"token" yaml:"-"`
	ChatIDs          []string      `mapstructure:"chat_ids" yaml:"chat_ids"`
	APIBase          string        `mapstructure:"api_base" yaml:"api_base"`
	MaxMessageLength int           `mapstructure:"max_message_length" yaml:"max_message_length"`
	Timeout          time.Duration `mapstructure:"timeout" yaml:"timeout"`
	PhotoTimeout     time.Duration `mapstructure:"photo_timeout" yaml:"photo_timeout"`
	ProxyURL         string        `mapstructure:"proxy_url" yaml:"proxy_url"`
	// MinInterval spaces consecutive requests to the same chat. Zero disables pacing.
	MinInterval time.Duration `mapstructure:"min_interval" yaml:"min_interval"`
}

// Enabled reports whether both a token and at least one recipient are configured.
func (t TelegramConfig) Enabled() bool {
	return t.Token != "" && len(t.Recipients()) > 0
}

// Recipients returns the trimmed, non-empty chat IDs. Entries may themselves be
// comma separated, as the TELEGRAM_CHAT_ID variable is.
func (t TelegramConfig) Recipients() []string {
	var out []string
	for _, raw := range t.ChatIDs {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				out = append(out, id)
			}
		}
	}
	return out
}

// StoreConfig selects the run history backend.
type StoreConfig struct {
	Driver      string `mapstructure:"driver" yaml:"driver"`
	SQLitePath  string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	PostgresURL string `mapstructure:"postgres_url" yaml:"-"`
}

// Supported store drivers.
const (
	StoreDriverNone     = "none"
	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
)

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "panelkeeper")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 20)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.window_width", 1366)
	v.SetDefault("browser.window_height", 900)
	v.SetDefault("browser.persona.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36")
	v.SetDefault("browser.persona.platform", "Win32")
	v.SetDefault("browser.persona.languages", []string{"en-US", "en"})
	v.SetDefault("browser.persona.timezone", "Europe/Warsaw")
	v.SetDefault("browser.persona.locale", "en-US")
	v.SetDefault("browser.typing.key_delay", "50ms")
	v.SetDefault("browser.typing.key_jitter", "20ms")

	// -- Login --
	v.SetDefault("login.scheme", "https")
	v.SetDefault("login.login_path", "/login/?next=/")
	v.SetDefault("login.protected_path", "/panel/")
	v.SetDefault("login.navigation_timeout", "30s")
	v.SetDefault("login.field_timeout", "10s")
	v.SetDefault("login.submit_timeout", "8s")
	v.SetDefault("login.post_submit_timeout", "15s")
	v.SetDefault("login.settle_delay", "600ms")
	v.SetDefault("login.spa_grace", "1s")

	// -- Run --
	v.SetDefault("run.accounts_file", "accounts.json")
	v.SetDefault("run.screenshot_dir", ".")
	v.SetDefault("run.min_delay", "1s")
	v.SetDefault("run.max_delay", "8s")
	v.SetDefault("run.report_timezone", "Asia/Shanghai")

	// -- Notify --
	v.SetDefault("notify.telegram.api_base", "https://api.telegram.org")
	v.SetDefault("notify.telegram.max_message_length", 3500)
	v.SetDefault("notify.telegram.timeout", "15s")
	v.SetDefault("notify.telegram.photo_timeout", "30s")
	v.SetDefault("notify.telegram.proxy_url", "")
	v.SetDefault("notify.telegram.min_interval", "1s")

	// -- Store --
	v.SetDefault("store.driver", StoreDriverSQLite)
	v.SetDefault("store.sqlite_path", "panelkeeper.db")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Older deployments export these names; keep honoring them.
	_ = v.BindEnv("notify.telegram.token", "PANELKEEPER_NOTIFY_TELEGRAM_TOKEN", "TELEGRAM_BOT_TOKEN")
	_ = v.BindEnv("notify.telegram.chat_ids", "PANELKEEPER_NOTIFY_TELEGRAM_CHAT_IDS", "TELEGRAM_CHAT_ID")
	_ = v.BindEnv("store.postgres_url", "PANELKEEPER_STORE_POSTGRES_URL", "DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Manually load the token if Unmarshal didn't pick it up
	if cfg.Notify.Telegram.Token == "" {
		cfg.Notify.Telegram.Token = os.Getenv("TELEGRAM_BOT_TOKEN")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Run.MinDelay < 0 || c.Run.MaxDelay < 0 {
		return fmt.Errorf("run.min_delay and run.max_delay must not be negative")
	}
	if c.Run.MaxDelay < c.Run.MinDelay {
		return fmt.Errorf("run.max_delay (%v) must not be less than run.min_delay (%v)", c.Run.MaxDelay, c.Run.MinDelay)
	}
	if err := c.Login.Validate(); err != nil {
		return fmt.Errorf("login configuration invalid: %w", err)
	}
	if tz := c.Run.ReportTimezone; tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("run.report_timezone %q is not a known time zone: %w", tz, err)
		}
	}
	if c.Notify.Telegram.MaxMessageLength <= 0 {
		return fmt.Errorf("notify.telegram.max_message_length must be a positive integer")
	}
	if p := c.Notify.Telegram.ProxyURL; p != "" {
		u, err := url.Parse(p)
		if err != nil || u.Host == "" {
			return fmt.Errorf("notify.telegram.proxy_url %q is not a valid url", p)
		}
	}
	switch c.Store.Driver {
	case StoreDriverNone, "":
	case StoreDriverSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite driver")
		}
	case StoreDriverPostgres:
		if c.Store.PostgresURL == "" {
			return fmt.Errorf("store.postgres_url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported store.driver %q", c.Store.Driver)
	}
	return nil
}

// Validate checks the login engine timeouts and paths.
func (l *LoginConfig) Validate() error {
	if l.Scheme != "http" && l.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", l.Scheme)
	}
	if !strings.HasPrefix(l.LoginPath, "/") || !strings.HasPrefix(l.ProtectedPath, "/") {
		return fmt.Errorf("login_path and protected_path must start with '/'")
	}
	if l.FieldTimeout <= 0 || l.SubmitTimeout <= 0 || l.NavigationTimeout <= 0 || l.PostSubmitTimeout <= 0 {
		return fmt.Errorf("field, submit, navigation and post-submit timeouts must be positive")
	}
	return nil
}
