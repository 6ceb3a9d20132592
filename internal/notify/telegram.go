// internal/notify/telegram.go
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/panelkeeper/internal/config"
	"github.com/xkilldash9x/panelkeeper/internal/network"
	"github.com/xkilldash9x/panelkeeper/internal/report"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	parseMode = "Markdown"

	defaultAPIBase      = "https://api.telegram.org"
	defaultTimeout      = 15 * time.Second
	defaultPhotoTimeout = 30 * time.Second

	// maxErrorBody bounds how much of a failed response is read into the error.
	maxErrorBody = 4 << 10
)

// Telegram posts messages and photos through the Bot API to every configured chat.
type Telegram struct {
	logger       *zap.Logger
	httpClient   *http.Client
	token        string
	apiBase      string
	chatIDs      []string
	maxLength    int
	timeout      time.Duration
	photoTimeout time.Duration
	// limiters pace requests per chat; nil when pacing is disabled.
	limiters map[string]*rate.Limiter
}

var _ Notifier = (*Telegram)(nil)

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// NewTelegram builds a Telegram notifier from cfg.
func NewTelegram(logger *zap.Logger, cfg config.TelegramConfig) *Telegram {
	logger = logger.Named("notify.telegram")

	clientCfg := network.NewDefaultClientConfig()
	clientCfg.Logger = logger
	proxy, err := network.ParseProxyURL(cfg.ProxyURL)
	if err != nil {
		logger.Warn("Ignoring invalid proxy url, using the environment instead.", zap.Error(err))
	}
	clientCfg.ProxyURL = proxy

	t := &Telegram{
		logger:       logger,
		httpClient:   network.NewClient(clientCfg),
		token:        cfg.Token,
		apiBase:      strings.TrimRight(cfg.APIBase, "/"),
		chatIDs:      cfg.Recipients(),
		maxLength:    cfg.MaxMessageLength,
		timeout:      cfg.Timeout,
		photoTimeout: cfg.PhotoTimeout,
	}
	if t.apiBase == "" {
		t.apiBase = defaultAPIBase
	}
	if t.timeout <= 0 {
		t.timeout = defaultTimeout
	}
	if t.photoTimeout <= 0 {
		t.photoTimeout = defaultPhotoTimeout
	}
	if cfg.MinInterval > 0 {
		t.limiters = make(map[string]*rate.Limiter, len(t.chatIDs))
		for _, id := range t.chatIDs {
			t.limiters[id] = rate.NewLimiter(rate.Every(cfg.MinInterval), 1)
		}
	}
	return t
}

func (t *Telegram) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.apiBase, t.token, method)
}

// SendReport splits text into segments and delivers each segment to every chat before
// moving to the next, so recipients see the parts in order. A report that fits in one
// message is sent as Markdown. Split reports go out as plain text: a fixed-size cut can
// leave a Markdown span open, which the Bot API rejects.
func (t *Telegram) SendReport(ctx context.Context, text string) error {
	segments := report.Chunk(text, t.maxLength)
	mode := parseMode
	if len(segments) > 1 {
		mode = ""
	}
	t.logger.Info("Sending report.",
		zap.Int("segments", len(segments)),
		zap.Int("recipients", len(t.chatIDs)),
		zap.Bool("markdown", mode != ""))

	var errs []error
	for i, segment := range segments {
		err := t.fanOut(ctx, func(ctx context.Context, chatID string) error {
			return t.sendMessage(ctx, chatID, segment, mode)
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("segment %d: %w", i+1, err))
		}
	}
	return errors.Join(errs...)
}

// SendPhoto uploads the file at path to every chat. A missing file is logged and skipped.
func (t *Telegram) SendPhoto(ctx context.Context, path, caption string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		t.logger.Warn("Screenshot missing, skipping photo.", zap.String("path", path))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read screenshot %s: %w", path, err)
	}

	return t.fanOut(ctx, func(ctx context.Context, chatID string) error {
		return t.sendPhoto(ctx, chatID, filepath.Base(path), data, caption)
	})
}

// fanOut runs send for every recipient concurrently. Every recipient is attempted;
// failures are logged and joined.
func (t *Telegram) fanOut(ctx context.Context, send func(context.Context, string) error) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, chatID := range t.chatIDs {
		g.Go(func() error {
			err := t.pace(ctx, chatID)
			if err == nil {
				err = send(ctx, chatID)
			}
			if err != nil {
				t.logger.Warn("Telegram delivery failed.", zap.String("chat_id", chatID), zap.Error(err))
				mu.Lock()
				errs = append(errs, fmt.Errorf("chat %s: %w", chatID, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// pace blocks until chatID may receive another request.
func (t *Telegram) pace(ctx context.Context, chatID string) error {
	lim, ok := t.limiters[chatID]
	if !ok {
		return nil
	}
	return lim.Wait(ctx)
}

// sendMessage posts text to chatID. An empty mode sends plain text.
func (t *Telegram) sendMessage(ctx context.Context, chatID, text, mode string) error {
	body, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text, ParseMode: mode})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, t.endpoint("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return t.do(req)
}

func (t *Telegram) sendPhoto(ctx context.Context, chatID, filename string, data []byte, caption string) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := [][2]string{{"chat_id", chatID}, {"caption", caption}, {"parse_mode", parseMode}}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return fmt.Errorf("failed to write form field %s: %w", f[0], err)
		}
	}
	part, err := w.CreateFormFile("photo", filename)
	if err != nil {
		return fmt.Errorf("failed to create photo part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("failed to write photo part: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, t.photoTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, t.endpoint("sendPhoto"), &buf)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return t.do(req)
}

// do executes req and checks the Bot API envelope. Transport errors are stripped of the
// request URL, which embeds the bot token.
func (t *Telegram) do(req *http.Request) error {
	resp, err := t.httpClient.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var envelope apiResponse
	if jerr := json.Unmarshal(respBody, &envelope); jerr != nil && resp.StatusCode == http.StatusOK {
		return fmt.Errorf("failed to decode response payload: %w", jerr)
	}
	if resp.StatusCode != http.StatusOK || !envelope.OK {
		desc := envelope.Description
		if desc == "" {
			desc = strings.TrimSpace(string(respBody))
		}
		return fmt.Errorf("telegram API error (status %d): %s", resp.StatusCode, desc)
	}
	return nil
}
