package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/L1nMay/portscanner-console/internal/config"
	"github.com/L1nMay/portscanner-console/internal/logger"
)

const telegramAPI = "https://api.telegram.org"

type TelegramOptions struct {
	// BaseURL overrides the Bot API endpoint.
	BaseURL string
	// Rate limits outgoing messages. Zero means one per second.
	Rate  rate.Limit
	Burst int
	// Title prefixes every message.
	Title string
}

// Telegram forwards notifications to a chat. Sends happen in the background;
// failures are only logged.
type Telegram struct {
	token   string
	chatID  string
	baseURL string
	title   string

	client  *http.Client
	limiter *rate.Limiter

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type telegramMessage struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// NewTelegram returns nil when Telegram forwarding is disabled or incomplete.
func NewTelegram(cfg config.TelegramConfig, opts TelegramOptions) *Telegram {
	if !cfg.Enabled || cfg.BotToken == "" || cfg.ChatID == "" {
		return nil
	}
	if opts.BaseURL == "" {
		opts.BaseURL = telegramAPI
	}
	if opts.Rate == 0 {
		opts.Rate = rate.Every(time.Second)
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.Title == "" {
		opts.Title = "Port scanner"
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Telegram{
		token:   cfg.BotToken,
		chatID:  cfg.ChatID,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		title:   opts.Title,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(opts.Rate, opts.Burst),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (t *Telegram) Notify(n Notification) {
	if t == nil {
		return
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if err := t.send(n); err != nil {
			logger.Errorf("telegram send failed: %v", err)
		}
	}()
}

// Flush waits for queued sends, giving up when ctx is done.
func (t *Telegram) Flush(ctx context.Context) {
	if t == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		t.cancel()
		<-done
	}
}

// Close drops pending sends.
func (t *Telegram) Close() {
	if t == nil {
		return
	}
	t.cancel()
	t.wg.Wait()
}

func (t *Telegram) send(n Notification) error {
	if err := t.limiter.Wait(t.ctx); err != nil {
		return err
	}

	body, err := json.Marshal(telegramMessage{
		ChatID: t.chatID,
		Text:   formatTelegram(t.title, n),
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(t.ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("telegram http %d", resp.StatusCode)
	}
	return nil
}

func formatTelegram(title string, n Notification) string {
	icon := "ℹ️"
	switch n.Level {
	case LevelOK:
		icon = "🟢"
	case LevelError:
		icon = "🔴"
	}
	return fmt.Sprintf("%s %s\n%s", icon, title, n.Message)
}
