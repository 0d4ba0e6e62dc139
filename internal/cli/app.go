// Package cli is the console front end: cobra commands wired to the API
// client, the result store, the plan cache and the session controller.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/L1nMay/portscanner-console/internal/api"
	"github.com/L1nMay/portscanner-console/internal/clock"
	"github.com/L1nMay/portscanner-console/internal/config"
	"github.com/L1nMay/portscanner-console/internal/logger"
	"github.com/L1nMay/portscanner-console/internal/metrics"
	"github.com/L1nMay/portscanner-console/internal/notify"
	"github.com/L1nMay/portscanner-console/internal/plan"
	"github.com/L1nMay/portscanner-console/internal/results"
	"github.com/L1nMay/portscanner-console/internal/storage"
)

// App holds everything a command needs. It is filled in lazily before the
// first command runs.
type App struct {
	viper  *viper.Viper
	stdout io.Writer
	stderr io.Writer

	cfg      *config.Config
	store    *storage.Storage
	client   *api.Client
	metrics  *metrics.Collector
	results  *results.Store
	plans    *plan.Cache
	console  *notify.Console
	telegram *notify.Telegram
	notes    notify.Sink
	clock    clock.Clock
}

func NewApp(stdout, stderr io.Writer) *App {
	return &App{
		viper:  viper.New(),
		stdout: stdout,
		stderr: stderr,
		clock:  clock.Real(),
	}
}

func (a *App) init() error {
	if a.cfg != nil {
		return nil
	}

	cfg, err := loadConfig(a.viper.GetString("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.applyOverrides(cfg)
	logger.SetLevel(cfg.LogLevel)

	store, err := storage.NewStorage(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open credential store: %w", err)
	}

	a.cfg = cfg
	a.store = store
	a.metrics = metrics.New()
	a.client = api.New(cfg.Server,
		api.WithTokens(store),
		api.WithMetrics(a.metrics),
		api.WithTimeout(cfg.RequestTimeout()),
	)
	a.results = results.NewStore(a.client)
	a.plans = plan.NewCache(a.client)

	a.console = notify.NewConsole(a.stderr, a.clock, cfg.NotifyDismiss())
	a.telegram = notify.NewTelegram(cfg.Telegram, notify.TelegramOptions{})
	a.notes = notify.Multi{a.console, a.telegram}

	logger.Debugf("using server %s, credential store %s", cfg.Server, cfg.DBPath)
	return nil
}

// loadConfig reads path, falling back to defaults when the file does not exist.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.LoadConfig(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debugf("config %s not found, using defaults", path)
		return config.Default(), nil
	}
	return cfg, err
}

func (a *App) applyOverrides(cfg *config.Config) {
	v := a.viper
	if s := v.GetString("server"); s != "" {
		cfg.Server = strings.TrimRight(strings.TrimSpace(s), "/")
	}
	if s := v.GetString("db_path"); s != "" {
		cfg.DBPath = s
	}
	if s := v.GetString("log_level"); s != "" {
		cfg.LogLevel = s
	}
	if n := v.GetInt("watchdog_seconds"); n > 0 {
		cfg.WatchdogSec = n
	}
	if n := v.GetInt("page_size"); n > 0 {
		cfg.PageSize = n
	}
	if n := v.GetInt("refresh_grace_ms"); n > 0 {
		cfg.RefreshGraceMs = n
	}
	if s := v.GetString("telegram.bot_token"); s != "" {
		cfg.Telegram.BotToken = s
	}
	if s := v.GetString("telegram.chat_id"); s != "" {
		cfg.Telegram.ChatID = s
	}
}

// Close flushes background notifications and releases the credential store.
func (a *App) Close() {
	if a.telegram != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		a.telegram.Flush(ctx)
		cancel()
		a.telegram.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger.Warnf("close credential store: %v", err)
		}
	}
}

func (a *App) notify(level notify.Level, msg string) {
	a.notes.Notify(notify.Notification{Message: msg, Level: level})
}

// fail reports err as an error notification.
func (a *App) fail(prefix string, err error) error {
	a.notify(notify.LevelError, prefix+": "+err.Error())
	return &reportedError{err: fmt.Errorf("%s: %w", prefix, err)}
}
