package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/kalambet/ainoter/internal/account"
	"github.com/kalambet/ainoter/internal/config"
	"github.com/kalambet/ainoter/internal/deepseek"
	"github.com/kalambet/ainoter/internal/exchange"
	"github.com/kalambet/ainoter/internal/imagestore"
	"github.com/kalambet/ainoter/internal/note"
	"github.com/kalambet/ainoter/internal/reminder"
	"github.com/kalambet/ainoter/internal/storage"
)

// env holds what the data commands share: configuration, the open store
// and the managers built on it.
type env struct {
	cfg       config.Config
	store     *storage.Store
	images    *imagestore.Store
	accounts  *account.Manager
	notes     *note.Manager
	reminders *reminder.Manager
	exchanges *exchange.Manager
}

func openEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	setupLogging(cfg.Log.Level)

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	images := imagestore.New(cfg.Storage.DataDir)
	return &env{
		cfg:       cfg,
		store:     store,
		images:    images,
		accounts:  account.NewManager(store),
		notes:     note.NewManager(store, images),
		reminders: reminder.NewManager(store),
		exchanges: exchange.NewManager(store),
	}, nil
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		slog.Warn("closing storage", "error", err)
	}
}

// aiClient wires the exchange client to the completion endpoint. The key is
// re-read on every submission so `config set-key` applies without a restart.
func (e *env) aiClient() *exchange.Client {
	completer := deepseek.NewClient(deepseek.Options{
		BaseURL:      e.cfg.DeepSeek.BaseURL,
		Model:        e.cfg.DeepSeek.Model,
		SystemPrompt: e.cfg.DeepSeek.SystemPrompt,
	})
	dataDir := e.cfg.Storage.DataDir
	return exchange.NewClient(e.exchanges, completer, func() string {
		return config.APIKey(dataDir)
	})
}

func (e *env) watcher() *exchange.Watcher {
	return exchange.NewWatcher(e.exchanges, time.Duration(e.cfg.Exchange.PollIntervalMS)*time.Millisecond)
}

// login authenticates the account selected by --user or AINOTER_USER.
func (e *env) login(ctx context.Context, opts *rootOptions) (account.Account, error) {
	username, err := resolveUser(opts)
	if err != nil {
		return account.Account{}, err
	}
	password, err := readPassword(fmt.Sprintf("Password for %s: ", username))
	if err != nil {
		return account.Account{}, err
	}
	acc, err := e.accounts.Login(ctx, username, password)
	if err != nil {
		return account.Account{}, err
	}
	slog.Debug("logged in", "account_id", acc.ID)
	return acc, nil
}

func resolveUser(opts *rootOptions) (string, error) {
	if u := strings.TrimSpace(opts.user); u != "" {
		return u, nil
	}
	if u := strings.TrimSpace(os.Getenv("AINOTER_USER")); u != "" {
		return u, nil
	}
	return "", errors.New("no account selected; pass --user or set AINOTER_USER")
}

// readPassword returns AINOTER_PASSWORD when set and otherwise prompts on
// the terminal with echo disabled.
var readPassword = func(prompt string) (string, error) {
	if p, ok := os.LookupEnv("AINOTER_PASSWORD"); ok {
		return p, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("stdin is not a terminal; set AINOTER_PASSWORD")
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(b), nil
}

func setupLogging(level string) {
	logLevel := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn", "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}
