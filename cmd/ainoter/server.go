package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/ainoter/internal/api"
	"github.com/kalambet/ainoter/internal/config"
	"github.com/kalambet/ainoter/internal/notify"
	"github.com/kalambet/ainoter/internal/reminder"
	"github.com/kalambet/ainoter/internal/session"
)

const shutdownTimeout = 5 * time.Second

func newStartCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Log in, deliver reminders and serve the local API (foreground)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd.Context(), opts)
		},
	}
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Log out the running session",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			if client.token == "" {
				return errors.New("no running session")
			}
			var result map[string]string
			resp, err := client.post(cmd.Context(), "/session/logout", nil)
			if err != nil {
				return err
			}
			if err := decodeJSON(resp, &result); err != nil {
				return err
			}
			printSuccess("Session logged out")
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a session is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStatus(cmd.Context())
		},
	}
}

func tokenFilePath(dataDir string) string {
	return filepath.Join(dataDir, "session.token")
}

func writeTokenFile(path, token string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(token), 0o600)
}

func readTokenFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// resolveSound makes a relative sound path relative to the data directory.
func resolveSound(dataDir, sound string) string {
	if sound == "" || filepath.IsAbs(sound) {
		return sound
	}
	return filepath.Join(dataDir, sound)
}

func runSession(ctx context.Context, opts *rootOptions) error {
	fmt.Fprintf(os.Stderr, "ainoter version %s\n", version)

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()
	cfg := e.cfg

	// Refuse to start a second session on the same port.
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		printWarning("ainoter is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("session already running on port %d", cfg.Server.Port)
	}

	acc, err := e.login(ctx, opts)
	if err != nil {
		return err
	}

	if config.APIKey(cfg.Storage.DataDir) == "" {
		printWarning("DeepSeek API key is not configured; AI questions will be rejected until `ainoter config set-key` is run")
	}

	console := &notify.Console{
		Sound:    notify.NewSound(os.Stderr),
		Terminal: notify.NewTerminal(os.Stdin, os.Stdout),
	}
	sched := reminder.NewScheduler(e.reminders, acc.ID, console, reminder.Options{
		Interval: time.Duration(cfg.Scheduler.IntervalMS) * time.Millisecond,
		Sound:    resolveSound(cfg.Storage.DataDir, cfg.Scheduler.SoundFile),
	})

	sess, err := session.Open(acc, sched)
	if err != nil {
		return err
	}
	defer sess.Close()

	token := api.NewToken()
	tokenPath := tokenFilePath(cfg.Storage.DataDir)
	if err := writeTokenFile(tokenPath, token); err != nil {
		return fmt.Errorf("writing session token: %w", err)
	}
	defer os.Remove(tokenPath)

	ai := e.aiClient()
	defer ai.Wait()

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr: addr,
		Handler: api.NewAppHandler(api.AppDeps{
			Session:   sess,
			Notes:     e.notes,
			Reminders: e.reminders,
			Exchanges: e.exchanges,
			AI:        ai,
			Token:     token,
			Logger:    slog.Default(),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		printSuccess("Logged in as %s; listening on %s", acc.Username, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-sess.Done():
		}
		printStep("Shutting down...")
		sess.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func showStatus(ctx context.Context) error {
	client, err := newAPIClient()
	if err != nil {
		printStatus("Session", "stopped")
		return nil
	}

	resp, err := client.get(ctx, "/health")
	if err != nil {
		printStatus("Session", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			printStatus("Session", "running at %s", client.baseURL)
		} else {
			printStatus("Session", "error (HTTP %d)", resp.StatusCode)
		}
	}
	printStatus("Data dir", "%s", client.dataDir)
	return nil
}
