package exchange

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/kalambet/ainoter/internal/validation"
)

const (
	MaxPromptChars = 5000
	MaxPromptWords = 1000

	defaultCallTimeout = 30 * time.Second
)

var (
	// ErrInFlight is returned while an earlier submission of the same
	// account has not resolved.
	ErrInFlight = errors.New("a request is already in progress")

	ErrKeyNotConfigured = errors.New("DeepSeek API key is not configured")
)

// Completer performs the network call.
type Completer interface {
	Complete(ctx context.Context, apiKey, prompt string) (string, error)
}

// KeyFunc returns the current API key, or "" when none is configured. It is
// called on every submission.
type KeyFunc func() string

// Client submits prompts without blocking the caller. The reply, or a
// readable description of the failure, is written into the exchange row.
type Client struct {
	exchanges *Manager
	completer Completer
	key       KeyFunc
	timeout   time.Duration
	logger    *slog.Logger

	mu       sync.Mutex
	inflight map[int64]bool
	wg       sync.WaitGroup
}

func NewClient(exchanges *Manager, completer Completer, key KeyFunc) *Client {
	return &Client{
		exchanges: exchanges,
		completer: completer,
		key:       key,
		timeout:   defaultCallTimeout,
		logger:    slog.Default(),
		inflight:  make(map[int64]bool),
	}
}

type promptInput struct {
	Prompt string `validate:"notblank,max=5000,maxwords=1000"`
}

// Submit validates prompt, checks the API key and creates a pending
// exchange, then calls the endpoint in the background. Nothing is written
// when validation or the key check fails.
func (c *Client) Submit(ctx context.Context, accountID int64, prompt string) (int64, error) {
	prompt = strings.TrimSpace(prompt)
	if err := validation.Struct(promptInput{Prompt: prompt}); err != nil {
		return 0, err
	}
	key := c.key()
	if key == "" {
		return 0, ErrKeyNotConfigured
	}

	c.mu.Lock()
	if c.inflight[accountID] {
		c.mu.Unlock()
		return 0, ErrInFlight
	}
	c.inflight[accountID] = true
	c.mu.Unlock()

	id, err := c.exchanges.create(ctx, accountID, prompt)
	if err != nil {
		c.release(accountID)
		return 0, err
	}

	c.wg.Add(1)
	go c.run(accountID, id, key, prompt)
	return id, nil
}

// run is not tied to the submitting request; it always stores an outcome.
func (c *Client) run(accountID, id int64, key, prompt string) {
	defer c.wg.Done()
	defer c.release(accountID)

	logger := c.logger.With("account_id", accountID, "exchange_id", id)

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	reply, err := c.completer.Complete(ctx, key, prompt)
	cancel()
	if err != nil {
		logger.Warn("completion failed", "error", err)
		reply = err.Error()
	}

	if err := c.exchanges.SetResponse(context.Background(), accountID, id, reply); err != nil {
		logger.Error("storing response", "error", err)
		return
	}
	logger.Info("exchange resolved")
}

func (c *Client) release(accountID int64) {
	c.mu.Lock()
	delete(c.inflight, accountID)
	c.mu.Unlock()
}

// Busy reports whether accountID has a submission in flight.
func (c *Client) Busy(accountID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight[accountID]
}

// Wait blocks until every background call has stored its outcome.
func (c *Client) Wait() {
	c.wg.Wait()
}
