// Package deepseek calls the DeepSeek chat completion endpoint.
package deepseek

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultBaseURL = "https://api.deepseek.com/v1"
	DefaultModel   = "deepseek-chat"
	defaultTimeout = 30 * time.Second
	maxTokens      = 500
	temperature    = 0.7
	maxBodyExcerpt = 300
)

// TransportError means no HTTP response was received.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "request error: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("API error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("API error: %s (status %d)", e.Body, e.StatusCode)
}

// EnvelopeError is a 2xx response whose body is not a usable completion.
type EnvelopeError struct {
	Reason string
}

func (e *EnvelopeError) Error() string { return "error parsing API response: " + e.Reason }

// Client sends single, non-streaming completion requests.
type Client struct {
	http         *resty.Client
	model        string
	systemPrompt string
}

type Options struct {
	BaseURL      string
	Model        string
	SystemPrompt string
	Timeout      time.Duration
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	http := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{http: http, model: opts.Model, systemPrompt: opts.SystemPrompt}
}

// Complete sends prompt with the fixed system instruction and returns the
// reply text. Errors are *TransportError, *StatusError or *EnvelopeError.
func (c *Client) Complete(ctx context.Context, apiKey, prompt string) (string, error) {
	messages := make([]Message, 0, 2)
	if c.systemPrompt != "" {
		messages = append(messages, Message{Role: "system", Content: c.systemPrompt})
	}
	messages = append(messages, Message{Role: "user", Content: prompt})

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(apiKey).
		SetBody(ChatRequest{
			Model:       c.model,
			Messages:    messages,
			MaxTokens:   maxTokens,
			Temperature: temperature,
			Stream:      false,
		}).
		Post("/chat/completions")
	if err != nil {
		return "", &TransportError{Err: err}
	}

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return "", &StatusError{StatusCode: resp.StatusCode(), Body: excerpt(resp.Body())}
	}

	var out ChatResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", &EnvelopeError{Reason: err.Error()}
	}
	if len(out.Choices) == 0 {
		return "", &EnvelopeError{Reason: "no choices in response"}
	}
	reply := out.Choices[0].Message.Content
	if strings.TrimSpace(reply) == "" {
		return "", &EnvelopeError{Reason: "empty reply"}
	}
	return reply, nil
}

func excerpt(body []byte) string {
	s := strings.TrimSpace(string(body))
	if r := []rune(s); len(r) > maxBodyExcerpt {
		return string(r[:maxBodyExcerpt]) + "..."
	}
	return s
}
