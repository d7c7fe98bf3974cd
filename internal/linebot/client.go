package linebot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/OldStager01/dcsim/internal/logger"
	"github.com/OldStager01/dcsim/internal/resilience"
)

const (
	DefaultAPIBaseURL = "https://api.line.me/v2/bot/message"

	// maxTextLength is the Messaging API limit for one text message.
	maxTextLength = 5000
)

var (
	ErrNotConfigured    = errors.New("line channel is not configured")
	ErrMissingRecipient = errors.New("missing recipient")
	ErrEmptyMessage     = errors.New("empty message")
	ErrSendFailed       = errors.New("line api request failed")
)

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type replyRequest struct {
	ReplyToken string        `json:"replyToken"`
	Messages   []textMessage `json:"messages"`
}

type pushRequest struct {
	To       string        `json:"to"`
	Messages []textMessage `json:"messages"`
}

type broadcastRequest struct {
	Messages []textMessage `json:"messages"`
}

type ClientConfig struct {
	BaseURL            string
	ChannelAccessToken string
	Timeout            time.Duration
	MaxFailures        int
	BreakerTimeout     time.Duration
	OnStateChange      func(name string, from, to resilience.State)
}

// Client talks to the LINE Messaging API. Calls go through a circuit breaker
// so an unreachable API does not stall event delivery.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
	breaker *resilience.CircuitBreaker
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultAPIBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.ChannelAccessToken,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:          "line",
			MaxFailures:   cfg.MaxFailures,
			Timeout:       cfg.BreakerTimeout,
			CallTimeout:   cfg.Timeout,
			OnStateChange: cfg.OnStateChange,
		}),
	}
}

func (c *Client) Configured() bool {
	return c.token != ""
}

func (c *Client) CircuitState() resilience.State {
	return c.breaker.State()
}

func (c *Client) Reply(ctx context.Context, replyToken, text string) error {
	if replyToken == "" {
		return ErrMissingRecipient
	}
	if text == "" {
		return ErrEmptyMessage
	}
	return c.send(ctx, "/reply", replyRequest{ReplyToken: replyToken, Messages: messages(text)})
}

func (c *Client) Push(ctx context.Context, to, text string) error {
	if to == "" {
		return ErrMissingRecipient
	}
	if text == "" {
		return ErrEmptyMessage
	}
	return c.send(ctx, "/push", pushRequest{To: to, Messages: messages(text)})
}

func (c *Client) Broadcast(ctx context.Context, text string) error {
	if text == "" {
		return ErrEmptyMessage
	}
	return c.send(ctx, "/broadcast", broadcastRequest{Messages: messages(text)})
}

func messages(text string) []textMessage {
	runes := []rune(text)
	if len(runes) > maxTextLength {
		text = string(runes[:maxTextLength-1]) + "…"
	}
	return []textMessage{{Type: "text", Text: text}}
}

func (c *Client) send(ctx context.Context, path string, payload interface{}) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	return c.breaker.ExecuteContext(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.token)

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSendFailed, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			logger.WithField("path", path).Warnf("LINE API returned %d: %s", resp.StatusCode, detail)
			return fmt.Errorf("%w: status %d", ErrSendFailed, resp.StatusCode)
		}
		return nil
	})
}
