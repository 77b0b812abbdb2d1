package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hookflow/hookflow/pkg/resilience"
)

const defaultBaseURL = "https://api.telegram.org"

// Message is one sendMessage call in the Bot API wire shape.
type Message struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// Client talks to the Telegram Bot API. The bot token comes from the
// owning user's credential and is supplied per call.
type Client struct {
	httpClient *http.Client
	baseURL    string
	breaker    *resilience.CircuitBreaker
}

type Option func(*Client)

func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    defaultBaseURL,
		breaker:    resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("telegram")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) SendMessage(ctx context.Context, botToken string, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal telegram message: %w", err)
	}

	return c.breaker.Do(ctx, func(ctx context.Context) error {
		url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, botToken)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("telegram request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return fmt.Errorf("telegram returned %d: %s", resp.StatusCode, string(data))
		}
		return nil
	})
}

// GetMe checks that a bot token is valid.
func (c *Client) GetMe(ctx context.Context, botToken string) error {
	return c.breaker.Do(ctx, func(ctx context.Context) error {
		url := fmt.Sprintf("%s/bot%s/getMe", c.baseURL, botToken)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("telegram request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return fmt.Errorf("telegram token check failed with status %d", resp.StatusCode)
		}
		return nil
	})
}
