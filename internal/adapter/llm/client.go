package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/rl1809/voice-inventory/internal/core/domain"
)

var ErrNotConfigured = errors.New("llm: base URL and model required")

// Client calls an OpenAI-compatible chat completion endpoint. It serves as the
// parser's fallback interpreter and translator.
type Client struct {
	BaseURL string
	APIKey  string
	Model   string

	HTTPClient *http.Client
	limiter    *rate.Limiter
}

// NewClient allows perSecond requests with a burst of one. A zero limit means unlimited.
func NewClient(baseURL, apiKey, model string, perSecond float64) *Client {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		limiter: rate.NewLimiter(limit, 1),
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

const parsePrompt = `You parse grocery inventory commands. The command may be in English, Hindi, Kannada, Tamil or Telugu.
Return ONLY a JSON object of the form:
{"action": "add|update_price|remove|delete|list|search|stock|unknown", "product": "name", "quantity": number_or_null, "price": number_or_null}
Rules:
- product is the English name in lowercase singular, e.g. टमाटर -> tomato
- quantity is in kilograms, price is rupees per kilogram
- use null for anything not stated
- if the command is unclear set action to "unknown"`

const translatePrompt = `Translate the user's grocery inventory command to plain English. Keep numbers as digits. Reply with the translation only.`

type parsedReply struct {
	Action   string   `json:"action"`
	Product  string   `json:"product"`
	Quantity *float64 `json:"quantity"`
	Price    *float64 `json:"price"`
}

// TryParse asks the model for a structured reading of text. It returns nil
// when the model could not make sense of it either.
func (c *Client) TryParse(ctx context.Context, text, language string) (*domain.ParsedCommand, error) {
	user := fmt.Sprintf("Command: %q\nLanguage: %s", text, language)
	out, err := c.Chat(ctx, parsePrompt, user)
	if err != nil {
		return nil, err
	}

	var reply parsedReply
	if err := json.Unmarshal([]byte(stripFence(out)), &reply); err != nil {
		return nil, fmt.Errorf("llm: decode parse reply: %w", err)
	}

	action := domain.Action(strings.ToLower(strings.TrimSpace(reply.Action)))
	if !action.Valid() || action == domain.ActionUnknown || action == domain.ActionIncomplete {
		return nil, nil
	}

	cmd := &domain.ParsedCommand{
		Action:     action,
		QuantityKg: reply.Quantity,
		PricePerKg: reply.Price,
		RawText:    text,
		Language:   language,
		Source:     domain.SourceLLM,
	}
	if product := strings.TrimSpace(reply.Product); product != "" {
		cmd.ProductKey = &product
	}
	return cmd, nil
}

func (c *Client) Translate(ctx context.Context, text, language string) (string, error) {
	out, err := c.Chat(ctx, translatePrompt, fmt.Sprintf("[%s] %s", language, text))
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(stripFence(out))
	if out == "" {
		return "", fmt.Errorf("llm: empty translation")
	}
	return out, nil
}

func (c *Client) Chat(ctx context.Context, system, user string) (string, error) {
	if c.BaseURL == "" || c.Model == "" {
		return "", ErrNotConfigured
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("llm: rate limit: %w", err)
		}
	}

	messages := []chatMessage{{Role: "system", Content: system}, {Role: "user", Content: user}}
	payload, err := c.send(ctx, messages)
	if err != nil {
		return "", err
	}
	if len(payload.Choices) == 0 {
		return "", fmt.Errorf("llm: empty response")
	}
	return payload.Choices[0].Message.Content, nil
}

func (c *Client) send(ctx context.Context, messages []chatMessage) (*chatResponse, error) {
	reqBody, err := json.Marshal(chatRequest{Model: c.Model, Messages: messages})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload chatResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&payload)
	if payload.Error != nil {
		return nil, fmt.Errorf("llm error: %s", payload.Error.Message)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("llm: unexpected status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return &payload, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 15 * time.Second}
}

// stripFence removes a surrounding markdown code fence.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
