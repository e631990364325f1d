// Package chat talks to an OpenRouter-compatible chat-completion endpoint.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "meta-llama/llama-3.1-8b-instruct:free"
	// MaxHistoryTurns is how many prior turns are sent for context.
	MaxHistoryTurns = 10
	appTitle        = "LeafLens AI"
)

const systemPrompt = `You are a helpful plant care expert and botanist. You have extensive knowledge about:
- Plant identification and care
- Common plant diseases and treatments
- Soil types and fertilization
- Watering schedules and techniques
- Light requirements for different plants
- Indoor and outdoor gardening tips
- Plant propagation methods
- Seasonal plant care
- Fun facts about the plant or any historical background

Always provide helpful, accurate, and practical advice. If you're unsure about something, say so and suggest consulting a local plant expert or nursery. Keep responses conversational but informative.`

var (
	ErrNotConfigured   = errors.New("chat API key is not configured")
	ErrInvalidResponse = errors.New("invalid response format from chat API")
)

// APIError is returned for a non-2xx answer from the gateway.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chat API error: %d - %s", e.Status, e.Message)
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Model struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ContextLength int    `json:"context_length,omitempty"`
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Referer string
	Timeout time.Duration
}

// Gateway is safe for concurrent use; only the model can change after
// construction.
type Gateway struct {
	apiKey  string
	baseURL string
	referer string
	client  *http.Client

	mu    sync.RWMutex
	model string
}

func NewGateway(cfg Config) *Gateway {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	client := &http.Client{}
	if cfg.Timeout > 0 {
		client.Timeout = cfg.Timeout
	}
	return &Gateway{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		referer: cfg.Referer,
		client:  client,
		model:   cfg.Model,
	}
}

func (g *Gateway) IsConfigured() bool {
	return g.apiKey != ""
}

func (g *Gateway) Model() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.model
}

func (g *Gateway) SetModel(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.model = id
}

// TrimHistory keeps the most recent MaxHistoryTurns user and assistant turns.
func TrimHistory(history []Turn) []Turn {
	kept := make([]Turn, 0, len(history))
	for _, t := range history {
		if t.Role == RoleUser || t.Role == RoleAssistant {
			kept = append(kept, t)
		}
	}
	if len(kept) > MaxHistoryTurns {
		kept = kept[len(kept)-MaxHistoryTurns:]
	}
	return kept
}

type completionRequest struct {
	Model            string  `json:"model"`
	Messages         []Turn  `json:"messages"`
	MaxTokens        int     `json:"max_tokens"`
	Temperature      float64 `json:"temperature"`
	TopP             float64 `json:"top_p"`
	FrequencyPenalty float64 `json:"frequency_penalty"`
	PresencePenalty  float64 `json:"presence_penalty"`
}

type completionResponse struct {
	Choices []struct {
		Message *Turn `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// SendMessage sends text after the system prompt and the trimmed history and
// returns the assistant reply.
func (g *Gateway) SendMessage(ctx context.Context, text string, history []Turn) (string, error) {
	return g.SendMessageWith(ctx, "", text, history)
}

// SendMessageWith is SendMessage on the given model; "" uses the gateway's
// model.
func (g *Gateway) SendMessageWith(ctx context.Context, model, text string, history []Turn) (string, error) {
	if !g.IsConfigured() {
		return "", ErrNotConfigured
	}

	messages := []Turn{{Role: RoleSystem, Content: systemPrompt}}
	messages = append(messages, TrimHistory(history)...)
	messages = append(messages, Turn{Role: RoleUser, Content: text})

	if model == "" {
		model = g.Model()
	}
	payload, err := json.Marshal(completionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   500,
		Temperature: 0.7,
		TopP:        1,
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	g.setHeaders(req)
	req.Header.Set("X-Title", appTitle)
	if g.referer != "" {
		req.Header.Set("HTTP-Referer", g.referer)
	}

	body, err := g.do(req)
	if err != nil {
		return "", err
	}

	var out completionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message == nil {
		return "", ErrInvalidResponse
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

// ListModels returns the models the gateway offers.
func (g *Gateway) ListModels(ctx context.Context) ([]Model, error) {
	if !g.IsConfigured() {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	g.setHeaders(req)

	body, err := g.do(req)
	if err != nil {
		return nil, err
	}

	var out struct {
		Data []Model `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if out.Data == nil {
		return []Model{}, nil
	}
	return out.Data, nil
}

func (g *Gateway) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")
}

func (g *Gateway) do(req *http.Request) ([]byte, error) {
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling chat API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := http.StatusText(resp.StatusCode)
		var apiErr errorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return nil, &APIError{Status: resp.StatusCode, Message: msg}
	}
	return body, nil
}
