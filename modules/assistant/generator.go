package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Failure categories of the text-generation collaborator. The responder maps
// these to visible assistant messages instead of dropping the response.
var (
	ErrQuotaExceeded     = errors.New("generation quota exceeded")
	ErrInvalidCredential = errors.New("generation credential invalid")
	ErrRateLimited       = errors.New("generation rate limited")
)

// Generator produces assistant text from an instruction and a prompt.
type Generator interface {
	Generate(ctx context.Context, instruction, prompt string) (string, error)
}

// httpGenerator talks to an OpenAI-compatible chat completions endpoint.
type httpGenerator struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewHTTPGenerator builds a generator from AI_API_KEY, AI_MODEL, and
// AI_BASE_URL.
func NewHTTPGenerator() Generator {
	model := os.Getenv("AI_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
	}
	baseURL := os.Getenv("AI_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &httpGenerator{
		apiKey:  os.Getenv("AI_API_KEY"),
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type chatCompletionRequest struct {
	Model     string              `json:"model"`
	Messages  []completionMessage `json:"messages"`
	MaxTokens int                 `json:"max_tokens,omitempty"`
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message completionMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Generate sends one chat completion request and returns the generated text.
func (g *httpGenerator) Generate(ctx context.Context, instruction, prompt string) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("AI_API_KEY is not set: %w", ErrInvalidCredential)
	}

	body, err := json.Marshal(chatCompletionRequest{
		Model: g.model,
		Messages: []completionMessage{
			{Role: "system", Content: instruction},
			{Role: "user", Content: prompt},
		},
		MaxTokens: 400,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp.StatusCode, raw)
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("generation returned no choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func classifyStatus(status int, body []byte) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("status %d: %w", status, ErrInvalidCredential)
	case http.StatusTooManyRequests:
		if bytes.Contains(body, []byte("insufficient_quota")) {
			return fmt.Errorf("status %d: %w", status, ErrQuotaExceeded)
		}
		return fmt.Errorf("status %d: %w", status, ErrRateLimited)
	default:
		return fmt.Errorf("generation failed with status %d", status)
	}
}
