package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"
	DefaultGroqModel   = "llama3-70b-8192"
)

// ChatCompletionsClient talks to any OpenAI-compatible /chat/completions endpoint (Groq by default).
type ChatCompletionsClient struct {
	provider   string
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
	cfg        Config
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func NewChatCompletionsClient(cfg Config) *ChatCompletionsClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	provider := cfg.Provider
	if provider == "" {
		provider = ProviderGroq
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultGroqBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultGroqModel
	}
	return &ChatCompletionsClient{
		provider:   provider,
		baseURL:    baseURL,
		model:      model,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
	}
}

func (c *ChatCompletionsClient) Provider() string { return c.provider }
func (c *ChatCompletionsClient) Model() string    { return c.model }

// Complete sends the prompt as a single user message.
func (c *ChatCompletionsClient) Complete(ctx context.Context, prompt string, sampling SamplingConfig) (string, error) {
	if c.apiKey == "" {
		return "", transportError(c.provider, 0, errors.New("api key not set"))
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: sampling.Temperature,
		MaxTokens:   sampling.MaxTokens,
	})
	if err != nil {
		return "", transportError(c.provider, 0, fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", transportError(c.provider, 0, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", transportError(c.provider, 0, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", transportError(c.provider, resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", transportError(c.provider, resp.StatusCode, fmt.Errorf("API error: %s", snippet(respBody)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", transportError(c.provider, resp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return "", transportError(c.provider, resp.StatusCode, fmt.Errorf("API error: %s", parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 {
		return "", transportError(c.provider, resp.StatusCode, errors.New("API returned no choices"))
	}

	content := parsed.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", transportError(c.provider, resp.StatusCode, fmt.Errorf("API returned empty content (finish reason: %s)", parsed.Choices[0].FinishReason))
	}
	return content, nil
}

func snippet(b []byte) string {
	const limit = 500
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
