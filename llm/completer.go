package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

const (
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	DefaultTimeout = 45 * time.Second
)

// SamplingConfig carries the per-task generation knobs.
type SamplingConfig struct {
	Temperature float64
	MaxTokens   int
}

// Completer sends one prompt to a language model and returns the raw text reply.
// Implementations make exactly one attempt and report every failure as *TransportError.
type Completer interface {
	Complete(ctx context.Context, prompt string, cfg SamplingConfig) (string, error)
}

// Describer is implemented by completers that can name their backend.
type Describer interface {
	Provider() string
	Model() string
}

// TransportError is any failure to obtain a completion: network, non-2xx status,
// auth or quota rejection, timeout, or an empty reply.
type TransportError struct {
	Provider   string
	StatusCode int
	Timeout    bool
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("%s completion timed out: %v", e.Provider, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s completion failed with status %d: %v", e.Provider, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("%s completion failed: %v", e.Provider, e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err carries a *TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

func transportError(provider string, status int, err error) *TransportError {
	return &TransportError{
		Provider:   provider,
		StatusCode: status,
		Timeout:    isTimeout(err),
		Err:        err,
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Config selects and configures a completion backend.
type Config struct {
	Provider string
	BaseURL  string
	Model    string
	APIKey   string
	Timeout  time.Duration
}

// New builds the completer named by cfg.Provider. The returned close function
// releases provider resources and is never nil.
func New(ctx context.Context, cfg Config) (Completer, func() error, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	switch cfg.Provider {
	case ProviderGroq, ProviderOpenAI, "":
		return NewChatCompletionsClient(cfg), func() error { return nil }, nil
	case ProviderGemini:
		c, err := NewGeminiClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}
