// Package llm is the provider-agnostic client layer used by the analysis
// pipeline. Each provider owns its wire format; the Factory picks one from the
// stored provider selection and credentials.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

var (
	// ErrNotConfigured means no API key is stored for the selected provider.
	// It is a deferred state, not a failure.
	ErrNotConfigured        = errors.New("llm provider not configured")
	ErrUnsupportedOperation = errors.New("operation not supported by provider")
	ErrUnknownProvider      = errors.New("unknown llm provider")
	ErrEmptyResponse        = errors.New("llm returned an empty response")
)

// ParseProvider accepts the persisted provider id.
func ParseProvider(value string) (Provider, error) {
	switch Provider(value) {
	case ProviderOpenAI, ProviderGemini:
		return Provider(value), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, value)
	}
}

// SchemaHint asks the provider for structured JSON output matching Schema.
type SchemaHint struct {
	Name   string
	Schema json.RawMessage
}

type Diagnostics struct {
	Provider         Provider      `json:"provider"`
	Model            string        `json:"model"`
	PromptTokens     *int          `json:"promptTokens,omitempty"`
	CompletionTokens *int          `json:"completionTokens,omitempty"`
	TotalTokens      *int          `json:"totalTokens,omitempty"`
	Latency          time.Duration `json:"latency"`
}

type Response struct {
	Content     string
	Diagnostics Diagnostics
}

type Client interface {
	Provider() Provider
	Model() string
	AnalyzeImage(ctx context.Context, image []byte, prompt string, hint *SchemaHint) (Response, error)
	TranscribeAudio(ctx context.Context, audio []byte, mimeType string) (string, error)
	GenerateCompletion(ctx context.Context, prompt string, hint *SchemaHint) (Response, error)
}

// ProviderError is a non-2xx answer from a provider endpoint.
type ProviderError struct {
	Provider   Provider
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s API error: status %d: %s", e.Provider, e.StatusCode, e.Body)
}

func intPtr(v int) *int {
	return &v
}
