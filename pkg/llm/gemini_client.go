package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	defaultGeminiModel   = "gemini-2.0-flash"
)

type GeminiClient struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

type GeminiOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	Logger     *slog.Logger
}

type (
	geminiRequest struct {
		Contents         []geminiContent         `json:"contents"`
		GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
	}

	geminiContent struct {
		Role  string       `json:"role,omitempty"`
		Parts []geminiPart `json:"parts"`
	}

	geminiPart struct {
		Text       string            `json:"text,omitempty"`
		InlineData *geminiInlineData `json:"inline_data,omitempty"`
	}

	geminiInlineData struct {
		MimeType string `json:"mime_type"`
		Data     string `json:"data"`
	}

	geminiGenerationConfig struct {
		Temperature      *float64 `json:"temperature,omitempty"`
		ResponseMimeType string   `json:"responseMimeType,omitempty"`
	}

	geminiResponse struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason"`
		} `json:"candidates"`
		UsageMetadata *struct {
			PromptTokenCount     int `json:"promptTokenCount"`
			CandidatesTokenCount int `json:"candidatesTokenCount"`
			TotalTokenCount      int `json:"totalTokenCount"`
		} `json:"usageMetadata,omitempty"`
	}
)

func NewGeminiClient(opts GeminiOptions) (*GeminiClient, error) {
	if opts.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if opts.Model == "" {
		opts.Model = defaultGeminiModel
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultGeminiBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &GeminiClient{
		httpClient: opts.HTTPClient,
		apiKey:     opts.APIKey,
		model:      opts.Model,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		limiter:    opts.Limiter,
		logger:     opts.Logger,
	}, nil
}

func (g *GeminiClient) Provider() Provider { return ProviderGemini }
func (g *GeminiClient) Model() string      { return g.model }

func (g *GeminiClient) AnalyzeImage(ctx context.Context, image []byte, prompt string, hint *SchemaHint) (Response, error) {
	if len(image) == 0 {
		return Response{}, fmt.Errorf("gemini analyze image: empty image")
	}
	parts := []geminiPart{
		{Text: withSchema(prompt, hint)},
		{InlineData: &geminiInlineData{
			MimeType: imageMimeType(image),
			Data:     base64.StdEncoding.EncodeToString(image),
		}},
	}
	return g.generate(ctx, parts, hint)
}

func (g *GeminiClient) GenerateCompletion(ctx context.Context, prompt string, hint *SchemaHint) (Response, error) {
	return g.generate(ctx, []geminiPart{{Text: withSchema(prompt, hint)}}, hint)
}

// TranscribeAudio is not offered by this provider; callers route audio to a
// provider that supports it.
func (g *GeminiClient) TranscribeAudio(context.Context, []byte, string) (string, error) {
	return "", fmt.Errorf("gemini transcribe audio: %w", ErrUnsupportedOperation)
}

func (g *GeminiClient) generate(ctx context.Context, parts []geminiPart, hint *SchemaHint) (Response, error) {
	if err := waitLimiter(ctx, g.limiter); err != nil {
		return Response{}, err
	}

	temperature := 0.1
	body := geminiRequest{
		Contents:         []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: &geminiGenerationConfig{Temperature: &temperature},
	}
	if hint != nil {
		body.GenerationConfig.ResponseMimeType = "application/json"
	}

	requestJSON, err := json.Marshal(body)
	if err != nil {
		return Response{}, err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestJSON))
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	g.logger.DebugContext(ctx, "calling gemini generateContent", "model", g.model, "structured", hint != nil)
	started := time.Now()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()
	latency := time.Since(started)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Response{}, &ProviderError{Provider: ProviderGemini, StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	var geminiResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return Response{}, fmt.Errorf("decode gemini response: %w", err)
	}
	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return Response{}, fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}

	var text strings.Builder
	for _, part := range geminiResp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	if strings.TrimSpace(text.String()) == "" {
		return Response{}, fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}

	diag := Diagnostics{Provider: ProviderGemini, Model: g.model, Latency: latency}
	if usage := geminiResp.UsageMetadata; usage != nil {
		diag.PromptTokens = intPtr(usage.PromptTokenCount)
		diag.CompletionTokens = intPtr(usage.CandidatesTokenCount)
		diag.TotalTokens = intPtr(usage.TotalTokenCount)
	}
	return Response{Content: text.String(), Diagnostics: diag}, nil
}

func withSchema(prompt string, hint *SchemaHint) string {
	if hint == nil || len(hint.Schema) == 0 {
		return prompt
	}
	return prompt + "\n\nRespond ONLY with JSON matching this JSON Schema:\n" + string(hint.Schema)
}
