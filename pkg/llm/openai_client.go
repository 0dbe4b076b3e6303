package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const defaultOpenAIModel = "gpt-4o-mini"

type OpenAIClient struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter
	logger  *slog.Logger
}

type OpenAIOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	Logger     *slog.Logger
}

func NewOpenAIClient(opts OpenAIOptions) (*OpenAIClient, error) {
	if opts.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if opts.Model == "" {
		opts.Model = defaultOpenAIModel
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}
	return &OpenAIClient{
		client:  openai.NewClientWithConfig(cfg),
		model:   opts.Model,
		limiter: opts.Limiter,
		logger:  opts.Logger,
	}, nil
}

func (o *OpenAIClient) Provider() Provider { return ProviderOpenAI }
func (o *OpenAIClient) Model() string      { return o.model }

func (o *OpenAIClient) AnalyzeImage(ctx context.Context, image []byte, prompt string, hint *SchemaHint) (Response, error) {
	if len(image) == 0 {
		return Response{}, fmt.Errorf("openai analyze image: empty image")
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", imageMimeType(image), base64.StdEncoding.EncodeToString(image))

	msg := openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: prompt},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    dataURL,
					Detail: openai.ImageURLDetailAuto,
				},
			},
		},
	}
	return o.complete(ctx, msg, hint)
}

func (o *OpenAIClient) GenerateCompletion(ctx context.Context, prompt string, hint *SchemaHint) (Response, error) {
	msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt}
	return o.complete(ctx, msg, hint)
}

func (o *OpenAIClient) complete(ctx context.Context, msg openai.ChatCompletionMessage, hint *SchemaHint) (Response, error) {
	if err := waitLimiter(ctx, o.limiter); err != nil {
		return Response{}, err
	}

	req := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: []openai.ChatCompletionMessage{msg},
	}
	if hint != nil && len(hint.Schema) > 0 {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   hint.Name,
				Schema: hint.Schema,
			},
		}
	}

	o.logger.DebugContext(ctx, "calling openai chat completion", "model", o.model, "structured", req.ResponseFormat != nil)
	started := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, req)
	latency := time.Since(started)
	if err != nil {
		return Response{}, o.wrapError(err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return Response{}, fmt.Errorf("openai: %w", ErrEmptyResponse)
	}

	return Response{
		Content: resp.Choices[0].Message.Content,
		Diagnostics: Diagnostics{
			Provider:         ProviderOpenAI,
			Model:            o.model,
			PromptTokens:     intPtr(resp.Usage.PromptTokens),
			CompletionTokens: intPtr(resp.Usage.CompletionTokens),
			TotalTokens:      intPtr(resp.Usage.TotalTokens),
			Latency:          latency,
		},
	}, nil
}

func (o *OpenAIClient) TranscribeAudio(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("openai transcribe: empty audio")
	}
	if err := waitLimiter(ctx, o.limiter); err != nil {
		return "", err
	}
	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: "voice-note" + audioExtension(mimeType),
		Reader:   bytes.NewReader(audio),
	})
	if err != nil {
		return "", o.wrapError(err)
	}
	return strings.TrimSpace(resp.Text), nil
}

func (o *OpenAIClient) wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{Provider: ProviderOpenAI, StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &ProviderError{Provider: ProviderOpenAI, StatusCode: reqErr.HTTPStatusCode, Body: reqErr.Error()}
	}
	return fmt.Errorf("openai API call failed: %w", err)
}

func imageMimeType(image []byte) string {
	detected := http.DetectContentType(image)
	if strings.HasPrefix(detected, "image/") {
		return detected
	}
	return "image/jpeg"
}

func audioExtension(mimeType string) string {
	switch strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0])) {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/webm":
		return ".webm"
	case "audio/ogg":
		return ".ogg"
	case "audio/flac":
		return ".flac"
	default:
		return ".m4a"
	}
}

func waitLimiter(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}
