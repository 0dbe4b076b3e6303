package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// CredentialSource is the settings store the factory reads on every resolve,
// so a key entered while entries sit Skipped is picked up on retry.
type CredentialSource interface {
	GetSelectedProvider(ctx context.Context) (Provider, error)
	GetAPIKey(ctx context.Context, provider Provider) (string, error)
	GetModel(ctx context.Context, provider Provider) (string, error)
}

type Resolver interface {
	Resolve(ctx context.Context) (Client, error)
}

type FactoryOptions struct {
	// BaseURLs overrides provider endpoints, mostly for tests and proxies.
	BaseURLs          map[Provider]string
	Timeout           time.Duration
	RequestsPerMinute int
	Logger            *slog.Logger
}

type Factory struct {
	creds      CredentialSource
	httpClient *http.Client
	baseURLs   map[Provider]string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

func NewFactory(creds CredentialSource, opts FactoryOptions) *Factory {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	var limiter *rate.Limiter
	if opts.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), opts.RequestsPerMinute)
	}
	return &Factory{
		creds:      creds,
		httpClient: &http.Client{Timeout: opts.Timeout},
		baseURLs:   opts.BaseURLs,
		limiter:    limiter,
		logger:     opts.Logger,
	}
}

// Resolve builds a client for the currently selected provider. A missing key
// yields ErrNotConfigured so callers can tell "not set up yet" from a failure.
func (f *Factory) Resolve(ctx context.Context) (Client, error) {
	provider, err := f.creds.GetSelectedProvider(ctx)
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			return nil, err
		}
		return nil, fmt.Errorf("read selected provider: %w", err)
	}
	return f.ResolveProvider(ctx, provider)
}

func (f *Factory) ResolveProvider(ctx context.Context, provider Provider) (Client, error) {
	if provider == "" {
		return nil, ErrNotConfigured
	}
	apiKey, err := f.creds.GetAPIKey(ctx, provider)
	if err != nil {
		return nil, fmt.Errorf("read %s api key: %w", provider, err)
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: no api key for %s", ErrNotConfigured, provider)
	}
	model, err := f.creds.GetModel(ctx, provider)
	if err != nil {
		return nil, fmt.Errorf("read %s model: %w", provider, err)
	}

	switch provider {
	case ProviderOpenAI:
		return NewOpenAIClient(OpenAIOptions{
			APIKey:     apiKey,
			Model:      model,
			BaseURL:    f.baseURLs[ProviderOpenAI],
			HTTPClient: f.httpClient,
			Limiter:    f.limiter,
			Logger:     f.logger,
		})
	case ProviderGemini:
		return NewGeminiClient(GeminiOptions{
			APIKey:     apiKey,
			Model:      model,
			BaseURL:    f.baseURLs[ProviderGemini],
			HTTPClient: f.httpClient,
			Limiter:    f.limiter,
			Logger:     f.logger,
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
}
