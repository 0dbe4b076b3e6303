package credential

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/DigitumDei/WellnessWingman-sub001/domain"
	"github.com/DigitumDei/WellnessWingman-sub001/internal/utils"
	"github.com/DigitumDei/WellnessWingman-sub001/pkg/llm"
)

type (
	// Store is the settings-backed credential source. It is seeded from config
	// and can be updated at runtime by the settings surface.
	Store interface {
		llm.CredentialSource
		SelectProvider(ctx context.Context, provider llm.Provider) error
		SetAPIKey(ctx context.Context, provider llm.Provider, apiKey string) error
		SetModel(ctx context.Context, provider llm.Provider, model string) error
	}

	providerSettings struct {
		apiKey string
		model  string
	}

	configStore struct {
		mu        sync.RWMutex
		selected  llm.Provider
		providers map[llm.Provider]providerSettings
	}
)

func NewConfigStore(cfg utils.LLMConfig) Store {
	return &configStore{
		selected: llm.Provider(strings.TrimSpace(cfg.Provider)),
		providers: map[llm.Provider]providerSettings{
			llm.ProviderOpenAI: {apiKey: cfg.OpenAI.APIKey, model: cfg.OpenAI.Model},
			llm.ProviderGemini: {apiKey: cfg.Gemini.APIKey, model: cfg.Gemini.Model},
		},
	}
}

// GetSelectedProvider returns the explicit selection, or the only provider
// that has a key when nothing was selected.
func (s *configStore) GetSelectedProvider(ctx context.Context) (llm.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.selected != "" {
		return s.selected, nil
	}
	for _, p := range []llm.Provider{llm.ProviderOpenAI, llm.ProviderGemini} {
		if s.providers[p].apiKey != "" {
			return p, nil
		}
	}
	return "", llm.ErrNotConfigured
}

func (s *configStore) GetAPIKey(ctx context.Context, provider llm.Provider) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.providers[provider].apiKey, nil
}

func (s *configStore) GetModel(ctx context.Context, provider llm.Provider) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.providers[provider].model, nil
}

func (s *configStore) SelectProvider(ctx context.Context, provider llm.Provider) error {
	if _, err := llm.ParseProvider(string(provider)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = provider
	return nil
}

func (s *configStore) SetAPIKey(ctx context.Context, provider llm.Provider, apiKey string) error {
	if _, err := llm.ParseProvider(string(provider)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	settings := s.providers[provider]
	settings.apiKey = strings.TrimSpace(apiKey)
	s.providers[provider] = settings
	return nil
}

func (s *configStore) SetModel(ctx context.Context, provider llm.Provider, model string) error {
	if _, err := llm.ParseProvider(string(provider)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	settings := s.providers[provider]
	settings.model = strings.TrimSpace(model)
	s.providers[provider] = settings
	return nil
}

// Describe reports the effective selection and, per provider, the model and
// whether a key is stored.
func Describe(ctx context.Context, source llm.CredentialSource) (domain.LLMSettings, error) {
	var settings domain.LLMSettings
	selected, err := source.GetSelectedProvider(ctx)
	if err != nil && !errors.Is(err, llm.ErrNotConfigured) {
		return settings, err
	}
	settings.SelectedProvider = string(selected)

	for _, provider := range []llm.Provider{llm.ProviderOpenAI, llm.ProviderGemini} {
		key, err := source.GetAPIKey(ctx, provider)
		if err != nil {
			return settings, err
		}
		model, err := source.GetModel(ctx, provider)
		if err != nil {
			return settings, err
		}
		hasKey := strings.TrimSpace(key) != ""
		if provider == selected && hasKey {
			settings.Configured = true
		}
		settings.Providers = append(settings.Providers, domain.ProviderSettings{
			Provider:  string(provider),
			Model:     model,
			HasAPIKey: hasKey,
		})
	}
	return settings, nil
}

// Apply writes a settings update to store. Entries Skipped while no key was
// configured are not requeued; they wait for an explicit retry.
func Apply(ctx context.Context, store Store, req domain.UpdateLLMSettingsRequest) error {
	provider, err := llm.ParseProvider(req.Provider)
	if err != nil {
		return err
	}
	if req.APIKey != nil {
		if err := store.SetAPIKey(ctx, provider, *req.APIKey); err != nil {
			return err
		}
	}
	if req.Model != nil {
		if err := store.SetModel(ctx, provider, *req.Model); err != nil {
			return err
		}
	}
	if req.Select {
		return store.SelectProvider(ctx, provider)
	}
	return nil
}
