package domain

const (
	MessageSuccessGetSettings    = "llm settings retrieved"
	MessageSuccessUpdateSettings = "llm settings updated"
	MessageFailedGetSettings     = "failed to retrieve llm settings"
	MessageFailedUpdateSettings  = "failed to update llm settings"
)

type (
	// UpdateLLMSettingsRequest changes one provider's settings. Nil fields are
	// left as they are; an empty api_key removes the stored key.
	UpdateLLMSettingsRequest struct {
		Provider string  `json:"provider" validate:"required,oneof=openai gemini"`
		APIKey   *string `json:"api_key,omitempty" validate:"omitempty,max=512"`
		Model    *string `json:"model,omitempty" validate:"omitempty,max=128"`
		Select   bool    `json:"select"`
	}

	ProviderSettings struct {
		Provider  string `json:"provider"`
		Model     string `json:"model"`
		HasAPIKey bool   `json:"has_api_key"`
	}

	// LLMSettings never carries the keys themselves.
	LLMSettings struct {
		SelectedProvider string             `json:"selected_provider"`
		Configured       bool               `json:"configured"`
		Providers        []ProviderSettings `json:"providers"`
	}
)
