package llm

import "fmt"

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterModels lists popular OpenRouter models with tool support
var OpenRouterModels = []Model{
	{ID: "anthropic/claude-3.7-sonnet", Name: "Claude 3.7 Sonnet", ContextWindow: 200000, SupportsTools: true},
	{ID: "anthropic/claude-3.5-sonnet", Name: "Claude 3.5 Sonnet", ContextWindow: 200000, SupportsTools: true},
	{ID: "openai/gpt-4o", Name: "GPT-4o", ContextWindow: 128000, SupportsTools: true},
	{ID: "google/gemini-2.5-pro-preview", Name: "Gemini 2.5 Pro", ContextWindow: 1000000, SupportsTools: true},
	{ID: "meta-llama/llama-4-maverick", Name: "Llama 4 Maverick", ContextWindow: 1000000, SupportsTools: true},
}

// OpenAICompatProvider wraps OpenAIProvider with provider metadata and a model
// list for validation. OpenRouter and self-hosted OpenAI-compatible servers are
// thin constructors over it.
type OpenAICompatProvider struct {
	id     ProviderID
	name   string
	models []Model

	*OpenAIProvider
}

func newOpenAICompatProvider(apiKey, model, baseURL string, id ProviderID, name string, models []Model, defaultModel string) (*OpenAICompatProvider, error) {
	if model == "" {
		model = defaultModel
	}

	base, err := NewOpenAIProvider(apiKey, model, baseURL)
	if err != nil {
		return nil, err
	}

	return &OpenAICompatProvider{
		id:             id,
		name:           name,
		models:         models,
		OpenAIProvider: base,
	}, nil
}

// NewOpenRouterProvider creates an OpenRouter provider.
func NewOpenRouterProvider(apiKey, model string) (*OpenAICompatProvider, error) {
	return newOpenAICompatProvider(apiKey, model, openRouterBaseURL, ProviderOpenRouter, "OpenRouter", OpenRouterModels, "anthropic/claude-3.5-sonnet")
}

// NewCompatProvider targets any OpenAI-compatible server (vLLM, Ollama, LM Studio).
// Both baseURL and model are required since there is no sensible default.
func NewCompatProvider(apiKey, model, baseURL string) (*OpenAICompatProvider, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required for %s", ProviderCompat)
	}
	if model == "" {
		return nil, fmt.Errorf("model is required for %s", ProviderCompat)
	}
	return newOpenAICompatProvider(apiKey, model, baseURL, ProviderCompat, "OpenAI-compatible", nil, "")
}

func (p *OpenAICompatProvider) ID() ProviderID { return p.id }
func (p *OpenAICompatProvider) Name() string   { return p.name }
func (p *OpenAICompatProvider) Models() []Model {
	return p.models
}

// SetModel validates against the known list; servers without one accept any model.
func (p *OpenAICompatProvider) SetModel(modelID string) error {
	if len(p.models) > 0 {
		if err := ValidateModelID(modelID, p.models); err != nil {
			return err
		}
	}
	p.model = modelID
	return nil
}
