package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// ProviderID represents a unique provider identifier
type ProviderID string

const (
	ProviderAnthropic  ProviderID = "anthropic"
	ProviderOpenAI     ProviderID = "openai"
	ProviderGemini     ProviderID = "gemini"
	ProviderOpenRouter ProviderID = "openrouter"
	// ProviderCompat is any OpenAI-compatible endpoint reached through a base URL.
	ProviderCompat ProviderID = "openai_compat"
)

// Provider is the interface all LLM providers must implement
type Provider interface {
	// ID returns the unique provider identifier
	ID() ProviderID

	// Name returns the human-readable provider name
	Name() string

	// Chat sends the conversation and returns the next assistant turn
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// ChatWithToolResults continues a conversation after one or more rounds of
	// tool calls have been executed. Rounds are replayed in order.
	ChatWithToolResults(ctx context.Context, req *ChatRequest, rounds []ToolRound) (*ChatResponse, error)

	// SupportsTools returns true if provider supports tool use
	SupportsTools() bool

	// Models returns known models for this provider
	Models() []Model

	// DefaultModel returns the active model
	DefaultModel() string

	// SetModel switches the active model. Returns error if model ID is not
	// in the provider's supported model list.
	SetModel(modelID string) error
}

// Model represents an available model
type Model struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ContextWindow int    `json:"context_window"`
	SupportsTools bool   `json:"supports_tools"`
}

// Message represents a conversation message
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ToolCall represents a tool call from the model
type ToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ToolRound is one assistant turn of tool calls together with their results.
type ToolRound struct {
	Calls   []ToolCall
	Results []ToolResult
}

type ToolChoiceMode int

const (
	ToolChoiceAuto ToolChoiceMode = iota
	ToolChoiceNone
	ToolChoiceForce
)

// ToolChoice steers tool use. The zero value lets the model decide.
type ToolChoice struct {
	Mode ToolChoiceMode `json:"mode,omitempty"`
	Name string         `json:"name,omitempty"` // with ToolChoiceForce
}

// ChatRequest is a provider-agnostic chat request
type ChatRequest struct {
	SystemPrompt string     `json:"system_prompt"`
	Messages     []Message  `json:"messages"`
	Tools        []Tool     `json:"tools,omitempty"`
	Model        string     `json:"model,omitempty"` // Uses default if empty
	ToolChoice   ToolChoice `json:"tool_choice,omitempty"`
	MaxTokens    int        `json:"max_tokens,omitempty"`
}

func (r *ChatRequest) model(fallback string) string {
	if r.Model != "" {
		return r.Model
	}
	return fallback
}

func (r *ChatRequest) maxTokens() int {
	if r.MaxTokens > 0 {
		return r.MaxTokens
	}
	return 4096
}

// ChatResponse is a provider-agnostic chat response
type ChatResponse struct {
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	StopReason string     `json:"stop_reason"`
	Usage      Usage      `json:"usage"`
}

// Usage tracks token usage
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// EnvVarForProvider returns the environment variable name for a provider's API key
func EnvVarForProvider(id ProviderID) string {
	switch id {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGemini:
		return "GOOGLE_API_KEY"
	case ProviderOpenRouter:
		return "OPENROUTER_API_KEY"
	case ProviderCompat:
		return "OPENAI_COMPAT_API_KEY"
	default:
		return ""
	}
}

// AllProviderIDs returns all known provider IDs in priority order
func AllProviderIDs() []ProviderID {
	return []ProviderID{
		ProviderAnthropic,
		ProviderOpenAI,
		ProviderOpenRouter,
		ProviderGemini,
		ProviderCompat,
	}
}

// ValidateModelID checks whether modelID exists in the given model list.
func ValidateModelID(modelID string, models []Model) error {
	for _, m := range models {
		if m.ID == modelID {
			return nil
		}
	}
	return fmt.Errorf("unknown model %q for this provider", modelID)
}

// Config selects and configures a provider.
type Config struct {
	Provider ProviderID
	Model    string
	BaseURL  string
	APIKey   string
}

// New builds the configured provider. An empty APIKey falls back to the provider's
// environment variable. An empty Provider picks the first one with a key in the environment.
func New(ctx context.Context, cfg Config) (Provider, error) {
	id := ProviderID(strings.ToLower(strings.TrimSpace(string(cfg.Provider))))
	key := cfg.APIKey

	if id == "" {
		for _, candidate := range AllProviderIDs() {
			if os.Getenv(EnvVarForProvider(candidate)) != "" {
				id = candidate
				break
			}
		}
		if id == "" {
			return nil, fmt.Errorf("no LLM provider configured: set llm.provider or one of %s", envVarList())
		}
	}
	if key == "" {
		key = os.Getenv(EnvVarForProvider(id))
	}

	switch id {
	case ProviderAnthropic:
		return NewAnthropicProvider(key, cfg.Model)
	case ProviderOpenAI:
		return NewOpenAIProvider(key, cfg.Model, cfg.BaseURL)
	case ProviderGemini:
		return NewGeminiProvider(ctx, key, cfg.Model)
	case ProviderOpenRouter:
		return NewOpenRouterProvider(key, cfg.Model)
	case ProviderCompat:
		return NewCompatProvider(key, cfg.Model, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unknown provider: %s", id)
	}
}

func envVarList() string {
	var names []string
	for _, id := range AllProviderIDs() {
		names = append(names, EnvVarForProvider(id))
	}
	return strings.Join(names, ", ")
}

