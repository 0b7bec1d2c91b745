package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements the Provider interface for OpenAI
type OpenAIProvider struct {
	client  *openai.Client
	model   string
	baseURL string
}

// OpenAIModels lists available OpenAI models
var OpenAIModels = []Model{
	{ID: "gpt-4o", Name: "GPT-4o", ContextWindow: 128000, SupportsTools: true},
	{ID: "gpt-4o-mini", Name: "GPT-4o Mini", ContextWindow: 128000, SupportsTools: true},
	{ID: "gpt-4.1", Name: "GPT-4.1", ContextWindow: 1047576, SupportsTools: true},
	{ID: "gpt-4.1-mini", Name: "GPT-4.1 Mini", ContextWindow: 1047576, SupportsTools: true},
}

// NewOpenAIProvider creates a new OpenAI provider. baseURL overrides the API host.
func NewOpenAIProvider(apiKey string, model string, baseURL string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	if model == "" {
		model = "gpt-4o"
	}

	return &OpenAIProvider{
		client:  openai.NewClientWithConfig(config),
		model:   model,
		baseURL: baseURL,
	}, nil
}

// ID returns the provider identifier
func (p *OpenAIProvider) ID() ProviderID {
	return ProviderOpenAI
}

// Name returns the human-readable provider name
func (p *OpenAIProvider) Name() string {
	return "OpenAI"
}

// SupportsTools returns true - OpenAI supports function calling
func (p *OpenAIProvider) SupportsTools() bool {
	return true
}

// Models returns available models
func (p *OpenAIProvider) Models() []Model {
	return OpenAIModels
}

// DefaultModel returns the default model
func (p *OpenAIProvider) DefaultModel() string {
	return p.model
}

// SetModel switches the active model after validating the ID
func (p *OpenAIProvider) SetModel(modelID string) error {
	if err := ValidateModelID(modelID, p.Models()); err != nil {
		return err
	}
	p.model = modelID
	return nil
}

// Chat sends a message and returns the response
func (p *OpenAIProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	return p.ChatWithToolResults(ctx, req, nil)
}

// ChatWithToolResults continues a conversation with tool results
func (p *OpenAIProvider) ChatWithToolResults(ctx context.Context, req *ChatRequest, rounds []ToolRound) (*ChatResponse, error) {
	resp, err := p.client.CreateChatCompletion(ctx, buildOpenAIRequest(req, p.model, rounds))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}
	return parseOpenAIResponse(resp)
}

func buildOpenAIRequest(req *ChatRequest, fallbackModel string, rounds []ToolRound) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+2*len(rounds)+1)

	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}

	for _, msg := range req.Messages {
		role := openai.ChatMessageRoleUser
		if msg.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}

	for _, round := range rounds {
		if len(round.Calls) > 0 {
			assistantMsg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant}
			for _, tc := range round.Calls {
				assistantMsg.ToolCalls = append(assistantMsg.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: string(tc.Input),
					},
				})
			}
			messages = append(messages, assistantMsg)
		}
		for _, result := range round.Results {
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result.Content,
				ToolCallID: result.ToolUseID,
			})
		}
	}

	tools := make([]openai.Tool, 0, len(req.Tools))
	for _, tool := range req.Tools {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.InputSchema,
			},
		})
	}

	out := openai.ChatCompletionRequest{
		Model:     req.model(fallbackModel),
		MaxTokens: req.maxTokens(),
		Messages:  messages,
	}
	if len(tools) > 0 {
		out.Tools = tools
	}
	if tc := mapToolChoice(req.ToolChoice, len(tools) > 0); tc != nil {
		out.ToolChoice = tc
	}
	return out
}

func parseOpenAIResponse(resp openai.ChatCompletionResponse) (*ChatResponse, error) {
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	choice := resp.Choices[0]
	response := &ChatResponse{
		Content:    choice.Message.Content,
		StopReason: string(choice.FinishReason),
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}

	for _, tc := range choice.Message.ToolCalls {
		if tc.Type == openai.ToolTypeFunction {
			response.ToolCalls = append(response.ToolCalls, ToolCall{
				ID:    tc.ID,
				Name:  tc.Function.Name,
				Input: []byte(tc.Function.Arguments),
			})
		}
	}
	return response, nil
}

func mapToolChoice(choice ToolChoice, hasTools bool) any {
	// If no tools are present, tool choice is irrelevant.
	if !hasTools {
		return nil
	}

	switch choice.Mode {
	case ToolChoiceNone:
		return "none"
	case ToolChoiceForce:
		if choice.Name == "" {
			return nil
		}
		return openai.ToolChoice{
			Type: openai.ToolTypeFunction,
			Function: openai.ToolFunction{
				Name: choice.Name,
			},
		}
	default: // auto (zero value)
		return "auto"
	}
}
