package llm

import (
	"context"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"
)

// AnthropicProvider implements the Provider interface for Anthropic Claude
type AnthropicProvider struct {
	client *anthropic.Client
	model  string
}

// AnthropicModels lists available Anthropic models
var AnthropicModels = []Model{
	{ID: "claude-sonnet-4-20250514", Name: "Claude Sonnet 4", ContextWindow: 200000, SupportsTools: true},
	{ID: "claude-3-7-sonnet-20250219", Name: "Claude 3.7 Sonnet", ContextWindow: 200000, SupportsTools: true},
	{ID: "claude-3-5-sonnet-20241022", Name: "Claude 3.5 Sonnet", ContextWindow: 200000, SupportsTools: true},
	{ID: "claude-3-5-haiku-20241022", Name: "Claude 3.5 Haiku", ContextWindow: 200000, SupportsTools: true},
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(apiKey string, model string) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	if model == "" {
		model = "claude-3-5-sonnet-20241022"
	}

	return &AnthropicProvider{
		client: anthropic.NewClient(apiKey),
		model:  model,
	}, nil
}

// ID returns the provider identifier
func (p *AnthropicProvider) ID() ProviderID {
	return ProviderAnthropic
}

// Name returns the human-readable provider name
func (p *AnthropicProvider) Name() string {
	return "Anthropic"
}

// SupportsTools returns true - Anthropic supports tool use
func (p *AnthropicProvider) SupportsTools() bool {
	return true
}

// Models returns available models
func (p *AnthropicProvider) Models() []Model {
	return AnthropicModels
}

// DefaultModel returns the default model
func (p *AnthropicProvider) DefaultModel() string {
	return p.model
}

// SetModel switches the active model after validating the ID
func (p *AnthropicProvider) SetModel(modelID string) error {
	if err := ValidateModelID(modelID, p.Models()); err != nil {
		return err
	}
	p.model = modelID
	return nil
}

// Chat sends a message and returns the response
func (p *AnthropicProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	return p.ChatWithToolResults(ctx, req, nil)
}

// ChatWithToolResults continues a conversation with tool results
func (p *AnthropicProvider) ChatWithToolResults(ctx context.Context, req *ChatRequest, rounds []ToolRound) (*ChatResponse, error) {
	resp, err := p.client.CreateMessages(ctx, buildAnthropicRequest(req, p.model, rounds))
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	response := &ChatResponse{
		StopReason: string(resp.StopReason),
		Usage: Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}

	for _, content := range resp.Content {
		switch content.Type {
		case anthropic.MessagesContentTypeText:
			if content.Text != nil {
				response.Content += *content.Text
			}
		case anthropic.MessagesContentTypeToolUse:
			response.ToolCalls = append(response.ToolCalls, ToolCall{
				ID:    content.ID,
				Name:  content.Name,
				Input: content.Input,
			})
		}
	}

	return response, nil
}

func buildAnthropicRequest(req *ChatRequest, fallbackModel string, rounds []ToolRound) anthropic.MessagesRequest {
	messages := make([]anthropic.Message, 0, len(req.Messages)+2*len(rounds))

	for _, msg := range req.Messages {
		role := anthropic.RoleUser
		if msg.Role == "assistant" {
			role = anthropic.RoleAssistant
		}
		messages = append(messages, anthropic.Message{
			Role:    role,
			Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(msg.Content)},
		})
	}

	// tool_use blocks go in an assistant turn, tool_result blocks in the following user turn
	for _, round := range rounds {
		if len(round.Calls) > 0 {
			var uses []anthropic.MessageContent
			for _, tc := range round.Calls {
				uses = append(uses, anthropic.NewToolUseMessageContent(tc.ID, tc.Name, tc.Input))
			}
			messages = append(messages, anthropic.Message{Role: anthropic.RoleAssistant, Content: uses})
		}
		if len(round.Results) > 0 {
			results := make([]anthropic.MessageContent, len(round.Results))
			for i, result := range round.Results {
				results[i] = anthropic.NewToolResultMessageContent(result.ToolUseID, result.Content, result.IsError)
			}
			messages = append(messages, anthropic.Message{Role: anthropic.RoleUser, Content: results})
		}
	}

	out := anthropic.MessagesRequest{
		Model:     anthropic.Model(req.model(fallbackModel)),
		MaxTokens: req.maxTokens(),
		System:    req.SystemPrompt,
		Messages:  messages,
	}

	if len(req.Tools) > 0 {
		tools := make([]anthropic.ToolDefinition, len(req.Tools))
		for i, tool := range req.Tools {
			tools[i] = anthropic.ToolDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				InputSchema: tool.InputSchema,
			}
		}
		out.Tools = tools
	}
	return out
}
