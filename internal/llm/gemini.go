package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiProvider implements the Provider interface for Google Gemini
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// GeminiModels lists available Gemini models
var GeminiModels = []Model{
	{ID: "gemini-2.0-flash", Name: "Gemini 2.0 Flash", ContextWindow: 1000000, SupportsTools: true},
	{ID: "gemini-1.5-pro", Name: "Gemini 1.5 Pro", ContextWindow: 2000000, SupportsTools: true},
	{ID: "gemini-1.5-flash", Name: "Gemini 1.5 Flash", ContextWindow: 1000000, SupportsTools: true},
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(ctx context.Context, apiKey string, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if model == "" {
		model = "gemini-2.0-flash"
	}

	return &GeminiProvider{
		client: client,
		model:  model,
	}, nil
}

// ID returns the provider identifier
func (p *GeminiProvider) ID() ProviderID {
	return ProviderGemini
}

// Name returns the human-readable provider name
func (p *GeminiProvider) Name() string {
	return "Google Gemini"
}

// SupportsTools returns true - Gemini supports function calling
func (p *GeminiProvider) SupportsTools() bool {
	return true
}

// Models returns available models
func (p *GeminiProvider) Models() []Model {
	return GeminiModels
}

// DefaultModel returns the default model
func (p *GeminiProvider) DefaultModel() string {
	return p.model
}

// SetModel switches the active model after validating the ID
func (p *GeminiProvider) SetModel(modelID string) error {
	if err := ValidateModelID(modelID, p.Models()); err != nil {
		return err
	}
	p.model = modelID
	return nil
}

// Chat sends a message and returns the response
func (p *GeminiProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	return p.ChatWithToolResults(ctx, req, nil)
}

// ChatWithToolResults continues a conversation with tool results
func (p *GeminiProvider) ChatWithToolResults(ctx context.Context, req *ChatRequest, rounds []ToolRound) (*ChatResponse, error) {
	model := p.client.GenerativeModel(req.model(p.model))
	model.SetMaxOutputTokens(int32(req.maxTokens()))

	if req.SystemPrompt != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.SystemPrompt)},
		}
	}
	if decls := geminiFunctions(req.Tools); len(decls) > 0 {
		model.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	contents := buildGeminiContents(req, rounds)
	if len(contents) == 0 {
		return nil, fmt.Errorf("no messages to send")
	}

	cs := model.StartChat()
	cs.History = contents[:len(contents)-1]

	resp, err := cs.SendMessage(ctx, contents[len(contents)-1].Parts...)
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	return parseGeminiResponse(resp)
}

// Close closes the client
func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

func geminiFunctions(tools []Tool) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  geminiSchema(tool),
		})
	}
	return decls
}

func buildGeminiContents(req *ChatRequest, rounds []ToolRound) []*genai.Content {
	var contents []*genai.Content
	for _, msg := range req.Messages {
		role := "user"
		if msg.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}

	for _, round := range rounds {
		if len(round.Calls) > 0 {
			var calls []genai.Part
			for _, tc := range round.Calls {
				var args map[string]any
				_ = json.Unmarshal(tc.Input, &args)
				calls = append(calls, genai.FunctionCall{Name: tc.Name, Args: args})
			}
			contents = append(contents, &genai.Content{Role: "model", Parts: calls})
		}

		var responses []genai.Part
		for _, result := range round.Results {
			// Gemini matches responses by function name, not call id
			name := result.Name
			if name == "" {
				name = result.ToolUseID
			}
			responses = append(responses, genai.FunctionResponse{
				Name:     name,
				Response: map[string]any{"result": result.Content, "is_error": result.IsError},
			})
		}
		if len(responses) > 0 {
			contents = append(contents, &genai.Content{Role: "user", Parts: responses})
		}
	}
	return contents
}

func parseGeminiResponse(resp *genai.GenerateContentResponse) (*ChatResponse, error) {
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	response := &ChatResponse{
		StopReason: candidate.FinishReason.String(),
	}

	if resp.UsageMetadata != nil {
		response.Usage = Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}

	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			switch v := part.(type) {
			case genai.Text:
				response.Content += string(v)
			case genai.FunctionCall:
				argsJSON, _ := json.Marshal(v.Args)
				response.ToolCalls = append(response.ToolCalls, ToolCall{
					ID:    v.Name, // Gemini uses name as ID
					Name:  v.Name,
					Input: argsJSON,
				})
			}
		}
	}

	return response, nil
}

// geminiTypes maps JSON schema type names onto genai types. Unknown names map
// to TypeUnspecified.
var geminiTypes = map[string]genai.Type{
	"string":  genai.TypeString,
	"number":  genai.TypeNumber,
	"integer": genai.TypeInteger,
	"boolean": genai.TypeBoolean,
	"array":   genai.TypeArray,
	"object":  genai.TypeObject,
}

// geminiSchema decodes a tool's input schema into genai's typed form.
// Returns nil when the tool carries no schema.
func geminiSchema(tool Tool) *genai.Schema {
	var in JSONSchema
	if err := json.Unmarshal(tool.InputSchema, &in); err != nil {
		return nil
	}

	out := &genai.Schema{Type: genai.TypeObject, Required: in.Required}
	if len(in.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(in.Properties))
		for name, p := range in.Properties {
			out.Properties[name] = &genai.Schema{
				Type:        geminiTypes[p.Type],
				Description: p.Description,
				Enum:        p.Enum,
			}
		}
	}
	return out
}
