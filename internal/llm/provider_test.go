package llm

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/liushuangls/go-anthropic/v2"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, id := range AllProviderIDs() {
		t.Setenv(EnvVarForProvider(id), "")
	}
}

func TestNew(t *testing.T) {
	t.Run("explicit provider and key", func(t *testing.T) {
		clearProviderEnv(t)
		p, err := New(context.Background(), Config{Provider: "anthropic", APIKey: "k"})
		require.NoError(t, err)
		assert.Equal(t, ProviderAnthropic, p.ID())
		assert.Equal(t, "claude-3-5-sonnet-20241022", p.DefaultModel())
	})

	t.Run("key from environment", func(t *testing.T) {
		clearProviderEnv(t)
		t.Setenv("OPENROUTER_API_KEY", "or-key")

		p, err := New(context.Background(), Config{Provider: ProviderOpenRouter, Model: "openai/gpt-4o"})
		require.NoError(t, err)
		assert.Equal(t, ProviderOpenRouter, p.ID())
		assert.Equal(t, "OpenRouter", p.Name())
		assert.Equal(t, "openai/gpt-4o", p.DefaultModel())
	})

	t.Run("autodetects provider from environment", func(t *testing.T) {
		clearProviderEnv(t)
		t.Setenv("OPENAI_API_KEY", "sk-test")

		p, err := New(context.Background(), Config{})
		require.NoError(t, err)
		assert.Equal(t, ProviderOpenAI, p.ID())
	})

	t.Run("nothing configured", func(t *testing.T) {
		clearProviderEnv(t)
		_, err := New(context.Background(), Config{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
	})

	t.Run("missing key", func(t *testing.T) {
		clearProviderEnv(t)
		_, err := New(context.Background(), Config{Provider: ProviderOpenAI})
		assert.Error(t, err)
	})

	t.Run("compat requires base url and model", func(t *testing.T) {
		clearProviderEnv(t)
		_, err := New(context.Background(), Config{Provider: ProviderCompat, APIKey: "x", Model: "llama3"})
		assert.Error(t, err)

		p, err := New(context.Background(), Config{Provider: ProviderCompat, APIKey: "x", Model: "llama3", BaseURL: "http://localhost:11434/v1"})
		require.NoError(t, err)
		assert.NoError(t, p.SetModel("anything"))
		assert.Equal(t, "anything", p.DefaultModel())
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := New(context.Background(), Config{Provider: "venice", APIKey: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown provider")
	})
}

func TestSetModel(t *testing.T) {
	p, err := NewOpenRouterProvider("k", "")
	require.NoError(t, err)

	require.NoError(t, p.SetModel("openai/gpt-4o"))
	assert.Equal(t, "openai/gpt-4o", p.DefaultModel())

	err = p.SetModel("nope/nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown model")
	assert.Equal(t, "openai/gpt-4o", p.DefaultModel())
}

func TestEnvVarForProvider(t *testing.T) {
	tests := []struct {
		provider ProviderID
		expected string
	}{
		{ProviderAnthropic, "ANTHROPIC_API_KEY"},
		{ProviderOpenAI, "OPENAI_API_KEY"},
		{ProviderGemini, "GOOGLE_API_KEY"},
		{ProviderOpenRouter, "OPENROUTER_API_KEY"},
		{ProviderCompat, "OPENAI_COMPAT_API_KEY"},
		{ProviderID("unknown"), ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			assert.Equal(t, tt.expected, EnvVarForProvider(tt.provider))
		})
	}
}

func TestNewTool(t *testing.T) {
	tool := NewTool("list_chains", "List chains", JSONSchema{})
	assert.JSONEq(t, `{"type":"object","properties":{}}`, string(tool.InputSchema))

	tool = NewTool("eth_transfer", "Send", JSONSchema{
		Type:       "object",
		Properties: map[string]Property{"chain": {Type: "string", Description: "Chain name"}},
		Required:   []string{"chain"},
	})
	var params map[string]any
	require.NoError(t, json.Unmarshal(tool.InputSchema, &params))
	assert.Equal(t, []any{"chain"}, params["required"])
}

var testRounds = []ToolRound{
	{
		Calls:   []ToolCall{{ID: "call_1", Name: "list_chains", Input: json.RawMessage(`{}`)}},
		Results: []ToolResult{{ToolUseID: "call_1", Name: "list_chains", Content: "testnet"}},
	},
	{
		Calls:   []ToolCall{{ID: "call_2", Name: "eth_transfer", Input: json.RawMessage(`{"chain":"testnet"}`)}},
		Results: []ToolResult{{ToolUseID: "call_2", Name: "eth_transfer", Content: "validation error", IsError: true}},
	},
}

func testRequest() *ChatRequest {
	return &ChatRequest{
		SystemPrompt: "be careful",
		Messages:     []Message{{Role: "user", Content: "send 1 ETH"}},
		Tools:        []Tool{NewTool("list_chains", "List chains", JSONSchema{})},
	}
}

func TestBuildOpenAIRequest(t *testing.T) {
	out := buildOpenAIRequest(testRequest(), "gpt-4o", testRounds)

	assert.Equal(t, "gpt-4o", out.Model)
	assert.Equal(t, 4096, out.MaxTokens)
	require.Len(t, out.Messages, 6)
	assert.Equal(t, openai.ChatMessageRoleSystem, out.Messages[0].Role)
	assert.Equal(t, openai.ChatMessageRoleUser, out.Messages[1].Role)
	assert.Equal(t, "call_1", out.Messages[2].ToolCalls[0].ID)
	assert.Equal(t, openai.ChatMessageRoleTool, out.Messages[3].Role)
	assert.Equal(t, "call_1", out.Messages[3].ToolCallID)
	assert.Equal(t, `{"chain":"testnet"}`, out.Messages[4].ToolCalls[0].Function.Arguments)
	require.Len(t, out.Tools, 1)
	assert.Equal(t, "auto", out.ToolChoice)
}

func TestMapToolChoice(t *testing.T) {
	assert.Nil(t, mapToolChoice(ToolChoice{}, false))
	assert.Equal(t, "auto", mapToolChoice(ToolChoice{}, true))
	assert.Equal(t, "none", mapToolChoice(ToolChoice{Mode: ToolChoiceNone}, true))
	assert.Nil(t, mapToolChoice(ToolChoice{Mode: ToolChoiceForce}, true))

	forced, ok := mapToolChoice(ToolChoice{Mode: ToolChoiceForce, Name: "list_chains"}, true).(openai.ToolChoice)
	require.True(t, ok)
	assert.Equal(t, "list_chains", forced.Function.Name)
}

func TestBuildAnthropicRequest(t *testing.T) {
	req := testRequest()
	req.MaxTokens = 512
	out := buildAnthropicRequest(req, "claude-3-5-haiku-20241022", testRounds)

	assert.Equal(t, anthropic.Model("claude-3-5-haiku-20241022"), out.Model)
	assert.Equal(t, 512, out.MaxTokens)
	assert.Equal(t, "be careful", out.System)
	require.Len(t, out.Messages, 5)
	assert.Equal(t, anthropic.RoleAssistant, out.Messages[1].Role)
	assert.Equal(t, anthropic.RoleUser, out.Messages[2].Role)
	assert.Equal(t, anthropic.RoleAssistant, out.Messages[3].Role)
	require.Len(t, out.Tools, 1)
}

func TestBuildGeminiContents(t *testing.T) {
	contents := buildGeminiContents(testRequest(), testRounds)
	require.Len(t, contents, 5)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)

	resp, ok := contents[4].Parts[0].(genai.FunctionResponse)
	require.True(t, ok)
	assert.Equal(t, "eth_transfer", resp.Name)
	assert.Equal(t, true, resp.Response["is_error"])
}

func TestGeminiSchema(t *testing.T) {
	tool := NewTool("erc20_transfer", "Send tokens", JSONSchema{
		Properties: map[string]Property{
			"chain":  {Type: "string", Description: "Chain name"},
			"amount": {Type: "string"},
			"mode":   {Type: "string", Enum: []string{"fast", "slow"}},
		},
		Required: []string{"chain", "amount"},
	})

	schema := geminiSchema(tool)
	require.NotNil(t, schema)
	assert.Equal(t, genai.TypeObject, schema.Type)
	assert.Equal(t, genai.TypeString, schema.Properties["chain"].Type)
	assert.Equal(t, "Chain name", schema.Properties["chain"].Description)
	assert.Equal(t, []string{"fast", "slow"}, schema.Properties["mode"].Enum)
	assert.ElementsMatch(t, []string{"chain", "amount"}, schema.Required)

	assert.Nil(t, geminiSchema(Tool{Name: "bare"}))
	assert.Nil(t, geminiSchema(NewTool("list_chains", "", JSONSchema{})).Properties)

	decls := geminiFunctions([]Tool{tool})
	require.Len(t, decls, 1)
	assert.Equal(t, "erc20_transfer", decls[0].Name)
}
