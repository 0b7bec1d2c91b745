package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yolodolo42/txagent/internal/chain"
	"github.com/yolodolo42/txagent/internal/llm"
)

// DefaultMaxToolRounds bounds how many consecutive tool-calling turns one user message may trigger.
const DefaultMaxToolRounds = 8

// ChatEvent represents a single event in the chat flow (tool call, result, or content)
type ChatEvent struct {
	Type    string    // "tool_call", "tool_result", "content"
	Tool    string    // Tool name for tool_call/tool_result
	Args    string    // Redacted tool arguments for tool_call
	Content string    // Content for tool_result or final content
	Blocks  []UIBlock // Structured tool output for tool_result
	IsError bool      // True if tool result was an error
}

// Agent drives a tool-calling conversation: the model proposes calls, the
// registry executes them, and every round is replayed to the model until it answers.
type Agent struct {
	// mu serializes Chat calls so messages never interleave in the conversation.
	mu           sync.Mutex
	provider     llm.Provider
	tools        *ToolRegistry
	systemPrompt string
	conversation []llm.Message
	maxRounds    int

	dataDir   string
	sessionID string
	session   *sessionLogger
	log       *logrus.Logger
}

type Option func(*Agent)

// WithSessionLog writes a JSONL transcript under dataDir/sessions.
func WithSessionLog(dataDir string) Option { return func(a *Agent) { a.dataDir = dataDir } }

func WithLogger(l *logrus.Logger) Option { return func(a *Agent) { a.log = l } }

func WithMaxToolRounds(n int) Option { return func(a *Agent) { a.maxRounds = n } }

// New builds an agent around provider and tools. The system prompt carries the
// public chain table so the model can pick chain names and token symbols.
func New(provider llm.Provider, tools *ToolRegistry, opts ...Option) (*Agent, error) {
	if provider == nil {
		return nil, fmt.Errorf("agent provider not initialized")
	}
	if tools == nil {
		return nil, fmt.Errorf("agent tool registry not initialized")
	}

	a := &Agent{
		provider:  provider,
		tools:     tools,
		maxRounds: DefaultMaxToolRounds,
		sessionID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = logrus.New()
	}
	if a.maxRounds <= 0 {
		a.maxRounds = DefaultMaxToolRounds
	}

	var chains []chain.PublicChain
	if tools.chains != nil {
		chains = tools.chains.Public()
	}
	prompt, err := BuildSystemPrompt(chains)
	if err != nil {
		return nil, err
	}
	a.systemPrompt = prompt

	if a.dataDir != "" {
		session, err := newSessionLogger(a.dataDir, a.sessionID)
		if err != nil {
			return nil, err
		}
		a.session = session
		a.session.log(sessionRecord{Type: recordSession, Provider: string(provider.ID()), Model: provider.DefaultModel()})
	}

	return a, nil
}

const systemPromptBase = `You are txagent, an operator for EVM-compatible blockchains. You can move funds on the user's behalf with these tools:
- eth_transfer: send the chain's native asset
- erc20_transfer: send an ERC-20 token
- eth_swap_to_erc20: swap the native asset for an ERC-20 token
- list_chains: show the configured chains

Rules:
- Every transfer and swap is real and irreversible. Only call a state-changing tool when the user has clearly asked for that exact action, chain, recipient and amount.
- Use chain names and token symbols exactly as they appear in the chain table below. Never invent addresses.
- Amounts are decimal strings in whole units ("0.5", not wei). Native transfers and swaps are capped at 10 units, token transfers at 100000.
- When a tool returns an error, report it plainly. Do not retry with altered arguments unless the user asks.
- After a successful submission, give the user the transaction hash.`

// BuildSystemPrompt renders the base prompt followed by the chain table as JSON.
func BuildSystemPrompt(chains []chain.PublicChain) (string, error) {
	if len(chains) == 0 {
		return systemPromptBase + "\n\nNo chains are configured.", nil
	}
	b, err := json.MarshalIndent(chains, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode chain table: %w", err)
	}
	return systemPromptBase + "\n\nConfigured chains:\n" + string(b), nil
}

// Chat sends a user message and returns the agent's final text.
func (a *Agent) Chat(ctx context.Context, userMessage string) (string, error) {
	events, err := a.ChatWithEvents(ctx, userMessage)
	if err != nil {
		return "", err
	}

	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type == "content" {
			return events[i].Content, nil
		}
	}
	return "", nil
}

// ChatWithEvents sends a user message and returns structured events for UI rendering.
// On error the user message is dropped from the conversation so the next turn starts clean.
func (a *Agent) ChatWithEvents(ctx context.Context, userMessage string) ([]ChatEvent, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	mark := len(a.conversation)
	a.conversation = append(a.conversation, llm.Message{Role: "user", Content: userMessage})
	a.session.log(sessionRecord{Type: recordUser, Content: userMessage})

	events, reply, err := a.converse(ctx)
	if err != nil {
		a.conversation = a.conversation[:mark]
		a.session.log(sessionRecord{Type: recordError, Content: err.Error(), IsError: true})
		return events, err
	}

	a.conversation = append(a.conversation, llm.Message{Role: "assistant", Content: reply})
	a.session.log(sessionRecord{Type: recordAssistant, Content: reply})
	return events, nil
}

func (a *Agent) converse(ctx context.Context) ([]ChatEvent, string, error) {
	req := &llm.ChatRequest{
		SystemPrompt: a.systemPrompt,
		Messages:     a.conversation,
	}
	if a.provider.SupportsTools() {
		req.Tools = a.tools.GetTools()
	}

	response, err := a.provider.Chat(ctx, req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get response: %w", err)
	}

	var (
		events []ChatEvent
		rounds []llm.ToolRound
	)
	for len(response.ToolCalls) > 0 {
		if len(rounds) >= a.maxRounds {
			return events, "", fmt.Errorf("stopped after %d tool rounds without a final answer", a.maxRounds)
		}

		results, toolEvents := a.runTools(ctx, response.ToolCalls)
		events = append(events, toolEvents...)
		rounds = append(rounds, llm.ToolRound{Calls: response.ToolCalls, Results: results})

		response, err = a.provider.ChatWithToolResults(ctx, req, rounds)
		if err != nil {
			return events, "", fmt.Errorf("failed to continue conversation: %w", err)
		}
	}

	reply := response.Content
	if reply == "" {
		// keep the transcript alternating even when the model ends silently
		reply = summarizeRounds(rounds)
	}
	if reply != "" {
		events = append(events, ChatEvent{Type: "content", Content: reply})
	}
	return events, reply, nil
}

func (a *Agent) runTools(ctx context.Context, calls []llm.ToolCall) ([]llm.ToolResult, []ChatEvent) {
	results := make([]llm.ToolResult, len(calls))
	events := make([]ChatEvent, 0, 2*len(calls))

	for i, tc := range calls {
		args := RedactJSONArgs(string(tc.Input))
		log := a.log.WithFields(logrus.Fields{"session": a.sessionID, "tool": tc.Name})
		log.WithField("args", args).Info("tool call")

		events = append(events, ChatEvent{Type: "tool_call", Tool: tc.Name, Args: args})
		a.session.log(sessionRecord{Type: recordToolCall, ToolName: tc.Name, Args: args})

		out, err := a.tools.Execute(ctx, tc.Name, tc.Input)
		result := llm.ToolResult{ToolUseID: tc.ID, Name: tc.Name, Content: out.Text}
		if err != nil {
			result.Content = ErrorText(err)
			result.IsError = true
			log.WithError(err).Warn("tool failed")
		}
		results[i] = result

		events = append(events, ChatEvent{
			Type:    "tool_result",
			Tool:    tc.Name,
			Content: result.Content,
			Blocks:  out.Blocks,
			IsError: result.IsError,
		})
		a.session.log(sessionRecord{
			Type:     recordToolResult,
			ToolName: tc.Name,
			Text:     result.Content,
			Blocks:   out.Blocks,
			IsError:  result.IsError,
		})
	}
	return results, events
}

func summarizeRounds(rounds []llm.ToolRound) string {
	var lines []string
	for _, r := range rounds {
		for _, res := range r.Results {
			lines = append(lines, res.Name+": "+res.Content)
		}
	}
	return strings.Join(lines, "\n")
}

// SetModel switches the active model on the current provider.
// Clears conversation history since prior messages may be incompatible.
func (a *Agent) SetModel(modelID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.provider.SetModel(modelID); err != nil {
		return err
	}
	a.conversation = nil
	a.session.log(sessionRecord{Type: recordSession, Provider: string(a.provider.ID()), Model: modelID})
	return nil
}

// CurrentModel returns the active model ID for the current provider.
func (a *Agent) CurrentModel() string {
	return a.provider.DefaultModel()
}

// ListModels returns the known models for the current provider.
func (a *Agent) ListModels() []llm.Model {
	return a.provider.Models()
}

// ProviderName returns the human-readable name of the current provider.
func (a *Agent) ProviderName() string {
	return a.provider.Name()
}

func (a *Agent) SessionID() string { return a.sessionID }

// SessionPath is empty when no session log is written.
func (a *Agent) SessionPath() string { return a.session.Path() }

// Reset clears the conversation history. Safe to call concurrently with Chat().
func (a *Agent) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.conversation = nil
}

// Close flushes the session log and releases provider clients.
func (a *Agent) Close() {
	a.session.Close()
	if gemini, ok := a.provider.(*llm.GeminiProvider); ok {
		_ = gemini.Close()
	}
}
