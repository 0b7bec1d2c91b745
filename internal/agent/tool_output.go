package agent

// ToolOutput is the dual-channel tool response:
// - Text: what goes back to the model or MCP client (a bare tx hash for submissions)
// - Blocks: structured payload for the chat REPL and session log
type ToolOutput struct {
	Text   string    `json:"text"`
	Blocks []UIBlock `json:"blocks,omitempty"`
}
