package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/yolodolo42/txagent/internal/chain"
	"github.com/yolodolo42/txagent/internal/exec"
	"github.com/yolodolo42/txagent/internal/llm"
	"github.com/yolodolo42/txagent/internal/tx"
)

// Operator runs the state-changing operations behind the tools. *exec.Executor satisfies it.
type Operator interface {
	Transfer(ctx context.Context, req exec.TransferRequest) (exec.Result, error)
	Swap(ctx context.Context, req exec.SwapRequest) (exec.Result, error)
}

// ToolParam is one string argument of a tool.
type ToolParam struct {
	Name        string
	Description string
}

// ToolSpec describes a tool once so it can be published to both a chat model and
// an MCP client. All parameters are required strings.
type ToolSpec struct {
	Name        string
	Description string
	Params      []ToolParam
	ReadOnly    bool
}

// LLMTool converts s to the provider-agnostic tool definition.
func (s ToolSpec) LLMTool() llm.Tool {
	schema := llm.JSONSchema{Properties: make(map[string]llm.Property, len(s.Params))}
	for _, p := range s.Params {
		schema.Properties[p.Name] = llm.Property{Type: "string", Description: p.Description}
		schema.Required = append(schema.Required, p.Name)
	}
	return llm.NewTool(s.Name, s.Description, schema)
}

const (
	ToolEthTransfer   = "eth_transfer"
	ToolERC20Transfer = "erc20_transfer"
	ToolSwap          = "eth_swap_to_erc20"
	ToolListChains    = "list_chains"
)

var (
	chainParam = ToolParam{Name: "chain", Description: "Chain name from the chain table, e.g. sepolia"}
	toParam    = ToolParam{Name: "to_address", Description: "Recipient address (0x-prefixed, 40 hex digits)"}
	tokenParam = ToolParam{Name: "token_address", Description: "ERC-20 token address or a symbol from the chain's token table"}
)

// Specs lists every tool in a stable order.
func Specs() []ToolSpec {
	return []ToolSpec{
		{
			Name:        ToolEthTransfer,
			Description: "Send the chain's native asset (e.g. ETH) to an address. Returns the transaction hash.",
			Params: []ToolParam{
				chainParam,
				toParam,
				{Name: "amount", Description: "Amount in whole units as a decimal string, at most 10"},
			},
		},
		{
			Name:        ToolERC20Transfer,
			Description: "Send an ERC-20 token to an address. Returns the transaction hash.",
			Params: []ToolParam{
				chainParam,
				tokenParam,
				toParam,
				{Name: "amount", Description: "Amount in whole token units as a decimal string, at most 100000"},
			},
		},
		{
			Name:        ToolSwap,
			Description: "Swap the chain's native asset for an ERC-20 token through the chain's router, accepting at most 0.5% slippage. Returns the transaction hash.",
			Params: []ToolParam{
				chainParam,
				tokenParam,
				{Name: "amount", Description: "Amount of the native asset to spend in whole units, at most 10"},
			},
		},
		{
			Name:        ToolListChains,
			Description: "List configured chains with their token tables and swap routers.",
			ReadOnly:    true,
		},
	}
}

type toolHandler func(ctx context.Context, args map[string]string) (ToolOutput, error)

// ToolRegistry dispatches tool calls to the executor and the chain registry.
type ToolRegistry struct {
	specs    []ToolSpec
	handlers map[string]toolHandler
	ops      Operator
	chains   *chain.Registry
}

// NewToolRegistry wires the four tools to ops and chains.
func NewToolRegistry(ops Operator, chains *chain.Registry) *ToolRegistry {
	tr := &ToolRegistry{
		specs:    Specs(),
		handlers: make(map[string]toolHandler),
		ops:      ops,
		chains:   chains,
	}

	tr.handlers[ToolEthTransfer] = tr.handleEthTransfer
	tr.handlers[ToolERC20Transfer] = tr.handleERC20Transfer
	tr.handlers[ToolSwap] = tr.handleSwap
	tr.handlers[ToolListChains] = tr.handleListChains

	return tr
}

// Specs returns the registered tool specs.
func (tr *ToolRegistry) Specs() []ToolSpec {
	return tr.specs
}

// Spec looks up a tool by name.
func (tr *ToolRegistry) Spec(name string) (ToolSpec, bool) {
	for _, s := range tr.specs {
		if s.Name == name {
			return s, true
		}
	}
	return ToolSpec{}, false
}

// GetTools returns all registered tools as model tool definitions
func (tr *ToolRegistry) GetTools() []llm.Tool {
	tools := make([]llm.Tool, len(tr.specs))
	for i, s := range tr.specs {
		tools[i] = s.LLMTool()
	}
	return tools
}

// Execute runs a tool with raw JSON arguments.
func (tr *ToolRegistry) Execute(ctx context.Context, name string, input json.RawMessage) (ToolOutput, error) {
	handler, ok := tr.handlers[name]
	if !ok {
		return ToolOutput{}, fmt.Errorf("unknown tool: %s", name)
	}

	args, err := decodeArgs(input)
	if err != nil {
		return ToolOutput{}, err
	}
	return handler(ctx, args)
}

// ExecuteTool runs a tool and returns only its text channel.
func (tr *ToolRegistry) ExecuteTool(ctx context.Context, name string, input json.RawMessage) (string, error) {
	out, err := tr.Execute(ctx, name, input)
	if err != nil {
		return "", err
	}
	return out.Text, nil
}

// Call runs a tool with already-decoded arguments, as an MCP server receives them.
func (tr *ToolRegistry) Call(ctx context.Context, name string, args map[string]any) (ToolOutput, error) {
	if args == nil {
		args = map[string]any{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return ToolOutput{}, fmt.Errorf("invalid input: %w", err)
	}
	return tr.Execute(ctx, name, raw)
}

// ErrorText renders a tool failure for the calling model. Taxonomy errors keep
// their "<kind> error: [<code>]" shape; anything else is reported as-is.
func ErrorText(err error) string {
	if err == nil {
		return ""
	}
	if _, ok := tx.From(err); ok {
		return tx.Message(err)
	}
	return err.Error()
}

// decodeArgs accepts a flat JSON object of strings. Models sometimes send amounts
// as JSON numbers; those are kept in their literal form.
func decodeArgs(input json.RawMessage) (map[string]string, error) {
	args := map[string]string{}
	if len(bytes.TrimSpace(input)) == 0 {
		return args, nil
	}

	dec := json.NewDecoder(bytes.NewReader(input))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	for k, v := range raw {
		switch t := v.(type) {
		case string:
			args[k] = strings.TrimSpace(t)
		case json.Number:
			args[k] = t.String()
		case nil:
		default:
			return nil, fmt.Errorf("invalid input: argument %q must be a string", k)
		}
	}
	return args, nil
}

func (tr *ToolRegistry) handleEthTransfer(ctx context.Context, args map[string]string) (ToolOutput, error) {
	res, err := tr.ops.Transfer(ctx, exec.TransferRequest{
		Chain:  args["chain"],
		To:     args["to_address"],
		Amount: args["amount"],
	})
	if err != nil {
		return ToolOutput{}, err
	}
	return submittedOutput(res, args["amount"]+" to "+args["to_address"]), nil
}

func (tr *ToolRegistry) handleERC20Transfer(ctx context.Context, args map[string]string) (ToolOutput, error) {
	// an empty token would silently turn this into a native transfer
	if args["token_address"] == "" {
		return ToolOutput{}, tx.New(tx.CodeUnknownToken, "token_address is required")
	}
	res, err := tr.ops.Transfer(ctx, exec.TransferRequest{
		Chain:  args["chain"],
		Token:  args["token_address"],
		To:     args["to_address"],
		Amount: args["amount"],
	})
	if err != nil {
		return ToolOutput{}, err
	}
	return submittedOutput(res, args["amount"]+" "+args["token_address"]+" to "+args["to_address"]), nil
}

func (tr *ToolRegistry) handleSwap(ctx context.Context, args map[string]string) (ToolOutput, error) {
	if args["token_address"] == "" {
		return ToolOutput{}, tx.New(tx.CodeUnknownToken, "token_address is required")
	}
	res, err := tr.ops.Swap(ctx, exec.SwapRequest{
		Chain:  args["chain"],
		Token:  args["token_address"],
		Amount: args["amount"],
	})
	if err != nil {
		return ToolOutput{}, err
	}
	return submittedOutput(res, args["amount"]+" native for "+args["token_address"]), nil
}

func (tr *ToolRegistry) handleListChains(_ context.Context, _ map[string]string) (ToolOutput, error) {
	if tr.chains == nil {
		return ToolOutput{}, fmt.Errorf("no chain registry loaded")
	}
	public := tr.chains.Public()

	b, err := json.Marshal(public)
	if err != nil {
		return ToolOutput{}, fmt.Errorf("encode chains: %w", err)
	}

	rows := make([][]string, 0, len(public))
	for _, c := range public {
		symbols := make([]string, 0, len(c.Tokens))
		for sym := range c.Tokens {
			symbols = append(symbols, sym)
		}
		sort.Strings(symbols)
		router := c.SwapRouter
		if router == "" {
			router = "-"
		}
		rows = append(rows, []string{c.Chain, c.NativeSymbol, strings.Join(symbols, ", "), router})
	}

	return ToolOutput{
		Text: string(b),
		Blocks: []UIBlock{TableBlock(
			fmt.Sprintf("Chains (%d)", len(public)),
			[]string{"Chain", "Native", "Tokens", "Router"},
			rows,
		)},
	}, nil
}

// submittedOutput hands the bare hash to the model and a summary block to the UI.
func submittedOutput(res exec.Result, what string) ToolOutput {
	return ToolOutput{Text: res.TxHash, Blocks: []UIBlock{SubmissionBlock(res, what)}}
}

// SubmissionBlock summarizes a submitted transaction.
func SubmissionBlock(res exec.Result, amount string) UIBlock {
	return KVBlock("Submitted "+string(res.Op),
		KVItem{Key: "Chain", Value: res.Chain},
		KVItem{Key: "Amount", Value: amount},
		KVItem{Key: "From", Value: res.From.Hex()},
		KVItem{Key: "Tx hash", Value: res.TxHash},
		KVItem{Key: "Invocation", Value: res.InvocationID},
	)
}
