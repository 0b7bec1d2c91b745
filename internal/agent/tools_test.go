package agent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yolodolo42/txagent/internal/exec"
	"github.com/yolodolo42/txagent/internal/tx"
)

func TestSpecs(t *testing.T) {
	tr := NewToolRegistry(&fakeOperator{}, testRegistry(t))

	names := make([]string, 0)
	for _, s := range tr.Specs() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"eth_transfer", "erc20_transfer", "eth_swap_to_erc20", "list_chains"}, names)

	t.Run("schemas require every parameter", func(t *testing.T) {
		tools := tr.GetTools()
		require.Len(t, tools, 4)

		var schema struct {
			Type       string                    `json:"type"`
			Properties map[string]map[string]any `json:"properties"`
			Required   []string                  `json:"required"`
		}
		require.NoError(t, json.Unmarshal(tools[1].InputSchema, &schema))
		assert.Equal(t, "object", schema.Type)
		assert.Equal(t, []string{"chain", "token_address", "to_address", "amount"}, schema.Required)
		assert.Equal(t, "string", schema.Properties["amount"]["type"])
	})

	t.Run("list_chains takes no arguments", func(t *testing.T) {
		spec, ok := tr.Spec(ToolListChains)
		require.True(t, ok)
		assert.True(t, spec.ReadOnly)
		assert.JSONEq(t, `{"type":"object","properties":{}}`, string(spec.LLMTool().InputSchema))
	})

	t.Run("unknown tool", func(t *testing.T) {
		_, ok := tr.Spec("get_balances")
		assert.False(t, ok)
	})
}

func TestExecute_Transfers(t *testing.T) {
	ctx := context.Background()

	t.Run("eth_transfer returns the bare hash", func(t *testing.T) {
		ops := &fakeOperator{}
		tr := NewToolRegistry(ops, testRegistry(t))

		out, err := tr.Execute(ctx, ToolEthTransfer, json.RawMessage(`{"chain":"sepolia","to_address":"0xabc","amount":"0.5"}`))
		require.NoError(t, err)
		assert.Equal(t, testHash, out.Text)
		require.Len(t, ops.transfers, 1)
		assert.Equal(t, exec.TransferRequest{Chain: "sepolia", To: "0xabc", Amount: "0.5"}, ops.transfers[0])

		require.Len(t, out.Blocks, 1)
		assert.Equal(t, UIBlockKV, out.Blocks[0].Kind)
		assert.Equal(t, "Submitted native_transfer", out.Blocks[0].KV.Title)
	})

	t.Run("numeric amounts keep their literal form", func(t *testing.T) {
		ops := &fakeOperator{}
		tr := NewToolRegistry(ops, testRegistry(t))

		_, err := tr.Execute(ctx, ToolEthTransfer, json.RawMessage(`{"chain":"sepolia","to_address":"0xabc","amount":0.25}`))
		require.NoError(t, err)
		assert.Equal(t, "0.25", ops.transfers[0].Amount)
	})

	t.Run("erc20_transfer passes the token through", func(t *testing.T) {
		ops := &fakeOperator{}
		tr := NewToolRegistry(ops, testRegistry(t))

		text, err := tr.ExecuteTool(ctx, ToolERC20Transfer, json.RawMessage(`{"chain":"sepolia","token_address":"USDC","to_address":"0xabc","amount":"10"}`))
		require.NoError(t, err)
		assert.Equal(t, testHash, text)
		assert.Equal(t, "USDC", ops.transfers[0].Token)
	})

	t.Run("erc20_transfer without a token never reaches the executor", func(t *testing.T) {
		ops := &fakeOperator{}
		tr := NewToolRegistry(ops, testRegistry(t))

		_, err := tr.Execute(ctx, ToolERC20Transfer, json.RawMessage(`{"chain":"sepolia","to_address":"0xabc","amount":"10"}`))
		require.Error(t, err)
		assert.Equal(t, tx.CodeUnknownToken, tx.CodeOf(err))
		assert.Empty(t, ops.transfers)
	})

	t.Run("swap", func(t *testing.T) {
		ops := &fakeOperator{}
		tr := NewToolRegistry(ops, testRegistry(t))

		out, err := tr.Execute(ctx, ToolSwap, json.RawMessage(`{"chain":"sepolia","token_address":"USDC","amount":"1"}`))
		require.NoError(t, err)
		assert.Equal(t, testHash, out.Text)
		assert.Equal(t, []exec.SwapRequest{{Chain: "sepolia", Token: "USDC", Amount: "1"}}, ops.swaps)
	})

	t.Run("executor errors pass through unchanged", func(t *testing.T) {
		ops := &fakeOperator{err: tx.New(tx.CodeExceedsCeiling, "amount = 11 exceeds the safe value = 10")}
		tr := NewToolRegistry(ops, testRegistry(t))

		_, err := tr.Execute(ctx, ToolSwap, json.RawMessage(`{"chain":"sepolia","token_address":"USDC","amount":"11"}`))
		require.Error(t, err)
		assert.ErrorIs(t, err, tx.ErrExceedsCeiling)
		assert.Contains(t, ErrorText(err), "validation error: [EXCEEDS_CEILING]")
	})
}

func TestExecute_BadInput(t *testing.T) {
	ctx := context.Background()
	tr := NewToolRegistry(&fakeOperator{}, testRegistry(t))

	tests := []struct {
		name  string
		tool  string
		input string
		want  string
	}{
		{"unknown tool", "get_balances", `{}`, "unknown tool"},
		{"not json", ToolEthTransfer, `{chain`, "invalid input"},
		{"nested value", ToolEthTransfer, `{"chain":{"name":"sepolia"}}`, `argument "chain" must be a string`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tr.Execute(ctx, tt.tool, json.RawMessage(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, err.Error(), ErrorText(err))
		})
	}
}

func TestExecute_ListChains(t *testing.T) {
	tr := NewToolRegistry(&fakeOperator{}, testRegistry(t))

	out, err := tr.Call(context.Background(), ToolListChains, nil)
	require.NoError(t, err)
	assert.NotContains(t, out.Text, "secret-key")
	assert.NotContains(t, out.Text, "provider_url")

	var chains []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out.Text), &chains))
	require.Len(t, chains, 2)
	assert.Equal(t, "holesky", chains[0]["chain"])

	require.Len(t, out.Blocks, 1)
	table := out.Blocks[0].Table
	require.NotNil(t, table)
	assert.Equal(t, "Chains (2)", table.Title)
	assert.Equal(t, []string{"holesky", "ETH", "", "-"}, table.Rows[0])
	assert.Equal(t, "USDC", table.Rows[1][2])
}

func TestCall_DecodedArguments(t *testing.T) {
	ops := &fakeOperator{}
	tr := NewToolRegistry(ops, testRegistry(t))

	out, err := tr.Call(context.Background(), ToolEthTransfer, map[string]any{
		"chain": "sepolia", "to_address": "0xabc", "amount": "1",
	})
	require.NoError(t, err)
	assert.Equal(t, testHash, out.Text)
	require.Len(t, ops.transfers, 1)
}
