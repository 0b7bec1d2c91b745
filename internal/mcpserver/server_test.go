package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yolodolo42/txagent/internal/agent"
	"github.com/yolodolo42/txagent/internal/chain"
	"github.com/yolodolo42/txagent/internal/exec"
	"github.com/yolodolo42/txagent/internal/tx"
)

const testHash = "0x3c9f1e2d4b5a69788796a5b4c3d2e1f00f1e2d3c4b5a69788796a5b4c3d2e1f0"

type stubOperator struct {
	transfers []exec.TransferRequest
	err       error
}

func (s *stubOperator) Transfer(_ context.Context, req exec.TransferRequest) (exec.Result, error) {
	s.transfers = append(s.transfers, req)
	if s.err != nil {
		return exec.Result{}, s.err
	}
	return exec.Result{Op: exec.OpNativeTransfer, Chain: req.Chain, From: common.Address{}, TxHash: testHash}, nil
}

func (s *stubOperator) Swap(_ context.Context, _ exec.SwapRequest) (exec.Result, error) {
	return exec.Result{}, s.err
}

func newTestServer(t *testing.T, ops agent.Operator) *Server {
	t.Helper()
	reg, err := chain.NewRegistry([]chain.ChainInfo{{Name: "sepolia", ProviderURL: "https://rpc.example"}})
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)
	return New(agent.NewToolRegistry(ops, reg), "test", log)
}

// roundTrip sends one JSON-RPC message and decodes the response's result into v.
func roundTrip(t *testing.T, s *Server, msg string, v any) {
	t.Helper()
	resp := s.MCP().HandleMessage(context.Background(), json.RawMessage(msg))
	require.NotNil(t, resp)

	b, err := json.Marshal(resp)
	require.NoError(t, err)

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(b, &envelope))
	require.Nil(t, envelope.Error, "unexpected JSON-RPC error")
	require.NoError(t, json.Unmarshal(envelope.Result, v))
}

func initialize(t *testing.T, s *Server) {
	t.Helper()
	var res struct {
		ServerInfo struct {
			Name string `json:"name"`
		} `json:"serverInfo"`
	}
	roundTrip(t, s, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","clientInfo":{"name":"test","version":"0"},"capabilities":{}}}`, &res)
	require.Equal(t, Name, res.ServerInfo.Name)
}

type callResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	IsError bool `json:"isError"`
}

func TestToolsList(t *testing.T) {
	s := newTestServer(t, &stubOperator{})
	initialize(t, s)

	var res struct {
		Tools []struct {
			Name        string `json:"name"`
			InputSchema struct {
				Required []string `json:"required"`
			} `json:"inputSchema"`
		} `json:"tools"`
	}
	roundTrip(t, s, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`, &res)

	names := map[string][]string{}
	for _, tool := range res.Tools {
		names[tool.Name] = tool.InputSchema.Required
	}
	assert.Len(t, names, 4)
	assert.ElementsMatch(t, []string{"chain", "to_address", "amount"}, names["eth_transfer"])
	assert.ElementsMatch(t, []string{"chain", "token_address", "amount"}, names["eth_swap_to_erc20"])
	assert.Empty(t, names["list_chains"])
}

func TestToolsCall(t *testing.T) {
	t.Run("success returns the hash as text", func(t *testing.T) {
		ops := &stubOperator{}
		s := newTestServer(t, ops)
		initialize(t, s)

		var res callResult
		roundTrip(t, s, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"eth_transfer","arguments":{"chain":"sepolia","to_address":"0xabc","amount":"1"}}}`, &res)

		assert.False(t, res.IsError)
		require.Len(t, res.Content, 1)
		assert.Equal(t, "text", res.Content[0].Type)
		assert.Equal(t, testHash, res.Content[0].Text)
		assert.Equal(t, []exec.TransferRequest{{Chain: "sepolia", To: "0xabc", Amount: "1"}}, ops.transfers)
	})

	t.Run("failure is an error result carrying the boundary message", func(t *testing.T) {
		ops := &stubOperator{err: tx.New(tx.CodeUnknownChain, `chain "mars" is not configured`)}
		s := newTestServer(t, ops)
		initialize(t, s)

		var res callResult
		roundTrip(t, s, `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"eth_transfer","arguments":{"chain":"mars","to_address":"0xabc","amount":"1"}}}`, &res)

		assert.True(t, res.IsError)
		require.Len(t, res.Content, 1)
		assert.Equal(t, `validation error: [UNKNOWN_CHAIN] chain "mars" is not configured`, res.Content[0].Text)
	})

	t.Run("list_chains", func(t *testing.T) {
		s := newTestServer(t, &stubOperator{})
		initialize(t, s)

		var res callResult
		roundTrip(t, s, `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"list_chains","arguments":{}}}`, &res)
		require.Len(t, res.Content, 1)
		assert.Contains(t, res.Content[0].Text, `"chain":"sepolia"`)
		assert.NotContains(t, res.Content[0].Text, "rpc.example")
	})
}

func TestRedactedArgs(t *testing.T) {
	got := redactedArgs(map[string]any{"chain": "sepolia", "private_key": "0x01"})
	assert.Contains(t, got, `"chain":"sepolia"`)
	assert.NotContains(t, got, "0x01")
}
