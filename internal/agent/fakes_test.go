package agent

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/yolodolo42/txagent/internal/chain"
	"github.com/yolodolo42/txagent/internal/exec"
	"github.com/yolodolo42/txagent/internal/llm"
)

const testHash = "0x6a1f6d5f7d3b0b3c8e1e6f0e2c5a9d4b7f8e1c2d3a4b5c6d7e8f9a0b1c2d3e4f"

var testFrom = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

// fakeOperator records every request and answers with err, or a result carrying testHash.
type fakeOperator struct {
	mu        sync.Mutex
	transfers []exec.TransferRequest
	swaps     []exec.SwapRequest
	err       error
}

func (f *fakeOperator) Transfer(_ context.Context, req exec.TransferRequest) (exec.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transfers = append(f.transfers, req)
	if f.err != nil {
		return exec.Result{}, f.err
	}
	op := exec.OpNativeTransfer
	if req.Token != "" {
		op = exec.OpTokenTransfer
	}
	return exec.Result{InvocationID: "inv-1", Op: op, Chain: req.Chain, From: testFrom, TxHash: testHash}, nil
}

func (f *fakeOperator) Swap(_ context.Context, req exec.SwapRequest) (exec.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.swaps = append(f.swaps, req)
	if f.err != nil {
		return exec.Result{}, f.err
	}
	return exec.Result{InvocationID: "inv-2", Op: exec.OpSwap, Chain: req.Chain, From: testFrom, TxHash: testHash}, nil
}

func testRegistry(t *testing.T) *chain.Registry {
	t.Helper()
	reg, err := chain.NewRegistry([]chain.ChainInfo{
		{
			Name:        "sepolia",
			ProviderURL: "https://rpc.example/v1/secret-key",
			Tokens:      map[string]string{"USDC": "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"},
			SwapRouter:  "0xC532a74256D3Db42D0Bf7a0400fEFDbad7694008",
		},
		{Name: "holesky", ProviderURL: "https://holesky.example"},
	})
	require.NoError(t, err)
	return reg
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// scriptedProvider replays canned responses and keeps every request it saw.
type scriptedProvider struct {
	mu        sync.Mutex
	model     string
	tools     bool
	responses []*llm.ChatResponse
	err       error
	requests  []*llm.ChatRequest
	rounds    [][]llm.ToolRound
}

func newScriptedProvider(responses ...*llm.ChatResponse) *scriptedProvider {
	return &scriptedProvider{model: "test-model-a", tools: true, responses: responses}
}

func (p *scriptedProvider) ID() llm.ProviderID   { return "test" }
func (p *scriptedProvider) Name() string         { return "Test Provider" }
func (p *scriptedProvider) SupportsTools() bool  { return p.tools }
func (p *scriptedProvider) DefaultModel() string { return p.model }

func (p *scriptedProvider) Models() []llm.Model {
	return []llm.Model{
		{ID: "test-model-a", Name: "Test Model A", SupportsTools: true},
		{ID: "test-model-b", Name: "Test Model B", SupportsTools: true},
	}
}

func (p *scriptedProvider) SetModel(modelID string) error {
	if err := llm.ValidateModelID(modelID, p.Models()); err != nil {
		return err
	}
	p.model = modelID
	return nil
}

func (p *scriptedProvider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	return p.ChatWithToolResults(ctx, req, nil)
}

func (p *scriptedProvider) ChatWithToolResults(_ context.Context, req *llm.ChatRequest, rounds []llm.ToolRound) (*llm.ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	snapshot := *req
	snapshot.Messages = append([]llm.Message(nil), req.Messages...)
	p.requests = append(p.requests, &snapshot)
	p.rounds = append(p.rounds, append([]llm.ToolRound(nil), rounds...))

	if p.err != nil {
		return nil, p.err
	}
	if len(p.responses) == 0 {
		return nil, fmt.Errorf("script exhausted")
	}
	resp := p.responses[0]
	p.responses = p.responses[1:]
	return resp, nil
}

func toolCall(id, name, input string) *llm.ChatResponse {
	return &llm.ChatResponse{ToolCalls: []llm.ToolCall{{ID: id, Name: name, Input: []byte(input)}}}
}

func reply(content string) *llm.ChatResponse {
	return &llm.ChatResponse{Content: content}
}
