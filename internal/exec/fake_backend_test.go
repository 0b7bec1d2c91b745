package exec

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"github.com/yolodolo42/txagent/internal/chain"
	"github.com/yolodolo42/txagent/internal/journal"
	"github.com/yolodolo42/txagent/internal/wallet"
)

const testKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var (
	testFrom    = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	testChainID = big.NewInt(1337)
	testToken   = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	testWETH    = common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
	testRouter  = common.HexToAddress("0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0")
	testTo      = common.HexToAddress("0x70997970C51812dc3A64C3a3A7E1C5E0BC0dF8a5")
)

// fakeBackend is an in-process bind.ContractBackend. It records every RPC round-trip
// in order and serves ABI-encoded decimals() and getAmountsOut() results.
type fakeBackend struct {
	mu    sync.Mutex
	calls []string
	sent  []*types.Transaction

	decimals  uint8
	quote     *big.Int
	noBaseFee bool

	decimalsErr error
	quoteErr    error
	sendErr     error

	// block, when set, is waited on inside SendTransaction after signalling sending.
	block   chan struct{}
	sending chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{decimals: 6, quote: big.NewInt(1000)}
}

func (f *fakeBackend) note(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) Sent() []*types.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*types.Transaction(nil), f.sent...)
}

func methodName(data []byte) string {
	if len(data) < 4 {
		return "value"
	}
	for _, parsed := range []abi.ABI{erc20ABI, routerABI} {
		if m, err := parsed.MethodById(data[:4]); err == nil {
			return m.Name
		}
	}
	return "unknown"
}

func (f *fakeBackend) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{0x60, 0x80}, nil
}

func (f *fakeBackend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	name := methodName(call.Data)
	f.note("call:" + name)
	switch name {
	case "decimals":
		if f.decimalsErr != nil {
			return nil, f.decimalsErr
		}
		return erc20ABI.Methods["decimals"].Outputs.Pack(f.decimals)
	case "getAmountsOut":
		if f.quoteErr != nil {
			return nil, f.quoteErr
		}
		args, err := routerABI.Methods["getAmountsOut"].Inputs.Unpack(call.Data[4:])
		if err != nil {
			return nil, err
		}
		return routerABI.Methods["getAmountsOut"].Outputs.Pack([]*big.Int{args[0].(*big.Int), f.quote})
	}
	return nil, errors.New("unexpected call")
}

func (f *fakeBackend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	f.note("header")
	h := &types.Header{Number: big.NewInt(100)}
	if !f.noBaseFee {
		h.BaseFee = big.NewInt(1_000_000_000)
	}
	return h, nil
}

func (f *fakeBackend) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return []byte{0x60, 0x80}, nil
}

func (f *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	f.note("nonce")
	return 7, nil
}

func (f *fakeBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	f.note("gas_price")
	return big.NewInt(2_000_000_000), nil
}

func (f *fakeBackend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	f.note("tip")
	return big.NewInt(1_000_000), nil
}

func (f *fakeBackend) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	f.note("estimate:" + methodName(call.Data))
	return 60_000, nil
}

func (f *fakeBackend) SendTransaction(ctx context.Context, txn *types.Transaction) error {
	if f.block != nil {
		if f.sending != nil {
			f.sending <- struct{}{}
		}
		<-f.block
	}
	f.note("send:" + methodName(txn.Data()))
	if f.sendErr != nil {
		return f.sendErr
	}
	f.mu.Lock()
	f.sent = append(f.sent, txn)
	f.mu.Unlock()
	return nil
}

func (f *fakeBackend) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return nil, nil
}

func (f *fakeBackend) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	return nil, errors.New("not supported")
}

var _ bind.ContractBackend = (*fakeBackend)(nil)

// fakeConnector hands out SignerContexts over a shared fakeBackend and counts constructions.
type fakeConnector struct {
	mu       sync.Mutex
	backend  *fakeBackend
	err      error
	connects int
	closes   int
	keys     []wallet.Secret
}

func (c *fakeConnector) Connect(ctx context.Context, info chain.ChainInfo, key wallet.Secret) (*SignerContext, error) {
	c.mu.Lock()
	c.connects++
	c.keys = append(c.keys, key)
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	pk, err := wallet.ParsePrivateKey(key)
	if err != nil {
		return nil, err
	}
	opts, err := bind.NewKeyedTransactorWithChainID(pk, testChainID)
	if err != nil {
		return nil, err
	}
	return NewSignerContext(c.backend, opts, testChainID, func() {
		c.mu.Lock()
		c.closes++
		c.mu.Unlock()
	}), nil
}

func (c *fakeConnector) Connects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connects
}

func (c *fakeConnector) Closes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

func testSignerContext(t *testing.T, b *fakeBackend) *SignerContext {
	t.Helper()
	pk, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)
	opts, err := bind.NewKeyedTransactorWithChainID(pk, testChainID)
	require.NoError(t, err)
	return NewSignerContext(b, opts, testChainID, nil)
}

func testChains(t *testing.T) *chain.Registry {
	t.Helper()
	reg, err := chain.NewRegistry([]chain.ChainInfo{
		{
			Name:        "testnet",
			ProviderURL: "http://127.0.0.1:8545",
			Tokens: map[string]string{
				"USDC": testToken.Hex(),
				"WETH": testWETH.Hex(),
			},
			SwapRouter: testRouter.Hex(),
		},
		{
			Name:        "bare",
			ProviderURL: "http://127.0.0.1:8546",
		},
	})
	require.NoError(t, err)
	return reg
}

func unpackSent(t *testing.T, parsed abi.ABI, txn *types.Transaction) (string, []interface{}) {
	t.Helper()
	m, err := parsed.MethodById(txn.Data()[:4])
	require.NoError(t, err)
	args, err := m.Inputs.Unpack(txn.Data()[4:])
	require.NoError(t, err)
	return m.Name, args
}

// memRecorder collects journal writes and signals each one on written.
type memRecorder struct {
	mu      sync.Mutex
	entries []journal.Entry
	written chan struct{}
}

func newMemRecorder() *memRecorder {
	return &memRecorder{written: make(chan struct{}, 16)}
}

func (r *memRecorder) Record(ctx context.Context, e journal.Entry) error {
	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.mu.Unlock()
	r.written <- struct{}{}
	return nil
}

func (r *memRecorder) Entries() []journal.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]journal.Entry(nil), r.entries...)
}
