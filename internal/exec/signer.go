package exec

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/yolodolo42/txagent/internal/chain"
	"github.com/yolodolo42/txagent/internal/tx"
	"github.com/yolodolo42/txagent/internal/wallet"
)

// SignerContext pairs a chain connection with the key that authorizes transactions on it.
// It belongs to exactly one invocation and is closed when that invocation ends.
type SignerContext struct {
	Backend bind.ContractBackend
	From    common.Address
	ChainID *big.Int

	opts   *bind.TransactOpts
	closer func()
}

// NewSignerContext wraps an existing backend and transactor.
func NewSignerContext(backend bind.ContractBackend, opts *bind.TransactOpts, chainID *big.Int, closer func()) *SignerContext {
	return &SignerContext{
		Backend: backend,
		From:    opts.From,
		ChainID: chainID,
		opts:    opts,
		closer:  closer,
	}
}

// Close releases the underlying connection.
func (sc *SignerContext) Close() {
	if sc.closer != nil {
		sc.closer()
		sc.closer = nil
	}
}

func (sc *SignerContext) callOpts(ctx context.Context) *bind.CallOpts {
	return &bind.CallOpts{From: sc.From, Context: ctx}
}

// transactOpts copies the base transactor so per-call fields never leak between calls.
func (sc *SignerContext) transactOpts(ctx context.Context, value *big.Int) *bind.TransactOpts {
	opts := *sc.opts
	opts.Context = ctx
	opts.Value = value
	return &opts
}

// Connector builds SignerContexts.
type Connector interface {
	Connect(ctx context.Context, info chain.ChainInfo, key wallet.Secret) (*SignerContext, error)
}

// EthConnector dials the chain's RPC endpoint with go-ethereum.
type EthConnector struct{}

// Connect validates the endpoint and key before any network traffic, then dials and
// confirms the chain id. Each failure maps to its own connection code.
func (EthConnector) Connect(ctx context.Context, info chain.ChainInfo, key wallet.Secret) (*SignerContext, error) {
	if _, err := chain.ParseEndpoint(info.ProviderURL); err != nil {
		return nil, tx.Wrap(tx.CodeMalformedEndpoint, err, "chain %s has an unusable rpc endpoint", info.Name)
	}

	pk, err := wallet.ParsePrivateKey(key)
	if err != nil {
		return nil, tx.New(tx.CodeMalformedKey, "signing key is not a valid secp256k1 private key")
	}

	client, chainID, err := chain.Dial(ctx, info.ProviderURL, info.ChainID)
	if err != nil {
		if errors.Is(err, chain.ErrMalformedEndpoint) {
			return nil, tx.Wrap(tx.CodeMalformedEndpoint, err, "chain %s has an unusable rpc endpoint", info.Name)
		}
		return nil, tx.Wrap(tx.CodeUnreachable, err, "chain %s", info.Name)
	}

	opts, err := bind.NewKeyedTransactorWithChainID(pk, chainID)
	if err != nil {
		client.Close()
		return nil, tx.Wrap(tx.CodeMalformedKey, err, "build transactor")
	}
	return NewSignerContext(client, opts, chainID, client.Close), nil
}
