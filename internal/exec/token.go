package exec

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/yolodolo42/txagent/internal/chain"
	"github.com/yolodolo42/txagent/internal/tx"
)

type tokenTransfer struct {
	token  common.Address
	to     common.Address
	amount tx.Amount
}

func newTokenTransfer(info chain.ChainInfo, token string, to common.Address, amount tx.Amount) (*tokenTransfer, error) {
	addr, err := resolveToken(info, token)
	if err != nil {
		return nil, err
	}
	return &tokenTransfer{token: addr, to: to, amount: amount}, nil
}

func (op *tokenTransfer) Kind() OpKind { return OpTokenTransfer }

// Execute reads decimals() and only then submits transfer(to, amount * 10^decimals).
func (op *tokenTransfer) Execute(ctx context.Context, sc *SignerContext) (common.Hash, error) {
	contract := bind.NewBoundContract(op.token, erc20ABI, sc.Backend, sc.Backend, sc.Backend)

	decimals, err := tokenDecimals(ctx, contract, sc)
	if err != nil {
		return common.Hash{}, err
	}

	raw, err := op.amount.BaseUnits(decimals)
	if err != nil {
		return common.Hash{}, err
	}

	sent, err := contract.Transact(sc.transactOpts(ctx, nil), "transfer", op.to, raw)
	if err != nil {
		return common.Hash{}, tx.Wrap(tx.CodeSubmitFailed, err, "transfer %s", op.token.Hex())
	}
	return sent.Hash(), nil
}

func tokenDecimals(ctx context.Context, contract *bind.BoundContract, sc *SignerContext) (uint8, error) {
	var out []interface{}
	if err := contract.Call(sc.callOpts(ctx), &out, "decimals"); err != nil {
		return 0, tx.Wrap(tx.CodeDecimalsFailed, err, "query decimals")
	}
	if len(out) != 1 {
		return 0, tx.New(tx.CodeDecimalsFailed, "decimals returned %d values", len(out))
	}
	return *abi.ConvertType(out[0], new(uint8)).(*uint8), nil
}
