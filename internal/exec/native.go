package exec

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/yolodolo42/txagent/internal/chain"
	"github.com/yolodolo42/txagent/internal/tx"
)

type nativeTransfer struct {
	to    common.Address
	value *big.Int
}

func newNativeTransfer(info chain.ChainInfo, to common.Address, amount tx.Amount) (*nativeTransfer, error) {
	value, err := amount.BaseUnits(info.Decimals())
	if err != nil {
		return nil, err
	}
	return &nativeTransfer{to: to, value: value}, nil
}

func (op *nativeTransfer) Kind() OpKind { return OpNativeTransfer }

// Execute sends a value-only transaction. EIP-1559 fees follow the same rule as
// bind.BoundContract: feeCap = tip + 2*baseFee. Chains without a base fee get a legacy tx.
func (op *nativeTransfer) Execute(ctx context.Context, sc *SignerContext) (common.Hash, error) {
	b := sc.Backend

	head, err := b.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, tx.Wrap(tx.CodeSubmitFailed, err, "fetch latest header")
	}

	gas, err := b.EstimateGas(ctx, ethereum.CallMsg{From: sc.From, To: &op.to, Value: op.value})
	if err != nil {
		return common.Hash{}, tx.Wrap(tx.CodeSubmitFailed, err, "estimate gas")
	}

	nonce, err := b.PendingNonceAt(ctx, sc.From)
	if err != nil {
		return common.Hash{}, tx.Wrap(tx.CodeSubmitFailed, err, "fetch nonce")
	}

	var unsigned *types.Transaction
	if head.BaseFee != nil {
		tip, err := b.SuggestGasTipCap(ctx)
		if err != nil {
			return common.Hash{}, tx.Wrap(tx.CodeSubmitFailed, err, "suggest tip")
		}
		feeCap := new(big.Int).Add(tip, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
		unsigned = types.NewTx(&types.DynamicFeeTx{
			ChainID:   sc.ChainID,
			Nonce:     nonce,
			GasTipCap: tip,
			GasFeeCap: feeCap,
			Gas:       gas,
			To:        &op.to,
			Value:     op.value,
		})
	} else {
		price, err := b.SuggestGasPrice(ctx)
		if err != nil {
			return common.Hash{}, tx.Wrap(tx.CodeSubmitFailed, err, "suggest gas price")
		}
		unsigned = types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			GasPrice: price,
			Gas:      gas,
			To:       &op.to,
			Value:    op.value,
		})
	}

	signed, err := sc.opts.Signer(sc.From, unsigned)
	if err != nil {
		return common.Hash{}, tx.Wrap(tx.CodeSubmitFailed, err, "sign transaction")
	}
	if err := b.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, tx.Wrap(tx.CodeSubmitFailed, err, "send transaction")
	}
	return signed.Hash(), nil
}
