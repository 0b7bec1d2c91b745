package exec

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/yolodolo42/txagent/internal/chain"
	"github.com/yolodolo42/txagent/internal/tx"
)

// Swap parameters: 0.5% slippage tolerance and a 20 minute deadline.
const (
	SlippageNumerator   = 995
	SlippageDenominator = 1000
	DeadlineWindow      = 1200 * time.Second
)

// MinOutput applies the slippage tolerance to a quoted output amount.
func MinOutput(expected *big.Int) *big.Int {
	out := new(big.Int).Mul(expected, big.NewInt(SlippageNumerator))
	return out.Quo(out, big.NewInt(SlippageDenominator))
}

// Deadline returns the unix deadline for a swap submitted at now.
func Deadline(now time.Time) *big.Int {
	return big.NewInt(now.Add(DeadlineWindow).Unix())
}

type swap struct {
	router common.Address
	path   []common.Address
	value  *big.Int
	now    func() time.Time
}

func newSwap(info chain.ChainInfo, token string, amount tx.Amount, now func() time.Time) (*swap, error) {
	router, ok := info.Router()
	if !ok {
		return nil, tx.New(tx.CodeMissingRoute, "chain %s has no swap router", info.Name)
	}
	wrapped, ok := info.WrappedNativeToken()
	if !ok {
		return nil, tx.New(tx.CodeMissingRoute, "chain %s lists no wrapped native token for swap paths", info.Name)
	}
	out, err := resolveToken(info, token)
	if err != nil {
		return nil, err
	}
	value, err := amount.BaseUnits(info.Decimals())
	if err != nil {
		return nil, err
	}
	return &swap{
		router: router,
		path:   []common.Address{wrapped, out},
		value:  value,
		now:    now,
	}, nil
}

func (op *swap) Kind() OpKind { return OpSwap }

// Execute quotes getAmountsOut, derives the minimum output and deadline, then submits
// swapExactETHForTokens with the input amount as value. A failed quote never reaches the swap.
func (op *swap) Execute(ctx context.Context, sc *SignerContext) (common.Hash, error) {
	router := bind.NewBoundContract(op.router, routerABI, sc.Backend, sc.Backend, sc.Backend)

	expected, err := op.quote(ctx, router, sc)
	if err != nil {
		return common.Hash{}, err
	}

	minOut := MinOutput(expected)
	deadline := Deadline(op.now())

	sent, err := router.Transact(sc.transactOpts(ctx, op.value), "swapExactETHForTokens", minOut, op.path, sc.From, deadline)
	if err != nil {
		return common.Hash{}, tx.Wrap(tx.CodeSubmitFailed, err, "swapExactETHForTokens")
	}
	return sent.Hash(), nil
}

func (op *swap) quote(ctx context.Context, router *bind.BoundContract, sc *SignerContext) (*big.Int, error) {
	var out []interface{}
	if err := router.Call(sc.callOpts(ctx), &out, "getAmountsOut", op.value, op.path); err != nil {
		return nil, tx.Wrap(tx.CodeQuoteFailed, err, "getAmountsOut")
	}
	if len(out) != 1 {
		return nil, tx.New(tx.CodeQuoteFailed, "getAmountsOut returned %d values", len(out))
	}
	amounts := *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int)
	if len(amounts) != len(op.path) {
		return nil, tx.New(tx.CodeQuoteFailed, "getAmountsOut returned %d amounts for a %d hop path", len(amounts), len(op.path))
	}
	return amounts[len(amounts)-1], nil
}
