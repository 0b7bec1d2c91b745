package exec

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/yolodolo42/txagent/internal/chain"
	"github.com/yolodolo42/txagent/internal/tx"
)

// OpKind names one of the supported on-chain operations.
type OpKind string

const (
	OpNativeTransfer OpKind = "native_transfer"
	OpTokenTransfer  OpKind = "token_transfer"
	OpSwap           OpKind = "swap"
)

// Ceiling returns the safety ceiling for the operation, in whole units.
func (k OpKind) Ceiling() uint64 {
	switch k {
	case OpNativeTransfer:
		return tx.NativeTransferCeiling
	case OpTokenTransfer:
		return tx.TokenTransferCeiling
	case OpSwap:
		return tx.SwapCeiling
	}
	return 0
}

// Operation assembles and submits one on-chain call. Implementations are built after
// every input has been validated and resolved against the chain, so Execute only
// performs RPC round-trips, strictly in order.
type Operation interface {
	Kind() OpKind
	Execute(ctx context.Context, sc *SignerContext) (common.Hash, error)
}

// resolveToken accepts either a contract address or a symbol from the chain's token table.
func resolveToken(info chain.ChainInfo, token string) (common.Address, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return common.Address{}, tx.New(tx.CodeInvalidAddress, "token_address is required")
	}
	if common.IsHexAddress(token) {
		return common.HexToAddress(token), nil
	}
	if strings.HasPrefix(strings.ToLower(token), "0x") {
		return common.Address{}, tx.New(tx.CodeInvalidAddress, "token_address %q is not a valid address", token)
	}
	if addr, ok := info.Token(token); ok {
		return addr, nil
	}
	return common.Address{}, tx.New(tx.CodeUnknownToken, "token %q is not listed for chain %s", token, info.Name)
}
