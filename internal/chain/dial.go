package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

var (
	ErrMalformedEndpoint = errors.New("malformed rpc endpoint")
	ErrUnreachable       = errors.New("rpc endpoint unreachable")
	ErrChainIDMismatch   = errors.New("chain id mismatch")
)

const (
	dialTimeout    = 10 * time.Second
	chainIDTimeout = 5 * time.Second
)

// scrub drops the request URL from transport errors; endpoints often embed API keys.
func scrub(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s: %v", strings.ToLower(ue.Op), ue.Err)
	}
	return err
}

// ParseEndpoint checks that rawURL is an http(s) or ws(s) URL with a host.
func ParseEndpoint(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEndpoint, scrub(err))
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrMalformedEndpoint, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrMalformedEndpoint)
	}
	return u, nil
}

// Dial connects to rawURL and confirms the endpoint answers eth_chainId.
// When expectChainID is non-zero the reported id must match it.
func Dial(ctx context.Context, rawURL string, expectChainID int64) (*ethclient.Client, *big.Int, error) {
	u, err := ParseEndpoint(rawURL)
	if err != nil {
		return nil, nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	rpcClient, err := rpc.DialContext(dialCtx, u.String())
	cancel()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnreachable, scrub(err))
	}
	client := ethclient.NewClient(rpcClient)

	idCtx, cancel := context.WithTimeout(ctx, chainIDTimeout)
	chainID, err := client.ChainID(idCtx)
	cancel()
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("%w: %v", ErrUnreachable, scrub(err))
	}

	if expectChainID != 0 && chainID.Cmp(big.NewInt(expectChainID)) != 0 {
		client.Close()
		return nil, nil, fmt.Errorf("%w: expected %d, got %s", ErrChainIDMismatch, expectChainID, chainID)
	}
	return client, chainID, nil
}
