package chain

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultWrappedNative is the token symbol used as the first hop of a swap path.
	DefaultWrappedNative = "WETH"
	// DefaultNativeDecimals is the base-unit exponent of the native asset.
	DefaultNativeDecimals uint8 = 18
)

var ErrEmptyRegistry = errors.New("no chains configured")

// ChainInfo holds the per-chain connection facts loaded from the chains file.
// ProviderURL may embed credentials and is never serialized outward.
type ChainInfo struct {
	Name           string            `yaml:"chain" json:"chain"`
	ProviderURL    string            `yaml:"provider_url" json:"-"`
	Tokens         map[string]string `yaml:"tokens" json:"tokens"`
	SwapRouter     string            `yaml:"swap_router" json:"swap_router"`
	WrappedNative  string            `yaml:"wrapped_native,omitempty" json:"wrapped_native,omitempty"`
	NativeSymbol   string            `yaml:"native_symbol,omitempty" json:"native_symbol,omitempty"`
	NativeDecimals uint8             `yaml:"native_decimals,omitempty" json:"native_decimals,omitempty"`
	ChainID        int64             `yaml:"chain_id,omitempty" json:"chain_id,omitempty"`
}

// PublicChain is the outward view of a chain: everything except the RPC endpoint.
type PublicChain struct {
	Chain        string            `json:"chain"`
	NativeSymbol string            `json:"native_symbol"`
	Tokens       map[string]string `json:"tokens"`
	SwapRouter   string            `json:"swap_router,omitempty"`
}

// Decimals returns the native asset's base-unit exponent.
func (c ChainInfo) Decimals() uint8 {
	if c.NativeDecimals == 0 {
		return DefaultNativeDecimals
	}
	return c.NativeDecimals
}

// Symbol returns the native asset's ticker.
func (c ChainInfo) Symbol() string {
	if c.NativeSymbol == "" {
		return "ETH"
	}
	return c.NativeSymbol
}

// Token resolves a token symbol from the chain's token table. Matching is case-insensitive.
func (c ChainInfo) Token(symbol string) (common.Address, bool) {
	for sym, addr := range c.Tokens {
		if strings.EqualFold(sym, symbol) {
			return common.HexToAddress(addr), true
		}
	}
	return common.Address{}, false
}

// WrappedNativeToken returns the address of the wrapped native asset used in swap paths.
func (c ChainInfo) WrappedNativeToken() (common.Address, bool) {
	sym := c.WrappedNative
	if sym == "" {
		sym = DefaultWrappedNative
	}
	return c.Token(sym)
}

// Router returns the swap router address, if one is configured.
func (c ChainInfo) Router() (common.Address, bool) {
	if c.SwapRouter == "" {
		return common.Address{}, false
	}
	return common.HexToAddress(c.SwapRouter), true
}

func (c ChainInfo) clone() ChainInfo {
	out := c
	out.Tokens = make(map[string]string, len(c.Tokens))
	for k, v := range c.Tokens {
		out.Tokens[k] = v
	}
	return out
}

func (c ChainInfo) validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("chain name is required")
	}
	if strings.TrimSpace(c.ProviderURL) == "" {
		return fmt.Errorf("chain %s: provider_url is required", c.Name)
	}
	// Token lookup folds case, so symbols must stay distinct once folded.
	seen := make(map[string]string, len(c.Tokens))
	for sym, addr := range c.Tokens {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("chain %s: token %s has invalid address %q", c.Name, sym, addr)
		}
		folded := strings.ToLower(sym)
		if other, dup := seen[folded]; dup {
			return fmt.Errorf("chain %s: token symbols %s and %s differ only in case", c.Name, other, sym)
		}
		seen[folded] = sym
	}
	if c.SwapRouter != "" && !common.IsHexAddress(c.SwapRouter) {
		return fmt.Errorf("chain %s: invalid swap_router %q", c.Name, c.SwapRouter)
	}
	return nil
}

// Registry is the read-only chain table. It is built once and safe for
// concurrent use because nothing mutates it after construction.
type Registry struct {
	chains map[string]ChainInfo
	names  []string
}

// NewRegistry validates chains and builds a registry keyed by lower-cased name.
func NewRegistry(chains []ChainInfo) (*Registry, error) {
	if len(chains) == 0 {
		return nil, ErrEmptyRegistry
	}

	r := &Registry{chains: make(map[string]ChainInfo, len(chains))}
	for _, c := range chains {
		if err := c.validate(); err != nil {
			return nil, err
		}
		key := strings.ToLower(c.Name)
		if _, dup := r.chains[key]; dup {
			return nil, fmt.Errorf("duplicate chain %q", c.Name)
		}
		r.chains[key] = c.clone()
		r.names = append(r.names, c.Name)
	}
	sort.Strings(r.names)
	return r, nil
}

// LoadRegistry reads a YAML or JSON chains file.
func LoadRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("chains file path is empty")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chains file: %w", err)
	}

	// JSON is a subset of YAML, so one decoder covers both formats.
	var chains []ChainInfo
	if err := yaml.Unmarshal(content, &chains); err != nil {
		return nil, fmt.Errorf("parse chains file: %w", err)
	}
	return NewRegistry(chains)
}

// Lookup returns a copy of the named chain.
func (r *Registry) Lookup(name string) (ChainInfo, bool) {
	c, ok := r.chains[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return ChainInfo{}, false
	}
	return c.clone(), true
}

// Names returns the configured chain names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Public returns the outward view of every chain, sorted by name.
func (r *Registry) Public() []PublicChain {
	out := make([]PublicChain, 0, len(r.names))
	for _, name := range r.names {
		c := r.chains[strings.ToLower(name)]
		out = append(out, PublicChain{
			Chain:        c.Name,
			NativeSymbol: c.Symbol(),
			Tokens:       c.clone().Tokens,
			SwapRouter:   c.SwapRouter,
		})
	}
	return out
}
