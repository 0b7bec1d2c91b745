package tx

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Policy restricts which recipients may receive funds. The zero value allows everyone.
type Policy struct {
	AllowTo []common.Address
	DenyTo  []common.Address
}

// CheckRecipient applies the deny list first, then the allow list when one is set.
func (p Policy) CheckRecipient(to common.Address) error {
	for _, a := range p.DenyTo {
		if a == to {
			return New(CodePolicyDenied, "recipient %s is denied by policy", to.Hex())
		}
	}
	if len(p.AllowTo) == 0 {
		return nil
	}
	for _, a := range p.AllowTo {
		if a == to {
			return nil
		}
	}
	return New(CodePolicyDenied, "recipient %s is not in the allow list", to.Hex())
}

// ParseAddress validates a 0x-prefixed or bare 20-byte hex address.
func ParseAddress(field, s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, New(CodeInvalidAddress, "%s %q is not a valid address", field, s)
	}
	return common.HexToAddress(s), nil
}

// ParseAddressList parses a comma separated address list, skipping blanks.
func ParseAddressList(field string, items []string) ([]common.Address, error) {
	var out []common.Address
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			addr, err := ParseAddress(field, part)
			if err != nil {
				return nil, err
			}
			out = append(out, addr)
		}
	}
	return out, nil
}
