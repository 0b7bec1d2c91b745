package tx

import (
	"github.com/ethereum/go-ethereum/common"
)

// MapResult normalizes an execution outcome for the tool-call boundary. Success is the
// 0x-prefixed hex hash; any failure comes back as an *Error so its stage survives.
// Errors outside the taxonomy are attributed to transaction submission.
func MapResult(hash common.Hash, err error) (string, error) {
	if err != nil {
		return "", Normalize(err)
	}
	return hash.Hex(), nil
}

// Normalize returns err as an *Error, wrapping foreign errors as submission failures.
func Normalize(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := From(err); ok {
		return e
	}
	return Wrap(CodeSubmitFailed, err, "transaction submission failed")
}

// Message renders err as the single string handed back to a calling agent.
func Message(err error) string {
	if err == nil {
		return ""
	}
	return Normalize(err).Error()
}
