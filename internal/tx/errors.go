package tx

import (
	stdErrors "errors"
	"fmt"
)

// Kind identifies the pipeline stage that produced an error.
type Kind string

const (
	KindValidation Kind = "validation"
	KindConnection Kind = "connection"
	KindRPC        Kind = "rpc"
	KindBridge     Kind = "bridge"
)

// BeforeNetwork reports whether errors of this kind are normally raised before any RPC traffic.
// A validation failure found after reading chain state is not; use Error.BeforeNetwork for that.
func (k Kind) BeforeNetwork() bool {
	return k == KindValidation
}

// Code is the finer-grained reason inside a Kind.
type Code string

const (
	CodeUnknown Code = "UNKNOWN"

	CodeExceedsCeiling Code = "EXCEEDS_CEILING"
	CodeUnknownChain   Code = "UNKNOWN_CHAIN"
	CodeInvalidAddress Code = "INVALID_ADDRESS"
	CodeInvalidAmount  Code = "INVALID_AMOUNT"
	CodeUnknownToken   Code = "UNKNOWN_TOKEN"
	CodeMissingRoute   Code = "MISSING_ROUTE"
	CodePolicyDenied   Code = "POLICY_DENIED"

	CodeMalformedEndpoint Code = "MALFORMED_ENDPOINT"
	CodeMalformedKey      Code = "MALFORMED_KEY"
	CodeMissingKey        Code = "MISSING_KEY"
	CodeKeyLocked         Code = "KEY_LOCKED"
	CodeUnreachable       Code = "UNREACHABLE"

	CodeDecimalsFailed Code = "DECIMALS_FAILED"
	CodeQuoteFailed    Code = "QUOTE_FAILED"
	CodeSubmitFailed   Code = "SUBMIT_FAILED"

	CodeBridgeRejected Code = "BRIDGE_REJECTED"
	CodeBridgeAborted  Code = "BRIDGE_ABORTED"
	CodeBridgeClosed   Code = "BRIDGE_CLOSED"
)

var codeKinds = map[Code]Kind{
	CodeExceedsCeiling:    KindValidation,
	CodeUnknownChain:      KindValidation,
	CodeInvalidAddress:    KindValidation,
	CodeInvalidAmount:     KindValidation,
	CodeUnknownToken:      KindValidation,
	CodeMissingRoute:      KindValidation,
	CodePolicyDenied:      KindValidation,
	CodeMalformedEndpoint: KindConnection,
	CodeMalformedKey:      KindConnection,
	CodeMissingKey:        KindConnection,
	CodeKeyLocked:         KindConnection,
	CodeUnreachable:       KindConnection,
	CodeDecimalsFailed:    KindRPC,
	CodeQuoteFailed:       KindRPC,
	CodeSubmitFailed:      KindRPC,
	CodeBridgeRejected:    KindBridge,
	CodeBridgeAborted:     KindBridge,
	CodeBridgeClosed:      KindBridge,
}

// KindOfCode returns the stage a code belongs to. Unregistered codes map to the rpc kind.
func KindOfCode(code Code) Kind {
	if k, ok := codeKinds[code]; ok {
		return k
	}
	return KindRPC
}

// Error is the single error type crossing the executor boundary.
type Error struct {
	code    Code
	message string
	cause   error

	// contacted is set once the chain endpoint has been reached.
	contacted bool
}

// New creates an error for code.
func New(code Code, format string, args ...any) *Error {
	return &Error{code: code, message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error for code that keeps cause in the chain.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	e := New(code, format, args...)
	e.cause = cause
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s error: [%s] %s: %v", e.Kind(), e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s error: [%s] %s", e.Kind(), e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is matches any *Error carrying the same code, so sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.code == t.code
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeUnknown
	}
	return e.code
}

func (e *Error) Kind() Kind {
	return KindOfCode(e.Code())
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

// BeforeNetwork reports whether the error was raised before any RPC traffic.
func (e *Error) BeforeNetwork() bool {
	return e != nil && !e.contacted && e.Kind().BeforeNetwork()
}

// AfterContact returns a copy of e marked as raised after the endpoint was reached.
func (e *Error) AfterContact() *Error {
	if e == nil {
		return nil
	}
	c := *e
	c.contacted = true
	return &c
}

// Sentinels for errors.Is checks.
var (
	ErrExceedsCeiling    = &Error{code: CodeExceedsCeiling}
	ErrUnknownChain      = &Error{code: CodeUnknownChain}
	ErrInvalidAddress    = &Error{code: CodeInvalidAddress}
	ErrInvalidAmount     = &Error{code: CodeInvalidAmount}
	ErrUnknownToken      = &Error{code: CodeUnknownToken}
	ErrMissingRoute      = &Error{code: CodeMissingRoute}
	ErrPolicyDenied      = &Error{code: CodePolicyDenied}
	ErrMalformedEndpoint = &Error{code: CodeMalformedEndpoint}
	ErrMalformedKey      = &Error{code: CodeMalformedKey}
	ErrMissingKey        = &Error{code: CodeMissingKey}
	ErrKeyLocked         = &Error{code: CodeKeyLocked}
	ErrUnreachable       = &Error{code: CodeUnreachable}
	ErrDecimalsFailed    = &Error{code: CodeDecimalsFailed}
	ErrQuoteFailed       = &Error{code: CodeQuoteFailed}
	ErrSubmitFailed      = &Error{code: CodeSubmitFailed}
	ErrBridgeRejected    = &Error{code: CodeBridgeRejected}
	ErrBridgeAborted     = &Error{code: CodeBridgeAborted}
	ErrBridgeClosed      = &Error{code: CodeBridgeClosed}
)

// From extracts the first *Error in err's chain.
func From(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var target *Error
	if stdErrors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// CodeOf returns err's code, or CodeUnknown when err is not an *Error.
func CodeOf(err error) Code {
	if e, ok := From(err); ok {
		return e.Code()
	}
	return CodeUnknown
}

// KindOf returns err's stage. Errors outside the taxonomy are treated as rpc failures.
func KindOf(err error) Kind {
	if e, ok := From(err); ok {
		return e.Kind()
	}
	return KindRPC
}

// BeforeNetwork reports whether err was rejected before the chain endpoint was reached.
func BeforeNetwork(err error) bool {
	if e, ok := From(err); ok {
		return e.BeforeNetwork()
	}
	return false
}
