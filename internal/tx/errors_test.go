package tx

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_KindAndCode(t *testing.T) {
	tests := []struct {
		code Code
		kind Kind
	}{
		{CodeExceedsCeiling, KindValidation},
		{CodeUnknownChain, KindValidation},
		{CodeMalformedEndpoint, KindConnection},
		{CodeMalformedKey, KindConnection},
		{CodeKeyLocked, KindConnection},
		{CodeUnreachable, KindConnection},
		{CodeDecimalsFailed, KindRPC},
		{CodeQuoteFailed, KindRPC},
		{CodeBridgeRejected, KindBridge},
		{CodeBridgeAborted, KindBridge},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := New(tt.code, "boom")
			assert.Equal(t, tt.kind, err.Kind())
			assert.Equal(t, tt.code, err.Code())
			assert.Contains(t, err.Error(), string(tt.kind)+" error")
		})
	}
}

func TestError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeUnknownChain, "chain %q not configured", "mars"))
	assert.ErrorIs(t, err, ErrUnknownChain)
	assert.NotErrorIs(t, err, ErrUnknownToken)
	assert.Equal(t, CodeUnknownChain, CodeOf(err))
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestError_WrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(CodeUnreachable, cause, "dial endpoint")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "connection error: [UNREACHABLE] dial endpoint: connection refused", err.Error())
}

func TestError_BeforeNetwork(t *testing.T) {
	t.Run("validation before contact", func(t *testing.T) {
		err := New(CodeInvalidAmount, "too precise")
		assert.True(t, err.BeforeNetwork())
		assert.True(t, BeforeNetwork(fmt.Errorf("outer: %w", err)))
	})

	t.Run("validation after contact", func(t *testing.T) {
		orig := New(CodeInvalidAmount, "too precise")
		err := orig.AfterContact()
		assert.False(t, err.BeforeNetwork())
		assert.False(t, BeforeNetwork(err))
		assert.Equal(t, KindValidation, err.Kind())
		assert.ErrorIs(t, err, ErrInvalidAmount)
		assert.True(t, orig.BeforeNetwork(), "original left unmarked")
	})

	t.Run("later stages never qualify", func(t *testing.T) {
		assert.False(t, New(CodeUnreachable, "dial").BeforeNetwork())
		assert.False(t, New(CodeBridgeClosed, "closed").BeforeNetwork())
	})

	t.Run("foreign and nil errors", func(t *testing.T) {
		assert.False(t, BeforeNetwork(errors.New("x")))
		assert.False(t, BeforeNetwork(nil))
		var e *Error
		assert.False(t, e.BeforeNetwork())
		assert.Nil(t, e.AfterContact())
	})
}

func TestKindOf_ForeignErrors(t *testing.T) {
	assert.Equal(t, CodeUnknown, CodeOf(errors.New("x")))
	assert.Equal(t, KindRPC, KindOf(errors.New("x")))
	assert.Equal(t, CodeUnknown, CodeOf(nil))
}

func TestMapResult(t *testing.T) {
	t.Run("success is the hex hash", func(t *testing.T) {
		h := common.HexToHash("0x01")
		out, err := MapResult(h, nil)
		require.NoError(t, err)
		assert.Len(t, out, 66)
		assert.Equal(t, h.Hex(), out)
	})

	t.Run("keeps taxonomy errors", func(t *testing.T) {
		_, err := MapResult(common.Hash{}, New(CodeQuoteFailed, "quote"))
		assert.ErrorIs(t, err, ErrQuoteFailed)
	})

	t.Run("attributes foreign errors to submission", func(t *testing.T) {
		_, err := MapResult(common.Hash{}, errors.New("insufficient funds"))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSubmitFailed)
		assert.Contains(t, Message(err), "insufficient funds")
		assert.False(t, BeforeNetwork(err))
	})

	t.Run("message of nil is empty", func(t *testing.T) {
		assert.Empty(t, Message(nil))
	})
}

func TestPolicy_CheckRecipient(t *testing.T) {
	a := common.HexToAddress("0x1111111111111111111111111111111111111111")
	b := common.HexToAddress("0x2222222222222222222222222222222222222222")

	assert.NoError(t, Policy{}.CheckRecipient(a))
	assert.ErrorIs(t, Policy{DenyTo: []common.Address{a}}.CheckRecipient(a), ErrPolicyDenied)
	assert.NoError(t, Policy{AllowTo: []common.Address{a}}.CheckRecipient(a))
	assert.ErrorIs(t, Policy{AllowTo: []common.Address{a}}.CheckRecipient(b), ErrPolicyDenied)
	assert.ErrorIs(t, Policy{AllowTo: []common.Address{a}, DenyTo: []common.Address{a}}.CheckRecipient(a), ErrPolicyDenied)
}

func TestParseAddressList(t *testing.T) {
	list, err := ParseAddressList("allow_to", []string{
		"0x1111111111111111111111111111111111111111, 0x2222222222222222222222222222222222222222",
		"",
		"0x3333333333333333333333333333333333333333",
	})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, common.HexToAddress("0x3333333333333333333333333333333333333333"), list[2])

	_, err = ParseAddressList("deny_to", []string{"0xnope"})
	assert.ErrorIs(t, err, ErrInvalidAddress)
}
