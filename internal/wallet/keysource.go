package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/term"
)

// ErrNoKey is returned when a source has no key material to offer.
var ErrNoKey = errors.New("no signing key configured")

// Secret is hex encoded key material. It never prints its value.
type Secret string

func (s Secret) String() string   { return "***" }
func (s Secret) GoString() string { return "wallet.Secret(***)" }

// Reveal returns the raw key material.
func (s Secret) Reveal() string { return string(s) }

// ParsePrivateKey decodes hex key material, with or without a 0x prefix.
func ParsePrivateKey(s Secret) (*ecdsa.PrivateKey, error) {
	raw := strings.TrimSpace(s.Reveal())
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "0x"), "0X")
	key, err := crypto.HexToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return key, nil
}

// KeySource supplies the signing key for an invocation.
type KeySource interface {
	PrivateKey(ctx context.Context) (Secret, error)
}

// StaticSource hands out a fixed key injected by the embedding program.
type StaticSource Secret

func (s StaticSource) PrivateKey(context.Context) (Secret, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", ErrNoKey
	}
	return Secret(s), nil
}

// EnvSource reads the key from an environment variable on every call.
type EnvSource struct {
	Var string
}

func (s EnvSource) PrivateKey(context.Context) (Secret, error) {
	v := strings.TrimSpace(os.Getenv(s.Var))
	if v == "" {
		return "", fmt.Errorf("%w: %s is not set", ErrNoKey, s.Var)
	}
	return Secret(v), nil
}

// KeystoreSource decrypts an account from the local keystore.
type KeystoreSource struct {
	Manager  *KeystoreManager
	Address  common.Address
	Password func() (string, error)
}

func (s *KeystoreSource) PrivateKey(context.Context) (Secret, error) {
	if s.Manager == nil {
		return "", fmt.Errorf("%w: keystore not initialized", ErrNoKey)
	}
	if s.Address == (common.Address{}) {
		return "", fmt.Errorf("%w: no keystore address selected", ErrNoKey)
	}
	password := ""
	if s.Password != nil {
		p, err := s.Password()
		if err != nil {
			return "", fmt.Errorf("read keystore password: %w", err)
		}
		password = p
	}
	return s.Manager.ExportKey(s.Address, password)
}

// PromptSource asks for the key on the terminal once per process and keeps it in memory.
type PromptSource struct {
	Prompt string
	Read   func(prompt string) (string, error)

	mu  sync.Mutex
	key Secret
}

func (s *PromptSource) PrivateKey(context.Context) (Secret, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key != "" {
		return s.key, nil
	}

	read := s.Read
	if read == nil {
		read = ReadHidden
	}
	prompt := s.Prompt
	if prompt == "" {
		prompt = "Signing key (hex): "
	}

	v, err := read(prompt)
	if err != nil {
		return "", fmt.Errorf("read signing key: %w", err)
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", ErrNoKey
	}
	s.key = Secret(v)
	return s.key, nil
}

// ReadHidden reads a line from the terminal without echo.
func ReadHidden(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
