package wallet

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrInvalidKey      = errors.New("invalid private key")
	ErrWrongPassword   = errors.New("keystore password rejected")
)

// KeystoreManager manages the encrypted keystore directory under dataDir/keystore.
type KeystoreManager struct {
	ks      *keystore.KeyStore
	dataDir string
}

// NewKeystoreManager opens the keystore with the standard scrypt parameters.
func NewKeystoreManager(dataDir string) (*KeystoreManager, error) {
	return newKeystoreManager(dataDir, keystore.StandardScryptN, keystore.StandardScryptP)
}

func newKeystoreManager(dataDir string, scryptN, scryptP int) (*KeystoreManager, error) {
	keystoreDir := filepath.Join(dataDir, "keystore")
	if err := os.MkdirAll(keystoreDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create keystore directory: %w", err)
	}

	return &KeystoreManager{
		ks:      keystore.NewKeyStore(keystoreDir, scryptN, scryptP),
		dataDir: dataDir,
	}, nil
}

// CreateAccount creates a new account with the given password
func (km *KeystoreManager) CreateAccount(password string) (accounts.Account, error) {
	return km.ks.NewAccount(password)
}

// ImportKey imports a hex private key and encrypts it with the password
func (km *KeystoreManager) ImportKey(privateKeyHex string, password string) (accounts.Account, error) {
	key, err := ParsePrivateKey(Secret(privateKeyHex))
	if err != nil {
		return accounts.Account{}, err
	}
	defer key.D.SetInt64(0)

	return km.ks.ImportECDSA(key, password)
}

// ListAccounts returns all accounts in the keystore
func (km *KeystoreManager) ListAccounts() []accounts.Account {
	return km.ks.Accounts()
}

func (km *KeystoreManager) find(address common.Address) (accounts.Account, error) {
	for _, acc := range km.ks.Accounts() {
		if acc.Address == address {
			return acc, nil
		}
	}
	return accounts.Account{}, ErrAccountNotFound
}

// ExportKey decrypts the account's key and returns it as hex key material.
// The decrypted key object is zeroed before returning.
func (km *KeystoreManager) ExportKey(address common.Address, password string) (Secret, error) {
	acc, err := km.find(address)
	if err != nil {
		return "", err
	}

	keyJSON, err := km.ks.Export(acc, password, password)
	if errors.Is(err, keystore.ErrDecrypt) {
		return "", fmt.Errorf("%w: %w", ErrWrongPassword, err)
	}
	if err != nil {
		return "", fmt.Errorf("failed to export key: %w", err)
	}

	key, err := keystore.DecryptKey(keyJSON, password)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt key: %w", err)
	}
	defer key.PrivateKey.D.SetInt64(0)

	return Secret(common.Bytes2Hex(crypto.FromECDSA(key.PrivateKey))), nil
}
