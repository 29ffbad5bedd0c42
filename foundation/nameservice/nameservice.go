// Package nameservice reads a folder of ECDSA key files and creates a name
// service lookup for the accounts they control.
package nameservice

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"path"
	"path/filepath"
	"strings"

	"github.com/ardanlabs/scalefree/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
)

// NameService maintains a map of accounts for name lookup.
type NameService struct {
	accounts map[string]string
	names    map[string]string
}

// New constructs a name service with the accounts of the key files found in
// root. The name is the file name without the .ecdsa extension. A missing
// root produces an empty name service.
func New(root string) (*NameService, error) {
	ns := NameService{
		accounts: make(map[string]string),
		names:    make(map[string]string),
	}

	fn := func(fileName string, info fs.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if path.Ext(fileName) != ".ecdsa" {
			return nil
		}

		privateKey, err := crypto.LoadECDSA(fileName)
		if err != nil {
			return err
		}

		account := signature.PublicKeyToAccount(privateKey.PublicKey)
		name := strings.TrimSuffix(path.Base(fileName), ".ecdsa")

		ns.accounts[account] = name
		ns.names[name] = account

		return nil
	}

	if err := filepath.Walk(root, fn); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &ns, nil
		}
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ns, nil
}

// Lookup returns the name for the specified account. An unknown account is
// returned as is.
func (ns *NameService) Lookup(account string) string {
	name, exists := ns.accounts[account]
	if !exists {
		return account
	}
	return name
}

// Account returns the account for the specified name.
func (ns *NameService) Account(name string) (string, bool) {
	account, exists := ns.names[name]
	return account, exists
}

// Copy returns a copy of the map of accounts and names.
func (ns *NameService) Copy() map[string]string {
	return maps.Clone(ns.accounts)
}
