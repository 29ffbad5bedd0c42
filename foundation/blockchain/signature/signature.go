// Package signature provides helper functions for handling the ledger's
// hashing and signature needs.
package signature

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ZeroHash represents a hash code of zeros.
const ZeroHash string = "0000000000000000000000000000000000000000000000000000000000000000"

// scalefreeID is an arbitrary number added to the recovery id of every
// signature so signatures produced here are recognizable.
// Ethereum and Bitcoin do this as well, but they use the value of 27.
const scalefreeID = 29

// =============================================================================

// Hash returns a unique lowercase hex string for the value. The value is
// marshaled with encoding/json, so struct field order defines the encoding.
func Hash(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return ZeroHash
	}

	return HashBytes(data)
}

// HashBytes returns the lowercase hex SHA-256 digest of the data.
func HashBytes(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Sign uses the specified private key to sign the value. The signature is
// returned in the hex [R|S|V] format. The ledger treats this string as opaque
// and never verifies it.
func Sign(value any, privateKey *ecdsa.PrivateKey) (string, error) {

	// Prepare the data for signing.
	data, err := stamp(value)
	if err != nil {
		return "", err
	}

	// Sign the hash with the private key to produce a signature.
	sig, err := crypto.Sign(data, privateKey)
	if err != nil {
		return "", err
	}

	// Check the public key extracted from the data and signature.
	publicKey, err := crypto.SigToPub(data, sig)
	if err != nil {
		return "", err
	}

	rs := sig[:crypto.RecoveryIDOffset]
	if !crypto.VerifySignature(crypto.FromECDSAPub(publicKey), data, rs) {
		return "", errors.New("invalid signature")
	}

	sig[crypto.RecoveryIDOffset] += scalefreeID

	return hexutil.Encode(sig), nil
}

// FromAddress extracts the address for the account that signed the value.
// If the exact same value is not provided the wrong address comes back.
func FromAddress(value any, sigStr string) (string, error) {
	sig, err := hexutil.Decode(sigStr)
	if err != nil {
		return "", err
	}

	if len(sig) != crypto.SignatureLength {
		return "", errors.New("invalid signature length")
	}
	sig[crypto.RecoveryIDOffset] -= scalefreeID

	data, err := stamp(value)
	if err != nil {
		return "", err
	}

	publicKey, err := crypto.SigToPub(data, sig)
	if err != nil {
		return "", err
	}

	return crypto.PubkeyToAddress(*publicKey).String(), nil
}

// PublicKeyToAccount converts the public key to an account address.
func PublicKeyToAccount(pk ecdsa.PublicKey) string {
	return crypto.PubkeyToAddress(pk).String()
}

// =============================================================================

// stamp returns a hash of 32 bytes that represents this value with
// the scalefree stamp embedded into the final hash.
func stamp(value any) ([]byte, error) {
	v, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	txHash := crypto.Keccak256(v)

	// This stamp is used so signatures we produce when signing data
	// are always unique to this ledger.
	stamp := []byte("\x19Scalefree Signed Message:\n32")

	return crypto.Keccak256(stamp, txHash), nil
}
