package database

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Set of reasons a transaction can be rejected from a block.
var (
	ErrInvalidAmount    = errors.New("transaction amount must be greater than zero")
	ErrMissingSender    = errors.New("transaction has no sender")
	ErrMissingRecipient = errors.New("transaction has no recipient")
	ErrRewardWithSender = errors.New("reward transaction can't have a sender")
)

// ErrAlreadySigned is returned by SignOnce when the transaction already
// carries a signature.
var ErrAlreadySigned = errors.New("transaction is already signed")

// =============================================================================

// Tx is the transactional information between two parties. An empty From
// means there is no sender, which is only legal for a reward.
type Tx struct {
	From      string `json:"from"`      // Account sending the value, empty for a reward.
	To        string `json:"to"`        // Account receiving the value.
	Value     int64  `json:"value"`     // Monetary value received from this transaction.
	Signature string `json:"signature"` // Opaque signature, never verified by the ledger.
	Reward    bool   `json:"reward"`    // System issued mining reward.
}

// NewTx constructs a new transaction. No validation is performed here, that
// happens when the ledger selects transactions for a block.
func NewTx(from string, to string, value int64) Tx {
	return Tx{
		From:  from,
		To:    to,
		Value: value,
	}
}

// NewRewardTx constructs the system issued transaction that pays the
// mining reward to the specified account.
func NewRewardTx(to string, value int64) Tx {
	return Tx{
		To:     to,
		Value:  value,
		Reward: true,
	}
}

// Sign sets the signature for the transaction. Signing an already signed
// transaction replaces the prior signature.
func (tx *Tx) Sign(signature string) {
	tx.Signature = signature
}

// SignOnce sets the signature only if the transaction is not signed yet.
func (tx *Tx) SignOnce(signature string) error {
	if tx.Signature != "" {
		return ErrAlreadySigned
	}

	tx.Signature = signature
	return nil
}

// IsSigned reports if a signature has been set.
func (tx Tx) IsSigned() bool {
	return tx.Signature != ""
}

// Validate checks the transaction can be included in a block. The error
// returned identifies the reason for the rejection.
func (tx Tx) Validate() error {
	if tx.Value <= 0 {
		return ErrInvalidAmount
	}

	switch {
	case tx.Reward && tx.From != "":
		return ErrRewardWithSender
	case !tx.Reward && tx.From == "":
		return ErrMissingSender
	}

	if tx.To == "" {
		return ErrMissingRecipient
	}

	return nil
}

// Encode returns the canonical representation of the transaction used by
// the block hash. The field order is fixed: sender, recipient, amount,
// signature, reward. An absent sender or signature is encoded as null.
func (tx Tx) Encode() ([]byte, error) {
	return json.Marshal(tx.encoding())
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	from := tx.From
	if tx.Reward {
		from = "reward"
	}

	return fmt.Sprintf("%s->%s:%d", from, tx.To, tx.Value)
}

// =============================================================================

// txEncoding is the canonical layout of a transaction. Changing this layout
// requires bumping EncodingVersion.
type txEncoding struct {
	Sender    *string `json:"sender"`
	Recipient string  `json:"recipient"`
	Amount    int64   `json:"amount"`
	Signature *string `json:"signature"`
	Reward    bool    `json:"reward"`
}

func (tx Tx) encoding() txEncoding {
	enc := txEncoding{
		Recipient: tx.To,
		Amount:    tx.Value,
		Reward:    tx.Reward,
	}

	if tx.From != "" {
		from := tx.From
		enc.Sender = &from
	}

	if tx.Signature != "" {
		sig := tx.Signature
		enc.Signature = &sig
	}

	return enc
}
