package public

import (
	"github.com/ardanlabs/scalefree/foundation/blockchain/database"
)

// newTx is the payload a client submits to add a transaction to the
// pending pool. Rewards can't be submitted.
type newTx struct {
	From      string `json:"from"`
	To        string `json:"to" validate:"required"`
	Value     int64  `json:"value"`
	Signature string `json:"signature"`
}

func toDBTx(ntx newTx) database.Tx {
	tx := database.NewTx(ntx.From, ntx.To, ntx.Value)
	tx.Sign(ntx.Signature)
	return tx
}

// tx is the view of a pending or mined transaction with account names.
type tx struct {
	From      string `json:"from"`
	FromName  string `json:"from_name,omitempty"`
	To        string `json:"to"`
	ToName    string `json:"to_name"`
	Value     int64  `json:"value"`
	Signature string `json:"signature,omitempty"`
	Reward    bool   `json:"reward,omitempty"`
}

type submitted struct {
	Status  string `json:"status"`
	Pending int    `json:"pending"`
}

type chainStatus struct {
	Valid      bool    `json:"valid"`
	Length     int     `json:"length"`
	LatestHash string  `json:"latest_hash"`
	BadBlock   *uint64 `json:"bad_block,omitempty"`
	Error      string  `json:"error,omitempty"`
}
