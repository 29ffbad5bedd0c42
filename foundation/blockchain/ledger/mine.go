package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ardanlabs/scalefree/foundation/blockchain/database"
)

// Status represents the outcome of a request to mine the pending
// transactions.
type Status int

// Set of possible outcomes for a mining request.
const (
	StatusMined Status = iota + 1
	StatusEmptyPool
	StatusNoValidTransactions
)

// String implements the fmt.Stringer interface.
func (s Status) String() string {
	switch s {
	case StatusMined:
		return "mined"
	case StatusEmptyPool:
		return "empty pool"
	case StatusNoValidTransactions:
		return "no valid transactions"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalText implements the encoding.TextMarshaler interface.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Rejected identifies a pending transaction that failed validation and the
// reason why.
type Rejected struct {
	Tx  database.Tx
	Err error
}

// MarshalJSON implements the json.Marshaler interface.
func (r Rejected) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tx     database.Tx `json:"tx"`
		Reason string      `json:"reason"`
	}{
		Tx:     r.Tx,
		Reason: r.Err.Error(),
	})
}

// Result is the outcome of a call to MinePending. Block is only set when
// the status is StatusMined.
type Result struct {
	Status   Status         `json:"status"`
	Block    database.Block `json:"block"`
	Rejected []Rejected     `json:"rejected"`
}

// =============================================================================

// MinePending mines the valid pending transactions into a new block and
// appends it to the chain. Invalid transactions are dropped. On success the
// pending pool is reset to a single reward transaction for rewardTo.
//
// An empty pool or a pool with no valid transactions is not an error, the
// Result status reports it and the ledger is left unchanged. A cancelled
// context returns database.ErrMiningCancelled and an exhausted attempt budget
// returns database.ErrNonceNotFound, also leaving the chain and pool
// unchanged.
func (l *Ledger) MinePending(ctx context.Context, rewardTo string) (Result, error) {
	l.mining.Lock()
	defer l.mining.Unlock()

	l.evHandler("ledger: MinePending: MINING: check mempool count")

	// Are there any transactions in the pool.
	trans := l.mempool.Copy()
	if len(trans) == 0 {
		l.evHandler("ledger: MinePending: MINING: no transactions to mine")
		return Result{Status: StatusEmptyPool}, nil
	}

	// Filter out the transactions that can't be mined.
	valid := make([]database.Tx, 0, len(trans))
	var rejected []Rejected
	for _, tx := range trans {
		if err := tx.Validate(); err != nil {
			l.evHandler("ledger: MinePending: MINING: tx[%s] rejected: %s", tx, err)
			rejected = append(rejected, Rejected{Tx: tx, Err: err})
			continue
		}
		valid = append(valid, tx)
	}

	if len(valid) == 0 {
		l.evHandler("ledger: MinePending: MINING: no valid transactions to mine")
		return Result{Status: StatusNoValidTransactions, Rejected: rejected}, nil
	}

	l.evHandler("ledger: MinePending: MINING: perform POW: trans[%d]", len(valid))

	// The topology node is part of the hash so it is requested before
	// the block is constructed.
	prevBlock := l.db.LatestBlock()
	block := database.NewBlock(prevBlock.Number+1, now(), valid, prevBlock.Hash, l.nextNode())

	// Attempt to solve the POW puzzle. This can be cancelled.
	err := block.Mine(ctx, database.MineArgs{
		Difficulty:  l.Difficulty(),
		Workers:     l.genesis.MiningWorkers,
		MaxAttempts: l.genesis.MaxAttempts,
		EvHandler:   l.evHandler,
	})
	if err != nil {
		return Result{}, err
	}

	l.evHandler("ledger: MinePending: MINING: update chain and mempool")

	if err := l.db.Write(block); err != nil {
		return Result{}, fmt.Errorf("write block: %w", err)
	}

	// Anything submitted while mining stays in the pool behind the reward.
	l.mempool.Replace(len(trans), database.NewRewardTx(rewardTo, l.genesis.MiningReward))

	l.blockEvent(block)

	return Result{Status: StatusMined, Block: block.Copy(), Rejected: rejected}, nil
}

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (l *Ledger) blockEvent(block database.Block) {
	blockJSON, err := json.Marshal(block)
	if err != nil {
		blockJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	l.evHandler(`viewer: block: {"hash":%q,"block":%s}`, block.Hash, string(blockJSON))
}
