// Package ledger is the core API for the proof of work ledger. It owns the
// chain and the pending transactions and orchestrates validation and mining,
// optionally tagging every block with a node from a peer topology.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/ardanlabs/scalefree/foundation/blockchain/database"
	"github.com/ardanlabs/scalefree/foundation/blockchain/genesis"
	"github.com/ardanlabs/scalefree/foundation/blockchain/mempool"
	"github.com/ardanlabs/scalefree/foundation/blockchain/topology"
)

// EventHandler defines a function that is called when events occur in the
// processing of transactions and blocks.
type EventHandler func(v string, args ...any)

// Config represents the configuration required to construct a ledger.
type Config struct {
	Genesis   genesis.Genesis
	Topology  *topology.Network // Optional, blocks are tagged with a node when set.
	EvHandler EventHandler
}

// Ledger manages the chain of blocks and the pending transactions.
type Ledger struct {
	genesis   genesis.Genesis
	evHandler EventHandler
	mining    sync.Mutex

	db       *database.Database
	mempool  *mempool.Mempool
	topology *topology.Network
}

// New constructs a ledger holding only the genesis block. When a topology is
// provided, the genesis block is assigned the first node added to it.
func New(cfg Config) (*Ledger, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if err := cfg.Genesis.Validate(); err != nil {
		return nil, err
	}

	l := Ledger{
		genesis:   cfg.Genesis,
		evHandler: ev,
		mempool:   mempool.New(),
		topology:  cfg.Topology,
	}

	timeStamp := cfg.Genesis.Date.UTC().UnixNano()
	if cfg.Genesis.Date.IsZero() {
		timeStamp = now()
	}

	block := database.NewBlock(0, timeStamp, nil, database.GenesisPrevHash, l.nextNode())
	l.db = database.New(block)

	ev("ledger: New: genesis: blk[%s]: node[%s]", block.Hash, nodeString(block.Node))

	return &l, nil
}

// =============================================================================

// Submit adds the transaction to the pending pool. No validation is
// performed until the transaction is picked for mining.
func (l *Ledger) Submit(tx database.Tx) {
	n := l.mempool.Add(tx)
	l.evHandler("ledger: Submit: tx[%s]: pending[%d]", tx, n)
}

// Validate reports if the transaction can be included in a block.
func (l *Ledger) Validate(tx database.Tx) bool {
	return tx.Validate() == nil
}

// ValidateReason returns the reason the transaction can't be included in a
// block, nil if it can.
func (l *Ledger) ValidateReason(tx database.Tx) error {
	return tx.Validate()
}

// IsValid walks the chain and reports if every block's hash matches its
// content and links to the previous block.
func (l *Ledger) IsValid() bool {
	return l.Verify() == nil
}

// Verify walks the chain like IsValid but returns a *database.IntegrityError
// identifying the first block that failed.
func (l *Ledger) Verify() error {
	if err := l.db.Verify(); err != nil {
		l.evHandler("ledger: Verify: %s", err)
		return err
	}

	return nil
}

// =============================================================================

// Difficulty returns the number of leading zeros a block hash needs.
func (l *Ledger) Difficulty() uint {
	return uint(l.genesis.Difficulty)
}

// MiningReward returns the amount paid to the reward recipient for every
// mined block.
func (l *Ledger) MiningReward() int64 {
	return l.genesis.MiningReward
}

// Genesis returns the genesis values the ledger was constructed with.
func (l *Ledger) Genesis() genesis.Genesis {
	return l.genesis
}

// Topology returns the attached topology, nil if the ledger has none.
func (l *Ledger) Topology() *topology.Network {
	return l.topology
}

// LatestBlock returns the tip of the chain.
func (l *Ledger) LatestBlock() database.Block {
	return l.db.LatestBlock()
}

// GetBlock returns the block with the specified number.
func (l *Ledger) GetBlock(num uint64) (database.Block, error) {
	return l.db.GetBlock(num)
}

// Blocks returns a copy of the chain starting with genesis.
func (l *Ledger) Blocks() []database.Block {
	return l.db.Blocks()
}

// Length returns the number of blocks in the chain including genesis.
func (l *Ledger) Length() int {
	return l.db.Length()
}

// Pending returns a copy of the pending transactions in submission order.
func (l *Ledger) Pending() []database.Tx {
	return l.mempool.Copy()
}

// PendingCount returns the number of pending transactions.
func (l *Ledger) PendingCount() int {
	return l.mempool.Count()
}

// =============================================================================

// nextNode adds a node to the topology and returns its id, nil if the ledger
// has no topology.
func (l *Ledger) nextNode() *uint64 {
	if l.topology == nil {
		return nil
	}

	id := uint64(l.topology.AddNode(l.genesis.EdgesPerNode))
	return &id
}

// now returns the current time in unix nanoseconds.
func now() int64 {
	return time.Now().UTC().UnixNano()
}

// nodeString formats an optional node for events.
func nodeString(node *uint64) string {
	if node == nil {
		return "none"
	}
	return fmt.Sprint(*node)
}
