// Package database maintains the in memory chain of blocks along with the
// block, transaction and mining primitives the ledger is built from.
package database

import (
	"errors"
	"fmt"
	"sync"
)

// ErrBlockNotFound is returned when a block number is not in the chain.
var ErrBlockNotFound = errors.New("block does not exist")

// IntegrityError identifies the first block in the chain that failed
// validation.
type IntegrityError struct {
	Number uint64
	Err    error
}

// Error implements the error interface.
func (ie *IntegrityError) Error() string {
	return fmt.Sprintf("chain integrity violated at blk[%d]: %s", ie.Number, ie.Err)
}

// Unwrap provides access to the reason for the violation.
func (ie *IntegrityError) Unwrap() error {
	return ie.Err
}

// =============================================================================

// Database manages the ordered sequence of blocks. The chain always holds
// the genesis block and only grows.
type Database struct {
	mu     sync.RWMutex
	blocks []Block
}

// New constructs a database holding only the specified genesis block.
func New(genesis Block) *Database {
	return &Database{
		blocks: []Block{genesis.Copy()},
	}
}

// Load constructs a database from an existing sequence of blocks. The blocks
// are not validated, call Verify to check the chain.
func Load(blocks []Block) (*Database, error) {
	if len(blocks) == 0 {
		return nil, errors.New("chain requires a genesis block")
	}

	db := Database{
		blocks: make([]Block, len(blocks)),
	}
	for i, block := range blocks {
		db.blocks[i] = block.Copy()
	}

	return &db, nil
}

// Write appends the block to the chain. The block must carry the next
// number in the chain.
func (db *Database) Write(block Block) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	next := uint64(len(db.blocks))
	if block.Number != next {
		return fmt.Errorf("block is out of order, got %d, exp %d", block.Number, next)
	}

	db.blocks = append(db.blocks, block.Copy())

	return nil
}

// LatestBlock returns the tip of the chain.
func (db *Database) LatestBlock() Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.blocks[len(db.blocks)-1].Copy()
}

// GetBlock returns the block with the specified number.
func (db *Database) GetBlock(num uint64) (Block, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if num >= uint64(len(db.blocks)) {
		return Block{}, fmt.Errorf("%w: blk[%d]", ErrBlockNotFound, num)
	}

	return db.blocks[num].Copy(), nil
}

// Length returns the number of blocks in the chain including genesis.
func (db *Database) Length() int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return len(db.blocks)
}

// Blocks returns a copy of the chain.
func (db *Database) Blocks() []Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	blocks := make([]Block, len(db.blocks))
	for i, block := range db.blocks {
		blocks[i] = block.Copy()
	}

	return blocks
}

// Verify walks the chain from the first block after genesis and checks every
// block's hash and link to its parent. The first failure is returned as an
// *IntegrityError.
func (db *Database) Verify() error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for i := 1; i < len(db.blocks); i++ {
		if err := db.blocks[i].ValidateLink(db.blocks[i-1]); err != nil {
			return &IntegrityError{Number: uint64(i), Err: err}
		}
	}

	return nil
}
