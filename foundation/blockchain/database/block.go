package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ardanlabs/scalefree/foundation/blockchain/signature"
)

// EncodingVersion is the version of the canonical block encoding that is
// hashed. It is part of every hash so a layout change can't collide with an
// older one.
const EncodingVersion = 1

// GenesisPrevHash is the previous block hash stored in the genesis block.
const GenesisPrevHash = "0"

// maxDifficulty is the number of hex characters in a SHA-256 hash.
const maxDifficulty = 64

// Set of errors that can be returned by a mining search.
var (
	ErrMiningCancelled = errors.New("mining cancelled")
	ErrNonceNotFound   = errors.New("nonce not found within attempt budget")
	ErrDifficultyRange = errors.New("difficulty out of range")
)

// Set of errors returned when a block does not link to its parent.
var (
	ErrHashMismatch = errors.New("block hash does not match block content")
	ErrBrokenLink   = errors.New("previous block hash does not match parent")
)

// =============================================================================

// Block represents a group of transactions batched together and linked to
// the previous block by hash.
type Block struct {
	Number        uint64  `json:"number"`          // Position in the chain, 0 is genesis.
	TimeStamp     int64   `json:"timestamp"`       // Unix nanoseconds the block was created.
	Trans         []Tx    `json:"trans"`           // Order is significant to the hash.
	PrevBlockHash string  `json:"prev_block_hash"` // Hash of the previous block in the chain.
	Nonce         uint64  `json:"nonce"`           // Value identified to solve the hash solution.
	Node          *uint64 `json:"node"`            // Topology node assigned to this block, nil if none.
	Hash          string  `json:"hash"`            // Hash of all the fields above.
}

// NewBlock constructs a block with a nonce of zero and computes the
// initial hash.
func NewBlock(number uint64, timeStamp int64, trans []Tx, prevBlockHash string, node *uint64) Block {
	b := Block{
		Number:        number,
		TimeStamp:     timeStamp,
		Trans:         trans,
		PrevBlockHash: prevBlockHash,
		Node:          node,
	}
	b.Hash = b.ComputeHash()

	return b
}

// ComputeHash returns the hash of the block's current content. It does not
// update the stored hash.
func (b Block) ComputeHash() string {
	trans, err := encodeTrans(b.Trans)
	if err != nil {
		return signature.ZeroHash
	}

	return b.hashWith(trans)
}

// Copy returns a deep copy of the block so the caller can't modify the
// transactions or node of the original.
func (b Block) Copy() Block {
	cpy := b
	cpy.Trans = append([]Tx(nil), b.Trans...)
	if b.Node != nil {
		node := *b.Node
		cpy.Node = &node
	}

	return cpy
}

// ValidateLink checks the stored hash matches the content and the block
// points at the specified parent.
func (b Block) ValidateLink(parent Block) error {
	if hash := b.ComputeHash(); hash != b.Hash {
		return fmt.Errorf("%w: blk[%d]: got %s, exp %s", ErrHashMismatch, b.Number, b.Hash, hash)
	}

	if b.PrevBlockHash != parent.Hash {
		return fmt.Errorf("%w: blk[%d]: got %s, exp %s", ErrBrokenLink, b.Number, b.PrevBlockHash, parent.Hash)
	}

	return nil
}

// =============================================================================

// MineArgs represents the set of arguments required to mine a block.
type MineArgs struct {
	Difficulty  uint                        // Number of leading hex 0's required.
	Workers     int                         // Number of G's searching, 1 or less is sequential.
	MaxAttempts uint64                      // Attempt budget, 0 means unbounded.
	EvHandler   func(v string, args ...any) // Optional observer.
}

// Mine performs the work of finding a nonce whose hash has Difficulty leading
// zeros. The nonce and hash are updated in place. A cancelled context
// returns ErrMiningCancelled and an exhausted budget returns ErrNonceNotFound.
func (b *Block) Mine(ctx context.Context, args MineArgs) error {
	ev := func(v string, args ...any) {}
	if args.EvHandler != nil {
		ev = args.EvHandler
	}

	if args.Difficulty > maxDifficulty {
		return fmt.Errorf("%w: %d, max %d", ErrDifficultyRange, args.Difficulty, maxDifficulty)
	}

	trans, err := encodeTrans(b.Trans)
	if err != nil {
		return fmt.Errorf("encoding transactions: %w", err)
	}

	// The current nonce may already solve the puzzle, always true for a
	// difficulty of zero.
	b.Hash = b.hashWith(trans)
	if IsHashSolved(args.Difficulty, b.Hash) {
		ev("Block mined: %s", b.Hash)
		return nil
	}

	if args.Workers > 1 {
		err = b.mineParallel(ctx, args, trans)
	} else {
		err = b.mineSequential(ctx, args, trans)
	}
	if err != nil {
		ev("database: Mine: blk[%d]: MINING: %s", b.Number, err)
		return err
	}

	ev("Block mined: %s", b.Hash)

	return nil
}

// mineSequential increments the nonce one at a time. The stored hash always
// matches the stored nonce when this returns.
func (b *Block) mineSequential(ctx context.Context, args MineArgs, trans json.RawMessage) error {
	var attempts uint64
	for {
		attempts++
		if args.MaxAttempts > 0 && attempts > args.MaxAttempts {
			return fmt.Errorf("%w: attempts[%d]", ErrNonceNotFound, args.MaxAttempts)
		}

		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrMiningCancelled, err)
		}

		b.Nonce++
		b.Hash = b.hashWith(trans)
		if IsHashSolved(args.Difficulty, b.Hash) {
			return nil
		}
	}
}

// mineParallel has each G search a disjoint stride of nonces. The first G to
// find a solution cancels the others.
func (b *Block) mineParallel(ctx context.Context, args MineArgs, trans json.RawMessage) error {
	type solution struct {
		nonce uint64
		hash  string
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	found := make(chan solution, 1)
	workers := uint64(args.Workers)
	start := b.Nonce + 1

	var attempts atomic.Uint64
	var wg sync.WaitGroup
	wg.Add(args.Workers)

	for i := range workers {
		go func(nb Block) {
			defer wg.Done()

			for nb.Nonce = start + i; ; nb.Nonce += workers {
				if ctx.Err() != nil {
					return
				}

				if args.MaxAttempts > 0 && attempts.Add(1) > args.MaxAttempts {
					return
				}

				hash := nb.hashWith(trans)
				if IsHashSolved(args.Difficulty, hash) {
					select {
					case found <- solution{nonce: nb.Nonce, hash: hash}:
						cancel()
					default:
					}
					return
				}
			}
		}(*b)
	}

	wg.Wait()

	select {
	case s := <-found:
		b.Nonce = s.nonce
		b.Hash = s.hash
		return nil
	default:
	}

	// Without a solution, the local cancel was never called so a context
	// error belongs to the caller.
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrMiningCancelled, err)
	}

	return fmt.Errorf("%w: attempts[%d]", ErrNonceNotFound, args.MaxAttempts)
}

// =============================================================================

// IsHashSolved checks the hash to make sure it complies with the POW rules.
// We need to match a difficulty number of 0's.
func IsHashSolved(difficulty uint, hash string) bool {
	if difficulty > maxDifficulty || len(hash) < int(difficulty) {
		return false
	}

	return strings.Count(hash[:difficulty], "0") == int(difficulty)
}

// blockEncoding is the canonical layout of a block that is hashed. Changing
// this layout requires bumping EncodingVersion.
type blockEncoding struct {
	Version       int             `json:"v"`
	Number        uint64          `json:"number"`
	TimeStamp     int64           `json:"timestamp"`
	PrevBlockHash string          `json:"prev_block_hash"`
	Nonce         uint64          `json:"nonce"`
	Node          *uint64         `json:"node"`
	Trans         json.RawMessage `json:"trans"`
}

// hashWith hashes the block using the already encoded transactions. Mining
// only changes the nonce so the transactions are encoded once.
func (b Block) hashWith(trans json.RawMessage) string {
	return signature.Hash(blockEncoding{
		Version:       EncodingVersion,
		Number:        b.Number,
		TimeStamp:     b.TimeStamp,
		PrevBlockHash: b.PrevBlockHash,
		Nonce:         b.Nonce,
		Node:          b.Node,
		Trans:         trans,
	})
}

// encodeTrans encodes the transactions in order as a json array. No
// transactions encode as an empty array.
func encodeTrans(trans []Tx) (json.RawMessage, error) {
	encs := make([]txEncoding, len(trans))
	for i, tx := range trans {
		encs[i] = tx.encoding()
	}

	return json.Marshal(encs)
}
