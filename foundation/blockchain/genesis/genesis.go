// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ardanlabs/scalefree/foundation/validate"
)

// Genesis represents the genesis file. These values are fixed for the
// lifetime of a ledger.
type Genesis struct {
	Date          time.Time `json:"date"`                                    // Timestamp of the genesis block, zero means now.
	Difficulty    uint16    `json:"difficulty" validate:"lte=64"`            // How difficult it needs to be to solve the work problem.
	MiningReward  int64     `json:"mining_reward" validate:"gt=0"`           // Reward for mining a block.
	MiningWorkers int       `json:"mining_workers" validate:"gte=0,lte=256"` // G's searching for a nonce, 0 or 1 is sequential.
	MaxAttempts   uint64    `json:"max_attempts"`                            // Nonce attempt budget per block, 0 is unbounded.
	InitialNodes  int       `json:"initial_nodes" validate:"gte=0"`          // Size of the seed clique of the peer topology.
	EdgesPerNode  int       `json:"edges_per_node" validate:"gte=1"`         // Edges drawn for every node added to the topology.
}

// Default returns the genesis values used when no file is provided.
func Default() Genesis {
	return Genesis{
		Difficulty:    2,
		MiningReward:  10,
		MiningWorkers: 1,
		InitialNodes:  3,
		EdgesPerNode:  1,
	}
}

// Validate checks the genesis values are usable.
func (g Genesis) Validate() error {
	if err := validate.Check(g); err != nil {
		return fmt.Errorf("genesis: %w", err)
	}

	return nil
}

// =============================================================================

// Load opens and consumes the genesis file. Values missing from the file
// keep their defaults.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	genesis := Default()
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, err
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}
