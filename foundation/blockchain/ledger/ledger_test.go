package ledger_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ardanlabs/scalefree/foundation/blockchain/database"
	"github.com/ardanlabs/scalefree/foundation/blockchain/genesis"
	"github.com/ardanlabs/scalefree/foundation/blockchain/ledger"
	"github.com/ardanlabs/scalefree/foundation/blockchain/topology"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func newLedger(t *testing.T, gen genesis.Genesis, top *topology.Network) *ledger.Ledger {
	l, err := ledger.New(ledger.Config{
		Genesis:  gen,
		Topology: top,
		EvHandler: func(v string, args ...any) {
			if strings.HasPrefix(v, "Block mined") {
				t.Logf(v, args...)
			}
		},
	})
	if err != nil {
		t.Fatalf("Should be able to construct a ledger: %v", err)
	}

	return l
}

// =============================================================================

func Test_MinePending(t *testing.T) {
	t.Log("Given the need to mine pending transactions.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the pending pool is empty.", testID)
		{
			l := newLedger(t, genesis.Default(), nil)

			res, err := l.MinePending(context.Background(), "Miner")
			if err != nil || res.Status != ledger.StatusEmptyPool {
				t.Fatalf("\t%s\tTest %d:\tShould report an empty pool: %v %v", failed, testID, res.Status, err)
			}
			t.Logf("\t%s\tTest %d:\tShould report an empty pool.", success, testID)

			if l.Length() != 1 || l.PendingCount() != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould leave the ledger unchanged: %d %d", failed, testID, l.Length(), l.PendingCount())
			}
			t.Logf("\t%s\tTest %d:\tShould leave the ledger unchanged.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen mining a valid transaction.", testID)
		{
			l := newLedger(t, genesis.Default(), nil)
			tx := database.NewTx("Sender", "Recipient", 10)
			l.Submit(tx)

			res, err := l.MinePending(context.Background(), "Miner")
			if err != nil || res.Status != ledger.StatusMined {
				t.Fatalf("\t%s\tTest %d:\tShould mine a block: %v %v", failed, testID, res.Status, err)
			}
			t.Logf("\t%s\tTest %d:\tShould mine a block.", success, testID)

			if l.Length() != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould append the block: %d", failed, testID, l.Length())
			}
			t.Logf("\t%s\tTest %d:\tShould append the block.", success, testID)

			tip := l.LatestBlock()
			if tip.Hash != res.Block.Hash || !strings.HasPrefix(tip.Hash, "00") {
				t.Fatalf("\t%s\tTest %d:\tShould satisfy the difficulty: %s", failed, testID, tip.Hash)
			}
			t.Logf("\t%s\tTest %d:\tShould satisfy the difficulty.", success, testID)

			gen, _ := l.GetBlock(0)
			if tip.Number != 1 || tip.PrevBlockHash != gen.Hash || len(tip.Trans) != 1 || tip.Trans[0] != tx {
				t.Fatalf("\t%s\tTest %d:\tShould link the block to genesis with the transaction: %+v", failed, testID, tip)
			}
			t.Logf("\t%s\tTest %d:\tShould link the block to genesis with the transaction.", success, testID)

			pending := l.Pending()
			reward := database.NewRewardTx("Miner", l.MiningReward())
			if len(pending) != 1 || pending[0] != reward || pending[0].From != "" {
				t.Fatalf("\t%s\tTest %d:\tShould reset the pool to the reward: %v", failed, testID, pending)
			}
			t.Logf("\t%s\tTest %d:\tShould reset the pool to the reward.", success, testID)

			if !l.IsValid() {
				t.Fatalf("\t%s\tTest %d:\tShould have a valid chain.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould have a valid chain.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen no pending transaction is valid.", testID)
		{
			l := newLedger(t, genesis.Default(), nil)
			l.Submit(database.NewTx("A", "B", 0))
			l.Submit(database.NewTx("", "B", 5))

			res, err := l.MinePending(context.Background(), "Miner")
			if err != nil || res.Status != ledger.StatusNoValidTransactions {
				t.Fatalf("\t%s\tTest %d:\tShould report no valid transactions: %v %v", failed, testID, res.Status, err)
			}
			t.Logf("\t%s\tTest %d:\tShould report no valid transactions.", success, testID)

			if len(res.Rejected) != 2 || !errors.Is(res.Rejected[0].Err, database.ErrInvalidAmount) || !errors.Is(res.Rejected[1].Err, database.ErrMissingSender) {
				t.Fatalf("\t%s\tTest %d:\tShould give the rejection reasons: %v", failed, testID, res.Rejected)
			}
			t.Logf("\t%s\tTest %d:\tShould give the rejection reasons.", success, testID)

			if l.Length() != 1 || l.PendingCount() != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould leave the ledger unchanged: %d %d", failed, testID, l.Length(), l.PendingCount())
			}
			t.Logf("\t%s\tTest %d:\tShould leave the ledger unchanged.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen valid and invalid transactions are pending.", testID)
		{
			l := newLedger(t, genesis.Default(), nil)
			l.Submit(database.NewTx("A", "B", 5))
			l.Submit(database.NewTx("A", "", 5))
			l.Submit(database.NewTx("B", "C", 7))

			res, err := l.MinePending(context.Background(), "Miner")
			if err != nil || res.Status != ledger.StatusMined {
				t.Fatalf("\t%s\tTest %d:\tShould mine a block: %v %v", failed, testID, res.Status, err)
			}

			if len(res.Block.Trans) != 2 || res.Block.Trans[1].Value != 7 {
				t.Fatalf("\t%s\tTest %d:\tShould only mine the valid transactions in order: %v", failed, testID, res.Block.Trans)
			}
			t.Logf("\t%s\tTest %d:\tShould only mine the valid transactions in order.", success, testID)

			if len(res.Rejected) != 1 || !errors.Is(res.Rejected[0].Err, database.ErrMissingRecipient) {
				t.Fatalf("\t%s\tTest %d:\tShould report the rejected transaction: %v", failed, testID, res.Rejected)
			}
			t.Logf("\t%s\tTest %d:\tShould report the rejected transaction.", success, testID)

			if l.PendingCount() != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould drop the rejected transaction: %v", failed, testID, l.Pending())
			}
			t.Logf("\t%s\tTest %d:\tShould drop the rejected transaction.", success, testID)
		}
	}
}

func Test_RewardPolicy(t *testing.T) {
	t.Log("Given the need to mine reward transactions left in the pool.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the pool only holds the reward.", testID)
		{
			l := newLedger(t, genesis.Default(), nil)

			if !l.Validate(database.NewRewardTx("Miner", 10)) {
				t.Fatalf("\t%s\tTest %d:\tShould consider a reward transaction valid.", failed, testID)
			}
			if l.Validate(database.NewTx("", "Miner", 10)) {
				t.Fatalf("\t%s\tTest %d:\tShould not consider an unflagged missing sender valid.", failed, testID)
			}
			if err := l.ValidateReason(database.NewTx("A", "B", 0)); !errors.Is(err, database.ErrInvalidAmount) {
				t.Fatalf("\t%s\tTest %d:\tShould give the reason for an invalid amount: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould validate with the reward flag policy.", success, testID)

			l.Submit(database.NewTx("A", "B", 5))
			if _, err := l.MinePending(context.Background(), "Miner"); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould mine the first block: %v", failed, testID, err)
			}

			res, err := l.MinePending(context.Background(), "Miner")
			if err != nil || res.Status != ledger.StatusMined {
				t.Fatalf("\t%s\tTest %d:\tShould mine the reward: %v %v", failed, testID, res.Status, err)
			}
			if len(res.Block.Trans) != 1 || !res.Block.Trans[0].Reward {
				t.Fatalf("\t%s\tTest %d:\tShould put the reward in the block: %v", failed, testID, res.Block.Trans)
			}
			t.Logf("\t%s\tTest %d:\tShould mine the reward.", success, testID)
		}
	}
}

func Test_Topology(t *testing.T) {
	t.Log("Given the need to tag blocks with topology nodes.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen a topology is attached.", testID)
		{
			top := topology.New(3, topology.WithRand(rand.New(rand.NewPCG(7, 7))))
			l := newLedger(t, genesis.Default(), top)

			gen, _ := l.GetBlock(0)
			if gen.Node == nil || *gen.Node != 3 {
				t.Fatalf("\t%s\tTest %d:\tShould assign node 3 to genesis: %v", failed, testID, gen.Node)
			}
			t.Logf("\t%s\tTest %d:\tShould assign node 3 to genesis.", success, testID)

			res, err := l.MinePending(context.Background(), "Miner")
			if err != nil || res.Status != ledger.StatusEmptyPool || top.NodeCount() != 4 {
				t.Fatalf("\t%s\tTest %d:\tShould not add a node for an empty pool: %d", failed, testID, top.NodeCount())
			}
			t.Logf("\t%s\tTest %d:\tShould not add a node for an empty pool.", success, testID)

			for i := range 5 {
				l.Submit(database.NewTx("Sender", "Recipient", 10))
				res, err := l.MinePending(context.Background(), "Miner")
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould mine block %d: %v", failed, testID, i+1, err)
				}
				if res.Block.Node == nil || *res.Block.Node != uint64(4+i) {
					t.Fatalf("\t%s\tTest %d:\tShould tag block %d with node %d: %v", failed, testID, i+1, 4+i, res.Block.Node)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould tag every block with the next node.", success, testID)

			if top.NodeCount() != 9 || top.EdgeCount() != 6+6 {
				t.Fatalf("\t%s\tTest %d:\tShould grow the topology with each block: %d %d", failed, testID, top.NodeCount(), top.EdgeCount())
			}
			t.Logf("\t%s\tTest %d:\tShould grow the topology with each block.", success, testID)

			if !l.IsValid() {
				t.Fatalf("\t%s\tTest %d:\tShould have a valid chain with the node in the hash.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould have a valid chain with the node in the hash.", success, testID)

			if l.Topology() != top {
				t.Fatalf("\t%s\tTest %d:\tShould expose the attached topology.", failed, testID)
			}
		}
	}
}

func Test_MiningAborted(t *testing.T) {
	t.Log("Given the need to bound the mining search.")
	{
		gen := genesis.Default()
		gen.Difficulty = 64

		testID := 0
		t.Logf("\tTest %d:\tWhen the context times out.", testID)
		{
			l := newLedger(t, gen, nil)
			l.Submit(database.NewTx("A", "B", 5))

			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			_, err := l.MinePending(ctx, "Miner")
			if !errors.Is(err, database.ErrMiningCancelled) {
				t.Fatalf("\t%s\tTest %d:\tShould get back a cancelled error: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould get back a cancelled error.", success, testID)

			if l.Length() != 1 || l.PendingCount() != 1 || l.Pending()[0].To != "B" {
				t.Fatalf("\t%s\tTest %d:\tShould leave the ledger unchanged.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould leave the ledger unchanged.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the attempt budget runs out.", testID)
		{
			gen.MaxAttempts = 100
			gen.MiningWorkers = 4
			l := newLedger(t, gen, nil)
			l.Submit(database.NewTx("A", "B", 5))

			_, err := l.MinePending(context.Background(), "Miner")
			if !errors.Is(err, database.ErrNonceNotFound) {
				t.Fatalf("\t%s\tTest %d:\tShould get back a not found error: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould get back a not found error.", success, testID)
		}
	}
}

func Test_ConcurrentSubmit(t *testing.T) {
	t.Log("Given the need to accept transactions while mining.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen producers submit while blocks are mined.", testID)
		{
			gen := genesis.Default()
			gen.Difficulty = 1
			l := newLedger(t, gen, nil)

			const producers, perProducer = 10, 10

			var wg sync.WaitGroup
			for range producers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for range perProducer {
						l.Submit(database.NewTx("A", "B", 1))
					}
				}()
			}

			done := make(chan struct{})
			go func() {
				wg.Wait()
				close(done)
			}()

		loop:
			for {
				select {
				case <-done:
					break loop
				default:
					if _, err := l.MinePending(context.Background(), "Miner"); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to mine: %v", failed, testID, err)
					}
				}
			}

			for hasUserTx(l.Pending()) {
				if _, err := l.MinePending(context.Background(), "Miner"); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to mine: %v", failed, testID, err)
				}
			}

			var mined int
			for _, block := range l.Blocks() {
				for _, tx := range block.Trans {
					if !tx.Reward {
						mined++
					}
				}
			}

			if mined != producers*perProducer {
				t.Fatalf("\t%s\tTest %d:\tShould mine every submitted transaction: %d", failed, testID, mined)
			}
			t.Logf("\t%s\tTest %d:\tShould mine every submitted transaction.", success, testID)

			if !l.IsValid() {
				t.Fatalf("\t%s\tTest %d:\tShould have a valid chain.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould have a valid chain.", success, testID)
		}
	}
}

func hasUserTx(trans []database.Tx) bool {
	for _, tx := range trans {
		if !tx.Reward {
			return true
		}
	}
	return false
}

func Test_New(t *testing.T) {
	t.Log("Given the need to construct a ledger.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the genesis values are invalid.", testID)
		{
			gen := genesis.Default()
			gen.MiningReward = 0

			if _, err := ledger.New(ledger.Config{Genesis: gen}); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould reject a zero mining reward.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a zero mining reward.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the genesis date is set.", testID)
		{
			gen := genesis.Default()
			gen.Date = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

			l1 := newLedger(t, gen, nil)
			l2 := newLedger(t, gen, nil)

			if l1.LatestBlock().Hash != l2.LatestBlock().Hash {
				t.Fatalf("\t%s\tTest %d:\tShould produce the same genesis block.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould produce the same genesis block.", success, testID)

			if l1.Length() != 1 || !l1.IsValid() || l1.Difficulty() != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould start with a valid genesis only chain.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould start with a valid genesis only chain.", success, testID)
		}
	}
}
