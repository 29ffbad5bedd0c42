package worker_test

import (
	"testing"
	"time"

	"github.com/ardanlabs/scalefree/foundation/blockchain/database"
	"github.com/ardanlabs/scalefree/foundation/blockchain/genesis"
	"github.com/ardanlabs/scalefree/foundation/blockchain/ledger"
	"github.com/ardanlabs/scalefree/foundation/blockchain/worker"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func newLedger(t *testing.T, difficulty uint16) *ledger.Ledger {
	gen := genesis.Default()
	gen.Difficulty = difficulty

	l, err := ledger.New(ledger.Config{Genesis: gen})
	if err != nil {
		t.Fatalf("Should be able to construct a ledger: %v", err)
	}

	return l
}

// waitFor polls until the condition is true or the timeout passes.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func Test_Mining(t *testing.T) {
	t.Log("Given the need to mine in the background.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen mining is signaled.", testID)
		{
			l := newLedger(t, 1)
			w := worker.Run(worker.Config{Ledger: l, RewardTo: "Miner"})
			defer w.Shutdown()

			l.Submit(database.NewTx("A", "B", 5))
			w.SignalStartMining()

			if !waitFor(5*time.Second, func() bool { return l.Length() == 2 }) {
				t.Fatalf("\t%s\tTest %d:\tShould mine a block: %d", failed, testID, l.Length())
			}
			t.Logf("\t%s\tTest %d:\tShould mine a block.", success, testID)

			time.Sleep(50 * time.Millisecond)
			if l.Length() != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould not mine the reward on its own: %d", failed, testID, l.Length())
			}
			t.Logf("\t%s\tTest %d:\tShould not mine the reward on its own.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the ticker finds pending transactions.", testID)
		{
			l := newLedger(t, 1)
			w := worker.Run(worker.Config{Ledger: l, RewardTo: "Miner", Interval: 10 * time.Millisecond})
			defer w.Shutdown()

			l.Submit(database.NewTx("A", "B", 5))

			if !waitFor(5*time.Second, func() bool { return l.Length() == 2 }) {
				t.Fatalf("\t%s\tTest %d:\tShould mine without a signal: %d", failed, testID, l.Length())
			}
			t.Logf("\t%s\tTest %d:\tShould mine without a signal.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen shutdown happens during mining.", testID)
		{
			l := newLedger(t, 64)
			w := worker.Run(worker.Config{Ledger: l, RewardTo: "Miner"})

			l.Submit(database.NewTx("A", "B", 5))
			w.SignalStartMining()
			time.Sleep(50 * time.Millisecond)

			done := make(chan struct{})
			go func() {
				w.Shutdown()
				close(done)
			}()

			select {
			case <-done:
			case <-time.After(5 * time.Second):
				t.Fatalf("\t%s\tTest %d:\tShould stop mining on shutdown.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould stop mining on shutdown.", success, testID)

			if l.Length() != 1 || l.PendingCount() != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould leave the ledger unchanged.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould leave the ledger unchanged.", success, testID)
		}
	}
}
