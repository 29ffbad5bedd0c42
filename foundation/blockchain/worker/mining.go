package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ardanlabs/scalefree/foundation/blockchain/database"
	"github.com/ardanlabs/scalefree/foundation/blockchain/ledger"
)

// miningOperations handles mining.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	for {
		select {
		case <-w.startMining:
			if !w.isShutdown() {
				w.runMiningOperation()
			}
		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}
	}
}

// runMiningOperation mines the pending transactions into a new block.
func (w *Worker) runMiningOperation() {
	w.evHandler("worker: runMiningOperation: MINING: started")
	defer w.evHandler("worker: runMiningOperation: MINING: completed")

	// Make sure there are transactions in the mempool.
	length := w.ledger.PendingCount()
	if length == 0 {
		w.evHandler("worker: runMiningOperation: MINING: no transactions to mine: Txs[%d]", length)
		return
	}

	// Drain the cancel mining channel before starting.
	select {
	case <-w.cancelMining:
		w.evHandler("worker: runMiningOperation: MINING: drained cancel channel")
	default:
	}

	// Create a context so mining can be cancelled.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Can't return from this function until these G's are complete.
	var wg sync.WaitGroup
	wg.Add(2)

	// This G exists to cancel the mining operation.
	go func() {
		defer func() {
			cancel()
			wg.Done()
		}()

		select {
		case <-w.cancelMining:
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: requested")
		case <-w.shut:
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: shutdown")
		case <-ctx.Done():
		}
	}()

	// This G is performing the mining.
	var result ledger.Result
	go func() {
		defer func() {
			cancel()
			wg.Done()
		}()

		t := time.Now()
		res, err := w.ledger.MinePending(ctx, w.rewardTo)
		duration := time.Since(t)

		w.evHandler("worker: runMiningOperation: MINING: mining duration[%v]", duration)

		if err != nil {
			switch {
			case errors.Is(err, database.ErrMiningCancelled):
				w.evHandler("worker: runMiningOperation: MINING: CANCEL: complete")
			default:
				w.evHandler("worker: runMiningOperation: MINING: ERROR: %s", err)
			}
			return
		}

		result = res
	}()

	// Wait for both G's to terminate.
	wg.Wait()

	switch result.Status {
	case ledger.StatusMined:
		w.evHandler("worker: runMiningOperation: MINING: blk[%d]: rejected[%d]", result.Block.Number, len(result.Rejected))

		// Transactions submitted while mining need a block of their own.
		if hasUserTx(w.ledger.Pending()) {
			w.evHandler("worker: runMiningOperation: MINING: signal new mining operation")
			w.SignalStartMining()
		}

	case ledger.StatusNoValidTransactions:
		w.evHandler("worker: runMiningOperation: MINING: WARNING: no valid transactions: rejected[%d]", len(result.Rejected))
	}
}
