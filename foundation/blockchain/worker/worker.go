// Package worker implements background mining of the pending transactions
// for the node.
package worker

import (
	"sync"
	"time"

	"github.com/ardanlabs/scalefree/foundation/blockchain/database"
	"github.com/ardanlabs/scalefree/foundation/blockchain/ledger"
)

// Config represents the configuration required to start a worker.
type Config struct {
	Ledger    *ledger.Ledger
	RewardTo  string
	Interval  time.Duration // How often pending transactions are checked, 0 turns the ticker off.
	EvHandler ledger.EventHandler
}

// Worker manages the POW workflow for the ledger.
type Worker struct {
	ledger       *ledger.Ledger
	rewardTo     string
	wg           sync.WaitGroup
	ticker       *time.Ticker
	shut         chan struct{}
	startMining  chan bool
	cancelMining chan bool
	evHandler    ledger.EventHandler
}

// Run creates a worker and starts up all the background processes.
func Run(cfg Config) *Worker {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	w := Worker{
		ledger:       cfg.Ledger,
		rewardTo:     cfg.RewardTo,
		shut:         make(chan struct{}),
		startMining:  make(chan bool, 1),
		cancelMining: make(chan bool, 1),
		evHandler:    ev,
	}

	// Load the set of operations we need to run.
	operations := []func(){
		w.miningOperations,
	}

	if cfg.Interval > 0 {
		w.ticker = time.NewTicker(cfg.Interval)
		operations = append(operations, w.tickerOperations)
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for range g {
		<-hasStarted
	}

	return &w
}

// =============================================================================

// Shutdown terminates the goroutines performing work. A block being mined
// is abandoned and the ledger is left unchanged.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	if w.ticker != nil {
		w.evHandler("worker: shutdown: stop ticker")
		w.ticker.Stop()
	}

	w.evHandler("worker: shutdown: signal cancel mining")
	w.SignalCancelMining()

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()
}

// SignalStartMining starts a mining operation. If there is already a signal
// pending in the channel, just return since a mining operation will start.
func (w *Worker) SignalStartMining() {
	select {
	case w.startMining <- true:
	default:
	}
	w.evHandler("worker: SignalStartMining: mining signaled")
}

// SignalCancelMining signals the G executing the runMiningOperation function
// to stop immediately.
func (w *Worker) SignalCancelMining() {
	select {
	case w.cancelMining <- true:
	default:
	}
	w.evHandler("worker: SignalCancelMining: MINING: CANCEL: signaled")
}

// =============================================================================

// tickerOperations signals mining whenever user transactions are waiting.
func (w *Worker) tickerOperations() {
	w.evHandler("worker: tickerOperations: G started")
	defer w.evHandler("worker: tickerOperations: G completed")

	for {
		select {
		case <-w.ticker.C:
			if !w.isShutdown() && hasUserTx(w.ledger.Pending()) {
				w.SignalStartMining()
			}
		case <-w.shut:
			w.evHandler("worker: tickerOperations: received shut signal")
			return
		}
	}
}

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}

// hasUserTx reports if any pending transaction was submitted by a user. A
// pool holding only the reward does not warrant a new block.
func hasUserTx(trans []database.Tx) bool {
	for _, tx := range trans {
		if !tx.Reward {
			return true
		}
	}
	return false
}
