// Package commands contains the functionality for the set of commands
// currently supported by the admin tool.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ardanlabs/scalefree/foundation/blockchain/database"
	"github.com/ardanlabs/scalefree/foundation/blockchain/genesis"
	"github.com/ardanlabs/scalefree/foundation/blockchain/ledger"
	"github.com/ardanlabs/scalefree/foundation/blockchain/topology"
	"go.uber.org/zap"
)

// Factory constructs a fresh ledger for a measurement.
type Factory func() (*ledger.Ledger, error)

// PlainLedger returns a factory for ledgers without a topology.
func PlainLedger(gen genesis.Genesis) Factory {
	return func() (*ledger.Ledger, error) {
		return ledger.New(ledger.Config{Genesis: gen})
	}
}

// ScaleFreeLedger returns a factory for ledgers that grow a scale-free
// topology with the chain.
func ScaleFreeLedger(gen genesis.Genesis) Factory {
	return func() (*ledger.Ledger, error) {
		return ledger.New(ledger.Config{
			Genesis:  gen,
			Topology: topology.New(gen.InitialNodes),
		})
	}
}

// Measurement is the result of submitting and mining one transaction per
// cycle against a ledger.
type Measurement struct {
	Name       string
	Cycles     int
	Elapsed    time.Duration
	Throughput float64 // Transactions per second.
	Latency    float64 // Seconds per transaction.
	Blocks     int
	Valid      bool
}

// Measure runs the specified number of submit and mine cycles against a
// ledger built by the factory.
func Measure(ctx context.Context, name string, factory Factory, cycles int) (Measurement, error) {
	if cycles < 1 {
		return Measurement{}, errors.New("cycles must be positive")
	}

	l, err := factory()
	if err != nil {
		return Measurement{}, fmt.Errorf("constructing %s ledger: %w", name, err)
	}

	start := time.Now()
	for i := range cycles {
		l.Submit(database.NewTx("Sender", "Recipient", 10))
		if _, err := l.MinePending(ctx, "Miner"); err != nil {
			return Measurement{}, fmt.Errorf("%s ledger: cycle[%d]: %w", name, i, err)
		}
	}
	elapsed := time.Since(start)

	return Measurement{
		Name:       name,
		Cycles:     cycles,
		Elapsed:    elapsed,
		Throughput: float64(cycles) / elapsed.Seconds(),
		Latency:    elapsed.Seconds() / float64(cycles),
		Blocks:     l.Length(),
		Valid:      l.IsValid(),
	}, nil
}

// Bench compares a plain ledger with a scale-free ledger.
func Bench(ctx context.Context, log *zap.SugaredLogger, w io.Writer, gen genesis.Genesis, cycles int) error {
	factories := []struct {
		name    string
		factory Factory
	}{
		{"Simple", PlainLedger(gen)},
		{"Scale-Free", ScaleFreeLedger(gen)},
	}

	for _, f := range factories {
		log.Infow("bench", "status", "started", "ledger", f.name, "cycles", cycles, "difficulty", gen.Difficulty)

		m, err := Measure(ctx, f.name, f.factory, cycles)
		if err != nil {
			return err
		}

		log.Infow("bench", "status", "completed", "ledger", f.name, "elapsed", m.Elapsed, "blocks", m.Blocks, "valid", m.Valid)

		fmt.Fprintf(w, "%s Blockchain - Throughput: %.2f tx/s, Latency: %.6f s/tx\n", m.Name, m.Throughput, m.Latency)
	}

	return nil
}
