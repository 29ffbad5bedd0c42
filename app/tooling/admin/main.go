// This program performs administrative tasks for the scale-free ledger.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/scalefree/app/tooling/admin/commands"
	"github.com/ardanlabs/scalefree/foundation/blockchain/genesis"
	"github.com/ardanlabs/scalefree/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

type config struct {
	conf.Version
	Args  conf.Args
	Bench struct {
		Cycles      int    `conf:"default:100"`
		GenesisPath string `conf:"help:genesis file, defaults are used when empty"`
		Difficulty  uint16 `conf:"default:2"`
	}
	Topology struct {
		Initial      int `conf:"default:3"`
		Nodes        int `conf:"default:1000"`
		EdgesPerNode int `conf:"default:2"`
	}
}

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN", "stderr")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	cfg := config{
		Version: conf.Version{
			Build: build,
			Desc:  "scale-free ledger admin tooling",
		},
	}

	const prefix = "ADMIN"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	return processCommands(log, cfg)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(log *zap.SugaredLogger, cfg config) error {
	switch cfg.Args.Num(0) {
	case "bench":
		gen := genesis.Default()
		gen.Difficulty = cfg.Bench.Difficulty
		if cfg.Bench.GenesisPath != "" {
			var err error
			if gen, err = genesis.Load(cfg.Bench.GenesisPath); err != nil {
				return fmt.Errorf("loading genesis: %w", err)
			}
		}

		if err := commands.Bench(context.Background(), log, os.Stdout, gen, cfg.Bench.Cycles); err != nil {
			return fmt.Errorf("running bench: %w", err)
		}

	case "topology":
		commands.Topology(os.Stdout, cfg.Topology.Initial, cfg.Topology.Nodes, cfg.Topology.EdgesPerNode)

	default:
		fmt.Println("bench:    compare the throughput and latency of a simple and a scale-free ledger")
		fmt.Println("topology: grow a scale-free topology and print its hubs")
		fmt.Println("provide a command to get more help.")
	}

	return nil
}
