/*
flowforge-demo runs a genetic search for a congestion-control policy over
randomly sampled networks and serves its live progress on a single websocket
page, the way tabular's main/server pair trains a grid-world value function
and visualizes it in realtime. Swap the controller config field to switch
between optimizing a DelayMultiplier's single scalar and growing a RuleTree's
octree of per-region actions.
*/
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"flowforge/cmd/flowforge-demo/liveview"
	"flowforge/quantities"
	"flowforge/rng"
	"flowforge/trainer"
)

var (
	configPath = flag.String("config", "./config.yaml", "path to the training config")
	addr       = flag.String("addr", "", "override the liveview server address from config")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	updates := make(chan liveview.Update, 64)
	srv := liveview.NewServer(cfg.Addr, updates)
	go func() {
		if err := srv.Serve(); err != nil {
			log.Println("liveview server stopped:", err)
		}
	}()

	r := rng.New(cfg.Seed)
	networkConfig := cfg.networkConfig()
	utility := cfg.utilityFunction()

	var best trainer.Dna
	switch cfg.Controller {
	case "ruletree":
		search := trainer.NewGeneticTrainer[trainer.RuleTreeDna](cfg.geneticConfig())
		best = search.Train(trainer.NewRandomRuleTreeDna, networkConfig, utility, progressBridge[trainer.RuleTreeDna](updates), r)
	case "delaymultiplier", "":
		search := trainer.NewGeneticTrainer[trainer.DelayMultiplierDna](cfg.geneticConfig())
		best = search.Train(trainer.NewRandomDelayMultiplierDna, networkConfig, utility, progressBridge[trainer.DelayMultiplierDna](updates), r)
	default:
		return fmt.Errorf("unknown controller %q", cfg.Controller)
	}

	return saveDna(best)
}

// progressBridge adapts a trainer.ProgressHandler into updates pushed onto a
// liveview channel. Updates are dropped, not blocked on, so a slow or absent
// viewer never stalls training. Generation counts finished generations: the
// trainer passes a non-nil best exactly once per finished generation.
func progressBridge[D trainer.Dna](updates chan<- liveview.Update) trainer.ProgressHandler[D] {
	generation := 0
	return trainer.ProgressHandlerFunc[D](func(frac quantities.Float, best *D) {
		if best != nil {
			generation++
		}
		update := liveview.Update{FracComplete: float64(frac), Generation: generation}
		if best != nil {
			update.BestName = (*best).Name()
			if buf, err := (*best).Serialize(); err == nil {
				update.BestDna = buf
			}
		}
		select {
		case updates <- update:
		default:
		}
	})
}

func saveDna(d trainer.Dna) error {
	buf, err := d.Serialize()
	if err != nil {
		return fmt.Errorf("serializing trained genome: %w", err)
	}
	path := d.Name() + ".trained"
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	log.Printf("wrote trained genome to %s", path)
	return nil
}
