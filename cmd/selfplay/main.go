// Command selfplay runs the self-play training supervisor against a
// config file: it spawns actor and rating-evaluator threads and runs
// the learner loop until max_steps (or until interrupted), persisting
// checkpoints, the replay buffer, and per-thread logs under the
// config's "path" directory.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattrek/alphazero-stochastic/internal/supervisor"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the run's configuration file")
	flag.Parse()

	sup, err := supervisor.New(*configPath)
	if err != nil {
		log.Fatalf("selfplay: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("selfplay: received shutdown signal, stopping")
		sup.Stop()
	}()

	if err := sup.Run(); err != nil {
		log.Fatalf("selfplay: %v", err)
	}
}
