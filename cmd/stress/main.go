// Headless stress runner: drives the tick loop without the HTTP surface
// and prints index statistics. Useful for profiling cell-size behavior
// against different populations.
//
// Usage:
//
//	go run ./cmd/stress -entities 5000 -ticks 600
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"broadphase/internal/config"
	"broadphase/internal/sim"
)

func main() {
	entities := flag.Int("entities", 2000, "number of entities to spawn")
	ticks := flag.Int("ticks", 300, "number of ticks to run")
	report := flag.Int("report", 50, "print stats every N ticks")
	flag.Parse()

	cfg := config.Load()
	engine := sim.NewEngine(cfg.World, cfg.Index, cfg.Limits)

	// Spawn in chunks to respect the per-call cap.
	remaining := *entities
	for remaining > 0 {
		n := remaining
		if n > cfg.Limits.MaxSpawnPerCall {
			n = cfg.Limits.MaxSpawnPerCall
		}
		spawned := engine.SpawnRandom(n)
		if spawned == 0 {
			log.Printf("entity cap reached at %d", engine.EntityCount())
			break
		}
		remaining -= spawned
	}
	log.Printf("running %d ticks with %d entities", *ticks, engine.EntityCount())

	start := time.Now()
	var totalPairs int
	for i := 1; i <= *ticks; i++ {
		engine.Tick()
		snap := engine.Snapshot()
		totalPairs += snap.Pairs

		if *report > 0 && i%*report == 0 {
			fmt.Printf("tick %5d: %6d pairs  %5d bins  %3d regions  cell=%g  max_bin=%d  %dus\n",
				snap.Tick, snap.Pairs, snap.Bins, snap.Regions,
				snap.CellSize, snap.MaxBin, snap.TickMicros)
		}
	}
	elapsed := time.Since(start)

	snap := engine.Snapshot()
	fmt.Println("----------------------------------------")
	fmt.Printf("ticks:       %d in %v (%.2fms avg)\n",
		*ticks, elapsed.Round(time.Millisecond), float64(elapsed.Milliseconds())/float64(*ticks))
	fmt.Printf("entities:    %d\n", snap.Entities)
	fmt.Printf("avg pairs:   %.1f\n", float64(totalPairs)/float64(*ticks))
	fmt.Printf("final cell:  %g\n", snap.CellSize)
	fmt.Printf("bins:        %d (max occupancy %d)\n", snap.Bins, snap.MaxBin)
	fmt.Printf("regions:     %d\n", snap.Regions)
}
