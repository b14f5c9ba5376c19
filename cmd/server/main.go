package main

import (
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"broadphase/internal/api"
	"broadphase/internal/config"
	"broadphase/internal/geom"
	"broadphase/internal/sim"
	"broadphase/internal/stats"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("no .env file found, using environment variables only")
	}

	log.Println("================================")
	log.Println(" BROADPHASE - SIMULATION SERVER")
	log.Println("================================")

	// Load centralized configuration (SSOT - Single Source of Truth)
	cfg := config.Load()

	log.Printf("world: %gx%g at %d TPS", cfg.World.Width, cfg.World.Height, cfg.World.TickRate)
	log.Printf("index: cell size %g (min %g), density threshold %d, occupancy target %g",
		cfg.Index.DefaultCellSize, cfg.Index.MinCellSize,
		cfg.Index.DensityThreshold, cfg.Index.OccupancyTarget)
	log.Printf("limits: %d entities, %d spawn per call, %d ws connections",
		cfg.Limits.MaxEntities, cfg.Limits.MaxSpawnPerCall, cfg.Limits.MaxWSConnections)

	engine := sim.NewEngine(cfg.World, cfg.Index, cfg.Limits)

	// World border as static map tiles so colliders with map interaction
	// have something to hit at the edges.
	addWorldBorder(engine, cfg.World)

	// Initial population
	initial := getEnvInt("SPAWN_INITIAL", 200)
	if initial > 0 {
		spawned := engine.SpawnRandom(initial)
		log.Printf("spawned %d initial entities", spawned)
	}

	// Optional sqlite tick-stats recorder
	var recorder *stats.Recorder
	if cfg.Stats.Path != "" {
		var err error
		recorder, err = stats.Open(cfg.Stats.Path, cfg.Stats.FlushInterval)
		if err != nil {
			log.Printf("stats recording disabled: %v", err)
		} else {
			log.Printf("stats recording to %s", cfg.Stats.Path)
		}
	}

	// Debug server (pprof + prometheus), localhost only by default
	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		debugCfg := api.DefaultObservabilityConfig()
		debugCfg.ListenAddr = cfg.Server.DebugAddr
		if err := api.StartDebugServer(debugCfg); err != nil {
			log.Printf("debug server disabled: %v", err)
		}
	}

	server := api.NewServer(engine, cfg.Limits)
	hub := server.Hub()

	// Per-tick fanout: metrics, live websocket feed, stats recording.
	engine.SetTickCallback(func(snap sim.TickSnapshot) {
		api.RecordTick(time.Duration(snap.TickMicros) * time.Microsecond)
		api.UpdateIndexStats(snap.Entities, snap.Pairs, snap.Bins, snap.Regions, snap.MaxBin, snap.CellSize)
		hub.BroadcastSnapshot(snap)
		if recorder != nil {
			recorder.Record(snap)
		}
	})

	engine.Start()
	log.Println("engine started")

	go func() {
		addr := ":" + strconv.Itoa(cfg.Server.Port)
		if err := server.Start(addr); err != nil {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("server ready, press Ctrl+C to stop")
	<-quit

	log.Println("shutting down...")
	server.Stop()
	engine.Stop()
	if recorder != nil {
		recorder.Close()
	}
}

// addWorldBorder places a ring of map tiles just inside the world edges.
func addWorldBorder(engine *sim.Engine, world config.WorldConfig) {
	const thickness = 16.0
	engine.AddMapTile(geom.Rect{X: 0, Y: 0, Width: world.Width, Height: thickness})
	engine.AddMapTile(geom.Rect{X: 0, Y: world.Height - thickness, Width: world.Width, Height: thickness})
	engine.AddMapTile(geom.Rect{X: 0, Y: thickness, Width: thickness, Height: world.Height - 2*thickness})
	engine.AddMapTile(geom.Rect{X: world.Width - thickness, Y: thickness, Width: thickness, Height: world.Height - 2*thickness})
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
