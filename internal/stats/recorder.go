// Package stats provides an optional sqlite recorder for per-tick index
// statistics. Recording is fully asynchronous: the tick loop enqueues
// snapshots on a buffered channel and a background writer batches them into
// the database, so a slow disk never stalls a tick.
package stats

import (
	"database/sql"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"broadphase/internal/sim"
)

const schema = `
CREATE TABLE IF NOT EXISTS ticks (
	tick INTEGER NOT NULL,
	entities INTEGER NOT NULL,
	pairs INTEGER NOT NULL,
	bins INTEGER NOT NULL,
	regions INTEGER NOT NULL,
	cell_size REAL NOT NULL,
	max_bin INTEGER NOT NULL,
	tick_us INTEGER NOT NULL,
	recorded_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ticks_tick ON ticks(tick);
`

// Recorder persists tick snapshots with batched background writes.
type Recorder struct {
	db      *sql.DB
	snaps   chan sim.TickSnapshot
	stop    chan struct{}
	wg      sync.WaitGroup
	flush   time.Duration
	dropped uint64
	mu      sync.Mutex
}

// Open creates (or opens) the stats database and starts the writer.
func Open(path string, flushInterval time.Duration) (*Recorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// WAL keeps the writer from blocking readers inspecting the file.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	r := &Recorder{
		db:    db,
		snaps: make(chan sim.TickSnapshot, 1024),
		stop:  make(chan struct{}),
		flush: flushInterval,
	}
	r.wg.Add(1)
	go r.writer()
	return r, nil
}

// Record enqueues a snapshot for async persistence (non-blocking).
// Snapshots are dropped when the buffer is full.
func (r *Recorder) Record(snap sim.TickSnapshot) {
	select {
	case r.snaps <- snap:
	default:
		r.mu.Lock()
		r.dropped++
		r.mu.Unlock()
	}
}

// Dropped returns how many snapshots were discarded under backpressure.
func (r *Recorder) Dropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Close flushes pending snapshots and closes the database.
func (r *Recorder) Close() {
	close(r.stop)
	r.wg.Wait()
	if err := r.db.Close(); err != nil {
		log.Printf("stats db close error: %v", err)
	}
}

// writer is the background goroutine that batches and writes snapshots.
func (r *Recorder) writer() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.flush)
	defer ticker.Stop()

	batch := make([]sim.TickSnapshot, 0, 64)

	for {
		select {
		case snap := <-r.snaps:
			batch = append(batch, snap)
			if len(batch) >= 50 {
				r.flushBatch(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				r.flushBatch(batch)
				batch = batch[:0]
			}
		case <-r.stop:
			// Drain whatever is still queued before shutting down.
			for {
				select {
				case snap := <-r.snaps:
					batch = append(batch, snap)
				default:
					if len(batch) > 0 {
						r.flushBatch(batch)
					}
					return
				}
			}
		}
	}
}

// flushBatch writes a batch inside a single transaction.
func (r *Recorder) flushBatch(batch []sim.TickSnapshot) {
	tx, err := r.db.Begin()
	if err != nil {
		log.Printf("stats flush begin failed: %v", err)
		return
	}

	stmt, err := tx.Prepare(`INSERT INTO ticks
		(tick, entities, pairs, bins, regions, cell_size, max_bin, tick_us, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		log.Printf("stats flush prepare failed: %v", err)
		tx.Rollback()
		return
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, s := range batch {
		if _, err := stmt.Exec(s.Tick, s.Entities, s.Pairs, s.Bins, s.Regions,
			s.CellSize, s.MaxBin, s.TickMicros, now); err != nil {
			log.Printf("stats insert failed: %v", err)
			tx.Rollback()
			return
		}
	}

	if err := tx.Commit(); err != nil {
		log.Printf("stats flush commit failed: %v", err)
	}
}
