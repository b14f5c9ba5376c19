package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"broadphase/internal/sim"
)

// EngineInterface defines the simulation engine methods used by the API.
// This interface enables mocking for tests without spinning up the full
// tick loop. Keep this minimal - only include methods the API layer
// actually calls.
type EngineInterface interface {
	// Snapshot returns the most recent tick snapshot
	Snapshot() sim.TickSnapshot
	// EntityCount returns the current population size
	EntityCount() int
	// SpawnRandom spawns up to n random entities, returning the actual count
	SpawnRandom(n int) int

	GridSource
}

// RouterConfig contains all dependencies needed to construct the HTTP
// router. This struct is designed for dependency injection and testability.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Engine: mockEngine,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the simulation engine (required)
	Engine EngineInterface

	// Hub is the websocket hub for the live stats feed (optional)
	Hub *WebSocketHub

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is optional configuration for the rate limiter.
	// Only used if RateLimiter is nil. If both are nil, uses DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, uses the default origins.
	CORSOrigins []string

	// MaxSpawnPerCall caps the spawn endpoint (0 = default 500).
	MaxSpawnPerCall int

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// IMPORTANT: This function is PURE - it has no side effects beyond the
// rate limiter's cleanup goroutine when one must be created:
//   - No network listeners are opened
//   - No background workers are launched for routing itself
//
// This makes it safe to use in tests with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rlCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rlCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rlCfg)
	}
	r.Use(rateLimiter.Middleware)

	origins := cfg.CORSOrigins
	if origins == nil {
		origins = AllowedOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	maxSpawn := cfg.MaxSpawnPerCall
	if maxSpawn <= 0 {
		maxSpawn = 500
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Get("/api/stats", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]interface{}{
			"snapshot":  cfg.Engine.Snapshot(),
			"entities":  cfg.Engine.EntityCount(),
			"ratelimit": rateLimiter.GetStats(),
		})
	})

	r.Post("/api/spawn", func(w http.ResponseWriter, req *http.Request) {
		count, err := strconv.Atoi(req.URL.Query().Get("count"))
		if err != nil || count <= 0 {
			http.Error(w, "count must be a positive integer", http.StatusBadRequest)
			return
		}
		if count > maxSpawn {
			count = maxSpawn
		}
		spawned := cfg.Engine.SpawnRandom(count)
		writeJSON(w, map[string]interface{}{
			"spawned":  spawned,
			"entities": cfg.Engine.EntityCount(),
		})
	})

	r.Get("/debug/grid.png", HandleGridViz(cfg.Engine))

	if cfg.Hub != nil {
		r.Get("/ws", cfg.Hub.HandleWS)
	}

	return r
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
