package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"broadphase/internal/broadphase"
	"broadphase/internal/sim"
)

// mockEngine implements EngineInterface without a running tick loop.
type mockEngine struct {
	snapshot sim.TickSnapshot
	entities int
	spawned  int
}

func (m *mockEngine) Snapshot() sim.TickSnapshot { return m.snapshot }
func (m *mockEngine) EntityCount() int           { return m.entities }

func (m *mockEngine) SpawnRandom(n int) int {
	m.spawned += n
	m.entities += n
	return n
}

func (m *mockEngine) CellLoads() ([]broadphase.CellLoad, float64) {
	return []broadphase.CellLoad{
		{CX: 0, CY: 0, Count: 3},
		{CX: 1, CY: 0, Count: 12, Region: true},
	}, 128
}

func (m *mockEngine) WorldBounds() (float64, float64) { return 4096, 4096 }

// newTestServer builds a router with limits high enough that tests
// never trip the rate limiter.
func newTestServer(engine EngineInterface) *httptest.Server {
	router := NewRouter(RouterConfig{
		Engine: engine,
		RateLimitConfig: &RateLimitConfig{
			RequestsPerSecond: 1000,
			Burst:             1000,
		},
		DisableLogging: true,
	})
	return httptest.NewServer(router)
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(&mockEngine{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "OK" {
		t.Errorf("expected OK body, got %q", body)
	}
}

func TestStatsEndpoint(t *testing.T) {
	engine := &mockEngine{
		snapshot: sim.TickSnapshot{
			Tick:     42,
			Entities: 150,
			Pairs:    9,
			CellSize: 128,
		},
		entities: 150,
	}
	ts := newTestServer(engine)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/stats")
	if err != nil {
		t.Fatalf("stats request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}

	var payload struct {
		Snapshot sim.TickSnapshot `json:"snapshot"`
		Entities int              `json:"entities"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if payload.Snapshot.Tick != 42 {
		t.Errorf("expected tick 42, got %d", payload.Snapshot.Tick)
	}
	if payload.Entities != 150 {
		t.Errorf("expected 150 entities, got %d", payload.Entities)
	}
}

func TestSpawnEndpoint(t *testing.T) {
	engine := &mockEngine{}
	ts := newTestServer(engine)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/spawn?count=25", "", nil)
	if err != nil {
		t.Fatalf("spawn request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var payload struct {
		Spawned  int `json:"spawned"`
		Entities int `json:"entities"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if payload.Spawned != 25 {
		t.Errorf("expected 25 spawned, got %d", payload.Spawned)
	}
	if engine.spawned != 25 {
		t.Errorf("engine received %d, expected 25", engine.spawned)
	}
}

func TestSpawnValidation(t *testing.T) {
	ts := newTestServer(&mockEngine{})
	defer ts.Close()

	for _, count := range []string{"", "abc", "0", "-5"} {
		resp, err := http.Post(ts.URL+"/api/spawn?count="+count, "", nil)
		if err != nil {
			t.Fatalf("spawn request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("count=%q: expected 400, got %d", count, resp.StatusCode)
		}
	}
}

func TestSpawnCapped(t *testing.T) {
	engine := &mockEngine{}
	router := NewRouter(RouterConfig{
		Engine:          engine,
		MaxSpawnPerCall: 100,
		RateLimitConfig: &RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
		DisableLogging:  true,
	})
	ts := httptest.NewServer(router)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/spawn?count=9999", "", nil)
	if err != nil {
		t.Fatalf("spawn request failed: %v", err)
	}
	resp.Body.Close()

	if engine.spawned != 100 {
		t.Errorf("expected spawn capped at 100, engine got %d", engine.spawned)
	}
}

func TestGridVizReturnsPNG(t *testing.T) {
	ts := newTestServer(&mockEngine{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/debug/grid.png")
	if err != nil {
		t.Fatalf("grid request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("expected image/png, got %q", ct)
	}
	header := make([]byte, 8)
	if _, err := io.ReadFull(resp.Body, header); err != nil {
		t.Fatalf("reading PNG header failed: %v", err)
	}
	if !strings.HasPrefix(string(header[1:4]), "PNG") {
		t.Errorf("body does not look like a PNG, header %x", header)
	}
}

func TestRateLimitRejects(t *testing.T) {
	router := NewRouter(RouterConfig{
		Engine: &mockEngine{},
		RateLimitConfig: &RateLimitConfig{
			RequestsPerSecond: 1,
			Burst:             2,
		},
		DisableLogging: true,
	})
	ts := httptest.NewServer(router)
	defer ts.Close()

	got429 := false
	for i := 0; i < 10; i++ {
		resp, err := http.Get(fmt.Sprintf("%s/health", ts.URL))
		if err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			got429 = true
			break
		}
	}
	if !got429 {
		t.Error("expected a 429 after exhausting the burst")
	}
}
