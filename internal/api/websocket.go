package api

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"broadphase/internal/sim"
)

// Fallbacks when the hub is constructed without configured limits.
const (
	defaultWSConnectionsTotal = 500
	defaultWSConnectionsPerIP = 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if IsAllowedOrigin(origin) {
			return true
		}

		// Log rejected origin for security monitoring
		log.Printf("websocket connection rejected from origin: %s", origin)
		RecordConnectionRejected("origin")
		return false
	},
}

// wsClient tracks a WebSocket connection with its source IP
type wsClient struct {
	conn *websocket.Conn
	ip   string
}

// WebSocketHub broadcasts per-tick index snapshots to all connected
// clients as msgpack-encoded binary frames, with DoS protection.
type WebSocketHub struct {
	clients    map[*websocket.Conn]*wsClient
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *websocket.Conn
	mu         sync.RWMutex

	// Connection limiting, total and per IP
	maxTotal  int
	wsLimiter *WebSocketRateLimiter
}

// NewWebSocketHub creates a hub capped at maxTotal connections overall
// and maxPerIP per client address. Non-positive values fall back to the
// built-in defaults.
func NewWebSocketHub(maxTotal, maxPerIP int) *WebSocketHub {
	if maxTotal <= 0 {
		maxTotal = defaultWSConnectionsTotal
	}
	if maxPerIP <= 0 {
		maxPerIP = defaultWSConnectionsPerIP
	}
	return &WebSocketHub{
		clients:    make(map[*websocket.Conn]*wsClient),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *websocket.Conn),
		maxTotal:   maxTotal,
		wsLimiter:  NewWebSocketRateLimiter(maxPerIP),
	}
}

// Run starts the hub
func (h *WebSocketHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			h.mu.Unlock()

			count := h.ClientCount()
			log.Printf("client connected from %s (%d total)", client.ip, count)
			UpdateWSConnections(count)

		case conn := <-h.unregister:
			h.mu.Lock()
			if client, ok := h.clients[conn]; ok {
				// Release the connection slot for this IP
				h.wsLimiter.Release(client.ip)
				delete(h.clients, conn)
				conn.Close()
			}
			h.mu.Unlock()

			count := h.ClientCount()
			log.Printf("client disconnected (%d remaining)", count)
			UpdateWSConnections(count)

		case message := <-h.broadcast:
			h.mu.Lock()
			for conn, client := range h.clients {
				if err := conn.WriteMessage(websocket.BinaryMessage, message); err != nil {
					h.wsLimiter.Release(client.ip)
					delete(h.clients, conn)
					conn.Close()
				}
			}
			h.mu.Unlock()
			IncrementWSMessages()
		}
	}
}

// BroadcastSnapshot queues a tick snapshot for delivery. Snapshots are
// dropped under backpressure rather than blocking the tick loop.
func (h *WebSocketHub) BroadcastSnapshot(snap sim.TickSnapshot) {
	payload, err := msgpack.Marshal(snap)
	if err != nil {
		return
	}

	select {
	case h.broadcast <- payload:
	default:
		// Channel full, skip (backpressure)
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWS upgrades an HTTP request to a websocket subscription.
func (h *WebSocketHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	if h.ClientCount() >= h.maxTotal {
		RecordConnectionRejected("ws_limit")
		http.Error(w, "Too Many Connections", http.StatusServiceUnavailable)
		return
	}

	ip := GetClientIP(r)
	if !h.wsLimiter.Allow(ip) {
		RecordConnectionRejected("ws_limit")
		http.Error(w, "Too Many Connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.wsLimiter.Release(ip)
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	h.register <- &wsClient{conn: conn, ip: ip}

	// Reader loop: the feed is one-way, but we must drain control frames
	// and detect disconnects.
	go func() {
		defer func() { h.unregister <- conn }()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
