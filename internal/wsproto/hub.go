// ABOUTME: Server-side accept loop: one Engine per accepted connection, keyed once CONNECTION_ID is known
// ABOUTME: Grounded on the teacher's Server.handleWebSocket/handleConnection client registry
package wsproto

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Hub accepts inbound websocket connections and runs one Engine per
// connection, assigning each a fresh connection id the way the teacher's
// Server assigns client ids on hello.
type Hub struct {
	upgrader websocket.Upgrader

	newDispatcher func(connectionID string) Dispatcher
	snapshot      SnapshotUpdater

	mu      sync.RWMutex
	engines map[string]*Engine
}

// NewHub builds a Hub. newDispatcher is called once per accepted connection
// so each gets its own Dispatcher bound to its assigned connection id.
func NewHub(newDispatcher func(connectionID string) Dispatcher, snapshot SnapshotUpdater) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		newDispatcher: newDispatcher,
		snapshot:      snapshot,
		engines:       make(map[string]*Engine),
	}
}

// ServeHTTP upgrades the request and runs its Engine until the connection
// closes or ctx is cancelled.
func (h *Hub) ServeHTTP(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	connectionID := uuid.New().String()
	engine := NewServerEngine(connectionID, h.newDispatcher(connectionID), h.snapshot)

	h.mu.Lock()
	h.engines[connectionID] = engine
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.engines, connectionID)
		h.mu.Unlock()
	}()

	return engine.Start(ctx, conn)
}

// Broadcast sends out to every currently-registered engine, in the FIFO
// order each engine's own buffer enforces.
func (h *Hub) Broadcast(out Outbound) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, engine := range h.engines {
		engine.broadcast(out)
	}
}

// Engine looks up a connection's engine by the connection id the hub
// itself assigned it (not the protocol-level CONNECTION_ID exchange, which
// mirrors this same id back to the client).
func (h *Hub) Engine(connectionID string) (*Engine, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	e, ok := h.engines[connectionID]
	return e, ok
}
