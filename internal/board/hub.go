// Package board feeds the dispatch board: a websocket hub broadcasting every
// reservation event and the pending-change buffer committed in batch.
package board

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"rental-car-dashboard/internal/domain"
	"rental-car-dashboard/internal/events"
	"rental-car-dashboard/internal/logger"
)

const (
	broadcastBuffer = 64
	writeWait       = 5 * time.Second
)

// originChecker allows requests without an Origin header (non-browser
// clients) and browser requests from the listed origins. With no list the
// upgrader's same-origin check applies.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[strings.ToLower(origin)]
		return ok
	}
}

// Frame is the compact JSON pushed to board clients.
type Frame struct {
	Kind       events.Kind              `json:"kind"`
	EventID    string                   `json:"event_id"`
	Code       string                   `json:"code"`
	Status     domain.ReservationStatus `json:"status"`
	VehicleID  int64                    `json:"vehicle_id,omitempty"`
	PickupAt   time.Time                `json:"pickup_at"`
	ReturnAt   time.Time                `json:"return_at"`
	OccurredAt time.Time                `json:"occurred_at"`
}

func NewFrame(e events.Event) Frame {
	r := e.Subject()
	meta := e.Metadata()
	return Frame{
		Kind:       e.Kind(),
		EventID:    meta.ID.String(),
		Code:       r.Code,
		Status:     r.Status,
		VehicleID:  r.VehicleID.Int64,
		PickupAt:   r.PickupAt,
		ReturnAt:   r.ReturnAt,
		OccurredAt: meta.OccurredAt,
	}
}

type Hub struct {
	clients    map[*websocket.Conn]bool
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan []byte
	done       chan struct{}
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
}

// NewHub builds a hub accepting websocket upgrades from allowedOrigins.
func NewHub(allowedOrigins ...string) *Hub {
	return &Hub{
		upgrader:   websocket.Upgrader{CheckOrigin: originChecker(allowedOrigins)},
		clients:    make(map[*websocket.Conn]bool),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		broadcast:  make(chan []byte, broadcastBuffer),
		done:       make(chan struct{}),
	}
}

// Register subscribes the hub to every event kind.
func (h *Hub) Register(bus *events.Bus) {
	bus.OnAll(events.AllKinds, "board", h.Handle)
}

// Run owns the client set until ctx is done, then closes every connection.
// It must be called at most once.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			logger.Debug("Board client connected", "clients", n)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			logger.Debug("Board client disconnected", "clients", n)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				client.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					logger.Warn("Board write failed, dropping client", "error", err)
					client.Close()
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Handle queues a frame for broadcast. Frames are dropped when the buffer is
// full so a slow board never delays the bus.
func (h *Hub) Handle(_ context.Context, e events.Event) error {
	message, err := json.Marshal(NewFrame(e))
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- message:
	default:
		logger.Warn("Board broadcast buffer full, dropping frame", "kind", e.Kind(), "code", e.Subject().Code)
	}
	return nil
}

// ServeWS upgrades the request and keeps the connection registered until the
// client goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("Failed to upgrade board websocket", "error", err)
		return
	}
	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
		return
	}

	go func() {
		defer func() {
			select {
			case h.unregister <- conn:
			case <-h.done:
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logger.Warn("Board websocket error", "error", err)
				}
				return
			}
		}
	}()
}
