package sync

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 2 * time.Second
	// sendBuffer is how many frames a client may fall behind before it is dropped.
	sendBuffer = 64
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans import events out to every connected websocket client. Each
// client has its own buffered queue and writer goroutine, so Publish never
// waits on the network.
type Hub struct {
	mu        sync.Mutex
	wsClients map[*websocket.Conn]*client
	last      []byte
}

type Stats struct {
	WSClients int `json:"ws_clients"`
}

func NewHub() *Hub {
	return &Hub{
		wsClients: make(map[*websocket.Conn]*client),
	}
}

// AddWS registers a client, greets it and replays the latest event so late
// joiners see where the import is.
func (h *Hub) AddWS(ws *websocket.Conn) {
	cl := &client{conn: ws, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.wsClients[ws] = cl
	welcome, _ := json.Marshal(map[string]any{
		"type":      "welcome",
		"transport": "websocket",
		"clients":   len(h.wsClients),
	})
	cl.send <- welcome
	if h.last != nil {
		cl.send <- h.last
	}
	h.mu.Unlock()

	go h.writePump(cl)
}

func (h *Hub) RemoveWS(ws *websocket.Conn) {
	h.mu.Lock()
	h.drop(ws)
	h.mu.Unlock()
	_ = ws.Close()
}

// Publish implements the importer's progress sink.
func (h *Hub) Publish(ev ImportEvent) {
	h.BroadcastJSON(ev)
}

// BroadcastJSON queues v for every client. A client whose queue is full is
// dropped instead of slowing the caller down.
func (h *Hub) BroadcastJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.last = b
	for ws, cl := range h.wsClients {
		select {
		case cl.send <- b:
		default:
			h.drop(ws)
		}
	}
}

// drop unregisters ws and closes its queue. Callers hold mu.
func (h *Hub) drop(ws *websocket.Conn) {
	cl, ok := h.wsClients[ws]
	if !ok {
		return
	}
	delete(h.wsClients, ws)
	close(cl.send)
}

// writePump is the only writer on cl.conn. It exits when the queue is
// closed or a write fails, closing the connection either way.
func (h *Hub) writePump(cl *client) {
	defer cl.conn.Close()

	for b := range cl.send {
		_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := cl.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			h.mu.Lock()
			h.drop(cl.conn)
			h.mu.Unlock()
			// drain so the loop ends once drop has closed the queue
			for range cl.send {
			}
			return
		}
	}
	_ = cl.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{WSClients: len(h.wsClients)}
}
