// Package ws is the websocket fan-out layer: room-scoped connection sets
// plus the live-presence view the coordinator reads.
package ws

import (
	"encoding/json"
	"log"
	"sort"
	"sync"

	"github.com/manimovassagh/planning-poker/internal/realtime"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Message is the wire envelope in both directions.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Client is one authenticated websocket connection. Writes are serialized
// per connection; gorilla conns do not allow concurrent writers.
type Client struct {
	ID     string
	UserID uint

	conn *websocket.Conn
	mu   sync.Mutex
}

func NewClient(userID uint, conn *websocket.Conn) *Client {
	return &Client{ID: uuid.NewString(), UserID: userID, conn: conn}
}

func (c *Client) Send(event realtime.Event) error {
	data, err := json.Marshal(Message{Type: event.EventType(), Data: event})
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

type Hub struct {
	mu    sync.RWMutex
	rooms map[uint]map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[uint]map[*Client]bool)}
}

func (h *Hub) JoinRoom(roomID uint, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][c] = true
	log.Printf("ws: client %s joined room %d (total: %d)", c.ID, roomID, len(h.rooms[roomID]))
}

func (h *Hub) LeaveRoom(roomID uint, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.rooms[roomID]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.rooms, roomID)
		}
		log.Printf("ws: client %s left room %d", c.ID, roomID)
	}
}

// BroadcastToRoom delivers the event to every connection in the room.
// Connections that fail to take the write are evicted; the rest are
// unaffected.
func (h *Hub) BroadcastToRoom(roomID uint, event realtime.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.rooms[roomID]
	if !ok {
		return
	}

	for c := range clients {
		if err := c.Send(event); err != nil {
			log.Printf("ws: write error to client %s: %v", c.ID, err)
			c.conn.Close()
			delete(clients, c)
		}
	}
}

// OnlineUsers lists the distinct user ids with a live connection in the
// room, in ascending order.
func (h *Hub) OnlineUsers(roomID uint) []uint {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[uint]bool)
	var users []uint
	for c := range h.rooms[roomID] {
		if !seen[c.UserID] {
			seen[c.UserID] = true
			users = append(users, c.UserID)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users
}
