package broadcast

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// wsConn is the slice of *websocket.Conn the hub needs. Narrowed so tests can
// register fake connections.
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client represents a connected WebSocket client. A client may be subscribed
// to any number of channel rooms at once. writeMu serializes writes to the
// connection: the websocket library supports at most one concurrent writer,
// and event consumers, presence broadcasts, and targeted sends all run on
// their own goroutines.
type Client struct {
	ID          string
	Username    string
	AvatarColor string
	conn        wsConn
	writeMu     sync.Mutex
	rooms       map[string]bool
}

// Frame is the envelope written to WebSocket clients.
type Frame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// PresenceEntry is one identified client in the presence snapshot.
type PresenceEntry struct {
	Username    string `json:"username"`
	AvatarColor string `json:"avatarColor,omitempty"`
}

// Hub owns the session registry: connected clients, their identities, and
// their channel room memberships. All external mutation goes through its
// methods; the maps never leak.
type Hub struct {
	clients map[string]*Client         // clientID -> Client
	rooms   map[string]map[string]bool // roomID -> set of clientIDs
	mu      sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]bool),
	}
}

// Register adds a connection to the registry.
func (h *Hub) Register(clientID string, conn wsConn) {
	h.mu.Lock()
	h.clients[clientID] = &Client{
		ID:    clientID,
		conn:  conn,
		rooms: make(map[string]bool),
	}
	h.mu.Unlock()
	log.Printf("[broadcast] Client %s registered", clientID)
}

// Identify records the client's display identity and broadcasts a fresh
// presence snapshot to everyone.
func (h *Hub) Identify(clientID, username, avatarColor string) {
	h.mu.Lock()
	if client, ok := h.clients[clientID]; ok {
		client.Username = username
		client.AvatarColor = avatarColor
	}
	h.mu.Unlock()
	h.BroadcastAll("user-presence", h.Presence())
}

// Unregister removes a connection, drops all its room memberships, and
// broadcasts the updated presence snapshot to the remaining clients.
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	client, ok := h.clients[clientID]
	if ok {
		for roomID := range client.rooms {
			h.dropFromRoom(roomID, clientID)
		}
		delete(h.clients, clientID)
	}
	h.mu.Unlock()

	if ok {
		log.Printf("[broadcast] Client %s (%s) unregistered", clientID, client.Username)
		h.BroadcastAll("user-presence", h.Presence())
	}
}

// JoinRoom subscribes a client to a channel room. Existing memberships are
// kept: a client may sit in several rooms across workspace switches.
func (h *Hub) JoinRoom(clientID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[clientID]
	if !ok {
		return
	}
	client.rooms[roomID] = true
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[string]bool)
	}
	h.rooms[roomID][clientID] = true
	log.Printf("[broadcast] Client %s joined room %s", clientID, roomID)
}

// LeaveRoom unsubscribes a client from one channel room.
func (h *Hub) LeaveRoom(clientID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[clientID]
	if !ok {
		return
	}
	delete(client.rooms, roomID)
	h.dropFromRoom(roomID, clientID)
	log.Printf("[broadcast] Client %s left room %s", clientID, roomID)
}

// dropFromRoom removes the membership entry; callers hold the lock.
func (h *Hub) dropFromRoom(roomID, clientID string) {
	if h.rooms[roomID] != nil {
		delete(h.rooms[roomID], clientID)
		if len(h.rooms[roomID]) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// BroadcastRoom sends a frame to every client subscribed to the room.
func (h *Hub) BroadcastRoom(roomID, frameType string, payload any) {
	data, ok := marshalFrame(frameType, payload)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for clientID := range h.rooms[roomID] {
		if client, ok := h.clients[clientID]; ok {
			h.send(client, data)
		}
	}
}

// BroadcastAll sends a frame to every connected client regardless of room
// membership.
func (h *Hub) BroadcastAll(frameType string, payload any) {
	data, ok := marshalFrame(frameType, payload)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		h.send(client, data)
	}
}

// SendTo sends a frame to one client only. Used for targeted error events.
func (h *Hub) SendTo(clientID, frameType string, payload any) {
	data, ok := marshalFrame(frameType, payload)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if client, ok := h.clients[clientID]; ok {
		h.send(client, data)
	}
}

// Presence returns the current snapshot of identified clients.
func (h *Hub) Presence() []PresenceEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	entries := make([]PresenceEntry, 0, len(h.clients))
	for _, client := range h.clients {
		if client.Username == "" {
			continue
		}
		entries = append(entries, PresenceEntry{
			Username:    client.Username,
			AvatarColor: client.AvatarColor,
		})
	}
	return entries
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomClientCount returns the number of clients in a room.
func (h *Hub) RoomClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// CloseAll closes all connections and clears the registry.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		_ = client.conn.Close()
	}
	h.clients = make(map[string]*Client)
	h.rooms = make(map[string]map[string]bool)
}

func (h *Hub) send(client *Client, data []byte) {
	client.writeMu.Lock()
	err := client.conn.WriteMessage(websocket.TextMessage, data)
	client.writeMu.Unlock()
	if err != nil {
		log.Printf("[broadcast] Failed to send to client %s: %v", client.ID, err)
	}
}

func marshalFrame(frameType string, payload any) ([]byte, bool) {
	data, err := json.Marshal(Frame{Type: frameType, Payload: payload})
	if err != nil {
		log.Printf("[broadcast] Failed to marshal %s frame: %v", frameType, err)
		return nil, false
	}
	return data, true
}
