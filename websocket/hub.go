package websocket

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client represents a connected WebSocket client
type Client struct {
	Hub  *Hub
	ID   uint
	Role string // "user", "vendor" or "admin"
	Conn *websocket.Conn
	Send chan []byte
}

// Event is the envelope for everything pushed over a socket.
type Event struct {
	Type      string      `json:"type"`
	Group     string      `json:"group,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// InboundMessage is a message received from a client over its socket.
type InboundMessage struct {
	Type           string                 `json:"type"`
	ConversationID uint                   `json:"conversation_id,omitempty"`
	Content        string                 `json:"content,omitempty"`
	Data           map[string]interface{} `json:"data,omitempty"`
}

// MessageHandler handles one type of inbound client message
type MessageHandler func(*Client, *InboundMessage) error

// IdentityGroup names the broadcast group scoped to a single identity.
func IdentityGroup(id uint) string {
	return fmt.Sprintf("identity:%d", id)
}

// RoleGroup names the broadcast group scoped to a role.
func RoleGroup(role string) string {
	return "role:" + role
}

// ConversationGroup names the broadcast group for one conversation.
func ConversationGroup(id uint) string {
	return fmt.Sprintf("conversation:%d", id)
}

// Hub owns the registry of live connections and their broadcast groups.
// Group membership is keyed by group name -> identity set; join and leave
// are the only mutators. Every publish is best-effort: identities without a
// live connection are silently skipped, and a client whose send buffer is
// full gets the event dropped rather than blocking the publisher.
type Hub struct {
	clients map[uint]*Client
	groups  map[string]map[uint]bool

	// Register requests from authenticated connections
	Register chan *Client

	// Unregister requests from disconnecting clients
	Unregister chan *Client

	// MessageHandlers dispatches inbound messages by type
	MessageHandlers map[string]MessageHandler

	mu sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	hub := &Hub{
		clients:         make(map[uint]*Client),
		groups:          make(map[string]map[uint]bool),
		Register:        make(chan *Client),
		Unregister:      make(chan *Client),
		MessageHandlers: make(map[string]MessageHandler),
	}

	hub.MessageHandlers["ping"] = hub.handlePing
	hub.MessageHandlers["typing"] = hub.handleTyping

	return hub
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if old, ok := h.clients[client.ID]; ok {
				// A reconnect replaces the previous connection
				h.removeLocked(old)
			}
			h.clients[client.ID] = client
			h.joinLocked(client.ID, IdentityGroup(client.ID))
			h.joinLocked(client.ID, RoleGroup(client.Role))
			h.mu.Unlock()
			log.Printf("🔌 Client registered: ID=%d, Role=%s", client.ID, client.Role)

		case client := <-h.Unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.ID]; ok && current == client {
				h.removeLocked(client)
			}
			h.mu.Unlock()
			log.Printf("🔌 Client unregistered: ID=%d, Role=%s", client.ID, client.Role)
		}
	}
}

// removeLocked drops a client and all of its group memberships. Caller holds h.mu.
func (h *Hub) removeLocked(client *Client) {
	for name, members := range h.groups {
		if members[client.ID] {
			delete(members, client.ID)
			if len(members) == 0 {
				delete(h.groups, name)
			}
		}
	}
	delete(h.clients, client.ID)
	close(client.Send)
}

// joinLocked adds an identity to a group. Caller holds h.mu.
func (h *Hub) joinLocked(id uint, group string) {
	if h.groups[group] == nil {
		h.groups[group] = make(map[uint]bool)
	}
	h.groups[group][id] = true
}

// JoinGroup adds a connected identity to a named group
func (h *Hub) JoinGroup(id uint, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[id]; !ok {
		return
	}
	h.joinLocked(id, group)
	log.Printf("👥 Identity %d joined group %s", id, group)
}

// LeaveGroup removes an identity from a named group
func (h *Hub) LeaveGroup(id uint, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members := h.groups[group]; members != nil {
		delete(members, id)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
}

// InGroup reports whether an identity is a member of a group
func (h *Hub) InGroup(id uint, group string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.groups[group][id]
}

// IsConnected checks if an identity has a live connection
func (h *Hub) IsConnected(id uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[id]
	return ok
}

// ConnectedIdentities returns the ids of all live connections
func (h *Hub) ConnectedIdentities() []uint {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]uint, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}

// PublishToIdentity sends an event to one identity's connection, if any
func (h *Hub) PublishToIdentity(id uint, event string, payload interface{}) {
	h.PublishToGroup(IdentityGroup(id), event, payload)
}

// PublishToRole sends an event to every connection holding a role
func (h *Hub) PublishToRole(role string, event string, payload interface{}) {
	h.PublishToGroup(RoleGroup(role), event, payload)
}

// PublishToGroup sends an event to every member of a named group
func (h *Hub) PublishToGroup(group string, event string, payload interface{}) {
	h.PublishToGroupExcept(group, event, payload, 0)
}

// PublishToGroupExcept sends an event to a group, skipping one identity.
// Used to keep a sender from receiving its own echo.
func (h *Hub) PublishToGroupExcept(group string, event string, payload interface{}, exclude uint) {
	data, ok := h.encode(group, event, payload)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for id := range h.groups[group] {
		if id == exclude {
			continue
		}
		client, ok := h.clients[id]
		if !ok {
			continue
		}
		select {
		case client.Send <- data:
		default:
			log.Printf("⚠️ Dropping %s event for identity %d: send buffer full", event, id)
		}
	}
}

// PublishToAll sends an event to every live connection
func (h *Hub) PublishToAll(event string, payload interface{}) {
	data, ok := h.encode("", event, payload)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, client := range h.clients {
		select {
		case client.Send <- data:
		default:
			log.Printf("⚠️ Dropping %s event for identity %d: send buffer full", event, id)
		}
	}
}

func (h *Hub) encode(group, event string, payload interface{}) ([]byte, bool) {
	data, err := json.Marshal(&Event{
		Type:      event,
		Group:     group,
		Payload:   payload,
		Timestamp: time.Now(),
	})
	if err != nil {
		log.Printf("❌ Error marshaling %s event: %v", event, err)
		return nil, false
	}
	return data, true
}

// handlePing answers connection health checks
func (h *Hub) handlePing(client *Client, _ *InboundMessage) error {
	data, ok := h.encode("", "pong", nil)
	if !ok {
		return nil
	}
	h.send(client, "pong", data)
	return nil
}

// send delivers directly to one client, but only while it is still the
// registered connection for its identity. A replaced connection's read loop
// can dispatch inbound messages after the hub has closed its Send channel;
// checking identity under the lock keeps that from becoming a send on a
// closed channel.
func (h *Hub) send(client *Client, event string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if current, ok := h.clients[client.ID]; !ok || current != client {
		return
	}
	select {
	case client.Send <- data:
	default:
		log.Printf("⚠️ Dropping %s event for identity %d: send buffer full", event, client.ID)
	}
}

// handleTyping relays typing indicators to the conversation group. The
// client must have joined the group first, which is where access control ran.
func (h *Hub) handleTyping(client *Client, msg *InboundMessage) error {
	group := ConversationGroup(msg.ConversationID)
	if !h.InGroup(client.ID, group) {
		return nil
	}
	h.PublishToGroupExcept(group, "typing", map[string]interface{}{
		"conversation_id": msg.ConversationID,
		"sender_id":       client.ID,
	}, client.ID)
	return nil
}
