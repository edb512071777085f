// internal/websocket/hub.go
package websocket

import (
	"encoding/json"
	"log"
	"sync"
)

// Event types pushed to the dashboard.
const (
	EventLocation     = "location"
	EventStatus       = "status"
	EventConnection   = "connection"
	EventNotification = "notification"
	EventAlert        = "alert"
	EventSnapshot     = "snapshot"
)

// Envelope is the wire format for every dashboard push.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Hub maintains the set of active dashboard clients and broadcasts
// tracker events to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	// OnAttach, when set, supplies the initial state envelopes sent to a
	// client right after it registers.
	OnAttach func() []Envelope
}

func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("Dashboard client registered: %s", client.Conn.RemoteAddr())
			h.sendInitialState(client)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				log.Printf("Dashboard client unregistered: %s", client.Conn.RemoteAddr())
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					// Client blocked or gone, drop it
					log.Printf("Dashboard client %s send buffer full, removing.", client.Conn.RemoteAddr())
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// RegisterClient safely registers a new client to the hub
func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

// Broadcast pushes an event envelope to every connected dashboard client.
func (h *Hub) Broadcast(eventType string, payload any) {
	messageBytes, err := json.Marshal(Envelope{Type: eventType, Payload: payload})
	if err != nil {
		log.Printf("Error marshalling %s event for broadcast: %v", eventType, err)
		return
	}
	select {
	case h.broadcast <- messageBytes:
	default:
		log.Printf("Broadcast buffer full, dropping %s event", eventType)
	}
}

func (h *Hub) sendInitialState(client *Client) {
	if h.OnAttach == nil {
		return
	}
	for _, env := range h.OnAttach() {
		messageBytes, err := json.Marshal(env)
		if err != nil {
			log.Printf("Error marshalling initial %s event: %v", env.Type, err)
			continue
		}
		select {
		case client.Send <- messageBytes:
		default:
			log.Printf("Client %s send buffer full during initial state", client.Conn.RemoteAddr())
			return
		}
	}
}
