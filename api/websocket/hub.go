package websocket

import (
	"sync"

	"github.com/AnarQorp/qnet-scheduler/internal/logger"
	"github.com/AnarQorp/qnet-scheduler/pkg/config"
)

const defaultBroadcastBuffer = 256

// Hub fans scheduler events out to connected operator clients. Clients
// may narrow their stream to a set of event topics; an empty set means
// everything.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	settings   settings
}

type envelope struct {
	topic string
	data  []byte
}

type settings struct {
	clientBuffer int
}

func NewHub(cfg *config.WebSocketConfig) *Hub {
	broadcastBuffer := defaultBroadcastBuffer
	clientBuffer := 64
	if cfg != nil {
		if cfg.BroadcastBuffer > 0 {
			broadcastBuffer = cfg.BroadcastBuffer
		}
		if cfg.ClientBuffer > 0 {
			clientBuffer = cfg.ClientBuffer
		}
	}

	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan envelope, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		settings:   settings{clientBuffer: clientBuffer},
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			logger.Infof("websocket client connected (total: %d)", h.ClientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			logger.Infof("websocket client disconnected (total: %d)", h.ClientCount())

		case env := <-h.broadcast:
			h.deliver(env)
		}
	}
}

func (h *Hub) deliver(env envelope) {
	var stalled []*Client

	h.mu.RLock()
	for client := range h.clients {
		if !client.wants(env.topic) {
			continue
		}
		select {
		case client.send <- env.data:
		default:
			stalled = append(stalled, client)
		}
	}
	h.mu.RUnlock()

	// Drop clients that cannot keep up rather than blocking the bus.
	if len(stalled) > 0 {
		h.mu.Lock()
		for _, client := range stalled {
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		}
		h.mu.Unlock()
	}
}

func (h *Hub) Broadcast(topic string, message []byte) {
	select {
	case h.broadcast <- envelope{topic: topic, data: message}:
	default:
		logger.Warn("broadcast channel full, dropping message")
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}
