package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type Message struct {
	Type       string      `json:"type"`
	Content    interface{} `json:"content"`
	IdentityID uint        `json:"identity_id,omitempty"`
	Admin      bool        `json:"admin,omitempty"`
}

type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	identityID uint
	isAdmin    bool
	closeOnce  sync.Once
}

type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
	}
}

// Run serves register and unregister requests until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("WebSocket client connected (identity: %d, admin: %v)", client.identityID, client.isAdmin)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				log.Printf("WebSocket client disconnected (identity: %d, admin: %v)", client.identityID, client.isAdmin)
			}
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) BroadcastToAdmins(messageType string, content interface{}) {
	h.broadcast(Message{Type: messageType, Content: content, Admin: true}, func(c *Client) bool {
		return c.isAdmin
	})
}

func (h *Hub) BroadcastToUser(identityID uint, messageType string, content interface{}) {
	h.broadcast(Message{Type: messageType, Content: content, IdentityID: identityID}, func(c *Client) bool {
		return c.identityID == identityID
	})
}

func (h *Hub) BroadcastToAuthenticated(messageType string, content interface{}) {
	h.broadcast(Message{Type: messageType, Content: content}, func(c *Client) bool {
		return c.identityID > 0
	})
}

// broadcast never blocks: a client with a full buffer misses the message.
func (h *Hub) broadcast(message Message, match func(*Client) bool) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Failed to encode WebSocket message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if !match(client) {
			continue
		}
		select {
		case client.send <- data:
		default:
		}
	}
}

func (client *Client) HandleClientConnection() {
	select {
	case client.hub.register <- client:
	case <-client.hub.done:
		client.conn.Close()
		return
	}

	go client.writePump()
	client.readPump()
}

func (client *Client) close() {
	client.closeOnce.Do(func() {
		select {
		case client.hub.unregister <- client:
		case <-client.hub.done:
		}
		client.conn.Close()
	})
}

func (client *Client) readPump() {
	defer client.close()

	client.conn.SetReadLimit(1024)
	client.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, _, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
	}
}

func (client *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := client.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(client.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-client.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
