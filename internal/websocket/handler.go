package websocket

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/samrato/QMMMUST/internal/middleware"
)

type tokenParser interface {
	ParseToken(token string) (*middleware.Claims, error)
}

type WebSocketHandler struct {
	tokens tokenParser
	hub    *Hub
}

func NewWebSocketHandler(hub *Hub, tokens tokenParser) *WebSocketHandler {
	return &WebSocketHandler{
		tokens: tokens,
		hub:    hub,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket accepts anonymous connections; they receive nothing until authenticated.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	var identityID uint
	var isAdmin bool

	if tokenString := c.Query("token"); tokenString != "" {
		claims, err := h.tokens.ParseToken(tokenString)
		if err == nil {
			if id, err := claims.IdentityID(); err == nil {
				identityID = id
				isAdmin = claims.Role.IsAdmin()
			}
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:        h.hub,
		conn:       conn,
		send:       make(chan []byte, 256),
		identityID: identityID,
		isAdmin:    isAdmin,
	}

	go client.HandleClientConnection()
}

func (h *WebSocketHandler) GetHub() *Hub {
	return h.hub
}
