package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"

	"github.com/samrato/QMMMUST/internal/events"
	"github.com/samrato/QMMMUST/internal/middleware"
	"github.com/samrato/QMMMUST/internal/models"
)

type identities map[uint]*models.Identity

func (m identities) FindIdentity(_ context.Context, id uint) (*models.Identity, error) {
	return m[id], nil
}

func TestPublishReachesAdminsAndOwner(t *testing.T) {
	gin.SetMode(gin.TestMode)

	admin := &models.Identity{ID: 1, Role: models.RoleAdmin, Active: true}
	alice := &models.Identity{ID: 2, Role: models.RoleStudent, Active: true}
	bob := &models.Identity{ID: 3, Role: models.RoleStudent, Active: true}
	auth := middleware.NewAuthMiddleware(identities{1: admin, 2: alice, 3: bob}, "ws-secret", time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)

	r := gin.New()
	r.GET("/ws", NewWebSocketHandler(hub, auth).HandleWebSocket)
	srv := httptest.NewServer(r)
	defer srv.Close()

	dial := func(identity *models.Identity) *gorilla.Conn {
		t.Helper()
		token, _, err := auth.GenerateToken(identity)
		if err != nil {
			t.Fatalf("token: %v", err)
		}
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
		conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		t.Cleanup(func() { conn.Close() })
		return conn
	}

	adminConn := dial(admin)
	aliceConn := dial(alice)
	bobConn := dial(bob)

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("clients never registered, have %d", hub.ClientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}

	err := hub.Publish(ctx, events.Event{
		Type:       events.ScanApproved,
		IdentityID: alice.ID,
		Payload:    map[string]string{"gate": "Main Gate"},
		OccurredAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	for name, conn := range map[string]*gorilla.Conn{"admin": adminConn, "alice": aliceConn} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("%s read: %v", name, err)
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("%s decode: %v", name, err)
		}
		if msg.Type != string(events.ScanApproved) {
			t.Fatalf("%s got message type %q", name, msg.Type)
		}
	}

	bobConn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := bobConn.ReadMessage(); err == nil {
		t.Fatalf("expected bob to receive nothing")
	}
}
