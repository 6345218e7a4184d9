package websocket

import (
	"context"
	"time"

	"github.com/samrato/QMMMUST/internal/events"
)

type GateEvent struct {
	Type       events.Type `json:"type"`
	IdentityID uint        `json:"identity_id,omitempty"`
	Payload    any         `json:"payload"`
	Timestamp  string      `json:"timestamp"`
}

// Publish pushes an event to admins and, when it belongs to an identity, to that identity's sessions.
func (h *Hub) Publish(_ context.Context, ev events.Event) error {
	msg := GateEvent{
		Type:       ev.Type,
		IdentityID: ev.IdentityID,
		Payload:    ev.Payload,
		Timestamp:  ev.OccurredAt.Format(time.RFC3339),
	}

	h.BroadcastToAdmins(string(ev.Type), msg)

	if ev.IdentityID > 0 {
		h.BroadcastToUser(ev.IdentityID, string(ev.Type), msg)
	}
	return nil
}
