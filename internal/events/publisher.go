package events

import (
	"context"
	"errors"
	"time"
)

type Type string

const (
	ScanApproved   Type = "scan_approved"
	ScanDenied     Type = "scan_denied"
	PassIssued     Type = "pass_issued"
	AlertDelivered Type = "alert_delivered"
)

// Event is a gate-side fact pushed to realtime listeners and the event stream.
type Event struct {
	Type       Type      `json:"type"`
	IdentityID uint      `json:"identity_id,omitempty"`
	Payload    any       `json:"payload"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
