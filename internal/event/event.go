// internal/event/event.go
package event

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Routing keys of the domain events this service emits.
const (
	ClaimCreated    = "claim.created"
	ClaimApproved   = "claim.approved"
	ClaimRejected   = "claim.rejected"
	PremiumVerified = "premium.verified"
	PremiumRefunded = "premium.refunded"
	PolicyPurchased = "policy.purchased"
	PolicyExpired   = "policy.expired"
	PolicyCancelled = "policy.cancelled"
)

type Event struct {
	Type       string                 `json:"type"`
	OccurredAt time.Time              `json:"occurred_at"`
	Data       map[string]interface{} `json:"data"`
}

func New(eventType string, data map[string]interface{}) Event {
	return Event{
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// Publisher delivers domain events after the state change is committed.
// Delivery is best effort; callers log failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// LogPublisher writes events to the application log. It is used when no
// broker is configured.
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (p *LogPublisher) Publish(ctx context.Context, evt Event) error {
	logrus.WithFields(logrus.Fields{
		"event": evt.Type,
		"data":  evt.Data,
	}).Info("Domain event")
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
