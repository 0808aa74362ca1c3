// internal/services/events.go
package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/insurance-backend/internal/event"
)

// publish is best effort: the state change it describes is already stored.
func publish(ctx context.Context, publisher event.Publisher, eventType string, data map[string]interface{}) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event.New(eventType, data)); err != nil {
		logrus.WithError(err).WithField("event", eventType).Warn("Failed to publish domain event")
	}
}
