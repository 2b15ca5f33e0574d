package services

import (
	"bookreview/internal/logger"
)

// Routing keys for activity events.
const (
	EventUserRegistered = "user.registered"
	EventBookCreated    = "book.created"
	EventBookUpdated    = "book.updated"
	EventBookDeleted    = "book.deleted"
	EventReviewCreated  = "review.created"
	EventReviewUpdated  = "review.updated"
	EventReviewDeleted  = "review.deleted"
)

// EventPublisher publishes activity events to a message broker.
type EventPublisher interface {
	PublishEvent(routingKey string, payload map[string]interface{}) error
}

// publish sends an event if a publisher is configured. Failures are logged
// and never fail the request that triggered them.
func publish(p EventPublisher, routingKey string, payload map[string]interface{}) {
	if p == nil {
		logger.Log.WithField("event", routingKey).Debug("Event publisher is not configured. Skipping event publication.")
		return
	}
	if err := p.PublishEvent(routingKey, payload); err != nil {
		logger.Log.WithError(err).WithField("event", routingKey).Warn("Failed to publish event")
	}
}
