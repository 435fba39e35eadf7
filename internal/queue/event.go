// Package queue carries notification events over RabbitMQ: a long-lived
// publisher on a topic exchange and a background consumer that appends
// every delivery to logs/notifications.log.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/sportsclub/internal/model"
)

// DefaultExchange is used when NOTIFY_EXCHANGE is not set.
const DefaultExchange = "sportsclub.notifications"

// NotificationEvent is published once an inbox entry has been stored.
// Consumers get everything they need to log or forward it without reading
// the database.
type NotificationEvent struct {
	EventID        string         `json:"event_id"`
	NotificationID uint64         `json:"notification_id"`
	UserID         uint64         `json:"user_id"`
	Kind           string         `json:"kind"`
	Title          string         `json:"title"`
	Message        string         `json:"message"`
	Meta           map[string]any `json:"meta,omitempty"`
	CreatedAt      string         `json:"created_at"`
}

func NewNotificationEvent(n model.Notification) NotificationEvent {
	created := n.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return NotificationEvent{
		EventID:        uuid.NewString(),
		NotificationID: n.ID,
		UserID:         n.UserID,
		Kind:           n.Kind,
		Title:          n.Title,
		Message:        n.Message,
		Meta:           n.Meta,
		CreatedAt:      created.UTC().Format(time.RFC3339),
	}
}

// RoutingKey is "notification.<kind>", e.g. notification.booking.approved.
func (e NotificationEvent) RoutingKey() string { return "notification." + e.Kind }
