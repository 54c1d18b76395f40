package noop

import (
	"context"
	"log"

	"crparser/internal/domain"
	"crparser/internal/port"
)

type noopNotifier struct{}

// NewNoopNotifier creates a Notifier that only logs notifications.
func NewNoopNotifier() port.Notifier {
	return noopNotifier{}
}

func (noopNotifier) Notify(_ context.Context, n domain.Notification) error {
	log.Printf("[NOOP NOTIFY] job %s: %s %s", n.JobID, n.Status, n.Error)
	return nil
}
