package port

import (
	"context"

	"crparser/internal/domain"
)

// Notifier delivers job completion notices. Delivery is best-effort.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}
