// Package notify fans job outcomes out to the configured notifiers.
package notify

import (
	"context"
	"errors"
	"fmt"

	"crparser/internal/config"
	"crparser/internal/domain"
	"crparser/internal/notify/noop"
	"crparser/internal/notify/ses"
	"crparser/internal/notify/webhook"
	"crparser/internal/port"
)

type multiNotifier []port.Notifier

// Multi returns a Notifier that delivers to every notifier and joins their errors.
func Multi(notifiers ...port.Notifier) port.Notifier {
	return multiNotifier(notifiers)
}

func (m multiNotifier) Notify(ctx context.Context, n domain.Notification) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// New builds the webhook notifier plus the configured email provider.
func New(ctx context.Context, cfg *config.NotifyConfig) (port.Notifier, error) {
	hook := webhook.NewWebhookNotifier(cfg.DefaultWebhookURL, cfg.WebhookTimeout)

	switch cfg.EmailProvider {
	case "ses":
		email, err := ses.NewSESNotifier(ctx, cfg.EmailRegion, cfg.FromAddress, cfg.FromName, cfg.ToAddresses)
		if err != nil {
			return nil, err
		}
		return Multi(hook, email), nil
	case "noop", "":
		return Multi(hook, noop.NewNoopNotifier()), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.EmailProvider)
	}
}
