package ses

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"crparser/internal/domain"
	"crparser/internal/port"
)

type sesNotifier struct {
	client      *sesv2.Client
	fromAddress string
	fromName    string
	to          []string
}

// NewSESNotifier creates a Notifier that emails job outcomes to a fixed
// recipient list through SES.
func NewSESNotifier(ctx context.Context, region, fromAddress, fromName string, to []string) (port.Notifier, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for SES: %w", err)
	}
	return &sesNotifier{
		client:      sesv2.NewFromConfig(cfg),
		fromAddress: fromAddress,
		fromName:    fromName,
		to:          to,
	}, nil
}

func (s *sesNotifier) Notify(ctx context.Context, n domain.Notification) error {
	if len(s.to) == 0 {
		return nil
	}
	subject, text := BuildMessage(n)
	from := fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)

	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &from,
		Destination:      &types.Destination{ToAddresses: s.to},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &subject},
				Body:    &types.Body{Text: &types.Content{Data: &text}},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("SES SendEmail: %w", err)
	}
	return nil
}

// BuildMessage renders the subject and plain-text body for a notification.
func BuildMessage(n domain.Notification) (subject, body string) {
	if n.Status == domain.NotificationError {
		subject = fmt.Sprintf("Centrale Rischi parse %s failed", n.JobID)
		body = fmt.Sprintf("Request %s could not be processed.\n\nError: %s\n", n.JobID, n.Error)
		return subject, body
	}
	subject = fmt.Sprintf("Centrale Rischi parse %s finished", n.JobID)
	body = fmt.Sprintf("Request %s has been processed.\n\nTables are available at /api/v1/jobs/%s/tables\n", n.JobID, n.JobID)
	return subject, body
}
