package notifier

import (
	"context"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type emailClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// EmailSender mails every notification to the operations mailbox via SendGrid.
type EmailSender struct {
	client   emailClient
	from     *mail.Email
	opsEmail *mail.Email
}

func NewSendGridSender(apiKey, fromEmail, fromName, opsEmail string) *EmailSender {
	return newEmailSender(sendgrid.NewSendClient(apiKey), fromEmail, fromName, opsEmail)
}

func newEmailSender(client emailClient, fromEmail, fromName, opsEmail string) *EmailSender {
	return &EmailSender{
		client:   client,
		from:     mail.NewEmail(fromName, fromEmail),
		opsEmail: mail.NewEmail("Operations", opsEmail),
	}
}

func (s *EmailSender) Name() string { return "sendgrid" }

func (s *EmailSender) Send(ctx context.Context, msg Message) error {
	message := mail.NewSingleEmail(s.from, msg.Subject, s.opsEmail, msg.Body, "")
	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	return nil
}
