package notifier

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

type messagingClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// PushSender publishes notifications to an FCM topic the dispatch tablets
// subscribe to.
type PushSender struct {
	client messagingClient
	topic  string
}

func NewFirebasePushSender(ctx context.Context, projectID, credentialsFile, topic string) (*PushSender, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase messaging: %w", err)
	}
	return &PushSender{client: client, topic: topic}, nil
}

func (s *PushSender) Name() string { return "fcm" }

func (s *PushSender) Send(ctx context.Context, msg Message) error {
	_, err := s.client.Send(ctx, &messaging.Message{
		Topic: s.topic,
		Notification: &messaging.Notification{
			Title: msg.Subject,
			Body:  msg.Body,
		},
		Data: map[string]string{
			"kind": string(msg.Kind),
			"code": msg.ReservationCode,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send push: %w", err)
	}
	return nil
}
