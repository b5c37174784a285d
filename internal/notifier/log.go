package notifier

import (
	"context"
	"log/slog"
)

// LogSender writes notifications to the log. Used in development.
type LogSender struct {
	log *slog.Logger
}

func NewLogSender(log *slog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Name() string { return "log" }

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.log.Info("Notification", "kind", msg.Kind, "code", msg.ReservationCode, "subject", msg.Subject)
	return nil
}
