package messages

import (
	"context"

	"github.com/angelmondragon/wa-returns-backend/pkg/db/models"
	"github.com/angelmondragon/wa-returns-backend/pkg/enums"
	"github.com/angelmondragon/wa-returns-backend/pkg/logger"
)

// LoggingMessenger records every outbound text in the message log before
// handing it to the underlying messenger. Send failures are returned to the
// caller and never retried.
type LoggingMessenger struct {
	next Messenger
	repo Repository
	logg *logger.Logger
}

func NewLoggingMessenger(next Messenger, repo Repository, logg *logger.Logger) *LoggingMessenger {
	return &LoggingMessenger{next: next, repo: repo, logg: logg}
}

func (m *LoggingMessenger) SendText(ctx context.Context, phone, text string) error {
	if m.repo != nil {
		err := m.repo.Create(ctx, &models.Message{Phone: phone, Direction: enums.MessageDirectionOutgoing, Body: text})
		if err != nil && m.logg != nil {
			m.logg.Warn(m.logg.WithField(ctx, "error", err.Error()), "failed to log message")
		}
	}
	return m.next.SendText(ctx, phone, text)
}
