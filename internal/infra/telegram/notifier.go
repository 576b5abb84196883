package telegram

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"gds-ingestion/internal/domain/model"
	"gds-ingestion/internal/domain/ports/adapter"
)

var _ adapter.OpsNotifier = (*Notifier)(nil)

// Notifier pushes batch summaries and cooldown alerts to the ops chat.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    *zerolog.Logger
}

func NewNotifier(token string, chatID int64, logger *zerolog.Logger) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	l := logger.With().Str("component", "TelegramNotifier").Logger()
	return &Notifier{bot: bot, chatID: chatID, log: &l}, nil
}

func (n *Notifier) BatchFinished(ctx context.Context, s *model.JobSummary) error {
	text := fmt.Sprintf(
		"Ingestion batch %s finished\nfiles: %d ok / %d skipped / %d failed\ntickets: %d, clients: %d, bookings: %d, invoices: %d",
		s.JobID, s.FilesProcessed, s.FilesSkipped, s.FilesFailed,
		s.TicketsCreated, s.ClientsCreated, s.BookingsCreated, s.InvoicesCreated)
	if s.Halted {
		text += "\nHALTED: " + s.HaltReason
	}
	return n.send(text)
}

func (n *Notifier) CooldownTriggered(ctx context.Context, d time.Duration, reason string) error {
	return n.send(fmt.Sprintf("System protection cooldown active for %s: %s", d, reason))
}

func (n *Notifier) send(text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		n.log.Error().Err(err).Msg("failed to send ops notification")
		return err
	}
	return nil
}
