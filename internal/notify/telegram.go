package notify

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/atelier-events/bookingbot/pkg/queue"
)

// TelegramSender sends the summary and forwards the proof to the
// operator chat. The proof is re-sent by Telegram file id, so no bytes
// pass through this process.
type TelegramSender struct {
	bot            *bot.Bot
	operatorChatID int64
	logger         *zap.Logger
}

// NewTelegramSender creates an operator-channel sender.
func NewTelegramSender(b *bot.Bot, operatorChatID int64, logger *zap.Logger) *TelegramSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TelegramSender{bot: b, operatorChatID: operatorChatID, logger: logger}
}

// Send delivers one notification: summary text, then the proof document.
func (s *TelegramSender) Send(ctx context.Context, payload queue.NotificationPayload) error {
	if s.operatorChatID == 0 {
		s.logger.Warn("OPERATOR_CHAT_ID not configured, dropping notification",
			zap.String("registration_id", payload.RegistrationID.String()))
		return nil
	}

	if _, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: s.operatorChatID,
		Text:   Summary(payload),
	}); err != nil {
		return fmt.Errorf("send summary: %w", err)
	}

	if payload.ProofFileID != "" {
		if _, err := s.bot.SendDocument(ctx, &bot.SendDocumentParams{
			ChatID:   s.operatorChatID,
			Document: &models.InputFileString{Data: payload.ProofFileID},
			Caption:  fmt.Sprintf("Payment proof — %s", payload.FullName),
		}); err != nil {
			// The summary already went out; a lost forward is not worth a retry loop.
			s.logger.Warn("forward proof failed", zap.Error(err),
				zap.String("registration_id", payload.RegistrationID.String()))
		}
	}
	return nil
}
