// Package telegram adapts Telegram updates to the registration flow:
// commands and messages become flow inputs, flow replies become messages
// with inline keyboards.
package telegram

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/atelier-events/bookingbot/internal/flow"
	"github.com/atelier-events/bookingbot/internal/session"
)

// Bot runs the Telegram transport via long polling.
type Bot struct {
	api     *bot.Bot
	machine *flow.Machine
	logger  *zap.Logger
}

// New creates the transport and wires update handlers.
func New(token string, machine *flow.Machine, logger *zap.Logger) (*Bot, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bot{machine: machine, logger: logger}

	api, err := bot.New(token, bot.WithDefaultHandler(b.handleUpdate))
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	api.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, b.handleStart)
	b.api = api
	return b, nil
}

// API exposes the underlying client for the operator sender.
func (b *Bot) API() *bot.Bot {
	return b.api
}

// SetMachine attaches the flow after construction. The bot doubles as the
// gateway's file fetcher, so the machine cannot exist before the bot does;
// call this before Run.
func (b *Bot) SetMachine(machine *flow.Machine) {
	b.machine = machine
}

// Run starts long polling until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	b.logger.Info("telegram bot polling started")
	b.api.Start(ctx)
	b.logger.Info("telegram bot stopped")
}

func (b *Bot) handleStart(ctx context.Context, api *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	reply, err := b.machine.Start(ctx, msg.Chat.ID, msg.From.ID)
	if err != nil {
		b.logger.Error("start registration failed", zap.Error(err), zap.Int64("chat_id", msg.Chat.ID))
	}
	b.send(ctx, msg.Chat.ID, reply)
}

func (b *Bot) handleUpdate(ctx context.Context, api *bot.Bot, update *models.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *models.CallbackQuery) {
	// Ack first so the client stops its spinner regardless of outcome.
	if _, err := b.api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: cb.ID,
	}); err != nil {
		b.logger.Warn("answer callback failed", zap.Error(err))
	}
	if cb.Message.Message == nil {
		return
	}
	chatID := cb.Message.Message.Chat.ID
	reply, err := b.machine.Handle(ctx, chatID, cb.From.ID, flow.Input{Callback: cb.Data})
	if err != nil {
		b.logger.Error("handle callback failed", zap.Error(err), zap.Int64("chat_id", chatID))
	}
	b.send(ctx, chatID, reply)
}

func (b *Bot) handleMessage(ctx context.Context, msg *models.Message) {
	if msg.From == nil {
		return
	}
	in := inputFrom(msg)
	reply, err := b.machine.Handle(ctx, msg.Chat.ID, msg.From.ID, in)
	if err != nil {
		b.logger.Error("handle message failed", zap.Error(err), zap.Int64("chat_id", msg.Chat.ID))
	}
	b.send(ctx, msg.Chat.ID, reply)
}

// inputFrom maps a Telegram message to a flow input. Photos and documents
// become attachment references; everything else is treated as text.
func inputFrom(msg *models.Message) flow.Input {
	if len(msg.Photo) > 0 {
		// Telegram sends several sizes; the last is the largest.
		photo := msg.Photo[len(msg.Photo)-1]
		return flow.Input{Attachment: &session.Attachment{
			FileID:   photo.FileID,
			FileName: "photo.jpg",
			MIMEType: "image/jpeg",
			Size:     int64(photo.FileSize),
		}}
	}
	if msg.Document != nil {
		return flow.Input{Attachment: &session.Attachment{
			FileID:   msg.Document.FileID,
			FileName: msg.Document.FileName,
			MIMEType: msg.Document.MimeType,
			Size:     msg.Document.FileSize,
		}}
	}
	return flow.Input{Text: msg.Text}
}

func (b *Bot) send(ctx context.Context, chatID int64, reply flow.Reply) {
	if reply.Text == "" {
		return
	}
	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   reply.Text,
	}
	if len(reply.Buttons) > 0 {
		params.ReplyMarkup = keyboardFor(reply.Buttons)
	}
	if _, err := b.api.SendMessage(ctx, params); err != nil {
		b.logger.Error("send message failed", zap.Error(err), zap.Int64("chat_id", chatID))
	}
}

func keyboardFor(rows [][]flow.Button) models.ReplyMarkup {
	kb := make([][]models.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		line := make([]models.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			line = append(line, models.InlineKeyboardButton{
				Text:         btn.Label,
				CallbackData: btn.Data,
			})
		}
		kb = append(kb, line)
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: kb}
}
