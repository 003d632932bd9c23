package apps

import (
	"context"

	"f1telemetrybot/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot dispatches telegram updates to the first accepter that claims them.
type Bot struct {
	bot      Sender
	accepter Accepter
}

func NewBot(bot Sender, accepter Accepter) *Bot {
	return &Bot{bot: bot, accepter: accepter}
}

// ReceiveUpdates handles updates until ctx is cancelled or updates is closed.
func (b *Bot) ReceiveUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		ctx = context.WithValue(ctx, UserContextKey, update.Message.From)
		ctx = context.WithValue(ctx, ChatContextKey, update.Message.Chat)
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		ctx = context.WithValue(ctx, UserContextKey, update.CallbackQuery.From)
		if update.CallbackQuery.Message != nil {
			ctx = context.WithValue(ctx, ChatContextKey, update.CallbackQuery.Message.Chat)
		}
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	user := message.From
	text := message.Text
	if user == nil {
		return
	}

	logger.Debug("%s wrote %s", user.UserName, text)

	var accepted bool
	var handler func(ctx context.Context, chatId int64) error
	if message.IsCommand() {
		accepted, handler = b.accepter.AcceptCommand(text)
	} else {
		accepted, handler = b.accepter.AcceptButton(text)
	}
	if !accepted {
		return
	}
	if err := handler(ctx, message.Chat.ID); err != nil {
		logger.Error("An error occured: %s", err)
	}
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if query.Message == nil {
		return
	}
	accepted, handler := b.accepter.AcceptCallback(query)
	if !accepted {
		return
	}
	if _, err := b.bot.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		logger.Warn("Answering callback %s failed: %s", query.ID, err)
	}
	if err := handler(ctx, query); err != nil {
		logger.Error("An error occured: %s", err)
	}
}
