package apps

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"f1telemetrybot/pkg/logger"
	"f1telemetrybot/pkg/menus"
	"f1telemetrybot/pkg/model"
	"f1telemetrybot/pkg/settings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	subcommandNotifications = "notifications"

	notificationsText = "Notifications status\n(sent when a new round is loaded)"
)

type SettingsApp struct {
	bot     Sender
	appMenu menus.ApplicationMenu
	sm      *settings.Manager
	mu      sync.Mutex
}

func NewSettingsApp(bot Sender, appMenu menus.ApplicationMenu, sm *settings.Manager) *SettingsApp {
	return &SettingsApp{
		bot:     bot,
		sm:      sm,
		appMenu: appMenu,
	}
}

func (sa *SettingsApp) AcceptCommand(command string) (bool, func(ctx context.Context, chatId int64) error) {
	return false, nil
}

func (sa *SettingsApp) AcceptCallback(query *tgbotapi.CallbackQuery) (bool, func(ctx context.Context, query *tgbotapi.CallbackQuery) error) {
	data := strings.Split(query.Data, ":")
	if data[0] != subcommandNotifications || len(data) != 3 {
		return false, nil
	}
	return true, func(ctx context.Context, query *tgbotapi.CallbackQuery) error {
		sa.mu.Lock()
		defer sa.mu.Unlock()

		kind, ok := model.ParseSessionKind(data[2])
		if !ok {
			return sendText(sa.bot, query.Message.Chat.ID, "Unknown session")
		}
		user := settings.TelegramUser{
			ID:     data[1],
			ChatID: fmt.Sprintf("%d", query.Message.Chat.ID),
		}
		if from, ok := ctx.Value(UserContextKey).(*tgbotapi.User); ok {
			user.Name = from.UserName
		}

		if err := sa.sm.ToggleNotification(user, kind); err != nil {
			logger.Error("Toggling %s notifications of %s failed: %s", kind, user.ID, err)
			msg := tgbotapi.NewMessage(query.Message.Chat.ID, "Could not change the notification status")
			msg.ReplyMarkup = sa.appMenu.PrevMenu()
			_, err := sa.bot.Send(msg)
			return err
		}
		return sa.renderNotifications(data[1], &query.Message.MessageID)(ctx, query.Message.Chat.ID)
	}
}

func (sa *SettingsApp) AcceptButton(button string) (bool, func(ctx context.Context, chatId int64) error) {
	if button == sa.appMenu.Name {
		return true, func(ctx context.Context, chatId int64) error {
			user, ok := ctx.Value(UserContextKey).(*tgbotapi.User)
			if !ok {
				msg := tgbotapi.NewMessage(chatId, "Could not read the user")
				msg.ReplyMarkup = sa.appMenu.PrevMenu()
				_, err := sa.bot.Send(msg)
				return err
			}
			return sa.renderNotifications(fmt.Sprintf("%d", user.ID), nil)(ctx, chatId)
		}
	} else if button == sa.appMenu.ButtonBackTo() {
		return true, func(ctx context.Context, chatId int64) error {
			msg := tgbotapi.NewMessage(chatId, "OK")
			msg.ReplyMarkup = sa.appMenu.PrevMenu()
			_, err := sa.bot.Send(msg)
			return err
		}
	}
	return false, nil
}

func (sa *SettingsApp) renderNotifications(userID string, messageID *int) func(ctx context.Context, chatId int64) error {
	return func(ctx context.Context, chatId int64) error {
		n, err := sa.sm.ListNotifications(userID)
		if err != nil {
			logger.Error("Listing notifications of %s failed: %s", userID, err)
			msg := tgbotapi.NewMessage(chatId, "Could not read the notifications of the user")
			msg.ReplyMarkup = sa.appMenu.PrevMenu()
			_, err := sa.bot.Send(msg)
			return err
		}
		keyboard := settingsInlineKeyboard(userID, n)
		var cfg tgbotapi.Chattable
		if messageID == nil {
			msg := tgbotapi.NewMessage(chatId, notificationsText)
			msg.ReplyMarkup = keyboard
			cfg = msg
		} else {
			msg := tgbotapi.NewEditMessageText(chatId, *messageID, notificationsText)
			msg.ReplyMarkup = &keyboard
			cfg = msg
		}
		_, err = sa.bot.Send(cfg)
		return err
	}
}

func settingsInlineKeyboard(userID string, n settings.Notifications) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{}
	for i := 0; i < len(model.SessionKinds); i += 2 {
		row := []tgbotapi.InlineKeyboardButton{}
		for _, kind := range model.SessionKinds[i:min(i+2, len(model.SessionKinds))] {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(
				kind.Label()+" "+n.Symbol(kind),
				fmt.Sprintf("%s:%s:%s", subcommandNotifications, userID, kind)))
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
