package apps

import (
	"context"
	"fmt"

	"f1telemetrybot/pkg/menus"
	"f1telemetrybot/pkg/settings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	menuStart      = "/start"
	menuMenu       = "/menu"
	buttonRounds   = "Rounds"
	buttonCompare  = "Compare"
	buttonSettings = "Settings"
	appName        = "menu"
)

var (
	menuKeyboard = tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(buttonRounds),
			tgbotapi.NewKeyboardButton(buttonCompare),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(buttonSettings),
		),
	)
)

type menuer struct{}

func (m menuer) Menu() tgbotapi.ReplyKeyboardMarkup {
	return menuKeyboard
}

type MainApp struct {
	bot       Sender
	accepters []Accepter
}

func NewMainApp(bot Sender, s Seasoner, charter Charter, sm *settings.Manager) *MainApp {
	roundsApp := NewRoundsApp(bot, menus.NewApplicationMenu(buttonRounds, appName, menuer{}), s)
	compareApp := NewCompareApp(bot, menus.NewApplicationMenu(buttonCompare, appName, menuer{}), s, charter)
	accepters := []Accepter{roundsApp, compareApp}
	if sm != nil {
		accepters = append(accepters, NewSettingsApp(bot, menus.NewApplicationMenu(buttonSettings, appName, menuer{}), sm))
	}

	return &MainApp{
		bot:       bot,
		accepters: accepters,
	}
}

func (m *MainApp) AcceptCommand(command string) (bool, func(ctx context.Context, chatId int64) error) {
	if command == menuStart {
		return true, m.renderStart()
	} else if command == menuMenu {
		return true, m.renderMenu()
	}
	for _, accepter := range m.accepters {
		accept, handler := accepter.AcceptCommand(command)
		if accept {
			return true, handler
		}
	}

	return false, nil
}

func (m *MainApp) AcceptCallback(query *tgbotapi.CallbackQuery) (bool, func(ctx context.Context, query *tgbotapi.CallbackQuery) error) {
	for _, accepter := range m.accepters {
		accept, handler := accepter.AcceptCallback(query)
		if accept {
			return true, handler
		}
	}

	return false, nil
}

func (m *MainApp) AcceptButton(button string) (bool, func(ctx context.Context, chatId int64) error) {
	for _, accepter := range m.accepters {
		accept, handler := accepter.AcceptButton(button)
		if accept {
			return true, handler
		}
	}
	return false, nil
}

func (m *MainApp) renderStart() func(ctx context.Context, chatId int64) error {
	return func(ctx context.Context, chatId int64) error {
		message := "Hi, I compare the fastest laps of two drivers in any session of the season.\n\n"
		message += "You can use these commands:\n\n"
		message += fmt.Sprintf("%s - Shows the bot menu\n", menuMenu)
		message += fmt.Sprintf("%s - Lists the rounds already raced\n", commandRounds)
		message += fmt.Sprintf("%s <round> <Q|R|SS|S> <DRV1> <DRV2> - Compares two drivers\n", commandCompare)
		message += fmt.Sprintf("%s <round> <Q|R|SS|S> <DRV> - Draws the circuit from a driver's fastest lap\n", commandMap)
		msg := tgbotapi.NewMessage(chatId, message)
		msg.ReplyMarkup = menuKeyboard
		_, err := m.bot.Send(msg)
		return err
	}
}

func (m *MainApp) renderMenu() func(ctx context.Context, chatId int64) error {
	return func(ctx context.Context, chatId int64) error {
		msg := tgbotapi.NewMessage(chatId, "Bot menu.\n\n")
		msg.ReplyMarkup = menuKeyboard
		_, err := m.bot.Send(msg)
		return err
	}
}
