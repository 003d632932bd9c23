package apps

import (
	"context"
	"fmt"
	"strings"

	"f1telemetrybot/pkg/comparison"
	"f1telemetrybot/pkg/helper"
	"f1telemetrybot/pkg/logger"
	"f1telemetrybot/pkg/menus"
	"f1telemetrybot/pkg/season"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
)

const (
	commandCompare = "/compare"
	commandMap     = "/map"

	SubcommandCompare = "compare"

	symbolCompare = "📈"
)

type CompareApp struct {
	bot     Sender
	appMenu menus.ApplicationMenu
	season  Seasoner
	charter Charter
}

func NewCompareApp(bot Sender, appMenu menus.ApplicationMenu, s Seasoner, charter Charter) *CompareApp {
	return &CompareApp{
		bot:     bot,
		appMenu: appMenu,
		season:  s,
		charter: charter,
	}
}

func (ca *CompareApp) AcceptCommand(command string) (bool, func(ctx context.Context, chatId int64) error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return false, nil
	}
	switch fields[0] {
	case commandCompare:
		if len(fields) != 5 {
			return true, ca.renderUsage()
		}
		return true, ca.renderComparison(fields[1], fields[2], [2]string{helper.DriverCode(fields[3]), helper.DriverCode(fields[4])})
	case commandMap:
		if len(fields) != 4 {
			return true, ca.renderUsage()
		}
		return true, ca.renderMap(fields[1], fields[2], helper.DriverCode(fields[3]))
	}
	return false, nil
}

func (ca *CompareApp) AcceptCallback(query *tgbotapi.CallbackQuery) (bool, func(ctx context.Context, query *tgbotapi.CallbackQuery) error) {
	data := strings.Split(query.Data, ":")
	if data[0] == SubcommandCompare && len(data) == 5 {
		return true, func(ctx context.Context, query *tgbotapi.CallbackQuery) error {
			return ca.renderComparison(data[1], data[2], [2]string{data[3], data[4]})(ctx, query.Message.Chat.ID)
		}
	}
	return false, nil
}

func (ca *CompareApp) AcceptButton(button string) (bool, func(ctx context.Context, chatId int64) error) {
	if button == ca.appMenu.Name {
		return true, ca.renderUsage()
	}
	return false, nil
}

func (ca *CompareApp) renderUsage() func(ctx context.Context, chatId int64) error {
	return func(ctx context.Context, chatId int64) error {
		message := fmt.Sprintf("Usage:\n%s <round|last> <Q|R|SS|S> <DRV1> <DRV2>\n%s <round|last> <Q|R|SS|S> <DRV>\n\n", commandCompare, commandMap)
		message += fmt.Sprintf("Example: %s last Q VER HAM", commandCompare)
		return sendText(ca.bot, chatId, message)
	}
}

func (ca *CompareApp) renderComparison(round, kind string, drivers [2]string) func(ctx context.Context, chatId int64) error {
	return func(ctx context.Context, chatId int64) error {
		session, err := resolveSession(ca.season, round, kind)
		if err != nil {
			return sendText(ca.bot, chatId, userError(err))
		}
		graph, err := ca.charter.TelemetryGraph(ctx, session, drivers, false)
		if err != nil {
			logger.Error("Comparing %v in %s failed: %s", drivers, session, err)
			return sendText(ca.bot, chatId, userError(err))
		}

		photo := tgbotapi.NewPhoto(chatId, tgbotapi.FileBytes{Name: graph.ID + ".png", Bytes: graph.PNG})
		photo.Caption = graph.Title
		if _, err := ca.bot.Send(photo); err != nil {
			return err
		}

		msg := tgbotapi.NewMessage(chatId, fmt.Sprintf("```\n%s```", graph.Comparison.Summary()))
		msg.ParseMode = tgbotapi.ModeMarkdownV2
		_, err = ca.bot.Send(msg)
		return err
	}
}

func (ca *CompareApp) renderMap(round, kind, driver string) func(ctx context.Context, chatId int64) error {
	return func(ctx context.Context, chatId int64) error {
		session, err := resolveSession(ca.season, round, kind)
		if err != nil {
			return sendText(ca.bot, chatId, userError(err))
		}
		tm, err := ca.charter.TrackMap(ctx, session, driver)
		if err != nil {
			logger.Error("Drawing the map of %s failed: %s", session, err)
			return sendText(ca.bot, chatId, userError(err))
		}
		photo := tgbotapi.NewPhoto(chatId, tgbotapi.FileBytes{Name: tm.ID + ".png", Bytes: tm.PNG})
		photo.Caption = fmt.Sprintf("%s\n%s", session, tm.Lap.Label())
		_, err = ca.bot.Send(photo)
		return err
	}
}

// userError turns an error into a message fit for the chat.
func userError(err error) string {
	var missing *comparison.MissingDriverError
	switch {
	case errors.As(err, &missing):
		return fmt.Sprintf("There is no lap of %s in this session", missing.Driver)
	case errors.Is(err, season.ErrRoundNotFound):
		return fmt.Sprintf("That round is not available. Try %s", commandRounds)
	case errors.Is(err, season.ErrSessionNotFound):
		return "That session did not take place in this round"
	case errors.Is(err, comparison.ErrMissingDriverData):
		return "One of the drivers has no lap in this session"
	}
	return err.Error()
}
