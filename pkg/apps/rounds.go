package apps

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"f1telemetrybot/pkg/helper"
	"f1telemetrybot/pkg/logger"
	"f1telemetrybot/pkg/menus"
	"f1telemetrybot/pkg/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jedib0t/go-pretty/v6/table"
)

const (
	commandRounds = "/rounds"

	SubcommandRoundsPage  = "rounds"
	SubcommandShowFastest = "fastest"

	roundsPerPage  = 10
	fastestListed  = 10
	tableDriver    = "DRV"
	tablePosition  = "P"
	tableLapTime   = "Time"
	tableGap       = "Gap"
	inlineNext     = "Next"
	inlinePrevious = "Previous"
	symbolSprint   = "⚡"
)

var commandRoundID = regexp.MustCompile(`^\/round_(\d+)$`)

type RoundsApp struct {
	bot     Sender
	appMenu menus.ApplicationMenu
	season  Seasoner
}

func NewRoundsApp(bot Sender, appMenu menus.ApplicationMenu, s Seasoner) *RoundsApp {
	return &RoundsApp{
		bot:     bot,
		appMenu: appMenu,
		season:  s,
	}
}

func (ra *RoundsApp) AcceptCommand(command string) (bool, func(ctx context.Context, chatId int64) error) {
	if command == commandRounds {
		return true, ra.renderRounds(0, nil)
	} else if commandRoundID.MatchString(command) {
		round, _ := strconv.Atoi(commandRoundID.FindStringSubmatch(command)[1])
		return true, ra.renderRound(round)
	}
	return false, nil
}

func (ra *RoundsApp) AcceptCallback(query *tgbotapi.CallbackQuery) (bool, func(ctx context.Context, query *tgbotapi.CallbackQuery) error) {
	data := strings.Split(query.Data, ":")
	if data[0] == SubcommandRoundsPage && len(data) == 2 {
		return true, func(ctx context.Context, query *tgbotapi.CallbackQuery) error {
			page, err := strconv.Atoi(data[1])
			if err != nil {
				return err
			}
			return ra.renderRounds(page, &query.Message.MessageID)(ctx, query.Message.Chat.ID)
		}
	} else if data[0] == SubcommandShowFastest && len(data) == 3 {
		return true, func(ctx context.Context, query *tgbotapi.CallbackQuery) error {
			return ra.renderFastest(data[1], data[2])(ctx, query.Message.Chat.ID)
		}
	}
	return false, nil
}

func (ra *RoundsApp) AcceptButton(button string) (bool, func(ctx context.Context, chatId int64) error) {
	if button == ra.appMenu.Name {
		return true, ra.renderRounds(0, nil)
	}
	return false, nil
}

func (ra *RoundsApp) renderRounds(page int, messageId *int) func(ctx context.Context, chatId int64) error {
	return func(ctx context.Context, chatId int64) error {
		rounds := ra.season.Rounds()
		if len(rounds) == 0 {
			return sendText(ra.bot, chatId, "No rounds loaded yet")
		}
		lines := make([]roundLine, len(rounds))
		for i, r := range rounds {
			lines[i] = roundLine{schedule: r.Schedule}
		}
		text, keyboard := roundsTextMarkup(lines, page)

		var cfg tgbotapi.Chattable
		if messageId == nil {
			msg := tgbotapi.NewMessage(chatId, text)
			if len(keyboard.InlineKeyboard) > 0 {
				msg.ReplyMarkup = keyboard
			}
			cfg = msg
		} else {
			msg := tgbotapi.NewEditMessageText(chatId, *messageId, text)
			msg.ReplyMarkup = &keyboard
			cfg = msg
		}
		_, err := ra.bot.Send(cfg)
		return err
	}
}

func maxPages(items, perPage int) int {
	return (items + perPage - 1) / perPage
}

func roundsTextMarkup[T fmt.Stringer](rounds []T, page int) (string, tgbotapi.InlineKeyboardMarkup) {
	pages := maxPages(len(rounds), roundsPerPage)
	if page < 0 {
		page = 0
	}
	if page >= pages {
		page = pages - 1
	}
	start := page * roundsPerPage
	end := start + roundsPerPage
	if end > len(rounds) {
		end = len(rounds)
	}

	lines := []string{}
	for _, r := range rounds[start:end] {
		lines = append(lines, r.String())
	}
	text := strings.Join(lines, "\n")

	var row []tgbotapi.InlineKeyboardButton
	if page > 0 {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(inlinePrevious, fmt.Sprintf("%s:%d", SubcommandRoundsPage, page-1)))
	}
	if page < pages-1 {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(inlineNext, fmt.Sprintf("%s:%d", SubcommandRoundsPage, page+1)))
	}
	if len(row) == 0 {
		return text, tgbotapi.InlineKeyboardMarkup{}
	}
	return text, tgbotapi.NewInlineKeyboardMarkup(row)
}

type roundLine struct {
	schedule model.RoundSchedule
}

func (rl roundLine) String() string {
	sprint := ""
	if rl.schedule.HasSprint() {
		sprint = " " + symbolSprint
	}
	return fmt.Sprintf(" ▸ %s%s ➡ /round_%d", rl.schedule, sprint, rl.schedule.Round)
}

func (ra *RoundsApp) renderRound(round int) func(ctx context.Context, chatId int64) error {
	return func(ctx context.Context, chatId int64) error {
		idx, err := ra.season.Find(round)
		if err != nil {
			return sendText(ra.bot, chatId, fmt.Sprintf("Round %d is not available. Try %s", round, commandRounds))
		}
		r := ra.season.Rounds()[idx]

		buttons := []tgbotapi.InlineKeyboardButton{}
		for _, kind := range model.SessionKinds {
			if r.Sessions[kind] == nil {
				continue
			}
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(kind.Label(), fmt.Sprintf("%s:%d:%s", SubcommandShowFastest, round, kind)))
		}

		message := fmt.Sprintf("%s\n\nPick a session to see the fastest laps, or use\n%s %d Q <DRV1> <DRV2>", r.Schedule, commandCompare, round)
		msg := tgbotapi.NewMessage(chatId, message)
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons)
		_, err = ra.bot.Send(msg)
		return err
	}
}

func (ra *RoundsApp) renderFastest(round, kind string) func(ctx context.Context, chatId int64) error {
	return func(ctx context.Context, chatId int64) error {
		session, err := resolveSession(ra.season, round, kind)
		if err != nil {
			return sendText(ra.bot, chatId, err.Error())
		}
		idx, err := ra.season.Find(session.Round)
		if err != nil {
			return sendText(ra.bot, chatId, err.Error())
		}
		laps, err := ra.season.Laps(ctx, idx, session.Kind, true, true)
		if err != nil {
			logger.Error("Loading laps of %s failed: %s", session, err)
			return sendText(ra.bot, chatId, "Could not load the laps of the session")
		}
		best := model.FastestPerDriver(laps)
		if len(best) == 0 {
			return sendText(ra.bot, chatId, "There are no laps in the session")
		}

		msg := tgbotapi.NewMessage(chatId, fmt.Sprintf("```\n%s\n\n%s```", session, fastestTable(best)))
		msg.ParseMode = tgbotapi.ModeMarkdownV2
		if len(best) > 1 {
			msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(
					fmt.Sprintf("%s vs %s %s", best[0].Driver, best[1].Driver, symbolCompare),
					fmt.Sprintf("%s:%d:%s:%s:%s", SubcommandCompare, session.Round, session.Kind, best[0].Driver, best[1].Driver)),
			))
		}
		_, err = ra.bot.Send(msg)
		return err
	}
}

func fastestTable(best []model.Lap) string {
	var b bytes.Buffer
	t := table.NewWriter()
	t.SetOutputMirror(&b)
	t.SetStyle(table.StyleRounded)
	t.AppendSeparator()

	t.AppendHeader(table.Row{tablePosition, tableDriver, tableLapTime, tableGap})
	for idx, lap := range best {
		if idx >= fastestListed {
			break
		}
		t.AppendRow([]interface{}{
			fmt.Sprintf("%d", idx+1),
			lap.Driver,
			helper.FormatLapTime(lap.LapTime),
			helper.SecondsToDiff((lap.LapTime - best[0].LapTime).Seconds()),
		})
	}
	t.Render()
	return b.String()
}
