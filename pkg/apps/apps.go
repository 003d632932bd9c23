package apps

import (
	"context"
	"fmt"
	"strconv"

	"f1telemetrybot/pkg/grapher"
	"f1telemetrybot/pkg/model"
	"f1telemetrybot/pkg/season"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type ContextUser string
type ContextChatID string

const (
	UserContextKey ContextUser   = "user"
	ChatContextKey ContextChatID = "chat"
)

type Accepter interface {
	AcceptCommand(command string) (bool, func(ctx context.Context, chatId int64) error)
	AcceptButton(button string) (bool, func(ctx context.Context, chatId int64) error)
	AcceptCallback(query *tgbotapi.CallbackQuery) (bool, func(ctx context.Context, query *tgbotapi.CallbackQuery) error)
}

// Sender is the part of *tgbotapi.BotAPI the apps use.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Charter interface {
	TelemetryGraph(ctx context.Context, session model.Session, drivers [2]string, save bool) (*grapher.Graph, error)
	TrackMap(ctx context.Context, session model.Session, driver string) (*grapher.TrackMap, error)
}

type Seasoner interface {
	Year() int
	Rounds() []season.Round
	Find(round int) (int, error)
	Session(rnd int, kind model.SessionKind) (model.Session, error)
	Laps(ctx context.Context, rnd int, kind model.SessionKind, accurate, notDeleted bool) ([]model.Lap, error)
}

// resolveSession maps a championship round number ("last" for the latest
// one) and a session kind to a loaded session.
func resolveSession(s Seasoner, round, kind string) (model.Session, error) {
	k, ok := model.ParseSessionKind(kind)
	if !ok {
		return model.Session{}, fmt.Errorf("unknown session %q, use one of Q, R, SS, S", kind)
	}
	idx := season.LatestRound
	if round != "last" {
		n, err := strconv.Atoi(round)
		if err != nil {
			return model.Session{}, fmt.Errorf("invalid round %q", round)
		}
		idx, err = s.Find(n)
		if err != nil {
			return model.Session{}, err
		}
	}
	return s.Session(idx, k)
}

func sendText(bot Sender, chatId int64, text string) error {
	msg := tgbotapi.NewMessage(chatId, text)
	_, err := bot.Send(msg)
	return err
}
