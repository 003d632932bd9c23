package notification

import (
	"context"
	"fmt"
	"strconv"

	"f1telemetrybot/pkg/logger"
	"f1telemetrybot/pkg/model"
	"f1telemetrybot/pkg/pubsub"
	"f1telemetrybot/pkg/season"
	"f1telemetrybot/pkg/settings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/nikoksr/notify"
	"github.com/nikoksr/notify/service/telegram"
)

type Lister interface {
	ListSubscribers(kind model.SessionKind) ([]settings.TelegramUser, error)
}

type Manager struct {
	ctx         context.Context
	lister      Lister
	events      *pubsub.PubSub[season.RoundLoaded]
	newNotifier func(chatIDs []int64) notify.Notifier
}

func NewManager(ctx context.Context, bot *tgbotapi.BotAPI, lister Lister, events *pubsub.PubSub[season.RoundLoaded]) *Manager {
	return &Manager{
		ctx:    ctx,
		lister: lister,
		events: events,
		newNotifier: func(chatIDs []int64) notify.Notifier {
			tg := &telegram.Telegram{}
			tg.SetClient(bot)
			tg.AddReceivers(chatIDs...)
			return notify.NewWithServices(tg)
		},
	}
}

// Start announces every loaded round to the users subscribed to its session
// kinds until exitChan fires.
func (m *Manager) Start(exitChan <-chan bool) {
	loadedChan := m.events.Subscribe(season.TopicRoundLoaded)
	for {
		select {
		case <-exitChan:
			return
		case <-m.ctx.Done():
			return
		case round, ok := <-loadedChan:
			if !ok {
				return
			}
			m.handleRound(round)
		}
	}
}

func (m *Manager) handleRound(round season.RoundLoaded) {
	kinds := []model.SessionKind{model.Qualifying, model.Race}
	if round.HasSprint {
		kinds = model.SessionKinds
	}
	for _, kind := range kinds {
		m.handleNotification(round, kind)
	}
}

func (m *Manager) handleNotification(round season.RoundLoaded, kind model.SessionKind) {
	recipients, err := m.lister.ListSubscribers(kind)
	if err != nil {
		logger.Error("Error listing users for %s: %s", kind.Label(), err)
		return
	}
	logger.Info("Sending notification for %s -> %s to %d telegram users", round.RaceName, kind.Label(), len(recipients))
	if err := m.sendNotification(recipients, round, kind); err != nil {
		logger.Error("Error notifying users: %s", err)
	}
}

func (m *Manager) sendNotification(tusers []settings.TelegramUser, round season.RoundLoaded, kind model.SessionKind) error {
	if len(tusers) == 0 {
		return nil
	}

	chatIDs := []int64{}
	for _, tuser := range tusers {
		chatID, err := strconv.ParseInt(tuser.ChatID, 0, 64)
		if err != nil {
			logger.Warn("Invalid chat id %q for user %s", tuser.ChatID, tuser.ID)
			continue
		}
		chatIDs = append(chatIDs, chatID)
	}
	if len(chatIDs) == 0 {
		return nil
	}

	n := m.newNotifier(chatIDs)
	return n.Send(m.ctx, "New session available:", message(round, kind))
}

func message(round season.RoundLoaded, kind model.SessionKind) string {
	return fmt.Sprintf("%d Season Round %d: %s - %s\n/compare %d %s <DRV1> <DRV2>",
		round.Year, round.Round, round.RaceName, kind.Label(), round.Round, kind)
}
