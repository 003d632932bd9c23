package notification

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"f1telemetrybot/pkg/model"
	"f1telemetrybot/pkg/pubsub"
	"f1telemetrybot/pkg/season"
	"f1telemetrybot/pkg/settings"

	"github.com/nikoksr/notify"
)

type fakeLister map[model.SessionKind][]settings.TelegramUser

func (f fakeLister) ListSubscribers(kind model.SessionKind) ([]settings.TelegramUser, error) {
	return f[kind], nil
}

type sent struct {
	chatIDs []int64
	subject string
	message string
}

type recorder struct {
	mu   sync.Mutex
	sent []sent
}

type recordingNotifier struct {
	r       *recorder
	chatIDs []int64
}

func (n recordingNotifier) Send(ctx context.Context, subject, message string) error {
	n.r.mu.Lock()
	defer n.r.mu.Unlock()
	n.r.sent = append(n.r.sent, sent{chatIDs: n.chatIDs, subject: subject, message: message})
	return nil
}

func newTestManager(lister Lister, events *pubsub.PubSub[season.RoundLoaded]) (*Manager, *recorder) {
	r := &recorder{}
	m := &Manager{
		ctx:    context.Background(),
		lister: lister,
		events: events,
		newNotifier: func(chatIDs []int64) notify.Notifier {
			return recordingNotifier{r: r, chatIDs: chatIDs}
		},
	}
	return m, r
}

func TestHandleRound(t *testing.T) {
	lister := fakeLister{
		model.Qualifying: {{ID: "1", ChatID: "100"}, {ID: "2", ChatID: "200"}},
		model.Sprint:     {{ID: "3", ChatID: "300"}},
		model.Race:       {{ID: "4", ChatID: "not-a-number"}},
	}
	m, r := newTestManager(lister, nil)

	m.handleRound(season.RoundLoaded{Year: 2023, Round: 5, RaceName: "Miami Grand Prix"})
	if len(r.sent) != 1 {
		t.Fatalf("Expected one notification, got %d", len(r.sent))
	}
	if fmt.Sprint(r.sent[0].chatIDs) != "[100 200]" {
		t.Errorf("Unexpected receivers: %v", r.sent[0].chatIDs)
	}
	if !strings.Contains(r.sent[0].message, "Round 5: Miami Grand Prix - Qualifying") {
		t.Errorf("Unexpected message: %s", r.sent[0].message)
	}

	m.handleRound(season.RoundLoaded{Year: 2023, Round: 4, RaceName: "Azerbaijan Grand Prix", HasSprint: true})
	if len(r.sent) != 3 {
		t.Fatalf("Expected sprint subscribers to be notified, got %d notifications", len(r.sent))
	}
	if !strings.Contains(r.sent[2].message, "/compare 4 S") {
		t.Errorf("Unexpected sprint message: %s", r.sent[2].message)
	}
}

func TestStart(t *testing.T) {
	events := pubsub.NewPubSub[season.RoundLoaded]()
	lister := fakeLister{model.Race: {{ID: "1", ChatID: "100"}}}
	m, r := newTestManager(lister, events)

	exit := make(chan bool)
	done := make(chan struct{})
	go func() {
		m.Start(exit)
		close(done)
	}()

	// wait for the subscription before publishing
	deadline := time.Now().Add(2 * time.Second)
	for events.Publish(season.TopicRoundLoaded, season.RoundLoaded{Round: 1, RaceName: "Bahrain Grand Prix"}) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Manager never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	for {
		r.mu.Lock()
		n := len(r.sent)
		r.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Notification was not sent")
		}
		time.Sleep(10 * time.Millisecond)
	}

	exit <- true
	<-done
}
