package apps

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"f1telemetrybot/pkg/comparison"
	"f1telemetrybot/pkg/grapher"
	"f1telemetrybot/pkg/menus"
	"f1telemetrybot/pkg/model"
	"f1telemetrybot/pkg/season"
	"f1telemetrybot/pkg/settings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeBot struct {
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeBot) lastText(t *testing.T) string {
	t.Helper()
	if len(f.sent) == 0 {
		t.Fatal("Nothing was sent")
	}
	switch m := f.sent[len(f.sent)-1].(type) {
	case tgbotapi.MessageConfig:
		return m.Text
	case tgbotapi.EditMessageTextConfig:
		return m.Text
	case tgbotapi.PhotoConfig:
		return m.Caption
	}
	t.Fatalf("Unexpected chattable %T", f.sent[len(f.sent)-1])
	return ""
}

type fakeSeason struct {
	rounds []season.Round
	laps   []model.Lap
}

func newFakeSeason(n int) *fakeSeason {
	fs := &fakeSeason{}
	for i := 1; i <= n; i++ {
		sched := model.RoundSchedule{Season: 2023, Round: i, RaceName: fmt.Sprintf("Grand Prix %d", i), RaceDate: time.Date(2023, 3, i, 0, 0, 0, 0, time.UTC)}
		r := season.Round{Schedule: sched, Sessions: map[model.SessionKind]*model.Session{}}
		for _, k := range []model.SessionKind{model.Qualifying, model.Race} {
			r.Sessions[k] = &model.Session{Year: 2023, Round: i, Kind: k, EventName: sched.RaceName}
		}
		fs.rounds = append(fs.rounds, r)
	}
	return fs
}

func (f *fakeSeason) Year() int { return 2023 }

func (f *fakeSeason) Rounds() []season.Round { return f.rounds }

func (f *fakeSeason) Find(round int) (int, error) {
	for i, r := range f.rounds {
		if r.Schedule.Round == round {
			return i, nil
		}
	}
	return 0, season.ErrRoundNotFound
}

func (f *fakeSeason) Session(rnd int, kind model.SessionKind) (model.Session, error) {
	if rnd == season.LatestRound {
		rnd = len(f.rounds) - 1
	}
	if rnd < 0 || rnd >= len(f.rounds) {
		return model.Session{}, season.ErrRoundNotFound
	}
	s := f.rounds[rnd].Sessions[kind]
	if s == nil {
		return model.Session{}, season.ErrSessionNotFound
	}
	return *s, nil
}

func (f *fakeSeason) Laps(ctx context.Context, rnd int, kind model.SessionKind, accurate, notDeleted bool) ([]model.Lap, error) {
	return f.laps, nil
}

type fakeCharter struct {
	session model.Session
	drivers [2]string
	err     error
}

func (f *fakeCharter) TelemetryGraph(ctx context.Context, session model.Session, drivers [2]string, save bool) (*grapher.Graph, error) {
	f.session, f.drivers = session, drivers
	if f.err != nil {
		return nil, f.err
	}
	c := &comparison.Comparison{
		Session: session,
		Drivers: drivers,
		Laps: [2]model.Lap{
			{Driver: drivers[0], LapNumber: 10, LapTime: 88500 * time.Millisecond, Compound: "SOFT"},
			{Driver: drivers[1], LapNumber: 12, LapTime: 90 * time.Second, Compound: "SOFT"},
		},
	}
	return &grapher.Graph{ID: "graph", Session: session, Drivers: drivers, Title: c.Title(), PNG: []byte{1}, Comparison: c}, nil
}

func (f *fakeCharter) TrackMap(ctx context.Context, session model.Session, driver string) (*grapher.TrackMap, error) {
	f.session, f.drivers = session, [2]string{driver}
	if f.err != nil {
		return nil, f.err
	}
	return &grapher.TrackMap{ID: "map", Session: session, Lap: model.Lap{Driver: driver, LapNumber: 3, LapTime: 90 * time.Second}, PNG: []byte{1}}, nil
}

func callbackQuery(data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:   "q",
		From: &tgbotapi.User{ID: 42, UserName: "tester"},
		Data: data,
		Message: &tgbotapi.Message{
			MessageID: 7,
			Chat:      &tgbotapi.Chat{ID: 99},
		},
	}
}

func callbackData(b tgbotapi.InlineKeyboardButton) string {
	if b.CallbackData == nil {
		return ""
	}
	return *b.CallbackData
}

func TestMainApp_Start(t *testing.T) {
	bot := &fakeBot{}
	app := NewMainApp(bot, newFakeSeason(1), &fakeCharter{}, nil)
	ok, handler := app.AcceptCommand(menuStart)
	if !ok {
		t.Fatal("Expected /start to be accepted")
	}
	if err := handler(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if text := bot.lastText(t); !strings.Contains(text, commandCompare) {
		t.Errorf("Start message should describe %s: %q", commandCompare, text)
	}
	if ok, _ := app.AcceptCommand("/unknown"); ok {
		t.Error("Unknown commands should not be accepted")
	}
}

func TestRoundsApp_Pagination(t *testing.T) {
	bot := &fakeBot{}
	app := NewMainApp(bot, newFakeSeason(12), &fakeCharter{}, nil)

	ok, handler := app.AcceptButton(buttonRounds)
	if !ok {
		t.Fatal("Expected rounds button to be accepted")
	}
	if err := handler(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	msg := bot.sent[0].(tgbotapi.MessageConfig)
	if strings.Count(msg.Text, "\n") != roundsPerPage-1 {
		t.Errorf("Expected %d rounds on the first page: %q", roundsPerPage, msg.Text)
	}
	keyboard := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if got := callbackData(keyboard.InlineKeyboard[0][0]); got != "rounds:1" {
		t.Fatalf("Expected next page callback, got %q", got)
	}

	ok, cb := app.AcceptCallback(callbackQuery("rounds:1"))
	if !ok {
		t.Fatal("Expected page callback to be accepted")
	}
	if err := cb(context.Background(), callbackQuery("rounds:1")); err != nil {
		t.Fatal(err)
	}
	edit, isEdit := bot.sent[1].(tgbotapi.EditMessageTextConfig)
	if !isEdit {
		t.Fatalf("Expected an edit, got %T", bot.sent[1])
	}
	if !strings.Contains(edit.Text, "/round_12") || strings.Contains(edit.Text, "/round_1 ") {
		t.Errorf("Unexpected second page: %q", edit.Text)
	}
	if got := callbackData(edit.ReplyMarkup.InlineKeyboard[0][0]); got != "rounds:0" {
		t.Errorf("Expected previous page callback, got %q", got)
	}
}

func TestRoundsApp_Round(t *testing.T) {
	bot := &fakeBot{}
	app := NewRoundsApp(bot, menusForTest(buttonRounds), newFakeSeason(3))

	ok, handler := app.AcceptCommand("/round_2")
	if !ok {
		t.Fatal("Expected /round_2 to be accepted")
	}
	if err := handler(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	msg := bot.sent[0].(tgbotapi.MessageConfig)
	keyboard := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if len(keyboard.InlineKeyboard[0]) != 2 {
		t.Fatalf("Expected qualifying and race buttons, got %d", len(keyboard.InlineKeyboard[0]))
	}
	if got := callbackData(keyboard.InlineKeyboard[0][0]); got != "fastest:2:Q" {
		t.Errorf("Unexpected callback %q", got)
	}

	_, handler = app.AcceptCommand("/round_9")
	if err := handler(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if text := bot.lastText(t); !strings.Contains(text, "not available") {
		t.Errorf("Unexpected message for a missing round: %q", text)
	}
}

func TestRoundsApp_Fastest(t *testing.T) {
	bot := &fakeBot{}
	fs := newFakeSeason(3)
	fs.laps = []model.Lap{
		{Driver: "HAM", LapNumber: 4, LapTime: 90 * time.Second},
		{Driver: "VER", LapNumber: 5, LapTime: 88500 * time.Millisecond},
		{Driver: "VER", LapNumber: 6, LapTime: 89 * time.Second},
	}
	app := NewRoundsApp(bot, menusForTest(buttonRounds), fs)

	query := callbackQuery("fastest:3:Q")
	ok, handler := app.AcceptCallback(query)
	if !ok {
		t.Fatal("Expected fastest callback to be accepted")
	}
	if err := handler(context.Background(), query); err != nil {
		t.Fatal(err)
	}
	msg := bot.sent[0].(tgbotapi.MessageConfig)
	if msg.ParseMode != tgbotapi.ModeMarkdownV2 {
		t.Error("Expected a markdown table")
	}
	if !strings.Contains(msg.Text, "1:28.5") || !strings.Contains(msg.Text, "+1.500s") {
		t.Errorf("Unexpected fastest table: %q", msg.Text)
	}
	if strings.Index(msg.Text, "VER") > strings.Index(msg.Text, "HAM") {
		t.Error("Fastest driver should be listed first")
	}
	keyboard := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if got := callbackData(keyboard.InlineKeyboard[0][0]); got != "compare:3:Q:VER:HAM" {
		t.Errorf("Unexpected compare callback %q", got)
	}
}

func TestCompareApp_Command(t *testing.T) {
	bot := &fakeBot{}
	charter := &fakeCharter{}
	app := NewCompareApp(bot, menusForTest(buttonCompare), newFakeSeason(3), charter)

	ok, handler := app.AcceptCommand("/compare 2 q max verstappen HAM")
	if !ok {
		t.Fatal("Expected /compare to be accepted")
	}
	if err := handler(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if charter.session.Round != 0 {
		t.Error("Charter should not be called with too many arguments")
	}
	if len(bot.sent) != 1 || !strings.Contains(bot.lastText(t), "Usage") {
		t.Fatalf("Extra arguments should print the usage, got %d messages", len(bot.sent))
	}

	bot.sent = nil
	_, handler = app.AcceptCommand("/compare last q ver ham")
	if err := handler(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if charter.session.Round != 3 || charter.session.Kind != model.Qualifying {
		t.Errorf("Expected the last qualifying, got %+v", charter.session)
	}
	if len(bot.sent) != 2 {
		t.Fatalf("Expected photo and summary, got %d messages", len(bot.sent))
	}
	photo := bot.sent[0].(tgbotapi.PhotoConfig)
	if !strings.Contains(photo.Caption, "VER 1:28.5 vs HAM 1:30.0") {
		t.Errorf("Unexpected caption %q", photo.Caption)
	}
	if summary := bot.lastText(t); !strings.Contains(summary, "+1.500s") {
		t.Errorf("Unexpected summary %q", summary)
	}
}

func TestCompareApp_Errors(t *testing.T) {
	bot := &fakeBot{}
	charter := &fakeCharter{}
	app := NewCompareApp(bot, menusForTest(buttonCompare), newFakeSeason(3), charter)

	cases := []struct {
		command string
		err     error
		want    string
	}{
		{"/compare 9 Q VER HAM", nil, "not available"},
		{"/compare 1 S VER HAM", nil, "did not take place"},
		{"/compare 1 X VER HAM", nil, "unknown session"},
		{"/compare 1 R VER ALB", &comparison.MissingDriverError{Driver: "ALB"}, "no lap of ALB"},
		{"/map 1 R ALB", &comparison.MissingDriverError{Driver: "ALB"}, "no lap of ALB"},
	}
	for _, c := range cases {
		charter.err = c.err
		ok, handler := app.AcceptCommand(c.command)
		if !ok {
			t.Fatalf("Expected %q to be accepted", c.command)
		}
		if err := handler(context.Background(), 1); err != nil {
			t.Fatal(err)
		}
		if text := bot.lastText(t); !strings.Contains(text, c.want) {
			t.Errorf("%s: expected %q in %q", c.command, c.want, text)
		}
	}
}

func TestCompareApp_CallbackAndMap(t *testing.T) {
	bot := &fakeBot{}
	charter := &fakeCharter{}
	app := NewCompareApp(bot, menusForTest(buttonCompare), newFakeSeason(3), charter)

	query := callbackQuery("compare:1:R:VER:HAM")
	ok, handler := app.AcceptCallback(query)
	if !ok {
		t.Fatal("Expected compare callback to be accepted")
	}
	if err := handler(context.Background(), query); err != nil {
		t.Fatal(err)
	}
	if charter.session.Round != 1 || charter.session.Kind != model.Race {
		t.Errorf("Unexpected session %+v", charter.session)
	}

	_, cmd := app.AcceptCommand("/map 2 Q leclerc")
	if err := cmd(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	photo := bot.sent[len(bot.sent)-1].(tgbotapi.PhotoConfig)
	if charter.drivers[0] != "LEC" || !strings.Contains(photo.Caption, "LEC") {
		t.Errorf("Unexpected map caption %q", photo.Caption)
	}
}

func TestSettingsApp_Toggle(t *testing.T) {
	sm, err := settings.NewManager(filepath.Join(t.TempDir(), "settings.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer sm.Close()

	bot := &fakeBot{}
	app := NewMainApp(bot, newFakeSeason(1), &fakeCharter{}, sm)
	ctx := context.WithValue(context.Background(), UserContextKey, &tgbotapi.User{ID: 42, UserName: "tester"})

	ok, handler := app.AcceptButton(buttonSettings)
	if !ok {
		t.Fatal("Expected settings button to be accepted")
	}
	if err := handler(ctx, 99); err != nil {
		t.Fatal(err)
	}
	keyboard := bot.sent[0].(tgbotapi.MessageConfig).ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if got := callbackData(keyboard.InlineKeyboard[0][0]); got != "notifications:42:Q" {
		t.Fatalf("Unexpected callback %q", got)
	}

	query := callbackQuery("notifications:42:Q")
	ok, cb := app.AcceptCallback(query)
	if !ok {
		t.Fatal("Expected notifications callback to be accepted")
	}
	if err := cb(ctx, query); err != nil {
		t.Fatal(err)
	}
	if _, isEdit := bot.sent[1].(tgbotapi.EditMessageTextConfig); !isEdit {
		t.Errorf("Expected the keyboard to be edited, got %T", bot.sent[1])
	}
	n, err := sm.ListNotifications("42")
	if err != nil {
		t.Fatal(err)
	}
	if !n[model.Qualifying] || n[model.Race] {
		t.Errorf("Only qualifying should be enabled: %v", n)
	}
	subs, err := sm.ListSubscribers(model.Qualifying)
	if err != nil || len(subs) != 1 || subs[0].ChatID != "99" {
		t.Errorf("Unexpected subscribers %v %v", subs, err)
	}
}

func TestBot_Dispatch(t *testing.T) {
	bot := &fakeBot{}
	b := NewBot(bot, NewMainApp(bot, newFakeSeason(3), &fakeCharter{}, nil))

	b.handleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: 1},
		Chat:     &tgbotapi.Chat{ID: 5},
		Text:     "/rounds",
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 7}},
	}})
	if len(bot.sent) != 1 || bot.sent[0].(tgbotapi.MessageConfig).ChatID != 5 {
		t.Fatalf("Expected rounds to be sent to chat 5, got %v", bot.sent)
	}

	b.handleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: callbackQuery("fastest:1:R")})
	if len(bot.requests) != 1 {
		t.Errorf("Expected the callback to be answered, got %d requests", len(bot.requests))
	}

	b.handleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: callbackQuery("unknown:1")})
	if len(bot.requests) != 1 {
		t.Error("Unknown callbacks should be ignored")
	}
}

func menusForTest(name string) menus.ApplicationMenu {
	return menus.NewApplicationMenu(name, appName, menuer{})
}
