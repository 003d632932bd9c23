package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"f1telemetrybot/pkg/apps"
	"f1telemetrybot/pkg/cache"
	"f1telemetrybot/pkg/chart"
	"f1telemetrybot/pkg/config"
	"f1telemetrybot/pkg/grapher"
	"f1telemetrybot/pkg/helper"
	"f1telemetrybot/pkg/logger"
	"f1telemetrybot/pkg/model"
	"f1telemetrybot/pkg/notification"
	"f1telemetrybot/pkg/provider"
	"f1telemetrybot/pkg/pubsub"
	"f1telemetrybot/pkg/season"
	"f1telemetrybot/pkg/settings"
	"f1telemetrybot/pkg/webserver"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jedib0t/go-pretty/v6/progress"
)

const cacheMaxAge = 30 * 24 * time.Hour

type options struct {
	configPath string
	compare    string
	round      int
	session    string
	save       bool
	year       int
	mockAddr   string
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.configPath, "config", "", "path to the configuration file")
	flag.StringVar(&o.compare, "compare", "", "compare two drivers and exit, e.g. VER,HAM")
	flag.IntVar(&o.round, "round", 0, "championship round to compare (0 for the latest)")
	flag.StringVar(&o.session, "session", string(model.Qualifying), "session to compare: Q, R, SS or S")
	flag.BoolVar(&o.save, "save", false, "save the comparison chart under the output directory")
	flag.IntVar(&o.year, "year", 0, "season to load, overrides the configuration")
	flag.StringVar(&o.mockAddr, "mock", "", "serve synthetic provider data on this address and use it")
	flag.Parse()
	return o
}

func main() {
	opts := parseFlags()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if opts.year != 0 {
		cfg.Season.Year = opts.year
	}
	if opts.save {
		cfg.Charts.Save = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)

	if opts.mockAddr != "" {
		CreateMockServer(opts.mockAddr)
		cfg.Provider.BaseURL, cfg.Provider.ScheduleURL = mockURLs(opts.mockAddr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := provider.NewClient(cfg.Provider.BaseURL, cfg.Provider.ScheduleURL, cfg.Provider.Timeout)
	var src provider.Source = client
	if cfg.Storage.CacheEnabled {
		store, err := cache.Open(cfg.Storage.DBPath)
		if err != nil {
			logger.Fatal("Opening provider cache: %s", err)
		}
		defer store.Close()
		if pruned, err := store.Prune(cacheMaxAge); err != nil {
			logger.Warn("Pruning provider cache: %s", err)
		} else if pruned > 0 {
			logger.Info("Pruned %d cached responses", pruned)
		}
		src = cache.NewSource(client, store)
	}

	renderedPubSub := pubsub.NewPubSub[grapher.Rendered]()
	roundsPubSub := pubsub.NewPubSub[season.RoundLoaded]()
	g := grapher.New(src, chart.NewRenderer(chart.NewStyle(cfg.Charts)), cfg.Charts.OutputDir, renderedPubSub)
	sm := season.NewManager(cfg.Season.Year, src, client, cfg.Season.Concurrency, roundsPubSub)

	if opts.compare != "" {
		if err := runComparison(ctx, sm, g, opts, cfg.Charts.Save); err != nil {
			logger.Fatal("%s", err)
		}
		return
	}

	runService(ctx, cancel, cfg, sm, g, roundsPubSub, renderedPubSub)
}

func newProgressWriter(rounds int) progress.Writer {
	pw := progress.NewWriter()
	pw.SetAutoStop(true)
	pw.SetTrackerLength(25)
	pw.SetMessageWidth(28)
	pw.SetNumTrackersExpected(rounds)
	pw.SetSortBy(progress.SortByMessage)
	pw.SetStyle(progress.StyleDefault)
	pw.SetTrackerPosition(progress.PositionRight)
	pw.SetUpdateFrequency(time.Millisecond * 100)
	pw.Style().Colors = progress.StyleColorsDefault
	pw.Style().Options.Separator = ""
	pw.Style().Visibility.ETA = false
	pw.Style().Visibility.Percentage = false
	pw.Style().Visibility.Speed = false
	pw.Style().Visibility.Value = false
	pw.Style().Chars.BoxLeft = "|"
	pw.Style().Chars.BoxRight = "🏁"
	return pw
}

// runComparison loads the season, renders one comparison and prints its
// summary.
func runComparison(ctx context.Context, sm *season.Manager, g *grapher.Grapher, opts options, save bool) error {
	codes := strings.Split(opts.compare, ",")
	if len(codes) != 2 {
		return fmt.Errorf("-compare needs two drivers separated by a comma, got %q", opts.compare)
	}
	drivers := [2]string{helper.DriverCode(codes[0]), helper.DriverCode(codes[1])}
	kind, ok := model.ParseSessionKind(opts.session)
	if !ok {
		return fmt.Errorf("unknown session %q", opts.session)
	}

	pw := newProgressWriter(24)
	sm.SetProgress(pw)
	go pw.Render()
	_, err := sm.Load(ctx, time.Now())
	for pw.IsRenderInProgress() {
		if pw.LengthActive() == 0 {
			pw.Stop()
		}
		time.Sleep(50 * time.Millisecond)
	}
	if err != nil {
		return err
	}

	idx := season.LatestRound
	if opts.round > 0 {
		if idx, err = sm.Find(opts.round); err != nil {
			return err
		}
	}
	session, err := sm.Session(idx, kind)
	if err != nil {
		return err
	}

	graph, err := g.TelemetryGraph(ctx, session, drivers, save)
	if err != nil {
		return err
	}
	fmt.Println(graph.Title)
	fmt.Print(graph.Comparison.Summary())
	if graph.Path != "" {
		fmt.Printf("Chart saved to %s\n", graph.Path)
	}
	return nil
}

func runService(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, sm *season.Manager, g *grapher.Grapher,
	roundsPubSub *pubsub.PubSub[season.RoundLoaded], renderedPubSub *pubsub.PubSub[grapher.Rendered]) {
	exitChan := make(chan bool)
	var wg sync.WaitGroup

	ticker := time.NewTicker(cfg.Season.RefreshInterval)
	defer ticker.Stop()
	sm.Sync(ctx, ticker, exitChan)

	if cfg.Telegram.Enabled {
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			logger.Fatal("Connecting to telegram: %s", err)
		}
		bot.Debug = cfg.Telegram.Debug

		settingsManager, err := settings.NewManager(cfg.Storage.DBPath)
		if err != nil {
			logger.Fatal("Opening settings: %s", err)
		}
		defer settingsManager.Close()

		nm := notification.NewManager(ctx, bot, settingsManager, roundsPubSub)
		wg.Add(1)
		go func() {
			defer wg.Done()
			nm.Start(exitChan)
		}()

		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		updates := bot.GetUpdatesChan(u)
		b := apps.NewBot(bot, apps.NewMainApp(bot, sm, g, settingsManager))
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.ReceiveUpdates(ctx, updates)
		}()
		defer bot.StopReceivingUpdates()
		logger.Info("Start listening for updates. Press Ctrl-C to stop it")
	}

	if cfg.Webserver.Enabled {
		ws := webserver.NewManager(sm, g, cfg.Charts.OutputDir, renderedPubSub)
		ws.Debug()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ws.Serve(ctx, cfg.Webserver.Address); err != nil {
				logger.Error("webserver: %s", err)
				cancel()
			}
		}()
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigs:
	case <-ctx.Done():
	}

	close(exitChan)
	cancel()
	wg.Wait()
	logger.Info("Bye")
}
