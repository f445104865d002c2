package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gwarden/gwarden/internal/action"
	"github.com/gwarden/gwarden/internal/automod"
	"github.com/gwarden/gwarden/internal/config"
	"github.com/gwarden/gwarden/internal/database"
	"github.com/gwarden/gwarden/internal/discord"
	"github.com/gwarden/gwarden/internal/metrics"
	"github.com/gwarden/gwarden/internal/notification"
	"github.com/gwarden/gwarden/internal/record"
	"github.com/gwarden/gwarden/internal/thirdparty"
	"github.com/gwarden/gwarden/internal/warn"
	"github.com/gwarden/gwarden/pkg/log"
)

var (
	BuildVersion = "master" //nolint:gochecknoglobals
	BuildCommit  = ""       //nolint:gochecknoglobals
	BuildDate    = ""       //nolint:gochecknoglobals
	SentryDSN    = ""       //nolint:gochecknoglobals
)

const (
	// How many messages the spam window retains at most.
	windowCapacity = 2048

	sentryFlushTimeout = time.Second * 2
)

// Warden holds the wired application components.
type Warden struct {
	conf      config.Config
	database  database.Database
	store     record.Store
	actions   *action.Logger
	warnings  *warn.Ledger
	engine    *automod.Engine
	collector *metrics.Collector
	bot       *discord.Bot
	sentry    *sentry.Client

	logCloser func()
}

func NewWarden() (*Warden, error) {
	conf, errConfig := config.Read(true)
	if errConfig != nil {
		return nil, errConfig
	}

	return &Warden{conf: conf}, nil
}

// Init connects storage and builds the moderation pipeline. The discord
// session is constructed but not yet opened; Serve does that.
func (w *Warden) Init(ctx context.Context) error {
	// Build-time DSN can be overridden at runtime.
	if SentryDSN == "" {
		if value, found := os.LookupEnv("SENTRY_DSN"); found && value != "" {
			SentryDSN = value
		}
	}

	w.setupSentry()
	w.logCloser = log.MustCreateLogger(ctx, w.conf.Log.File, w.conf.Log.Level, SentryDSN != "", BuildVersion)

	slog.Info("Starting gwarden...",
		slog.String("version", BuildVersion),
		slog.String("commit", BuildCommit),
		slog.String("date", BuildDate))

	dbConn := database.New(w.conf.Database.DSN, w.conf.Database.AutoMigrate, w.conf.Database.LogQueries)
	if errConnect := dbConn.Connect(ctx); errConnect != nil {
		slog.Error("Cannot initialize database", log.ErrAttr(errConnect))

		return errConnect
	}

	w.database = dbConn
	w.store = record.NewStore(record.NewRepository(dbConn))
	w.warnings = warn.NewLedger(w.store)

	w.collector = metrics.NewCollector()
	if errRegister := w.collector.Register(prometheus.DefaultRegisterer); errRegister != nil {
		slog.Error("Failed to register metrics", log.ErrAttr(errRegister))

		return errRegister
	}

	w.engine = automod.NewEngine(
		w.conf.Automod.RuleConfig(w.conf.Discord.Owners),
		automod.NewWindow(automod.SpamLookback, windowCapacity),
		thirdparty.NewAntiFishClient(w.conf.Automod.AntiFishURL),
		thirdparty.NewNSFWClient(w.conf.Automod.NSFWDetectorURL, w.conf.Automod.NSFWAPIKey),
		w.collector)

	bot, errBot := discord.New(w.conf.Discord, w.engine)
	if errBot != nil {
		slog.Error("Cannot create discord bot", log.ErrAttr(errBot))

		return errBot
	}

	w.bot = bot
	w.actions = action.NewLogger(w.store, bot, w.conf.Discord.LogChannelID)
	bot.BindActionLogger(w.actions)

	return nil
}

// InitStoreOnly wires just the config, logger and record store, for the CLI
// record commands which do not need a bot session.
func (w *Warden) InitStoreOnly(ctx context.Context) error {
	w.logCloser = log.MustCreateLogger(ctx, w.conf.Log.File, w.conf.Log.Level, false, BuildVersion)

	dbConn := database.New(w.conf.Database.DSN, w.conf.Database.AutoMigrate, w.conf.Database.LogQueries)
	if errConnect := dbConn.Connect(ctx); errConnect != nil {
		return errConnect
	}

	w.database = dbConn
	w.store = record.NewStore(record.NewRepository(dbConn))
	w.warnings = warn.NewLedger(w.store)
	w.collector = metrics.NewCollector()
	w.actions = action.NewLogger(w.store, notification.NewNullNotifier(), "")

	return nil
}

func (w *Warden) setupSentry() {
	if SentryDSN == "" {
		slog.Info("Sentry.io support is disabled. To enable at runtime, set SENTRY_DSN.")

		return
	}

	client, errClient := log.NewSentryClient(SentryDSN, w.conf.Sentry.Trace, w.conf.Sentry.SampleRate,
		BuildVersion, w.conf.Sentry.Environment)
	if errClient != nil {
		slog.Error("Failed to setup sentry client", log.ErrAttr(errClient))
	} else {
		w.sentry = client
	}
}

func (w *Warden) Close(_ context.Context) error {
	if w.bot != nil {
		w.bot.Shutdown()
	}

	var errClose error

	if w.database != nil {
		errClose = w.database.Close()
	}

	if w.sentry != nil {
		w.sentry.Flush(sentryFlushTimeout)
	}

	if w.logCloser != nil {
		w.logCloser()
	}

	return errors.Join(errClose)
}
