// Package bootstrap builds a ready fintrack.Client from a config.Config.
package bootstrap

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/eshaffer321/fintrack-go/pkg/amqp"
	"github.com/eshaffer321/fintrack-go/pkg/config"
	"github.com/eshaffer321/fintrack-go/pkg/firebase"
	"github.com/eshaffer321/fintrack-go/pkg/fintrack"
	"github.com/eshaffer321/fintrack-go/pkg/gsheets"
	"github.com/eshaffer321/fintrack-go/pkg/memory"
	"github.com/eshaffer321/fintrack-go/pkg/sqlitecache"
	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// App is a wired client with the resources it owns
type App struct {
	Client *fintrack.Client

	// Exporter is nil unless a spreadsheet is configured
	Exporter fintrack.ReportExporter

	Logger zerolog.Logger

	closers []func() error
}

// Options overrides parts of the wiring
type Options struct {
	// LogOutput defaults to stderr
	LogOutput io.Writer

	// Publisher replaces the AMQP publisher built from the config
	Publisher fintrack.EventPublisher

	// Exporter replaces the Sheets exporter built from the config
	Exporter fintrack.ReportExporter
}

// New validates cfg, builds the collaborators and connects the client. A
// session kept by the Firebase backend is restored before New returns.
func New(ctx context.Context, cfg *config.Config, opts *Options) (app *App, err error) {
	if cfg == nil {
		return nil, errors.New("bootstrap: config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &Options{}
	}

	app = &App{Logger: NewLogger(cfg.Log, opts.LogOutput)}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()
	logger := fintrack.NewZerologLogger(app.Logger)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	clientOpts := &fintrack.ClientOptions{
		CacheNamespace: cfg.Cache.Namespace,
		InitialBalance: cfg.InitialBalance,
		Location:       loc,
		Logger:         logger,
		SentryDSN:      cfg.Sentry.DSN,
	}
	if cfg.Sentry.Environment != "" {
		clientOpts.SentryOptions = &sentry.ClientOptions{Environment: cfg.Sentry.Environment}
	}

	var restore func(context.Context) (*fintrack.Identity, error)
	switch cfg.Backend {
	case config.BackendFirebase:
		backend, err := firebase.New(firebaseOptions(cfg, logger))
		if err != nil {
			return nil, errors.Wrap(err, "create firebase backend")
		}
		clientOpts.Identity = backend.Identity
		clientOpts.Persistence = backend.Persistence
		restore = backend.Identity.Restore
	default:
		clientOpts.Identity = memory.NewIdentity()
		clientOpts.Persistence = memory.NewPersistence()
	}

	if cfg.Cache.Path != "" {
		cache, err := sqlitecache.Open(cfg.Cache.Path)
		if err != nil {
			return nil, errors.Wrap(err, "open cache")
		}
		app.closers = append(app.closers, cache.Close)
		clientOpts.Cache = cache
	} else {
		clientOpts.Cache = memory.NewCache()
	}

	switch {
	case opts.Publisher != nil:
		clientOpts.Publisher = opts.Publisher
	case cfg.AMQP.URL != "":
		publisher, err := amqp.Dial(&amqp.Options{
			URL:      cfg.AMQP.URL,
			Exchange: cfg.AMQP.Exchange,
			Logger:   logger,
		})
		if err != nil {
			return nil, errors.Wrap(err, "connect event publisher")
		}
		app.closers = append(app.closers, publisher.Close)
		clientOpts.Publisher = publisher
	}

	switch {
	case opts.Exporter != nil:
		app.Exporter = opts.Exporter
	case cfg.Sheets.SpreadsheetID != "":
		exporter, err := gsheets.New(ctx, &gsheets.Options{
			SpreadsheetID:   cfg.Sheets.SpreadsheetID,
			SheetName:       cfg.Sheets.SheetName,
			CredentialsFile: cfg.Sheets.CredentialsFile,
			Logger:          logger,
		})
		if err != nil {
			return nil, errors.Wrap(err, "create sheets exporter")
		}
		app.Exporter = exporter
	}

	client, err := fintrack.NewClient(clientOpts)
	if err != nil {
		return nil, err
	}
	// The client closes before the resources it writes to.
	app.closers = append([]func() error{client.Close}, app.closers...)
	app.Client = client

	if err := client.Connect(ctx); err != nil {
		return nil, errors.Wrap(err, "connect client")
	}

	if restore != nil {
		ident, err := restore(ctx)
		if err != nil {
			app.Logger.Warn().Err(err).Msg("Stored session could not be restored")
		} else if ident != nil {
			app.Logger.Info().Str("userId", ident.UserID).Msg("Session restored")
		}
	}

	return app, nil
}

// Export builds the report for mode and sends it to the configured exporter
func (a *App) Export(ctx context.Context, mode fintrack.CashFlowMode) error {
	if a.Exporter == nil {
		return errors.New("bootstrap: no report exporter configured")
	}
	return a.Client.Analytics.Export(ctx, mode, a.Exporter)
}

// Close releases the client and everything it owns. The first error wins.
func (a *App) Close() error {
	var first error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// NewLogger builds the zerolog logger described by cfg
func NewLogger(cfg config.LogConfig, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	return zerolog.New(out).Level(level).With().Timestamp().Str("service", "fintrack").Logger()
}

func firebaseOptions(cfg *config.Config, logger fintrack.Logger) *firebase.Options {
	opts := &firebase.Options{
		APIKey:       cfg.Firebase.APIKey,
		ProjectID:    cfg.Firebase.ProjectID,
		SessionFile:  cfg.Firebase.SessionFile,
		PollInterval: cfg.Firebase.PollInterval,
		IdentityURL:  cfg.Firebase.IdentityURL,
		TokenURL:     cfg.Firebase.TokenURL,
		FirestoreURL: cfg.Firebase.FirestoreURL,
		Logger:       logger,
	}
	if cfg.Retry.MaxRetries > 0 {
		opts.RetryConfig = &firebase.RetryConfig{
			MaxRetries: cfg.Retry.MaxRetries,
			RetryWait:  cfg.Retry.Wait,
			MaxWait:    cfg.Retry.MaxWait,
		}
	}
	return opts
}
