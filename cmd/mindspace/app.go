package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pbaille/mindspace/internal/classifier"
	"github.com/pbaille/mindspace/internal/config"
	"github.com/pbaille/mindspace/internal/journal"
	"github.com/pbaille/mindspace/internal/logging"
	"github.com/pbaille/mindspace/internal/store"
	"github.com/pbaille/mindspace/internal/telemetry"
)

// app is everything a command needs, built once per invocation
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	history *store.History
	journal *journal.Journal
	loaded  func() bool

	closers []func(context.Context) error
}

// globalFlags are the persistent flags shared by all commands
type globalFlags struct {
	configPath string
	dataDir    string
	store      string
	logLevel   string
	tracing    bool
}

func newApp(ctx context.Context, flags globalFlags) (*app, context.Context, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, ctx, err
	}
	if flags.dataDir != "" {
		cfg.DataDir = flags.dataDir
	}
	if flags.store != "" {
		cfg.Store = strings.ToLower(flags.store)
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if flags.tracing {
		cfg.Tracing = true
	}

	logger := logging.New(cfg.LogLevel, os.Stderr)
	logging.SetDefault(logger)
	ctx = logging.With(ctx, logger)

	a := &app{cfg: cfg, logger: logger, loaded: func() bool { return true }}

	if cfg.Tracing {
		shutdown, err := telemetry.Init(ctx, telemetry.Config{ServiceName: "mindspace", Stdout: true})
		if err != nil {
			return nil, ctx, err
		}
		a.closers = append(a.closers, shutdown)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		a.close(ctx)
		return nil, ctx, goerr.Wrap(err, "failed to create data dir", goerr.V("path", cfg.DataDir))
	}

	persister, err := a.persister()
	if err != nil {
		a.close(ctx)
		return nil, ctx, err
	}
	a.history = store.NewHistory(persister)

	c, err := a.classifier()
	if err != nil {
		a.close(ctx)
		return nil, ctx, err
	}
	a.journal = journal.New(c, a.history, journal.WithTimeout(cfg.Timeout))

	return a, ctx, nil
}

func (a *app) persister() (store.Persister, error) {
	switch a.cfg.Store {
	case config.StoreSQLite:
		p, err := store.NewSQLitePersister(a.cfg.DBPath())
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return p.Close() })
		return p, nil
	case config.StoreJSON:
		return store.NewFilePersister(a.cfg.HistoryPath()), nil
	default:
		return nil, goerr.New("unknown store", goerr.V("store", a.cfg.Store))
	}
}

func (a *app) classifier() (classifier.Classifier, error) {
	switch a.cfg.Classifier {
	case config.ClassifierAnthropic:
		return classifier.NewAnthropic(a.cfg.AnthropicAPIKey, classifier.WithModel(a.cfg.AnthropicModel))
	case config.ClassifierBundled:
		// a load failure leaves the classifier disabled; it is already logged
		b, _ := classifier.NewBundled(a.cfg.ModelPath, classifier.WithLogger(a.logger))
		a.loaded = b.Loaded
		return b, nil
	default:
		return nil, goerr.New("unknown classifier", goerr.V("classifier", a.cfg.Classifier))
	}
}

// load reads the history; commands that show or add entries need it
func (a *app) load(ctx context.Context) error {
	if _, err := a.history.Load(ctx); err != nil {
		return err
	}
	return nil
}

// Loaded reports whether classification is available
func (a *app) Loaded() bool {
	return a.loaded()
}

func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("failed to release resource", "error", err)
		}
	}
	a.closers = nil
}
