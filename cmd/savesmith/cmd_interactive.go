package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"savesmith/cmd/savesmith/ui"
	"savesmith/internal/character"
	"savesmith/internal/editor"
	"savesmith/internal/logging"
	"savesmith/internal/readiness"
	"savesmith/internal/saves"
	"savesmith/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runInteractive starts the TUI. An optional argument names a save to
// open once the backend is ready.
func runInteractive(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	uiLogger := logging.Get(logging.CategoryUI)

	client, err := newClient()
	if err != nil {
		return err
	}

	session := character.NewSession(client, character.WithLogger(logging.Get(logging.CategorySession)))
	defer session.Close()

	deps := ui.Deps{
		Session: session,
		Router:  editor.NewRouter(session, editor.WithLogger(logging.Get(logging.CategoryEditor))),
		Browser: saves.NewBrowser(client, cfg.Saves.PageSize),
		Poller: readiness.NewPoller(client,
			readiness.WithPolicy(readinessPolicy()),
			readiness.WithLogger(logging.Get(logging.CategoryPoller))),
		BaseURL:     cfg.Backend.BaseURL,
		RecentLimit: cfg.Store.RecentLimit,
		Styles:      ui.NewStyles(ui.ThemeByName(cfg.UI.Theme)),
		Editor: ui.EditorOptions{
			FilterDebounce: cfg.GetFilterDebounce(),
			ToastDuration:  cfg.GetToastDuration(),
			CreateBackup:   true,
		},
		Logger: uiLogger,
	}
	if len(args) == 1 {
		deps.OpenPath = args[0]
	}

	if recent, err := store.OpenRecentStore(cfg.GetDatabasePath()); err != nil {
		uiLogger.Warn("recent saves unavailable", zap.Error(err))
	} else {
		defer recent.Close()
		deps.Recent = recent
	}

	if w := startWatcher(ctx, uiLogger); w != nil {
		defer w.Stop()
		deps.Watcher = w
	}

	return ui.Run(ctx, deps)
}

// startWatcher watches the local saves directory when configured. It
// returns nil when watching is disabled or unavailable.
func startWatcher(ctx context.Context, l *zap.Logger) *saves.Watcher {
	if !cfg.Saves.Watch || cfg.Saves.Dir == "" {
		return nil
	}
	if _, err := os.Stat(cfg.Saves.Dir); err != nil {
		l.Warn("saves directory not watched", zap.String("dir", cfg.Saves.Dir), zap.Error(err))
		return nil
	}

	w, err := saves.NewWatcher(cfg.Saves.Dir, saves.WithDebounce(cfg.GetWatchDebounce()))
	if err != nil {
		l.Warn("saves watcher unavailable", zap.Error(err))
		return nil
	}
	if err := w.Start(ctx); err != nil {
		l.Warn("saves watcher failed to start", zap.Error(err))
		w.Stop()
		return nil
	}
	return w
}
