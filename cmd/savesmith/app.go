package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"savesmith/internal/backend"
	"savesmith/internal/character"
	"savesmith/internal/logging"
	"savesmith/internal/readiness"
	"savesmith/internal/store"

	"github.com/mattn/go-isatty"
	"github.com/tidwall/pretty"
	"go.uber.org/zap"
)

// commandContext bounds a one-shot command by --timeout and SIGINT/SIGTERM.
func commandContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func newClient() (*backend.Client, error) {
	return backend.New(cfg.Backend.BaseURL,
		backend.WithTimeout(cfg.GetBackendTimeout()),
		backend.WithLogger(logging.Get(logging.CategoryAPI)))
}

func readinessPolicy() readiness.Policy {
	return readiness.Policy{
		InitialInterval: cfg.GetInitialInterval(),
		Multiplier:      cfg.Readiness.Multiplier,
		MaxInterval:     cfg.GetMaxInterval(),
		MaxWait:         cfg.GetMaxWait(),
		RequestTimeout:  cfg.GetRequestTimeout(),
	}
}

// waitReady blocks until the backend reports ready. onUpdate may be nil.
func waitReady(ctx context.Context, client *backend.Client, onUpdate func(readiness.Update)) error {
	poller := readiness.NewPoller(client,
		readiness.WithPolicy(readinessPolicy()),
		readiness.WithLogger(logger.Named("poller")))
	if err := poller.Run(ctx, onUpdate); err != nil {
		if errors.Is(err, readiness.ErrTimeout) {
			return fmt.Errorf("%w after %s (is the backend running at %s?)", err, cfg.GetMaxWait(), cfg.Backend.BaseURL)
		}
		return err
	}
	return nil
}

// openSave waits for the backend, opens savePath and records it as recent.
func openSave(ctx context.Context, savePath string) (*character.Session, *backend.Character, error) {
	client, err := newClient()
	if err != nil {
		return nil, nil, err
	}
	if err := waitReady(ctx, client, nil); err != nil {
		return nil, nil, err
	}

	session := character.NewSession(client, character.WithLogger(logger.Named("session")))
	c, err := session.Open(ctx, savePath)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("character opened",
		zap.String("session", session.ID()),
		zap.Int64("character_id", c.ID),
		zap.String("name", c.Name))

	recordRecent(ctx, savePath, c.Name)
	return session, c, nil
}

// recordRecent adds the save to the history. Failures are logged only.
func recordRecent(ctx context.Context, savePath, characterName string) {
	recent, err := store.OpenRecentStore(cfg.GetDatabasePath())
	if err != nil {
		logger.Warn("recent saves unavailable", zap.Error(err))
		return
	}
	defer recent.Close()

	entry := store.RecentSave{
		Path:          savePath,
		Name:          saveDisplayName(savePath),
		CharacterName: characterName,
	}
	if err := recent.Record(ctx, entry); err != nil {
		logger.Warn("failed to record recent save", zap.Error(err))
		return
	}
	if cfg.Store.RecentLimit > 0 {
		if _, err := recent.Prune(ctx, cfg.Store.RecentLimit); err != nil {
			logger.Warn("failed to prune recent saves", zap.Error(err))
		}
	}
}

// saveDisplayName names a save by its folder, since save files inside a
// save folder share the same base name.
func saveDisplayName(savePath string) string {
	dir := filepath.Base(filepath.Dir(savePath))
	if dir == "." || dir == string(filepath.Separator) {
		return filepath.Base(savePath)
	}
	return dir
}

// writeJSON prints v as indented, optionally colored JSON.
func writeJSON(w io.Writer, v any) error {
	raw, ok := v.(json.RawMessage)
	if !ok {
		var err error
		raw, err = json.Marshal(v)
		if err != nil {
			return err
		}
	}
	out := pretty.Pretty(raw)
	if isTerminal(w) {
		out = pretty.Color(out, nil)
	}
	_, err := w.Write(out)
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
