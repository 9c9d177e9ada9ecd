package main

import (
	"context"
	"log/slog"

	"github.com/MrWong99/revisa/internal/config"
	"github.com/MrWong99/revisa/internal/health"
	"github.com/MrWong99/revisa/internal/history"
	"github.com/MrWong99/revisa/internal/history/postgres"
)

// historyStore is the combined run history of a command.
type historyStore struct {
	history.Store

	// pg is set when history.postgres_dsn is configured.
	pg *postgres.Store
}

// openHistory opens the JSONL file store unless history.path is "-", and the
// PostgreSQL store when a DSN is configured. It returns nil when both are
// disabled.
func openHistory(ctx context.Context, cfg config.HistoryConfig) (*historyStore, error) {
	var stores []history.Store
	if cfg.Path != "-" {
		stores = append(stores, history.NewFileStore(cfg.Path))
	}
	hs := &historyStore{}
	if cfg.PostgresDSN != "" {
		pg, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		slog.Info("postgres history enabled")
		hs.pg = pg
		stores = append(stores, pg)
	}
	switch len(stores) {
	case 0:
		return nil, nil
	case 1:
		hs.Store = stores[0]
	default:
		hs.Store = history.Multi(stores...)
	}
	return hs, nil
}

// checkers returns the readiness checks of the history backends.
func (hs *historyStore) checkers() []health.Checker {
	if hs == nil || hs.pg == nil {
		return nil
	}
	return []health.Checker{{Name: "history", Check: hs.pg.Ping}}
}

func (hs *historyStore) close() {
	if hs == nil {
		return
	}
	if err := hs.Close(); err != nil {
		slog.Warn("history close error", "err", err)
	}
}
