package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/claude/repclock/internal/clock"
	"github.com/claude/repclock/internal/config"
	"github.com/claude/repclock/internal/session"
	"github.com/claude/repclock/internal/statestore"
	"github.com/claude/repclock/internal/timer"
	"github.com/claude/repclock/internal/upload"
)

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "repclock.yaml"
	}
	return filepath.Join(home, ".repclock", "config.yaml")
}

// app holds what every session command needs.
type app struct {
	cfg     *config.ClientConfig
	log     *slog.Logger
	logFile *os.File
	store   statestore.Store
	pool    *clock.WorkerPool
}

// openLog writes logs to a file; the terminal belongs to the workout screen
// or the MCP protocol.
func openLog(cfg *config.ClientConfig) (*slog.Logger, *os.File, error) {
	path := logPath
	if path == "" {
		path = filepath.Join(cfg.Store.Dir, "repclock.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	log := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelInfo}))
	return log, f, nil
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadClient(configPath)
	if err != nil {
		return nil, err
	}
	log, f, err := openLog(cfg)
	if err != nil {
		return nil, err
	}
	store, err := statestore.Open(ctx, cfg.Store)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("opening state store: %w", err)
	}
	log.Info("repclock starting", "version", Version, "store", cfg.Store.Driver)
	return &app{
		cfg:     cfg,
		log:     log,
		logFile: f,
		store:   store,
		pool:    clock.NewWorkerPool(cfg.Timer.TickWorkers),
	}, nil
}

func (a *app) sessionConfig() session.Config {
	sc := session.Config{
		Durations: timer.Durations{
			Preparation: a.cfg.Timer.Preparation,
			Workout:     a.cfg.Timer.Workout,
			Rest:        a.cfg.Timer.Rest,
		},
		TickSource:     clock.DefaultSource(a.pool, a.log),
		TickInterval:   a.cfg.Timer.TickInterval,
		Store:          a.store,
		PushTimeout:    a.cfg.Push.Timeout,
		Bodyweight:     a.cfg.User.Bodyweight,
		LoadPercentage: a.cfg.User.LoadPercentage,
		Logger:         a.log,
	}
	if a.cfg.Push.ServerURL != "" {
		sc.Pusher = upload.NewClient(a.cfg.Push.ServerURL, a.cfg.Push.APIKey)
	}
	return sc
}

func (a *app) Close() {
	a.pool.Close()
	if err := a.store.Close(); err != nil {
		a.log.Warn("closing state store", "error", err)
	}
	a.logFile.Close()
}
