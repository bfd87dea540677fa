// tomatod is the background Pomodoro timer daemon. It owns the timer,
// persists it, and serves clients on a unix socket.
//
// Usage:
//
//	tomatod [-config path] [-socket path] [-state-backend yaml|sqlite|memory] [-verbose] [-quiet]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/hammamikhairi/tomato/internal/api"
	"github.com/hammamikhairi/tomato/internal/broadcast"
	"github.com/hammamikhairi/tomato/internal/config"
	"github.com/hammamikhairi/tomato/internal/domain"
	"github.com/hammamikhairi/tomato/internal/logger"
	"github.com/hammamikhairi/tomato/internal/notify"
	"github.com/hammamikhairi/tomato/internal/scheduler"
	"github.com/hammamikhairi/tomato/internal/storage"
	"github.com/hammamikhairi/tomato/internal/timer"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "tomatod: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "config file (default ~/.config/tomato/config.toml)")
	socket := flag.String("socket", "", "unix socket to listen on")
	backend := flag.String("state-backend", "", "where to keep the timer: yaml, sqlite or memory")
	statePath := flag.String("state-path", "", "state file or database path")
	verbose := flag.Bool("verbose", false, "enable verbose/debug logging")
	quiet := flag.Bool("quiet", false, "disable all logging")
	logFile := flag.String("log-file", "", "file to write logs to (use \"stderr\" to log to console)")
	noChime := flag.Bool("no-chime", false, "do not play a sound when a timer finishes")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *socket != "" {
		cfg.SocketPath = *socket
	}
	if *backend != "" {
		cfg.SetBackend(*backend)
	}
	if *statePath != "" {
		cfg.StatePath = *statePath
	}
	if *logFile != "" {
		cfg.LogFile = *logFile
	}
	if *noChime {
		cfg.Chime = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logLevel := logger.ParseLevel(cfg.LogLevel)
	if *verbose {
		logLevel = logger.LevelVerbose
	}
	if *quiet {
		logLevel = logger.LevelOff
	}

	var logOut io.Writer = os.Stderr
	if cfg.LogFile != "" && cfg.LogFile != "stderr" {
		if dir := filepath.Dir(cfg.LogFile); dir != "" && dir != "." {
			_ = os.MkdirAll(dir, 0o755)
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", cfg.LogFile, err)
		} else {
			logOut = f
			defer f.Close()
		}
	}

	// Third-party libraries log through the standard package.
	stdlog.SetOutput(logOut)
	stdlog.SetFlags(stdlog.Ltime)

	log := logger.New(logLevel, logOut)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kv, closeKV, err := openStore(ctx, cfg, log.Named("store"))
	if err != nil {
		return err
	}
	defer closeKV()

	repo := storage.NewStateRepository(kv, log.Named("state"))
	saver := storage.NewAsyncSaver(repo, log.Named("saver"))
	defer saver.Close()

	hub := broadcast.NewHub(log.Named("hub"))
	defer hub.Close()

	sched := scheduler.New(log.Named("scheduler"))
	notifier, chime := buildNotifier(cfg, log.Named("notify"))
	if chime != nil {
		defer func() {
			chime.Stop()
			chime.Wait()
		}()
	}

	machine := timer.New(repo, sched, notifier, hub, log.Named("timer"),
		timer.WithSaver(saver),
		timer.WithTickInterval(cfg.TickInterval),
	)

	// Reconcile before anything can reach the machine.
	restored := machine.Restore(ctx)
	log.Info("timer %s %s running=%v", restored.ActiveType, restored.Clock(), restored.Running)

	sched.Start(ctx)
	defer sched.Stop()

	ln, err := api.Listen(cfg.SocketPath)
	if err != nil {
		return err
	}

	server := api.NewServer(machine, log.Named("api"))
	if err := server.Serve(ctx, ln); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("serve: %w", err)
	}

	log.Info("shutting down")
	return nil
}

// openStore opens the configured key-value backend. The returned func
// releases it.
func openStore(ctx context.Context, cfg config.Config, log *logger.Logger) (domain.KVStore, func(), error) {
	switch cfg.StateBackend {
	case config.BackendSQLite:
		db, err := storage.OpenSQLite(ctx, cfg.StatePath, log)
		if err != nil {
			return nil, nil, err
		}
		return db, func() {
			if err := db.Close(); err != nil {
				log.Error("closing database: %v", err)
			}
		}, nil
	case config.BackendMemory:
		log.Warn("memory backend: the timer will not survive a restart")
		return storage.NewMemoryKV(log), func() {}, nil
	default:
		kv := storage.NewFileKV(cfg.StatePath, log)
		log.Info("state file %s", kv.Path())
		return kv, func() {}, nil
	}
}

// buildNotifier prints every alert and, when enabled and an audio device
// is available, plays a chime.
func buildNotifier(cfg config.Config, log *logger.Logger) (domain.Notifier, *notify.ChimeNotifier) {
	text := notify.NewCLINotifier(log, nil, true)
	if !cfg.Chime {
		return text, nil
	}

	player, err := notify.NewOtoPlayer(log)
	if err != nil {
		log.Warn("audio unavailable, chime disabled: %v", err)
		return text, nil
	}
	chime := notify.NewChimeNotifier(player, cfg.ChimeVolume, log)
	return notify.NewFanout(log, text, chime), chime
}
