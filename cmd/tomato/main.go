// tomato is the client for tomatod. With no arguments on a terminal it
// opens the interactive popup; otherwise it sends one command and prints
// the result.
//
// Usage:
//
//	tomato                       open the popup
//	tomato start|pause|reset     control the timer
//	tomato status                print the remaining time
//	tomato focus|short|long      switch preset
//	tomato set <m:ss> [type]     set a custom time
//	tomato activate <id>         report a clicked notification
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/joho/godotenv"

	"github.com/hammamikhairi/tomato/internal/api"
	"github.com/hammamikhairi/tomato/internal/command"
	"github.com/hammamikhairi/tomato/internal/config"
	"github.com/hammamikhairi/tomato/internal/domain"
	"github.com/hammamikhairi/tomato/internal/logger"
	"github.com/hammamikhairi/tomato/internal/popup"
)

const oneShotTimeout = 5 * time.Second

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "config file (default ~/.config/tomato/config.toml)")
	socket := flag.String("socket", "", "unix socket tomatod listens on")
	verbose := flag.Bool("verbose", false, "log debug output")
	logFile := flag.String("log-file", "", "file to write logs to (popup mode logs nowhere otherwise)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: tomato [flags] [command]\n\ncommands:\n%s\n  activate <id>      report a clicked notification\n\nflags:\n", indent(command.Usage()))
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fail(err)
	}
	if *socket != "" {
		cfg.SocketPath = *socket
	}

	interactive := flag.NArg() == 0 && term.IsTerminal(os.Stdin.Fd())
	log := newLogger(*verbose, *logFile, interactive)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := api.NewClient(cfg.SocketPath)
	parser := command.NewParser(log)

	if interactive {
		if err := popup.New(client, parser, log.Named("popup")).Run(ctx); err != nil {
			fail(err)
		}
		return
	}

	if err := oneShot(ctx, client, parser, flag.Args(), os.Stdout); err != nil {
		fail(err)
	}
}

// oneShot sends the command named by args and prints the resulting state.
// With no args it reports the current state.
func oneShot(ctx context.Context, client *api.Client, parser *command.Parser, args []string, out io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, oneShotTimeout)
	defer cancel()

	if len(args) == 2 && args[0] == "activate" {
		return client.ActivateNotification(ctx, args[1])
	}

	cmd := domain.Command{Action: domain.ActionGetTime}
	if len(args) > 0 {
		if args[0] == "help" {
			fmt.Fprintln(out, command.Usage())
			return nil
		}
		parsed, err := parser.Parse(strings.Join(args, " "))
		if err != nil {
			if errors.Is(err, command.ErrUnrecognized) {
				return fmt.Errorf("%w (try \"tomato help\")", err)
			}
			return err
		}
		cmd = parsed
	}

	state, err := client.Do(ctx, cmd)
	if err != nil {
		return fmt.Errorf("%s: %w", cmd.Action, err)
	}
	fmt.Fprintln(out, formatState(state))
	return nil
}

func formatState(s domain.TimerState) string {
	status := "paused"
	if s.Running {
		status = "running"
		if s.EndTime != nil {
			status += ", ends " + s.EndTime.Local().Format(time.Kitchen)
		}
	}
	return fmt.Sprintf("%s  %s (%s)", s.Clock(), s.ActiveType, status)
}

func newLogger(verbose bool, path string, interactive bool) *logger.Logger {
	level := logger.LevelOff
	if verbose {
		level = logger.LevelVerbose
	}

	var out io.Writer = os.Stderr
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v\n", path, err)
		} else {
			out = f
			if level == logger.LevelOff {
				level = logger.LevelNormal
			}
		}
	} else if interactive {
		// The popup owns the terminal.
		level = logger.LevelOff
	}
	return logger.New(level, out)
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "tomato: %v\n", err)
	os.Exit(1)
}
