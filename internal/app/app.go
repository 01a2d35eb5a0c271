package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sottey/fresh/internal/config"
	"github.com/sottey/fresh/internal/engine"
	"github.com/sottey/fresh/internal/event"
)

// App hosts the interactive shell: one engine, the loaded
// configuration, and the logger wired together.
type App struct {
	engine *engine.Engine
	cfg    config.Config
	logger *Logger

	in  io.Reader
	out io.Writer

	sub     event.Subscription
	logFile io.Closer

	done      chan struct{}
	closeOnce sync.Once

	opts Options
}

// Options configures the application.
type Options struct {
	// ConfigPath is the path to the configuration file. Empty uses
	// defaults plus the environment.
	ConfigPath string

	// File is opened into the engine on startup.
	File string

	// LogLevel overrides the configured level when non-empty.
	LogLevel string

	// ReadOnly rejects edits; files can still be loaded and viewed.
	ReadOnly bool

	// Input is the command source. Defaults to os.Stdin.
	Input io.Reader

	// Output receives prompts and command results. Defaults to
	// os.Stdout.
	Output io.Writer
}

// New creates an App with the given options.
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	a := &App{
		cfg:  cfg,
		in:   opts.Input,
		out:  opts.Output,
		done: make(chan struct{}),
		opts: opts,
	}
	if a.in == nil {
		a.in = os.Stdin
	}
	if a.out == nil {
		a.out = os.Stdout
	}

	if err := a.setupLogger(); err != nil {
		return nil, err
	}

	engineOpts := cfg.EngineOptions()
	if opts.ReadOnly {
		engineOpts = append(engineOpts, engine.WithReadOnly())
	}
	a.engine = engine.New(engineOpts...)

	a.sub = a.engine.Subscribe(func(ed event.Edit) {
		a.logger.WithComponent("engine").Debug("edit v%d: offset=%d removed=%d inserted=%d",
			ed.Version, ed.Offset, ed.RemovedLen, ed.InsertedLen)
	})

	return a, nil
}

// setupLogger builds the application logger from config and the level
// override.
func (a *App) setupLogger() error {
	lcfg := DefaultLoggerConfig()

	level := a.cfg.Log.Level
	if a.opts.LogLevel != "" {
		level = a.opts.LogLevel
	}
	lcfg.Level = ParseLogLevel(level)

	if a.cfg.Log.File != "" {
		f, err := os.OpenFile(a.cfg.Log.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		lcfg.Output = f
		a.logFile = f
	}

	a.logger = NewLogger(lcfg)
	SetLogger(a.logger)
	return nil
}

// Engine returns the application's engine.
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// Logger returns the application's logger.
func (a *App) Logger() *Logger {
	if a.logger == nil {
		return GetLogger()
	}
	return a.logger
}

// Run opens the startup file if one was given, then reads and executes
// commands until quit, EOF, or Shutdown. A quit command returns
// ErrQuit.
func (a *App) Run() error {
	if a.opts.File != "" {
		if err := a.engine.Load(context.Background(), a.opts.File); err != nil {
			return fmt.Errorf("opening %s: %w", a.opts.File, err)
		}
		a.logger.Info("opened %s (%d bytes)", a.opts.File, a.engine.Len())
	}

	fmt.Fprintln(a.out, "fresh - interactive text engine shell")
	fmt.Fprintln(a.out, "Type 'help' for available commands, 'quit' to exit")
	fmt.Fprintln(a.out)

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(a.in)
		scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-a.done:
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(a.out, "fresh> ")
		select {
		case <-a.done:
			fmt.Fprintln(a.out)
			return nil
		case err := <-scanErr:
			fmt.Fprintln(a.out)
			return err
		case line := <-lines:
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if err := a.handleCommand(line); err != nil {
				if errors.Is(err, ErrQuit) {
					return ErrQuit
				}
				return err
			}
		}
	}
}

// Shutdown stops the shell and releases resources. Safe to call more
// than once and from any goroutine.
func (a *App) Shutdown() {
	a.closeOnce.Do(func() {
		a.logger.Debug("shutting down")
		a.engine.Unsubscribe(a.sub)
		close(a.done)
		if a.logFile != nil {
			_ = a.logFile.Close()
		}
	})
}
