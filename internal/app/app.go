// Package app wires configuration, sampling, rendering, the command loop
// and the optional dashboard API into one runnable process.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"ramwatch/internal/config"
	apperrors "ramwatch/internal/errors"
	"ramwatch/internal/logging"
	"ramwatch/internal/services"

	"github.com/rs/zerolog"
)

const programName = "ramwatch"

// Application represents one ramwatch process.
type Application struct {
	Config config.Config

	In        io.Reader
	Out       io.Writer
	ErrWriter io.Writer

	// Sampler is the memory source; nil means the host.
	Sampler services.Sampler

	logger    logging.Logger
	logCloser io.Closer
}

// AppOption configures an Application during construction.
type AppOption func(*Application)

// WithSampler replaces the host sampler.
func WithSampler(s services.Sampler) AppOption {
	return func(a *Application) { a.Sampler = s }
}

// New creates an Application by parsing command-line arguments. args[0] is
// the program name.
func New(args []string, in io.Reader, out, errWriter io.Writer, opts ...AppOption) (*Application, error) {
	name := programName
	var cmdArgs []string
	if len(args) > 0 {
		name = args[0]
		cmdArgs = args[1:]
	}

	cfg, err := config.Parse(name, cmdArgs, errWriter)
	if err != nil {
		return nil, err
	}

	a := &Application{
		Config:    cfg,
		In:        in,
		Out:       out,
		ErrWriter: errWriter,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.Sampler == nil {
		a.Sampler = services.NewHostSampler()
	}
	return a, nil
}

// Run executes the application and returns the process exit code.
func (a *Application) Run(ctx context.Context) int {
	if err := a.setupLogger(); err != nil {
		fmt.Fprintf(a.ErrWriter, "%s: %v\n", programName, err)
		return ExitCode(err)
	}
	defer a.closeLog()

	if a.Config.IssueToken != "" {
		return a.runIssueToken()
	}

	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	err := a.runMonitor(ctx)
	switch {
	case err == nil, errors.Is(err, errTerminated):
		a.logger.Info("terminated by command")
		return apperrors.ExitSuccess
	case apperrors.IsContextError(err), errors.Is(err, errInterrupted):
		a.logger.Info("stopped by signal")
		return apperrors.ExitSuccess
	default:
		a.logger.Error("ramwatch failed", err)
		fmt.Fprintf(a.ErrWriter, "%s: %v\n", programName, err)
		return ExitCode(err)
	}
}

// setupLogger routes logs to the configured file, or to stderr in plain
// mode. In TUI mode without a file they are discarded so they cannot
// corrupt the screen.
func (a *Application) setupLogger() error {
	level, err := logging.ParseLevel(a.Config.Logging.Level)
	if err != nil {
		return apperrors.NewConfigError("%v", err)
	}

	switch {
	case a.Config.Logging.File != "":
		f, err := os.OpenFile(a.Config.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return apperrors.NewConfigError("opening log file: %v", err)
		}
		a.logCloser = f
		a.logger = logging.NewZerologAdapter(
			zerolog.New(f).Level(level).With().Timestamp().Str("component", programName).Logger(),
		)
	case a.Config.Display.Mode == config.ModeTUI:
		a.logger = logging.NewNopLogger()
	default:
		a.logger = logging.NewConsoleLogger(a.ErrWriter, level)
	}
	return nil
}

func (a *Application) closeLog() {
	if a.logCloser != nil {
		a.logCloser.Close()
	}
}

// ExitCode maps an error returned by New or Run onto a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil, config.IsHelpError(err):
		return apperrors.ExitSuccess
	case config.IsConfigError(err):
		return apperrors.ExitErrorConfig
	default:
		return apperrors.ExitErrorGeneric
	}
}

// IsHelpError checks if the error is a help flag error (--help was used).
func IsHelpError(err error) bool {
	return config.IsHelpError(err)
}
