package services

import (
	"bufio"
	"context"
	"io"

	apperrors "ramwatch/internal/errors"
	"ramwatch/internal/logging"
)

// TerminateCommand is the only input line the command loop reacts to.
const TerminateCommand = "terminate"

// IsTerminateCommand reports whether line is exactly the terminate command.
// The comparison is case-sensitive and does not trim whitespace.
func IsTerminateCommand(line string) bool {
	return line == TerminateCommand
}

// CommandLoop reads line-oriented commands from the foreground input.
type CommandLoop struct {
	in     io.Reader
	logger logging.Logger
}

// NewCommandLoop creates a command loop over in.
func NewCommandLoop(in io.Reader, logger logging.Logger) *CommandLoop {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &CommandLoop{in: in, logger: logger}
}

// Wait blocks until the terminate command is read (nil), the input ends
// (ErrInputClosed), reading fails, or ctx is cancelled (ctx.Err()). Every
// other line is ignored.
//
// The reader goroutine may stay blocked in Read after ctx is cancelled;
// it exits with the process.
func (c *CommandLoop) Wait(ctx context.Context) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line := <-lines:
			if IsTerminateCommand(line) {
				c.logger.Info("terminate command received")
				return nil
			}
			c.logger.Debug("ignoring input", logging.String("line", line))
		case err := <-readErr:
			if err != nil {
				return apperrors.WrapError(err, "reading commands")
			}
			return apperrors.ErrInputClosed
		}
	}
}
