package chart

import (
	"context"
	"io"
	"sync"

	"ramwatch/internal/models"
)

const clearScreen = "\x1b[H\x1b[2J"

// TerminalRenderer redraws the whole chart on a plain terminal after every
// tick. It leaves the input line to the command loop.
type TerminalRenderer struct {
	mu     sync.Mutex
	out    io.Writer
	width  int
	height int
	clear  bool
}

// NewTerminalRenderer creates a renderer writing to out. When clear is set
// every frame starts by clearing the screen.
func NewTerminalRenderer(out io.Writer, width, height int, clear bool) *TerminalRenderer {
	return &TerminalRenderer{out: out, width: width, height: height, clear: clear}
}

// Render implements services.Renderer.
func (r *TerminalRenderer) Render(ctx context.Context, frame models.ChartFrame) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	view := r.View(frame)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.clear {
		view = clearScreen + view
	}
	_, err := io.WriteString(r.out, view)
	return err
}

// View returns one full screen for frame.
func (r *TerminalRenderer) View(frame models.ChartFrame) string {
	return styledPlot(Plot(frame, r.width, r.height)) + "\n\n" +
		statusStyle.Render(StatusLine(frame)) + "\n" +
		hintStyle.Render(ExitHint) + "\n> "
}
