package chart

import (
	"context"
	"errors"
	"io"
	"sync"

	"ramwatch/internal/models"
	"ramwatch/internal/services"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// FrameMsg carries a new chart frame into the bubbletea program.
type FrameMsg struct {
	Frame models.ChartFrame
}

// KeyMap defines the keys handled outside the command input.
type KeyMap struct {
	Submit key.Binding
	Quit   key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "run command"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "interrupt"),
		),
	}
}

// Model is the bubbletea model for the interactive chart. It shows the
// latest frame above a one-line command input.
type Model struct {
	frame  models.ChartFrame
	input  textinput.Model
	keymap KeyMap

	chartWidth  int
	chartHeight int
	plotWidth   int
	plotHeight  int

	terminated  bool
	interrupted bool
}

// NewModel creates a model whose plot is at most width by height cells.
func NewModel(width, height int) Model {
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = services.TerminateCommand
	input.CharLimit = 64
	input.Focus()

	return Model{
		frame:       models.NewChartFrame(nil, nil),
		input:       input,
		keymap:      DefaultKeyMap(),
		chartWidth:  width,
		chartHeight: height,
		plotWidth:   width,
		plotHeight:  height,
	}
}

// Init starts the cursor blinking.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case FrameMsg:
		m.frame = msg.Frame
		return m, nil

	case tea.WindowSizeMsg:
		// gutter, title, labels, axis, status, hint and input take the rest
		m.plotWidth = min(m.chartWidth, msg.Width-gutterWidth-1)
		m.plotHeight = min(m.chartHeight, msg.Height-9)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keymap.Quit):
			m.interrupted = true
			return m, tea.Quit

		case key.Matches(msg, m.keymap.Submit):
			line := m.input.Value()
			m.input.Reset()
			if services.IsTerminateCommand(line) {
				m.terminated = true
				return m, tea.Quit
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the chart, the status line and the command input.
func (m Model) View() string {
	return styledPlot(Plot(m.frame, m.plotWidth, m.plotHeight)) + "\n\n" +
		statusStyle.Render(StatusLine(m.frame)) + "\n" +
		hintStyle.Render(ExitHint) + "\n" +
		m.input.View()
}

// Terminated reports whether the terminate command was entered.
func (m Model) Terminated() bool { return m.terminated }

// Interrupted reports whether the user pressed ctrl+c.
func (m Model) Interrupted() bool { return m.interrupted }

// programRef is a shared reference to the tea.Program.
// Because bubbletea copies the model on every Update, we need a pointer
// that survives copies so the sampling loop can send messages.
type programRef struct {
	mu      sync.RWMutex
	program *tea.Program
}

// SetProgram sets the tea.Program reference (thread-safe).
func (r *programRef) SetProgram(p *tea.Program) {
	r.mu.Lock()
	r.program = p
	r.mu.Unlock()
}

// Send sends a message to the bubbletea program (thread-safe). It is a
// no-op until a program is set.
func (r *programRef) Send(msg tea.Msg) {
	r.mu.RLock()
	p := r.program
	r.mu.RUnlock()
	if p != nil {
		p.Send(msg)
	}
}

// TUIRenderer forwards frames to a running bubbletea program.
type TUIRenderer struct {
	ref    *programRef
	width  int
	height int
}

// NewTUIRenderer creates a renderer whose plot is at most width by height.
func NewTUIRenderer(width, height int) *TUIRenderer {
	return &TUIRenderer{ref: &programRef{}, width: width, height: height}
}

// Render implements services.Renderer. Frames sent before Run starts are
// dropped.
func (r *TUIRenderer) Render(ctx context.Context, frame models.ChartFrame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.ref.Send(FrameMsg{Frame: frame})
	return nil
}

// ErrInterrupted is returned by Run when the user pressed ctrl+c.
var ErrInterrupted = errors.New("interrupted")

// Run drives the program on in and out until the terminate command (nil),
// ctrl+c (ErrInterrupted) or ctx cancellation (ctx.Err()).
func (r *TUIRenderer) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	p := tea.NewProgram(NewModel(r.width, r.height),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
		tea.WithAltScreen(),
	)
	r.ref.SetProgram(p)
	defer r.ref.SetProgram(nil)

	final, err := p.Run()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return err
	}
	if m, ok := final.(Model); ok && m.Interrupted() {
		return ErrInterrupted
	}
	return nil
}
