package chart

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"ramwatch/internal/models"

	tea "github.com/charmbracelet/bubbletea"
)

func sampleFrame() models.ChartFrame {
	latest := models.NewMemorySnapshot(16<<30, 9<<30, 7<<30, 2<<30, 43.75, time.Now())
	return models.NewChartFrame([]models.Point{{Tick: 1, PercentUsed: 40}, {Tick: 2, PercentUsed: 43.75}}, latest)
}

func TestTerminalRenderer_Render(t *testing.T) {
	var buf bytes.Buffer
	r := NewTerminalRenderer(&buf, 30, 5, true)

	if err := r.Render(context.Background(), sampleFrame()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, clearScreen) {
		t.Error("expected the frame to start by clearing the screen")
	}
	for _, want := range []string{models.ChartTitle, "Used 7.0GB of 16.0GB (43.8%)", "samples 2", ExitHint} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q", want)
		}
	}
}

func TestTerminalRenderer_CancelledContext(t *testing.T) {
	var buf bytes.Buffer
	r := NewTerminalRenderer(&buf, 30, 5, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Render(ctx, sampleFrame()); err == nil {
		t.Error("expected an error for a cancelled context")
	}
	if buf.Len() != 0 {
		t.Error("expected nothing written")
	}
}

func TestStatusLine_BeforeFirstSample(t *testing.T) {
	if got := StatusLine(models.NewChartFrame(nil, nil)); !strings.Contains(got, "Waiting") {
		t.Errorf("unexpected status %q", got)
	}
}

func typeLine(m tea.Model, line string) tea.Model {
	for _, r := range line {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestModel_TerminateCommandQuits(t *testing.T) {
	var m tea.Model = NewModel(30, 5)

	m = typeLine(m, "terminate")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if !isQuit(cmd) {
		t.Fatal("expected tea.Quit after terminate")
	}
	if !m.(Model).Terminated() {
		t.Error("expected Terminated() to be true")
	}
}

func TestModel_OtherCommandsAreIgnored(t *testing.T) {
	var m tea.Model = NewModel(30, 5)

	for _, line := range []string{"foo", "Terminate", " terminate"} {
		m = typeLine(m, line)
		var cmd tea.Cmd
		m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		if isQuit(cmd) {
			t.Errorf("%q should not quit", line)
		}
		if m.(Model).input.Value() != "" {
			t.Errorf("expected the input to be cleared after %q", line)
		}
	}
	if m.(Model).Terminated() {
		t.Error("expected Terminated() to be false")
	}
}

func TestModel_CtrlCInterrupts(t *testing.T) {
	var m tea.Model = NewModel(30, 5)
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	if !isQuit(cmd) {
		t.Fatal("expected tea.Quit on ctrl+c")
	}
	if !m.(Model).Interrupted() || m.(Model).Terminated() {
		t.Error("expected an interrupt, not a terminate")
	}
}

func TestModel_FrameMsgUpdatesView(t *testing.T) {
	var m tea.Model = NewModel(30, 5)
	if !strings.Contains(m.View(), "Waiting") {
		t.Error("expected the waiting status before any frame")
	}

	m, _ = m.Update(FrameMsg{Frame: sampleFrame()})
	if !strings.Contains(m.View(), "samples 2") {
		t.Error("expected the view to reflect the new frame")
	}
}

func TestModel_WindowSizeShrinksPlot(t *testing.T) {
	var m tea.Model = NewModel(72, 18)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 40, Height: 20})

	got := m.(Model)
	if got.plotWidth != 40-gutterWidth-1 || got.plotHeight != 11 {
		t.Errorf("unexpected plot size %dx%d", got.plotWidth, got.plotHeight)
	}
}

func TestTUIRenderer_RenderWithoutProgram(t *testing.T) {
	r := NewTUIRenderer(30, 5)
	if err := r.Render(context.Background(), sampleFrame()); err != nil {
		t.Errorf("expected no error before the program starts, got %v", err)
	}
}
