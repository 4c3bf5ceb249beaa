package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/robalobadob/memory/internal/game"
	"github.com/robalobadob/memory/internal/palette"
)

var layout = [][]game.Token{
	{0, 1},
	{1, 0},
}

func newModel(t *testing.T, opts Options) Model {
	t.Helper()
	opts.Size = 2
	opts.Palette = palette.New([]palette.Color{{Name: "blue", Hex: "#0000ff"}, {Name: "red", Hex: "#ff0000"}}, palette.OverflowRepeat)
	opts.EngineOptions = append(opts.EngineOptions, game.WithDealer(game.FixedDealer(layout)))
	m, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

var (
	enter   = tea.KeyMsg{Type: tea.KeyEnter}
	right   = tea.KeyMsg{Type: tea.KeyRight}
	down    = tea.KeyMsg{Type: tea.KeyDown}
	restart = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}}
)

func send(t *testing.T, m Model, msgs ...tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(Model)
	}
	return m, cmd
}

func TestPreviewGatesSelection(t *testing.T) {
	m := newModel(t, Options{PreviewDuration: time.Second, PreviewStagger: 10 * time.Millisecond})
	if !m.previewing || m.Init() == nil {
		t.Fatal("expected a running preview")
	}

	m, _ = send(t, m, enter)
	if m.eng.Turn().Phase != game.PhaseIdle {
		t.Fatal("selection accepted during preview")
	}

	for i := 1; i <= 4; i++ {
		var cmd tea.Cmd
		m, cmd = send(t, m, previewStepMsg{gen: 0, shown: i})
		if cmd == nil {
			t.Fatalf("no follow-up tick after step %d", i)
		}
	}
	if m.shown != 4 || !m.previewing {
		t.Fatalf("shown = %d previewing = %v", m.shown, m.previewing)
	}
	m, _ = send(t, m, previewDoneMsg{gen: 0}, enter)
	if m.previewing || m.eng.Turn().Phase != game.PhaseAwaitingSecond {
		t.Fatalf("selection after preview: previewing=%v phase=%s", m.previewing, m.eng.Turn().Phase)
	}
}

func TestMismatchResolvesOnTick(t *testing.T) {
	m := newModel(t, Options{MismatchDelay: 300 * time.Millisecond})
	if m.previewing {
		t.Fatal("no preview configured")
	}

	m, _ = send(t, m, enter, right)
	m, cmd := send(t, m, enter)
	if !m.resolving || cmd == nil {
		t.Fatalf("mismatch should schedule a resolve (resolving=%v)", m.resolving)
	}

	// Input is ignored until the tick arrives.
	m, _ = send(t, m, down, enter)
	if m.eng.Turn().Phase != game.PhaseResolving {
		t.Fatalf("phase = %s", m.eng.Turn().Phase)
	}

	m, _ = send(t, m, resolveMsg{gen: 0})
	if m.resolving || m.eng.Turn().Phase != game.PhaseIdle || m.eng.Mistakes() != 1 {
		t.Fatalf("after resolve: resolving=%v phase=%s mistakes=%d", m.resolving, m.eng.Turn().Phase, m.eng.Mistakes())
	}
}

func TestRestartDropsStaleTicks(t *testing.T) {
	m := newModel(t, Options{MismatchDelay: time.Second})
	m, _ = send(t, m, enter, right, enter)
	if !m.resolving {
		t.Fatal("expected pending mismatch")
	}

	m, _ = send(t, m, restart)
	if m.gen != 1 || m.resolving || m.eng.Mistakes() != 0 {
		t.Fatalf("restart: gen=%d resolving=%v mistakes=%d", m.gen, m.resolving, m.eng.Mistakes())
	}
	m, _ = send(t, m, resolveMsg{gen: 0})
	if m.lastErr != nil {
		t.Fatalf("stale tick reached the engine: %v", m.lastErr)
	}
}

func TestWinAndLossScreens(t *testing.T) {
	m := newModel(t, Options{})
	// (0,0) pairs with (1,1); (0,1) with (1,0).
	m, _ = send(t, m, enter, down, right, enter)
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyUp}, enter, tea.KeyMsg{Type: tea.KeyLeft}, down, enter)
	if m.eng.Status().Kind != game.StatusWon {
		t.Fatalf("status = %s", m.eng.Status().Kind)
	}
	if v := m.View(); !strings.Contains(v, "You Win") {
		t.Errorf("win view = %q", v)
	}

	m, _ = send(t, m, restart)
	for i := 0; i < game.MaxMistakes; i++ {
		m, _ = send(t, m, enter, right, enter, resolveMsg{gen: m.gen}, tea.KeyMsg{Type: tea.KeyLeft})
	}
	if m.eng.Status().Kind != game.StatusLost {
		t.Fatalf("status = %s", m.eng.Status().Kind)
	}
	if v := m.View(); !strings.Contains(v, "Game Over") {
		t.Errorf("loss view = %q", v)
	}
}

func TestQuit(t *testing.T) {
	m := newModel(t, Options{})
	_, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("no quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}
