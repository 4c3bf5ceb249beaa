// internal/tui/model.go
//
// Terminal host for the memory engine (bubbletea).
// Responsibilities:
//   - Opening preview: cells appear one per stagger tick, stay visible for the preview duration,
//     then everything is concealed and input opens.
//   - Cursor movement and selection; a mismatch stays visible for the mismatch delay and is then
//     resolved by a tick. Input is ignored while a mismatch is pending.
//   - Win box with elapsed time, loss box, restart and quit.
//
// Ticks carry the game generation; ticks from a game that has since been restarted are dropped.

package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory/internal/game"
	"github.com/robalobadob/memory/internal/palette"
)

// Options configures the terminal game.
type Options struct {
	Size            int
	MismatchDelay   time.Duration
	PreviewDuration time.Duration
	PreviewStagger  time.Duration
	Palette         *palette.Palette
	EngineOptions   []game.Option

	// Output and Background restore the terminal background on quit; both optional.
	Output     *termenv.Output
	Background termenv.Color
}

type (
	previewStepMsg struct{ gen, shown int }
	previewDoneMsg struct{ gen int }
	resolveMsg     struct{ gen int }
)

// Model is the bubbletea model.
type Model struct {
	opts   Options
	eng    *game.Engine
	keys   KeyMap
	cursor game.Coord

	gen        int
	previewing bool
	shown      int // cells revealed so far during the preview
	resolving  bool
	lastErr    error

	width, height int
}

// New deals the first board.
func New(opts Options) (Model, error) {
	if opts.Size == 0 {
		opts.Size = game.DefaultSize
	}
	if opts.Palette == nil {
		opts.Palette = palette.Default()
	}
	eng, err := game.New(opts.Size, opts.EngineOptions...)
	if err != nil {
		return Model{}, err
	}
	m := Model{opts: opts, eng: eng, keys: Keys}
	m.startPreview()
	return m, nil
}

func (m *Model) startPreview() {
	m.previewing = m.opts.PreviewDuration > 0 || m.opts.PreviewStagger > 0
	m.shown = 0
	m.resolving = false
	m.cursor = game.Coord{}
}

func (m Model) previewCmd() tea.Cmd {
	if !m.previewing {
		return nil
	}
	return m.stepCmd(0)
}

func (m Model) stepCmd(shown int) tea.Cmd {
	gen := m.gen
	return tea.Tick(m.opts.PreviewStagger, func(time.Time) tea.Msg {
		return previewStepMsg{gen: gen, shown: shown + 1}
	})
}

func (m Model) Init() tea.Cmd {
	return m.previewCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case previewStepMsg:
		if msg.gen != m.gen || !m.previewing {
			return m, nil
		}
		m.shown = msg.shown
		if n := m.eng.Size(); m.shown < n*n {
			return m, m.stepCmd(m.shown)
		}
		gen := m.gen
		return m, tea.Tick(m.opts.PreviewDuration, func(time.Time) tea.Msg { return previewDoneMsg{gen: gen} })

	case previewDoneMsg:
		if msg.gen == m.gen {
			m.previewing = false
		}

	case resolveMsg:
		if msg.gen != m.gen || !m.resolving {
			return m, nil
		}
		m.resolving = false
		if _, err := m.eng.ResolvePending(); err != nil {
			m.lastErr = err
		}

	case tea.KeyMsg:
		return m.updateKey(msg)
	}
	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := m.eng.Size()
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.opts.Output != nil && m.opts.Background != nil {
			m.opts.Output.SetBackgroundColor(m.opts.Background)
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Restart):
		if err := m.eng.Initialize(n); err != nil {
			m.lastErr = err
			return m, nil
		}
		m.gen++
		m.lastErr = nil
		m.startPreview()
		return m, m.previewCmd()

	case key.Matches(msg, m.keys.Up):
		m.cursor.Row = (m.cursor.Row - 1 + n) % n
	case key.Matches(msg, m.keys.Down):
		m.cursor.Row = (m.cursor.Row + 1) % n
	case key.Matches(msg, m.keys.Left):
		m.cursor.Col = (m.cursor.Col - 1 + n) % n
	case key.Matches(msg, m.keys.Right):
		m.cursor.Col = (m.cursor.Col + 1) % n

	case key.Matches(msg, m.keys.Select):
		if m.previewing || m.resolving || m.eng.Status().Terminal() {
			return m, nil
		}
		res, err := m.eng.SelectCell(m.cursor.Row, m.cursor.Col)
		if err != nil {
			m.lastErr = err
			return m, nil
		}
		if res.Status.Terminal() {
			log.Info().Str("outcome", res.Status.Kind.String()).Dur("elapsed", res.Status.Elapsed).Msg("game over")
			return m, nil
		}
		if res.Kind == game.ResultMismatched {
			m.resolving = true
			gen := m.gen
			return m, tea.Tick(m.opts.MismatchDelay, func(time.Time) tea.Msg { return resolveMsg{gen: gen} })
		}
	}
	return m, nil
}

func (m Model) View() string {
	switch m.eng.Status().Kind {
	case game.StatusWon:
		el := m.eng.Status().Elapsed
		return m.place(m.renderBox("#FFD700", "#00FF00", "You Win!!!",
			fmt.Sprintf("Time: %02d:%02d", int(el.Minutes()), int(el.Seconds())%60)))
	case game.StatusLost:
		return m.place(m.renderBox("#FF0000", "#FF4500", "Game Over",
			fmt.Sprintf("%d mismatches", m.eng.Mistakes())))
	}
	return m.place(lipgloss.JoinVertical(lipgloss.Center, m.renderBoard(), m.renderInfo()))
}

func (m Model) place(s string) string {
	if m.width == 0 || m.height == 0 {
		return s
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, s)
}

func (m Model) renderBox(border, accent, title, detail string) string {
	body := fmt.Sprintf("%s\n\n%s\n\n%s",
		titleStyle.Foreground(lipgloss.Color(accent)).Render(title),
		lipgloss.NewStyle().Bold(true).Render(detail),
		"Press 'r' for a new game or 'q' to quit")
	return boxStyle(border).Render(body)
}

func (m Model) renderBoard() string {
	n := m.eng.Size()
	var b strings.Builder
	for i, c := range m.eng.Cells() {
		b.WriteString(m.renderCell(i, c))
		if c.Col == n-1 {
			if c.Row < n-1 {
				b.WriteString("\n\n")
			}
		} else {
			b.WriteString(gapStyle.Render(""))
		}
	}
	return b.String()
}

func (m Model) renderCell(i int, c game.Cell) string {
	style := concealedStyle
	label := " ? "
	if c.Revealed || c.Matched || (m.previewing && i < m.shown) {
		style = tokenStyle(m.opts.Palette.Color(c.Token).Hex)
		label = "   "
		if c.Matched {
			label = " ✓ "
		}
	}
	if !m.previewing && c.Coord == m.cursor {
		style = cursorStyle(style)
		label = "[" + label[1:len(label)-1] + "]"
	}
	return style.Render(label)
}

func (m Model) renderInfo() string {
	var status string
	switch {
	case m.previewing:
		status = "Memorise the board..."
	case m.resolving:
		status = "No match"
	default:
		status = "Find the pairs"
	}
	p := m.eng.CurrentStatus()
	if m.lastErr != nil {
		status = m.lastErr.Error()
	}
	info := status + "\n"
	info += fmt.Sprintf("Pairs: %d/%d   ", p.MatchedCells/2, p.TotalCells/2)
	info += mistakeStyle.Render(fmt.Sprintf("Mistakes: %d/%d", p.Mistakes, game.MaxMistakes)) + "\n"
	info += "\n" + m.keys.help()
	return infoStyle.Render(info)
}
