package session

import (
	"time"

	"github.com/robalobadob/memory/internal/game"
)

// PreviewStep reveals one cell At after the session was created.
type PreviewStep struct {
	Row   int        `json:"row"`
	Col   int        `json:"col"`
	Token game.Token `json:"token"`
	At    int64      `json:"atMs"`
}

// Preview is the opening reveal: cells appear one by one, then everything is
// concealed at ConcealAt and input opens.
type Preview struct {
	Steps     []PreviewStep `json:"steps"`
	ConcealAt time.Duration `json:"-"`
}

// Preview returns the opening reveal while it is still running.
func (s *Session) Preview() (Preview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Preview{}, ErrClosed
	}
	if !s.now().Before(s.inputAt) {
		return Preview{}, ErrPreviewOver
	}
	return s.planLocked(), nil
}

// InputOpensAt is when the preview ends and selections are accepted.
func (s *Session) InputOpensAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inputAt
}

// planLocked staggers reveals in row-major order and conceals once every cell
// has been shown for at least PreviewDuration.
func (s *Session) planLocked() Preview {
	n := s.eng.Size()
	cells := s.eng.Cells()
	steps := make([]PreviewStep, 0, len(cells))
	for i, c := range cells {
		steps = append(steps, PreviewStep{
			Row:   c.Row,
			Col:   c.Col,
			Token: c.Token,
			At:    (time.Duration(i) * s.cfg.PreviewStagger).Milliseconds(),
		})
	}
	return Preview{
		Steps:     steps,
		ConcealAt: s.cfg.PreviewDuration + time.Duration(n*n)*s.cfg.PreviewStagger,
	}
}
