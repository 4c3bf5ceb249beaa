// internal/session/session.go
//
// Session hosts one engine for networked clients.
// Responsibilities:
//   - Serialise every call into the engine behind a mutex (the engine itself is not goroutine-safe).
//   - Own the timers the engine does not: the opening preview window and the post-mismatch delay.
//   - Fan out game events to subscribers (websocket connections).
//   - Report the terminal outcome exactly once through the OnFinish hook.
//
// Timing model:
//   - Input opens at PreviewDuration + N²·PreviewStagger after creation; selections before that
//     fail with ErrPreviewActive.
//   - A mismatch schedules ResolvePending after MismatchDelay. A zero delay leaves resolution to
//     the client (POST /game/resolve). A manual Resolve cancels any scheduled one.
//   - Scheduled resolutions carry a generation number so a late timer can never resolve a newer
//     mismatch.

package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/robalobadob/memory/internal/game"
)

var (
	// ErrPreviewActive is returned for selections while the opening preview is showing.
	ErrPreviewActive = errors.New("preview in progress")
	// ErrPreviewOver is returned by Preview once input has opened.
	ErrPreviewOver = errors.New("preview over")
	// ErrClosed is returned by every call after Close.
	ErrClosed = errors.New("session closed")
)

// Config holds host timing.
type Config struct {
	MismatchDelay   time.Duration
	PreviewDuration time.Duration
	PreviewStagger  time.Duration
}

// Summary describes a finished game.
type Summary struct {
	ID       string
	Owner    string
	Size     int
	Outcome  game.StatusKind
	Mistakes int
	Elapsed  time.Duration
}

// Session wraps a single engine.
type Session struct {
	ID        string
	Owner     string
	CreatedAt time.Time

	cfg        Config
	now        func() time.Time
	engineOpts []game.Option
	onFinish   func(Summary)
	onSelect   func(game.Result)

	mu       sync.Mutex
	eng      *game.Engine
	inputAt  time.Time
	lastSeen time.Time
	timer    *time.Timer
	gen      uint64
	subs     map[int]chan Event
	nextSub  int
	finished bool
	closed   bool
}

// Option customises a Session.
type Option func(*Session)

// WithOwner tags the session with a user or anonymous id.
func WithOwner(owner string) Option { return func(s *Session) { s.Owner = owner } }

// WithClock sets the clock used for the preview window and idle tracking.
func WithClock(now func() time.Time) Option { return func(s *Session) { s.now = now } }

// WithEngineOptions forwards options to game.New.
func WithEngineOptions(opts ...game.Option) Option {
	return func(s *Session) { s.engineOpts = append(s.engineOpts, opts...) }
}

// OnFinish registers a hook called once, outside the session lock, when the game ends.
func OnFinish(fn func(Summary)) Option { return func(s *Session) { s.onFinish = fn } }

// OnSelect registers a hook called, outside the session lock, after every successful selection.
func OnSelect(fn func(game.Result)) Option { return func(s *Session) { s.onSelect = fn } }

// New creates a session and deals a board of the given size.
func New(cfg Config, size int, opts ...Option) (*Session, error) {
	s := &Session{
		ID:   uuid.NewString(),
		cfg:  cfg,
		now:  time.Now,
		subs: make(map[int]chan Event),
	}
	for _, o := range opts {
		o(s)
	}
	eng, err := game.New(size, s.engineOpts...)
	if err != nil {
		return nil, err
	}
	s.eng = eng
	s.CreatedAt = s.now()
	s.lastSeen = s.CreatedAt
	s.inputAt = s.CreatedAt.Add(s.planLocked().ConcealAt)
	return s, nil
}

// Select forwards a pick to the engine once the preview has ended.
func (s *Session) Select(row, col int) (game.Result, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return game.Result{}, ErrClosed
	}
	now := s.now()
	s.lastSeen = now
	if now.Before(s.inputAt) {
		s.mu.Unlock()
		return game.Result{}, ErrPreviewActive
	}

	res, err := s.eng.SelectCell(row, col)
	if err != nil {
		s.mu.Unlock()
		return res, err
	}
	s.publishResultLocked(res)
	if res.Kind == game.ResultMismatched && s.cfg.MismatchDelay > 0 {
		s.scheduleLocked()
	}
	fin := s.finishLocked()
	onSelect, onFinish := s.onSelect, s.onFinish
	s.mu.Unlock()

	if onSelect != nil {
		onSelect(res)
	}
	if fin != nil && onFinish != nil {
		onFinish(*fin)
	}
	return res, nil
}

// Resolve completes a pending mismatch now, cancelling any scheduled resolution.
func (s *Session) Resolve() (game.Status, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return game.Status{}, ErrClosed
	}
	s.lastSeen = s.now()
	s.gen++
	s.stopTimerLocked()
	st, fin, err := s.resolveLocked()
	onFinish := s.onFinish
	s.mu.Unlock()

	if fin != nil && onFinish != nil {
		onFinish(*fin)
	}
	return st, err
}

func (s *Session) autoResolve(gen uint64) {
	s.mu.Lock()
	if s.closed || s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	_, fin, _ := s.resolveLocked()
	onFinish := s.onFinish
	s.mu.Unlock()

	if fin != nil && onFinish != nil {
		onFinish(*fin)
	}
}

func (s *Session) resolveLocked() (game.Status, *Summary, error) {
	turn := s.eng.Turn()
	st, err := s.eng.ResolvePending()
	if err != nil {
		return st, nil, err
	}
	cells := []game.CellView{s.viewLocked(turn.First)}
	if turn.Second != turn.First {
		cells = append(cells, s.viewLocked(turn.Second))
	}
	s.publishLocked(s.eventLocked(EventConcealed, cells...))
	if st.Kind == game.StatusLost {
		s.publishLocked(s.eventLocked(EventLost))
	}
	return st, s.finishLocked(), nil
}

func (s *Session) scheduleLocked() {
	s.gen++
	gen := s.gen
	s.stopTimerLocked()
	s.timer = time.AfterFunc(s.cfg.MismatchDelay, func() { s.autoResolve(gen) })
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// finishLocked returns a summary the first time the engine reports a terminal status.
func (s *Session) finishLocked() *Summary {
	st := s.eng.Status()
	if s.finished || !st.Terminal() {
		return nil
	}
	s.finished = true
	s.stopTimerLocked()
	return &Summary{
		ID:       s.ID,
		Owner:    s.Owner,
		Size:     s.eng.Size(),
		Outcome:  st.Kind,
		Mistakes: s.eng.Mistakes(),
		Elapsed:  st.Elapsed,
	}
}

func (s *Session) viewLocked(at game.Coord) game.CellView {
	c, _ := s.eng.Cell(at.Row, at.Col)
	return game.ViewOf(c)
}

// Close stops timers and closes every subscription. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.gen++
	s.stopTimerLocked()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
}

// LastSeen returns the time of the most recent client call.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Size returns the board dimension.
func (s *Session) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.Size()
}

// Snapshot is the client-facing state of a session.
type Snapshot struct {
	ID             string          `json:"gameId"`
	Size           int             `json:"size"`
	Cells          []game.CellView `json:"cells"`
	Status         string          `json:"status"`
	Phase          string          `json:"phase"`
	Mistakes       int             `json:"mistakes"`
	MaxMistakes    int             `json:"maxMistakes"`
	MatchedCells   int             `json:"matchedCells"`
	TotalCells     int             `json:"totalCells"`
	ElapsedSeconds int64           `json:"elapsedSeconds,omitempty"`
	InputOpensAt   time.Time       `json:"inputOpensAt"`
}

// Snapshot returns the current board view and progress.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.eng.CurrentStatus()
	snap := Snapshot{
		ID:           s.ID,
		Size:         s.eng.Size(),
		Cells:        s.eng.View(),
		Status:       p.Status.Kind.String(),
		Phase:        s.eng.Turn().Phase.String(),
		Mistakes:     p.Mistakes,
		MaxMistakes:  game.MaxMistakes,
		MatchedCells: p.MatchedCells,
		TotalCells:   p.TotalCells,
		InputOpensAt: s.inputAt,
	}
	if p.Status.Kind == game.StatusWon {
		snap.ElapsedSeconds = p.Status.ElapsedSeconds()
	}
	return snap
}
