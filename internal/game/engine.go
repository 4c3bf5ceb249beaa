// internal/game/engine.go
//
// Core engine for a single memory-match game.
// Responsibilities:
//   - Deal an N×N board with N²/2 pairs (Initialize).
//   - Sequence turns: first pick, second pick, pending resolution (SelectCell).
//   - Resolve mismatches on the host's schedule (ResolvePending).
//   - Track mistakes and the terminal outcome: won (all matched) or lost (MaxMistakes reached).
//
// Notes:
//   - The engine performs no I/O and owns no timers. Hosts decide how long a mismatch stays
//     visible and call ResolvePending when that delay has passed.
//   - An Engine is not safe for concurrent use; hosts serialise calls.
//   - Every exported mutator either applies fully or returns an error without touching state.
package game

import (
	"fmt"
	"math/rand/v2"
	"time"
)

const (
	// DefaultSize is the classic 4×4 board with 8 pairs.
	DefaultSize = 4
	// MaxSize bounds the board side so N² stays small enough to deal and render.
	MaxSize = 64
	// MaxMistakes is the mismatch cap; reaching it at ResolvePending loses the game.
	MaxMistakes = 3
)

// Engine holds the board, turn, mistake count and outcome of one game.
type Engine struct {
	board     *Board
	turn      TurnState
	status    Status
	mistakes  int
	matched   int
	startedAt time.Time

	deal Dealer
	rng  *rand.Rand
	now  func() time.Time
}

// Option customises an Engine.
type Option func(*Engine)

// WithRand sets the random source used for dealing.
func WithRand(r *rand.Rand) Option { return func(e *Engine) { e.rng = r } }

// WithClock sets the clock used for the start timestamp and elapsed time.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithDealer replaces the random dealer.
func WithDealer(d Dealer) Option { return func(e *Engine) { e.deal = d } }

// New constructs an engine and initialises a game of the given size.
func New(size int, opts ...Option) (*Engine, error) {
	e := &Engine{
		deal: RandomDealer,
		now:  time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if err := e.Initialize(size); err != nil {
		return nil, err
	}
	return e, nil
}

// Initialize starts a new game on a freshly dealt board.
// The size must be even and in [2, MaxSize]. On error the current game is left as it was.
func (e *Engine) Initialize(size int) error {
	if size < 2 || size%2 != 0 {
		return fmt.Errorf("%w: board size %d must be even and at least 2", ErrInvalidConfiguration, size)
	}
	if size > MaxSize {
		return fmt.Errorf("%w: board size %d exceeds %d", ErrInvalidConfiguration, size, MaxSize)
	}
	b, err := e.deal(size, e.rng)
	if err != nil {
		return err
	}
	e.board = b
	e.turn = TurnState{}
	e.status = Status{}
	e.mistakes = 0
	e.matched = 0
	e.startedAt = e.now()
	return nil
}

// SelectCell applies a pick at (row, col).
//
// Rules, in order:
//   - terminal game → ErrGameAlreadyOver.
//   - outside the grid → ErrOutOfBounds.
//   - matched cell, or a mismatch still pending → ResultNoEffect.
//   - idle → the cell is revealed and becomes the first pick (ResultRevealed).
//   - awaiting second → same token on a different cell is a match; anything else,
//     including the first cell picked again, is a mismatch that counts a mistake.
//
// A match that completes the board wins immediately.
func (e *Engine) SelectCell(row, col int) (Result, error) {
	if e.status.Terminal() {
		return Result{}, ErrGameAlreadyOver
	}
	at := Coord{Row: row, Col: col}
	c := e.board.cell(at)
	if c == nil {
		return Result{}, fmt.Errorf("%w: (%d,%d) on a %dx%d board", ErrOutOfBounds, row, col, e.board.size, e.board.size)
	}
	if c.Matched || e.turn.Phase == PhaseResolving {
		return Result{Kind: ResultNoEffect, Status: e.status, Mistakes: e.mistakes}, nil
	}

	if e.turn.Phase == PhaseIdle {
		c.Revealed = true
		e.turn = TurnState{Phase: PhaseAwaitingSecond, First: at}
		return Result{Kind: ResultRevealed, First: *c, Status: e.status, Mistakes: e.mistakes}, nil
	}

	first := e.board.cell(e.turn.First)
	c.Revealed = true
	if first.Token == c.Token && e.turn.First != at {
		first.Matched, c.Matched = true, true
		e.matched += 2
		if e.matched == len(e.board.cells) {
			e.status = Status{Kind: StatusWon, Elapsed: e.elapsed()}
		}
		e.turn = TurnState{}
		return Result{Kind: ResultMatched, First: *first, Second: *c, Status: e.status, Mistakes: e.mistakes}, nil
	}

	e.mistakes++
	e.turn = TurnState{Phase: PhaseResolving, First: e.turn.First, Second: at}
	return Result{Kind: ResultMismatched, First: *first, Second: *c, Status: e.status, Mistakes: e.mistakes}, nil
}

// ResolvePending conceals the unmatched cells of a pending mismatch and checks the
// mistake cap. Hosts call it once their mismatch delay has elapsed.
func (e *Engine) ResolvePending() (Status, error) {
	if e.turn.Phase != PhaseResolving {
		return e.status, ErrNoPendingResolution
	}
	for _, at := range [...]Coord{e.turn.First, e.turn.Second} {
		if c := e.board.cell(at); !c.Matched {
			c.Revealed = false
		}
	}
	if e.mistakes >= MaxMistakes {
		e.status = Status{Kind: StatusLost, Elapsed: e.elapsed()}
	}
	e.turn = TurnState{}
	return e.status, nil
}

// CurrentStatus reports the outcome along with progress counters.
func (e *Engine) CurrentStatus() Progress {
	return Progress{
		Status:       e.status,
		Mistakes:     e.mistakes,
		MatchedCells: e.matched,
		TotalCells:   len(e.board.cells),
	}
}

// Size returns the board dimension N.
func (e *Engine) Size() int { return e.board.size }

// Cell returns a copy of the cell at (row, col), token included.
func (e *Engine) Cell(row, col int) (Cell, error) {
	c, ok := e.board.At(row, col)
	if !ok {
		return Cell{}, fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, row, col)
	}
	return c, nil
}

// Cells returns a row-major copy of every cell.
func (e *Engine) Cells() []Cell {
	out := make([]Cell, len(e.board.cells))
	copy(out, e.board.cells)
	return out
}

// Tokens returns the dealt layout.
func (e *Engine) Tokens() [][]Token { return e.board.Tokens() }

// Mistakes returns the mismatch count.
func (e *Engine) Mistakes() int { return e.mistakes }

// Turn returns the current turn state.
func (e *Engine) Turn() TurnState { return e.turn }

// Status returns the current outcome.
func (e *Engine) Status() Status { return e.status }

// StartedAt returns the time the current game was initialised.
func (e *Engine) StartedAt() time.Time { return e.startedAt }

func (e *Engine) elapsed() time.Duration {
	d := e.now().Sub(e.startedAt)
	if d < 0 {
		return 0
	}
	return d
}
