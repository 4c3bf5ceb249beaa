// internal/game/types.go
//
// Core type definitions for the memory-match engine.
// Defines:
//   - Token, Coord, Cell: the board's value layer.
//   - TurnState/Phase: where the current turn stands (idle, awaiting second pick, resolving).
//   - Status/StatusKind: in progress, won (with elapsed time) or lost.
//   - Result/ResultKind: what a single selection changed.
//   - Progress: the read-only snapshot returned by CurrentStatus.

package game

import "time"

// Token identifies a pair. Token ids run from 0 to N²/2-1.
type Token int

// Coord addresses a cell by row and column, both in [0,N).
type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Cell is a single board position.
//   - Token is fixed when the board is dealt.
//   - Revealed is true while the cell is a pending pick and permanently once matched.
//   - Matched is set once the pair is confirmed and never cleared.
type Cell struct {
	Coord
	Token    Token `json:"token"`
	Revealed bool  `json:"revealed"`
	Matched  bool  `json:"matched"`
}

// Phase is the turn-level state of the engine.
type Phase int

const (
	PhaseIdle           Phase = iota // no pick recorded
	PhaseAwaitingSecond              // first pick exposed, waiting for the second
	PhaseResolving                   // mismatch shown, waiting for ResolvePending
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingSecond:
		return "awaiting_second"
	case PhaseResolving:
		return "resolving"
	default:
		return "idle"
	}
}

// TurnState carries the picks that belong to the current phase.
// First is meaningful in AwaitingSecond and Resolving; Second only in Resolving.
type TurnState struct {
	Phase  Phase `json:"phase"`
	First  Coord `json:"first"`
	Second Coord `json:"second"`
}

// StatusKind is the coarse game outcome.
type StatusKind int

const (
	StatusInProgress StatusKind = iota
	StatusWon
	StatusLost
)

func (k StatusKind) String() string {
	switch k {
	case StatusWon:
		return "won"
	case StatusLost:
		return "lost"
	default:
		return "playing"
	}
}

// Status is the game outcome. Elapsed is measured from Initialize and is
// set when the game becomes terminal.
type Status struct {
	Kind    StatusKind
	Elapsed time.Duration
}

// Terminal reports whether the game has ended.
func (s Status) Terminal() bool { return s.Kind != StatusInProgress }

// ElapsedSeconds is the whole-second elapsed time reported with a win.
func (s Status) ElapsedSeconds() int64 { return int64(s.Elapsed / time.Second) }

// ResultKind describes what a selection did.
type ResultKind int

const (
	ResultNoEffect ResultKind = iota
	ResultRevealed
	ResultMatched
	ResultMismatched
)

func (k ResultKind) String() string {
	switch k {
	case ResultRevealed:
		return "revealed"
	case ResultMatched:
		return "matched"
	case ResultMismatched:
		return "mismatched"
	default:
		return "no_effect"
	}
}

// Result is returned by SelectCell.
//   - Revealed: First is the picked cell.
//   - Matched / Mismatched: First and Second are the two picks as they stand after the call.
//   - NoEffect: only Status and Mistakes are set.
type Result struct {
	Kind     ResultKind
	First    Cell
	Second   Cell
	Status   Status
	Mistakes int
}

// Progress is the read-only view returned by CurrentStatus.
type Progress struct {
	Status       Status
	Mistakes     int
	MatchedCells int
	TotalCells   int
}
