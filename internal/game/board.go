// internal/game/board.go
//
// Board storage and dealing.
//   - Board keeps cells row-major; size is always even so N² is even.
//   - RandomDealer places each token twice by rejection sampling over empty coordinates.
//   - FixedDealer builds a board from an explicit layout (tests, replays, seeded hosts).

package game

import (
	"fmt"
	"math/rand/v2"
)

// Board is an N×N grid of cells.
type Board struct {
	size  int
	cells []Cell
}

// Dealer builds a fresh board of the given size.
type Dealer func(size int, rng *rand.Rand) (*Board, error)

func emptyBoard(size int) *Board {
	b := &Board{size: size, cells: make([]Cell, size*size)}
	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			b.cells[r*size+c].Coord = Coord{Row: r, Col: c}
		}
	}
	return b
}

// RandomDealer draws N²/2 token ids and places each one in two uniformly random
// empty cells. A coordinate is redrawn until an empty one turns up; the empty set
// shrinks with every placement so the loop always terminates.
func RandomDealer(size int, rng *rand.Rand) (*Board, error) {
	b := emptyBoard(size)
	filled := make([]bool, len(b.cells))
	for t := 0; t < len(b.cells)/2; t++ {
		for n := 0; n < 2; n++ {
			for {
				r, c := rng.IntN(size), rng.IntN(size)
				i := r*size + c
				if filled[i] {
					continue
				}
				filled[i] = true
				b.cells[i].Token = Token(t)
				break
			}
		}
	}
	return b, nil
}

// FixedDealer returns a Dealer that always deals the given layout.
// The layout must be square, match the requested size and hold every token exactly twice.
func FixedDealer(layout [][]Token) Dealer {
	return func(size int, _ *rand.Rand) (*Board, error) {
		if len(layout) != size {
			return nil, fmt.Errorf("%w: layout has %d rows, want %d", ErrInvalidConfiguration, len(layout), size)
		}
		b := emptyBoard(size)
		for r, row := range layout {
			if len(row) != size {
				return nil, fmt.Errorf("%w: layout row %d has %d cells, want %d", ErrInvalidConfiguration, r, len(row), size)
			}
			for c, t := range row {
				b.cells[r*size+c].Token = t
			}
		}
		if err := b.checkPairs(); err != nil {
			return nil, err
		}
		return b, nil
	}
}

// checkPairs enforces the pair invariant: N²/2 distinct tokens, each in exactly two cells.
func (b *Board) checkPairs() error {
	counts := make(map[Token]int, len(b.cells)/2)
	for _, c := range b.cells {
		counts[c.Token]++
	}
	for t, n := range counts {
		if n != 2 {
			return fmt.Errorf("%w: token %d appears %d times", ErrInvalidConfiguration, t, n)
		}
	}
	if len(counts) != len(b.cells)/2 {
		return fmt.Errorf("%w: %d distinct tokens, want %d", ErrInvalidConfiguration, len(counts), len(b.cells)/2)
	}
	return nil
}

// Size returns N.
func (b *Board) Size() int { return b.size }

// At returns a copy of the cell at (row, col).
func (b *Board) At(row, col int) (Cell, bool) {
	c := b.cell(Coord{Row: row, Col: col})
	if c == nil {
		return Cell{}, false
	}
	return *c, true
}

// Tokens returns the layout as rows of tokens.
func (b *Board) Tokens() [][]Token {
	out := make([][]Token, b.size)
	for r := range out {
		out[r] = make([]Token, b.size)
		for c := range out[r] {
			out[r][c] = b.cells[r*b.size+c].Token
		}
	}
	return out
}

func (b *Board) cell(at Coord) *Cell {
	if at.Row < 0 || at.Row >= b.size || at.Col < 0 || at.Col >= b.size {
		return nil
	}
	return &b.cells[at.Row*b.size+at.Col]
}
