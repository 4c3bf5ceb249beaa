package game

// CellView is the client-facing representation of a cell.
// Token is only present when the cell is revealed or matched.
type CellView struct {
	Row      int    `json:"row"`
	Col      int    `json:"col"`
	Token    *Token `json:"token,omitempty"`
	Revealed bool   `json:"revealed"`
	Matched  bool   `json:"matched"`
}

// View builds the client-facing board. Concealed cells never expose their token.
func (e *Engine) View() []CellView {
	views := make([]CellView, len(e.board.cells))
	for i, c := range e.board.cells {
		views[i] = ViewOf(c)
	}
	return views
}

// ViewOf converts a single cell the same way View does.
func ViewOf(c Cell) CellView {
	v := CellView{Row: c.Row, Col: c.Col, Revealed: c.Revealed, Matched: c.Matched}
	if c.Revealed || c.Matched {
		t := c.Token
		v.Token = &t
	}
	return v
}
