// internal/palette/palette.go
//
// Colour-per-token mapping for renderers.
//
// Responsibilities:
//   - Load the palette from PALETTE_FILE or fall back to the embedded default (assets/palette.txt).
//   - Map a token id to a colour; ids past the end of the palette either repeat
//     (id modulo length) or use the fallback colour, depending on the overflow policy.
//
// Palette file format:
//   <name> <#rrggbb>     one entry per line, blank lines and lines starting with "#" skipped.
//
// Initialization is run once (sync.Once); hosts call Init at startup and Default afterwards.

package palette

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/robalobadob/memory/assets"
	"github.com/robalobadob/memory/internal/game"
)

// Color is a named RGB colour in "#rrggbb" form.
type Color struct {
	Name string `json:"name"`
	Hex  string `json:"hex"`
}

// Fallback is used for overflowing ids under OverflowDefault.
var Fallback = Color{Name: "black", Hex: "#000000"}

// Overflow decides what happens to token ids past the end of the palette.
type Overflow int

const (
	OverflowRepeat Overflow = iota
	OverflowDefault
)

// ParseOverflow maps "repeat"/"default" to an Overflow; anything else repeats.
func ParseOverflow(s string) Overflow {
	if strings.EqualFold(strings.TrimSpace(s), "default") {
		return OverflowDefault
	}
	return OverflowRepeat
}

// Palette is an ordered list of colours keyed by token id.
type Palette struct {
	colors   []Color
	overflow Overflow
}

// New builds a palette from explicit colours.
func New(colors []Color, overflow Overflow) *Palette {
	return &Palette{colors: append([]Color(nil), colors...), overflow: overflow}
}

// Color returns the colour for token t.
func (p *Palette) Color(t game.Token) Color {
	n := len(p.colors)
	if n == 0 || t < 0 {
		return Fallback
	}
	if int(t) < n {
		return p.colors[t]
	}
	if p.overflow == OverflowDefault {
		return Fallback
	}
	return p.colors[int(t)%n]
}

// Len reports the number of distinct colours.
func (p *Palette) Len() int { return len(p.colors) }

var (
	initOnce   sync.Once
	current    *Palette
	initialErr error
)

// Init loads the process-wide palette exactly once.
// An empty path selects the embedded default.
func Init(path, overflow string) error {
	initOnce.Do(func() {
		current, initialErr = Load(path, ParseOverflow(overflow))
	})
	return initialErr
}

// Default returns the process-wide palette, loading the embedded default if Init was never called.
func Default() *Palette {
	_ = Init("", "repeat")
	if current == nil {
		return New(nil, OverflowDefault)
	}
	return current
}

// Load reads a palette file, or the embedded default when path is empty.
func Load(path string, overflow Overflow) (*Palette, error) {
	var lines []string
	var err error
	if path == "" {
		lines, err = assets.PaletteLines()
	} else {
		lines, err = assets.ReadLines(os.DirFS(filepath.Dir(path)), filepath.Base(path))
	}
	if err != nil {
		return nil, err
	}

	colors := make([]Color, 0, len(lines))
	for i, line := range lines {
		c, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("palette line %d: %w", i+1, err)
		}
		colors = append(colors, c)
	}
	if len(colors) == 0 {
		return nil, errors.New("palette: no colours defined")
	}
	return New(colors, overflow), nil
}

func parseLine(line string) (Color, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return Color{}, fmt.Errorf("want \"<name> <#rrggbb>\", got %q", line)
	}
	hex := fields[1]
	if len(hex) != 7 || hex[0] != '#' || !isHex(hex[1:]) {
		return Color{}, fmt.Errorf("bad colour %q", hex)
	}
	return Color{Name: fields[0], Hex: hex}, nil
}

// isHex reports whether s is all lowercase hex digits.
func isHex(s string) bool {
	for _, r := range s {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			return false
		}
	}
	return true
}
