package assets

import (
	"bufio"
	"embed"
	"io/fs"
	"strings"
)

//go:embed palette.txt sql/*.sql
var FS embed.FS

// ReadLines returns the non-blank lines of name in fsys, trimmed and lowercased.
// Lines starting with "#" are comments.
func ReadLines(fsys fs.FS, name string) ([]string, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, strings.ToLower(s))
	}
	return out, sc.Err()
}

// PaletteLines returns the embedded default palette, one "<name> <#hex>" entry per line.
func PaletteLines() ([]string, error) {
	return ReadLines(FS, "palette.txt")
}

// Migrations exposes the embedded sql/ directory.
func Migrations() (fs.FS, error) {
	return fs.Sub(FS, "sql")
}
