// internal/palette/palette.go
//
// Ball color palette.
//
// Responsibilities:
//   - Load the palette from PALETTE_FILE or fall back to the embedded default.
//   - Expose an immutable table indexed by ColorID.
//
// File format, one entry per line ("#" starts a comment):
//
//	<id> <name> <glyph> <#rrggbb>
//
// Constraints:
//   • IDs must run 0..n-1 in file order, so a ColorID is also a table index.
//   • Names are lowercased.
//   • The embedded default is parsed once (sync.Once).

package palette

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/robalobadob/orbline/assets"
)

// Entry is one ball color and its display handles.
type Entry struct {
	ColorID int    `json:"colorId"`
	Name    string `json:"name"`
	Glyph   string `json:"glyph"`
	Hex     string `json:"hex"`
}

// Palette is an immutable color table.
type Palette struct {
	entries []Entry
}

var (
	defaultOnce sync.Once
	defaultPal  Palette
	defaultErr  error
)

// Default returns the embedded palette.
func Default() (Palette, error) {
	defaultOnce.Do(func() {
		lines, err := assets.PaletteLines()
		if err != nil {
			defaultErr = err
			return
		}
		defaultPal, defaultErr = ParseLines(lines)
	})
	return defaultPal, defaultErr
}

// Load reads the palette at path, or the embedded default when path is empty.
func Load(path string) (Palette, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return Palette{}, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		lines = append(lines, s)
	}
	if err := sc.Err(); err != nil {
		return Palette{}, err
	}
	return ParseLines(lines)
}

// ParseLines builds a palette from pre-filtered entry lines.
func ParseLines(lines []string) (Palette, error) {
	entries := make([]Entry, 0, len(lines))
	for i, line := range lines {
		fields := strings.Fields(line)
		if len(fields) != 4 {
			return Palette{}, fmt.Errorf("palette line %d: want 4 fields, got %d", i+1, len(fields))
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			return Palette{}, fmt.Errorf("palette line %d: id: %w", i+1, err)
		}
		e := Entry{ColorID: id, Name: strings.ToLower(fields[1]), Glyph: fields[2], Hex: strings.ToLower(fields[3])}
		if !isHexColor(e.Hex) {
			return Palette{}, fmt.Errorf("palette line %d: bad color %q", i+1, fields[3])
		}
		entries = append(entries, e)
	}
	return New(entries)
}

// New validates entries and returns a palette over a copy of them.
func New(entries []Entry) (Palette, error) {
	if len(entries) == 0 {
		return Palette{}, errors.New("palette: no colors")
	}
	out := make([]Entry, len(entries))
	for i, e := range entries {
		if e.ColorID != i {
			return Palette{}, fmt.Errorf("palette: entry %d has color id %d", i, e.ColorID)
		}
		out[i] = e
	}
	return Palette{entries: out}, nil
}

// Len is the number of colors.
func (p Palette) Len() int { return len(p.entries) }

// Valid reports whether id is a known color.
func (p Palette) Valid(id int) bool { return id >= 0 && id < len(p.entries) }

// Entry returns the entry for id.
func (p Palette) Entry(id int) (Entry, bool) {
	if !p.Valid(id) {
		return Entry{}, false
	}
	return p.entries[id], true
}

// Entries returns a copy of the table.
func (p Palette) Entries() []Entry {
	out := make([]Entry, len(p.entries))
	copy(out, p.entries)
	return out
}

// Lookup maps color ids to entries, skipping unknown ids.
func (p Palette) Lookup(ids []int) []Entry {
	out := make([]Entry, 0, len(ids))
	for _, id := range ids {
		if e, ok := p.Entry(id); ok {
			out = append(out, e)
		}
	}
	return out
}

func isHexColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, r := range s[1:] {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			return false
		}
	}
	return true
}
