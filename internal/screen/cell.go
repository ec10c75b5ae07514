package screen

// Attr is a bitset of SGR attributes.
type Attr uint16

const (
	AttrBold Attr = 1 << iota
	AttrDim
	AttrItalic
	AttrUnderline
	AttrBlink
	AttrInverse
	AttrHidden
	AttrStrikethrough
)

// Pen is the current graphic rendition applied to newly written
// cells: foreground, background, and attribute set (spec.md §3).
type Pen struct {
	Fg    Color
	Bg    Color
	Attrs Attr
}

// DefaultPen is the pen a freshly reset screen starts with.
var DefaultPen = Pen{Fg: DefaultColor, Bg: DefaultColor}

// Cell is one grid element. The zero Cell is a valid empty cell
// (spec.md §3: "every Cell is always valid, no uninitialized state").
type Cell struct {
	Rune  rune
	Fg    Color
	Bg    Color
	Attrs Attr
}

func blankCell(pen Pen) Cell {
	return Cell{Rune: 0, Fg: pen.Fg, Bg: pen.Bg, Attrs: pen.Attrs}
}

// DisplayRune returns the rune to draw for c: an empty cell (Rune ==
// 0) displays as a space.
func (c Cell) DisplayRune() rune {
	if c.Rune == 0 {
		return ' '
	}
	return c.Rune
}

// equalForRender reports whether c and other would draw identically,
// treating an empty cell with default attributes as equal to a space
// cell with default attributes — the cells still preserve distinct
// underlying bytes (spec.md §3) for any other comparison.
func (c Cell) equalForRender(other Cell) bool {
	return c.DisplayRune() == other.DisplayRune() &&
		c.Fg == other.Fg && c.Bg == other.Bg && c.Attrs == other.Attrs
}
