package screen

// grid is one Width x Height plane of cells, stored row-major.
type grid struct {
	width, height int
	cells         []Cell
	savedX        int
	savedY        int
	savedPen      Pen
	hasSaved      bool
}

func newGrid(w, h int, pen Pen) *grid {
	g := &grid{width: w, height: h, cells: make([]Cell, w*h)}
	g.fill(0, 0, w, h, pen)
	return g
}

func (g *grid) at(x, y int) Cell {
	return g.cells[y*g.width+x]
}

func (g *grid) set(x, y int, c Cell) {
	g.cells[y*g.width+x] = c
}

func (g *grid) fill(x0, y0, x1, y1 int, pen Pen) {
	blank := blankCell(pen)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			g.set(x, y, blank)
		}
	}
}

// scrollUp discards the top n rows of [top,bottom) and fills n new
// blank rows at the bottom of that range with pen's background.
func (g *grid) scrollUp(top, bottom, n int, pen Pen) {
	if n <= 0 {
		return
	}
	if n > bottom-top {
		n = bottom - top
	}
	for y := top; y < bottom-n; y++ {
		copy(g.cells[y*g.width:(y+1)*g.width], g.cells[(y+n)*g.width:(y+n+1)*g.width])
	}
	g.fill(0, bottom-n, g.width, bottom, pen)
}

// scrollDown discards the bottom n rows of [top,bottom) and fills n
// new blank rows at the top of that range.
func (g *grid) scrollDown(top, bottom, n int, pen Pen) {
	if n <= 0 {
		return
	}
	if n > bottom-top {
		n = bottom - top
	}
	for y := bottom - 1; y >= top+n; y-- {
		copy(g.cells[y*g.width:(y+1)*g.width], g.cells[(y-n)*g.width:(y-n+1)*g.width])
	}
	g.fill(0, top, g.width, top+n, pen)
}

// Buffer is the handler-facing terminal screen model (spec.md §3
// ScreenBuffer): a primary/alternate grid pair, cursor, pen, scrolling
// region, tab stops, and title, mutated by the Handler in buffer.go's
// sibling files as the vtparser dispatches into it.
type Buffer struct {
	width, height int

	primary   *grid
	alternate *grid
	active    *grid
	inAlt     bool

	cursorX, cursorY int
	cursorVisible    bool
	wrapPending      bool
	autowrap         bool
	originMode       bool

	pen Pen

	scrollTop, scrollBottom int // half-open [top, bottom)

	tabStops map[int]bool

	title string

	// Cached clipboard payload from the most recent OSC 52 (decoded).
	clipboard string
}

// New constructs a Buffer of the given dimensions (both >= 1).
func New(width, height int) *Buffer {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	b := &Buffer{
		width: width, height: height,
		cursorVisible: true,
		autowrap:      true,
		pen:           DefaultPen,
	}
	b.primary = newGrid(width, height, b.pen)
	b.alternate = newGrid(width, height, b.pen)
	b.active = b.primary
	b.scrollTop, b.scrollBottom = 0, height
	b.resetTabStops()
	return b
}

func (b *Buffer) resetTabStops() {
	b.tabStops = make(map[int]bool)
	for x := 8; x < b.width; x += 8 {
		b.tabStops[x] = true
	}
}

// Width and Height report the current grid dimensions.
func (b *Buffer) Width() int  { return b.width }
func (b *Buffer) Height() int { return b.height }

// Cursor reports the current cursor position and visibility.
func (b *Buffer) Cursor() (x, y int, visible bool) {
	return b.cursorX, b.cursorY, b.cursorVisible
}

// Title reports the most recent OSC 0/2 window title.
func (b *Buffer) Title() string { return b.title }

// ClipboardData reports the most recently decoded OSC 52 payload.
func (b *Buffer) ClipboardData() string { return b.clipboard }

// InAlternateScreen reports whether the alternate grid is active.
func (b *Buffer) InAlternateScreen() bool { return b.inAlt }

// Cell returns the cell at (x, y) of the active grid.
func (b *Buffer) Cell(x, y int) Cell {
	return b.active.at(x, y)
}

func (b *Buffer) clampCursor() {
	if b.cursorX < 0 {
		b.cursorX = 0
	}
	if b.cursorX > b.width {
		b.cursorX = b.width
	}
	if b.cursorY < 0 {
		b.cursorY = 0
	}
	if b.cursorY >= b.height {
		b.cursorY = b.height - 1
	}
}

func (b *Buffer) moveCursor(x, y int) {
	b.cursorX, b.cursorY = x, y
	b.wrapPending = false
	b.clampCursor()
}

// scrollRegionRows returns the effective scrolling region, clamped to
// the grid (top <= bottom, spec.md §3).
func (b *Buffer) scrollRegionRows() (top, bottom int) {
	top, bottom = b.scrollTop, b.scrollBottom
	if top < 0 {
		top = 0
	}
	if bottom > b.height {
		bottom = b.height
	}
	if top >= bottom {
		top, bottom = 0, b.height
	}
	return
}

// scrollUpRegion scrolls n lines upward within the current region.
func (b *Buffer) scrollUpRegion(n int) {
	top, bottom := b.scrollRegionRows()
	b.active.scrollUp(top, bottom, n, b.pen)
}

// scrollDownRegion scrolls n lines downward within the current region.
func (b *Buffer) scrollDownRegion(n int) {
	top, bottom := b.scrollRegionRows()
	b.active.scrollDown(top, bottom, n, b.pen)
}

// lineFeed moves the cursor down one line, scrolling the region if
// already at its bottom.
func (b *Buffer) lineFeed() {
	top, bottom := b.scrollRegionRows()
	b.wrapPending = false
	if b.cursorY == bottom-1 {
		b.scrollUpRegion(1)
		return
	}
	if b.cursorY < b.height-1 {
		b.cursorY++
	}
}

// reverseLineFeed moves the cursor up one line, scrolling the region
// if already at its top.
func (b *Buffer) reverseLineFeed() {
	top, bottom := b.scrollRegionRows()
	b.wrapPending = false
	if b.cursorY == top {
		b.scrollDownRegion(1)
		return
	}
	if b.cursorY > 0 {
		b.cursorY--
	}
}

// Resize rebuilds both grids at the new dimensions, copying the
// top-left min(old,new) region forward and clamping the cursor
// (spec.md §4.2 "Resize").
func (b *Buffer) Resize(width, height int) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	b.primary = resizeGrid(b.primary, width, height, b.pen)
	b.alternate = resizeGrid(b.alternate, width, height, b.pen)
	if b.inAlt {
		b.active = b.alternate
	} else {
		b.active = b.primary
	}
	b.width, b.height = width, height
	if b.scrollBottom > height || b.scrollBottom == 0 {
		b.scrollBottom = height
	}
	if b.scrollTop >= b.scrollBottom {
		b.scrollTop = 0
	}
	b.resetTabStops()
	b.clampCursor()
}

func resizeGrid(old *grid, w, h int, pen Pen) *grid {
	ng := newGrid(w, h, pen)
	copyW := old.width
	if w < copyW {
		copyW = w
	}
	copyH := old.height
	if h < copyH {
		copyH = h
	}
	for y := 0; y < copyH; y++ {
		copy(ng.cells[y*w:y*w+copyW], old.cells[y*old.width:y*old.width+copyW])
	}
	return ng
}

// enterAlternateScreen saves the primary cursor, switches to a
// cleared alternate grid at (0,0) (spec.md §4.2 "Alternate buffer
// enter").
func (b *Buffer) enterAlternateScreen() {
	if b.inAlt {
		return
	}
	b.primary.savedX, b.primary.savedY, b.primary.savedPen, b.primary.hasSaved = b.cursorX, b.cursorY, b.pen, true
	b.alternate.fill(0, 0, b.width, b.height, b.pen)
	b.active = b.alternate
	b.inAlt = true
	b.cursorX, b.cursorY = 0, 0
	b.wrapPending = false
}

// exitAlternateScreen restores the primary grid and its saved cursor.
func (b *Buffer) exitAlternateScreen() {
	if !b.inAlt {
		return
	}
	b.active = b.primary
	b.inAlt = false
	if b.primary.hasSaved {
		b.cursorX, b.cursorY, b.pen = b.primary.savedX, b.primary.savedY, b.primary.savedPen
	}
	b.wrapPending = false
	b.clampCursor()
}

// saveCursor implements DECSC/SCO save (spec.md §9 open question:
// CSI s is treated as save, not DECSLRM).
func (b *Buffer) saveCursor() {
	b.active.savedX, b.active.savedY, b.active.savedPen, b.active.hasSaved = b.cursorX, b.cursorY, b.pen, true
}

// restoreCursor implements DECRC/SCO restore.
func (b *Buffer) restoreCursor() {
	if !b.active.hasSaved {
		return
	}
	b.cursorX, b.cursorY, b.pen = b.active.savedX, b.active.savedY, b.active.savedPen
	b.wrapPending = false
	b.clampCursor()
}

// softReset implements DECSTR: pen, scroll region, origin/autowrap
// modes, and cursor visibility return to their power-on defaults, but
// screen content and cursor position are left alone (unlike RIS's
// fullReset).
func (b *Buffer) softReset() {
	b.pen = DefaultPen
	b.scrollTop, b.scrollBottom = 0, b.height
	b.originMode = false
	b.autowrap = true
	b.cursorVisible = true
	b.wrapPending = false
	b.primary.hasSaved = false
	b.alternate.hasSaved = false
}
