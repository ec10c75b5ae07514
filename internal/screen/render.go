package screen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/muesli/termenv"
)

// RenderANSI produces a byte stream that, fed into a fresh terminal of
// the same dimensions, reproduces the visible state of b (spec.md
// §4.2 "Render-to-ANSI"): home+clear, then per-row positioning with
// SGR emitted only on change from the last-emitted pen, a final reset,
// and the cursor repositioned with its visibility mode.
//
// profile narrows colors to what the target terminal supports (e.g. a
// plain ANSI attach client over a profile-limited transport), using
// go-colorful distance in Color.Downsample.
func (b *Buffer) RenderANSI(profile termenv.Profile) []byte {
	var out strings.Builder
	out.WriteString("\x1b[H\x1b[2J")

	last := Pen{Fg: DefaultColor, Bg: DefaultColor}
	for y := 0; y < b.height; y++ {
		fmt.Fprintf(&out, "\x1b[%d;1H", y+1)
		for x := 0; x < b.width; x++ {
			cell := b.active.at(x, y)
			pen := Pen{Fg: cell.Fg.Downsample(profile), Bg: cell.Bg.Downsample(profile), Attrs: cell.Attrs}
			writeSGRDiff(&out, &last, pen)
			out.WriteRune(cell.DisplayRune())
		}
	}

	out.WriteString("\x1b[0m")
	fmt.Fprintf(&out, "\x1b[%d;%dH", b.cursorY+1, b.cursorX+1)
	if b.cursorVisible {
		out.WriteString("\x1b[?25h")
	} else {
		out.WriteString("\x1b[?25l")
	}
	return []byte(out.String())
}

func writeSGRDiff(out *strings.Builder, last *Pen, target Pen) {
	var codes []string

	cleared := last.Attrs &^ target.Attrs
	if cleared != 0 {
		codes = append(codes, "0")
		codes = append(codes, attrCodes(target.Attrs)...)
		codes = append(codes, colorCodes(target.Fg, true)...)
		codes = append(codes, colorCodes(target.Bg, false)...)
	} else {
		added := target.Attrs &^ last.Attrs
		codes = append(codes, attrCodes(added)...)
		if target.Fg != last.Fg {
			codes = append(codes, colorCodes(target.Fg, true)...)
		}
		if target.Bg != last.Bg {
			codes = append(codes, colorCodes(target.Bg, false)...)
		}
	}

	*last = target
	if len(codes) == 0 {
		return
	}
	out.WriteString("\x1b[")
	out.WriteString(strings.Join(codes, ";"))
	out.WriteString("m")
}

func attrCodes(a Attr) []string {
	var codes []string
	if a&AttrBold != 0 {
		codes = append(codes, "1")
	}
	if a&AttrDim != 0 {
		codes = append(codes, "2")
	}
	if a&AttrItalic != 0 {
		codes = append(codes, "3")
	}
	if a&AttrUnderline != 0 {
		codes = append(codes, "4")
	}
	if a&AttrBlink != 0 {
		codes = append(codes, "5")
	}
	if a&AttrInverse != 0 {
		codes = append(codes, "7")
	}
	if a&AttrHidden != 0 {
		codes = append(codes, "8")
	}
	if a&AttrStrikethrough != 0 {
		codes = append(codes, "9")
	}
	return codes
}

func colorCodes(c Color, foreground bool) []string {
	if c.IsDefault() {
		if foreground {
			return []string{"39"}
		}
		return []string{"49"}
	}
	if c.IsRGB() {
		r, g, b := c.RGBValues()
		base := "38"
		if !foreground {
			base = "48"
		}
		return []string{base, "2", strconv.Itoa(int(r)), strconv.Itoa(int(g)), strconv.Itoa(int(b))}
	}
	idx := c.Index()
	switch {
	case idx < 8:
		if foreground {
			return []string{strconv.Itoa(30 + int(idx))}
		}
		return []string{strconv.Itoa(40 + int(idx))}
	case idx < 16:
		if foreground {
			return []string{strconv.Itoa(90 + int(idx) - 8)}
		}
		return []string{strconv.Itoa(100 + int(idx) - 8)}
	default:
		base := "38"
		if !foreground {
			base = "48"
		}
		return []string{base, "5", strconv.Itoa(int(idx))}
	}
}
