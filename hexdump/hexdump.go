// Package hexdump formats memory windows for scan diagnostics: hex+ASCII
// lines with optional pattern highlighting and pointer previews validated
// against a Region.
package hexdump

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"unicode"

	"hostbridge/bridge"

	"github.com/Moonlight-Companies/gologger/coloransi"
)

// Options customizes the dump layout.
type Options struct {
	// BytesPerLine is the number of bytes per output line.
	BytesPerLine int

	// GroupSize groups bytes without separating space (1, 2, 4 or 8).
	GroupSize int

	// ShowASCII appends the printable rendering of each line.
	ShowASCII bool

	// ShowOffset prefixes each line with its address column.
	ShowOffset bool

	// StartOffset is the address of the first byte, for the offset column.
	StartOffset uint64

	// OffsetWidth is the offset column width in hex digits.
	OffsetWidth int

	// Highlight marks every occurrence of this byte sequence.
	Highlight []byte

	// MaxLines truncates the dump, reporting the remaining byte count.
	// Zero dumps everything.
	MaxLines int

	// Color renders highlights and zero bytes with ANSI colors. Off, the
	// output is plain text suitable for log files.
	Color bool

	// Region, when set together with ShowPointers, validates the 8-byte
	// slots at line offsets 0 and 8 and previews the ones that point at
	// mapped memory.
	ShowPointers bool
	Region       bridge.Region
}

// DefaultOptions is the layout used by scan diagnostics: 16 plain bytes per
// line with offsets and ASCII.
func DefaultOptions() Options {
	return Options{
		BytesPerLine: 16,
		GroupSize:    1,
		ShowASCII:    true,
		ShowOffset:   true,
		OffsetWidth:  8,
	}
}

// Dump renders data into a string.
func Dump(data []byte, o Options) string {
	var buf bytes.Buffer
	DumpToWriter(&buf, data, o)
	return buf.String()
}

// DumpToWriter renders data line by line into w.
func DumpToWriter(w io.Writer, data []byte, o Options) {
	if o.BytesPerLine <= 0 {
		o.BytesPerLine = 16
	}
	if o.GroupSize <= 0 {
		o.GroupSize = 1
	}
	if o.OffsetWidth <= 0 {
		o.OffsetWidth = 8
	}

	marks := highlightMask(data, o.Highlight)
	lines := 0
	for off := 0; off < len(data); off += o.BytesPerLine {
		if o.MaxLines > 0 && lines >= o.MaxLines {
			fmt.Fprintf(w, "... %d more bytes\n", len(data)-off)
			return
		}
		end := off + o.BytesPerLine
		if end > len(data) {
			end = len(data)
		}
		writeLine(w, data[off:end], marks[off:end], o.StartOffset+uint64(off), o)
		lines++
	}
}

// Window reads [addr-before, addr+after) out of region and dumps it with
// real addresses in the offset column. Used to show context around a scan
// hit or a probe failure.
func Window(region bridge.Region, addr bridge.Address, before, after bridge.Size) (string, error) {
	start := addr.Add(-int64(before))
	data, err := region.ReadMemory(start, before+after)
	if err != nil {
		return "", fmt.Errorf("window around %s: %w", addr, err)
	}
	o := DefaultOptions()
	o.StartOffset = uint64(start)
	o.OffsetWidth = 12
	return Dump(data, o), nil
}

// Highlighted dumps data with every occurrence of pattern marked.
func Highlighted(data, pattern []byte) string {
	o := DefaultOptions()
	o.Highlight = pattern
	return Dump(data, o)
}

// highlightMask marks each byte covered by an occurrence of pattern.
func highlightMask(data, pattern []byte) []bool {
	marks := make([]bool, len(data))
	if len(pattern) == 0 {
		return marks
	}
	for i := 0; i+len(pattern) <= len(data); i++ {
		if bytes.Equal(data[i:i+len(pattern)], pattern) {
			for j := range pattern {
				marks[i+j] = true
			}
		}
	}
	return marks
}

func writeLine(w io.Writer, line []byte, marks []bool, offset uint64, o Options) {
	if o.ShowOffset {
		fmt.Fprintf(w, "%0*x  ", o.OffsetWidth, offset)
	}

	var hexWidth int
	for i, b := range line {
		cell := fmt.Sprintf("%02x", b)
		hexWidth += 2
		if o.Color {
			cell = colorCell(cell, b, marks[i])
		} else if marks[i] {
			cell = strings.ToUpper(cell)
		}
		fmt.Fprint(w, cell)
		if (i+1)%o.GroupSize == 0 && i != len(line)-1 {
			fmt.Fprint(w, " ")
			hexWidth++
		}
	}

	if o.ShowASCII {
		// Pad short final lines so the ASCII column stays aligned.
		full := o.BytesPerLine*2 + (o.BytesPerLine-1)/o.GroupSize
		if pad := full - hexWidth; pad > 0 {
			fmt.Fprint(w, strings.Repeat(" ", pad))
		}
		fmt.Fprint(w, "  |")
		for _, b := range line {
			switch {
			case b == 0:
				fmt.Fprint(w, ".")
			case unicode.IsPrint(rune(b)) && b < 0x80:
				fmt.Fprint(w, string(rune(b)))
			default:
				fmt.Fprint(w, ".")
			}
		}
		fmt.Fprint(w, "|")
	}

	if o.ShowPointers && o.Region != nil {
		for _, slot := range []int{0, 8} {
			if slot+8 > len(line) {
				break
			}
			ptr := bridge.Address(binary.LittleEndian.Uint64(line[slot:]))
			if !ptr.IsNull() && o.Region.IsValidAddress(ptr) {
				fmt.Fprintf(w, "  -> %s", ptr)
			}
		}
	}

	fmt.Fprintln(w)
}

func colorCell(cell string, b byte, marked bool) string {
	switch {
	case marked:
		return coloransi.Color(coloransi.Yellow, coloransi.Black, cell)
	case b == 0:
		return coloransi.Foreground(coloransi.BrightBlack, cell)
	default:
		return coloransi.Foreground(coloransi.Green, cell)
	}
}
