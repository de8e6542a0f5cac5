package hexdump

import (
	"encoding/binary"
	"strings"
	"testing"

	"hostbridge/bridge"
)

func TestDumpBasicLayout(t *testing.T) {
	data := append([]byte("GET /index"), 0x00, 0x01)
	out := Dump(data, DefaultOptions())

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 1 {
		t.Fatalf("12 bytes produced %d lines", len(lines))
	}
	line := lines[0]
	if !strings.HasPrefix(line, "00000000  ") {
		t.Errorf("offset column missing: %q", line)
	}
	if !strings.Contains(line, "47 45 54 20 2f 69 6e 64 65 78 00 01") {
		t.Errorf("hex column wrong: %q", line)
	}
	if !strings.Contains(line, "|GET /index..|") {
		t.Errorf("ascii column wrong: %q", line)
	}
}

func TestDumpStartOffsetAndLineSplit(t *testing.T) {
	data := make([]byte, 40)
	o := DefaultOptions()
	o.StartOffset = 0x140000200
	o.OffsetWidth = 12
	out := Dump(data, o)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("40 bytes produced %d lines, want 3", len(lines))
	}
	if !strings.HasPrefix(lines[0], "000140000200") {
		t.Errorf("first offset: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "000140000210") {
		t.Errorf("second offset: %q", lines[1])
	}
	// The short 8-byte tail still has its ASCII column aligned.
	if idx0, idx2 := strings.Index(lines[0], "|"), strings.Index(lines[2], "|"); idx0 != idx2 {
		t.Errorf("ascii columns misaligned: %d vs %d", idx0, idx2)
	}
}

func TestDumpMaxLines(t *testing.T) {
	o := DefaultOptions()
	o.MaxLines = 2
	out := Dump(make([]byte, 64), o)
	if !strings.Contains(out, "... 32 more bytes") {
		t.Errorf("truncation notice missing:\n%s", out)
	}
}

func TestHighlightMarksPattern(t *testing.T) {
	data := []byte{0x00, 0x48, 0x8b, 0xab, 0x00, 0x48, 0x8b, 0x99}
	out := Highlighted(data, []byte{0x48, 0x8b})

	// Plain-text highlighting renders marked bytes uppercase.
	if !strings.Contains(out, "48 8B ab") {
		t.Errorf("first occurrence not marked:\n%s", out)
	}
	if !strings.Contains(out, "48 8B 99") {
		t.Errorf("second occurrence not marked:\n%s", out)
	}
}

func TestGrouping(t *testing.T) {
	o := DefaultOptions()
	o.BytesPerLine = 8
	o.GroupSize = 4
	o.ShowOffset = false
	o.ShowASCII = false
	out := strings.TrimRight(Dump([]byte{1, 2, 3, 4, 5, 6, 7, 8}, o), "\n")
	if out != "01020304 05060708" {
		t.Errorf("grouped dump = %q", out)
	}
}

func TestWindowReadsAroundAddress(t *testing.T) {
	data := make([]byte, 0x100)
	copy(data[0x40:], "MARKER")
	region := bridge.NewBufferRegion(0x2000, data)

	out, err := Window(region, 0x2040, 0x10, 0x10)
	if err != nil {
		t.Fatalf("Window: %v", err)
	}
	if !strings.Contains(out, "000000002030") {
		t.Errorf("window start offset missing:\n%s", out)
	}
	if !strings.Contains(out, "MARKER") {
		t.Errorf("window content missing:\n%s", out)
	}

	if _, err := Window(region, 0x2000, 0x10, 0x10); err == nil {
		t.Error("window before region start succeeded")
	}
}

func TestPointerPreview(t *testing.T) {
	data := make([]byte, 0x100)
	binary.LittleEndian.PutUint64(data[0x00:], 0x3080) // mapped
	binary.LittleEndian.PutUint64(data[0x08:], 0x99999999)
	region := bridge.NewBufferRegion(0x3000, data)

	o := DefaultOptions()
	o.ShowPointers = true
	o.Region = region
	o.StartOffset = 0x3000
	out := Dump(data[:16], o)

	if !strings.Contains(out, "-> 0x3080") {
		t.Errorf("mapped pointer not previewed:\n%s", out)
	}
	if strings.Contains(out, "0x99999999") {
		t.Errorf("unmapped pointer previewed:\n%s", out)
	}
}
