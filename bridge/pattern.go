package bridge

import (
	"fmt"
	"strconv"
	"strings"
)

// Pattern is a byte pattern with wildcards, used for scanning host memory.
// Mask bytes are 0xFF for an exact match and 0x00 for a wildcard.
type Pattern struct {
	Bytes []byte
	Mask  []byte
}

// wildcard tokens accepted by ParsePattern
var wildcardTokens = map[string]bool{
	"?": true, "??": true, "*": true, "**": true,
}

// ParsePattern parses a textual pattern such as "48 8B ?? ?? 00" into a
// Pattern. Tokens are whitespace separated; "?", "??", "*" and "**" match any
// byte, everything else must be a two-digit hex byte. A pattern with no tokens
// or only wildcards is rejected.
func ParsePattern(text string) (Pattern, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Pattern{}, fmt.Errorf("empty pattern %q", text)
	}

	p := Pattern{
		Bytes: make([]byte, 0, len(fields)),
		Mask:  make([]byte, 0, len(fields)),
	}
	fixed := false
	for i, tok := range fields {
		if wildcardTokens[tok] {
			p.Bytes = append(p.Bytes, 0)
			p.Mask = append(p.Mask, 0)
			continue
		}
		v, err := strconv.ParseUint(tok, 16, 8)
		if err != nil {
			return Pattern{}, fmt.Errorf("bad pattern byte %q at token %d: %w", tok, i, err)
		}
		p.Bytes = append(p.Bytes, byte(v))
		p.Mask = append(p.Mask, 0xFF)
		fixed = true
	}
	if !fixed {
		return Pattern{}, fmt.Errorf("pattern %q has no fixed bytes", text)
	}
	return p, nil
}

// NewPattern builds a Pattern from raw bytes and a mask of the same length.
// A nil mask means every byte is an exact match.
func NewPattern(bytes, mask []byte) (Pattern, error) {
	if len(bytes) == 0 {
		return Pattern{}, fmt.Errorf("empty pattern")
	}
	if mask == nil {
		mask = make([]byte, len(bytes))
		for i := range mask {
			mask[i] = 0xFF
		}
	}
	if len(mask) != len(bytes) {
		return Pattern{}, fmt.Errorf("mask length (%d) doesn't match pattern length (%d)", len(mask), len(bytes))
	}
	p := Pattern{Bytes: bytes, Mask: mask}
	if _, _, ok := p.FirstFixed(); !ok {
		return Pattern{}, fmt.Errorf("pattern has no fixed bytes")
	}
	return p, nil
}

// Len returns the pattern length in bytes.
func (p Pattern) Len() int {
	return len(p.Bytes)
}

// FirstFixed returns the index and value of the first non-wildcard byte.
// Scans use it to reject candidate positions before the full comparison.
func (p Pattern) FirstFixed() (int, byte, bool) {
	for i, m := range p.Mask {
		if m != 0 {
			return i, p.Bytes[i] & m, true
		}
	}
	return 0, 0, false
}

// String renders the pattern back into "48 8B ?? 00" form.
func (p Pattern) String() string {
	var sb strings.Builder
	for i := range p.Bytes {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if p.Mask[i] == 0 {
			sb.WriteString("??")
		} else {
			fmt.Fprintf(&sb, "%02X", p.Bytes[i])
		}
	}
	return sb.String()
}
