package bridge

import (
	"testing"
)

func TestParsePattern(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    string
		wantErr bool
	}{
		{name: "plain bytes", text: "48 8B C3", want: "48 8B C3"},
		{name: "double question wildcard", text: "48 8B ?? ?? 00", want: "48 8B ?? ?? 00"},
		{name: "single question wildcard", text: "E8 ? ? ? ? 48", want: "E8 ?? ?? ?? ?? 48"},
		{name: "star wildcard", text: "4C 89 * 10", want: "4C 89 ?? 10"},
		{name: "double star wildcard", text: "4C ** 10", want: "4C ?? 10"},
		{name: "lowercase hex", text: "ba ad f0 0d", want: "BA AD F0 0D"},
		{name: "extra whitespace", text: "  48\t8B  ", want: "48 8B"},
		{name: "empty", text: "", wantErr: true},
		{name: "only wildcards", text: "?? ?? ??", wantErr: true},
		{name: "bad token", text: "48 G1", wantErr: true},
		{name: "token too wide", text: "48 123", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePattern(tt.text)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParsePattern(%q) = %v, want error", tt.text, p)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePattern(%q): %v", tt.text, err)
			}
			if got := p.String(); got != tt.want {
				t.Errorf("ParsePattern(%q).String() = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestNewPattern(t *testing.T) {
	p, err := NewPattern([]byte{0x48, 0x8B}, nil)
	if err != nil {
		t.Fatalf("NewPattern with nil mask: %v", err)
	}
	if p.Mask[0] != 0xFF || p.Mask[1] != 0xFF {
		t.Errorf("nil mask should mean exact match, got %v", p.Mask)
	}

	if _, err := NewPattern([]byte{0x48}, []byte{0xFF, 0xFF}); err == nil {
		t.Error("mismatched mask length accepted")
	}
	if _, err := NewPattern(nil, nil); err == nil {
		t.Error("empty pattern accepted")
	}
	if _, err := NewPattern([]byte{1, 2}, []byte{0, 0}); err == nil {
		t.Error("all-wildcard mask accepted")
	}
}

func TestFirstFixed(t *testing.T) {
	p, err := ParsePattern("?? ?? 8B 00")
	if err != nil {
		t.Fatal(err)
	}
	idx, val, ok := p.FirstFixed()
	if !ok || idx != 2 || val != 0x8B {
		t.Errorf("FirstFixed() = (%d, %#x, %v), want (2, 0x8b, true)", idx, val, ok)
	}
}
