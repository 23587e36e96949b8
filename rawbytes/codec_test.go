package rawbytes

import (
	"encoding/binary"
	"testing"
)

func TestAsBytesRoundTrip(t *testing.T) {
	in := []float64{1, 2, 3, 4}
	b := AsBytes(in)
	if len(b) != NBytes[float64](len(in)) {
		t.Fatalf("len(b) = %d, want %d", len(b), NBytes[float64](len(in)))
	}
	out := FromBytes[float64](b)
	if len(out) != len(in) {
		t.Fatalf("len(out) = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("out[%d] = %v, want %v", i, out[i], in[i])
		}
	}
}

func TestAsBytesLittleEndian(t *testing.T) {
	in := []float32{1}
	b := AsBytes(in)
	bits := binary.LittleEndian.Uint32(b)
	if bits != 0x3F800000 {
		t.Fatalf("bits = %x, want 3f800000", bits)
	}
}

func TestAlign(t *testing.T) {
	cases := []struct{ n, align, up, down int }{
		{0, 8, 0, 0},
		{1, 8, 8, 0},
		{8, 8, 8, 8},
		{9, 8, 16, 8},
		{17, 16, 32, 16},
	}
	for _, c := range cases {
		if got := AlignUp(c.n, c.align); got != c.up {
			t.Errorf("AlignUp(%d,%d) = %d, want %d", c.n, c.align, got, c.up)
		}
		if got := AlignDown(c.n, c.align); got != c.down {
			t.Errorf("AlignDown(%d,%d) = %d, want %d", c.n, c.align, got, c.down)
		}
	}
}

func TestSymbolPadTrim(t *testing.T) {
	sym := PadSymbol("AAPL")
	if got := TrimSymbol(sym); got != "AAPL" {
		t.Fatalf("TrimSymbol = %q, want AAPL", got)
	}
	long := PadSymbol(string(make([]byte, SymbolWidth+10)))
	if len(long) != SymbolWidth {
		t.Fatalf("len(long) = %d, want %d", len(long), SymbolWidth)
	}
}
