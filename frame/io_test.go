package frame

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/tempolake/tempolake/rawbytes"
)

func TestEncodeBufferByteLayout(t *testing.T) {
	f, err := New[float32]([]int64{0, 1}, []string{"a", "b", "c"}, []float32{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	buf := EncodeBuffer(f)

	w := rawbytes.SymbolWidth
	wantLen := 16 + 16 + 3*w + 24
	if len(buf) != wantLen {
		t.Fatalf("len(buf) = %d, want %d", len(buf), wantLen)
	}

	indexNBytes := binary.LittleEndian.Uint64(buf[0:8])
	columnsNBytes := binary.LittleEndian.Uint64(buf[8:16])
	if indexNBytes != 16 {
		t.Fatalf("index_nbytes = %d, want 16", indexNBytes)
	}
	if columnsNBytes != uint64(3*w) {
		t.Fatalf("columns_nbytes = %d, want %d", columnsNBytes, 3*w)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	f, err := New[float64]([]int64{10, 20, 30}, []string{"aapl", "msft"}, []float64{
		1, 2,
		3, 4,
		5, 6,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	buf := EncodeBuffer(f)

	zc, err := DecodeBufferZeroCopy[float64](buf)
	if err != nil {
		t.Fatalf("DecodeBufferZeroCopy: %v", err)
	}
	if !Equal(f, zc) {
		t.Fatal("zero-copy decode did not round-trip")
	}

	owned, err := DecodeBufferOwned[float64](buf)
	if err != nil {
		t.Fatalf("DecodeBufferOwned: %v", err)
	}
	if owned.Ownership != Owned {
		t.Fatalf("Ownership = %v, want Owned", owned.Ownership)
	}
	if !Equal(f, owned) {
		t.Fatal("owned decode did not round-trip")
	}
}

func TestDecodeBufferTruncated(t *testing.T) {
	f, _ := New[float64]([]int64{1, 2}, []string{"a"}, []float64{1, 2})
	buf := EncodeBuffer(f)
	_, err := DecodeBufferZeroCopy[float64](buf[:len(buf)-1])
	if err == nil {
		t.Fatal("expected truncated error")
	}
}

func TestDecodeBufferHeaderTooShort(t *testing.T) {
	_, err := DecodeBufferZeroCopy[float64]([]byte{1, 2, 3})
	if err == nil {
		t.Fatal("expected truncated error for short header")
	}
}

func TestDecodeBufferInvalidSymbol(t *testing.T) {
	f, _ := New[float64]([]int64{1, 2}, []string{"aapl"}, []float64{1, 2})
	buf := EncodeBuffer(f)

	columnsOff := headerBytes + len(f.Index)*8
	// stray continuation byte where TrimSymbol would otherwise read "aapl".
	buf[columnsOff] = 0x80

	_, err := DecodeBufferZeroCopy[float64](buf)
	if !errors.Is(err, ErrInvalidSymbol) {
		t.Fatalf("DecodeBufferZeroCopy: got %v, want ErrInvalidSymbol", err)
	}
}
