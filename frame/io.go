// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/tempolake/tempolake/numeric"
	"github.com/tempolake/tempolake/rawbytes"
	"github.com/tempolake/tempolake/utf8"
)

// ErrTruncated is returned when a buffer is shorter than its header
// plus the computed section lengths.
var ErrTruncated = errors.New("frame: truncated buffer")

// ErrMisaligned is returned when a header section length is not a
// whole multiple of its entry width (8 bytes per index entry,
// SymbolWidth bytes per column). The memory address alignment of the
// buffer itself is not checked.
var ErrMisaligned = errors.New("frame: misaligned buffer")

// ErrInvalidSymbol is returned when a decoded column symbol's trimmed
// bytes contain a UTF-8 continuation byte (0b10xx_xxxx), which for the
// ASCII ticker identifiers this format stores means the bytes are
// corrupt. Other non-ASCII bytes, such as a lone multi-byte lead byte,
// are not detected.
var ErrInvalidSymbol = errors.New("frame: invalid symbol bytes")

const headerBytes = 16 // two little-endian int64 lengths

// EncodeBuffer writes the frame's self-describing byte layout:
//
//	i64 index_nbytes
//	i64 columns_nbytes
//	<index bytes>    8 bytes per entry
//	<columns bytes>  W bytes per entry
//	<values bytes>   sizeof(T) * N * S
func EncodeBuffer[T numeric.Float](f *Frame[T]) []byte {
	n, s := f.N(), f.S()
	indexNBytes := n * 8
	columnsNBytes := s * rawbytes.SymbolWidth
	valuesNBytes := rawbytes.NBytes[T](n * s)

	buf := make([]byte, headerBytes+indexNBytes+columnsNBytes+valuesNBytes)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(indexNBytes))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(columnsNBytes))

	off := headerBytes
	for _, ts := range f.Index {
		binary.LittleEndian.PutUint64(buf[off:off+8], uint64(ts))
		off += 8
	}
	for _, c := range f.Columns {
		copy(buf[off:off+rawbytes.SymbolWidth], c[:])
		off += rawbytes.SymbolWidth
	}
	copy(buf[off:], rawbytes.AsBytes(f.Values))
	return buf
}

func sectionLengths(buf []byte) (indexNBytes, columnsNBytes int, err error) {
	if len(buf) < headerBytes {
		return 0, 0, ErrTruncated
	}
	indexNBytes = int(binary.LittleEndian.Uint64(buf[0:8]))
	columnsNBytes = int(binary.LittleEndian.Uint64(buf[8:16]))
	return indexNBytes, columnsNBytes, nil
}

func valuesNBytes[T numeric.Float](indexNBytes, columnsNBytes int) (int, error) {
	if indexNBytes%8 != 0 {
		return 0, fmt.Errorf("%w: index section %d bytes not a multiple of 8", ErrMisaligned, indexNBytes)
	}
	if columnsNBytes%rawbytes.SymbolWidth != 0 {
		return 0, fmt.Errorf("%w: columns section %d bytes not a multiple of %d", ErrMisaligned, columnsNBytes, rawbytes.SymbolWidth)
	}
	n := indexNBytes / 8
	s := columnsNBytes / rawbytes.SymbolWidth
	return rawbytes.NBytes[T](n * s), nil
}

// DecodeBufferZeroCopy returns a borrowed frame whose Values slice
// aliases buf's backing array; Index and Columns are decoded into
// fresh slices. buf must outlive the returned frame.
func DecodeBufferZeroCopy[T numeric.Float](buf []byte) (*Frame[T], error) {
	indexNBytes, columnsNBytes, err := sectionLengths(buf)
	if err != nil {
		return nil, err
	}
	vNBytes, err := valuesNBytes[T](indexNBytes, columnsNBytes)
	if err != nil {
		return nil, err
	}
	total := headerBytes + indexNBytes + columnsNBytes + vNBytes
	if len(buf) < total {
		return nil, fmt.Errorf("%w: have %d bytes, want %d", ErrTruncated, len(buf), total)
	}
	if !rawbytes.IsAligned(headerBytes, 8) {
		return nil, ErrMisaligned
	}

	indexOff := headerBytes
	columnsOff := indexOff + indexNBytes
	valuesOff := columnsOff + columnsNBytes

	n := indexNBytes / 8
	index := make([]int64, n)
	for i := 0; i < n; i++ {
		index[i] = int64(binary.LittleEndian.Uint64(buf[indexOff+i*8:]))
	}

	s := columnsNBytes / rawbytes.SymbolWidth
	columns := make([][rawbytes.SymbolWidth]byte, s)
	for i := 0; i < s; i++ {
		copy(columns[i][:], buf[columnsOff+i*rawbytes.SymbolWidth:columnsOff+(i+1)*rawbytes.SymbolWidth])
		// trimmed on read: runs through the same SWAR rune counter the
		// engine uses elsewhere; a symbol with a rune count short of its
		// byte count carries a continuation byte, which a clean ASCII
		// ticker identifier never does.
		name := rawbytes.TrimSymbol(columns[i])
		if n := utf8.ValidStringLength([]byte(name)); n != len(name) {
			return nil, fmt.Errorf("%w: column %d (%q): %d runes over %d bytes", ErrInvalidSymbol, i, name, n, len(name))
		}
	}

	values := rawbytes.FromBytes[T](buf[valuesOff : valuesOff+vNBytes])

	return &Frame[T]{
		Index:     index,
		Columns:   columns,
		Values:    values,
		Ownership: Borrowed,
	}, nil
}

// DecodeBufferOwned copies each section into fresh, independently
// owned slices and returns an owned frame.
func DecodeBufferOwned[T numeric.Float](buf []byte) (*Frame[T], error) {
	borrowed, err := DecodeBufferZeroCopy[T](buf)
	if err != nil {
		return nil, err
	}
	return &Frame[T]{
		Index:     append([]int64(nil), borrowed.Index...),
		Columns:   append([][rawbytes.SymbolWidth]byte(nil), borrowed.Columns...),
		Values:    append([]T(nil), borrowed.Values...),
		Ownership: Owned,
	}, nil
}

// Equal reports whether two frames hold element-wise identical data,
// ignoring Ownership. Used by round-trip tests.
func Equal[T numeric.Float](a, b *Frame[T]) bool {
	if a.N() != b.N() || a.S() != b.S() {
		return false
	}
	for i := range a.Index {
		if a.Index[i] != b.Index[i] {
			return false
		}
	}
	for i := range a.Columns {
		if a.Columns[i] != b.Columns[i] {
			return false
		}
	}
	return bytes.Equal(rawbytes.AsBytes(a.Values), rawbytes.AsBytes(b.Values))
}
