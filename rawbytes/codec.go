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

// Package rawbytes reinterprets slices of numeric.Float elements as
// raw little-endian bytes without copying, the same way memops does
// for the sneller vector engine's columnar buffers.
package rawbytes

import (
	"unsafe"

	"github.com/tempolake/tempolake/numeric"
)

// SymbolWidth is the fixed byte width of a symbol identifier stored in
// an SHM/file column header.
const SymbolWidth = 32

// AsBytes reinterprets s as a byte slice, without copying. The result
// aliases s's backing array and is only valid for as long as s is
// reachable.
func AsBytes[T numeric.Float](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	sz := int(unsafe.Sizeof(zero))
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*sz)
}

// FromBytes reinterprets b as a []T, without copying. b must be
// sized and aligned for T; callers that cannot guarantee alignment
// (e.g. bytes read into an arbitrarily-offset buffer) should copy
// into a fresh []T instead.
func FromBytes[T numeric.Float](b []byte) []T {
	if len(b) == 0 {
		return nil
	}
	var zero T
	sz := int(unsafe.Sizeof(zero))
	n := len(b) / sz
	return unsafe.Slice((*T)(unsafe.Pointer(&b[0])), n)
}

// NBytes returns the number of bytes n elements of T occupy.
func NBytes[T numeric.Float](n int) int {
	var zero T
	return n * int(unsafe.Sizeof(zero))
}

// AlignUp rounds n up to the next multiple of align, which must be a
// power of two.
func AlignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

// AlignDown rounds n down to the previous multiple of align, which
// must be a power of two.
func AlignDown(n, align int) int {
	return n &^ (align - 1)
}

// IsAligned reports whether n is a multiple of align.
func IsAligned(n, align int) bool {
	return n&(align-1) == 0
}

// PadSymbol copies s into a new SymbolWidth-byte array, truncating if
// s is too long and zero-padding otherwise.
func PadSymbol(s string) [SymbolWidth]byte {
	var out [SymbolWidth]byte
	copy(out[:], s)
	return out
}

// TrimSymbol trims trailing zero bytes from a padded symbol and
// returns the underlying string.
func TrimSymbol(b [SymbolWidth]byte) string {
	return TrimPadded(b[:])
}

// PadTo copies s into a new width-byte slice, truncating if s is too
// long and zero-padding otherwise. Used for identifier widths other
// than SymbolWidth (e.g. clusterfetch's 256-byte cluster keys).
func PadTo(s string, width int) []byte {
	out := make([]byte, width)
	copy(out, s)
	return out
}

// TrimPadded trims trailing zero bytes from a zero-padded identifier
// and returns the underlying string.
func TrimPadded(b []byte) string {
	i := len(b)
	for i > 0 && b[i-1] == 0 {
		i--
	}
	return string(b[:i])
}
