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

// Package frame implements the temporal table container (Frame) and
// its zero-copy buffer/file codecs.
package frame

import (
	"fmt"

	"github.com/tempolake/tempolake/numeric"
	"github.com/tempolake/tempolake/rawbytes"
)

// Ownership describes how a Frame's backing memory is held.
type Ownership int

const (
	// Borrowed frames alias someone else's memory; the caller must
	// keep the source alive for the frame's lifetime.
	Borrowed Ownership = iota
	// Shared frames are reference-counted across goroutines.
	Shared
	// Owned frames hold an exclusive copy of their data.
	Owned
)

func (o Ownership) String() string {
	switch o {
	case Borrowed:
		return "borrowed"
	case Shared:
		return "shared"
	case Owned:
		return "owned"
	default:
		return "unknown"
	}
}

// Frame is an Index x Columns x Values temporal table: index is a
// strictly monotone sequence of N timestamps, columns is S symbol
// identifiers, and values is the dense row-major N x S matrix.
type Frame[T numeric.Float] struct {
	Index     []int64
	Columns   [][rawbytes.SymbolWidth]byte
	Values    []T
	Ownership Ownership
}

// N returns the number of rows (timestamps).
func (f *Frame[T]) N() int { return len(f.Index) }

// S returns the number of columns (symbols).
func (f *Frame[T]) S() int { return len(f.Columns) }

// New builds an owned frame from index, columns and a row-major N x S
// values slice, validating shapes match.
func New[T numeric.Float](index []int64, columns []string, values []T) (*Frame[T], error) {
	n, s := len(index), len(columns)
	if len(values) != n*s {
		return nil, fmt.Errorf("frame: values has %d elements, want %d (N=%d, S=%d)", len(values), n*s, n, s)
	}
	if !sortedStrict(index) {
		return nil, fmt.Errorf("frame: index is not strictly monotone")
	}
	cols := make([][rawbytes.SymbolWidth]byte, s)
	for i, c := range columns {
		cols[i] = rawbytes.PadSymbol(c)
	}
	return &Frame[T]{
		Index:     append([]int64(nil), index...),
		Columns:   cols,
		Values:    append([]T(nil), values...),
		Ownership: Owned,
	}, nil
}

// FromRaw builds a borrowed frame view directly over caller-owned
// index/columns/values slices without copying. The caller must keep
// the backing arrays alive for as long as the returned frame is used.
func FromRaw[T numeric.Float](index []int64, columns [][rawbytes.SymbolWidth]byte, values []T) (*Frame[T], error) {
	n, s := len(index), len(columns)
	if len(values) != n*s {
		return nil, fmt.Errorf("frame: values has %d elements, want %d (N=%d, S=%d)", len(values), n*s, n, s)
	}
	return &Frame[T]{
		Index:     index,
		Columns:   columns,
		Values:    values,
		Ownership: Borrowed,
	}, nil
}

// ColumnNames returns the trimmed UTF-8 symbol names.
func (f *Frame[T]) ColumnNames() []string {
	out := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		out[i] = rawbytes.TrimSymbol(c)
	}
	return out
}

func sortedStrict(idx []int64) bool {
	for i := 1; i < len(idx); i++ {
		if idx[i] <= idx[i-1] {
			return false
		}
	}
	return true
}
