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

package pool

import "github.com/tempolake/tempolake/numeric"

// UnsafeSlice projects a single shared output buffer for concurrent,
// pairwise-disjoint writes from multiple goroutines. Unlike the
// original UnsafeCell-based wrapper, a plain Go slice already permits
// this: the race detector only objects to overlapping accesses, and
// the planner guarantees disjointness, never this type. UnsafeSlice
// exists to carry that contract in the type system rather than to add
// synchronization Go doesn't need.
type UnsafeSlice[T numeric.Float] struct {
	data []T
}

// NewUnsafeSlice wraps dst. The caller keeps exclusive ownership of
// dst for the lifetime of the returned UnsafeSlice.
func NewUnsafeSlice[T numeric.Float](dst []T) UnsafeSlice[T] {
	return UnsafeSlice[T]{data: dst}
}

// CopyFrom writes src into data[offset:offset+len(src)]. The caller
// must guarantee this range does not overlap any other goroutine's
// concurrent write into the same UnsafeSlice.
func (u UnsafeSlice[T]) CopyFrom(offset int, src []T) {
	copy(u.data[offset:offset+len(src)], src)
}

// Sub returns a new UnsafeSlice over data[start:end], for handing a
// disjoint sub-region to a single task.
func (u UnsafeSlice[T]) Sub(start, end int) UnsafeSlice[T] {
	return UnsafeSlice[T]{data: u.data[start:end]}
}

// Len returns the length of the wrapped region.
func (u UnsafeSlice[T]) Len() int { return len(u.data) }
