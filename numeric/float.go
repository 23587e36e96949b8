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

// Package numeric holds the element-type constraint shared by the
// frame, fetch, clusterfetch and query packages.
package numeric

import "math"

// Float is the set of element types a Frame can hold. It mirrors the
// AFloat trait of the original implementation: float32 and float64
// only, never integers or complex types.
type Float interface {
	~float32 | ~float64
}

// NaN returns the not-a-number value for T.
func NaN[T Float]() T {
	return T(math.NaN())
}

// Zero returns the zero value for T.
func Zero[T Float]() T {
	var z T
	return z
}

// IsNaN reports whether v is NaN.
func IsNaN[T Float](v T) bool {
	return float64(v) != float64(v)
}
