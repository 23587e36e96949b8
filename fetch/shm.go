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

package fetch

import (
	"fmt"

	"github.com/tempolake/tempolake/numeric"
)

// CompactFetcher is backed by a single contiguous []T holding every
// day's data concatenated together, in either the row-contiguous or
// the column-contiguous day layout: it returns Values[StartIdx:EndIdx]
// as computed by the planner.
type CompactFetcher[T numeric.Float] struct {
	BaseFetcher[T]
	Values []T
}

func (f *CompactFetcher[T]) Fetch(args Args) ([]T, error) {
	if args.StartIdx < 0 || args.EndIdx > int64(len(f.Values)) || args.StartIdx > args.EndIdx {
		panic(fmt.Sprintf("fetch: CompactFetcher range [%d:%d) out of bounds for %d elements", args.StartIdx, args.EndIdx, len(f.Values)))
	}
	return f.Values[args.StartIdx:args.EndIdx], nil
}

func (f *CompactFetcher[T]) BatchFetch(args []Args) ([][]T, error) {
	panic("fetch: CompactFetcher does not support batch fetch")
}

// SlicedFetcher is backed by an ordered list of per-day []T buffers,
// each holding that day's full column-major (S_n, T_d) block. Unlike
// CompactFetcher it is addressed by (date_col_idx, time_start_idx,
// time_end_idx) local to the day's own buffer rather than a global
// compact-data offset, so it feeds the column-contiguous planner
// directly.
type SlicedFetcher[T numeric.Float] struct {
	BaseFetcher[T]
	Days       [][]T
	Multiplier int64 // 0 means 1 (no widening)
}

func (f *SlicedFetcher[T]) Fetch(args Args) ([]T, error) {
	if args.DateIdx < 0 || int(args.DateIdx) >= len(f.Days) {
		panic(fmt.Sprintf("fetch: SlicedFetcher date index %d out of bounds for %d days", args.DateIdx, len(f.Days)))
	}
	day := f.Days[args.DateIdx]
	m := f.Multiplier
	if m <= 0 {
		m = 1
	}
	colBase := args.DateColIdx * args.NumTicksPerDay
	start := (colBase + args.TimeStartIdx) * m
	end := (colBase + args.TimeEndIdx) * m
	if start < 0 || end > int64(len(day)) || start > end {
		panic(fmt.Sprintf("fetch: SlicedFetcher range [%d:%d) out of bounds for day %d with %d elements", start, end, args.DateIdx, len(day)))
	}
	return day[start:end], nil
}

func (f *SlicedFetcher[T]) BatchFetch(args []Args) ([][]T, error) {
	panic("fetch: SlicedFetcher does not support batch fetch")
}
