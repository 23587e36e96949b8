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

package query

import (
	"fmt"

	"github.com/tempolake/tempolake/fetch"
	"github.com/tempolake/tempolake/numeric"
	"github.com/tempolake/tempolake/pool"
)

// BatchQuery is one element of a batched query's {datetime_start[b],
// datetime_end[b], columns[b]} parallel arrays; the structural fields
// of Shape (NumTicksPerDay, FullIndex, TimeIdxToDateIdx,
// DateColumnsOffset, CompactColumns) are shared across the whole
// batch and supplied separately as base.
type BatchQuery struct {
	DatetimeStart, DatetimeEnd, DatetimeLen int64
	Columns                                 []SymbolID
}

func (b BatchQuery) shape(base *Shape) *Shape {
	s := *base
	s.DatetimeStart, s.DatetimeEnd, s.DatetimeLen = b.DatetimeStart, b.DatetimeEnd, b.DatetimeLen
	s.Columns = b.Columns
	return &s
}

// ShmRowContiguous is the single-query convenience wrapper around
// RowContiguous over a single flat compact_data buffer.
func ShmRowContiguous[T numeric.Float](q *Shape, data []T) ([]T, error) {
	return RowContiguous[T](q, &fetch.CompactFetcher[T]{Values: data})
}

// ShmColumnContiguous is the single-query convenience wrapper around
// ColumnContiguous over a single flat, column-major compact buffer
// spanning every day (addressed globally, like ShmRowContiguous).
func ShmColumnContiguous[T numeric.Float](q *Shape, data []T, multiplier int64, offsets *fetch.Offsets) ([]T, error) {
	return ColumnContiguous[T](q, &fetch.CompactFetcher[T]{Values: data}, multiplier, offsets)
}

// ShmSlicedColumnContiguous is the single-query convenience wrapper
// around ColumnContiguous over an ordered list of per-day column-major
// buffers (each day addressed locally).
func ShmSlicedColumnContiguous[T numeric.Float](q *Shape, days [][]T, multiplier int64, offsets *fetch.Offsets) ([]T, error) {
	return ColumnContiguous[T](q, &fetch.SlicedFetcher[T]{Days: days, Multiplier: multiplier}, multiplier, offsets)
}

// ShmBatchColumnContiguous takes parallel arrays
// {datetime_start[b], datetime_end[b], columns[b]} plus a list of C
// flat compact backing buffers. Total task count is B*C; results are
// returned b-major, c-minor: result[b*len(buffers)+c].
func ShmBatchColumnContiguous[T numeric.Float](base *Shape, queries []BatchQuery, buffers [][]T, multiplier int64, offsets *fetch.Offsets, poolSize int) ([][]T, error) {
	b, c := len(queries), len(buffers)
	taskCount := b * c
	out := make([][]T, taskCount)

	wp := pool.New(pool.Sized(poolSize, taskCount))
	fns := make([]func() error, 0, taskCount)
	for qi, q := range queries {
		for ci, buf := range buffers {
			qi, ci, buf := qi, ci, buf
			fns = append(fns, func() error {
				res, err := ShmColumnContiguous[T](q.shape(base), buf, multiplier, offsets)
				if err != nil {
					return fmt.Errorf("query: batch task (b=%d,c=%d): %w", qi, ci, err)
				}
				out[qi*c+ci] = res
				return nil
			})
		}
	}
	if err := wp.Run(fns); err != nil {
		return nil, err
	}
	return out, nil
}

// ShmBatchSlicedColumnContiguous is ShmBatchColumnContiguous's sliced
// counterpart: each of the C backing buffers is itself an ordered
// per-day buffer list.
func ShmBatchSlicedColumnContiguous[T numeric.Float](base *Shape, queries []BatchQuery, buffers [][][]T, multiplier int64, offsets *fetch.Offsets, poolSize int) ([][]T, error) {
	b, c := len(queries), len(buffers)
	taskCount := b * c
	out := make([][]T, taskCount)

	wp := pool.New(pool.Sized(poolSize, taskCount))
	fns := make([]func() error, 0, taskCount)
	for qi, q := range queries {
		for ci, days := range buffers {
			qi, ci, days := qi, ci, days
			fns = append(fns, func() error {
				res, err := ShmSlicedColumnContiguous[T](q.shape(base), days, multiplier, offsets)
				if err != nil {
					return fmt.Errorf("query: batch task (b=%d,c=%d): %w", qi, ci, err)
				}
				out[qi*c+ci] = res
				return nil
			})
		}
	}
	if err := wp.Run(fns); err != nil {
		return nil, err
	}
	return out, nil
}

// ShmBatchGroupedSlicedColumnContiguous takes one backing per-day
// buffer list (shared by every query in the batch) and a numGroups
// multiplier; it returns one result slice per query, each of length
// datetime_len * |columns| * numGroups.
func ShmBatchGroupedSlicedColumnContiguous[T numeric.Float](base *Shape, queries []BatchQuery, days [][]T, numGroups int64, poolSize int) ([][]T, error) {
	out := make([][]T, len(queries))

	wp := pool.New(pool.Sized(poolSize, len(queries)))
	fns := make([]func() error, 0, len(queries))
	for qi, q := range queries {
		qi, q := qi, q
		fns = append(fns, func() error {
			res, err := ShmSlicedColumnContiguous[T](q.shape(base), days, numGroups, nil)
			if err != nil {
				return fmt.Errorf("query: batch task (b=%d): %w", qi, err)
			}
			out[qi] = res
			return nil
		})
	}
	if err := wp.Run(fns); err != nil {
		return nil, err
	}
	return out, nil
}
