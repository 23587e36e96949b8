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
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/tempolake/tempolake/fetch"
	"github.com/tempolake/tempolake/numeric"
)

// ErrIndexDiscontinuous is returned when full_index does not hold the
// expected value at the resolved time_end_idx.
var ErrIndexDiscontinuous = errors.New("query: index discontinuous")

// ErrPrecondition marks a programming error: a caller violated a
// contract the planner does not defend against at runtime (e.g.
// offsets without a positive multiplier). It is meant to propagate as a
// panic at the worker boundary, not to be silently recovered from.
type ErrPrecondition struct{ Msg string }

func (e ErrPrecondition) Error() string { return "query: precondition violation: " + e.Msg }

// Shape is the caller-supplied query description: a time range plus
// the requested symbol set, resolved against a day-partitioned
// backing store described by full_index/time_idx_to_date_idx/
// date_columns_offset/compact_columns.
type Shape struct {
	DatetimeStart, DatetimeEnd, DatetimeLen int64
	Columns                                 []SymbolID
	NumTicksPerDay                          int64
	FullIndex                               []int64
	TimeIdxToDateIdx                        []int64
	DateColumnsOffset                       []int64
	CompactColumns                          []SymbolID
}

// timeRange resolves DatetimeStart/End/Len against FullIndex,
// returning the inclusive [startIdx, endIdx] time-index range.
func (q *Shape) timeRange() (startIdx, endIdx int64, err error) {
	i, ok := slices.BinarySearch(q.FullIndex, q.DatetimeStart)
	if !ok {
		return 0, 0, fmt.Errorf("%w: datetime_start %d not present in full_index", ErrIndexDiscontinuous, q.DatetimeStart)
	}
	startIdx = int64(i)
	endIdx = startIdx + q.DatetimeLen - 1
	if endIdx < 0 || int(endIdx) >= len(q.FullIndex) || q.FullIndex[endIdx] != q.DatetimeEnd {
		return 0, 0, fmt.Errorf("%w: full_index[%d] != datetime_end %d", ErrIndexDiscontinuous, endIdx, q.DatetimeEnd)
	}
	return startIdx, endIdx, nil
}

func (q *Shape) dayColumns(dateIdx int64) []SymbolID {
	return q.CompactColumns[q.DateColumnsOffset[dateIdx]:q.DateColumnsOffset[dateIdx+1]]
}

func (q *Shape) dayWidth(dateIdx int64) int64 {
	return q.DateColumnsOffset[dateIdx+1] - q.DateColumnsOffset[dateIdx]
}

func uniqueRuns(xs []int64) (values, counts []int64) {
	for _, x := range xs {
		if len(values) > 0 && values[len(values)-1] == x {
			counts[len(counts)-1]++
		} else {
			values = append(values, x)
			counts = append(counts, 1)
		}
	}
	return values, counts
}

// RowContiguous decomposes q against a day-by-day row-major backing
// store (each day's block is (T_d, S_n), concatenated day by day) and
// drives fetcher to fill a (DatetimeLen x len(Columns)) row-major
// output.
func RowContiguous[T numeric.Float](q *Shape, fetcher fetch.Fetcher[T]) ([]T, error) {
	startIdx, endIdx, err := q.timeRange()
	if err != nil {
		return nil, err
	}

	dates := q.TimeIdxToDateIdx[startIdx : endIdx+1]
	uniqueDates, counts := uniqueRuns(dates)

	s := len(q.Columns)
	out := make([]T, q.DatetimeLen*int64(s))

	firstDate := uniqueDates[0]
	offset := q.DateColumnsOffset[firstDate]*q.NumTicksPerDay + (startIdx%q.NumTicksPerDay)*q.dayWidth(firstDate)

	cache := newColumnIndexCache()
	outRow := int64(0)

	for idx, dateIdx := range uniqueDates {
		count := counts[idx]
		dayCols := q.dayColumns(dateIdx)
		sN := int64(len(dayCols))
		positions := cache.Get(int(dateIdx), dayCols, q.Columns)

		block, err := fetcher.Fetch(fetch.Args{
			StartIdx:       offset,
			EndIdx:         offset + count*sN,
			DateIdx:        dateIdx,
			NumTicksPerDay: q.NumTicksPerDay,
			DataLen:        count * sN,
		})
		if err != nil {
			return nil, err
		}
		if int64(len(block)) != count*sN {
			return nil, fmt.Errorf("%w: fetch returned %d elements, want %d", fetch.ErrNonContiguous, len(block), count*sN)
		}

		for i := int64(0); i < count; i++ {
			rowBase := (outRow + i) * int64(s)
			blockRowBase := i * sN
			for j, pos := range positions {
				var v T
				if pos == missingPos {
					v = numeric.NaN[T]()
				} else {
					v = block[blockRowBase+int64(pos)]
				}
				out[rowBase+int64(j)] = v
			}
		}

		outRow += count
		offset += count * sN
	}

	return out, nil
}

// dayTimeWindow returns the [localStart, localEnd) tick window of
// dateIdx that falls within [startIdx, endIdx] of the query.
func dayTimeWindow(q *Shape, dateIdx, startDateIdx, endDateIdx, startIdx, endIdx int64) (localStart, localEnd int64) {
	td := q.NumTicksPerDay
	localStart, localEnd = 0, td
	if dateIdx == startDateIdx {
		localStart = startIdx % td
	}
	if dateIdx == endDateIdx {
		le := (endIdx + 1) % td
		if le == 0 {
			le = td
		}
		localEnd = le
	}
	return localStart, localEnd
}

// ColumnContiguous decomposes q against a day-by-day column-major
// backing store (each day's block is (S_n, T_d)) and returns a
// column-major flat output of shape (totalColumns, DatetimeLen,
// stride), where totalColumns is len(Columns) plus offsets.ColumnOffset
// leading columns and stride is multiplier-or-1 (plus the channel
// padding when offsets is non-nil): each column's region is
// contiguous, and within it each tick's multiplier-or-1 values are.
// With multiplier 1 and no offsets, use Transpose to obtain the
// row-major (DatetimeLen, len(Columns)) shape RowContiguous produces.
//
// multiplier and offsets implement the channel-group interleaving of
// §4.G.2: when offsets is non-nil, multiplier must be > 0 (a zero or
// negative multiplier with non-nil offsets is an ErrPrecondition,
// since it indicates a caller bug rather than a recoverable runtime
// condition).
func ColumnContiguous[T numeric.Float](q *Shape, fetcher fetch.Fetcher[T], multiplier int64, offsets *fetch.Offsets) ([]T, error) {
	totalColumns := int64(len(q.Columns))
	if offsets != nil {
		totalColumns += offsets.ColumnOffset
	}
	m := multiplier
	if m <= 0 {
		m = 1
	}
	total := m
	if offsets != nil {
		total = offsets.TotalMultiplier(m)
	}
	out := make([]T, totalColumns*q.DatetimeLen*total)
	if err := ColumnContiguousInto[T](out, totalColumns, q, fetcher, multiplier, offsets); err != nil {
		return nil, err
	}
	return out, nil
}

// ColumnContiguousInto is ColumnContiguous's disjoint-write form: it
// writes q's columns into out, a buffer logically shaped
// (totalColumns, DatetimeLen*total) column-major, positioned at
// offsets.ColumnOffset. Callers partitioning one wide query into
// column chunks dispatched to separate workers (e.g.
// RedisGroupedColumnContiguous) pre-allocate out once and call this
// once per chunk with disjoint offsets.ColumnOffset ranges — safe
// under the Go memory model since each call only ever touches its own
// slice of out (see pool.UnsafeSlice).
func ColumnContiguousInto[T numeric.Float](out []T, totalColumns int64, q *Shape, fetcher fetch.Fetcher[T], multiplier int64, offsets *fetch.Offsets) error {
	if offsets != nil && multiplier <= 0 {
		panic(ErrPrecondition{Msg: "multiplier must be > 0 when offsets is provided"})
	}
	m := multiplier
	if m <= 0 {
		m = 1
	}
	{
		total := m
		if offsets != nil {
			total = offsets.TotalMultiplier(m)
		}
		need := totalColumns * q.DatetimeLen * total
		if int64(len(out)) < need {
			panic(ErrPrecondition{Msg: fmt.Sprintf("out has %d elements, need at least %d for totalColumns=%d", len(out), need, totalColumns)})
		}
	}

	startIdx, endIdx, err := q.timeRange()
	if err != nil {
		return err
	}
	startDateIdx := q.TimeIdxToDateIdx[startIdx]
	endDateIdx := q.TimeIdxToDateIdx[endIdx]

	total := m
	columnOffset := int64(0)
	if offsets != nil {
		total = offsets.TotalMultiplier(m)
		columnOffset = offsets.ColumnOffset
	}

	cache := newColumnIndexCache()

	tickOffset := int64(0)
	for dateIdx := startDateIdx; dateIdx <= endDateIdx; dateIdx++ {
		localStart, localEnd := dayTimeWindow(q, dateIdx, startDateIdx, endDateIdx, startIdx, endIdx)
		count := localEnd - localStart
		if count <= 0 {
			continue
		}

		dayCols := q.dayColumns(dateIdx)
		base := q.DateColumnsOffset[dateIdx] * q.NumTicksPerDay
		positions := cache.Get(int(dateIdx), dayCols, q.Columns)

		for j, pos := range positions {
			// colBase addresses column j's region; within it, tick p's
			// slots occupy [p*total+padStart, p*total+padStart+m).
			colBase := (int64(j) + columnOffset) * q.DatetimeLen * total
			padStart := int64(0)
			if offsets != nil {
				padStart = offsets.ChannelPadStart
			}

			if pos == missingPos {
				for localTick := int64(0); localTick < count; localTick++ {
					tickBase := colBase + (tickOffset+localTick)*total + padStart
					for s := int64(0); s < m; s++ {
						out[tickBase+s] = numeric.NaN[T]()
					}
				}
				continue
			}

			dateStartIdx := base + int64(pos)*q.NumTicksPerDay
			args := fetch.Args{
				DateIdx:        dateIdx,
				DateColIdx:     int64(pos),
				DateStartIdx:   dateStartIdx,
				StartIdx:       dateStartIdx + localStart,
				EndIdx:         dateStartIdx + localEnd,
				TimeStartIdx:   localStart,
				TimeEndIdx:     localEnd,
				NumTicksPerDay: q.NumTicksPerDay,
				DataLen:        count * m,
			}
			vals, err := fetcher.Fetch(args)
			if err != nil {
				return err
			}
			if int64(len(vals)) != count*m {
				return fmt.Errorf("%w: fetch returned %d elements, want %d", fetch.ErrNonContiguous, len(vals), count*m)
			}
			for localTick := int64(0); localTick < count; localTick++ {
				tickBase := colBase + (tickOffset+localTick)*total + padStart
				for s := int64(0); s < m; s++ {
					out[tickBase+s] = vals[localTick*m+s]
				}
			}
		}

		tickOffset += count
	}

	return nil
}

// Transpose converts a column-major (cols, rows) flat slice into a
// row-major (rows, cols) flat slice.
func Transpose[T numeric.Float](colMajor []T, cols, rows int) []T {
	out := make([]T, len(colMajor))
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			out[r*cols+c] = colMajor[c*rows+r]
		}
	}
	return out
}

// AsyncColumnContiguous is the async-fetch-fanout counterpart of
// ColumnContiguous: planning is identical, but every real (non-NaN)
// slice becomes an awaited call issued concurrently; all are
// collected before returning. NaN fills still happen inline. The only
// suspension point is the implicit join of the fan-out below.
func AsyncColumnContiguous[T numeric.Float](ctx context.Context, q *Shape, fetcher fetch.AsyncFetcher[T], multiplier int64, offsets *fetch.Offsets) ([]T, error) {
	m := multiplier
	if m <= 0 {
		m = 1
	}

	startIdx, endIdx, err := q.timeRange()
	if err != nil {
		return nil, err
	}
	startDateIdx := q.TimeIdxToDateIdx[startIdx]
	endDateIdx := q.TimeIdxToDateIdx[endIdx]

	total := m
	columnOffset := int64(0)
	if offsets != nil {
		total = offsets.TotalMultiplier(m)
		columnOffset = offsets.ColumnOffset
	}

	out := make([]T, int64(len(q.Columns))*q.DatetimeLen*total)
	cache := newColumnIndexCache()

	type pending struct {
		tickBase int64 // colBase + tickOffset*total + padStart, stride `total` per tick
		count    int64
		args     fetch.Args
	}
	var tasks []pending

	padStart := int64(0)
	if offsets != nil {
		padStart = offsets.ChannelPadStart
	}

	tickOffset := int64(0)
	for dateIdx := startDateIdx; dateIdx <= endDateIdx; dateIdx++ {
		localStart, localEnd := dayTimeWindow(q, dateIdx, startDateIdx, endDateIdx, startIdx, endIdx)
		count := localEnd - localStart
		if count <= 0 {
			continue
		}

		dayCols := q.dayColumns(dateIdx)
		base := q.DateColumnsOffset[dateIdx] * q.NumTicksPerDay
		positions := cache.Get(int(dateIdx), dayCols, q.Columns)

		for j, pos := range positions {
			colBase := (int64(j) + columnOffset) * q.DatetimeLen * total
			tickBase := colBase + tickOffset*total + padStart
			if pos == missingPos {
				for localTick := int64(0); localTick < count; localTick++ {
					for s := int64(0); s < m; s++ {
						out[tickBase+localTick*total+s] = numeric.NaN[T]()
					}
				}
				continue
			}
			dateStartIdx := base + int64(pos)*q.NumTicksPerDay
			tasks = append(tasks, pending{
				tickBase: tickBase,
				count:    count * m,
				args: fetch.Args{
					DateIdx:        dateIdx,
					DateColIdx:     int64(pos),
					DateStartIdx:   dateStartIdx,
					StartIdx:       dateStartIdx + localStart,
					EndIdx:         dateStartIdx + localEnd,
					TimeStartIdx:   localStart,
					TimeEndIdx:     localEnd,
					NumTicksPerDay: q.NumTicksPerDay,
					DataLen:        count * m,
				},
			})
		}

		tickOffset += count
	}

	var wg sync.WaitGroup
	errs := make([]error, len(tasks))
	wg.Add(len(tasks))
	for i, task := range tasks {
		i, task := i, task
		go func() {
			defer wg.Done()
			vals, err := fetcher.Fetch(ctx, task.args)
			if err != nil {
				errs[i] = err
				return
			}
			if int64(len(vals)) != task.count {
				errs[i] = fmt.Errorf("%w: fetch returned %d elements, want %d", fetch.ErrNonContiguous, len(vals), task.count)
				return
			}
			if total == m {
				copy(out[task.tickBase:task.tickBase+task.count], vals)
				return
			}
			ticks := task.count / m
			for localTick := int64(0); localTick < ticks; localTick++ {
				for s := int64(0); s < m; s++ {
					out[task.tickBase+localTick*total+s] = vals[localTick*m+s]
				}
			}
		}()
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return out, nil
}
