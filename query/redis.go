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
	"time"

	"github.com/tempolake/tempolake/clusterfetch"
	"github.com/tempolake/tempolake/fetch"
	"github.com/tempolake/tempolake/numeric"
	"github.com/tempolake/tempolake/pool"
)

// KeyFor resolves a batch query's (date index, day-local column
// position) to the cluster key holding that column's data.
type KeyFor func(dateIdx, dateColIdx int64) string

// RedisColumnContiguous runs ColumnContiguous for every query in the
// batch against a remote Redis Cluster client, dispatched through a
// pool.WorkerPool. Each fetch reads one key per (day, day-local
// column), resolved via keyFor, at the tick range of that column; a
// key holding a whole day's block is not addressed.
func RedisColumnContiguous[T numeric.Float](base *Shape, queries []BatchQuery, client *clusterfetch.Client, keyFor KeyFor, multiplier int64, offsets *fetch.Offsets, timeout time.Duration, poolSize int) ([][]T, error) {
	out := make([][]T, len(queries))

	wp := pool.New(pool.Sized(poolSize, len(queries)))
	fns := make([]func() error, 0, len(queries))
	for qi, q := range queries {
		qi, q := qi, q
		fns = append(fns, func() error {
			fetcher := clusterfetch.Wrapper[T]{Client: client, KeyFor: keyFor, Timeout: timeout}
			res, err := ColumnContiguous[T](q.shape(base), &fetcher, multiplier, offsets)
			if err != nil {
				return fmt.Errorf("query: redis batch task (b=%d): %w", qi, err)
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

// groupColumnChunkSize is spec's task-count-raising heuristic:
// max(10, min(|columns|, |columns|/200)).
func groupColumnChunkSize(numColumns int) int {
	a := numColumns
	b := numColumns / 200
	min := a
	if b < min {
		min = b
	}
	if min < 10 {
		min = 10
	}
	return min
}

// RedisGroupedColumnContiguous is RedisColumnContiguous's
// column-chunked counterpart: each query's column set is subdivided
// into chunks of groupColumnChunkSize(len(columns)) to raise task
// count for better pool utilisation. Each chunk writes its slice of
// one shared per-query output buffer via ColumnContiguousInto,
// positioned by Offsets.ColumnOffset derived from the chunk's
// position in the column axis.
func RedisGroupedColumnContiguous[T numeric.Float](base *Shape, queries []BatchQuery, client *clusterfetch.Client, keyFor KeyFor, multiplier int64, timeout time.Duration, poolSize int) ([][]T, error) {
	m := multiplier
	if m <= 0 {
		m = 1
	}

	out := make([][]T, len(queries))
	type chunkTask struct {
		qi      int
		shape   *Shape
		offsets *fetch.Offsets
	}
	var tasks []chunkTask

	for qi, q := range queries {
		totalColumns := int64(len(q.Columns))
		out[qi] = make([]T, totalColumns*q.DatetimeLen*m)

		chunkSize := groupColumnChunkSize(len(q.Columns))
		for start := 0; start < len(q.Columns); start += chunkSize {
			end := start + chunkSize
			if end > len(q.Columns) {
				end = len(q.Columns)
			}
			chunkShape := q.shape(base)
			chunkShape.Columns = q.Columns[start:end]
			tasks = append(tasks, chunkTask{
				qi:      qi,
				shape:   chunkShape,
				offsets: &fetch.Offsets{ColumnOffset: int64(start)},
			})
		}
	}

	wp := pool.New(pool.Sized(poolSize, len(tasks)))
	fns := make([]func() error, 0, len(tasks))
	for ti, t := range tasks {
		ti, t := ti, t
		fns = append(fns, func() error {
			fetcher := clusterfetch.Wrapper[T]{Client: client, KeyFor: keyFor, Timeout: timeout}
			totalColumns := int64(len(queries[t.qi].Columns))
			if err := ColumnContiguousInto[T](out[t.qi], totalColumns, t.shape, &fetcher, m, t.offsets); err != nil {
				return fmt.Errorf("query: redis grouped task (%d): %w", ti, err)
			}
			return nil
		})
	}
	if err := wp.Run(fns); err != nil {
		return nil, err
	}
	return out, nil
}
