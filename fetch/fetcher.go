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

// Package fetch defines the Fetcher contracts and their per-slice task
// descriptor, independent of where the bytes actually live.
package fetch

import (
	"context"
	"errors"
	"fmt"

	"github.com/tempolake/tempolake/numeric"
)

// ErrNonContiguous is returned when a fetcher cannot present its
// result as a single contiguous view.
var ErrNonContiguous = errors.New("fetch: non-contiguous view")

// Args describes one contiguous slice request against the compact
// data layout.
type Args struct {
	// ChannelIndex is set only by multi-channel batch planners.
	ChannelIndex *int64

	StartIdx        int64
	EndIdx          int64
	DateIdx         int64
	DateColIdx      int64
	DateStartIdx    int64
	TimeStartIdx    int64
	TimeEndIdx      int64
	NumTicksPerDay  int64
	DataLen         int64
}

func (a Args) String() string {
	return fmt.Sprintf("Args{date=%d col=%d start=%d end=%d len=%d}", a.DateIdx, a.DateColIdx, a.TimeStartIdx, a.TimeEndIdx, a.DataLen)
}

// Offsets positions a task's output within an interleaved,
// multi-channel-group row.
type Offsets struct {
	ColumnOffset    int64
	ChannelPadStart int64
	ChannelPadEnd   int64
}

// TotalMultiplier returns the stride implied by a multiplier and its
// channel padding.
func (o Offsets) TotalMultiplier(multiplier int64) int64 {
	return multiplier + o.ChannelPadStart + o.ChannelPadEnd
}

// Fetcher is the synchronous fetch contract. Concrete fetchers
// implement Fetch when CanBatchFetch is false, or BatchFetch when it
// is true.
type Fetcher[T numeric.Float] interface {
	CanBatchFetch() bool
	Fetch(args Args) ([]T, error)
	BatchFetch(args []Args) ([][]T, error)
}

// AsyncFetcher fetches a single slice asynchronously; planners fan
// fetches out and await them concurrently.
type AsyncFetcher[T numeric.Float] interface {
	Fetch(ctx context.Context, args Args) ([]T, error)
}

// BaseFetcher implements the "not implemented" defaults of the
// Fetcher interface; concrete fetchers embed it and only override
// the method their CanBatchFetch answer requires.
type BaseFetcher[T numeric.Float] struct{}

func (BaseFetcher[T]) CanBatchFetch() bool { return false }

func (BaseFetcher[T]) BatchFetch(args []Args) ([][]T, error) {
	panic("fetch: BatchFetch must be implemented when CanBatchFetch returns true")
}
