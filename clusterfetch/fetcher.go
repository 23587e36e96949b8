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

package clusterfetch

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tempolake/tempolake/fetch"
	"github.com/tempolake/tempolake/numeric"
	"github.com/tempolake/tempolake/rawbytes"
)

// KeyWidth is the fixed byte width of a cluster key identifier.
const KeyWidth = 256

var batchScript = redis.NewScript(`
local key = KEYS[1]
local results = {}
for i, range in ipairs(ARGV) do
  local start, stop = range:match("(%d+)-(%d+)")
  results[i] = redis.call("GETRANGE", key, start, stop)
end
return results
`)

// Fetch issues GETRANGE key start (end-1) (callers pass half-open
// [start,end)) and reinterprets the returned bytes as []T. It fails
// with a *DataShortError if the returned byte length does not match
// end-start.
func Fetch[T numeric.Float](ctx context.Context, c *Client, key string, start, end int64) ([]T, error) {
	if err := c.requireWarmedUp(); err != nil {
		return nil, err
	}
	c.tracker.TrackStart(trackFetch)
	defer c.tracker.TrackEnd(trackFetch)

	slot, release := c.nextSlot()
	defer release()

	raw, err := slot.client.GetRange(ctx, key, int(start), int(end-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: key %q: %v", ErrTransport, key, err)
	}
	want := end - start
	if int64(len(raw)) != want {
		return nil, &DataShortError{Key: key, Start: start, End: end, Got: int64(len(raw)), Want: want}
	}
	return rawbytes.FromBytes[T]([]byte(raw)), nil
}

// BatchFetch issues a single server-side Lua script fetching multiple
// ranges of the same key. len(starts) must equal len(ends).
func BatchFetch[T numeric.Float](ctx context.Context, c *Client, key string, starts, ends []int64) ([][]T, error) {
	if len(starts) != len(ends) {
		panic("clusterfetch: BatchFetch starts/ends length mismatch")
	}
	if err := c.requireWarmedUp(); err != nil {
		return nil, err
	}
	c.tracker.TrackStart(trackBatchFetch)
	defer c.tracker.TrackEnd(trackBatchFetch)

	argv := make([]interface{}, len(starts))
	for i := range starts {
		argv[i] = fmt.Sprintf("%d-%d", starts[i], ends[i]-1)
	}

	slot, release := c.nextSlot()
	defer release()

	res, err := batchScript.Run(ctx, slot.client, []string{key}, argv...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: key %q: %v", ErrTransport, key, err)
	}
	items, ok := res.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: key %q: unexpected script result type %T", ErrTransport, key, res)
	}
	if len(items) != len(starts) {
		return nil, &DataShortError{Key: key, Got: int64(len(items)), Want: int64(len(starts))}
	}

	out := make([][]T, len(items))
	for i, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, fmt.Errorf("%w: key %q: range %d returned non-string", ErrTransport, key, i)
		}
		want := ends[i] - starts[i]
		if int64(len(s)) != want {
			return nil, &DataShortError{Key: key, Start: starts[i], End: ends[i], Got: int64(len(s)), Want: want}
		}
		out[i] = rawbytes.FromBytes[T]([]byte(s))
	}
	return out, nil
}

// GroupedFetcher wraps a single-array-per-day key space with a
// multiplier: each key holds one day's column-major T_d*S_d*m block,
// and Fetch slices out [time_start*sizeof(T)*m, time_end*sizeof(T)*m)
// bytes from it.
type GroupedFetcher[T numeric.Float] struct {
	fetch.BaseFetcher[T]
	Client     *Client
	Keys       [][KeyWidth]byte // per-day key table, indexed by args.DateIdx
	Multiplier int64            // 0 means 1
	Timeout    time.Duration
}

func (g *GroupedFetcher[T]) keyFor(dateIdx int64) string {
	return rawbytes.TrimPadded(g.Keys[dateIdx][:])
}

func (g *GroupedFetcher[T]) Fetch(args fetch.Args) ([]T, error) {
	if args.DateIdx < 0 || int(args.DateIdx) >= len(g.Keys) {
		panic(fmt.Sprintf("clusterfetch: GroupedFetcher date index %d out of bounds", args.DateIdx))
	}
	m := g.Multiplier
	if m <= 0 {
		m = 1
	}
	elemSize := int64(rawbytes.NBytes[T](1))
	start := args.TimeStartIdx * elemSize * m
	end := args.TimeEndIdx * elemSize * m

	ctx := context.Background()
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}
	return Fetch[T](ctx, g.Client, g.keyFor(args.DateIdx), start, end)
}

// Wrapper is the batch-capable fetcher adapter: it enforces that
// every Args in one batch shares the same ChannelIndex, DateIdx and
// DateColIdx (same key), since mixing keys inside one scripted batch
// is a programming error, then issues one BatchFetch for the shared
// key.
type Wrapper[T numeric.Float] struct {
	fetch.BaseFetcher[T]
	Client  *Client
	KeyFor  func(dateIdx, dateColIdx int64) string
	Timeout time.Duration
}

func (w *Wrapper[T]) CanBatchFetch() bool { return true }

func (w *Wrapper[T]) Fetch(args fetch.Args) ([]T, error) {
	out, err := w.BatchFetch([]fetch.Args{args})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (w *Wrapper[T]) BatchFetch(args []fetch.Args) ([][]T, error) {
	if len(args) == 0 {
		return nil, nil
	}
	dateIdx := args[0].DateIdx
	dateColIdx := args[0].DateColIdx
	var channelIndex *int64
	if args[0].ChannelIndex != nil {
		v := *args[0].ChannelIndex
		channelIndex = &v
	}
	for _, a := range args[1:] {
		if a.DateIdx != dateIdx || a.DateColIdx != dateColIdx || !sameChannel(a.ChannelIndex, channelIndex) {
			panic("clusterfetch: Wrapper.BatchFetch called with mismatched channel_index/date_idx/date_col_idx in one batch")
		}
	}

	key := w.KeyFor(dateIdx, dateColIdx)
	elemSize := int64(rawbytes.NBytes[T](1))
	starts := make([]int64, len(args))
	ends := make([]int64, len(args))
	for i, a := range args {
		starts[i] = a.TimeStartIdx * elemSize
		ends[i] = a.TimeEndIdx * elemSize
	}

	ctx := context.Background()
	if w.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.Timeout)
		defer cancel()
	}
	return BatchFetch[T](ctx, w.Client, key, starts, ends)
}

func sameChannel(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
