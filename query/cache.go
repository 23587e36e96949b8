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
	"sync"

	"golang.org/x/exp/slices"

	"github.com/dchest/siphash"
)

// columnIndexCache memoises, per day (keyed by the date index the
// planner passes in), the output-column -> day-column position
// mapping. Each planner call builds its own cache, so the binary
// searches are paid once per day within that call; the cache is not
// shared between the tasks of a batched planner.
type columnIndexCache struct {
	shards []cacheShard
}

type cacheShard struct {
	mu sync.Mutex
	m  map[int][]int
}

// missingPos is the sentinel position returned for a requested symbol
// absent from a day's columns.
const missingPos = -1

func newColumnIndexCache() *columnIndexCache {
	return newShardedColumnIndexCache(1)
}

// newShardedColumnIndexCache builds a cache with shardCount
// independent shards, each guarded by its own mutex, for planners
// processing enough distinct days concurrently that a single mutex
// would serialize them. Shard assignment is by siphash of the day
// index so it is stable within one query.
func newShardedColumnIndexCache(shardCount int) *columnIndexCache {
	if shardCount <= 0 {
		shardCount = 1
	}
	c := &columnIndexCache{shards: make([]cacheShard, shardCount)}
	for i := range c.shards {
		c.shards[i].m = make(map[int][]int)
	}
	return c
}

func (c *columnIndexCache) shardFor(i int) *cacheShard {
	if len(c.shards) == 1 {
		return &c.shards[0]
	}
	h := siphash.Hash(0x9e3779b97f4a7c15, 0xbf58476d1ce4e5b9, []byte{byte(i), byte(i >> 8), byte(i >> 16), byte(i >> 24)})
	return &c.shards[h%uint64(len(c.shards))]
}

// Get returns, for day position i, the output-column position within
// dayColumns of each symbol in requested, computing and memoising it
// on first use. A position of missingPos means that symbol is absent
// from this day.
func (c *columnIndexCache) Get(i int, dayColumns []SymbolID, requested []SymbolID) []int {
	shard := c.shardFor(i)

	shard.mu.Lock()
	if v, ok := shard.m[i]; ok {
		shard.mu.Unlock()
		return v
	}
	shard.mu.Unlock()

	positions := make([]int, len(requested))
	for j, sym := range requested {
		idx, found := slices.BinarySearchFunc(dayColumns, sym, symbolCompare)
		if !found {
			positions[j] = missingPos
		} else {
			positions[j] = idx
		}
	}

	shard.mu.Lock()
	shard.m[i] = positions
	shard.mu.Unlock()
	return positions
}
