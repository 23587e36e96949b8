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
	"sync"

	"github.com/dchest/siphash"
)

// ReadCache is an optional, sharded local cache of recently-fetched
// byte ranges, keyed by "key:start:end". It is not part of the core
// fetch contract; callers that expect heavy re-reads of the same
// range (e.g. repeated backtests over the same window) can wrap a
// Client's reads through it to cut redundant GETRANGE round-trips.
// Sharding spreads lock contention across shardCount independent
// maps, hashed with siphash so the distribution is stable across
// restarts given a fixed key.
type ReadCache struct {
	shards []cacheShard
	k0, k1 uint64
}

type cacheShard struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewReadCache builds a cache with shardCount independent shards.
func NewReadCache(shardCount int) *ReadCache {
	if shardCount <= 0 {
		shardCount = 1
	}
	c := &ReadCache{
		shards: make([]cacheShard, shardCount),
		k0:     0x9e3779b97f4a7c15,
		k1:     0xbf58476d1ce4e5b9,
	}
	for i := range c.shards {
		c.shards[i].data = make(map[string][]byte)
	}
	return c
}

func (c *ReadCache) shardFor(key string) *cacheShard {
	h := siphash.Hash(c.k0, c.k1, []byte(key))
	return &c.shards[h%uint64(len(c.shards))]
}

// Get returns the cached bytes for key, if present.
func (c *ReadCache) Get(key string) ([]byte, bool) {
	s := c.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// Put stores val under key, replacing any previous entry.
func (c *ReadCache) Put(key string, val []byte) {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = val
}

// Invalidate drops key from the cache.
func (c *ReadCache) Invalidate(key string) {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}
