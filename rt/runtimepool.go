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

// Package rt is the small, process-wide pool of fixed-size runtimes.
// Go has no userland async runtime to mirror one-for-one; here a
// "runtime" is simply a pool.WorkerPool of the given width, which is
// enough to bound concurrency the same way. No other package of this
// module uses it: query.AsyncColumnContiguous and rtqueue start their
// own goroutines.
package rt

import (
	"fmt"
	"sync"

	"github.com/tempolake/tempolake/pool"
)

var supported = [...]int{1, 2, 4}

type Pool struct {
	once map[int]*sync.Once
	pool map[int]*pool.WorkerPool
	mu   sync.Mutex
}

var global = newPool()

func newPool() *Pool {
	p := &Pool{
		once: make(map[int]*sync.Once, len(supported)),
		pool: make(map[int]*pool.WorkerPool, len(supported)),
	}
	for _, n := range supported {
		p.once[n] = &sync.Once{}
	}
	return p
}

// Get returns the shared worker pool of width n, creating it lazily
// on first use. n must be 1, 2, or 4; any other value panics — the
// library intentionally fixes a short supported list to avoid
// unbounded runtime creation.
func Get(n int) *pool.WorkerPool {
	return global.Get(n)
}

func (p *Pool) Get(n int) *pool.WorkerPool {
	once, ok := p.once[n]
	if !ok {
		panic(fmt.Sprintf("rt: unsupported runtime width %d (supported: %v)", n, supported))
	}
	once.Do(func() {
		p.mu.Lock()
		p.pool[n] = pool.New(n)
		p.mu.Unlock()
	})
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pool[n]
}
