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

// Package clusterfetch is the remote sharded key/value cluster
// fetcher: a connection pool plus cursor over a Redis Cluster,
// offering single-range and scripted batched GETRANGE fetches.
package clusterfetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/tempolake/tempolake/config"
	"github.com/tempolake/tempolake/track"
)

// Errorf is an injectable diagnostic hook, nil by default.
var Errorf func(format string, args ...any)

func logf(format string, args ...any) {
	if Errorf != nil {
		Errorf(format, args...)
	}
}

// ErrConnect is returned when the connection pool fails to warm up.
var ErrConnect = errors.New("clusterfetch: connect failed")

// ErrTransport wraps a connection/read failure surfaced from the
// cluster at fetch time.
var ErrTransport = errors.New("clusterfetch: transport error")

// DataShortError reports that the remote returned fewer bytes than
// requested for one range.
type DataShortError struct {
	Key        string
	Start, End int64
	Got, Want  int64
}

func (e *DataShortError) Error() string {
	return fmt.Sprintf("clusterfetch: data short for key %q [%d:%d): got %d bytes, want %d", e.Key, e.Start, e.End, e.Got, e.Want)
}

// connSlot is one pool slot: a dedicated client plus its own mutex, so
// nextSlot can probe for an uncontended slot with TryLock.
type connSlot struct {
	mu     sync.Mutex
	client *redis.Client
}

// Client is the long-lived, process-wide cluster capability: a
// connection pool plus a round-robin-biased-toward-liveness cursor.
// It starts uninitialised and must be warmed up via Reset before any
// Fetch/BatchFetch call.
type Client struct {
	mu       sync.RWMutex
	cursor   int64
	cluster  *redis.ClusterClient
	pool     []*connSlot
	warmedUp bool
	tracker  *track.Trackers
}

// trackerSlot indices for Client's internal Trackers.
const (
	trackFetch = iota
	trackBatchFetch
	numTrackSlots
)

// New builds an uninitialised client. Call Reset before use.
func New() *Client {
	return &Client{tracker: track.New(numTrackSlots)}
}

// Tracker exposes the client's latency trackers for diagnostics.
func (c *Client) Tracker() *track.Trackers { return c.tracker }

// Reset (re)builds the cluster handle and connection pool. If
// reconnect is true, or no cluster handle exists yet, a new cluster
// handle is built from urls. If reconnect is true, or no pool exists
// yet, poolSize fresh connections are opened, one per slot; any
// open failure returns ErrConnect and leaves the client not
// warmed-up. warmedUp is set true only once every slot holds a live
// connection.
func (c *Client) Reset(ctx context.Context, urls []string, poolSize int, reconnect bool) error {
	cred := config.ClusterEnv()

	c.mu.Lock()
	defer c.mu.Unlock()

	if reconnect || c.cluster == nil {
		c.cluster = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        urls,
			Username:     cred.User,
			Password:     cred.Password,
			DialTimeout:  cred.ConnectionTimeout,
			ReadTimeout:  cred.ConnectionTimeout,
			WriteTimeout: cred.ConnectionTimeout,
		})
	}

	if reconnect || c.pool == nil {
		pool := make([]*connSlot, poolSize)
		for i := range pool {
			cl := redis.NewClient(&redis.Options{
				Addr:         pickAddr(urls, i),
				Username:     cred.User,
				Password:     cred.Password,
				DialTimeout:  cred.ConnectionTimeout,
				ReadTimeout:  cred.ConnectionTimeout,
				WriteTimeout: cred.ConnectionTimeout,
			})
			if err := cl.Ping(ctx).Err(); err != nil {
				c.warmedUp = false
				return fmt.Errorf("%w: slot %d: %v", ErrConnect, i, err)
			}
			pool[i] = &connSlot{client: cl}
		}
		c.pool = pool
	}

	c.warmedUp = true
	logf("clusterfetch: warmed up with %d pool slots", len(c.pool))
	return nil
}

func pickAddr(urls []string, i int) string {
	if len(urls) == 0 {
		return ""
	}
	return urls[i%len(urls)]
}

// WarmedUp reports whether Reset has succeeded at least once.
func (c *Client) WarmedUp() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.warmedUp
}

// nextSlot performs a wrap-around scan starting at cursor; the first
// slot whose mutex is uncontended wins and cursor advances to one
// past it. If every slot is contended, it falls back to a blocking
// acquire of the cursor's own slot. This biases toward liveness over
// strict round-robin.
func (c *Client) nextSlot() (*connSlot, func()) {
	c.mu.RLock()
	pool := c.pool
	c.mu.RUnlock()

	n := len(pool)
	start := int(atomic.LoadInt64(&c.cursor) % int64(n))
	if start < 0 {
		start += n
	}

	for i := 0; i < n; i++ {
		idx := (start + i) % n
		slot := pool[idx]
		if slot.mu.TryLock() {
			atomic.StoreInt64(&c.cursor, int64((idx+1)%n))
			return slot, slot.mu.Unlock
		}
	}

	slot := pool[start]
	slot.mu.Lock()
	return slot, slot.mu.Unlock
}

func (c *Client) requireWarmedUp() error {
	if !c.WarmedUp() {
		return fmt.Errorf("%w: client not warmed up, call Reset first", ErrConnect)
	}
	return nil
}
