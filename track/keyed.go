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

package track

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Keyed is the named-event counterpart of Trackers: slots are
// addressed by caller-chosen string keys instead of a fixed array
// index, created lazily on first use. Each key holds at most one
// active interval: a second TrackStart on the same key before
// TrackEnd replaces the first. TrackStart returns a fresh correlation
// ID for the caller's own logging; the ID is not stored.
type Keyed struct {
	mu    sync.RWMutex
	slots map[string]*slot
}

// NewKeyed builds an empty keyed tracker.
func NewKeyed() *Keyed {
	return &Keyed{slots: make(map[string]*slot)}
}

func (k *Keyed) slotFor(key string) *slot {
	k.mu.RLock()
	s, ok := k.slots[key]
	k.mu.RUnlock()
	if ok {
		return s
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if s, ok := k.slots[key]; ok {
		return s
	}
	s = &slot{}
	k.slots[key] = s
	return s
}

// TrackStart stamps the start of an interval for key and returns a
// correlation ID for this interval, for callers that need to log it
// alongside TrackEnd.
func (k *Keyed) TrackStart(key string) string {
	id := uuid.NewString()
	s := k.slotFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.active = &now
	return id
}

// TrackEnd stamps the end of the current interval for key.
func (k *Keyed) TrackEnd(key string) {
	s := k.slotFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return
	}
	s.history = append(s.history, time.Since(*s.active).Seconds())
	s.active = nil
}

// Track appends a duration directly under key.
func (k *Keyed) Track(key string, seconds float64) {
	s := k.slotFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, seconds)
}

// Reset clears every key's history.
func (k *Keyed) Reset() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.slots = make(map[string]*slot)
}

// GetStatics summarizes every known key the same way Trackers.GetStatics
// summarizes array slots, keyed by name instead of index.
func (k *Keyed) GetStatics() map[string]Stat {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make(map[string]Stat, len(k.slots))
	for key, s := range k.slots {
		s.mu.RLock()
		n := len(s.history)
		mean, stdev := meanStdev(s.history)
		s.mu.RUnlock()
		out[key] = Stat{N: n, Mean: mean, Stdev: stdev, Weight: float64(n) * mean}
	}
	return out
}
