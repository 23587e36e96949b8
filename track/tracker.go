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

// Package track provides concurrent latency histograms for
// diagnosing which stage of the fetch pipeline dominates wall-clock
// time.
package track

import (
	"math"
	"sync"
	"time"
)

type slot struct {
	mu      sync.RWMutex
	history []float64
	active  *time.Time
}

// Trackers is a fixed-size array of latency slots, each independently
// lockable.
type Trackers struct {
	slots []slot
}

// New builds n tracker slots, all empty.
func New(n int) *Trackers {
	return &Trackers{slots: make([]slot, n)}
}

// TrackStart stamps the beginning of an interval on slot i.
func (t *Trackers) TrackStart(i int) {
	s := &t.slots[i]
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.active = &now
}

// TrackEnd stamps the end of an interval on slot i and appends its
// duration to the slot's history. Calling TrackEnd without a prior
// TrackStart is a no-op.
func (t *Trackers) TrackEnd(i int) {
	s := &t.slots[i]
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return
	}
	s.history = append(s.history, time.Since(*s.active).Seconds())
	s.active = nil
}

// Track appends a duration directly, without a start/end pair.
func (t *Trackers) Track(i int, seconds float64) {
	s := &t.slots[i]
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, seconds)
}

// Reset clears every slot's history and any in-flight interval.
func (t *Trackers) Reset() {
	for i := range t.slots {
		s := &t.slots[i]
		s.mu.Lock()
		s.history = nil
		s.active = nil
		s.mu.Unlock()
	}
}

// Stat summarizes one slot's history.
type Stat struct {
	N      int
	Mean   float64
	Stdev  float64
	Weight float64 // N * Mean, used to rank slots
}

// Statistics summarizes every slot and flags the bottleneck (largest
// N*mean) and fast path (smallest N*mean) among slots with at least
// one sample.
type Statistics struct {
	Slots      []Stat
	Bottleneck int // index into Slots, -1 if no slot has samples
	FastPath   int
}

// GetStatics computes the per-slot statistics and bottleneck/fast-path
// flags.
func (t *Trackers) GetStatics() Statistics {
	stats := make([]Stat, len(t.slots))
	bottleneck, fastPath := -1, -1
	var maxWeight, minWeight float64

	for i := range t.slots {
		s := &t.slots[i]
		s.mu.RLock()
		n := len(s.history)
		mean, stdev := meanStdev(s.history)
		s.mu.RUnlock()

		weight := float64(n) * mean
		stats[i] = Stat{N: n, Mean: mean, Stdev: stdev, Weight: weight}
		if n == 0 {
			continue
		}
		if bottleneck == -1 || weight > maxWeight {
			bottleneck, maxWeight = i, weight
		}
		if fastPath == -1 || weight < minWeight {
			fastPath, minWeight = i, weight
		}
	}
	return Statistics{Slots: stats, Bottleneck: bottleneck, FastPath: fastPath}
}

func meanStdev(xs []float64) (mean, stdev float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean = sum / float64(len(xs))

	if len(xs) < 2 {
		return mean, 0
	}
	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	stdev = math.Sqrt(sq / float64(len(xs)-1))
	return mean, stdev
}
