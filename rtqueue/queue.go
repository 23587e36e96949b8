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

// Package rtqueue is an optional façade for consumers who want
// long-lived submit/pop/cancel semantics instead of a one-shot
// planner call. Each submission runs in its own goroutine; rt's
// worker pools are not used.
package rtqueue

import (
	"context"
	"sync"
)

// Worker processes one submitted item, keyed by an opaque cursor the
// caller chooses (e.g. a row index).
type Worker[T, R any] interface {
	Process(ctx context.Context, cursor int, in T) (R, error)
}

type result[R any] struct {
	val R
	err error
}

// Queue schedules work onto a shared Worker and lets callers collect
// results by cursor whenever convenient, independent of submission
// order.
type Queue[T, R any] struct {
	worker Worker[T, R]

	mu      sync.Mutex
	results map[int]result[R]
	cancel  map[int]context.CancelFunc
	wg      sync.WaitGroup
}

// New builds a queue dispatching to worker.
func New[T, R any](worker Worker[T, R]) *Queue[T, R] {
	return &Queue[T, R]{
		worker:  worker,
		results: make(map[int]result[R]),
		cancel:  make(map[int]context.CancelFunc),
	}
}

// Submit schedules worker.Process(cursor, in) to run in its own
// goroutine; the result is stored under cursor for a later Pop.
// Submitting to a cursor that already has a pending or unpopped
// result replaces it.
func (q *Queue[T, R]) Submit(cursor int, in T) {
	ctx, cancel := context.WithCancel(context.Background())

	q.mu.Lock()
	if old, ok := q.cancel[cursor]; ok {
		old()
	}
	q.cancel[cursor] = cancel
	delete(q.results, cursor)
	q.mu.Unlock()

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		val, err := q.worker.Process(ctx, cursor, in)

		q.mu.Lock()
		defer q.mu.Unlock()
		if ctx.Err() != nil {
			// aborted: produce no further effect on results.
			return
		}
		q.results[cursor] = result[R]{val: val, err: err}
	}()
}

// Pop removes and returns the result for cursor, if one is ready. ok
// is false if no result is stored yet (still pending, never
// submitted, or aborted by Reset).
func (q *Queue[T, R]) Pop(cursor int) (val R, err error, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	r, ok := q.results[cursor]
	if !ok {
		return val, nil, false
	}
	delete(q.results, cursor)
	return r.val, r.err, true
}

// Reset cancels every pending submission. If blockAfterAbort is true,
// Reset waits for every in-flight Process call to actually return
// before clearing results; otherwise it only requests cancellation
// and returns immediately, and a still-running worker's leftover
// result will be dropped whenever it lands. After Reset the queue is
// reusable.
func (q *Queue[T, R]) Reset(blockAfterAbort bool) {
	q.mu.Lock()
	for _, cancel := range q.cancel {
		cancel()
	}
	q.cancel = make(map[int]context.CancelFunc)
	q.mu.Unlock()

	if blockAfterAbort {
		q.wg.Wait()
	}

	q.mu.Lock()
	q.results = make(map[int]result[R])
	q.mu.Unlock()
}
