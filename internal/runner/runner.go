// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package runner executes submitted tasks one at a time on a single worker
// goroutine and reports their lifecycle on an event channel.
package runner

import (
	"context"
	"errors"
	"sync"
)

// ErrStopped is returned by Submit after Stop or Wait.
var ErrStopped = errors.New("runner stopped")

// EventBuffer is the capacity of the event channel.
const EventBuffer = 64

// EventKind is the lifecycle stage an Event reports.
type EventKind string

const (
	EventQueued   EventKind = "queued"
	EventStarted  EventKind = "started"
	EventProgress EventKind = "progress"
	EventFinished EventKind = "finished"
	EventFailed   EventKind = "failed"
)

// Event is a status update for one task.
type Event struct {
	TaskID  int64
	Name    string
	Kind    EventKind
	Message string
	Err     error
}

// Report sends a progress message for the running task.
type Report func(msg string)

// Task is a unit of work. Run must return promptly once ctx is cancelled.
type Task struct {
	Name string
	Run  func(ctx context.Context, report Report) error
}

type queued struct {
	id   int64
	task Task
}

// Queue runs tasks in submission order. The consumer must keep reading
// Events; a full event buffer blocks both Submit and the worker.
type Queue struct {
	events chan Event
	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	closed sync.Once

	mu      sync.Mutex
	pending []queued
	nextID  int64
	stopped bool // no more submissions
	closing bool // exit once pending is empty
}

// New starts a Queue. Cancelling ctx has the same effect as Stop except
// that the event channel is only closed by Stop or Wait.
func New(ctx context.Context) *Queue {
	ctx, cancel := context.WithCancel(ctx)
	q := &Queue{
		events: make(chan Event, EventBuffer),
		wake:   make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go q.work()
	return q
}

// Events returns the event channel. It is closed by Stop or Wait once the
// worker has exited.
func (q *Queue) Events() <-chan Event { return q.events }

// Submit enqueues t and returns its id.
func (q *Queue) Submit(t Task) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped || q.ctx.Err() != nil {
		return 0, ErrStopped
	}
	q.nextID++
	id := q.nextID
	q.events <- Event{TaskID: id, Name: t.Name, Kind: EventQueued}
	q.pending = append(q.pending, queued{id: id, task: t})
	q.notify()
	return id, nil
}

// Pending returns the number of tasks waiting to start.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Stop cancels the running task, fails pending ones with context.Canceled
// and waits for the worker to exit. It is safe to call more than once.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()

	q.cancel()
	<-q.done
	q.closed.Do(func() { close(q.events) })
}

// Wait refuses further submissions, runs every pending task and then
// shuts the queue down.
func (q *Queue) Wait() {
	q.mu.Lock()
	q.stopped = true
	q.closing = true
	q.notify()
	q.mu.Unlock()

	<-q.done
	q.cancel()
	q.closed.Do(func() { close(q.events) })
}

// notify wakes the worker. Callers hold q.mu.
func (q *Queue) notify() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) work() {
	defer close(q.done)
	for {
		item, ok := q.next()
		if !ok {
			break
		}
		q.run(item)
	}
	q.drain()
}

// next blocks until a task is pending, the queue is cancelled, or Wait has
// been called and nothing is left.
func (q *Queue) next() (queued, bool) {
	for {
		if q.ctx.Err() != nil {
			return queued{}, false
		}
		q.mu.Lock()
		if len(q.pending) > 0 {
			item := q.pending[0]
			q.pending = q.pending[1:]
			q.mu.Unlock()
			return item, true
		}
		closing := q.closing
		q.mu.Unlock()
		if closing {
			return queued{}, false
		}
		select {
		case <-q.wake:
		case <-q.ctx.Done():
		}
	}
}

func (q *Queue) run(item queued) {
	q.events <- Event{TaskID: item.id, Name: item.task.Name, Kind: EventStarted}
	report := func(msg string) {
		q.events <- Event{TaskID: item.id, Name: item.task.Name, Kind: EventProgress, Message: msg}
	}
	if err := item.task.Run(q.ctx, report); err != nil {
		q.events <- Event{TaskID: item.id, Name: item.task.Name, Kind: EventFailed, Message: err.Error(), Err: err}
		return
	}
	q.events <- Event{TaskID: item.id, Name: item.task.Name, Kind: EventFinished}
}

// drain fails every task left pending after cancellation.
func (q *Queue) drain() {
	q.mu.Lock()
	left := q.pending
	q.pending = nil
	q.stopped = true
	q.mu.Unlock()

	for _, item := range left {
		err := context.Canceled
		q.events <- Event{TaskID: item.id, Name: item.task.Name, Kind: EventFailed, Message: err.Error(), Err: err}
	}
}
