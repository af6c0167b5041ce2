// Copyright (c) 2017 OysterPack, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package eventrouter

import (
	"context"
	"sync"
	"time"

	"github.com/oysterpack/slee.go/pkg/activity"
	"github.com/oysterpack/slee.go/pkg/commons"
	"github.com/oysterpack/slee.go/pkg/logging"
	"github.com/rs/zerolog"
	"gopkg.in/tomb.v2"
)

// Task is a unit of work run by an Executor
type Task func()

// Executor serializes the tasks submitted to it on a single worker goroutine.
//
// The task queue is bounded. When the queue is full, the submitting goroutine runs the task itself (caller runs),
// i.e., tasks are never dropped and the submitter never blocks indefinitely. A caller run task is not serialized
// with the worker : it may run while the worker is running an earlier task, and it may complete before tasks that
// were queued ahead of it. Size the queue for the expected burst if tasks for the same activity must not overlap.
// A panic within a task is recovered and logged, and the worker carries on with the next task.
type Executor struct {
	tomb.Tomb

	id      int
	tasks   chan Task
	handler EventHandler
	stats   *ExecutorStatistics

	logger zerolog.Logger

	lock     sync.RWMutex
	shutdown bool
}

func newExecutor(id, queueSize int, collectStats bool, handler EventHandler) *Executor {
	if queueSize < 1 {
		queueSize = 1
	}
	executor := &Executor{
		id:      id,
		tasks:   make(chan Task, queueSize),
		handler: handler,
		logger:  logger.With().Int(logging.EXECUTOR, id).Logger(),
	}
	if collectStats {
		executor.stats = newExecutorStatistics()
	}
	executor.Go(executor.run)
	return executor
}

func (a *Executor) run() error {
	for {
		select {
		case task := <-a.tasks:
			a.runTask(task)
		case <-a.Dying():
			// run whatever was queued before the shutdown
			for {
				select {
				case task := <-a.tasks:
					a.runTask(task)
				default:
					LOG_EVENT_SHUTDOWN.Log(a.logger.Debug()).Msg("")
					return nil
				}
			}
		}
	}
}

func (a *Executor) runTask(task Task) {
	defer func() {
		if p := recover(); p != nil {
			if a.stats != nil {
				a.stats.taskFailed()
			}
			LOG_EVENT_TASK_FAILED.Log(a.logger.Error()).Interface("panic", p).Msg("")
		}
	}()
	task()
}

// ID returns the executor's id, which is unique within the router
func (a *Executor) ID() int {
	return a.id
}

// Execute queues the task for execution. If the queue is full, then the task is run on the calling goroutine.
// ErrExecutorShutdown is returned if the executor has been shut down.
func (a *Executor) Execute(task Task) error {
	return a.submit(a.miscTask(task))
}

func (a *Executor) submit(task Task) error {
	a.lock.RLock()
	if a.shutdown {
		a.lock.RUnlock()
		return ErrExecutorShutdown
	}
	select {
	case a.tasks <- task:
		a.lock.RUnlock()
		return nil
	default:
	}
	a.lock.RUnlock()

	if a.stats != nil {
		a.stats.callerRan()
	}
	LOG_EVENT_CALLER_RUNS.Log(a.logger.Debug()).Int(LOG_FIELD_QUEUE_SIZE, cap(a.tasks)).Msg("")
	a.runTask(task)
	return nil
}

func (a *Executor) miscTask(task Task) Task {
	if a.stats == nil {
		return task
	}
	return func() {
		start := time.Now()
		defer func() {
			a.stats.miscTaskExecuted(time.Since(start))
		}()
		task()
	}
}

// ExecuteNow submits the task and waits for it to complete.
// The task's error is returned. If the task panics, then a *commons.PanicError is returned.
// If the context is done before the task completes, then the context error is returned; the task will still run.
func (a *Executor) ExecuteNow(ctx context.Context, task func() error) error {
	done := make(chan error, 1)
	err := a.submit(a.miscTask(func() {
		done <- commons.TrapPanic(task, "ExecuteNow")
	}))
	if err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RouteEvent queues an event routing task for the event
func (a *Executor) RouteEvent(ctx *EventContext) error {
	return a.submit(a.routingTask(ctx))
}

func (a *Executor) routingTask(event *EventContext) Task {
	return func() {
		start := time.Now()
		err := commons.TrapPanic(func() error {
			return a.handler.RouteEvent(event)
		}, "RouteEvent")
		if a.stats != nil {
			a.stats.eventRouted(event.EventType, time.Since(start), err != nil)
		}
		if err != nil {
			LOG_EVENT_ROUTING_FAILED.Log(a.logger.Error()).
				Err(err).
				Str(logging.ACTIVITY, event.Handle.Key()).
				Str(LOG_FIELD_EVENT_TYPE, event.EventType.String()).
				Msg("")
			event.Callbacks.failed(event, err)
			return
		}
		event.Callbacks.succeeded(event)
	}
}

// ActivityMapped is invoked when an activity has been assigned to this executor
func (a *Executor) ActivityMapped(h activity.Handle) {
	if a.stats != nil {
		a.stats.activityMapped()
	}
	LOG_EVENT_ACTIVITY_MAPPED.Log(a.logger.Debug()).Str(logging.ACTIVITY, h.Key()).Msg("")
}

// ActivityUnmapped is invoked when an activity that was assigned to this executor has been removed
func (a *Executor) ActivityUnmapped(h activity.Handle) {
	if a.stats != nil {
		a.stats.activityUnmapped()
	}
	LOG_EVENT_ACTIVITY_UNMAPPED.Log(a.logger.Debug()).Str(logging.ACTIVITY, h.Key()).Msg("")
}

// QueueLength returns the number of tasks waiting in the queue
func (a *Executor) QueueLength() int {
	return len(a.tasks)
}

// QueueCapacity returns the queue bound
func (a *Executor) QueueCapacity() int {
	return cap(a.tasks)
}

// Statistics returns nil if statistics collection is disabled
func (a *Executor) Statistics() *ExecutorStatistics {
	return a.stats
}

// IsShutdown returns true once Shutdown() has been called
func (a *Executor) IsShutdown() bool {
	a.lock.RLock()
	defer a.lock.RUnlock()
	return a.shutdown
}

// Shutdown stops accepting new tasks. Tasks already queued are run before the worker exits.
// Use Wait() to wait for the worker to exit.
func (a *Executor) Shutdown() {
	a.lock.Lock()
	a.shutdown = true
	a.lock.Unlock()
	a.Kill(nil)
}
