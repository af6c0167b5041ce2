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
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// EventTypeStatistics are the routing counters for a single event type
type EventTypeStatistics struct {
	Routed      uint64
	Failed      uint64
	RoutingTime time.Duration
}

// AverageRoutingTime returns the mean routing time, or 0 if no events were routed
func (a EventTypeStatistics) AverageRoutingTime() time.Duration {
	if a.Routed == 0 {
		return 0
	}
	return a.RoutingTime / time.Duration(a.Routed)
}

func (a EventTypeStatistics) add(b EventTypeStatistics) EventTypeStatistics {
	return EventTypeStatistics{
		Routed:      a.Routed + b.Routed,
		Failed:      a.Failed + b.Failed,
		RoutingTime: a.RoutingTime + b.RoutingTime,
	}
}

// ExecutorStatistics are collected per executor.
//
// Counters are normally updated by the executor's worker goroutine. When the queue is full the submitting goroutine
// runs the task itself, thus all counters are updated atomically.
type ExecutorStatistics struct {
	activitiesMapped int64

	miscTasksExecuted uint64
	miscTasksTime     int64
	callerRuns        uint64
	taskFailures      uint64

	mutex      sync.Mutex
	eventTypes map[EventTypeID]*EventTypeStatistics
}

func newExecutorStatistics() *ExecutorStatistics {
	return &ExecutorStatistics{eventTypes: make(map[EventTypeID]*EventTypeStatistics)}
}

func (a *ExecutorStatistics) activityMapped() {
	atomic.AddInt64(&a.activitiesMapped, 1)
}

func (a *ExecutorStatistics) activityUnmapped() {
	atomic.AddInt64(&a.activitiesMapped, -1)
}

func (a *ExecutorStatistics) eventRouted(eventType EventTypeID, d time.Duration, failed bool) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	stats := a.eventTypes[eventType]
	if stats == nil {
		stats = &EventTypeStatistics{}
		a.eventTypes[eventType] = stats
	}
	stats.Routed++
	stats.RoutingTime += d
	if failed {
		stats.Failed++
	}
}

func (a *ExecutorStatistics) miscTaskExecuted(d time.Duration) {
	atomic.AddUint64(&a.miscTasksExecuted, 1)
	atomic.AddInt64(&a.miscTasksTime, int64(d))
}

func (a *ExecutorStatistics) callerRan() {
	atomic.AddUint64(&a.callerRuns, 1)
}

func (a *ExecutorStatistics) taskFailed() {
	atomic.AddUint64(&a.taskFailures, 1)
}

// ActivitiesMapped returns the number of activities currently mapped to the executor
func (a *ExecutorStatistics) ActivitiesMapped() int64 {
	return atomic.LoadInt64(&a.activitiesMapped)
}

// MiscTasksExecuted returns the number of non event routing tasks executed
func (a *ExecutorStatistics) MiscTasksExecuted() uint64 {
	return atomic.LoadUint64(&a.miscTasksExecuted)
}

// MiscTasksExecutingTime returns the total time spent executing non event routing tasks
func (a *ExecutorStatistics) MiscTasksExecutingTime() time.Duration {
	return time.Duration(atomic.LoadInt64(&a.miscTasksTime))
}

// CallerRuns returns the number of tasks that ran on the submitting goroutine because the queue was full
func (a *ExecutorStatistics) CallerRuns() uint64 {
	return atomic.LoadUint64(&a.callerRuns)
}

// TaskFailures returns the number of tasks that panicked
func (a *ExecutorStatistics) TaskFailures() uint64 {
	return atomic.LoadUint64(&a.taskFailures)
}

// EventType returns the routing stats for the event type
func (a *ExecutorStatistics) EventType(eventType EventTypeID) EventTypeStatistics {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if stats := a.eventTypes[eventType]; stats != nil {
		return *stats
	}
	return EventTypeStatistics{}
}

// EventTypes returns a snapshot of the per event type stats
func (a *ExecutorStatistics) EventTypes() map[EventTypeID]EventTypeStatistics {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	snapshot := make(map[EventTypeID]EventTypeStatistics, len(a.eventTypes))
	for k, v := range a.eventTypes {
		snapshot[k] = *v
	}
	return snapshot
}

// EventsRouted returns the number of events routed across all event types
func (a *ExecutorStatistics) EventsRouted() uint64 {
	var total uint64
	for _, stats := range a.EventTypes() {
		total += stats.Routed
	}
	return total
}

// Statistics aggregates the statistics of all the router's executors.
// All methods return zero values if statistics collection is disabled.
type Statistics struct {
	router *Router
}

func (a *Statistics) each(f func(*ExecutorStatistics)) {
	for _, executor := range a.router.Executors() {
		if stats := executor.Statistics(); stats != nil {
			f(stats)
		}
	}
}

// ActivitiesMapped returns the number of activities mapped across all executors
func (a *Statistics) ActivitiesMapped() (count int64) {
	a.each(func(stats *ExecutorStatistics) { count += stats.ActivitiesMapped() })
	return
}

// EventsRouted returns the number of events routed across all executors and event types
func (a *Statistics) EventsRouted() (count uint64) {
	a.each(func(stats *ExecutorStatistics) { count += stats.EventsRouted() })
	return
}

// EventType returns the aggregated routing stats for the event type
func (a *Statistics) EventType(eventType EventTypeID) (total EventTypeStatistics) {
	a.each(func(stats *ExecutorStatistics) { total = total.add(stats.EventType(eventType)) })
	return
}

// EventTypes returns the aggregated routing stats per event type
func (a *Statistics) EventTypes() map[EventTypeID]EventTypeStatistics {
	totals := make(map[EventTypeID]EventTypeStatistics)
	a.each(func(stats *ExecutorStatistics) {
		for eventType, s := range stats.EventTypes() {
			totals[eventType] = totals[eventType].add(s)
		}
	})
	return totals
}

// EventTypeIDs returns the routed event types sorted by name
func (a *Statistics) EventTypeIDs() []EventTypeID {
	eventTypes := a.EventTypes()
	ids := make([]EventTypeID, 0, len(eventTypes))
	for id := range eventTypes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// MiscTasksExecuted returns the number of non event routing tasks executed across all executors
func (a *Statistics) MiscTasksExecuted() (count uint64) {
	a.each(func(stats *ExecutorStatistics) { count += stats.MiscTasksExecuted() })
	return
}

// CallerRuns returns the number of tasks that ran on the submitting goroutine
func (a *Statistics) CallerRuns() (count uint64) {
	a.each(func(stats *ExecutorStatistics) { count += stats.CallerRuns() })
	return
}

// TaskFailures returns the number of tasks that panicked across all executors
func (a *Statistics) TaskFailures() (count uint64) {
	a.each(func(stats *ExecutorStatistics) { count += stats.TaskFailures() })
	return
}

// QueueLengths returns each executor's queue length, indexed by the executor's position in the pool
func (a *Statistics) QueueLengths() []int {
	executors := a.router.Executors()
	lengths := make([]int, len(executors))
	for i, executor := range executors {
		lengths[i] = executor.QueueLength()
	}
	return lengths
}
