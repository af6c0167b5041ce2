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

package timer

import (
	"sync"
	"time"

	"github.com/oysterpack/slee.go/pkg/activity"
	"github.com/oysterpack/slee.go/pkg/activitycontext"
	"github.com/oysterpack/slee.go/pkg/eventrouter"
	"github.com/oysterpack/slee.go/pkg/logging"
	"github.com/rs/zerolog"
)

// task is a scheduled timer. Ticks are scheduled at a fixed rate, i.e., the n-th tick is scheduled for
// start + n * period regardless of when the previous tick actually fired.
type task struct {
	facility *Facility

	id             ID
	handle         activity.Handle
	start          time.Time
	period         time.Duration
	numRepetitions int
	options        Options
	address        string
	timeout        time.Duration

	mutex      sync.Mutex
	executions int
	missed     int
	next       time.Time
	lastTick   time.Time
	timer      stopper
	removed    bool

	logger zerolog.Logger
}

// remaining returns Infinite for periodic timers that repeat forever
func (a *task) remaining() int {
	if a.numRepetitions == 0 {
		return Infinite
	}
	return a.numRepetitions - a.executions
}

func (a *task) schedule(now time.Time) {
	a.timer = a.facility.afterFunc(a.next.Sub(now), a.run)
}

func (a *task) run() {
	defer func() {
		if p := recover(); p != nil {
			LOG_EVENT_TICK_FAILED.Log(a.logger.Error()).Interface("panic", p).Msg("")
		}
	}()
	a.tick(a.facility.now())
}

// deliver decides whether a tick that fired late, relative to its scheduled time, is delivered
func deliver(mode PreserveMissed, late, timeout time.Duration, remaining int) bool {
	lateTick := late > timeout
	switch mode {
	case PreserveAll:
		return true
	case PreserveLast:
		return !lateTick || remaining <= 1
	default:
		return !lateTick
	}
}

func (a *task) tick(now time.Time) {
	a.mutex.Lock()
	if a.removed || a.remaining() <= 0 {
		a.mutex.Unlock()
		return
	}
	scheduled := a.next
	late := now.Sub(scheduled)
	post := deliver(a.options.PreserveMissed, late, a.timeout, a.remaining())
	if !post {
		a.missed++
	}
	a.executions++
	remaining := a.remaining()
	ended := remaining == 0
	if !ended {
		a.next = scheduled.Add(a.period)
		a.schedule(now)
	}
	var event *Event
	if post {
		event = &Event{
			TimerID:              a.id,
			ScheduledTime:        scheduled,
			ExpiryTime:           now,
			Period:               a.period,
			NumRepetitions:       a.numRepetitions,
			RemainingRepetitions: remaining,
			MissedRepetitions:    a.missed,
		}
		a.missed = 0
		a.lastTick = now
	}
	a.mutex.Unlock()

	if !post {
		a.facility.missed.Inc()
		LOG_EVENT_TICK_MISSED.Log(a.logger.Debug()).Dur("late", late).Int("remaining", remaining).Msg("")
		if ended {
			a.facility.remove(a)
		}
		return
	}
	a.fire(event, ended)
}

func (a *task) fire(event *Event, ended bool) {
	ac, err := a.facility.factory.ActivityContext(a.handle, false)
	if err != nil {
		LOG_EVENT_FIRE_FAILED.Log(a.logger.Error()).Err(err).Msg("")
		return
	}
	if ac == nil {
		LOG_EVENT_AC_GONE.Log(a.logger.Warn()).Msg("cancelling timer")
		a.facility.remove(a)
		return
	}

	// the last event of a timer removes the timer once the event has been routed
	var callbacks *eventrouter.ProcessingCallbacks
	if ended {
		callbacks = &eventrouter.ProcessingCallbacks{
			Succeeded: func(ctx *eventrouter.EventContext) {
				a.facility.remove(a)
			},
			Failed: func(ctx *eventrouter.EventContext, err error) {
				a.facility.remove(a)
			},
		}
	}
	switch err := ac.FireEvent(TimerEventType, event, a.address, callbacks); err {
	case nil:
		a.facility.delivered.Inc()
	case activitycontext.ErrActivityRemoved, activitycontext.ErrActivityEnding:
		LOG_EVENT_AC_GONE.Log(a.logger.Warn()).Err(err).Msg("cancelling timer")
		a.facility.remove(a)
	default:
		LOG_EVENT_FIRE_FAILED.Log(a.logger.Error()).Err(err).Msg("")
		if ended {
			a.facility.remove(a)
		}
	}
}

// stop returns false if the task was already stopped
func (a *task) stop() bool {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if a.removed {
		return false
	}
	a.removed = true
	if a.timer != nil {
		a.timer.Stop()
	}
	return true
}

func newTaskLogger(id ID, h activity.Handle) zerolog.Logger {
	return logger.With().Str(logging.TIMER, string(id)).Str(logging.ACTIVITY, h.Key()).Logger()
}
