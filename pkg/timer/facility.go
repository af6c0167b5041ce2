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
	"sort"
	"sync"
	"time"

	"github.com/oysterpack/slee.go/pkg/activity"
	"github.com/oysterpack/slee.go/pkg/activitycontext"
	"github.com/oysterpack/slee.go/pkg/eventrouter"
	"github.com/oysterpack/slee.go/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Config is the timer facility configuration
type Config struct {
	// Resolution is the lower bound of the lateness timeout. Defaults to 10ms.
	Resolution time.Duration `yaml:"resolution"`
	// DefaultTimeout is used for timers that do not specify a timeout. Defaults to 1s.
	DefaultTimeout time.Duration `yaml:"default_timeout"`
}

const (
	DEFAULT_RESOLUTION      = 10 * time.Millisecond
	DEFAULT_DEFAULT_TIMEOUT = time.Second
)

// WithDefaults returns a copy of the config with unset fields set to their defaults
func (a Config) WithDefaults() Config {
	if a.Resolution <= 0 {
		a.Resolution = DEFAULT_RESOLUTION
	}
	if a.DefaultTimeout <= 0 {
		a.DefaultTimeout = DEFAULT_DEFAULT_TIMEOUT
	}
	return a
}

type stopper interface {
	Stop() bool
}

// MetricsSubSystem is the metric subsystem for timer metrics
const MetricsSubSystem = "timer"

// Facility schedules timers on activity contexts.
// Timer ticks run on their own goroutines and are handed off to the activity's executor by firing a timer Event
// on the activity context.
type Facility struct {
	config  Config
	factory *activitycontext.Factory

	tasks sync.Map

	now       func() time.Time
	afterFunc func(d time.Duration, f func()) stopper

	lock    sync.RWMutex
	stopped bool

	set       prometheus.Counter
	cancelled prometheus.Counter
	delivered prometheus.Counter
	missed    prometheus.Counter
	active    prometheus.GaugeFunc

	logger zerolog.Logger
}

// NewFacility creates a new timer Facility
func NewFacility(config Config, factory *activitycontext.Factory) *Facility {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: eventrouter.MetricsNamespace,
			Subsystem: MetricsSubSystem,
			Name:      name,
			Help:      help,
		})
	}
	facility := &Facility{
		config:  config.WithDefaults(),
		factory: factory,
		now:     time.Now,
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
		set:       counter("set", "The number of timers set"),
		cancelled: counter("cancelled", "The number of timers cancelled"),
		delivered: counter("delivered", "The number of timer events fired"),
		missed:    counter("missed", "The number of late timer ticks that were not delivered"),
		logger:    logging.NewTypeLogger(&Facility{}),
	}
	facility.active = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: eventrouter.MetricsNamespace,
		Subsystem: MetricsSubSystem,
		Name:      "active",
		Help:      "The number of active timers",
	}, func() float64 { return float64(len(facility.Timers())) })
	return facility
}

// Collectors returns the facility's metrics
func (a *Facility) Collectors() []prometheus.Collector {
	return []prometheus.Collector{a.set, a.cancelled, a.delivered, a.missed, a.active}
}

// Resolution returns the timer resolution
func (a *Facility) Resolution() time.Duration {
	return a.config.Resolution
}

// DefaultTimeout returns the lateness timeout used when a timer does not specify one
func (a *Facility) DefaultTimeout() time.Duration {
	return a.config.DefaultTimeout
}

// timeout is clamped to [resolution, period]. One-shot timers have no upper bound.
func (a *Facility) timeout(options Options, period time.Duration) time.Duration {
	timeout := options.Timeout
	if timeout == 0 {
		timeout = a.config.DefaultTimeout
	}
	if timeout < a.config.Resolution {
		timeout = a.config.Resolution
	}
	if period > 0 && timeout > period {
		timeout = period
	}
	return timeout
}

// SetTimer schedules a timer on the activity context. The first tick is scheduled at start.
// If period is 0, then the timer is a one-shot timer. Otherwise, the timer fires numRepetitions times,
// or forever if numRepetitions is 0.
//
// errors:
//	- *InvalidTimerError
//	- ErrActivityNotFound
//	- ErrFacilityStopped
func (a *Facility) SetTimer(h activity.Handle, start time.Time, period time.Duration, numRepetitions int, address string, options Options) (ID, error) {
	switch {
	case period < 0:
		return "", &InvalidTimerError{h, "period must not be negative"}
	case numRepetitions < 0:
		return "", &InvalidTimerError{h, "numRepetitions must not be negative"}
	case options.Timeout < 0:
		return "", &InvalidTimerError{h, "timeout must not be negative"}
	case options.PreserveMissed < PreserveNone || options.PreserveMissed > PreserveLast:
		return "", &InvalidTimerError{h, "invalid PreserveMissed option : " + options.PreserveMissed.String()}
	}
	if period == 0 {
		numRepetitions = 1
	}

	a.lock.RLock()
	defer a.lock.RUnlock()
	if a.stopped {
		return "", ErrFacilityStopped
	}

	ac, err := a.factory.ActivityContext(h, false)
	if err != nil {
		return "", err
	}
	if ac == nil {
		return "", ErrActivityNotFound
	}
	id := NewID()
	if _, err := ac.AttachTimer(string(id)); err != nil {
		if err == activitycontext.ErrActivityRemoved {
			return "", ErrActivityNotFound
		}
		return "", err
	}

	t := &task{
		facility:       a,
		id:             id,
		handle:         h,
		start:          start,
		period:         period,
		numRepetitions: numRepetitions,
		options:        options,
		address:        address,
		timeout:        a.timeout(options, period),
		next:           start,
		logger:         newTaskLogger(id, h),
	}
	a.tasks.Store(id, t)
	t.mutex.Lock()
	t.schedule(a.now())
	t.mutex.Unlock()
	a.set.Inc()

	LOG_EVENT_TIMER_SET.Log(t.logger.Debug()).
		Time("start", start).
		Dur("period", period).
		Int("repetitions", numRepetitions).
		Str("preserve_missed", options.PreserveMissed.String()).
		Msg("")
	return id, nil
}

// CancelTimer returns false if the timer does not exist, e.g., it already ended
func (a *Facility) CancelTimer(id ID) bool {
	value, ok := a.tasks.Load(id)
	if !ok {
		return false
	}
	if a.remove(value.(*task)) {
		a.cancelled.Inc()
		LOG_EVENT_TIMER_CANCELLED.Log(a.logger.Debug()).Str(logging.TIMER, string(id)).Msg("")
		return true
	}
	return false
}

// remove stops the task and detaches it from its activity context, exactly once
func (a *Facility) remove(t *task) bool {
	if !t.stop() {
		return false
	}
	a.tasks.Delete(t.id)
	ac, err := a.factory.ActivityContext(t.handle, false)
	if err == nil && ac != nil {
		ac.DetachTimer(string(t.id))
	}
	LOG_EVENT_TIMER_ENDED.Log(t.logger.Debug()).Msg("")
	return true
}

// Timers returns the ids of the active timers, sorted
func (a *Facility) Timers() []ID {
	ids := []ID{}
	a.tasks.Range(func(key, value interface{}) bool {
		ids = append(ids, key.(ID))
		return true
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Stop stops all timers on this node. Timers stay attached to their activity contexts.
func (a *Facility) Stop() {
	a.lock.Lock()
	defer a.lock.Unlock()
	a.stopped = true
	a.tasks.Range(func(key, value interface{}) bool {
		value.(*task).stop()
		a.tasks.Delete(key)
		return true
	})
}
