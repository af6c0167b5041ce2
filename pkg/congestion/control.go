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

package congestion

import (
	"math"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oysterpack/slee.go/pkg/eventrouter"
	"github.com/oysterpack/slee.go/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"gopkg.in/tomb.v2"
)

// Config is the congestion control configuration.
// Each alarm uses a pair of thresholds : it is raised when the "on" threshold is crossed and cleared only once the
// "off" threshold is crossed back.
type Config struct {
	// PeriodBetweenChecks 0 disables the periodic checks
	PeriodBetweenChecks time.Duration `yaml:"period_between_checks"`

	// MaxQueueLengthToTurnOn 0 disables the queue length alarm
	MaxQueueLengthToTurnOn  int `yaml:"max_queue_length_to_turn_on"`
	MaxQueueLengthToTurnOff int `yaml:"max_queue_length_to_turn_off"`

	// MinFreeMemoryToTurnOnMB 0 disables the memory alarm
	MinFreeMemoryToTurnOnMB  int `yaml:"min_free_memory_to_turn_on_mb"`
	MinFreeMemoryToTurnOffMB int `yaml:"min_free_memory_to_turn_off_mb"`

	// RefuseStartActivity refuses new activities while an alarm is raised
	RefuseStartActivity bool `yaml:"refuse_start_activity"`
	// RefuseFireEvent refuses events while an alarm is raised
	RefuseFireEvent bool `yaml:"refuse_fire_event"`

	// MaxActivityStartRate limits activity starts per second. 0 means no limit.
	MaxActivityStartRate float64 `yaml:"max_activity_start_rate"`
	// ActivityStartBurst defaults to 1 when a rate is configured
	ActivityStartBurst int `yaml:"activity_start_burst"`
}

// QueueLength reports the total number of queued event routing tasks. *eventrouter.Router implements it.
type QueueLength interface {
	QueueLength() int
}

// FreeMemory reports the free memory in MB
type FreeMemory func() int

// RuntimeFreeMemory is the distance, in MB, between the heap in use and the runtime's soft memory limit.
// If no memory limit is set, then math.MaxInt32 is returned.
func RuntimeFreeMemory() int {
	if !MemoryLimitSet() {
		return math.MaxInt32
	}
	limit := debug.SetMemoryLimit(-1)
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	free := limit - int64(stats.HeapInuse)
	if free < 0 {
		return 0
	}
	return int(free >> 20)
}

// MemoryLimitSet returns true if the runtime soft memory limit is set, via GOMEMLIMIT or debug.SetMemoryLimit
func MemoryLimitSet() bool {
	return debug.SetMemoryLimit(-1) != math.MaxInt64
}

const MetricsSubSystem = "congestion"

const (
	ALARM_QUEUE  = "queue"
	ALARM_MEMORY = "memory"
)

// Control raises congestion alarms based on the event router backlog and free memory, and refuses activity starts
// and events while an alarm is raised.
type Control struct {
	tomb.Tomb

	config        Config
	queueLength   QueueLength
	freeMemory    FreeMemory
	runtimeMemory bool
	limiter       *rate.Limiter

	queueAlarm  int32
	memoryAlarm int32

	mutex   sync.Mutex
	started bool

	alarms  *prometheus.GaugeVec
	refused *prometheus.CounterVec

	logger zerolog.Logger
}

// New creates a new congestion Control. If freeMemory is nil, then RuntimeFreeMemory is used.
func New(config Config, queueLength QueueLength, freeMemory FreeMemory) *Control {
	runtimeMemory := freeMemory == nil
	if runtimeMemory {
		freeMemory = RuntimeFreeMemory
	}
	control := &Control{
		config:        config,
		queueLength:   queueLength,
		freeMemory:    freeMemory,
		runtimeMemory: runtimeMemory,
		alarms: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: eventrouter.MetricsNamespace,
			Subsystem: MetricsSubSystem,
			Name:      "alarm",
			Help:      "1 if the congestion alarm is raised",
		}, []string{"alarm"}),
		refused: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: eventrouter.MetricsNamespace,
			Subsystem: MetricsSubSystem,
			Name:      "refused",
			Help:      "The number of operations refused by congestion control",
		}, []string{"op"}),
		logger: logging.NewTypeLogger(&Control{}),
	}
	if config.MaxActivityStartRate > 0 {
		burst := config.ActivityStartBurst
		if burst < 1 {
			burst = 1
		}
		control.limiter = rate.NewLimiter(rate.Limit(config.MaxActivityStartRate), burst)
	}
	control.alarms.WithLabelValues(ALARM_QUEUE).Set(0)
	control.alarms.WithLabelValues(ALARM_MEMORY).Set(0)
	return control
}

// Collectors returns the congestion control metrics
func (a *Control) Collectors() []prometheus.Collector {
	return []prometheus.Collector{a.alarms, a.refused}
}

// Start runs the checks periodically, until Stop() is called
func (a *Control) Start() {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if a.config.PeriodBetweenChecks <= 0 || a.started {
		return
	}
	a.started = true
	if a.config.MinFreeMemoryToTurnOnMB > 0 && !a.MemoryAlarmEnabled() {
		LOG_EVENT_MEMORY_ALARM_DISABLED.Log(a.logger.Warn()).
			Int("min_free_memory_to_turn_on_mb", a.config.MinFreeMemoryToTurnOnMB).
			Msg("no runtime memory limit is set : set GOMEMLIMIT to enable the memory alarm")
	}
	a.Go(func() error {
		ticker := time.NewTicker(a.config.PeriodBetweenChecks)
		defer ticker.Stop()
		for {
			select {
			case <-a.Dying():
				return nil
			case <-ticker.C:
				a.Check()
			}
		}
	})
}

// MemoryAlarmEnabled returns false if the memory alarm is not configured, or if free memory is measured against the
// runtime soft memory limit and no limit is set.
func (a *Control) MemoryAlarmEnabled() bool {
	if a.config.MinFreeMemoryToTurnOnMB <= 0 {
		return false
	}
	return !a.runtimeMemory || MemoryLimitSet()
}

// Stop stops the periodic checks and waits for the check goroutine to exit
func (a *Control) Stop() {
	a.mutex.Lock()
	started := a.started
	a.mutex.Unlock()
	a.Kill(nil)
	if started {
		a.Wait()
	}
}

// Check evaluates the alarms once
func (a *Control) Check() {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.config.MaxQueueLengthToTurnOn > 0 && a.queueLength != nil {
		queueLength := a.queueLength.QueueLength()
		switch {
		case !a.alarmed(&a.queueAlarm) && queueLength >= a.config.MaxQueueLengthToTurnOn:
			a.raise(&a.queueAlarm, ALARM_QUEUE, queueLength)
		case a.alarmed(&a.queueAlarm) && queueLength <= a.config.MaxQueueLengthToTurnOff:
			a.clear(&a.queueAlarm, ALARM_QUEUE, queueLength)
		}
	}

	if a.config.MinFreeMemoryToTurnOnMB > 0 {
		free := a.freeMemory()
		switch {
		case !a.alarmed(&a.memoryAlarm) && free < a.config.MinFreeMemoryToTurnOnMB:
			a.raise(&a.memoryAlarm, ALARM_MEMORY, free)
		case a.alarmed(&a.memoryAlarm) && free > a.config.MinFreeMemoryToTurnOffMB:
			a.clear(&a.memoryAlarm, ALARM_MEMORY, free)
		}
	}
}

func (a *Control) alarmed(alarm *int32) bool {
	return atomic.LoadInt32(alarm) == 1
}

func (a *Control) raise(alarm *int32, name string, value int) {
	atomic.StoreInt32(alarm, 1)
	a.alarms.WithLabelValues(name).Set(1)
	LOG_EVENT_ALARM_RAISED.Log(a.logger.Warn()).Str(logging.NAME, name).Int("value", value).Msg("")
}

func (a *Control) clear(alarm *int32, name string, value int) {
	atomic.StoreInt32(alarm, 0)
	a.alarms.WithLabelValues(name).Set(0)
	LOG_EVENT_ALARM_CLEARED.Log(a.logger.Info()).Str(logging.NAME, name).Int("value", value).Msg("")
}

// Alarmed returns true if any alarm is raised
func (a *Control) Alarmed() bool {
	return a.alarmed(&a.queueAlarm) || a.alarmed(&a.memoryAlarm)
}

// QueueAlarm returns true if the queue length alarm is raised
func (a *Control) QueueAlarm() bool {
	return a.alarmed(&a.queueAlarm)
}

// MemoryAlarm returns true if the free memory alarm is raised
func (a *Control) MemoryAlarm() bool {
	return a.alarmed(&a.memoryAlarm)
}

// RefuseStartActivity returns true if a new activity must not be started
func (a *Control) RefuseStartActivity() bool {
	if a.config.RefuseStartActivity && a.Alarmed() {
		a.refused.WithLabelValues("start_activity").Inc()
		return true
	}
	if a.limiter != nil && !a.limiter.Allow() {
		a.refused.WithLabelValues("start_activity_rate").Inc()
		return true
	}
	return false
}

// RefuseFireEvent returns true if an event must not be fired
func (a *Control) RefuseFireEvent() bool {
	if a.config.RefuseFireEvent && a.Alarmed() {
		a.refused.WithLabelValues("fire_event").Inc()
		return true
	}
	return false
}
