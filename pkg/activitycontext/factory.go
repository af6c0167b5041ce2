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

package activitycontext

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oysterpack/slee.go/pkg/activity"
	"github.com/oysterpack/slee.go/pkg/eventrouter"
	"github.com/oysterpack/slee.go/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Config is the activity management configuration
type Config struct {
	// TimeBetweenLivenessQueries enables idle time tracking for resource adaptor activities when > 0
	TimeBetweenLivenessQueries time.Duration `yaml:"time_between_liveness_queries"`
}

// CongestionControl is consulted before an activity is started and before an event is fired
type CongestionControl interface {
	RefuseStartActivity() bool
	RefuseFireEvent() bool
}

type noCongestionControl struct{}

func (noCongestionControl) RefuseStartActivity() bool { return false }
func (noCongestionControl) RefuseFireEvent() bool     { return false }

// Factory creates and looks up activity contexts.
//
// The persisted part of an activity context lives in the activity.Store and is visible cluster wide.
// The node local part, i.e., the executor the activity is mapped to, is materialized on first use and removed
// when the activity record is removed, locally or by a remote node.
type Factory struct {
	config     Config
	store      activity.Store
	router     *eventrouter.Router
	congestion CongestionControl

	locals     sync.Map
	localCount int64

	lock                  sync.Mutex
	cancelRemovalListener func()

	created          prometheus.Counter
	removed          prometheus.Counter
	refused          prometheus.Counter
	localActivityCtx prometheus.GaugeFunc

	logger zerolog.Logger
}

// NewFactory creates a new Factory. If congestion is nil, then activities and events are never refused.
func NewFactory(config Config, store activity.Store, router *eventrouter.Router, congestion CongestionControl) *Factory {
	if congestion == nil {
		congestion = noCongestionControl{}
	}
	factory := &Factory{
		config:     config,
		store:      store,
		router:     router,
		congestion: congestion,
		logger:     logging.NewTypeLogger(&Factory{}),
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: eventrouter.MetricsNamespace,
			Subsystem: MetricsSubSystem,
			Name:      "created",
			Help:      "The number of activity contexts created on this node",
		}),
		removed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: eventrouter.MetricsNamespace,
			Subsystem: MetricsSubSystem,
			Name:      "local_removed",
			Help:      "The number of local activity contexts removed",
		}),
		refused: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: eventrouter.MetricsNamespace,
			Subsystem: MetricsSubSystem,
			Name:      "refused",
			Help:      "The number of activity starts and event firings refused by congestion control",
		}),
	}
	factory.localActivityCtx = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: eventrouter.MetricsNamespace,
		Subsystem: MetricsSubSystem,
		Name:      "local",
		Help:      "The number of activity contexts mapped to an executor on this node",
	}, func() float64 { return float64(factory.LocalActivityContextCount()) })
	return factory
}

// MetricsSubSystem is the metric subsystem for activity context metrics
const MetricsSubSystem = "activity_context"

// Collectors returns the factory's metrics
func (a *Factory) Collectors() []prometheus.Collector {
	return []prometheus.Collector{a.created, a.removed, a.refused, a.localActivityCtx}
}

// Start registers the factory for activity removal notifications
func (a *Factory) Start() {
	a.lock.Lock()
	defer a.lock.Unlock()
	if a.cancelRemovalListener == nil {
		a.cancelRemovalListener = a.store.OnActivityRemoved(a.activityRemoved)
	}
}

// Stop unregisters the removal listener
func (a *Factory) Stop() {
	a.lock.Lock()
	defer a.lock.Unlock()
	if a.cancelRemovalListener != nil {
		a.cancelRemovalListener()
		a.cancelRemovalListener = nil
	}
}

func (a *Factory) activityRemoved(h activity.Handle) {
	if a.removeLocal(h) {
		LOG_EVENT_REMOTE_REMOVAL.Log(a.logger.Debug()).Str(logging.ACTIVITY, h.Key()).Msg("")
	}
}

// Config returns the activity management config
func (a *Factory) Config() Config {
	return a.config
}

// Router returns the event router used to map activities to executors
func (a *Factory) Router() *eventrouter.Router {
	return a.router
}

// CreateActivityContext persists a new activity context. No executor is assigned until the local activity context
// is first requested.
//
// errors:
//	- ErrCongestion
//	- *AlreadyExistsError
func (a *Factory) CreateActivityContext(h activity.Handle, flags activity.Flags) (*ActivityContext, error) {
	if a.congestion.RefuseStartActivity() {
		a.refused.Inc()
		LOG_EVENT_CONGESTION.Log(a.logger.Warn()).Str(logging.ACTIVITY, h.Key()).Msg("activity start refused")
		return nil, ErrCongestion
	}
	now := time.Now()
	record := &activity.Record{Flags: flags, Created: now, LastAccess: now}
	if err := a.store.Create(h, record); err != nil {
		if err == activity.ErrAlreadyExists {
			return nil, &AlreadyExistsError{h}
		}
		return nil, err
	}
	a.created.Inc()
	LOG_EVENT_CREATED.Log(a.logger.Debug()).Str(logging.ACTIVITY, h.Key()).Str("flags", flags.String()).Msg("")
	return a.newActivityContext(h, true), nil
}

// ActivityContext returns nil, nil if no activity context exists for the handle.
// If updateLastAccessTime is true and the activity tracks its idle time, then its last access time is refreshed.
func (a *Factory) ActivityContext(h activity.Handle, updateLastAccessTime bool) (*ActivityContext, error) {
	exists, err := a.store.Exists(h)
	if err != nil || !exists {
		return nil, err
	}
	ac := a.newActivityContext(h, updateLastAccessTime)
	if ac.tracksIdleTime {
		ac.touch()
	}
	return ac, nil
}

// idle time is only tracked for resource adaptor activities, which are subject to liveness queries
func (a *Factory) tracksIdleTime(h activity.Handle, updateLastAccessTime bool) bool {
	return updateLastAccessTime &&
		a.config.TimeBetweenLivenessQueries > 0 &&
		h.Type == activity.ResourceAdaptorActivity
}

func (a *Factory) newActivityContext(h activity.Handle, updateLastAccessTime bool) *ActivityContext {
	return &ActivityContext{
		factory:        a,
		handle:         h,
		tracksIdleTime: a.tracksIdleTime(h, updateLastAccessTime),
	}
}

// LocalActivityContext returns the node local part of the activity context, creating it if needed.
// The executor is mapped exactly once per activity, no matter how many goroutines race to materialize it.
//
// errors:
//	- eventrouter.ErrRouterNotStarted if there is no executor to map the activity to
//	- ErrActivityRemoved
func (a *Factory) LocalActivityContext(ac *ActivityContext) (*LocalActivityContext, error) {
	h := ac.handle
	if value, ok := a.locals.Load(h); ok {
		local := value.(*LocalActivityContext)
		executor := local.Executor()
		if executor == nil || !executor.IsShutdown() {
			return local, nil
		}
		// mapped before the router was stopped : remap it onto the current executor pool
		if a.locals.CompareAndDelete(h, local) {
			a.unmap(h, local)
		}
	}
	mapper := a.router.Mapper()
	if mapper == nil {
		return nil, eventrouter.ErrRouterNotStarted
	}
	executor := mapper.Executor(h)
	if executor == nil {
		return nil, eventrouter.ErrRouterNotStarted
	}
	flags, err := ac.Flags()
	if err != nil {
		return nil, err
	}
	local := newLocalActivityContext(h, flags, executor)
	actual, loaded := a.locals.LoadOrStore(h, local)
	if !loaded {
		atomic.AddInt64(&a.localCount, 1)
		executor.ActivityMapped(h)
		// a removal that landed after the flags were read had nothing to unmap
		exists, err := a.store.Exists(h)
		if err != nil || !exists {
			a.removeLocal(h)
			if err != nil {
				return nil, err
			}
			return nil, ErrActivityRemoved
		}
	}
	return actual.(*LocalActivityContext), nil
}

// RemoveActivityContext removes the local activity context and unmaps it from its executor.
// The persisted record is not touched, see ActivityContext.End().
func (a *Factory) RemoveActivityContext(ac *ActivityContext) {
	if a.removeLocal(ac.handle) {
		LOG_EVENT_REMOVED.Log(a.logger.Debug()).Str(logging.ACTIVITY, ac.handle.Key()).Msg("")
	}
}

func (a *Factory) removeLocal(h activity.Handle) bool {
	value, loaded := a.locals.LoadAndDelete(h)
	if !loaded {
		return false
	}
	a.unmap(h, value.(*LocalActivityContext))
	return true
}

func (a *Factory) unmap(h activity.Handle, local *LocalActivityContext) {
	atomic.AddInt64(&a.localCount, -1)
	a.removed.Inc()
	if executor := local.clearExecutor(); executor != nil {
		executor.ActivityUnmapped(h)
	}
}

// AllActivityContextsHandles returns the handles of all persisted activity contexts
func (a *Factory) AllActivityContextsHandles() ([]activity.Handle, error) {
	return a.store.Handles()
}

// ActivityContextCount returns the number of persisted activity contexts
func (a *Factory) ActivityContextCount() (int, error) {
	handles, err := a.store.Handles()
	return len(handles), err
}

// ActivityContextExists returns true if an activity context is persisted for the handle
func (a *Factory) ActivityContextExists(h activity.Handle) (bool, error) {
	return a.store.Exists(h)
}

// LocalActivityContextCount returns the number of activity contexts mapped on this node
func (a *Factory) LocalActivityContextCount() int {
	return int(atomic.LoadInt64(&a.localCount))
}

func (a *Factory) String() string {
	count, _ := a.ActivityContextCount()
	return fmt.Sprintf("ActivityContextFactory{local=%d, total=%d}", a.LocalActivityContextCount(), count)
}
