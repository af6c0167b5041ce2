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
	"fmt"
	"sync"

	"github.com/oysterpack/slee.go/pkg/logging"
	"github.com/rs/zerolog"
)

// Config is the event router configuration
type Config struct {
	// Threads is the number of executors. Defaults to 8.
	Threads int `yaml:"threads"`
	// QueueSize is the executor task queue bound. Defaults to 10.
	QueueSize int `yaml:"queue_size"`
	// Mapper is the registered name of the executor mapper. Defaults to "hash".
	Mapper string `yaml:"mapper"`
	// CollectStats enables executor statistics
	CollectStats bool `yaml:"collect_stats"`
}

const (
	DEFAULT_THREADS    = 8
	DEFAULT_QUEUE_SIZE = 10
)

// WithDefaults returns a copy of the config with unset fields set to their defaults
func (a Config) WithDefaults() Config {
	if a.Threads <= 0 {
		a.Threads = DEFAULT_THREADS
	}
	if a.QueueSize <= 0 {
		a.QueueSize = DEFAULT_QUEUE_SIZE
	}
	if a.Mapper == "" {
		a.Mapper = HashMapperName
	}
	return a
}

// Router owns the executor pool and the mapper that assigns activities to executors
type Router struct {
	config  Config
	handler EventHandler

	lock      sync.RWMutex
	executors []*Executor
	mapper    Mapper
	nextID    int

	logger zerolog.Logger
}

// NewRouter creates a new router. The executor pool is created when the router is started.
func NewRouter(config Config, handler EventHandler) (*Router, error) {
	if handler == nil {
		return nil, ErrEventHandlerNil
	}
	return &Router{
		config:  config.WithDefaults(),
		handler: handler,
		logger:  logging.NewTypeLogger(&Router{}),
	}, nil
}

// Start creates the executor pool and the configured mapper.
// If the mapper cannot be created, then a *MapperInstantiationError is returned and the router is left unstarted.
// ErrRouterAlreadyStarted is returned if the router is running : activities hold on to their executor, so the pool
// is only replaced after Stop().
func (a *Router) Start() error {
	mapper, err := NewMapper(a.config.Mapper)
	if err != nil {
		return &MapperInstantiationError{Name: a.config.Mapper, Err: err}
	}

	a.lock.Lock()
	if a.executors != nil {
		a.lock.Unlock()
		return ErrRouterAlreadyStarted
	}
	executors := make([]*Executor, a.config.Threads)
	for i := range executors {
		executors[i] = a.newExecutor()
	}
	mapper.SetExecutors(executors)
	a.executors = executors
	a.mapper = mapper
	a.lock.Unlock()

	LOG_EVENT_STARTED.Log(a.logger.Info()).
		Int(LOG_FIELD_EXECUTORS, len(executors)).
		Int(LOG_FIELD_QUEUE_SIZE, a.config.QueueSize).
		Str(LOG_FIELD_MAPPER, a.config.Mapper).
		Msg("")
	return nil
}

func (a *Router) newExecutor() *Executor {
	executor := newExecutor(a.nextID, a.config.QueueSize, a.config.CollectStats, a.handler)
	a.nextID++
	return executor
}

// shutdown is run without holding the router lock because queued tasks may call back into the router
func shutdown(executors []*Executor) {
	for _, executor := range executors {
		executor.Shutdown()
	}
	for _, executor := range executors {
		executor.Wait()
	}
}

// Stop shuts down the executors, running the tasks that are already queued, and waits for them to terminate
func (a *Router) Stop() {
	a.lock.Lock()
	executors := a.executors
	if executors == nil {
		a.lock.Unlock()
		return
	}
	a.mapper.SetExecutors(nil)
	a.executors = nil
	a.mapper = nil
	a.lock.Unlock()

	shutdown(executors)
	LOG_EVENT_STOPPED.Log(a.logger.Info()).Msg("")
}

// Resize doubles the executor pool. The existing executors are kept at their positions and new executors are appended.
//
// Activities already mapped keep their executor. New activities are mapped over the resized pool.
func (a *Router) Resize() error {
	a.lock.Lock()
	defer a.lock.Unlock()
	if a.executors == nil {
		return ErrRouterNotStarted
	}
	n := len(a.executors)
	executors := make([]*Executor, n*2)
	copy(executors, a.executors)
	for i := n; i < len(executors); i++ {
		executors[i] = a.newExecutor()
	}
	a.mapper.SetExecutors(executors)
	a.executors = executors
	LOG_EVENT_RESIZED.Log(a.logger.Info()).Int(LOG_FIELD_EXECUTORS, len(executors)).Msg("")
	return nil
}

// Executors returns the executor pool. Nil is returned if the router is not started.
func (a *Router) Executors() []*Executor {
	a.lock.RLock()
	defer a.lock.RUnlock()
	return a.executors
}

// Mapper returns nil if the router is not started or has been stopped
func (a *Router) Mapper() Mapper {
	a.lock.RLock()
	defer a.lock.RUnlock()
	return a.mapper
}

// Config returns the router config with defaults applied
func (a *Router) Config() Config {
	return a.config
}

// Statistics returns the aggregated executor statistics
func (a *Router) Statistics() *Statistics {
	return &Statistics{a}
}

// QueueLength returns the total number of tasks queued across all executors
func (a *Router) QueueLength() int {
	total := 0
	for _, executor := range a.Executors() {
		total += executor.QueueLength()
	}
	return total
}

func (a *Router) String() string {
	return fmt.Sprintf("EventRouter{executors=%d, mapper=%s}", len(a.Executors()), a.config.Mapper)
}
