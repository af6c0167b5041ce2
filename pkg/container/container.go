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

// Package container wires the event routing modules together and manages their lifecycle
package container

import (
	"github.com/oysterpack/slee.go/pkg/activity"
	"github.com/oysterpack/slee.go/pkg/activitycontext"
	"github.com/oysterpack/slee.go/pkg/cluster"
	"github.com/oysterpack/slee.go/pkg/config"
	"github.com/oysterpack/slee.go/pkg/congestion"
	"github.com/oysterpack/slee.go/pkg/eventrouter"
	"github.com/oysterpack/slee.go/pkg/logging"
	"github.com/oysterpack/slee.go/pkg/metrics"
	metricshttp "github.com/oysterpack/slee.go/pkg/metrics/http"
	"github.com/oysterpack/slee.go/pkg/timer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const (
	LOG_EVENT_STATE_CHANGED logging.Event = "STATE_CHANGED"
	LOG_EVENT_START_FAILED  logging.Event = "START_FAILED"
	LOG_EVENT_STOP_FAILED   logging.Event = "STOP_FAILED"
)

// Container owns the store, event router, congestion control, activity context factory, timer facility and metrics.
// In cluster mode the store is the cluster's shared JetStream bucket.
// Modules are started in dependency order and stopped in reverse order.
type Container struct {
	lifecycle

	config *config.Config

	store      activity.Store
	router     *eventrouter.Router
	congestion *congestion.Control
	factory    *activitycontext.Factory
	timers     *timer.Facility

	registry *prometheus.Registry
	reporter *metricshttp.Reporter

	logger zerolog.Logger
}

// NewContainer builds the container. Nothing is started until Start() is called.
func NewContainer(cfg *config.Config, handler eventrouter.EventHandler) (*Container, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logging.SetGlobalLevel(cfg.LogLevel)

	router, err := eventrouter.NewRouter(cfg.EventRouter, handler)
	if err != nil {
		return nil, err
	}

	container := &Container{
		config:   cfg,
		router:   router,
		registry: metrics.NewRegistry(true),
		logger:   logging.NewTypeLogger(&Container{}),
	}
	var store activity.Store
	if cfg.Cluster.Enabled() {
		clusterStore, err := cluster.Connect(cfg.Cluster)
		if err != nil {
			return nil, err
		}
		metrics.MustRegister(container.registry, clusterStore.Collectors())
		store = clusterStore
	} else if store, err = openStore(cfg.Store); err != nil {
		return nil, err
	}
	container.store = store
	container.congestion = congestion.New(cfg.CongestionControl, router, nil)
	container.factory = activitycontext.NewFactory(cfg.ActivityManagement, store, router, container.congestion)
	container.timers = timer.NewFacility(cfg.TimerFacility, container.factory)

	container.registry.MustRegister(router.Collector())
	metrics.MustRegister(container.registry,
		container.congestion.Collectors(),
		container.factory.Collectors(),
		container.timers.Collectors(),
	)
	if cfg.Metrics.HTTPPort > 0 {
		container.reporter = metricshttp.NewReporter(container.registry, cfg.Metrics.HTTPPort, cfg.Metrics.Path)
	}
	return container, nil
}

func openStore(cfg config.StoreConfig) (activity.Store, error) {
	switch cfg.Driver {
	case config.STORE_DRIVER_BOLT:
		open := activity.OpenBoltStore
		if cfg.MustExist {
			open = activity.OpenExistingBoltStore
		}
		store, err := open(cfg.Path, cfg.Database, cfg.Bucket)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return activity.NewMemoryStore(), nil
	}
}

// Start starts the modules. If any module fails to start, then the modules already started are stopped and the
// container transitions to Failed.
func (a *Container) Start() error {
	if err := a.transition(Starting); err != nil {
		return err
	}
	if err := a.router.Start(); err != nil {
		return a.startFailed(err)
	}
	a.factory.Start()
	a.congestion.Start()
	if a.reporter != nil {
		if err := a.reporter.Start(); err != nil {
			a.congestion.Stop()
			a.factory.Stop()
			a.router.Stop()
			return a.startFailed(err)
		}
	}
	return a.transition(Running)
}

func (a *Container) startFailed(err error) error {
	LOG_EVENT_START_FAILED.Log(a.logger.Error()).Err(err).Msg("")
	a.failed(err)
	return err
}

func (a *Container) transition(state State) error {
	if err := a.setState(state); err != nil {
		return err
	}
	LOG_EVENT_STATE_CHANGED.Log(a.logger.Info()).Str(logging.STATE, state.String()).Msg("")
	return nil
}

// Stop stops the modules in reverse order and closes the store.
// A container that was never started is simply terminated. A Failed container only releases its resources.
func (a *Container) Stop() error {
	state, _ := a.State()
	switch state {
	case New:
		a.release()
		return a.transition(Terminated)
	case Failed:
		return a.release()
	}
	if err := a.transition(Stopping); err != nil {
		return err
	}
	a.timers.Stop()
	if a.reporter != nil {
		if err := a.reporter.Stop(); err != nil {
			LOG_EVENT_STOP_FAILED.Log(a.logger.Warn()).Err(err).Msg("metrics reporter")
		}
	}
	a.congestion.Stop()
	a.factory.Stop()
	a.router.Stop()
	if err := a.release(); err != nil {
		a.failed(err)
		return err
	}
	return a.transition(Terminated)
}

func (a *Container) release() error {
	return a.store.Close()
}

// Config returns the container config
func (a *Container) Config() *config.Config {
	return a.config
}

// Router returns the event router
func (a *Container) Router() *eventrouter.Router {
	return a.router
}

// ActivityContextFactory returns the activity context factory
func (a *Container) ActivityContextFactory() *activitycontext.Factory {
	return a.factory
}

// TimerFacility returns the timer facility
func (a *Container) TimerFacility() *timer.Facility {
	return a.timers
}

// CongestionControl returns the congestion control
func (a *Container) CongestionControl() *congestion.Control {
	return a.congestion
}

// Registry returns the metrics registry
func (a *Container) Registry() *prometheus.Registry {
	return a.registry
}

// MetricsAddr returns the metrics endpoint address, or blank if the endpoint is disabled
func (a *Container) MetricsAddr() string {
	if a.reporter == nil {
		return ""
	}
	return a.reporter.Addr()
}
