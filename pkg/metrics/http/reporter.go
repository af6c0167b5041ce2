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

// Package http exposes a prometheus registry over HTTP
package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/oysterpack/slee.go/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"gopkg.in/tomb.v2"
)

const (
	LOG_EVENT_STARTED logging.Event = "METRICS_HTTP_STARTED"
	LOG_EVENT_STOPPED logging.Event = "METRICS_HTTP_STOPPED"
)

// Reporter reports prometheus metrics via HTTP
type Reporter struct {
	tomb.Tomb

	registry *prometheus.Registry
	port     int
	path     string

	listener   net.Listener
	httpServer *http.Server

	logger zerolog.Logger
}

// NewReporter creates a reporter for the registry. Port 0 binds to a random port.
func NewReporter(registry *prometheus.Registry, port int, path string) *Reporter {
	if path == "" {
		path = "/metrics"
	}
	return &Reporter{
		registry: registry,
		port:     port,
		path:     path,
		logger:   logging.NewTypeLogger(&Reporter{}),
	}
}

// Registry is the registry that is used to report metrics
func (a *Reporter) Registry() *prometheus.Registry {
	return a.registry
}

// Start binds the port and serves the metrics endpoint on a background goroutine
func (a *Reporter) Start() error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", a.port))
	if err != nil {
		return err
	}
	a.listener = listener

	mux := http.NewServeMux()
	mux.Handle(a.path, promhttp.HandlerFor(
		a.registry,
		promhttp.HandlerOpts{
			ErrorLog:      a,
			ErrorHandling: promhttp.ContinueOnError,
		},
	))
	a.httpServer = &http.Server{Handler: mux}

	a.Go(func() error {
		if err := a.httpServer.Serve(listener); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	a.Go(func() error {
		<-a.Dying()
		shutdownContext, cancel := context.WithTimeout(context.Background(), time.Second*30)
		defer cancel()
		return a.httpServer.Shutdown(shutdownContext)
	})
	LOG_EVENT_STARTED.Log(a.logger.Info()).Str("addr", a.Addr()).Str("path", a.path).Msg("")
	return nil
}

// Addr returns the address the reporter is listening on. Blank is returned if the reporter is not started.
func (a *Reporter) Addr() string {
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Stop shuts down the HTTP server
func (a *Reporter) Stop() error {
	if a.listener == nil {
		return nil
	}
	a.Kill(nil)
	err := a.Wait()
	LOG_EVENT_STOPPED.Log(a.logger.Info()).Msg("")
	return err
}

// Println implements promhttp.Logger interface.
// It is used to log any errors reported by the prometheus http handler
func (a *Reporter) Println(v ...interface{}) {
	a.logger.Error().Msg(fmt.Sprint(v...))
}
