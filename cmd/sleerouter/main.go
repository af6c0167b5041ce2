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

package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/oysterpack/slee.go/pkg/config"
	"github.com/oysterpack/slee.go/pkg/container"
	"github.com/oysterpack/slee.go/pkg/eventrouter"
	"github.com/oysterpack/slee.go/pkg/logging"
	"github.com/rs/zerolog/log"
)

type command struct{}

// ./sleerouter -config /etc/slee/config.yaml -log-level INFO
//
// Without a config file, the container runs with the default config : in-memory activity store, no cluster, and
// no metrics endpoint. Routed events are logged at DEBUG level.
func main() {
	var configPath, logLevel string
	flag.StringVar(&configPath, "config", "", "YAML config file path")
	flag.StringVar(&logLevel, "log-level", "", "overrides the config log level [DEBUG,INFO,WARN,ERROR]")
	flag.Parse()

	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			log.Fatal().Err(err).Msg("Failed to load config")
		}
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger := logging.NewPackageLogger(command{})
	handler := eventrouter.EventHandlerFunc(func(ctx *eventrouter.EventContext) error {
		logger.Debug().
			Str(logging.ACTIVITY, ctx.Handle.Key()).
			Str(eventrouter.LOG_FIELD_EVENT_TYPE, ctx.EventType.String()).
			Str("address", ctx.Address).
			Msg("routed")
		return nil
	})

	c, err := container.NewContainer(cfg, handler)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create container")
	}
	if err := c.Start(); err != nil {
		c.Stop()
		log.Fatal().Err(err).Msg("Failed to start container")
	}
	if addr := c.MetricsAddr(); addr != "" {
		log.Info().Str("addr", addr).Msg("metrics endpoint")
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM, os.Interrupt)
	<-sigs

	if err := c.Stop(); err != nil {
		log.Error().Err(err).Msg("Failed to stop container")
		os.Exit(1)
	}
}
