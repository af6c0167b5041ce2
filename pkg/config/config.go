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

// Package config loads the container configuration from YAML
package config

import (
	"fmt"
	"os"

	"github.com/Masterminds/semver"
	"github.com/oysterpack/slee.go/pkg/activitycontext"
	"github.com/oysterpack/slee.go/pkg/cluster"
	"github.com/oysterpack/slee.go/pkg/congestion"
	"github.com/oysterpack/slee.go/pkg/eventrouter"
	"github.com/oysterpack/slee.go/pkg/timer"
	"gopkg.in/yaml.v3"
)

// SUPPORTED_VERSIONS is the semver constraint the config version must satisfy
const SUPPORTED_VERSIONS = "^1.0.0"

// CURRENT_VERSION is used when the config does not specify a version
const CURRENT_VERSION = "1.0.0"

// Config is the root configuration
type Config struct {
	Version  string `yaml:"version"`
	LogLevel string `yaml:"log_level"`

	EventRouter        eventrouter.Config     `yaml:"event_router"`
	ActivityManagement activitycontext.Config `yaml:"activity_management"`
	TimerFacility      timer.Config           `yaml:"timer_facility"`
	CongestionControl  congestion.Config      `yaml:"congestion_control"`
	Cluster            cluster.Config         `yaml:"cluster"`
	Store              StoreConfig            `yaml:"store"`
	Metrics            MetricsConfig          `yaml:"metrics"`
}

const (
	STORE_DRIVER_MEMORY = "memory"
	STORE_DRIVER_BOLT   = "bolt"
)

// StoreConfig selects where activity records are persisted.
// It is ignored when clustering is enabled : the records then live in the cluster's JetStream bucket.
type StoreConfig struct {
	// Driver is one of [memory,bolt]. Defaults to memory.
	Driver string `yaml:"driver"`
	// Path is the bolt database file path
	Path string `yaml:"path"`
	// Database is the bolt database name. Defaults to "slee".
	Database string `yaml:"database"`
	// Bucket is the bolt bucket name. Defaults to "activities".
	Bucket string `yaml:"bucket"`
	// MustExist fails startup if the bolt database has not already been created, instead of creating an empty one
	MustExist bool `yaml:"must_exist"`
}

// MetricsConfig configures the prometheus HTTP endpoint
type MetricsConfig struct {
	// HTTPPort 0 disables the endpoint
	HTTPPort int `yaml:"http_port"`
	// Path defaults to /metrics
	Path string `yaml:"path"`
}

// ConfigError wraps config load and validation errors
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid config : %v", e.Err)
	}
	return fmt.Sprintf("invalid config %q : %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Default returns the default config
func Default() *Config {
	config := &Config{}
	config.ApplyDefaults()
	return config
}

// ApplyDefaults sets unset fields to their defaults
func (a *Config) ApplyDefaults() {
	if a.Version == "" {
		a.Version = CURRENT_VERSION
	}
	if a.LogLevel == "" {
		a.LogLevel = "WARN"
	}
	a.EventRouter = a.EventRouter.WithDefaults()
	a.TimerFacility = a.TimerFacility.WithDefaults()
	if a.Cluster.Enabled() {
		a.Cluster = a.Cluster.WithDefaults()
	}
	if a.Store.Driver == "" {
		a.Store.Driver = STORE_DRIVER_MEMORY
	}
	if a.Store.Database == "" {
		a.Store.Database = "slee"
	}
	if a.Store.Bucket == "" {
		a.Store.Bucket = "activities"
	}
	if a.Metrics.Path == "" {
		a.Metrics.Path = "/metrics"
	}
}

// Validate checks the config after defaults are applied
func (a *Config) Validate() error {
	version, err := semver.NewVersion(a.Version)
	if err != nil {
		return fmt.Errorf("invalid version %q : %w", a.Version, err)
	}
	constraint, err := semver.NewConstraint(SUPPORTED_VERSIONS)
	if err != nil {
		return err
	}
	if !constraint.Check(version) {
		return fmt.Errorf("unsupported config version %v : supported versions are %s", version, SUPPORTED_VERSIONS)
	}

	if _, err := eventrouter.NewMapper(a.EventRouter.Mapper); err != nil {
		return err
	}

	if a.Cluster.Enabled() {
		if err := a.Cluster.Validate(); err != nil {
			return err
		}
	}

	switch a.Store.Driver {
	case STORE_DRIVER_MEMORY:
	case STORE_DRIVER_BOLT:
		if a.Store.Path == "" {
			return fmt.Errorf("store.path is required for the %s driver", STORE_DRIVER_BOLT)
		}
	default:
		return fmt.Errorf("unknown store driver : %q", a.Store.Driver)
	}

	cc := a.CongestionControl
	if cc.MaxQueueLengthToTurnOn > 0 && cc.MaxQueueLengthToTurnOff > cc.MaxQueueLengthToTurnOn {
		return fmt.Errorf("congestion_control.max_queue_length_to_turn_off must not be greater than max_queue_length_to_turn_on")
	}
	if cc.MinFreeMemoryToTurnOnMB > 0 && cc.MinFreeMemoryToTurnOffMB < cc.MinFreeMemoryToTurnOnMB {
		return fmt.Errorf("congestion_control.min_free_memory_to_turn_off_mb must not be less than min_free_memory_to_turn_on_mb")
	}
	if cc.MaxActivityStartRate < 0 {
		return fmt.Errorf("congestion_control.max_activity_start_rate must not be negative")
	}

	if a.Metrics.HTTPPort < 0 || a.Metrics.HTTPPort > 65535 {
		return fmt.Errorf("invalid metrics.http_port : %d", a.Metrics.HTTPPort)
	}
	return nil
}

// Parse parses the YAML config, applies defaults, and validates it
func Parse(data []byte) (*Config, error) {
	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, &ConfigError{Err: err}
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, &ConfigError{Err: err}
	}
	return config, nil
}

// Load reads and parses the YAML config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{path, err}
	}
	config, err := Parse(data)
	if err != nil {
		err.(*ConfigError).Path = path
		return nil, err
	}
	return config, nil
}
