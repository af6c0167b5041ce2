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

// Package metrics provides the prometheus registry and the helpers used to read metrics back out of it
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	dto "github.com/prometheus/client_model/go"
)

// NewRegistry creates a new registry.
// If collectProcessMetrics = true, then the prometheus GoCollector and ProcessCollectors are registered.
func NewRegistry(collectProcessMetrics bool) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	if collectProcessMetrics {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return registry
}

// MustRegister registers the collectors, panicking on the first failure
func MustRegister(registry prometheus.Registerer, collectors ...[]prometheus.Collector) {
	for _, cs := range collectors {
		registry.MustRegister(cs...)
	}
}

// Family gathers the registry's metrics and returns the named metric family, or nil if it is not registered
func Family(registry prometheus.Gatherer, name string) (*dto.MetricFamily, error) {
	families, err := registry.Gather()
	if err != nil {
		return nil, err
	}
	for _, family := range families {
		if family.GetName() == name {
			return family, nil
		}
	}
	return nil, nil
}

// Value returns the value of the first metric in the family whose labels include the specified label pairs.
// Counters, gauges and untyped metrics report their value, summaries and histograms report their sample count.
// False is returned if no metric matched.
func Value(family *dto.MetricFamily, labels map[string]string) (float64, bool) {
	if family == nil {
		return 0, false
	}
	for _, metric := range family.GetMetric() {
		if !hasLabels(metric, labels) {
			continue
		}
		switch family.GetType() {
		case dto.MetricType_COUNTER:
			return metric.GetCounter().GetValue(), true
		case dto.MetricType_GAUGE:
			return metric.GetGauge().GetValue(), true
		case dto.MetricType_SUMMARY:
			return float64(metric.GetSummary().GetSampleCount()), true
		case dto.MetricType_HISTOGRAM:
			return float64(metric.GetHistogram().GetSampleCount()), true
		default:
			return metric.GetUntyped().GetValue(), true
		}
	}
	return 0, false
}

func hasLabels(metric *dto.Metric, labels map[string]string) bool {
	matched := 0
	for _, pair := range metric.GetLabel() {
		if value, ok := labels[pair.GetName()]; ok && value == pair.GetValue() {
			matched++
		}
	}
	return matched == len(labels)
}
