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
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsNamespace is used as the metric namespace for all slee metrics
	MetricsNamespace = "slee"
	// MetricsSubSystem is used as the metric subsystem for event router metrics
	MetricsSubSystem = "eventrouter"
)

var (
	executorLabels  = []string{"executor"}
	eventTypeLabels = []string{"event_type"}
)

func newDesc(name, help string, labels []string) *prometheus.Desc {
	return prometheus.NewDesc(prometheus.BuildFQName(MetricsNamespace, MetricsSubSystem, name), help, labels, nil)
}

// Collector returns a prometheus.Collector that collects the router's executor metrics
func (a *Router) Collector() prometheus.Collector {
	return &collector{
		router:           a,
		executorCount:    newDesc("executors", "The number of event router executors", nil),
		queueLength:      newDesc("queue_length", "The number of tasks queued on the executor", executorLabels),
		activitiesMapped: newDesc("activities_mapped", "The number of activities mapped to the executor", executorLabels),
		callerRuns:       newDesc("caller_runs", "The number of tasks run by the submitter because the executor queue was full", executorLabels),
		taskFailures:     newDesc("task_failures", "The number of tasks that panicked", executorLabels),
		miscTasks:        newDesc("misc_tasks", "The number of non event routing tasks executed", executorLabels),
		eventsRouted:     newDesc("events_routed_seconds", "Event routing time", eventTypeLabels),
		eventsFailed:     newDesc("events_failed", "The number of events whose routing failed", eventTypeLabels),
	}
}

// implements prometheus.Collector, i.e., it collects executor related metrics
type collector struct {
	router *Router

	executorCount    *prometheus.Desc
	queueLength      *prometheus.Desc
	activitiesMapped *prometheus.Desc
	callerRuns       *prometheus.Desc
	taskFailures     *prometheus.Desc
	miscTasks        *prometheus.Desc
	eventsRouted     *prometheus.Desc
	eventsFailed     *prometheus.Desc
}

// Describe implements prometheus.Collector
func (a *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- a.executorCount
	ch <- a.queueLength
	ch <- a.activitiesMapped
	ch <- a.callerRuns
	ch <- a.taskFailures
	ch <- a.miscTasks
	ch <- a.eventsRouted
	ch <- a.eventsFailed
}

// Collect implements prometheus.Collector
func (a *collector) Collect(ch chan<- prometheus.Metric) {
	executors := a.router.Executors()
	ch <- prometheus.MustNewConstMetric(a.executorCount, prometheus.GaugeValue, float64(len(executors)))

	for _, executor := range executors {
		id := strconv.Itoa(executor.ID())
		ch <- prometheus.MustNewConstMetric(a.queueLength, prometheus.GaugeValue, float64(executor.QueueLength()), id)
		stats := executor.Statistics()
		if stats == nil {
			continue
		}
		ch <- prometheus.MustNewConstMetric(a.activitiesMapped, prometheus.GaugeValue, float64(stats.ActivitiesMapped()), id)
		ch <- prometheus.MustNewConstMetric(a.callerRuns, prometheus.CounterValue, float64(stats.CallerRuns()), id)
		ch <- prometheus.MustNewConstMetric(a.taskFailures, prometheus.CounterValue, float64(stats.TaskFailures()), id)
		ch <- prometheus.MustNewConstMetric(a.miscTasks, prometheus.CounterValue, float64(stats.MiscTasksExecuted()), id)
	}

	statistics := a.router.Statistics()
	for eventType, stats := range statistics.EventTypes() {
		ch <- prometheus.MustNewConstSummary(a.eventsRouted,
			stats.Routed, stats.RoutingTime.Seconds(), nil,
			eventType.String(),
		)
		ch <- prometheus.MustNewConstMetric(a.eventsFailed, prometheus.CounterValue, float64(stats.Failed), eventType.String())
	}
}
