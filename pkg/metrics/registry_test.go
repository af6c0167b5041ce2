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

package metrics_test

import (
	"testing"

	"github.com/oysterpack/slee.go/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

func TestFamilyValue(t *testing.T) {
	registry := metrics.NewRegistry(false)
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "requests", Help: "requests"}, []string{"op"})
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "queue_length", Help: "queue length"})
	metrics.MustRegister(registry, []prometheus.Collector{counter, gauge})

	counter.WithLabelValues("create").Add(2)
	counter.WithLabelValues("remove").Inc()
	gauge.Set(7)

	family, err := metrics.Family(registry, "requests")
	if err != nil {
		t.Fatal(err)
	}
	if value, ok := metrics.Value(family, map[string]string{"op": "create"}); !ok || value != 2 {
		t.Errorf("wrong value : %v : %v", value, ok)
	}
	if _, ok := metrics.Value(family, map[string]string{"op": "update"}); ok {
		t.Error("no metric should have matched")
	}

	family, _ = metrics.Family(registry, "queue_length")
	if value, ok := metrics.Value(family, nil); !ok || value != 7 {
		t.Errorf("wrong gauge value : %v : %v", value, ok)
	}

	if family, _ := metrics.Family(registry, "missing"); family != nil {
		t.Error("nil was expected for an unregistered metric")
	}
}

func TestNewRegistry_ProcessMetrics(t *testing.T) {
	registry := metrics.NewRegistry(true)
	family, err := metrics.Family(registry, "go_goroutines")
	if err != nil {
		t.Fatal(err)
	}
	if family == nil {
		t.Error("go collector should have been registered")
	}
}
