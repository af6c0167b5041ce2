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

package http_test

import (
	"io"
	"net"
	"net/http"
	"strings"
	"testing"

	"github.com/oysterpack/slee.go/pkg/metrics"
	metricshttp "github.com/oysterpack/slee.go/pkg/metrics/http"
	"github.com/prometheus/client_golang/prometheus"
)

func TestReporter(t *testing.T) {
	registry := metrics.NewRegistry(true)
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "reporter_test_total", Help: "test counter"})
	registry.MustRegister(counter)
	counter.Add(3)

	reporter := metricshttp.NewReporter(registry, 0, "")
	if err := reporter.Start(); err != nil {
		t.Fatal(err)
	}
	t.Logf("metrics reporter address : %s", reporter.Addr())
	_, port, err := net.SplitHostPort(reporter.Addr())
	if err != nil {
		t.Fatal(err)
	}
	url := "http://127.0.0.1:" + port + "/metrics"

	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "reporter_test_total 3") {
		t.Errorf("counter was not reported : %s", body)
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Error("go runtime metrics should have been reported")
	}

	if err := reporter.Stop(); err != nil {
		t.Errorf("stop failed : %v", err)
	}
	if _, err := http.Get(url); err == nil {
		t.Error("the reporter should have been stopped")
	}
}
