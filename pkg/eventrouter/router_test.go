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

package eventrouter_test

import (
	"errors"
	"testing"
	"time"

	"github.com/oysterpack/slee.go/pkg/eventrouter"
	"github.com/prometheus/client_golang/prometheus"
)

func TestNewRouter_NilHandler(t *testing.T) {
	if _, err := eventrouter.NewRouter(eventrouter.Config{}, nil); err != eventrouter.ErrEventHandlerNil {
		t.Errorf("ErrEventHandlerNil was expected : %v", err)
	}
}

func TestRouter_Defaults(t *testing.T) {
	router := startRouter(t, eventrouter.Config{}, noopHandler)
	config := router.Config()
	if config.Threads != eventrouter.DEFAULT_THREADS || config.QueueSize != eventrouter.DEFAULT_QUEUE_SIZE || config.Mapper != eventrouter.HashMapperName {
		t.Errorf("defaults were not applied : %+v", config)
	}
	if len(router.Executors()) != eventrouter.DEFAULT_THREADS {
		t.Errorf("wrong executor count : %d", len(router.Executors()))
	}
	t.Log(router)
}

func TestRouter_Start_UnknownMapper(t *testing.T) {
	router, err := eventrouter.NewRouter(eventrouter.Config{Mapper: "round-robin"}, noopHandler)
	if err != nil {
		t.Fatal(err)
	}
	err = router.Start()
	var mapperErr *eventrouter.MapperInstantiationError
	if !errors.As(err, &mapperErr) {
		t.Fatalf("*MapperInstantiationError was expected : %v", err)
	}
	var unknown *eventrouter.UnknownMapperError
	if !errors.As(err, &unknown) || unknown.Name != "round-robin" {
		t.Errorf("the cause should be an *UnknownMapperError : %v", mapperErr.Err)
	}
	if router.Executors() != nil {
		t.Error("no executors should have been created")
	}
}

func TestRouter_Resize(t *testing.T) {
	router := startRouter(t, eventrouter.Config{Threads: 4}, noopHandler)
	before := router.Executors()
	if err := router.Resize(); err != nil {
		t.Fatal(err)
	}
	after := router.Executors()
	if len(after) != 8 {
		t.Fatalf("the pool should have doubled : %d", len(after))
	}
	for i := range before {
		if after[i] != before[i] {
			t.Errorf("executor #%d was replaced", i)
		}
	}
	if len(router.Mapper().Executors()) != 8 {
		t.Errorf("the mapper pool was not updated")
	}
	ids := map[int]bool{}
	for _, executor := range after {
		ids[executor.ID()] = true
	}
	if len(ids) != 8 {
		t.Errorf("executor ids should be unique : %v", ids)
	}
}

func TestRouter_Resize_NotStarted(t *testing.T) {
	router, _ := eventrouter.NewRouter(eventrouter.Config{}, noopHandler)
	if err := router.Resize(); err != eventrouter.ErrRouterNotStarted {
		t.Errorf("ErrRouterNotStarted was expected : %v", err)
	}
}

func TestRouter_Restart(t *testing.T) {
	router := startRouter(t, eventrouter.Config{Threads: 2}, noopHandler)
	first := router.Executors()
	if err := router.Start(); err != eventrouter.ErrRouterAlreadyStarted {
		t.Fatalf("ErrRouterAlreadyStarted was expected : %v", err)
	}
	if err := first[0].Execute(func() {}); err != nil {
		t.Errorf("the running executors must be left alone : %v", err)
	}
	if executors := router.Executors(); len(executors) != 2 || executors[0] != first[0] {
		t.Error("the executor pool should not have been replaced")
	}

	router.Stop()
	if !first[0].IsShutdown() || !first[1].IsShutdown() {
		t.Error("Stop() should have shut down the executors")
	}
	if err := router.Start(); err != nil {
		t.Fatal(err)
	}
	if executors := router.Executors(); len(executors) != 2 || executors[0] == first[0] || executors[0].IsShutdown() {
		t.Error("a new executor pool should have been created")
	}
}

// queued tasks that call back into the router must not deadlock Stop()
func TestRouter_Stop(t *testing.T) {
	router, err := eventrouter.NewRouter(eventrouter.Config{Threads: 2}, noopHandler)
	if err != nil {
		t.Fatal(err)
	}
	if err := router.Start(); err != nil {
		t.Fatal(err)
	}
	release := make(chan struct{})
	executor := router.Executors()[0]
	executor.Execute(func() { <-release })
	executor.Execute(func() { router.Executors() })

	stopped := make(chan struct{})
	go func() {
		router.Stop()
		close(stopped)
	}()
	close(release)
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop() did not return")
	}

	if router.Executors() != nil || router.Mapper() != nil {
		t.Error("the executor pool and mapper should have been released")
	}
	router.Stop()
	if err := router.Start(); err != nil {
		t.Fatal(err)
	}
	defer router.Stop()
	if len(router.Executors()) != 2 {
		t.Errorf("wrong executor count after restart : %d", len(router.Executors()))
	}
}

func TestRouter_Collector(t *testing.T) {
	router := startRouter(t, eventrouter.Config{Threads: 2, CollectStats: true}, noopHandler)
	registry := prometheus.NewRegistry()
	registry.MustRegister(router.Collector())
	families, err := registry.Gather()
	if err != nil {
		t.Fatal(err)
	}
	names := map[string]bool{}
	for _, family := range families {
		names[family.GetName()] = true
	}
	for _, name := range []string{"slee_eventrouter_executors", "slee_eventrouter_queue_length", "slee_eventrouter_caller_runs"} {
		if !names[name] {
			t.Errorf("%s was not collected : %v", name, names)
		}
	}
}
